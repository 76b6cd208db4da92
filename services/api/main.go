package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/spf13/cobra"

	"github.com/relabs-tech/sqlbase/core/access"
	"github.com/relabs-tech/sqlbase/core/backend"
	"github.com/relabs-tech/sqlbase/core/logger"
	"github.com/relabs-tech/sqlbase/core/registry"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "sqlbase",
		Short:         "sqlbase - a user service on a composable SQL query layer",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(newServeCommand())
	cmd.AddCommand(newMigrateCommand())
	cmd.AddCommand(newHashPasswordCommand())
	return cmd
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the REST api",
		Long: `Serve the REST api under /api/v1.

The configuration is read from the environment, see DB_*, JWT_*, PORT and KAFKA_*.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			service, err := loadService()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, service)
		},
	}
}

func serve(ctx context.Context, service *Service) error {
	if err := logger.InitLoggerWithLevel(service.LogLevel); err != nil {
		return err
	}
	rlog := logger.Default()

	issuer, err := service.Issuer()
	if err != nil {
		return err
	}
	engines, err := service.OpenEngines()
	if err != nil {
		return err
	}
	defer engines.Close()
	db, err := engines.Engine(service.EngineName())
	if err != nil {
		return err
	}

	notifier, closeNotifier, err := service.Notifier()
	if err != nil {
		return err
	}
	defer closeNotifier()

	router := mux.NewRouter()
	backend.New(&backend.Builder{
		DB:       db,
		Router:   router,
		Issuer:   issuer,
		Notifier: notifier,
	})

	server := &http.Server{
		Addr:              ":" + strconv.Itoa(service.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	rlog.Infoln("listen on port", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	rlog.Infoln("server stopped")
	return nil
}

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the users table and the registry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			service, err := loadService()
			if err != nil {
				return err
			}
			if err := logger.InitLoggerWithLevel(service.LogLevel); err != nil {
				return err
			}
			engines, err := service.OpenEngines()
			if err != nil {
				return err
			}
			defer engines.Close()
			db, err := engines.Engine(service.EngineName())
			if err != nil {
				return err
			}
			reg, err := registry.New(cmd.Context(), db)
			if err != nil {
				return err
			}
			return backend.Migrate(cmd.Context(), db, reg)
		},
	}
}

func newHashPasswordCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password <password>",
		Short: "Print the bcrypt hash of a password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := access.HashPassword(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}
