package backend

import (
	"context"
	"embed"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/relabs-tech/sqlbase/core"
	"github.com/relabs-tech/sqlbase/core/access"
	"github.com/relabs-tech/sqlbase/core/csql"
	"github.com/relabs-tech/sqlbase/core/logger"
	"github.com/relabs-tech/sqlbase/core/registry"
	"github.com/relabs-tech/sqlbase/core/schema"
)

//go:embed schemas
var schemaFS embed.FS

const userSchemaID = "https://sqlbase.local/user.json"

// Backend is the REST backend
type Backend struct {
	db        *csql.DB
	router    *mux.Router
	issuer    *access.TokenIssuer
	notifier  core.Notifier
	validator *schema.Validator
	// Registry is the JSON object registry for this backend's schema
	Registry *registry.Registry
}

// Builder is a builder helper for the Backend
type Builder struct {
	// DB is the database. This is mandatory.
	DB *csql.DB
	// Router is a mux router. This is mandatory.
	Router *mux.Router
	// Issuer issues and validates access tokens. This is mandatory.
	Issuer *access.TokenIssuer
	// Notifier receives notifications about created, updated and deleted users.
	// This is optional.
	Notifier core.Notifier
}

// New realizes the actual backend. It creates the sql relations (if they
// do not exist) and adds actual routes to router
func New(bb *Builder) *Backend {
	if bb.DB == nil {
		panic("DB is missing")
	}
	if bb.Router == nil {
		panic("Router is missing")
	}
	if bb.Issuer == nil {
		panic("Issuer is missing")
	}

	validator, err := schema.NewValidatorFromFS(schemaFS, "schemas")
	if err != nil {
		panic(err)
	}

	ctx := context.Background()
	b := &Backend{
		db:        bb.DB,
		router:    bb.Router,
		issuer:    bb.Issuer,
		notifier:  bb.Notifier,
		validator: validator,
		Registry:  registry.MustNew(ctx, bb.DB),
	}
	if err := Migrate(ctx, b.db, b.Registry); err != nil {
		panic(err)
	}

	logger.AddRequestID(b.router)
	b.handleCORS()
	b.handleSecureHeaders()
	b.handleCompression()
	b.handleRoutes()
	return b
}

// Router returns the router of the backend
func (b *Backend) Router() *mux.Router {
	return b.router
}

func (b *Backend) handleRoutes() {
	rlog := logger.Default()
	rlog.Infoln("backend: HandleRoutes")

	api := b.router.PathPrefix("/api/v1").Subrouter()
	b.handleHealth(api)
	b.handleAuth(api)
	b.handleUsers(api)

	// preflight requests are answered by the CORS middleware, which only runs on matched routes
	api.Methods(http.MethodOptions).HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}
