package main

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"

	"github.com/relabs-tech/sqlbase/core"
	"github.com/relabs-tech/sqlbase/core/access"
	"github.com/relabs-tech/sqlbase/core/csql"
	"github.com/relabs-tech/sqlbase/core/notify"
)

// Service holds the configuration for this service
//
// use for example DB_HOST=localhost DB_PASSWORD=docker JWT_SECRET_KEY=... or
// DB_DRIVER=sqlite3 DB_PATH=./sqlbase.db JWT_SECRET_KEY=...
type Service struct {
	DBDriver   string `env:"DB_DRIVER,default=postgres" description:"the database driver, postgres or sqlite3"`
	DBHost     string `env:"DB_HOST,default=localhost" description:"the postgres host"`
	DBPort     int    `env:"DB_PORT,default=5432" description:"the postgres port"`
	DBUser     string `env:"DB_USER,default=postgres" description:"the postgres user"`
	DBPassword string `env:"DB_PASSWORD" description:"the postgres password"`
	DBName     string `env:"DB_NAME,default=postgres" description:"the postgres database"`
	DBSchema   string `env:"DB_SCHEMA" description:"the database schema, public for postgres and main for sqlite if empty"`
	DBSSLMode  string `env:"DB_SSLMODE,default=disable" description:"the postgres sslmode"`
	DBPath     string `env:"DB_PATH,default=sqlbase.db" description:"the sqlite database file"`

	JWTSecretKey         string `env:"JWT_SECRET_KEY" description:"the secret for signing access tokens, required for serve"`
	JWTAlgorithm         string `env:"JWT_ALGORITHM,default=HS256" description:"the signing algorithm, HS256, HS384 or HS512"`
	AccessTokenExpiresIn int    `env:"ACCESS_TOKEN_EXPIRES_IN,default=30" description:"the lifetime of access tokens in minutes"`

	LogLevel string `env:"LOG_LEVEL,default=info" description:"the log level"`
	Port     int    `env:"PORT,default=3000" description:"the http port"`

	KafkaBrokers string `env:"KAFKA_BROKERS" description:"comma separated kafka brokers, user notifications are only logged if empty"`
	KafkaTopic   string `env:"KAFKA_TOPIC,default=users" description:"the kafka topic for user notifications"`
}

// loadService decodes the service configuration from the environment
func loadService() (*Service, error) {
	service := &Service{}
	err := envdecode.Decode(service)
	if err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, err
	}
	return service, nil
}

// Dialect returns the database dialect
func (s *Service) Dialect() (csql.Dialect, error) {
	switch csql.Dialect(s.DBDriver) {
	case csql.Postgres:
		return csql.Postgres, nil
	case csql.SQLite:
		return csql.SQLite, nil
	}
	return "", fmt.Errorf("unsupported DB_DRIVER %q", s.DBDriver)
}

// EngineName is the name the database is registered with
func (s *Service) EngineName() string {
	if s.DBDriver == string(csql.SQLite) {
		return "sqlite3"
	}
	return "postgresql"
}

// DataSourceName returns the connection string for the configured driver
func (s *Service) DataSourceName() string {
	if s.DBDriver == string(csql.SQLite) {
		return s.DBPath
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(s.DBUser, s.DBPassword),
		Host:     net.JoinHostPort(s.DBHost, strconv.Itoa(s.DBPort)),
		Path:     "/" + s.DBName,
		RawQuery: url.Values{"sslmode": {s.DBSSLMode}}.Encode(),
	}
	return u.String()
}

// OpenEngines opens the database and registers it under its engine name
func (s *Service) OpenEngines() (*csql.Engines, error) {
	dialect, err := s.Dialect()
	if err != nil {
		return nil, err
	}
	db, err := csql.Open(dialect, s.DataSourceName(), s.DBSchema)
	if err != nil {
		return nil, err
	}
	return csql.NewEngines(map[string]*csql.DB{s.EngineName(): db}), nil
}

// Issuer returns the access token issuer
func (s *Service) Issuer() (*access.TokenIssuer, error) {
	if s.JWTSecretKey == "" {
		return nil, errors.New("JWT_SECRET_KEY is missing")
	}
	return access.NewTokenIssuer(s.JWTSecretKey, s.JWTAlgorithm, time.Duration(s.AccessTokenExpiresIn)*time.Minute)
}

// Brokers returns the list of kafka brokers
func (s *Service) Brokers() []string {
	var brokers []string
	for _, b := range strings.Split(s.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

// Notifier returns a kafka notifier if brokers are configured, otherwise a log notifier.
// The returned function closes the notifier on shutdown.
func (s *Service) Notifier() (core.Notifier, func() error, error) {
	brokers := s.Brokers()
	if len(brokers) == 0 {
		return notify.LogNotifier{}, func() error { return nil }, nil
	}
	kn, err := notify.NewKafkaNotifier(brokers, s.KafkaTopic)
	if err != nil {
		return nil, nil, err
	}
	return notify.Multi{kn, notify.LogNotifier{}}, kn.Close, nil
}
