package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/sqlbase/core/access"
	"github.com/relabs-tech/sqlbase/core/csql"
	"github.com/relabs-tech/sqlbase/core/notify"
	"github.com/relabs-tech/sqlbase/core/registry"
)

func TestLoadServiceDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", "secret")
	service, err := loadService()
	require.NoError(t, err)

	assert.Equal(t, "postgres", service.DBDriver)
	assert.Equal(t, 5432, service.DBPort)
	assert.Equal(t, "disable", service.DBSSLMode)
	assert.Equal(t, "HS256", service.JWTAlgorithm)
	assert.Equal(t, 30, service.AccessTokenExpiresIn)
	assert.Equal(t, 3000, service.Port)
	assert.Equal(t, "users", service.KafkaTopic)
	assert.Equal(t, "postgresql", service.EngineName())

	issuer, err := service.Issuer()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Minute, issuer.Expiry())

	n, closeNotifier, err := service.Notifier()
	require.NoError(t, err)
	assert.Equal(t, notify.LogNotifier{}, n)
	assert.NoError(t, closeNotifier())
}

func TestDataSourceName(t *testing.T) {
	service := &Service{
		DBDriver:   "postgres",
		DBHost:     "db",
		DBPort:     5433,
		DBUser:     "admin",
		DBPassword: "p@ss word",
		DBName:     "app",
		DBSSLMode:  "require",
	}
	assert.Equal(t, "postgres://admin:p%40ss%20word@db:5433/app?sslmode=require", service.DataSourceName())

	service.DBDriver = "sqlite3"
	service.DBPath = "/tmp/x.db"
	assert.Equal(t, "/tmp/x.db", service.DataSourceName())
	assert.Equal(t, "sqlite3", service.EngineName())

	service.DBDriver = "mysql"
	_, err := service.Dialect()
	assert.Error(t, err)
}

func TestIssuerAndBrokers(t *testing.T) {
	service := &Service{JWTAlgorithm: "HS256", AccessTokenExpiresIn: 5}
	_, err := service.Issuer()
	assert.Error(t, err)

	service.KafkaBrokers = " kafka-1:9092, ,kafka-2:9092"
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, service.Brokers())

	service.KafkaTopic = "users"
	n, closeNotifier, err := service.Notifier()
	require.NoError(t, err)
	assert.IsType(t, notify.Multi{}, n)
	assert.NoError(t, closeNotifier())
}

func TestHashPasswordCommand(t *testing.T) {
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"hash-password", "s3cret"})
	require.NoError(t, cmd.Execute())

	hash := strings.TrimSpace(out.String())
	assert.NoError(t, access.VerifyPassword("s3cret", hash))

	cmd.SetArgs([]string{"hash-password"})
	assert.Error(t, cmd.Execute())
}

func TestMigrateCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "migrate.db")
	t.Setenv("DB_DRIVER", "sqlite3")
	t.Setenv("DB_PATH", path)

	cmd := newRootCommand()
	cmd.SetArgs([]string{"migrate"})
	require.NoError(t, cmd.ExecuteContext(context.Background()))

	db, err := csql.Open(csql.SQLite, path, "")
	require.NoError(t, err)
	defer db.Close()
	var applied struct {
		Version int `json:"version"`
	}
	ts, err := registry.MustNew(context.Background(), db).Accessor("migrations").Read(context.Background(), "users", &applied)
	require.NoError(t, err)
	assert.False(t, ts.IsZero())
	assert.Equal(t, 1, applied.Version)
}
