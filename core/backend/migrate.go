package backend

import (
	"context"
	"fmt"
	"time"

	"github.com/relabs-tech/sqlbase/core/csql"
	"github.com/relabs-tech/sqlbase/core/logger"
	"github.com/relabs-tech/sqlbase/core/registry"
)

// usersVersion is the version of the users table
const usersVersion = 1

type migration struct {
	Version   int       `json:"version"`
	AppliedAt time.Time `json:"applied_at"`
}

func usersDDL(db *csql.DB) string {
	if db.Dialect == csql.SQLite {
		return `CREATE TABLE IF NOT EXISTS ` + db.Schema + `.users
(id INTEGER PRIMARY KEY AUTOINCREMENT,
username TEXT NOT NULL UNIQUE,
password TEXT NOT NULL);`
	}
	return `CREATE TABLE IF NOT EXISTS ` + db.Schema + `.users
(id SERIAL PRIMARY KEY,
username VARCHAR NOT NULL UNIQUE,
password VARCHAR NOT NULL);`
}

// Migrate creates the users table if it does not exist yet and records the applied
// version as "migrations:users" in the registry.
func Migrate(ctx context.Context, db *csql.DB, reg *registry.Registry) error {
	rlog := logger.FromContext(ctx)
	migrations := reg.Accessor("migrations")

	var applied migration
	if _, err := migrations.Read(ctx, "users", &applied); err != nil {
		return err
	}
	if applied.Version >= usersVersion {
		rlog.Debugln("users table is up to date, version", applied.Version)
		return nil
	}

	rlog.Infoln("migrating users table to version", usersVersion)
	if _, err := db.ExecContext(ctx, usersDDL(db)); err != nil {
		return fmt.Errorf("cannot create users table: %w", err)
	}
	return migrations.Write(ctx, "users", migration{Version: usersVersion, AppliedAt: time.Now().UTC()})
}
