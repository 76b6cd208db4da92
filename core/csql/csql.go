/*Package csql is the database layer: a sqlx database with a schema and a dialect,
statement execution with result shaping, pagination and transactions.
*/
package csql

import (
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"           // load database driver for postgres
	_ "github.com/mattn/go-sqlite3" // load database driver for sqlite

	"github.com/relabs-tech/sqlbase/core/logger"
	"github.com/relabs-tech/sqlbase/core/query"
)

// Dialect is the SQL dialect of a database, which is also the name of its driver
type Dialect string

// supported dialects
const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite3"
)

// DB encapsulates a sqlx.DB with a schema and a dialect
type DB struct {
	*sqlx.DB
	Schema    string
	Dialect   Dialect
	reflector query.Reflector
}

// ErrNoRows is returned by Scan when QueryRow doesn't return a
// row. In such a case, QueryRow returns a placeholder *Row value that
// defers this error until a Scan.
var ErrNoRows = sql.ErrNoRows

// Open opens a database. For postgres the schema gets created if it does not exist yet,
// an empty schema selects "public". For sqlite the schema must be an attached database
// name, an empty schema selects "main".
func Open(dialect Dialect, dataSourceName, schema string) (*DB, error) {
	rlog := logger.Default()
	switch dialect {
	case Postgres:
		if schema == "" {
			schema = "public"
		}
	case SQLite:
		if schema == "" {
			schema = "main"
		}
	default:
		return nil, fmt.Errorf("%w: unsupported dialect %q", query.ErrInvalidInput, dialect)
	}
	if !query.ValidIdentifier(schema) {
		return nil, fmt.Errorf("%w: schema %q is not a valid identifier", query.ErrInvalidInput, schema)
	}

	rlog.Infof("connecting to %s database", dialect)
	db, err := sqlx.Open(string(dialect), dataSourceName)
	if err != nil {
		return nil, err
	}
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	if dialect == Postgres && schema != "public" {
		rlog.Infoln("selected database schema:", schema)
		if _, err = db.Exec(`CREATE schema IF NOT EXISTS ` + schema + `;`); err != nil {
			db.Close()
			return nil, err
		}
	}
	return &DB{DB: db, Schema: schema, Dialect: dialect}, nil
}

// MustOpen is like Open but panics on error
func MustOpen(dialect Dialect, dataSourceName, schema string) *DB {
	db, err := Open(dialect, dataSourceName, schema)
	if err != nil {
		panic(err)
	}
	return db
}

// OpenWithSchema opens a postgres database with a schema.
// The schema gets created if it does not exist yet.
func OpenWithSchema(dataSourceName, schema string) *DB {
	return MustOpen(Postgres, dataSourceName, schema)
}

// Placeholder returns the placeholder format of the dialect
func (db *DB) Placeholder() sq.PlaceholderFormat {
	if db.Dialect == Postgres {
		return sq.Dollar
	}
	return sq.Question
}

// Reflector returns the reflector used for resolving tables. Unless one was set
// with WithReflector, this is the catalog reflector of the dialect.
func (db *DB) Reflector() query.Reflector {
	if db.reflector != nil {
		return db.reflector
	}
	if db.Dialect == Postgres {
		return query.CatalogReflector{DB: db.DB}
	}
	return query.PragmaReflector{DB: db.DB}
}

// WithReflector returns a copy of the database which resolves tables through r
func (db *DB) WithReflector(r query.Reflector) *DB {
	c := *db
	c.reflector = r
	return &c
}

// Resolver returns a new table resolver on the database's schema. Resolvers cache
// tables, create one per request.
func (db *DB) Resolver() *query.Resolver {
	return query.NewResolver(db.Reflector(), db.Schema)
}

// NowQuery returns the dialect's query for the current database time, as column "now"
func (db *DB) NowQuery() *query.RawStatement {
	if db.Dialect == SQLite {
		return query.Raw("SELECT CURRENT_TIMESTAMP AS now")
	}
	return query.Raw("SELECT NOW() AS now")
}

// ClearSchema clears all the data contained in the database's schema
// Technically this is done by dropping the schema and then recreating it
func (db *DB) ClearSchema() {
	if db.Dialect != Postgres {
		panic("clear schema is only supported for postgres")
	}
	if db.Schema == "public" {
		panic("refuse to drop public schema")
	}
	_, err := db.Exec(`DROP SCHEMA ` + db.Schema + ` CASCADE;
	CREATE schema IF NOT EXISTS ` + db.Schema + `;`)
	if err != nil {
		logger.Default().WithError(err).Errorln("clear schema error:", db.Schema)
	}
}
