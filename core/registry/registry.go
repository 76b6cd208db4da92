/*Package registry provides a persistent registry of objects in a SQL database

The package uses JSON to serialize the data. It keeps bookkeeping like applied
migrations.
*/
package registry

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/goccy/go-json"

	"github.com/relabs-tech/sqlbase/core/csql"
)

const tableName = "_registry_"

// New creates a new registry for the specified database. The registry table
// gets created if it does not exist yet.
func New(ctx context.Context, db *csql.DB) (*Registry, error) {
	_, err := db.ExecContext(ctx, `CREATE table IF NOT EXISTS `+db.Schema+`.`+tableName+`
(key varchar NOT NULL,
value json NOT NULL,
timestamp timestamp NOT NULL,
PRIMARY KEY(key)
);`)
	if err != nil {
		return nil, fmt.Errorf("cannot create registry: %w", err)
	}
	return &Registry{db: db}, nil
}

// MustNew is like New but panics on error
func MustNew(ctx context.Context, db *csql.DB) *Registry {
	r, err := New(ctx, db)
	if err != nil {
		panic(err)
	}
	return r
}

// Registry provides a persistent registry of objects in a sql database.
type Registry struct {
	db *csql.DB
}

func (r *Registry) table() string {
	return r.db.Schema + "." + tableName
}

// Accessor is an accessor with optional prefix
type Accessor struct {
	Prefix   string
	Registry *Registry
}

// Accessor returns a registry accessor with prefix
func (r *Registry) Accessor(prefix string) Accessor {
	return Accessor{
		Prefix:   prefix,
		Registry: r,
	}
}

func (a Accessor) key(key string) string {
	if len(a.Prefix) > 0 {
		return a.Prefix + ":" + key
	}
	return key
}

// Read reads a value from the registry. It returns the
// time when the value was written, or a zero timestamp
// if there is no value.
//
// If the accessor has a prefix, the key is prepended with "{prefix}:"
func (a Accessor) Read(ctx context.Context, key string, value interface{}) (time.Time, error) {
	var (
		rawValue  []byte
		timestamp time.Time
	)
	key = a.key(key)
	db := a.Registry.db

	q, args, err := sq.Select("value", "timestamp").From(a.Registry.table()).
		Where(sq.Eq{"key": key}).PlaceholderFormat(db.Placeholder()).ToSql()
	if err != nil {
		return timestamp, err
	}
	err = db.QueryRowxContext(ctx, q, args...).Scan(&rawValue, &timestamp)
	if err == csql.ErrNoRows {
		return time.Time{}, nil
	}
	if err != nil {
		return timestamp, fmt.Errorf("cannot read key '%s': %w", key, err)
	}
	return timestamp, json.Unmarshal(rawValue, value)
}

// Write writes a value into the registry.
//
// If the accessor has a prefix, the key is prepended with "{prefix}:"
func (a Accessor) Write(ctx context.Context, key string, value interface{}) error {
	body, err := json.Marshal(value)
	if err != nil {
		return err
	}
	key = a.key(key)
	db := a.Registry.db
	now := time.Now().UTC()

	q, args, err := sq.Insert(a.Registry.table()).Columns("key", "value", "timestamp").
		Values(key, string(body), now).
		Suffix("ON CONFLICT (key) DO UPDATE SET value = excluded.value, timestamp = excluded.timestamp").
		PlaceholderFormat(db.Placeholder()).ToSql()
	if err != nil {
		return err
	}
	res, err := db.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("could not write key %s", key)
	}
	return nil
}

// Delete deletes a value from the registry.
//
// If the accessor has a prefix, the key is prepended with "{prefix}:"
func (a Accessor) Delete(ctx context.Context, key string) error {
	db := a.Registry.db
	q, args, err := sq.Delete(a.Registry.table()).Where(sq.Eq{"key": a.key(key)}).
		PlaceholderFormat(db.Placeholder()).ToSql()
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, q, args...)
	return err
}
