package query

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Reflector reads the column set of a table from some catalog. A reflector is
// chosen explicitly by whoever creates the Resolver.
type Reflector interface {
	Reflect(ctx context.Context, schema, name string) (*Table, error)
}

func tableNotFound(schema, name string) error {
	return fmt.Errorf("%w: table %s.%s does not exist", ErrInvalidInput, schema, name)
}

// CatalogReflector reflects tables from the postgres information_schema
type CatalogReflector struct {
	DB sqlx.QueryerContext
}

const catalogColumnsQuery = `SELECT column_name FROM information_schema.columns
WHERE table_schema = $1 AND table_name = $2
ORDER BY ordinal_position;`

const catalogPrimaryKeyQuery = `SELECT kcu.column_name FROM information_schema.table_constraints tc
JOIN information_schema.key_column_usage kcu
ON tc.constraint_name = kcu.constraint_name AND tc.table_schema = kcu.table_schema
WHERE tc.constraint_type = 'PRIMARY KEY' AND tc.table_schema = $1 AND tc.table_name = $2
ORDER BY kcu.ordinal_position;`

// Reflect implements Reflector
func (r CatalogReflector) Reflect(ctx context.Context, schema, name string) (*Table, error) {
	var columns []string
	if err := sqlx.SelectContext(ctx, r.DB, &columns, catalogColumnsQuery, schema, name); err != nil {
		return nil, fmt.Errorf("cannot reflect %s.%s: %w", schema, name, err)
	}
	if len(columns) == 0 {
		return nil, tableNotFound(schema, name)
	}
	var keys []string
	if err := sqlx.SelectContext(ctx, r.DB, &keys, catalogPrimaryKeyQuery, schema, name); err != nil {
		return nil, fmt.Errorf("cannot reflect primary key of %s.%s: %w", schema, name, err)
	}
	t := &Table{Schema: schema, Name: name, Columns: columns}
	if len(keys) > 0 {
		t.PrimaryKey = keys[0]
	}
	return t, nil
}

// PragmaReflector reflects tables from sqlite's table_info pragma
type PragmaReflector struct {
	DB sqlx.QueryerContext
}

type pragmaColumn struct {
	CID     int            `db:"cid"`
	Name    string         `db:"name"`
	Type    string         `db:"type"`
	NotNull int            `db:"notnull"`
	Default sql.NullString `db:"dflt_value"`
	PK      int            `db:"pk"`
}

// Reflect implements Reflector. Schema and name must be valid identifiers, since
// pragmas do not take parameters.
func (r PragmaReflector) Reflect(ctx context.Context, schema, name string) (*Table, error) {
	if err := checkIdentifier("schema", schema); err != nil {
		return nil, err
	}
	if err := checkIdentifier("table", name); err != nil {
		return nil, err
	}
	var info []pragmaColumn
	q := fmt.Sprintf("PRAGMA %s.table_info(%s);", schema, name)
	if err := sqlx.SelectContext(ctx, r.DB, &info, q); err != nil {
		return nil, fmt.Errorf("cannot reflect %s.%s: %w", schema, name, err)
	}
	if len(info) == 0 {
		return nil, tableNotFound(schema, name)
	}
	t := &Table{Schema: schema, Name: name}
	for _, c := range info {
		t.Columns = append(t.Columns, c.Name)
		if c.PK == 1 {
			t.PrimaryKey = c.Name
		}
	}
	return t, nil
}

// StaticReflector serves declared column sets without touching a database. It
// is meant for tests. A column named "id" becomes the primary key.
type StaticReflector map[string][]string

// Reflect implements Reflector
func (r StaticReflector) Reflect(ctx context.Context, schema, name string) (*Table, error) {
	columns, ok := r[name]
	if !ok || len(columns) == 0 {
		return nil, tableNotFound(schema, name)
	}
	t := &Table{Schema: schema, Name: name, Columns: append([]string(nil), columns...)}
	if t.HasColumn("id") {
		t.PrimaryKey = "id"
	}
	return t, nil
}
