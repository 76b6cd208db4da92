package query

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Source is either a TableName or an already resolved *Table
type Source interface {
	isSource()
}

// TableName is an unresolved table name
type TableName string

func (TableName) isSource() {}
func (*Table) isSource()    {}

// Resolver resolves table names to tables through a Reflector. Resolved tables are
// cached, so a resolver should live no longer than one request. A Resolver is not
// safe for concurrent use.
type Resolver struct {
	reflector Reflector
	schema    string
	cache     map[string]*Table
}

// NewResolver returns a resolver which reflects tables with reflector. Names without an
// explicit schema are resolved in defaultSchema.
func NewResolver(reflector Reflector, defaultSchema string) *Resolver {
	return &Resolver{
		reflector: reflector,
		schema:    defaultSchema,
		cache:     make(map[string]*Table),
	}
}

// Schema returns the default schema
func (r *Resolver) Schema() string {
	return r.schema
}

// Resolve returns the table for src. A *Table is returned unchanged. An empty schema
// selects the resolver's default schema.
func (r *Resolver) Resolve(ctx context.Context, src Source, schema string) (*Table, error) {
	switch s := src.(type) {
	case nil:
		return nil, fmt.Errorf("%w: table name is required", ErrInvalidInput)
	case *Table:
		if s == nil {
			return nil, fmt.Errorf("%w: table name is required", ErrInvalidInput)
		}
		return s, nil
	case TableName:
		return r.resolveName(ctx, strings.TrimSpace(string(s)), schema)
	default:
		return nil, fmt.Errorf("%w: unsupported table source %T", ErrInvalidInput, src)
	}
}

func (r *Resolver) resolveName(ctx context.Context, name, schema string) (*Table, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: table name is required", ErrInvalidInput)
	}
	if schema == "" {
		schema = r.schema
	}
	if err := checkIdentifier("schema", schema); err != nil {
		return nil, err
	}
	if err := checkIdentifier("table", name); err != nil {
		return nil, err
	}
	key := schema + "." + name
	if t, ok := r.cache[key]; ok {
		return t, nil
	}
	t, err := r.reflector.Reflect(ctx, schema, name)
	if folded := strings.ToLower(name); errors.Is(err, ErrInvalidInput) && folded != name {
		t, err = r.reflector.Reflect(ctx, schema, folded)
	}
	if err != nil {
		return nil, err
	}
	r.cache[key] = t
	return t, nil
}

// splitAlias splits "name" or "name alias". More than two tokens are rejected.
func splitAlias(spec string) (name, alias string, err error) {
	fields := strings.Fields(spec)
	switch len(fields) {
	case 0:
		return "", "", fmt.Errorf("%w: table name is required", ErrInvalidInput)
	case 1:
		return fields[0], "", nil
	case 2:
		if err := checkIdentifier("alias", fields[1]); err != nil {
			return "", "", err
		}
		return fields[0], fields[1], nil
	default:
		return "", "", fmt.Errorf("%w: %q has %d tokens, expected \"name\" or \"name alias\"",
			ErrInvalidInput, spec, len(fields))
	}
}

// refOf returns the reference name of a "name alias" spec without resolving it
func refOf(spec string) (string, error) {
	name, alias, err := splitAlias(spec)
	if err != nil {
		return "", err
	}
	if alias != "" {
		return alias, nil
	}
	return name, nil
}

// Alias resolves spec, which is either "name" or "name alias". With an alias the returned
// table is an aliased copy of the resolved one.
func (r *Resolver) Alias(ctx context.Context, spec, schema string) (*Table, error) {
	name, alias, err := splitAlias(spec)
	if err != nil {
		return nil, err
	}
	t, err := r.Resolve(ctx, TableName(name), schema)
	if err != nil {
		return nil, err
	}
	if alias == "" {
		return t, nil
	}
	return t.As(alias), nil
}
