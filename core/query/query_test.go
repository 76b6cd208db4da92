package query

import (
	"context"
	"errors"
	"testing"

	sq "github.com/Masterminds/squirrel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var world = StaticReflector{
	"country":         {"Code", "Name", "HeadOfState"},
	"city":            {"ID", "Name", "CountryCode", "District"},
	"countrylanguage": {"CountryCode", "Language", "IsOfficial"},
	"users":           {"id", "username", "password"},
	"a":               {"x", "id"},
	"b":               {"y", "id"},
}

type countingReflector struct {
	Reflector
	calls int
}

func (c *countingReflector) Reflect(ctx context.Context, schema, name string) (*Table, error) {
	c.calls++
	return c.Reflector.Reflect(ctx, schema, name)
}

func TestResolveIsStable(t *testing.T) {
	ctx := context.Background()
	reflector := &countingReflector{Reflector: world}
	r := NewResolver(reflector, "world")

	first, err := r.Resolve(ctx, TableName("city"), "")
	require.NoError(t, err)
	second, err := r.Resolve(ctx, TableName("city"), "world")
	require.NoError(t, err)

	assert.Equal(t, first.Columns, second.Columns)
	assert.Equal(t, "world", first.Schema)
	assert.Equal(t, 1, reflector.calls)

	// a fresh resolver yields the same column set
	third, err := NewResolver(world, "world").Resolve(ctx, TableName("city"), "")
	require.NoError(t, err)
	assert.Equal(t, first.Columns, third.Columns)
}

func TestResolveTableIsIdempotent(t *testing.T) {
	r := NewResolver(StaticReflector{}, "public")
	table := &Table{Schema: "x", Name: "y", Columns: []string{"z"}}
	got, err := r.Resolve(context.Background(), table, "other")
	require.NoError(t, err)
	assert.Same(t, table, got)
}

func TestResolveInvalidInput(t *testing.T) {
	ctx := context.Background()
	r := NewResolver(world, "world")

	for _, name := range []string{"", "   ", "users;drop", "1users", "unknown"} {
		_, err := r.Resolve(ctx, TableName(name), "")
		assert.True(t, errors.Is(err, ErrInvalidInput), "name %q: %v", name, err)
	}
	_, err := r.Resolve(ctx, nil, "")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = r.Resolve(ctx, TableName("users"), "bad schema")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestAlias(t *testing.T) {
	ctx := context.Background()
	r := NewResolver(world, "world")

	plain, err := r.Alias(ctx, "users", "")
	require.NoError(t, err)
	assert.Equal(t, "", plain.Alias)
	assert.Equal(t, "users", plain.Ref())

	aliased, err := r.Alias(ctx, "users u", "")
	require.NoError(t, err)
	assert.Equal(t, "u", aliased.Alias)
	assert.Equal(t, "u", aliased.Ref())
	assert.Equal(t, "world.users AS u", aliased.FromClause())
	assert.Equal(t, "", plain.Alias, "aliasing must not modify the cached table")

	_, err = r.Alias(ctx, "users u extra", "")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = r.Alias(ctx, "users u-1", "")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestBuildClause(t *testing.T) {
	ctx := context.Background()
	r := NewResolver(world, "world")
	a, err := r.Alias(ctx, "a", "")
	require.NoError(t, err)
	b, err := r.Alias(ctx, "b", "")
	require.NoError(t, err)

	p, err := BuildClause("a.x = b.y", NewTables(a, b))
	require.NoError(t, err)
	assert.Equal(t, "a.x", p.Left.String())
	assert.Equal(t, "b.y", p.Right.String())
	text, args, err := p.ToSql()
	require.NoError(t, err)
	assert.Equal(t, "a.x = b.y", text)
	assert.Empty(t, args)

	_, err = BuildClause("a.x = b.y", NewTables(a))
	require.ErrorIs(t, err, ErrBadClause)
	assert.Contains(t, err.Error(), "b not found")

	_, err = BuildClause("a.nope = b.y", NewTables(a, b))
	assert.ErrorIs(t, err, ErrBadClause)

	for _, bad := range []string{"a.x", "a.x = b.y = c.z", "a.x = y", "a.x = b.y; drop", "a.x == b.y"} {
		_, err = ParseClause(bad)
		assert.ErrorIs(t, err, ErrBadClause, bad)
	}
}

func TestOnMatchesParsedClause(t *testing.T) {
	parsed, err := ParseClause(" c.Code=c2.CountryCode ")
	require.NoError(t, err)
	assert.Equal(t, On("c", "Code", "c2", "CountryCode"), parsed)
	assert.Equal(t, []string{"c", "c2"}, parsed.Refs())
}

func TestTablesShadowing(t *testing.T) {
	first := &Table{Name: "a", Alias: "t"}
	second := &Table{Name: "b", Alias: "t"}
	tables := NewTables(first, second)
	got, ok := tables.Get("t")
	require.True(t, ok)
	assert.Same(t, second, got)
	assert.Equal(t, 1, tables.Len())
	assert.Equal(t, []string{"t"}, tables.Refs())
}

func TestSelect(t *testing.T) {
	ctx := context.Background()
	r := NewResolver(world, "public")

	s, table, err := r.Select(ctx, TableName("users"), "")
	require.NoError(t, err)
	assert.Equal(t, "users", table.Name)
	text, args, err := s.WhereEq("id", 7).Build(sq.Dollar)
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM public.users WHERE users.id = $1", text)
	assert.Equal(t, []interface{}{7}, args)

	s, _, err = r.Select(ctx, TableName("users"), "", "username", "users.password AS hash")
	require.NoError(t, err)
	idColumn, err := table.Column("id")
	require.NoError(t, err)
	text, _, err = s.OrderBy(idColumn).Limit(3).Build(sq.Question)
	require.NoError(t, err)
	assert.Equal(t, "SELECT username, users.password AS hash FROM public.users ORDER BY users.id LIMIT 3", text)

	for _, bad := range [][]string{
		{"nope"},
		{"x.id"},
		{"id; drop table users"},
		{"id AS"},
		{"* AS everything"},
		{"count(*)"},
	} {
		_, _, err = r.Select(ctx, TableName("users"), "", bad...)
		assert.ErrorIs(t, err, ErrInvalidInput, "%v", bad)
	}

	s, _, err = r.Select(ctx, TableName("users"), "")
	require.NoError(t, err)
	_, _, err = s.WhereEq("nope", 1).Build(sq.Dollar)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestInsertUpdateDelete(t *testing.T) {
	ctx := context.Background()
	r := NewResolver(world, "public")

	ins, _, err := r.Insert(ctx, TableName("users"), "")
	require.NoError(t, err)
	text, args, err := ins.SetMap(map[string]interface{}{"username": "jane", "password": "hash"}).Build(sq.Dollar)
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO public.users (password,username) VALUES ($1,$2) RETURNING id", text)
	assert.Equal(t, []interface{}{"hash", "jane"}, args)
	assert.Equal(t, map[string]interface{}{"username": "jane", "password": "hash"}, ins.Values())

	upd, _, err := r.Update(ctx, TableName("users"), "")
	require.NoError(t, err)
	text, args, err = upd.Set("password", "new").WhereEq("id", 3).Build(sq.Dollar)
	require.NoError(t, err)
	assert.Equal(t, "UPDATE public.users SET password = $1 WHERE id = $2", text)
	assert.Equal(t, []interface{}{"new", 3}, args)

	del, _, err := r.Delete(ctx, TableName("users"), "")
	require.NoError(t, err)
	text, args, err = del.WhereEq("id", 3).Build(sq.Question)
	require.NoError(t, err)
	assert.Equal(t, "DELETE FROM public.users WHERE id = ?", text)
	assert.Equal(t, []interface{}{3}, args)

	empty, _, err := r.Insert(ctx, TableName("users"), "")
	require.NoError(t, err)
	_, _, err = empty.Build(sq.Dollar)
	assert.ErrorIs(t, err, ErrInvalidInput)

	badColumn, _, err := r.Update(ctx, TableName("users"), "")
	require.NoError(t, err)
	_, _, err = badColumn.Set("role", "admin").Set("password", "x").Build(sq.Dollar)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, _, err = r.Delete(ctx, TableName(""), "")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestRaw(t *testing.T) {
	text, args, err := Raw("SELECT NOW() AS now WHERE 1 = ?", 1).Build(sq.Dollar)
	require.NoError(t, err)
	assert.Equal(t, "SELECT NOW() AS now WHERE 1 = $1", text)
	assert.Equal(t, []interface{}{1}, args)
	assert.Equal(t, KindRaw, Raw("SELECT 1").Kind())
}

func TestKinds(t *testing.T) {
	table := &Table{Name: "users", Columns: []string{"id"}}
	s, err := NewSelect(table)
	require.NoError(t, err)
	statements := []Statement{s, NewInsert(table), NewUpdate(table), NewDelete(table), Raw("SELECT 1")}
	var kinds []string
	for _, st := range statements {
		kinds = append(kinds, st.Kind().String())
	}
	assert.Equal(t, []string{"select", "insert", "update", "delete", "raw"}, kinds)
}

func TestIdentifierCase(t *testing.T) {
	ctx := context.Background()

	quoted := NewResolver(StaticReflector{"country": {"Code", "Name"}}, "world")
	s, _, err := quoted.Select(ctx, TableName("country"), "", "Name", "Code AS CountryCode")
	require.NoError(t, err)
	text, _, err := s.WhereEq("Code", "MEX").Build(sq.Dollar)
	require.NoError(t, err)
	assert.Equal(t, `SELECT "Name", "Code" AS "CountryCode" FROM world.country WHERE country."Code" = $1`, text)

	// a lower case name never matches a mixed case catalog name
	_, _, err = quoted.Select(ctx, TableName("country"), "", "name")
	assert.ErrorIs(t, err, ErrInvalidInput)

	folded := NewResolver(StaticReflector{
		"country": {"code", "name", "headofstate"},
		"city":    {"id", "name", "countrycode"},
	}, "world")
	s, _, err = folded.Join(ctx, "Country c", []string{"c.Name", "c.HeadOfState", "C2.Name AS CityName"}, JoinConfig{Tables: []JoinSpec{
		{Table: "city C2", OnClause: "c.Code = C2.CountryCode", Type: JoinInner},
	}}, "")
	require.NoError(t, err)
	text, _, err = s.Build(sq.Dollar)
	require.NoError(t, err)
	assert.Equal(t, `SELECT c.name, c.headofstate, "C2".name AS "CityName" FROM world.country AS c JOIN world.city AS "C2" ON c.code = "C2".countrycode`, text)

	upd, _, err := folded.Update(ctx, TableName("country"), "")
	require.NoError(t, err)
	text, _, err = upd.Set("HeadOfState", "x").WhereEq("Code", "MEX").Build(sq.Dollar)
	require.NoError(t, err)
	assert.Equal(t, "UPDATE world.country SET headofstate = $1 WHERE code = $2", text)
	assert.Equal(t, map[string]interface{}{"headofstate": "x"}, upd.Values())

	ins, _, err := NewResolver(StaticReflector{"city": {"ID", "Name"}}, "world").Insert(ctx, TableName("city"), "")
	require.NoError(t, err)
	ins.Set("Name", "Oslo")
	text, _, err = ins.Build(sq.Dollar)
	require.NoError(t, err)
	assert.Equal(t, `INSERT INTO world.city ("Name") VALUES ($1)`, text)
}
