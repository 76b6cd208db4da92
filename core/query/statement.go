package query

import (
	"fmt"
	"sort"
	"strings"

	sq "github.com/Masterminds/squirrel"
)

// Kind is the kind of a statement
type Kind int

// all statement kinds
const (
	KindSelect Kind = iota + 1
	KindInsert
	KindUpdate
	KindDelete
	KindRaw
)

func (k Kind) String() string {
	switch k {
	case KindSelect:
		return "select"
	case KindInsert:
		return "insert"
	case KindUpdate:
		return "update"
	case KindDelete:
		return "delete"
	case KindRaw:
		return "raw"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Statement is one of *SelectStatement, *InsertStatement, *UpdateStatement,
// *DeleteStatement or *RawStatement. The set is closed.
type Statement interface {
	Kind() Kind
	// Build renders the statement with the given placeholder format
	Build(format sq.PlaceholderFormat) (string, []interface{}, error)
	statement()
}

// selectColumn is one entry of a select list: [ref.]name [AS alias], name may be *
type selectColumn struct {
	ref   string
	name  string
	alias string
}

func (c selectColumn) String() string {
	s := c.name
	if s != "*" {
		s = QuoteIdentifier(s)
	}
	if c.ref != "" {
		s = QuoteIdentifier(c.ref) + "." + s
	}
	if c.alias != "" {
		s += " AS " + QuoteIdentifier(c.alias)
	}
	return s
}

func parseSelectColumn(spec string) (selectColumn, error) {
	var c selectColumn
	fields := strings.Fields(spec)
	switch {
	case len(fields) == 1:
	case len(fields) == 3 && strings.EqualFold(fields[1], "AS"):
		if err := checkIdentifier("column alias", fields[2]); err != nil {
			return c, err
		}
		c.alias = fields[2]
	default:
		return c, fmt.Errorf("%w: column %q must be of the form [table.]column [AS alias]", ErrInvalidInput, spec)
	}
	expr := fields[0]
	if i := strings.Index(expr, "."); i >= 0 {
		c.ref, c.name = expr[:i], expr[i+1:]
		if err := checkIdentifier("table reference", c.ref); err != nil {
			return c, err
		}
	} else {
		c.name = expr
	}
	if c.name == "*" {
		if c.alias != "" {
			return c, fmt.Errorf("%w: %q cannot be aliased", ErrInvalidInput, expr)
		}
		return c, nil
	}
	if err := checkIdentifier("column", c.name); err != nil {
		return c, err
	}
	return c, nil
}

type joinPart struct {
	keyword   string
	table     *Table
	predicate Predicate
}

func (j joinPart) ToSql() (string, []interface{}, error) {
	return fmt.Sprintf("%s %s ON %s", j.keyword, j.table.FromClause(), j.predicate), nil, nil
}

// SelectStatement is a SELECT over one table and its joins
type SelectStatement struct {
	table   *Table
	tables  []*Table
	columns []selectColumn
	extra   []sq.Sqlizer
	joins   []joinPart
	where   []sq.Sqlizer
	orderBy []string
	limit   *uint64
	offset  *uint64
	err     error
}

func newSelect(t *Table, columns []string) (*SelectStatement, error) {
	if len(columns) == 0 {
		columns = []string{"*"}
	}
	s := &SelectStatement{table: t, tables: []*Table{t}}
	for _, spec := range columns {
		c, err := parseSelectColumn(spec)
		if err != nil {
			return nil, err
		}
		s.columns = append(s.columns, c)
	}
	return s, nil
}

// NewSelect returns SELECT columns FROM t. Without columns all columns are selected.
func NewSelect(t *Table, columns ...string) (*SelectStatement, error) {
	s, err := newSelect(t, columns)
	if err != nil {
		return nil, err
	}
	if err := s.checkColumns(NewTables(t)); err != nil {
		return nil, err
	}
	return s, nil
}

// checkColumns verifies every selected column against the tables of the statement and
// replaces its name by the catalog name
func (s *SelectStatement) checkColumns(tables *Tables) error {
	for i, c := range s.columns {
		if c.name == "*" {
			if _, ok := tables.Get(c.ref); c.ref != "" && !ok {
				return fmt.Errorf("%w: column %s references unknown table %s", ErrInvalidInput, c, c.ref)
			}
			continue
		}
		if c.ref != "" {
			t, ok := tables.Get(c.ref)
			if !ok {
				return fmt.Errorf("%w: column %s references unknown table %s", ErrInvalidInput, c, c.ref)
			}
			name, ok := t.ColumnName(c.name)
			if !ok {
				return fmt.Errorf("%w: table %s has no column %q", ErrInvalidInput, c.ref, c.name)
			}
			s.columns[i].name = name
			continue
		}
		found := false
		for _, t := range s.tables {
			if name, ok := t.ColumnName(c.name); ok {
				s.columns[i].name = name
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("%w: unknown column %q", ErrInvalidInput, c.name)
		}
	}
	return nil
}

func (*SelectStatement) statement() {}

// Kind implements Statement
func (*SelectStatement) Kind() Kind { return KindSelect }

// Table returns the table the statement selects from
func (s *SelectStatement) Table() *Table { return s.table }

func (s *SelectStatement) clone() *SelectStatement {
	c := *s
	c.tables = append([]*Table(nil), s.tables...)
	c.columns = append([]selectColumn(nil), s.columns...)
	c.extra = append([]sq.Sqlizer(nil), s.extra...)
	c.joins = append([]joinPart(nil), s.joins...)
	c.where = append([]sq.Sqlizer(nil), s.where...)
	c.orderBy = append([]string(nil), s.orderBy...)
	return &c
}

// Where adds predicates, all predicates are ANDed
func (s *SelectStatement) Where(preds ...sq.Sqlizer) *SelectStatement {
	s.where = append(s.where, preds...)
	return s
}

// WhereEq adds ref.column = value, where ref is the statement's main table
func (s *SelectStatement) WhereEq(column string, value interface{}) *SelectStatement {
	c, err := s.table.Column(column)
	if err != nil {
		s.setErr(err)
		return s
	}
	return s.Where(c.Eq(value))
}

// OrderBy appends columns to the ORDER BY clause
func (s *SelectStatement) OrderBy(columns ...Column) *SelectStatement {
	for _, c := range columns {
		s.orderBy = append(s.orderBy, c.String())
	}
	return s
}

// Limit sets the LIMIT
func (s *SelectStatement) Limit(n uint64) *SelectStatement {
	s.limit = &n
	return s
}

// Offset sets the OFFSET
func (s *SelectStatement) Offset(n uint64) *SelectStatement {
	s.offset = &n
	return s
}

func (s *SelectStatement) setErr(err error) {
	if s.err == nil {
		s.err = err
	}
}

func (s *SelectStatement) fromJoinWhere(b sq.SelectBuilder) sq.SelectBuilder {
	b = b.From(s.table.FromClause())
	for _, j := range s.joins {
		b = b.JoinClause(j)
	}
	for _, w := range s.where {
		b = b.Where(w)
	}
	return b
}

func (s *SelectStatement) builder() sq.SelectBuilder {
	b := sq.Select()
	for _, c := range s.columns {
		b = b.Column(c.String())
	}
	for _, e := range s.extra {
		b = b.Column(e)
	}
	b = s.fromJoinWhere(b)
	if len(s.orderBy) > 0 {
		b = b.OrderBy(s.orderBy...)
	}
	if s.limit != nil {
		b = b.Limit(*s.limit)
	}
	if s.offset != nil {
		b = b.Offset(*s.offset)
	}
	return b
}

// Build implements Statement
func (s *SelectStatement) Build(format sq.PlaceholderFormat) (string, []interface{}, error) {
	if s.err != nil {
		return "", nil, s.err
	}
	return s.builder().PlaceholderFormat(format).ToSql()
}

// checkAssignment returns the catalog name of column
func checkAssignment(t *Table, column string) (string, error) {
	name, ok := t.ColumnName(column)
	if !ok {
		return "", fmt.Errorf("%w: table %s has no column %q", ErrInvalidInput, t.Name, column)
	}
	return name, nil
}

func copyValues(m map[string]interface{}) map[string]interface{} {
	c := make(map[string]interface{}, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}

// quotedValues returns values keyed by the rendered column names
func quotedValues(m map[string]interface{}) map[string]interface{} {
	c := make(map[string]interface{}, len(m))
	for k, v := range m {
		c[QuoteIdentifier(k)] = v
	}
	return c
}

// InsertStatement is an INSERT of a single row. If the table has a primary key, the
// generated key is returned by the statement.
type InsertStatement struct {
	table  *Table
	values map[string]interface{}
	err    error
}

// NewInsert returns an empty INSERT INTO t
func NewInsert(t *Table) *InsertStatement {
	return &InsertStatement{table: t, values: make(map[string]interface{})}
}

func (*InsertStatement) statement() {}

// Kind implements Statement
func (*InsertStatement) Kind() Kind { return KindInsert }

// Table returns the table the statement inserts into
func (s *InsertStatement) Table() *Table { return s.table }

// Set sets the value of column
func (s *InsertStatement) Set(column string, value interface{}) *InsertStatement {
	name, err := checkAssignment(s.table, column)
	if err != nil {
		if s.err == nil {
			s.err = err
		}
		return s
	}
	s.values[name] = value
	return s
}

// SetMap sets all values in m
func (s *InsertStatement) SetMap(m map[string]interface{}) *InsertStatement {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		s.Set(k, m[k])
	}
	return s
}

// Values returns a copy of the values to be inserted
func (s *InsertStatement) Values() map[string]interface{} {
	return copyValues(s.values)
}

// Build implements Statement
func (s *InsertStatement) Build(format sq.PlaceholderFormat) (string, []interface{}, error) {
	if s.err != nil {
		return "", nil, s.err
	}
	if len(s.values) == 0 {
		return "", nil, fmt.Errorf("%w: insert into %s has no values", ErrInvalidInput, s.table.Name)
	}
	b := sq.Insert(s.table.QualifiedName()).SetMap(quotedValues(s.values)).PlaceholderFormat(format)
	if s.table.PrimaryKey != "" {
		b = b.Suffix("RETURNING " + QuoteIdentifier(s.table.PrimaryKey))
	}
	return b.ToSql()
}

// UpdateStatement is an UPDATE of one table
type UpdateStatement struct {
	table  *Table
	values map[string]interface{}
	where  []sq.Sqlizer
	err    error
}

// NewUpdate returns an empty UPDATE t
func NewUpdate(t *Table) *UpdateStatement {
	return &UpdateStatement{table: t, values: make(map[string]interface{})}
}

func (*UpdateStatement) statement() {}

// Kind implements Statement
func (*UpdateStatement) Kind() Kind { return KindUpdate }

// Table returns the updated table
func (s *UpdateStatement) Table() *Table { return s.table }

// Set sets column to value
func (s *UpdateStatement) Set(column string, value interface{}) *UpdateStatement {
	name, err := checkAssignment(s.table, column)
	if err != nil {
		if s.err == nil {
			s.err = err
		}
		return s
	}
	s.values[name] = value
	return s
}

// SetMap sets all values in m
func (s *UpdateStatement) SetMap(m map[string]interface{}) *UpdateStatement {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		s.Set(k, m[k])
	}
	return s
}

// Values returns a copy of the assigned values
func (s *UpdateStatement) Values() map[string]interface{} {
	return copyValues(s.values)
}

// Where adds predicates
func (s *UpdateStatement) Where(preds ...sq.Sqlizer) *UpdateStatement {
	s.where = append(s.where, preds...)
	return s
}

// WhereEq adds column = value
func (s *UpdateStatement) WhereEq(column string, value interface{}) *UpdateStatement {
	name, err := checkAssignment(s.table, column)
	if err != nil {
		if s.err == nil {
			s.err = err
		}
		return s
	}
	return s.Where(sq.Eq{QuoteIdentifier(name): value})
}

// Build implements Statement
func (s *UpdateStatement) Build(format sq.PlaceholderFormat) (string, []interface{}, error) {
	if s.err != nil {
		return "", nil, s.err
	}
	if len(s.values) == 0 {
		return "", nil, fmt.Errorf("%w: update of %s has no values", ErrInvalidInput, s.table.Name)
	}
	b := sq.Update(s.table.QualifiedName()).SetMap(quotedValues(s.values)).PlaceholderFormat(format)
	for _, w := range s.where {
		b = b.Where(w)
	}
	return b.ToSql()
}

// DeleteStatement is a DELETE from one table
type DeleteStatement struct {
	table *Table
	where []sq.Sqlizer
	err   error
}

// NewDelete returns DELETE FROM t
func NewDelete(t *Table) *DeleteStatement {
	return &DeleteStatement{table: t}
}

func (*DeleteStatement) statement() {}

// Kind implements Statement
func (*DeleteStatement) Kind() Kind { return KindDelete }

// Table returns the table rows are deleted from
func (s *DeleteStatement) Table() *Table { return s.table }

// Where adds predicates
func (s *DeleteStatement) Where(preds ...sq.Sqlizer) *DeleteStatement {
	s.where = append(s.where, preds...)
	return s
}

// WhereEq adds column = value
func (s *DeleteStatement) WhereEq(column string, value interface{}) *DeleteStatement {
	name, err := checkAssignment(s.table, column)
	if err != nil {
		if s.err == nil {
			s.err = err
		}
		return s
	}
	return s.Where(sq.Eq{QuoteIdentifier(name): value})
}

// Build implements Statement
func (s *DeleteStatement) Build(format sq.PlaceholderFormat) (string, []interface{}, error) {
	if s.err != nil {
		return "", nil, s.err
	}
	b := sq.Delete(s.table.QualifiedName()).PlaceholderFormat(format)
	for _, w := range s.where {
		b = b.Where(w)
	}
	return b.ToSql()
}

// RawStatement is literal SQL text with ? placeholders. It is meant for fixed
// queries like health checks, never for text built from request data.
type RawStatement struct {
	sql  string
	args []interface{}
}

// Raw returns a raw statement
func Raw(sql string, args ...interface{}) *RawStatement {
	return &RawStatement{sql: sql, args: args}
}

func (*RawStatement) statement() {}

// Kind implements Statement
func (*RawStatement) Kind() Kind { return KindRaw }

// Build implements Statement
func (s *RawStatement) Build(format sq.PlaceholderFormat) (string, []interface{}, error) {
	q, err := format.ReplacePlaceholders(s.sql)
	return q, s.args, err
}
