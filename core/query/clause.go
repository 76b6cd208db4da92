package query

import (
	"fmt"
	"strings"
)

// ColumnRef is an unresolved reference ref.column, where ref is a table name or alias
type ColumnRef struct {
	Table  string
	Column string
}

func (c ColumnRef) String() string {
	return c.Table + "." + c.Column
}

// Clause is an equality between two column references. It is bound to actual tables
// with Bind.
type Clause struct {
	Left  ColumnRef
	Right ColumnRef
}

// On returns the clause leftTable.leftColumn = rightTable.rightColumn
func On(leftTable, leftColumn, rightTable, rightColumn string) Clause {
	return Clause{
		Left:  ColumnRef{Table: leftTable, Column: leftColumn},
		Right: ColumnRef{Table: rightTable, Column: rightColumn},
	}
}

func (c Clause) String() string {
	return c.Left.String() + " = " + c.Right.String()
}

// Refs returns the table references used by the clause
func (c Clause) Refs() []string {
	return []string{c.Left.Table, c.Right.Table}
}

// ParseClause parses "a.x = b.y". Only a single equality between two qualified columns
// is accepted.
func ParseClause(text string) (Clause, error) {
	sides := strings.Split(text, "=")
	if len(sides) != 2 {
		return Clause{}, fmt.Errorf("%w: clause %q must be of the form a.x = b.y", ErrBadClause, text)
	}
	left, err := parseColumnRef(sides[0])
	if err != nil {
		return Clause{}, fmt.Errorf("%w: left side of clause %q: %v", ErrBadClause, text, err)
	}
	right, err := parseColumnRef(sides[1])
	if err != nil {
		return Clause{}, fmt.Errorf("%w: right side of clause %q: %v", ErrBadClause, text, err)
	}
	return Clause{Left: left, Right: right}, nil
}

func parseColumnRef(s string) (ColumnRef, error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ".")
	if len(parts) != 2 {
		return ColumnRef{}, fmt.Errorf("%q is not a qualified column", s)
	}
	if !ValidIdentifier(parts[0]) || !ValidIdentifier(parts[1]) {
		return ColumnRef{}, fmt.Errorf("%q is not a valid column reference", s)
	}
	return ColumnRef{Table: parts[0], Column: parts[1]}, nil
}

// Bind resolves both sides of the clause in tables
func (c Clause) Bind(tables *Tables) (Predicate, error) {
	left, err := c.bindSide(c.Left, tables)
	if err != nil {
		return Predicate{}, err
	}
	right, err := c.bindSide(c.Right, tables)
	if err != nil {
		return Predicate{}, err
	}
	return Predicate{Left: left, Right: right}, nil
}

func (c Clause) bindSide(ref ColumnRef, tables *Tables) (Column, error) {
	t, ok := tables.Get(ref.Table)
	if !ok {
		return Column{}, fmt.Errorf("%w: invalid clause %s, %s not found in tables", ErrBadClause, c, ref.Table)
	}
	name, ok := t.ColumnName(ref.Column)
	if !ok {
		return Column{}, fmt.Errorf("%w: invalid clause %s, %s has no column %s", ErrBadClause, c, ref.Table, ref.Column)
	}
	return Column{Table: t, Name: name}, nil
}

// BuildClause parses text and binds it in tables
func BuildClause(text string, tables *Tables) (Predicate, error) {
	c, err := ParseClause(text)
	if err != nil {
		return Predicate{}, err
	}
	return c.Bind(tables)
}

// Predicate is a bound equality between two columns
type Predicate struct {
	Left  Column
	Right Column
}

func (p Predicate) String() string {
	return p.Left.String() + " = " + p.Right.String()
}

// ToSql implements squirrel.Sqlizer
func (p Predicate) ToSql() (string, []interface{}, error) {
	return p.String(), nil, nil
}

// Tables is the lookup of tables by reference name used while composing a join. A later
// table with the same reference shadows the earlier one.
type Tables struct {
	byRef map[string]*Table
	refs  []string
}

// NewTables returns a lookup containing tables
func NewTables(tables ...*Table) *Tables {
	l := &Tables{byRef: make(map[string]*Table)}
	for _, t := range tables {
		l.Add(t)
	}
	return l
}

// Add registers t under its reference name
func (l *Tables) Add(t *Table) {
	ref := t.Ref()
	if _, ok := l.byRef[ref]; !ok {
		l.refs = append(l.refs, ref)
	}
	l.byRef[ref] = t
}

// Get returns the table registered under ref
func (l *Tables) Get(ref string) (*Table, bool) {
	t, ok := l.byRef[ref]
	return t, ok
}

// Refs returns the reference names in registration order
func (l *Tables) Refs() []string {
	return append([]string(nil), l.refs...)
}

// Len returns the number of distinct references
func (l *Tables) Len() int {
	return len(l.refs)
}
