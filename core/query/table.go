/*Package query resolves database tables by name and composes SELECT, INSERT, UPDATE and DELETE
statements, multi table joins and paginated selects on top of squirrel.

Every identifier which ends up in SQL text (schema, table, alias and column names) is checked
against an allow-list pattern, values are always passed as placeholders.

Names given by callers are unquoted identifiers: a name matches the catalog either exactly or
folded to lower case, the way postgres folds unquoted names. Rendered SQL carries the catalog
name, double quoted when it is not all lower case.
*/
package query

import (
	"fmt"
	"regexp"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"
)

var (
	identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	foldedPattern     = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)
)

// QuoteIdentifier renders an identifier for SQL text. Names which survive case folding are
// left bare, all others are double quoted.
func QuoteIdentifier(s string) string {
	if foldedPattern.MatchString(s) {
		return s
	}
	return pq.QuoteIdentifier(s)
}

// ValidIdentifier returns true if s can be used as a schema, table, alias or column name
func ValidIdentifier(s string) bool {
	return identifierPattern.MatchString(s)
}

func checkIdentifier(kind, s string) error {
	if !ValidIdentifier(s) {
		return fmt.Errorf("%w: %s %q is not a valid identifier", ErrInvalidInput, kind, s)
	}
	return nil
}

// Table is a resolved, schema qualified table together with its column set. A table
// is never modified once it was resolved, As() returns an aliased copy.
type Table struct {
	Schema     string
	Name       string
	Alias      string
	Columns    []string
	PrimaryKey string
}

// Ref returns the name under which the table is referenced in a statement, which is
// the alias if there is one, otherwise the plain table name.
func (t *Table) Ref() string {
	if t.Alias != "" {
		return t.Alias
	}
	return t.Name
}

// QualifiedName returns schema.name as rendered in SQL
func (t *Table) QualifiedName() string {
	if t.Schema == "" {
		return QuoteIdentifier(t.Name)
	}
	return QuoteIdentifier(t.Schema) + "." + QuoteIdentifier(t.Name)
}

// FromClause returns the table as it appears in a FROM or JOIN clause
func (t *Table) FromClause() string {
	if t.Alias != "" {
		return t.QualifiedName() + " AS " + QuoteIdentifier(t.Alias)
	}
	return t.QualifiedName()
}

// As returns a copy of the table with the given alias
func (t *Table) As(alias string) *Table {
	c := *t
	c.Alias = alias
	return &c
}

// ColumnName returns the catalog name of the column name refers to. An exact match wins
// over a match of the lower cased name.
func (t *Table) ColumnName(name string) (string, bool) {
	folded := strings.ToLower(name)
	match := ""
	for _, c := range t.Columns {
		if c == name {
			return c, true
		}
		if c == folded && match == "" {
			match = c
		}
	}
	return match, match != ""
}

// HasColumn returns true if the table has a column with the given name
func (t *Table) HasColumn(name string) bool {
	_, ok := t.ColumnName(name)
	return ok
}

// Column returns a reference to one of the table's columns
func (t *Table) Column(name string) (Column, error) {
	c, ok := t.ColumnName(name)
	if !ok {
		return Column{}, fmt.Errorf("%w: table %s has no column %q", ErrInvalidInput, t.Ref(), name)
	}
	return Column{Table: t, Name: c}, nil
}

// Column is a column of a resolved table. It renders as ref.name.
type Column struct {
	Table *Table
	Name  string
}

func (c Column) String() string {
	return QuoteIdentifier(c.Table.Ref()) + "." + QuoteIdentifier(c.Name)
}

// ToSql implements squirrel.Sqlizer
func (c Column) ToSql() (string, []interface{}, error) {
	return c.String(), nil, nil
}

// Eq returns the predicate column = value, with value passed as a placeholder
func (c Column) Eq(value interface{}) sq.Sqlizer {
	return sq.Eq{c.String(): value}
}
