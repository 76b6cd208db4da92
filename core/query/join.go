package query

import (
	"context"
	"fmt"
)

// JoinType is the kind of a join
type JoinType string

// supported join types
const (
	JoinInner JoinType = "inner"
	JoinOuter JoinType = "outer"
	JoinLeft  JoinType = "left"
	JoinRight JoinType = "right"
)

// isOuter maps the join type to outer or not outer. right is not outer, so a right join
// renders exactly like an inner join.
func (t JoinType) isOuter() (bool, error) {
	switch t {
	case JoinInner, JoinRight:
		return false, nil
	case JoinOuter, JoinLeft:
		return true, nil
	}
	return false, fmt.Errorf("%w: unknown join type %q", ErrInvalidInput, string(t))
}

// JoinSpec describes one table joined to a select.
//
// Table is "name" or "name alias". The on clause is either given as text in OnClause
// ("a.x = b.y") or as a Clause in On, which takes precedence.
type JoinSpec struct {
	Table    string   `json:"table"`
	OnClause string   `json:"onclause"`
	Type     JoinType `json:"type"`
	Schema   string   `json:"schema,omitempty"`
	Full     bool     `json:"full,omitempty"`
	On       *Clause  `json:"-"`
}

func (j JoinSpec) clause() (Clause, error) {
	if j.On != nil {
		return *j.On, nil
	}
	return ParseClause(j.OnClause)
}

func (j JoinSpec) keyword() (string, error) {
	outer, err := j.Type.isOuter()
	if err != nil {
		return "", err
	}
	switch {
	case j.Full:
		return "FULL OUTER JOIN", nil
	case outer:
		return "LEFT OUTER JOIN", nil
	}
	return "JOIN", nil
}

// JoinConfig is the join configuration of a request
type JoinConfig struct {
	Tables []JoinSpec `json:"tables"`
}

// ValidateJoinOrder checks that every join clause only references the base table,
// tables joined before it, or the joined table itself.
func ValidateJoinOrder(base string, specs []JoinSpec) error {
	baseRef, err := refOf(base)
	if err != nil {
		return err
	}
	declared := map[string]bool{baseRef: true}
	for i, spec := range specs {
		ref, err := refOf(spec.Table)
		if err != nil {
			return fmt.Errorf("join %d: %w", i, err)
		}
		c, err := spec.clause()
		if err != nil {
			return fmt.Errorf("join %d (%s): %w", i, spec.Table, err)
		}
		for _, r := range c.Refs() {
			if r != ref && !declared[r] {
				return fmt.Errorf("%w: join %d (%s): clause %s references %q before it is declared",
					ErrBadClause, i, spec.Table, c, r)
			}
		}
		declared[ref] = true
	}
	return nil
}

// Join resolves base ("name" or "name alias"), selects columns from it and folds the
// joins of config onto the select, in order. Join specs without a schema use schema.
//
// It returns the statement and the lookup of all tables by name or alias.
func (r *Resolver) Join(ctx context.Context, base string, columns []string, config JoinConfig, schema string) (*SelectStatement, *Tables, error) {
	if err := ValidateJoinOrder(base, config.Tables); err != nil {
		return nil, nil, err
	}
	baseTable, err := r.Alias(ctx, base, schema)
	if err != nil {
		return nil, nil, err
	}
	s, err := newSelect(baseTable, columns)
	if err != nil {
		return nil, nil, err
	}
	tables := NewTables(baseTable)

	for _, spec := range config.Tables {
		keyword, err := spec.keyword()
		if err != nil {
			return nil, nil, err
		}
		joinSchema := spec.Schema
		if joinSchema == "" {
			joinSchema = schema
		}
		t, err := r.Alias(ctx, spec.Table, joinSchema)
		if err != nil {
			return nil, nil, err
		}
		tables.Add(t)
		c, err := spec.clause()
		if err != nil {
			return nil, nil, err
		}
		p, err := c.Bind(tables)
		if err != nil {
			return nil, nil, err
		}
		s.joins = append(s.joins, joinPart{keyword: keyword, table: t, predicate: p})
		s.tables = append(s.tables, t)
	}

	if err := s.checkColumns(tables); err != nil {
		return nil, nil, err
	}
	return s, tables, nil
}
