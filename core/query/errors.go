package query

import "errors"

var (
	// ErrInvalidInput is returned for empty or malformed table, schema, alias or column names,
	// for unknown tables and for out of range pagination parameters.
	ErrInvalidInput = errors.New("invalid input")

	// ErrBadClause is returned when a join clause cannot be parsed or references a table
	// which is not known at the point where the clause is bound.
	ErrBadClause = errors.New("bad clause")

	// ErrNotFound is returned when a statement which should address a row did not find any.
	ErrNotFound = errors.New("not found")
)
