package csql

import (
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

// SQLExecutionError wraps any error returned by the database driver while executing a query
type SQLExecutionError struct {
	Query string
	Err   error
}

func (e *SQLExecutionError) Error() string {
	return fmt.Sprintf("cannot execute query `%s`: %v", e.Query, e.Err)
}

// Unwrap returns the driver error
func (e *SQLExecutionError) Unwrap() error {
	return e.Err
}

// postgres error codes, see https://www.postgresql.org/docs/current/errcodes-appendix.html
const (
	pqUniqueViolation           = "23505"
	pqInvalidTextRepresentation = "22P02"
)

// IsUniqueViolation returns true if err was caused by a unique or primary key constraint
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pqUniqueViolation
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

// IsInvalidTextRepresentation returns true if err was caused by a parameter which
// postgres could not convert to the column type
func IsInvalidTextRepresentation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pqInvalidTextRepresentation
	}
	return false
}
