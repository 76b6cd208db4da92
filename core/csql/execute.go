package csql

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/jmoiron/sqlx"

	"github.com/relabs-tech/sqlbase/core/logger"
	"github.com/relabs-tech/sqlbase/core/query"
)

// Row is one result row, keyed by column name
type Row map[string]interface{}

// Result is the shaped result of an executed statement
type Result struct {
	Kind query.Kind
	// Rows are the rows returned by a select or raw statement
	Rows []Row
	// Values are the values written by an insert, including the generated key,
	// or the values assigned by an update
	Values Row
	// AffectedRows is the number of rows changed by an insert, update or delete
	AffectedRows int64
}

// Value returns the result in its response shape:
//
//   - insert: the inserted values including the generated key
//   - update: the assigned values and "affected_rows"
//   - delete: "affected_rows"
//   - select: {} for no rows, the row itself for exactly one row, otherwise the list of rows
//   - raw: the list of rows
func (r *Result) Value() interface{} {
	switch r.Kind {
	case query.KindInsert:
		return r.Values
	case query.KindUpdate:
		v := Row{}
		for k, value := range r.Values {
			v[k] = value
		}
		v["affected_rows"] = r.AffectedRows
		return v
	case query.KindDelete:
		return Row{"affected_rows": r.AffectedRows}
	case query.KindSelect:
		switch len(r.Rows) {
		case 0:
			return Row{}
		case 1:
			return r.Rows[0]
		}
		return r.Rows
	}
	if r.Rows == nil {
		return []Row{}
	}
	return r.Rows
}

// MarshalJSON marshals the response shape of the result
func (r *Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Value())
}

// One returns the single row of a select. It returns query.ErrNotFound if there
// is no row and an error if there is more than one.
func (r *Result) One() (Row, error) {
	switch len(r.Rows) {
	case 0:
		return nil, query.ErrNotFound
	case 1:
		return r.Rows[0], nil
	}
	return nil, fmt.Errorf("expected one row, got %d", len(r.Rows))
}

// runner is implemented by both *sqlx.Conn and *sqlx.Tx
type runner interface {
	sqlx.QueryerContext
	sqlx.ExecerContext
}

// Execute runs a single statement on its own connection and shapes the result. Driver
// errors are logged and returned as *SQLExecutionError. Errors from building the
// statement are returned unchanged.
func (db *DB) Execute(ctx context.Context, stmt query.Statement) (*Result, error) {
	text, args, err := stmt.Build(db.Placeholder())
	if err != nil {
		return nil, err
	}
	rlog := logger.FromContext(ctx)

	conn, err := db.Connx(ctx)
	if err != nil {
		rlog.WithError(err).Errorln("Error 4720: cannot get connection")
		return nil, &SQLExecutionError{Query: text, Err: err}
	}
	defer conn.Close()

	res, err := run(ctx, conn, stmt, text, args)
	if err != nil {
		rlog.WithError(err).Errorf("Error 4721: cannot execute query `%s`", text)
		return nil, &SQLExecutionError{Query: text, Err: err}
	}
	return res, nil
}

func run(ctx context.Context, r runner, stmt query.Statement, text string, args []interface{}) (*Result, error) {
	switch s := stmt.(type) {
	case *query.InsertStatement:
		values := Row(s.Values())
		pk := s.Table().PrimaryKey
		if pk == "" {
			n, err := exec(ctx, r, text, args)
			if err != nil {
				return nil, err
			}
			return &Result{Kind: query.KindInsert, Values: values, AffectedRows: n}, nil
		}
		var id interface{}
		if err := r.QueryRowxContext(ctx, text, args...).Scan(&id); err != nil {
			return nil, err
		}
		values[pk] = normalize(id)
		return &Result{Kind: query.KindInsert, Values: values, AffectedRows: 1}, nil

	case *query.UpdateStatement:
		n, err := exec(ctx, r, text, args)
		if err != nil {
			return nil, err
		}
		return &Result{Kind: query.KindUpdate, Values: Row(s.Values()), AffectedRows: n}, nil

	case *query.DeleteStatement:
		n, err := exec(ctx, r, text, args)
		if err != nil {
			return nil, err
		}
		return &Result{Kind: query.KindDelete, AffectedRows: n}, nil

	case *query.SelectStatement, *query.RawStatement:
		rows, err := queryRows(ctx, r, text, args)
		if err != nil {
			return nil, err
		}
		return &Result{Kind: stmt.Kind(), Rows: rows}, nil
	}
	return nil, fmt.Errorf("unsupported statement %T", stmt)
}

func exec(ctx context.Context, r runner, text string, args []interface{}) (int64, error) {
	res, err := r.ExecContext(ctx, text, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func queryRows(ctx context.Context, r runner, text string, args []interface{}) ([]Row, error) {
	rows, err := r.QueryxContext(ctx, text, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Row
	for rows.Next() {
		m := map[string]interface{}{}
		if err := rows.MapScan(m); err != nil {
			return nil, err
		}
		for k, v := range m {
			m[k] = normalize(v)
		}
		result = append(result, Row(m))
	}
	return result, rows.Err()
}

// normalize converts driver values to their JSON friendly form
func normalize(v interface{}) interface{} {
	switch t := v.(type) {
	case []byte:
		return string(t)
	case time.Time:
		return t.UTC()
	}
	return v
}
