package csql

import (
	"context"

	"github.com/relabs-tech/sqlbase/core/logger"
	"github.com/relabs-tech/sqlbase/core/query"
)

// PostProcess transforms the result row of one statement of a transaction
type PostProcess func(Row) (Row, error)

// Transaction executes statements in order in a single transaction and commits at the
// end. If any statement or post processing fails, the whole transaction is rolled back.
//
// Each statement produces one row, which is passed through post (if not nil):
//
//   - insert: "id", "table", "row_affected", "query"
//   - update: the assigned values plus "table", "row_affected", "query"
//   - delete: "table", "row_affected", "query"
//   - select and raw: "result", "row_affected", "query"
func (db *DB) Transaction(ctx context.Context, statements []query.Statement, post PostProcess) ([]Row, error) {
	rlog := logger.FromContext(ctx)
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		rlog.WithError(err).Errorln("Error 4730: cannot begin transaction")
		return nil, &SQLExecutionError{Query: "BEGIN", Err: err}
	}
	committed := false
	defer func() {
		if !committed {
			if err := tx.Rollback(); err != nil {
				rlog.WithError(err).Errorln("Error 4731: cannot roll back transaction")
			}
		}
	}()

	results := make([]Row, 0, len(statements))
	for _, stmt := range statements {
		text, args, err := stmt.Build(db.Placeholder())
		if err != nil {
			return nil, err
		}
		res, err := run(ctx, tx, stmt, text, args)
		if err != nil {
			rlog.WithError(err).Errorf("Error 4732: cannot execute query `%s` in transaction", text)
			return nil, &SQLExecutionError{Query: text, Err: err}
		}
		row := transactionRow(stmt, text, res)
		if post != nil {
			if row, err = post(row); err != nil {
				return nil, err
			}
		}
		results = append(results, row)
	}

	if err := tx.Commit(); err != nil {
		rlog.WithError(err).Errorln("Error 4733: cannot commit transaction")
		return nil, &SQLExecutionError{Query: "COMMIT", Err: err}
	}
	committed = true
	return results, nil
}

func transactionRow(stmt query.Statement, text string, res *Result) Row {
	switch s := stmt.(type) {
	case *query.InsertStatement:
		return Row{
			"id":           res.Values[s.Table().PrimaryKey],
			"table":        s.Table().Name,
			"row_affected": res.AffectedRows,
			"query":        text,
		}
	case *query.UpdateStatement:
		row := Row{}
		for k, v := range res.Values {
			row[k] = v
		}
		row["table"] = s.Table().Name
		row["row_affected"] = res.AffectedRows
		row["query"] = text
		return row
	case *query.DeleteStatement:
		return Row{
			"table":        s.Table().Name,
			"row_affected": res.AffectedRows,
			"query":        text,
		}
	}
	rows := res.Rows
	if rows == nil {
		rows = []Row{}
	}
	return Row{
		"result":       rows,
		"row_affected": int64(len(rows)),
		"query":        text,
	}
}
