package csql

import (
	"context"
	"fmt"

	"github.com/relabs-tech/sqlbase/core/query"
)

// Page is one page of a paginated select
type Page struct {
	Items      []Row `json:"items"`
	Page       int   `json:"page"`
	Elements   int   `json:"elements"`
	TotalItems int64 `json:"total_items"`
	TotalPages int64 `json:"total_pages"`
}

// Paginate executes page number page of s with elements rows per page. Pages start at 1.
// A page without rows, including any page beyond the last one, yields an envelope
// with zero totals.
func (db *DB) Paginate(ctx context.Context, s *query.SelectStatement, elements, page int) (*Page, error) {
	p, err := query.Paginate(s, elements, page)
	if err != nil {
		return nil, err
	}
	res, err := db.Execute(ctx, p)
	if err != nil {
		return nil, err
	}
	return NewPage(res.Rows, page, elements)
}

// NewPage builds the page envelope from rows carrying the total row count in column cnt
func NewPage(rows []Row, page, elements int) (*Page, error) {
	if elements < 1 || page < 1 {
		return nil, fmt.Errorf("%w: page %d with %d elements", query.ErrInvalidInput, page, elements)
	}
	p := &Page{Items: []Row{}, Page: page, Elements: elements}
	if len(rows) == 0 {
		return p, nil
	}
	total, err := toInt64(rows[0][query.CountColumn])
	if err != nil {
		return nil, err
	}
	p.TotalItems = total
	p.TotalPages = (total + int64(elements) - 1) / int64(elements)
	for _, row := range rows {
		item := make(Row, len(row))
		for k, v := range row {
			if k != query.CountColumn {
				item[k] = v
			}
		}
		p.Items = append(p.Items, item)
	}
	return p, nil
}

func toInt64(v interface{}) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case float64:
		return int64(n), nil
	case nil:
		return 0, fmt.Errorf("row has no column %s", query.CountColumn)
	}
	return 0, fmt.Errorf("column %s has unexpected type %T", query.CountColumn, v)
}
