package query

import (
	"fmt"
	"math"

	sq "github.com/Masterminds/squirrel"
)

// CountColumn is the name of the column carrying the unpaginated row count
const CountColumn = "cnt"

// Paginate returns a copy of s restricted to one page. The copy selects an additional
// column cnt, the count of all rows matching the same FROM, JOIN and WHERE clauses.
// Pages start at 1, a page whose offset does not fit into an int is invalid input.
func Paginate(s *SelectStatement, elements, page int) (*SelectStatement, error) {
	if elements < 1 {
		return nil, fmt.Errorf("%w: elements must be positive, got %d", ErrInvalidInput, elements)
	}
	if page < 1 {
		return nil, fmt.Errorf("%w: page must be positive, got %d", ErrInvalidInput, page)
	}
	if page-1 > math.MaxInt/elements {
		return nil, fmt.Errorf("%w: page %d is out of range", ErrInvalidInput, page)
	}
	count := s.fromJoinWhere(sq.Select("count(*) AS total_items"))
	p := s.clone()
	p.extra = append(p.extra, sq.Alias(count, CountColumn))
	return p.Limit(uint64(elements)).Offset(uint64(elements * (page - 1))), nil
}
