package stratum

import (
	"context"

	sqld "github.com/syssam/stratum/dialect/sql"
	"github.com/syssam/stratum/schema"
)

// Query is a fluent, accumulating query over entities of type T.
// Column names, operators and sort directions pass through the sanitizer
// when the query is built; values are always bound as parameters.
//
// Predicates combine strictly left-to-right with the AND/OR combinators
// the caller used; there is no operator-precedence inference. A chain
// mixing And and Or is evaluated in the backend's textual order, which is
// the caller's responsibility to keep unambiguous.
type Query[T any] struct {
	q      Querier
	conds  []queryCond
	orders []queryOrder
	limit  *int
}

type queryCond struct {
	join string
	col  string
	op   string
	val  any
}

type queryOrder struct {
	col string
	dir string
}

// Select starts a query over entities of type T in the given scope.
func Select[T any](q Querier) *Query[T] {
	return &Query[T]{q: q}
}

// Where appends a predicate. Successive Where calls combine with AND.
func (s *Query[T]) Where(col, op string, v any) *Query[T] {
	return s.And(col, op, v)
}

// And appends a predicate joined with AND.
func (s *Query[T]) And(col, op string, v any) *Query[T] {
	s.conds = append(s.conds, queryCond{join: "AND", col: col, op: op, val: v})
	return s
}

// Or appends a predicate joined with OR.
func (s *Query[T]) Or(col, op string, v any) *Query[T] {
	s.conds = append(s.conds, queryCond{join: "OR", col: col, op: op, val: v})
	return s
}

// OrderBy appends a sort term.
func (s *Query[T]) OrderBy(col, dir string) *Query[T] {
	s.orders = append(s.orders, queryOrder{col: col, dir: dir})
	return s
}

// Limit caps the number of returned entities.
func (s *Query[T]) Limit(n int) *Query[T] {
	s.limit = &n
	return s
}

// build renders the SELECT statement. Sanitizer violations surface here,
// before any SQL is sent.
func (s *Query[T]) build(d *schema.Descriptor, count bool) (string, []any, error) {
	sel := sqld.Dialect(s.q.dialectName()).
		Select(d.ColumnNames()...).
		From(d.Table)
	if count {
		sel = sqld.Dialect(s.q.dialectName()).Select().Count().From(d.Table)
	}
	for _, c := range s.conds {
		if c.join == "OR" {
			sel.Or(c.col, c.op, c.val)
		} else {
			sel.And(c.col, c.op, c.val)
		}
	}
	for _, o := range s.orders {
		sel.OrderBy(o.col, o.dir)
	}
	if s.limit != nil && !count {
		sel.Limit(*s.limit)
	}
	return sel.Query()
}

// All executes the query and returns every matching entity.
func (s *Query[T]) All(ctx context.Context) ([]*T, error) {
	d, err := describe[T](s.q)
	if err != nil {
		return nil, err
	}
	query, args, err := s.build(d, false)
	if err != nil {
		return nil, err
	}
	rows := &sqld.Rows{}
	if err := s.q.conn().Query(ctx, query, args, rows); err != nil {
		return nil, NewDatabaseError(d.Table, "select", err)
	}
	defer rows.Close()
	var out []*T
	for rows.Next() {
		e := new(T)
		if err := schema.ScanRow(d, rows, e); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, NewDatabaseError(d.Table, "select", err)
	}
	return out, nil
}

// First executes the query with LIMIT 1 and returns the first matching
// entity, or (nil, nil) when nothing matches.
func (s *Query[T]) First(ctx context.Context) (*T, error) {
	s.Limit(1)
	all, err := s.All(ctx)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, nil
	}
	return all[0], nil
}

// Count executes the query as COUNT(*) and returns the match count.
func (s *Query[T]) Count(ctx context.Context) (int64, error) {
	d, err := describe[T](s.q)
	if err != nil {
		return 0, err
	}
	query, args, err := s.build(d, true)
	if err != nil {
		return 0, err
	}
	return scanCount(ctx, s.q, d, query, args)
}

// Exist reports whether any entity matches the query.
func (s *Query[T]) Exist(ctx context.Context) (bool, error) {
	n, err := s.Count(ctx)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
