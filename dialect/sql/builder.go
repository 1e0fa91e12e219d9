package sql

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/syssam/stratum/dialect"
)

// Builder is the base query builder shared by all statement builders.
// It accumulates SQL text, bound arguments and the first error hit while
// building. A builder with a non-nil error renders no SQL.
type Builder struct {
	sb      strings.Builder
	dialect string
	args    []any
	err     error
}

// Dialect returns a builder factory for the given dialect.
//
//	query, args, err := sql.Dialect(dialect.Postgres).
//		Select("id", "name").
//		From("players").
//		Where("level", ">", 10).
//		Query()
func Dialect(name string) *DialectBuilder {
	return &DialectBuilder{dialect: name}
}

// DialectBuilder prefixes all root builders with the given dialect.
type DialectBuilder struct {
	dialect string
}

// Select returns a Selector for the given columns. An empty column list
// selects all columns ("*").
func (d *DialectBuilder) Select(columns ...string) *Selector {
	s := &Selector{columns: columns}
	s.dialect = d.dialect
	return s
}

// Insert returns an InsertBuilder for the given table.
func (d *DialectBuilder) Insert(table string) *InsertBuilder {
	b := &InsertBuilder{table: table}
	b.dialect = d.dialect
	return b
}

// Update returns an UpdateBuilder for the given table.
func (d *DialectBuilder) Update(table string) *UpdateBuilder {
	b := &UpdateBuilder{table: table}
	b.dialect = d.dialect
	return b
}

// Delete returns a DeleteBuilder for the given table.
func (d *DialectBuilder) Delete(table string) *DeleteBuilder {
	b := &DeleteBuilder{table: table}
	b.dialect = d.dialect
	return b
}

// CreateTable returns a CreateTableBuilder for the given table.
func (d *DialectBuilder) CreateTable(table string) *CreateTableBuilder {
	b := &CreateTableBuilder{table: table}
	b.dialect = d.dialect
	return b
}

// setError records the first error hit while building.
func (b *Builder) setError(err error) {
	if b.err == nil {
		b.err = err
	}
}

// writeString appends raw SQL text.
func (b *Builder) writeString(s string) { b.sb.WriteString(s) }

// writeIdent validates name through the sanitizer and appends it.
// Descriptor-owned identifiers are validated once at descriptor build time;
// this path re-validates because builders also receive caller-supplied
// filter fields.
func (b *Builder) writeIdent(name string) {
	if err := dialect.ValidateIdentifier(name); err != nil {
		b.setError(err)
		return
	}
	b.sb.WriteString(name)
}

// writeArg appends a positional placeholder and binds v as its argument.
func (b *Builder) writeArg(v any) {
	b.args = append(b.args, v)
	if b.dialect == dialect.Postgres {
		b.sb.WriteString("$")
		b.sb.WriteString(strconv.Itoa(len(b.args)))
		return
	}
	b.sb.WriteString("?")
}

// query returns the built statement or the first build error.
func (b *Builder) query() (string, []any, error) {
	if b.err != nil {
		return "", nil, b.err
	}
	return b.sb.String(), b.args, nil
}

// cond is a single predicate in a WHERE chain. Predicates combine strictly
// left-to-right with the explicit AND/OR tokens the caller used; there is
// no operator-precedence inference.
type cond struct {
	join string // "AND", "OR", or "" for the first predicate
	col  string
	op   string
	val  any
}

// writeWhere renders the accumulated predicate chain.
func (b *Builder) writeWhere(conds []cond) {
	if len(conds) == 0 {
		return
	}
	b.writeString(" WHERE ")
	for i, c := range conds {
		if i > 0 {
			b.writeString(" " + c.join + " ")
		}
		b.writeCond(c)
		if b.err != nil {
			return
		}
	}
}

// writeCond renders one predicate: identifier and operator pass through the
// sanitizer, the value is always bound as a parameter.
func (b *Builder) writeCond(c cond) {
	op, err := dialect.NormalizeOperator(c.op)
	if err != nil {
		b.setError(err)
		return
	}
	b.writeIdent(c.col)
	b.writeString(" " + op)
	switch op {
	case "IN", "NOT IN":
		vs := sliceValues(c.val)
		if len(vs) == 0 {
			b.setError(fmt.Errorf("dialect/sql: empty value list for %s on column %q", op, c.col))
			return
		}
		b.writeString(" (")
		for i, v := range vs {
			if i > 0 {
				b.writeString(", ")
			}
			b.writeArg(v)
		}
		b.writeString(")")
	case "IS", "IS NOT":
		if c.val != nil {
			b.setError(fmt.Errorf("dialect/sql: %s supports only NULL comparison on column %q", op, c.col))
			return
		}
		b.writeString(" NULL")
	default:
		b.writeString(" ")
		b.writeArg(c.val)
	}
}

// sliceValues expands v into its elements when it is a slice or array,
// and returns a single-element list otherwise.
func sliceValues(v any) []any {
	if vs, ok := v.([]any); ok {
		return vs
	}
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return []any{v}
	}
	vs := make([]any, rv.Len())
	for i := range vs {
		vs[i] = rv.Index(i).Interface()
	}
	return vs
}

// Selector builds a parameterized SELECT statement.
type Selector struct {
	Builder
	table   string
	columns []string
	conds   []cond
	orders  []string
	limit   *int
	count   bool
}

// From sets the table of the selector.
func (s *Selector) From(table string) *Selector {
	s.table = table
	return s
}

// Count switches the selector to a COUNT(*) projection.
func (s *Selector) Count() *Selector {
	s.count = true
	return s
}

// Where starts the predicate chain. Calling Where again appends with AND.
func (s *Selector) Where(col, op string, v any) *Selector {
	return s.And(col, op, v)
}

// And appends a predicate joined with AND.
func (s *Selector) And(col, op string, v any) *Selector {
	s.conds = append(s.conds, cond{join: "AND", col: col, op: op, val: v})
	return s
}

// Or appends a predicate joined with OR.
func (s *Selector) Or(col, op string, v any) *Selector {
	s.conds = append(s.conds, cond{join: "OR", col: col, op: op, val: v})
	return s
}

// OrderBy appends an ORDER BY term. Column and direction pass through the
// sanitizer at build time.
func (s *Selector) OrderBy(col, dir string) *Selector {
	canon, err := dialect.NormalizeDirection(dir)
	if err != nil {
		s.setError(err)
		return s
	}
	if err := dialect.ValidateIdentifier(col); err != nil {
		s.setError(err)
		return s
	}
	s.orders = append(s.orders, col+" "+canon)
	return s
}

// Limit caps the number of returned rows.
func (s *Selector) Limit(n int) *Selector {
	s.limit = &n
	return s
}

// Query returns the SELECT statement and its bound arguments.
func (s *Selector) Query() (string, []any, error) {
	s.writeString("SELECT ")
	switch {
	case s.count:
		s.writeString("COUNT(*)")
	case len(s.columns) == 0:
		s.writeString("*")
	default:
		for i, c := range s.columns {
			if i > 0 {
				s.writeString(", ")
			}
			s.writeIdent(c)
		}
	}
	s.writeString(" FROM ")
	s.writeIdent(s.table)
	s.writeWhere(s.conds)
	if len(s.orders) > 0 {
		s.writeString(" ORDER BY " + strings.Join(s.orders, ", "))
	}
	if s.limit != nil {
		s.writeString(" LIMIT " + strconv.Itoa(*s.limit))
	}
	return s.query()
}

// InsertBuilder builds a parameterized INSERT statement, optionally with
// multiple VALUES tuples.
type InsertBuilder struct {
	Builder
	table   string
	columns []string
	values  [][]any
}

// Columns sets the insert columns.
func (b *InsertBuilder) Columns(columns ...string) *InsertBuilder {
	b.columns = columns
	return b
}

// Values appends one tuple of values. The tuple length must match the
// column list.
func (b *InsertBuilder) Values(values ...any) *InsertBuilder {
	if len(values) != len(b.columns) {
		b.setError(fmt.Errorf("dialect/sql: insert into %q: %d values for %d columns", b.table, len(values), len(b.columns)))
		return b
	}
	b.values = append(b.values, values)
	return b
}

// Query returns the INSERT statement and its bound arguments.
func (b *InsertBuilder) Query() (string, []any, error) {
	if len(b.columns) == 0 || len(b.values) == 0 {
		b.setError(fmt.Errorf("dialect/sql: insert into %q: no columns or values", b.table))
		return b.query()
	}
	b.writeString("INSERT INTO ")
	b.writeIdent(b.table)
	b.writeString(" (")
	for i, c := range b.columns {
		if i > 0 {
			b.writeString(", ")
		}
		b.writeIdent(c)
	}
	b.writeString(") VALUES ")
	for i, tuple := range b.values {
		if i > 0 {
			b.writeString(", ")
		}
		b.writeString("(")
		for j, v := range tuple {
			if j > 0 {
				b.writeString(", ")
			}
			b.writeArg(v)
		}
		b.writeString(")")
	}
	return b.query()
}

// UpdateBuilder builds a parameterized UPDATE statement.
type UpdateBuilder struct {
	Builder
	table   string
	columns []string
	values  []any
	conds   []cond
}

// Set assigns a new value to a column.
func (b *UpdateBuilder) Set(col string, v any) *UpdateBuilder {
	b.columns = append(b.columns, col)
	b.values = append(b.values, v)
	return b
}

// Where starts the predicate chain. Calling Where again appends with AND.
func (b *UpdateBuilder) Where(col, op string, v any) *UpdateBuilder {
	b.conds = append(b.conds, cond{join: "AND", col: col, op: op, val: v})
	return b
}

// Query returns the UPDATE statement and its bound arguments.
func (b *UpdateBuilder) Query() (string, []any, error) {
	if len(b.columns) == 0 {
		b.setError(fmt.Errorf("dialect/sql: update %q: no columns to set", b.table))
		return b.query()
	}
	b.writeString("UPDATE ")
	b.writeIdent(b.table)
	b.writeString(" SET ")
	for i, c := range b.columns {
		if i > 0 {
			b.writeString(", ")
		}
		b.writeIdent(c)
		b.writeString(" = ")
		b.writeArg(b.values[i])
	}
	b.writeWhere(b.conds)
	return b.query()
}

// DeleteBuilder builds a parameterized DELETE statement.
type DeleteBuilder struct {
	Builder
	table string
	conds []cond
}

// Where starts the predicate chain. Calling Where again appends with AND.
func (b *DeleteBuilder) Where(col, op string, v any) *DeleteBuilder {
	b.conds = append(b.conds, cond{join: "AND", col: col, op: op, val: v})
	return b
}

// Query returns the DELETE statement and its bound arguments.
func (b *DeleteBuilder) Query() (string, []any, error) {
	b.writeString("DELETE FROM ")
	b.writeIdent(b.table)
	b.writeWhere(b.conds)
	return b.query()
}
