package schema

import (
	"database/sql"
	"fmt"
	"reflect"

	"github.com/google/uuid"
)

// RowScanner is the subset of sql.Rows the mapper needs to materialize an
// entity from the current row.
type RowScanner interface {
	Columns() ([]string, error)
	Scan(dest ...any) error
}

// Value returns the bind value of the column for the given entity, in the
// representation the driver stores: structured UUID values travel as their
// 36-character text form, nil pointers as NULL.
func (c *Column) Value(entity any) (any, error) {
	fv, err := c.field(entity)
	if err != nil {
		return nil, err
	}
	if fv.Kind() == reflect.Pointer {
		if fv.IsNil() {
			return nil, nil
		}
		fv = fv.Elem()
	}
	if c.Kind == KindUUID {
		id, ok := fv.Interface().(uuid.UUID)
		if !ok {
			return nil, NewMappingError(fv.Type().String(), c.Name, fmt.Errorf("expected uuid.UUID, got %s", fv.Type()))
		}
		return id.String(), nil
	}
	return fv.Interface(), nil
}

// SetValue assigns v to the column's field on entity, converting to the
// field type when needed. Entity must be a non-nil pointer to a struct.
func (c *Column) SetValue(entity, v any) error {
	fv, err := c.field(entity)
	if err != nil {
		return err
	}
	if fv.Kind() == reflect.Pointer {
		if v == nil {
			fv.Set(reflect.Zero(fv.Type()))
			return nil
		}
		if fv.IsNil() {
			fv.Set(reflect.New(fv.Type().Elem()))
		}
		fv = fv.Elem()
	}
	if v == nil {
		fv.Set(reflect.Zero(fv.Type()))
		return nil
	}
	rv := reflect.ValueOf(v)
	switch {
	case rv.Type().AssignableTo(fv.Type()):
		fv.Set(rv)
	case rv.Type().ConvertibleTo(fv.Type()):
		fv.Set(rv.Convert(fv.Type()))
	default:
		return NewMappingError(fv.Type().String(), c.Name, fmt.Errorf("cannot assign %T to %s", v, fv.Type()))
	}
	return nil
}

// field resolves the column's field value on entity for writing.
func (c *Column) field(entity any) (reflect.Value, error) {
	rv := reflect.ValueOf(entity)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return reflect.Value{}, NewMappingError(fmt.Sprintf("%T", entity), c.Name, fmt.Errorf("entity must be a non-nil pointer"))
	}
	return rv.Elem().FieldByIndex(c.Index), nil
}

// Values returns the bind values of the given columns for entity, in
// column order.
func Values(cols []*Column, entity any) ([]any, error) {
	vs := make([]any, len(cols))
	for i, c := range cols {
		v, err := c.Value(entity)
		if err != nil {
			return nil, err
		}
		vs[i] = v
	}
	return vs, nil
}

// KeyValue returns the bind value of the entity's primary key.
func KeyValue(d *Descriptor, entity any) (any, error) {
	return d.ID.Value(entity)
}

// BindKey converts a caller-supplied primary-key value into its bind
// representation for the given descriptor.
func BindKey(d *Descriptor, key any) any {
	if d.ID.Kind == KindUUID {
		if id, ok := key.(uuid.UUID); ok {
			return id.String()
		}
	}
	return key
}

// ScanRow materializes the current row of rows into entity, driven
// strictly by the descriptor's column order. Unknown row columns are
// ignored; a descriptor column absent from the row surfaces as a
// MappingError.
func ScanRow(d *Descriptor, rows RowScanner, entity any) error {
	names, err := rows.Columns()
	if err != nil {
		return NewMappingError(d.Type.String(), "", err)
	}
	dest := make([]any, len(names))
	bound := make([]*Column, len(names))
	seen := make(map[string]bool, len(d.Columns))
	for i, name := range names {
		c := d.Column(name)
		if c == nil {
			dest[i] = new(any)
			continue
		}
		dest[i] = holderFor(c.Kind)
		bound[i] = c
		seen[c.Name] = true
	}
	for _, c := range d.Columns {
		if !seen[c.Name] {
			return NewMappingError(d.Type.String(), c.Name, fmt.Errorf("column missing from result set"))
		}
	}
	if err := rows.Scan(dest...); err != nil {
		return NewMappingError(d.Type.String(), "", err)
	}
	for i, c := range bound {
		if c == nil {
			continue
		}
		if err := assign(d, c, dest[i], entity); err != nil {
			return err
		}
	}
	return nil
}

// holderFor returns a scan destination for the given value kind.
func holderFor(k Kind) any {
	switch k {
	case KindInt, KindInt64:
		return &sql.NullInt64{}
	case KindFloat64:
		return &sql.NullFloat64{}
	case KindBool:
		return &sql.NullBool{}
	case KindString, KindUUID:
		return &sql.NullString{}
	case KindTime:
		return &sql.NullTime{}
	case KindBytes:
		return new([]byte)
	}
	return new(any)
}

// assign moves a scanned holder value into the entity field, applying the
// UUID text conversion.
func assign(d *Descriptor, c *Column, holder, entity any) error {
	var (
		v     any
		valid bool
	)
	switch h := holder.(type) {
	case *sql.NullInt64:
		v, valid = h.Int64, h.Valid
	case *sql.NullFloat64:
		v, valid = h.Float64, h.Valid
	case *sql.NullBool:
		v, valid = h.Bool, h.Valid
	case *sql.NullString:
		v, valid = h.String, h.Valid
	case *sql.NullTime:
		v, valid = h.Time, h.Valid
	case *[]byte:
		v, valid = *h, *h != nil
	default:
		return NewMappingError(d.Type.String(), c.Name, fmt.Errorf("unsupported holder %T", holder))
	}
	if !valid {
		return c.SetValue(entity, nil)
	}
	if c.Kind == KindUUID {
		s, ok := v.(string)
		if !ok {
			return NewMappingError(d.Type.String(), c.Name, fmt.Errorf("expected textual uuid, got %T", v))
		}
		id, err := uuid.Parse(s)
		if err != nil {
			return NewMappingError(d.Type.String(), c.Name, err)
		}
		v = id
	}
	if err := c.SetValue(entity, v); err != nil {
		return err
	}
	return nil
}
