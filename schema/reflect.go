package schema

import (
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-openapi/inflect"
	"github.com/google/uuid"

	"github.com/syssam/stratum/dialect"
)

// TagName is the struct tag consulted during metadata discovery.
//
// The first tag element is the column name (empty derives it from the
// field name). The remaining elements are flags and key=value attributes:
//
//	pk         primary-key marker
//	auto       generated key, assigned by the backend (or by the engine
//	           for UUID keys)
//	unique     UNIQUE constraint
//	nullable   accepts NULL (pointer fields are nullable by default)
//	notnull    rejects NULL even for pointer fields
//	size=N     maximum length for text columns
//	default=V  default value literal
//
// A tag of "-" excludes the field from persistence.
const TagName = "orm"

var (
	uuidType  = reflect.TypeOf(uuid.UUID{})
	timeType  = reflect.TypeOf(time.Time{})
	bytesType = reflect.TypeOf([]byte(nil))
)

// buildDescriptor performs full metadata discovery for t. It is called at
// most once per type by the registry.
func buildDescriptor(t reflect.Type) (*Descriptor, error) {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, NewConfigurationError(t.String(), "entity type must be a struct, got %s", t.Kind())
	}
	d := &Descriptor{
		Type:  t,
		Table: tableName(t),
	}
	if err := dialect.ValidateIdentifier(d.Table); err != nil {
		return nil, NewConfigurationError(t.String(), "invalid table name %q", d.Table)
	}
	if err := appendColumns(d, t, nil); err != nil {
		return nil, err
	}
	if len(d.Columns) == 0 {
		return nil, NewConfigurationError(t.String(), "no persisted fields")
	}
	if err := resolvePrimaryKey(d); err != nil {
		return nil, err
	}
	cacheHints(d)
	return d, nil
}

// tableName resolves the physical table identifier: the TableNamer
// override when present, otherwise the underscored plural of the type name.
func tableName(t reflect.Type) string {
	if tn, ok := reflect.New(t).Interface().(TableNamer); ok {
		return tn.TableName()
	}
	return inflect.Pluralize(inflect.Underscore(t.Name()))
}

// cacheHints copies the optional cache declaration off the type.
func cacheHints(d *Descriptor) {
	v := reflect.New(d.Type).Interface()
	if c, ok := v.(Cacheable); ok {
		d.CacheTTL = c.CacheTTL()
	}
	if c, ok := v.(CacheSizer); ok {
		d.CacheSize = c.CacheMaxSize()
	}
}

// appendColumns walks the struct fields in declaration order, flattening
// embedded structs, and appends a Column per persisted field.
func appendColumns(d *Descriptor, t reflect.Type, prefix []int) error {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag := f.Tag.Get(TagName)
		if tag == "-" || !f.IsExported() {
			continue
		}
		index := append(append([]int(nil), prefix...), i)
		if f.Anonymous && f.Type.Kind() == reflect.Struct && f.Type != uuidType && f.Type != timeType {
			if err := appendColumns(d, f.Type, index); err != nil {
				return err
			}
			continue
		}
		col, err := buildColumn(d.Type.String(), f, index, tag)
		if err != nil {
			return err
		}
		if d.Column(col.Name) != nil {
			return NewConfigurationError(d.Type.String(), "duplicate column %q", col.Name)
		}
		d.Columns = append(d.Columns, col)
	}
	return nil
}

// buildColumn resolves one field into its column description.
func buildColumn(typ string, f reflect.StructField, index []int, tag string) (*Column, error) {
	col := &Column{Index: index}
	parts := strings.Split(tag, ",")
	if parts[0] != "" {
		col.Name = parts[0]
	} else {
		col.Name = inflect.Underscore(f.Name)
	}
	if err := dialect.ValidateIdentifier(col.Name); err != nil {
		return nil, NewConfigurationError(typ, "invalid column name %q for field %s", col.Name, f.Name)
	}
	ft := f.Type
	if ft.Kind() == reflect.Pointer {
		col.Nullable = true
		ft = ft.Elem()
	}
	col.Kind = kindOf(ft)
	if col.Kind == KindInvalid {
		return nil, NewConfigurationError(typ, "unsupported field type %s for field %s", f.Type, f.Name)
	}
	for _, p := range parts[1:] {
		switch {
		case p == "pk":
			col.PrimaryKey = true
		case p == "auto":
			col.AutoKey = true
		case p == "unique":
			col.Unique = true
		case p == "nullable":
			col.Nullable = true
		case p == "notnull":
			col.Nullable = false
		case strings.HasPrefix(p, "size="):
			n, err := strconv.Atoi(strings.TrimPrefix(p, "size="))
			if err != nil || n < 0 {
				return nil, NewConfigurationError(typ, "invalid size attribute %q for field %s", p, f.Name)
			}
			col.Size = n
		case strings.HasPrefix(p, "default="):
			col.Default = strings.TrimPrefix(p, "default=")
			col.HasDefault = true
		case p == "":
		default:
			return nil, NewConfigurationError(typ, "unknown tag attribute %q for field %s", p, f.Name)
		}
	}
	if col.PrimaryKey {
		col.Nullable = false
	}
	return col, nil
}

// resolvePrimaryKey locates exactly one primary key: an explicitly tagged
// one, or a column named "id" as a fallback convention.
func resolvePrimaryKey(d *Descriptor) error {
	for _, c := range d.Columns {
		if !c.PrimaryKey {
			continue
		}
		if d.ID != nil {
			return NewConfigurationError(d.Type.String(), "multiple primary keys (%q and %q)", d.ID.Name, c.Name)
		}
		d.ID = c
	}
	if d.ID == nil {
		if c := d.Column("id"); c != nil {
			c.PrimaryKey = true
			c.Nullable = false
			d.ID = c
		}
	}
	if d.ID == nil {
		return NewConfigurationError(d.Type.String(), "missing primary key")
	}
	return nil
}

// kindOf maps a Go type to its column value kind.
func kindOf(t reflect.Type) Kind {
	switch t {
	case uuidType:
		return KindUUID
	case timeType:
		return KindTime
	case bytesType:
		return KindBytes
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32,
		reflect.Uint8, reflect.Uint16, reflect.Uint32:
		return KindInt
	case reflect.Int64, reflect.Uint, reflect.Uint64:
		return KindInt64
	case reflect.Float32, reflect.Float64:
		return KindFloat64
	case reflect.Bool:
		return KindBool
	case reflect.String:
		return KindString
	}
	return KindInvalid
}
