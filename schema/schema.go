package schema

import (
	"reflect"
	"time"
)

// Kind is the abstract value kind of a column.
type Kind int

// Column value kinds.
const (
	KindInvalid Kind = iota
	KindInt
	KindInt64
	KindFloat64
	KindBool
	KindString
	KindBytes
	KindUUID
	KindTime
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindInt64:
		return "int64"
	case KindFloat64:
		return "float64"
	case KindBool:
		return "bool"
	case KindString:
		return "string"
	case KindBytes:
		return "bytes"
	case KindUUID:
		return "uuid"
	case KindTime:
		return "time"
	}
	return "invalid"
}

// Column is the immutable physical description of one persisted field.
type Column struct {
	// Name is the column identifier. Validated at descriptor build time.
	Name string
	// Index is the field index path into the struct (supports embedding).
	Index []int
	// Kind is the abstract value kind used for type mapping and scanning.
	Kind Kind
	// Nullable reports whether the column accepts NULL. Pointer fields
	// are nullable by default.
	Nullable bool
	// Unique reports whether the column carries a UNIQUE constraint.
	Unique bool
	// Size is the maximum length for text columns; 0 means unbounded.
	Size int
	// Default is the declared default value literal, if HasDefault.
	Default    string
	HasDefault bool
	// PrimaryKey marks the single primary-key column of the descriptor.
	PrimaryKey bool
	// AutoKey marks a generated key the backend (or the engine, for UUID
	// keys) assigns on insert.
	AutoKey bool
}

// Descriptor is the cached schema metadata for one entity type.
// It is built once and read concurrently without locking thereafter.
type Descriptor struct {
	// Table is the physical table identifier.
	Table string
	// Type is the entity struct type.
	Type reflect.Type
	// Columns in declaration order. The primary key keeps its declared
	// position.
	Columns []*Column
	// ID is the primary-key column. Exactly one per descriptor.
	ID *Column

	// CacheTTL and CacheSize are optional read-through cache hints
	// declared by the entity type. The engine applies CacheTTL when
	// storing entries; CacheSize is advisory and consumed by whoever
	// constructs the cache backend (see CacheSizer). Zero means "use the
	// engine default".
	CacheTTL  time.Duration
	CacheSize int
}

// ColumnNames returns the column identifiers in declaration order.
func (d *Descriptor) ColumnNames() []string {
	names := make([]string, len(d.Columns))
	for i, c := range d.Columns {
		names[i] = c.Name
	}
	return names
}

// Column returns the column with the given name, or nil.
func (d *Descriptor) Column(name string) *Column {
	for _, c := range d.Columns {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// InsertColumns returns the columns written on insert: generated keys the
// backend assigns are skipped, generated UUID keys are kept because the
// engine assigns them before the statement runs.
func (d *Descriptor) InsertColumns() []*Column {
	cols := make([]*Column, 0, len(d.Columns))
	for _, c := range d.Columns {
		if c.AutoKey && c.Kind != KindUUID {
			continue
		}
		cols = append(cols, c)
	}
	return cols
}

// UpdateColumns returns every column except the primary key, in
// declaration order.
func (d *Descriptor) UpdateColumns() []*Column {
	cols := make([]*Column, 0, len(d.Columns)-1)
	for _, c := range d.Columns {
		if c.PrimaryKey {
			continue
		}
		cols = append(cols, c)
	}
	return cols
}

// TableNamer lets an entity type override its derived table name.
type TableNamer interface {
	TableName() string
}

// Cacheable lets an entity type declare read-through cache hints.
type Cacheable interface {
	// CacheTTL returns how long a cached entity stays visible.
	CacheTTL() time.Duration
}

// CacheSizer optionally suggests a bound on cached entities of the type.
// The engine does not enforce the bound itself: cache backends hold
// entries for many types at once, so the hint is an advisory input for
// whoever constructs the backend (for example memory.WithMaxSize).
type CacheSizer interface {
	// CacheMaxSize returns the suggested maximum number of cached
	// entities.
	CacheMaxSize() int
}
