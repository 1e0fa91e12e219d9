// Package schema discovers and caches persistence metadata for entity
// types.
//
// A Descriptor is built once per type from struct tags, validated through
// the dialect sanitizer, published to the registry, and never mutated
// afterwards. Concurrent first uses of a type run discovery exactly once.
//
// # Defining Entities
//
// An entity is a plain struct whose persisted fields carry the `orm` tag:
//
//	type Player struct {
//	    ID    uuid.UUID `orm:"id,pk"`
//	    Name  string    `orm:"name,size=32,unique"`
//	    Level int       `orm:"level"`
//	}
//
// The first tag element is the column name (empty derives it from the
// field name); the remaining elements are flags and key=value attributes:
//
//	pk         primary-key marker
//	auto       generated key, assigned by the backend (or the engine for
//	           UUID keys)
//	unique     UNIQUE constraint
//	nullable   accepts NULL (pointer fields are nullable by default)
//	notnull    rejects NULL even for pointer fields
//	size=N     maximum length for text columns
//	default=V  default value literal
//
// A tag of "-" excludes the field. Anonymous embedded structs are
// flattened into the embedding entity's column list.
//
// # Table and Key Conventions
//
// The table name is the underscored plural of the type name (Player ->
// players); implementing TableNamer overrides it. Exactly one primary key
// is required: a field tagged pk, or failing that a column named "id".
//
// # Field Kinds
//
// Supported field types map onto abstract column kinds:
//
//	string                            -> string
//	int, int8..int32, uint8..uint32   -> int
//	int64, uint, uint64               -> int64
//	float32, float64                  -> float64
//	bool                              -> bool
//	[]byte                            -> bytes
//	uuid.UUID                         -> uuid (stored as 36-char text)
//	time.Time                         -> time
//
// Any other field type is a configuration error, reported on first use of
// the entity type.
//
// # Caching Hints
//
// An entity type may declare read-through cache behavior by implementing
// Cacheable (TTL) and optionally CacheSizer (maximum entries). The engine
// applies the TTL when storing entries; the size hint is advisory for
// cache construction. Zero values fall back to the engine defaults.
package schema
