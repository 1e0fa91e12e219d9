package schema

import (
	"reflect"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Registry memoizes descriptors per entity type for its lifetime. Entity
// shapes are static, so there is no invalidation path. Concurrent first
// calls for the same type run discovery exactly once; a descriptor is
// published only after it is fully built.
type Registry struct {
	mu    sync.RWMutex
	types map[reflect.Type]*Descriptor
	group singleflight.Group
}

// NewRegistry creates an empty registry. Registries are constructor
// injected into the engine facade; there is no process-wide instance.
func NewRegistry() *Registry {
	return &Registry{types: make(map[reflect.Type]*Descriptor)}
}

// Describe returns the descriptor for t, building it on first use.
// Pointer types describe their element type.
func (r *Registry) Describe(t reflect.Type) (*Descriptor, error) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	r.mu.RLock()
	d, ok := r.types[t]
	r.mu.RUnlock()
	if ok {
		return d, nil
	}
	v, err, _ := r.group.Do(typeKey(t), func() (any, error) {
		// Re-check under the write path: a previous flight may have
		// published between the read miss and this call.
		r.mu.RLock()
		d, ok := r.types[t]
		r.mu.RUnlock()
		if ok {
			return d, nil
		}
		d, err := buildDescriptor(t)
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		r.types[t] = d
		r.mu.Unlock()
		return d, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Descriptor), nil
}

// DescribeValue returns the descriptor for the dynamic type of v.
func (r *Registry) DescribeValue(v any) (*Descriptor, error) {
	return r.Describe(reflect.TypeOf(v))
}

// typeKey returns a process-unique key for t. Unnamed types carry no
// package path, so their structural type string keys them instead.
func typeKey(t reflect.Type) string {
	if t.Name() == "" {
		return t.String()
	}
	return t.PkgPath() + "." + t.Name()
}
