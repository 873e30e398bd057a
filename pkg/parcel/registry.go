package parcel

import (
	"fmt"
	"reflect"
	"sort"
	"sync"
	"time"
)

// Creator returns a new, empty container ready for ReadFromParcel.
type Creator func() Container

// Registry resolves names found in a parcel back to Go types: container
// names to creators, and opaque value names to reflect types. It plays the
// role of a class loader for ReadContainer and ReadValue.
//
// It is safe for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	containers map[string]Creator
	values     map[string]reflect.Type
}

// NewRegistry creates a registry that already knows the builtin value
// types (numbers, strings, bytes, time.Time, time.Duration and the dynamic
// slice and map shapes).
func NewRegistry() *Registry {
	r := &Registry{
		containers: make(map[string]Creator),
		values:     make(map[string]reflect.Type),
	}
	for _, v := range []any{
		false, int(0), int8(0), int16(0), int32(0), int64(0),
		uint(0), uint8(0), uint16(0), uint32(0), uint64(0),
		float32(0), float64(0), "", []byte(nil),
		time.Time{}, time.Duration(0),
		[]any(nil), map[string]any(nil),
	} {
		t := reflect.TypeOf(v)
		r.values[ValueName(t)] = t
	}
	return r
}

// DefaultRegistry is the registry generated code registers into.
var DefaultRegistry = NewRegistry()

// RegisterContainer registers a creator under name.
func (r *Registry) RegisterContainer(name string, create Creator) error {
	if name == "" {
		return fmt.Errorf("parcel: register container: empty name")
	}
	if create == nil {
		return fmt.Errorf("parcel: register container %s: nil creator", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.containers[name]; ok {
		return fmt.Errorf("parcel: register container %s: %w", name, ErrDuplicateType)
	}
	r.containers[name] = create
	return nil
}

// MustRegisterContainer is like RegisterContainer but panics on error.
// Generated code calls it from init.
func (r *Registry) MustRegisterContainer(name string, create Creator) {
	if err := r.RegisterContainer(name, create); err != nil {
		panic(err)
	}
}

// RegisterValueType registers t for the opaque value channel so ReadValue
// reconstructs values of exactly that type.
func (r *Registry) RegisterValueType(t reflect.Type) error {
	if t == nil {
		return fmt.Errorf("parcel: register value: nil type")
	}
	name := ValueName(t)
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.values[name]; ok {
		if existing == t {
			return nil
		}
		return fmt.Errorf("parcel: register value %s: %w", name, ErrDuplicateType)
	}
	r.values[name] = t
	return nil
}

// RegisterValue registers T with r for the opaque value channel.
func RegisterValue[T any](r *Registry) error {
	return r.RegisterValueType(reflect.TypeOf((*T)(nil)).Elem())
}

// MustRegisterValue is like RegisterValue but panics on error. Generated
// code calls it from init for every declared opaque Go type.
func MustRegisterValue[T any](r *Registry) {
	if err := RegisterValue[T](r); err != nil {
		panic(err)
	}
}

func (r *Registry) creator(name string) (Creator, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	create, ok := r.containers[name]
	return create, ok
}

func (r *Registry) valueType(name string) (reflect.Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.values[name]
	return t, ok
}

// NewContainer creates an empty container registered under name.
func (r *Registry) NewContainer(name string) (Container, bool) {
	create, ok := r.creator(name)
	if !ok {
		return nil, false
	}
	return create(), true
}

// ContainerNames returns the registered container names, sorted.
func (r *Registry) ContainerNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.containers))
	for name := range r.containers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValueName returns the name a value of type t travels under in the
// opaque value channel: the full import path for named types.
func ValueName(t reflect.Type) string {
	switch {
	case t.Name() != "" && t.PkgPath() != "":
		return t.PkgPath() + "." + t.Name()
	case t.Name() != "":
		return t.Name()
	}
	switch t.Kind() {
	case reflect.Pointer:
		return "*" + ValueName(t.Elem())
	case reflect.Slice:
		return "[]" + ValueName(t.Elem())
	case reflect.Array:
		return fmt.Sprintf("[%d]%s", t.Len(), ValueName(t.Elem()))
	case reflect.Map:
		return "map[" + ValueName(t.Key()) + "]" + ValueName(t.Elem())
	default:
		return t.String()
	}
}
