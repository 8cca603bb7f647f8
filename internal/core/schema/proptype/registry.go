package proptype

import (
	"fmt"
	"reflect"
	"sort"
	"sync"
)

// ParseFunc converts a raw attribute string into a typed value. def is the
// default of the property being parsed; types use it to fill partial input.
type ParseFunc func(raw string, def any) (any, error)

// StringifyFunc renders a typed value back into attribute syntax.
type StringifyFunc func(value any) string

// Type is a named (parse, stringify, default) triple.
type Type struct {
	Name      string
	Parse     ParseFunc
	Stringify StringifyFunc
	Default   any
}

// Coerce turns a value of any accepted Go shape into the canonical value of
// the type: strings are parsed, everything else goes through Stringify first.
func (t Type) Coerce(value any, def any) (any, error) {
	if s, ok := value.(string); ok {
		return t.Parse(s, def)
	}
	return t.Parse(t.Stringify(value), def)
}

// Equal reports whether two typed values are the same.
func Equal(a, b any) bool {
	return reflect.DeepEqual(a, b)
}

type registerOptions struct {
	override bool
}

type RegisterOption func(*registerOptions)

// AllowOverride permits replacing an existing type of the same name.
func AllowOverride() RegisterOption {
	return func(o *registerOptions) { o.override = true }
}

// Registry holds the property types known to the process. It is seeded with
// the built-in types and is read-mostly after startup.
type Registry struct {
	mu    sync.RWMutex
	types map[string]Type
}

// NewRegistry returns a registry seeded with the built-in types.
func NewRegistry() *Registry {
	r := &Registry{types: make(map[string]Type)}
	for _, t := range builtins() {
		r.types[t.Name] = t
	}
	return r
}

func (r *Registry) Register(name string, t Type, opts ...RegisterOption) error {
	var o registerOptions
	for _, opt := range opts {
		opt(&o)
	}
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidType)
	}
	if t.Parse == nil {
		return fmt.Errorf("%w: %q has no parse function", ErrInvalidType, name)
	}
	if t.Stringify == nil {
		t.Stringify = stringifyAny
	}
	t.Name = name

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.types[name]; exists && !o.override {
		return fmt.Errorf("%w: %q", ErrDuplicateType, name)
	}
	r.types[name] = t
	return nil
}

func (r *Registry) Get(name string) (Type, error) {
	r.mu.RLock()
	t, ok := r.types[name]
	r.mu.RUnlock()
	if !ok {
		return Type{}, fmt.Errorf("%w: %q", ErrUnknownType, name)
	}
	return t, nil
}

func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	_, ok := r.types[name]
	r.mu.RUnlock()
	return ok
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.types))
	for name := range r.types {
		names = append(names, name)
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}

// InferName picks the type name matching the Go shape of a default value.
// Anything unrecognised is a free-form string.
func InferName(def any) string {
	switch def.(type) {
	case bool:
		return "boolean"
	case float64, float32, int, int64, int32, uint, uint64, uint32:
		return "number"
	case Vec2:
		return "vec2"
	case Vec3:
		return "vec3"
	case Vec4:
		return "vec4"
	case []string:
		return "array"
	case Selector:
		return "selector"
	case []Selector:
		return "selectorAll"
	case Source:
		return "asset"
	default:
		return "string"
	}
}
