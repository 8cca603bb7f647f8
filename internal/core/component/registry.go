package component

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/aframevr/aframe-sub002/internal/core/observability/log"
	"github.com/aframevr/aframe-sub002/internal/core/order"
	"github.com/aframevr/aframe-sub002/internal/core/schema"
	"github.com/aframevr/aframe-sub002/internal/core/schema/proptype"
)

// reserved names are entity-level attributes, never components.
var reserved = []string{"id", "mixin"}

// Registered is an immutable, processed Definition.
type Registered struct {
	Name   string
	Schema *schema.Schema
	Definition
}

type registerOptions struct {
	override bool
}

type RegisterOption func(*registerOptions)

// AllowOverride permits replacing a component of the same name.
func AllowOverride() RegisterOption {
	return func(o *registerOptions) { o.override = true }
}

// Registry holds component definitions shared by every scene of the process.
type Registry struct {
	mu    sync.RWMutex
	types *proptype.Registry
	log   log.Log
	defs  map[string]*Registered
	names []string

	// version changes on every successful registration.
	version uint64
}

func NewRegistry(types *proptype.Registry, logger log.Log) *Registry {
	return &Registry{
		types: types,
		log:   logger,
		defs:  make(map[string]*Registered),
	}
}

func (r *Registry) Types() *proptype.Registry { return r.types }

// Register validates the name, processes the schema and stores the definition.
// A failed registration leaves the registry untouched.
func (r *Registry) Register(name string, def Definition, opts ...RegisterOption) (*Registered, error) {
	var o registerOptions
	for _, opt := range opts {
		opt(&o)
	}
	if name == "" {
		return nil, fmt.Errorf("%w: empty name", ErrNameConflict)
	}
	if strings.Contains(name, Separator) {
		return nil, fmt.Errorf("%w: %q contains the reserved separator %q", ErrNameConflict, name, Separator)
	}
	if slices.Contains(reserved, name) {
		return nil, fmt.Errorf("%w: %q is a reserved attribute", ErrNameConflict, name)
	}

	raw := def.Schema
	if raw == nil {
		raw = schema.Property{Type: "string"}
	}
	s, err := schema.Process(raw, r.types)
	if err != nil {
		return nil, fmt.Errorf("component %q: %w", name, err)
	}
	reg := &Registered{Name: name, Schema: s, Definition: def}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.defs[name]; exists {
		if !o.override {
			return nil, fmt.Errorf("%w: %q is already registered", ErrNameConflict, name)
		}
	} else {
		r.names = append(r.names, name)
	}
	r.defs[name] = reg
	r.version++
	return reg, nil
}

func (r *Registry) Get(name string) (*Registered, bool) {
	r.mu.RLock()
	def, ok := r.defs[name]
	r.mu.RUnlock()
	return def, ok
}

// Version identifies the current set of definitions; callers caching
// anything derived from them compare it.
func (r *Registry) Version() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.version
}

// Names returns registered names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.names)
}

// Order sorts the given names by their declared constraints. Requires counts
// as After. Names keep registration order where unconstrained; unregistered
// names go last in input order.
func (r *Registry) Order(names []string) []string {
	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[n] = true
	}

	r.mu.RLock()
	nodes := make([]order.Node, 0, len(names))
	for _, n := range r.names {
		if !wanted[n] {
			continue
		}
		def := r.defs[n]
		nodes = append(nodes, order.Node{
			Name:   n,
			Before: def.Dependencies.Before,
			After:  append(slices.Clone(def.Dependencies.After), def.Requires...),
		})
		delete(wanted, n)
	}
	r.mu.RUnlock()
	for _, n := range names {
		if wanted[n] {
			nodes = append(nodes, order.Node{Name: n})
			delete(wanted, n)
		}
	}

	res := order.Solve(nodes)
	for _, e := range res.Dropped {
		r.log.Warn("component order constraint dropped to break a cycle",
			log.String("before", e.From), log.String("after", e.To))
	}
	return res.Order
}
