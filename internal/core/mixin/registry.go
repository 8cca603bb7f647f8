// Package mixin stores named bundles of raw component values that entities
// compose by reference.
package mixin

import (
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/aframevr/aframe-sub002/internal/core/events/bus"
	"github.com/aframevr/aframe-sub002/internal/core/observability/log"
)

// EventChanged is published whenever a mixin is defined, redefined or removed.
const EventChanged = "mixin.changed"

// Mixin is pure data: component name (or name__id) to raw value. A raw value is
// an attribute string or a map of property values.
type Mixin struct {
	ID   string
	Data map[string]any
}

// Components returns the attribute names the mixin supplies, sorted.
func (m Mixin) Components() []string {
	return slices.Sorted(maps.Keys(m.Data))
}

// Change is the payload of EventChanged. Components is the union of the
// attribute names of the old and the new definition.
type Change struct {
	ID         string
	Removed    bool
	Components []string
}

type Registry struct {
	mu     sync.RWMutex
	mixins map[string]Mixin
	bus    bus.EventBus
	log    log.Log
}

func NewRegistry(b bus.EventBus, logger log.Log) *Registry {
	return &Registry{
		mixins: make(map[string]Mixin),
		bus:    b,
		log:    logger,
	}
}

// Define creates or replaces a mixin. The data map is copied.
func (r *Registry) Define(id string, data map[string]any) error {
	if id == "" {
		return ErrEmptyID
	}
	m := Mixin{ID: id, Data: maps.Clone(data)}
	if m.Data == nil {
		m.Data = map[string]any{}
	}

	r.mu.Lock()
	old, existed := r.mixins[id]
	r.mixins[id] = m
	r.mu.Unlock()

	affected := m.Components()
	if existed {
		affected = union(affected, old.Components())
	}
	r.log.Debug("mixin defined", log.String("mixin", id), log.Strings("components", affected))
	return r.publish(Change{ID: id, Components: affected})
}

// Remove deletes a mixin. Entities keep the id in their mixin list; it simply
// contributes nothing until it is defined again.
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	old, existed := r.mixins[id]
	delete(r.mixins, id)
	r.mu.Unlock()

	if !existed {
		return fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	r.log.Debug("mixin removed", log.String("mixin", id))
	return r.publish(Change{ID: id, Removed: true, Components: old.Components()})
}

func (r *Registry) Get(id string) (Mixin, bool) {
	r.mu.RLock()
	m, ok := r.mixins[id]
	r.mu.RUnlock()
	return m, ok
}

// Value returns the raw value a mixin supplies for an attribute name.
func (r *Registry) Value(id, attr string) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.mixins[id]
	if !ok {
		return nil, false
	}
	v, ok := m.Data[attr]
	return v, ok
}

// Values collects the raw values the given mixins supply for attr, in the
// order of ids. Undefined mixins and mixins without attr are skipped.
func (r *Registry) Values(ids []string, attr string) []any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []any
	for _, id := range ids {
		if v, ok := r.mixins[id].Data[attr]; ok {
			out = append(out, v)
		}
	}
	return out
}

// IDs returns every defined mixin id, sorted.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.mixins))
}

func (r *Registry) publish(c Change) error {
	if r.bus == nil {
		return nil
	}
	return r.bus.Publish(bus.NewEvent(EventChanged, c.ID, c))
}

func union(a, b []string) []string {
	out := append(slices.Clone(a), b...)
	slices.Sort(out)
	return slices.Compact(out)
}
