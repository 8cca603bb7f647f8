// Package scene owns the entity tree: it decides which component instances
// exist on each entity, feeds them their raw inputs, and drives their
// lifecycle in dependency order.
//
// A Scene is not safe for concurrent use. Mutations made from a foreign
// goroutine go through Runner.Do.
package scene

import (
	"errors"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/aframevr/aframe-sub002/internal/core/component"
	"github.com/aframevr/aframe-sub002/internal/core/data"
	"github.com/aframevr/aframe-sub002/internal/core/events/bus"
	"github.com/aframevr/aframe-sub002/internal/core/mixin"
	"github.com/aframevr/aframe-sub002/internal/core/observability/log"
)

// Entity lifecycle event types. The event source is the entity id and the
// data an EntityEvent.
const (
	EventEntityLoaded  = "entityloaded"
	EventEntityRemoved = "entityremoved"
)

// RootID is the id of the scene's root entity.
const RootID = "scene"

type EntityEvent struct {
	ID     string
	Parent string
}

// ErrorHandler receives per-instance build and hook errors. The default
// handler logs them.
type ErrorHandler func(entity, attr string, err error)

type options struct {
	bus      bus.EventBus
	log      log.Log
	defaults []string
	onError  ErrorHandler
}

type Option func(*options)

func WithBus(b bus.EventBus) Option          { return func(o *options) { o.bus = b } }
func WithLogger(l log.Log) Option            { return func(o *options) { o.log = l } }
func WithErrorHandler(h ErrorHandler) Option { return func(o *options) { o.onError = h } }

// WithDefaultComponents attaches the named components to every entity except
// the root.
func WithDefaultComponents(names ...string) Option {
	return func(o *options) { o.defaults = slices.Clone(names) }
}

type Scene struct {
	components *component.Registry
	mixins     *mixin.Registry
	bus        bus.EventBus
	log        log.Log
	env        *component.Env
	order      *orderCache
	onError    ErrorHandler
	defaults   []string

	root *Entity
	byID map[string]*Entity

	// version is the component registry version last reconciled against.
	version uint64

	playing bool
	frames  uint64
	elapsed time.Duration

	mixinSub bus.Subscription
}

// New creates a scene over a shared component registry. The scene owns its
// own mixin registry and propagates mixin changes to referencing entities.
func New(components *component.Registry, opts ...Option) (*Scene, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.bus == nil {
		o.bus = bus.New()
	}
	if o.log == nil {
		o.log = log.NewNop()
	}

	s := &Scene{
		components: components,
		mixins:     mixin.NewRegistry(o.bus, o.log),
		bus:        o.bus,
		log:        o.log,
		order:      newOrderCache(components),
		defaults:   o.defaults,
		byID:       make(map[string]*Entity),
		version:    components.Version(),
	}
	s.env = &component.Env{
		Builder: data.NewBuilder(o.log),
		Types:   components.Types(),
		Bus:     o.bus,
		Log:     o.log,
	}
	s.onError = o.onError
	if s.onError == nil {
		s.onError = s.logError
	}
	for _, name := range s.defaults {
		if _, ok := components.Get(name); !ok {
			s.log.Warn("default component is not registered", log.Component(name))
		}
	}

	sub, err := s.bus.Subscribe(mixin.EventChanged, s.onMixinChanged)
	if err != nil {
		return nil, err
	}
	s.mixinSub = sub

	s.root = newEntity(s, RootID)
	s.root.attachTo(nil)
	return s, nil
}

func (s *Scene) Root() *Entity                   { return s.root }
func (s *Scene) Mixins() *mixin.Registry         { return s.mixins }
func (s *Scene) Components() *component.Registry { return s.components }
func (s *Scene) Bus() bus.EventBus               { return s.bus }
func (s *Scene) Log() log.Log                    { return s.log }
func (s *Scene) IsPlaying() bool                 { return s.playing }
func (s *Scene) Frames() uint64                  { return s.frames }
func (s *Scene) Elapsed() time.Duration          { return s.elapsed }

// Entity looks up an attached entity by id.
func (s *Scene) Entity(id string) (*Entity, bool) {
	e, ok := s.byID[id]
	return e, ok
}

// CreateEntity returns a detached entity. An empty id is replaced by a
// generated one. Components initialise once the entity is appended under the
// root.
func (s *Scene) CreateEntity(id string) *Entity {
	if id == "" {
		id = uuid.NewString()
	}
	return newEntity(s, id)
}

// Entities returns every attached entity in tree order, root first.
func (s *Scene) Entities() []*Entity {
	var out []*Entity
	s.root.walk(func(e *Entity) { out = append(out, e) })
	return out
}

func (s *Scene) Play() {
	if s.playing {
		return
	}
	s.playing = true
	s.root.Play()
}

func (s *Scene) Pause() {
	if !s.playing {
		return
	}
	s.playing = false
	s.root.Pause()
}

// Tickables returns the playing instances that have a tick hook: entities in
// tree order, each entity's instances in dependency order.
func (s *Scene) Tickables() []*component.Instance {
	var out []*component.Instance
	s.root.walk(func(e *Entity) {
		for _, c := range e.Components() {
			if c.Tickable() {
				out = append(out, c)
			}
		}
	})
	return out
}

// Tick advances the scene clock and ticks every tickable instance. The set of
// instances is taken before the first hook runs; an instance removed by an
// earlier hook in the same frame is skipped.
func (s *Scene) Tick(t, dt time.Duration) {
	s.Refresh()
	s.frames++
	s.elapsed = t
	if !s.playing {
		return
	}
	for _, c := range s.Tickables() {
		if err := c.Tick(t, dt); err != nil {
			s.onError(c.Entity().ID(), c.Attr(), err)
		}
	}
}

// Refresh attaches instances for components registered since the scene last
// looked at the registry, so attributes set ahead of a registration come to
// life. Tick calls it before every frame.
func (s *Scene) Refresh() {
	v := s.components.Version()
	if v == s.version {
		return
	}
	s.version = v
	for _, e := range s.Entities() {
		e.reconcile(false)
	}
}

// Close detaches the scene from the bus and removes every entity.
func (s *Scene) Close() error {
	s.Pause()
	for _, child := range slices.Clone(s.root.children) {
		child.Destroy()
	}
	s.root.unload()
	return s.bus.Unsubscribe(s.mixinSub)
}

func (s *Scene) onMixinChanged(ev bus.Event) error {
	change, ok := ev.Data().(mixin.Change)
	if !ok {
		return nil
	}
	for _, e := range s.Entities() {
		if slices.Contains(e.mixins, change.ID) {
			e.reconcile(false, change.Components...)
		}
	}
	return nil
}

func (s *Scene) report(e *Entity, attr string, err error) {
	if err != nil {
		s.onError(e.id, attr, err)
	}
}

func (s *Scene) logError(entity, attr string, err error) {
	// Parse failures were already logged by the data builder.
	if onlyParseErrors(err) {
		return
	}
	if errors.Is(err, component.ErrHookPanic) {
		s.log.Error("component hook panicked", log.Entity(entity), log.Component(attr), log.Error(err))
		return
	}
	s.log.Warn("component error", log.Entity(entity), log.Component(attr), log.Error(err))
}

func (s *Scene) publish(typ string, e *Entity) {
	parent := ""
	if e.parent != nil {
		parent = e.parent.id
	}
	if err := s.bus.Publish(bus.NewEvent(typ, e.id, EntityEvent{ID: e.id, Parent: parent})); err != nil {
		s.log.Warn("entity observer failed", log.Entity(e.id), log.String("event", typ), log.Error(err))
	}
}
