package component

import (
	"fmt"
	"maps"
	"time"

	"github.com/aframevr/aframe-sub002/internal/core/data"
	"github.com/aframevr/aframe-sub002/internal/core/events/bus"
	"github.com/aframevr/aframe-sub002/internal/core/observability/log"
	"github.com/aframevr/aframe-sub002/internal/core/schema"
	"github.com/aframevr/aframe-sub002/internal/core/schema/proptype"
)

// Lifecycle event types published on the bus with the entity id as source
// and an Event as data.
const (
	EventInitialized = "componentinitialized"
	EventChanged     = "componentchanged"
	EventRemoved     = "componentremoved"
	EventPlay        = "componentplay"
	EventPause       = "componentpause"
)

// Event is the payload of lifecycle notifications.
type Event struct {
	Entity  string
	Attr    string
	Name    string
	ID      string
	Data    any
	OldData any
}

// Host is the entity side of an instance.
type Host interface {
	ID() string
	IsPlaying() bool
	// RawAttribute returns the entity's own raw value for an attribute name.
	RawAttribute(attr string) (any, bool)
	// MixinValues returns the raw values the entity's mixins supply for an
	// attribute name, lowest precedence first.
	MixinValues(attr string) []any
}

// Env carries the collaborators shared by every instance of a scene.
type Env struct {
	Builder *data.Builder
	Types   *proptype.Registry
	Bus     bus.EventBus
	Log     log.Log
}

// State is the lifecycle state of an instance.
type State uint8

const (
	StateUnregistered State = iota
	StateInitialized
	StatePlaying
	StatePaused
	StateRemoved
)

func (s State) String() string {
	switch s {
	case StateUnregistered:
		return "unregistered"
	case StateInitialized:
		return "initialized"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateRemoved:
		return "removed"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// Instance is one component attached to one entity.
type Instance struct {
	def  *Registered
	id   string
	attr string
	host Host
	env  *Env

	schema *schema.Schema
	cache  *data.Cache

	data     any
	previous any

	initialized bool
	playing     bool
	paused      bool
	removed     bool

	building bool
	pending  bool

	// Scratch is free for hooks to keep per-instance state in.
	Scratch any
}

// NewInstance allocates an instance; its data stays nil until the first
// UpdateProperties.
func NewInstance(def *Registered, id string, host Host, env *Env) *Instance {
	return &Instance{
		def:    def,
		id:     id,
		attr:   JoinName(def.Name, id),
		host:   host,
		env:    env,
		schema: def.Schema,
		cache:  data.NewCache(),
	}
}

func (c *Instance) Name() string            { return c.def.Name }
func (c *Instance) ID() string              { return c.id }
func (c *Instance) Attr() string            { return c.attr }
func (c *Instance) Entity() Host            { return c.host }
func (c *Instance) Definition() *Registered { return c.def }
func (c *Instance) Schema() *schema.Schema  { return c.schema }
func (c *Instance) Data() any               { return c.data }
func (c *Instance) PreviousData() any       { return c.previous }
func (c *Instance) Initialized() bool       { return c.initialized }
func (c *Instance) Playing() bool           { return c.playing }
func (c *Instance) Removed() bool           { return c.removed }
func (c *Instance) Log() log.Log            { return c.env.Log.With(log.Entity(c.host.ID()), log.Component(c.attr)) }
func (c *Instance) String() string          { return c.host.ID() + "." + c.attr }
func (c *Instance) Stringify() string       { return c.schema.Stringify(c.data) }
func (c *Instance) CacheLen() int           { return c.cache.Len() }
func (c *Instance) Values() data.Values {
	v, _ := c.data.(data.Values)
	return v
}

func (c *Instance) State() State {
	switch {
	case c.removed:
		return StateRemoved
	case c.playing:
		return StatePlaying
	case c.paused:
		return StatePaused
	case c.initialized:
		return StateInitialized
	default:
		return StateUnregistered
	}
}

// UpdateProperties rebuilds the data from the host's current raw values and
// runs Init/Update as needed. A call made from inside one of this instance's
// own hooks is replayed once the running update finishes, before the outer
// call returns.
func (c *Instance) UpdateProperties() error {
	if c.removed {
		return ErrRemoved
	}
	if c.building {
		c.pending = true
		return nil
	}
	c.building = true
	defer func() { c.building = false }()

	var err error
	for {
		c.pending = false
		err = c.update()
		if !c.pending || c.removed {
			return err
		}
	}
}

// Refresh is the completion callback for asynchronous work started by a hook:
// it triggers a rebuild with the current inputs.
func (c *Instance) Refresh() error {
	return c.UpdateProperties()
}

func (c *Instance) update() error {
	next, err := c.build()
	if c.def.UpdateSchema != nil {
		next, err = c.applyUpdateSchema(next, err)
		if c.removed {
			return ErrRemoved
		}
	}

	if !c.initialized {
		c.data = next
		if herr := c.call("init", c.def.Init); herr != nil {
			c.data = nil
			return herr
		}
		c.initialized = true
		c.previous = clone(next)
		if herr := c.callUpdate(nil); herr != nil {
			err = herr
		}
		c.emit(EventInitialized, nil)
		return err
	}

	if data.Equal(next, c.previous) {
		return err
	}
	old := c.previous
	c.data = next
	c.previous = clone(next)
	if herr := c.callUpdate(old); herr != nil {
		err = herr
	}
	c.emit(EventChanged, old)
	return err
}

func (c *Instance) build() (any, error) {
	explicit, has := c.host.RawAttribute(c.attr)
	return c.env.Builder.Build(data.Input{
		Entity:      c.host.ID(),
		Component:   c.attr,
		Schema:      c.schema,
		Explicit:    explicit,
		HasExplicit: has,
		Mixins:      c.host.MixinValues(c.attr),
		Cache:       c.cache,
	})
}

// applyUpdateSchema lets the hook derive the schema from the tentative data
// and rebuilds when the schema changed.
func (c *Instance) applyUpdateSchema(tentative any, buildErr error) (any, error) {
	var extra any
	err := c.call("updateSchema", func(c *Instance) error {
		var herr error
		extra, herr = c.def.UpdateSchema(c, tentative)
		return herr
	})
	if err != nil {
		return tentative, err
	}

	next := c.def.Schema
	if extra != nil {
		processed, perr := schema.Process(extra, c.env.Types)
		if perr == nil {
			next, perr = c.def.Schema.Extend(processed)
		}
		if perr != nil {
			return tentative, fmt.Errorf("component %q: updateSchema: %w", c.attr, perr)
		}
	}
	if next.Equal(c.schema) {
		return tentative, buildErr
	}
	c.schema = next
	c.cache.Reset()
	return c.build()
}

func (c *Instance) callUpdate(old any) error {
	if c.def.Update == nil {
		return nil
	}
	return c.call("update", func(c *Instance) error { return c.def.Update(c, old) })
}

// Play starts the instance when it is initialised, its entity is playing and
// it is not playing already.
func (c *Instance) Play() error {
	if !c.initialized || c.playing || c.removed || !c.host.IsPlaying() {
		return nil
	}
	c.playing = true
	c.paused = false
	err := c.call("play", c.def.Play)
	c.emit(EventPlay, nil)
	return err
}

func (c *Instance) Pause() error {
	if !c.playing {
		return nil
	}
	c.playing = false
	c.paused = true
	err := c.call("pause", c.def.Pause)
	c.emit(EventPause, nil)
	return err
}

// Remove pauses the instance, runs the Remove hook when initialised and marks
// the instance terminal.
func (c *Instance) Remove() error {
	if c.removed {
		return nil
	}
	err := c.Pause()
	wasInitialized := c.initialized
	if wasInitialized {
		if herr := c.call("remove", c.def.Remove); herr != nil {
			err = herr
		}
	}
	c.removed = true
	c.playing = false
	c.cache.Reset()
	if wasInitialized {
		c.emit(EventRemoved, nil)
	}
	return err
}

// Tickable reports whether Tick would run the hook.
func (c *Instance) Tickable() bool {
	return c.playing && !c.removed && c.def.Tick != nil
}

// Tick runs the per-frame hook while playing. Panics are recovered into
// ErrHookPanic.
func (c *Instance) Tick(t, dt time.Duration) error {
	if !c.Tickable() {
		return nil
	}
	return c.call("tick", func(c *Instance) error { return c.def.Tick(c, t, dt) })
}

func (c *Instance) call(hook string, fn func(*Instance) error) (err error) {
	if fn == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s.%s: %v", ErrHookPanic, c.attr, hook, r)
		}
	}()
	if err = fn(c); err != nil {
		return fmt.Errorf("component %q: %s: %w", c.attr, hook, err)
	}
	return nil
}

func (c *Instance) emit(eventType string, old any) {
	if c.env.Bus == nil {
		return
	}
	ev := Event{
		Entity:  c.host.ID(),
		Attr:    c.attr,
		Name:    c.def.Name,
		ID:      c.id,
		Data:    c.data,
		OldData: old,
	}
	if err := c.env.Bus.Publish(bus.NewEvent(eventType, c.host.ID(), ev)); err != nil {
		c.Log().Warn("lifecycle observer failed", log.String("event", eventType), log.Error(err))
	}
}

func clone(v any) any {
	if vals, ok := v.(data.Values); ok {
		return data.Values(maps.Clone(map[string]any(vals)))
	}
	return v
}
