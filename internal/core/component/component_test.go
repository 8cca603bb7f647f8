package component

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aframevr/aframe-sub002/internal/core/data"
	"github.com/aframevr/aframe-sub002/internal/core/events/bus"
	"github.com/aframevr/aframe-sub002/internal/core/observability/log"
	"github.com/aframevr/aframe-sub002/internal/core/schema"
	"github.com/aframevr/aframe-sub002/internal/core/schema/proptype"
)

type fakeHost struct {
	id      string
	playing bool
	attrs   map[string]any
	mixins  map[string][]any
}

func newHost() *fakeHost {
	return &fakeHost{id: "e1", attrs: map[string]any{}, mixins: map[string][]any{}}
}

func (h *fakeHost) ID() string      { return h.id }
func (h *fakeHost) IsPlaying() bool { return h.playing }
func (h *fakeHost) RawAttribute(attr string) (any, bool) {
	v, ok := h.attrs[attr]
	return v, ok
}
func (h *fakeHost) MixinValues(attr string) []any { return h.mixins[attr] }

type recorder struct {
	calls   []string
	oldData []any
}

func (r *recorder) definition() Definition {
	return Definition{
		Schema: schema.Fields{
			{Name: "color", Property: schema.Property{Default: "red"}},
			{Name: "size", Property: schema.Property{Default: 5}},
		},
		Init: func(*Instance) error { r.calls = append(r.calls, "init"); return nil },
		Update: func(_ *Instance, old any) error {
			r.calls = append(r.calls, "update")
			r.oldData = append(r.oldData, old)
			return nil
		},
		Play:   func(*Instance) error { r.calls = append(r.calls, "play"); return nil },
		Pause:  func(*Instance) error { r.calls = append(r.calls, "pause"); return nil },
		Remove: func(*Instance) error { r.calls = append(r.calls, "remove"); return nil },
		Tick: func(*Instance, time.Duration, time.Duration) error {
			r.calls = append(r.calls, "tick")
			return nil
		},
	}
}

func newEnv() (*Env, bus.EventBus) {
	b := bus.New()
	return &Env{
		Builder: data.NewBuilder(log.NewNop()),
		Types:   proptype.NewRegistry(),
		Bus:     b,
		Log:     log.NewNop(),
	}, b
}

func register(t *testing.T, env *Env, name string, def Definition) *Registered {
	t.Helper()
	reg, err := NewRegistry(env.Types, log.NewNop()).Register(name, def)
	require.NoError(t, err)
	return reg
}

func TestLifecycle(t *testing.T) {
	env, b := newEnv()
	var events []string
	_, _ = b.Subscribe(bus.Wildcard, func(e bus.Event) error {
		events = append(events, e.Type())
		return nil
	})
	rec := &recorder{}
	host := newHost()
	c := NewInstance(register(t, env, "dummy", rec.definition()), "", host, env)
	assert.Equal(t, StateUnregistered, c.State())
	assert.Nil(t, c.Data())

	host.mixins["dummy"] = []any{"color: blue; size: 10"}
	require.NoError(t, c.UpdateProperties())
	assert.Equal(t, []string{"init", "update"}, rec.calls)
	assert.Nil(t, rec.oldData[0])
	assert.Equal(t, data.Values{"color": "blue", "size": 10.0}, c.Data())
	assert.Equal(t, StateInitialized, c.State())

	// Idempotence: no hook on an unchanged rebuild.
	require.NoError(t, c.UpdateProperties())
	assert.Len(t, rec.calls, 2)

	// Change isolation.
	host.attrs["dummy"] = "size: 20"
	require.NoError(t, c.UpdateProperties())
	require.Len(t, rec.oldData, 2)
	old := rec.oldData[1].(data.Values)
	assert.Equal(t, "blue", old["color"])
	assert.Equal(t, 10.0, old["size"])
	assert.Equal(t, 20.0, c.Values().Float("size"))

	// Play requires a playing entity.
	require.NoError(t, c.Play())
	assert.False(t, c.Playing())
	host.playing = true
	require.NoError(t, c.Play())
	require.NoError(t, c.Play())
	assert.Equal(t, StatePlaying, c.State())

	require.NoError(t, c.Tick(time.Second, time.Millisecond))
	require.NoError(t, c.Pause())
	require.NoError(t, c.Pause())
	assert.Equal(t, StatePaused, c.State())
	require.NoError(t, c.Tick(time.Second, time.Millisecond))

	require.NoError(t, c.Play())
	require.NoError(t, c.Remove())
	require.NoError(t, c.Remove())
	assert.Equal(t, StateRemoved, c.State())
	require.NoError(t, c.Tick(time.Second, time.Millisecond))
	assert.ErrorIs(t, c.UpdateProperties(), ErrRemoved)

	assert.Equal(t, []string{
		"init", "update", "update", "play", "tick", "pause", "play", "pause", "remove",
	}, rec.calls)
	assert.Equal(t, []string{
		EventInitialized, EventChanged, EventPlay, EventPause, EventPlay, EventPause, EventRemoved,
	}, events)
}

func TestRemoveBeforeInitSkipsHook(t *testing.T) {
	env, _ := newEnv()
	rec := &recorder{}
	c := NewInstance(register(t, env, "dummy", rec.definition()), "", newHost(), env)
	require.NoError(t, c.Remove())
	assert.Empty(t, rec.calls)
}

func TestInitErrorLeavesInstanceUninitialized(t *testing.T) {
	env, _ := newEnv()
	fail := true
	def := Definition{
		Schema: "number",
		Init: func(*Instance) error {
			if fail {
				return errors.New("not ready")
			}
			return nil
		},
	}
	c := NewInstance(register(t, env, "flaky", def), "", newHost(), env)
	err := c.UpdateProperties()
	require.Error(t, err)
	assert.False(t, c.Initialized())

	fail = false
	require.NoError(t, c.UpdateProperties())
	assert.True(t, c.Initialized())
	assert.Equal(t, 0.0, c.Data())
}

func TestHookPanicIsRecovered(t *testing.T) {
	env, _ := newEnv()
	def := Definition{
		Schema: "number",
		Tick:   func(*Instance, time.Duration, time.Duration) error { panic("boom") },
	}
	host := newHost()
	host.playing = true
	c := NewInstance(register(t, env, "bad", def), "", host, env)
	require.NoError(t, c.UpdateProperties())
	require.NoError(t, c.Play())
	assert.ErrorIs(t, c.Tick(0, 0), ErrHookPanic)
}

func TestReentrantUpdateIsReplayed(t *testing.T) {
	env, _ := newEnv()
	host := newHost()
	var seen []float64
	def := Definition{
		Schema: schema.Property{Type: "number"},
		Update: func(c *Instance, _ any) error {
			v := c.Data().(float64)
			seen = append(seen, v)
			if v < 3 {
				host.attrs["counter"] = formatNumber(v + 1)
				return c.UpdateProperties()
			}
			return nil
		},
	}
	c := NewInstance(register(t, env, "counter", def), "", host, env)
	host.attrs["counter"] = "1"
	require.NoError(t, c.UpdateProperties())
	assert.Equal(t, []float64{1, 2, 3}, seen)
	assert.Equal(t, 3.0, c.Data())
}

func formatNumber(f float64) string {
	typ, _ := proptype.NewRegistry().Get("number")
	return typ.Stringify(f)
}

func TestUpdateSchema(t *testing.T) {
	env, _ := newEnv()
	def := Definition{
		Schema: schema.Fields{{Name: "primitive", Property: schema.Property{Default: "box", OneOf: []string{"box", "sphere"}}}},
		UpdateSchema: func(_ *Instance, d any) (any, error) {
			switch d.(data.Values).String("primitive") {
			case "sphere":
				return schema.Fields{{Name: "radius", Property: schema.Property{Default: 1}}}, nil
			default:
				return schema.Fields{{Name: "width", Property: schema.Property{Default: 2}}}, nil
			}
		},
	}
	host := newHost()
	host.attrs["geometry"] = "primitive: box; width: 4"
	c := NewInstance(register(t, env, "geometry", def), "", host, env)
	require.NoError(t, c.UpdateProperties())
	assert.Equal(t, data.Values{"primitive": "box", "width": 4.0}, c.Data())

	host.attrs["geometry"] = "primitive: sphere; radius: 3"
	require.NoError(t, c.UpdateProperties())
	assert.Equal(t, data.Values{"primitive": "sphere", "radius": 3.0}, c.Data())
	assert.Equal(t, []string{"primitive", "radius"}, c.Schema().Keys())
	assert.Equal(t, "primitive: sphere; radius: 3", c.Stringify())
}

func TestMultipleInstanceNaming(t *testing.T) {
	env, _ := newEnv()
	host := newHost()
	host.attrs["sound__click"] = "pop.ogg"
	c := NewInstance(register(t, env, "sound", Definition{Schema: "asset", Multiple: true}), "click", host, env)
	require.NoError(t, c.UpdateProperties())
	assert.Equal(t, "sound__click", c.Attr())
	assert.Equal(t, proptype.Source{URL: "pop.ogg"}, c.Data())

	name, id := SplitName("sound__click")
	assert.Equal(t, "sound", name)
	assert.Equal(t, "click", id)
	assert.Equal(t, "sound", JoinName("sound", ""))
}

func TestRegistryConflicts(t *testing.T) {
	r := NewRegistry(proptype.NewRegistry(), log.NewNop())

	_, err := r.Register("a__b", Definition{})
	assert.ErrorIs(t, err, ErrNameConflict)
	_, err = r.Register("mixin", Definition{})
	assert.ErrorIs(t, err, ErrNameConflict)
	_, err = r.Register("", Definition{})
	assert.ErrorIs(t, err, ErrNameConflict)

	_, err = r.Register("ok", Definition{})
	require.NoError(t, err)
	_, err = r.Register("ok", Definition{})
	assert.ErrorIs(t, err, ErrNameConflict)
	_, err = r.Register("ok", Definition{Schema: "number"}, AllowOverride())
	require.NoError(t, err)
	def, _ := r.Get("ok")
	assert.Equal(t, "number", def.Schema.Single().Type.Name)

	_, err = r.Register("broken", Definition{Schema: map[string]any{"p": map[string]any{"type": "nope"}}})
	assert.ErrorIs(t, err, schema.ErrSchema)
	_, found := r.Get("broken")
	assert.False(t, found)
	assert.Equal(t, []string{"ok"}, r.Names())
}

func TestRegistryOrder(t *testing.T) {
	r := NewRegistry(proptype.NewRegistry(), log.NewNop())
	_, _ = r.Register("material", Definition{Requires: []string{"geometry"}})
	_, _ = r.Register("geometry", Definition{})
	_, _ = r.Register("light", Definition{Dependencies: Dependencies{Before: []string{"material"}}})

	assert.Equal(t, []string{"geometry", "light", "material"}, r.Order([]string{"light", "material", "geometry"}))
	assert.Equal(t, []string{"material", "unknown"}, r.Order([]string{"unknown", "material"}))
}

func TestEmptyListIsNotAChange(t *testing.T) {
	env, _ := newEnv()
	updates := 0
	def := Definition{
		Schema: schema.Fields{{Name: "items", Property: schema.Property{Type: "array"}}},
		Update: func(*Instance, any) error { updates++; return nil },
	}
	host := newHost()
	c := NewInstance(register(t, env, "list", def), "", host, env)
	require.NoError(t, c.UpdateProperties())
	require.Equal(t, 1, updates)

	host.attrs["list"] = "items: "
	require.NoError(t, c.UpdateProperties())
	host.mixins["list"] = []any{"items: "}
	require.NoError(t, c.UpdateProperties())
	assert.Equal(t, 1, updates)
}
