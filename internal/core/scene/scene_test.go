package scene

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aframevr/aframe-sub002/internal/core/builtin"
	"github.com/aframevr/aframe-sub002/internal/core/component"
	"github.com/aframevr/aframe-sub002/internal/core/data"
	"github.com/aframevr/aframe-sub002/internal/core/events/bus"
	"github.com/aframevr/aframe-sub002/internal/core/observability/log"
	"github.com/aframevr/aframe-sub002/internal/core/schema"
	"github.com/aframevr/aframe-sub002/internal/core/schema/proptype"
)

// journal records hook calls as "hook:entity.attr".
type journal struct {
	calls []string
}

func (j *journal) hook(name string) func(*component.Instance) error {
	return func(c *component.Instance) error {
		j.calls = append(j.calls, name+":"+c.String())
		return nil
	}
}

func (j *journal) definition(s any) component.Definition {
	return component.Definition{
		Schema: s,
		Init:   j.hook("init"),
		Remove: j.hook("remove"),
		Update: func(c *component.Instance, _ any) error {
			j.calls = append(j.calls, "update:"+c.String())
			return nil
		},
	}
}

func (j *journal) reset() { j.calls = nil }

type fixture struct {
	*Scene
	journal *journal
	errs    []error
	events  []string
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	j := &journal{}
	r := component.NewRegistry(proptype.NewRegistry(), log.NewNop())

	material := j.definition(schema.Fields{
		{Name: "color", Property: schema.Property{Default: "red"}},
		{Name: "opacity", Property: schema.Property{Default: 1}},
	})
	_, err := r.Register("material", material)
	require.NoError(t, err)

	geometry := j.definition(schema.Fields{
		{Name: "primitive", Property: schema.Property{Default: "box", OneOf: []string{"box", "sphere"}}},
	})
	geometry.Dependencies.Before = []string{"material"}
	_, err = r.Register("geometry", geometry)
	require.NoError(t, err)

	_, err = r.Register("light", j.definition(schema.Property{Type: "color"}))
	require.NoError(t, err)

	shadow := j.definition(schema.Property{Type: "boolean", Default: true})
	shadow.Requires = []string{"light"}
	_, err = r.Register("shadow", shadow)
	require.NoError(t, err)

	sound := j.definition(schema.Property{Type: "audio"})
	sound.Multiple = true
	_, err = r.Register("sound", sound)
	require.NoError(t, err)

	require.NoError(t, builtin.Register(r))

	f := &fixture{journal: j}
	b := bus.New()
	_, err = b.Subscribe(bus.Wildcard, func(e bus.Event) error {
		if e.Type() != "mixin.changed" {
			f.events = append(f.events, e.Type()+":"+e.Source())
		}
		return nil
	})
	require.NoError(t, err)

	opts = append([]Option{
		WithBus(b),
		WithErrorHandler(func(_, _ string, err error) { f.errs = append(f.errs, err) }),
	}, opts...)
	f.Scene, err = New(r, opts...)
	require.NoError(t, err)
	f.events = nil
	return f
}

func (f *fixture) entity(t *testing.T, id string, attrs map[string]any) *Entity {
	t.Helper()
	e := f.CreateEntity(id)
	for k, v := range attrs {
		require.NoError(t, e.SetAttribute(k, v))
	}
	require.NoError(t, f.Root().AppendChild(e))
	return e
}

func TestComponentsInitialiseOnAttach(t *testing.T) {
	f := newFixture(t)
	e := f.CreateEntity("box")
	require.NoError(t, e.SetAttribute("material", "color: blue"))
	require.NoError(t, e.SetAttribute("geometry", "primitive: sphere"))
	assert.Empty(t, f.journal.calls)
	_, found := f.Entity("box")
	assert.False(t, found)

	require.NoError(t, f.Root().AppendChild(e))
	assert.Equal(t, []string{
		"init:box.geometry", "update:box.geometry",
		"init:box.material", "update:box.material",
	}, f.journal.calls)
	assert.Equal(t, []string{
		"componentinitialized:box", "componentinitialized:box", "entityloaded:box",
	}, f.events)
	assert.Equal(t, data.Values{"color": "blue", "opacity": 1.0}, e.Data("material"))

	got, found := f.Entity("box")
	require.True(t, found)
	assert.Same(t, e, got)
}

func TestPrecedenceThroughEntity(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.Mixins().Define("red", map[string]any{"material": "color: red; opacity: 0.2"}))
	require.NoError(t, f.Mixins().Define("green", map[string]any{"material": "color: green"}))

	e := f.entity(t, "box", map[string]any{"mixin": "red green", "material": "opacity: 0.9"})
	assert.Equal(t, data.Values{"color": "green", "opacity": 0.9}, e.Data("material"))

	require.NoError(t, e.SetMixins("green", "red"))
	assert.Equal(t, data.Values{"color": "red", "opacity": 0.9}, e.Data("material"))

	require.NoError(t, e.SetAttribute("material", ""))
	assert.Equal(t, data.Values{"color": "red", "opacity": 0.2}, e.Data("material"))

	mixins, ok := e.Attribute("mixin")
	assert.True(t, ok)
	assert.Equal(t, "green red", mixins)
}

func TestMixinPropagation(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.Mixins().Define("shiny", map[string]any{"material": "color: red"}))
	a := f.entity(t, "a", map[string]any{"mixin": "shiny"})
	b := f.entity(t, "b", map[string]any{"mixin": "shiny", "material": "opacity: 0.5"})
	other := f.entity(t, "c", map[string]any{"material": "color: white"})

	require.NoError(t, f.Mixins().Define("shiny", map[string]any{"material": "color: blue"}))
	assert.Equal(t, "blue", a.Data("material").(data.Values)["color"])
	assert.Equal(t, data.Values{"color": "blue", "opacity": 0.5}, b.Data("material"))
	assert.Equal(t, "white", other.Data("material").(data.Values)["color"])

	// A redefinition can add components.
	require.NoError(t, f.Mixins().Define("shiny", map[string]any{"material": "color: blue", "light": "#f00"}))
	assert.Equal(t, "#f00", a.Data("light"))

	// Removing the mixin removes instances with no other source and rebuilds
	// the rest.
	f.journal.reset()
	require.NoError(t, f.Mixins().Remove("shiny"))
	_, ok := a.Component("material")
	assert.False(t, ok)
	assert.Equal(t, data.Values{"color": "red", "opacity": 0.5}, b.Data("material"))
	assert.Contains(t, f.journal.calls, "remove:a.material")
	assert.Contains(t, f.journal.calls, "remove:a.light")
	assert.NotContains(t, f.journal.calls, "remove:b.material")
}

func TestIdempotentRebuild(t *testing.T) {
	f := newFixture(t)
	e := f.entity(t, "box", map[string]any{"material": "color: blue"})
	f.journal.reset()

	require.NoError(t, e.SetAttribute("material", "color: blue"))
	require.NoError(t, e.SetAttribute("material", map[string]any{"color": "blue"}))
	assert.Empty(t, f.journal.calls)
}

func TestRemoveAttribute(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.Mixins().Define("m", map[string]any{"material": "color: green"}))
	e := f.entity(t, "box", map[string]any{
		"mixin":    "m",
		"material": "color: blue",
		"geometry": "primitive: sphere",
	})

	// Still supplied by the mixin: rebuilt.
	require.NoError(t, e.RemoveAttribute("material"))
	c, ok := e.Component("material")
	require.True(t, ok)
	assert.Equal(t, "green", c.Values().String("color"))

	// No other source: removed.
	f.journal.reset()
	require.NoError(t, e.RemoveAttribute("geometry"))
	_, ok = e.Component("geometry")
	assert.False(t, ok)
	assert.Equal(t, []string{"remove:box.geometry"}, f.journal.calls)
	assert.Nil(t, e.Data("geometry"))
	assert.NoError(t, e.RemoveAttribute("geometry"))
}

func TestSetAndResetProperty(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.Mixins().Define("m", map[string]any{"material": "color: green; opacity: 0.3"}))
	e := f.entity(t, "box", map[string]any{"mixin": "m", "material": "color: blue"})

	require.NoError(t, e.SetProperty("material", "opacity", "0.7"))
	assert.Equal(t, data.Values{"color": "blue", "opacity": 0.7}, e.Data("material"))

	require.NoError(t, e.ResetProperty("material", "color"))
	assert.Equal(t, data.Values{"color": "green", "opacity": 0.7}, e.Data("material"))

	require.NoError(t, e.ResetProperty("material", ""))
	assert.Equal(t, data.Values{"color": "green", "opacity": 0.3}, e.Data("material"))

	require.NoError(t, e.SetAttribute("light", "#fff"))
	assert.ErrorIs(t, e.SetProperty("light", "intensity", 2), ErrInvalidAttribute)
	assert.ErrorIs(t, e.SetAttribute("id", "other"), ErrInvalidAttribute)
}

func TestRequires(t *testing.T) {
	f := newFixture(t)
	e := f.entity(t, "lamp", map[string]any{"shadow": "false"})

	light, ok := e.Component("light")
	require.True(t, ok)
	assert.True(t, light.Initialized())
	assert.Equal(t, "#fff", light.Data())
	assert.Equal(t, []string{
		"init:lamp.light", "update:lamp.light",
		"init:lamp.shadow", "update:lamp.shadow",
	}, f.journal.calls)

	_, hasRaw := e.RawAttribute("light")
	assert.False(t, hasRaw)

	require.NoError(t, e.RemoveAttribute("shadow"))
	_, ok = e.Component("light")
	assert.False(t, ok)
}

func TestMultipleInstances(t *testing.T) {
	f := newFixture(t)
	e := f.entity(t, "speaker", map[string]any{
		"sound":          "click.ogg",
		"sound__alarm":   "alarm.ogg",
		"material__side": "color: blue",
	})

	attrs := make([]string, 0)
	for _, c := range e.Components() {
		attrs = append(attrs, c.Attr())
	}
	assert.Equal(t, []string{"sound", "sound__alarm"}, attrs)
	assert.Equal(t, proptype.Source{URL: "alarm.ogg"}, e.Data("sound__alarm"))

	raw, ok := e.Attribute("material__side")
	assert.True(t, ok)
	assert.Equal(t, "color: blue", raw)
}

func TestDefaultComponents(t *testing.T) {
	f := newFixture(t, WithDefaultComponents(builtin.Defaults...))
	e := f.entity(t, "thing", map[string]any{"position": "1 2 3"})

	assert.Equal(t, proptype.Vec3{X: 1, Y: 2, Z: 3}, e.Data(builtin.Position))
	assert.Equal(t, proptype.Vec3{X: 1, Y: 1, Z: 1}, e.Data(builtin.Scale))
	assert.Equal(t, true, e.Data(builtin.Visible))

	// A default component survives removal of its attribute.
	require.NoError(t, e.RemoveAttribute("position"))
	assert.Equal(t, proptype.Vec3{}, e.Data(builtin.Position))

	assert.Empty(t, f.Root().Components())
}

func TestDestroy(t *testing.T) {
	f := newFixture(t)
	parent := f.entity(t, "parent", map[string]any{"material": "", "geometry": ""})
	child := f.CreateEntity("child")
	require.NoError(t, child.SetAttribute("light", "#000"))
	require.NoError(t, parent.AppendChild(child))
	f.Play()
	f.journal.reset()
	f.events = nil

	parent.Destroy()
	assert.Equal(t, []string{
		"remove:child.light",
		"remove:parent.material",
		"remove:parent.geometry",
	}, f.journal.calls)
	assert.Contains(t, f.events, "entityremoved:child")
	assert.Contains(t, f.events, "entityremoved:parent")
	assert.True(t, parent.Destroyed())
	assert.True(t, child.Destroyed())
	assert.Empty(t, parent.Components())
	_, found := f.Entity("child")
	assert.False(t, found)
	assert.Empty(t, f.Root().Children())

	assert.ErrorIs(t, parent.SetAttribute("material", "color: red"), ErrDestroyed)
	assert.ErrorIs(t, f.Root().AppendChild(parent), ErrDestroyed)
	assert.Empty(t, f.Tickables())
}

func TestReattachAfterRemoveChild(t *testing.T) {
	f := newFixture(t)
	e := f.entity(t, "box", map[string]any{"material": "color: blue"})
	require.NoError(t, f.Root().RemoveChild(e))
	assert.False(t, e.Loaded())
	assert.ErrorIs(t, f.Root().RemoveChild(e), ErrNotChild)

	f.journal.reset()
	require.NoError(t, f.Root().AppendChild(e))
	assert.Equal(t, []string{"init:box.material", "update:box.material"}, f.journal.calls)
}

func TestDuplicateID(t *testing.T) {
	f := newFixture(t)
	f.entity(t, "box", nil)
	assert.ErrorIs(t, f.Root().AppendChild(f.CreateEntity("box")), ErrDuplicateID)
	assert.ErrorIs(t, f.Root().AppendChild(f.CreateEntity(RootID)), ErrDuplicateID)

	generated := f.CreateEntity("")
	assert.NotEmpty(t, generated.ID())
}

func TestTick(t *testing.T) {
	j := &journal{}
	r := component.NewRegistry(proptype.NewRegistry(), log.NewNop())
	var victim *Entity
	ticker := func(name string) component.Definition {
		return component.Definition{
			Schema: "number",
			Tick: func(c *component.Instance, _, _ time.Duration) error {
				j.calls = append(j.calls, "tick:"+c.String())
				if name == "killer" && victim != nil {
					victim.Destroy()
				}
				return nil
			},
		}
	}
	_, _ = r.Register("killer", ticker("killer"))
	_, _ = r.Register("spin", ticker("spin"))
	failing := ticker("fail")
	failing.Tick = func(*component.Instance, time.Duration, time.Duration) error { return errors.New("bad frame") }
	_, _ = r.Register("fail", failing)

	var reported []string
	s, err := New(r, WithErrorHandler(func(entity, attr string, err error) {
		reported = append(reported, entity+"."+attr+": "+err.Error())
	}))
	require.NoError(t, err)

	a := s.CreateEntity("a")
	require.NoError(t, a.SetAttribute("spin", "1"))
	require.NoError(t, a.SetAttribute("fail", "1"))
	require.NoError(t, a.SetAttribute("killer", "1"))
	require.NoError(t, s.Root().AppendChild(a))
	victim = s.CreateEntity("b")
	require.NoError(t, victim.SetAttribute("spin", "1"))
	require.NoError(t, s.Root().AppendChild(victim))

	s.Tick(time.Millisecond, time.Millisecond)
	assert.Empty(t, j.calls, "paused scene does not tick")

	s.Play()
	assert.Len(t, s.Tickables(), 4)
	s.Tick(2*time.Millisecond, time.Millisecond)
	assert.Equal(t, []string{"tick:a.killer", "tick:a.spin"}, j.calls)
	assert.Len(t, reported, 1)
	assert.Contains(t, reported[0], "a.fail")
	assert.Equal(t, uint64(2), s.Frames())
}

func TestOrderCache(t *testing.T) {
	f := newFixture(t)
	f.entity(t, "a", map[string]any{"material": "", "geometry": ""})
	f.entity(t, "b", map[string]any{"geometry": "", "material": ""})
	n := f.order.len()
	f.entity(t, "c", map[string]any{"material": "", "geometry": ""})
	assert.Equal(t, n, f.order.len())

	_, err := f.Components().Register("fog", component.Definition{})
	require.NoError(t, err)
	f.entity(t, "d", map[string]any{"material": "", "geometry": ""})
	assert.Greater(t, f.order.len(), n)
}

func TestHookErrorsDoNotStopSiblings(t *testing.T) {
	r := component.NewRegistry(proptype.NewRegistry(), log.NewNop())
	_, _ = r.Register("broken", component.Definition{
		Init: func(*component.Instance) error { panic("init exploded") },
	})
	_, _ = r.Register("fine", component.Definition{})

	var errs []error
	s, err := New(r, WithErrorHandler(func(_, _ string, err error) { errs = append(errs, err) }))
	require.NoError(t, err)
	e := s.CreateEntity("x")
	require.NoError(t, e.SetAttribute("broken", "a"))
	require.NoError(t, e.SetAttribute("fine", "b"))
	require.NoError(t, s.Root().AppendChild(e))

	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], component.ErrHookPanic)
	fine, _ := e.Component("fine")
	assert.True(t, fine.Initialized())
	assert.Equal(t, "b", fine.Data())
}

func TestParseErrorsReachHandler(t *testing.T) {
	f := newFixture(t)
	e := f.entity(t, "box", map[string]any{"material": "opacity: lots"})
	assert.Equal(t, 1.0, e.Data("material").(data.Values)["opacity"])
	require.Len(t, f.errs, 1)
	assert.ErrorIs(t, f.errs[0], data.ErrPropertyParse)
	assert.True(t, onlyParseErrors(f.errs[0]))
	assert.False(t, onlyParseErrors(errors.Join(f.errs[0], errors.New("other"))))
}

func TestCloseRemovesEverything(t *testing.T) {
	f := newFixture(t)
	f.entity(t, "a", map[string]any{"material": ""})
	f.Play()
	f.journal.reset()

	require.NoError(t, f.Close())
	assert.Equal(t, []string{"remove:a.material"}, f.journal.calls)
	assert.False(t, f.IsPlaying())

	// Mixin changes no longer reach the scene.
	require.NoError(t, f.Mixins().Define("late", map[string]any{"material": ""}))
}

func TestLateRegistrationAttachesPendingAttributes(t *testing.T) {
	f := newFixture(t)
	e := f.entity(t, "lamp", map[string]any{"glow": "0.5"})
	_, ok := e.Component("glow")
	assert.False(t, ok)
	raw, _ := e.Attribute("glow")
	assert.Equal(t, "0.5", raw)

	_, err := f.Components().Register("glow", f.journal.definition(schema.Property{Type: "number"}))
	require.NoError(t, err)
	f.journal.reset()
	f.Tick(time.Second, time.Second)

	_, ok = e.Component("glow")
	require.True(t, ok)
	assert.Equal(t, 0.5, e.Data("glow"))
	assert.Equal(t, []string{"init:lamp.glow", "update:lamp.glow"}, f.journal.calls)

	f.journal.reset()
	f.Refresh()
	assert.Empty(t, f.journal.calls)
	assert.Empty(t, f.errs)
}
