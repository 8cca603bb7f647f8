package data

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aframevr/aframe-sub002/internal/core/observability/log"
	"github.com/aframevr/aframe-sub002/internal/core/schema"
	"github.com/aframevr/aframe-sub002/internal/core/schema/proptype"
)

func dummySchema(t *testing.T) *schema.Schema {
	t.Helper()
	s, err := schema.Process(schema.Fields{
		{Name: "color", Property: schema.Property{Default: "red"}},
		{Name: "size", Property: schema.Property{Default: 5}},
	}, proptype.NewRegistry())
	require.NoError(t, err)
	return s
}

func TestBuildPrecedence(t *testing.T) {
	b := NewBuilder(log.NewNop())
	s := dummySchema(t)
	cache := NewCache()

	got, err := b.Build(Input{Entity: "e", Component: "dummy", Schema: s, Cache: cache})
	require.NoError(t, err)
	assert.Equal(t, Values{"color": "red", "size": 5.0}, got)

	mixins := []any{"color: blue; size: 10"}
	got, err = b.Build(Input{Entity: "e", Component: "dummy", Schema: s, Mixins: mixins, Cache: cache})
	require.NoError(t, err)
	assert.Equal(t, Values{"color": "blue", "size": 10.0}, got)

	got, err = b.Build(Input{
		Entity: "e", Component: "dummy", Schema: s, Mixins: mixins, Cache: cache,
		Explicit: "color: green", HasExplicit: true,
	})
	require.NoError(t, err)
	assert.Equal(t, Values{"color": "green", "size": 10.0}, got)
}

func TestBuildLaterMixinWins(t *testing.T) {
	b := NewBuilder(log.NewNop())
	got, err := b.Build(Input{
		Component: "dummy", Schema: dummySchema(t),
		Mixins: []any{"color: blue; size: 1", map[string]any{"size": 2}},
	})
	require.NoError(t, err)
	assert.Equal(t, Values{"color": "blue", "size": 2.0}, got)
}

func TestBuildEmptyExplicitUsesDefaultsAndMixins(t *testing.T) {
	b := NewBuilder(log.NewNop())
	got, err := b.Build(Input{
		Component: "dummy", Schema: dummySchema(t),
		Mixins: []any{"size: 3"}, Explicit: "", HasExplicit: true,
	})
	require.NoError(t, err)
	assert.Equal(t, Values{"color": "red", "size": 3.0}, got)
}

func TestBuildParseErrorFallsBack(t *testing.T) {
	b := NewBuilder(log.NewNop())
	got, err := b.Build(Input{
		Entity: "box", Component: "dummy", Schema: dummySchema(t),
		Explicit: "color: green; size: huge", HasExplicit: true,
	})
	assert.Equal(t, Values{"color": "green", "size": 5.0}, got)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPropertyParse)
	var perr *PropertyParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "box", perr.Entity)
	assert.Equal(t, "dummy", perr.Component)
	assert.Equal(t, "size", perr.Key)
	assert.Equal(t, "huge", perr.Raw)
}

func TestBuildUnknownAndBareSegmentsIgnored(t *testing.T) {
	b := NewBuilder(log.NewNop())
	got, err := b.Build(Input{
		Component: "dummy", Schema: dummySchema(t),
		Explicit: "bogus: 1; lonely; size: 7", HasExplicit: true,
	})
	require.NoError(t, err)
	assert.Equal(t, Values{"color": "red", "size": 7.0}, got)
}

func TestBuildSingle(t *testing.T) {
	b := NewBuilder(log.NewNop())
	s, err := schema.Process(schema.Property{Type: "vec3", Default: "0 1 0"}, proptype.NewRegistry())
	require.NoError(t, err)

	got, err := b.Build(Input{Component: "position", Schema: s})
	require.NoError(t, err)
	assert.Equal(t, proptype.Vec3{Y: 1}, got)

	got, err = b.Build(Input{Component: "position", Schema: s, Mixins: []any{"1 2 3"}, Explicit: "", HasExplicit: true})
	require.NoError(t, err)
	assert.Equal(t, proptype.Vec3{X: 1, Y: 2, Z: 3}, got)

	got, err = b.Build(Input{Component: "position", Schema: s, Explicit: map[string]any{"x": 4, "y": 5, "z": 6}, HasExplicit: true})
	require.NoError(t, err)
	assert.Equal(t, proptype.Vec3{X: 4, Y: 5, Z: 6}, got)

	got, err = b.Build(Input{Component: "position", Schema: s, Explicit: "a b c", HasExplicit: true})
	assert.ErrorIs(t, err, ErrPropertyParse)
	assert.Equal(t, proptype.Vec3{Y: 1}, got)
}

func TestCacheReuseAndEviction(t *testing.T) {
	b := NewBuilder(log.NewNop())
	s, err := schema.Process(schema.Fields{
		{Name: "tags", Property: schema.Property{Type: "array"}},
		{Name: "size", Property: schema.Property{Default: 1}},
	}, proptype.NewRegistry())
	require.NoError(t, err)
	cache := NewCache()
	in := Input{Component: "list", Schema: s, Cache: cache, Explicit: "tags: a, b", HasExplicit: true}

	first, err := b.Build(in)
	require.NoError(t, err)
	second, err := b.Build(in)
	require.NoError(t, err)

	a := first.(Values)["tags"].([]string)
	c := second.(Values)["tags"].([]string)
	assert.Same(t, &a[0], &c[0], "cache hit must hand back the same parsed value")
	assert.Equal(t, 1, cache.Len())

	in.Explicit = "tags: c"
	_, err = b.Build(in)
	require.NoError(t, err)
	raw, ok := cache.Raw("tags")
	require.True(t, ok)
	assert.Equal(t, "c", raw)
	assert.Equal(t, 1, cache.Len())

	in.Explicit = "size: 3"
	_, err = b.Build(in)
	require.NoError(t, err)
	_, ok = cache.Raw("tags")
	assert.False(t, ok, "slot for a key without a string source is evicted")
	assert.Equal(t, 1, cache.Len())
}

func TestBuildDefaultsAreNotShared(t *testing.T) {
	b := NewBuilder(log.NewNop())
	s, err := schema.Process(schema.Fields{{Name: "tags", Property: schema.Property{Type: "array", Default: "x, y"}}}, proptype.NewRegistry())
	require.NoError(t, err)

	one, _ := b.Build(Input{Component: "list", Schema: s})
	one.(Values)["tags"].([]string)[0] = "mutated"
	two, _ := b.Build(Input{Component: "list", Schema: s})
	assert.Equal(t, []string{"x", "y"}, two.(Values)["tags"])
}

func TestBuildEmptyListMatchesDefault(t *testing.T) {
	b := NewBuilder(log.NewNop())
	s, err := schema.Process(schema.Fields{
		{Name: "items", Property: schema.Property{Type: "array"}},
		{Name: "targets", Property: schema.Property{Type: "selectorAll"}},
	}, proptype.NewRegistry())
	require.NoError(t, err)

	defaults, err := b.Build(Input{Component: "list", Schema: s})
	require.NoError(t, err)
	assert.Equal(t, []string{}, defaults.(Values)["items"])
	assert.Equal(t, []proptype.Selector{}, defaults.(Values)["targets"])

	explicit, err := b.Build(Input{Component: "list", Schema: s, Explicit: "items: ; targets: ", HasExplicit: true})
	require.NoError(t, err)
	assert.True(t, Equal(defaults, explicit))

	mixed, err := b.Build(Input{Component: "list", Schema: s, Mixins: []any{"items: "}})
	require.NoError(t, err)
	assert.True(t, Equal(defaults, mixed))
}

func TestParseStyle(t *testing.T) {
	pairs, bare := ParseStyle("  color : red ;src: url(http://x/y.png);; alone ")
	assert.Equal(t, map[string]string{"color": "red", "src": "url(http://x/y.png)"}, pairs)
	assert.Equal(t, []string{"alone"}, bare)
	assert.Equal(t, "src: url(http://x/y.png); color: red", FormatStyle(pairs, []string{"src", "missing", "color"}))

	pairs, bare = ParseStyle("")
	assert.Empty(t, pairs)
	assert.Empty(t, bare)
}

func BenchmarkBuildCached(b *testing.B) {
	s, _ := schema.Process(schema.Fields{
		{Name: "color", Property: schema.Property{Type: "color", Default: "red"}},
		{Name: "position", Property: schema.Property{Type: "vec3"}},
	}, proptype.NewRegistry())
	builder := NewBuilder(log.NewNop())
	in := Input{Component: "bench", Schema: s, Cache: NewCache(), Explicit: "color: #abc; position: 1 2 3", HasExplicit: true}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = builder.Build(in)
	}
}
