package scene

import (
	"encoding/binary"
	"slices"

	"github.com/cespare/xxhash/v2"

	"github.com/aframevr/aframe-sub002/internal/core/component"
)

// orderCache memoises solved component orders per set of names. The key is a
// fingerprint of the sorted names and the registry version.
type orderCache struct {
	registry *component.Registry
	entries  map[uint64][]string
}

func newOrderCache(r *component.Registry) *orderCache {
	return &orderCache{registry: r, entries: make(map[uint64][]string)}
}

func (o *orderCache) fingerprint(sorted []string) uint64 {
	d := xxhash.New()
	var version [8]byte
	binary.LittleEndian.PutUint64(version[:], o.registry.Version())
	_, _ = d.Write(version[:])
	for _, n := range sorted {
		_, _ = d.WriteString(n)
		_, _ = d.Write([]byte{0})
	}
	return d.Sum64()
}

// names returns the dependency order of a set of component names.
func (o *orderCache) names(names []string) []string {
	sorted := slices.Clone(names)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	key := o.fingerprint(sorted)
	if cached, ok := o.entries[key]; ok {
		return cached
	}
	// Solve from the sorted set so the result does not depend on the order
	// callers happened to list names in.
	solved := o.registry.Order(sorted)
	o.entries[key] = solved
	return solved
}

// attrs orders attribute names (name or name__id) by the order of their
// component names; instances of one component sort by id, the unnamed
// instance first.
func (o *orderCache) attrs(attrs []string) []string {
	if len(attrs) == 0 {
		return nil
	}
	bases := make([]string, len(attrs))
	for i, a := range attrs {
		bases[i], _ = component.SplitName(a)
	}
	rank := make(map[string]int, len(bases))
	for i, n := range o.names(bases) {
		rank[n] = i
	}

	out := slices.Clone(attrs)
	slices.SortStableFunc(out, func(a, b string) int {
		an, aid := component.SplitName(a)
		bn, bid := component.SplitName(b)
		if d := rank[an] - rank[bn]; d != 0 {
			return d
		}
		switch {
		case aid < bid:
			return -1
		case aid > bid:
			return 1
		}
		return 0
	})
	return out
}

func (o *orderCache) len() int { return len(o.entries) }
