package data

import (
	"maps"
	"time"

	"github.com/aframevr/aframe-sub002/internal/core/schema/proptype"
)

// Values is the built data of a multi-property component. Every key declared
// by the schema is present.
type Values map[string]any

func (v Values) Map() map[string]any { return v }

func (v Values) Clone() Values { return maps.Clone(v) }

func (v Values) String(key string) string {
	s, _ := v[key].(string)
	return s
}

func (v Values) Float(key string) float64 {
	f, _ := v[key].(float64)
	return f
}

func (v Values) Int(key string) int {
	n, _ := v[key].(int)
	return n
}

func (v Values) Bool(key string) bool {
	b, _ := v[key].(bool)
	return b
}

func (v Values) Duration(key string) time.Duration {
	d, _ := v[key].(time.Duration)
	return d
}

func (v Values) Vec3(key string) proptype.Vec3 {
	vec, _ := v[key].(proptype.Vec3)
	return vec
}

func (v Values) Selector(key string) proptype.Selector {
	s, _ := v[key].(proptype.Selector)
	return s
}

// Equal reports whether two built values are deeply equal.
func Equal(a, b any) bool {
	return proptype.Equal(a, b)
}

// cloneValue copies slice defaults so built data never aliases the schema.
// Copies are never nil, matching what parsing an empty list yields.
func cloneValue(v any) any {
	switch vv := v.(type) {
	case []string:
		return append(make([]string, 0, len(vv)), vv...)
	case []proptype.Selector:
		return append(make([]proptype.Selector, 0, len(vv)), vv...)
	default:
		return v
	}
}
