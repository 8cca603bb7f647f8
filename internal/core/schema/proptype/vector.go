package proptype

import (
	"fmt"
	"strconv"
	"strings"
)

// Vector values are plain structs; no math is attached to them.
type (
	Vec2 struct{ X, Y float64 }
	Vec3 struct{ X, Y, Z float64 }
	Vec4 struct{ X, Y, Z, W float64 }
)

func (v Vec2) String() string { return joinFloats(v.X, v.Y) }
func (v Vec3) String() string { return joinFloats(v.X, v.Y, v.Z) }
func (v Vec4) String() string { return joinFloats(v.X, v.Y, v.Z, v.W) }

func parseVec2(raw string, def any) (any, error) {
	c, err := parseComponents(raw, 2, def)
	if err != nil {
		return nil, err
	}
	return Vec2{X: c[0], Y: c[1]}, nil
}

func parseVec3(raw string, def any) (any, error) {
	c, err := parseComponents(raw, 3, def)
	if err != nil {
		return nil, err
	}
	return Vec3{X: c[0], Y: c[1], Z: c[2]}, nil
}

func parseVec4(raw string, def any) (any, error) {
	c, err := parseComponents(raw, 4, def)
	if err != nil {
		return nil, err
	}
	return Vec4{X: c[0], Y: c[1], Z: c[2], W: c[3]}, nil
}

// parseComponents reads up to n whitespace separated numbers. Missing trailing
// components are taken from def.
func parseComponents(raw string, n int, def any) ([]float64, error) {
	out := vecComponents(def, n)
	fields := strings.Fields(raw)
	if len(fields) > n {
		return nil, fmt.Errorf("%w: %q has more than %d components", ErrInvalidValue, raw, n)
	}
	for i, f := range fields {
		v, err := parseNumber(f, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: component %d of %q is not a number", ErrInvalidValue, i, raw)
		}
		out[i] = v.(float64)
	}
	return out, nil
}

func vecComponents(v any, n int) []float64 {
	out := make([]float64, n)
	var src []float64
	switch vv := v.(type) {
	case Vec2:
		src = []float64{vv.X, vv.Y}
	case Vec3:
		src = []float64{vv.X, vv.Y, vv.Z}
	case Vec4:
		src = []float64{vv.X, vv.Y, vv.Z, vv.W}
	case map[string]any:
		for i, key := range []string{"x", "y", "z", "w"} {
			if f, ok := toFloat(vv[key]); ok {
				src = append(src, f)
			} else if i < n {
				src = append(src, 0)
			}
		}
	}
	copy(out, src)
	return out
}

func stringifyVec(v any) string {
	switch vv := v.(type) {
	case Vec2, Vec3, Vec4:
		return vv.(fmt.Stringer).String()
	case map[string]any:
		n := 0
		for i, key := range []string{"x", "y", "z", "w"} {
			if _, ok := vv[key]; ok {
				n = i + 1
			}
		}
		return joinFloats(vecComponents(vv, n)...)
	default:
		return stringifyAny(v)
	}
}

func joinFloats(fs ...float64) string {
	parts := make([]string, len(fs))
	for i, f := range fs {
		parts[i] = strconv.FormatFloat(f, 'f', -1, 64)
	}
	return strings.Join(parts, " ")
}
