package proptype

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

func builtins() []Type {
	return []Type{
		{Name: "boolean", Parse: parseBool, Stringify: stringifyBool, Default: false},
		{Name: "number", Parse: parseNumber, Stringify: stringifyNumber, Default: float64(0)},
		{Name: "int", Parse: parseInt, Stringify: stringifyInt, Default: 0},
		{Name: "time", Parse: parseTime, Stringify: stringifyTime, Default: time.Duration(0)},
		{Name: "string", Parse: parseString, Stringify: stringifyAny, Default: ""},
		{Name: "array", Parse: parseArray, Stringify: stringifyArray, Default: []string{}},
		{Name: "color", Parse: parseColor, Stringify: stringifyAny, Default: "#fff"},
		{Name: "vec2", Parse: parseVec2, Stringify: stringifyVec, Default: Vec2{}},
		{Name: "vec3", Parse: parseVec3, Stringify: stringifyVec, Default: Vec3{}},
		{Name: "vec4", Parse: parseVec4, Stringify: stringifyVec, Default: Vec4{}},
		{Name: "selector", Parse: parseSelector, Stringify: stringifyAny, Default: Selector("")},
		{Name: "selectorAll", Parse: parseSelectorAll, Stringify: stringifySelectorAll, Default: []Selector{}},
		{Name: "asset", Parse: parseSource, Stringify: stringifySource, Default: Source{}},
		{Name: "audio", Parse: parseSource, Stringify: stringifySource, Default: Source{}},
		{Name: "map", Parse: parseSource, Stringify: stringifySource, Default: Source{}},
		{Name: "model", Parse: parseSource, Stringify: stringifySource, Default: Source{}},
	}
}

func parseBool(raw string, _ any) (any, error) {
	b, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %q is not a boolean", ErrInvalidValue, raw)
	}
	return b, nil
}

func stringifyBool(v any) string {
	if b, ok := v.(bool); ok {
		return strconv.FormatBool(b)
	}
	return fmt.Sprint(v)
}

func parseNumber(raw string, _ any) (any, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("%w: %q is not a number", ErrInvalidValue, raw)
	}
	return f, nil
}

func stringifyNumber(v any) string {
	if f, ok := toFloat(v); ok {
		return formatFloat(f)
	}
	return fmt.Sprint(v)
}

func parseInt(raw string, _ any) (any, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %q is not an integer", ErrInvalidValue, raw)
	}
	return n, nil
}

func stringifyInt(v any) string {
	if f, ok := toFloat(v); ok && f == math.Trunc(f) {
		return strconv.FormatInt(int64(f), 10)
	}
	return fmt.Sprint(v)
}

// time values are whole milliseconds.
func parseTime(raw string, _ any) (any, error) {
	ms, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %q is not a millisecond count", ErrInvalidValue, raw)
	}
	return time.Duration(ms) * time.Millisecond, nil
}

func stringifyTime(v any) string {
	switch d := v.(type) {
	case time.Duration:
		return strconv.FormatInt(d.Milliseconds(), 10)
	default:
		return stringifyInt(v)
	}
}

func parseString(raw string, _ any) (any, error) {
	return raw, nil
}

func stringifyAny(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case fmt.Stringer:
		return s.String()
	default:
		return fmt.Sprint(v)
	}
}

func parseArray(raw string, _ any) (any, error) {
	return splitList(raw), nil
}

func stringifyArray(v any) string {
	switch items := v.(type) {
	case []string:
		return strings.Join(items, ", ")
	case []any:
		parts := make([]string, len(items))
		for i, item := range items {
			parts[i] = stringifyAny(item)
		}
		return strings.Join(parts, ", ")
	default:
		return stringifyAny(v)
	}
}

func splitList(raw string) []string {
	out := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	case uint32:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
