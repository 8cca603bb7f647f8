package proptype

import (
	"fmt"
	"strings"
)

// Selector is an opaque reference to a single entity. "#id" addresses an
// entity by id; resolution is left to the scene.
type Selector string

// ID returns the entity id addressed by an "#id" selector.
func (s Selector) ID() (string, bool) {
	if strings.HasPrefix(string(s), "#") && len(s) > 1 {
		return string(s[1:]), true
	}
	return "", false
}

func (s Selector) String() string { return string(s) }

// Source is a typed reference to an external resource: either a URL or a
// selector pointing at an asset entity.
type Source struct {
	URL string
	Ref Selector
}

func (s Source) IsZero() bool { return s.URL == "" && s.Ref == "" }

func (s Source) String() string {
	if s.Ref != "" {
		return string(s.Ref)
	}
	return s.URL
}

func parseSelector(raw string, _ any) (any, error) {
	s := strings.TrimSpace(raw)
	if strings.Contains(s, ",") {
		return nil, fmt.Errorf("%w: %q names more than one entity", ErrInvalidValue, raw)
	}
	return Selector(s), nil
}

func parseSelectorAll(raw string, _ any) (any, error) {
	parts := splitList(raw)
	out := make([]Selector, len(parts))
	for i, p := range parts {
		out[i] = Selector(p)
	}
	return out, nil
}

func stringifySelectorAll(v any) string {
	switch sels := v.(type) {
	case []Selector:
		parts := make([]string, len(sels))
		for i, s := range sels {
			parts[i] = string(s)
		}
		return strings.Join(parts, ", ")
	default:
		return stringifyArray(v)
	}
}

// parseSource accepts url(...), a bare URL or an "#id" asset reference.
func parseSource(raw string, _ any) (any, error) {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "url(") {
		if !strings.HasSuffix(s, ")") {
			return nil, fmt.Errorf("%w: unterminated url(...) in %q", ErrInvalidValue, raw)
		}
		s = strings.Trim(strings.TrimSpace(s[4:len(s)-1]), `"'`)
		return Source{URL: s}, nil
	}
	if strings.HasPrefix(s, "#") {
		return Source{Ref: Selector(s)}, nil
	}
	return Source{URL: s}, nil
}

func stringifySource(v any) string {
	return stringifyAny(v)
}
