// Package schema normalises component property declarations into a canonical
// single-property or multi-property Schema bound to registered property types.
package schema

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/aframevr/aframe-sub002/internal/core/schema/proptype"
)

// Property is the raw declaration of one property.
type Property struct {
	Type    string
	Default any
	// OneOf restricts string values to an enumeration.
	OneOf []string
}

// Field is a named Property inside an ordered multi-property declaration.
type Field struct {
	Name string
	Property
}

// Fields declares a multi-property schema whose order is kept for
// stringification.
type Fields []Field

// Def is a processed property bound to its type.
type Def struct {
	Name    string
	Type    proptype.Type
	Default any
	OneOf   []string
}

// Parse converts a raw leaf and enforces OneOf.
func (d *Def) Parse(raw string) (any, error) {
	v, err := d.Type.Parse(raw, d.Default)
	if err != nil {
		return nil, err
	}
	return d.checkOneOf(v)
}

// Coerce accepts a raw leaf of any shape.
func (d *Def) Coerce(value any) (any, error) {
	v, err := d.Type.Coerce(value, d.Default)
	if err != nil {
		return nil, err
	}
	return d.checkOneOf(v)
}

func (d *Def) Stringify(value any) string {
	return d.Type.Stringify(value)
}

func (d *Def) checkOneOf(v any) (any, error) {
	if len(d.OneOf) == 0 {
		return v, nil
	}
	s := d.Type.Stringify(v)
	if !slices.Contains(d.OneOf, s) {
		return nil, fmt.Errorf("%w: %q is not one of [%s]", proptype.ErrInvalidValue, s, strings.Join(d.OneOf, ", "))
	}
	return v, nil
}

// Schema is the canonical form of a component's property declaration.
type Schema struct {
	single *Def
	fields []*Def
	index  map[string]int
}

func (s *Schema) IsSingle() bool { return s.single != nil }

// Single returns the property of a single-property schema.
func (s *Schema) Single() *Def { return s.single }

// Fields returns the sub-properties in declaration order.
func (s *Schema) Fields() []*Def { return s.fields }

func (s *Schema) Field(name string) (*Def, bool) {
	i, ok := s.index[name]
	if !ok {
		return nil, false
	}
	return s.fields[i], true
}

func (s *Schema) Keys() []string {
	keys := make([]string, len(s.fields))
	for i, f := range s.fields {
		keys[i] = f.Name
	}
	return keys
}

// Default returns the schema's default data: the scalar default of a
// single-property schema, or a fresh map of every key's default.
func (s *Schema) Default() any {
	if s.single != nil {
		return s.single.Default
	}
	out := make(map[string]any, len(s.fields))
	for _, f := range s.fields {
		out[f.Name] = f.Default
	}
	return out
}

// Stringify renders built data in attribute syntax. Multi-property data is
// written as "key: value; ..." in schema order.
func (s *Schema) Stringify(data any) string {
	if s.single != nil {
		return s.single.Stringify(data)
	}
	values, _ := data.(map[string]any)
	if values == nil {
		if m, ok := data.(interface{ Map() map[string]any }); ok {
			values = m.Map()
		}
	}
	parts := make([]string, 0, len(s.fields))
	for _, f := range s.fields {
		v, ok := values[f.Name]
		if !ok {
			continue
		}
		parts = append(parts, f.Name+": "+f.Stringify(v))
	}
	return strings.Join(parts, "; ")
}

// Extend returns a new schema holding the fields of s plus the fields of
// extra; fields of extra replace existing fields of the same name.
func (s *Schema) Extend(extra *Schema) (*Schema, error) {
	if s.single != nil || extra.single != nil {
		return nil, fmt.Errorf("%w: only multi-property schemas can be extended", ErrSchema)
	}
	out := &Schema{index: make(map[string]int, len(s.fields)+len(extra.fields))}
	for _, f := range s.fields {
		out.add(f)
	}
	for _, f := range extra.fields {
		out.add(f)
	}
	return out, nil
}

// Equal reports whether two schemas declare the same keys with the same types
// and defaults.
func (s *Schema) Equal(o *Schema) bool {
	if s == o {
		return true
	}
	if s == nil || o == nil || s.IsSingle() != o.IsSingle() {
		return false
	}
	if s.single != nil {
		return sameDef(s.single, o.single)
	}
	if len(s.fields) != len(o.fields) {
		return false
	}
	for i := range s.fields {
		if !sameDef(s.fields[i], o.fields[i]) {
			return false
		}
	}
	return true
}

func sameDef(a, b *Def) bool {
	return a.Name == b.Name && a.Type.Name == b.Type.Name &&
		proptype.Equal(a.Default, b.Default) && slices.Equal(a.OneOf, b.OneOf)
}

func (s *Schema) add(d *Def) {
	if i, ok := s.index[d.Name]; ok {
		s.fields[i] = d
		return
	}
	s.index[d.Name] = len(s.fields)
	s.fields = append(s.fields, d)
}

// Process normalises a raw declaration. Accepted forms:
//
//   - Property, *Property or a bare type name: single-property
//   - map[string]any with a top-level "type" or "default": single-property
//   - map[string]any otherwise, Fields or map[string]Property: multi-property
//   - any other value: single-property whose default is that value
func Process(raw any, types *proptype.Registry) (*Schema, error) {
	switch v := raw.(type) {
	case nil:
		return nil, fmt.Errorf("%w: empty declaration", ErrSchema)
	case Fields:
		return processFields(v, types)
	case map[string]Property:
		names := sortedKeys(v)
		fields := make(Fields, len(names))
		for i, name := range names {
			fields[i] = Field{Name: name, Property: v[name]}
		}
		return processFields(fields, types)
	case map[string]any:
		if isSingleMap(v) {
			p, err := propertyFromMap(v)
			if err != nil {
				return nil, err
			}
			return processSingle(p, types)
		}
		names := sortedKeys(v)
		fields := make(Fields, 0, len(names))
		for _, name := range names {
			p, err := propertyFrom(v[name])
			if err != nil {
				return nil, fmt.Errorf("%w: property %q: %w", ErrSchema, name, err)
			}
			fields = append(fields, Field{Name: name, Property: p})
		}
		return processFields(fields, types)
	default:
		p, err := propertyFrom(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrSchema, err)
		}
		return processSingle(p, types)
	}
}

func processSingle(p Property, types *proptype.Registry) (*Schema, error) {
	d, err := resolve("", p, types)
	if err != nil {
		return nil, err
	}
	return &Schema{single: d}, nil
}

func processFields(fields Fields, types *proptype.Registry) (*Schema, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: no properties declared", ErrSchema)
	}
	s := &Schema{index: make(map[string]int, len(fields))}
	for _, f := range fields {
		if f.Name == "" {
			return nil, fmt.Errorf("%w: unnamed property", ErrSchema)
		}
		if _, dup := s.index[f.Name]; dup {
			return nil, fmt.Errorf("%w: property %q declared twice", ErrSchema, f.Name)
		}
		d, err := resolve(f.Name, f.Property, types)
		if err != nil {
			return nil, err
		}
		s.add(d)
	}
	return s, nil
}

// resolve binds a property to its type and normalises its default through the
// type's own parser.
func resolve(name string, p Property, types *proptype.Registry) (*Def, error) {
	typeName := p.Type
	if typeName == "" {
		typeName = proptype.InferName(p.Default)
	}
	typ, err := types.Get(typeName)
	if err != nil {
		return nil, fmt.Errorf("%w: property %q: %w", ErrSchema, name, err)
	}
	d := &Def{Name: name, Type: typ, Default: typ.Default, OneOf: p.OneOf}
	if p.Default != nil {
		def, err := typ.Coerce(p.Default, typ.Default)
		if err != nil {
			return nil, fmt.Errorf("%w: property %q: default: %w", ErrSchema, name, err)
		}
		d.Default = def
	} else if len(p.OneOf) > 0 {
		def, err := typ.Parse(p.OneOf[0], typ.Default)
		if err != nil {
			return nil, fmt.Errorf("%w: property %q: oneOf: %w", ErrSchema, name, err)
		}
		d.Default = def
	}
	if _, err := d.checkOneOf(d.Default); err != nil {
		return nil, fmt.Errorf("%w: property %q: %w", ErrSchema, name, err)
	}
	return d, nil
}

func propertyFrom(raw any) (Property, error) {
	switch v := raw.(type) {
	case Property:
		return v, nil
	case *Property:
		if v == nil {
			return Property{}, errors.New("nil property")
		}
		return *v, nil
	case map[string]any:
		for _, nested := range v {
			if _, ok := nested.(map[string]any); ok {
				return Property{}, errors.New("nested multi-property declarations are not supported")
			}
		}
		return propertyFromMap(v)
	case string:
		return Property{Type: v}, nil
	default:
		return Property{Default: v}, nil
	}
}

func isSingleMap(m map[string]any) bool {
	for _, key := range []string{"type", "default"} {
		if v, ok := m[key]; ok {
			if _, nested := v.(map[string]any); !nested {
				return true
			}
		}
	}
	return false
}

func propertyFromMap(m map[string]any) (Property, error) {
	var p Property
	if t, ok := m["type"]; ok {
		s, ok := t.(string)
		if !ok {
			return p, fmt.Errorf("%w: type must be a string, got %T", ErrSchema, t)
		}
		p.Type = s
	}
	p.Default = m["default"]
	if raw, ok := m["oneOf"]; ok {
		switch list := raw.(type) {
		case []string:
			p.OneOf = list
		case []any:
			for _, item := range list {
				p.OneOf = append(p.OneOf, fmt.Sprint(item))
			}
		default:
			return p, fmt.Errorf("%w: oneOf must be a list, got %T", ErrSchema, raw)
		}
	}
	return p, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
