package scene

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// Document is the declarative form of a scene: mixin definitions and an
// entity tree. It decodes from YAML or JSON:
//
//	mixins:
//	  red: {material: "color: red"}
//	entities:
//	  - id: box
//	    mixin: red
//	    components:
//	      position: 1 2 3
//	      material: {opacity: 0.5}
//	    children: []
type Document struct {
	Mixins   map[string]map[string]any `yaml:"mixins,omitempty" json:"mixins,omitempty"`
	Entities []EntityDoc               `yaml:"entities,omitempty" json:"entities,omitempty"`
}

type EntityDoc struct {
	ID         string         `yaml:"id,omitempty" json:"id,omitempty"`
	Mixin      string         `yaml:"mixin,omitempty" json:"mixin,omitempty"`
	Components map[string]any `yaml:"components,omitempty" json:"components,omitempty"`
	Children   []EntityDoc    `yaml:"children,omitempty" json:"children,omitempty"`
}

func LoadYAML(r io.Reader) (*Document, error) {
	var doc Document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && err != io.EOF {
		return nil, fmt.Errorf("%w: %w", ErrDocument, err)
	}
	return &doc, nil
}

func LoadJSON(r io.Reader) (*Document, error) {
	var doc Document
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDocument, err)
	}
	return &doc, nil
}

// LoadFile decodes a document chosen by extension: .json is JSON, everything
// else YAML.
func LoadFile(path string) (*Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc *Document
	if strings.EqualFold(filepath.Ext(path), ".json") {
		doc, err = LoadJSON(bytes.NewReader(raw))
	} else {
		doc, err = LoadYAML(bytes.NewReader(raw))
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// Apply defines the document's mixins and appends its entities under the
// scene root. Mixins are defined first so entities initialise with them.
func (d *Document) Apply(s *Scene) error {
	for _, id := range slices.Sorted(maps.Keys(d.Mixins)) {
		if err := s.mixins.Define(id, normalize(d.Mixins[id])); err != nil {
			return fmt.Errorf("mixin %q: %w", id, err)
		}
	}
	for i := range d.Entities {
		e, err := d.Entities[i].build(s)
		if err != nil {
			return err
		}
		if err := s.root.AppendChild(e); err != nil {
			return err
		}
	}
	return nil
}

// build creates the detached subtree of one entity document.
func (d *EntityDoc) build(s *Scene) (*Entity, error) {
	e := s.CreateEntity(d.ID)
	if d.Mixin != "" {
		if err := e.SetMixins(strings.Fields(d.Mixin)...); err != nil {
			return nil, err
		}
	}
	for _, attr := range slices.Sorted(maps.Keys(d.Components)) {
		if attr == AttrID || attr == AttrMixin {
			return nil, fmt.Errorf("%w: entity %q: %q belongs outside components", ErrDocument, e.id, attr)
		}
		if err := e.SetAttribute(attr, normalizeValue(d.Components[attr])); err != nil {
			return nil, err
		}
	}
	for i := range d.Children {
		child, err := d.Children[i].build(s)
		if err != nil {
			return nil, err
		}
		if err := e.AppendChild(child); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// Snapshot renders the scene back into a document. Component values are
// written in attribute syntax from their built data; other attributes keep
// their raw value.
func Snapshot(s *Scene) *Document {
	doc := &Document{}
	for _, id := range s.mixins.IDs() {
		m, _ := s.mixins.Get(id)
		if doc.Mixins == nil {
			doc.Mixins = make(map[string]map[string]any)
		}
		doc.Mixins[id] = maps.Clone(m.Data)
	}
	for _, child := range s.root.children {
		doc.Entities = append(doc.Entities, snapshotEntity(child))
	}
	return doc
}

func snapshotEntity(e *Entity) EntityDoc {
	d := EntityDoc{ID: e.id, Mixin: strings.Join(e.mixins, " ")}
	if len(e.attrs) > 0 || len(e.components) > 0 {
		d.Components = make(map[string]any, len(e.attrs)+len(e.components))
	}
	for attr, raw := range e.attrs {
		d.Components[attr] = raw
	}
	for _, c := range e.Components() {
		d.Components[c.Attr()] = c.Stringify()
	}
	for _, child := range e.children {
		d.Children = append(d.Children, snapshotEntity(child))
	}
	return d
}

// YAML encodes the document.
func (d *Document) YAML() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(d); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func normalize(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = normalizeValue(v)
	}
	return out
}

// normalizeValue turns decoded document values into raw attribute values:
// strings stay, maps become property maps, and scalars are written out as
// attribute strings so every leaf parses through its property type.
func normalizeValue(v any) any {
	switch vv := v.(type) {
	case nil, string:
		return vv
	case map[string]any:
		props := make(map[string]any, len(vv))
		for k, p := range vv {
			props[k] = scalarString(p)
		}
		return props
	default:
		return scalarString(vv)
	}
}

func scalarString(v any) any {
	switch vv := v.(type) {
	case string:
		return vv
	case []any:
		parts := make([]string, len(vv))
		for i, item := range vv {
			parts[i] = fmt.Sprint(item)
		}
		return strings.Join(parts, ", ")
	case map[string]any:
		return vv
	default:
		return fmt.Sprint(vv)
	}
}
