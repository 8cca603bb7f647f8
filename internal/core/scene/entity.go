package scene

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/aframevr/aframe-sub002/internal/core/component"
	"github.com/aframevr/aframe-sub002/internal/core/data"
	"github.com/aframevr/aframe-sub002/internal/core/observability/log"
)

// Entity attributes that are not components.
const (
	AttrID    = "id"
	AttrMixin = "mixin"
)

// Entity is a node of the scene tree. Its raw attributes and mixin list are
// the inputs; its component instances are derived from them.
type Entity struct {
	id    string
	scene *Scene

	parent   *Entity
	children []*Entity

	mixins []string
	attrs  map[string]any

	components map[string]*component.Instance
	order      []string

	loaded    bool
	playing   bool
	destroyed bool
}

func newEntity(s *Scene, id string) *Entity {
	return &Entity{
		id:         id,
		scene:      s,
		attrs:      make(map[string]any),
		components: make(map[string]*component.Instance),
	}
}

func (e *Entity) ID() string          { return e.id }
func (e *Entity) Scene() *Scene       { return e.scene }
func (e *Entity) Parent() *Entity     { return e.parent }
func (e *Entity) Children() []*Entity { return slices.Clone(e.children) }
func (e *Entity) Mixins() []string    { return slices.Clone(e.mixins) }
func (e *Entity) IsPlaying() bool     { return e.playing }
func (e *Entity) Loaded() bool        { return e.loaded }
func (e *Entity) Destroyed() bool     { return e.destroyed }

// RawAttribute returns the entity's own raw value for an attribute.
func (e *Entity) RawAttribute(attr string) (any, bool) {
	v, ok := e.attrs[attr]
	return v, ok
}

// MixinValues returns what the entity's mixins supply for attr, lowest
// precedence first.
func (e *Entity) MixinValues(attr string) []any {
	return e.scene.mixins.Values(e.mixins, attr)
}

// AttributeNames returns the names of the entity's own raw attributes, sorted.
func (e *Entity) AttributeNames() []string {
	return slices.Sorted(maps.Keys(e.attrs))
}

// Component returns the instance attached under an attribute name.
func (e *Entity) Component(attr string) (*component.Instance, bool) {
	c, ok := e.components[attr]
	return c, ok
}

// Components returns the attached instances in dependency order.
func (e *Entity) Components() []*component.Instance {
	out := make([]*component.Instance, 0, len(e.order))
	for _, attr := range e.order {
		if c, ok := e.components[attr]; ok {
			out = append(out, c)
		}
	}
	return out
}

// Data returns the built data of an attached component, or nil.
func (e *Entity) Data(attr string) any {
	if c, ok := e.components[attr]; ok {
		return c.Data()
	}
	return nil
}

// Attribute returns the built data for component attributes and the raw
// value for everything else.
func (e *Entity) Attribute(attr string) (any, bool) {
	switch attr {
	case AttrID:
		return e.id, true
	case AttrMixin:
		return strings.Join(e.mixins, " "), len(e.mixins) > 0
	}
	if c, ok := e.components[attr]; ok {
		return c.Data(), true
	}
	return e.RawAttribute(attr)
}

// SetAttribute replaces the entity's raw value for attr. The value is an
// attribute string, or a map of property values for multi-property
// components. Setting "mixin" replaces the mixin list.
func (e *Entity) SetAttribute(attr string, raw any) error {
	if err := e.mutable(); err != nil {
		return err
	}
	switch attr {
	case "":
		return fmt.Errorf("%w: empty name", ErrInvalidAttribute)
	case AttrID:
		return fmt.Errorf("%w: the id of %q cannot change", ErrInvalidAttribute, e.id)
	case AttrMixin:
		ids, err := mixinList(raw)
		if err != nil {
			return err
		}
		return e.SetMixins(ids...)
	}
	e.checkMultiple(attr)
	e.attrs[attr] = raw
	e.reconcile(false, attr)
	return nil
}

// SetProperty merges one property into the entity's raw value of a
// multi-property component, leaving its other explicitly set properties in
// place. An empty key sets the whole value.
func (e *Entity) SetProperty(attr, key string, value any) error {
	if key == "" {
		return e.SetAttribute(attr, value)
	}
	if err := e.mutable(); err != nil {
		return err
	}
	if attr == AttrID || attr == AttrMixin || attr == "" {
		return fmt.Errorf("%w: %q has no properties", ErrInvalidAttribute, attr)
	}
	if c, ok := e.components[attr]; ok && c.Schema().IsSingle() {
		return fmt.Errorf("%w: %q is a single-property component", ErrInvalidAttribute, attr)
	}
	merged := explicitMap(e.attrs[attr])
	merged[key] = value
	e.checkMultiple(attr)
	e.attrs[attr] = merged
	e.reconcile(false, attr)
	return nil
}

// ResetProperty drops one explicitly set property so that mixins and the
// schema default apply again. An empty key removes the whole attribute.
func (e *Entity) ResetProperty(attr, key string) error {
	if key == "" {
		return e.RemoveAttribute(attr)
	}
	if err := e.mutable(); err != nil {
		return err
	}
	raw, ok := e.attrs[attr]
	if !ok {
		return nil
	}
	merged := explicitMap(raw)
	if _, set := merged[key]; !set {
		return nil
	}
	delete(merged, key)
	e.attrs[attr] = merged
	e.reconcile(false, attr)
	return nil
}

// RemoveAttribute drops the entity's raw value. The instance is removed when
// no mixin, scene default or Requires list still names it; otherwise it is
// rebuilt from its remaining sources.
func (e *Entity) RemoveAttribute(attr string) error {
	if err := e.mutable(); err != nil {
		return err
	}
	if attr == AttrMixin {
		return e.SetMixins()
	}
	if _, ok := e.attrs[attr]; !ok {
		return nil
	}
	delete(e.attrs, attr)
	e.reconcile(false, attr)
	return nil
}

// SetMixins replaces the ordered mixin list; later ids take precedence.
// Duplicate ids keep their last position.
func (e *Entity) SetMixins(ids ...string) error {
	if err := e.mutable(); err != nil {
		return err
	}
	next := dedupeLast(ids)
	if slices.Equal(next, e.mixins) {
		return nil
	}
	affected := e.mixinComponents(e.mixins)
	e.mixins = next
	affected = append(affected, e.mixinComponents(next)...)
	e.reconcile(false, affected...)
	return nil
}

func (e *Entity) AddMixin(id string) error {
	if slices.Contains(e.mixins, id) {
		return nil
	}
	return e.SetMixins(append(slices.Clone(e.mixins), id)...)
}

func (e *Entity) RemoveMixin(id string) error {
	if !slices.Contains(e.mixins, id) {
		return nil
	}
	return e.SetMixins(slices.DeleteFunc(slices.Clone(e.mixins), func(m string) bool { return m == id })...)
}

// AppendChild attaches a detached entity. When e is part of the scene the
// child and its subtree load: ids are claimed, components initialise and,
// under a playing parent, start playing.
func (e *Entity) AppendChild(child *Entity) error {
	if err := e.mutable(); err != nil {
		return err
	}
	if err := child.mutable(); err != nil {
		return err
	}
	if child.parent != nil || child == e.scene.root {
		return fmt.Errorf("%w: %q", ErrAttached, child.id)
	}
	if child.scene != e.scene {
		return fmt.Errorf("%w: %q belongs to another scene", ErrInvalidAttribute, child.id)
	}
	for p := e; p != nil; p = p.parent {
		if p == child {
			return fmt.Errorf("%w: %q cannot contain itself", ErrInvalidAttribute, child.id)
		}
	}
	if e.loaded {
		var dup error
		child.walk(func(n *Entity) {
			if _, taken := e.scene.byID[n.id]; taken && dup == nil {
				dup = fmt.Errorf("%w: %q", ErrDuplicateID, n.id)
			}
		})
		if dup != nil {
			return dup
		}
	}

	child.parent = e
	e.children = append(e.children, child)
	if e.loaded {
		child.attachTo(e)
	}
	return nil
}

// RemoveChild detaches a child. The child's subtree unloads: every instance is
// removed, deepest entities first. The detached entity keeps its attributes
// and can be appended again.
func (e *Entity) RemoveChild(child *Entity) error {
	i := slices.Index(e.children, child)
	if i < 0 {
		return fmt.Errorf("%w: %q under %q", ErrNotChild, child.id, e.id)
	}
	child.unload()
	e.children = slices.Delete(e.children, i, i+1)
	child.parent = nil
	return nil
}

// Destroy detaches the entity and its subtree and makes every later mutation
// fail with ErrDestroyed.
func (e *Entity) Destroy() {
	if e.destroyed || e == e.scene.root {
		return
	}
	if e.parent != nil {
		_ = e.parent.RemoveChild(e)
	}
	e.walk(func(n *Entity) { n.destroyed = true })
}

// Play starts the entity's instances in dependency order, then its children.
func (e *Entity) Play() {
	if !e.loaded || e.playing || e.destroyed {
		return
	}
	e.playing = true
	for _, c := range e.Components() {
		e.scene.report(e, c.Attr(), c.Play())
	}
	for _, child := range slices.Clone(e.children) {
		child.Play()
	}
}

func (e *Entity) Pause() {
	if !e.playing {
		return
	}
	e.playing = false
	for _, c := range e.Components() {
		e.scene.report(e, c.Attr(), c.Pause())
	}
	for _, child := range slices.Clone(e.children) {
		child.Pause()
	}
}

func (e *Entity) String() string { return e.id }

func (e *Entity) mutable() error {
	if e.destroyed {
		return fmt.Errorf("%w: %q", ErrDestroyed, e.id)
	}
	return nil
}

func (e *Entity) walk(fn func(*Entity)) {
	fn(e)
	for _, child := range e.children {
		child.walk(fn)
	}
}

// attachTo loads e and its subtree under parent (nil for the root).
func (e *Entity) attachTo(parent *Entity) {
	e.scene.byID[e.id] = e
	e.loaded = true
	e.reconcile(true)
	e.scene.publish(EventEntityLoaded, e)
	for _, child := range slices.Clone(e.children) {
		child.attachTo(e)
	}
	if parent != nil && parent.playing {
		e.Play()
	}
}

// unload removes every instance of the subtree, children before parents and
// each entity's instances in reverse dependency order.
func (e *Entity) unload() {
	if !e.loaded {
		return
	}
	for _, child := range slices.Backward(slices.Clone(e.children)) {
		child.unload()
	}
	e.Pause()
	for _, attr := range slices.Backward(slices.Clone(e.order)) {
		e.removeInstance(attr)
	}
	e.order = nil
	e.loaded = false
	delete(e.scene.byID, e.id)
	e.scene.publish(EventEntityRemoved, e)
}

// reconcile brings the attached instances in line with the entity's sources.
// New instances are created and built; existing instances named in dirty (or
// every instance when all is set) are rebuilt. Instances no source names any
// longer are removed first, in reverse dependency order.
func (e *Entity) reconcile(all bool, dirty ...string) {
	if !e.loaded {
		return
	}
	want := e.desired()

	var gone []string
	for attr := range e.components {
		if !want[attr] {
			gone = append(gone, attr)
		}
	}
	for _, attr := range slices.Backward(e.scene.order.attrs(gone)) {
		e.removeInstance(attr)
	}

	update := make(map[string]bool, len(dirty))
	for _, attr := range dirty {
		update[attr] = true
	}
	for attr := range want {
		if _, ok := e.components[attr]; ok {
			continue
		}
		name, id := component.SplitName(attr)
		def, _ := e.scene.components.Get(name)
		e.components[attr] = component.NewInstance(def, id, e, e.scene.env)
		update[attr] = true
	}
	e.order = e.scene.order.attrs(slices.Collect(maps.Keys(e.components)))

	for _, attr := range slices.Clone(e.order) {
		if !all && !update[attr] {
			continue
		}
		// A hook run earlier in this pass may have removed it.
		c, ok := e.components[attr]
		if !ok || c.Removed() {
			continue
		}
		e.scene.report(e, attr, c.UpdateProperties())
		if e.playing {
			e.scene.report(e, attr, c.Play())
		}
	}
}

func (e *Entity) removeInstance(attr string) {
	c, ok := e.components[attr]
	if !ok {
		return
	}
	delete(e.components, attr)
	e.order = slices.DeleteFunc(e.order, func(a string) bool { return a == attr })
	e.scene.report(e, attr, c.Remove())
}

// desired returns the attribute names that should have an instance: own
// attributes and mixin-supplied attributes naming a registered component,
// the scene defaults, and the Requires closure of all of them.
func (e *Entity) desired() map[string]bool {
	want := make(map[string]bool)
	var queue []string
	add := func(attr string) {
		if want[attr] || !e.isComponentAttr(attr) {
			return
		}
		want[attr] = true
		queue = append(queue, attr)
	}

	for attr := range e.attrs {
		add(attr)
	}
	for _, attr := range e.mixinComponents(e.mixins) {
		add(attr)
	}
	if e != e.scene.root {
		for _, name := range e.scene.defaults {
			add(name)
		}
	}
	for len(queue) > 0 {
		attr := queue[0]
		queue = queue[1:]
		name, _ := component.SplitName(attr)
		def, _ := e.scene.components.Get(name)
		for _, req := range def.Requires {
			add(req)
		}
	}
	return want
}

func (e *Entity) isComponentAttr(attr string) bool {
	name, id := component.SplitName(attr)
	def, ok := e.scene.components.Get(name)
	if !ok {
		return false
	}
	return id == "" || def.Multiple
}

func (e *Entity) checkMultiple(attr string) {
	name, id := component.SplitName(attr)
	if id == "" {
		return
	}
	if def, ok := e.scene.components.Get(name); ok && !def.Multiple {
		e.scene.log.Warn("component does not allow multiple instances; attribute kept as raw value",
			log.Entity(e.id), log.Component(attr))
	}
}

func (e *Entity) mixinComponents(ids []string) []string {
	var out []string
	for _, id := range ids {
		if m, ok := e.scene.mixins.Get(id); ok {
			out = append(out, m.Components()...)
		}
	}
	return out
}

// explicitMap returns a fresh map holding the properties of a raw value.
func explicitMap(raw any) map[string]any {
	out := make(map[string]any)
	switch v := raw.(type) {
	case string:
		pairs, _ := data.ParseStyle(v)
		for k, val := range pairs {
			out[k] = val
		}
	case map[string]string:
		for k, val := range v {
			out[k] = val
		}
	case data.Values:
		maps.Copy(out, v)
	case map[string]any:
		maps.Copy(out, v)
	}
	return out
}

func mixinList(raw any) ([]string, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case string:
		return strings.Fields(v), nil
	case []string:
		return v, nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%w: mixin id %v is not a string", ErrInvalidAttribute, item)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: mixin list of type %T", ErrInvalidAttribute, raw)
	}
}

func dedupeLast(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	var out []string
	for _, id := range slices.Backward(ids) {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	slices.Reverse(out)
	return out
}
