// Package builtin registers the data-only components every entity carries by
// default.
package builtin

import (
	"errors"

	"github.com/aframevr/aframe-sub002/internal/core/component"
	"github.com/aframevr/aframe-sub002/internal/core/schema"
	"github.com/aframevr/aframe-sub002/internal/core/schema/proptype"
)

const (
	Position = "position"
	Rotation = "rotation"
	Scale    = "scale"
	Visible  = "visible"
)

// Defaults lists the scene default components in registration order.
var Defaults = []string{Position, Rotation, Scale, Visible}

func definitions() map[string]component.Definition {
	return map[string]component.Definition{
		Position: {Schema: schema.Property{Type: "vec3"}},
		// Rotation is in degrees.
		Rotation: {Schema: schema.Property{Type: "vec3"}},
		Scale:    {Schema: schema.Property{Type: "vec3", Default: proptype.Vec3{X: 1, Y: 1, Z: 1}}},
		Visible:  {Schema: schema.Property{Type: "boolean", Default: true}},
	}
}

// Register adds the built-in components. Already registered names fail with
// component.ErrNameConflict unless opts allow overrides; every name is
// attempted and the failures are joined.
func Register(r *component.Registry, opts ...component.RegisterOption) error {
	defs := definitions()
	var errs []error
	for _, name := range Defaults {
		if _, err := r.Register(name, defs[name], opts...); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
