package component

import (
	"strings"
	"time"
)

// Separator splits an attribute name into component name and instance id
// ("sound__click"). It is reserved and may not appear in component names.
const Separator = "__"

// Dependencies constrains the relative init and tick order of components.
type Dependencies struct {
	// Before lists components this one must run ahead of.
	Before []string
	// After lists components this one must run behind.
	After []string
}

// Definition is the registration-time description of a component. Every hook
// is optional; a nil hook is simply skipped.
type Definition struct {
	// Schema is any raw form accepted by schema.Process.
	Schema any

	Init   func(c *Instance) error
	Update func(c *Instance, oldData any) error
	Tick   func(c *Instance, t, dt time.Duration) error
	Play   func(c *Instance) error
	Pause  func(c *Instance) error
	Remove func(c *Instance) error

	// UpdateSchema runs before every update with the tentative data. A non-nil
	// result is processed and extends the registered schema for this instance.
	UpdateSchema func(c *Instance, data any) (any, error)

	Dependencies Dependencies
	// Requires names components attached alongside this one and initialised
	// before it.
	Requires []string
	// Multiple allows several instances per entity, addressed as name__id.
	Multiple bool
}

// SplitName splits an attribute name into component name and instance id.
func SplitName(attr string) (name, id string) {
	name, id, _ = strings.Cut(attr, Separator)
	return name, id
}

// JoinName is the inverse of SplitName.
func JoinName(name, id string) string {
	if id == "" {
		return name
	}
	return name + Separator + id
}
