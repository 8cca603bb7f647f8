package scene

import (
	"errors"

	"github.com/aframevr/aframe-sub002/internal/core/data"
)

var (
	ErrDestroyed        = errors.New("entity destroyed")
	ErrDuplicateID      = errors.New("duplicate entity id")
	ErrNotChild         = errors.New("entity is not a child")
	ErrAttached         = errors.New("entity already has a parent")
	ErrInvalidAttribute = errors.New("invalid attribute")
	ErrDocument         = errors.New("invalid scene document")
)

// onlyParseErrors reports whether every leaf of a (possibly joined) error is a
// property parse failure.
func onlyParseErrors(err error) bool {
	if err == nil {
		return false
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		if _, leaf := err.(*data.PropertyParseError); !leaf {
			for _, e := range joined.Unwrap() {
				if !onlyParseErrors(e) {
					return false
				}
			}
			return true
		}
	}
	return errors.Is(err, data.ErrPropertyParse)
}
