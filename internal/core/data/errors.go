package data

import (
	"errors"
	"fmt"
)

var ErrPropertyParse = errors.New("property parse failed")

// PropertyParseError reports a leaf that could not be parsed. The build
// substitutes the property default and carries on.
type PropertyParseError struct {
	Entity    string
	Component string
	Key       string
	Raw       string
	Err       error
}

func (e *PropertyParseError) Error() string {
	key := e.Key
	if key == "" {
		key = "(value)"
	}
	return fmt.Sprintf("component %q on entity %q: property %s: cannot parse %q: %v",
		e.Component, e.Entity, key, e.Raw, e.Err)
}

func (e *PropertyParseError) Unwrap() []error {
	return []error{ErrPropertyParse, e.Err}
}
