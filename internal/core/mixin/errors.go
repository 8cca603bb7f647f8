package mixin

import "errors"

var (
	ErrEmptyID  = errors.New("mixin id is empty")
	ErrNotFound = errors.New("mixin not found")
)
