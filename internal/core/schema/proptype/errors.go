package proptype

import "errors"

var (
	ErrDuplicateType = errors.New("property type already registered")
	ErrUnknownType   = errors.New("unknown property type")
	ErrInvalidType   = errors.New("invalid property type definition")
	ErrInvalidValue  = errors.New("invalid property value")
)
