package component

import "errors"

var (
	ErrNameConflict = errors.New("component name conflict")
	ErrNotFound     = errors.New("component not registered")
	ErrNotMultiple  = errors.New("component does not allow multiple instances")
	ErrRemoved      = errors.New("component instance removed")
	ErrHookPanic    = errors.New("component hook panicked")
)
