package store

import "errors"

var (
	// ErrTypeMismatch is returned when a cached value has an unexpected type.
	ErrTypeMismatch = errors.New("cached value has unexpected type")
)
