package prefs

import "errors"

// Sentinel errors for preference tree operations.
var (
	ErrInvalidKey      = errors.New("invalid preference key")
	ErrInvalidPath     = errors.New("invalid node path")
	ErrRemoveRoot      = errors.New("cannot remove the root node")
	ErrStoreHomeNotSet = errors.New("store home not set")
)
