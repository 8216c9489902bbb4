package store

import "errors"

// Sentinel errors for store operations.
var (
	ErrLockUnavailable = errors.New("file lock unavailable")
	ErrLoadFailed      = errors.New("load failed")
	ErrCommitFailed    = errors.New("commit failed")
	ErrMalformedKey    = errors.New("malformed flat key")
)
