package repository

import "errors"

// Sentinel kinds for counter state errors.
var (
	ErrStateNotFound = errors.New("counter state not found")
	ErrCorruptState  = errors.New("counter state is corrupt")
)
