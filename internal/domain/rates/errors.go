package rates

import "errors"

// Sentinel kinds for rate counter errors.
var (
	ErrUnknownCounter   = errors.New("unknown rate counter")
	ErrNotConfigured    = errors.New("rate counter not configured")
	ErrFinalized        = errors.New("rate counters already finalized")
	ErrBinningMismatch  = errors.New("stored counter binning does not match configuration")
	ErrNotInitialized   = errors.New("rate counter storage not initialized")
	ErrDuplicateCounter = errors.New("duplicate rate counter")
)
