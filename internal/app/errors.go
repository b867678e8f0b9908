package service

import "errors"

// Sentinel kinds for driver errors.
var (
	ErrScanInterrupted = errors.New("scan interrupted")
	ErrNoCounters      = errors.New("no rate counters configured")
)
