// Package repository persists rate counter state between runs.
//
// A chunk job saves each counter's histogram next to its rendered output; a
// later combine run resumes the state found in its own output directory.
package repository

import (
	"context"
	"time"
)

// CounterState is the persisted form of one rate counter.
type CounterState struct {
	Name      string  `cbor:"name"`
	Threshold int     `cbor:"threshold"`
	Bins      int     `cbor:"bins"`
	Min       float64 `cbor:"min"`
	Max       float64 `cbor:"max"`

	Counts    []uint64 `cbor:"counts"`
	Underflow uint64   `cbor:"underflow"`
	Overflow  uint64   `cbor:"overflow"`
	Entries   uint64   `cbor:"entries"`
	SumValue  float64  `cbor:"sum_value"`
	SumPileUp float64  `cbor:"sum_pile_up"`

	SampleName   string `cbor:"sample_name"`
	SampleTitle  string `cbor:"sample_title"`
	TriggerName  string `cbor:"trigger_name"`
	TriggerTitle string `cbor:"trigger_title"`
	Run          string `cbor:"run"`

	// RunIDs lists every process run that wrote this state, oldest first.
	RunIDs    []string  `cbor:"run_ids"`
	UpdatedAt time.Time `cbor:"updated_at"`
}

// Store provides read/write access to persisted counter state.
type Store interface {
	// Save writes st for counter name under dir, replacing any previous state.
	Save(ctx context.Context, dir, name string, st *CounterState) error

	// Load returns the state stored for counter name under dir.
	// Returns ErrStateNotFound if nothing was saved there.
	Load(ctx context.Context, dir, name string) (*CounterState, error)
}
