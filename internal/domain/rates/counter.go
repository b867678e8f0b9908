// Package rates implements the jet multiplicity rate counters and the
// registry that owns them for the duration of a run.
package rates

import (
	"context"
)

// Metadata labels the output of every counter in a run.
type Metadata struct {
	SampleName   string
	SampleTitle  string
	TriggerName  string
	TriggerTitle string
	Run          string
	// RunID identifies this process run; it is appended to the stored state.
	RunID string
}

// Style carries rendering hints. It is handed to each counter explicitly.
type Style struct {
	XLabel string
	YLabel string
	LogY   bool
}

// Spec describes one counter to build.
type Spec struct {
	Multiplicity Multiplicity
	Bins         int
	Min          float64
	Max          float64
}

// Counter accumulates the leading jet Et of events passing its multiplicity
// threshold.
//
// Lifecycle: Configure once, then exactly one of Reset or Resume, then any
// number of Accumulate calls, then Finalize once.
type Counter interface {
	// Multiplicity returns the threshold this counter tracks.
	Multiplicity() Multiplicity

	// Configure sets the run labels and the output directory.
	Configure(meta Metadata, outDir string)

	// Reset prepares empty storage in the output directory.
	Reset(ctx context.Context) error

	// Resume loads the state previously persisted in the output directory
	// without clearing it.
	Resume(ctx context.Context) error

	// Accumulate adds one entry at value. pileUp is recorded alongside and
	// does not scale the entry.
	Accumulate(value, pileUp float64)

	// Finalize persists the state and renders the output.
	Finalize(ctx context.Context) error
}

// Factory builds a counter for spec. The registry calls it once per spec.
type Factory func(spec Spec) (Counter, error)
