// Package source decodes ntuple files into a sequential stream of events.
//
// Files are read in the order given. Positions are zero-based and run across
// file boundaries, so a chunk's positions go from 0 to TotalEntries()-1.
package source

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/okian/jetrates/internal/domain/model"
)

// Supported ntuple formats.
const (
	FormatAuto    = "auto"
	FormatParquet = "parquet"
	FormatNDJSON  = "ndjson"
)

// Record is the on-disk layout of one event in both formats.
type Record struct {
	EventID string    `parquet:"event_id" json:"event_id,omitempty"`
	Run     int64     `parquet:"run" json:"run,omitempty"`
	JetEt   []float64 `parquet:"jet_et" json:"jet_et"`
}

// EventSource is a position-tracked iterator over decoded events.
type EventSource interface {
	// TotalEntries returns the number of events across all files.
	TotalEntries() int64

	// Next returns the next event, or io.EOF once the source is exhausted.
	// The returned event owns its JetEt slice.
	Next(ctx context.Context) (model.Event, error)

	// Close releases the file currently open.
	Close() error
}

// Opener builds an EventSource over a list of files.
type Opener func(ctx context.Context, files []string) (EventSource, error)

// DetectFormat maps a file extension to a format.
func DetectFormat(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".parquet", ".pq":
		return FormatParquet, nil
	case ".ndjson", ".jsonl", ".json":
		return FormatNDJSON, nil
	default:
		return "", &FormatError{Path: path}
	}
}
