package testevents

import (
	"fmt"
	"time"

	"github.com/okian/jetrates/internal/adapters/source"
)

// Config holds configuration for ntuple generation.
type Config struct {
	OutputDir     string // Directory the files are written to
	FilePattern   string // printf pattern taking the 1-based file index
	Format        string // auto, parquet or ndjson
	NumFiles      int    // Number of files to write
	EventsPerFile int    // Events in every file
	MaxJets       int    // Upper bound of the jet multiplicity
	Seed          uint64 // Seed of the deterministic generator
	Run           int64  // Run number stamped on every record
	Workers       int    // Number of files generated concurrently
	LogFile       string // Optional log file mirroring console output
}

// Stats holds generation statistics.
type Stats struct {
	FilesWritten      int
	EventsGenerated   int
	JetsGenerated     int
	EventsWithoutJets int
	StartTime         time.Time
	EndTime           time.Time
	Duration          time.Duration
}

// Validate checks that the configuration can produce output.
func (c *Config) Validate() error {
	switch {
	case c.OutputDir == "":
		return fmt.Errorf("output directory must be set")
	case c.FilePattern == "":
		return fmt.Errorf("file pattern must be set")
	case c.NumFiles < 1:
		return fmt.Errorf("need at least one file, got %d", c.NumFiles)
	case c.EventsPerFile < 0:
		return fmt.Errorf("events per file must not be negative, got %d", c.EventsPerFile)
	case c.MaxJets < 0:
		return fmt.Errorf("max jets must not be negative, got %d", c.MaxJets)
	}
	switch c.Format {
	case "", source.FormatAuto, source.FormatParquet, source.FormatNDJSON:
	default:
		return fmt.Errorf("unknown format %q", c.Format)
	}
	return nil
}
