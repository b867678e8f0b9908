// Package config defines run configuration structures and loading hooks.
//
// Conventions:
// - Config is built once per process and handed to the driver by value.
// - Provide New(...) initializer to build a Config with defaults.
// - External errors must be wrapped via this package's error helpers.
package config

import (
	"fmt"
	"regexp"
	"strings"
)

// Input formats understood by the event source.
const (
	FormatAuto    = "auto"
	FormatParquet = "parquet"
	FormatNDJSON  = "ndjson"
)

// Default rate histogram binning, in GeV.
const (
	defaultRateBins  = 400
	defaultRateMin   = 0.0
	defaultRateMax   = 400.0
	defaultProgress  = 10
	defaultRateScale = 1.0
	defaultOutputDir = "output/JetRates"
)

// cIntVerb matches a C-style %i conversion including its flags and width.
var cIntVerb = regexp.MustCompile(`%([-+# 0]*[0-9]*)i`)

// Config contains process configuration. It is treated as an immutable value
// once Load returns.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogJSON switches the console log format to JSON.
	LogJSON bool `koanf:"log_json"`

	// Sample and trigger labels propagated into every rate output.
	SampleName   string `koanf:"sample_name"`
	SampleTitle  string `koanf:"sample_title"`
	TriggerName  string `koanf:"trigger_name"`
	TriggerTitle string `koanf:"trigger_title"`

	// Run identifies the data-taking run, e.g. "276243".
	Run string `koanf:"run"`

	// InputFilePattern is a printf pattern taking the 1-based file index,
	// e.g. "/data/ntuples/L1Ntuple_%d.parquet". A C-style %i is accepted.
	InputFilePattern string `koanf:"input_file_pattern"`

	// InputFormat selects the decoder: auto, parquet or ndjson.
	InputFormat string `koanf:"input_format"`

	// OutputBaseDir is the prefix of every output directory. Chunk and
	// combine suffixes are appended verbatim.
	OutputBaseDir string `koanf:"output_base_dir"`

	// ProgressEvery is the progress reporting step in percent of the entries.
	ProgressEvery int `koanf:"progress_every"`

	// RateScale converts cumulative counts into a rate (e.g. Hz per event).
	RateScale float64 `koanf:"rate_scale"`

	// WriteMetrics dumps the Prometheus registry into the output directory.
	WriteMetrics bool `koanf:"write_metrics"`

	// Rates lists the tracked multiplicity counters and their binning.
	Rates []RateConfig `koanf:"rates"`

	// Style carries the rendering labels handed to every counter.
	Style StyleConfig `koanf:"style"`
}

// RateConfig configures one rate counter.
type RateConfig struct {
	Name string  `koanf:"name"`
	Bins int     `koanf:"bins"`
	Min  float64 `koanf:"min"`
	Max  float64 `koanf:"max"`
}

// StyleConfig carries rendering hints. Counters receive it explicitly.
type StyleConfig struct {
	XLabel string `koanf:"x_label"`
	YLabel string `koanf:"y_label"`
	LogY   bool   `koanf:"log_y"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:      "info",
		InputFormat:   FormatAuto,
		OutputBaseDir: defaultOutputDir,
		ProgressEvery: defaultProgress,
		RateScale:     defaultRateScale,
		WriteMetrics:  true,
		Rates:         DefaultRates(),
		Style: StyleConfig{
			XLabel: "Offline jet E_{T} (GeV)",
			YLabel: "Rate",
			LogY:   true,
		},
	}
}

// DefaultRates returns the four jet multiplicity counters with default binning.
func DefaultRates() []RateConfig {
	names := []string{"singleJets", "doubleJets", "tripleJets", "quadJets"}
	out := make([]RateConfig, 0, len(names))
	for _, n := range names {
		out = append(out, RateConfig{Name: n, Bins: defaultRateBins, Min: defaultRateMin, Max: defaultRateMax})
	}
	return out
}

// Validate checks the run-independent invariants of the configuration.
func (c Config) Validate() error {
	if strings.TrimSpace(c.OutputBaseDir) == "" {
		return NewError("output_base_dir", "must not be empty")
	}
	switch c.InputFormat {
	case FormatAuto, FormatParquet, FormatNDJSON:
	default:
		return NewError("input_format", fmt.Sprintf("unknown format %q", c.InputFormat))
	}
	if c.ProgressEvery < 0 || c.ProgressEvery > 100 {
		return NewError("progress_every", "must be within [0,100]")
	}
	if c.RateScale <= 0 {
		return NewError("rate_scale", "must be positive")
	}
	seen := make(map[string]struct{}, len(c.Rates))
	for _, r := range c.Rates {
		if r.Name == "" {
			return NewError("rates", "counter name must not be empty")
		}
		if _, dup := seen[r.Name]; dup {
			return NewError("rates", fmt.Sprintf("duplicate counter %q", r.Name))
		}
		seen[r.Name] = struct{}{}
		if r.Bins <= 0 {
			return NewError("rates", fmt.Sprintf("counter %q needs a positive bin count", r.Name))
		}
		if r.Max <= r.Min {
			return NewError("rates", fmt.Sprintf("counter %q has an empty range [%g,%g)", r.Name, r.Min, r.Max))
		}
	}
	return nil
}

// InputFile renders the input pattern for a 1-based file index.
func (c Config) InputFile(index int) string {
	return fmt.Sprintf(cIntVerb.ReplaceAllString(c.InputFilePattern, "%${1}d"), index)
}
