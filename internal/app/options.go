package service

import (
	"github.com/okian/jetrates/internal/adapters/progress"
	"github.com/okian/jetrates/internal/adapters/source"
	"github.com/okian/jetrates/internal/domain/rates"
	"github.com/okian/jetrates/pkg/logger"
)

// Option applies a configuration option to the Driver.
type Option func(*Driver)

// WithLogger sets a custom logger for the driver.
func WithLogger(l logger.Logger) Option {
	return func(d *Driver) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithSourceOpener replaces the file-backed event source.
func WithSourceOpener(open source.Opener) Option {
	return func(d *Driver) {
		if open != nil {
			d.openSource = open
		}
	}
}

// WithCounterFactory replaces the histogram counters built for every run.
func WithCounterFactory(f rates.Factory) Option {
	return func(d *Driver) {
		if f != nil {
			d.factory = f
		}
	}
}

// WithProgressReporter sets where scan progress is reported.
func WithProgressReporter(r progress.Reporter) Option {
	return func(d *Driver) {
		if r != nil {
			d.reporter = r
		}
	}
}

// WithRunIDGenerator overrides how run identifiers are minted.
func WithRunIDGenerator(gen func() string) Option {
	return func(d *Driver) {
		if gen != nil {
			d.newRunID = gen
		}
	}
}

// WithRunLog mirrors the global logger into run.log inside the output
// directory for the duration of a run.
func WithRunLog(enabled bool) Option {
	return func(d *Driver) {
		d.runLog = enabled
	}
}
