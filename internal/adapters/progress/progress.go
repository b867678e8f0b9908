// Package progress reports scan progress through the structured logger.
package progress

import (
	"context"
	"sync"

	"github.com/okian/jetrates/pkg/logger"
)

// Reporter receives the 1-based position of the event being processed and the
// total number of events in the scan.
type Reporter interface {
	Report(ctx context.Context, position, total int64)
}

// Discard ignores every report.
type Discard struct{}

// Report implements Reporter.
func (Discard) Report(context.Context, int64, int64) {}

const defaultStep = 10

// LogReporter logs once every step percent of the scan and on the last event.
type LogReporter struct {
	mu       sync.Mutex
	log      logger.Logger
	step     int
	lastMark int64
}

var _ Reporter = (*LogReporter)(nil)

// Option configures a LogReporter.
type Option func(*LogReporter)

// WithStep sets the reporting interval in percent. Zero disables intermediate
// reports; the final one is still logged.
func WithStep(percent int) Option {
	return func(r *LogReporter) {
		if percent >= 0 && percent <= 100 {
			r.step = percent
		}
	}
}

// NewLogReporter creates a reporter writing to log.
func NewLogReporter(log logger.Logger, opts ...Option) *LogReporter {
	r := &LogReporter{log: log, step: defaultStep}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Report implements Reporter.
func (r *LogReporter) Report(ctx context.Context, position, total int64) {
	if total <= 0 || position <= 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	percent := position * 100 / total
	final := position >= total
	mark := int64(-1)
	if r.step > 0 {
		mark = percent / int64(r.step)
	}
	if !final && (r.step == 0 || mark == r.lastMark) {
		return
	}
	r.lastMark = mark

	r.log.Info(ctx, "scan progress",
		logger.Int64("position", position),
		logger.Int64("total", total),
		logger.Int64("percent", percent),
	)
}
