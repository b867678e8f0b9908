package rates

import (
	"time"

	"github.com/okian/jetrates/internal/adapters/repository"
)

// HistogramOption configures a HistogramCounter.
type HistogramOption func(*HistogramCounter)

// WithStore sets where counter state is persisted.
func WithStore(s repository.Store) HistogramOption {
	return func(c *HistogramCounter) {
		if s != nil {
			c.store = s
		}
	}
}

// WithStyle sets the rendering labels written into the summary.
func WithStyle(s Style) HistogramOption {
	return func(c *HistogramCounter) {
		c.style = s
	}
}

// WithRateScale sets the factor converting cumulative counts to a rate.
func WithRateScale(scale float64) HistogramOption {
	return func(c *HistogramCounter) {
		if scale > 0 {
			c.rateScale = scale
		}
	}
}

// WithClock overrides the time source used to stamp saved states.
func WithClock(now func() time.Time) HistogramOption {
	return func(c *HistogramCounter) {
		if now != nil {
			c.now = now
		}
	}
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithFinalizeHook is called once per counter after its Finalize returns.
func WithFinalizeHook(fn func(m Multiplicity, err error)) RegistryOption {
	return func(r *Registry) {
		r.onFinalize = fn
	}
}
