package rates

import (
	"context"
	"fmt"
	"sync"

	"github.com/hashicorp/go-multierror"
)

// Registry owns the rate counters of one run, one slot per Multiplicity.
// An empty slot means that multiplicity is not tracked.
type Registry struct {
	mu         sync.Mutex
	counters   [numMultiplicities]Counter
	finalized  bool
	onFinalize func(m Multiplicity, err error)
}

// NewRegistry builds one counter per spec through factory.
func NewRegistry(specs []Spec, factory Factory, opts ...RegistryOption) (*Registry, error) {
	r := &Registry{}
	for _, opt := range opts {
		opt(r)
	}
	for _, spec := range specs {
		if !spec.Multiplicity.Valid() {
			return nil, fmt.Errorf("%w: %s", ErrUnknownCounter, spec.Multiplicity)
		}
		if r.counters[spec.Multiplicity] != nil {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateCounter, spec.Multiplicity)
		}
		c, err := factory(spec)
		if err != nil {
			return nil, fmt.Errorf("build counter %s: %w", spec.Multiplicity, err)
		}
		r.counters[spec.Multiplicity] = c
	}
	return r, nil
}

// Lookup returns the counter tracking m, if any.
func (r *Registry) Lookup(m Multiplicity) (Counter, bool) {
	if !m.Valid() {
		return nil, false
	}
	c := r.counters[m]
	return c, c != nil
}

// Len returns the number of tracked counters.
func (r *Registry) Len() int {
	n := 0
	for _, c := range r.counters {
		if c != nil {
			n++
		}
	}
	return n
}

// Each calls fn for every tracked counter in ascending threshold order.
func (r *Registry) Each(fn func(Counter)) {
	for _, c := range r.counters {
		if c != nil {
			fn(c)
		}
	}
}

// Configure hands the run labels and output directory to every counter.
func (r *Registry) Configure(meta Metadata, outDir string) {
	r.Each(func(c Counter) { c.Configure(meta, outDir) })
}

// InitializeForScan resets every counter for a fresh scan.
func (r *Registry) InitializeForScan(ctx context.Context) error {
	return r.initialize(func(c Counter) error { return c.Reset(ctx) })
}

// InitializeForCombine resumes every counter from its persisted state.
func (r *Registry) InitializeForCombine(ctx context.Context) error {
	return r.initialize(func(c Counter) error { return c.Resume(ctx) })
}

func (r *Registry) initialize(fn func(Counter) error) error {
	for _, c := range r.counters {
		if c == nil {
			continue
		}
		if err := fn(c); err != nil {
			return err
		}
	}
	return nil
}

// Fill routes one event to every tracked counter whose threshold jetCount
// reaches. visit, when set, is called for each counter filled. It returns the
// number of counters filled.
func (r *Registry) Fill(maxJetEt float64, jetCount int, visit func(Counter)) int {
	filled := 0
	for _, m := range All() {
		if jetCount < m.Threshold() {
			break
		}
		c := r.counters[m]
		if c == nil {
			continue
		}
		c.Accumulate(maxJetEt, 0)
		filled++
		if visit != nil {
			visit(c)
		}
	}
	return filled
}

// FinalizeAll finalizes every counter once. Failures do not stop the
// remaining counters; they are returned together. A second call returns
// ErrFinalized.
func (r *Registry) FinalizeAll(ctx context.Context) error {
	r.mu.Lock()
	if r.finalized {
		r.mu.Unlock()
		return ErrFinalized
	}
	r.finalized = true
	r.mu.Unlock()

	var result *multierror.Error
	for _, c := range r.counters {
		if c == nil {
			continue
		}
		err := c.Finalize(ctx)
		if r.onFinalize != nil {
			r.onFinalize(c.Multiplicity(), err)
		}
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("finalize %s: %w", c.Multiplicity(), err))
		}
	}
	return result.ErrorOrNil()
}
