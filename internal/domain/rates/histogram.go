package rates

import (
	"context"
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/okian/jetrates/internal/adapters/repository"

	"gopkg.in/yaml.v3"
)

// Output file suffixes written next to the persisted state.
const (
	tableExt   = ".csv"
	summaryExt = ".yaml"
	outDirMode = 0o755
)

// HistogramCounter is a fixed-binning Counter. Values below Min land in the
// underflow, values at or above Max in the overflow.
type HistogramCounter struct {
	mu sync.Mutex

	spec      Spec
	width     float64
	store     repository.Store
	style     Style
	rateScale float64
	now       func() time.Time

	meta       Metadata
	outDir     string
	configured bool
	ready      bool

	counts    []uint64
	underflow uint64
	overflow  uint64
	entries   uint64
	sumValue  float64
	sumPileUp float64
	runIDs    []string
}

var _ Counter = (*HistogramCounter)(nil)

// NewHistogramCounter builds a counter for spec. Without WithStore it persists
// through a CBOR file store.
func NewHistogramCounter(spec Spec, opts ...HistogramOption) (*HistogramCounter, error) {
	if !spec.Multiplicity.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCounter, spec.Multiplicity)
	}
	if spec.Bins <= 0 {
		return nil, fmt.Errorf("counter %s: bin count must be positive, got %d", spec.Multiplicity, spec.Bins)
	}
	if !(spec.Max > spec.Min) {
		return nil, fmt.Errorf("counter %s: empty range [%g,%g)", spec.Multiplicity, spec.Min, spec.Max)
	}

	c := &HistogramCounter{
		spec:      spec,
		width:     (spec.Max - spec.Min) / float64(spec.Bins),
		rateScale: 1,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.store == nil {
		fs, err := repository.NewFileStore()
		if err != nil {
			return nil, err
		}
		c.store = fs
	}
	return c, nil
}

// HistogramFactory returns a Factory producing HistogramCounters with opts.
func HistogramFactory(opts ...HistogramOption) Factory {
	return func(spec Spec) (Counter, error) {
		return NewHistogramCounter(spec, opts...)
	}
}

// Multiplicity implements Counter.
func (c *HistogramCounter) Multiplicity() Multiplicity { return c.spec.Multiplicity }

// Name is the counter's output name, e.g. "doubleJets".
func (c *HistogramCounter) Name() string { return c.spec.Multiplicity.String() }

// Configure implements Counter.
func (c *HistogramCounter) Configure(meta Metadata, outDir string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.meta = meta
	c.outDir = outDir
	c.configured = true
}

// Reset implements Counter.
func (c *HistogramCounter) Reset(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.configured {
		return fmt.Errorf("%w: %s", ErrNotConfigured, c.Name())
	}
	if err := os.MkdirAll(c.outDir, outDirMode); err != nil {
		return fmt.Errorf("counter %s: create output dir: %w", c.Name(), err)
	}

	c.counts = make([]uint64, c.spec.Bins)
	c.underflow, c.overflow, c.entries = 0, 0, 0
	c.sumValue, c.sumPileUp = 0, 0
	c.runIDs = c.appendRunID(nil)
	c.ready = true
	return nil
}

// Resume implements Counter. The stored binning must match the spec.
func (c *HistogramCounter) Resume(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.configured {
		return fmt.Errorf("%w: %s", ErrNotConfigured, c.Name())
	}
	st, err := c.store.Load(ctx, c.outDir, c.Name())
	if err != nil {
		return fmt.Errorf("counter %s: %w", c.Name(), err)
	}
	if st.Bins != c.spec.Bins || st.Min != c.spec.Min || st.Max != c.spec.Max {
		return fmt.Errorf("%w: %s stored %d bins [%g,%g), configured %d bins [%g,%g)",
			ErrBinningMismatch, c.Name(), st.Bins, st.Min, st.Max, c.spec.Bins, c.spec.Min, c.spec.Max)
	}

	c.counts = append(make([]uint64, 0, len(st.Counts)), st.Counts...)
	c.underflow, c.overflow, c.entries = st.Underflow, st.Overflow, st.Entries
	c.sumValue, c.sumPileUp = st.SumValue, st.SumPileUp
	c.runIDs = c.appendRunID(append([]string(nil), st.RunIDs...))
	c.ready = true
	return nil
}

func (c *HistogramCounter) appendRunID(ids []string) []string {
	if c.meta.RunID == "" {
		return ids
	}
	return append(ids, c.meta.RunID)
}

// Accumulate implements Counter. Calls before Reset or Resume are dropped.
func (c *HistogramCounter) Accumulate(value, pileUp float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.ready {
		return
	}
	switch {
	case math.IsNaN(value) || value < c.spec.Min:
		c.underflow++
	case value >= c.spec.Max:
		c.overflow++
	default:
		idx := int((value - c.spec.Min) / c.width)
		if idx >= c.spec.Bins {
			idx = c.spec.Bins - 1
		}
		c.counts[idx]++
	}
	c.entries++
	if !math.IsNaN(value) {
		c.sumValue += value
	}
	c.sumPileUp += pileUp
}

// State returns a copy of the counter in its persisted form.
func (c *HistogramCounter) State() *repository.CounterState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

func (c *HistogramCounter) stateLocked() *repository.CounterState {
	counts := make([]uint64, c.spec.Bins)
	copy(counts, c.counts)
	return &repository.CounterState{
		Name:         c.Name(),
		Threshold:    c.spec.Multiplicity.Threshold(),
		Bins:         c.spec.Bins,
		Min:          c.spec.Min,
		Max:          c.spec.Max,
		Counts:       counts,
		Underflow:    c.underflow,
		Overflow:     c.overflow,
		Entries:      c.entries,
		SumValue:     c.sumValue,
		SumPileUp:    c.sumPileUp,
		SampleName:   c.meta.SampleName,
		SampleTitle:  c.meta.SampleTitle,
		TriggerName:  c.meta.TriggerName,
		TriggerTitle: c.meta.TriggerTitle,
		Run:          c.meta.Run,
		RunIDs:       append([]string(nil), c.runIDs...),
		UpdatedAt:    c.now().UTC(),
	}
}

// Finalize implements Counter. It saves the state, then writes the rate
// table and the summary next to it.
func (c *HistogramCounter) Finalize(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.ready {
		return fmt.Errorf("%w: %s", ErrNotInitialized, c.Name())
	}
	st := c.stateLocked()
	if err := c.store.Save(ctx, c.outDir, st.Name, st); err != nil {
		return fmt.Errorf("counter %s: save state: %w", st.Name, err)
	}
	if err := c.writeTable(st); err != nil {
		return fmt.Errorf("counter %s: write rate table: %w", st.Name, err)
	}
	if err := c.writeSummary(st); err != nil {
		return fmt.Errorf("counter %s: write summary: %w", st.Name, err)
	}
	return nil
}

// RatePoint is one row of the rate table.
type RatePoint struct {
	Low        float64
	High       float64
	Count      uint64
	Cumulative uint64
	Rate       float64
}

// RateTable converts a state into per-threshold rates: for each bin, the
// number of entries at or above its lower edge (overflow included) times
// scale.
func RateTable(st *repository.CounterState, scale float64) []RatePoint {
	if st == nil || st.Bins <= 0 || len(st.Counts) != st.Bins {
		return nil
	}
	width := (st.Max - st.Min) / float64(st.Bins)
	out := make([]RatePoint, st.Bins)
	cum := st.Overflow
	for i := st.Bins - 1; i >= 0; i-- {
		cum += st.Counts[i]
		out[i] = RatePoint{
			Low:        st.Min + float64(i)*width,
			High:       st.Min + float64(i+1)*width,
			Count:      st.Counts[i],
			Cumulative: cum,
			Rate:       float64(cum) * scale,
		}
	}
	return out
}

func (c *HistogramCounter) writeTable(st *repository.CounterState) error {
	f, err := os.Create(filepath.Join(c.outDir, st.Name+tableExt))
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	records := [][]string{{"et_low", "et_high", "count", "cumulative", "rate"}}
	for _, p := range RateTable(st, c.rateScale) {
		records = append(records, []string{
			formatFloat(p.Low),
			formatFloat(p.High),
			strconv.FormatUint(p.Count, 10),
			strconv.FormatUint(p.Cumulative, 10),
			formatFloat(p.Rate),
		})
	}
	if err := w.WriteAll(records); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

type summaryDoc struct {
	Name      string     `yaml:"name"`
	Threshold int        `yaml:"threshold"`
	Sample    labelDoc   `yaml:"sample"`
	Trigger   labelDoc   `yaml:"trigger"`
	Run       string     `yaml:"run"`
	RunIDs    []string   `yaml:"run_ids,omitempty"`
	Entries   uint64     `yaml:"entries"`
	Underflow uint64     `yaml:"underflow"`
	Overflow  uint64     `yaml:"overflow"`
	MeanEt    float64    `yaml:"mean_et"`
	MeanPU    float64    `yaml:"mean_pile_up"`
	RateScale float64    `yaml:"rate_scale"`
	Binning   binningDoc `yaml:"binning"`
	Style     styleDoc   `yaml:"style"`
	Files     filesDoc   `yaml:"files"`
	UpdatedAt time.Time  `yaml:"updated_at"`
}

type labelDoc struct {
	Name  string `yaml:"name"`
	Title string `yaml:"title,omitempty"`
}

type binningDoc struct {
	Bins int     `yaml:"bins"`
	Min  float64 `yaml:"min"`
	Max  float64 `yaml:"max"`
}

type styleDoc struct {
	XLabel string `yaml:"x_label"`
	YLabel string `yaml:"y_label"`
	LogY   bool   `yaml:"log_y"`
}

type filesDoc struct {
	Table string `yaml:"table"`
}

func (c *HistogramCounter) writeSummary(st *repository.CounterState) error {
	doc := summaryDoc{
		Name:      st.Name,
		Threshold: st.Threshold,
		Sample:    labelDoc{Name: st.SampleName, Title: st.SampleTitle},
		Trigger:   labelDoc{Name: st.TriggerName, Title: st.TriggerTitle},
		Run:       st.Run,
		RunIDs:    st.RunIDs,
		Entries:   st.Entries,
		Underflow: st.Underflow,
		Overflow:  st.Overflow,
		RateScale: c.rateScale,
		Binning:   binningDoc{Bins: st.Bins, Min: st.Min, Max: st.Max},
		Style:     styleDoc{XLabel: c.style.XLabel, YLabel: c.style.YLabel, LogY: c.style.LogY},
		Files:     filesDoc{Table: st.Name + tableExt},
		UpdatedAt: st.UpdatedAt,
	}
	if st.Entries > 0 {
		doc.MeanEt = st.SumValue / float64(st.Entries)
		doc.MeanPU = st.SumPileUp / float64(st.Entries)
	}
	data, err := yaml.Marshal(&doc)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(c.outDir, st.Name+summaryExt), data, 0o644) //nolint:gosec // output artifact
}
