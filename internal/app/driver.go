// Package service drives one jet rate job: it plans the chunk, scans the
// events and finalizes the rate counters.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/okian/jetrates/internal/adapters/progress"
	"github.com/okian/jetrates/internal/adapters/repository"
	"github.com/okian/jetrates/internal/adapters/source"
	"github.com/okian/jetrates/internal/config"
	"github.com/okian/jetrates/internal/domain/chunk"
	"github.com/okian/jetrates/internal/domain/model"
	"github.com/okian/jetrates/internal/domain/rates"
	"github.com/okian/jetrates/pkg/logger"
	"github.com/okian/jetrates/pkg/metrics"

	"github.com/google/uuid"
)

// Output layout constants. The directory names are consumed by downstream
// tooling and must not change.
const (
	ratesSubdir   = "/RatesJet/"
	chunkSuffix   = "_CHUNK"
	combineSuffix = "_hadd"
	runLogName    = "run.log"
	metricsName   = "metrics.prom"
	outputDirMode = 0o755
	runLogMode    = 0o644
)

// Params selects the work of one job.
type Params struct {
	ChunkIndex int
	TotalFiles int
	TotalJobs  int
	// Combine skips planning and scanning and re-finalizes the counter state
	// already present in the combine output directory.
	Combine bool
}

// Result describes a completed run.
type Result struct {
	RunID         string
	OutputDir     string
	Range         chunk.FileRange
	Files         []string
	TotalEntries  int64
	EventsScanned int64
	// Fills counts the entries each counter received during this run.
	Fills    map[string]int64
	Duration time.Duration
}

// Driver runs jobs against one immutable configuration.
type Driver struct {
	cfg        config.Config
	logger     logger.Logger
	openSource source.Opener
	factory    rates.Factory
	reporter   progress.Reporter
	newRunID   func() string
	runLog     bool
}

// New constructs a Driver. cfg is copied; later changes to the caller's value
// are not seen.
func New(cfg config.Config, opts ...Option) *Driver {
	d := &Driver{
		cfg:        cfg,
		openSource: source.NewOpener(source.WithFormat(cfg.InputFormat)),
		newRunID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// OutputDir returns the directory a job writes to. The result always ends in
// a slash and is built by plain concatenation so the base is kept verbatim.
func OutputDir(base string, p Params) string {
	if p.Combine {
		return base + combineSuffix + ratesSubdir
	}
	if p.TotalJobs > 1 {
		return base + chunkSuffix + strconv.Itoa(p.ChunkIndex) + ratesSubdir
	}
	return base + ratesSubdir
}

// CounterSpecs converts the configured counters into registry specs.
func CounterSpecs(cfgs []config.RateConfig) ([]rates.Spec, error) {
	if len(cfgs) == 0 {
		return nil, ErrNoCounters
	}
	specs := make([]rates.Spec, 0, len(cfgs))
	for _, rc := range cfgs {
		m, err := rates.ParseMultiplicity(rc.Name)
		if err != nil {
			return nil, config.NewError("rates", err.Error())
		}
		specs = append(specs, rates.Spec{Multiplicity: m, Bins: rc.Bins, Min: rc.Min, Max: rc.Max})
	}
	return specs, nil
}

func (d *Driver) log() logger.Logger {
	if d.logger == nil {
		d.logger = logger.Named("driver")
	}
	return d.logger
}

func (d *Driver) counterFactory() (rates.Factory, error) {
	if d.factory != nil {
		return d.factory, nil
	}
	store, err := repository.NewFileStore()
	if err != nil {
		return nil, err
	}
	return rates.HistogramFactory(
		rates.WithStore(store),
		rates.WithRateScale(d.cfg.RateScale),
		rates.WithStyle(rates.Style{
			XLabel: d.cfg.Style.XLabel,
			YLabel: d.cfg.Style.YLabel,
			LogY:   d.cfg.Style.LogY,
		}),
	), nil
}

func (d *Driver) progressReporter() progress.Reporter {
	if d.reporter != nil {
		return d.reporter
	}
	return progress.NewLogReporter(d.log().Named("progress"), progress.WithStep(d.cfg.ProgressEvery))
}

// Run executes one job. An invalid chunk assignment fails before any file is
// opened or any output is written.
func (d *Driver) Run(ctx context.Context, p Params) (Result, error) {
	start := time.Now()
	res := Result{RunID: d.newRunID(), Fills: map[string]int64{}}

	var files []string
	if !p.Combine {
		job := chunk.Job{ChunkIndex: p.ChunkIndex, TotalJobs: p.TotalJobs, TotalFiles: p.TotalFiles}
		fr, err := job.Range()
		if err != nil {
			metrics.RecordErrorByComponent("planner", "invalid_chunk")
			return res, err
		}
		res.Range = fr
		files = fr.Files(d.cfg.InputFile)
	}
	res.Files = files
	res.OutputDir = OutputDir(d.cfg.OutputBaseDir, p)
	metrics.UpdateChunk(p.ChunkIndex, p.TotalJobs, len(files), p.Combine)

	specs, err := CounterSpecs(d.cfg.Rates)
	if err != nil {
		return res, err
	}
	factory, err := d.counterFactory()
	if err != nil {
		return res, err
	}
	reg, err := rates.NewRegistry(specs, factory, rates.WithFinalizeHook(func(m rates.Multiplicity, err error) {
		metrics.RecordCounterFinalize(m.String(), err)
	}))
	if err != nil {
		return res, err
	}

	if d.runLog {
		closeLog, err := d.attachRunLog(res.OutputDir)
		if err != nil {
			return res, err
		}
		defer closeLog()
	}

	log := d.log()
	log.Info(ctx, "starting rate job",
		logger.String("run_id", res.RunID),
		logger.Int("chunk", p.ChunkIndex),
		logger.Int("jobs", p.TotalJobs),
		logger.Bool("combine", p.Combine),
		logger.String("range", res.Range.String()),
		logger.String("output_dir", res.OutputDir),
	)

	src, err := d.openSource(ctx, files)
	if err != nil {
		metrics.RecordErrorByComponent("source", "open")
		return res, fmt.Errorf("open event source: %w", err)
	}
	defer func() { _ = src.Close() }()

	reg.Configure(rates.Metadata{
		SampleName:   d.cfg.SampleName,
		SampleTitle:  d.cfg.SampleTitle,
		TriggerName:  d.cfg.TriggerName,
		TriggerTitle: d.cfg.TriggerTitle,
		Run:          d.cfg.Run,
		RunID:        res.RunID,
	}, res.OutputDir)

	if p.Combine {
		err = reg.InitializeForCombine(ctx)
	} else {
		err = reg.InitializeForScan(ctx)
	}
	if err != nil {
		metrics.RecordErrorByComponent("counter", "initialize")
		return res, fmt.Errorf("initialize counters: %w", err)
	}

	if !p.Combine {
		if err := d.scan(ctx, src, reg, &res); err != nil {
			return res, err
		}
	} else {
		log.Info(ctx, "combine mode, scan skipped")
	}

	if err := reg.FinalizeAll(ctx); err != nil {
		metrics.RecordErrorByComponent("counter", "finalize")
		return res, fmt.Errorf("finalize counters: %w", err)
	}

	res.Duration = time.Since(start)
	metrics.RecordScanDuration(res.Duration.Seconds())
	if d.cfg.WriteMetrics {
		if err := metrics.WriteTextfile(res.OutputDir + metricsName); err != nil {
			log.Warn(ctx, "failed to write metrics", logger.Error(err))
		}
	}

	log.Info(ctx, "rate job finished",
		logger.String("run_id", res.RunID),
		logger.Int64("events", res.EventsScanned),
		logger.String("duration", res.Duration.String()),
	)
	return res, nil
}

// scan streams every event into the registry. The total is read once, before
// the first event.
func (d *Driver) scan(ctx context.Context, src source.EventSource, reg *rates.Registry, res *Result) error {
	total := src.TotalEntries()
	res.TotalEntries = total
	metrics.UpdateTotalEntries(total)
	reporter := d.progressReporter()

	onFill := func(c rates.Counter) {
		name := c.Multiplicity().String()
		res.Fills[name]++
		metrics.RecordCounterFill(name)
	}

	for {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w after %d events: %w", ErrScanInterrupted, res.EventsScanned, err)
		}
		ev, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w after %d events: %w", ErrScanInterrupted, res.EventsScanned, err)
		}
		if err != nil {
			metrics.RecordErrorByComponent("source", "read")
			return fmt.Errorf("read event %d: %w", res.EventsScanned, err)
		}

		reporter.Report(ctx, ev.Position+1, total)
		f := model.Extract(ev)
		metrics.RecordEvent(f.MaxJetEt, f.JetCount)
		reg.Fill(f.MaxJetEt, f.JetCount, onFill)
		res.EventsScanned++
	}
}

// attachRunLog mirrors the logger into the output directory. The returned
// func detaches and closes the file.
func (d *Driver) attachRunLog(dir string) (func(), error) {
	if err := os.MkdirAll(dir, outputDirMode); err != nil {
		return nil, fmt.Errorf("create output dir %s: %w", dir, err)
	}
	f, err := os.OpenFile(dir+runLogName, os.O_CREATE|os.O_APPEND|os.O_WRONLY, runLogMode)
	if err != nil {
		return nil, fmt.Errorf("open run log: %w", err)
	}
	logger.AddSink(f)
	return func() { _ = logger.Sync() }, nil
}
