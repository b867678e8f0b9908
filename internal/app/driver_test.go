package service_test

import (
	"context"
	"errors"
	"io"
	"testing"

	service "github.com/okian/jetrates/internal/app"
	"github.com/okian/jetrates/internal/adapters/source"
	"github.com/okian/jetrates/internal/config"
	"github.com/okian/jetrates/internal/domain/model"
	"github.com/okian/jetrates/internal/domain/rates"
	"github.com/okian/jetrates/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	if err := logger.Init(logger.WithWriter(io.Discard)); err != nil {
		panic(err)
	}
}

// fakeSource replays a fixed list of events.
type fakeSource struct {
	events     []model.Event
	next       int
	nextCalls  int
	totalCalls int
	closed     bool
	failAt     int
	failErr    error
	onNext     func(i int)
}

func (s *fakeSource) TotalEntries() int64 {
	s.totalCalls++
	return int64(len(s.events))
}

func (s *fakeSource) Next(context.Context) (model.Event, error) {
	s.nextCalls++
	if s.onNext != nil {
		s.onNext(s.next)
	}
	if s.failErr != nil && s.next == s.failAt {
		return model.Event{}, s.failErr
	}
	if s.next >= len(s.events) {
		return model.Event{}, io.EOF
	}
	ev := s.events[s.next]
	s.next++
	return ev, nil
}

func (s *fakeSource) Close() error {
	s.closed = true
	return nil
}

type fill struct {
	value, pileUp float64
}

type fakeCounter struct {
	m         rates.Multiplicity
	meta      rates.Metadata
	outDir    string
	resets    int
	resumes   int
	finalizes int
	fills     []fill
}

func (c *fakeCounter) Multiplicity() rates.Multiplicity { return c.m }
func (c *fakeCounter) Configure(meta rates.Metadata, outDir string) {
	c.meta, c.outDir = meta, outDir
}
func (c *fakeCounter) Reset(context.Context) error  { c.resets++; return nil }
func (c *fakeCounter) Resume(context.Context) error { c.resumes++; return nil }
func (c *fakeCounter) Accumulate(value, pileUp float64) {
	c.fills = append(c.fills, fill{value, pileUp})
}
func (c *fakeCounter) Finalize(context.Context) error { c.finalizes++; return nil }

type progressCall struct {
	position, total int64
}

type recordingReporter struct {
	calls []progressCall
}

func (r *recordingReporter) Report(_ context.Context, position, total int64) {
	r.calls = append(r.calls, progressCall{position, total})
}

// harness wires a driver to fakes and remembers what it was handed.
type harness struct {
	cfg      config.Config
	src      *fakeSource
	opened   [][]string
	counters map[rates.Multiplicity]*fakeCounter
	reporter *recordingReporter
}

func newHarness(t *testing.T, events ...model.Event) *harness {
	cfg := *config.New()
	cfg.OutputBaseDir = t.TempDir() + "/JetRates"
	cfg.InputFilePattern = "/data/L1Ntuple_%i.parquet"
	cfg.SampleName = "ZeroBias"
	cfg.Run = "276243"
	cfg.WriteMetrics = false
	return &harness{
		cfg:      cfg,
		src:      &fakeSource{events: events},
		counters: map[rates.Multiplicity]*fakeCounter{},
		reporter: &recordingReporter{},
	}
}

func (h *harness) driver() *service.Driver {
	return service.New(h.cfg,
		service.WithSourceOpener(func(_ context.Context, files []string) (source.EventSource, error) {
			h.opened = append(h.opened, files)
			return h.src, nil
		}),
		service.WithCounterFactory(func(spec rates.Spec) (rates.Counter, error) {
			c := &fakeCounter{m: spec.Multiplicity}
			h.counters[spec.Multiplicity] = c
			return c, nil
		}),
		service.WithProgressReporter(h.reporter),
		service.WithRunIDGenerator(func() string { return "run-1" }),
	)
}

func TestOutputDir(t *testing.T) {
	Convey("Given an output base directory", t, func() {
		base := "output/JetRates"

		Convey("Then a single job writes directly under the base", func() {
			So(service.OutputDir(base, service.Params{ChunkIndex: 0, TotalJobs: 1}), ShouldEqual, "output/JetRates/RatesJet/")
		})

		Convey("Then chunked jobs get a chunk suffix", func() {
			So(service.OutputDir(base, service.Params{ChunkIndex: 2, TotalJobs: 3}), ShouldEqual, "output/JetRates_CHUNK2/RatesJet/")
		})

		Convey("Then combine mode ignores the chunk fields", func() {
			So(service.OutputDir(base, service.Params{ChunkIndex: 5, TotalJobs: 9, Combine: true}), ShouldEqual, "output/JetRates_hadd/RatesJet/")
		})
	})
}

func TestDriverRun(t *testing.T) {
	ctx := context.Background()

	Convey("Given the last chunk of ten files split across three jobs", t, func() {
		h := newHarness(t)
		res, err := h.driver().Run(ctx, service.Params{ChunkIndex: 2, TotalFiles: 10, TotalJobs: 3})

		Convey("Then the source is opened over files 7 to 10", func() {
			So(err, ShouldBeNil)
			So(h.opened, ShouldHaveLength, 1)
			So(h.opened[0], ShouldResemble, []string{
				"/data/L1Ntuple_7.parquet",
				"/data/L1Ntuple_8.parquet",
				"/data/L1Ntuple_9.parquet",
				"/data/L1Ntuple_10.parquet",
			})
			So(res.Range.First, ShouldEqual, 7)
			So(res.Range.Last, ShouldEqual, 10)
		})

		Convey("And every counter is configured for the chunk directory", func() {
			So(res.OutputDir, ShouldEqual, h.cfg.OutputBaseDir+"_CHUNK2/RatesJet/")
			So(h.counters, ShouldHaveLength, 4)
			for _, c := range h.counters {
				So(c.outDir, ShouldEqual, res.OutputDir)
				So(c.meta.SampleName, ShouldEqual, "ZeroBias")
				So(c.meta.RunID, ShouldEqual, "run-1")
				So(c.resets, ShouldEqual, 1)
				So(c.finalizes, ShouldEqual, 1)
			}
		})
	})

	Convey("Given an event with three jets", t, func() {
		h := newHarness(t, model.Event{Position: 0, JetEt: []float64{12.5, 30.2, 5.0}})
		res, err := h.driver().Run(ctx, service.Params{ChunkIndex: 0, TotalFiles: 1, TotalJobs: 1})

		Convey("Then single, double and triple counters each get 30.2", func() {
			So(err, ShouldBeNil)
			for _, m := range []rates.Multiplicity{rates.SingleJets, rates.DoubleJets, rates.TripleJets} {
				So(h.counters[m].fills, ShouldResemble, []fill{{30.2, 0}})
			}
			So(h.counters[rates.QuadJets].fills, ShouldBeEmpty)
			So(res.Fills, ShouldResemble, map[string]int64{"singleJets": 1, "doubleJets": 1, "tripleJets": 1})
			So(res.EventsScanned, ShouldEqual, 1)
		})
	})

	Convey("Given combine mode", t, func() {
		h := newHarness(t, model.Event{JetEt: []float64{50}})
		res, err := h.driver().Run(ctx, service.Params{ChunkIndex: 7, TotalFiles: 0, TotalJobs: 0, Combine: true})

		Convey("Then no file range is planned and the source is never read", func() {
			So(err, ShouldBeNil)
			So(h.opened, ShouldHaveLength, 1)
			So(h.opened[0], ShouldBeEmpty)
			So(h.src.nextCalls, ShouldEqual, 0)
			So(h.reporter.calls, ShouldBeEmpty)
			So(res.EventsScanned, ShouldEqual, 0)
		})

		Convey("And every counter is resumed and finalized in the combine directory", func() {
			So(res.OutputDir, ShouldEqual, h.cfg.OutputBaseDir+"_hadd/RatesJet/")
			for _, c := range h.counters {
				So(c.resumes, ShouldEqual, 1)
				So(c.resets, ShouldEqual, 0)
				So(c.fills, ShouldBeEmpty)
				So(c.finalizes, ShouldEqual, 1)
			}
		})
	})

	Convey("Given a chunk index equal to the number of jobs", t, func() {
		h := newHarness(t)
		_, err := h.driver().Run(ctx, service.Params{ChunkIndex: 2, TotalFiles: 10, TotalJobs: 2})

		Convey("Then the run fails with a configuration error before touching anything", func() {
			So(errors.Is(err, config.ErrInvalidConfig), ShouldBeTrue)
			var cfgErr *config.Error
			So(errors.As(err, &cfgErr), ShouldBeTrue)
			So(h.opened, ShouldBeEmpty)
			So(h.counters, ShouldBeEmpty)
		})
	})

	Convey("Given three events", t, func() {
		h := newHarness(t,
			model.Event{Position: 0, JetEt: []float64{10}},
			model.Event{Position: 1},
			model.Event{Position: 2, JetEt: []float64{40, 41, 42, 43, 44}},
		)
		res, err := h.driver().Run(ctx, service.Params{TotalFiles: 3, TotalJobs: 1})

		Convey("Then progress is reported with 1-based positions against a total read once", func() {
			So(err, ShouldBeNil)
			So(h.src.totalCalls, ShouldEqual, 1)
			So(h.reporter.calls, ShouldResemble, []progressCall{{1, 3}, {2, 3}, {3, 3}})
			So(res.TotalEntries, ShouldEqual, 3)
		})

		Convey("And events without jets fill nothing", func() {
			So(h.counters[rates.SingleJets].fills, ShouldResemble, []fill{{10, 0}, {44, 0}})
			So(h.counters[rates.QuadJets].fills, ShouldResemble, []fill{{44, 0}})
		})

		Convey("And the source is closed", func() {
			So(h.src.closed, ShouldBeTrue)
		})
	})

	Convey("Given an empty event stream", t, func() {
		h := newHarness(t)
		res, err := h.driver().Run(ctx, service.Params{TotalFiles: 1, TotalJobs: 1})

		Convey("Then the counters are still finalized", func() {
			So(err, ShouldBeNil)
			So(res.TotalEntries, ShouldEqual, 0)
			for _, c := range h.counters {
				So(c.finalizes, ShouldEqual, 1)
			}
		})
	})
}

func TestDriverRunErrors(t *testing.T) {
	ctx := context.Background()

	Convey("Given a source that fails mid-scan", t, func() {
		boom := errors.New("corrupt basket")
		h := newHarness(t, model.Event{JetEt: []float64{1}}, model.Event{JetEt: []float64{2}})
		h.src.failAt, h.src.failErr = 1, boom
		_, err := h.driver().Run(ctx, service.Params{TotalFiles: 1, TotalJobs: 1})

		Convey("Then the error propagates and nothing is finalized", func() {
			So(errors.Is(err, boom), ShouldBeTrue)
			So(h.counters[rates.SingleJets].finalizes, ShouldEqual, 0)
		})
	})

	Convey("Given a run cancelled during the scan", t, func() {
		cctx, cancel := context.WithCancel(ctx)
		defer cancel()
		h := newHarness(t, model.Event{JetEt: []float64{1}}, model.Event{JetEt: []float64{2}}, model.Event{JetEt: []float64{3}})
		h.src.onNext = func(i int) {
			if i == 1 {
				cancel()
			}
		}
		res, err := h.driver().Run(cctx, service.Params{TotalFiles: 1, TotalJobs: 1})

		Convey("Then the run stops as interrupted without finalizing", func() {
			So(errors.Is(err, service.ErrScanInterrupted), ShouldBeTrue)
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
			So(res.EventsScanned, ShouldEqual, 2)
			So(h.counters[rates.SingleJets].finalizes, ShouldEqual, 0)
		})
	})

	Convey("Given a configuration with an unknown counter name", t, func() {
		h := newHarness(t)
		h.cfg.Rates = []config.RateConfig{{Name: "fiveJets", Bins: 10, Max: 100}}
		_, err := h.driver().Run(ctx, service.Params{TotalFiles: 1, TotalJobs: 1})

		Convey("Then the run fails with a configuration error", func() {
			So(errors.Is(err, config.ErrInvalidConfig), ShouldBeTrue)
			So(h.opened, ShouldBeEmpty)
		})
	})

	Convey("Given a configuration without counters", t, func() {
		h := newHarness(t)
		h.cfg.Rates = nil
		_, err := h.driver().Run(ctx, service.Params{TotalFiles: 1, TotalJobs: 1})

		Convey("Then the run fails with ErrNoCounters", func() {
			So(errors.Is(err, service.ErrNoCounters), ShouldBeTrue)
		})
	})
}

func TestDriverConfigIsolation(t *testing.T) {
	Convey("Given a driver built from a configuration value", t, func() {
		h := newHarness(t)
		d := h.driver()
		base := h.cfg.OutputBaseDir

		Convey("When the caller changes its copy afterwards", func() {
			h.cfg.OutputBaseDir = "/elsewhere"
			res, err := d.Run(context.Background(), service.Params{TotalFiles: 1, TotalJobs: 1})

			Convey("Then the driver still uses the original value", func() {
				So(err, ShouldBeNil)
				So(res.OutputDir, ShouldEqual, base+"/RatesJet/")
			})
		})
	})
}

func TestDriverPlan(t *testing.T) {
	Convey("Given ten files split across three jobs", t, func() {
		h := newHarness(t)
		plans, combineDir, err := h.driver().Plan(10, 3)

		Convey("Then every chunk gets its range, files and directory", func() {
			So(err, ShouldBeNil)
			So(plans, ShouldHaveLength, 3)
			So(plans[0].Range.String(), ShouldEqual, "[1,3]")
			So(plans[1].Range.String(), ShouldEqual, "[4,6]")
			So(plans[2].Range.String(), ShouldEqual, "[7,10]")
			So(plans[2].Files, ShouldHaveLength, 4)
			So(plans[1].OutputDir, ShouldEqual, h.cfg.OutputBaseDir+"_CHUNK1/RatesJet/")
			So(combineDir, ShouldEqual, h.cfg.OutputBaseDir+"_hadd/RatesJet/")
		})
	})

	Convey("Given zero jobs", t, func() {
		h := newHarness(t)
		_, _, err := h.driver().Plan(10, 0)

		Convey("Then planning fails with a configuration error", func() {
			So(errors.Is(err, config.ErrInvalidConfig), ShouldBeTrue)
		})
	})
}
