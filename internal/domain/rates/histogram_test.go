package rates_test

import (
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/jetrates/internal/adapters/repository"
	"github.com/okian/jetrates/internal/domain/rates"
	. "github.com/smartystreets/goconvey/convey"
	"gopkg.in/yaml.v3"
)

var fixedNow = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

func newCounter(m rates.Multiplicity, opts ...rates.HistogramOption) *rates.HistogramCounter {
	opts = append([]rates.HistogramOption{rates.WithClock(func() time.Time { return fixedNow })}, opts...)
	c, err := rates.NewHistogramCounter(rates.Spec{Multiplicity: m, Bins: 10, Min: 0, Max: 100}, opts...)
	So(err, ShouldBeNil)
	return c
}

func TestHistogramCounter(t *testing.T) {
	ctx := context.Background()

	Convey("Given a configured and reset counter", t, func() {
		dir := filepath.Join(t.TempDir(), "out_CHUNK0", "RatesJet") + "/"
		c := newCounter(rates.DoubleJets, rates.WithRateScale(2), rates.WithStyle(rates.Style{XLabel: "E_T", YLabel: "Rate", LogY: true}))
		c.Configure(rates.Metadata{SampleName: "ZeroBias", TriggerName: "doubleJet", Run: "276243", RunID: "run-1"}, dir)
		So(c.Reset(ctx), ShouldBeNil)

		Convey("When values are accumulated across the range", func() {
			for _, v := range []float64{-1, 0, 9.99, 10, 55.5, 99.9, 100, 250} {
				c.Accumulate(v, 0)
			}
			st := c.State()

			Convey("Then each value lands in exactly one bin or flow slot", func() {
				So(st.Entries, ShouldEqual, 8)
				So(st.Underflow, ShouldEqual, 1)
				So(st.Overflow, ShouldEqual, 2)
				So(st.Counts, ShouldResemble, []uint64{2, 1, 0, 0, 0, 1, 0, 0, 0, 1})
			})

			Convey("And the rate table is cumulative from the top", func() {
				table := rates.RateTable(st, 2)
				So(table, ShouldHaveLength, 10)
				So(table[0].Cumulative, ShouldEqual, 7)
				So(table[0].Rate, ShouldEqual, 14)
				So(table[9].Cumulative, ShouldEqual, 3)
				So(table[9].Low, ShouldEqual, 90)
				So(table[9].High, ShouldEqual, 100)
			})
		})

		Convey("When pile-up is passed", func() {
			c.Accumulate(42, 17)

			Convey("Then it is recorded but does not weight the entry", func() {
				st := c.State()
				So(st.Entries, ShouldEqual, 1)
				So(st.Counts[4], ShouldEqual, 1)
				So(st.SumPileUp, ShouldEqual, 17)
			})
		})

		Convey("When finalized", func() {
			c.Accumulate(42, 0)
			c.Accumulate(77, 0)
			So(c.Finalize(ctx), ShouldBeNil)

			Convey("Then the state, table and summary are written to the output dir", func() {
				for _, name := range []string{"doubleJets.cbor", "doubleJets.csv", "doubleJets.yaml"} {
					_, err := os.Stat(dir + name)
					So(err, ShouldBeNil)
				}
			})

			Convey("And the table has a header plus one row per bin", func() {
				f, err := os.Open(dir + "doubleJets.csv")
				So(err, ShouldBeNil)
				defer f.Close()
				rows, err := csv.NewReader(f).ReadAll()
				So(err, ShouldBeNil)
				So(rows, ShouldHaveLength, 11)
				So(rows[0], ShouldResemble, []string{"et_low", "et_high", "count", "cumulative", "rate"})
				So(rows[5], ShouldResemble, []string{"40", "50", "1", "2", "4"})
			})

			Convey("And the summary carries labels and style", func() {
				data, err := os.ReadFile(dir + "doubleJets.yaml")
				So(err, ShouldBeNil)
				var doc map[string]any
				So(yaml.Unmarshal(data, &doc), ShouldBeNil)
				So(doc["name"], ShouldEqual, "doubleJets")
				So(doc["threshold"], ShouldEqual, 2)
				So(doc["entries"], ShouldEqual, 2)
				So(doc["run"], ShouldEqual, "276243")
				style, ok := doc["style"].(map[string]any)
				So(ok, ShouldBeTrue)
				So(style["x_label"], ShouldEqual, "E_T")
				So(style["log_y"], ShouldBeTrue)
			})
		})
	})

	Convey("Given a counter that was never reset", t, func() {
		c := newCounter(rates.SingleJets)

		Convey("Then accumulating is a no-op and finalizing fails", func() {
			c.Accumulate(10, 0)
			So(c.State().Entries, ShouldEqual, 0)
			So(errors.Is(c.Finalize(context.Background()), rates.ErrNotInitialized), ShouldBeTrue)
		})

		Convey("Then reset without configure fails", func() {
			So(errors.Is(c.Reset(context.Background()), rates.ErrNotConfigured), ShouldBeTrue)
		})
	})

	Convey("Given invalid counter specs", t, func() {
		Convey("Then zero bins, an empty range and an unknown multiplicity are rejected", func() {
			_, err := rates.NewHistogramCounter(rates.Spec{Multiplicity: rates.SingleJets, Bins: 0, Max: 1})
			So(err, ShouldNotBeNil)
			_, err = rates.NewHistogramCounter(rates.Spec{Multiplicity: rates.SingleJets, Bins: 4, Min: 5, Max: 5})
			So(err, ShouldNotBeNil)
			_, err = rates.NewHistogramCounter(rates.Spec{Multiplicity: rates.Multiplicity(-1), Bins: 4, Max: 5})
			So(errors.Is(err, rates.ErrUnknownCounter), ShouldBeTrue)
		})
	})
}

func TestHistogramCounterResume(t *testing.T) {
	ctx := context.Background()

	Convey("Given a finalized chunk in an output directory", t, func() {
		dir := t.TempDir() + "/base_hadd/RatesJet/"
		first := newCounter(rates.TripleJets)
		first.Configure(rates.Metadata{RunID: "scan"}, dir)
		So(first.Reset(ctx), ShouldBeNil)
		first.Accumulate(15, 0)
		first.Accumulate(15, 0)
		So(first.Finalize(ctx), ShouldBeNil)

		Convey("When a second counter resumes and adds more entries", func() {
			second := newCounter(rates.TripleJets)
			second.Configure(rates.Metadata{RunID: "combine"}, dir)
			So(second.Resume(ctx), ShouldBeNil)
			second.Accumulate(15, 0)
			st := second.State()

			Convey("Then prior contents are kept and the new entries add on", func() {
				So(st.Entries, ShouldEqual, 3)
				So(st.Counts[1], ShouldEqual, 3)
				So(st.RunIDs, ShouldResemble, []string{"scan", "combine"})
			})
		})

		Convey("When the resuming counter has different binning", func() {
			other, err := rates.NewHistogramCounter(rates.Spec{Multiplicity: rates.TripleJets, Bins: 20, Min: 0, Max: 100})
			So(err, ShouldBeNil)
			other.Configure(rates.Metadata{}, dir)

			Convey("Then resume fails with ErrBinningMismatch", func() {
				So(errors.Is(other.Resume(ctx), rates.ErrBinningMismatch), ShouldBeTrue)
			})
		})

		Convey("When a counter with no saved state resumes", func() {
			quad := newCounter(rates.QuadJets)
			quad.Configure(rates.Metadata{}, dir)

			Convey("Then it reports the missing state", func() {
				So(errors.Is(quad.Resume(ctx), repository.ErrStateNotFound), ShouldBeTrue)
			})
		})
	})
}

func TestHistogramCounterAdditivity(t *testing.T) {
	ctx := context.Background()

	Convey("Given one stream split across two resumed runs", t, func() {
		values := []float64{3, 18, 18, 44, 61, 99, 120, 7, 7, 52}
		whole := newCounter(rates.SingleJets)
		whole.Configure(rates.Metadata{}, t.TempDir()+"/whole/")
		So(whole.Reset(ctx), ShouldBeNil)
		for _, v := range values {
			whole.Accumulate(v, 0)
		}

		dir := t.TempDir() + "/split/"
		a := newCounter(rates.SingleJets)
		a.Configure(rates.Metadata{}, dir)
		So(a.Reset(ctx), ShouldBeNil)
		for _, v := range values[:4] {
			a.Accumulate(v, 0)
		}
		So(a.Finalize(ctx), ShouldBeNil)

		b := newCounter(rates.SingleJets)
		b.Configure(rates.Metadata{}, dir)
		So(b.Resume(ctx), ShouldBeNil)
		for _, v := range values[4:] {
			b.Accumulate(v, 0)
		}

		Convey("Then the resumed histogram equals the single-pass histogram", func() {
			So(b.State().Counts, ShouldResemble, whole.State().Counts)
			So(b.State().Overflow, ShouldEqual, whole.State().Overflow)
			So(b.State().Entries, ShouldEqual, whole.State().Entries)
		})
	})
}

type failingStore struct{ err error }

func (s failingStore) Save(context.Context, string, string, *repository.CounterState) error {
	return s.err
}

func (s failingStore) Load(context.Context, string, string) (*repository.CounterState, error) {
	return nil, s.err
}

func TestHistogramCounterStoreErrors(t *testing.T) {
	Convey("Given a counter backed by a failing store", t, func() {
		boom := errors.New("store unavailable")
		c := newCounter(rates.SingleJets, rates.WithStore(failingStore{err: boom}))
		c.Configure(rates.Metadata{}, t.TempDir()+"/")
		So(c.Reset(context.Background()), ShouldBeNil)

		Convey("Then finalize surfaces the store error", func() {
			So(errors.Is(c.Finalize(context.Background()), boom), ShouldBeTrue)
		})

		Convey("Then resume surfaces the store error", func() {
			So(errors.Is(c.Resume(context.Background()), boom), ShouldBeTrue)
		})
	})
}
