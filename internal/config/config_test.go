package config_test

import (
	"errors"
	"testing"

	"github.com/okian/jetrates/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.LogLevel, convey.ShouldEqual, "info")
			convey.So(cfg.InputFormat, convey.ShouldEqual, config.FormatAuto)
			convey.So(cfg.OutputBaseDir, convey.ShouldEqual, "output/JetRates")
			convey.So(cfg.ProgressEvery, convey.ShouldEqual, 10)
			convey.So(cfg.RateScale, convey.ShouldEqual, 1.0)
			convey.So(cfg.WriteMetrics, convey.ShouldBeTrue)
			convey.So(cfg.Style.LogY, convey.ShouldBeTrue)
		})

		convey.Convey("And it should track all four multiplicities", func() {
			convey.So(cfg.Rates, convey.ShouldHaveLength, 4)
			names := []string{}
			for _, r := range cfg.Rates {
				names = append(names, r.Name)
				convey.So(r.Bins, convey.ShouldEqual, 400)
				convey.So(r.Max, convey.ShouldBeGreaterThan, r.Min)
			}
			convey.So(names, convey.ShouldResemble, []string{"singleJets", "doubleJets", "tripleJets", "quadJets"})
		})

		convey.Convey("And the defaults should validate", func() {
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given a valid config", t, func() {
		cfg := *config.New()

		cases := []struct {
			name   string
			mutate func(c *config.Config)
			field  string
		}{
			{"empty output dir", func(c *config.Config) { c.OutputBaseDir = " " }, "output_base_dir"},
			{"unknown format", func(c *config.Config) { c.InputFormat = "root" }, "input_format"},
			{"progress above 100", func(c *config.Config) { c.ProgressEvery = 101 }, "progress_every"},
			{"zero rate scale", func(c *config.Config) { c.RateScale = 0 }, "rate_scale"},
			{"duplicate counter", func(c *config.Config) { c.Rates = append(c.Rates, c.Rates[0]) }, "rates"},
			{"empty counter name", func(c *config.Config) { c.Rates = []config.RateConfig{{Bins: 1, Max: 1}} }, "rates"},
			{"zero bins", func(c *config.Config) { c.Rates = []config.RateConfig{{Name: "singleJets", Max: 1}} }, "rates"},
			{"inverted range", func(c *config.Config) {
				c.Rates = []config.RateConfig{{Name: "singleJets", Bins: 10, Min: 5, Max: 5}}
			}, "rates"},
		}

		for _, tc := range cases {
			convey.Convey("When the config has "+tc.name, func() {
				bad := cfg
				bad.Rates = append([]config.RateConfig(nil), cfg.Rates...)
				tc.mutate(&bad)
				err := bad.Validate()

				convey.Convey("Then it should return a config error for "+tc.field, func() {
					convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
					var cerr *config.Error
					convey.So(errors.As(err, &cerr), convey.ShouldBeTrue)
					convey.So(cerr.Field, convey.ShouldEqual, tc.field)
				})
			})
		}
	})
}

func TestConfig_InputFile(t *testing.T) {
	convey.Convey("Given an input file pattern", t, func() {
		cfg := *config.New()

		convey.Convey("When the pattern uses a Go verb", func() {
			cfg.InputFilePattern = "/data/L1Ntuple_%d.parquet"
			convey.So(cfg.InputFile(7), convey.ShouldEqual, "/data/L1Ntuple_7.parquet")
		})

		convey.Convey("When the pattern uses a C-style %i verb", func() {
			cfg.InputFilePattern = "/data/L1Ntuple_%i.root.ndjson"
			convey.So(cfg.InputFile(12), convey.ShouldEqual, "/data/L1Ntuple_12.root.ndjson")
		})

		convey.Convey("When the C-style verb carries a width", func() {
			cfg.InputFilePattern = "/data/run_%03i.parquet"
			convey.So(cfg.InputFile(5), convey.ShouldEqual, "/data/run_005.parquet")
		})
	})
}
