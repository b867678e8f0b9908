package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/okian/jetrates/internal/testevents"

	"github.com/spf13/cobra"
)

// Default configuration constants.
const (
	defaultNumFiles      = 10
	defaultEventsPerFile = 10000
	defaultMaxJets       = 8
	defaultSeed          = 20161015
	defaultRun           = 276243
	defaultWorkers       = 2 // multiplier for runtime.NumCPU()
)

func newRootCmd() *cobra.Command {
	config := &testevents.Config{}

	cmd := &cobra.Command{
		Use:   "gen-events",
		Short: "Write deterministic synthetic L1 jet ntuples",
		Long: `Generate NFILES ntuple files named after a printf pattern. The same seed
always produces the same files, so the output can be used as a fixture for
chunked rate jobs.`,
		Example: `  # Ten parquet files of 10k events
  gen-events --out /tmp/ntuples

  # NDJSON, small and verbose
  gen-events --out /tmp/ntuples --pattern 'L1Ntuple_%d.ndjson' --files 4 --events 100 --verbose`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(c *cobra.Command, _ []string) error {
			verbose, err := c.Flags().GetBool("verbose")
			if err != nil {
				return fmt.Errorf("failed to get verbose flag: %w", err)
			}
			closeLog, err := testevents.SetupLogging(config.LogFile, verbose)
			if err != nil {
				return err
			}
			defer closeLog()

			_, err = testevents.Run(c.Context(), config)
			return err
		},
	}

	f := cmd.Flags()
	f.StringVar(&config.OutputDir, "out", "ntuples", "Directory the files are written to")
	f.StringVar(&config.FilePattern, "pattern", "L1Ntuple_%d.parquet", "File name pattern taking the 1-based file index")
	f.StringVar(&config.Format, "format", "auto", "Output format: auto, parquet or ndjson")
	f.IntVar(&config.NumFiles, "files", defaultNumFiles, "Number of files to write")
	f.IntVar(&config.EventsPerFile, "events", defaultEventsPerFile, "Events per file")
	f.IntVar(&config.MaxJets, "max-jets", defaultMaxJets, "Maximum jet multiplicity")
	f.Uint64Var(&config.Seed, "seed", defaultSeed, "Generator seed")
	f.Int64Var(&config.Run, "run", defaultRun, "Run number stamped on every event")
	f.IntVar(&config.Workers, "workers", runtime.NumCPU()*defaultWorkers, "Number of files generated concurrently")
	f.StringVar(&config.LogFile, "log", "", "Also write logs to this file")
	f.Bool("verbose", false, "Enable verbose logging")
	return cmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Stderr.WriteString("gen-events: " + err.Error() + "\n")
		stop()
		os.Exit(1)
	}
}
