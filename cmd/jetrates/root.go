package main

import (
	"context"
	"fmt"

	"github.com/okian/jetrates/internal/config"
	"github.com/okian/jetrates/pkg/logger"

	"github.com/spf13/cobra"
)

// cliState is shared by every subcommand once the persistent pre-run has
// loaded the configuration.
type cliState struct {
	configPath string
	cfg        *config.Config
}

func newRootCmd() *cobra.Command {
	st := &cliState{}

	cmd := &cobra.Command{
		Use:   "jetrates",
		Short: "Compute jet multiplicity trigger rates",
		Long: `Scan a chunk of L1 ntuple files, fill one rate histogram per jet
multiplicity (single, double, triple, quad) and write the rates to an
output directory. A combine run re-finalizes previously gathered state.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(c *cobra.Command, _ []string) error {
			return st.setup(c.Context(), c)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			_ = logger.Sync()
		},
	}
	cmd.PersistentFlags().StringVar(&st.configPath, "config", "", "YAML config file (overrides "+config.EnvConfigFile+")")

	cmd.AddCommand(newRunCmd(st))
	cmd.AddCommand(newPlanCmd(st))
	return cmd
}

// setup loads configuration and initializes logging on stderr so stdout only
// carries command output.
func (st *cliState) setup(ctx context.Context, c *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load(ctx, config.WithFile(st.configPath))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	st.cfg = cfg

	if err := logger.Init(logger.WithWriter(c.ErrOrStderr()), logger.WithJSON(cfg.LogJSON)); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		logger.Get().Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	return nil
}
