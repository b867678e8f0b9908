package main

import (
	"fmt"
	"strconv"

	app "github.com/okian/jetrates/internal/app"
	"github.com/okian/jetrates/pkg/logger"

	"github.com/spf13/cobra"
)

func newRunCmd(st *cliState) *cobra.Command {
	var combine bool

	cmd := &cobra.Command{
		Use:   "run CHUNK NFILES NJOBS",
		Short: "Fill the rate counters for one chunk of input files",
		Long: `Split NFILES input files into NJOBS contiguous chunks and scan chunk
CHUNK (0-based). The last chunk absorbs the remainder.

With --combine no files are scanned: the counter state found in the
<output_base_dir>_hadd directory is resumed and rendered again, and the
positional arguments are optional.`,
		Args: func(c *cobra.Command, args []string) error {
			if combine {
				return cobra.MaximumNArgs(3)(c, args)
			}
			return cobra.ExactArgs(3)(c, args)
		},
		RunE: func(c *cobra.Command, args []string) error {
			params, err := parseRunArgs(args)
			if err != nil {
				return err
			}
			params.Combine = combine

			driver := app.New(*st.cfg,
				app.WithLogger(logger.Named("driver")),
				app.WithRunLog(true),
			)
			res, err := driver.Run(c.Context(), params)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.OutOrStdout(), "Output saved in:\n\t%s\n", res.OutputDir)
			return nil
		},
	}
	cmd.Flags().BoolVar(&combine, "combine", false, "Re-finalize the gathered counter state instead of scanning")
	return cmd
}

// parseRunArgs reads CHUNK NFILES NJOBS; missing trailing values stay zero.
func parseRunArgs(args []string) (app.Params, error) {
	names := []string{"CHUNK", "NFILES", "NJOBS"}
	vals := make([]int, len(names))
	for i, a := range args {
		v, err := strconv.Atoi(a)
		if err != nil {
			return app.Params{}, fmt.Errorf("%s must be an integer, got %q", names[i], a)
		}
		vals[i] = v
	}
	return app.Params{ChunkIndex: vals[0], TotalFiles: vals[1], TotalJobs: vals[2]}, nil
}
