package main

import (
	"fmt"
	"strconv"

	app "github.com/okian/jetrates/internal/app"

	"github.com/spf13/cobra"
)

func newPlanCmd(st *cliState) *cobra.Command {
	var showFiles bool

	cmd := &cobra.Command{
		Use:   "plan NFILES NJOBS",
		Short: "Print the file range and output directory of every chunk",
		Args:  cobra.ExactArgs(2),
		RunE: func(c *cobra.Command, args []string) error {
			files, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("NFILES must be an integer, got %q", args[0])
			}
			jobs, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("NJOBS must be an integer, got %q", args[1])
			}

			plans, combineDir, err := app.New(*st.cfg).Plan(files, jobs)
			if err != nil {
				return err
			}
			out := c.OutOrStdout()
			for _, p := range plans {
				fmt.Fprintf(out, "chunk %d\tfiles %s\t%s\n", p.ChunkIndex, p.Range, p.OutputDir)
				if showFiles {
					for _, f := range p.Files {
						fmt.Fprintf(out, "\t%s\n", f)
					}
				}
			}
			fmt.Fprintf(out, "combine\t%s\n", combineDir)
			return nil
		},
	}
	cmd.Flags().BoolVar(&showFiles, "files", false, "List every input file under its chunk")
	return cmd
}
