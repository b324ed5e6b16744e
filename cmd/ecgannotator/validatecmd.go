package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/openecglab/ECGAnnotator/src/tasks"
)

func newValidateCommand(ctx *commandContext) *cobra.Command {
	var parallel int

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check that every record under the data directory is readable",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			root := cfg.Paths.DataDir
			if root == "" {
				return errors.New("no data directory configured; set paths.data_dir or pass --data-dir")
			}
			list, err := tasks.Discover(root, nil)
			if err != nil {
				return err
			}
			if len(list) == 0 {
				return fmt.Errorf("no record folders under %s", root)
			}
			results, err := tasks.Validate(cmd.Context(), list, parallel)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			rows := make([][]string, 0, len(results))
			bad := 0
			for _, r := range results {
				if r.Err != nil {
					bad++
					rows = append(rows, []string{r.Task.Name, "-", "-", "-", r.Err.Error()})
					continue
				}
				rows = append(rows, []string{
					r.Task.Name,
					strconv.Itoa(r.Leads),
					strconv.FormatFloat(r.Fs, 'g', -1, 64),
					r.Duration.Round(time.Millisecond).String(),
					"OK",
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Record", "Leads", "Fs (Hz)", "Length", "Status"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignLeft},
			))

			if bad > 0 {
				fmt.Fprintln(out, color.RedString("%d of %d record(s) unreadable", bad, len(results)))
				return fmt.Errorf("%d of %d records failed validation", bad, len(results))
			}
			fmt.Fprintln(out, color.GreenString("all %d record(s) readable", len(results)))
			return nil
		},
	}

	cmd.Flags().IntVar(&parallel, "parallel", 0, "Concurrent record reads (0 = number of CPUs)")
	return cmd
}
