package main

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/openecglab/ECGAnnotator/src/annotations"
	"github.com/openecglab/ECGAnnotator/src/audit"
)

func newStatsCommand(ctx *commandContext) *cobra.Command {
	var showSessions bool
	var sessionLimit int

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarize the annotation table",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			rows, err := annotations.ReadFile(cfg.Paths.AnnotationsFile)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			sum := annotations.Summarize(rows)

			fmt.Fprintf(out, "%s (%d rows)\n", cfg.Paths.AnnotationsFile, sum.Total)
			fmt.Fprintln(out, renderTable(
				[]string{"Label", "First pass", "Second pass"},
				[][]string{
					{"benign (0)", strconv.Itoa(sum.FirstBenign), strconv.Itoa(sum.SecondBenign)},
					{"malignant (1)", strconv.Itoa(sum.FirstMalignant), strconv.Itoa(sum.SecondMalignant)},
					{"unknown (999)", strconv.Itoa(sum.FirstUnknown), strconv.Itoa(sum.SecondUnknown)},
					{"total", strconv.Itoa(sum.Total), strconv.Itoa(sum.SecondDone)},
				},
				[]columnAlignment{alignLeft, alignRight, alignRight},
			))

			if len(sum.Annotators) > 0 {
				names := make([]string, 0, len(sum.Annotators))
				for name := range sum.Annotators {
					names = append(names, name)
				}
				sort.Strings(names)
				annotRows := make([][]string, 0, len(names))
				for _, name := range names {
					ac := sum.Annotators[name]
					annotRows = append(annotRows, []string{name, strconv.Itoa(ac.First), strconv.Itoa(ac.Second)})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Annotator", "First pass", "Second pass"},
					annotRows,
					[]columnAlignment{alignLeft, alignRight, alignRight},
				))
			}

			if sum.RecheckPending == 0 {
				fmt.Fprintln(out, color.GreenString("no records awaiting recheck"))
			} else {
				fmt.Fprintln(out, color.YellowString("%d record(s) awaiting recheck", sum.RecheckPending))
			}

			if showSessions {
				events, err := audit.ReadRecent(cfg.Paths.AuditFile, sessionLimit)
				if err != nil {
					return err
				}
				if len(events) == 0 {
					fmt.Fprintln(out, "no audit events recorded yet")
					return nil
				}
				sessRows := make([][]string, 0)
				for _, s := range audit.Summarize(events) {
					id := s.SessionID
					if len(id) > 8 {
						id = id[:8]
					}
					start := ""
					if !s.Start.IsZero() {
						start = s.Start.Local().Format("2006-01-02 15:04")
					}
					sessRows = append(sessRows, []string{
						id, s.Annotator,
						strconv.Itoa(s.FirstPass), strconv.Itoa(s.SecondPass),
						start,
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Session", "Annotator", "First", "Second", "Started"},
					sessRows,
					[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft},
				))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&showSessions, "sessions", false, "Tabulate recent labeling sessions from the audit trail")
	cmd.Flags().IntVar(&sessionLimit, "last", 1000, "How many audit events to scan for --sessions")
	return cmd
}
