package main

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"sdfit/internal/journal"
)

func newHistoryCmd(opts *rootOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded runs, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.journalDSN == "" {
				return errors.New("history needs --journal")
			}
			j, err := journal.Open(opts.journalDriver, opts.journalDSN)
			if err != nil {
				return err
			}
			defer j.Close()

			runs, err := j.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tWHEN\tMETHOD\tFORMAT\tSIZE\tSAMPLES\tFIT RMS\tLUT RMS\tMEAN ΔE\tTOOK\tOUTPUT")
			for _, r := range runs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\t%.6f\t%.6f\t%.3f\t%s\t%s\n",
					shortID(r.ID), humanize.Time(r.Time), r.Method, r.Format, r.CubeSize,
					humanize.Comma(int64(r.Samples)), r.FitRMS, r.LUTRMS, r.MeanDeltaE,
					r.Elapsed.Round(time.Millisecond), r.Output)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to list")
	return cmd
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
