package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var historyFlags struct {
	limit int
	prune int
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent scans of a category",
	Long: `History lists past scans of a category, newest first.

Examples:
  dirscope history -c 3
  dirscope history --prune 20`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		if cmd.Flags().Changed("prune") {
			removed, err := current.history.Prune(ctx, historyFlags.prune)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "pruned %d scans\n", removed)
			return nil
		}

		if categoryID <= 0 {
			return fmt.Errorf("--category is required")
		}
		runs, err := current.history.List(ctx, categoryID, historyFlags.limit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Fprintf(out, "category %d has not been scanned\n", categoryID)
			return nil
		}

		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tSTARTED\tSTATUS\tITEMS\tBATCHES\tDURATION\tERROR")
		for _, r := range runs {
			duration := "-"
			if r.CompletedAt != nil {
				duration = r.CompletedAt.Sub(r.StartedAt).Round(time.Millisecond).String()
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
				shortID(r.ID), humanize.Time(r.StartedAt), r.Status,
				humanize.Comma(int64(r.Items)), r.Batches, duration, r.Error)
		}
		return tw.Flush()
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyFlags.limit, "limit", 10, "number of scans to show (0 for all)")
	historyCmd.Flags().IntVar(&historyFlags.prune, "prune", 0, "keep only the newest N scans of every category")
	rootCmd.AddCommand(historyCmd)
}
