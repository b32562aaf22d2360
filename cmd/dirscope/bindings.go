package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var bindingsCmd = &cobra.Command{
	Use:   "bindings",
	Short: "List the directories bound to a category",
	RunE: func(cmd *cobra.Command, args []string) error {
		bound, err := selectCategory(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(bound) == 0 {
			fmt.Fprintf(out, "category %d has no bound directories\n", categoryID)
			return nil
		}
		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tPATH\tBOUND")
		for _, b := range bound {
			created := "-"
			if !b.CreatedAt.IsZero() {
				created = humanize.Time(b.CreatedAt)
			}
			fmt.Fprintf(tw, "%d\t%s\t%s\n", b.ID, b.Path, created)
		}
		return tw.Flush()
	},
}

var bindCmd = &cobra.Command{
	Use:   "bind <path>",
	Short: "Bind a directory to a category and rescan it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if _, err := selectCategory(ctx); err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		b, result, err := current.catalog.AddBinding(ctx, args[0])
		if b != nil {
			fmt.Fprintf(out, "bound %s to category %d (binding %d)\n", b.Path, b.CategoryID, b.ID)
		}
		if result != nil {
			printResult(out, result)
		}
		if err != nil {
			return err
		}
		printStats(out, current.catalog.Stats(), current.catalog.Summary())
		return nil
	},
}

var unbindCmd = &cobra.Command{
	Use:   "unbind <binding-id>",
	Short: "Remove a directory binding and rescan what remains",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		bindingID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid binding id %q", args[0])
		}
		ctx := cmd.Context()
		if _, err := selectCategory(ctx); err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		result, err := current.catalog.RemoveBinding(ctx, bindingID)
		if result != nil {
			printResult(out, result)
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "removed binding %d\n", bindingID)
		if result == nil {
			fmt.Fprintln(out, "no bound directories left")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(bindingsCmd)
	rootCmd.AddCommand(bindCmd)
	rootCmd.AddCommand(unbindCmd)
}
