package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Maintain the local settings and history database",
}

var dbStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show database size and housekeeping state",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := current.maintenance.Status(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "path:          %s\n", current.cfg.Database.Path)
		fmt.Fprintf(out, "size:          %s (wal %s)\n", humanize.IBytes(uint64(st.DBFileSize)), humanize.IBytes(uint64(st.WALFileSize)))
		fmt.Fprintf(out, "pages:         %s x %s\n", humanize.Comma(st.PageCount), humanize.IBytes(uint64(st.PageSize)))
		fmt.Fprintf(out, "schema:        v%d\n", st.SchemaVersion)
		fmt.Fprintf(out, "scan history:  %s runs\n", humanize.Comma(st.HistoryRows))
		last := "never"
		if st.LastOptimizeAt != "" {
			last = st.LastOptimizeAt
		}
		fmt.Fprintf(out, "last optimize: %s\n", last)
		return nil
	},
}

var dbOptimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Prune old scan history and optimize the database",
	RunE: func(cmd *cobra.Command, args []string) error {
		pruned, err := current.maintenance.Optimize(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "optimized, pruned %d scans\n", pruned)
		return nil
	},
}

var dbVacuumCmd = &cobra.Command{
	Use:   "vacuum",
	Short: "Rebuild the database file",
	RunE: func(cmd *cobra.Command, args []string) error {
		return current.maintenance.Vacuum(cmd.Context())
	},
}

var dbSnapshotCmd = &cobra.Command{
	Use:   "snapshot [dir]",
	Short: "Write a consistent copy of the database",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := current.cfg.Maintenance.SnapshotDir
		if len(args) == 1 {
			dir = args[0]
		}
		dest, err := current.maintenance.Snapshot(cmd.Context(), dir)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), dest)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(dbCmd)
	dbCmd.AddCommand(dbStatusCmd)
	dbCmd.AddCommand(dbOptimizeCmd)
	dbCmd.AddCommand(dbVacuumCmd)
	dbCmd.AddCommand(dbSnapshotCmd)
}
