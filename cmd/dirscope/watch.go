package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sydlexius/dirscope/internal/catalog"
	"github.com/sydlexius/dirscope/internal/watcher"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Rescan a category whenever its directories change",
	Long: `Watch scans the category once, then watches every bound directory and
rescans after changes settle. Stop it with Ctrl-C.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		bound, err := selectCategory(ctx)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		rescan := func(ctx context.Context) error {
			// Pick up bindings added or removed elsewhere.
			if _, err := current.catalog.Select(ctx, categoryID); err != nil {
				return err
			}
			result, err := current.catalog.Rescan(ctx)
			if result != nil {
				printResult(out, result)
			}
			if err != nil {
				if errors.Is(err, catalog.ErrNoBindings) {
					// The catalog has dropped its resources.
					fmt.Fprintf(out, "category %d has no bound directories\n", categoryID)
					return nil
				}
				return err
			}
			printStats(out, current.catalog.Stats(), current.catalog.Summary())
			return nil
		}
		if err := rescan(ctx); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "initial scan failed: %v\n", err)
		}

		support := watcher.NewSupportCache()
		support.CheckAll(ctx, bound, current.logger)

		opts := current.catalog.ScanOptions(ctx)
		svc := watcher.NewService(rescan, current.catalog, current.bus, current.logger, support)
		svc.SetDebounce(current.cfg.Watch.Debounce)
		svc.SetRefreshPeriod(current.cfg.Watch.RefreshPeriod)
		svc.SetFilter(watcher.Filter{
			IgnoreDirectories: opts.IgnoreDirectories,
			ShowHidden:        opts.ShowHidden,
		})

		go current.maintenance.StartScheduler(ctx, current.cfg.Maintenance.Interval)

		fmt.Fprintf(out, "watching %d directories of category %d\n", len(bound), categoryID)
		svc.Start(ctx)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
