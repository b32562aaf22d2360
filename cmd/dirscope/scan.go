package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/sydlexius/dirscope/internal/catalog"
	"github.com/sydlexius/dirscope/internal/directory"
	"github.com/sydlexius/dirscope/internal/event"
	"github.com/sydlexius/dirscope/internal/scan"
	"github.com/sydlexius/dirscope/internal/stats"
)

var scanFlags struct {
	batchSize  int
	showHidden bool
	ignore     string
	single     bool
	types      bool
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan every directory bound to a category",
	Long: `Scan pulls the category's files from the backend batch by batch and
prints a breakdown by file kind. Flags override the persisted settings for
this run only.

Examples:
  dirscope scan -c 3
  dirscope scan -c 3 --batch-size 200 --ignore node_modules,build
  dirscope scan -c 3 --single --types`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if _, err := selectCategory(ctx); err != nil {
			return err
		}

		opts := current.catalog.ScanOptions(ctx)
		if cmd.Flags().Changed("batch-size") {
			opts.BatchSize = scanFlags.batchSize
		}
		if cmd.Flags().Changed("show-hidden") {
			opts.ShowHidden = scanFlags.showHidden
		}
		if cmd.Flags().Changed("ignore") {
			opts.IgnoreDirectories = directory.ParseIgnoreList(scanFlags.ignore)
		}

		out := cmd.OutOrStdout()
		if scanFlags.single {
			n, err := current.catalog.ScanAll(ctx, opts)
			if err != nil {
				return scanError(err)
			}
			fmt.Fprintf(out, "scanned %s files in one request\n", humanize.Comma(int64(n)))
		} else {
			stopProgress := showProgress(os.Stderr)
			result, err := current.catalog.RescanWith(ctx, opts)
			stopProgress()
			if result != nil {
				printResult(out, result)
			}
			if err != nil {
				return scanError(err)
			}
		}

		printStats(out, current.catalog.Stats(), current.catalog.Summary())
		if scanFlags.types {
			fmt.Fprintln(out)
			printFileTypes(out, current.catalog.FileTypes())
		}
		return nil
	},
}

func init() {
	f := scanCmd.Flags()
	f.IntVar(&scanFlags.batchSize, "batch-size", directory.DefaultBatchSize, "files per batch")
	f.BoolVar(&scanFlags.showHidden, "show-hidden", false, "include hidden files")
	f.StringVar(&scanFlags.ignore, "ignore", directory.DefaultIgnoreDirectories, "comma-separated directory names to skip")
	f.BoolVar(&scanFlags.single, "single", false, "fetch everything in one request instead of batches")
	f.BoolVar(&scanFlags.types, "types", false, "also print the per-extension breakdown")
	rootCmd.AddCommand(scanCmd)
}

func scanError(err error) error {
	if errors.Is(err, catalog.ErrNoBindings) {
		return fmt.Errorf("category %d has no bound directories; add one with 'dirscope bind'", categoryID)
	}
	return err
}

// showProgress renders a live progress line on w while batches arrive.
// It does nothing when w is not a terminal. The returned func clears the
// line.
func showProgress(w *os.File) func() {
	if !term.IsTerminal(int(w.Fd())) {
		return func() {}
	}
	var done atomic.Bool
	unsubscribe := current.bus.Subscribe(event.ScanBatch, func(e event.Event) {
		if done.Load() {
			return
		}
		scanned, _ := e.Data["scanned_files"].(int64)
		total, _ := e.Data["total_files"].(int64)
		batch, _ := e.Data["batch"].(int)
		fmt.Fprintf(w, "\r\033[Kbatch %d: %s / %s files", batch, humanize.Comma(scanned), humanize.Comma(total))
	})
	return func() {
		done.Store(true)
		unsubscribe()
		fmt.Fprint(w, "\r\033[K")
	}
}

func printResult(w io.Writer, r *scan.Result) {
	fmt.Fprintf(w, "scan %s: %s, %s items in %d batches (%s/%s files)\n",
		shortID(r.ID), r.Status,
		humanize.Comma(int64(r.Items)), r.Batches,
		humanize.Comma(r.ScannedFiles), humanize.Comma(r.TotalFiles))
	if r.Error != "" {
		fmt.Fprintf(w, "  stopped: %s\n", r.Error)
	}
}

func printStats(w io.Writer, cats []stats.CategoryStat, sum stats.Summary) {
	fmt.Fprintf(w, "%s files, %s\n", humanize.Comma(int64(sum.Files)), humanize.IBytes(uint64(max(sum.TotalSize, 0))))
	if len(cats) == 0 {
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, c := range cats {
		bar := strings.Repeat("#", c.Percentage/5)
		fmt.Fprintf(tw, "%s %s\t%s\t%s\t%3d%%\t%s\n",
			c.Icon, c.Label, humanize.Comma(int64(c.Count)), humanize.IBytes(uint64(max(c.TotalSize, 0))), c.Percentage, bar)
	}
	tw.Flush() //nolint:errcheck
}

func printFileTypes(w io.Writer, types []stats.FileTypeStat) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "EXT\tFILES\tSIZE\tKIND")
	for _, t := range types {
		ext := t.FileType
		if ext == "" {
			ext = "(none)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", ext, humanize.Comma(int64(t.Count)), humanize.IBytes(uint64(max(t.TotalSize, 0))), stats.Classify(t.FileType))
	}
	tw.Flush() //nolint:errcheck
}

// shortID trims a scan ID for display.
func shortID(id string) string {
	return id[:min(len(id), 8)]
}
