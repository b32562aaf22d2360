package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sydlexius/dirscope/internal/config"
	"github.com/sydlexius/dirscope/internal/directory"
)

var (
	rootOpts   appOptions
	categoryID int64
	current    *app
)

var rootCmd = &cobra.Command{
	Use:   "dirscope",
	Short: "Scan directories bound to a category and summarize their files",
	Long: `dirscope talks to a directory-scanning backend. It binds directories to
categories, pulls scan results in batches, and reports a breakdown of the
discovered files by kind and extension.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip initialization for help commands
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}
		a, err := newApp(rootOpts)
		if err != nil {
			return err
		}
		current = a
		return nil
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&rootOpts.configPath, "config", config.DefaultPath(), "path to the config file")
	flags.StringVar(&rootOpts.backendURL, "backend", "", "backend URL (overrides config)")
	flags.BoolVar(&rootOpts.dedupe, "dedupe", false, "drop duplicate items while accumulating")
	flags.Int64VarP(&categoryID, "category", "c", 0, "category id")
}

// selectCategory makes the --category flag current on the catalog.
func selectCategory(ctx context.Context) ([]directory.DirectoryBinding, error) {
	if categoryID <= 0 {
		return nil, fmt.Errorf("--category is required")
	}
	return current.catalog.Select(ctx, categoryID)
}
