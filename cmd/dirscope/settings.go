package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sydlexius/dirscope/internal/settings"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Read and change persisted settings",
	Long: `Persisted settings override the config file.

Keys:
  scan.show_hidden         true or false
  scan.ignore_directories  comma-separated directory names
  scan.batch_size          files per batch
  logging.level            debug, info, warn, error
  logging.format           text or json`,
}

var settingsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		all, err := current.settings.All(cmd.Context())
		if err != nil {
			return err
		}
		stored := make(map[string]string, len(all))
		for _, s := range all {
			stored[s.Key] = s.Value
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "KEY\tVALUE")
		for _, key := range settings.Keys() {
			v, ok := stored[key]
			if !ok {
				v = "(default)"
			}
			fmt.Fprintf(tw, "%s\t%s\n", key, v)
		}
		return tw.Flush()
	},
}

var settingsGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print a stored setting",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, ok, err := current.settings.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%s is not set", args[0])
		}
		fmt.Fprintln(cmd.OutOrStdout(), v)
		return nil
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Store a setting",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return current.settings.Set(cmd.Context(), args[0], args[1])
	},
}

var settingsUnsetCmd = &cobra.Command{
	Use:   "unset <key>",
	Short: "Remove a stored setting, restoring its default",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return current.settings.Delete(cmd.Context(), args[0])
	},
}

var settingsExportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Write stored settings as YAML to a file or stdout",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return current.settings.Export(cmd.Context(), cmd.OutOrStdout())
		}
		return current.settings.ExportFile(cmd.Context(), args[0])
	},
}

var settingsImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Load settings from a file written by export",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0]) //nolint:gosec // path supplied by the operator
		if err != nil {
			return err
		}
		defer f.Close() //nolint:errcheck

		res, err := current.settings.Import(cmd.Context(), f)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "imported %d settings\n", res.Imported)
		for _, key := range res.Skipped {
			fmt.Fprintf(cmd.OutOrStdout(), "skipped unknown key %s\n", key)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(settingsCmd)
	settingsCmd.AddCommand(settingsListCmd)
	settingsCmd.AddCommand(settingsGetCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsUnsetCmd)
	settingsCmd.AddCommand(settingsExportCmd)
	settingsCmd.AddCommand(settingsImportCmd)
}
