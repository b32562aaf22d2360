package main

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/sydlexius/dirscope/internal/directory"
)

var categoryFlags struct {
	name            string
	description     string
	icon            string
	color           string
	parent          int64
	sortOrder       int
	promoteChildren bool
}

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List and manage categories",
	Long: `Categories prints the category tree with the number of bound directories
and indexed files under each category.

Examples:
  dirscope categories
  dirscope categories create Photos --parent 1 --color "#3b82f6"
  dirscope categories reorder 2=0 1=1`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		nodes, err := current.directory.Categories(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(nodes) == 0 {
			fmt.Fprintln(out, "no categories")
			return nil
		}
		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tDIRS\tFILES")
		directory.WalkCategories(nodes, func(n directory.CategoryNode, depth int) {
			name := strings.Repeat("  ", depth) + n.Name
			if n.HasPassword {
				name += " (locked)"
			}
			fmt.Fprintf(tw, "%d\t%s\t%d\t%s\n", n.ID, name, n.DirectoryCount, humanize.Comma(int64(n.ResourceCount)))
		})
		return tw.Flush()
	},
}

var categoriesCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a category",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := current.directory.CreateCategory(cmd.Context(), directory.NewCategory{
			Name:        args[0],
			Description: categoryFlags.description,
			Icon:        categoryFlags.icon,
			Color:       categoryFlags.color,
			ParentID:    categoryFlags.parent,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "created category %d (%s)\n", cat.ID, cat.Name)
		return nil
	},
}

var categoriesUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Change the name, look, or position of a category",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseCategoryID(args[0])
		if err != nil {
			return err
		}
		var u directory.CategoryUpdate
		flags := cmd.Flags()
		if flags.Changed("name") {
			u.Name = &categoryFlags.name
		}
		if flags.Changed("description") {
			u.Description = &categoryFlags.description
		}
		if flags.Changed("icon") {
			u.Icon = &categoryFlags.icon
		}
		if flags.Changed("color") {
			u.Color = &categoryFlags.color
		}
		if flags.Changed("sort-order") {
			u.SortOrder = &categoryFlags.sortOrder
		}
		cat, err := current.directory.UpdateCategory(cmd.Context(), id, u)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "updated category %d (%s)\n", cat.ID, cat.Name)
		return nil
	},
}

var categoriesDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a category and its subcategories",
	Long: `Delete removes a category. Its subcategories are deleted with it unless
--promote-children moves them up to the deleted category's parent.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseCategoryID(args[0])
		if err != nil {
			return err
		}
		strategy := directory.DeleteAll
		if categoryFlags.promoteChildren {
			strategy = directory.PromoteChildren
		}
		if err := current.directory.DeleteCategory(cmd.Context(), id, strategy); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted category %d\n", id)
		return nil
	},
}

var categoriesReorderCmd = &cobra.Command{
	Use:   "reorder <id>=<position>...",
	Short: "Set the sort position of categories",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		orders := make([]directory.CategoryOrder, 0, len(args))
		for _, arg := range args {
			idText, posText, ok := strings.Cut(arg, "=")
			if !ok {
				return fmt.Errorf("invalid order %q, want <id>=<position>", arg)
			}
			id, err := parseCategoryID(idText)
			if err != nil {
				return err
			}
			pos, err := strconv.Atoi(posText)
			if err != nil || pos < 0 {
				return fmt.Errorf("invalid position in %q", arg)
			}
			orders = append(orders, directory.CategoryOrder{ID: id, SortOrder: pos})
		}
		if err := current.directory.ReorderCategories(cmd.Context(), orders); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "reordered %d categories\n", len(orders))
		return nil
	},
}

func parseCategoryID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid category id %q", s)
	}
	return id, nil
}

func init() {
	create := categoriesCreateCmd.Flags()
	create.StringVar(&categoryFlags.description, "description", "", "category description")
	create.StringVar(&categoryFlags.icon, "icon", "", "icon name")
	create.StringVar(&categoryFlags.color, "color", "", "display color")
	create.Int64Var(&categoryFlags.parent, "parent", 0, "parent category id")

	update := categoriesUpdateCmd.Flags()
	update.StringVar(&categoryFlags.name, "name", "", "new name")
	update.StringVar(&categoryFlags.description, "description", "", "new description")
	update.StringVar(&categoryFlags.icon, "icon", "", "new icon name")
	update.StringVar(&categoryFlags.color, "color", "", "new display color")
	update.IntVar(&categoryFlags.sortOrder, "sort-order", 0, "new sort position")

	categoriesDeleteCmd.Flags().BoolVar(&categoryFlags.promoteChildren, "promote-children", false, "move subcategories up instead of deleting them")

	rootCmd.AddCommand(categoriesCmd)
	categoriesCmd.AddCommand(categoriesCreateCmd)
	categoriesCmd.AddCommand(categoriesUpdateCmd)
	categoriesCmd.AddCommand(categoriesDeleteCmd)
	categoriesCmd.AddCommand(categoriesReorderCmd)
}
