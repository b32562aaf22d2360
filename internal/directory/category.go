package directory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Category errors.
var (
	ErrInvalidName     = errors.New("category name is required")
	ErrInvalidStrategy = errors.New("unknown delete strategy")
	ErrEmptyUpdate     = errors.New("nothing to update")
)

// DeleteStrategy decides what happens to a deleted category's children.
type DeleteStrategy string

// Delete strategies understood by the backend.
const (
	DeleteAll       DeleteStrategy = "DeleteAll"
	PromoteChildren DeleteStrategy = "PromoteChildren"
)

// Category is a user-defined group of bound directories.
type Category struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Icon        string    `json:"icon,omitempty"`
	Color       string    `json:"color,omitempty"`
	ParentID    int64     `json:"parent_id,omitempty"` // 0 for a top-level category
	SortOrder   int       `json:"sort_order"`
	HasPassword bool      `json:"has_password"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CategoryNode is a category with its children and usage counts.
type CategoryNode struct {
	Category
	Children       []CategoryNode `json:"children"`
	DirectoryCount int            `json:"directory_count"`
	ResourceCount  int            `json:"resource_count"`
}

// WalkCategories visits nodes depth first, parents before children.
func WalkCategories(nodes []CategoryNode, fn func(node CategoryNode, depth int)) {
	var walk func([]CategoryNode, int)
	walk = func(nodes []CategoryNode, depth int) {
		for _, n := range nodes {
			fn(n, depth)
			walk(n.Children, depth+1)
		}
	}
	walk(nodes, 0)
}

// NewCategory describes a category to create.
type NewCategory struct {
	Name        string
	Description string
	Icon        string
	Color       string
	ParentID    int64
}

// CategoryUpdate lists the fields to change; nil fields are left alone.
type CategoryUpdate struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Icon        *string `json:"icon,omitempty"`
	Color       *string `json:"color,omitempty"`
	SortOrder   *int    `json:"sort_order,omitempty"`
}

func (u CategoryUpdate) empty() bool {
	return u.Name == nil && u.Description == nil && u.Icon == nil && u.Color == nil && u.SortOrder == nil
}

// CategoryOrder assigns a sort position to a category.
type CategoryOrder struct {
	ID        int64
	SortOrder int
}

type createCategoryReq struct {
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	Icon        *string `json:"icon,omitempty"`
	Color       *string `json:"color,omitempty"`
	ParentID    *int64  `json:"parent_id,omitempty"`
}

func optional(s string) *string {
	if s = strings.TrimSpace(s); s == "" {
		return nil
	}
	return &s
}

// Categories returns the category tree.
func (c *Client) Categories(ctx context.Context) ([]CategoryNode, error) {
	var ws []wireCategoryNode
	if err := c.call(ctx, CmdCategoryTree, nil, &ws); err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	nodes := make([]CategoryNode, 0, len(ws))
	for i := range ws {
		n, err := ws[i].toNode()
		if err != nil {
			return nil, fmt.Errorf("listing categories: %w", err)
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

// CreateCategory creates a category and returns it.
func (c *Client) CreateCategory(ctx context.Context, nc NewCategory) (*Category, error) {
	name := strings.TrimSpace(nc.Name)
	if name == "" {
		return nil, ErrInvalidName
	}
	if nc.ParentID < 0 {
		return nil, ErrInvalidCategory
	}
	req := createCategoryReq{
		Name:        name,
		Description: optional(nc.Description),
		Icon:        optional(nc.Icon),
		Color:       optional(nc.Color),
	}
	if nc.ParentID > 0 {
		req.ParentID = &nc.ParentID
	}

	var w wireCategory
	if err := c.call(ctx, CmdCreateCategory, map[string]any{"req": req}, &w); err != nil {
		return nil, fmt.Errorf("creating category %q: %w", name, err)
	}
	cat, err := w.toCategory()
	if err != nil {
		return nil, fmt.Errorf("creating category %q: %w", name, err)
	}
	return &cat, nil
}

// UpdateCategory changes the given fields of a category.
func (c *Client) UpdateCategory(ctx context.Context, id int64, u CategoryUpdate) (*Category, error) {
	if id <= 0 {
		return nil, ErrInvalidCategory
	}
	if u.empty() {
		return nil, ErrEmptyUpdate
	}
	if u.Name != nil {
		name := strings.TrimSpace(*u.Name)
		if name == "" {
			return nil, ErrInvalidName
		}
		u.Name = &name
	}

	var w wireCategory
	if err := c.call(ctx, CmdUpdateCategory, map[string]any{"id": id, "req": u}, &w); err != nil {
		return nil, fmt.Errorf("updating category %d: %w", id, err)
	}
	cat, err := w.toCategory()
	if err != nil {
		return nil, fmt.Errorf("updating category %d: %w", id, err)
	}
	return &cat, nil
}

// DeleteCategory removes a category. The strategy decides whether its
// children go with it or move up a level.
func (c *Client) DeleteCategory(ctx context.Context, id int64, strategy DeleteStrategy) error {
	if id <= 0 {
		return ErrInvalidCategory
	}
	if strategy != DeleteAll && strategy != PromoteChildren {
		return fmt.Errorf("%w: %q", ErrInvalidStrategy, strategy)
	}
	args := map[string]any{"id": id, "strategy": strategy}
	if err := c.caller.Call(ctx, CmdDeleteCategory, args, nil); err != nil {
		return fmt.Errorf("deleting category %d: %w", id, err)
	}
	return nil
}

// ReorderCategories sets the sort position of each listed category.
func (c *Client) ReorderCategories(ctx context.Context, orders []CategoryOrder) error {
	if len(orders) == 0 {
		return nil
	}
	pairs := make([][2]int64, 0, len(orders))
	for _, o := range orders {
		if o.ID <= 0 {
			return ErrInvalidCategory
		}
		pairs = append(pairs, [2]int64{o.ID, int64(o.SortOrder)})
	}
	if err := c.caller.Call(ctx, CmdReorderCategories, map[string]any{"orders": pairs}, nil); err != nil {
		return fmt.Errorf("reordering %d categories: %w", len(orders), err)
	}
	return nil
}
