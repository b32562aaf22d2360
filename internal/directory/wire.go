package directory

import (
	"fmt"
	"time"
)

// Wire shapes use pointer fields so a missing key can be told apart from a
// zero value. Unknown keys are ignored.

type wireItem struct {
	ID         *int64  `json:"id"`
	FileName   *string `json:"file_name"`
	FilePath   *string `json:"file_path"`
	FileSize   *int64  `json:"file_size"`
	FileType   *string `json:"file_type"`
	ModifiedAt *string `json:"modified_at"`
}

type wireProgress struct {
	TotalFiles   *int64      `json:"total_files"`
	ScannedFiles *int64      `json:"scanned_files"`
	CurrentBatch *[]wireItem `json:"current_batch"`
	IsComplete   *bool       `json:"is_complete"`
}

type wireBinding struct {
	ID         *int64  `json:"id"`
	CategoryID *int64  `json:"category_id"`
	Path       *string `json:"directory_path"`
	CreatedAt  *string `json:"created_at"`
}

type wireCategory struct {
	ID          *int64  `json:"id"`
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Icon        *string `json:"icon"`
	Color       *string `json:"color"`
	ParentID    *int64  `json:"parent_id"`
	SortOrder   *int    `json:"sort_order"`
	HasPassword *bool   `json:"has_password"`
	CreatedAt   *string `json:"created_at"`
	UpdatedAt   *string `json:"updated_at"`
}

// wireCategoryNode carries the category fields inline next to the tree
// fields.
type wireCategoryNode struct {
	wireCategory
	Children       *[]wireCategoryNode `json:"children"`
	DirectoryCount *int                `json:"directory_count"`
	ResourceCount  *int                `json:"resource_count"`
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedResponse, fmt.Sprintf(format, args...))
}

func (w *wireProgress) toProgress() (*ScanProgress, error) {
	switch {
	case w.TotalFiles == nil:
		return nil, malformed("missing total_files")
	case w.ScannedFiles == nil:
		return nil, malformed("missing scanned_files")
	case w.CurrentBatch == nil:
		return nil, malformed("missing current_batch")
	case w.IsComplete == nil:
		return nil, malformed("missing is_complete")
	}
	if *w.TotalFiles < 0 || *w.ScannedFiles < 0 {
		return nil, malformed("negative counters (total=%d scanned=%d)", *w.TotalFiles, *w.ScannedFiles)
	}

	batch := make([]ResourceItem, 0, len(*w.CurrentBatch))
	for i, wi := range *w.CurrentBatch {
		item, err := wi.toItem()
		if err != nil {
			return nil, fmt.Errorf("current_batch[%d]: %w", i, err)
		}
		batch = append(batch, item)
	}

	return &ScanProgress{
		TotalFiles:   *w.TotalFiles,
		ScannedFiles: *w.ScannedFiles,
		CurrentBatch: batch,
		IsComplete:   *w.IsComplete,
	}, nil
}

func (w *wireItem) toItem() (ResourceItem, error) {
	switch {
	case w.ID == nil:
		return ResourceItem{}, malformed("missing id")
	case w.FilePath == nil || *w.FilePath == "":
		return ResourceItem{}, malformed("missing file_path")
	case w.FileName == nil:
		return ResourceItem{}, malformed("missing file_name")
	case w.FileSize == nil:
		return ResourceItem{}, malformed("missing file_size")
	case w.FileType == nil:
		return ResourceItem{}, malformed("missing file_type")
	case w.ModifiedAt == nil:
		return ResourceItem{}, malformed("missing modified_at")
	}
	if *w.FileSize < 0 {
		return ResourceItem{}, malformed("negative file_size %d for %s", *w.FileSize, *w.FilePath)
	}
	modified, err := time.Parse(time.RFC3339Nano, *w.ModifiedAt)
	if err != nil {
		return ResourceItem{}, malformed("modified_at %q is not ISO-8601", *w.ModifiedAt)
	}
	return ResourceItem{
		ID:         *w.ID,
		FileName:   *w.FileName,
		FilePath:   *w.FilePath,
		FileSize:   *w.FileSize,
		FileType:   *w.FileType,
		ModifiedAt: modified,
	}, nil
}

func (w *wireBinding) toBinding() (DirectoryBinding, error) {
	switch {
	case w.ID == nil:
		return DirectoryBinding{}, malformed("missing binding id")
	case w.CategoryID == nil:
		return DirectoryBinding{}, malformed("missing category_id")
	case w.Path == nil || *w.Path == "":
		return DirectoryBinding{}, malformed("missing directory_path")
	}
	b := DirectoryBinding{ID: *w.ID, CategoryID: *w.CategoryID, Path: *w.Path}
	if w.CreatedAt != nil {
		t, ok := parseTime(*w.CreatedAt)
		if !ok {
			return DirectoryBinding{}, malformed("created_at %q is not a timestamp", *w.CreatedAt)
		}
		b.CreatedAt = t
	}
	return b, nil
}

// parseTime accepts RFC 3339 and SQLite's default datetime format.
func parseTime(s string) (time.Time, bool) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	if t, err := time.Parse("2006-01-02 15:04:05", s); err == nil {
		return t.UTC(), true
	}
	return time.Time{}, false
}

func (w *wireCategory) toCategory() (Category, error) {
	switch {
	case w.ID == nil:
		return Category{}, malformed("missing category id")
	case w.Name == nil:
		return Category{}, malformed("missing category name")
	case w.SortOrder == nil:
		return Category{}, malformed("missing sort_order for category %d", *w.ID)
	case w.CreatedAt == nil || w.UpdatedAt == nil:
		return Category{}, malformed("missing timestamps for category %d", *w.ID)
	}
	cat := Category{
		ID:        *w.ID,
		Name:      *w.Name,
		SortOrder: *w.SortOrder,
	}
	if w.Description != nil {
		cat.Description = *w.Description
	}
	if w.Icon != nil {
		cat.Icon = *w.Icon
	}
	if w.Color != nil {
		cat.Color = *w.Color
	}
	if w.ParentID != nil {
		cat.ParentID = *w.ParentID
	}
	if w.HasPassword != nil {
		cat.HasPassword = *w.HasPassword
	}
	var ok bool
	if cat.CreatedAt, ok = parseTime(*w.CreatedAt); !ok {
		return Category{}, malformed("created_at %q is not a timestamp", *w.CreatedAt)
	}
	if cat.UpdatedAt, ok = parseTime(*w.UpdatedAt); !ok {
		return Category{}, malformed("updated_at %q is not a timestamp", *w.UpdatedAt)
	}
	return cat, nil
}

func (w *wireCategoryNode) toNode() (CategoryNode, error) {
	cat, err := w.toCategory()
	if err != nil {
		return CategoryNode{}, err
	}
	switch {
	case w.Children == nil:
		return CategoryNode{}, malformed("missing children for category %d", cat.ID)
	case w.DirectoryCount == nil || w.ResourceCount == nil:
		return CategoryNode{}, malformed("missing counts for category %d", cat.ID)
	case *w.DirectoryCount < 0 || *w.ResourceCount < 0:
		return CategoryNode{}, malformed("negative counts for category %d", cat.ID)
	}
	node := CategoryNode{
		Category:       cat,
		Children:       make([]CategoryNode, 0, len(*w.Children)),
		DirectoryCount: *w.DirectoryCount,
		ResourceCount:  *w.ResourceCount,
	}
	for i := range *w.Children {
		child, err := (*w.Children)[i].toNode()
		if err != nil {
			return CategoryNode{}, err
		}
		node.Children = append(node.Children, child)
	}
	return node, nil
}
