package directory

import (
	"errors"
	"strings"
	"time"
)

// DefaultBatchSize is the number of files requested per batch when the
// caller does not choose one.
const DefaultBatchSize = 1000

// DefaultIgnoreDirectories is the ignore list used when none is configured.
const DefaultIgnoreDirectories = "node_modules,.git,dist,target"

// Sentinel errors for request validation and response checking.
var (
	ErrInvalidBatchSize  = errors.New("batch size must be a positive integer")
	ErrInvalidCategory   = errors.New("category id must be positive")
	ErrInvalidBinding    = errors.New("binding id must be positive")
	ErrInvalidPath       = errors.New("directory path is required")
	ErrMalformedResponse = errors.New("malformed backend response")
)

// DirectoryBinding associates a filesystem directory with a category.
type DirectoryBinding struct {
	ID         int64     `json:"id"`
	CategoryID int64     `json:"category_id"`
	Path       string    `json:"directory_path"`
	CreatedAt  time.Time `json:"created_at"`
}

// ResourceItem is one file discovered by a scan. Items are immutable once
// decoded.
type ResourceItem struct {
	ID         int64     `json:"id"`
	FileName   string    `json:"file_name"`
	FilePath   string    `json:"file_path"`
	FileSize   int64     `json:"file_size"`
	FileType   string    `json:"file_type"`
	ModifiedAt time.Time `json:"modified_at"`
}

// Extension returns the item's normalized file type.
func (r ResourceItem) Extension() string {
	return NormalizeExtension(r.FileType)
}

// NormalizeExtension trims surrounding space and a leading dot from a file
// type and lowercases it.
func NormalizeExtension(fileType string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(fileType), "."))
}

// ScanProgress is the answer to one batch request.
type ScanProgress struct {
	TotalFiles   int64          `json:"total_files"`
	ScannedFiles int64          `json:"scanned_files"`
	CurrentBatch []ResourceItem `json:"current_batch"`
	IsComplete   bool           `json:"is_complete"`
}

// ScanRequest describes what to scan for a category.
type ScanRequest struct {
	CategoryID        int64
	ShowHidden        bool
	IgnoreDirectories []string
}

// Validate checks the request before it is sent.
func (r ScanRequest) Validate() error {
	if r.CategoryID <= 0 {
		return ErrInvalidCategory
	}
	return nil
}

// BatchRequest asks the backend for the next slice of a category scan.
type BatchRequest struct {
	ScanRequest
	BatchSize int
}

// Validate checks the request before it is sent. A zero batch size is
// rejected like a negative one; callers wanting the default must ask for
// DefaultBatchSize explicitly.
func (r BatchRequest) Validate() error {
	if err := r.ScanRequest.Validate(); err != nil {
		return err
	}
	if r.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}
	return nil
}

// ParseIgnoreList splits a comma-separated list of directory names. Entries
// are trimmed and lowercased; empty entries are dropped.
func ParseIgnoreList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// JoinIgnoreList renders an ignore list in its wire form.
func JoinIgnoreList(dirs []string) string {
	return strings.Join(dirs, ",")
}
