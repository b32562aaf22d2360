package scan

import (
	"errors"
	"time"

	"github.com/sydlexius/dirscope/internal/directory"
)

// Scan status values.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusCanceled  = "canceled"
)

// ErrScanInProgress is returned when Run is called while another scan is
// still running on the same driver.
var ErrScanInProgress = errors.New("scan already in progress")

// Request describes one scan of a category.
type Request struct {
	CategoryID        int64
	ShowHidden        bool
	IgnoreDirectories []string
	BatchSize         int
}

func (r Request) batchRequest() directory.BatchRequest {
	return directory.BatchRequest{
		ScanRequest: directory.ScanRequest{
			CategoryID:        r.CategoryID,
			ShowHidden:        r.ShowHidden,
			IgnoreDirectories: r.IgnoreDirectories,
		},
		BatchSize: r.BatchSize,
	}
}

// Result summarizes a scan run.
type Result struct {
	ID           string     `json:"id"`
	CategoryID   int64      `json:"category_id"`
	Status       string     `json:"status"`
	StartedAt    time.Time  `json:"started_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	Batches      int        `json:"batches"`
	ScannedFiles int64      `json:"scanned_files"`
	TotalFiles   int64      `json:"total_files"`
	Items        int        `json:"items"`
	Error        string     `json:"error,omitempty"`
}

// Done reports whether the scan has finished, successfully or not.
func (r *Result) Done() bool {
	return r.Status != StatusRunning
}
