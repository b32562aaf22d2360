// Package history persists the outcome of every scan run.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sydlexius/dirscope/internal/scan"
)

const historyColumns = `id, category_id, status, started_at, completed_at, batches, scanned_files, total_files, items, error`

// timeLayout is fixed width so started_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000Z07:00"

var _ scan.HistoryRecorder = (*Service)(nil)

// Service provides scan history data operations.
type Service struct {
	db *sql.DB
}

// NewService creates a history service.
func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// Record inserts r, or updates the row with the same ID.
func (s *Service) Record(ctx context.Context, r *scan.Result) error {
	if r.ID == "" {
		return fmt.Errorf("scan result id is required")
	}
	var completed any
	if r.CompletedAt != nil {
		completed = r.CompletedAt.UTC().Format(timeLayout)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO scan_history (`+historyColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			completed_at = excluded.completed_at,
			batches = excluded.batches,
			scanned_files = excluded.scanned_files,
			total_files = excluded.total_files,
			items = excluded.items,
			error = excluded.error
	`,
		r.ID, r.CategoryID, r.Status, r.StartedAt.UTC().Format(timeLayout), completed,
		r.Batches, r.ScannedFiles, r.TotalFiles, r.Items, r.Error,
	)
	if err != nil {
		return fmt.Errorf("recording scan %s: %w", r.ID, err)
	}
	return nil
}

// List returns up to limit runs for a category, newest first. A limit of
// zero or less returns every run.
func (s *Service) List(ctx context.Context, categoryID int64, limit int) ([]scan.Result, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+historyColumns+` FROM scan_history WHERE category_id = ? ORDER BY started_at DESC LIMIT ?`,
		categoryID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing scan history: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var out []scan.Result
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning history row: %w", err)
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

// Last returns the most recent run for a category.
// Returns nil, nil when the category has never been scanned.
func (s *Service) Last(ctx context.Context, categoryID int64) (*scan.Result, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+historyColumns+` FROM scan_history WHERE category_id = ? ORDER BY started_at DESC LIMIT 1`,
		categoryID)
	r, err := scanResult(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting last scan: %w", err)
	}
	return r, nil
}

// Prune keeps the newest keep runs of each category and deletes the rest.
// It returns the number of rows removed.
func (s *Service) Prune(ctx context.Context, keep int) (int64, error) {
	if keep < 0 {
		return 0, fmt.Errorf("keep must not be negative")
	}
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM scan_history WHERE id IN (
			SELECT id FROM (
				SELECT id, ROW_NUMBER() OVER (PARTITION BY category_id ORDER BY started_at DESC) AS rn
				FROM scan_history
			) WHERE rn > ?
		)
	`, keep)
	if err != nil {
		return 0, fmt.Errorf("pruning scan history: %w", err)
	}
	return res.RowsAffected()
}

func scanResult(row interface{ Scan(...any) error }) (*scan.Result, error) {
	var r scan.Result
	var startedAt string
	var completedAt sql.NullString

	err := row.Scan(
		&r.ID, &r.CategoryID, &r.Status, &startedAt, &completedAt,
		&r.Batches, &r.ScannedFiles, &r.TotalFiles, &r.Items, &r.Error,
	)
	if err != nil {
		return nil, err
	}

	r.StartedAt = parseTime(startedAt)
	if completedAt.Valid {
		t := parseTime(completedAt.String)
		r.CompletedAt = &t
	}
	return &r, nil
}

// parseTime parses a time string, handling both RFC3339 and SQLite datetime formats.
func parseTime(s string) time.Time {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	if t, err := time.Parse("2006-01-02 15:04:05", s); err == nil {
		return t
	}
	return time.Time{}
}
