// Package maintenance keeps the local database small: it trims scan
// history, compacts the file and writes snapshots.
package maintenance

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/sydlexius/dirscope/internal/database"
	"github.com/sydlexius/dirscope/internal/logging"
)

const lastOptimizeKey = "maintenance.last_optimize_at"

// Status holds database maintenance status information.
type Status struct {
	DBFileSize     int64  `json:"db_file_size"`
	WALFileSize    int64  `json:"wal_file_size"`
	PageCount      int64  `json:"page_count"`
	PageSize       int64  `json:"page_size"`
	HistoryRows    int64  `json:"history_rows"`
	SchemaVersion  int64  `json:"schema_version"`
	LastOptimizeAt string `json:"last_optimize_at,omitempty"`
}

// HistoryPruner trims stored scan runs.
type HistoryPruner interface {
	Prune(ctx context.Context, keep int) (int64, error)
}

// Service provides database maintenance operations.
type Service struct {
	db      *sql.DB
	dbPath  string
	history HistoryPruner
	keep    int
	logger  *slog.Logger
}

// NewService creates a maintenance service. Optimize keeps the newest keep
// runs of each category; keep <= 0 leaves history alone.
func NewService(db *sql.DB, dbPath string, history HistoryPruner, keep int, logger *slog.Logger) *Service {
	return &Service{
		db:      db,
		dbPath:  dbPath,
		history: history,
		keep:    keep,
		logger:  logging.Component(logger, "maintenance"),
	}
}

// Status returns current database maintenance status.
func (s *Service) Status(ctx context.Context) (*Status, error) {
	st := &Status{}

	if info, err := os.Stat(s.dbPath); err == nil {
		st.DBFileSize = info.Size()
	}
	if info, err := os.Stat(s.dbPath + "-wal"); err == nil {
		st.WALFileSize = info.Size()
	}

	if err := s.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&st.PageCount); err != nil {
		return nil, fmt.Errorf("reading page_count: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&st.PageSize); err != nil {
		return nil, fmt.Errorf("reading page_size: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM scan_history").Scan(&st.HistoryRows); err != nil {
		return nil, fmt.Errorf("counting scan history: %w", err)
	}

	v, err := database.SchemaVersion(ctx, s.db)
	if err != nil {
		return nil, err
	}
	st.SchemaVersion = v

	var lastOpt string
	err = s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, lastOptimizeKey).Scan(&lastOpt)
	if err == nil {
		st.LastOptimizeAt = lastOpt
	}
	return st, nil
}

// Optimize prunes scan history, then runs PRAGMA optimize followed by a WAL
// checkpoint. It returns the number of history rows removed.
func (s *Service) Optimize(ctx context.Context) (int64, error) {
	var pruned int64
	if s.history != nil && s.keep > 0 {
		n, err := s.history.Prune(ctx, s.keep)
		if err != nil {
			return 0, err
		}
		pruned = n
		s.logger.Info("pruned scan history", slog.Int64("removed", n), slog.Int("keep", s.keep))
	}

	if _, err := s.db.ExecContext(ctx, "PRAGMA optimize"); err != nil {
		return pruned, fmt.Errorf("PRAGMA optimize: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return pruned, fmt.Errorf("WAL checkpoint: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		lastOptimizeKey, now, now)
	if err != nil {
		s.logger.Warn("recording optimize timestamp", "error", err)
	}

	s.logger.Info("optimize complete")
	return pruned, nil
}

// Vacuum runs VACUUM to rebuild the database file.
func (s *Service) Vacuum(ctx context.Context) error {
	s.logger.Info("running VACUUM")
	if _, err := s.db.ExecContext(ctx, "VACUUM"); err != nil {
		return fmt.Errorf("VACUUM: %w", err)
	}
	return nil
}

// Snapshot writes a consistent copy of the database into dir using VACUUM
// INTO and returns its path.
func (s *Service) Snapshot(ctx context.Context, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("creating snapshot directory: %w", err)
	}
	dest := filepath.Join(dir, fmt.Sprintf("dirscope-%s.db", time.Now().UTC().Format("20060102-150405")))
	if _, err := os.Stat(dest); err == nil {
		return "", fmt.Errorf("snapshot %s already exists", dest)
	}

	if _, err := s.db.ExecContext(ctx, "VACUUM INTO ?", dest); err != nil {
		return "", fmt.Errorf("VACUUM INTO: %w", err)
	}
	s.logger.Info("snapshot written", slog.String("path", dest))
	return dest, nil
}

// StartScheduler runs Optimize on a fixed interval until ctx is canceled.
func (s *Service) StartScheduler(ctx context.Context, interval time.Duration) {
	s.logger.Info("maintenance scheduler started", slog.String("interval", interval.String()))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("maintenance scheduler stopped")
			return
		case <-ticker.C:
			if _, err := s.Optimize(ctx); err != nil {
				s.logger.Error("scheduled optimize failed", slog.Any("error", err))
			}
		}
	}
}
