package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sydlexius/dirscope/internal/directory"
	"github.com/sydlexius/dirscope/internal/logging"
)

// Known setting keys.
const (
	KeyShowHidden        = "scan.show_hidden"
	KeyIgnoreDirectories = "scan.ignore_directories"
	KeyBatchSize         = "scan.batch_size"
	KeyLogLevel          = "logging.level"
	KeyLogFormat         = "logging.format"
)

// ErrUnknownKey is returned by Set for keys this client does not define.
var ErrUnknownKey = errors.New("unknown setting")

var validators = map[string]func(string) error{
	KeyShowHidden: func(v string) error {
		if _, err := strconv.ParseBool(v); err != nil {
			return errors.New("must be true or false")
		}
		return nil
	},
	KeyIgnoreDirectories: func(string) error { return nil },
	KeyBatchSize: func(v string) error {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return errors.New("must be a positive integer")
		}
		return nil
	},
	KeyLogLevel: func(v string) error {
		if !logging.ValidLevel(v) {
			return errors.New("must be one of debug, info, warn, error")
		}
		return nil
	},
	KeyLogFormat: func(v string) error {
		if !logging.ValidFormat(v) {
			return errors.New("must be text or json")
		}
		return nil
	},
}

// Keys returns the known setting keys in display order.
func Keys() []string {
	return []string{KeyShowHidden, KeyIgnoreDirectories, KeyBatchSize, KeyLogLevel, KeyLogFormat}
}

// Setting is one stored key/value pair.
type Setting struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ScanOptions are the persisted inputs of a scan.
type ScanOptions struct {
	ShowHidden        bool
	IgnoreDirectories []string
	BatchSize         int
}

// Service provides settings data operations.
type Service struct {
	db *sql.DB
}

// NewService creates a settings service.
func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// Get returns the stored value for key and whether it exists.
func (s *Service) Get(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("getting setting %s: %w", key, err)
	}
	return v, true, nil
}

// Set validates and stores value under key.
func (s *Service) Set(ctx context.Context, key, value string) error {
	validate, ok := validators[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	value = strings.TrimSpace(value)
	if key == KeyIgnoreDirectories {
		value = directory.JoinIgnoreList(directory.ParseIgnoreList(value))
	}
	if err := validate(value); err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("setting %s: %w", key, err)
	}
	return nil
}

// Delete removes key, restoring its default.
func (s *Service) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM settings WHERE key = ?`, key); err != nil {
		return fmt.Errorf("deleting setting %s: %w", key, err)
	}
	return nil
}

// All returns every stored setting ordered by key.
func (s *Service) All(ctx context.Context) ([]Setting, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value, updated_at FROM settings ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("listing settings: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var out []Setting
	for rows.Next() {
		var st Setting
		var updated string
		if err := rows.Scan(&st.Key, &st.Value, &updated); err != nil {
			return nil, fmt.Errorf("scanning setting: %w", err)
		}
		st.UpdatedAt, _ = time.Parse(time.RFC3339, updated)
		out = append(out, st)
	}
	return out, rows.Err()
}

// String returns the value for key, or fallback when it is unset or empty.
func (s *Service) String(ctx context.Context, key, fallback string) string {
	v, ok, err := s.Get(ctx, key)
	if err != nil || !ok || v == "" {
		return fallback
	}
	return v
}

// Bool returns the value for key parsed as a boolean, or fallback.
func (s *Service) Bool(ctx context.Context, key string, fallback bool) bool {
	v, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

// Int returns the value for key parsed as an integer, or fallback.
func (s *Service) Int(ctx context.Context, key string, fallback int) int {
	v, ok, err := s.Get(ctx, key)
	if err != nil || !ok || v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

// ScanOptions returns the effective scan options, falling back to defaults
// for anything not stored. A stored empty ignore list means "ignore
// nothing" and is kept as such.
func (s *Service) ScanOptions(ctx context.Context, defaults ScanOptions) ScanOptions {
	opts := ScanOptions{
		ShowHidden: s.Bool(ctx, KeyShowHidden, defaults.ShowHidden),
		BatchSize:  s.Int(ctx, KeyBatchSize, defaults.BatchSize),
	}
	if v, ok, err := s.Get(ctx, KeyIgnoreDirectories); err == nil && ok {
		opts.IgnoreDirectories = directory.ParseIgnoreList(v)
	} else {
		opts.IgnoreDirectories = defaults.IgnoreDirectories
	}
	return opts
}
