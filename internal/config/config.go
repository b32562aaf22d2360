package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Backend     BackendConfig     `yaml:"backend"`
	Database    DatabaseConfig    `yaml:"database"`
	Scan        ScanConfig        `yaml:"scan"`
	Watch       WatchConfig       `yaml:"watch"`
	Maintenance MaintenanceConfig `yaml:"maintenance"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// BackendConfig holds the command endpoint of the native backend.
type BackendConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

// DatabaseConfig holds SQLite settings.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// ScanConfig holds defaults for directory scans. Persisted settings take
// precedence over these values at scan time.
type ScanConfig struct {
	BatchSize         int           `yaml:"batch_size"`
	Pause             time.Duration `yaml:"pause"`
	ShowHidden        bool          `yaml:"show_hidden"`
	IgnoreDirectories string        `yaml:"ignore_directories"`
}

// WatchConfig holds filesystem watcher settings.
type WatchConfig struct {
	Debounce      time.Duration `yaml:"debounce"`
	RefreshPeriod time.Duration `yaml:"refresh_period"`
}

// MaintenanceConfig holds database housekeeping settings.
type MaintenanceConfig struct {
	HistoryKeep int           `yaml:"history_keep"`
	SnapshotDir string        `yaml:"snapshot_dir"`
	Interval    time.Duration `yaml:"interval"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level          string `yaml:"level"`
	Format         string `yaml:"format"`
	FilePath       string `yaml:"file_path"`
	FileMaxSizeMB  int    `yaml:"file_max_size_mb"`
	FileMaxFiles   int    `yaml:"file_max_files"`
	FileMaxAgeDays int    `yaml:"file_max_age_days"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Backend: BackendConfig{
			URL:     "http://127.0.0.1:7419",
			Timeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Path: filepath.Join(dataDir(), "dirscope.db"),
		},
		Scan: ScanConfig{
			BatchSize:         1000,
			Pause:             10 * time.Millisecond,
			IgnoreDirectories: "node_modules,.git,dist,target",
		},
		Watch: WatchConfig{
			Debounce:      2 * time.Second,
			RefreshPeriod: time.Minute,
		},
		Maintenance: MaintenanceConfig{
			HistoryKeep: 50,
			SnapshotDir: filepath.Join(dataDir(), "snapshots"),
			Interval:    24 * time.Hour,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// DefaultPath returns the config file location, honoring DS_CONFIG_PATH.
func DefaultPath() string {
	if v := os.Getenv("DS_CONFIG_PATH"); v != "" {
		return v
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(base, "dirscope", "config.yaml")
}

func dataDir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return "."
	}
	return filepath.Join(base, "dirscope")
}

// Load reads config from a YAML file (if it exists) and overrides with
// environment variables. Environment variables take precedence.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFromFile(path); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	cfg.loadFromEnv()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from the operator
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return yaml.Unmarshal(data, c)
}

func (c *Config) loadFromEnv() {
	if v := os.Getenv("DS_BACKEND_URL"); v != "" {
		c.Backend.URL = v
	}
	if v := os.Getenv("DS_BACKEND_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Backend.Timeout = d
		}
	}
	if v := os.Getenv("DS_DB_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("DS_SCAN_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Scan.BatchSize = n
		}
	}
	if v := os.Getenv("DS_SCAN_SHOW_HIDDEN"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Scan.ShowHidden = b
		}
	}
	if v, ok := os.LookupEnv("DS_SCAN_IGNORE"); ok {
		c.Scan.IgnoreDirectories = v
	}
	if v := os.Getenv("DS_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("DS_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("DS_LOG_FILE"); v != "" {
		c.Logging.FilePath = v
	}
}

func (c *Config) validate() error {
	c.Backend.URL = strings.TrimRight(strings.TrimSpace(c.Backend.URL), "/")
	if c.Backend.URL == "" {
		return fmt.Errorf("backend url is required")
	}
	if !strings.HasPrefix(c.Backend.URL, "http://") && !strings.HasPrefix(c.Backend.URL, "https://") {
		return fmt.Errorf("backend url must be http or https: %q", c.Backend.URL)
	}
	if c.Backend.Timeout <= 0 {
		return fmt.Errorf("invalid backend timeout: %s", c.Backend.Timeout)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database path is required")
	}
	if c.Scan.BatchSize <= 0 {
		return fmt.Errorf("invalid scan batch size: %d", c.Scan.BatchSize)
	}
	if c.Scan.Pause < 0 {
		return fmt.Errorf("invalid scan pause: %s", c.Scan.Pause)
	}
	if c.Watch.Debounce <= 0 {
		c.Watch.Debounce = 2 * time.Second
	}
	if c.Watch.RefreshPeriod <= 0 {
		c.Watch.RefreshPeriod = time.Minute
	}
	if c.Maintenance.HistoryKeep < 0 {
		return fmt.Errorf("invalid maintenance history_keep: %d", c.Maintenance.HistoryKeep)
	}
	if c.Maintenance.Interval <= 0 {
		c.Maintenance.Interval = 24 * time.Hour
	}
	return nil
}
