package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Scan.BatchSize != 1000 {
		t.Errorf("BatchSize = %d, want 1000", cfg.Scan.BatchSize)
	}
	if cfg.Scan.IgnoreDirectories != "node_modules,.git,dist,target" {
		t.Errorf("IgnoreDirectories = %q", cfg.Scan.IgnoreDirectories)
	}
	if cfg.Scan.Pause != 10*time.Millisecond {
		t.Errorf("Pause = %s, want 10ms", cfg.Scan.Pause)
	}
	if cfg.Maintenance.HistoryKeep != 50 || cfg.Maintenance.Interval != 24*time.Hour {
		t.Errorf("Maintenance = %+v", cfg.Maintenance)
	}
}

func TestLoad_MaintenanceFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
maintenance:
  history_keep: 5
  snapshot_dir: /tmp/snaps
  interval: 1h
watch:
  debounce: 500ms
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Maintenance.HistoryKeep != 5 || cfg.Maintenance.SnapshotDir != "/tmp/snaps" || cfg.Maintenance.Interval != time.Hour {
		t.Errorf("Maintenance = %+v", cfg.Maintenance)
	}
	if cfg.Watch.Debounce != 500*time.Millisecond {
		t.Errorf("Debounce = %s", cfg.Watch.Debounce)
	}
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := []byte(`
backend:
  url: http://localhost:9000/
scan:
  batch_size: 250
  show_hidden: true
logging:
  level: debug
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("DS_LOG_LEVEL", "warn")
	t.Setenv("DS_DB_PATH", filepath.Join(dir, "test.db"))

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Backend.URL != "http://localhost:9000" {
		t.Errorf("URL = %q, want trailing slash trimmed", cfg.Backend.URL)
	}
	if cfg.Scan.BatchSize != 250 {
		t.Errorf("BatchSize = %d, want 250", cfg.Scan.BatchSize)
	}
	if !cfg.Scan.ShowHidden {
		t.Error("expected ShowHidden from file")
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Level = %q, env should win over file", cfg.Logging.Level)
	}
	if cfg.Database.Path != filepath.Join(dir, "test.db") {
		t.Errorf("Database.Path = %q", cfg.Database.Path)
	}
}

func TestLoad_EmptyIgnoreFromEnv(t *testing.T) {
	t.Setenv("DS_SCAN_IGNORE", "")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Scan.IgnoreDirectories != "" {
		t.Errorf("IgnoreDirectories = %q, want empty", cfg.Scan.IgnoreDirectories)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"zero batch", map[string]string{"DS_SCAN_BATCH_SIZE": "0"}},
		{"negative batch", map[string]string{"DS_SCAN_BATCH_SIZE": "-5"}},
		{"bad scheme", map[string]string{"DS_BACKEND_URL": "ftp://host"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Load(""); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}
