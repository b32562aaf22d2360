package watcher

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/sydlexius/dirscope/internal/directory"
)

func TestCheckFSNotify_LocalDir(t *testing.T) {
	dir := t.TempDir()
	if !CheckFSNotify(dir, 2*time.Second) {
		t.Error("expected fsnotify to be supported on local temp dir")
	}
	// The marker directory is removed afterwards.
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("check left %d entries behind", len(entries))
	}
}

func TestCheckFSNotify_NonexistentDir(t *testing.T) {
	if CheckFSNotify("/nonexistent/path/that/does/not/exist", 500*time.Millisecond) {
		t.Error("expected fsnotify to report unsupported for nonexistent dir")
	}
}

func TestSupportCache_GetSet(t *testing.T) {
	pc := NewSupportCache()

	if _, ok := pc.Get("/some/path"); ok {
		t.Error("expected ok=false for unchecked path")
	}

	pc.Set("/some/path/", true)
	supported, ok := pc.Get("/some/path")
	if !ok || !supported {
		t.Errorf("expected supported=true, ok=true; got supported=%v, ok=%v", supported, ok)
	}

	pc.Set("/other/path", false)
	supported, ok = pc.Get("/other/path")
	if !ok || supported {
		t.Errorf("expected supported=false, ok=true; got supported=%v, ok=%v", supported, ok)
	}
}

func TestCheckAll(t *testing.T) {
	dir := t.TempDir()
	pc := NewSupportCache()
	pc.CheckAll(context.Background(), []directory.DirectoryBinding{
		{ID: 1, Path: dir},
		{ID: 2, Path: "/nonexistent/bound/path"},
	}, testLogger())

	if supported, ok := pc.Get(dir); !ok || !supported {
		t.Errorf("local dir: supported=%v ok=%v", supported, ok)
	}
	if _, ok := pc.Get("/nonexistent/bound/path"); ok {
		t.Error("inaccessible path should not be cached")
	}
}
