package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/sydlexius/dirscope/internal/directory"
)

// SupportCache caches whether fsnotify delivers events for a bound path.
type SupportCache struct {
	mu      sync.RWMutex
	results map[string]bool
}

// NewSupportCache creates an empty support cache.
func NewSupportCache() *SupportCache {
	return &SupportCache{
		results: make(map[string]bool),
	}
}

// Get returns whether fsnotify is supported for the given path.
// The second return value is false if the path has not been checked.
func (pc *SupportCache) Get(path string) (supported bool, ok bool) {
	pc.mu.RLock()
	defer pc.mu.RUnlock()
	supported, ok = pc.results[filepath.Clean(path)]
	return
}

// Set stores a check result for the given path.
func (pc *SupportCache) Set(path string, supported bool) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	pc.results[filepath.Clean(path)] = supported
}

// CheckFSNotify tests whether fsnotify delivers events for path by creating
// a hidden temporary directory inside it and waiting for the Create event.
// Network and FUSE mounts commonly fail this.
func CheckFSNotify(path string, timeout time.Duration) bool {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return false
	}
	defer w.Close() //nolint:errcheck

	if err := w.Add(path); err != nil {
		return false
	}

	markerName := fmt.Sprintf(".dirscope_check_%d", rand.Int63()) //nolint:gosec // G404: not security-sensitive
	markerDir := filepath.Join(path, markerName)

	if err := os.Mkdir(markerDir, 0o750); err != nil { //nolint:gosec // G301: marker dir is temporary
		return false
	}
	defer os.Remove(markerDir) //nolint:errcheck

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case ev, ok := <-w.Events:
			if !ok {
				return false
			}
			if ev.Has(fsnotify.Create) && filepath.Base(ev.Name) == markerName {
				return true
			}
		case <-w.Errors:
			return false
		case <-timer.C:
			return false
		}
	}
}

// CheckAll checks every bound path not yet in the cache.
func (pc *SupportCache) CheckAll(ctx context.Context, bindings []directory.DirectoryBinding, logger *slog.Logger) {
	for _, b := range bindings {
		if _, ok := pc.Get(b.Path); ok {
			continue
		}
		info, err := os.Stat(b.Path)
		if err != nil || !info.IsDir() {
			logger.Warn("bound path not accessible for fsnotify check", "binding_id", b.ID, "path", b.Path)
			continue
		}

		supported := CheckFSNotify(b.Path, 2*time.Second)
		pc.Set(b.Path, supported)
		logger.Info("fsnotify check result", "path", b.Path, "supported", supported)

		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}
