package watcher

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/sydlexius/dirscope/internal/directory"
	"github.com/sydlexius/dirscope/internal/event"
	"github.com/sydlexius/dirscope/internal/logging"
)

// BindingLister returns the directories currently bound to the selected
// category.
type BindingLister interface {
	Bindings() []directory.DirectoryBinding
}

// Filter decides which paths are worth a rescan. It mirrors the options
// the backend applies while scanning.
type Filter struct {
	IgnoreDirectories []string
	ShowHidden        bool
}

// skip reports whether rel, a slash-separated path below a bound root,
// passes through an ignored or hidden entry.
func (f Filter) skip(rel string) bool {
	if rel == "." || rel == "" {
		return false
	}
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if !f.ShowHidden && strings.HasPrefix(part, ".") {
			return true
		}
		if slices.Contains(f.IgnoreDirectories, strings.ToLower(part)) {
			return true
		}
	}
	return false
}

// Service watches bound directories and triggers a debounced rescan when
// their contents change. Roots where fsnotify does not work are polled.
type Service struct {
	scanFn        func(ctx context.Context) error
	bindings      BindingLister
	eventBus      *event.Bus
	logger        *slog.Logger
	debounce      time.Duration
	refreshPeriod time.Duration
	pollInterval  time.Duration
	supportCache  *SupportCache

	mu       sync.Mutex
	filter   Filter
	watcher  *fsnotify.Watcher
	roots    map[string]bool // bound root -> watched with fsnotify
	watching map[string]string

	pollSnapshots map[string]map[string]time.Time // root -> entry -> mod time
}

// NewService creates a new filesystem watcher service.
func NewService(scanFn func(ctx context.Context) error, bindings BindingLister, eventBus *event.Bus, logger *slog.Logger, supportCache *SupportCache) *Service {
	return &Service{
		scanFn:        scanFn,
		bindings:      bindings,
		eventBus:      eventBus,
		logger:        logging.Component(logger, "fs-watcher"),
		debounce:      2 * time.Second,
		refreshPeriod: time.Minute,
		pollInterval:  time.Minute,
		supportCache:  supportCache,
		roots:         make(map[string]bool),
		watching:      make(map[string]string),
		pollSnapshots: make(map[string]map[string]time.Time),
	}
}

// SetDebounce overrides the default debounce interval.
func (s *Service) SetDebounce(d time.Duration) {
	s.debounce = d
}

// SetRefreshPeriod sets how often the bound roots are re-read.
func (s *Service) SetRefreshPeriod(d time.Duration) {
	if d > 0 {
		s.refreshPeriod = d
	}
}

// SetPollInterval sets how often unwatchable roots are polled.
func (s *Service) SetPollInterval(d time.Duration) {
	if d > 0 {
		s.pollInterval = d
	}
}

// SetFilter sets the ignore list and hidden-entry rule.
func (s *Service) SetFilter(f Filter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filter = f
}

// Start blocks until ctx is canceled. If fsnotify is unavailable every
// root is polled instead.
func (s *Service) Start(ctx context.Context) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		s.logger.Warn("fsnotify unavailable, running poll-only", "error", err)
	} else {
		defer w.Close() //nolint:errcheck
		s.mu.Lock()
		s.watcher = w
		s.mu.Unlock()
	}
	s.refreshRoots()
	s.logger.Info("filesystem watcher starting")

	refreshTicker := time.NewTicker(s.refreshPeriod)
	defer refreshTicker.Stop()
	pollTicker := time.NewTicker(s.pollInterval)
	defer pollTicker.Stop()

	// Starts stopped; reset on each relevant change.
	debounceTimer := time.NewTimer(0)
	if !debounceTimer.Stop() {
		<-debounceTimer.C
	}
	scanPending := false
	schedule := func() {
		if !debounceTimer.Stop() {
			select {
			case <-debounceTimer.C:
			default:
			}
		}
		debounceTimer.Reset(s.debounce)
		scanPending = true
	}

	// nil channels never receive when fsnotify is unavailable.
	var eventCh <-chan fsnotify.Event
	var errCh <-chan error
	if w != nil {
		eventCh = w.Events
		errCh = w.Errors
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("filesystem watcher stopping")
			return

		case ev, ok := <-eventCh:
			if !ok {
				return
			}
			if s.handleFSEvent(ev) {
				schedule()
			}

		case err, ok := <-errCh:
			if !ok {
				return
			}
			s.logger.Error("fsnotify error", "error", err)

		case <-debounceTimer.C:
			if scanPending {
				scanPending = false
				s.logger.Info("debounce elapsed, triggering rescan")
				if err := s.scanFn(ctx); err != nil {
					s.logger.Error("rescan triggered by fs watcher failed", "error", err)
				}
			}

		case <-pollTicker.C:
			if s.pollRoots() && !scanPending {
				schedule()
			}

		case <-refreshTicker.C:
			s.refreshRoots()
		}
	}
}

// handleFSEvent reports whether ev should lead to a rescan.
func (s *Service) handleFSEvent(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) && !ev.Has(fsnotify.Write) {
		return false
	}

	s.mu.Lock()
	root, ok := s.watching[filepath.Dir(ev.Name)]
	filter := s.filter
	s.mu.Unlock()
	if !ok {
		return false
	}
	rel, err := filepath.Rel(root, ev.Name)
	if err != nil || filter.skip(rel) {
		return false
	}

	// New subdirectories are watched too; fsnotify is not recursive.
	switch {
	case ev.Has(fsnotify.Create):
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			s.mu.Lock()
			s.addTreeLocked(root, ev.Name)
			s.mu.Unlock()
		}
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		s.mu.Lock()
		s.forgetTreeLocked(ev.Name)
		s.mu.Unlock()
	}

	s.logger.Debug("bound directory changed", "path", ev.Name, "op", ev.Op.String(), "root", root)
	s.publish(ev.Name, ev.Op.String(), root)
	return true
}

// refreshRoots synchronizes the watch and poll sets with the current
// bindings.
func (s *Service) refreshRoots() {
	wanted := make(map[string]bool)
	for _, b := range s.bindings.Bindings() {
		info, err := os.Stat(b.Path)
		if err != nil || !info.IsDir() {
			s.logger.Warn("bound path not watchable", "binding_id", b.ID, "path", b.Path, "error", err)
			continue
		}
		watchable := true
		if s.supportCache != nil {
			if supported, ok := s.supportCache.Get(b.Path); ok && !supported {
				watchable = false
			}
		}
		wanted[filepath.Clean(b.Path)] = watchable
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.watcher == nil {
		for root := range wanted {
			wanted[root] = false
		}
	}

	for root, watched := range s.roots {
		_, live := s.watching[root]
		if w, ok := wanted[root]; ok && w == watched && (live || !watched) {
			continue
		}
		s.dropRootLocked(root)
	}

	for root, watchable := range wanted {
		if _, ok := s.roots[root]; ok {
			continue
		}
		s.roots[root] = watchable
		if watchable {
			s.addTreeLocked(root, root)
			s.logger.Info("watching bound path", "path", root)
		} else {
			s.pollSnapshots[root] = snapshot(root, s.filter)
			s.logger.Info("polling bound path", "path", root, "interval", s.pollInterval)
		}
	}
}

// addTreeLocked watches dir and every non-filtered directory below it.
func (s *Service) addTreeLocked(root, dir string) {
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		rel, _ := filepath.Rel(root, path)
		if s.filter.skip(rel) {
			return filepath.SkipDir
		}
		if _, ok := s.watching[path]; ok {
			return nil
		}
		if err := s.watcher.Add(path); err != nil {
			s.logger.Warn("failed to watch directory", "path", path, "error", err)
			return nil
		}
		s.watching[path] = root
		return nil
	})
}

// forgetTreeLocked drops bookkeeping for dir and everything below it.
// fsnotify removes the watches itself when the directory goes away.
func (s *Service) forgetTreeLocked(dir string) {
	prefix := dir + string(filepath.Separator)
	for path := range s.watching {
		if path == dir || strings.HasPrefix(path, prefix) {
			delete(s.watching, path)
		}
	}
}

func (s *Service) dropRootLocked(root string) {
	for path, r := range s.watching {
		if r != root {
			continue
		}
		if s.watcher != nil {
			_ = s.watcher.Remove(path)
		}
		delete(s.watching, path)
	}
	delete(s.pollSnapshots, root)
	delete(s.roots, root)
	s.logger.Info("stopped watching bound path", "path", root)
}

// pollRoots compares each polled root with its last snapshot and reports
// whether anything changed.
func (s *Service) pollRoots() bool {
	s.mu.Lock()
	roots := make([]string, 0, len(s.pollSnapshots))
	for root := range s.pollSnapshots {
		roots = append(roots, root)
	}
	filter := s.filter
	s.mu.Unlock()

	changed := false
	for _, root := range roots {
		next := snapshot(root, filter)
		if next == nil {
			continue
		}

		s.mu.Lock()
		prev, ok := s.pollSnapshots[root]
		if ok {
			s.pollSnapshots[root] = next
		}
		s.mu.Unlock()
		if !ok {
			continue
		}

		for name, mod := range next {
			if old, existed := prev[name]; !existed {
				s.publish(filepath.Join(root, name), "CREATE", root)
				changed = true
			} else if !old.Equal(mod) {
				s.publish(filepath.Join(root, name), "WRITE", root)
				changed = true
			}
		}
		for name := range prev {
			if _, exists := next[name]; !exists {
				s.publish(filepath.Join(root, name), "REMOVE", root)
				changed = true
			}
		}
	}
	return changed
}

// snapshot records the mod time of every non-filtered entry under root.
// Returns nil if root cannot be read.
func snapshot(root string, filter Filter) map[string]time.Time {
	if _, err := os.Stat(root); err != nil {
		return nil
	}
	snap := make(map[string]time.Time)
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		rel, _ := filepath.Rel(root, path)
		if rel == "." {
			return nil
		}
		if filter.skip(rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if info, err := d.Info(); err == nil {
			snap[rel] = info.ModTime()
		}
		return nil
	})
	return snap
}

func (s *Service) publish(path, op, root string) {
	if s.eventBus == nil {
		return
	}
	s.eventBus.Publish(event.Event{
		Type: event.FSChanged,
		Data: map[string]any{
			"path": path,
			"op":   op,
			"root": root,
		},
	})
}
