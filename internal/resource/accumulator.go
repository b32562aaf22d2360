// Package resource holds the discovered-file set of the category currently
// being scanned.
package resource

import (
	"strconv"
	"sync"

	"github.com/sydlexius/dirscope/internal/directory"
)

// Progress carries the backend-reported scan counters.
type Progress struct {
	ScannedFiles int64 `json:"scanned_files"`
	TotalFiles   int64 `json:"total_files"`
}

// Option configures an Accumulator.
type Option func(*Accumulator)

// WithDedupe makes Append drop items already present. Items are keyed by id
// when it is non-zero and by file path otherwise, since freshly scanned
// items carry id 0.
func WithDedupe() Option {
	return func(a *Accumulator) {
		a.seen = make(map[string]struct{})
	}
}

// Accumulator is the single-writer store of scan results. Append keeps
// arrival order and overwrites the counters with the backend's values.
type Accumulator struct {
	mu       sync.RWMutex
	items    []directory.ResourceItem
	progress Progress
	version  uint64
	seen     map[string]struct{} // nil unless deduplicating
}

// NewAccumulator creates an empty Accumulator.
func NewAccumulator(opts ...Option) *Accumulator {
	a := &Accumulator{}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Clear drops all items and zeroes the counters.
func (a *Accumulator) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.items = nil
	a.progress = Progress{}
	if a.seen != nil {
		a.seen = make(map[string]struct{})
	}
	a.version++
}

// Append adds batch to the end of the set and records the counters. It
// returns the number of items actually added.
func (a *Accumulator) Append(batch []directory.ResourceItem, scanned, total int64) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.appendLocked(batch, Progress{ScannedFiles: scanned, TotalFiles: total})
}

func (a *Accumulator) appendLocked(batch []directory.ResourceItem, p Progress) int {
	added := 0
	for _, item := range batch {
		if a.seen != nil {
			k := key(item)
			if _, dup := a.seen[k]; dup {
				continue
			}
			a.seen[k] = struct{}{}
		}
		a.items = append(a.items, item)
		added++
	}
	a.progress = p
	a.version++
	return added
}

// Replace swaps the whole set in one step, as after a single-shot scan.
// Both counters are set to the number of items received.
func (a *Accumulator) Replace(items []directory.ResourceItem) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.items = nil
	if a.seen != nil {
		a.seen = make(map[string]struct{})
	}
	n := int64(len(items))
	a.appendLocked(items, Progress{ScannedFiles: n, TotalFiles: n})
}

// Resources returns a copy of the current set.
func (a *Accumulator) Resources() []directory.ResourceItem {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]directory.ResourceItem, len(a.items))
	copy(out, a.items)
	return out
}

// Progress returns the latest counters.
func (a *Accumulator) Progress() Progress {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.progress
}

// Len returns the number of items held.
func (a *Accumulator) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.items)
}

// Version increases on every mutation.
func (a *Accumulator) Version() uint64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.version
}

// Snapshot returns the items, counters and version read under one lock.
func (a *Accumulator) Snapshot() ([]directory.ResourceItem, Progress, uint64) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]directory.ResourceItem, len(a.items))
	copy(out, a.items)
	return out, a.progress, a.version
}

func key(item directory.ResourceItem) string {
	if item.ID != 0 {
		return "id:" + strconv.FormatInt(item.ID, 10)
	}
	return "path:" + item.FilePath
}
