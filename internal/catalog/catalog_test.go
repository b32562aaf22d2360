package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"sync"
	"testing"

	"github.com/sydlexius/dirscope/internal/directory"
	"github.com/sydlexius/dirscope/internal/resource"
	"github.com/sydlexius/dirscope/internal/scan"
	"github.com/sydlexius/dirscope/internal/settings"
	"github.com/sydlexius/dirscope/internal/stats"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// fakeBackend serves bindings and scans from memory. Every scan of a
// category returns one file per bound directory in a single batch.
type fakeBackend struct {
	mu       sync.Mutex
	nextID   int64
	bindings map[int64][]directory.DirectoryBinding
	scans    []directory.BatchRequest
	scanErr  error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{bindings: make(map[int64][]directory.DirectoryBinding)}
}

func (f *fakeBackend) Bindings(_ context.Context, categoryID int64) ([]directory.DirectoryBinding, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.bindings[categoryID]), nil
}

func (f *fakeBackend) Bind(_ context.Context, categoryID int64, path string) (*directory.DirectoryBinding, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	b := directory.DirectoryBinding{ID: f.nextID, CategoryID: categoryID, Path: path}
	f.bindings[categoryID] = append(f.bindings[categoryID], b)
	return &b, nil
}

func (f *fakeBackend) Unbind(_ context.Context, bindingID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for cat, list := range f.bindings {
		for i, b := range list {
			if b.ID == bindingID {
				f.bindings[cat] = slices.Delete(list, i, i+1)
				return nil
			}
		}
	}
	return fmt.Errorf("binding %d not found", bindingID)
}

func (f *fakeBackend) ScanAll(ctx context.Context, req directory.ScanRequest) ([]directory.ResourceItem, error) {
	p, err := f.ScanNextBatch(ctx, directory.BatchRequest{ScanRequest: req, BatchSize: 1})
	if err != nil {
		return nil, err
	}
	return p.CurrentBatch, nil
}

func (f *fakeBackend) ScanNextBatch(_ context.Context, req directory.BatchRequest) (*directory.ScanProgress, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scans = append(f.scans, req)
	if f.scanErr != nil {
		return nil, f.scanErr
	}
	var items []directory.ResourceItem
	for _, b := range f.bindings[req.CategoryID] {
		items = append(items, directory.ResourceItem{
			FileName: "photo.jpg",
			FilePath: b.Path + "/photo.jpg",
			FileType: "jpg",
			FileSize: 1024,
		})
	}
	n := int64(len(items))
	return &directory.ScanProgress{TotalFiles: n, ScannedFiles: n, CurrentBatch: items, IsComplete: true}, nil
}

func (f *fakeBackend) scanCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.scans)
}

type staticOptions settings.ScanOptions

func (s staticOptions) ScanOptions(context.Context, settings.ScanOptions) settings.ScanOptions {
	return settings.ScanOptions(s)
}

func newCatalog(t *testing.T) (*Catalog, *fakeBackend) {
	t.Helper()
	backend := newFakeBackend()
	driver := scan.NewDriver(backend, resource.NewAccumulator(), testLogger())
	driver.SetPause(0)
	return New(backend, driver, testLogger()), backend
}

func TestOperationsRequireSelection(t *testing.T) {
	c, backend := newCatalog(t)
	ctx := context.Background()

	if _, err := c.Rescan(ctx); !errors.Is(err, ErrNoCategory) {
		t.Errorf("Rescan err = %v", err)
	}
	if _, _, err := c.AddBinding(ctx, "/x"); !errors.Is(err, ErrNoCategory) {
		t.Errorf("AddBinding err = %v", err)
	}
	if _, err := c.RemoveBinding(ctx, 1); !errors.Is(err, ErrNoCategory) {
		t.Errorf("RemoveBinding err = %v", err)
	}
	if _, err := c.Select(ctx, 0); !errors.Is(err, directory.ErrInvalidCategory) {
		t.Errorf("Select(0) err = %v", err)
	}
	if backend.scanCount() != 0 {
		t.Error("backend was scanned")
	}
}

func TestRescan_NoBindingsNeverScans(t *testing.T) {
	c, backend := newCatalog(t)
	ctx := context.Background()

	if _, err := c.Select(ctx, 7); err != nil {
		t.Fatalf("Select: %v", err)
	}
	if _, err := c.Rescan(ctx); !errors.Is(err, ErrNoBindings) {
		t.Errorf("Rescan err = %v, want ErrNoBindings", err)
	}
	if backend.scanCount() != 0 {
		t.Errorf("scans = %d, want 0", backend.scanCount())
	}
}

func TestAddBinding_ReloadsAndRescans(t *testing.T) {
	c, backend := newCatalog(t)
	ctx := context.Background()

	if _, err := c.Select(ctx, 1); err != nil {
		t.Fatal(err)
	}
	b, result, err := c.AddBinding(ctx, "/photos")
	if err != nil {
		t.Fatalf("AddBinding: %v", err)
	}
	if b.Path != "/photos" || b.CategoryID != 1 {
		t.Errorf("binding = %+v", b)
	}
	if result == nil || result.Status != scan.StatusCompleted {
		t.Errorf("result = %+v", result)
	}
	if got := c.Bindings(); len(got) != 1 || got[0].ID != b.ID {
		t.Errorf("Bindings = %+v", got)
	}
	if len(c.Resources()) != 1 {
		t.Errorf("Resources = %d, want 1", len(c.Resources()))
	}

	// Default options reach the backend.
	req := backend.scans[0]
	if req.BatchSize != directory.DefaultBatchSize || !slices.Contains(req.IgnoreDirectories, "node_modules") {
		t.Errorf("request = %+v", req)
	}
}

func TestRemoveBinding(t *testing.T) {
	c, backend := newCatalog(t)
	ctx := context.Background()

	if _, err := c.Select(ctx, 1); err != nil {
		t.Fatal(err)
	}
	first, _, err := c.AddBinding(ctx, "/a")
	if err != nil {
		t.Fatal(err)
	}
	second, _, err := c.AddBinding(ctx, "/b")
	if err != nil {
		t.Fatal(err)
	}
	if len(c.Resources()) != 2 {
		t.Fatalf("Resources = %d, want 2", len(c.Resources()))
	}

	// Removing one of two rescans.
	before := backend.scanCount()
	if _, err := c.RemoveBinding(ctx, first.ID); err != nil {
		t.Fatalf("RemoveBinding: %v", err)
	}
	if backend.scanCount() != before+1 {
		t.Error("expected a rescan")
	}
	if got := c.Resources(); len(got) != 1 || got[0].FilePath != "/b/photo.jpg" {
		t.Errorf("Resources = %+v", got)
	}

	// Removing the last clears without scanning.
	before = backend.scanCount()
	result, err := c.RemoveBinding(ctx, second.ID)
	if err != nil {
		t.Fatalf("RemoveBinding last: %v", err)
	}
	if result != nil || backend.scanCount() != before {
		t.Error("last unbind must not scan")
	}
	if len(c.Resources()) != 0 || c.Progress() != (resource.Progress{}) {
		t.Error("resources not cleared")
	}
	if len(c.Bindings()) != 0 {
		t.Error("binding list not updated")
	}
}

func TestRescan_BindingsRemovedElsewhereClears(t *testing.T) {
	c, backend := newCatalog(t)
	ctx := context.Background()

	if _, err := c.Select(ctx, 1); err != nil {
		t.Fatal(err)
	}
	b, _, err := c.AddBinding(ctx, "/a")
	if err != nil {
		t.Fatal(err)
	}
	if len(c.Resources()) != 1 {
		t.Fatalf("Resources = %d, want 1", len(c.Resources()))
	}

	// Another client removes the binding; reselecting the same category
	// keeps the accumulator until the rescan notices.
	if err := backend.Unbind(ctx, b.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Select(ctx, 1); err != nil {
		t.Fatal(err)
	}
	before := backend.scanCount()
	if _, err := c.Rescan(ctx); !errors.Is(err, ErrNoBindings) {
		t.Fatalf("Rescan err = %v, want ErrNoBindings", err)
	}
	if backend.scanCount() != before {
		t.Error("rescan without bindings must not scan")
	}
	if len(c.Resources()) != 0 || len(c.Stats()) != 0 {
		t.Errorf("stale resources kept: %+v", c.Resources())
	}
}

func TestSelect_SwitchingClears(t *testing.T) {
	c, _ := newCatalog(t)
	ctx := context.Background()

	if _, err := c.Select(ctx, 1); err != nil {
		t.Fatal(err)
	}
	if _, _, err := c.AddBinding(ctx, "/a"); err != nil {
		t.Fatal(err)
	}

	// Reselecting the same category keeps results.
	if _, err := c.Select(ctx, 1); err != nil {
		t.Fatal(err)
	}
	if len(c.Resources()) != 1 {
		t.Error("reselecting the same category dropped results")
	}

	got, err := c.Select(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 || len(c.Resources()) != 0 {
		t.Errorf("switch did not reset: bindings %v, resources %d", got, len(c.Resources()))
	}
	if c.CategoryID() != 2 {
		t.Errorf("CategoryID = %d", c.CategoryID())
	}
}

func TestRescan_UsesStoredOptions(t *testing.T) {
	c, backend := newCatalog(t)
	ctx := context.Background()
	c.SetOptions(staticOptions{ShowHidden: true, BatchSize: 50, IgnoreDirectories: []string{"vendor"}}, settings.ScanOptions{})

	if _, err := c.Select(ctx, 3); err != nil {
		t.Fatal(err)
	}
	if _, _, err := c.AddBinding(ctx, "/src"); err != nil {
		t.Fatal(err)
	}
	req := backend.scans[0]
	if !req.ShowHidden || req.BatchSize != 50 || !slices.Equal(req.IgnoreDirectories, []string{"vendor"}) {
		t.Errorf("request = %+v", req)
	}
}

func TestRescan_FailureKeepsBinding(t *testing.T) {
	c, backend := newCatalog(t)
	ctx := context.Background()
	backend.scanErr = errors.New("disk offline")

	if _, err := c.Select(ctx, 1); err != nil {
		t.Fatal(err)
	}
	b, result, err := c.AddBinding(ctx, "/a")
	if err == nil {
		t.Fatal("expected rescan error")
	}
	if b == nil || len(c.Bindings()) != 1 {
		t.Error("binding lost after failed rescan")
	}
	if result == nil || result.Status != scan.StatusFailed {
		t.Errorf("result = %+v", result)
	}
}

func TestStats(t *testing.T) {
	c, _ := newCatalog(t)
	ctx := context.Background()

	if got := c.Stats(); len(got) != 0 {
		t.Errorf("Stats before scan = %+v", got)
	}
	if _, err := c.Select(ctx, 1); err != nil {
		t.Fatal(err)
	}
	if _, _, err := c.AddBinding(ctx, "/a"); err != nil {
		t.Fatal(err)
	}
	if _, _, err := c.AddBinding(ctx, "/b"); err != nil {
		t.Fatal(err)
	}

	got := c.Stats()
	if len(got) != 1 || got[0].Bucket != stats.BucketImage || got[0].Count != 2 || got[0].Percentage != 100 {
		t.Errorf("Stats = %+v", got)
	}
	if ft := c.FileTypes(); len(ft) != 1 || ft[0].FileType != "jpg" || ft[0].TotalSize != 2048 {
		t.Errorf("FileTypes = %+v", ft)
	}
	if s := c.Summary(); s.Files != 2 || s.TotalSize != 2048 {
		t.Errorf("Summary = %+v", s)
	}
	if p := c.Progress(); p.ScannedFiles != 2 || p.TotalFiles != 2 {
		t.Errorf("Progress = %+v", p)
	}
}

func TestScanAll(t *testing.T) {
	c, backend := newCatalog(t)
	ctx := context.Background()

	if _, err := c.Select(ctx, 1); err != nil {
		t.Fatal(err)
	}
	if _, err := c.ScanAll(ctx, settings.ScanOptions{}); !errors.Is(err, ErrNoBindings) {
		t.Errorf("ScanAll without bindings err = %v", err)
	}
	if _, _, err := c.AddBinding(ctx, "/a"); err != nil {
		t.Fatal(err)
	}
	if _, _, err := c.AddBinding(ctx, "/b"); err != nil {
		t.Fatal(err)
	}

	n, err := c.ScanAll(ctx, settings.ScanOptions{ShowHidden: true})
	if err != nil {
		t.Fatalf("ScanAll: %v", err)
	}
	if n != 2 || len(c.Resources()) != 2 {
		t.Errorf("ScanAll = %d, resources %d", n, len(c.Resources()))
	}
	if p := c.Progress(); p.ScannedFiles != 2 || p.TotalFiles != 2 {
		t.Errorf("Progress = %+v", p)
	}
	if last := backend.scans[len(backend.scans)-1]; !last.ShowHidden {
		t.Errorf("options not forwarded: %+v", last)
	}
}
