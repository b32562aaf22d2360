// Package catalog ties the bindings of the selected category to the scan
// driver and its accumulated resources.
package catalog

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"

	"github.com/sydlexius/dirscope/internal/directory"
	"github.com/sydlexius/dirscope/internal/logging"
	"github.com/sydlexius/dirscope/internal/resource"
	"github.com/sydlexius/dirscope/internal/scan"
	"github.com/sydlexius/dirscope/internal/settings"
	"github.com/sydlexius/dirscope/internal/stats"
)

var (
	// ErrNoCategory is returned by operations that need a selected category.
	ErrNoCategory = errors.New("no category selected")
	// ErrNoBindings is returned by Rescan when the selected category has no
	// bound directories. The backend is not contacted.
	ErrNoBindings = errors.New("category has no bound directories")
)

// Backend manages directory bindings and serves single-shot scans.
type Backend interface {
	Bindings(ctx context.Context, categoryID int64) ([]directory.DirectoryBinding, error)
	Bind(ctx context.Context, categoryID int64, path string) (*directory.DirectoryBinding, error)
	Unbind(ctx context.Context, bindingID int64) error
	ScanAll(ctx context.Context, req directory.ScanRequest) ([]directory.ResourceItem, error)
}

// OptionsSource supplies the persisted scan options.
type OptionsSource interface {
	ScanOptions(ctx context.Context, defaults settings.ScanOptions) settings.ScanOptions
}

// Catalog holds the state of the currently selected category.
type Catalog struct {
	bindings Backend
	driver   *scan.Driver
	acc      *resource.Accumulator
	logger   *slog.Logger

	options  OptionsSource
	defaults settings.ScanOptions

	statsCache stats.Cache

	mu         sync.RWMutex
	categoryID int64
	bound      []directory.DirectoryBinding
}

// New creates a catalog backed by the driver's accumulator.
func New(bindings Backend, driver *scan.Driver, logger *slog.Logger) *Catalog {
	return &Catalog{
		bindings: bindings,
		driver:   driver,
		acc:      driver.Accumulator(),
		logger:   logging.Component(logger, "catalog"),
		defaults: settings.ScanOptions{
			IgnoreDirectories: directory.ParseIgnoreList(directory.DefaultIgnoreDirectories),
			BatchSize:         directory.DefaultBatchSize,
		},
	}
}

// SetOptions sets where scan options come from and the defaults used for
// anything the source does not store. A nil source uses defaults only.
func (c *Catalog) SetOptions(src OptionsSource, defaults settings.ScanOptions) {
	c.options = src
	c.defaults = defaults
}

// CategoryID returns the selected category, or 0 if none is selected.
func (c *Catalog) CategoryID() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.categoryID
}

// Select makes categoryID current and loads its bindings. Switching to a
// different category drops the previous category's resources.
func (c *Catalog) Select(ctx context.Context, categoryID int64) ([]directory.DirectoryBinding, error) {
	if categoryID <= 0 {
		return nil, directory.ErrInvalidCategory
	}

	c.mu.Lock()
	changed := c.categoryID != categoryID
	c.categoryID = categoryID
	if changed {
		c.bound = nil
	}
	c.mu.Unlock()

	if changed {
		c.acc.Clear()
	}
	if err := c.reloadBindings(ctx, categoryID); err != nil {
		return nil, err
	}
	return c.Bindings(), nil
}

// Bindings returns a copy of the selected category's bindings.
func (c *Catalog) Bindings() []directory.DirectoryBinding {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.bound)
}

// AddBinding binds path to the selected category, reloads the bindings and
// rescans. The binding is returned even if the rescan fails.
func (c *Catalog) AddBinding(ctx context.Context, path string) (*directory.DirectoryBinding, *scan.Result, error) {
	categoryID, err := c.selected()
	if err != nil {
		return nil, nil, err
	}

	b, err := c.bindings.Bind(ctx, categoryID, path)
	if err != nil {
		return nil, nil, err
	}
	c.logger.Info("directory bound", slog.Int64("category_id", categoryID), slog.String("path", b.Path))

	if err := c.reloadBindings(ctx, categoryID); err != nil {
		return b, nil, err
	}
	result, err := c.Rescan(ctx)
	return b, result, err
}

// RemoveBinding unbinds bindingID. When it was the last binding the
// resources are cleared; otherwise the category is rescanned.
func (c *Catalog) RemoveBinding(ctx context.Context, bindingID int64) (*scan.Result, error) {
	if _, err := c.selected(); err != nil {
		return nil, err
	}
	if err := c.bindings.Unbind(ctx, bindingID); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.bound = slices.DeleteFunc(c.bound, func(b directory.DirectoryBinding) bool {
		return b.ID == bindingID
	})
	remaining := len(c.bound)
	c.mu.Unlock()

	c.logger.Info("directory unbound", slog.Int64("binding_id", bindingID), slog.Int("remaining", remaining))

	if remaining == 0 {
		c.acc.Clear()
		return nil, nil
	}
	return c.Rescan(ctx)
}

// Rescan rebuilds the selected category's resources from scratch using the
// persisted scan options.
func (c *Catalog) Rescan(ctx context.Context) (*scan.Result, error) {
	return c.RescanWith(ctx, c.scanOptions(ctx))
}

// RescanWith is Rescan with explicit options.
func (c *Catalog) RescanWith(ctx context.Context, opts settings.ScanOptions) (*scan.Result, error) {
	categoryID, err := c.requireBindings()
	if err != nil {
		return nil, err
	}
	return c.driver.Run(ctx, scan.Request{
		CategoryID:        categoryID,
		ShowHidden:        opts.ShowHidden,
		IgnoreDirectories: opts.IgnoreDirectories,
		BatchSize:         opts.BatchSize,
	})
}

// ScanAll fetches the whole category in one request and replaces the
// resources with the result. It must not overlap a Rescan.
func (c *Catalog) ScanAll(ctx context.Context, opts settings.ScanOptions) (int, error) {
	categoryID, err := c.requireBindings()
	if err != nil {
		return 0, err
	}
	items, err := c.bindings.ScanAll(ctx, directory.ScanRequest{
		CategoryID:        categoryID,
		ShowHidden:        opts.ShowHidden,
		IgnoreDirectories: opts.IgnoreDirectories,
	})
	if err != nil {
		return 0, err
	}
	c.acc.Replace(items)
	c.logger.Info("single-shot scan completed", slog.Int64("category_id", categoryID), slog.Int("items", len(items)))
	return len(items), nil
}

// ScanOptions returns the options the next Rescan will use.
func (c *Catalog) ScanOptions(ctx context.Context) settings.ScanOptions {
	return c.scanOptions(ctx)
}

// Stats returns the category breakdown of the current resources.
func (c *Catalog) Stats() []stats.CategoryStat {
	items, _, version := c.acc.Snapshot()
	return c.statsCache.CategoryStats(items, version)
}

// FileTypes returns the per-extension breakdown of the current resources.
func (c *Catalog) FileTypes() []stats.FileTypeStat {
	return stats.FileTypeStats(c.acc.Resources())
}

// Summary returns totals over the current resources.
func (c *Catalog) Summary() stats.Summary {
	return stats.Summarize(c.acc.Resources())
}

// Progress returns the counters of the current or last scan.
func (c *Catalog) Progress() resource.Progress {
	return c.acc.Progress()
}

// Resources returns a copy of the current resources.
func (c *Catalog) Resources() []directory.ResourceItem {
	return c.acc.Resources()
}

func (c *Catalog) selected() (int64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.categoryID == 0 {
		return 0, ErrNoCategory
	}
	return c.categoryID, nil
}

// requireBindings returns the selected category if it has bindings. A
// category with nothing bound has no resources, so stale ones are dropped.
func (c *Catalog) requireBindings() (int64, error) {
	categoryID, err := c.selected()
	if err != nil {
		return 0, err
	}
	c.mu.RLock()
	empty := len(c.bound) == 0
	c.mu.RUnlock()
	if empty {
		c.acc.Clear()
		return 0, ErrNoBindings
	}
	return categoryID, nil
}

func (c *Catalog) reloadBindings(ctx context.Context, categoryID int64) error {
	bound, err := c.bindings.Bindings(ctx, categoryID)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	// A concurrent Select may have moved on.
	if c.categoryID == categoryID {
		c.bound = bound
	}
	return nil
}

func (c *Catalog) scanOptions(ctx context.Context) settings.ScanOptions {
	if c.options == nil {
		return c.defaults
	}
	return c.options.ScanOptions(ctx, c.defaults)
}
