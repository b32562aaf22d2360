package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/sydlexius/dirscope/internal/directory"
	"github.com/sydlexius/dirscope/internal/event"
	"github.com/sydlexius/dirscope/internal/logging"
	"github.com/sydlexius/dirscope/internal/resource"
)

// DefaultPause is the spacing between consecutive batch requests.
const DefaultPause = 10 * time.Millisecond

// BatchScanner fetches the next slice of a category scan. The backend keeps
// the cursor, so calls for one scan must be strictly sequential.
type BatchScanner interface {
	ScanNextBatch(ctx context.Context, req directory.BatchRequest) (*directory.ScanProgress, error)
}

// HistoryRecorder persists finished scan results.
type HistoryRecorder interface {
	Record(ctx context.Context, r *Result) error
}

// Driver pulls batches from the backend into an Accumulator until the
// backend reports completion. One Driver serves one Accumulator; only one
// scan runs at a time.
type Driver struct {
	scanner BatchScanner
	acc     *resource.Accumulator
	logger  *slog.Logger
	pause   time.Duration

	eventBus *event.Bus
	history  HistoryRecorder

	mu      sync.Mutex
	current *Result
}

// NewDriver creates a scan driver.
func NewDriver(scanner BatchScanner, acc *resource.Accumulator, logger *slog.Logger) *Driver {
	return &Driver{
		scanner: scanner,
		acc:     acc,
		logger:  logging.Component(logger, "scan-driver"),
		pause:   DefaultPause,
	}
}

// SetPause overrides the spacing between batch requests. Zero disables it.
func (d *Driver) SetPause(p time.Duration) {
	if p < 0 {
		p = 0
	}
	d.pause = p
}

// SetEventBus sets the event bus for publishing scan events.
func (d *Driver) SetEventBus(bus *event.Bus) {
	d.eventBus = bus
}

// SetHistory sets where finished results are recorded.
func (d *Driver) SetHistory(h HistoryRecorder) {
	d.history = h
}

// Accumulator returns the store the driver writes to.
func (d *Driver) Accumulator() *resource.Accumulator {
	return d.acc
}

// Status returns a copy of the current or most recent scan result, or nil
// if no scan has run.
func (d *Driver) Status() *Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.current == nil {
		return nil
	}
	snapshot := *d.current
	return &snapshot
}

// Run clears the accumulator and requests batches until the backend sets
// its completion flag. The first failed request stops the loop; items
// already accumulated are kept and the error is returned without retry.
// Canceling ctx stops the loop before the next request.
func (d *Driver) Run(ctx context.Context, req Request) (*Result, error) {
	breq := req.batchRequest()
	if err := breq.Validate(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	if d.current != nil && !d.current.Done() {
		d.mu.Unlock()
		return nil, ErrScanInProgress
	}
	result := &Result{
		ID:         uuid.New().String(),
		CategoryID: req.CategoryID,
		Status:     StatusRunning,
		StartedAt:  time.Now().UTC(),
	}
	d.current = result
	d.mu.Unlock()

	d.acc.Clear()

	logger := d.logger.With(slog.String("scan_id", result.ID), slog.Int64("category_id", req.CategoryID))
	logger.Info("scan started", slog.Int("batch_size", req.BatchSize))
	d.publish(event.ScanStarted, map[string]any{
		"scan_id":     result.ID,
		"category_id": req.CategoryID,
	})

	err := d.loop(ctx, breq, result, logger)
	d.finish(ctx, result, err, logger)

	return d.Status(), err
}

func (d *Driver) loop(ctx context.Context, req directory.BatchRequest, result *Result, logger *slog.Logger) error {
	var limiter *rate.Limiter
	if d.pause > 0 {
		limiter = rate.NewLimiter(rate.Every(d.pause), 1)
	}

	for batch := 1; ; batch++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if limiter != nil {
			// The first token is free; later ones space requests by d.pause.
			if err := limiter.Wait(ctx); err != nil {
				return err
			}
		}

		progress, err := d.scanner.ScanNextBatch(ctx, req)
		if err != nil {
			return fmt.Errorf("batch %d: %w", batch, err)
		}

		added := d.acc.Append(progress.CurrentBatch, progress.ScannedFiles, progress.TotalFiles)

		d.mu.Lock()
		result.Batches = batch
		result.ScannedFiles = progress.ScannedFiles
		result.TotalFiles = progress.TotalFiles
		result.Items = d.acc.Len()
		items := result.Items
		d.mu.Unlock()

		logger.Debug("batch received",
			slog.Int("batch", batch),
			slog.Int("added", added),
			slog.Int64("scanned", progress.ScannedFiles),
			slog.Int64("total", progress.TotalFiles),
		)
		d.publish(event.ScanBatch, map[string]any{
			"scan_id":       result.ID,
			"category_id":   req.CategoryID,
			"batch":         batch,
			"added":         added,
			"items":         items,
			"scanned_files": progress.ScannedFiles,
			"total_files":   progress.TotalFiles,
		})

		// The completion flag wins over the counters.
		if progress.IsComplete {
			return nil
		}
	}
}

func (d *Driver) finish(ctx context.Context, result *Result, err error, logger *slog.Logger) {
	d.mu.Lock()
	now := time.Now().UTC()
	result.CompletedAt = &now
	switch {
	case err == nil:
		result.Status = StatusCompleted
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		result.Status = StatusCanceled
		result.Error = err.Error()
	default:
		result.Status = StatusFailed
		result.Error = err.Error()
	}
	snapshot := *result
	d.mu.Unlock()

	data := map[string]any{
		"scan_id":       snapshot.ID,
		"category_id":   snapshot.CategoryID,
		"status":        snapshot.Status,
		"batches":       snapshot.Batches,
		"items":         snapshot.Items,
		"scanned_files": snapshot.ScannedFiles,
		"total_files":   snapshot.TotalFiles,
	}
	if err != nil {
		data["error"] = snapshot.Error
		logger.Warn("scan stopped",
			slog.String("status", snapshot.Status),
			slog.Int("items", snapshot.Items),
			slog.Any("error", err),
		)
		d.publish(event.ScanFailed, data)
	} else {
		logger.Info("scan completed",
			slog.Int("batches", snapshot.Batches),
			slog.Int("items", snapshot.Items),
			slog.Duration("duration", now.Sub(snapshot.StartedAt)),
		)
		d.publish(event.ScanCompleted, data)
	}

	if d.history != nil {
		// Record even when ctx was canceled so abandoned scans are visible.
		if herr := d.history.Record(context.WithoutCancel(ctx), &snapshot); herr != nil {
			logger.Warn("recording scan history", slog.Any("error", herr))
		}
	}
}

func (d *Driver) publish(t event.Type, data map[string]any) {
	if d.eventBus == nil {
		return
	}
	d.eventBus.Publish(event.Event{Type: t, Data: data})
}
