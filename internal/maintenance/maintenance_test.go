package maintenance

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/sydlexius/dirscope/internal/database"
	"github.com/sydlexius/dirscope/internal/history"
	"github.com/sydlexius/dirscope/internal/logging"
	"github.com/sydlexius/dirscope/internal/scan"
)

func setupTestDB(t *testing.T) (*sql.DB, string) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := database.Open(dbPath)
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("running migrations: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, dbPath
}

func seedHistory(t *testing.T, h *history.Service, categoryID int64, n int) {
	t.Helper()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		r := &scan.Result{
			ID:         uuid.New().String(),
			CategoryID: categoryID,
			Status:     scan.StatusCompleted,
			StartedAt:  base.Add(time.Duration(i) * time.Minute),
		}
		if err := h.Record(context.Background(), r); err != nil {
			t.Fatal(err)
		}
	}
}

func TestStatus(t *testing.T) {
	db, dbPath := setupTestDB(t)
	h := history.NewService(db)
	seedHistory(t, h, 1, 3)
	svc := NewService(db, dbPath, h, 0, logging.Discard())

	st, err := svc.Status(context.Background())
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if st.DBFileSize <= 0 || st.PageSize <= 0 || st.PageCount <= 0 {
		t.Errorf("expected positive sizes: %+v", st)
	}
	if st.HistoryRows != 3 {
		t.Errorf("HistoryRows = %d, want 3", st.HistoryRows)
	}
	if st.SchemaVersion != 1 {
		t.Errorf("SchemaVersion = %d, want 1", st.SchemaVersion)
	}
	if st.LastOptimizeAt != "" {
		t.Error("expected empty last optimize time initially")
	}
}

func TestOptimize_PrunesAndRecords(t *testing.T) {
	db, dbPath := setupTestDB(t)
	h := history.NewService(db)
	seedHistory(t, h, 1, 5)
	seedHistory(t, h, 2, 1)
	svc := NewService(db, dbPath, h, 2, logging.Discard())
	ctx := context.Background()

	pruned, err := svc.Optimize(ctx)
	if err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	if pruned != 3 {
		t.Errorf("pruned = %d, want 3", pruned)
	}

	st, err := svc.Status(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if st.HistoryRows != 3 {
		t.Errorf("HistoryRows = %d, want 3", st.HistoryRows)
	}
	if st.LastOptimizeAt == "" {
		t.Error("expected last optimize time to be recorded")
	}
	if _, err := time.Parse(time.RFC3339, st.LastOptimizeAt); err != nil {
		t.Errorf("LastOptimizeAt %q is not RFC3339: %v", st.LastOptimizeAt, err)
	}
}

func TestOptimize_KeepZeroLeavesHistory(t *testing.T) {
	db, dbPath := setupTestDB(t)
	h := history.NewService(db)
	seedHistory(t, h, 1, 4)
	svc := NewService(db, dbPath, h, 0, logging.Discard())

	pruned, err := svc.Optimize(context.Background())
	if err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	if pruned != 0 {
		t.Errorf("pruned = %d, want 0", pruned)
	}
}

func TestVacuum(t *testing.T) {
	db, dbPath := setupTestDB(t)
	svc := NewService(db, dbPath, nil, 0, logging.Discard())
	if err := svc.Vacuum(context.Background()); err != nil {
		t.Fatalf("Vacuum: %v", err)
	}
}

func TestSnapshot(t *testing.T) {
	db, dbPath := setupTestDB(t)
	h := history.NewService(db)
	seedHistory(t, h, 1, 2)
	svc := NewService(db, dbPath, h, 0, logging.Discard())

	dir := filepath.Join(t.TempDir(), "snapshots")
	dest, err := svc.Snapshot(context.Background(), dir)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if filepath.Dir(dest) != dir {
		t.Errorf("snapshot written to %s, want under %s", dest, dir)
	}
	if info, err := os.Stat(dest); err != nil || info.Size() == 0 {
		t.Fatalf("snapshot missing or empty: %v", err)
	}

	snap, err := database.Open(dest)
	if err != nil {
		t.Fatalf("opening snapshot: %v", err)
	}
	defer snap.Close() //nolint:errcheck
	var n int
	if err := snap.QueryRow("SELECT COUNT(*) FROM scan_history").Scan(&n); err != nil {
		t.Fatalf("querying snapshot: %v", err)
	}
	if n != 2 {
		t.Errorf("snapshot history rows = %d, want 2", n)
	}
}

func TestStartScheduler_StopsOnCancel(t *testing.T) {
	db, dbPath := setupTestDB(t)
	svc := NewService(db, dbPath, nil, 0, logging.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.StartScheduler(ctx, 10*time.Millisecond)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}

	st, err := svc.Status(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if st.LastOptimizeAt == "" {
		t.Error("expected scheduled optimize to run")
	}
}
