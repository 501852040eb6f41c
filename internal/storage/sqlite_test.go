package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/hyperjump/radlabel/internal/models"
)

func openLedger(t *testing.T) *SQLiteLedger {
	t.Helper()
	ledger, err := NewSQLiteLedger(filepath.Join(t.TempDir(), "nested", "ledger.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ledger.Close() })
	return ledger
}

func TestSQLiteLedger_Lifecycle(t *testing.T) {
	ledger := openLedger(t)
	ctx := context.Background()

	run := &models.WindowRun{ID: "r1", InputPath: "/data/reports.csv", WindowIndex: 2, RowStart: 10, RowEnd: 15, ChunkCount: 3}
	if err := ledger.BeginRun(ctx, run); err != nil {
		t.Fatal(err)
	}
	if run.StartedAt.IsZero() || run.Status != models.RunRunning {
		t.Errorf("BeginRun should set status and start time, got %+v", run)
	}

	got, err := ledger.GetRun(ctx, "r1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != models.RunRunning || got.FinishedAt != nil || got.Rows() != 5 {
		t.Errorf("got %+v", got)
	}

	if err := ledger.CompleteRun(ctx, "r1", "/data/reports_00002_labeled.csv", "abc"); err != nil {
		t.Fatal(err)
	}
	got, _ = ledger.GetRun(ctx, "r1")
	if got.Status != models.RunCompleted || got.Digest != "abc" || got.FinishedAt == nil {
		t.Errorf("after complete: %+v", got)
	}

	if err := ledger.FailRun(ctx, "r1", "late"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("finishing a finished run: err = %v, want ErrRunNotFound", err)
	}
	if _, err := ledger.GetRun(ctx, "missing"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("GetRun missing: err = %v", err)
	}
}

func TestSQLiteLedger_LatestRuns(t *testing.T) {
	ledger := openLedger(t)
	ctx := context.Background()
	input := "/data/reports.csv"

	begin := func(id string, index int) {
		t.Helper()
		if err := ledger.BeginRun(ctx, &models.WindowRun{ID: id, InputPath: input, WindowIndex: index}); err != nil {
			t.Fatal(err)
		}
	}
	begin("a", 1)
	if err := ledger.FailRun(ctx, "a", "boom"); err != nil {
		t.Fatal(err)
	}
	begin("b", 1)
	if err := ledger.CompleteRun(ctx, "b", "p1", "d1"); err != nil {
		t.Fatal(err)
	}
	begin("c", 0)
	begin("other", 0)
	if err := ledger.BeginRun(ctx, &models.WindowRun{ID: "x", InputPath: "/elsewhere.csv", WindowIndex: 0}); err != nil {
		t.Fatal(err)
	}

	latest, err := ledger.LatestRun(ctx, input, 1)
	if err != nil {
		t.Fatal(err)
	}
	if latest.ID != "b" || latest.Status != models.RunCompleted {
		t.Errorf("LatestRun window 1 = %+v", latest)
	}
	if _, err := ledger.LatestRun(ctx, input, 9); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("LatestRun missing window: err = %v", err)
	}

	runs, err := ledger.ListLatestRuns(ctx, input)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 windows, got %d", len(runs))
	}
	if runs[0].WindowIndex != 0 || runs[0].ID != "other" || runs[1].ID != "b" {
		t.Errorf("runs = %s/%s", runs[0].ID, runs[1].ID)
	}

	size, err := ledger.SizeBytes()
	if err != nil || size == 0 {
		t.Errorf("SizeBytes = %d, %v", size, err)
	}
}

func TestSQLiteLedger_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	ctx := context.Background()
	ledger, err := NewSQLiteLedger(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := ledger.BeginRun(ctx, &models.WindowRun{ID: "r", InputPath: "in.csv"}); err != nil {
		t.Fatal(err)
	}
	ledger.Close()

	ledger, err = NewSQLiteLedger(path)
	if err != nil {
		t.Fatal(err)
	}
	defer ledger.Close()
	if _, err := ledger.GetRun(ctx, "r"); err != nil {
		t.Errorf("run lost after reopen: %v", err)
	}
}
