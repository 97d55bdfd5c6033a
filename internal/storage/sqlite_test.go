package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/alienxp03/ideagen/internal/core"
)

func TestSQLiteStorage(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	store, err := NewSQLiteStorage(dbPath)
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	defer store.Close()

	if err := store.Initialize(); err != nil {
		t.Fatalf("failed to initialize: %v", err)
	}

	t.Run("CreateAndGetRun", func(t *testing.T) {
		run := &core.Run{
			ID:         "test-run-1",
			Timestamp:  "20250101_120000",
			Query:      "sparse attention probes",
			ConfigName: "full_system",
			Status:     core.RunPending,
			CreatedAt:  time.Now(),
		}

		if err := store.CreateRun(run); err != nil {
			t.Fatalf("failed to create run: %v", err)
		}

		got, err := store.GetRun(run.ID)
		if err != nil {
			t.Fatalf("failed to get run: %v", err)
		}
		if got == nil {
			t.Fatal("run not found")
		}

		if got.ID != run.ID {
			t.Errorf("ID mismatch: got %s, want %s", got.ID, run.ID)
		}
		if got.Query != run.Query {
			t.Errorf("Query mismatch: got %s, want %s", got.Query, run.Query)
		}
		if got.ConfigName != run.ConfigName {
			t.Errorf("ConfigName mismatch: got %s, want %s", got.ConfigName, run.ConfigName)
		}
		if got.Status != core.RunPending {
			t.Errorf("Status mismatch: got %s, want %s", got.Status, core.RunPending)
		}
		if got.CompletedAt != nil {
			t.Errorf("expected nil CompletedAt, got %v", got.CompletedAt)
		}
	})

	t.Run("UpdateRun", func(t *testing.T) {
		run, _ := store.GetRun("test-run-1")
		run.Status = core.RunCompleted
		run.StatePath = "results/workflow_state_20250101_120000.json"
		run.RankedPath = "results/ranked_ideas_20250101_120000.json"
		now := time.Now()
		run.CompletedAt = &now

		if err := store.UpdateRun(run); err != nil {
			t.Fatalf("failed to update run: %v", err)
		}

		got, _ := store.GetRun(run.ID)
		if got.Status != core.RunCompleted {
			t.Errorf("Status not updated: got %s, want %s", got.Status, core.RunCompleted)
		}
		if got.StatePath != run.StatePath {
			t.Errorf("StatePath not updated: got %s", got.StatePath)
		}
		if got.CompletedAt == nil {
			t.Error("CompletedAt not persisted")
		}
	})

	t.Run("ListRuns", func(t *testing.T) {
		second := &core.Run{
			ID:         "test-run-2",
			Timestamp:  "20250102_090000",
			Query:      "diffusion planners",
			ConfigName: "no_critique",
			Status:     core.RunFailed,
			Error:      "judge failed after 3 attempts",
			CreatedAt:  time.Now().Add(time.Hour),
		}
		if err := store.CreateRun(second); err != nil {
			t.Fatalf("failed to create second run: %v", err)
		}

		summaries, err := store.ListRuns(10, 0)
		if err != nil {
			t.Fatalf("failed to list runs: %v", err)
		}
		if len(summaries) != 2 {
			t.Fatalf("expected 2 runs, got %d", len(summaries))
		}
		if summaries[0].ID != "test-run-2" {
			t.Errorf("expected newest run first, got %s", summaries[0].ID)
		}
	})

	t.Run("ListRunsPagination", func(t *testing.T) {
		summaries, err := store.ListRuns(1, 1)
		if err != nil {
			t.Fatalf("failed to list runs: %v", err)
		}
		if len(summaries) != 1 {
			t.Fatalf("expected 1 run, got %d", len(summaries))
		}
		if summaries[0].ID != "test-run-1" {
			t.Errorf("expected second page to hold test-run-1, got %s", summaries[0].ID)
		}
	})

	t.Run("GetMissingRun", func(t *testing.T) {
		got, err := store.GetRun("nonexistent")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != nil {
			t.Errorf("expected nil for missing run, got %+v", got)
		}
	})

	t.Run("DeleteRun", func(t *testing.T) {
		if err := store.DeleteRun("test-run-2"); err != nil {
			t.Fatalf("failed to delete run: %v", err)
		}
		got, _ := store.GetRun("test-run-2")
		if got != nil {
			t.Errorf("run survived deletion")
		}
	})
}
