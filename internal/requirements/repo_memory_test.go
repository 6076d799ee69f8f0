package requirements

import (
	"context"
	"errors"
	"testing"
	"time"
)

func seedTask(t *testing.T, repo *MemoryRepo, kind string) Task {
	t.Helper()
	task := Task{
		ID:         "task-1",
		DocumentID: "doc-1",
		Kind:       kind,
		Provider:   "openai",
		Status:     StatusPending,
		CreatedAt:  time.Now().UTC(),
	}
	if err := repo.Create(context.Background(), task); err != nil {
		t.Fatalf("Create: %v", err)
	}
	return task
}

func TestMemoryRepoLifecycle(t *testing.T) {
	repo := NewMemoryRepo()
	task := seedTask(t, repo, KindRequirements)
	ctx := context.Background()

	if err := repo.MarkProcessing(ctx, task.ID); err != nil {
		t.Fatalf("MarkProcessing: %v", err)
	}
	snap, err := repo.GetByID(ctx, task.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if snap.Status != StatusProcessing || snap.Progress != 50 {
		t.Fatalf("snap = %+v", snap)
	}

	analysis := RequirementAnalysis{Total: 1, OverallScore: 80, Summary: "ok"}
	if err := repo.CompleteAnalysis(ctx, task.ID, analysis, "Analyzed 1 requirements."); err != nil {
		t.Fatalf("CompleteAnalysis: %v", err)
	}
	snap, err = repo.GetByID(ctx, task.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if snap.Status != StatusCompleted || snap.Progress != 100 {
		t.Fatalf("snap = %+v", snap)
	}
	if snap.Analysis == nil || snap.Analysis.OverallScore != 80 {
		t.Fatalf("analysis = %+v", snap.Analysis)
	}
	if snap.CompletedAt == nil {
		t.Fatal("CompletedAt not set")
	}
}

func TestMemoryRepoTerminalFreeze(t *testing.T) {
	repo := NewMemoryRepo()
	task := seedTask(t, repo, KindTestCases)
	ctx := context.Background()

	if err := repo.Fail(ctx, task.ID, "Analysis failed: boom"); err != nil {
		t.Fatalf("Fail: %v", err)
	}

	if err := repo.MarkProcessing(ctx, task.ID); !errors.Is(err, ErrTerminal) {
		t.Fatalf("MarkProcessing after fail: err = %v, want ErrTerminal", err)
	}
	if err := repo.CompleteSuite(ctx, task.ID, TestCaseSuite{}, "x"); !errors.Is(err, ErrTerminal) {
		t.Fatalf("CompleteSuite after fail: err = %v, want ErrTerminal", err)
	}
	if err := repo.Fail(ctx, task.ID, "again"); !errors.Is(err, ErrTerminal) {
		t.Fatalf("Fail after fail: err = %v, want ErrTerminal", err)
	}

	snap, err := repo.GetByID(ctx, task.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if snap.Summary != "Analysis failed: boom" {
		t.Fatalf("summary = %q", snap.Summary)
	}
}

func TestMemoryRepoUnknownTask(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()

	if _, err := repo.GetByID(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetByID: err = %v, want ErrNotFound", err)
	}
	if err := repo.MarkProcessing(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("MarkProcessing: err = %v, want ErrNotFound", err)
	}
	if err := repo.Fail(ctx, "nope", "x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Fail: err = %v, want ErrNotFound", err)
	}
}

func TestMemoryRepoSnapshotIsolation(t *testing.T) {
	repo := NewMemoryRepo()
	task := seedTask(t, repo, KindRequirements)
	ctx := context.Background()

	analysis := RequirementAnalysis{
		Total: 1,
		Items: []RequirementItem{{ReqID: "REQ-001", Title: "Login"}},
	}
	if err := repo.CompleteAnalysis(ctx, task.ID, analysis, "done"); err != nil {
		t.Fatalf("CompleteAnalysis: %v", err)
	}

	snap, err := repo.GetByID(ctx, task.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	snap.Analysis.Items[0].Title = "mutated"

	again, err := repo.GetByID(ctx, task.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if again.Analysis.Items[0].Title != "Login" {
		t.Fatal("stored task was mutated through a snapshot")
	}
}
