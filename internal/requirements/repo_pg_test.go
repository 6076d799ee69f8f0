package requirements

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestPGRepoCreate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	repo := &PGRepo{DB: db}

	task := Task{
		ID:         "task-1",
		DocumentID: "doc-1",
		Kind:       KindRequirements,
		Provider:   "openai",
		Status:     StatusPending,
		CreatedAt:  time.Now().UTC(),
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO requirement_tasks")).
		WithArgs(task.ID, task.DocumentID, task.Kind, task.Provider, task.Status, 0,
			nil, nil, "", task.CreatedAt, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Create(context.Background(), task); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestPGRepoGetByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	repo := &PGRepo{DB: db}

	created := time.Now().UTC()
	completed := created.Add(time.Minute)
	rows := sqlmock.NewRows([]string{
		"id", "document_id", "kind", "provider", "status", "progress",
		"analysis", "suite", "summary", "created_at", "completed_at",
	}).AddRow(
		"task-1", "doc-1", KindRequirements, "openai", StatusCompleted, 100,
		[]byte(`{"total": 2, "overall_score": 79, "summary": "ok"}`), nil,
		"Analyzed 2 requirements.", created, completed,
	)
	mock.ExpectQuery(regexp.QuoteMeta("FROM requirement_tasks")).
		WithArgs("task-1").
		WillReturnRows(rows)

	task, err := repo.GetByID(context.Background(), "task-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if task.Status != StatusCompleted || task.Progress != 100 {
		t.Fatalf("task = %+v", task)
	}
	if task.Analysis == nil || task.Analysis.Total != 2 || task.Analysis.OverallScore != 79 {
		t.Fatalf("analysis = %+v", task.Analysis)
	}
	if task.Suite != nil {
		t.Fatalf("suite = %+v, want nil", task.Suite)
	}
	if task.CompletedAt == nil {
		t.Fatal("CompletedAt not set")
	}
}

func TestPGRepoMarkProcessingTerminalVsMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	repo := &PGRepo{DB: db}

	// Row exists but is terminal.
	mock.ExpectExec(regexp.QuoteMeta("UPDATE requirement_tasks")).
		WithArgs(StatusProcessing, "task-1", StatusCompleted, StatusFailed).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
		WithArgs("task-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	if err := repo.MarkProcessing(context.Background(), "task-1"); !errors.Is(err, ErrTerminal) {
		t.Fatalf("err = %v, want ErrTerminal", err)
	}

	// Row does not exist.
	mock.ExpectExec(regexp.QuoteMeta("UPDATE requirement_tasks")).
		WithArgs(StatusProcessing, "task-2", StatusCompleted, StatusFailed).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
		WithArgs("task-2").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	if err := repo.MarkProcessing(context.Background(), "task-2"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestPGRepoCompleteAnalysis(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	repo := &PGRepo{DB: db}

	mock.ExpectExec(regexp.QuoteMeta("UPDATE requirement_tasks")).
		WithArgs(StatusCompleted, sqlmock.AnyArg(), "Analyzed 1 requirements.", sqlmock.AnyArg(),
			"task-1", StatusCompleted, StatusFailed).
		WillReturnResult(sqlmock.NewResult(0, 1))

	analysis := RequirementAnalysis{Total: 1, OverallScore: 80}
	if err := repo.CompleteAnalysis(context.Background(), "task-1", analysis, "Analyzed 1 requirements."); err != nil {
		t.Fatalf("CompleteAnalysis: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}
