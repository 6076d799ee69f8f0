package reports

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/li18635787490/ai-test-service/internal/checks"
	"github.com/li18635787490/ai-test-service/internal/documents"
	"github.com/li18635787490/ai-test-service/internal/extract"
	"github.com/li18635787490/ai-test-service/internal/llm"
	"github.com/li18635787490/ai-test-service/internal/shared/storage/object/local"
)

type stubClient struct{}

func (stubClient) Complete(ctx context.Context, req llm.Request) (string, error) {
	return `{"score": 90, "issues": [{"type": "style", "severity": "warning", "description": "long sentences"}]}`, nil
}

type reportEnv struct {
	router *gin.Engine
	svc    *checks.Service
	dir    string
	docID  string
}

func newReportEnv(t *testing.T) *reportEnv {
	t.Helper()
	store := local.New(t.TempDir())
	docRepo := documents.NewMemoryRepo()
	docSvc := &documents.Service{Store: store, Repo: docRepo}

	doc, err := docSvc.Upload(context.Background(), "spec.txt", strings.NewReader("the document under check"))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	registry := llm.NewRegistry("openai")
	registry.Register("openai", stubClient{})

	svc := &checks.Service{
		Repo:        checks.NewMemoryRepo(),
		Docs:        docRepo,
		Resolver:    &extract.Resolver{Store: store, Repo: docRepo},
		Providers:   registry,
		Concurrency: 2,
	}

	dir := t.TempDir()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(svc, dir).RegisterRoutes(r.Group("/api/v1"))
	return &reportEnv{router: r, svc: svc, dir: dir, docID: doc.ID}
}

func (e *reportEnv) finishedTask(t *testing.T) checks.Task {
	t.Helper()
	task, err := e.svc.Create(context.Background(), e.docID, []string{checks.DimensionFormat, checks.DimensionContent}, "", "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		snap, err := e.svc.Get(context.Background(), task.ID)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if snap.Terminal() {
			return snap
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("check task did not finish")
	return checks.Task{}
}

func (e *reportEnv) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func TestReportJSONEndpoint(t *testing.T) {
	env := newReportEnv(t)
	task := env.finishedTask(t)

	rec := env.get(t, "/api/v1/reports/"+task.ID)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var report Report
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if report.TaskID != task.ID || len(report.Sections) != 2 {
		t.Fatalf("report = %+v", report)
	}
	if report.IssueTotals.Warnings != 2 {
		t.Fatalf("totals = %+v", report.IssueTotals)
	}
}

func TestReportHTMLAndMarkdownEndpoints(t *testing.T) {
	env := newReportEnv(t)
	task := env.finishedTask(t)

	rec := env.get(t, "/api/v1/reports/"+task.ID+"/html")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Fatalf("content type = %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "Document Check Report") {
		t.Fatalf("body = %s", rec.Body.String())
	}

	rec = env.get(t, "/api/v1/reports/"+task.ID+"/markdown")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "# Document Check Report") {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestReportDownloadWritesFile(t *testing.T) {
	env := newReportEnv(t)
	task := env.finishedTask(t)

	rec := env.get(t, "/api/v1/reports/"+task.ID+"/download?format=markdown")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "attachment") {
		t.Fatalf("content disposition = %q", cd)
	}

	path := filepath.Join(env.dir, "report-"+task.ID+".md")
	saved, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("report file not written: %v", err)
	}
	if string(saved) != rec.Body.String() {
		t.Fatal("served content differs from saved file")
	}
}

func TestReportDownloadRejectsUnknownFormat(t *testing.T) {
	env := newReportEnv(t)
	task := env.finishedTask(t)

	rec := env.get(t, "/api/v1/reports/"+task.ID+"/download?format=pdf")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestReportForRunningTaskConflicts(t *testing.T) {
	env := newReportEnv(t)

	// Seed a pending task directly so it never finishes.
	pending := checks.Task{
		ID:         "pending-task",
		DocumentID: env.docID,
		Dimensions: []string{checks.DimensionFormat},
		Provider:   "openai",
		Status:     checks.StatusPending,
		CreatedAt:  time.Now().UTC(),
	}
	if err := env.svc.Repo.Create(context.Background(), pending); err != nil {
		t.Fatalf("Create: %v", err)
	}

	rec := env.get(t, "/api/v1/reports/pending-task")
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "invalid_state") {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestReportUnknownTask(t *testing.T) {
	env := newReportEnv(t)
	rec := env.get(t, "/api/v1/reports/nope")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
}
