package status

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dtce-ai/docpipe/internal/models"
)

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return store
}

func TestCreateAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Create(ctx, "job-1", "report.docx"); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	rec, err := store.Get(ctx, "job-1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if rec.Status != models.StatusPending {
		t.Errorf("expected Pending, got %s", rec.Status)
	}
	if rec.JobID != "job-1" {
		t.Errorf("expected job-1, got %s", rec.JobID)
	}
}

func TestCreateIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Create(ctx, "job-2", ""); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := store.UpdateStatus(ctx, "job-2", models.StatusProcessing, "working"); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if err := store.Create(ctx, "job-2", ""); err != nil {
		t.Fatalf("re-create failed: %v", err)
	}

	rec, err := store.Get(ctx, "job-2")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if rec.Status != models.StatusProcessing {
		t.Errorf("re-create must not reset status, got %s", rec.Status)
	}
}

func TestLifecycleToComplete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Create(ctx, "job-3", ""); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	for _, st := range []models.JobStatus{
		models.StatusProcessing,
		models.StatusParsingInProgress,
		models.StatusAnalysisInProgress,
	} {
		if err := store.UpdateStatus(ctx, "job-3", st, string(st)); err != nil {
			t.Fatalf("update to %s failed: %v", st, err)
		}
	}
	if err := store.UpdateCompletion(ctx, "job-3", "results/job-3/template.json", "results/job-3/context.json"); err != nil {
		t.Fatalf("completion failed: %v", err)
	}

	rec, err := store.Get(ctx, "job-3")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if rec.Status != models.StatusComplete {
		t.Errorf("expected Complete, got %s", rec.Status)
	}
	if rec.CompletedAt == nil {
		t.Error("expected CompletedAt to be set")
	}
	if rec.TemplateJSONKey == nil || *rec.TemplateJSONKey != "results/job-3/template.json" {
		t.Errorf("unexpected template key: %v", rec.TemplateJSONKey)
	}
	if rec.ContextJSONKey == nil || *rec.ContextJSONKey != "results/job-3/context.json" {
		t.Errorf("unexpected context key: %v", rec.ContextJSONKey)
	}
}

func TestUpdateErrorTruncatesMessage(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Create(ctx, "job-4", ""); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	long := strings.Repeat("x", 2000)
	if err := store.UpdateError(ctx, "job-4", long); err != nil {
		t.Fatalf("update error failed: %v", err)
	}

	rec, err := store.Get(ctx, "job-4")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if rec.Status != models.StatusFailed {
		t.Errorf("expected Failed, got %s", rec.Status)
	}
	if rec.ErrorMessage == nil || len(*rec.ErrorMessage) != 512 {
		t.Errorf("expected 512-byte error message, got %v", rec.ErrorMessage)
	}
}

func TestGetUnknownJob(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.Get(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := store.UpdateStatus(context.Background(), "nope", models.StatusProcessing, ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
