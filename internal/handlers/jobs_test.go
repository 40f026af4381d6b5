package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"

	"github.com/dtce-ai/docpipe/internal/bus"
	"github.com/dtce-ai/docpipe/internal/models"
	"github.com/dtce-ai/docpipe/internal/status"
	"github.com/dtce-ai/docpipe/internal/storage"
)

// recordingBus captures published messages.
type recordingBus struct {
	published []struct {
		topic   string
		message any
	}
}

func (b *recordingBus) Publish(_ context.Context, topic string, message any) error {
	b.published = append(b.published, struct {
		topic   string
		message any
	}{topic, message})
	return nil
}

func (b *recordingBus) StartConsume(string, bus.Handler) (func(), error) {
	return func() {}, nil
}

func (b *recordingBus) StopAll() {}

func newTestHandler(t *testing.T) (*Handler, *recordingBus, storage.ObjectStore, status.Store) {
	t.Helper()
	root := t.TempDir()
	store, err := storage.NewFileSystemStore(storage.FileSystemStoreOptions{
		RootPath:       root,
		GatewayBaseURL: "http://localhost:8080",
	})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	statusStore, err := status.NewFileStore(root)
	if err != nil {
		t.Fatalf("failed to create status store: %v", err)
	}
	b := &recordingBus{}
	return NewHandler(store, statusStore, b, 50*1024*1024), b, store, statusStore
}

func newTestRouter(h *Handler) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", h.Health).Methods(http.MethodGet)
	h.Register(r.PathPrefix("/api/v1").Subrouter())
	return r
}

func multipartFile(t *testing.T, fieldFile, fileName string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile(fieldFile, fileName)
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	if _, err := fw.Write(content); err != nil {
		t.Fatalf("failed to write form file: %v", err)
	}
	w.Close()
	return &buf, w.FormDataContentType()
}

func TestSubmitJobWithFile(t *testing.T) {
	h, b, store, statusStore := newTestHandler(t)
	r := newTestRouter(h)

	body, contentType := multipartFile(t, "document", "resume.docx", []byte("PK fake docx"))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs/submit", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	jobID := resp["jobId"]
	if jobID == "" {
		t.Fatal("expected a jobId")
	}
	if want := fmt.Sprintf("/api/v1/jobs/%s/status", jobID); resp["statusUrl"] != want {
		t.Errorf("expected statusUrl %q, got %q", want, resp["statusUrl"])
	}

	// Document stored under the job's key.
	rc, err := store.Download(context.Background(), models.DocumentKey(jobID, "resume.docx"))
	if err != nil {
		t.Fatalf("expected stored document: %v", err)
	}
	rc.Close()

	// Pending record created.
	record, err := statusStore.Get(context.Background(), jobID)
	if err != nil {
		t.Fatalf("expected status record: %v", err)
	}
	if record.Status != models.StatusPending {
		t.Errorf("expected Pending, got %s", record.Status)
	}

	// Job request published.
	if len(b.published) != 1 || b.published[0].topic != models.TopicJobRequests {
		t.Fatalf("expected one publish to %s, got %+v", models.TopicJobRequests, b.published)
	}
	job := b.published[0].message.(models.JobRequest)
	if job.DocumentType != models.DocumentTypeDocx {
		t.Errorf("expected Docx, got %s", job.DocumentType)
	}
}

func TestSubmitJobWithURL(t *testing.T) {
	h, b, _, _ := newTestHandler(t)
	r := newTestRouter(h)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	w.WriteField("documentUrl", "https://docs.google.com/document/d/abc/edit")
	w.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs/submit", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()

	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	job := b.published[0].message.(models.JobRequest)
	if job.DocumentType != models.DocumentTypeGoogleDoc {
		t.Errorf("expected GoogleDoc, got %s", job.DocumentType)
	}
}

func TestSubmitJobRejectsOversizeFile(t *testing.T) {
	h, _, _, _ := newTestHandler(t)
	h.maxUploadBytes = 16
	r := newTestRouter(h)

	body, contentType := multipartFile(t, "document", "big.docx", bytes.Repeat([]byte("x"), 64))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs/submit", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["error"] != "File size exceeds 50MB limit" {
		t.Errorf("unexpected error message: %q", resp["error"])
	}
}

func TestSubmitJobRejectsBadExtension(t *testing.T) {
	h, _, _, _ := newTestHandler(t)
	r := newTestRouter(h)

	body, contentType := multipartFile(t, "document", "notes.txt", []byte("hello"))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs/submit", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestSubmitJobRejectsBadURL(t *testing.T) {
	h, _, _, _ := newTestHandler(t)
	r := newTestRouter(h)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	w.WriteField("documentUrl", "ftp://example.com/doc")
	w.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs/submit", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()

	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestSubmitJobRejectsEmptyForm(t *testing.T) {
	h, _, _, _ := newTestHandler(t)
	r := newTestRouter(h)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	w.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs/submit", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()

	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestGetStatusUnknownJob(t *testing.T) {
	h, _, _, _ := newTestHandler(t)
	r := newTestRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/nope/status", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestGetResultsWhileIncomplete(t *testing.T) {
	h, _, _, statusStore := newTestHandler(t)
	r := newTestRouter(h)

	if err := statusStore.Create(context.Background(), "job-x", ""); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/job-x/results", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["status"] != string(models.StatusPending) {
		t.Errorf("expected Pending, got %s", resp["status"])
	}
}

func TestGetResultsComplete(t *testing.T) {
	h, _, store, statusStore := newTestHandler(t)
	r := newTestRouter(h)
	ctx := context.Background()

	templateKey := models.TemplateResultKey("job-y")
	contextKey := models.ContextResultKey("job-y")
	if err := store.Upload(ctx, templateKey, strings.NewReader(`{"visualTheme":{}}`), "application/json"); err != nil {
		t.Fatalf("upload failed: %v", err)
	}
	if err := store.Upload(ctx, contextKey, strings.NewReader(`{"contentBlocks":[]}`), "application/json"); err != nil {
		t.Fatalf("upload failed: %v", err)
	}
	if err := statusStore.Create(ctx, "job-y", ""); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := statusStore.UpdateCompletion(ctx, "job-y", templateKey, contextKey); err != nil {
		t.Fatalf("completion failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/job-y/results?includeContent=true", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp map[string]json.RawMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	for _, field := range []string{"templateJsonUrl", "contextJsonUrl", "templateJson", "contextJson"} {
		if _, ok := resp[field]; !ok {
			t.Errorf("expected field %s in response", field)
		}
	}
}

func TestServeFile(t *testing.T) {
	h, _, store, _ := newTestHandler(t)
	r := newTestRouter(h)
	ctx := context.Background()

	if err := store.Upload(ctx, "results/job-z/template.json", strings.NewReader(`{}`), "application/json"); err != nil {
		t.Fatalf("upload failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/files/results/job-z/template.json", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Disposition"); !strings.HasPrefix(got, "inline") {
		t.Errorf("expected inline disposition for JSON, got %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/jobs/files/results/job-z/template.json?download=true", nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if got := rec.Header().Get("Content-Disposition"); !strings.HasPrefix(got, "attachment") {
		t.Errorf("expected attachment disposition, got %q", got)
	}
}

func TestServeFileRejectsTraversal(t *testing.T) {
	h, _, _, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/files/x", nil)
	req = mux.SetURLVars(req, map[string]string{"fileKey": "../../etc/passwd"})
	rec := httptest.NewRecorder()
	h.ServeFile(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	h, _, _, _ := newTestHandler(t)
	r := newTestRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}
