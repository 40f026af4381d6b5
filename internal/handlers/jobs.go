// Package handlers implements the HTTP gateway: job submission, status
// and result queries, and local file serving for dev pre-signed URLs.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/dtce-ai/docpipe/internal/bus"
	"github.com/dtce-ai/docpipe/internal/models"
	"github.com/dtce-ai/docpipe/internal/status"
	"github.com/dtce-ai/docpipe/internal/storage"
)

// resultURLTTL is the validity window for result download URLs.
const resultURLTTL = 12 * time.Hour

// Handler contains all HTTP handlers
type Handler struct {
	store          storage.ObjectStore
	statusStore    status.Store
	bus            bus.Bus
	maxUploadBytes int64
}

// NewHandler creates a new handler
func NewHandler(store storage.ObjectStore, statusStore status.Store, b bus.Bus, maxUploadBytes int64) *Handler {
	return &Handler{
		store:          store,
		statusStore:    statusStore,
		bus:            b,
		maxUploadBytes: maxUploadBytes,
	}
}

// Register wires the job routes onto the /api/v1 subrouter.
func (h *Handler) Register(api *mux.Router) {
	api.HandleFunc("/jobs/submit", h.SubmitJob).Methods(http.MethodPost)
	api.HandleFunc("/jobs/files/{fileKey:.*}", h.ServeFile).Methods(http.MethodGet)
	api.HandleFunc("/jobs/{jobId}/status", h.GetStatus).Methods(http.MethodGet)
	api.HandleFunc("/jobs/{jobId}/results", h.GetResults).Methods(http.MethodGet)
}

// SubmitJob handles POST /api/v1/jobs/submit. Accepts multipart form
// data with a "document" file and/or a "documentUrl" field.
func (h *Handler) SubmitJob(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	jobID := uuid.New().String()
	job := models.JobRequest{
		JobID:     jobID,
		CreatedAt: time.Now().UTC(),
	}

	file, header, err := r.FormFile("document")
	documentURL := strings.TrimSpace(r.FormValue("documentUrl"))

	switch {
	case err == nil:
		defer file.Close()
		if header.Size > h.maxUploadBytes {
			writeJSONError(w, http.StatusBadRequest, "File size exceeds 50MB limit")
			return
		}

		docType, ok := documentTypeForFile(header.Filename)
		if !ok {
			writeJSONError(w, http.StatusBadRequest, "unsupported file type; expected .docx or .pdf")
			return
		}

		key := models.DocumentKey(jobID, header.Filename)
		contentType := header.Header.Get("Content-Type")
		if err := h.store.Upload(r.Context(), key, io.LimitReader(file, h.maxUploadBytes), contentType); err != nil {
			log.Error().Err(err).Str("job_id", jobID).Msg("Failed to store uploaded document")
			writeJSONError(w, http.StatusInternalServerError, "failed to store document")
			return
		}

		job.DocumentType = docType
		job.FilePath = key
		job.FileName = header.Filename

	case documentURL != "":
		parsed, err := url.Parse(documentURL)
		if err != nil || !parsed.IsAbs() || (parsed.Scheme != "http" && parsed.Scheme != "https") {
			writeJSONError(w, http.StatusBadRequest, "documentUrl must be an absolute http or https URL")
			return
		}
		job.DocumentType = models.DocumentTypeGoogleDoc
		job.DocumentURL = documentURL

	default:
		writeJSONError(w, http.StatusBadRequest, "either a document file or documentUrl is required")
		return
	}

	if err := h.statusStore.Create(r.Context(), jobID, job.FileName); err != nil {
		log.Error().Err(err).Str("job_id", jobID).Msg("Failed to create job record")
		writeJSONError(w, http.StatusInternalServerError, "failed to create job")
		return
	}

	if err := h.bus.Publish(r.Context(), models.TopicJobRequests, job); err != nil {
		log.Error().Err(err).Str("job_id", jobID).Msg("Failed to publish job request")
		writeJSONError(w, http.StatusInternalServerError, "failed to enqueue job")
		return
	}

	log.Info().Str("job_id", jobID).Str("document_type", string(job.DocumentType)).Msg("Job submitted")

	writeJSON(w, http.StatusAccepted, map[string]string{
		"jobId":     jobID,
		"statusUrl": fmt.Sprintf("/api/v1/jobs/%s/status", jobID),
	})
}

// GetStatus handles GET /api/v1/jobs/{jobId}/status
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["jobId"]

	record, err := h.statusStore.Get(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, status.ErrNotFound) {
			writeJSONError(w, http.StatusNotFound, "job not found")
			return
		}
		log.Error().Err(err).Str("job_id", jobID).Msg("Failed to load job status")
		writeJSONError(w, http.StatusInternalServerError, "failed to load job status")
		return
	}

	writeJSON(w, http.StatusOK, record)
}

// GetResults handles GET /api/v1/jobs/{jobId}/results?includeContent=bool
func (h *Handler) GetResults(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["jobId"]

	record, err := h.statusStore.Get(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, status.ErrNotFound) {
			writeJSONError(w, http.StatusNotFound, "job not found")
			return
		}
		log.Error().Err(err).Str("job_id", jobID).Msg("Failed to load job status")
		writeJSONError(w, http.StatusInternalServerError, "failed to load job status")
		return
	}

	if record.Status != models.StatusComplete {
		writeJSON(w, http.StatusAccepted, map[string]string{
			"message": "Job is not complete yet",
			"status":  string(record.Status),
		})
		return
	}

	templateKey := models.TemplateResultKey(jobID)
	contextKey := models.ContextResultKey(jobID)
	if record.TemplateJSONKey != nil {
		templateKey = *record.TemplateJSONKey
	}
	if record.ContextJSONKey != nil {
		contextKey = *record.ContextJSONKey
	}

	templateURL, err := h.store.PresignedURL(r.Context(), templateKey, resultURLTTL)
	if err != nil {
		log.Error().Err(err).Str("job_id", jobID).Msg("Failed to presign template result")
		writeJSONError(w, http.StatusInternalServerError, "failed to generate result URLs")
		return
	}
	contextURL, err := h.store.PresignedURL(r.Context(), contextKey, resultURLTTL)
	if err != nil {
		log.Error().Err(err).Str("job_id", jobID).Msg("Failed to presign context result")
		writeJSONError(w, http.StatusInternalServerError, "failed to generate result URLs")
		return
	}

	resp := map[string]any{
		"jobId":           jobID,
		"templateJsonUrl": templateURL,
		"contextJsonUrl":  contextURL,
	}

	if r.URL.Query().Get("includeContent") == "true" {
		templateJSON, err := h.loadJSON(r, templateKey)
		if err != nil {
			log.Error().Err(err).Str("job_id", jobID).Msg("Failed to load template result")
			writeJSONError(w, http.StatusInternalServerError, "failed to load results")
			return
		}
		contextJSON, err := h.loadJSON(r, contextKey)
		if err != nil {
			log.Error().Err(err).Str("job_id", jobID).Msg("Failed to load context result")
			writeJSONError(w, http.StatusInternalServerError, "failed to load results")
			return
		}
		resp["templateJson"] = templateJSON
		resp["contextJson"] = contextJSON
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) loadJSON(r *http.Request, key string) (json.RawMessage, error) {
	data, err := storage.ReadAll(r.Context(), h.store, key)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(data), nil
}

// ServeFile handles GET /api/v1/jobs/files/{*fileKey}?download=bool.
// This is the dev-mode backing for local pre-signed URLs.
func (h *Handler) ServeFile(w http.ResponseWriter, r *http.Request) {
	rawKey := mux.Vars(r)["fileKey"]
	key, err := storage.SanitizeKey(rawKey)
	if err != nil {
		writeJSONError(w, http.StatusNotFound, "file not found")
		return
	}

	rc, err := h.store.Download(r.Context(), key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeJSONError(w, http.StatusNotFound, "file not found")
			return
		}
		log.Error().Err(err).Str("key", key).Msg("Failed to read stored file")
		writeJSONError(w, http.StatusInternalServerError, "failed to read file")
		return
	}
	defer rc.Close()

	fileName := filepath.Base(key)
	disposition := "attachment"
	if r.URL.Query().Get("download") != "true" && strings.HasSuffix(fileName, ".json") {
		disposition = "inline"
	}

	w.Header().Set("Content-Type", contentTypeForKey(key))
	w.Header().Set("Content-Disposition", fmt.Sprintf("%s; filename=%q", disposition, fileName))
	if _, err := io.Copy(w, rc); err != nil {
		log.Debug().Err(err).Str("key", key).Msg("File download interrupted")
	}
}

// Health handles GET /healthz
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func documentTypeForFile(fileName string) (models.DocumentType, bool) {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".docx":
		return models.DocumentTypeDocx, true
	case ".pdf":
		return models.DocumentTypePdf, true
	default:
		return "", false
	}
}

func contentTypeForKey(key string) string {
	switch strings.ToLower(filepath.Ext(key)) {
	case ".json":
		return "application/json"
	case ".pdf":
		return "application/pdf"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	default:
		return "application/octet-stream"
	}
}

func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

func writeJSONError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}
