package status

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dtce-ai/docpipe/internal/models"
)

// FileStore implements Store with one JSON file per job under a jobs/
// directory. An in-process mutex protects per-file replacement; writes
// are full-file replacements under a temp-name + rename discipline so
// readers never see a torn record. Multi-process access requires each
// process to target a distinct job-id namespace.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

// NewFileStore creates the local status store under rootPath/jobs.
func NewFileStore(rootPath string) (*FileStore, error) {
	dir := filepath.Join(rootPath, "jobs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create status directory: %w", err)
	}

	log.Info().Str("dir", dir).Msg("File status store initialized")
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) recordPath(jobID string) string {
	return filepath.Join(s.dir, jobID+".json")
}

func (s *FileStore) read(jobID string) (*models.JobStatusRecord, error) {
	data, err := os.ReadFile(s.recordPath(jobID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, jobID)
		}
		return nil, fmt.Errorf("failed to read status file: %w", err)
	}
	var rec models.JobStatusRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode status file: %w", err)
	}
	return &rec, nil
}

func (s *FileStore) write(rec *models.JobStatusRecord) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode status record: %w", err)
	}
	path := s.recordPath(rec.JobID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write status file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace status file: %w", err)
	}
	return nil
}

// Create inserts a Pending record; re-create on an existing id only
// refreshes UpdatedAt.
func (s *FileStore) Create(ctx context.Context, jobID, fileName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, err := s.read(jobID); err == nil {
		rec.UpdatedAt = time.Now().UTC()
		return s.write(rec)
	}

	now := time.Now().UTC()
	return s.write(&models.JobStatusRecord{
		JobID:         jobID,
		Status:        models.StatusPending,
		StatusMessage: "Job submitted",
		CreatedAt:     now,
		UpdatedAt:     now,
	})
}

// UpdateStatus sets status and message.
func (s *FileStore) UpdateStatus(ctx context.Context, jobID string, st models.JobStatus, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.read(jobID)
	if err != nil {
		return err
	}
	rec.Status = st
	rec.StatusMessage = message
	rec.UpdatedAt = time.Now().UTC()
	return s.write(rec)
}

// UpdateCompletion marks the job Complete with both result keys.
func (s *FileStore) UpdateCompletion(ctx context.Context, jobID, templateKey, contextKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.read(jobID)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	rec.Status = models.StatusComplete
	rec.StatusMessage = "Analysis complete"
	rec.TemplateJSONKey = &templateKey
	rec.ContextJSONKey = &contextKey
	rec.CompletedAt = &now
	rec.UpdatedAt = now
	return s.write(rec)
}

// UpdateError marks the job Failed.
func (s *FileStore) UpdateError(ctx context.Context, jobID, errorMessage string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.read(jobID)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	msg := truncateError(errorMessage)
	rec.Status = models.StatusFailed
	rec.StatusMessage = "Job failed"
	rec.ErrorMessage = &msg
	rec.CompletedAt = &now
	rec.UpdatedAt = now
	return s.write(rec)
}

// Get returns the record or ErrNotFound.
func (s *FileStore) Get(ctx context.Context, jobID string) (*models.JobStatusRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read(jobID)
}
