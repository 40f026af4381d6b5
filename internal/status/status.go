package status

import (
	"context"
	"errors"

	"github.com/dtce-ai/docpipe/internal/models"
)

// ErrNotFound is returned when no record exists for a job id.
var ErrNotFound = errors.New("job status not found")

// Store is the per-job status record contract. The store persists
// whatever it is asked; the worker layer composes only legal
// transitions (models.CanTransition).
type Store interface {
	// Create inserts a Pending record. Idempotent on job id: re-creating
	// an existing job is a no-op for status but refreshes UpdatedAt.
	Create(ctx context.Context, jobID, fileName string) error
	// UpdateStatus sets the status and human-readable message.
	UpdateStatus(ctx context.Context, jobID string, st models.JobStatus, message string) error
	// UpdateCompletion marks the job Complete with both result keys. Only
	// called once both artifacts are in the object store.
	UpdateCompletion(ctx context.Context, jobID, templateKey, contextKey string) error
	// UpdateError marks the job Failed. Terminal.
	UpdateError(ctx context.Context, jobID, errorMessage string) error
	// Get returns the record or ErrNotFound.
	Get(ctx context.Context, jobID string) (*models.JobStatusRecord, error)
}

// maxErrorLen bounds error strings persisted by UpdateError.
const maxErrorLen = 512

func truncateError(msg string) string {
	if len(msg) > maxErrorLen {
		return msg[:maxErrorLen]
	}
	return msg
}
