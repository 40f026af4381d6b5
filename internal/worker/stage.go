package worker

import (
	"context"
	"errors"

	"github.com/dtce-ai/docpipe/internal/models"
	"github.com/dtce-ai/docpipe/internal/status"
)

// beginStage loads the job record and advances it to next. It returns
// false when the record is terminal or the move is not a legal
// transition, which happens when an already-processed message is
// redelivered; the caller acks and skips. A non-nil error is an
// infrastructure fault and the message should be retried.
func beginStage(ctx context.Context, store status.Store, jobID string, next models.JobStatus, message string) (bool, error) {
	record, err := store.Get(ctx, jobID)
	if err != nil {
		// A job with no record cannot be tracked; retrying will not help.
		if errors.Is(err, status.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if !models.CanTransition(record.Status, next) {
		return false, nil
	}
	if err := store.UpdateStatus(ctx, jobID, next, message); err != nil {
		return false, err
	}
	return true, nil
}
