// Package worker hosts the pipeline stage handlers. Every handler
// follows the same policy: failures are logged, recorded via
// UpdateError and the message is acked. Handlers never return errors
// for job-level faults, so redelivery is reserved for infrastructure
// crashes. Each stage entry advances the status record only through a
// legal transition (models.CanTransition); redelivered messages for
// settled jobs are acked without side effects.
package worker

import (
	"context"
	"errors"
	"net/url"

	"github.com/rs/zerolog/log"

	"github.com/dtce-ai/docpipe/internal/bus"
	"github.com/dtce-ai/docpipe/internal/models"
	"github.com/dtce-ai/docpipe/internal/status"
	"github.com/dtce-ai/docpipe/internal/storage"
)

// Ingestor validates submitted jobs and forwards them to parsing.
type Ingestor struct {
	store       storage.ObjectStore
	statusStore status.Store
	bus         bus.Bus
}

// NewIngestor creates the ingestion stage handler.
func NewIngestor(store storage.ObjectStore, statusStore status.Store, b bus.Bus) *Ingestor {
	return &Ingestor{store: store, statusStore: statusStore, bus: b}
}

// Handle processes one job-requests message.
func (w *Ingestor) Handle(ctx context.Context, payload []byte) error {
	var job models.JobRequest
	if err := bus.Decode(payload, &job); err != nil {
		log.Error().Err(err).Msg("Discarding undecodable job request")
		return nil
	}

	logger := log.With().Str("job_id", job.JobID).Str("stage", "ingest").Logger()

	ok, err := beginStage(ctx, w.statusStore, job.JobID, models.StatusProcessing, "Document ingestion in progress")
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load job status")
		return err
	}
	if !ok {
		logger.Info().Msg("Skipping redelivered message for settled job")
		return nil
	}

	if err := w.validate(ctx, job); err != nil {
		logger.Warn().Err(err).Msg("Job validation failed")
		w.fail(ctx, job.JobID, err.Error())
		return nil
	}

	if err := w.statusStore.UpdateStatus(ctx, job.JobID, models.StatusParsingInProgress, "Document validated, sent to parsing"); err != nil {
		logger.Error().Err(err).Msg("Failed to update job status")
	}

	if err := w.bus.Publish(ctx, models.TopicParsingJobs, job); err != nil {
		logger.Error().Err(err).Msg("Failed to publish parsing job")
		w.fail(ctx, job.JobID, "Failed to enqueue parsing job")
		return nil
	}

	logger.Info().Msg("Job ingested")
	return nil
}

func (w *Ingestor) validate(ctx context.Context, job models.JobRequest) error {
	if job.FilePath != "" {
		rc, err := w.store.Download(ctx, job.FilePath)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return errors.New("Document file not found")
			}
			return err
		}
		rc.Close()
		return nil
	}

	if job.DocumentURL == "" {
		return errors.New("job has neither a file path nor a document URL")
	}
	parsed, err := url.Parse(job.DocumentURL)
	if err != nil || !parsed.IsAbs() || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return errors.New("document URL must be absolute http or https")
	}
	return nil
}

func (w *Ingestor) fail(ctx context.Context, jobID, message string) {
	if err := w.statusStore.UpdateError(ctx, jobID, message); err != nil {
		log.Error().Err(err).Str("job_id", jobID).Msg("Failed to record job failure")
	}
}
