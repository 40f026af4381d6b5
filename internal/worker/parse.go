package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/dtce-ai/docpipe/internal/bus"
	"github.com/dtce-ai/docpipe/internal/models"
	"github.com/dtce-ai/docpipe/internal/parser"
	"github.com/dtce-ai/docpipe/internal/status"
	"github.com/dtce-ai/docpipe/internal/storage"
)

// Parser dispatches documents to the type-specific handler and stores
// the intermediate parse result.
type Parser struct {
	store       storage.ObjectStore
	statusStore status.Store
	bus         bus.Bus
	dispatcher  *parser.Dispatcher
}

// NewParser creates the parsing stage handler.
func NewParser(store storage.ObjectStore, statusStore status.Store, b bus.Bus, dispatcher *parser.Dispatcher) *Parser {
	return &Parser{store: store, statusStore: statusStore, bus: b, dispatcher: dispatcher}
}

// Handle processes one parsing-jobs message.
func (w *Parser) Handle(ctx context.Context, payload []byte) error {
	var job models.JobRequest
	if err := bus.Decode(payload, &job); err != nil {
		log.Error().Err(err).Msg("Discarding undecodable parsing job")
		return nil
	}

	logger := log.With().Str("job_id", job.JobID).Str("stage", "parse").Logger()

	ok, err := beginStage(ctx, w.statusStore, job.JobID, models.StatusParsingInProgress, "Parsing document structure...")
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load job status")
		return err
	}
	if !ok {
		logger.Info().Msg("Skipping redelivered message for settled job")
		return nil
	}

	result, err := w.parse(ctx, job)
	if err != nil {
		logger.Warn().Err(err).Msg("Parsing failed")
		w.fail(ctx, job.JobID, fmt.Sprintf("Parsing error: %v", err))
		return nil
	}

	resultKey := models.ParseResultKey(job.JobID)
	data, err := json.Marshal(result)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to encode parse result")
		w.fail(ctx, job.JobID, fmt.Sprintf("Parsing error: %v", err))
		return nil
	}
	if err := w.store.Upload(ctx, resultKey, bytes.NewReader(data), "application/json"); err != nil {
		logger.Error().Err(err).Msg("Failed to store parse result")
		w.fail(ctx, job.JobID, fmt.Sprintf("Parsing error: %v", err))
		return nil
	}

	if err := w.statusStore.UpdateStatus(ctx, job.JobID, models.StatusAnalysisInProgress, "Document parsed, sent to analysis"); err != nil {
		logger.Error().Err(err).Msg("Failed to update job status")
	}

	next := models.AnalysisJob{
		JobID:          job.JobID,
		ParseResultKey: resultKey,
		DocumentType:   job.DocumentType,
	}
	if err := w.bus.Publish(ctx, models.TopicAnalysisJobs, next); err != nil {
		logger.Error().Err(err).Msg("Failed to publish analysis job")
		w.fail(ctx, job.JobID, "Failed to enqueue analysis job")
		return nil
	}

	logger.Info().
		Int("sections", len(result.TemplateJSON.SectionHierarchy.Sections)).
		Int("content_sections", len(result.ContentSections)).
		Msg("Document parsed")
	return nil
}

func (w *Parser) parse(ctx context.Context, job models.JobRequest) (*models.ParseResult, error) {
	handler, err := w.dispatcher.Resolve(job.DocumentType)
	if err != nil {
		return nil, err
	}
	return handler.Parse(ctx, job, w.store)
}

func (w *Parser) fail(ctx context.Context, jobID, message string) {
	if err := w.statusStore.UpdateError(ctx, jobID, message); err != nil {
		log.Error().Err(err).Str("job_id", jobID).Msg("Failed to record job failure")
	}
}
