package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/dtce-ai/docpipe/internal/analysis"
	"github.com/dtce-ai/docpipe/internal/bus"
	"github.com/dtce-ai/docpipe/internal/models"
	"github.com/dtce-ai/docpipe/internal/status"
	"github.com/dtce-ai/docpipe/internal/storage"
)

// Analyzer runs the NLP and CV stage and writes the final artifacts.
type Analyzer struct {
	store       storage.ObjectStore
	statusStore status.Store
	linguistic  *analysis.LinguisticAnalyzer
}

// NewAnalyzer creates the analysis stage handler.
func NewAnalyzer(store storage.ObjectStore, statusStore status.Store) *Analyzer {
	return &Analyzer{
		store:       store,
		statusStore: statusStore,
		linguistic:  analysis.NewLinguisticAnalyzer(),
	}
}

// Handle processes one analysis-jobs message.
func (w *Analyzer) Handle(ctx context.Context, payload []byte) error {
	var job models.AnalysisJob
	if err := bus.Decode(payload, &job); err != nil {
		log.Error().Err(err).Msg("Discarding undecodable analysis job")
		return nil
	}

	logger := log.With().Str("job_id", job.JobID).Str("stage", "analyze").Logger()

	ok, err := beginStage(ctx, w.statusStore, job.JobID, models.StatusAnalysisInProgress, "Performing NLP and CV analysis")
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load job status")
		return err
	}
	if !ok {
		logger.Info().Msg("Skipping redelivered message for settled job")
		return nil
	}

	if err := w.analyze(ctx, job); err != nil {
		logger.Warn().Err(err).Msg("Analysis failed")
		w.fail(ctx, job.JobID, fmt.Sprintf("Analysis error: %v", err))
		return nil
	}

	logger.Info().Msg("Job complete")
	return nil
}

func (w *Analyzer) analyze(ctx context.Context, job models.AnalysisJob) error {
	data, err := storage.ReadAll(ctx, w.store, job.ParseResultKey)
	if err != nil {
		return fmt.Errorf("failed to load parse result: %w", err)
	}
	var result models.ParseResult
	if err := json.Unmarshal(data, &result); err != nil {
		return fmt.Errorf("failed to decode parse result: %w", err)
	}

	var samples []string
	blocks := make([]models.ContentBlock, 0, len(result.ContentSections))
	for _, cs := range result.ContentSections {
		samples = append(samples, cs.SampleText)
		blocks = append(blocks, models.ContentBlock{
			PlaceholderID:     cs.PlaceholderID,
			SectionSampleText: cs.SampleText,
			WordCount:         cs.WordCount,
		})
	}

	ling := w.linguistic.Analyze(strings.Join(samples, " "))
	contextJSON := models.ContextJSON{
		LinguisticStyle: models.LinguisticStyle{
			OverallFormality:         ling.Formality,
			FormalityConfidenceScore: ling.FormalityConfidence,
			DominantTone:             ling.Tone,
			ToneConfidenceScore:      ling.ToneConfidence,
			WritingStyleVector:       ling.StyleVector,
		},
		ContentBlocks: blocks,
	}

	templateJSON := result.TemplateJSON
	templateJSON.LogoMap = analysis.ClassifyLogos(ctx, w.store, templateJSON.LogoMap)

	templateKey := models.TemplateResultKey(job.JobID)
	contextKey := models.ContextResultKey(job.JobID)
	if err := w.uploadJSON(ctx, templateKey, templateJSON); err != nil {
		return err
	}
	if err := w.uploadJSON(ctx, contextKey, contextJSON); err != nil {
		return err
	}

	if err := w.statusStore.UpdateCompletion(ctx, job.JobID, templateKey, contextKey); err != nil {
		return fmt.Errorf("failed to record completion: %w", err)
	}
	return nil
}

func (w *Analyzer) uploadJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	if err := w.store.Upload(ctx, key, bytes.NewReader(data), "application/json"); err != nil {
		return fmt.Errorf("failed to store %s: %w", key, err)
	}
	return nil
}

func (w *Analyzer) fail(ctx context.Context, jobID, message string) {
	if err := w.statusStore.UpdateError(ctx, jobID, message); err != nil {
		log.Error().Err(err).Str("job_id", jobID).Msg("Failed to record job failure")
	}
}
