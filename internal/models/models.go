package models

import (
	"fmt"
	"time"
)

// DocumentType identifies the parser a job is dispatched to.
type DocumentType string

const (
	DocumentTypeDocx      DocumentType = "Docx"
	DocumentTypePdf       DocumentType = "Pdf"
	DocumentTypeGoogleDoc DocumentType = "GoogleDoc"
)

// Queue topics. Each pipeline stage consumes exactly one of these.
const (
	TopicJobRequests  = "job-requests"
	TopicParsingJobs  = "parsing-jobs"
	TopicAnalysisJobs = "analysis-jobs"
)

// JobStatus is the per-job lifecycle state. The progression is linear;
// Failed is reachable from any non-terminal state.
type JobStatus string

const (
	StatusPending            JobStatus = "Pending"
	StatusProcessing         JobStatus = "Processing"
	StatusParsingInProgress  JobStatus = "ParsingInProgress"
	StatusAnalysisInProgress JobStatus = "AnalysisInProgress"
	StatusComplete           JobStatus = "Complete"
	StatusFailed             JobStatus = "Failed"
)

// Terminal reports whether no further transitions are allowed from s.
func (s JobStatus) Terminal() bool {
	return s == StatusComplete || s == StatusFailed
}

// rank orders the linear progression for the monotonicity check.
var rank = map[JobStatus]int{
	StatusPending:            0,
	StatusProcessing:         1,
	StatusParsingInProgress:  2,
	StatusAnalysisInProgress: 3,
	StatusComplete:           4,
	StatusFailed:             4,
}

// CanTransition reports whether from -> to is a legal status move.
// Failed is reachable from any non-terminal state; otherwise only the
// next state in the linear progression (or an idempotent re-write of
// the same state) is allowed. The store persists whatever it is asked;
// workers use this to compose only legal moves.
func CanTransition(from, to JobStatus) bool {
	if from.Terminal() {
		return false
	}
	if to == StatusFailed {
		return true
	}
	return rank[to] == rank[from] || rank[to] == rank[from]+1
}

// JobRequest identifies a submission. Exactly one of FilePath or
// DocumentURL is non-empty.
type JobRequest struct {
	JobID        string       `json:"jobId"`
	DocumentType DocumentType `json:"documentType"`
	FilePath     string       `json:"filePath,omitempty"`
	DocumentURL  string       `json:"documentUrl,omitempty"`
	FileName     string       `json:"fileName,omitempty"`
	CreatedAt    time.Time    `json:"createdAt"`
}

// AnalysisJob is the hand-off from the parser to the analyzer.
type AnalysisJob struct {
	JobID          string       `json:"jobId"`
	ParseResultKey string       `json:"parseResultKey"`
	DocumentType   DocumentType `json:"documentType"`
}

// JobStatusRecord is the single source of truth for job state.
type JobStatusRecord struct {
	JobID           string     `json:"jobId"`
	Status          JobStatus  `json:"status"`
	StatusMessage   string     `json:"statusMessage"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
	CompletedAt     *time.Time `json:"completedAt,omitempty"`
	ErrorMessage    *string    `json:"errorMessage,omitempty"`
	TemplateJSONKey *string    `json:"templateJsonKey,omitempty"`
	ContextJSONKey  *string    `json:"contextJsonKey,omitempty"`
}

// Object-store key layout. Artifacts are append-only per job; these
// helpers are the only place key shapes are spelled out.

func DocumentKey(jobID, fileName string) string {
	return fmt.Sprintf("documents/%s/%s", jobID, fileName)
}

func ParseResultKey(jobID string) string {
	return fmt.Sprintf("parsed/%s/parse-result.json", jobID)
}

func ImageKey(jobID, assetID, ext string) string {
	return fmt.Sprintf("images/%s/%s.%s", jobID, assetID, ext)
}

func TemplateResultKey(jobID string) string {
	return fmt.Sprintf("results/%s/template.json", jobID)
}

func ContextResultKey(jobID string) string {
	return fmt.Sprintf("results/%s/context.json", jobID)
}
