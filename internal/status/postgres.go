package status

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/dtce-ai/docpipe/internal/models"
)

// PostgresStore implements Store on a single job_status table, one row
// per job id.
type PostgresStore struct {
	db *sql.DB
}

// Connect establishes a connection to PostgreSQL and ensures the
// job_status table exists.
func Connect(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &PostgresStore{db: db}
	if err := store.ensureSchema(); err != nil {
		return nil, err
	}

	log.Info().Msg("Database connection established")
	return store, nil
}

func (s *PostgresStore) ensureSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS job_status (
			job_id            TEXT PRIMARY KEY,
			status            TEXT NOT NULL,
			status_message    TEXT NOT NULL DEFAULT '',
			file_name         TEXT NOT NULL DEFAULT '',
			created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			completed_at      TIMESTAMPTZ,
			error_message     TEXT,
			template_json_key TEXT,
			context_json_key  TEXT
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to ensure job_status schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *PostgresStore) Close() error {
	log.Info().Msg("Closing database connection")
	return s.db.Close()
}

// Health checks if the database is reachable.
func (s *PostgresStore) Health() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return s.db.PingContext(ctx)
}

// Create inserts a Pending row. Replaying the gateway is safe: an
// existing row keeps its status and only refreshes updated_at.
func (s *PostgresStore) Create(ctx context.Context, jobID, fileName string) error {
	query := `
		INSERT INTO job_status (job_id, status, status_message, file_name)
		VALUES ($1, $2, 'Job submitted', $3)
		ON CONFLICT (job_id) DO UPDATE SET updated_at = NOW()
	`
	if _, err := s.db.ExecContext(ctx, query, jobID, models.StatusPending, fileName); err != nil {
		return fmt.Errorf("failed to create job status: %w", err)
	}
	return nil
}

// UpdateStatus sets status and message and refreshes updated_at.
func (s *PostgresStore) UpdateStatus(ctx context.Context, jobID string, st models.JobStatus, message string) error {
	query := `
		UPDATE job_status
		SET status = $1, status_message = $2, updated_at = NOW()
		WHERE job_id = $3
	`
	res, err := s.db.ExecContext(ctx, query, st, message, jobID)
	if err != nil {
		return fmt.Errorf("failed to update job status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, jobID)
	}
	return nil
}

// UpdateCompletion marks the job Complete and records both result keys.
func (s *PostgresStore) UpdateCompletion(ctx context.Context, jobID, templateKey, contextKey string) error {
	query := `
		UPDATE job_status
		SET status = $1,
		    status_message = 'Analysis complete',
		    template_json_key = $2,
		    context_json_key = $3,
		    completed_at = NOW(),
		    updated_at = NOW()
		WHERE job_id = $4
	`
	res, err := s.db.ExecContext(ctx, query, models.StatusComplete, templateKey, contextKey, jobID)
	if err != nil {
		return fmt.Errorf("failed to update job completion: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, jobID)
	}
	return nil
}

// UpdateError marks the job Failed with a bounded error message.
func (s *PostgresStore) UpdateError(ctx context.Context, jobID, errorMessage string) error {
	query := `
		UPDATE job_status
		SET status = $1,
		    status_message = 'Job failed',
		    error_message = $2,
		    completed_at = NOW(),
		    updated_at = NOW()
		WHERE job_id = $3
	`
	res, err := s.db.ExecContext(ctx, query, models.StatusFailed, truncateError(errorMessage), jobID)
	if err != nil {
		return fmt.Errorf("failed to update job error: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, jobID)
	}
	return nil
}

// Get returns the record for jobID or ErrNotFound.
func (s *PostgresStore) Get(ctx context.Context, jobID string) (*models.JobStatusRecord, error) {
	query := `
		SELECT job_id, status, status_message, created_at, updated_at,
		       completed_at, error_message, template_json_key, context_json_key
		FROM job_status
		WHERE job_id = $1
	`
	var rec models.JobStatusRecord
	err := s.db.QueryRowContext(ctx, query, jobID).Scan(
		&rec.JobID,
		&rec.Status,
		&rec.StatusMessage,
		&rec.CreatedAt,
		&rec.UpdatedAt,
		&rec.CompletedAt,
		&rec.ErrorMessage,
		&rec.TemplateJSONKey,
		&rec.ContextJSONKey,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, jobID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job status: %w", err)
	}
	return &rec, nil
}
