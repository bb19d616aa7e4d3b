package db

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/postcraft/internal/types"
)

// Run represents a pipeline run record
type Run struct {
	ID              uuid.UUID  `json:"id"`
	CompanyName     string     `json:"company_name"`
	PostType        string     `json:"post_type"`
	FinalState      string     `json:"final_state"`
	PostsTotal      int        `json:"posts_total"`
	PostsReady      int        `json:"posts_ready"`
	ContextFallback bool       `json:"context_fallback"`
	TextFallback    bool       `json:"text_fallback"`
	VisualFailures  int        `json:"visual_failures"`
	StartedAt       time.Time  `json:"started_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
}

var (
	// ErrNilResult is returned when a nil result is saved.
	ErrNilResult = errors.New("result is nil")
	// ErrRunNotFound is returned when a run to delete does not exist.
	ErrRunNotFound = errors.New("run not found")
)

// RunFromResult derives the run summary row from a result.
func RunFromResult(result *types.PipelineResult) (*Run, error) {
	if result == nil {
		return nil, ErrNilResult
	}
	id, err := uuid.Parse(result.Metadata.RunID)
	if err != nil {
		return nil, fmt.Errorf("invalid run id %q: %w", result.Metadata.RunID, err)
	}

	run := &Run{
		ID:              id,
		FinalState:      string(result.Metadata.FinalState),
		PostsTotal:      len(result.Posts),
		PostsReady:      result.Succeeded(),
		ContextFallback: result.Metadata.ContextFallback,
		TextFallback:    result.Metadata.TextFallback,
		VisualFailures:  result.Metadata.VisualFailures,
		StartedAt:       result.Metadata.StartedAt,
	}
	if result.Context != nil {
		run.CompanyName = result.Context.CompanyName
	}
	if len(result.Posts) > 0 {
		run.PostType = string(result.Posts[0].PostType)
	}
	if !result.Metadata.CompletedAt.IsZero() {
		completed := result.Metadata.CompletedAt
		run.CompletedAt = &completed
	}
	return run, nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS pipeline_runs (
		id               UUID PRIMARY KEY,
		company_name     TEXT NOT NULL DEFAULT '',
		post_type        TEXT NOT NULL DEFAULT '',
		final_state      TEXT NOT NULL,
		posts_total      INTEGER NOT NULL DEFAULT 0,
		posts_ready      INTEGER NOT NULL DEFAULT 0,
		context_fallback BOOLEAN NOT NULL DEFAULT FALSE,
		text_fallback    BOOLEAN NOT NULL DEFAULT FALSE,
		visual_failures  INTEGER NOT NULL DEFAULT 0,
		started_at       TIMESTAMPTZ NOT NULL,
		completed_at     TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_pipeline_runs_started_at ON pipeline_runs (started_at DESC)`,
	`CREATE TABLE IF NOT EXISTS pipeline_results (
		run_id     UUID PRIMARY KEY REFERENCES pipeline_runs (id) ON DELETE CASCADE,
		content    JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}
