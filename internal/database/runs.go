package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/J-Naish/amazon-scraper/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const createRunsTable = `
	CREATE TABLE IF NOT EXISTS sponsored_scrape_runs (
		id            UUID PRIMARY KEY,
		search_terms  TEXT[] NOT NULL,
		search_url    TEXT NOT NULL,
		product_count INTEGER NOT NULL,
		products      JSONB NOT NULL,
		marker_found  BOOLEAN NOT NULL,
		error         TEXT,
		started_at    TIMESTAMPTZ NOT NULL,
		duration_ms   BIGINT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_sponsored_scrape_runs_started_at
		ON sponsored_scrape_runs (started_at DESC);
`

// Querier is satisfied by *DB and by test doubles.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
}

// RunRepository keeps a history of scrape runs.
type RunRepository struct {
	db Querier
}

func NewRunRepository(db Querier) *RunRepository {
	return &RunRepository{db: db}
}

// Migrate creates the runs table if it does not exist.
func (r *RunRepository) Migrate(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, createRunsTable); err != nil {
		return fmt.Errorf("failed to create runs table: %w", err)
	}
	return nil
}

// Record inserts run. Recording the same run twice is a no-op.
func (r *RunRepository) Record(ctx context.Context, run *models.ScrapeRun) error {
	products, err := json.Marshal(run.Products)
	if err != nil {
		return fmt.Errorf("failed to marshal products: %w", err)
	}

	var errText *string
	if run.Error != "" {
		errText = &run.Error
	}

	query := `
		INSERT INTO sponsored_scrape_runs
		(id, search_terms, search_url, product_count, products, marker_found, error, started_at, duration_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING
	`

	_, err = r.db.Exec(ctx, query,
		run.ID,
		run.SearchTerms,
		run.SearchURL,
		len(run.Products),
		products,
		run.MarkerFound,
		errText,
		run.StartedAt,
		run.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	return nil
}

// Recent returns the latest runs, newest first.
func (r *RunRepository) Recent(ctx context.Context, limit int) ([]*models.ScrapeRun, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id::text, search_terms, search_url, products, marker_found, error, started_at, duration_ms
		FROM sponsored_scrape_runs
		ORDER BY started_at DESC
		LIMIT $1
	`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	runs := make([]*models.ScrapeRun, 0, limit)
	for rows.Next() {
		var (
			run        models.ScrapeRun
			products   []byte
			errText    *string
			durationMS int64
		)

		if err := rows.Scan(
			&run.ID,
			&run.SearchTerms,
			&run.SearchURL,
			&products,
			&run.MarkerFound,
			&errText,
			&run.StartedAt,
			&durationMS,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}

		if err := json.Unmarshal(products, &run.Products); err != nil {
			return nil, fmt.Errorf("failed to decode products of run %s: %w", run.ID, err)
		}
		if errText != nil {
			run.Error = *errText
		}
		run.Duration = time.Duration(durationMS) * time.Millisecond

		runs = append(runs, &run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}

	return runs, nil
}
