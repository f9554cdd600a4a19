package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/searchforge/catalog-ranker/internal/models"
)

// Run is one persisted batch execution against a site.
type Run struct {
	ID                string     `db:"id"`
	SiteKey           string     `db:"site_key"`
	SiteName          string     `db:"site_name"`
	SiteURL           string     `db:"site_url"`
	Model             string     `db:"model"`
	TotalQueries      int        `db:"total_queries"`
	SuccessfulQueries int        `db:"successful_queries"`
	FailedQueries     int        `db:"failed_queries"`
	StartedAt         time.Time  `db:"started_at"`
	FinishedAt        *time.Time `db:"finished_at"`
}

// QueryRecord is one persisted query result within a run.
type QueryRecord struct {
	ID             string          `db:"id"`
	RunID          string          `db:"run_id"`
	Query          string          `db:"query"`
	SearchType     string          `db:"search_type"`
	Outcome        string          `db:"outcome"`
	Status         string          `db:"status"`
	Entries        json.RawMessage `db:"entries"`
	Evaluations    json.RawMessage `db:"evaluations"`
	RankingSummary string          `db:"ranking_summary"`
	CreatedAt      time.Time       `db:"created_at"`
}

// RunRepository stores runs and their per-query results.
type RunRepository struct {
	db *DB
}

func NewRunRepository(db *DB) *RunRepository {
	return &RunRepository{db: db}
}

// CreateRun opens a new run and returns its generated id.
func (r *RunRepository) CreateRun(ctx context.Context, siteKey, siteName, siteURL, model string) (string, error) {
	id := uuid.New().String()

	query := `
		INSERT INTO runs (id, site_key, site_name, site_url, model, started_at)
		VALUES ($1, $2, $3, $4, $5, CURRENT_TIMESTAMP)`

	if _, err := r.db.Exec(ctx, query, id, siteKey, siteName, siteURL, model); err != nil {
		return "", fmt.Errorf("failed to create run: %w", err)
	}

	return id, nil
}

// FinishRun stamps the run's counters and finish time.
func (r *RunRepository) FinishRun(ctx context.Context, runID string, total, successful, failed int) error {
	query := `
		UPDATE runs SET
			total_queries = $2,
			successful_queries = $3,
			failed_queries = $4,
			finished_at = CURRENT_TIMESTAMP
		WHERE id = $1`

	if _, err := r.db.Exec(ctx, query, runID, total, successful, failed); err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}

	return nil
}

// SaveQueryResult persists one query's entries and evaluation under a run.
func (r *RunRepository) SaveQueryResult(ctx context.Context, runID string, result models.QueryResult) error {
	entriesJSON, err := json.Marshal(result.Entries)
	if err != nil {
		return fmt.Errorf("failed to marshal entries: %w", err)
	}

	status := ""
	searchType := ""
	rankingSummary := ""
	var evaluationsJSON []byte
	if result.Evaluated != nil {
		status = string(result.Evaluated.Status)
		searchType = result.Evaluated.Shape
		rankingSummary = result.Evaluated.RankingSummary
		evaluationsJSON, err = json.Marshal(result.Evaluated.Evaluations)
		if err != nil {
			return fmt.Errorf("failed to marshal evaluations: %w", err)
		}
	}

	query := `
		INSERT INTO query_evaluations
			(id, run_id, query, search_type, outcome, status, entries, evaluations, ranking_summary, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, CURRENT_TIMESTAMP)`

	_, err = r.db.Exec(ctx, query,
		uuid.New().String(), runID, result.Query, searchType,
		string(result.Outcome), status, entriesJSON, evaluationsJSON, rankingSummary,
	)
	if err != nil {
		return fmt.Errorf("failed to save query result: %w", err)
	}

	return nil
}

// ListQueryResults returns the persisted query records of a run, oldest
// first.
func (r *RunRepository) ListQueryResults(ctx context.Context, runID string) ([]*QueryRecord, error) {
	query := `
		SELECT id, run_id, query, search_type, outcome, status,
			   entries, evaluations, ranking_summary, created_at
		FROM query_evaluations
		WHERE run_id = $1
		ORDER BY created_at ASC`

	rows, err := r.db.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query results: %w", err)
	}
	defer rows.Close()

	var records []*QueryRecord
	for rows.Next() {
		rec := &QueryRecord{}
		err := rows.Scan(
			&rec.ID, &rec.RunID, &rec.Query, &rec.SearchType, &rec.Outcome,
			&rec.Status, &rec.Entries, &rec.Evaluations, &rec.RankingSummary,
			&rec.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan query record: %w", err)
		}
		records = append(records, rec)
	}

	return records, nil
}

// GetRun retrieves a single run by id, or nil when it does not exist.
func (r *RunRepository) GetRun(ctx context.Context, runID string) (*Run, error) {
	query := `
		SELECT id, site_key, site_name, site_url, model,
			   total_queries, successful_queries, failed_queries,
			   started_at, finished_at
		FROM runs
		WHERE id = $1`

	run := &Run{}
	err := r.db.QueryRow(ctx, query, runID).Scan(
		&run.ID, &run.SiteKey, &run.SiteName, &run.SiteURL, &run.Model,
		&run.TotalQueries, &run.SuccessfulQueries, &run.FailedQueries,
		&run.StartedAt, &run.FinishedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	return run, nil
}

// ListRecentRuns returns the latest runs for a site key, newest first.
func (r *RunRepository) ListRecentRuns(ctx context.Context, siteKey string, limit int) ([]*Run, error) {
	query := `
		SELECT id, site_key, site_name, site_url, model,
			   total_queries, successful_queries, failed_queries,
			   started_at, finished_at
		FROM runs
		WHERE site_key = $1
		ORDER BY started_at DESC
		LIMIT $2`

	rows, err := r.db.Query(ctx, query, siteKey, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run := &Run{}
		err := rows.Scan(
			&run.ID, &run.SiteKey, &run.SiteName, &run.SiteURL, &run.Model,
			&run.TotalQueries, &run.SuccessfulQueries, &run.FailedQueries,
			&run.StartedAt, &run.FinishedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}

	return runs, nil
}
