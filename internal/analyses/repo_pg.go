package analyses

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// Create inserts a new run.
func (r *PGRepo) Create(ctx context.Context, run AnalysisRun) error {
	const query = `
INSERT INTO analysis_runs (
	id, case_description, max_candidates, result_quota, status, attempted, available, created_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.DB.ExecContext(ctx, query,
		run.ID,
		run.CaseDescription,
		run.MaxCandidates,
		run.ResultQuota,
		run.Status,
		run.Attempted,
		run.Available,
		run.CreatedAt,
	)
	return err
}

// Finish records the outcome of a run.
func (r *PGRepo) Finish(ctx context.Context, run AnalysisRun) error {
	const query = `
UPDATE analysis_runs
SET status = $1, attempted = $2, available = $3, results = $4, error_code = $5, completed_at = $6
WHERE id = $7`
	payload, err := marshalJSONB(run.Results)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx, query,
		run.Status,
		run.Attempted,
		run.Available,
		payload,
		nullString(run.ErrorCode),
		run.CompletedAt,
		run.ID,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

const selectRunColumns = `
SELECT id, case_description, max_candidates, result_quota, status, attempted, available,
       results, error_code, created_at, completed_at
FROM analysis_runs`

type rowScanner interface {
	Scan(dest ...any) error
}

// GetByID returns a run by ID.
func (r *PGRepo) GetByID(ctx context.Context, runID string) (AnalysisRun, error) {
	row := r.DB.QueryRowContext(ctx, selectRunColumns+`
WHERE id = $1
LIMIT 1`, runID)
	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return AnalysisRun{}, ErrNotFound
		}
		return AnalysisRun{}, err
	}
	return run, nil
}

// List returns runs newest first.
func (r *PGRepo) List(ctx context.Context, limit, offset int) ([]AnalysisRun, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := r.DB.QueryContext(ctx, selectRunColumns+`
ORDER BY created_at DESC
LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := []AnalysisRun{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func scanRun(s rowScanner) (AnalysisRun, error) {
	var run AnalysisRun
	var results sql.NullString
	var errorCode sql.NullString
	var completedAt sql.NullTime
	if err := s.Scan(
		&run.ID,
		&run.CaseDescription,
		&run.MaxCandidates,
		&run.ResultQuota,
		&run.Status,
		&run.Attempted,
		&run.Available,
		&results,
		&errorCode,
		&run.CreatedAt,
		&completedAt,
	); err != nil {
		return AnalysisRun{}, err
	}
	if results.Valid && results.String != "" {
		if err := json.Unmarshal([]byte(results.String), &run.Results); err != nil {
			run.Results = nil
		}
		for i := range run.Results {
			run.Results[i].IsRelevant = Classify(run.Results[i].Verdict)
		}
	}
	if errorCode.Valid {
		run.ErrorCode = errorCode.String
	}
	if completedAt.Valid {
		at := completedAt.Time
		run.CompletedAt = &at
	}
	return run, nil
}

func marshalJSONB(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
