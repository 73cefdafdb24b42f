package analyses

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo stores runs in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu   sync.RWMutex
	byID map[string]AnalysisRun
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byID: make(map[string]AnalysisRun)}
}

// Create stores the run.
func (r *MemoryRepo) Create(ctx context.Context, run AnalysisRun) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[run.ID] = cloneRun(run)
	return nil
}

// Finish replaces the outcome fields of an existing run.
func (r *MemoryRepo) Finish(ctx context.Context, run AnalysisRun) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.byID[run.ID]
	if !ok {
		return ErrNotFound
	}
	existing.Status = run.Status
	existing.Attempted = run.Attempted
	existing.Available = run.Available
	existing.Results = run.Results
	existing.ErrorCode = run.ErrorCode
	existing.CompletedAt = run.CompletedAt
	r.byID[run.ID] = cloneRun(existing)
	return nil
}

// GetByID returns a run by its ID.
func (r *MemoryRepo) GetByID(ctx context.Context, runID string) (AnalysisRun, error) {
	if err := ctx.Err(); err != nil {
		return AnalysisRun{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	run, ok := r.byID[runID]
	if !ok {
		return AnalysisRun{}, ErrNotFound
	}
	return cloneRun(run), nil
}

// List returns runs newest first, with limit/offset.
func (r *MemoryRepo) List(ctx context.Context, limit, offset int) ([]AnalysisRun, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if offset < 0 {
		offset = 0
	}
	if limit < 0 {
		limit = 0
	}

	r.mu.RLock()
	runs := make([]AnalysisRun, 0, len(r.byID))
	for _, run := range r.byID {
		runs = append(runs, cloneRun(run))
	}
	r.mu.RUnlock()

	if offset >= len(runs) {
		return []AnalysisRun{}, nil
	}
	sort.Slice(runs, func(i, j int) bool {
		return runs[i].CreatedAt.After(runs[j].CreatedAt)
	})
	end := len(runs)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return runs[offset:end], nil
}

func cloneRun(run AnalysisRun) AnalysisRun {
	if run.Results != nil {
		results := make([]ProcessedResult, len(run.Results))
		copy(results, run.Results)
		run.Results = results
	}
	if run.CompletedAt != nil {
		at := *run.CompletedAt
		run.CompletedAt = &at
	}
	return run
}
