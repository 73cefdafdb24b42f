package analyses

import "context"

// Repo persists analysis runs.
type Repo interface {
	Create(ctx context.Context, run AnalysisRun) error
	Finish(ctx context.Context, run AnalysisRun) error
	GetByID(ctx context.Context, runID string) (AnalysisRun, error)
	List(ctx context.Context, limit, offset int) ([]AnalysisRun, error)
}
