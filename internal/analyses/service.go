package analyses

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"jurisprudence-backend/internal/decisions"
	"jurisprudence-backend/internal/llm"
	"jurisprudence-backend/internal/shared/metrics"
	"jurisprudence-backend/internal/shared/storage/object"
	"jurisprudence-backend/internal/shared/telemetry"
)

const (
	RotationScopeRun     = "run"
	RotationScopeProcess = "process"
)

// RunRequest is the input of one analysis run.
type RunRequest struct {
	CaseDescription string
	MaxCandidates   int
	ResultQuota     int
}

// Service runs the analysis pipeline and records run history.
type Service struct {
	Registry     decisions.Fetcher
	Orchestrator *Orchestrator
	// Gateway is the base gateway; with RotationScopeRun each run gets a copy
	// bound to a fresh Rotator.
	Gateway       *llm.Gateway
	PrimaryKeys   []string
	RotationScope string
	Repo          Repo
	// Reports is optional.
	Reports object.ObjectStore

	slot chan struct{}
}

// NewService wires a Service. Runs are serialized per process.
func NewService(s Service) *Service {
	s.slot = make(chan struct{}, 1)
	if s.Repo == nil {
		s.Repo = NewMemoryRepo()
	}
	if strings.TrimSpace(s.RotationScope) == "" {
		s.RotationScope = RotationScopeRun
	}
	return &s
}

// Run fetches candidates and drives the orchestrator. It fails only when the
// registry cannot be read or ctx ends. An empty registry yields a run with
// StatusNoData and a nil error; partial per-item failure still yields a
// completed run. A non-positive ResultQuota completes without per-item work.
func (s *Service) Run(ctx context.Context, req RunRequest) (AnalysisRun, error) {
	if err := validateRunRequest(req); err != nil {
		return AnalysisRun{}, err
	}
	if err := s.acquire(ctx); err != nil {
		return AnalysisRun{}, err
	}
	defer s.release()

	started := time.Now()
	run := AnalysisRun{
		ID:              uuid.NewString(),
		CaseDescription: strings.TrimSpace(req.CaseDescription),
		MaxCandidates:   req.MaxCandidates,
		ResultQuota:     req.ResultQuota,
		Status:          StatusProcessing,
		Results:         []ProcessedResult{},
		CreatedAt:       started.UTC(),
	}
	requestID := telemetry.RequestID(ctx)
	metrics.IncRunStarted()
	if err := s.Repo.Create(ctx, run); err != nil {
		telemetry.Warn("run.persist_failed", map[string]any{"request_id": requestID, "run_id": run.ID, "error": err})
	}
	telemetry.Info("run.status", map[string]any{
		"request_id":     requestID,
		"run_id":         run.ID,
		"status":         StatusProcessing,
		"max_candidates": req.MaxCandidates,
		"result_quota":   req.ResultQuota,
		"rotation_scope": s.RotationScope,
	})

	candidates, err := s.Registry.Fetch(ctx, req.MaxCandidates)
	if err != nil {
		run = s.finish(ctx, run, started, err)
		return run, err
	}
	if len(candidates) == 0 {
		return s.finish(ctx, run, started, nil), nil
	}
	run.Available = len(candidates)

	orch := *s.Orchestrator
	orch.Gateway = s.gatewayForRun()
	batch, err := orch.Run(ctx, candidates, run.CaseDescription, req.ResultQuota)
	run.Results = batch.Results
	run.Attempted = batch.Attempted
	run.Available = batch.Available

	run = s.finish(ctx, run, started, err)
	return run, err
}

// Get returns a run by ID.
func (s *Service) Get(ctx context.Context, runID string) (AnalysisRun, error) {
	if strings.TrimSpace(runID) == "" {
		return AnalysisRun{}, ErrNotFound
	}
	return s.Repo.GetByID(ctx, runID)
}

// List returns runs newest first.
func (s *Service) List(ctx context.Context, limit, offset int) ([]AnalysisRun, error) {
	return s.Repo.List(ctx, limit, offset)
}

func (s *Service) gatewayForRun() llm.Generator {
	if s.Gateway == nil {
		return s.Orchestrator.Gateway
	}
	if s.RotationScope == RotationScopeProcess {
		return s.Gateway
	}
	return s.Gateway.WithRotator(llm.NewRotator(s.PrimaryKeys))
}

// finish records the terminal state. Persistence and archive failures are
// logged and never change the outcome.
func (s *Service) finish(ctx context.Context, run AnalysisRun, started time.Time, runErr error) AnalysisRun {
	completed := time.Now().UTC()
	run.CompletedAt = &completed
	run.Status = StatusCompleted
	if runErr == nil && run.Available == 0 {
		run.Status = StatusNoData
	}
	if runErr != nil {
		run.ErrorCode = ErrorCode(runErr)
		run.Status = StatusFailed
		if run.ErrorCode == ErrorCodeAborted {
			run.Status = StatusAborted
		}
	}

	elapsed := time.Since(started)
	metrics.ObserveRunDurationMs(float64(elapsed.Milliseconds()))
	if runErr == nil {
		metrics.IncRunCompleted()
	} else {
		metrics.IncRunFailed()
	}

	// The request context may already be done; bookkeeping still has to land.
	bookkeeping, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	requestID := telemetry.RequestID(ctx)
	if err := s.Repo.Finish(bookkeeping, run); err != nil {
		telemetry.Warn("run.persist_failed", map[string]any{"request_id": requestID, "run_id": run.ID, "error": err})
	}
	fields := map[string]any{
		"request_id":  requestID,
		"run_id":      run.ID,
		"status":      run.Status,
		"attempted":   run.Attempted,
		"available":   run.Available,
		"relevant":    len(run.Results),
		"duration_ms": elapsed.Milliseconds(),
	}
	if run.ErrorCode != "" {
		fields["error_code"] = run.ErrorCode
		fields["error"] = runErr.Error()
	}
	if runErr == nil {
		telemetry.Info("run.status", fields)
	} else {
		telemetry.Warn("run.status", fields)
	}

	if s.Reports != nil && run.Status == StatusCompleted {
		if key, err := archiveRun(bookkeeping, s.Reports, run); err != nil {
			telemetry.Warn("run.archive_failed", map[string]any{"request_id": requestID, "run_id": run.ID, "error": err})
		} else {
			telemetry.Info("run.archived", map[string]any{"request_id": requestID, "run_id": run.ID, "key": key})
		}
	}
	return run
}

func (s *Service) acquire(ctx context.Context) error {
	select {
	case s.slot <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) release() {
	<-s.slot
}

// ErrorCode maps a run error to the code used in responses and run records.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidRequest):
		return ErrorCodeValidation
	case errors.Is(err, decisions.ErrRegistryTimeout):
		return ErrorCodeRegistryTimeout
	case errors.Is(err, decisions.ErrRegistryUnavailable):
		return ErrorCodeRegistryUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ErrorCodeAborted
	default:
		return ErrorCodeInternal
	}
}

// validateRunRequest only guards the prompt input. Count ranges are a
// transport concern; the pipeline handles any quota or candidate count.
func validateRunRequest(req RunRequest) error {
	if len([]rune(strings.TrimSpace(req.CaseDescription))) < MinCaseDescriptionLen {
		return fmt.Errorf("%w: casoConcreto must have at least %d characters", ErrInvalidRequest, MinCaseDescriptionLen)
	}
	return nil
}

const (
	MinCaseDescriptionLen = 50
	MaxCandidatesLimit    = 10000
	ResultQuotaLimit      = 100
	DefaultMaxCandidates  = 100
	DefaultResultQuota    = 10
)
