package analyses

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"jurisprudence-backend/internal/shared/storage/object"
)

// ReportKey is where a finished run's report is archived.
func ReportKey(run AnalysisRun) string {
	at := run.CreatedAt.UTC()
	return fmt.Sprintf("reports/%04d/%02d/%s.json", at.Year(), int(at.Month()), run.ID)
}

func archiveRun(ctx context.Context, store object.ObjectStore, run AnalysisRun) (string, error) {
	payload, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal report: %w", err)
	}
	key := ReportKey(run)
	if _, err := store.SaveWithKey(ctx, key, "application/json", bytes.NewReader(payload)); err != nil {
		return "", err
	}
	return key, nil
}

// Report opens the archived report of a finished run. It returns
// ErrNotFound when archiving is off, the run is unknown, or the run was
// never archived.
func (s *Service) Report(ctx context.Context, runID string) (io.ReadCloser, error) {
	if s.Reports == nil {
		return nil, ErrNotFound
	}
	run, err := s.Get(ctx, runID)
	if err != nil {
		return nil, err
	}
	rc, err := s.Reports.Open(ctx, ReportKey(run))
	if errors.Is(err, object.ErrNotFound) {
		return nil, ErrNotFound
	}
	return rc, err
}
