package analyses

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"jurisprudence-backend/internal/artifacts"
	"jurisprudence-backend/internal/cache"
	"jurisprudence-backend/internal/decisions"
	"jurisprudence-backend/internal/llm"
	"jurisprudence-backend/internal/shared/metrics"
	"jurisprudence-backend/internal/shared/telemetry"
	"jurisprudence-backend/internal/shared/util"
)

const defaultPacing = time.Second

// Orchestrator runs the per-decision pipeline over a candidate list, one
// item at a time, until the result quota is met or candidates run out.
type Orchestrator struct {
	Artifacts *artifacts.Manager
	Gateway   llm.Generator
	// Summaries is optional; only summaries are cached, never verdicts.
	Summaries cache.SummaryCache
	// Pacing is the delay between items. Negative disables it.
	Pacing time.Duration
	Sleep  func(ctx context.Context, d time.Duration) error
	Now    func() time.Time
}

// Run processes candidates in order. Per-item failures are logged and
// counted, never returned. The only error is the context's, alongside
// whatever partial result was built before it ended.
func (o *Orchestrator) Run(ctx context.Context, candidates []decisions.Decision, caseDescription string, quota int) (BatchResult, error) {
	res := BatchResult{
		Results:   []ProcessedResult{},
		Available: len(candidates),
	}
	if quota <= 0 || len(candidates) == 0 {
		return res, nil
	}
	if o.Artifacts == nil || o.Gateway == nil {
		return res, errors.New("orchestrator: missing artifacts or gateway")
	}

	scope := o.Artifacts.NewScope()
	defer func() {
		if swept := scope.Release(); swept > 0 {
			telemetry.Warn("artifact.swept", map[string]any{
				"request_id": telemetry.RequestID(ctx),
				"files":      swept,
			})
		}
	}()

	for i, candidate := range candidates {
		if len(res.Results) >= quota {
			break
		}
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if i > 0 {
			if err := o.pause(ctx); err != nil {
				return res, err
			}
		}

		res.Attempted++
		metrics.IncItemAttempted()

		item, err := o.processOne(ctx, scope, candidate, caseDescription)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return res, ctxErr
			}
			kind := failureKind(err)
			metrics.IncItemFailure(kind)
			telemetry.Warn("run.item_failed", map[string]any{
				"request_id":  telemetry.RequestID(ctx),
				"decision_id": candidate.ID,
				"kind":        kind,
				"error":       err.Error(),
			})
			continue
		}
		if item.IsRelevant {
			metrics.IncItemRelevant()
			res.Results = append(res.Results, item)
		}
	}
	return res, nil
}

func (o *Orchestrator) processOne(ctx context.Context, scope *artifacts.Scope, d decisions.Decision, caseDescription string) (item ProcessedResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic processing decision %s: %v", d.ID, r)
		}
	}()

	if strings.TrimSpace(d.ArtifactURL) == "" {
		return ProcessedResult{}, ErrMissingArtifactURL
	}
	text, err := scope.FetchText(ctx, d.ArtifactURL, d.ID)
	if err != nil {
		return ProcessedResult{}, err
	}

	summary, err := o.summary(ctx, d, text)
	if err != nil {
		return ProcessedResult{}, fmt.Errorf("summary: %w", err)
	}
	verdict, err := o.Gateway.Generate(ctx, RelevancePrompt(caseDescription, text))
	if err != nil {
		return ProcessedResult{}, fmt.Errorf("relevance: %w", err)
	}
	verdict = strings.TrimSpace(verdict)
	if _, err := ParseVerdict(verdict); err != nil {
		return ProcessedResult{}, err
	}

	return newProcessedResult(d, summary, verdict, Classify(verdict), o.now()), nil
}

// summaryKey identifies a decision across years and collegiate bodies;
// numeroAcordao alone repeats.
func summaryKey(d decisions.Decision) string {
	return util.HashParts(d.ID, d.Year, d.Body, d.ArtifactURL)
}

func (o *Orchestrator) summary(ctx context.Context, d decisions.Decision, text string) (string, error) {
	key := summaryKey(d)
	if o.Summaries != nil {
		cached, ok, err := o.Summaries.Get(ctx, key)
		if err != nil {
			telemetry.Warn("summary_cache.get_failed", map[string]any{
				"decision_id": d.ID,
				"error":       err,
			})
		} else if ok {
			return cached, nil
		}
	}

	out, err := o.Gateway.Generate(ctx, SummaryPrompt(text))
	if err != nil {
		return "", err
	}
	out = strings.TrimSpace(out)
	if o.Summaries != nil {
		if err := o.Summaries.Set(ctx, key, out); err != nil {
			telemetry.Warn("summary_cache.set_failed", map[string]any{
				"decision_id": d.ID,
				"error":       err,
			})
		}
	}
	return out, nil
}

func (o *Orchestrator) pause(ctx context.Context) error {
	d := o.Pacing
	if d == 0 {
		d = defaultPacing
	}
	if d < 0 {
		return ctx.Err()
	}
	sleep := o.Sleep
	if sleep == nil {
		sleep = llm.SleepContext
	}
	return sleep(ctx, d)
}

func (o *Orchestrator) now() time.Time {
	if o.Now != nil {
		return o.Now().UTC()
	}
	return time.Now().UTC()
}

func failureKind(err error) string {
	switch {
	case errors.Is(err, ErrMissingArtifactURL):
		return KindMissingArtifactURL
	case errors.Is(err, artifacts.ErrDownloadTimeout):
		return KindDownloadTimeout
	case errors.Is(err, artifacts.ErrDownloadFailed):
		return KindDownloadFailed
	case errors.Is(err, artifacts.ErrNoExtractableText):
		return KindNoExtractableText
	case errors.Is(err, llm.ErrAllProvidersFailed):
		return KindAllProvidersFailed
	case errors.Is(err, ErrMalformedVerdict):
		return KindVerdictMalformed
	default:
		return KindInternal
	}
}
