package analyses

import (
	"time"

	"jurisprudence-backend/internal/decisions"
)

const (
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
	StatusAborted    = "aborted"
	// StatusNoData marks a run whose registry answered with no decisions.
	StatusNoData = "no_data"
)

// ProcessedResult is one analysed decision. It is never mutated once built.
type ProcessedResult struct {
	DecisionID  string    `json:"numeroAcordao"`
	Title       string    `json:"titulo"`
	Year        string    `json:"anoAcordao"`
	Rapporteur  string    `json:"relator"`
	Type        string    `json:"tipo"`
	SessionDate string    `json:"dataSessao"`
	Body        string    `json:"colegiado"`
	Summary     string    `json:"resumo"`
	Verdict     string    `json:"analiseRelevancia"`
	IsRelevant  bool      `json:"-"`
	ProcessedAt time.Time `json:"processedAt"`
}

func newProcessedResult(d decisions.Decision, summary, verdict string, relevant bool, at time.Time) ProcessedResult {
	return ProcessedResult{
		DecisionID:  d.ID,
		Title:       d.Title,
		Year:        d.Year,
		Rapporteur:  d.Rapporteur,
		Type:        d.Type,
		SessionDate: d.SessionDate,
		Body:        d.Body,
		Summary:     summary,
		Verdict:     verdict,
		IsRelevant:  relevant,
		ProcessedAt: at,
	}
}

// BatchResult is what one orchestrator pass produced.
type BatchResult struct {
	Results   []ProcessedResult
	Attempted int
	Available int
}

// AnalysisRun is the persisted record of one pipeline run.
type AnalysisRun struct {
	ID              string            `json:"runId"`
	CaseDescription string            `json:"casoConcreto"`
	MaxCandidates   int               `json:"maxAcordaos"`
	ResultQuota     int               `json:"maxResultados"`
	Status          string            `json:"status"`
	Attempted       int               `json:"totalProcessados"`
	Available       int               `json:"totalDisponiveis"`
	Results         []ProcessedResult `json:"acordaosRelevantes"`
	ErrorCode       string            `json:"errorCode,omitempty"`
	CreatedAt       time.Time         `json:"createdAt"`
	CompletedAt     *time.Time        `json:"completedAt,omitempty"`
}
