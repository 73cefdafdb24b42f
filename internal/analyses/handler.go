package analyses

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"jurisprudence-backend/internal/shared/server/respond"
	"jurisprudence-backend/internal/shared/telemetry"
)

// Handler wires HTTP handlers to the analyses service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches the history routes. The analyze route is mounted
// separately so the router can put a rate limit in front of it.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/analyses", h.listAnalyses)
	rg.GET("/analyses/:id", h.getAnalysis)
	rg.GET("/analyses/:id/report", h.getReport)
}

type analyzeRequest struct {
	CaseDescription *string `json:"casoConcreto"`
	MaxCandidates   *int    `json:"maxAcordaos"`
	ResultQuota     *int    `json:"maxResultados"`
}

type analyzeResponse struct {
	RunID           string            `json:"runId"`
	Results         []ProcessedResult `json:"acordaosRelevantes"`
	TotalRelevant   int               `json:"totalRelevantes"`
	TotalProcessed  int               `json:"totalProcessados"`
	TotalAvailable  int               `json:"totalDisponiveis"`
	CaseDescription string            `json:"casoConcreto"`
	ProcessedAt     time.Time         `json:"processedAt"`
}

// Analyze runs one analysis synchronously.
func (h *Handler) Analyze(c *gin.Context) {
	var body analyzeRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, "corpo da requisição inválido", nil)
		return
	}
	req, details := body.toRunRequest()
	if len(details) > 0 {
		respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, details[0]["issue"], details)
		return
	}

	ctx := telemetry.WithRequestID(c.Request.Context(), c.GetString("requestId"))
	run, err := h.Svc.Run(ctx, req)
	if run.ID != "" {
		c.Set("runId", run.ID)
		c.Set("runStatus", run.Status)
	}
	if err != nil {
		writeRunError(c, err)
		return
	}
	if run.Status == StatusNoData {
		respond.Error(c, http.StatusNotFound, ErrorCodeNoData, "Nenhum acórdão encontrado na base de dados do TCU", nil)
		return
	}

	processedAt := run.CreatedAt
	if run.CompletedAt != nil {
		processedAt = *run.CompletedAt
	}
	respond.JSON(c, http.StatusOK, analyzeResponse{
		RunID:           run.ID,
		Results:         run.Results,
		TotalRelevant:   len(run.Results),
		TotalProcessed:  run.Attempted,
		TotalAvailable:  run.Available,
		CaseDescription: run.CaseDescription,
		ProcessedAt:     processedAt,
	})
}

func (b analyzeRequest) toRunRequest() (RunRequest, []map[string]string) {
	req := RunRequest{
		MaxCandidates: DefaultMaxCandidates,
		ResultQuota:   DefaultResultQuota,
	}
	var details []map[string]string

	if b.CaseDescription == nil || strings.TrimSpace(*b.CaseDescription) == "" {
		details = append(details, map[string]string{"field": "casoConcreto", "issue": `Campo "casoConcreto" é obrigatório`})
	} else {
		req.CaseDescription = strings.TrimSpace(*b.CaseDescription)
		if len([]rune(req.CaseDescription)) < MinCaseDescriptionLen {
			details = append(details, map[string]string{"field": "casoConcreto", "issue": `Campo "casoConcreto" deve ser uma string com pelo menos 50 caracteres`})
		}
	}
	if b.MaxCandidates != nil {
		req.MaxCandidates = *b.MaxCandidates
		if req.MaxCandidates < 1 || req.MaxCandidates > MaxCandidatesLimit {
			details = append(details, map[string]string{"field": "maxAcordaos", "issue": `Campo "maxAcordaos" deve ser um número inteiro entre 1 e 10000`})
		}
	}
	if b.ResultQuota != nil {
		req.ResultQuota = *b.ResultQuota
		if req.ResultQuota < 1 || req.ResultQuota > ResultQuotaLimit {
			details = append(details, map[string]string{"field": "maxResultados", "issue": `Campo "maxResultados" deve ser um número inteiro entre 1 e 100`})
		}
	}
	return req, details
}

func writeRunError(c *gin.Context, err error) {
	switch code := ErrorCode(err); code {
	case ErrorCodeValidation:
		respond.Error(c, http.StatusBadRequest, code, err.Error(), nil)
	case ErrorCodeRegistryTimeout:
		respond.Error(c, http.StatusRequestTimeout, code, "Timeout na operação. Tente novamente com menos acórdãos.", nil)
	case ErrorCodeRegistryUnavailable:
		respond.Error(c, http.StatusServiceUnavailable, code, "Serviço temporariamente indisponível. Tente novamente mais tarde.", nil)
	case ErrorCodeAborted:
		respond.Error(c, http.StatusServiceUnavailable, code, "Análise interrompida antes da conclusão.", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, ErrorCodeInternal, "Erro interno do servidor", nil)
	}
}

func (h *Handler) getAnalysis(c *gin.Context) {
	runID := c.Param("id")
	if runID == "" {
		respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, "run id is required", nil)
		return
	}

	run, err := h.Svc.Get(c.Request.Context(), runID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "analysis not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, ErrorCodeInternal, "failed to fetch analysis", nil)
		}
		return
	}
	respond.JSON(c, http.StatusOK, run)
}

func (h *Handler) getReport(c *gin.Context) {
	rc, err := h.Svc.Report(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "report not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, ErrorCodeInternal, "failed to open report", nil)
		return
	}
	defer rc.Close()
	c.DataFromReader(http.StatusOK, -1, "application/json", rc, nil)
}

func (h *Handler) listAnalyses(c *gin.Context) {
	limit := 20
	offset := 0

	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			offset = parsed
		}
	}
	if offset < 0 {
		offset = 0
	}

	runs, err := h.Svc.List(c.Request.Context(), limit, offset)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, ErrorCodeInternal, "failed to list analyses", nil)
		return
	}

	resp := make([]gin.H, 0, len(runs))
	for _, r := range runs {
		resp = append(resp, gin.H{
			"runId":            r.ID,
			"status":           r.Status,
			"totalRelevantes":  len(r.Results),
			"totalProcessados": r.Attempted,
			"totalDisponiveis": r.Available,
			"errorCode":        r.ErrorCode,
			"createdAt":        r.CreatedAt,
			"completedAt":      r.CompletedAt,
		})
	}
	respond.JSON(c, http.StatusOK, resp)
}
