package analyses

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"jurisprudence-backend/internal/decisions"
	"jurisprudence-backend/internal/shared/storage/object/local"
)

func newTestRouter(svc *Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewHandler(svc)
	api := r.Group("/api/v1")
	api.POST("/analyze", h.Analyze)
	h.RegisterRoutes(api)
	return r
}

func postAnalyze(t *testing.T, r http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func errorCodeOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body: %v (%s)", err, w.Body.String())
	}
	return body.Error.Code
}

func TestAnalyzeValidation(t *testing.T) {
	svc, _ := newTestService(t, &fakeRegistry{}, &scriptedLLM{})
	r := newTestRouter(svc)

	cases := []struct {
		name string
		body string
	}{
		{name: "missing case", body: `{}`},
		{name: "short case", body: `{"casoConcreto":"curto demais"}`},
		{name: "max candidates zero", body: fmt.Sprintf(`{"casoConcreto":%q,"maxAcordaos":0}`, testCase)},
		{name: "quota too large", body: fmt.Sprintf(`{"casoConcreto":%q,"maxResultados":101}`, testCase)},
		{name: "wrong type", body: `{"casoConcreto":123}`},
		{name: "not json", body: `casoConcreto=x`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := postAnalyze(t, r, tc.body)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
			}
			if code := errorCodeOf(t, w); code != ErrorCodeValidation {
				t.Fatalf("expected validation_error, got %q", code)
			}
		})
	}
}

func TestAnalyzeRegistryErrorMapping(t *testing.T) {
	cases := []struct {
		name       string
		reg        *fakeRegistry
		wantStatus int
		wantCode   string
	}{
		{name: "empty", reg: &fakeRegistry{}, wantStatus: http.StatusNotFound, wantCode: ErrorCodeNoData},
		{name: "timeout", reg: &fakeRegistry{err: decisions.ErrRegistryTimeout}, wantStatus: http.StatusRequestTimeout, wantCode: ErrorCodeRegistryTimeout},
		{name: "unavailable", reg: &fakeRegistry{err: decisions.ErrRegistryUnavailable}, wantStatus: http.StatusServiceUnavailable, wantCode: ErrorCodeRegistryUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, _ := newTestService(t, tc.reg, &scriptedLLM{})
			w := postAnalyze(t, newTestRouter(svc), fmt.Sprintf(`{"casoConcreto":%q}`, testCase))
			if w.Code != tc.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tc.wantStatus, w.Code, w.Body.String())
			}
			if code := errorCodeOf(t, w); code != tc.wantCode {
				t.Fatalf("expected %q, got %q", tc.wantCode, code)
			}
		})
	}
}

func TestAnalyzeSuccessAndHistory(t *testing.T) {
	docs := newDocServer(t, map[string]string{"H1": "relevante H1", "H2": "outro H2"})
	reg := &fakeRegistry{list: docs.candidates("H1", "H2")}
	gen := &scriptedLLM{verdicts: map[string]string{"relevante H1": "RELEVANTE: [Critérios atendidos: 1, 2, 3] - ok"}}
	svc, _ := newTestService(t, reg, gen)
	svc.Reports = local.New(t.TempDir())
	r := newTestRouter(svc)

	w := postAnalyze(t, r, fmt.Sprintf(`{"casoConcreto":%q,"maxAcordaos":5,"maxResultados":3}`, testCase))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		RunID   string `json:"runId"`
		Results []struct {
			ID       string `json:"numeroAcordao"`
			Resumo   string `json:"resumo"`
			Analise  string `json:"analiseRelevancia"`
			Colegiad string `json:"colegiado"`
		} `json:"acordaosRelevantes"`
		TotalRelevantes  int       `json:"totalRelevantes"`
		TotalProcessados int       `json:"totalProcessados"`
		TotalDisponiveis int       `json:"totalDisponiveis"`
		CasoConcreto     string    `json:"casoConcreto"`
		ProcessedAt      time.Time `json:"processedAt"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.RunID == "" || resp.TotalRelevantes != 1 || resp.TotalProcessados != 2 || resp.TotalDisponiveis != 2 {
		t.Fatalf("unexpected response %+v", resp)
	}
	if resp.Results[0].ID != "H1" || resp.Results[0].Colegiad != "Plenário" || !strings.HasPrefix(resp.Results[0].Analise, "RELEVANTE:") {
		t.Fatalf("unexpected item %+v", resp.Results[0])
	}
	if resp.CasoConcreto != testCase || resp.ProcessedAt.IsZero() {
		t.Fatalf("unexpected echo fields %+v", resp)
	}

	get := httptest.NewRecorder()
	r.ServeHTTP(get, httptest.NewRequest(http.MethodGet, "/api/v1/analyses/"+resp.RunID, nil))
	if get.Code != http.StatusOK || !bytes.Contains(get.Body.Bytes(), []byte(`"status":"completed"`)) {
		t.Fatalf("unexpected get response %d: %s", get.Code, get.Body.String())
	}

	list := httptest.NewRecorder()
	r.ServeHTTP(list, httptest.NewRequest(http.MethodGet, "/api/v1/analyses?limit=5", nil))
	var runs []map[string]any
	if err := json.Unmarshal(list.Body.Bytes(), &runs); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(runs) != 1 || runs[0]["runId"] != resp.RunID {
		t.Fatalf("unexpected list %v", runs)
	}

	missing := httptest.NewRecorder()
	r.ServeHTTP(missing, httptest.NewRequest(http.MethodGet, "/api/v1/analyses/nope", nil))
	if missing.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", missing.Code)
	}

	report := httptest.NewRecorder()
	r.ServeHTTP(report, httptest.NewRequest(http.MethodGet, "/api/v1/analyses/"+resp.RunID+"/report", nil))
	if report.Code != http.StatusOK || !bytes.Contains(report.Body.Bytes(), []byte(resp.RunID)) {
		t.Fatalf("unexpected report response %d: %s", report.Code, report.Body.String())
	}
	if ct := report.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Fatalf("unexpected report content type %q", ct)
	}

	noReport := httptest.NewRecorder()
	r.ServeHTTP(noReport, httptest.NewRequest(http.MethodGet, "/api/v1/analyses/nope/report", nil))
	if noReport.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for missing report, got %d", noReport.Code)
	}
}

func TestAnalyzeAbortedMapsTo503(t *testing.T) {
	svc, _ := newTestService(t, &fakeRegistry{err: context.Canceled}, &scriptedLLM{})
	w := postAnalyze(t, newTestRouter(svc), fmt.Sprintf(`{"casoConcreto":%q}`, testCase))
	if w.Code != http.StatusServiceUnavailable || errorCodeOf(t, w) != ErrorCodeAborted {
		t.Fatalf("expected 503 aborted, got %d: %s", w.Code, w.Body.String())
	}
}
