package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"jurisprudence-backend/internal/analyses"
	"jurisprudence-backend/internal/services/health"
	"jurisprudence-backend/internal/shared/config"
	"jurisprudence-backend/internal/shared/metrics"
	"jurisprudence-backend/internal/shared/server/middleware"
	"jurisprudence-backend/internal/shared/server/respond"
)

const (
	apiName    = "TCU Jurisprudence Analyzer"
	apiVersion = "1.0.0"

	analyzeRateGroup = "ANALYZE"
)

// RouterDeps holds the handlers mounted by NewRouter.
type RouterDeps struct {
	Config          config.Config
	AnalysisHandler *analyses.Handler
	Health          *health.Service
	// Limiter is optional; tests inject one with a fixed clock.
	Limiter *middleware.RateLimiter
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Config.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
	)

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	healthSvc := deps.Health
	if healthSvc == nil {
		healthSvc = health.NewService(nil)
	}
	api.GET("/health", func(c *gin.Context) {
		st := healthSvc.Status(c.Request.Context())
		status := http.StatusOK
		if !st.OK {
			status = http.StatusServiceUnavailable
		}
		respond.JSON(c, status, st)
	})
	api.GET("/info", func(c *gin.Context) {
		respond.OK(c, apiInfo())
	})

	if deps.AnalysisHandler != nil {
		limit := middleware.RateLimit(middleware.RateLimitConfig{
			DefaultGroup: analyzeRateGroup,
			Limiter:      deps.Limiter,
			Rules: map[string]middleware.RateLimitRule{
				analyzeRateGroup: middleware.WindowRule(deps.Config.RateLimitPerWindow, deps.Config.RateLimitWindow),
			},
			Message: "Muitas requisições. Tente novamente em alguns minutos.",
		})
		api.POST("/analyze", limit, deps.AnalysisHandler.Analyze)
		deps.AnalysisHandler.RegisterRoutes(api)
	}

	r.NoRoute(func(c *gin.Context) {
		respond.Error(c, http.StatusNotFound, "not_found", "Endpoint não encontrado", nil)
	})

	return r
}

type endpointInfo struct {
	Method      string `json:"method"`
	Path        string `json:"path"`
	Description string `json:"description"`
}

func apiInfo() gin.H {
	return gin.H{
		"name":    apiName,
		"version": apiVersion,
		"endpoints": []endpointInfo{
			{Method: http.MethodPost, Path: "/api/v1/analyze", Description: "Analisa acórdãos do TCU relevantes para um caso concreto"},
			{Method: http.MethodGet, Path: "/api/v1/analyses", Description: "Lista análises recentes"},
			{Method: http.MethodGet, Path: "/api/v1/analyses/:id", Description: "Retorna uma análise com seus resultados"},
			{Method: http.MethodGet, Path: "/api/v1/analyses/:id/report", Description: "Retorna o relatório arquivado de uma análise concluída"},
			{Method: http.MethodGet, Path: "/api/v1/health", Description: "Verifica o status da API"},
			{Method: http.MethodGet, Path: "/api/v1/info", Description: "Informações sobre a API"},
			{Method: http.MethodGet, Path: "/metrics", Description: "Métricas no formato Prometheus"},
		},
	}
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
