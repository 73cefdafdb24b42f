package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"jurisprudence-backend/internal/analyses"
	"jurisprudence-backend/internal/artifacts"
	"jurisprudence-backend/internal/cache"
	"jurisprudence-backend/internal/decisions"
	"jurisprudence-backend/internal/llm"
	"jurisprudence-backend/internal/llm/gemini"
	openai "jurisprudence-backend/internal/llm/openai"
	"jurisprudence-backend/internal/services/health"
	"jurisprudence-backend/internal/shared/config"
	"jurisprudence-backend/internal/shared/server"
	"jurisprudence-backend/internal/shared/storage/db"
	"jurisprudence-backend/internal/shared/storage/object"
	localstore "jurisprudence-backend/internal/shared/storage/object/local"
	s3store "jurisprudence-backend/internal/shared/storage/object/s3"
)

// App holds shared dependencies.
type App struct {
	Config          config.Config
	Router          *gin.Engine
	DB              *sql.DB
	Reports         object.ObjectStore
	Summaries       cache.SummaryCache
	Artifacts       *artifacts.Manager
	Gateway         *llm.Gateway
	AnalysesRepo    analyses.Repo
	AnalysesService *analyses.Service
	AnalysisHandler *analyses.Handler
}

// Build prepares dependencies and the router.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	reports, err := buildReportStore(ctx, cfg)
	if err != nil {
		closeDB(sqlDB)
		return nil, err
	}

	manager, err := artifacts.NewManager(artifacts.Config{
		Dir:      cfg.ArtifactDir,
		Timeout:  cfg.DownloadTimeout,
		MaxBytes: cfg.DownloadMaxBytes,
	})
	if err != nil {
		closeDB(sqlDB)
		return nil, fmt.Errorf("artifact manager: %w", err)
	}

	gateway, err := buildGateway(cfg)
	if err != nil {
		closeDB(sqlDB)
		return nil, err
	}

	app := &App{
		Config:    cfg,
		DB:        sqlDB,
		Reports:   reports,
		Summaries: buildSummaryCache(cfg),
		Artifacts: manager,
		Gateway:   gateway,
	}
	if err := buildServices(app); err != nil {
		_ = app.Close()
		return nil, err
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config:          app.Config,
		AnalysisHandler: app.AnalysisHandler,
		Health:          health.NewService(app.DB),
	})
	return app, nil
}

// Close releases the database pool and cache connection.
func (a *App) Close() error {
	if a == nil {
		return nil
	}
	var errs []error
	if a.Summaries != nil {
		errs = append(errs, a.Summaries.Close())
	}
	if a.DB != nil {
		errs = append(errs, a.DB.Close())
	}
	return errors.Join(errs...)
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory run history")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultServerOptions()))
	if err == nil {
		err = db.RunMigrations(ctx, sqlDB)
		if err != nil {
			sqlDB.Close()
		}
	}
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: database unavailable; using in-memory run history: %v", err)
			return nil, nil
		}
		return nil, err
	}
	return sqlDB, nil
}

func buildReportStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ReportStore {
	case "s3":
		return s3store.New(ctx, s3store.Config{
			Region:   cfg.AWSRegion,
			Bucket:   cfg.S3Bucket,
			Prefix:   cfg.S3Prefix,
			KMSKeyID: cfg.SSEKMSKeyID,
			Endpoint: cfg.S3Endpoint,
		})
	case "local":
		return localstore.New(cfg.ReportLocalDir), nil
	default:
		return nil, nil
	}
}

func buildSummaryCache(cfg config.Config) cache.SummaryCache {
	if strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	c, err := cache.NewRedisSummaryCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.SummaryCacheTTL, "")
	if err != nil {
		log.Printf("bootstrap: summary cache disabled: %v", err)
		return nil
	}
	return c
}

func buildGateway(cfg config.Config) (*llm.Gateway, error) {
	primary := gemini.NewClient(gemini.Config{
		BaseURL: cfg.GeminiBaseURL,
		Model:   cfg.GeminiModel,
		Timeout: cfg.LLMTimeout,
	})

	var secondary llm.Generator
	if strings.TrimSpace(cfg.OpenAIAPIKey) != "" {
		client, err := openai.NewClient(openai.Config{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.OpenAIModel,
			Timeout: cfg.LLMTimeout,
		})
		if err != nil {
			return nil, err
		}
		secondary = client
	}

	if len(cfg.GeminiKeys) == 0 && secondary == nil {
		if !isDevLike(cfg.Env) {
			return nil, fmt.Errorf("no generation provider configured: set GEMINI_KEYS or OPENAI_API_KEY")
		}
		log.Printf("bootstrap: no generation provider configured; every item will fail")
	}
	log.Printf("bootstrap: primary credentials=%d secondary=%t rotation_scope=%s", len(cfg.GeminiKeys), secondary != nil, cfg.RotationScope)

	return llm.NewGateway(llm.GatewayConfig{
		Primary:     primary,
		Secondary:   secondary,
		Rotator:     llm.NewRotator(cfg.GeminiKeys),
		MaxAttempts: cfg.MaxPrimaryAttempts,
		Backoff:     configuredDelay(cfg.LLMBackoff),
	}), nil
}

// configuredDelay maps an explicit zero from the environment to "disabled";
// the llm and analyses packages read zero as "use the default".
func configuredDelay(d time.Duration) time.Duration {
	if d == 0 {
		return -1
	}
	return d
}

func buildServices(app *App) error {
	var repo analyses.Repo
	if app.DB != nil {
		repo = &analyses.PGRepo{DB: app.DB}
	} else {
		repo = analyses.NewMemoryRepo()
	}

	orch := &analyses.Orchestrator{
		Artifacts: app.Artifacts,
		Gateway:   app.Gateway,
		Summaries: app.Summaries,
		Pacing:    configuredDelay(app.Config.PacingDelay),
	}

	svc := analyses.NewService(analyses.Service{
		Registry:      decisions.NewRegistry(app.Config.RegistryBaseURL, app.Config.RegistryTimeout),
		Orchestrator:  orch,
		Gateway:       app.Gateway,
		PrimaryKeys:   app.Config.GeminiKeys,
		RotationScope: app.Config.RotationScope,
		Repo:          repo,
		Reports:       app.Reports,
	})

	app.AnalysesRepo = repo
	app.AnalysesService = svc
	app.AnalysisHandler = analyses.NewHandler(svc)
	if app.AnalysisHandler == nil {
		return errors.New("failed to initialize handlers")
	}
	return nil
}

func closeDB(sqlDB *sql.DB) {
	if sqlDB != nil {
		sqlDB.Close()
	}
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
