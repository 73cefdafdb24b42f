package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration.
type Config struct {
	Port            string
	Env             string
	CORSAllowOrigin []string
	DatabaseURL     string

	GeminiKeys    []string
	GeminiModel   string
	GeminiBaseURL string
	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string
	LLMTimeout    time.Duration

	RotationScope      string
	MaxPrimaryAttempts int
	LLMBackoff         time.Duration

	RegistryBaseURL  string
	RegistryTimeout  time.Duration
	DownloadTimeout  time.Duration
	DownloadMaxBytes int64
	ArtifactDir      string
	PacingDelay      time.Duration

	RateLimitPerWindow int
	RateLimitWindow    time.Duration

	ReportStore    string
	ReportLocalDir string
	AWSRegion      string
	S3Bucket       string
	S3Prefix       string
	S3Endpoint     string
	SSEKMSKeyID    string

	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	SummaryCacheTTL time.Duration
}

const (
	RotationScopeRun     = "run"
	RotationScopeProcess = "process"
)

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	env := normalizeEnv(getEnv("ENV", "dev"))
	dbURL := os.Getenv("DATABASE_URL")

	if env == "production" && dbURL == "" {
		log.Printf("DATABASE_URL is required in production")
	}

	return Config{
		Port:            getEnv("PORT", "8080"),
		Env:             env,
		CORSAllowOrigin: splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173")),
		DatabaseURL:     dbURL,

		GeminiKeys:    splitAndTrim(getEnv("GEMINI_KEYS", "")),
		GeminiModel:   getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
		GeminiBaseURL: getEnv("GEMINI_BASE_URL", ""),
		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:   getEnv("OPENAI_MODEL", "gpt-3.5-turbo"),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", ""),
		LLMTimeout:    time.Duration(getEnvInt("LLM_TIMEOUT_SECONDS", 60)) * time.Second,

		RotationScope:      normalizeRotationScope(getEnv("CREDENTIAL_ROTATION_SCOPE", RotationScopeRun)),
		MaxPrimaryAttempts: getEnvInt("LLM_MAX_PRIMARY_ATTEMPTS", 0),
		LLMBackoff:         getEnvDuration("LLM_BACKOFF", 2*time.Second),

		RegistryBaseURL:  getEnv("REGISTRY_BASE_URL", "https://dados-abertos.apps.tcu.gov.br"),
		RegistryTimeout:  getEnvDuration("REGISTRY_TIMEOUT", 60*time.Second),
		DownloadTimeout:  getEnvDuration("DOWNLOAD_TIMEOUT", 30*time.Second),
		DownloadMaxBytes: int64(getEnvInt("DOWNLOAD_MAX_BYTES", 32<<20)),
		ArtifactDir:      getEnv("ARTIFACT_DIR", os.TempDir()),
		PacingDelay:      getEnvDuration("PACING_DELAY", time.Second),

		RateLimitPerWindow: getEnvInt("RATE_LIMIT_PER_WINDOW", 10),
		RateLimitWindow:    getEnvDuration("RATE_LIMIT_WINDOW", 15*time.Minute),

		ReportStore:    normalizeStoreType(getEnv("REPORT_STORE", "none")),
		ReportLocalDir: getEnv("REPORT_LOCAL_DIR", "./data"),
		AWSRegion:      getEnv("AWS_REGION", ""),
		S3Bucket:       getEnv("S3_BUCKET", ""),
		S3Prefix:       getEnv("S3_PREFIX", ""),
		S3Endpoint:     getEnv("S3_ENDPOINT", ""),
		SSEKMSKeyID:    getEnv("SSE_KMS_KEY_ID", ""),

		RedisAddr:       getEnv("REDIS_ADDR", ""),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		RedisDB:         getEnvInt("REDIS_DB", 0),
		SummaryCacheTTL: getEnvDuration("SUMMARY_CACHE_TTL", 7*24*time.Hour),
	}
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("config %s invalid int: %v", key, err)
		return def
	}
	return val
}

// getEnvDuration accepts Go durations ("1500ms") or bare seconds ("2").
func getEnvDuration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second
	}
	val, err := time.ParseDuration(raw)
	if err != nil {
		log.Printf("config %s invalid duration: %v", key, err)
		return def
	}
	return val
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	case "development", "dev":
		return "dev"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	case "local":
		return "local"
	default:
		return "none"
	}
}

func normalizeRotationScope(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case RotationScopeProcess, "global":
		return RotationScopeProcess
	default:
		return RotationScopeRun
	}
}
