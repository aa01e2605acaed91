// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes application settings
// such as server timeouts, logging, database paths, the message-processing
// pipeline (dedup window, retry policy, processing deadline), the LINE
// channel credentials, and the external AI service endpoints.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "go-line-agent")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// LineConfig holds the LINE Messaging API credentials and endpoint.
type LineConfig struct {
	ChannelSecret string        // LINE_CHANNEL_SECRET (signature validation)
	AccessToken   string        // LINE_CHANNEL_ACCESS_TOKEN (reply/push)
	APIBaseURL    string        // LINE_API_BASE_URL
	Timeout       time.Duration // LINE_HTTP_TIMEOUT
}

// AIConfig holds endpoints and credentials for the external analysis and
// generation services. The services themselves are opaque; only their HTTP
// contracts are known here.
type AIConfig struct {
	SentimentURL string // SENTIMENT_URL

	EmbeddingURL   string // EMBEDDING_URL
	EmbeddingKey   string // EMBEDDING_API_KEY
	EmbeddingModel string // EMBEDDING_MODEL

	// GenerativeBackend selects the reply generator: "assistant" (messages
	// API shape) or "model" (chat-completions shape).
	GenerativeBackend string // GENERATIVE_BACKEND
	AssistantURL      string // ASSISTANT_URL
	AssistantKey      string // ASSISTANT_API_KEY
	AssistantModel    string // ASSISTANT_MODEL
	ModelURL          string // MODEL_URL
	ModelKey          string // MODEL_API_KEY
	ModelName         string // MODEL_NAME

	RecommenderURL string // RECOMMENDER_URL

	Timeout time.Duration // AI_HTTP_TIMEOUT
}

// PipelineConfig groups the tunables of the inbound-message pipeline.
type PipelineConfig struct {
	// DedupWindow is how long an identical event key is suppressed.
	DedupWindow time.Duration // DEDUP_WINDOW

	// Retry policy for outbound delivery.
	RetryMaxAttempts  int           // RETRY_MAX_ATTEMPTS
	RetryInitialDelay time.Duration // RETRY_INITIAL_DELAY
	RetryFactor       float64       // RETRY_BACKOFF_FACTOR

	// ProcessTimeout is the hard per-message deadline so one slow generative
	// call cannot starve the worker pool. Keep it on the order of the
	// platform's reply-token validity window.
	ProcessTimeout time.Duration // PROCESS_TIMEOUT

	// StatusQuery is the literal command that triggers the package report.
	StatusQuery string // STATUS_QUERY

	// SearchTriggers are the substrings that route a message to the
	// product-search strategy.
	SearchTriggers []string // SEARCH_TRIGGERS (comma-separated)
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging
	LogLevel  string // debug|info|warn|error|fatal|panic
	LogPretty bool   // pretty console logs in dev

	// App
	DBPath      string // SQLite path
	CatalogPath string // keyword catalog JSON path

	// Rate limiting
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Pipeline
	Pipeline PipelineConfig

	// Integrations
	Line LineConfig
	AI   AIConfig

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging
		LogLevel:  strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty: getbool("LOG_PRETTY", false),

		// App
		DBPath:      getenv("DB_PATH", "app.db"),
		CatalogPath: getenv("CATALOG_PATH", "data/keywords.json"),

		// Rate limiting
		RateRPS:   getfloat("RATE_RPS", 10.0),
		RateBurst: getint("RATE_BURST", 20),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Pipeline
		Pipeline: PipelineConfig{
			DedupWindow:       getdur("DEDUP_WINDOW", 30*time.Second),
			RetryMaxAttempts:  getint("RETRY_MAX_ATTEMPTS", 3),
			RetryInitialDelay: getdur("RETRY_INITIAL_DELAY", time.Second),
			RetryFactor:       getfloat("RETRY_BACKOFF_FACTOR", 2.0),
			ProcessTimeout:    getdur("PROCESS_TIMEOUT", 30*time.Second),
			StatusQuery:       getenv("STATUS_QUERY", "貨物狀況"),
			SearchTriggers:    splitCSV(getenv("SEARCH_TRIGGERS", "找,搜尋,查詢,推薦,有賣,有沒有")),
		},

		// Integrations
		Line: LineConfig{
			ChannelSecret: getenv("LINE_CHANNEL_SECRET", ""),
			AccessToken:   getenv("LINE_CHANNEL_ACCESS_TOKEN", ""),
			APIBaseURL:    getenv("LINE_API_BASE_URL", "https://api.line.me"),
			Timeout:       getdur("LINE_HTTP_TIMEOUT", 10*time.Second),
		},
		AI: AIConfig{
			SentimentURL:      getenv("SENTIMENT_URL", "http://localhost:8001/sentiment"),
			EmbeddingURL:      getenv("EMBEDDING_URL", "https://api.openai.com/v1/embeddings"),
			EmbeddingKey:      getenv("EMBEDDING_API_KEY", ""),
			EmbeddingModel:    getenv("EMBEDDING_MODEL", "text-embedding-3-small"),
			GenerativeBackend: strings.ToLower(getenv("GENERATIVE_BACKEND", "assistant")),
			AssistantURL:      getenv("ASSISTANT_URL", "https://api.anthropic.com/v1/messages"),
			AssistantKey:      getenv("ASSISTANT_API_KEY", ""),
			AssistantModel:    getenv("ASSISTANT_MODEL", "claude-3-5-haiku-20241022"),
			ModelURL:          getenv("MODEL_URL", "https://api.openai.com/v1/chat/completions"),
			ModelKey:          getenv("MODEL_API_KEY", ""),
			ModelName:         getenv("MODEL_NAME", "gpt-4o-mini"),
			RecommenderURL:    getenv("RECOMMENDER_URL", "http://localhost:8002/recommend"),
			Timeout:           getdur("AI_HTTP_TIMEOUT", 20*time.Second),
		},

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "go-line-agent"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		return cfg, errors.New("DB_PATH must not be empty")
	}
	if strings.TrimSpace(cfg.CatalogPath) == "" {
		return cfg, errors.New("CATALOG_PATH must not be empty")
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.Pipeline.DedupWindow <= 0 {
		return cfg, errors.New("DEDUP_WINDOW must be > 0")
	}
	if cfg.Pipeline.RetryMaxAttempts < 1 {
		return cfg, errors.New("RETRY_MAX_ATTEMPTS must be >= 1")
	}
	if cfg.Pipeline.RetryInitialDelay <= 0 {
		return cfg, errors.New("RETRY_INITIAL_DELAY must be > 0")
	}
	if cfg.Pipeline.RetryFactor < 1 {
		return cfg, errors.New("RETRY_BACKOFF_FACTOR must be >= 1")
	}
	if cfg.Pipeline.ProcessTimeout <= 0 {
		return cfg, errors.New("PROCESS_TIMEOUT must be > 0")
	}
	if strings.TrimSpace(cfg.Pipeline.StatusQuery) == "" {
		return cfg, errors.New("STATUS_QUERY must not be empty")
	}
	if len(cfg.Pipeline.SearchTriggers) == 0 {
		return cfg, errors.New("SEARCH_TRIGGERS must not be empty")
	}
	switch cfg.AI.GenerativeBackend {
	case "assistant", "model":
	default:
		return cfg, errors.New("GENERATIVE_BACKEND must be one of: assistant, model")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// ---- helpers (no external deps) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}
