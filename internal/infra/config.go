package infra

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv      string
	Port        string
	DatabaseURL string

	StorageDir     string
	StorageBaseURL string
	GeoIPDBPath    string

	GeminiAPIKey     string
	GeminiModel      string
	GeminiBaseURL    string
	ComposeModel     string
	DashScopeAPIKey  string
	QwenModel        string
	DashScopeBaseURL string

	BackendConcurrency int
	VariantConcurrency int
	AttemptTimeout     time.Duration
	BatchTimeout       time.Duration
	RetryMaxRetries    int
	RetryBaseDelay     time.Duration
	RetryMaxDelay      time.Duration

	QualityThreshold float64
	MaxAttempts      int

	WorkerPollInterval time.Duration

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int
	CORSOrigins      []string
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:      getEnv("APP_ENV", "development"),
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		StorageDir:  getEnv("STORAGE_DIR", "./storage"),
		GeoIPDBPath: os.Getenv("GEOIP_DB_PATH"),

		GeminiAPIKey:     os.Getenv("GEMINI_API_KEY"),
		GeminiModel:      getEnv("GEMINI_MODEL", "gemini-2.5-flash-image-preview"),
		GeminiBaseURL:    getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
		ComposeModel:     getEnv("COMPOSE_MODEL", "gemini-2.5-flash"),
		DashScopeAPIKey:  os.Getenv("DASHSCOPE_API_KEY"),
		QwenModel:        getEnv("QWEN_MODEL", "qwen-image-plus"),
		DashScopeBaseURL: getEnv("DASHSCOPE_BASE_URL", "https://dashscope-intl.aliyuncs.com/api/v1"),

		BackendConcurrency: getEnvInt("BACKEND_CONCURRENCY", 4),
		VariantConcurrency: getEnvInt("VARIANT_CONCURRENCY", 3),
		AttemptTimeout:     time.Second * time.Duration(getEnvInt("ATTEMPT_TIMEOUT_SECONDS", 120)),
		BatchTimeout:       time.Second * time.Duration(getEnvInt("BATCH_TIMEOUT_SECONDS", 600)),
		RetryMaxRetries:    getEnvInt("RETRY_MAX_RETRIES", 3),
		RetryBaseDelay:     time.Millisecond * time.Duration(getEnvInt("RETRY_BASE_DELAY_MS", 1000)),
		RetryMaxDelay:      time.Second * time.Duration(getEnvInt("RETRY_MAX_DELAY_SECONDS", 30)),

		QualityThreshold: getEnvFloat("QUALITY_THRESHOLD", 7.0),
		MaxAttempts:      getEnvInt("MAX_ATTEMPTS", 2),

		WorkerPollInterval: time.Second * time.Duration(getEnvInt("WORKER_POLL_SECONDS", 2)),

		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
	}

	cfg.StorageBaseURL = getEnv("STORAGE_BASE_URL", fmt.Sprintf("http://localhost:%s/static", cfg.Port))
	cfg.CORSOrigins = splitCSV(getEnv("CORS_ALLOWED_ORIGINS", ""))

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if _, err := url.Parse(cfg.StorageBaseURL); err != nil {
		return nil, fmt.Errorf("STORAGE_BASE_URL is invalid: %w", err)
	}

	return cfg, nil
}

func splitCSV(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
