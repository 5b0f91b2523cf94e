package infra

import (
	"testing"
	"time"
)

func TestLoadConfigDefaultStorageBaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("PORT", "")
	t.Setenv("STORAGE_BASE_URL", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	expected := "http://localhost:8080/static"
	if cfg.StorageBaseURL != expected {
		t.Fatalf("StorageBaseURL mismatch: got %q want %q", cfg.StorageBaseURL, expected)
	}
}

func TestLoadConfigInheritsPortInStorageBaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("PORT", "1919")
	t.Setenv("STORAGE_BASE_URL", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	expected := "http://localhost:1919/static"
	if cfg.StorageBaseURL != expected {
		t.Fatalf("StorageBaseURL mismatch: got %q want %q", cfg.StorageBaseURL, expected)
	}
}

func TestLoadConfigHonorsExplicitStorageBaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("PORT", "1919")
	t.Setenv("STORAGE_BASE_URL", "https://cdn.example.com/static")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	expected := "https://cdn.example.com/static"
	if cfg.StorageBaseURL != expected {
		t.Fatalf("StorageBaseURL mismatch: got %q want %q", cfg.StorageBaseURL, expected)
	}
}

func TestLoadConfigRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("LoadConfig should fail without DATABASE_URL")
	}
}

func TestLoadConfigOrchestrationDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("BACKEND_CONCURRENCY", "")
	t.Setenv("RETRY_MAX_RETRIES", "")
	t.Setenv("QUALITY_THRESHOLD", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.BackendConcurrency != 4 {
		t.Fatalf("BackendConcurrency = %d, want 4", cfg.BackendConcurrency)
	}
	if cfg.VariantConcurrency != 3 {
		t.Fatalf("VariantConcurrency = %d, want 3", cfg.VariantConcurrency)
	}
	if cfg.RetryMaxRetries != 3 {
		t.Fatalf("RetryMaxRetries = %d, want 3", cfg.RetryMaxRetries)
	}
	if cfg.RetryBaseDelay != time.Second {
		t.Fatalf("RetryBaseDelay = %s, want 1s", cfg.RetryBaseDelay)
	}
	if cfg.QualityThreshold != 7.0 {
		t.Fatalf("QualityThreshold = %v, want 7.0", cfg.QualityThreshold)
	}
	if cfg.MaxAttempts != 2 {
		t.Fatalf("MaxAttempts = %d, want 2", cfg.MaxAttempts)
	}
	if cfg.AttemptTimeout != 2*time.Minute {
		t.Fatalf("AttemptTimeout = %s, want 2m", cfg.AttemptTimeout)
	}
}

func TestLoadConfigIgnoresMalformedNumbers(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("BACKEND_CONCURRENCY", "many")
	t.Setenv("QUALITY_THRESHOLD", "high")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.BackendConcurrency != 4 {
		t.Fatalf("BackendConcurrency = %d, want fallback 4", cfg.BackendConcurrency)
	}
	if cfg.QualityThreshold != 7.0 {
		t.Fatalf("QualityThreshold = %v, want fallback 7.0", cfg.QualityThreshold)
	}
}
