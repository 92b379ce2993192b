package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return cfgPath
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("ACADEMY_BASE_URL", "http://academy.test")
	t.Setenv("REDIS_ADDR", "redis.test:6379")
	t.Setenv("LIBRARY_VIEW_DELAY_MS", "1500")
	t.Setenv("LIBRARY_VIEW_RATE_LIMIT", "10")

	cfgPath := writeConfig(t, `
port: "8087"
logLevel: "info"
academyBaseURL: "http://localhost:8000"
quizApiBaseURL: "http://localhost:8001"
redisAddr: "localhost:6379"
viewDelayMs: 2000
`)
	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.AcademyBaseURL != "http://academy.test" {
		t.Fatalf("academyBaseURL = %q", cfg.AcademyBaseURL)
	}
	if cfg.RedisAddr != "redis.test:6379" {
		t.Fatalf("redisAddr = %q", cfg.RedisAddr)
	}
	if cfg.ViewDelayMs != 1500 {
		t.Fatalf("viewDelayMs = %d", cfg.ViewDelayMs)
	}
	if cfg.ViewRateLimit != 10 {
		t.Fatalf("viewRateLimit = %d", cfg.ViewRateLimit)
	}
}

func TestLoadRejectsMissingRequiredFields(t *testing.T) {
	cfgPath := writeConfig(t, `
logLevel: "info"
academyBaseURL: "http://localhost:8000"
quizApiBaseURL: "http://localhost:8001"
`)
	if _, err := Load(cfgPath); err == nil {
		t.Fatal("expected error for missing port")
	}

	cfgPath = writeConfig(t, `
port: "8087"
quizApiBaseURL: "http://localhost:8001"
`)
	if _, err := Load(cfgPath); err == nil {
		t.Fatal("expected error for missing academyBaseURL")
	}
}

func TestParseTTLs(t *testing.T) {
	d, err := ParseSessionTTL("")
	if err != nil || d != 30*time.Minute {
		t.Fatalf("default session ttl: %v %v", d, err)
	}
	d, err = ParseSessionTTL("45m")
	if err != nil || d != 45*time.Minute {
		t.Fatalf("session ttl: %v %v", d, err)
	}
	if _, err := ParseSessionTTL("-5m"); err == nil {
		t.Fatal("expected error for negative ttl")
	}
	if _, err := ParseHandoffTTL("soon"); err == nil {
		t.Fatal("expected error for malformed ttl")
	}
	d, err = ParseHandoffTTL("")
	if err != nil || d != 24*time.Hour {
		t.Fatalf("default handoff ttl: %v %v", d, err)
	}
}
