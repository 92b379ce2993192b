package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigPath is the default config location for the library service.
const ConfigPath = "config.yaml"

// FileConfig represents configuration loaded from YAML.
type FileConfig struct {
	Port                  string   `yaml:"port"`
	LogLevel              string   `yaml:"logLevel"`
	AcademyBaseURL        string   `yaml:"academyBaseURL"`
	QuizAPIBaseURL        string   `yaml:"quizApiBaseURL"`
	RedisAddr             string   `yaml:"redisAddr"`
	RedisPassword         string   `yaml:"redisPassword"`
	SessionTTL            string   `yaml:"sessionTTL"`
	HandoffTTL            string   `yaml:"handoffTTL"`
	ViewDelayMs           int      `yaml:"viewDelayMs"`
	ViewRateLimit         int      `yaml:"viewRateLimit"`
	ViewRateWindowSeconds int      `yaml:"viewRateWindowSeconds"`
	TrustedProxies        []string `yaml:"trustedProxies"`
}

// Load reads config from path (defaults to config.yaml).
func Load(path string) (FileConfig, error) {
	cfg := FileConfig{}
	if path == "" {
		path = ConfigPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	// Override with environment variables
	if v := os.Getenv("ACADEMY_BASE_URL"); v != "" {
		cfg.AcademyBaseURL = v
	}
	if v := os.Getenv("QUIZ_API_BASE_URL"); v != "" {
		cfg.QuizAPIBaseURL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.RedisPassword = v
	}
	if v := os.Getenv("LIBRARY_SESSION_TTL"); v != "" {
		cfg.SessionTTL = v
	}
	if v := os.Getenv("LIBRARY_HANDOFF_TTL"); v != "" {
		cfg.HandoffTTL = v
	}
	if v := os.Getenv("LIBRARY_VIEW_DELAY_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.ViewDelayMs = n
		}
	}
	if v := os.Getenv("LIBRARY_VIEW_RATE_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.ViewRateLimit = n
		}
	}
	if v := os.Getenv("LIBRARY_VIEW_RATE_WINDOW_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.ViewRateWindowSeconds = n
		}
	}
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func validateConfig(cfg FileConfig) error {
	if cfg.Port == "" {
		return errors.New("config: port is required (set in config.yaml)")
	}
	if cfg.AcademyBaseURL == "" {
		return errors.New("config: academyBaseURL is required (set in config.yaml or ACADEMY_BASE_URL)")
	}
	if cfg.QuizAPIBaseURL == "" {
		return errors.New("config: quizApiBaseURL is required (set in config.yaml or QUIZ_API_BASE_URL)")
	}
	if cfg.ViewDelayMs < 0 {
		return errors.New("config: viewDelayMs must be >= 0")
	}
	if cfg.ViewRateLimit < 0 {
		return errors.New("config: viewRateLimit must be >= 0")
	}
	if cfg.ViewRateWindowSeconds < 0 {
		return errors.New("config: viewRateWindowSeconds must be >= 0")
	}
	return nil
}

// ParseSessionTTL resolves the idle-session eviction TTL.
func ParseSessionTTL(raw string) (time.Duration, error) {
	return parseTTL(raw, 30*time.Minute)
}

// ParseHandoffTTL resolves how long hand-off slots live in Redis.
func ParseHandoffTTL(raw string) (time.Duration, error) {
	return parseTTL(raw, 24*time.Hour)
}

func parseTTL(raw string, def time.Duration) (time.Duration, error) {
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("parse ttl %q: %w", raw, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("ttl must be positive, got %q", raw)
	}
	return d, nil
}
