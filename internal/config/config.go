// Package config loads service configuration from the environment.
package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

func init() {
	// Auto-load .env file if present (don't override existing env vars)
	loadDotEnv(".env")
}

func loadDotEnv(path string) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, val, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		val = strings.TrimSpace(val)
		if len(val) >= 2 && ((val[0] == '"' && val[len(val)-1] == '"') || (val[0] == '\'' && val[len(val)-1] == '\'')) {
			val = val[1 : len(val)-1]
		}
		if os.Getenv(key) == "" {
			os.Setenv(key, val)
		}
	}
}

const (
	defaultPort          = "4400"
	defaultEnvironment   = "development"
	defaultUploadsDir    = "uploads"
	defaultMaxUploadSize = int64(20 << 20) // 20 MB
	defaultClientTimeout = 30 * time.Second
)

// UploadsConfig controls attachment storage.
type UploadsConfig struct {
	Dir          string
	MaxSizeBytes int64
}

// Config holds all service settings.
type Config struct {
	Port        string
	DatabaseURL string
	Environment string
	Uploads     UploadsConfig
	// WSAllowedOrigins is a comma-separated origin allow list for websocket
	// upgrades, in addition to same-host and loopback.
	WSAllowedOrigins string
	// ClientTimeout bounds outbound persistence calls made by board clients.
	ClientTimeout time.Duration
}

// Load reads configuration from the environment, applying defaults.
func Load() (Config, error) {
	cfg := Config{
		Port:        firstNonEmpty(strings.TrimSpace(os.Getenv("PORT")), defaultPort),
		DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),
		Environment: resolveEnvironment(),
		Uploads: UploadsConfig{
			Dir: firstNonEmpty(strings.TrimSpace(os.Getenv("UPLOADS_DIR")), defaultUploadsDir),
		},
		WSAllowedOrigins: strings.TrimSpace(os.Getenv("WS_ALLOWED_ORIGINS")),
	}

	maxUpload, err := parseInt64("MAX_UPLOAD_SIZE_BYTES", defaultMaxUploadSize)
	if err != nil {
		return Config{}, err
	}
	cfg.Uploads.MaxSizeBytes = maxUpload

	clientTimeout, err := parseDuration("CLIENT_TIMEOUT", defaultClientTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.ClientTimeout = clientTimeout

	return cfg, nil
}

// IsProduction reports whether the service runs in production mode.
func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

func resolveEnvironment() string {
	env := strings.ToLower(strings.TrimSpace(os.Getenv("ENVIRONMENT")))
	switch env {
	case "production", "staging", "development":
		return env
	case "":
		return defaultEnvironment
	default:
		return defaultEnvironment
	}
}

func parseInt64(key string, fallback int64) (int64, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if value <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", key)
	}
	return value, nil
}

func parseDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if value <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", key)
	}
	return value, nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
