package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "validationhub.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// The YAML file is optional; a missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "VALIDATIONHUB_PORT")
	setString(&cfg.Server.CORSOrigin, "VALIDATIONHUB_CORS_ORIGIN")
	setString(&cfg.Store.Backend, "VALIDATIONHUB_STORE_BACKEND")
	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "VALIDATIONHUB_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "VALIDATIONHUB_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "VALIDATIONHUB_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "VALIDATIONHUB_PG_MAX_CONN_IDLE_TIME")
	setString(&cfg.NATS.URL, "NATS_URL")
	setBool(&cfg.NATS.PublishEvents, "VALIDATIONHUB_PUBLISH_EVENTS")
	setBool(&cfg.Cache.Enabled, "VALIDATIONHUB_CACHE_ENABLED")
	setInt64(&cfg.Cache.MaxBytes, "VALIDATIONHUB_CACHE_MAX_BYTES")
	setDuration(&cfg.Cache.TTL, "VALIDATIONHUB_CACHE_TTL")
	setDuration(&cfg.Webhook.Timeout, "VALIDATIONHUB_WEBHOOK_TIMEOUT")
	setInt64(&cfg.Webhook.MaxConcurrent, "VALIDATIONHUB_WEBHOOK_MAX_CONCURRENT")
	setString(&cfg.Webhook.SigningSecret, "VALIDATIONHUB_WEBHOOK_SECRET")
	setString(&cfg.Logging.Level, "VALIDATIONHUB_LOG_LEVEL")
	setString(&cfg.Logging.Service, "VALIDATIONHUB_LOG_SERVICE")
	setBool(&cfg.Logging.Async, "VALIDATIONHUB_LOG_ASYNC")
	setBool(&cfg.Otel.Enabled, "VALIDATIONHUB_OTEL_ENABLED")
	setString(&cfg.Otel.Endpoint, "VALIDATIONHUB_OTEL_ENDPOINT")
}

// validate rejects configurations the hub cannot run with.
func validate(cfg *Config) error {
	switch cfg.Store.Backend {
	case "memory", "nats", "postgres":
	default:
		return fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
	if cfg.Server.Port == "" {
		return errors.New("server port must not be empty")
	}
	if cfg.Webhook.Timeout <= 0 {
		return errors.New("webhook timeout must be positive")
	}
	if cfg.Webhook.MaxConcurrent < 1 {
		return errors.New("webhook max_concurrent must be at least 1")
	}
	if cfg.Cache.Enabled && cfg.Cache.MaxBytes < 1 {
		return errors.New("cache max_bytes must be positive when the cache is enabled")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setInt32(dst *int32, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			*dst = int32(n)
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
