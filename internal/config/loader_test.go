package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadFrom with missing file: %v", err)
	}

	if cfg.Server.Port != "8000" {
		t.Errorf("expected default port 8000, got %q", cfg.Server.Port)
	}
	if cfg.Store.Backend != "memory" {
		t.Errorf("expected default backend memory, got %q", cfg.Store.Backend)
	}
	if cfg.Webhook.Timeout != 10*time.Second {
		t.Errorf("expected default webhook timeout 10s, got %v", cfg.Webhook.Timeout)
	}
}

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "validationhub.yaml")
	yaml := `
server:
  port: "9000"
store:
  backend: nats
webhook:
  timeout: 3s
  max_concurrent: 16
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write yaml: %v", err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}

	if cfg.Server.Port != "9000" {
		t.Errorf("expected port 9000, got %q", cfg.Server.Port)
	}
	if cfg.Store.Backend != "nats" {
		t.Errorf("expected backend nats, got %q", cfg.Store.Backend)
	}
	if cfg.Webhook.Timeout != 3*time.Second {
		t.Errorf("expected timeout 3s, got %v", cfg.Webhook.Timeout)
	}
	if cfg.Webhook.MaxConcurrent != 16 {
		t.Errorf("expected max_concurrent 16, got %d", cfg.Webhook.MaxConcurrent)
	}
	// Untouched sections keep their defaults.
	if cfg.NATS.URL != "nats://localhost:4222" {
		t.Errorf("expected default NATS URL, got %q", cfg.NATS.URL)
	}
}

func TestLoadEnvOverridesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "validationhub.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: \"9000\"\n"), 0o600); err != nil {
		t.Fatalf("write yaml: %v", err)
	}

	t.Setenv("VALIDATIONHUB_PORT", "7777")
	t.Setenv("VALIDATIONHUB_WEBHOOK_TIMEOUT", "5s")
	t.Setenv("VALIDATIONHUB_PUBLISH_EVENTS", "true")

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}

	if cfg.Server.Port != "7777" {
		t.Errorf("env must override yaml, got port %q", cfg.Server.Port)
	}
	if cfg.Webhook.Timeout != 5*time.Second {
		t.Errorf("expected timeout 5s from env, got %v", cfg.Webhook.Timeout)
	}
	if !cfg.NATS.PublishEvents {
		t.Error("expected publish_events true from env")
	}
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	t.Setenv("VALIDATIONHUB_STORE_BACKEND", "cassandra")

	if _, err := LoadFrom(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for unknown store backend")
	}
}

func TestLoadRejectsBadWebhookConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "validationhub.yaml")
	if err := os.WriteFile(path, []byte("webhook:\n  max_concurrent: 0\n"), 0o600); err != nil {
		t.Fatalf("write yaml: %v", err)
	}

	if _, err := LoadFrom(path); err == nil {
		t.Fatal("expected error for max_concurrent 0")
	}
}

func TestLoadMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "validationhub.yaml")
	if err := os.WriteFile(path, []byte("server: [not a map"), 0o600); err != nil {
		t.Fatalf("write yaml: %v", err)
	}

	if _, err := LoadFrom(path); err == nil {
		t.Fatal("expected error for malformed yaml")
	}
}
