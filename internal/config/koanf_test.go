package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Runner.FlushInterval != time.Second {
		t.Errorf("Runner.FlushInterval = %v, want 1s", cfg.Runner.FlushInterval)
	}
	if cfg.Runner.MaxConcurrency != 8 {
		t.Errorf("Runner.MaxConcurrency = %d, want 8", cfg.Runner.MaxConcurrency)
	}
	if cfg.Runner.RetryBackoffEnabled {
		t.Error("Runner.RetryBackoffEnabled should default to false")
	}
	if cfg.NATS.Enabled {
		t.Error("NATS.Enabled should default to false")
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want info", cfg.Logging.Level)
	}
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	t.Setenv("RUNNER_MAX_CONCURRENCY", "16")
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Runner.MaxConcurrency != 16 {
		t.Errorf("Runner.MaxConcurrency = %d, want 16", cfg.Runner.MaxConcurrency)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
}

func TestLoadReadsConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yamlBody := "runner:\n  max_batch_size: 250\nserver:\n  port: 7000\n"
	if err := os.WriteFile(path, []byte(yamlBody), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Runner.MaxBatchSize != 250 {
		t.Errorf("Runner.MaxBatchSize = %d, want 250", cfg.Runner.MaxBatchSize)
	}
	if cfg.Server.Port != 7000 {
		t.Errorf("Server.Port = %d, want 7000", cfg.Server.Port)
	}
}

func TestValidateRejectsInvalidRunnerConfig(t *testing.T) {
	cfg := defaultConfig()
	cfg.Runner.MaxConcurrency = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for zero max_concurrency")
	}
}

func TestValidateRejectsNATSWithoutURL(t *testing.T) {
	cfg := defaultConfig()
	cfg.NATS.Enabled = true
	cfg.NATS.URL = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for enabled NATS without URL")
	}
}
