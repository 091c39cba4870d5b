package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths searched for a config file, in order of
// priority. The first file found is used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/batchrunner/config.yaml",
	"/etc/batchrunner/config.yml",
}

// ConfigPathEnvVar overrides the config file search with an explicit path.
const ConfigPathEnvVar = "CONFIG_PATH"

func defaultConfig() *Config {
	return &Config{
		Runner: RunnerConfig{
			Name:                   "runner",
			FlushInterval:          time.Second,
			MaxConcurrency:         8,
			MaxBatchSize:           500,
			InitChunkSize:          1000,
			ShutdownDeadline:       30 * time.Second,
			MailboxSize:            256,
			DownstreamURL:          "http://127.0.0.1:9000/ingest",
			RetryBackoffEnabled:    false,
			RetryInitialBackoff:    time.Second,
			RetryMaxBackoff:        time.Minute,
			RetryBackoffMultiplier: 2.0,
			RetryJitterFraction:    0.1,
		},
		Store: StoreConfig{
			Path:            "/data/batchrunner/store",
			RateLimitPerSec: 0, // 0 = unlimited
			RateLimitBurst:  100,
			GCInterval:      10 * time.Minute,
		},
		NATS: NATSConfig{
			Enabled:        false,
			URL:            "nats://127.0.0.1:4222",
			Subject:        "batchrunner.items",
			QueueGroup:     "batchrunner",
			EmbeddedServer: false,
		},
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              8080,
			ReadHeaderTimeout: 5 * time.Second,
			RateLimitPerMin:   600,
			CORSOrigins:       []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Load reads configuration with layered sources, in precedence order
// ENV > File > Defaults, and validates the result.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	envProvider := env.Provider("", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

var sliceConfigPaths = []string{
	"server.cors_origins",
}

// processSliceFields converts comma-separated env var strings into slices
// for the handful of fields that need them; YAML-sourced values arrive
// already as slices and are left untouched.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}
		if _, ok := val.([]interface{}); ok {
			continue
		}
		if _, ok := val.([]string); ok {
			continue
		}
		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envTransformFunc maps flat environment variable names onto koanf's nested
// dotted paths.
func envTransformFunc(key string) string {
	key = strings.ToLower(key)

	envMappings := map[string]string{
		"runner_name":                     "runner.name",
		"runner_flush_interval":           "runner.flush_interval",
		"runner_max_concurrency":          "runner.max_concurrency",
		"runner_max_batch_size":           "runner.max_batch_size",
		"runner_init_chunk_size":          "runner.init_chunk_size",
		"runner_shutdown_deadline":        "runner.shutdown_deadline",
		"runner_mailbox_size":             "runner.mailbox_size",
		"runner_downstream_url":           "runner.downstream_url",
		"runner_retry_backoff_enabled":    "runner.retry_backoff_enabled",
		"runner_retry_initial_backoff":    "runner.retry_initial_backoff",
		"runner_retry_max_backoff":        "runner.retry_max_backoff",
		"runner_retry_backoff_multiplier": "runner.retry_backoff_multiplier",
		"runner_retry_jitter_fraction":    "runner.retry_jitter_fraction",

		"store_path":               "store.path",
		"store_rate_limit_per_sec": "store.rate_limit_per_sec",
		"store_rate_limit_burst":   "store.rate_limit_burst",
		"store_gc_interval":        "store.gc_interval",

		"nats_enabled":         "nats.enabled",
		"nats_url":             "nats.url",
		"nats_subject":         "nats.subject",
		"nats_queue_group":     "nats.queue_group",
		"nats_embedded_server": "nats.embedded_server",

		"http_host":               "server.host",
		"http_port":               "server.port",
		"http_read_header_timeout": "server.read_header_timeout",
		"http_rate_limit_per_min": "server.rate_limit_per_min",
		"cors_origins":            "server.cors_origins",

		"log_level":  "logging.level",
		"log_format": "logging.format",
		"log_caller": "logging.caller",
	}

	if mapped, ok := envMappings[key]; ok {
		return mapped
	}
	return ""
}
