package config

import "time"

// Config holds all process configuration loaded from environment variables
// and an optional config file.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: built-in sensible defaults for every setting
//  2. Config File: optional YAML file for persistent overrides
//  3. Environment Variables: override any setting, highest priority
//
// Config is immutable after Load and safe for concurrent read access.
type Config struct {
	Runner  RunnerConfig  `koanf:"runner"`
	Store   StoreConfig   `koanf:"store"`
	NATS    NATSConfig    `koanf:"nats"`
	Server  ServerConfig  `koanf:"server"`
	Logging LoggingConfig `koanf:"logging"`
}

// RunnerConfig maps directly onto runner.Config's tunables.
type RunnerConfig struct {
	Name             string        `koanf:"name"`
	FlushInterval    time.Duration `koanf:"flush_interval"`
	MaxConcurrency   int           `koanf:"max_concurrency"`
	MaxBatchSize     int           `koanf:"max_batch_size"`
	InitChunkSize    int           `koanf:"init_chunk_size"`
	ShutdownDeadline time.Duration `koanf:"shutdown_deadline"`
	MailboxSize      int           `koanf:"mailbox_size"`

	// DownstreamURL is the example handler's remote RPC endpoint.
	DownstreamURL string `koanf:"downstream_url"`

	RetryBackoffEnabled   bool          `koanf:"retry_backoff_enabled"`
	RetryInitialBackoff   time.Duration `koanf:"retry_initial_backoff"`
	RetryMaxBackoff       time.Duration `koanf:"retry_max_backoff"`
	RetryBackoffMultiplier float64      `koanf:"retry_backoff_multiplier"`
	RetryJitterFraction   float64       `koanf:"retry_jitter_fraction"`
}

// StoreConfig configures the Badger-backed example streaming collaborator.
type StoreConfig struct {
	Path           string        `koanf:"path"`
	RateLimitPerSec float64      `koanf:"rate_limit_per_sec"`
	RateLimitBurst int           `koanf:"rate_limit_burst"`
	GCInterval     time.Duration `koanf:"gc_interval"`
}

// NATSConfig configures the ad-hoc NATS producer that feeds Runner.Buffer.
type NATSConfig struct {
	Enabled        bool   `koanf:"enabled"`
	URL            string `koanf:"url"`
	Subject        string `koanf:"subject"`
	QueueGroup     string `koanf:"queue_group"`
	EmbeddedServer bool   `koanf:"embedded_server"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Host              string        `koanf:"host"`
	Port              int           `koanf:"port"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout"`
	RateLimitPerMin   int           `koanf:"rate_limit_per_min"`
	CORSOrigins       []string      `koanf:"cors_origins"`
}

// LoggingConfig controls the zerolog global logger.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}
