package config

import "fmt"

// Validate checks that required configuration is present and internally
// consistent.
func (c *Config) Validate() error {
	if err := c.validateRunner(); err != nil {
		return err
	}
	if err := c.validateNATS(); err != nil {
		return err
	}
	return c.validateServer()
}

func (c *Config) validateRunner() error {
	if c.Runner.FlushInterval <= 0 {
		return fmt.Errorf("RUNNER_FLUSH_INTERVAL must be positive")
	}
	if c.Runner.MaxConcurrency <= 0 {
		return fmt.Errorf("RUNNER_MAX_CONCURRENCY must be positive")
	}
	if c.Runner.MaxBatchSize <= 0 {
		return fmt.Errorf("RUNNER_MAX_BATCH_SIZE must be positive")
	}
	if c.Runner.InitChunkSize <= 0 {
		return fmt.Errorf("RUNNER_INIT_CHUNK_SIZE must be positive")
	}
	if c.Runner.RetryBackoffEnabled {
		if c.Runner.RetryInitialBackoff <= 0 {
			return fmt.Errorf("RUNNER_RETRY_INITIAL_BACKOFF must be positive when retry backoff is enabled")
		}
		if c.Runner.RetryBackoffMultiplier <= 1.0 {
			return fmt.Errorf("RUNNER_RETRY_BACKOFF_MULTIPLIER must be greater than 1.0")
		}
	}
	return nil
}

func (c *Config) validateNATS() error {
	if !c.NATS.Enabled {
		return nil
	}
	if c.NATS.URL == "" {
		return fmt.Errorf("NATS_URL is required when NATS_ENABLED=true")
	}
	if c.NATS.Subject == "" {
		return fmt.Errorf("NATS_SUBJECT is required when NATS_ENABLED=true")
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	return nil
}
