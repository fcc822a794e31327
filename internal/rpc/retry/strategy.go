package retry

import (
	"context"
	"log/slog"
)

// Strategy defines the interface for transport retry strategies.
// Retries live here, beneath the RPC client; resolver and orchestrator code
// never retries on its own.
type Strategy interface {
	// Execute runs the operation with the configured retry logic
	Execute(ctx context.Context, operation Operation) error

	// Name returns the name of the strategy for logging
	Name() string
}

// Operation is a function that can be retried
type Operation func() error

// NewStrategy creates a retry strategy based on configuration
func NewStrategy(config Config) Strategy {
	if !config.Enabled {
		slog.Info("Transport retry disabled, using NoRetryStrategy")
		return NewNoRetryStrategy()
	}

	slog.Info("Transport retry enabled, using ExponentialBackoffStrategy",
		"max_retries", config.MaxRetries,
		"initial_delay", config.InitialDelay,
		"max_delay", config.MaxDelay,
	)

	return NewExponentialBackoffStrategy(
		config.MaxRetries,
		config.InitialDelay,
		config.MaxDelay,
	)
}
