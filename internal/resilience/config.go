package resilience

import (
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/foodtrend/internal/config"
)

// FromCollectorConfig builds the retry policy for collector requests.
func FromCollectorConfig(c config.CollectorConfig) RetryConfig {
	cfg := DefaultRetryConfig()
	if c.MaxRetries > 0 {
		cfg.MaxAttempts = c.MaxRetries + 1
	}
	if c.InitialBackoffMs > 0 {
		cfg.InitialBackoff = time.Duration(c.InitialBackoffMs) * time.Millisecond
	}
	if c.MaxBackoffMs > 0 {
		cfg.MaxBackoff = time.Duration(c.MaxBackoffMs) * time.Millisecond
	}
	cfg.OnRetry = RetryLogger("reddit", "listing")
	return cfg
}

// BreakerFromCollectorConfig builds the circuit breaker guarding the
// collector's upstream.
func BreakerFromCollectorConfig(c config.CollectorConfig) BreakerConfig {
	return BreakerConfig{
		FailureThreshold: c.BreakerThreshold,
		ResetTimeout:     time.Duration(c.BreakerResetSecs) * time.Second,
		OnStateChange: func(from, to CircuitState) {
			zap.L().Warn("collector: circuit breaker state change",
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}
}
