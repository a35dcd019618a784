package execution

import (
	"time"

	"github.com/tributary-ai/search-router/internal/types"
)

// TimeoutConfig bounds the dynamic per-execution timeout. Loaded once and
// shared read-only.
type TimeoutConfig struct {
	Base             time.Duration `yaml:"base"`
	Min              time.Duration `yaml:"min"`
	Max              time.Duration `yaml:"max"`
	ComplexityFactor float64       `yaml:"complexity_factor"`
}

// DefaultTimeoutConfig returns the standard timeout bounds.
func DefaultTimeoutConfig() TimeoutConfig {
	return TimeoutConfig{
		Base:             8 * time.Second,
		Min:              2 * time.Second,
		Max:              30 * time.Second,
		ComplexityFactor: 0.5,
	}
}

// highTimeSensitivity is the threshold above which the timeout is shortened:
// stale answers to time-sensitive queries are worth little.
const highTimeSensitivity = 0.7

// DynamicTimeout computes the execution timeout for one query: the base
// scaled up by complexity, shortened 20% for highly time-sensitive queries,
// clamped to [Min, Max]. Both execution strategies share this single
// calculation.
func DynamicTimeout(config TimeoutConfig, features types.QueryFeatures) time.Duration {
	timeout := time.Duration(float64(config.Base) * (1.0 + features.Complexity*config.ComplexityFactor))

	if features.TimeSensitivity > highTimeSensitivity {
		timeout = time.Duration(float64(timeout) * 0.8)
	}

	if config.Min > 0 && timeout < config.Min {
		timeout = config.Min
	}
	if config.Max > 0 && timeout > config.Max {
		timeout = config.Max
	}
	return timeout
}
