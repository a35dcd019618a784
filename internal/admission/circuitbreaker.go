package admission

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// CircuitState represents the state of a circuit breaker
type CircuitState string

const (
	CircuitClosed   CircuitState = "closed"
	CircuitOpen     CircuitState = "open"
	CircuitHalfOpen CircuitState = "half-open"
)

// CircuitBreakerConfig holds circuit breaker thresholds.
type CircuitBreakerConfig struct {
	MaxFailures  int           `yaml:"max_failures"`
	ResetTimeout time.Duration `yaml:"reset_timeout"`
}

// CircuitBreaker tracks consecutive failures for one provider and trips after
// MaxFailures. The open→half-open transition happens lazily on the next state
// read once ResetTimeout has elapsed; there is no timer goroutine. One
// instance is shared across concurrent requests to the same provider, so all
// state access is under the mutex.
type CircuitBreaker struct {
	mutex        sync.Mutex
	provider     string
	failures     int
	lastFailure  time.Time
	state        CircuitState
	maxFailures  int
	resetTimeout time.Duration
	logger       *logrus.Logger
}

// NewCircuitBreaker creates a breaker for the named provider.
func NewCircuitBreaker(provider string, config CircuitBreakerConfig, logger *logrus.Logger) *CircuitBreaker {
	if config.MaxFailures <= 0 {
		config.MaxFailures = 5
	}
	if config.ResetTimeout <= 0 {
		config.ResetTimeout = time.Minute
	}

	return &CircuitBreaker{
		provider:     provider,
		state:        CircuitClosed,
		maxFailures:  config.MaxFailures,
		resetTimeout: config.ResetTimeout,
		logger:       logger,
	}
}

// IsOpen reports whether calls to the provider should be blocked. Reading the
// state performs the lazy open→half-open transition.
func (cb *CircuitBreaker) IsOpen() bool {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	if cb.state == CircuitOpen && time.Since(cb.lastFailure) >= cb.resetTimeout {
		cb.state = CircuitHalfOpen
		cb.logger.WithFields(logrus.Fields{
			"provider": cb.provider,
			"state":    cb.state,
		}).Info("Circuit breaker entering half-open state")
	}

	return cb.state == CircuitOpen
}

// State returns the current state, applying the same lazy transition as IsOpen.
func (cb *CircuitBreaker) State() CircuitState {
	cb.IsOpen()

	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	return cb.state
}

// RecordSuccess closes the breaker and resets the failure count.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	if cb.state != CircuitClosed {
		cb.logger.WithFields(logrus.Fields{
			"provider": cb.provider,
			"from":     cb.state,
		}).Info("Circuit breaker closed after success")
	}

	cb.failures = 0
	cb.state = CircuitClosed
}

// RecordFailure counts a failure. The breaker opens after MaxFailures
// consecutive failures, and a failure in half-open reopens it immediately.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	cb.failures++
	cb.lastFailure = time.Now()

	if cb.state == CircuitHalfOpen || cb.failures >= cb.maxFailures {
		if cb.state != CircuitOpen {
			cb.logger.WithFields(logrus.Fields{
				"provider": cb.provider,
				"failures": cb.failures,
			}).Warn("Circuit breaker opened")
		}
		cb.state = CircuitOpen
	}
}

// Failures returns the current consecutive failure count.
func (cb *CircuitBreaker) Failures() int {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	return cb.failures
}

// ForceOpen trips the breaker immediately. Used by operational tooling and tests.
func (cb *CircuitBreaker) ForceOpen() {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	cb.state = CircuitOpen
	cb.lastFailure = time.Now()
	if cb.failures < cb.maxFailures {
		cb.failures = cb.maxFailures
	}
}
