package execution

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tributary-ai/search-router/internal/admission"
	"github.com/tributary-ai/search-router/internal/providers"
	"github.com/tributary-ai/search-router/internal/scoring"
	"github.com/tributary-ai/search-router/internal/types"
)

// CascadePolicy controls the sequential fallback behavior. Loaded once and
// shared read-only.
type CascadePolicy struct {
	// SecondaryDelay is slept before each non-primary attempt so fallbacks
	// are not hammered needlessly
	SecondaryDelay time.Duration `yaml:"secondary_delay"`

	// MinSuccessfulProviders stops the cascade once this many providers have
	// succeeded; zero means one success is enough
	MinSuccessfulProviders int `yaml:"min_successful_providers"`

	// CascadeOnSuccess continues past a success instead of stopping
	CascadeOnSuccess bool `yaml:"cascade_on_success"`
}

// DefaultCascadePolicy returns the standard cascade behavior: stop on first
// success, half-second grace before fallbacks.
func DefaultCascadePolicy() CascadePolicy {
	return CascadePolicy{
		SecondaryDelay:         500 * time.Millisecond,
		MinSuccessfulProviders: 1,
	}
}

// CascadeStrategy runs providers strictly in list order. The first entry is
// primary and runs immediately; each later entry waits SecondaryDelay first.
// A provider whose breaker is open is recorded as skipped, never invoked.
// Every attempt feeds the provider's circuit breaker.
type CascadeStrategy struct {
	registry   providers.Registry
	controller *admission.Controller
	metrics    *scoring.MetricsStore
	timeouts   TimeoutConfig
	policy     CascadePolicy
	logger     *logrus.Logger
}

// NewCascadeStrategy creates the sequential fallback strategy.
func NewCascadeStrategy(
	registry providers.Registry,
	controller *admission.Controller,
	metrics *scoring.MetricsStore,
	timeouts TimeoutConfig,
	policy CascadePolicy,
	logger *logrus.Logger,
) *CascadeStrategy {
	return &CascadeStrategy{
		registry:   registry,
		controller: controller,
		metrics:    metrics,
		timeouts:   timeouts,
		policy:     policy,
		logger:     logger,
	}
}

// Name returns "cascade".
func (s *CascadeStrategy) Name() string {
	return StrategyCascade
}

// Execute walks the provider list in order, stopping early per policy. A
// cascade that exhausts all providers without a success simply returns the
// all-failed results; judging that is the caller's concern.
func (s *CascadeStrategy) Execute(ctx context.Context, selected []string, query *types.SearchQuery, features types.QueryFeatures) *Outcome {
	outcome := NewOutcome()
	timeout := DynamicTimeout(s.timeouts, features)

	minSuccesses := s.policy.MinSuccessfulProviders
	if minSuccesses <= 0 {
		minSuccesses = 1
	}

	for i, name := range selected {
		provider, ok := s.registry[name]
		if !ok {
			s.logger.WithField("provider", name).Warn("Selected provider not registered")
			continue
		}

		if i > 0 && s.policy.SecondaryDelay > 0 {
			select {
			case <-time.After(s.policy.SecondaryDelay):
			case <-ctx.Done():
				return outcome
			}
		}

		if s.controller.Breaker(name).IsOpen() {
			s.logger.WithField("provider", name).Info("Skipping provider with open circuit breaker")
			outcome.Results[name] = skippedResult(name)
			continue
		}

		estimated := provider.EstimateCost(query)
		requestID, denial := admit(s.controller, name, estimated)
		if denial != nil {
			outcome.Denials[name] = denial
			continue
		}

		result := attempt(ctx, name, provider, query, timeout, requestID, estimated, s.controller, s.metrics)
		result.IsPrimary = i == 0
		outcome.Results[name] = result

		if result.Success && !s.policy.CascadeOnSuccess {
			break
		}
		if outcome.Successes() >= minSuccesses {
			break
		}
	}

	s.logger.WithFields(logrus.Fields{
		"strategy":  StrategyCascade,
		"selected":  len(selected),
		"attempted": len(outcome.Results),
		"successes": outcome.Successes(),
	}).Debug("Cascade execution completed")

	return outcome
}
