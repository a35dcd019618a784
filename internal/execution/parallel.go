package execution

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/tributary-ai/search-router/internal/admission"
	"github.com/tributary-ai/search-router/internal/providers"
	"github.com/tributary-ai/search-router/internal/scoring"
	"github.com/tributary-ai/search-router/internal/types"
)

// ParallelStrategy fans every selected provider out as an independent
// concurrent task under one shared dynamic timeout. Partial completion is a
// normal outcome: tasks still running at the deadline are cancelled and
// recorded as timeout failures, everything else is returned as-is.
type ParallelStrategy struct {
	registry   providers.Registry
	controller *admission.Controller
	metrics    *scoring.MetricsStore
	timeouts   TimeoutConfig
	logger     *logrus.Logger
}

// NewParallelStrategy creates the fan-out strategy.
func NewParallelStrategy(
	registry providers.Registry,
	controller *admission.Controller,
	metrics *scoring.MetricsStore,
	timeouts TimeoutConfig,
	logger *logrus.Logger,
) *ParallelStrategy {
	return &ParallelStrategy{
		registry:   registry,
		controller: controller,
		metrics:    metrics,
		timeouts:   timeouts,
		logger:     logger,
	}
}

// Name returns "parallel".
func (s *ParallelStrategy) Name() string {
	return StrategyParallel
}

// Execute runs all selected providers concurrently and collects every result
// before returning. There is no cross-provider ordering guarantee.
func (s *ParallelStrategy) Execute(ctx context.Context, selected []string, query *types.SearchQuery, features types.QueryFeatures) *Outcome {
	outcome := NewOutcome()
	timeout := DynamicTimeout(s.timeouts, features)

	var mutex sync.Mutex
	group, groupCtx := errgroup.WithContext(ctx)

	for _, name := range selected {
		provider, ok := s.registry[name]
		if !ok {
			s.logger.WithField("provider", name).Warn("Selected provider not registered")
			continue
		}

		group.Go(func() error {
			if s.controller.Breaker(name).IsOpen() {
				mutex.Lock()
				outcome.Results[name] = skippedResult(name)
				mutex.Unlock()
				return nil
			}

			estimated := provider.EstimateCost(query)
			requestID, denial := admit(s.controller, name, estimated)
			if denial != nil {
				mutex.Lock()
				outcome.Denials[name] = denial
				mutex.Unlock()
				return nil
			}

			result := attempt(groupCtx, name, provider, query, timeout, requestID, estimated, s.controller, s.metrics)

			mutex.Lock()
			outcome.Results[name] = result
			mutex.Unlock()
			return nil
		})
	}

	// tasks never return errors; Wait is purely a join
	_ = group.Wait()

	s.logger.WithFields(logrus.Fields{
		"strategy":  StrategyParallel,
		"selected":  len(selected),
		"successes": outcome.Successes(),
		"denials":   len(outcome.Denials),
		"timeout":   timeout,
	}).Debug("Parallel execution completed")

	return outcome
}
