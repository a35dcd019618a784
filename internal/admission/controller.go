package admission

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// DenialKind distinguishes the two admission-denial causes.
type DenialKind string

const (
	DeniedRateLimited    DenialKind = "rate_limited"
	DeniedBudgetExceeded DenialKind = "budget_exceeded"
)

// Denial is the pre-execution rejection of one provider for one request. It
// is a value, not an error: denials remove a provider from the current
// request without aborting the routing decision.
type Denial struct {
	Provider   string        `json:"provider"`
	Kind       DenialKind    `json:"kind"`
	Scope      string        `json:"scope"`
	Reason     string        `json:"reason"`
	RetryAfter time.Duration `json:"retry_after,omitempty"`
}

// ProviderControls bundles the admission primitives owned by one provider.
type ProviderControls struct {
	Breaker *CircuitBreaker
	Limiter *RateLimiter
	Budget  *BudgetTracker
}

// ControllerConfig holds the per-provider and global admission settings.
type ControllerConfig struct {
	Breaker         CircuitBreakerConfig       `yaml:"circuit_breaker"`
	GlobalRateLimit RateLimitConfig            `yaml:"global_rate_limit"`
	RateLimits      map[string]RateLimitConfig `yaml:"rate_limits"`
	Budgets         map[string]BudgetConfig    `yaml:"budgets"`

	// DefaultRateLimit applies to providers with no explicit entry
	DefaultRateLimit RateLimitConfig `yaml:"default_rate_limit"`

	// DefaultBudget applies to providers with no explicit entry
	DefaultBudget BudgetConfig `yaml:"default_budget"`
}

// Controller is the explicit registry of admission state: one breaker,
// limiter and budget tracker per provider plus a single global limiter.
// It is constructed once at startup and passed by reference to every
// component that gates provider calls.
type Controller struct {
	mutex     sync.Mutex
	config    ControllerConfig
	logger    *logrus.Logger
	global    *RateLimiter
	providers map[string]*ProviderControls
}

// NewController creates an admission controller with a global rate limiter
// and lazily-built per-provider controls.
func NewController(config ControllerConfig, logger *logrus.Logger) *Controller {
	return &Controller{
		config:    config,
		logger:    logger,
		global:    NewRateLimiter(ScopeGlobal, config.GlobalRateLimit, logger),
		providers: make(map[string]*ProviderControls),
	}
}

// Controls returns (creating if needed) the admission primitives for a provider.
func (c *Controller) Controls(provider string) *ProviderControls {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	controls, ok := c.providers[provider]
	if !ok {
		rlConfig, ok := c.config.RateLimits[provider]
		if !ok {
			rlConfig = c.config.DefaultRateLimit
		}
		budgetConfig, ok := c.config.Budgets[provider]
		if !ok {
			budgetConfig = c.config.DefaultBudget
		}

		controls = &ProviderControls{
			Breaker: NewCircuitBreaker(provider, c.config.Breaker, c.logger),
			Limiter: NewRateLimiter(provider, rlConfig, c.logger),
			Budget:  NewBudgetTracker(provider, budgetConfig, c.logger),
		}
		c.providers[provider] = controls
	}

	return controls
}

// Breaker returns the provider's circuit breaker.
func (c *Controller) Breaker(provider string) *CircuitBreaker {
	return c.Controls(provider).Breaker
}

// Admit runs the full pre-call gate for one provider: global rate limit,
// provider rate limit, then budget. A nil return means the call may proceed
// and the caller owns a Release for requestID on both limiters.
func (c *Controller) Admit(provider, requestID string, estimatedCost float64) *Denial {
	if result := c.global.Acquire(requestID); !result.Allowed {
		return &Denial{
			Provider:   provider,
			Kind:       DeniedRateLimited,
			Scope:      result.Scope,
			Reason:     result.Reason,
			RetryAfter: result.RetryAfter,
		}
	}

	controls := c.Controls(provider)

	if result := controls.Limiter.Acquire(requestID); !result.Allowed {
		c.global.Release(requestID)
		return &Denial{
			Provider:   provider,
			Kind:       DeniedRateLimited,
			Scope:      result.Scope,
			Reason:     result.Reason,
			RetryAfter: result.RetryAfter,
		}
	}

	if !controls.Budget.CheckBudget(estimatedCost) {
		c.global.Release(requestID)
		controls.Limiter.Release(requestID)
		return &Denial{
			Provider: provider,
			Kind:     DeniedBudgetExceeded,
			Scope:    ScopeClient,
			Reason:   "budget exceeded",
		}
	}

	return nil
}

// Release clears the request's in-flight markers on both limiters and, when
// the call succeeded, records the spend.
func (c *Controller) Release(provider, requestID string, actualCost float64, success bool) {
	c.global.Release(requestID)

	controls := c.Controls(provider)
	controls.Limiter.Release(requestID)
	if success && actualCost > 0 {
		controls.Budget.RecordCost(actualCost)
	}
}

// UsageSnapshot aggregates rate and budget usage for the ops surface.
type UsageSnapshot struct {
	Global     RateLimitUsage            `json:"global"`
	RateLimits map[string]RateLimitUsage `json:"rate_limits"`
	Budgets    map[string]BudgetUsage    `json:"budgets"`
}

// Usage returns the current snapshot for every known provider.
func (c *Controller) Usage() UsageSnapshot {
	c.mutex.Lock()
	names := make([]string, 0, len(c.providers))
	for name := range c.providers {
		names = append(names, name)
	}
	c.mutex.Unlock()

	snapshot := UsageSnapshot{
		Global:     c.global.Usage(),
		RateLimits: make(map[string]RateLimitUsage, len(names)),
		Budgets:    make(map[string]BudgetUsage, len(names)),
	}

	for _, name := range names {
		controls := c.Controls(name)
		snapshot.RateLimits[name] = controls.Limiter.Usage()
		snapshot.Budgets[name] = controls.Budget.Usage()
	}

	return snapshot
}
