package admission

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// ScopeGlobal is the identifier of the process-wide rate limiter. Every other
// limiter is scoped to a single provider ("client" scope in denial terms).
const ScopeGlobal = "global"

// ScopeClient marks a denial raised by a provider-scoped limiter.
const ScopeClient = "client"

// RateLimitConfig holds the multi-window thresholds for one limiter.
type RateLimitConfig struct {
	RequestsPerMinute int           `yaml:"requests_per_minute"`
	RequestsPerHour   int           `yaml:"requests_per_hour"`
	RequestsPerDay    int           `yaml:"requests_per_day"`
	MaxConcurrent     int           `yaml:"max_concurrent"`
	Cooldown          time.Duration `yaml:"cooldown"`
}

// RateLimitResult is the outcome of an acquire attempt. On denial it carries
// a retry-after and the limiting scope so callers can build standard retry
// headers.
type RateLimitResult struct {
	Allowed    bool          `json:"allowed"`
	RetryAfter time.Duration `json:"retry_after,omitempty"`
	Scope      string        `json:"scope,omitempty"`
	Reason     string        `json:"reason,omitempty"`
}

// RateLimitUsage is a point-in-time snapshot for the ops surface.
type RateLimitUsage struct {
	Identifier    string    `json:"identifier"`
	MinuteUsed    int       `json:"minute_used"`
	HourUsed      int       `json:"hour_used"`
	DayUsed       int       `json:"day_used"`
	InFlight      int       `json:"in_flight"`
	CooldownUntil time.Time `json:"cooldown_until,omitempty"`
}

// RateLimiter admits requests against three sliding windows (minute, hour,
// day) plus a concurrent-request ceiling. Window timestamps decay only by
// time; releasing a request clears its in-flight marker but never rewinds the
// windows. All state is mutated under one lock per instance.
type RateLimiter struct {
	mutex      sync.Mutex
	identifier string
	config     RateLimitConfig
	logger     *logrus.Logger

	minuteWindow []time.Time
	hourWindow   []time.Time
	dayWindow    []time.Time

	inFlight      map[string]time.Time
	cooldownUntil time.Time

	// injectable clock for tests
	now func() time.Time
}

// NewRateLimiter creates a limiter for the given identifier (a provider name
// or ScopeGlobal).
func NewRateLimiter(identifier string, config RateLimitConfig, logger *logrus.Logger) *RateLimiter {
	if config.Cooldown <= 0 {
		config.Cooldown = 5 * time.Second
	}

	return &RateLimiter{
		identifier: identifier,
		config:     config,
		logger:     logger,
		inFlight:   make(map[string]time.Time),
		now:        time.Now,
	}
}

// Acquire attempts to admit the request. On success the request id is marked
// in-flight and a timestamp is appended to all three windows; the caller must
// Release the id when the provider call completes. On denial the limiter
// enters a cooldown.
func (rl *RateLimiter) Acquire(requestID string) *RateLimitResult {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	now := rl.now()
	rl.prune(now)

	if now.Before(rl.cooldownUntil) {
		return rl.deny("cooldown active", rl.cooldownUntil.Sub(now), now)
	}

	if rl.config.MaxConcurrent > 0 && len(rl.inFlight) >= rl.config.MaxConcurrent {
		return rl.deny("concurrent request limit reached", rl.config.Cooldown, now)
	}

	if rl.config.RequestsPerMinute > 0 && len(rl.minuteWindow) >= rl.config.RequestsPerMinute {
		return rl.deny("per-minute limit reached", rl.retryAfter(rl.minuteWindow, time.Minute, now), now)
	}
	if rl.config.RequestsPerHour > 0 && len(rl.hourWindow) >= rl.config.RequestsPerHour {
		return rl.deny("per-hour limit reached", rl.retryAfter(rl.hourWindow, time.Hour, now), now)
	}
	if rl.config.RequestsPerDay > 0 && len(rl.dayWindow) >= rl.config.RequestsPerDay {
		return rl.deny("per-day limit reached", rl.retryAfter(rl.dayWindow, 24*time.Hour, now), now)
	}

	rl.inFlight[requestID] = now
	rl.minuteWindow = append(rl.minuteWindow, now)
	rl.hourWindow = append(rl.hourWindow, now)
	rl.dayWindow = append(rl.dayWindow, now)

	return &RateLimitResult{Allowed: true}
}

// Release clears the in-flight marker for the request. Window timestamps are
// left in place; they expire on their own.
func (rl *RateLimiter) Release(requestID string) {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	delete(rl.inFlight, requestID)
}

// WaitIfLimited acquires, and on denial sleeps out the cooldown once before
// retrying exactly one more time. The second result is returned either way.
func (rl *RateLimiter) WaitIfLimited(ctx context.Context, requestID string) *RateLimitResult {
	result := rl.Acquire(requestID)
	if result.Allowed {
		return result
	}

	wait := result.RetryAfter
	if wait <= 0 {
		wait = rl.config.Cooldown
	}

	rl.logger.WithFields(logrus.Fields{
		"identifier": rl.identifier,
		"wait":       wait,
	}).Debug("Rate limited, waiting out cooldown")

	select {
	case <-time.After(wait):
	case <-ctx.Done():
		return result
	}

	return rl.Acquire(requestID)
}

// Usage returns a snapshot of the limiter's current windows.
func (rl *RateLimiter) Usage() RateLimitUsage {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	rl.prune(rl.now())

	return RateLimitUsage{
		Identifier:    rl.identifier,
		MinuteUsed:    len(rl.minuteWindow),
		HourUsed:      len(rl.hourWindow),
		DayUsed:       len(rl.dayWindow),
		InFlight:      len(rl.inFlight),
		CooldownUntil: rl.cooldownUntil,
	}
}

// prune drops window entries older than each window's span. Caller holds the lock.
func (rl *RateLimiter) prune(now time.Time) {
	rl.minuteWindow = pruneWindow(rl.minuteWindow, now, time.Minute)
	rl.hourWindow = pruneWindow(rl.hourWindow, now, time.Hour)
	rl.dayWindow = pruneWindow(rl.dayWindow, now, 24*time.Hour)
}

// deny records the cooldown and builds the denial result. Caller holds the lock.
func (rl *RateLimiter) deny(reason string, retryAfter time.Duration, now time.Time) *RateLimitResult {
	rl.cooldownUntil = now.Add(rl.config.Cooldown)

	scope := ScopeClient
	if rl.identifier == ScopeGlobal {
		scope = ScopeGlobal
	}

	rl.logger.WithFields(logrus.Fields{
		"identifier":  rl.identifier,
		"reason":      reason,
		"retry_after": retryAfter,
	}).Warn("Rate limit exceeded")

	return &RateLimitResult{
		Allowed:    false,
		RetryAfter: retryAfter,
		Scope:      scope,
		Reason:     reason,
	}
}

// retryAfter is the time until the oldest entry in the window expires.
func (rl *RateLimiter) retryAfter(window []time.Time, span time.Duration, now time.Time) time.Duration {
	if len(window) == 0 {
		return rl.config.Cooldown
	}
	remaining := window[0].Add(span).Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

func pruneWindow(window []time.Time, now time.Time, span time.Duration) []time.Time {
	cutoff := now.Add(-span)
	idx := 0
	for idx < len(window) && !window[idx].After(cutoff) {
		idx++
	}
	if idx == 0 {
		return window
	}
	return append(window[:0], window[idx:]...)
}
