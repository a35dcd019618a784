package admission

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiter_DeniesThirdRequestInMinute(t *testing.T) {
	rl := NewRateLimiter("tavily", RateLimitConfig{RequestsPerMinute: 2, Cooldown: time.Second}, testLogger())

	assert.True(t, rl.Acquire("req-1").Allowed)
	assert.True(t, rl.Acquire("req-2").Allowed)

	result := rl.Acquire("req-3")
	require.False(t, result.Allowed)
	assert.Equal(t, ScopeClient, result.Scope)
	assert.Greater(t, result.RetryAfter, time.Duration(0))
}

func TestRateLimiter_AllowsAgainAfterWindowExpiry(t *testing.T) {
	rl := NewRateLimiter("tavily", RateLimitConfig{RequestsPerMinute: 2, Cooldown: time.Millisecond}, testLogger())

	base := time.Now()
	rl.now = func() time.Time { return base }

	require.True(t, rl.Acquire("req-1").Allowed)
	require.True(t, rl.Acquire("req-2").Allowed)
	require.False(t, rl.Acquire("req-3").Allowed)

	// advance past the 60s window; the old timestamps must decay
	rl.now = func() time.Time { return base.Add(61 * time.Second) }

	assert.True(t, rl.Acquire("req-4").Allowed)
}

func TestRateLimiter_ConcurrencyCeiling(t *testing.T) {
	rl := NewRateLimiter("exa", RateLimitConfig{RequestsPerMinute: 100, MaxConcurrent: 2, Cooldown: time.Millisecond}, testLogger())

	base := time.Now()
	rl.now = func() time.Time { return base }

	require.True(t, rl.Acquire("a").Allowed)
	require.True(t, rl.Acquire("b").Allowed)

	result := rl.Acquire("c")
	require.False(t, result.Allowed)
	assert.Contains(t, result.Reason, "concurrent")

	// releasing an in-flight request frees a slot once the cooldown passes
	rl.Release("a")
	rl.now = func() time.Time { return base.Add(time.Second) }
	assert.True(t, rl.Acquire("c").Allowed)
}

func TestRateLimiter_ReleaseDoesNotRewindWindows(t *testing.T) {
	rl := NewRateLimiter("exa", RateLimitConfig{RequestsPerMinute: 1, Cooldown: time.Millisecond}, testLogger())

	base := time.Now()
	rl.now = func() time.Time { return base }

	require.True(t, rl.Acquire("a").Allowed)
	rl.Release("a")

	rl.now = func() time.Time { return base.Add(time.Second) }
	result := rl.Acquire("b")
	assert.False(t, result.Allowed, "window timestamps decay only by time, not by release")
}

func TestRateLimiter_GlobalScope(t *testing.T) {
	rl := NewRateLimiter(ScopeGlobal, RateLimitConfig{RequestsPerMinute: 1, Cooldown: time.Second}, testLogger())

	require.True(t, rl.Acquire("a").Allowed)
	result := rl.Acquire("b")
	require.False(t, result.Allowed)
	assert.Equal(t, ScopeGlobal, result.Scope)
}

func TestRateLimiter_WaitIfLimitedRetriesOnce(t *testing.T) {
	rl := NewRateLimiter("brave", RateLimitConfig{MaxConcurrent: 1, Cooldown: 10 * time.Millisecond}, testLogger())

	require.True(t, rl.Acquire("a").Allowed)

	done := make(chan struct{})
	go func() {
		time.Sleep(5 * time.Millisecond)
		rl.Release("a")
		close(done)
	}()

	result := rl.WaitIfLimited(context.Background(), "b")
	<-done
	assert.True(t, result.Allowed, "second acquire after the cooldown should succeed")
}

func TestRateLimiter_WaitIfLimitedHonorsContext(t *testing.T) {
	rl := NewRateLimiter("brave", RateLimitConfig{MaxConcurrent: 1, Cooldown: time.Minute}, testLogger())

	require.True(t, rl.Acquire("a").Allowed)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()

	result := rl.WaitIfLimited(ctx, "b")
	assert.False(t, result.Allowed)
}

func TestRateLimiter_Usage(t *testing.T) {
	rl := NewRateLimiter("serper", RateLimitConfig{RequestsPerMinute: 10, Cooldown: time.Second}, testLogger())

	rl.Acquire("a")
	rl.Acquire("b")
	rl.Release("a")

	usage := rl.Usage()
	assert.Equal(t, "serper", usage.Identifier)
	assert.Equal(t, 2, usage.MinuteUsed)
	assert.Equal(t, 1, usage.InFlight)
}
