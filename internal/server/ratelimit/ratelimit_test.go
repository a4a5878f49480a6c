package ratelimit

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func submissionLimiter(t *testing.T, perHour string) *Limiter {
	t.Helper()
	l := NewLimiter(LoadConfig(envMap(map[string]string{
		"RATE_LIMIT_SUBMISSIONS_PER_HOUR": perHour,
	})))
	t.Cleanup(l.Stop)
	return l
}

func TestTokenBucket_BurstThenEmpty(t *testing.T) {
	tb := newTokenBucket(2, 0)

	assert.True(t, tb.allow())
	assert.True(t, tb.allow())
	assert.False(t, tb.allow())

	remaining, reset := tb.getStatus()
	assert.Equal(t, 0, remaining)
	assert.False(t, reset.IsZero())
}

func TestTokenBucket_RefillIsCappedAtCapacity(t *testing.T) {
	tb := newTokenBucket(3, 1)
	tb.tokens = 0
	tb.lastRefill = time.Now().Add(-time.Hour)

	remaining, _ := tb.getStatus()
	assert.Equal(t, 3, remaining)
}

func TestLimiter_SubmissionsBurstComesFromHourlyLimit(t *testing.T) {
	l := submissionLimiter(t, "20")

	for i := 0; i < 2; i++ {
		allowed, info := l.Allow("10.0.0.1", "/submissions", "POST")
		require.True(t, allowed, "submission %d", i+1)
		assert.Equal(t, 20, info.Limit)
	}

	allowed, info := l.Allow("10.0.0.1", "/submissions", "POST")
	assert.False(t, allowed)
	assert.Equal(t, 0, info.Remaining)
	assert.Greater(t, info.RetryAfter, time.Minute, "twenty an hour refills one token every three minutes")
	assert.LessOrEqual(t, info.RetryAfter, 6*time.Minute)
}

func TestLimiter_BucketsAreKeyedByClientMethodAndPath(t *testing.T) {
	l := submissionLimiter(t, "10")

	allowed, _ := l.Allow("10.0.0.1", "/submissions", "POST")
	require.True(t, allowed)
	allowed, _ = l.Allow("10.0.0.1", "/submissions", "POST")
	require.False(t, allowed, "a limit of ten an hour allows a burst of one")

	tests := []struct {
		name     string
		client   string
		endpoint string
		method   string
	}{
		{name: "other client", client: "10.0.0.2", endpoint: "/submissions", method: "POST"},
		{name: "streaming submissions", client: "10.0.0.1", endpoint: "/submissions/stream", method: "POST"},
		{name: "render", client: "10.0.0.1", endpoint: "/render", method: "POST"},
		{name: "unconfigured method", client: "10.0.0.1", endpoint: "/submissions", method: "GET"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			allowed, _ := l.Allow(tt.client, tt.endpoint, tt.method)
			assert.True(t, allowed)
		})
	}
}

func TestLimiter_WhitelistAndBlacklist(t *testing.T) {
	l := NewLimiter(LoadConfig(envMap(map[string]string{
		"RATE_LIMIT_SUBMISSIONS_PER_HOUR": "1",
		"RATE_LIMIT_WHITELIST":            "10.0.0.9",
		"RATE_LIMIT_BLACKLIST":            "10.6.6.6",
	})))
	defer l.Stop()

	for i := 0; i < 5; i++ {
		allowed, info := l.Allow("10.0.0.9", "/submissions", "POST")
		assert.True(t, allowed)
		assert.Zero(t, info.Limit, "whitelisted callers get no limit headers")
	}

	allowed, _ := l.Allow("10.6.6.6", "/health", "GET")
	assert.False(t, allowed, "blacklisted callers are refused everywhere")
}

func TestLimiter_DisabledAllowsEverything(t *testing.T) {
	l := NewLimiter(LoadConfig(envMap(map[string]string{"RATE_LIMIT_ENABLED": "false"})))
	defer l.Stop()

	for i := 0; i < 50; i++ {
		allowed, _ := l.Allow("10.0.0.1", "/submissions", "POST")
		require.True(t, allowed)
	}
	assert.Nil(t, l.cleanupTicker)
}

func TestLimiter_ConcurrentSubmissionsNeverExceedBurst(t *testing.T) {
	l := submissionLimiter(t, "100")

	var granted atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := l.Allow("10.0.0.1", "/submissions", "POST"); ok {
				granted.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(10), granted.Load())
}

func TestLimiter_CleanupDropsIdleClients(t *testing.T) {
	l := NewLimiter(&Config{Enabled: true, DefaultLimit: 5, DefaultWindow: time.Minute})
	defer l.Stop()

	for i := 0; i < 3; i++ {
		l.Allow(fmt.Sprintf("10.0.0.%d", i), "/render", "POST")
	}
	l.mu.Lock()
	l.lastAccess["10.0.0.0:POST:/render"] = time.Now().Add(-2 * time.Hour)
	l.mu.Unlock()

	l.cleanupBuckets(time.Now().Add(-time.Hour))

	l.mu.Lock()
	defer l.mu.Unlock()
	assert.Len(t, l.buckets, 2)
	assert.NotContains(t, l.buckets, "10.0.0.0:POST:/render")
}

func TestNewLimiter_NilConfigUsesDefaultLimit(t *testing.T) {
	l := NewLimiter(nil)
	defer l.Stop()

	allowed, info := l.Allow("10.0.0.1", "/submissions", "POST")
	assert.True(t, allowed)
	assert.Equal(t, 1000, info.Limit)
	assert.Equal(t, 999, info.Remaining)
}

func TestLimiter_StopIsIdempotent(t *testing.T) {
	l := NewLimiter(nil)
	l.Stop()
	assert.NotPanics(t, l.Stop)
}
