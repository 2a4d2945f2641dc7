package ratelimit

import (
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(t *testing.T, cfg *Config) (*Limiter, *time.Time) {
	t.Helper()
	cfg.CleanupInterval = 0
	l := NewLimiter(cfg)
	t.Cleanup(l.Stop)
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return clock }
	return l, &clock
}

func TestLimiter_EndpointLimit(t *testing.T) {
	l, clock := newTestLimiter(t, &Config{
		Enabled:       true,
		DefaultLimit:  1000,
		DefaultWindow: time.Minute,
		EndpointConfigs: []EndpointConfig{
			{Path: "/api/ai/generate", Method: "POST", Limit: 60, Window: time.Hour, Burst: 3},
		},
	})

	for i := 0; i < 3; i++ {
		allowed, info := l.Allow("10.0.0.1", "/api/ai/generate", "POST")
		require.True(t, allowed, "request %d", i+1)
		assert.Equal(t, 60, info.Limit)
		assert.Equal(t, 2-i, info.Remaining)
	}

	allowed, info := l.Allow("10.0.0.1", "/api/ai/generate", "POST")
	assert.False(t, allowed)
	assert.Equal(t, time.Minute, info.RetryAfter)
	assert.True(t, info.ResetTime.After(*clock))

	// another client has its own bucket
	allowed, _ = l.Allow("10.0.0.2", "/api/ai/generate", "POST")
	assert.True(t, allowed)

	// one token refills per minute at 60/hour
	*clock = clock.Add(time.Minute)
	allowed, _ = l.Allow("10.0.0.1", "/api/ai/generate", "POST")
	assert.True(t, allowed)

	// unmatched endpoints use the default limit
	allowed, info = l.Allow("10.0.0.1", "/api/usage/status", "GET")
	assert.True(t, allowed)
	assert.Equal(t, 1000, info.Limit)
}

func TestLimiter_Lists(t *testing.T) {
	l, _ := newTestLimiter(t, &Config{
		Enabled:       true,
		DefaultLimit:  1,
		DefaultWindow: time.Hour,
		Whitelist:     map[string]bool{"10.0.0.9": true},
		Blacklist:     map[string]bool{"10.0.0.66": true},
	})

	for i := 0; i < 5; i++ {
		allowed, _ := l.Allow("10.0.0.9", "/api/log", "POST")
		assert.True(t, allowed)
	}
	allowed, _ := l.Allow("10.0.0.66", "/health", "GET")
	assert.False(t, allowed)
}

func TestLimiter_DisabledAndHealth(t *testing.T) {
	l, _ := newTestLimiter(t, &Config{Enabled: false})
	allowed, info := l.Allow("10.0.0.1", "/api/ai/generate", "POST")
	assert.True(t, allowed)
	assert.Zero(t, info.Limit)

	l, _ = newTestLimiter(t, &Config{Enabled: true, DefaultLimit: 1, DefaultWindow: time.Hour})
	for i := 0; i < 10; i++ {
		allowed, _ := l.Allow("10.0.0.1", "/health", "GET")
		assert.True(t, allowed)
	}
}

func TestLimiter_Concurrent(t *testing.T) {
	l, _ := newTestLimiter(t, &Config{Enabled: true, DefaultLimit: 50, DefaultWindow: time.Hour})

	var allowedCount atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := l.Allow("10.0.0.1", "/api/feedback", "POST"); ok {
				allowedCount.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(50), allowedCount.Load())
}

func TestLimiter_EvictIdle(t *testing.T) {
	l, clock := newTestLimiter(t, &Config{Enabled: true, DefaultLimit: 10, DefaultWindow: time.Minute})
	l.Allow("10.0.0.1", "/a", "GET")
	*clock = clock.Add(2 * time.Hour)
	l.Allow("10.0.0.2", "/a", "GET")

	assert.Equal(t, 1, l.evictIdle(clock.Add(-idleAfter)))
	assert.Len(t, l.buckets, 1)
	l.Stop()
	l.Stop()
}

func TestMatchEndpoint(t *testing.T) {
	configs := DefaultEndpointConfigs()

	cfg := MatchEndpoint("/api/ai/generate", "POST", configs)
	require.NotNil(t, cfg)
	assert.Equal(t, "/api/ai/generate", cfg.Path)

	assert.Nil(t, MatchEndpoint("/api/ai/generate", "GET", configs))
	assert.Nil(t, MatchEndpoint("/api/usage/status", "GET", configs))

	health := MatchEndpoint("/health", "GET", configs)
	require.NotNil(t, health)
	assert.Zero(t, health.Limit)

	prefixed := MatchEndpoint("/api/versions/abc", "DELETE", []EndpointConfig{{Path: "/api/versions/", Method: "DELETE", Limit: 3}})
	require.NotNil(t, prefixed)
	assert.Equal(t, 3, prefixed.Limit)
}

func TestMatchEndpoint_MostSpecificRouteWins(t *testing.T) {
	configs := []EndpointConfig{
		{Path: "/api/", Method: "POST", Limit: 100},
		{Path: "/api/auth/", Method: "POST", Limit: 10},
		{Path: "/api/auth/login", Method: "POST", Limit: 5},
	}

	tests := []struct {
		name   string
		path   string
		method string
		want   int
	}{
		{"exact path beats prefixes", "/api/auth/login", "POST", 5},
		{"longest prefix", "/api/auth/register", "POST", 10},
		{"broad prefix", "/api/feedback", "POST", 100},
		{"method must match", "/api/auth/login", "GET", -1},
		{"prefix needs trailing slash on the route", "/apiary", "POST", -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := MatchEndpoint(tt.path, tt.method, configs)
			if tt.want < 0 {
				assert.Nil(t, cfg)
				return
			}
			require.NotNil(t, cfg)
			assert.Equal(t, tt.want, cfg.Limit)
		})
	}
}

func TestMatchEndpoint_HealthIsUnlimitedAndCopied(t *testing.T) {
	cfg := MatchEndpoint("/health", "GET", nil)
	require.NotNil(t, cfg)
	cfg.Limit = 1

	again := MatchEndpoint("/health", "GET", nil)
	require.NotNil(t, again)
	assert.Zero(t, again.Limit)
	assert.Nil(t, MatchEndpoint("/health", "POST", nil))
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("RATE_LIMIT_ENABLED", "true")
	t.Setenv("RATE_LIMIT_DEFAULT_LIMIT", "42")
	t.Setenv("RATE_LIMIT_WHITELIST", "10.0.0.1, 10.0.0.2")
	cfg := LoadConfig()
	assert.True(t, cfg.Enabled)
	assert.Equal(t, 42, cfg.DefaultLimit)
	assert.True(t, cfg.Whitelist["10.0.0.2"])
	assert.NotEmpty(t, cfg.EndpointConfigs)

	t.Setenv("RATE_LIMIT_ENABLED", "false")
	assert.False(t, LoadConfig().Enabled)
}

func TestClientID(t *testing.T) {
	req := httptest.NewRequest("GET", "/api/fetch-jd", nil)
	req.RemoteAddr = "192.0.2.7:53211"
	req.Header.Set("X-Forwarded-For", "203.0.113.5, 10.0.0.1")

	assert.Equal(t, "192.0.2.7", ClientID(req))

	t.Setenv("RATE_LIMIT_TRUST_FORWARDED", "true")
	assert.Equal(t, "203.0.113.5", ClientID(req))

	req.Header.Del("X-Forwarded-For")
	req.RemoteAddr = "pipe"
	assert.Equal(t, "pipe", ClientID(req))
}
