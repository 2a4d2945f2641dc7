package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/forgecv/internal/types"
)

type memTokens struct {
	mu      sync.Mutex
	access  string
	refresh string
}

func (m *memTokens) Tokens(context.Context) (string, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.access, m.refresh, nil
}

func (m *memTokens) SaveTokens(_ context.Context, access, refresh string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.access, m.refresh = access, refresh
	return nil
}

func signed(t *testing.T, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return tok
}

func TestHostedClient_SuccessPassesActionID(t *testing.T) {
	var got types.GenerateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/ai/generate", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(types.GenerateResponse{Result: "ok!", Usage: &types.Usage{Remaining: 14, Limit: 15}})
	}))
	defer srv.Close()

	h := NewHostedClient(srv.URL, &memTokens{access: "tok", refresh: "r"})
	text, err := h.Generate(context.Background(), "prompt", Options{TaskType: TaskTailor, ExpectJSON: true, ActionID: "action-1"})
	require.NoError(t, err)
	assert.Equal(t, "ok!", text)
	assert.Equal(t, "action-1", got.ActionID)
	assert.Equal(t, "tailor", got.TaskType)
	assert.True(t, got.ExpectJSON)
	require.NotNil(t, h.LastUsage())
	assert.Equal(t, 14, h.LastUsage().Remaining)
}

func TestHostedClient_GeneratesActionIDWhenMissing(t *testing.T) {
	var got types.GenerateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		_ = json.NewEncoder(w).Encode(types.GenerateResponse{Result: "x"})
	}))
	defer srv.Close()

	_, err := NewHostedClient(srv.URL, &memTokens{access: "tok"}).Generate(context.Background(), "p", Options{})
	require.NoError(t, err)
	assert.NotEmpty(t, got.ActionID)
	assert.Equal(t, "default", got.TaskType)
}

func TestHostedClient_RefreshOnceOn401(t *testing.T) {
	var generateCalls, refreshCalls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/refresh":
			refreshCalls++
			var req types.RefreshRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			assert.Equal(t, "old-refresh", req.RefreshToken)
			_ = json.NewEncoder(w).Encode(types.TokenPair{AccessToken: "new-access", RefreshToken: "new-refresh"})
		case "/api/ai/generate":
			generateCalls++
			if r.Header.Get("Authorization") != "Bearer new-access" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			_ = json.NewEncoder(w).Encode(types.GenerateResponse{Result: "after refresh"})
		}
	}))
	defer srv.Close()

	tokens := &memTokens{access: "stale", refresh: "old-refresh"}
	text, err := NewHostedClient(srv.URL, tokens).Generate(context.Background(), "p", Options{})
	require.NoError(t, err)
	assert.Equal(t, "after refresh", text)
	assert.Equal(t, 2, generateCalls)
	assert.Equal(t, 1, refreshCalls)
	assert.Equal(t, "new-access", tokens.access)
	assert.Equal(t, "new-refresh", tokens.refresh)
}

func TestHostedClient_SecondUnauthorizedIsAuthError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/auth/refresh" {
			_ = json.NewEncoder(w).Encode(types.TokenPair{AccessToken: "still-bad"})
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := NewHostedClient(srv.URL, &memTokens{access: "a", refresh: "r"}).Generate(context.Background(), "p", Options{})
	var authErr *AuthError
	assert.ErrorAs(t, err, &authErr)
}

func TestHostedClient_DailyLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":"Daily action limit exceeded","usage":{"remaining":0,"limit":15,"resetsAt":"2030-01-02T00:00:00Z"}}`))
	}))
	defer srv.Close()

	_, err := NewHostedClient(srv.URL, &memTokens{access: "a"}).Generate(context.Background(), "p", Options{})
	var limit *DailyLimitError
	require.ErrorAs(t, err, &limit)
	assert.Equal(t, 15, limit.Usage.Limit)
	assert.Equal(t, 0, limit.Usage.Remaining)
	require.NotNil(t, limit.Usage.ResetsAt)
}

func TestHostedClient_ServerErrorsAreUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewHostedClient(srv.URL, &memTokens{access: "a"}).Generate(context.Background(), "p", Options{})
	var unavailable *ServerUnavailableError
	assert.ErrorAs(t, err, &unavailable)
}

func TestHostedClient_GatewayTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGatewayTimeout)
	}))
	defer srv.Close()

	_, err := NewHostedClient(srv.URL, &memTokens{access: "a"}).Generate(context.Background(), "p", Options{})
	var timeout *TimeoutError
	assert.ErrorAs(t, err, &timeout)
}

func TestHostedClient_UnreachableIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewHostedClient(url, &memTokens{access: "a"}).Generate(context.Background(), "p", Options{})
	var unavailable *ServerUnavailableError
	assert.ErrorAs(t, err, &unavailable)
}

func TestHostedClient_NotLoggedIn(t *testing.T) {
	_, err := NewHostedClient("http://unused", &memTokens{}).Generate(context.Background(), "p", Options{})
	assert.ErrorIs(t, err, ErrNotLoggedIn)
}

func TestHostedClient_RefreshesExpiringTokenFirst(t *testing.T) {
	fresh := signed(t, time.Now().Add(time.Hour))
	var sawAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/refresh":
			_ = json.NewEncoder(w).Encode(types.TokenPair{AccessToken: fresh, RefreshToken: "r2"})
		default:
			sawAuth = r.Header.Get("Authorization")
			_ = json.NewEncoder(w).Encode(types.GenerateResponse{Result: "ok"})
		}
	}))
	defer srv.Close()

	tokens := &memTokens{access: signed(t, time.Now().Add(5*time.Second)), refresh: "r1"}
	_, err := NewHostedClient(srv.URL, tokens).Generate(context.Background(), "p", Options{})
	require.NoError(t, err)
	assert.Equal(t, "Bearer "+fresh, sawAuth)
	assert.Equal(t, "r2", tokens.refresh)
}

func TestHostedClient_LoginStoresTokens(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/auth/login", r.URL.Path)
		_ = json.NewEncoder(w).Encode(types.LoginResponse{AccessToken: "a1", RefreshToken: "r1"})
	}))
	defer srv.Close()

	tokens := &memTokens{}
	resp, err := NewHostedClient(srv.URL, tokens).Login(context.Background(), "a@b.c", "password123")
	require.NoError(t, err)
	assert.Equal(t, "a1", resp.AccessToken)
	assert.Equal(t, "a1", tokens.access)
	assert.Equal(t, "r1", tokens.refresh)
}

func TestHostedClient_UsageStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/usage/status", r.URL.Path)
		_, _ = w.Write([]byte(`{"used":3,"remaining":12,"limit":15}`))
	}))
	defer srv.Close()

	usage, err := NewHostedClient(srv.URL, &memTokens{access: "a"}).UsageStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, usage.Used)
	assert.Equal(t, 12, usage.Remaining)
}
