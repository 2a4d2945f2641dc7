package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/jonathan/forgecv/internal/types"
)

// TokenStore persists the hosted tier session.
type TokenStore interface {
	Tokens(ctx context.Context) (access, refresh string, err error)
	SaveTokens(ctx context.Context, access, refresh string) error
}

// ErrNotLoggedIn is returned when no hosted session exists.
var ErrNotLoggedIn = errors.New("not signed in to the free tier: run `forgecv login` or add your own API key")

// expirySkew refreshes tokens that expire within this window before using them.
const expirySkew = 30 * time.Second

// HostedClient calls the free tier proxy.
type HostedClient struct {
	baseURL string
	http    *http.Client
	tokens  TokenStore
	now     func() time.Time

	mu        sync.Mutex
	lastUsage *types.Usage
}

// NewHostedClient creates a client for the proxy at baseURL.
func NewHostedClient(baseURL string, tokens TokenStore) *HostedClient {
	return &HostedClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
		tokens:  tokens,
		now:     time.Now,
	}
}

// WithHTTPClient replaces the HTTP client (tests use httptest clients).
func (h *HostedClient) WithHTTPClient(c *http.Client) *HostedClient {
	h.http = c
	return h
}

// LastUsage returns the usage reported by the most recent successful call.
func (h *HostedClient) LastUsage() *types.Usage {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lastUsage
}

// Generate implements Generator. A 401 triggers one refresh and one retry.
func (h *HostedClient) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	if opts.ActionID == "" {
		opts.ActionID = uuid.NewString()
	}
	if opts.TaskType == "" {
		opts.TaskType = TaskDefault
	}
	if opts.TimeoutBudget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.TimeoutBudget)
		defer cancel()
	}

	token, err := h.validToken(ctx)
	if err != nil {
		return "", err
	}

	body, err := json.Marshal(types.GenerateRequest{
		Prompt:     prompt,
		TaskType:   string(opts.TaskType),
		ExpectJSON: opts.ExpectJSON,
		ActionID:   opts.ActionID,
	})
	if err != nil {
		return "", err
	}

	status, respBody, err := h.post(ctx, "/api/ai/generate", token, body)
	if err != nil {
		return "", h.transportError(ctx, opts.TimeoutBudget, err)
	}
	if status == http.StatusUnauthorized {
		token, err = h.refresh(ctx)
		if err != nil {
			return "", err
		}
		status, respBody, err = h.post(ctx, "/api/ai/generate", token, body)
		if err != nil {
			return "", h.transportError(ctx, opts.TimeoutBudget, err)
		}
		if status == http.StatusUnauthorized {
			return "", &AuthError{Provider: ProviderHosted, Message: "session expired, sign in again"}
		}
	}

	return h.decodeGenerate(status, respBody)
}

func (h *HostedClient) decodeGenerate(status int, body []byte) (string, error) {
	switch {
	case status == http.StatusOK:
		var resp types.GenerateResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return "", &ServerUnavailableError{Message: "malformed response from the free AI server", Cause: err}
		}
		if resp.Usage != nil {
			h.mu.Lock()
			h.lastUsage = resp.Usage
			h.mu.Unlock()
		}
		return resp.Result, nil
	case status == http.StatusTooManyRequests:
		var resp types.ErrorResponse
		_ = json.Unmarshal(body, &resp)
		usage := types.Usage{Remaining: 0}
		if resp.Usage != nil {
			usage = *resp.Usage
		}
		return "", &DailyLimitError{Usage: usage}
	case status == http.StatusGatewayTimeout:
		return "", &TimeoutError{Cause: &StatusError{Provider: ProviderHosted, Code: status, Body: string(body)}}
	case status == http.StatusForbidden:
		return "", &AuthError{Provider: ProviderHosted, Message: "access denied by the free AI server"}
	case status == http.StatusPaymentRequired:
		return "", &BillingError{Provider: ProviderHosted}
	case status >= 500:
		return "", &ServerUnavailableError{Cause: &StatusError{Provider: ProviderHosted, Code: status, Body: string(body)}}
	default:
		return "", &StatusError{Provider: ProviderHosted, Code: status, Body: string(body)}
	}
}

func (h *HostedClient) transportError(ctx context.Context, budget time.Duration, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) && budget > 0 {
		return &TimeoutError{Budget: budget, Cause: err}
	}
	return &ServerUnavailableError{Cause: err}
}

// validToken returns the stored access token, refreshing it first when it is about to expire.
func (h *HostedClient) validToken(ctx context.Context) (string, error) {
	if h.tokens == nil {
		return "", ErrNotLoggedIn
	}
	access, refresh, err := h.tokens.Tokens(ctx)
	if err != nil {
		return "", err
	}
	if access == "" && refresh == "" {
		return "", ErrNotLoggedIn
	}
	if access == "" || h.expiresSoon(access) {
		if refresh == "" {
			return "", &AuthError{Provider: ProviderHosted, Message: "session expired, sign in again"}
		}
		return h.refresh(ctx)
	}
	return access, nil
}

// expiresSoon reads the exp claim without verifying the signature; the server verifies.
func (h *HostedClient) expiresSoon(token string) bool {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return false
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return claims.ExpiresAt.Time.Before(h.now().Add(expirySkew))
}

func (h *HostedClient) refresh(ctx context.Context) (string, error) {
	_, refreshToken, err := h.tokens.Tokens(ctx)
	if err != nil {
		return "", err
	}
	if refreshToken == "" {
		return "", &AuthError{Provider: ProviderHosted, Message: "session expired, sign in again"}
	}
	body, err := json.Marshal(types.RefreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return "", err
	}
	status, respBody, err := h.post(ctx, "/api/auth/refresh", "", body)
	if err != nil {
		return "", &ServerUnavailableError{Cause: err}
	}
	if status != http.StatusOK {
		if status >= 500 {
			return "", &ServerUnavailableError{Cause: &StatusError{Provider: ProviderHosted, Code: status}}
		}
		return "", &AuthError{Provider: ProviderHosted, Message: fmt.Sprintf("token refresh failed (HTTP %d), sign in again", status)}
	}
	var pair types.TokenPair
	if err := json.Unmarshal(respBody, &pair); err != nil || pair.AccessToken == "" {
		return "", &AuthError{Provider: ProviderHosted, Message: "token refresh returned no token", Cause: err}
	}
	if pair.RefreshToken == "" {
		pair.RefreshToken = refreshToken
	}
	if err := h.tokens.SaveTokens(ctx, pair.AccessToken, pair.RefreshToken); err != nil {
		return "", err
	}
	return pair.AccessToken, nil
}

// Login signs in with email and password and stores the returned session.
func (h *HostedClient) Login(ctx context.Context, email, password string) (*types.LoginResponse, error) {
	return h.authenticate(ctx, "/api/auth/login", types.LoginRequest{Email: email, Password: password})
}

// Register creates an account and stores the returned session.
func (h *HostedClient) Register(ctx context.Context, req types.CreateUserRequest) (*types.LoginResponse, error) {
	return h.authenticate(ctx, "/api/auth/register", req)
}

func (h *HostedClient) authenticate(ctx context.Context, path string, payload any) (*types.LoginResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	status, respBody, err := h.post(ctx, path, "", body)
	if err != nil {
		return nil, &ServerUnavailableError{Cause: err}
	}
	if status != http.StatusOK && status != http.StatusCreated {
		var resp types.ErrorResponse
		_ = json.Unmarshal(respBody, &resp)
		msg := resp.Message
		if msg == "" {
			msg = resp.Error
		}
		return nil, &StatusError{Provider: ProviderHosted, Code: status, Body: msg}
	}
	var resp types.LoginResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, err
	}
	if h.tokens != nil {
		if err := h.tokens.SaveTokens(ctx, resp.AccessToken, resp.RefreshToken); err != nil {
			return nil, err
		}
	}
	return &resp, nil
}

// UsageStatus fetches the current daily allowance.
func (h *HostedClient) UsageStatus(ctx context.Context) (*types.Usage, error) {
	token, err := h.validToken(ctx)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.baseURL+"/api/usage/status", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := h.http.Do(req)
	if err != nil {
		return nil, &ServerUnavailableError{Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Provider: ProviderHosted, Code: resp.StatusCode}
	}
	var usage types.Usage
	if err := json.NewDecoder(resp.Body).Decode(&usage); err != nil {
		return nil, err
	}
	return &usage, nil
}

func (h *HostedClient) post(ctx context.Context, path, token string, body []byte) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := h.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, respBody, nil
}
