package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jonathan/forgecv/internal/config"
	"github.com/jonathan/forgecv/internal/db"
	"github.com/jonathan/forgecv/internal/llm"
	"github.com/jonathan/forgecv/internal/server/middleware"
	"github.com/jonathan/forgecv/internal/server/ratelimit"
	"github.com/jonathan/forgecv/internal/types"
)

// JobFetcher fetches a job posting by URL.
type JobFetcher interface {
	JobPosting(ctx context.Context, url string) (*types.JobPosting, error)
}

// ProxyDeps are the collaborators of the hosted proxy.
type ProxyDeps struct {
	DB         DBClient
	Generator  llm.Generator
	Fetcher    JobFetcher
	JWT        *config.JWTConfig
	Password   *config.PasswordConfig
	DailyLimit int
	RateLimit  *ratelimit.Config
	Logger     *slog.Logger
}

// Proxy is the hosted tier's HTTP server: accounts, the daily action ledger and AI generation
// with the operator's provider keys.
type Proxy struct {
	db         DBClient
	generator  llm.Generator
	fetcher    JobFetcher
	jwt        *JWTService
	auth       *AuthHandler
	limiter    *ratelimit.Limiter
	dailyLimit int
	logger     *slog.Logger
	now        func() time.Time
	handler    http.Handler
}

// NewProxy wires the proxy routes.
func NewProxy(deps ProxyDeps) *Proxy {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	limit := deps.DailyLimit
	if limit <= 0 {
		limit = config.DefaultDailyActionLimit
	}

	jwtService := NewJWTService(deps.JWT)
	tokens := NewTokenService(jwtService, deps.DB, deps.JWT.RefreshTTL())
	users := NewUserService(deps.DB, deps.Password)
	users.logger = logger
	p := &Proxy{
		db:         deps.DB,
		generator:  deps.Generator,
		fetcher:    deps.Fetcher,
		jwt:        jwtService,
		auth:       NewAuthHandler(users, tokens),
		limiter:    ratelimit.NewLimiter(deps.RateLimit),
		dailyLimit: limit,
		logger:     logger,
		now:        time.Now,
	}

	authed := middleware.AuthMiddleware(jwtService.AsTokenValidator())

	mux := http.NewServeMux()
	mux.Handle("/api/auth/register", allowMethod(http.MethodPost, http.HandlerFunc(p.auth.Register)))
	mux.Handle("/api/auth/login", allowMethod(http.MethodPost, http.HandlerFunc(p.auth.Login)))
	mux.Handle("/api/auth/refresh", allowMethod(http.MethodPost, http.HandlerFunc(p.auth.Refresh)))
	mux.Handle("/api/auth/password", allowMethod(http.MethodPost, authed(http.HandlerFunc(p.auth.UpdatePassword))))
	mux.Handle("/api/usage/status", allowMethod(http.MethodGet, authed(http.HandlerFunc(p.handleUsageStatus))))
	mux.Handle("/api/ai/generate", allowMethod(http.MethodPost, authed(http.HandlerFunc(p.handleGenerate))))
	mux.Handle("/api/fetch-jd", allowMethod(http.MethodGet, http.HandlerFunc(p.handleFetchJD)))
	mux.Handle("/api/feedback", allowMethod(http.MethodPost, authed(http.HandlerFunc(p.handleFeedback))))
	mux.Handle("/api/log", allowMethod(http.MethodPost, http.HandlerFunc(p.handleLog)))
	mux.HandleFunc("GET /health", p.handleHealth)

	p.handler = withRateLimit(p.limiter, withLogging(logger, withCORS(mux)))
	return p
}

// ServeHTTP implements http.Handler.
func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.handler.ServeHTTP(w, r)
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (p *Proxy) Run(ctx context.Context, addr string) error {
	defer p.limiter.Stop()
	srv := &http.Server{
		Addr:         addr,
		Handler:      p,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second, // covers the full provider cascade
		IdleTimeout:  60 * time.Second,
	}
	return serve(ctx, srv, p.logger)
}

// serve runs srv until ctx is done.
func serve(ctx context.Context, srv *http.Server, logger *slog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

func (p *Proxy) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := p.db.Ping(r.Context()); err != nil {
		p.logger.WarnContext(r.Context(), "health check failed", "error", err)
		jsonResponse(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	handleHealth(w, r)
}

func (p *Proxy) handleUsageStatus(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	charge, err := p.db.UsageStatus(r.Context(), userID, p.dailyLimit, p.now())
	if err != nil {
		p.logger.ErrorContext(r.Context(), "usage status", "error", err)
		errorResponse(w, http.StatusInternalServerError, "Failed to read usage")
		return
	}
	jsonResponse(w, http.StatusOK, usageOf(charge))
}

func (p *Proxy) handleGenerate(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	var req types.GenerateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		errorResponse(w, http.StatusBadRequest, "Missing required field: prompt")
		return
	}

	ctx := r.Context()
	task := llm.ParseTaskType(req.TaskType)
	charge, err := p.db.ChargeAction(ctx, userID, string(task), req.ActionID, p.dailyLimit, p.now())
	if err != nil {
		p.logger.ErrorContext(ctx, "charging action", "user_id", userID, "error", err)
		errorResponse(w, http.StatusInternalServerError, "Failed to record usage")
		return
	}
	usage := usageOf(charge)
	if !charge.Allowed {
		jsonResponse(w, http.StatusTooManyRequests, types.ErrorResponse{
			Error:   "Daily action limit exceeded",
			Message: fmt.Sprintf("You have used all %d actions for today.", charge.Limit),
			Usage:   usage,
		})
		return
	}

	result, err := p.generator.Generate(ctx, req.Prompt, llm.Options{
		TaskType:   task,
		ExpectJSON: req.ExpectJSON,
		ActionID:   req.ActionID,
	})
	if err != nil {
		p.logger.WarnContext(ctx, "generation failed", "task", task, "action_id", req.ActionID, "error", err)
		var timeout *llm.TimeoutError
		if errors.As(err, &timeout) || errors.Is(err, context.DeadlineExceeded) {
			errorResponse(w, http.StatusGatewayTimeout, "AI request timeout")
			return
		}
		// provider auth failures stay 500: a 401 here would make the client refresh its session
		jsonResponse(w, http.StatusInternalServerError, types.ErrorResponse{
			Error:   "AI generation failed",
			Message: err.Error(),
		})
		return
	}
	p.logger.InfoContext(ctx, "generated", "task", task, "charged", charge.Charged, "used", charge.Used)
	jsonResponse(w, http.StatusOK, types.GenerateResponse{Result: result, Usage: usage})
}

func (p *Proxy) handleFetchJD(w http.ResponseWriter, r *http.Request) {
	target := strings.TrimSpace(r.URL.Query().Get("url"))
	if target == "" {
		errorResponse(w, http.StatusBadRequest, "Missing content URL")
		return
	}
	if p.fetcher == nil {
		errorResponse(w, http.StatusNotImplemented, "Job fetching is disabled")
		return
	}
	posting, err := p.fetcher.JobPosting(r.Context(), target)
	if err != nil {
		failure(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, posting)
}

func usageOf(c *db.Charge) *types.Usage {
	resets := c.ResetsAt
	return &types.Usage{
		Used:      c.Used,
		Remaining: c.Remaining(),
		Limit:     c.Limit,
		ResetsAt:  &resets,
	}
}
