package llm

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Completer issues a single completion request against one model.
type Completer interface {
	Name() Provider
	Complete(ctx context.Context, model, prompt string, expectJSON bool) (string, error)
}

// ChainOptions bound the time a chain may spend.
type ChainOptions struct {
	PerModelTimeout time.Duration
	TotalBudget     time.Duration
	Logger          *slog.Logger
}

func (o ChainOptions) normalize() ChainOptions {
	if o.PerModelTimeout <= 0 {
		o.PerModelTimeout = DefaultModelTimeout
	}
	if o.TotalBudget <= 0 {
		o.TotalBudget = DefaultTotalTimeout
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// RunChain tries each model in order until one answers.
//
// Rate limits and other failures move on to the next model. 401/403 and 402 abort at once with
// AuthError and BillingError. A 400 in JSON mode is retried once on the same model without JSON
// mode, since some models reject response_format. When the total budget runs out the chain stops
// with TimeoutError. If ctx already carries a deadline the budget applies from inside it.
func RunChain(ctx context.Context, c Completer, models []string, prompt string, expectJSON bool, opts ChainOptions) (string, error) {
	opts = opts.normalize()
	budgetCtx, cancel := context.WithTimeout(ctx, opts.TotalBudget)
	defer cancel()

	var attempts []Attempt
	for _, model := range models {
		if err := budgetCtx.Err(); err != nil {
			return "", budgetError(ctx, opts.TotalBudget, err)
		}

		text, took, err := callModel(budgetCtx, c, model, prompt, expectJSON, opts.PerModelTimeout)
		var status *StatusError
		if err != nil && expectJSON && errors.As(err, &status) && status.Code == http.StatusBadRequest {
			opts.Logger.Debug("retrying without json mode", "provider", c.Name(), "model", model)
			text, took, err = callModel(budgetCtx, c, model, prompt, false, opts.PerModelTimeout)
		}

		if err == nil {
			if strings.TrimSpace(text) != "" {
				opts.Logger.Debug("model answered", "provider", c.Name(), "model", model, "duration", took)
				return text, nil
			}
			err = &StatusError{Provider: c.Name(), Model: model, Code: http.StatusNoContent, Body: "empty response"}
		}
		attempts = append(attempts, Attempt{Provider: c.Name(), Model: model, Err: err, Duration: took})

		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if budgetCtx.Err() != nil {
			return "", budgetError(ctx, opts.TotalBudget, err)
		}

		if errors.As(err, &status) {
			switch status.Code {
			case http.StatusUnauthorized, http.StatusForbidden:
				return "", &AuthError{Provider: c.Name(), Cause: err}
			case http.StatusPaymentRequired:
				return "", &BillingError{Provider: c.Name(), Cause: err}
			case http.StatusTooManyRequests:
				opts.Logger.Warn("model rate limited", "provider", c.Name(), "model", model)
				continue
			}
		}
		var auth *AuthError
		var billing *BillingError
		if errors.As(err, &auth) || errors.As(err, &billing) {
			return "", err
		}
		opts.Logger.Warn("model failed", "provider", c.Name(), "model", model, "duration", took, "error", err)
	}
	return "", &ChainExhaustedError{Attempts: attempts}
}

func callModel(ctx context.Context, c Completer, model, prompt string, expectJSON bool, timeout time.Duration) (string, time.Duration, error) {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	start := time.Now()
	text, err := c.Complete(callCtx, model, prompt, expectJSON)
	took := time.Since(start)
	if err != nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		err = &ModelTimeoutError{Provider: c.Name(), Model: model, Timeout: timeout}
	}
	return text, took, err
}

// budgetError distinguishes the caller giving up from the chain's own budget running out.
func budgetError(parent context.Context, budget time.Duration, cause error) error {
	if parent.Err() != nil {
		return parent.Err()
	}
	return &TimeoutError{Budget: budget, Cause: cause}
}
