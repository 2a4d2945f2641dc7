package llm

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jonathan/forgecv/internal/types"
)

// ErrNoProviders is returned when no BYOK provider has a key configured.
var ErrNoProviders = errors.New("no AI provider configured: add an API key in settings")

// AuthError reports a rejected key or session. It is never retried with another model.
type AuthError struct {
	Provider Provider
	Message  string
	Cause    error
}

func (e *AuthError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "authentication failed, check your API key"
	}
	return fmt.Sprintf("%s: %s", e.Provider, msg)
}

func (e *AuthError) Unwrap() error {
	return e.Cause
}

// BillingError reports a provider that requires payment (HTTP 402).
type BillingError struct {
	Provider Provider
	Message  string
	Cause    error
}

func (e *BillingError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "payment required, check your plan or add your own key"
	}
	return fmt.Sprintf("%s: %s", e.Provider, msg)
}

func (e *BillingError) Unwrap() error {
	return e.Cause
}

// TimeoutError reports that the total budget of a call ran out.
type TimeoutError struct {
	Budget time.Duration
	Cause  error
}

func (e *TimeoutError) Error() string {
	if e.Budget <= 0 {
		return "AI request timed out, try again in a moment"
	}
	return fmt.Sprintf("AI request timed out after %s, try again in a moment", e.Budget)
}

func (e *TimeoutError) Unwrap() error {
	return e.Cause
}

// ModelTimeoutError reports one model exceeding its per-call timeout. The chain moves on.
type ModelTimeoutError struct {
	Provider Provider
	Model    string
	Timeout  time.Duration
}

func (e *ModelTimeoutError) Error() string {
	return fmt.Sprintf("%s/%s did not answer within %s", e.Provider, e.Model, e.Timeout)
}

// StatusError is a non-2xx provider response.
type StatusError struct {
	Provider Provider
	Model    string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	body := e.Body
	if len(body) > 200 {
		body = body[:200]
	}
	if body == "" {
		return fmt.Sprintf("%s/%s returned HTTP %d", e.Provider, e.Model, e.Code)
	}
	return fmt.Sprintf("%s/%s returned HTTP %d: %s", e.Provider, e.Model, e.Code, body)
}

// ServerUnavailableError reports the hosted proxy being unreachable or failing with 5xx.
type ServerUnavailableError struct {
	Message string
	Cause   error
}

func (e *ServerUnavailableError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "the free AI server is unavailable, add your own API key to continue"
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *ServerUnavailableError) Unwrap() error {
	return e.Cause
}

// DailyLimitError reports that the hosted daily allowance is spent.
type DailyLimitError struct {
	Usage types.Usage
}

func (e *DailyLimitError) Error() string {
	msg := fmt.Sprintf("daily free limit reached (%d actions)", e.Usage.Limit)
	if e.Usage.ResetsAt != nil {
		msg += fmt.Sprintf(", resets at %s", e.Usage.ResetsAt.UTC().Format(time.RFC3339))
	}
	return msg + "; add your own API key to keep going"
}

// Attempt records one model call of a chain.
type Attempt struct {
	Provider Provider
	Model    string
	Err      error
	Duration time.Duration
}

// ChainExhaustedError reports that every model of every chain failed.
type ChainExhaustedError struct {
	Attempts []Attempt
}

func (e *ChainExhaustedError) Error() string {
	if len(e.Attempts) == 0 {
		return "all AI models failed"
	}
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, fmt.Sprintf("%s/%s: %v", a.Provider, a.Model, a.Err))
	}
	return "all AI models failed: " + strings.Join(parts, "; ")
}

// Unwrap exposes the last failure.
func (e *ChainExhaustedError) Unwrap() error {
	if len(e.Attempts) == 0 {
		return nil
	}
	return e.Attempts[len(e.Attempts)-1].Err
}

// IsFatal reports whether err must abort a user action without falling back.
func IsFatal(err error) bool {
	var auth *AuthError
	var billing *BillingError
	var timeout *TimeoutError
	return errors.As(err, &auth) || errors.As(err, &billing) || errors.As(err, &timeout)
}
