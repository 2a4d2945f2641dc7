package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/jonathan/forgecv/internal/db"
	"github.com/jonathan/forgecv/internal/fetch"
	"github.com/jonathan/forgecv/internal/ingestion"
	"github.com/jonathan/forgecv/internal/llm"
	"github.com/jonathan/forgecv/internal/pipeline"
	"github.com/jonathan/forgecv/internal/storage"
	"github.com/jonathan/forgecv/internal/syncproto"
)

func TestErrorMessages(t *testing.T) {
	userID := uuid.New()
	assert.Equal(t, "email already registered: test@example.com", (&ErrEmailAlreadyExists{Email: "test@example.com"}).Error())
	assert.Equal(t, "invalid email or password", (&ErrInvalidCredentials{}).Error())
	assert.Equal(t, "user not found: "+userID.String(), (&ErrUserNotFound{UserID: userID}).Error())
	assert.Equal(t, "current password is incorrect", (&ErrPasswordMismatch{}).Error())
	assert.Equal(t, "validation error: email - invalid format", (&ErrValidation{Field: "email", Message: "invalid format"}).Error())
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"email exists", &ErrEmailAlreadyExists{}, http.StatusConflict},
		{"busy", fmt.Errorf("tailor: %w", pipeline.ErrBusy), http.StatusConflict},
		{"bad credentials", &ErrInvalidCredentials{}, http.StatusUnauthorized},
		{"refresh reuse", db.ErrRefreshTokenInvalid, http.StatusUnauthorized},
		{"not logged in", llm.ErrNotLoggedIn, http.StatusUnauthorized},
		{"user not found", &ErrUserNotFound{}, http.StatusNotFound},
		{"version not found", fmt.Errorf("version x: %w", storage.ErrNotFound), http.StatusNotFound},
		{"validation", &ErrValidation{}, http.StatusBadRequest},
		{"envelope", &syncproto.EnvelopeError{Message: "bad"}, http.StatusBadRequest},
		{"invalid url", &fetch.InvalidURLError{}, http.StatusBadRequest},
		{"no jd", pipeline.ErrNoJobDescription, http.StatusBadRequest},
		{"blocked host", &fetch.BlockedError{Host: "10.0.0.1"}, http.StatusForbidden},
		{"no base", pipeline.ErrNoBaseResume, http.StatusPreconditionFailed},
		{"no tailored", pipeline.ErrNoTailoredResume, http.StatusPreconditionFailed},
		{"daily limit", &llm.DailyLimitError{}, http.StatusTooManyRequests},
		{"timeout", &llm.TimeoutError{}, http.StatusGatewayTimeout},
		{"deadline", context.DeadlineExceeded, http.StatusGatewayTimeout},
		{"billing", &llm.BillingError{}, http.StatusPaymentRequired},
		{"provider auth", &llm.AuthError{}, http.StatusFailedDependency},
		{"no providers", llm.ErrNoProviders, http.StatusFailedDependency},
		{"unavailable", &llm.ServerUnavailableError{}, http.StatusBadGateway},
		{"fetch failed", &fetch.Error{URL: "https://example.com"}, http.StatusBadGateway},
		{"unsupported document", &ingestion.UnsupportedFormatError{Format: "odt"}, http.StatusUnsupportedMediaType},
		{"empty document", &ingestion.ExtractError{Format: "pdf"}, http.StatusUnprocessableEntity},
		{"extraction", &pipeline.ExtractionError{}, http.StatusUnprocessableEntity},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}
