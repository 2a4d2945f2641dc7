package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/jonathan/forgecv/internal/db"
	"github.com/jonathan/forgecv/internal/fetch"
	"github.com/jonathan/forgecv/internal/ingestion"
	"github.com/jonathan/forgecv/internal/llm"
	"github.com/jonathan/forgecv/internal/pipeline"
	"github.com/jonathan/forgecv/internal/storage"
	"github.com/jonathan/forgecv/internal/syncproto"
)

// ErrEmailAlreadyExists indicates email is already registered
type ErrEmailAlreadyExists struct {
	Email string
}

func (e *ErrEmailAlreadyExists) Error() string {
	return fmt.Sprintf("email already registered: %s", e.Email)
}

// ErrInvalidCredentials indicates invalid login credentials
type ErrInvalidCredentials struct{}

func (e *ErrInvalidCredentials) Error() string {
	return "invalid email or password"
}

// ErrUserNotFound indicates user was not found
type ErrUserNotFound struct {
	UserID uuid.UUID
}

func (e *ErrUserNotFound) Error() string {
	return fmt.Sprintf("user not found: %s", e.UserID)
}

// ErrPasswordMismatch indicates current password is incorrect
type ErrPasswordMismatch struct{}

func (e *ErrPasswordMismatch) Error() string {
	return "current password is incorrect"
}

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		emailExists *ErrEmailAlreadyExists
		badCreds    *ErrInvalidCredentials
		mismatch    *ErrPasswordMismatch
		notFound    *ErrUserNotFound
		validation  *ErrValidation
		envelope    *syncproto.EnvelopeError
		invalidURL  *fetch.InvalidURLError
		blocked     *fetch.BlockedError
		fetchErr    *fetch.Error
		timeout     *llm.TimeoutError
		dailyLimit  *llm.DailyLimitError
		authErr     *llm.AuthError
		billing     *llm.BillingError
		unavailable *llm.ServerUnavailableError
		exhausted   *llm.ChainExhaustedError
		extraction  *pipeline.ExtractionError
		unsupported *ingestion.UnsupportedFormatError
		docErr      *ingestion.ExtractError
	)
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &emailExists):
		return http.StatusConflict
	case errors.As(err, &badCreds), errors.As(err, &mismatch),
		errors.Is(err, db.ErrRefreshTokenInvalid), errors.Is(err, llm.ErrNotLoggedIn):
		return http.StatusUnauthorized
	case errors.As(err, &notFound), errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &validation), errors.As(err, &envelope), errors.As(err, &invalidURL),
		errors.Is(err, pipeline.ErrNoJobDescription):
		return http.StatusBadRequest
	case errors.As(err, &blocked):
		return http.StatusForbidden
	case errors.Is(err, pipeline.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, pipeline.ErrNoBaseResume), errors.Is(err, pipeline.ErrNoTailoredResume):
		return http.StatusPreconditionFailed
	case errors.As(err, &dailyLimit):
		return http.StatusTooManyRequests
	case errors.As(err, &timeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &billing):
		return http.StatusPaymentRequired
	case errors.As(err, &authErr), errors.Is(err, llm.ErrNoProviders):
		return http.StatusFailedDependency
	case errors.As(err, &unavailable), errors.As(err, &exhausted), errors.As(err, &fetchErr):
		return http.StatusBadGateway
	case errors.As(err, &unsupported):
		return http.StatusUnsupportedMediaType
	case errors.As(err, &extraction), errors.As(err, &docErr):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
