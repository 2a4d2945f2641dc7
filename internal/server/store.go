package server

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/forgecv/internal/db"
)

// DBClient is the slice of *db.DB the proxy uses, so handlers can be tested against a fake.
type DBClient interface {
	CreateUser(ctx context.Context, name, email, phone string) (uuid.UUID, error)
	GetUser(ctx context.Context, id uuid.UUID) (*db.User, error)
	GetUserByEmail(ctx context.Context, email string) (*db.User, error)
	CheckEmailExists(ctx context.Context, email string) (bool, error)
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	DeleteUser(ctx context.Context, id uuid.UUID) error

	SaveRefreshToken(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error
	ConsumeRefreshToken(ctx context.Context, tokenHash string, now time.Time) (uuid.UUID, error)

	ChargeAction(ctx context.Context, userID uuid.UUID, actionType, actionID string, limit int, now time.Time) (*db.Charge, error)
	UsageStatus(ctx context.Context, userID uuid.UUID, limit int, now time.Time) (*db.Charge, error)

	InsertFeedback(ctx context.Context, f db.Feedback) error
	InsertClientLog(ctx context.Context, l db.ClientLog) error

	Ping(ctx context.Context) error
}

var _ DBClient = (*db.DB)(nil)
