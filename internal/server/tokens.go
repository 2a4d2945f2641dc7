package server

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/forgecv/internal/types"
)

// TokenService issues access/refresh token pairs. Access tokens are JWTs; refresh tokens are
// opaque random strings stored only as a sha256 hash and rotated on every use.
type TokenService struct {
	jwt        *JWTService
	db         DBClient
	refreshTTL time.Duration
	now        func() time.Time
}

// NewTokenService creates a TokenService.
func NewTokenService(jwtService *JWTService, db DBClient, refreshTTL time.Duration) *TokenService {
	return &TokenService{jwt: jwtService, db: db, refreshTTL: refreshTTL, now: time.Now}
}

// Issue creates a new token pair for userID.
func (s *TokenService) Issue(ctx context.Context, userID uuid.UUID) (*types.TokenPair, error) {
	access, err := s.jwt.GenerateToken(userID)
	if err != nil {
		return nil, err
	}
	refresh, err := newRefreshToken()
	if err != nil {
		return nil, err
	}
	if err := s.db.SaveRefreshToken(ctx, userID, hashRefreshToken(refresh), s.now().Add(s.refreshTTL)); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}
	return &types.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    s.jwt.ExpiresIn(),
	}, nil
}

// Refresh consumes a refresh token and issues a new pair. A token is accepted at most once.
func (s *TokenService) Refresh(ctx context.Context, refreshToken string) (*types.TokenPair, error) {
	userID, err := s.db.ConsumeRefreshToken(ctx, hashRefreshToken(refreshToken), s.now())
	if err != nil {
		return nil, err
	}
	return s.Issue(ctx, userID)
}

func newRefreshToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate refresh token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func hashRefreshToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
