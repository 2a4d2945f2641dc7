package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJWTConfig(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
		access  int
		refresh int
	}{
		{name: "defaults", env: map[string]string{"JWT_SECRET": "s"}, access: 24, refresh: 720},
		{name: "custom", env: map[string]string{"JWT_SECRET": "s", "JWT_EXPIRATION_HOURS": "2", "REFRESH_EXPIRATION_HOURS": "48"}, access: 2, refresh: 48},
		{name: "missing secret", env: map[string]string{}, wantErr: "JWT_SECRET is required"},
		{name: "bad hours", env: map[string]string{"JWT_SECRET": "s", "JWT_EXPIRATION_HOURS": "abc"}, wantErr: "invalid JWT_EXPIRATION_HOURS"},
		{name: "zero hours", env: map[string]string{"JWT_SECRET": "s", "JWT_EXPIRATION_HOURS": "0"}, wantErr: "at least 1 hour"},
		{name: "refresh shorter than access", env: map[string]string{"JWT_SECRET": "s", "REFRESH_EXPIRATION_HOURS": "1"}, wantErr: "REFRESH_EXPIRATION_HOURS"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, key := range []string{"JWT_SECRET", "JWT_EXPIRATION_HOURS", "REFRESH_EXPIRATION_HOURS"} {
				t.Setenv(key, tt.env[key])
			}
			cfg, err := NewJWTConfig()
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.access, cfg.ExpirationHours)
			assert.Equal(t, tt.refresh, cfg.RefreshExpirationHours)
		})
	}
}

func TestNewPasswordConfig(t *testing.T) {
	t.Setenv("BCRYPT_COST", "")
	t.Setenv("PASSWORD_PEPPER", "pep")
	cfg, err := NewPasswordConfig()
	require.NoError(t, err)
	assert.Equal(t, 12, cfg.BcryptCost)
	assert.Equal(t, "pep", cfg.Pepper)

	for _, cost := range []string{"9", "15", "twelve"} {
		t.Setenv("BCRYPT_COST", cost)
		_, err := NewPasswordConfig()
		assert.Error(t, err, cost)
	}
}

func TestHashAndVerifyPassword(t *testing.T) {
	cfg := &PasswordConfig{BcryptCost: 10, Pepper: "pepper"}
	hash, err := cfg.HashPassword("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse", hash)
	assert.True(t, strings.HasPrefix(hash, "$2a$10$"))

	assert.True(t, cfg.VerifyPassword("correct horse", hash))
	assert.False(t, cfg.VerifyPassword("wrong horse", hash))
	assert.False(t, cfg.VerifyPassword("correct horse", "not-a-hash"))

	noPepper := &PasswordConfig{BcryptCost: 10}
	assert.False(t, noPepper.VerifyPassword("correct horse", hash), "pepper is part of the hash")

	other, err := cfg.HashPassword("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, hash, other, "salted")

	_, err = cfg.HashPassword(strings.Repeat("x", 70))
	assert.Error(t, err)
}
