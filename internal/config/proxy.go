package config

import (
	"fmt"
	"os"
)

// DefaultDailyActionLimit is the number of charged AI actions a hosted user gets per UTC day.
const DefaultDailyActionLimit = 15

// ProxyConfig holds the hosted proxy server settings. ProviderKeys are the operator's own keys;
// the proxy answers hosted calls through them.
type ProxyConfig struct {
	Addr             string            `validate:"required,hostname_port"`
	DatabaseURL      string            `validate:"required"`
	DailyActionLimit int               `validate:"gte=1"`
	ProviderKeys     map[string]string `validate:"min=1"`
	JWT              *JWTConfig
	Password         *PasswordConfig
}

// LoadProxy reads ProxyConfig from the environment. Rate limiting has its own loader in
// server/ratelimit.
func LoadProxy() (*ProxyConfig, error) {
	jwtCfg, err := NewJWTConfig()
	if err != nil {
		return nil, err
	}
	pwCfg, err := NewPasswordConfig()
	if err != nil {
		return nil, err
	}
	limit, err := envInt("DAILY_ACTION_LIMIT", DefaultDailyActionLimit)
	if err != nil {
		return nil, err
	}

	cfg := &ProxyConfig{
		Addr:             envString("PROXY_ADDR", ":8081"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		DailyActionLimit: limit,
		ProviderKeys:     providerKeys(),
		JWT:              jwtCfg,
		Password:         pwCfg,
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid proxy configuration: %w", err)
	}
	return cfg, nil
}
