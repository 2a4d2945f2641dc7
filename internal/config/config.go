// Package config assembles forgecv settings from the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Auth modes.
const (
	AuthModeFree = "free"
	AuthModeBYOK = "byok"
)

// Defaults.
const (
	DefaultProxyURL      = "http://localhost:8081"
	DefaultWorkspaceAddr = "localhost:8080"
	DefaultModelTimeout  = 10 * time.Second
	DefaultTotalTimeout  = 90 * time.Second
)

// ProviderKeyEnv maps BYOK provider names to the variables holding their keys.
var ProviderKeyEnv = map[string]string{
	"gemini":     "GEMINI_API_KEY",
	"groq":       "GROQ_API_KEY",
	"cerebras":   "CEREBRAS_API_KEY",
	"mistral":    "MISTRAL_API_KEY",
	"openrouter": "OPENROUTER_API_KEY",
}

var validate = validator.New()

// Config holds the settings shared by the CLI, the workspace server and the MCP server.
type Config struct {
	DataDir           string            `validate:"required"`
	AuthMode          string            `validate:"oneof=free byok"`
	ProxyURL          string            `validate:"required,url"`
	AccessToken       string            `validate:"-"`
	RefreshToken      string            `validate:"-"`
	ProviderKeys      map[string]string `validate:"-"`
	PreferredProvider string            `validate:"omitempty,oneof=gemini groq cerebras mistral openrouter"`
	ModelTimeout      time.Duration     `validate:"gt=0"`
	TotalTimeout      time.Duration     `validate:"gtefield=ModelTimeout"`
	LogLevel          string            `validate:"oneof=debug info warn warning error"`
	LogFormat         string            `validate:"oneof=text json"`
	WorkspaceAddr     string            `validate:"required,hostname_port"`
	ChromePath        string            `validate:"-"`
}

// Load reads Config from the environment and validates it.
func Load() (*Config, error) {
	modelTimeout, err := envDuration("FORGECV_MODEL_TIMEOUT", DefaultModelTimeout)
	if err != nil {
		return nil, err
	}
	totalTimeout, err := envDuration("FORGECV_TOTAL_TIMEOUT", DefaultTotalTimeout)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		DataDir:           envString("FORGECV_DATA_DIR", defaultDataDir()),
		AuthMode:          strings.ToLower(envString("FORGECV_AUTH_MODE", AuthModeFree)),
		ProxyURL:          strings.TrimRight(envString("FORGECV_PROXY_URL", DefaultProxyURL), "/"),
		AccessToken:       os.Getenv("FORGECV_ACCESS_TOKEN"),
		RefreshToken:      os.Getenv("FORGECV_REFRESH_TOKEN"),
		PreferredProvider: strings.ToLower(os.Getenv("FORGECV_PROVIDER")),
		ModelTimeout:      modelTimeout,
		TotalTimeout:      totalTimeout,
		LogLevel:          strings.ToLower(envString("LOG_LEVEL", "info")),
		LogFormat:         strings.ToLower(envString("LOG_FORMAT", "text")),
		WorkspaceAddr:     envString("FORGECV_WORKSPACE_ADDR", DefaultWorkspaceAddr),
		ChromePath:        os.Getenv("CHROME_PATH"),
	}
	cfg.ProviderKeys = providerKeys()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// HasProviderKeys reports whether any BYOK key is configured.
func (c *Config) HasProviderKeys() bool {
	return len(c.ProviderKeys) > 0
}

func providerKeys() map[string]string {
	keys := make(map[string]string)
	for provider, env := range ProviderKeyEnv {
		if key := strings.TrimSpace(os.Getenv(env)); key != "" {
			keys[provider] = key
		}
	}
	return keys
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".forgecv"
	}
	return filepath.Join(home, ".forgecv")
}

func envString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

// envDuration accepts Go durations ("45s") or a bare number of seconds.
func envDuration(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
