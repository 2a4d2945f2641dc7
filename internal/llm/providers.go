package llm

import (
	"context"
	"fmt"
)

// NewBYOKCascade builds a cascade over every provider that has a key in keys, in the default
// cascade order. preferred, when set and configured, is moved to the front.
func NewBYOKCascade(ctx context.Context, keys map[Provider]string, preferred Provider, opts ChainOptions) (*Cascade, error) {
	var backends []Backend
	for _, cfg := range DefaultProviders() {
		key := keys[cfg.Provider]
		if key == "" {
			continue
		}
		var (
			c   Completer
			err error
		)
		if cfg.Provider == ProviderGemini {
			c, err = NewGeminiProvider(ctx, key)
		} else {
			c, err = NewOpenAIProvider(cfg, key)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to create %s provider: %w", cfg.Provider, err)
		}
		b := Backend{Completer: c, Chains: cfg.Chains}
		if cfg.Provider == preferred {
			backends = append([]Backend{b}, backends...)
		} else {
			backends = append(backends, b)
		}
	}
	return &Cascade{Backends: backends, Options: opts}, nil
}
