package llm

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"
)

// Generator is the single contract the rest of the system uses to talk to a model.
type Generator interface {
	Generate(ctx context.Context, prompt string, opts Options) (string, error)
}

// Backend pairs a provider with its model chains.
type Backend struct {
	Completer Completer
	Chains    Chains
}

// Cascade runs the chain of each backend in order.
type Cascade struct {
	Backends []Backend
	// SkipOnAuth moves to the next backend on an auth or billing failure instead of aborting.
	// The hosted proxy enables it since a bad server key is not the caller's to fix.
	SkipOnAuth bool
	Options    ChainOptions
}

// Generate implements Generator.
func (c *Cascade) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	if len(c.Backends) == 0 {
		return "", ErrNoProviders
	}
	chainOpts := c.Options.normalize()
	if opts.TimeoutBudget > 0 {
		chainOpts.TotalBudget = opts.TimeoutBudget
	}
	task := opts.TaskType
	if task == "" {
		task = TaskDefault
	}

	// One budget for the whole cascade; each chain sees what is left of it.
	budgetCtx, cancel := context.WithTimeout(ctx, chainOpts.TotalBudget)
	defer cancel()

	var attempts []Attempt
	for _, b := range c.Backends {
		models := b.Chains.For(task)
		if len(models) == 0 {
			continue
		}
		text, err := RunChain(budgetCtx, b.Completer, models, prompt, opts.ExpectJSON, chainOpts)
		if err == nil {
			return text, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if budgetCtx.Err() != nil {
			return "", &TimeoutError{Budget: chainOpts.TotalBudget, Cause: err}
		}

		var timeout *TimeoutError
		if errors.As(err, &timeout) {
			return "", err
		}
		var auth *AuthError
		var billing *BillingError
		if (errors.As(err, &auth) || errors.As(err, &billing)) && !c.SkipOnAuth {
			return "", err
		}
		var exhausted *ChainExhaustedError
		if errors.As(err, &exhausted) {
			attempts = append(attempts, exhausted.Attempts...)
		} else {
			attempts = append(attempts, Attempt{Provider: b.Completer.Name(), Err: err})
		}
		chainOpts.Logger.Warn("provider failed, trying next", "provider", b.Completer.Name(), "error", err)
	}
	return "", &ChainExhaustedError{Attempts: attempts}
}

// Close releases providers that hold resources.
func (c *Cascade) Close() error {
	var errs []error
	for _, b := range c.Backends {
		if closer, ok := b.Completer.(io.Closer); ok {
			errs = append(errs, closer.Close())
		}
	}
	return errors.Join(errs...)
}

// Mode selects where requests go first.
type Mode string

// Modes.
const (
	ModeFree Mode = "free"
	ModeBYOK Mode = "byok"
)

// Gateway applies the hosted/BYOK policy on top of the hosted client and the BYOK cascade.
type Gateway struct {
	mode   Mode
	hosted Generator
	byok   *Cascade
	budget time.Duration
	logger *slog.Logger
}

// GatewayOption configures a Gateway.
type GatewayOption func(*Gateway)

// WithHosted sets the hosted tier client.
func WithHosted(g Generator) GatewayOption {
	return func(gw *Gateway) { gw.hosted = g }
}

// WithBYOK sets the personal key cascade.
func WithBYOK(c *Cascade) GatewayOption {
	return func(gw *Gateway) { gw.byok = c }
}

// WithTotalTimeout sets the default budget of a Generate call.
func WithTotalTimeout(d time.Duration) GatewayOption {
	return func(gw *Gateway) { gw.budget = d }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) GatewayOption {
	return func(gw *Gateway) { gw.logger = l }
}

// NewGateway creates a gateway in the given mode.
func NewGateway(mode Mode, opts ...GatewayOption) *Gateway {
	gw := &Gateway{mode: mode, budget: DefaultTotalTimeout, logger: slog.Default()}
	for _, opt := range opts {
		opt(gw)
	}
	return gw
}

// Mode returns the configured mode.
func (g *Gateway) Mode() Mode {
	return g.mode
}

// Close releases the BYOK providers.
func (g *Gateway) Close() error {
	if g.byok == nil {
		return nil
	}
	return g.byok.Close()
}

// HasPersonalKeys reports whether at least one BYOK provider is configured.
func (g *Gateway) HasPersonalKeys() bool {
	return g.byok != nil && len(g.byok.Backends) > 0
}

// Generate sends prompt to a model.
//
// In free mode the hosted tier is tried first. If it fails for any reason the call falls back to
// the personal keys when there are some. Without personal keys a network or 5xx failure becomes
// ServerUnavailableError, while daily limit, auth and timeout errors surface unchanged.
func (g *Gateway) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	if opts.TimeoutBudget <= 0 {
		opts.TimeoutBudget = g.budget
	}

	if g.mode == ModeFree && g.hosted != nil {
		text, err := g.hosted.Generate(ctx, prompt, opts)
		if err == nil {
			return text, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if !g.HasPersonalKeys() {
			return "", hostedFailure(err)
		}
		g.logger.Warn("hosted tier failed, falling back to personal keys", "error", err)
		return g.byok.Generate(ctx, prompt, opts)
	}

	if !g.HasPersonalKeys() {
		if g.hosted != nil {
			// BYOK selected without keys: the hosted tier is still better than nothing.
			text, err := g.hosted.Generate(ctx, prompt, opts)
			if err != nil {
				return "", hostedFailure(err)
			}
			return text, nil
		}
		return "", ErrNoProviders
	}
	return g.byok.Generate(ctx, prompt, opts)
}

func hostedFailure(err error) error {
	var limit *DailyLimitError
	var auth *AuthError
	var timeout *TimeoutError
	var unavailable *ServerUnavailableError
	if errors.Is(err, ErrNotLoggedIn) {
		return err
	}
	switch {
	case errors.As(err, &limit), errors.As(err, &auth), errors.As(err, &timeout), errors.As(err, &unavailable):
		return err
	}
	return &ServerUnavailableError{Cause: err}
}
