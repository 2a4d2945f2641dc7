package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jonathan/forgecv/internal/config"
	"github.com/jonathan/forgecv/internal/llm"
	"github.com/jonathan/forgecv/internal/pipeline"
	"github.com/jonathan/forgecv/internal/storage"
)

// app is the local state every workspace command runs against.
type app struct {
	cfg     *config.Config
	store   *storage.SQLiteStore
	hosted  *llm.HostedClient
	gateway *llm.Gateway
	orch    *pipeline.Orchestrator
}

// openApp opens the workspace database and builds the model gateway from the configuration.
func openApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	store, err := storage.Open(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open workspace: %w", err)
	}
	session := storage.NewSession(store)
	if cfg.AccessToken != "" && cfg.RefreshToken != "" {
		if err := session.SaveTokens(ctx, cfg.AccessToken, cfg.RefreshToken); err != nil {
			_ = store.Close()
			return nil, err
		}
	}

	chainOpts := llm.ChainOptions{
		PerModelTimeout: cfg.ModelTimeout,
		TotalBudget:     cfg.TotalTimeout,
		Logger:          slog.Default(),
	}
	cascade, err := llm.NewBYOKCascade(ctx, providerKeys(cfg.ProviderKeys), llm.Provider(cfg.PreferredProvider), chainOpts)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	hosted := llm.NewHostedClient(cfg.ProxyURL, session)
	gateway := llm.NewGateway(llm.Mode(cfg.AuthMode),
		llm.WithHosted(hosted),
		llm.WithBYOK(cascade),
		llm.WithTotalTimeout(cfg.TotalTimeout),
		llm.WithLogger(slog.Default()),
	)

	return &app{
		cfg:     cfg,
		store:   store,
		hosted:  hosted,
		gateway: gateway,
		orch:    pipeline.New(gateway, store, pipeline.WithLogger(slog.Default())),
	}, nil
}

func (a *app) Close() error {
	return errors.Join(a.gateway.Close(), a.store.Close())
}

func providerKeys(keys map[string]string) map[llm.Provider]string {
	out := make(map[llm.Provider]string, len(keys))
	for name, key := range keys {
		out[llm.Provider(name)] = key
	}
	return out
}

// withApp opens the workspace for the duration of fn.
func withApp(ctx context.Context, fn func(*app) error) error {
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			slog.Warn("closing workspace", "error", err)
		}
	}()
	return fn(a)
}
