package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jonathan/forgecv/internal/config"
	"github.com/jonathan/forgecv/internal/db"
	"github.com/jonathan/forgecv/internal/fetch"
	"github.com/jonathan/forgecv/internal/llm"
	"github.com/jonathan/forgecv/internal/mcpserver"
	"github.com/jonathan/forgecv/internal/rendering"
	"github.com/jonathan/forgecv/internal/server"
	"github.com/jonathan/forgecv/internal/server/ratelimit"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local workspace server",
	Long: `Start the local workspace server: the HTTP API behind the editor and preview views, the
sync channel at /sync/ws and PDF previews.`,
	RunE: runServe,
}

var proxyCmd = &cobra.Command{
	Use:   "proxy",
	Short: "Start the hosted free tier proxy",
	Long: `Start the hosted proxy: accounts, the daily action ledger and AI generation through the
operator's provider keys. Requires DATABASE_URL, JWT_SECRET and at least one provider key.`,
	RunE: runProxy,
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve forgecv tools over MCP on stdio",
	RunE:  runMCP,
}

var (
	serveAddr   string
	proxyAddr   string
	skipMigrate bool
)

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default FORGECV_WORKSPACE_ADDR or localhost:8080)")
	proxyCmd.Flags().StringVar(&proxyAddr, "addr", "", "Listen address (default PROXY_ADDR or :8081)")
	proxyCmd.Flags().BoolVar(&skipMigrate, "skip-migrate", false, "Do not apply database migrations on start")

	rootCmd.AddCommand(serveCmd, proxyCmd, mcpCmd)
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	return withApp(ctx, func(a *app) error {
		addr := serveAddr
		if addr == "" {
			addr = a.cfg.WorkspaceAddr
		}
		ws := server.NewWorkspace(server.WorkspaceDeps{
			Orchestrator: a.orch,
			Printer:      rendering.NewPDFRenderer(rendering.WithExecPath(a.cfg.ChromePath)),
			Logger:       slog.Default(),
		})
		fmt.Fprintf(cmd.ErrOrStderr(), "Workspace listening on http://%s\n", addr)
		return ws.Run(ctx, addr)
	})
}

func runProxy(cmd *cobra.Command, _ []string) error {
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	cfg, err := config.LoadProxy()
	if err != nil {
		return err
	}
	if proxyAddr != "" {
		cfg.Addr = proxyAddr
	}

	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer database.Close()
	if !skipMigrate {
		if err := database.Migrate(ctx); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	cascade, err := llm.NewBYOKCascade(ctx, providerKeys(cfg.ProviderKeys), "", llm.ChainOptions{Logger: slog.Default()})
	if err != nil {
		return err
	}
	defer func() { _ = cascade.Close() }()
	// A failing operator key moves on to the next provider instead of failing the user's action.
	cascade.SkipOnAuth = true

	proxy := server.NewProxy(server.ProxyDeps{
		DB:         database,
		Generator:  cascade,
		Fetcher:    fetch.NewFetcher(),
		JWT:        cfg.JWT,
		Password:   cfg.Password,
		DailyLimit: cfg.DailyActionLimit,
		RateLimit:  ratelimit.LoadConfig(),
		Logger:     slog.Default(),
	})
	slog.Info("proxy starting", "addr", cfg.Addr, "providers", len(cascade.Backends), "daily_limit", cfg.DailyActionLimit)
	return proxy.Run(ctx, cfg.Addr)
}

func runMCP(cmd *cobra.Command, _ []string) error {
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	return withApp(ctx, func(a *app) error {
		slog.Info("MCP server started (stdio transport)")
		return mcpserver.ServeStdio(ctx, mcpserver.New(a.orch))
	})
}
