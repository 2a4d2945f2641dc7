// Package main is the forgecv command line: resume tailoring, the local workspace server, the
// hosted proxy and the MCP server.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/jonathan/forgecv/internal/config"
	"github.com/jonathan/forgecv/internal/observability"
)

var (
	logLevel  string
	logFormat string
)

var rootCmd = &cobra.Command{
	Use:   "forgecv",
	Short: "Tailor a resume to a job description",
	Long: `forgecv rewrites a stored base resume for a specific job posting, scores it against the
posting's keywords and keeps a history of tailored versions. Models are reached through the free
hosted tier or your own provider keys.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		level := logLevel
		if level == "" {
			level = os.Getenv("LOG_LEVEL")
		}
		format := logFormat
		if format == "" {
			format = os.Getenv("LOG_FORMAT")
		}
		observability.SetupLogger(cmd.ErrOrStderr(), level, format)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (default LOG_LEVEL or info)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format: text or json (default LOG_FORMAT or text)")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		slog.Debug("command failed", "error", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the shared configuration, letting the logging flags win over the environment.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if logFormat != "" {
		cfg.LogFormat = logFormat
	}
	return cfg, nil
}
