package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonathan/forgecv/internal/fetch"
	"github.com/jonathan/forgecv/internal/observability"
	"github.com/jonathan/forgecv/internal/pipeline"
	"github.com/jonathan/forgecv/internal/types"
)

var tailorCmd = &cobra.Command{
	Use:   "tailor",
	Short: "Tailor the base resume to a job description",
	Long: `Tailor rewrites the base resume for a job description, post-processes and reconciles the
result, and saves it as a new version. The job description comes from --jd-file, --jd-url, stdin
("-") or, when none is given, the last one used.`,
	RunE: runTailor,
}

var regenerateCmd = &cobra.Command{
	Use:   "regenerate",
	Short: "Re-tailor while keeping editor customizations",
	RunE:  runRegenerate,
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Grade the current tailored resume against the job description",
	RunE:  runAnalyze,
}

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a question about the resume and job description",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

var insightsCmd = &cobra.Command{
	Use:   "insights",
	Short: "Show the local keyword score and what tailoring changed",
	RunE:  runInsights,
}

var (
	tailorJDFile       string
	tailorJDURL        string
	tailorStrategy     string
	tailorPages        int
	tailorSkipStrategy bool
	tailorJSON         bool
	regenerateReplan   bool
)

func init() {
	tailorCmd.Flags().StringVar(&tailorJDFile, "jd-file", "", `Job description text file ("-" for stdin)`)
	tailorCmd.Flags().StringVar(&tailorJDURL, "jd-url", "", "Job posting URL to fetch")
	tailorCmd.Flags().BoolVar(&tailorSkipStrategy, "skip-strategy", false, "Skip the exclusion planning pass")
	tailorCmd.MarkFlagsMutuallyExclusive("jd-file", "jd-url")

	regenerateCmd.Flags().BoolVar(&regenerateReplan, "replan", false, "Run the exclusion planning pass again")

	for _, c := range []*cobra.Command{tailorCmd, regenerateCmd} {
		c.Flags().StringVar(&tailorStrategy, "strategy", "", "profile_focus, jd_focus or balanced (default: saved preference)")
		c.Flags().IntVar(&tailorPages, "pages", 0, "Target length in pages, 1 or 2 (default: saved preference)")
	}
	for _, c := range []*cobra.Command{tailorCmd, regenerateCmd, analyzeCmd, askCmd, insightsCmd} {
		c.Flags().BoolVar(&tailorJSON, "json", false, "Print the result as JSON")
	}

	rootCmd.AddCommand(tailorCmd, regenerateCmd, analyzeCmd, askCmd, insightsCmd)
}

func runTailor(cmd *cobra.Command, _ []string) error {
	if tailorPages < 0 || tailorPages > 2 {
		return fmt.Errorf("--pages must be 1 or 2")
	}
	return withApp(cmd.Context(), func(a *app) error {
		jd, err := readJobDescription(cmd.Context(), cmd.InOrStdin(), a)
		if err != nil {
			return err
		}
		res, err := a.orch.Tailor(cmd.Context(), pipeline.TailorRequest{
			JDText:       jd,
			Strategy:     strategyFlag(),
			Pages:        tailorPages,
			SkipStrategy: tailorSkipStrategy,
			OnProgress:   progressPrinter(cmd.ErrOrStderr()),
		})
		if err != nil {
			return err
		}
		notifyWorkspace(cmd.Context(), a.cfg.WorkspaceAddr, res.Resume)
		return printResult(cmd.OutOrStdout(), a, res)
	})
}

func runRegenerate(cmd *cobra.Command, _ []string) error {
	if tailorPages < 0 || tailorPages > 2 {
		return fmt.Errorf("--pages must be 1 or 2")
	}
	return withApp(cmd.Context(), func(a *app) error {
		res, err := a.orch.Regenerate(cmd.Context(), pipeline.RegenerateRequest{
			Strategy:   strategyFlag(),
			Pages:      tailorPages,
			Replan:     regenerateReplan,
			OnProgress: progressPrinter(cmd.ErrOrStderr()),
		})
		if err != nil {
			return err
		}
		notifyWorkspace(cmd.Context(), a.cfg.WorkspaceAddr, res.Resume)
		return printResult(cmd.OutOrStdout(), a, res)
	})
}

func runAnalyze(cmd *cobra.Command, _ []string) error {
	return withApp(cmd.Context(), func(a *app) error {
		report, err := a.orch.Analyze(cmd.Context(), progressPrinter(cmd.ErrOrStderr()))
		if err != nil {
			return err
		}
		if tailorJSON {
			return writeJSON(cmd.OutOrStdout(), report)
		}
		observability.NewPrinter(cmd.OutOrStdout()).PrintATSReport(report)
		return nil
	})
}

func runAsk(cmd *cobra.Command, args []string) error {
	return withApp(cmd.Context(), func(a *app) error {
		answer, err := a.orch.Ask(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return err
		}
		if tailorJSON {
			return writeJSON(cmd.OutOrStdout(), answer)
		}
		fmt.Fprintln(cmd.OutOrStdout(), answer.Answer)
		return nil
	})
}

func runInsights(cmd *cobra.Command, _ []string) error {
	return withApp(cmd.Context(), func(a *app) error {
		insights, err := a.orch.Insights(cmd.Context())
		if err != nil {
			return err
		}
		if tailorJSON {
			return writeJSON(cmd.OutOrStdout(), insights)
		}
		p := observability.NewPrinter(cmd.OutOrStdout())
		p.PrintLiveScore(insights.Live, insights.Diff, insights.Style)
		p.PrintExclusions(insights.NotIncluded)
		return nil
	})
}

func strategyFlag() types.TailoringStrategy {
	if tailorStrategy == "" {
		return ""
	}
	return types.ParseTailoringStrategy(tailorStrategy)
}

// readJobDescription resolves the job description flags. An empty result tells the pipeline to
// use the stored job description.
func readJobDescription(ctx context.Context, stdin io.Reader, a *app) (string, error) {
	switch {
	case tailorJDURL != "":
		posting, err := fetchPosting(ctx, a, tailorJDURL, false)
		if err != nil {
			return "", err
		}
		return posting.Text, nil
	case tailorJDFile == "-":
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read job description: %w", err)
		}
		return string(data), nil
	case tailorJDFile != "":
		data, err := os.ReadFile(tailorJDFile)
		if err != nil {
			return "", fmt.Errorf("failed to read job description: %w", err)
		}
		return string(data), nil
	}
	return "", nil
}

func fetchPosting(ctx context.Context, a *app, url string, refresh bool) (*fetch.CachedResult, error) {
	cached := fetch.NewCachedFetcher(fetch.NewFetcher(), a.store, 0)
	if refresh {
		if err := cached.Invalidate(ctx, url); err != nil {
			return nil, err
		}
	}
	return cached.JobPosting(ctx, url)
}

func progressPrinter(w io.Writer) pipeline.ProgressCallback {
	last := pipeline.State("")
	return func(ev pipeline.ProgressEvent) {
		if ev.State == last {
			return
		}
		last = ev.State
		fmt.Fprintf(w, "→ %s\n", ev.Message)
	}
}

func printResult(w io.Writer, a *app, res *pipeline.Result) error {
	if tailorJSON {
		return writeJSON(w, res)
	}
	p := observability.NewPrinter(w)
	p.PrintJDAnalysis(res.Analysis)
	p.PrintExclusions(res.Excluded)
	if insights, err := a.orch.Insights(context.Background()); err == nil {
		p.PrintLiveScore(insights.Live, insights.Diff, insights.Style)
	}
	fmt.Fprintf(w, "Saved version %s\n", res.Version.ID)
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
