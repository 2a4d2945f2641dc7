package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonathan/forgecv/internal/fetch"
	"github.com/jonathan/forgecv/internal/ingestion"
	"github.com/jonathan/forgecv/internal/observability"
	"github.com/jonathan/forgecv/internal/rendering"
	"github.com/jonathan/forgecv/internal/storage"
)

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import a resume document as the base resume",
	Long:  "Import extracts the text of a PDF, DOCX, Markdown or plain text resume and turns it into the structured base resume.",
	Args:  cobra.ExactArgs(1),
	RunE:  runImport,
}

var jdCmd = &cobra.Command{
	Use:   "jd",
	Short: "Work with job descriptions",
}

var jdFetchCmd = &cobra.Command{
	Use:   "fetch <url>",
	Short: "Fetch a job posting and make it the current job description",
	Args:  cobra.ExactArgs(1),
	RunE:  runJDFetch,
}

var jdShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the current job description and its analysis",
	RunE:  runJDShow,
}

var versionsCmd = &cobra.Command{
	Use:   "versions",
	Short: "List saved tailored versions",
	RunE:  runVersions,
}

var versionsRestoreCmd = &cobra.Command{
	Use:   "restore <id>",
	Short: "Make a saved version the current tailored resume",
	Args:  cobra.ExactArgs(1),
	RunE:  runVersionsRestore,
}

var versionsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a saved version",
	Args:  cobra.ExactArgs(1),
	RunE:  runVersionsDelete,
}

var versionsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every saved version",
	RunE:  runVersionsClear,
}

var exportCmd = &cobra.Command{
	Use:       "export <html|pdf|tex>",
	Short:     "Render the current resume",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"html", "pdf", "tex"},
	RunE:      runExport,
}

var (
	jdRefresh  bool
	exportOut  string
	exportJSON bool
)

func init() {
	jdFetchCmd.Flags().BoolVar(&jdRefresh, "refresh", false, "Ignore the cached copy of the posting")
	jdCmd.AddCommand(jdFetchCmd, jdShowCmd)

	versionsCmd.Flags().BoolVar(&exportJSON, "json", false, "Print versions as JSON")
	versionsCmd.AddCommand(versionsRestoreCmd, versionsDeleteCmd, versionsClearCmd)

	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Output file (default: stdout)")

	rootCmd.AddCommand(importCmd, jdCmd, versionsCmd, exportCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	return withApp(cmd.Context(), func(a *app) error {
		text, err := ingestion.ExtractFile(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		resume, err := a.orch.ImportProfile(cmd.Context(), text)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Imported base resume for %s: %d experience, %d projects\n",
			resume.Name, len(resume.Experience), len(resume.Projects))
		return nil
	})
}

func runJDFetch(cmd *cobra.Command, args []string) error {
	return withApp(cmd.Context(), func(a *app) error {
		posting, err := fetchPosting(cmd.Context(), a, args[0], jdRefresh)
		if err != nil {
			return err
		}
		if err := storage.NewSession(a.store).SaveJDText(cmd.Context(), posting.Text); err != nil {
			return err
		}
		source := posting.Method
		if posting.FromCache {
			source = "cache"
		}
		title := posting.Title
		if posting.Company != "" {
			title += " @ " + posting.Company
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s (%d chars via %s)\n", strings.TrimSpace(title), len(posting.Text), source)
		return nil
	})
}

func runJDShow(cmd *cobra.Command, _ []string) error {
	return withApp(cmd.Context(), func(a *app) error {
		session := storage.NewSession(a.store)
		text, err := session.JDText(cmd.Context())
		if err != nil {
			return fmt.Errorf("no job description yet: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), fetch.Truncate(text, 2000))
		if analysis, err := session.JDAnalysis(cmd.Context()); err == nil {
			observability.NewPrinter(cmd.OutOrStdout()).PrintJDAnalysis(analysis)
		}
		return nil
	})
}

func runVersions(cmd *cobra.Command, _ []string) error {
	return withApp(cmd.Context(), func(a *app) error {
		versions, err := a.orch.History().List(cmd.Context())
		if err != nil {
			return err
		}
		if exportJSON {
			return writeJSON(cmd.OutOrStdout(), versions)
		}
		observability.NewPrinter(cmd.OutOrStdout()).PrintVersions(versions)
		return nil
	})
}

func runVersionsRestore(cmd *cobra.Command, args []string) error {
	return withApp(cmd.Context(), func(a *app) error {
		v, err := a.orch.History().Restore(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		notifyWorkspace(cmd.Context(), a.cfg.WorkspaceAddr, v.Resume)
		fmt.Fprintf(cmd.OutOrStdout(), "Restored %s (%s)\n", v.ID, v.JDTitle)
		return nil
	})
}

func runVersionsDelete(cmd *cobra.Command, args []string) error {
	return withApp(cmd.Context(), func(a *app) error {
		return a.orch.History().Delete(cmd.Context(), args[0])
	})
}

func runVersionsClear(cmd *cobra.Command, _ []string) error {
	return withApp(cmd.Context(), func(a *app) error {
		return a.orch.History().Clear(cmd.Context())
	})
}

func runExport(cmd *cobra.Command, args []string) error {
	return withApp(cmd.Context(), func(a *app) error {
		resume, err := a.orch.CurrentResume(cmd.Context())
		if err != nil {
			return err
		}
		format, err := storage.NewSession(a.store).FormatSettings(cmd.Context())
		if err != nil {
			return err
		}

		var out []byte
		switch args[0] {
		case "html":
			html, err := rendering.RenderHTML(resume, format)
			if err != nil {
				return err
			}
			out = []byte(html)
		case "tex":
			tex, err := rendering.RenderLaTeX(resume, format)
			if err != nil {
				return err
			}
			out = []byte(tex)
		case "pdf":
			if exportOut == "" {
				return fmt.Errorf("--out is required for pdf")
			}
			out, err = rendering.NewPDFRenderer(rendering.WithExecPath(a.cfg.ChromePath)).RenderResume(cmd.Context(), resume, format)
			if err != nil {
				return err
			}
		}

		if exportOut == "" {
			_, err = cmd.OutOrStdout().Write(out)
			return err
		}
		if err := os.WriteFile(exportOut, out, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", exportOut, err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s\n", exportOut)
		return nil
	})
}
