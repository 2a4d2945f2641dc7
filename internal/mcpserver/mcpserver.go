// Package mcpserver exposes the tailoring workflow as MCP tools over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/jonathan/forgecv/internal/ats"
	"github.com/jonathan/forgecv/internal/pipeline"
	"github.com/jonathan/forgecv/internal/storage"
	"github.com/jonathan/forgecv/internal/types"
)

// Version is reported to MCP clients during initialization.
const Version = "1.0.0"

// New creates an MCP server with every forgecv tool and resource registered.
func New(orch *pipeline.Orchestrator) *server.MCPServer {
	s := server.NewMCPServer(
		"forgecv",
		Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("forgecv tailors the stored base resume to a job description."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("parse_jd",
			mcp.WithDescription("Extract title, company and keyword groups from a job description."),
			mcp.WithString("jd_text", mcp.Description("Full job description text"), mcp.Required()),
		),
		parseJD(orch),
	)

	s.AddTool(
		mcp.NewTool("ats_score",
			mcp.WithDescription("Score the current resume against a job description by keyword coverage."),
			mcp.WithString("jd_text", mcp.Description("Job description text; defaults to the last analyzed one")),
		),
		atsScore(orch),
	)

	s.AddTool(
		mcp.NewTool("tailor",
			mcp.WithDescription("Rewrite the base resume for a job description and save it as a new version."),
			mcp.WithString("jd_text", mcp.Description("Full job description text"), mcp.Required()),
			mcp.WithString("strategy", mcp.Description("profile_focus, jd_focus or balanced (default)")),
			mcp.WithNumber("pages", mcp.Description("Target length in pages, 1 or 2")),
		),
		tailor(orch),
	)

	s.AddTool(
		mcp.NewTool("list_versions",
			mcp.WithDescription("List saved tailored versions, newest first."),
		),
		listVersions(orch),
	)

	s.AddTool(
		mcp.NewTool("restore_version",
			mcp.WithDescription("Make a saved version the current tailored resume."),
			mcp.WithString("id", mcp.Description("Version id from list_versions"), mcp.Required()),
		),
		restoreVersion(orch),
	)

	s.AddResource(
		mcp.NewResource(
			"forgecv://resume",
			"Current Resume",
			mcp.WithResourceDescription("The tailored resume, or the base resume before any tailoring"),
			mcp.WithMIMEType("application/json"),
		),
		currentResume(orch),
	)

	return s
}

// ServeStdio runs the server on stdin/stdout until ctx is done or the client disconnects.
func ServeStdio(ctx context.Context, s *server.MCPServer) error {
	err := server.NewStdioServer(s).Listen(ctx, os.Stdin, os.Stdout)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func parseJD(orch *pipeline.Orchestrator) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		jd, err := req.RequireString("jd_text")
		if err != nil {
			return mcp.NewToolResultError("jd_text is required"), nil
		}
		analysis, err := orch.AnalyzeJD(ctx, jd, "")
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("parse failed: %v", err)), nil
		}
		return jsonResult(analysis)
	}
}

func atsScore(orch *pipeline.Orchestrator) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var (
			analysis *types.JDAnalysis
			err      error
		)
		if jd := req.GetString("jd_text", ""); jd != "" {
			analysis, err = orch.AnalyzeJD(ctx, jd, "")
		} else {
			analysis, err = orch.Session().JDAnalysis(ctx)
			if errors.Is(err, storage.ErrNotFound) {
				return mcp.NewToolResultError("no job description analyzed yet; pass jd_text"), nil
			}
		}
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("analysis failed: %v", err)), nil
		}

		resume, err := orch.CurrentResume(ctx)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(ats.LiveScore(resume, analysis))
	}
}

func tailor(orch *pipeline.Orchestrator) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		jd, err := req.RequireString("jd_text")
		if err != nil {
			return mcp.NewToolResultError("jd_text is required"), nil
		}
		pages := req.GetInt("pages", 0)
		if pages < 0 || pages > 2 {
			return mcp.NewToolResultError("pages must be 1 or 2"), nil
		}

		res, err := orch.Tailor(ctx, pipeline.TailorRequest{
			JDText:   jd,
			Strategy: types.ParseTailoringStrategy(req.GetString("strategy", "")),
			Pages:    pages,
		})
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("tailoring failed: %v", err)), nil
		}
		return jsonResult(res)
	}
}

func listVersions(orch *pipeline.Orchestrator) server.ToolHandlerFunc {
	return func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		versions, err := orch.History().List(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("listing versions: %v", err)), nil
		}

		type versionSummary struct {
			ID        string    `json:"id"`
			Timestamp time.Time `json:"timestamp"`
			JDTitle   string    `json:"jd_title"`
			Company   string    `json:"company,omitempty"`
		}
		out := make([]versionSummary, len(versions))
		for i, v := range versions {
			out[i] = versionSummary{ID: v.ID, Timestamp: v.Timestamp, JDTitle: v.JDTitle, Company: v.Company}
		}
		return jsonResult(out)
	}
}

func restoreVersion(orch *pipeline.Orchestrator) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("id")
		if err != nil {
			return mcp.NewToolResultError("id is required"), nil
		}
		v, err := orch.History().Restore(ctx, id)
		if errors.Is(err, storage.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("version %s not found", id)), nil
		}
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("restore failed: %v", err)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Restored %s (%s at %s)", v.ID, v.JDTitle, v.Company)), nil
	}
}

func currentResume(orch *pipeline.Orchestrator) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		resume, err := orch.CurrentResume(ctx)
		if err != nil {
			return nil, err
		}
		b, err := json.Marshal(resume)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal resume: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(b)), nil
}
