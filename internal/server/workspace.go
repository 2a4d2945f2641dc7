package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/jonathan/forgecv/internal/bullets"
	"github.com/jonathan/forgecv/internal/ingestion"
	"github.com/jonathan/forgecv/internal/pipeline"
	"github.com/jonathan/forgecv/internal/rendering"
	"github.com/jonathan/forgecv/internal/storage"
	"github.com/jonathan/forgecv/internal/syncproto"
	"github.com/jonathan/forgecv/internal/types"
)

// workspaceSender is the sync sender id of the server itself.
const workspaceSender = "workspace"

// PDFPrinter renders a resume to PDF.
type PDFPrinter interface {
	RenderResume(ctx context.Context, r *types.Resume, f types.FormatSettings) ([]byte, error)
}

// WorkspaceDeps are the collaborators of the local workspace server.
type WorkspaceDeps struct {
	Orchestrator *pipeline.Orchestrator
	Printer      PDFPrinter
	Logger       *slog.Logger
	// CheckOrigin overrides the sync hub's origin check. Nil allows local origins only.
	CheckOrigin func(r *http.Request) bool
}

// Workspace is the local server behind the editor and the live preview. It exposes the
// orchestrator over HTTP and keeps the views in sync through the hub.
type Workspace struct {
	orch     *pipeline.Orchestrator
	session  *storage.Session
	history  *storage.History
	printer  PDFPrinter
	hub      *syncproto.Hub
	view     *syncproto.View
	presence *syncproto.Presence
	logger   *slog.Logger
	handler  http.Handler

	broadcast  *syncproto.Debouncer
	persist    *syncproto.Debouncer
	pdfContent *syncproto.Debouncer
	pdfFormat  *syncproto.Debouncer

	mu      sync.Mutex
	draft   *types.Resume // editor content not yet persisted
	preview cachedPreview
}

type cachedPreview struct {
	hash string
	pdf  []byte
}

// NewWorkspace wires the workspace routes.
func NewWorkspace(deps WorkspaceDeps) *Workspace {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ws := &Workspace{
		orch:       deps.Orchestrator,
		session:    deps.Orchestrator.Session(),
		history:    deps.Orchestrator.History(),
		printer:    deps.Printer,
		view:       syncproto.NewView(workspaceSender),
		presence:   syncproto.NewPresence(),
		logger:     logger,
		broadcast:  syncproto.NewDebouncer(syncproto.BroadcastDelay),
		persist:    syncproto.NewDebouncer(syncproto.PersistDelay),
		pdfContent: syncproto.NewDebouncer(syncproto.PDFContentDelay),
		pdfFormat:  syncproto.NewDebouncer(syncproto.PDFFormatDelay),
	}
	hubOpts := []syncproto.HubOption{syncproto.WithHandler(ws.onSync), syncproto.WithHubLogger(logger)}
	if deps.CheckOrigin != nil {
		hubOpts = append(hubOpts, syncproto.WithCheckOrigin(deps.CheckOrigin))
	}
	ws.hub = syncproto.NewHub(hubOpts...)

	mux := http.NewServeMux()
	mux.Handle("GET /sync/ws", ws.hub)
	mux.HandleFunc("POST /tailor/stream", ws.handleTailor)
	mux.HandleFunc("POST /regenerate/stream", ws.handleRegenerate)
	mux.HandleFunc("POST /analyze", ws.handleAnalyze)
	mux.HandleFunc("POST /ask", ws.handleAsk)
	mux.HandleFunc("POST /import", ws.handleImport)
	mux.HandleFunc("GET /resume", ws.handleGetResume)
	mux.HandleFunc("PUT /resume", ws.handlePutResume)
	mux.HandleFunc("PUT /inclusion", ws.handleInclusion)
	mux.HandleFunc("GET /preview.pdf", ws.handlePreviewPDF)
	mux.HandleFunc("GET /preview.html", ws.handlePreviewHTML)
	mux.HandleFunc("GET /resume.tex", ws.handleLaTeX)
	mux.HandleFunc("GET /format", ws.handleGetFormat)
	mux.HandleFunc("PUT /format", ws.handlePutFormat)
	mux.HandleFunc("GET /versions", ws.handleListVersions)
	mux.HandleFunc("POST /versions/{id}/restore", ws.handleRestoreVersion)
	mux.HandleFunc("DELETE /versions/{id}", ws.handleDeleteVersion)
	mux.HandleFunc("GET /insights", ws.handleInsights)
	mux.HandleFunc("GET /exclusions", ws.handleExclusions)
	mux.HandleFunc("GET /health", ws.handleHealth)

	ws.handler = withLogging(logger, mux)
	return ws
}

// ServeHTTP implements http.Handler.
func (ws *Workspace) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws.handler.ServeHTTP(w, r)
}

// Run serves on addr until ctx is cancelled. Pending editor content is persisted on the way out.
func (ws *Workspace) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:        addr,
		Handler:     ws,
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 120 * time.Second,
	}
	go ws.heartbeat(ctx, syncproto.HeartbeatInterval)
	err := serve(ctx, srv, ws.logger)
	ws.Close()
	return err
}

// heartbeat tells connected views the workspace is alive every interval until ctx ends.
func (ws *Workspace) heartbeat(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ws.hub.Len() == 0 {
				continue
			}
			env, _ := syncproto.NewEnvelope(syncproto.TypeHeartbeat, ws.view.ID(), nil)
			if err := ws.hub.Broadcast(env); err != nil {
				ws.logger.Debug("sending heartbeat", "error", err)
			}
		}
	}
}

// Close flushes the pending save and disconnects every view.
func (ws *Workspace) Close() {
	ws.persist.Flush()
	ws.broadcast.Stop()
	ws.pdfContent.Stop()
	ws.pdfFormat.Stop()
	ws.hub.Close() //nolint:errcheck
}

// onSync applies content sent by a view. Editor content is persisted after the user stops
// typing; both content and format changes refresh the preview. A resume update from another
// process (the CLI after a tailor run) is already stored and replaces any unsaved editor draft.
// Every message counts as contact from its sender.
func (ws *Workspace) onSync(env syncproto.Envelope) {
	if env.Sender != ws.view.ID() {
		ws.presence.Seen(env.Sender)
	}
	if !ws.view.Accept(env) || env.Payload == nil {
		return
	}
	switch env.Type {
	case syncproto.TypeEditorResumeUpdate:
		if env.Payload.Resume == nil {
			return
		}
		resume := env.Payload.Resume
		ws.mu.Lock()
		ws.draft = resume
		ws.mu.Unlock()
		ws.persist.Trigger(func() { ws.saveDraft(resume) })
		ws.pdfContent.Trigger(ws.refreshPreview)
	case syncproto.TypeResumeUpdate:
		ws.persist.Stop()
		ws.mu.Lock()
		ws.draft = nil
		ws.mu.Unlock()
		ws.pdfContent.Trigger(ws.refreshPreview)
	case syncproto.TypeFormatUpdate:
		if env.Payload.Format == nil {
			return
		}
		f := *env.Payload.Format
		if err := f.Validate(); err != nil {
			ws.logger.Debug("ignoring invalid format update", "error", err)
			return
		}
		if err := ws.session.SaveFormatSettings(context.Background(), f); err != nil {
			ws.logger.Warn("saving format settings", "error", err)
			return
		}
		ws.pdfFormat.Trigger(ws.refreshPreview)
	}
}

func (ws *Workspace) saveDraft(resume *types.Resume) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := ws.orch.SaveEditor(ctx, resume); err != nil {
		ws.logger.Warn("persisting editor content", "error", err)
		return
	}
	ws.mu.Lock()
	if ws.draft == resume {
		ws.draft = nil
	}
	ws.mu.Unlock()
}

// publish sends resume to every view once the burst of changes settles.
func (ws *Workspace) publish(resume *types.Resume) {
	ws.persist.Stop()
	ws.mu.Lock()
	ws.draft = nil
	ws.mu.Unlock()

	ws.broadcast.Trigger(func() {
		env, err := syncproto.NewEnvelope(syncproto.TypeResumeUpdate, ws.view.ID(), &syncproto.Payload{Resume: resume})
		if err != nil {
			ws.logger.Warn("building sync message", "error", err)
			return
		}
		ws.view.Applied(env)
		if err := ws.hub.Broadcast(env); err != nil {
			ws.logger.Warn("broadcasting resume", "error", err)
		}
	})
	ws.pdfContent.Trigger(ws.refreshPreview)
}

// refreshPreview renders the current state and tells the views a new PDF is ready.
func (ws *Workspace) refreshPreview() {
	if ws.printer == nil || ws.hub.Len() == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), rendering.DefaultPDFTimeout)
	defer cancel()
	if _, err := ws.renderPreview(ctx); err != nil {
		ws.logger.Warn("rendering preview", "error", err)
		return
	}
	env, _ := syncproto.NewEnvelope(syncproto.TypePreviewReady, ws.view.ID(), nil)
	ws.hub.Broadcast(env) //nolint:errcheck
}

// current returns the unsaved draft, else the stored tailored or base resume.
func (ws *Workspace) current(ctx context.Context) (*types.Resume, error) {
	ws.mu.Lock()
	draft := ws.draft
	ws.mu.Unlock()
	if draft != nil {
		return draft, nil
	}
	return ws.orch.CurrentResume(ctx)
}

func (ws *Workspace) renderPreview(ctx context.Context) ([]byte, error) {
	resume, err := ws.current(ctx)
	if err != nil {
		return nil, err
	}
	format, err := ws.session.FormatSettings(ctx)
	if err != nil {
		return nil, err
	}
	hash, err := syncproto.Hash(&syncproto.Payload{Resume: resume, Format: &format})
	if err != nil {
		return nil, err
	}

	ws.mu.Lock()
	if ws.preview.hash == hash {
		pdf := ws.preview.pdf
		ws.mu.Unlock()
		return pdf, nil
	}
	ws.mu.Unlock()

	pdf, err := ws.printer.RenderResume(ctx, resume, format)
	if err != nil {
		return nil, err
	}
	ws.mu.Lock()
	ws.preview = cachedPreview{hash: hash, pdf: pdf}
	ws.mu.Unlock()
	return pdf, nil
}

type tailorBody struct {
	JDText       string `json:"jd_text"`
	Strategy     string `json:"strategy"`
	Pages        int    `json:"pages"`
	SkipStrategy bool   `json:"skip_strategy"`
}

type regenerateBody struct {
	Editor       *types.Resume  `json:"editor"`
	BulletCounts bullets.Counts `json:"bullet_counts"`
	Strategy     string         `json:"strategy"`
	Pages        int            `json:"pages"`
	Replan       bool           `json:"replan"`
}

func (ws *Workspace) handleTailor(w http.ResponseWriter, r *http.Request) {
	var body tailorBody
	if !decodeJSON(w, r, &body) {
		return
	}
	ws.stream(w, r, func(ctx context.Context, progress pipeline.ProgressCallback) (*pipeline.Result, error) {
		return ws.orch.Tailor(ctx, pipeline.TailorRequest{
			JDText:       body.JDText,
			Strategy:     strategyOf(body.Strategy),
			Pages:        body.Pages,
			SkipStrategy: body.SkipStrategy,
			OnProgress:   progress,
		})
	})
}

func (ws *Workspace) handleRegenerate(w http.ResponseWriter, r *http.Request) {
	var body regenerateBody
	if !decodeJSON(w, r, &body) {
		return
	}
	ws.stream(w, r, func(ctx context.Context, progress pipeline.ProgressCallback) (*pipeline.Result, error) {
		return ws.orch.Regenerate(ctx, pipeline.RegenerateRequest{
			Editor:       body.Editor,
			BulletCounts: body.BulletCounts,
			Strategy:     strategyOf(body.Strategy),
			Pages:        body.Pages,
			Replan:       body.Replan,
			OnProgress:   progress,
		})
	})
}

// stream runs a tailoring action with its progress sent as SSE. A busy orchestrator is
// reported before the stream starts.
func (ws *Workspace) stream(w http.ResponseWriter, r *http.Request, run func(context.Context, pipeline.ProgressCallback) (*pipeline.Result, error)) {
	if ws.orch.Guard().Running(pipeline.ActionTailor) || ws.orch.Guard().Running(pipeline.ActionRegenerate) {
		failure(w, r, pipeline.ErrBusy)
		return
	}
	sse, err := NewSSEWriter(w)
	if err != nil {
		errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	var actionID string
	result, err := run(r.Context(), func(ev pipeline.ProgressEvent) {
		actionID = ev.ActionID
		sse.Progress(ev)
	})
	if err != nil {
		sse.WriteError(err)
		sse.WriteComplete(actionID, string(pipeline.StateError))
		return
	}
	sse.WriteEvent("result", result) //nolint:errcheck
	sse.WriteComplete(result.ActionID, string(pipeline.StateDone))
	ws.publish(result.Resume)
}

func (ws *Workspace) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	report, err := ws.orch.Analyze(r.Context(), nil)
	if err != nil {
		failure(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, report)
}

func (ws *Workspace) handleAsk(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Question string `json:"question"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.Question == "" {
		failure(w, r, &ErrValidation{Field: "question", Message: "required"})
		return
	}
	answer, err := ws.orch.Ask(r.Context(), body.Question)
	if err != nil {
		failure(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, answer)
}

// handleImport accepts a resume document as the "file" form field and makes it the base resume.
func (ws *Workspace) handleImport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, ingestion.MaxDocumentBytes+1<<20)
	file, header, err := r.FormFile("file")
	if err != nil {
		failure(w, r, &ErrValidation{Field: "file", Message: err.Error()})
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		failure(w, r, &ErrValidation{Field: "file", Message: err.Error()})
		return
	}

	text, err := ingestion.ExtractText(r.Context(), data, header.Filename)
	if err != nil {
		failure(w, r, err)
		return
	}
	resume, err := ws.orch.ImportProfile(r.Context(), text)
	if err != nil {
		failure(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, resume)
}

func (ws *Workspace) handleGetResume(w http.ResponseWriter, r *http.Request) {
	resume, err := ws.current(r.Context())
	if err != nil {
		failure(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, resume)
}

func (ws *Workspace) handlePutResume(w http.ResponseWriter, r *http.Request) {
	var resume types.Resume
	if !decodeJSON(w, r, &resume) {
		return
	}
	saved, err := ws.orch.SaveEditor(r.Context(), &resume)
	if err != nil {
		failure(w, r, err)
		return
	}
	ws.publish(saved)
	jsonResponse(w, http.StatusOK, saved)
}

func (ws *Workspace) handleInclusion(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Section string `json:"section"`
		Name    string `json:"name"`
		Include bool   `json:"include"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if err := ws.orch.SetInclusion(r.Context(), body.Section, body.Name, body.Include); err != nil {
		failure(w, r, &ErrValidation{Field: "inclusion", Message: err.Error()})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (ws *Workspace) handlePreviewPDF(w http.ResponseWriter, r *http.Request) {
	if ws.printer == nil {
		errorResponse(w, http.StatusNotImplemented, "PDF rendering is not configured")
		return
	}
	pdf, err := ws.renderPreview(r.Context())
	if err != nil {
		failure(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(pdf) //nolint:errcheck
}

func (ws *Workspace) handlePreviewHTML(w http.ResponseWriter, r *http.Request) {
	ws.writeRendered(w, r, "text/html; charset=utf-8", rendering.RenderHTML)
}

func (ws *Workspace) handleLaTeX(w http.ResponseWriter, r *http.Request) {
	ws.writeRendered(w, r, "application/x-tex; charset=utf-8", rendering.RenderLaTeX)
}

func (ws *Workspace) writeRendered(w http.ResponseWriter, r *http.Request, contentType string, render func(*types.Resume, types.FormatSettings) (string, error)) {
	resume, err := ws.current(r.Context())
	if err != nil {
		failure(w, r, err)
		return
	}
	format, err := ws.session.FormatSettings(r.Context())
	if err != nil {
		failure(w, r, err)
		return
	}
	out, err := render(resume, format)
	if err != nil {
		failure(w, r, err)
		return
	}
	w.Header().Set("Content-Type", contentType)
	io.WriteString(w, out) //nolint:errcheck
}

func (ws *Workspace) handleGetFormat(w http.ResponseWriter, r *http.Request) {
	f, err := ws.session.FormatSettings(r.Context())
	if err != nil {
		failure(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, f)
}

func (ws *Workspace) handlePutFormat(w http.ResponseWriter, r *http.Request) {
	f := types.DefaultFormatSettings()
	if !decodeJSON(w, r, &f) {
		return
	}
	if err := f.Validate(); err != nil {
		failure(w, r, &ErrValidation{Field: "format", Message: err.Error()})
		return
	}
	if err := ws.session.SaveFormatSettings(r.Context(), f); err != nil {
		failure(w, r, err)
		return
	}
	env, err := syncproto.NewEnvelope(syncproto.TypeFormatUpdate, ws.view.ID(), &syncproto.Payload{Format: &f})
	if err == nil {
		ws.view.Applied(env)
		ws.hub.Broadcast(env) //nolint:errcheck
	}
	ws.pdfFormat.Trigger(ws.refreshPreview)
	jsonResponse(w, http.StatusOK, f)
}

func (ws *Workspace) handleListVersions(w http.ResponseWriter, r *http.Request) {
	versions, err := ws.history.List(r.Context())
	if err != nil {
		failure(w, r, err)
		return
	}
	if versions == nil {
		versions = []types.ResumeVersion{}
	}
	jsonResponse(w, http.StatusOK, versions)
}

func (ws *Workspace) handleRestoreVersion(w http.ResponseWriter, r *http.Request) {
	v, err := ws.history.Restore(r.Context(), r.PathValue("id"))
	if err != nil {
		failure(w, r, err)
		return
	}
	ws.publish(v.Resume)
	jsonResponse(w, http.StatusOK, v)
}

func (ws *Workspace) handleDeleteVersion(w http.ResponseWriter, r *http.Request) {
	if err := ws.history.Delete(r.Context(), r.PathValue("id")); err != nil {
		failure(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (ws *Workspace) handleInsights(w http.ResponseWriter, r *http.Request) {
	insights, err := ws.orch.Insights(r.Context())
	if err != nil {
		failure(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, insights)
}

// handleExclusions returns the base items the editor's current content leaves out, including an
// unsaved draft.
func (ws *Workspace) handleExclusions(w http.ResponseWriter, r *http.Request) {
	resume, err := ws.current(r.Context())
	if err != nil {
		failure(w, r, err)
		return
	}
	items, err := ws.orch.NotIncluded(r.Context(), resume)
	if err != nil {
		failure(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]any{"not_included": items})
}

func (ws *Workspace) handleHealth(w http.ResponseWriter, r *http.Request) {
	_, err := ws.session.BaseResume(r.Context())
	switch {
	case err == nil, errors.Is(err, storage.ErrNotFound):
	default:
		ws.logger.WarnContext(r.Context(), "health check failed", "error", err)
		jsonResponse(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	jsonResponse(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"views":    ws.hub.Len(),
		"has_base": err == nil,
		"sync":     ws.presence.Statuses(),
	})
}

func strategyOf(s string) types.TailoringStrategy {
	if s == "" {
		return ""
	}
	return types.ParseTailoringStrategy(s)
}
