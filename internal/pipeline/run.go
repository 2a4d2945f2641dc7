package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jonathan/forgecv/internal/bullets"
	"github.com/jonathan/forgecv/internal/llm"
	"github.com/jonathan/forgecv/internal/pipeline/steps"
	"github.com/jonathan/forgecv/internal/prompts"
	"github.com/jonathan/forgecv/internal/reconcile"
	"github.com/jonathan/forgecv/internal/schemas"
	"github.com/jonathan/forgecv/internal/storage"
	"github.com/jonathan/forgecv/internal/types"
)

// TailorRequest holds the inputs of a tailor run. Zero values fall back to the stored
// preferences and job description.
type TailorRequest struct {
	JDText       string
	Strategy     types.TailoringStrategy
	Pages        int
	SkipStrategy bool
	OnProgress   ProgressCallback
}

// RegenerateRequest holds the inputs of a regenerate run.
type RegenerateRequest struct {
	// Editor is the resume as the user currently sees it. Nil means the stored tailored resume.
	Editor *types.Resume
	// BulletCounts are the per-item counts the user asked for. Nil means the editor's counts.
	BulletCounts bullets.Counts
	Strategy     types.TailoringStrategy
	Pages        int
	// Replan runs the strategy pass again before tailoring.
	Replan     bool
	OnProgress ProgressCallback
}

// Result is the outcome of a successful tailor or regenerate run.
type Result struct {
	ActionID string
	Resume   *types.Resume
	Analysis *types.JDAnalysis
	Excluded types.ExcludedItems
	// Strategy is nil when the strategy pass was skipped or failed.
	Strategy *types.Strategy
	Version  types.ResumeVersion
	Steps    []steps.StepResult
}

// run is the state of one tailoring pass, assembled by Tailor or Regenerate.
type run struct {
	action     Action
	actionID   string
	onProgress ProgressCallback

	jdText        string
	base          *types.Resume
	working       *types.Resume
	analysis      *types.JDAnalysis
	strategy      types.TailoringStrategy
	pages         int
	format        types.FormatSettings
	mergeResearch bool
	must          types.MustInclude
	keep          map[string][]string
	counts        bullets.Counts
	carried       types.ExcludedItems
	deleted       map[string][]string
	plan          *types.Strategy
	replan        bool
}

func (r *run) emit(state State, message string, content any) {
	emitProgress(r.onProgress, r.action, r.actionID, state, message, content)
}

// Tailor rewrites the base resume for a job description. A second call while one is running
// returns ErrBusy without doing anything. Nothing is persisted unless the whole run succeeds.
func (o *Orchestrator) Tailor(ctx context.Context, req TailorRequest) (*Result, error) {
	release, ok := o.guard.TryAcquire(ActionTailor)
	if !ok {
		return nil, ErrBusy
	}
	defer release()

	r := &run{action: ActionTailor, actionID: o.actionID(), onProgress: req.OnProgress, replan: !req.SkipStrategy}
	res, err := o.prepare(ctx, r, req.JDText, req.Strategy, req.Pages)
	if err == nil {
		r.working = r.base.Clone()
		if r.mergeResearch {
			reconcile.MergeResearchIntoProjects(r.working)
		}
		r.carried = types.ExcludedItems{}
		res, err = o.execute(ctx, r)
	}
	if err != nil {
		r.emit(StateError, err.Error(), nil)
		return nil, err
	}
	return res, nil
}

// Regenerate re-tailors from the base resume while keeping what the user customized in the
// editor: section order and titles, and a summary that differs from the base. Items the user
// deleted are stripped, items still excluded are stripped unless flagged must-include, and the
// requested bullet counts are sanitized against the content that exists.
func (o *Orchestrator) Regenerate(ctx context.Context, req RegenerateRequest) (*Result, error) {
	release, ok := o.guard.TryAcquire(ActionRegenerate)
	if !ok {
		return nil, ErrBusy
	}
	defer release()

	r := &run{action: ActionRegenerate, actionID: o.actionID(), onProgress: req.OnProgress, replan: req.Replan}
	res, err := o.prepare(ctx, r, "", req.Strategy, req.Pages)
	if err == nil {
		err = o.seedRegenerate(ctx, r, req)
	}
	if err == nil {
		res, err = o.execute(ctx, r)
	}
	if err != nil {
		r.emit(StateError, err.Error(), nil)
		return nil, err
	}
	return res, nil
}

// prepare loads what every run needs and analyzes the job description.
func (o *Orchestrator) prepare(ctx context.Context, r *run, jdText string, strategy types.TailoringStrategy, pages int) (*Result, error) {
	base, err := o.session.BaseResume(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNoBaseResume
	}
	if err != nil {
		return nil, stepError(StateIdle, err)
	}
	r.base = base

	r.jdText = strings.TrimSpace(jdText)
	if r.jdText == "" {
		stored, err := o.session.JDText(ctx)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return nil, stepError(StateIdle, err)
		}
		r.jdText = strings.TrimSpace(stored)
	}
	if r.jdText == "" {
		return nil, ErrNoJobDescription
	}

	prefStrategy, prefPages, err := o.session.Preferences(ctx)
	if err != nil {
		return nil, stepError(StateIdle, err)
	}
	r.strategy = prefStrategy
	if strategy != "" {
		r.strategy = types.ParseTailoringStrategy(string(strategy))
	}
	r.pages = prefPages
	if pages > 0 {
		r.pages = pages
	}
	if r.format, err = o.session.FormatSettings(ctx); err != nil {
		return nil, stepError(StateIdle, err)
	}
	if r.mergeResearch, err = o.session.MergeResearch(ctx); err != nil {
		return nil, stepError(StateIdle, err)
	}
	if r.must, err = o.session.MustInclude(ctx); err != nil {
		return nil, stepError(StateIdle, err)
	}
	r.keep = reconcile.ResolveNames(r.must, base)

	r.emit(StateAnalyzingJD, "Analyzing job description", nil)
	r.analysis, err = o.AnalyzeJD(ctx, r.jdText, r.actionID)
	if err != nil {
		return nil, stepError(StateAnalyzingJD, err)
	}
	r.emit(StateAnalyzingJD, fmt.Sprintf("Analyzed %s at %s", r.analysis.JobTitle, r.analysis.CompanyName), r.analysis)
	return nil, nil
}

func (o *Orchestrator) seedRegenerate(ctx context.Context, r *run, req RegenerateRequest) error {
	editor := req.Editor
	if editor == nil {
		stored, err := o.session.TailoredResume(ctx)
		switch {
		case errors.Is(err, storage.ErrNotFound):
			editor = r.base
		case err != nil:
			return stepError(StateIdle, err)
		default:
			editor = stored
		}
	}

	seed := r.base.Clone()
	if r.mergeResearch {
		reconcile.MergeResearchIntoProjects(seed)
	}
	if len(editor.SectionOrder) > 0 {
		seed.SectionOrder = append([]string(nil), editor.SectionOrder...)
	}
	if len(editor.SectionTitles) > 0 {
		seed.SectionTitles = make(map[string]string, len(editor.SectionTitles))
		for k, v := range editor.SectionTitles {
			seed.SectionTitles[k] = v
		}
	}
	if s := strings.TrimSpace(editor.Summary); s != "" && s != strings.TrimSpace(r.base.Summary) {
		seed.Summary = editor.Summary
	}

	deleted, err := o.session.DeletedItems(ctx)
	if err != nil {
		return stepError(StateIdle, err)
	}
	if req.Editor != nil {
		// the editor copy may hold deletions that were never saved
		previous, err := o.session.TailoredResume(ctx)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return stepError(StateIdle, err)
		}
		deleted = reconcile.Deletions(deleted, editorBase(r.base, r.mergeResearch), previous, req.Editor, r.keep)
	}
	r.deleted = deleted
	for section, names := range reconcile.Subtract(deleted, r.keep) {
		if n := reconcile.StripItems(seed, section, names); n > 0 {
			o.logger.Debug("stripped deleted items", "section", section, "count", n)
		}
	}

	excluded, err := o.session.Exclusions(ctx)
	if err != nil {
		return stepError(StateIdle, err)
	}
	r.carried = reconcile.Subtract(excluded, r.keep)
	reconcile.ApplyExclusions(seed, r.carried, r.keep)

	requested := req.BulletCounts
	if requested == nil {
		requested = bullets.FromResume(editor)
	}
	r.counts = bullets.Sanitize(seed, editor, requested)
	r.working = seed
	return nil
}

// execute runs Strategizing through Reconciling and persists the result.
func (o *Orchestrator) execute(ctx context.Context, r *run) (*Result, error) {
	if r.replan {
		r.emit(StateStrategizing, "Planning which items to feature", nil)
		if plan := o.strategize(ctx, r); plan != nil {
			r.plan = plan
			removed := reconcile.ApplyExclusions(r.working, plan.Exclude, r.keep)
			r.emit(StateStrategizing, fmt.Sprintf("Strategy excluded %d items", removed), plan)
		}
	}
	if r.counts == nil {
		r.counts = bullets.FromResume(r.working)
	}

	r.emit(StateTailoring, "Tailoring resume", nil)
	in := prompts.TailorInput{
		Resume:       r.working,
		Analysis:     r.analysis,
		Strategy:     r.strategy,
		Pages:        r.pages,
		Format:       r.format,
		MustInclude:  r.keep,
		BulletCounts: r.counts,
	}
	if r.plan != nil {
		in.Notes = r.plan.Notes
	}
	text, err := o.gen.Generate(ctx, prompts.BuildTailor(in), llm.Options{
		TaskType:   llm.TaskTailor,
		ExpectJSON: true,
		ActionID:   r.actionID,
	})
	if err != nil {
		return nil, stepError(StateTailoring, err)
	}
	raw, ok := llm.ExtractJSON(text)
	if !ok {
		return nil, &ExtractionError{Step: string(StateTailoring), Snippet: llm.Snippet(text, snippetLength)}
	}

	r.emit(StatePostProcessing, "Cleaning up model output", nil)
	rawExcluded, body, err := detachExclusions(raw)
	if err != nil {
		return nil, &ExtractionError{Step: string(StatePostProcessing), Snippet: llm.Snippet(text, snippetLength), Cause: err}
	}
	if err := schemas.ValidateBytes(schemas.Resume, body); err != nil {
		o.logger.Debug("tailored resume does not match schema", "error", err)
	}
	tailored, err := types.ParseResume(body)
	if err != nil {
		return nil, &ExtractionError{Step: string(StatePostProcessing), Snippet: llm.Snippet(text, snippetLength), Cause: err}
	}
	processed, results := steps.Run(tailored, steps.Input{Base: r.working, Analysis: r.analysis, Counts: r.counts})

	r.emit(StateReconciling, "Reconciling excluded items", nil)
	excluded := mergeExclusions(
		r.carried,
		reconcile.NormalizeExclusions(rawExcluded, r.base, r.mergeResearch),
		r.planExclusions(),
	)
	merged := reconcile.MergeMustInclude(processed, r.base, r.must, excluded)
	for section, names := range merged.Added {
		o.logger.Info("forced must-include items back in", "section", section, "items", names)
	}

	version, err := o.persist(ctx, r, merged.Resume, merged.Excluded)
	if err != nil {
		return nil, stepError(StateReconciling, err)
	}

	r.emit(StateDone, fmt.Sprintf("Tailored for %s at %s", r.analysis.JobTitle, r.analysis.CompanyName), nil)
	return &Result{
		ActionID: r.actionID,
		Resume:   merged.Resume,
		Analysis: r.analysis,
		Excluded: merged.Excluded,
		Strategy: r.plan,
		Version:  version,
		Steps:    results,
	}, nil
}

// planExclusions normalizes the strategy's exclusions against the base resume.
func (r *run) planExclusions() types.ExcludedItems {
	if r.plan == nil {
		return nil
	}
	raw := types.RawExclusions{}
	for section, names := range r.plan.Exclude {
		for _, n := range names {
			raw[section] = append(raw[section], types.NameRef(n))
		}
	}
	return reconcile.Subtract(reconcile.NormalizeExclusions(raw, r.base, r.mergeResearch), r.keep)
}

// mergeExclusions unions exclusion maps, keeping first spellings and dropping case-insensitive
// duplicates.
func mergeExclusions(maps ...types.ExcludedItems) types.ExcludedItems {
	out := types.ExcludedItems{}
	seen := map[string]map[string]bool{}
	for _, m := range maps {
		for section, names := range m {
			if seen[section] == nil {
				seen[section] = map[string]bool{}
			}
			for _, n := range names {
				key := reconcile.Norm(n)
				if key == "" || seen[section][key] {
					continue
				}
				seen[section][key] = true
				out[section] = append(out[section], n)
			}
		}
	}
	return out
}

// persist writes the tailored resume, exclusion state, job description and the new history entry
// in a single batch. Must-include flags are cleared since every flagged item is now present. A
// tailor run starts over from the base resume, so it also clears the editor deletions.
func (o *Orchestrator) persist(ctx context.Context, r *run, resume *types.Resume, excluded types.ExcludedItems) (types.ResumeVersion, error) {
	versions, err := o.history.List(ctx)
	if err != nil {
		return types.ResumeVersion{}, err
	}
	version := o.history.Entry(resume, r.analysis)

	b := storage.Batch{storage.KeyJDText: []byte(r.jdText)}
	for key, v := range map[string]any{
		storage.KeyTailoredResume: resume,
		storage.KeyExcludedItems:  excluded,
		storage.KeyMustInclude:    types.MustInclude{},
		storage.KeyResumeVersions: o.history.Append(versions, version),
		storage.KeyDeletedItems:   nonNil(r.deleted),
	} {
		if err := b.Put(key, v); err != nil {
			return types.ResumeVersion{}, err
		}
	}
	if err := o.session.Store().SetMany(ctx, b); err != nil {
		return types.ResumeVersion{}, err
	}
	return version, nil
}

// editorBase returns the base resume as the editor lays it out.
func editorBase(base *types.Resume, mergeResearch bool) *types.Resume {
	if !mergeResearch {
		return base
	}
	view := base.Clone()
	reconcile.MergeResearchIntoProjects(view)
	return view
}

func nonNil(m map[string][]string) map[string][]string {
	if m == nil {
		return map[string][]string{}
	}
	return m
}
