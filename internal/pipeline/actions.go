package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/jonathan/forgecv/internal/ats"
	"github.com/jonathan/forgecv/internal/llm"
	"github.com/jonathan/forgecv/internal/pipeline/steps"
	"github.com/jonathan/forgecv/internal/prompts"
	"github.com/jonathan/forgecv/internal/reconcile"
	"github.com/jonathan/forgecv/internal/storage"
	"github.com/jonathan/forgecv/internal/types"
)

// strategize runs the optional planning pass. Any failure is logged and yields nil so the run
// continues without a plan.
func (o *Orchestrator) strategize(ctx context.Context, r *run) *types.Strategy {
	text, err := o.gen.Generate(ctx, prompts.BuildStrategy(r.working, r.analysis, r.pages, r.keep), llm.Options{
		TaskType:   llm.TaskStrategy,
		ExpectJSON: true,
		ActionID:   r.actionID,
	})
	if err != nil {
		if ctx.Err() == nil {
			o.logger.Warn("strategy pass failed, continuing without it", "error", err)
		}
		return nil
	}
	var plan types.Strategy
	if !llm.DecodeJSON(text, &plan) {
		o.logger.Warn("strategy pass returned no usable JSON", "snippet", llm.Snippet(text, snippetLength))
		return nil
	}
	if plan.Exclude == nil {
		plan.Exclude = map[string][]string{}
	}
	for section := range plan.Exclude {
		if !types.IsItemSection(section) {
			delete(plan.Exclude, section)
		}
	}
	return &plan
}

// Analyze asks the model for an ATS report on the current resume against the stored job
// description. The tailored resume is scored when one exists, the base resume otherwise.
func (o *Orchestrator) Analyze(ctx context.Context, onProgress ProgressCallback) (*types.ATSReport, error) {
	release, ok := o.guard.TryAcquire(ActionAnalyze)
	if !ok {
		return nil, ErrBusy
	}
	defer release()

	actionID := o.actionID()
	report, err := o.analyze(ctx, actionID)
	if err != nil {
		emitProgress(onProgress, ActionAnalyze, actionID, StateError, err.Error(), nil)
		return nil, err
	}
	emitProgress(onProgress, ActionAnalyze, actionID, StateDone, "Analysis complete", report)
	return report, nil
}

func (o *Orchestrator) analyze(ctx context.Context, actionID string) (*types.ATSReport, error) {
	resume, err := o.CurrentResume(ctx)
	if err != nil {
		return nil, err
	}
	jd, err := o.session.JDText(ctx)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}
	if strings.TrimSpace(jd) == "" {
		return nil, ErrNoJobDescription
	}

	text, err := o.gen.Generate(ctx, prompts.BuildAnalysis(resume, jd), llm.Options{
		TaskType:   llm.TaskScore,
		ExpectJSON: true,
		ActionID:   actionID,
	})
	if err != nil {
		return nil, err
	}
	raw, ok := llm.ExtractJSON(text)
	if !ok {
		return nil, &ExtractionError{Step: string(ActionAnalyze), Snippet: llm.Snippet(text, snippetLength)}
	}
	var report types.ATSReport
	if err := json.Unmarshal(raw, &report); err != nil {
		return nil, &ExtractionError{Step: string(ActionAnalyze), Snippet: llm.Snippet(text, snippetLength), Cause: err}
	}
	if report.Score < 0 {
		report.Score = 0
	}
	if report.Score > 100 {
		report.Score = 100
	}
	return &report, nil
}

// Ask answers an application form question with the current resume and job description as
// context. The job description is optional.
func (o *Orchestrator) Ask(ctx context.Context, question string) (*types.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, errors.New("question is empty")
	}
	release, ok := o.guard.TryAcquire(ActionAsk)
	if !ok {
		return nil, ErrBusy
	}
	defer release()

	resume, err := o.CurrentResume(ctx)
	if err != nil {
		return nil, err
	}
	jd, err := o.session.JDText(ctx)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}
	text, err := o.gen.Generate(ctx, prompts.BuildQuestion(question, resume, jd), llm.Options{
		TaskType: llm.TaskDefault,
		ActionID: o.actionID(),
	})
	if err != nil {
		return nil, err
	}
	return &types.Answer{Question: question, Answer: strings.TrimSpace(text)}, nil
}

// ImportProfile extracts a base resume from plain resume text, cleans it, assigns item ids and
// stores it as the new base resume.
func (o *Orchestrator) ImportProfile(ctx context.Context, resumeText string) (*types.Resume, error) {
	if strings.TrimSpace(resumeText) == "" {
		return nil, errors.New("resume text is empty")
	}
	release, ok := o.guard.TryAcquire(ActionImport)
	if !ok {
		return nil, ErrBusy
	}
	defer release()

	text, err := o.gen.Generate(ctx, prompts.BuildExtractProfile(resumeText), llm.Options{
		TaskType:   llm.TaskJDParse,
		ExpectJSON: true,
		ActionID:   o.actionID(),
	})
	if err != nil {
		return nil, err
	}
	raw, ok := llm.ExtractJSON(text)
	if !ok {
		return nil, &ExtractionError{Step: string(ActionImport), Snippet: llm.Snippet(text, snippetLength)}
	}
	resume, err := types.ParseResume(raw)
	if err != nil {
		return nil, &ExtractionError{Step: string(ActionImport), Snippet: llm.Snippet(text, snippetLength), Cause: err}
	}
	steps.CleanTailoredResume(resume)
	types.AssignItemIDs(resume)
	if err := o.session.SaveBaseResume(ctx, resume); err != nil {
		return nil, err
	}
	o.logger.Info("imported base resume", "name", resume.Name)
	return resume, nil
}

// SaveEditor stores an edited tailored resume and records which items the edit removed, so a
// later regenerate leaves them out. Items flagged must-include are merged back from
// the base resume, then the flags are cleared.
func (o *Orchestrator) SaveEditor(ctx context.Context, editor *types.Resume) (*types.Resume, error) {
	if editor == nil {
		return nil, ErrNoTailoredResume
	}
	base, err := o.session.BaseResume(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNoBaseResume
	}
	if err != nil {
		return nil, err
	}
	must, err := o.session.MustInclude(ctx)
	if err != nil {
		return nil, err
	}
	excluded, err := o.session.Exclusions(ctx)
	if err != nil {
		return nil, err
	}
	deleted, err := o.session.DeletedItems(ctx)
	if err != nil {
		return nil, err
	}
	previous, err := o.session.TailoredResume(ctx)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}
	mergeResearch, err := o.session.MergeResearch(ctx)
	if err != nil {
		return nil, err
	}

	merged := reconcile.MergeMustInclude(editor, base, must, excluded)
	deleted = reconcile.Deletions(deleted, editorBase(base, mergeResearch), previous, merged.Resume, reconcile.ResolveNames(must, base))
	deleted = reconcile.Subtract(deleted, merged.Excluded)
	b := storage.Batch{}
	for key, v := range map[string]any{
		storage.KeyTailoredResume: merged.Resume,
		storage.KeyExcludedItems:  merged.Excluded,
		storage.KeyMustInclude:    types.MustInclude{},
		storage.KeyDeletedItems:   deleted,
	} {
		if err := b.Put(key, v); err != nil {
			return nil, err
		}
	}
	if err := o.session.Store().SetMany(ctx, b); err != nil {
		return nil, err
	}
	return merged.Resume, nil
}

// SetInclusion flags one base item. Include marks it must-include and drops it from the excluded
// list; exclude does the reverse. The change applies on the next tailor, regenerate or save.
func (o *Orchestrator) SetInclusion(ctx context.Context, section, name string, include bool) error {
	if !types.IsItemSection(section) {
		return errors.New("unknown section " + section)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("item name is empty")
	}
	must, err := o.session.MustInclude(ctx)
	if err != nil {
		return err
	}
	excluded, err := o.session.Exclusions(ctx)
	if err != nil {
		return err
	}

	var refs []types.ItemRef
	for _, ref := range must[section] {
		if ref.IsIndex() || !strings.EqualFold(ref.Name, name) {
			refs = append(refs, ref)
		}
	}
	var names []string
	for _, n := range excluded[section] {
		if !strings.EqualFold(n, name) {
			names = append(names, n)
		}
	}
	if include {
		refs = append(refs, types.NameRef(name))
	} else {
		names = append(names, name)
	}
	must[section] = refs
	excluded[section] = names
	if len(refs) == 0 {
		delete(must, section)
	}
	if len(names) == 0 {
		delete(excluded, section)
	}
	return o.session.SaveExclusionState(ctx, excluded, must)
}

// Insights is the locally computed feedback on the current tailored resume.
type Insights struct {
	Live  *types.LiveScore   `json:"live,omitempty"`
	Diff  types.DiffSummary  `json:"diff"`
	Style types.StyleSummary `json:"style"`
	// NotIncluded lists the base items the tailored resume leaves out, whatever the reason.
	NotIncluded types.ExcludedItems `json:"not_included"`
}

// Insights scores the tailored resume against the cached analysis and diffs it against the
// base. No model call is made.
func (o *Orchestrator) Insights(ctx context.Context) (*Insights, error) {
	var (
		base, tailored *types.Resume
		analysis       *types.JDAnalysis
		mergeResearch  bool
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		mergeResearch, err = o.session.MergeResearch(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		base, err = o.session.BaseResume(gctx)
		if errors.Is(err, storage.ErrNotFound) {
			return ErrNoBaseResume
		}
		return err
	})
	g.Go(func() error {
		var err error
		tailored, err = o.session.TailoredResume(gctx)
		if errors.Is(err, storage.ErrNotFound) {
			return ErrNoTailoredResume
		}
		return err
	})
	g.Go(func() error {
		var err error
		analysis, err = o.session.JDAnalysis(gctx)
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &Insights{
		Live:        ats.LiveScore(tailored, analysis),
		Diff:        ats.Diff(base, tailored),
		Style:       ats.Style(tailored),
		NotIncluded: reconcile.Missing(editorBase(base, mergeResearch), tailored),
	}, nil
}

// NotIncluded lists, per excludable section, the base items that resume does not contain, in base
// order. The editor rebuilds its "not included" list from this on every render, so nothing here is
// cached. A nil resume means the current one.
func (o *Orchestrator) NotIncluded(ctx context.Context, resume *types.Resume) (map[string][]types.Item, error) {
	base, err := o.session.BaseResume(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNoBaseResume
	}
	if err != nil {
		return nil, err
	}
	if resume == nil {
		if resume, err = o.CurrentResume(ctx); err != nil {
			return nil, err
		}
	}
	mergeResearch, err := o.session.MergeResearch(ctx)
	if err != nil {
		return nil, err
	}

	view := editorBase(base, mergeResearch)
	out := map[string][]types.Item{}
	for _, section := range reconcile.ExcludableSections {
		if items := reconcile.GetExcludedForSection(view, resume, section); len(items) > 0 {
			out[section] = items
		}
	}
	return out, nil
}

// CurrentResume prefers the tailored resume and falls back to the base.
func (o *Orchestrator) CurrentResume(ctx context.Context) (*types.Resume, error) {
	r, err := o.session.TailoredResume(ctx)
	if err == nil {
		return r, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}
	r, err = o.session.BaseResume(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNoBaseResume
	}
	return r, err
}
