package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/forgecv/internal/llm"
	"github.com/jonathan/forgecv/internal/storage"
	"github.com/jonathan/forgecv/internal/types"
)

func TestTailor_PersistsProcessedResult(t *testing.T) {
	gen := newFakeGenerator().
		on(llm.TaskJDParse, analysisJSON).
		on(llm.TaskStrategy, `{"exclude": {}}`).
		on(llm.TaskTailor, "Here you go:\n```json\n"+tailoredJSON+"\n```")
	o, _ := newTestOrchestrator(t, gen)
	ctx := context.Background()

	var states []State
	res, err := o.Tailor(ctx, TailorRequest{OnProgress: func(e ProgressEvent) {
		assert.Equal(t, ActionTailor, e.Action)
		assert.Equal(t, "action-1", e.ActionID)
		if len(states) == 0 || states[len(states)-1] != e.State {
			states = append(states, e.State)
		}
	}})
	require.NoError(t, err)

	assert.Equal(t, []State{StateAnalyzingJD, StateStrategizing, StateTailoring, StatePostProcessing, StateReconciling, StateDone}, states)
	assert.Equal(t, 1, gen.count(llm.TaskJDParse))
	assert.Equal(t, 1, gen.count(llm.TaskStrategy))
	assert.Equal(t, 1, gen.count(llm.TaskTailor))

	r := res.Resume
	assert.Equal(t, "Jane Doe", r.Name)
	assert.Equal(t, "Platform engineer shipping <b>Go</b> services.", r.Summary)
	require.Len(t, r.Experience, 1)
	assert.Equal(t, "Software Engineer", r.Experience[0].Role)
	assert.Equal(t, "2021 - Present", r.Experience[0].Dates)
	assert.Equal(t, "exp-1", r.Experience[0].ID)
	langs, _ := r.Skills.Get("Languages")
	assert.Equal(t, "Go, Python", langs)
	assert.Equal(t, []string{"summary", "skills", "experience", "projects"}, r.SectionOrder)
	assert.Equal(t, types.ExcludedItems{"experience": {"Globex"}}, res.Excluded)
	assert.Equal(t, "Initech", res.Analysis.CompanyName)
	assert.NotNil(t, res.Strategy)
	assert.Len(t, res.Steps, 7)

	stored, err := o.Session().TailoredResume(ctx)
	require.NoError(t, err)
	assert.Equal(t, r.Summary, stored.Summary)
	excluded, err := o.Session().Exclusions(ctx)
	require.NoError(t, err)
	assert.Equal(t, res.Excluded, excluded)

	versions, err := o.History().List(ctx)
	require.NoError(t, err)
	require.Len(t, versions, 1)
	assert.Equal(t, res.Version.ID, versions[0].ID)
	assert.Equal(t, "Platform Engineer", versions[0].JDTitle)
	assert.Equal(t, "Initech", versions[0].Company)
}

func TestTailor_RequestTextReplacesStoredJD(t *testing.T) {
	gen := newFakeGenerator().on(llm.TaskJDParse, analysisJSON).on(llm.TaskTailor, tailoredJSON)
	o, _ := newTestOrchestrator(t, gen)
	ctx := context.Background()

	_, err := o.Tailor(ctx, TailorRequest{JDText: "  A different posting  ", SkipStrategy: true})
	require.NoError(t, err)

	jd, err := o.Session().JDText(ctx)
	require.NoError(t, err)
	assert.Equal(t, "A different posting", jd)
	assert.Equal(t, 0, gen.count(llm.TaskStrategy))
}

func TestTailor_MissingInputs(t *testing.T) {
	ctx := context.Background()

	t.Run("no base resume", func(t *testing.T) {
		gen := newFakeGenerator()
		o := New(gen, storage.NewMemoryStore())
		_, err := o.Tailor(ctx, TailorRequest{JDText: jdText})
		assert.ErrorIs(t, err, ErrNoBaseResume)
		assert.Zero(t, gen.count(llm.TaskJDParse))
	})

	t.Run("no job description", func(t *testing.T) {
		gen := newFakeGenerator()
		o := New(gen, storage.NewMemoryStore())
		require.NoError(t, o.Session().SaveBaseResume(ctx, mustResume(t, baseResumeJSON)))
		_, err := o.Tailor(ctx, TailorRequest{JDText: "   "})
		assert.ErrorIs(t, err, ErrNoJobDescription)
	})
}

func TestTailor_UnparseableJDFallsBackToStub(t *testing.T) {
	gen := newFakeGenerator().
		on(llm.TaskJDParse, "not json").
		on(llm.TaskStrategy, `{"exclude": {}}`).
		on(llm.TaskTailor, tailoredJSON)
	o, _ := newTestOrchestrator(t, gen)

	var states []State
	res, err := o.Tailor(context.Background(), TailorRequest{OnProgress: func(e ProgressEvent) {
		states = append(states, e.State)
	}})
	require.NoError(t, err)

	require.NotNil(t, res.Analysis)
	assert.True(t, res.Analysis.IsStub())
	assert.Contains(t, states, StateTailoring)
	assert.NotContains(t, states, StateError)
	assert.Equal(t, 1, gen.count(llm.TaskTailor))
	assert.Equal(t, "Jane Doe", res.Resume.Name)
}

func TestTailor_StrategyFailureIsNotFatal(t *testing.T) {
	gen := newFakeGenerator().
		on(llm.TaskJDParse, analysisJSON).
		fail(llm.TaskStrategy, errors.New("quota exceeded")).
		on(llm.TaskTailor, tailoredJSON)
	o, _ := newTestOrchestrator(t, gen)

	res, err := o.Tailor(context.Background(), TailorRequest{})
	require.NoError(t, err)
	assert.Nil(t, res.Strategy)
	assert.Equal(t, 1, gen.count(llm.TaskTailor))
}

func TestTailor_StrategyExclusionsRemoveItemsBeforeTailoring(t *testing.T) {
	gen := newFakeGenerator().
		on(llm.TaskJDParse, analysisJSON).
		on(llm.TaskStrategy, `{"exclude": {"experience": ["Globex"], "bogus": ["x"]}, "notes": "lead with billing"}`).
		on(llm.TaskTailor, `{"summary": "s", "experience": [{"company": "Acme", "bullets": ["a"]}]}`)
	o, _ := newTestOrchestrator(t, gen)

	res, err := o.Tailor(context.Background(), TailorRequest{})
	require.NoError(t, err)

	prompt := gen.prompt(llm.TaskTailor, 0)
	assert.NotContains(t, prompt, "Globex")
	assert.Contains(t, prompt, "lead with billing")
	assert.Equal(t, []string{"Globex"}, res.Excluded["experience"])
	assert.NotContains(t, res.Strategy.Exclude, "bogus")
}

func TestTailor_ExtractionFailurePersistsNothing(t *testing.T) {
	gen := newFakeGenerator().
		on(llm.TaskJDParse, analysisJSON).
		on(llm.TaskTailor, "I'm sorry, I can't produce that resume right now.")
	o, _ := newTestOrchestrator(t, gen)
	ctx := context.Background()

	var last ProgressEvent
	_, err := o.Tailor(ctx, TailorRequest{SkipStrategy: true, OnProgress: func(e ProgressEvent) { last = e }})
	require.Error(t, err)

	var extraction *ExtractionError
	require.ErrorAs(t, err, &extraction)
	assert.Equal(t, string(StateTailoring), extraction.Step)
	assert.Contains(t, extraction.Snippet, "I'm sorry")
	assert.Equal(t, StateError, last.State)

	_, err = o.Session().TailoredResume(ctx)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	versions, err := o.History().List(ctx)
	require.NoError(t, err)
	assert.Empty(t, versions)
}

func TestTailor_GatewayErrorIsWrappedWithState(t *testing.T) {
	cause := &llm.DailyLimitError{}
	gen := newFakeGenerator().on(llm.TaskJDParse, analysisJSON).fail(llm.TaskTailor, cause)
	o, _ := newTestOrchestrator(t, gen)

	_, err := o.Tailor(context.Background(), TailorRequest{SkipStrategy: true})
	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, string(StateTailoring), stepErr.Step)
	assert.ErrorIs(t, err, cause)
}

func TestTailor_SecondSubmitWhileRunningIsBusy(t *testing.T) {
	gen := newFakeGenerator().on(llm.TaskJDParse, analysisJSON).on(llm.TaskTailor, tailoredJSON)
	release := gen.block(llm.TaskTailor)
	o, _ := newTestOrchestrator(t, gen)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := o.Tailor(ctx, TailorRequest{SkipStrategy: true})
		done <- err
	}()
	for task := range gen.started {
		if task == llm.TaskTailor {
			break
		}
	}

	assert.True(t, o.Guard().Running(ActionTailor))
	_, err := o.Tailor(ctx, TailorRequest{SkipStrategy: true})
	assert.ErrorIs(t, err, ErrBusy)

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, 1, gen.count(llm.TaskTailor))
	assert.False(t, o.Guard().Running(ActionTailor))
}

func TestTailor_MustIncludeItemIsForcedBack(t *testing.T) {
	gen := newFakeGenerator().
		on(llm.TaskJDParse, analysisJSON).
		on(llm.TaskStrategy, `{"exclude": {"experience": ["Globex"]}}`).
		on(llm.TaskTailor, tailoredJSON)
	o, _ := newTestOrchestrator(t, gen)
	ctx := context.Background()
	require.NoError(t, o.SetInclusion(ctx, types.SectionExperience, "Globex", true))

	res, err := o.Tailor(ctx, TailorRequest{})
	require.NoError(t, err)

	require.Len(t, res.Resume.Experience, 2)
	assert.Equal(t, "Globex", res.Resume.Experience[1].Company)
	assert.Empty(t, res.Excluded["experience"])

	must, err := o.Session().MustInclude(ctx)
	require.NoError(t, err)
	assert.Empty(t, must)
}

func TestRegenerate_KeepsEditorChoicesAndFiltersItems(t *testing.T) {
	gen := newFakeGenerator().
		on(llm.TaskJDParse, analysisJSON).
		on(llm.TaskTailor, `{"summary": "regenerated", "experience": [{"company": "Acme", "bullets": ["a", "b", "c"]}]}`)
	o, _ := newTestOrchestrator(t, gen)
	ctx := context.Background()

	editor := mustResume(t, baseResumeJSON)
	editor.Summary = "My own hand-written summary."
	editor.SectionOrder = []string{"experience", "skills", "summary", "projects"}
	editor.SectionTitles = map[string]string{"experience": "Work"}
	editor.Projects = nil
	require.NoError(t, o.Session().SaveExclusionState(ctx, types.ExcludedItems{"experience": {"Globex"}}, nil))

	res, err := o.Regenerate(ctx, RegenerateRequest{
		Editor:       editor,
		BulletCounts: map[string]map[string]int{"experience": {"id:exp-1": 1}},
	})
	require.NoError(t, err)

	assert.Zero(t, gen.count(llm.TaskStrategy))
	prompt := gen.prompt(llm.TaskTailor, 0)
	assert.Contains(t, prompt, "My own hand-written summary.")
	assert.NotContains(t, prompt, "Widget")
	assert.NotContains(t, prompt, "Globex")

	assert.Equal(t, editor.SectionOrder, res.Resume.SectionOrder)
	assert.Equal(t, "Work", res.Resume.SectionTitles["experience"])
	require.Len(t, res.Resume.Experience, 1)
	assert.Len(t, res.Resume.Experience[0].Bullets, 1)
	assert.Equal(t, []string{"Globex"}, res.Excluded["experience"])

	deleted, err := o.Session().DeletedItems(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{"projects": {"Widget"}}, deleted)
}

func TestRegenerate_LeavesOutItemsDeletedInEditor(t *testing.T) {
	gen := newFakeGenerator().
		on(llm.TaskJDParse, analysisJSON).
		on(llm.TaskStrategy, `{"exclude": {}}`).
		on(llm.TaskTailor, tailoredJSON)
	o, _ := newTestOrchestrator(t, gen)
	ctx := context.Background()

	res, err := o.Tailor(ctx, TailorRequest{})
	require.NoError(t, err)
	require.Len(t, res.Resume.Projects, 1)

	editor := res.Resume.Clone()
	editor.Projects = nil
	_, err = o.SaveEditor(ctx, editor)
	require.NoError(t, err)

	deleted, err := o.Session().DeletedItems(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{"projects": {"Widget"}}, deleted)

	for i, req := range []RegenerateRequest{{}, {Editor: editor}} {
		_, err = o.Regenerate(ctx, req)
		require.NoError(t, err)
		prompt := gen.prompt(llm.TaskTailor, i+1)
		assert.NotContains(t, prompt, "Widget")
		assert.NotContains(t, prompt, "proj-1")
	}

	t.Run("a new tailor starts over", func(t *testing.T) {
		_, err := o.Tailor(ctx, TailorRequest{})
		require.NoError(t, err)
		deleted, err := o.Session().DeletedItems(ctx)
		require.NoError(t, err)
		assert.Empty(t, deleted)
	})
}

func TestRegenerate_MustIncludeOverridesDeletion(t *testing.T) {
	gen := newFakeGenerator().on(llm.TaskJDParse, analysisJSON).on(llm.TaskTailor, tailoredJSON)
	o, _ := newTestOrchestrator(t, gen)
	ctx := context.Background()

	require.NoError(t, o.Session().SaveDeletedItems(ctx, map[string][]string{"projects": {"Widget"}}))
	require.NoError(t, o.SetInclusion(ctx, types.SectionProjects, "Widget", true))

	_, err := o.Regenerate(ctx, RegenerateRequest{})
	require.NoError(t, err)
	assert.Contains(t, gen.prompt(llm.TaskTailor, 0), "Widget")
}

func TestRegenerate_ReplanRunsStrategy(t *testing.T) {
	gen := newFakeGenerator().on(llm.TaskJDParse, analysisJSON).on(llm.TaskStrategy, `{"exclude": {}}`).on(llm.TaskTailor, tailoredJSON)
	o, _ := newTestOrchestrator(t, gen)

	_, err := o.Regenerate(context.Background(), RegenerateRequest{Replan: true})
	require.NoError(t, err)
	assert.Equal(t, 1, gen.count(llm.TaskStrategy))
}

func TestMergeExclusions(t *testing.T) {
	got := mergeExclusions(
		types.ExcludedItems{"experience": {"Globex"}},
		types.ExcludedItems{"experience": {"globex", "Initech"}, "projects": {"Widget"}},
		nil,
	)
	assert.Equal(t, types.ExcludedItems{
		"experience": {"Globex", "Initech"},
		"projects":   {"Widget"},
	}, got)
}
