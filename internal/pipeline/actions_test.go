package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/forgecv/internal/llm"
	"github.com/jonathan/forgecv/internal/storage"
	"github.com/jonathan/forgecv/internal/types"
)

func TestAnalyze(t *testing.T) {
	gen := newFakeGenerator().on(llm.TaskScore, `{"score": 140, "missing_keywords": ["Kubernetes"], "summary_feedback": "close"}`)
	o, _ := newTestOrchestrator(t, gen)

	var events []ProgressEvent
	report, err := o.Analyze(context.Background(), func(e ProgressEvent) { events = append(events, e) })
	require.NoError(t, err)
	assert.Equal(t, 100, report.Score)
	assert.Equal(t, []string{"Kubernetes"}, []string(report.MissingKeywords))
	require.Len(t, events, 1)
	assert.Equal(t, StateDone, events[0].State)
	assert.Contains(t, gen.prompt(llm.TaskScore, 0), "Jane Doe")
}

func TestAnalyze_ExtractionFailureIsFatal(t *testing.T) {
	gen := newFakeGenerator().on(llm.TaskScore, "Looks great overall!")
	o, _ := newTestOrchestrator(t, gen)

	_, err := o.Analyze(context.Background(), nil)
	var extraction *ExtractionError
	require.ErrorAs(t, err, &extraction)
	assert.Equal(t, string(ActionAnalyze), extraction.Step)
}

func TestAsk(t *testing.T) {
	gen := newFakeGenerator().on(llm.TaskDefault, "  I love billing systems.  ")
	o, _ := newTestOrchestrator(t, gen)

	ans, err := o.Ask(context.Background(), " Why do you want this job? ")
	require.NoError(t, err)
	assert.Equal(t, "Why do you want this job?", ans.Question)
	assert.Equal(t, "I love billing systems.", ans.Answer)

	_, err = o.Ask(context.Background(), "  ")
	assert.Error(t, err)
	assert.Equal(t, 1, gen.count(llm.TaskDefault))
}

func TestImportProfile(t *testing.T) {
	gen := newFakeGenerator().on(llm.TaskJDParse, `{
		"name": "Sam Roe",
		"summary": "  Data engineer with **Spark** experience. ",
		"skills": {"Languages": "Scala, Scala, SQL", "Empty": ""},
		"experience": [{"company": "Hooli", "role": "Engineer", "bullets": ["Built pipelines"]}]
	}`)
	store := storage.NewMemoryStore()
	o := New(gen, store)
	ctx := context.Background()

	r, err := o.ImportProfile(ctx, "Sam Roe\nData engineer...")
	require.NoError(t, err)
	assert.Equal(t, "Data engineer with <b>Spark</b> experience.", r.Summary)
	langs, _ := r.Skills.Get("Languages")
	assert.Equal(t, "Scala, SQL", langs)
	_, hasEmpty := r.Skills.Get("Empty")
	assert.False(t, hasEmpty)
	require.Len(t, r.Experience, 1)
	assert.NotEmpty(t, r.Experience[0].ID)

	stored, err := o.Session().BaseResume(ctx)
	require.NoError(t, err)
	assert.Equal(t, r.Experience[0].ID, stored.Experience[0].ID)
}

func TestSaveEditor_MergesMustIncludeAndClearsFlags(t *testing.T) {
	o, _ := newTestOrchestrator(t, newFakeGenerator())
	ctx := context.Background()
	require.NoError(t, o.Session().SaveExclusionState(ctx,
		types.ExcludedItems{"experience": {"Globex"}, "projects": {"Widget"}}, nil))
	require.NoError(t, o.SetInclusion(ctx, types.SectionExperience, "Globex", true))

	editor := mustResume(t, `{"name": "Jane Doe", "experience": [{"company": "Acme", "bullets": ["x"]}]}`)
	saved, err := o.SaveEditor(ctx, editor)
	require.NoError(t, err)

	require.Len(t, saved.Experience, 2)
	assert.Equal(t, "Globex", saved.Experience[1].Company)

	excluded, err := o.Session().Exclusions(ctx)
	require.NoError(t, err)
	assert.Equal(t, types.ExcludedItems{"projects": {"Widget"}}, excluded)
	must, err := o.Session().MustInclude(ctx)
	require.NoError(t, err)
	assert.Empty(t, must)
	deleted, err := o.Session().DeletedItems(ctx)
	require.NoError(t, err)
	assert.Empty(t, deleted, "an excluded item is not a deletion")
}

func TestSetInclusion(t *testing.T) {
	o, _ := newTestOrchestrator(t, newFakeGenerator())
	ctx := context.Background()

	require.NoError(t, o.SetInclusion(ctx, types.SectionProjects, "Widget", false))
	excluded, err := o.Session().Exclusions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Widget"}, excluded["projects"])

	require.NoError(t, o.SetInclusion(ctx, types.SectionProjects, "widget", true))
	excluded, err = o.Session().Exclusions(ctx)
	require.NoError(t, err)
	assert.NotContains(t, excluded, "projects")
	must, err := o.Session().MustInclude(ctx)
	require.NoError(t, err)
	require.Len(t, must["projects"], 1)
	assert.Equal(t, "widget", must["projects"][0].Name)

	assert.Error(t, o.SetInclusion(ctx, "skills", "Go", true))
}

func TestInsights(t *testing.T) {
	gen := newFakeGenerator().on(llm.TaskJDParse, analysisJSON).on(llm.TaskTailor, tailoredJSON)
	o, _ := newTestOrchestrator(t, gen)
	ctx := context.Background()

	_, err := o.Insights(ctx)
	assert.ErrorIs(t, err, ErrNoTailoredResume)

	_, err = o.Tailor(ctx, TailorRequest{SkipStrategy: true})
	require.NoError(t, err)

	in, err := o.Insights(ctx)
	require.NoError(t, err)
	require.NotNil(t, in.Live)
	assert.Equal(t, []string{"Kubernetes"}, in.Live.Mandatory.Missing)
	assert.True(t, in.Diff.SummaryChanged)
	assert.Empty(t, in.Diff.SkillsAdded)
	assert.Empty(t, in.Diff.SkillsRemoved)
	assert.Positive(t, in.Style.StrongVerb)
	assert.Contains(t, in.Style.Weak, "CLI for widgets")
	assert.Equal(t, types.ExcludedItems{"experience": {"Globex"}}, in.NotIncluded)
}

func TestNotIncluded(t *testing.T) {
	o, _ := newTestOrchestrator(t, newFakeGenerator())
	ctx := context.Background()

	got, err := o.NotIncluded(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, got, "the base resume leaves nothing out")

	edited := mustResume(t, baseResumeJSON)
	edited.Experience = edited.Experience[:1]
	edited.Projects = nil
	got, err = o.NotIncluded(ctx, edited)
	require.NoError(t, err)
	require.Len(t, got["experience"], 1)
	assert.Equal(t, "Globex", got["experience"][0].Company)
	require.Len(t, got["projects"], 1)
	assert.Equal(t, "proj-1", got["projects"][0].ID)

	_, err = New(newFakeGenerator(), storage.NewMemoryStore()).NotIncluded(ctx, edited)
	assert.ErrorIs(t, err, ErrNoBaseResume)
}
