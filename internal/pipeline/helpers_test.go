package pipeline

import (
	"context"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jonathan/forgecv/internal/llm"
	"github.com/jonathan/forgecv/internal/storage"
	"github.com/jonathan/forgecv/internal/types"
)

type reply struct {
	text string
	err  error
}

// fakeGenerator answers by task type. Each task has a queue of replies; the last one repeats.
type fakeGenerator struct {
	mu      sync.Mutex
	replies map[llm.TaskType][]reply
	calls   map[llm.TaskType]int
	prompts map[llm.TaskType][]string

	// gate, when set for a task, blocks its calls until closed. started receives once per call.
	gate    map[llm.TaskType]chan struct{}
	started chan llm.TaskType
}

func newFakeGenerator() *fakeGenerator {
	return &fakeGenerator{
		replies: map[llm.TaskType][]reply{},
		calls:   map[llm.TaskType]int{},
		prompts: map[llm.TaskType][]string{},
		gate:    map[llm.TaskType]chan struct{}{},
		started: make(chan llm.TaskType, 64),
	}
}

func (f *fakeGenerator) on(task llm.TaskType, text string) *fakeGenerator {
	f.replies[task] = append(f.replies[task], reply{text: text})
	return f
}

func (f *fakeGenerator) fail(task llm.TaskType, err error) *fakeGenerator {
	f.replies[task] = append(f.replies[task], reply{err: err})
	return f
}

func (f *fakeGenerator) block(task llm.TaskType) chan struct{} {
	ch := make(chan struct{})
	f.gate[task] = ch
	return ch
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string, opts llm.Options) (string, error) {
	f.mu.Lock()
	f.calls[opts.TaskType]++
	f.prompts[opts.TaskType] = append(f.prompts[opts.TaskType], prompt)
	queue := f.replies[opts.TaskType]
	var r reply
	switch len(queue) {
	case 0:
		r = reply{text: "{}"}
	case 1:
		r = queue[0]
	default:
		r = queue[0]
		f.replies[opts.TaskType] = queue[1:]
	}
	gate := f.gate[opts.TaskType]
	f.mu.Unlock()

	f.started <- opts.TaskType
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return r.text, r.err
}

func (f *fakeGenerator) count(task llm.TaskType) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[task]
}

func (f *fakeGenerator) prompt(task llm.TaskType, i int) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.prompts[task][i]
}

const baseResumeJSON = `{
	"name": "Jane Doe",
	"contact": {"email": "jane@example.com"},
	"summary": "Backend engineer building distributed systems.",
	"skills": {"Languages": "Go, Python", "Tools": "Docker, Postgres"},
	"experience": [
		{"id": "exp-1", "company": "Acme", "role": "Software Engineer", "dates": "2021 - Present",
		 "bullets": ["Built billing service in Go", "Cut latency by 40%", "Mentored two engineers"]},
		{"id": "exp-2", "company": "Globex", "role": "Intern", "dates": "2020",
		 "bullets": ["Wrote Python scripts", "Automated reports"]}
	],
	"projects": [
		{"id": "proj-1", "name": "Widget", "tech": "Go", "bullets": ["CLI for widgets", "Published to Homebrew"]}
	],
	"section_order": ["summary", "skills", "experience", "projects"]
}`

const analysisJSON = `{
	"company_name": "Initech",
	"job_title": "Platform Engineer",
	"mandatory_keywords": ["Go", "Kubernetes"],
	"preferred_keywords": ["Postgres"]
}`

const tailoredJSON = `{
	"name": "J. Doe",
	"summary": "Platform engineer shipping **Go** services.",
	"skills": {"Languages": "Go, Python, Rust", "Tools": "Docker, Postgres"},
	"experience": [
		{"company": "Acme", "role": "Staff Wizard", "dates": "2019 - Present",
		 "bullets": ["Built billing platform in Go", "Cut latency by 40%"]}
	],
	"projects": [
		{"name": "Widget", "tech": "Go", "bullets": ["CLI for widgets"]}
	],
	"excluded_items": {"experience": ["Globex"]}
}`

const jdText = "Initech is hiring a Platform Engineer. Go and Kubernetes required."

func mustResume(t *testing.T, data string) *types.Resume {
	t.Helper()
	r, err := types.ParseResume([]byte(data))
	require.NoError(t, err)
	return r
}

// newTestOrchestrator seeds a memory store with the base resume and job description.
func newTestOrchestrator(t *testing.T, gen *fakeGenerator) (*Orchestrator, *storage.MemoryStore) {
	t.Helper()
	store := storage.NewMemoryStore()
	n := 0
	o := New(gen, store, WithActionIDs(func() string {
		n++
		return "action-" + strconv.Itoa(n)
	}))
	ctx := context.Background()
	require.NoError(t, o.Session().SaveBaseResume(ctx, mustResume(t, baseResumeJSON)))
	require.NoError(t, o.Session().SaveJDText(ctx, jdText))
	return o, store
}
