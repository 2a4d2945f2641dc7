package prompts

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet(t *testing.T) {
	ClearCache()

	prompt, err := Get(fileJD, "parse-job-description")
	require.NoError(t, err)
	assert.Contains(t, prompt, "extract structured information")

	_, err = Get("cover_letter.json", "draft")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read prompt file")

	_, err = Get(fileTailoring, "cover-letter")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `prompt key "cover-letter" not found in tailoring.json`)
}

func TestMustGet(t *testing.T) {
	ClearCache()

	assert.Panics(t, func() { MustGet("cover_letter.json", "draft") })
	assert.NotPanics(t, func() { assert.NotEmpty(t, MustGet(fileTailoring, "tailor")) })
}

func TestEveryBuilderPromptIsPackaged(t *testing.T) {
	ClearCache()

	want := map[string][]string{
		fileJD:        {"parse-job-description"},
		fileTailoring: {"bullet-limits", "must-include", "page-target", "strategy-guidance", "strategy-pass", "tailor"},
		fileAnalysis:  {"answer-question", "ats-analysis"},
		fileProfile:   {"extract-profile"},
	}
	for file, keys := range want {
		got, err := List(file)
		require.NoError(t, err, file)
		assert.Subset(t, got, keys, file)
		assert.IsNonDecreasing(t, got, file)
	}
}

func TestFormat(t *testing.T) {
	tests := []struct {
		name     string
		template string
		data     map[string]string
		want     string
	}{
		{
			name:     "fills placeholders",
			template: "Tailor for {{.Company}} as {{.Role}}.",
			data:     map[string]string{"Company": "Globex", "Role": "SRE"},
			want:     "Tailor for Globex as SRE.",
		},
		{
			name:     "no data leaves the template alone",
			template: "Resume: {{.Resume}}",
			want:     "Resume: {{.Resume}}",
		},
		{
			name:     "unknown placeholders stay",
			template: "{{.Resume}} for {{.Company}}",
			data:     map[string]string{"Resume": "Jane"},
			want:     "Jane for {{.Company}}",
		},
		{
			name:     "values are not expanded again",
			template: "{{.Resume}} at {{.Company}}",
			data:     map[string]string{"Resume": "Built {{.Company}} templates", "Company": "Globex"},
			want:     "Built {{.Company}} templates at Globex",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Format(tt.template, tt.data))
		})
	}
}

func TestLoadFile_ConcurrentReaders(t *testing.T) {
	ClearCache()

	var wg sync.WaitGroup
	prompts := make([]string, 8)
	for i := range prompts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			prompts[i] = MustGet(fileTailoring, "tailor")
		}()
	}
	wg.Wait()
	for _, p := range prompts {
		assert.Equal(t, prompts[0], p)
	}
}
