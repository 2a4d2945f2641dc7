package prompts

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/forgecv/internal/types"
)

func sampleResume() *types.Resume {
	return &types.Resume{
		Name:    "Jane Doe",
		Summary: "Backend engineer.",
		Skills:  types.Skills{{Category: "Languages", Values: "Go, Python"}},
		Experience: []types.Item{
			{ID: "exp-1", Company: "Acme", Role: "Engineer", Dates: "2020 - Present", Bullets: []string{"Built APIs", "Cut latency 40%", "Led migrations"}},
		},
		Education: []types.Item{{ID: "edu-1", Institution: "State University", Degree: "B.S. CS"}},
	}
}

func sampleAnalysis() *types.JDAnalysis {
	return &types.JDAnalysis{
		CompanyName:       "Globex",
		JobTitle:          "Senior Go Engineer",
		Seniority:         "senior",
		MandatoryKeywords: types.StringList{"Go", "Kubernetes"},
		PreferredKeywords: types.StringList{"gRPC"},
	}
}

func TestAllPromptKeysLoad(t *testing.T) {
	ClearCache()
	cases := map[string][]string{
		fileJD:        {"parse-job-description"},
		fileTailoring: {"tailor", "strategy-pass", "strategy-balanced", "strategy-profile_focus", "strategy-jd_focus", "bullet-limits", "page-target", "must-include", "strategy-guidance"},
		fileAnalysis:  {"ats-analysis", "answer-question"},
		fileProfile:   {"extract-profile"},
	}
	for file, keys := range cases {
		for _, key := range keys {
			p, err := Get(file, key)
			require.NoError(t, err, "%s/%s", file, key)
			assert.NotEmpty(t, p)
		}
	}
}

func TestBuildJDParse(t *testing.T) {
	p := BuildJDParse("  We need a Go engineer.  ")
	assert.Contains(t, p, "\"mandatory_keywords\"")
	assert.Contains(t, p, "\"company_description\"")
	assert.Contains(t, p, "We need a Go engineer.")
	assert.Contains(t, p, "EXTRACTION RULES")
}

func TestBuildTailor_IncludesTargetAndResume(t *testing.T) {
	p := BuildTailor(TailorInput{
		Resume:   sampleResume(),
		Analysis: sampleAnalysis(),
		Strategy: types.StrategyJDFocus,
		Format:   types.DefaultFormatSettings(),
	})
	assert.Contains(t, p, "Company: Globex")
	assert.Contains(t, p, "Role: Senior Go Engineer")
	assert.Contains(t, p, "Must-have keywords: Go, Kubernetes")
	assert.Contains(t, p, "JD FOCUS")
	assert.Contains(t, p, "\"exp-1\"")
	assert.Contains(t, p, "excluded_items")
	assert.NotContains(t, p, "{{.")
	assert.NotContains(t, p, "BULLET COUNT LIMITS")
	assert.NotContains(t, p, "PAGE TARGET")
}

func TestBuildTailor_UnknownStrategyIsBalanced(t *testing.T) {
	p := BuildTailor(TailorInput{Resume: sampleResume(), Strategy: "wild"})
	assert.Contains(t, p, "BALANCED")
	assert.Contains(t, p, "Company: Unknown_Company")
}

func TestBuildTailor_Constraints(t *testing.T) {
	p := BuildTailor(TailorInput{
		Resume:       sampleResume(),
		Analysis:     sampleAnalysis(),
		Pages:        1,
		Format:       types.DefaultFormatSettings(),
		MustInclude:  map[string][]string{"projects": {"Compiler"}},
		BulletCounts: map[string]map[string]int{"experience": {"id:exp-1": 2}},
		Notes:        "Drop the oldest project.",
	})
	assert.Contains(t, p, "BULLET COUNT LIMITS")
	assert.Contains(t, p, "\"id:exp-1\": 2")
	assert.Contains(t, p, "fit on 1 page(s) in times 10pt")
	assert.Contains(t, p, "- projects: Compiler")
	assert.Contains(t, p, "Drop the oldest project.")
}

func TestBuildTailor_SectionOrder(t *testing.T) {
	r := sampleResume()
	p := BuildTailor(TailorInput{Resume: r})
	assert.Contains(t, p, `"section_order": ["summary", "skills", "experience", "education"]`)

	r.SectionOrder = []string{"experience", "summary"}
	p = BuildTailor(TailorInput{Resume: r})
	assert.Contains(t, p, `"section_order": ["experience", "summary"]`)
}

func TestBuildStrategy(t *testing.T) {
	p := BuildStrategy(sampleResume(), sampleAnalysis(), 1, map[string][]string{"experience": {"Acme"}})
	assert.Contains(t, p, "onto 1 page(s)")
	assert.Contains(t, p, "- experience: Acme")
	assert.Contains(t, p, "\"exclude\"")
	assert.Contains(t, p, "Jane Doe")

	p = BuildStrategy(sampleResume(), nil, 0, nil)
	assert.Contains(t, p, "(none)")
}

func TestBuildQuestion(t *testing.T) {
	p := BuildQuestion("Why us?", sampleResume(), strings.Repeat("x", 1500))
	assert.Contains(t, p, "ROLE: Jane Doe")
	assert.Contains(t, p, "Recent role: Engineer at Acme")
	assert.Contains(t, p, "Key achievements: Built APIs; Cut latency 40%")
	assert.NotContains(t, p, "Led migrations")
	assert.Contains(t, p, "B.S. CS from State University")
	assert.Contains(t, p, strings.Repeat("x", 1000))
	assert.NotContains(t, p, strings.Repeat("x", 1001))

	p = BuildQuestion("Salary?", nil, "")
	assert.Contains(t, p, "ROLE: Applicant")
	assert.Contains(t, p, "JOB CONTEXT: Not provided")
	assert.NotContains(t, p, "{{.")
}

func TestBuildAnalysisAndProfile(t *testing.T) {
	p := BuildAnalysis(sampleResume(), "Go and Kubernetes")
	assert.Contains(t, p, "Go and Kubernetes")
	assert.Contains(t, p, "\"summary_feedback\"")

	p = BuildExtractProfile("JANE DOE\nExperience")
	assert.Contains(t, p, "JANE DOE")
	assert.NotContains(t, p, "{{.ResumeText}}")
}
