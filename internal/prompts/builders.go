package prompts

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/jonathan/forgecv/internal/llm"
	"github.com/jonathan/forgecv/internal/types"
)

// Prompt files.
const (
	fileJD        = "jd.json"
	fileTailoring = "tailoring.json"
	fileAnalysis  = "analysis.json"
	fileProfile   = "profile.json"
)

// questionContextLimit caps how much of the job description goes into a question prompt.
const questionContextLimit = 1000

// TailorInput carries everything the tailor prompt is built from.
type TailorInput struct {
	Resume   *types.Resume
	Analysis *types.JDAnalysis
	Strategy types.TailoringStrategy
	// Pages is the page target (1 or 2). Zero leaves the length unconstrained.
	Pages  int
	Format types.FormatSettings
	// MustInclude lists, per section, identities that have to appear in the output.
	MustInclude map[string][]string
	// BulletCounts maps section -> item key -> maximum bullets.
	BulletCounts map[string]map[string]int
	// Notes is the guidance returned by the strategy pass, if any.
	Notes string
}

// BuildJDParse returns the job description analysis prompt.
func BuildJDParse(jdText string) string {
	schema := llm.JDAnalysisSchema(MustGet(fileJD, "parse-job-description"))
	return llm.BuildExtractionPrompt(schema, strings.TrimSpace(jdText))
}

// BuildStrategy returns the planning prompt that proposes items to exclude. keep lists
// identities that must not be proposed.
func BuildStrategy(resume *types.Resume, analysis *types.JDAnalysis, pages int, keep map[string][]string) string {
	if analysis == nil {
		analysis = types.StubJDAnalysis()
	}
	if pages <= 0 {
		pages = 1
	}
	desc := Format(MustGet(fileTailoring, "strategy-pass"), map[string]string{
		"Pages":     fmt.Sprint(pages),
		"Role":      orUnknown(analysis.JobTitle),
		"Company":   orUnknown(analysis.CompanyName),
		"Mandatory": strings.Join(analysis.MandatoryKeywords, ", "),
		"Preferred": strings.Join(analysis.PreferredKeywords, ", "),
		"Keep":      formatSectionLists(keep),
	})
	return llm.BuildExtractionPrompt(llm.StrategySchema(desc), toJSON(resume))
}

// BuildTailor returns the main tailoring prompt.
func BuildTailor(in TailorInput) string {
	analysis := in.Analysis
	if analysis == nil {
		analysis = types.StubJDAnalysis()
	}

	var constraints []string
	if len(in.BulletCounts) > 0 {
		constraints = append(constraints, Format(MustGet(fileTailoring, "bullet-limits"), map[string]string{
			"Counts": toJSON(in.BulletCounts),
		}))
	}
	if in.Pages > 0 {
		constraints = append(constraints, Format(MustGet(fileTailoring, "page-target"), map[string]string{
			"Pages":    fmt.Sprint(in.Pages),
			"Font":     in.Format.Font,
			"BodySize": fmt.Sprint(in.Format.BodySize),
			"Margins":  in.Format.Margins,
			"Density":  in.Format.Density,
		}))
	}
	if len(in.MustInclude) > 0 {
		constraints = append(constraints, Format(MustGet(fileTailoring, "must-include"), map[string]string{
			"Items": formatSectionLists(in.MustInclude),
		}))
	}
	if strings.TrimSpace(in.Notes) != "" {
		constraints = append(constraints, Format(MustGet(fileTailoring, "strategy-guidance"), map[string]string{
			"Notes": strings.TrimSpace(in.Notes),
		}))
	}

	return Format(MustGet(fileTailoring, "tailor"), map[string]string{
		"Company":       orUnknown(analysis.CompanyName),
		"Role":          orUnknown(analysis.JobTitle),
		"Seniority":     orUnknown(analysis.Seniority),
		"Domain":        orUnknown(analysis.DomainContext),
		"Mandatory":     strings.Join(analysis.MandatoryKeywords, ", "),
		"Preferred":     strings.Join(analysis.PreferredKeywords, ", "),
		"ActionVerbs":   strings.Join(analysis.ActionVerbs, ", "),
		"TechStack":     strings.Join(analysis.TechStackNuances, ", "),
		"IndustryTerms": strings.Join(analysis.IndustryTerms, ", "),
		"Metrics":       strings.Join(analysis.KeyMetricsEmphasis, ", "),
		"Resume":        toJSON(in.Resume),
		"Strategy":      MustGet(fileTailoring, "strategy-"+string(types.ParseTailoringStrategy(string(in.Strategy)))),
		"Constraints":   strings.Join(constraints, "\n\n"),
		"SectionOrder":  quotedList(sectionOrder(in.Resume)),
	})
}

// BuildAnalysis returns the ATS scoring prompt.
func BuildAnalysis(resume *types.Resume, jdText string) string {
	return Format(MustGet(fileAnalysis, "ats-analysis"), map[string]string{
		"JobDescription": strings.TrimSpace(jdText),
		"Resume":         toJSON(resume),
	})
}

// BuildQuestion returns the prompt answering an application form question.
func BuildQuestion(question string, resume *types.Resume, jdText string) string {
	if resume == nil {
		resume = &types.Resume{}
	}
	data := map[string]string{
		"Name":          resume.Name,
		"JobContext":    "Not provided",
		"Skills":        "Not specified",
		"RecentRole":    "Not specified",
		"RecentCompany": "Not specified",
		"Achievements":  "Not specified",
		"Degree":        "",
		"Institution":   "",
		"Question":      strings.TrimSpace(question),
	}
	if data["Name"] == "" {
		data["Name"] = "Applicant"
	}
	if jd := strings.TrimSpace(jdText); jd != "" {
		data["JobContext"] = truncateRunes(jd, questionContextLimit)
	}
	if len(resume.Skills) > 0 {
		data["Skills"] = toCompactJSON(resume.Skills)
	}
	if len(resume.Experience) > 0 {
		recent := resume.Experience[0]
		if recent.Role != "" {
			data["RecentRole"] = recent.Role
		}
		if recent.Company != "" {
			data["RecentCompany"] = recent.Company
		}
		if bullets := recent.NonEmptyBullets(); len(bullets) > 0 {
			if len(bullets) > 2 {
				bullets = bullets[:2]
			}
			data["Achievements"] = strings.Join(bullets, "; ")
		}
	}
	if len(resume.Education) > 0 {
		data["Degree"] = resume.Education[0].Degree
		data["Institution"] = resume.Education[0].Institution
	}
	return Format(MustGet(fileAnalysis, "answer-question"), data)
}

// BuildExtractProfile returns the prompt that turns raw resume text into a resume document.
func BuildExtractProfile(resumeText string) string {
	return Format(MustGet(fileProfile, "extract-profile"), map[string]string{
		"ResumeText": strings.TrimSpace(resumeText),
	})
}

func sectionOrder(r *types.Resume) []string {
	if r != nil && len(r.SectionOrder) > 0 {
		return r.SectionOrder
	}
	var order []string
	for _, s := range types.DefaultSectionOrder {
		if r.HasSection(s) {
			order = append(order, s)
		}
	}
	if len(order) == 0 {
		return []string{types.SectionSummary, types.SectionSkills, types.SectionExperience, types.SectionProjects, types.SectionEducation}
	}
	return order
}

func formatSectionLists(m map[string][]string) string {
	if len(m) == 0 {
		return "(none)"
	}
	sections := make([]string, 0, len(m))
	for s := range m {
		sections = append(sections, s)
	}
	sort.Strings(sections)
	var sb strings.Builder
	for _, s := range sections {
		if len(m[s]) == 0 {
			continue
		}
		fmt.Fprintf(&sb, "- %s: %s\n", s, strings.Join(m[s], "; "))
	}
	if sb.Len() == 0 {
		return "(none)"
	}
	return strings.TrimRight(sb.String(), "\n")
}

func quotedList(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = fmt.Sprintf("%q", s)
	}
	return strings.Join(quoted, ", ")
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "Unknown"
	}
	return s
}

func toJSON(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(data)
}

func toCompactJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(data)
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
