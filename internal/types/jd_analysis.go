package types

import "strings"

// JDAnalysis is the structured view of a job description produced by the parse step.
type JDAnalysis struct {
	CompanyName        string      `json:"company_name"`
	JobTitle           string      `json:"job_title"`
	JobIdentifier      string      `json:"job_identifier,omitempty"`
	Location           string      `json:"location,omitempty"`
	Seniority          string      `json:"seniority,omitempty"`
	YearsExperience    LooseString `json:"years_experience,omitempty"`
	MandatoryKeywords  StringList  `json:"mandatory_keywords"`
	PreferredKeywords  StringList  `json:"preferred_keywords,omitempty"`
	SoftSkills         StringList  `json:"soft_skills,omitempty"`
	ActionVerbs        StringList  `json:"action_verbs,omitempty"`
	IndustryTerms      StringList  `json:"industry_terms,omitempty"`
	TechStackNuances   StringList  `json:"tech_stack_nuances,omitempty"`
	KeyMetricsEmphasis StringList  `json:"key_metrics_emphasis,omitempty"`
	DomainContext      string      `json:"domain_context,omitempty"`
	TeamContext        string      `json:"team_context,omitempty"`
	RoleSummary        string      `json:"role_summary,omitempty"`
	CompanyDescription string      `json:"company_description,omitempty"`
}

// StubJDAnalysis is the minimal analysis used when the parse step yields nothing usable.
func StubJDAnalysis() *JDAnalysis {
	return &JDAnalysis{
		CompanyName:       "Unknown_Company",
		JobTitle:          "Role",
		MandatoryKeywords: StringList{},
	}
}

// IsStub reports whether the analysis is the fallback stub.
func (a *JDAnalysis) IsStub() bool {
	return a != nil && a.CompanyName == "Unknown_Company" && a.JobTitle == "Role" && len(a.MandatoryKeywords) == 0
}

// Keywords returns mandatory, preferred and industry keywords, de-duplicated case-insensitively
// in that order.
func (a *JDAnalysis) Keywords() []string {
	if a == nil {
		return nil
	}
	seen := map[string]bool{}
	var out []string
	for _, list := range [][]string{a.MandatoryKeywords, a.PreferredKeywords, a.IndustryTerms} {
		for _, k := range list {
			key := strings.ToLower(strings.TrimSpace(k))
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, k)
		}
	}
	return out
}
