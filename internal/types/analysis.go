package types

// ATSReport is the model's assessment of a resume against a job description.
type ATSReport struct {
	Score           int        `json:"score"`
	MissingKeywords StringList `json:"missing_keywords"`
	MatchingAreas   StringList `json:"matching_areas"`
	Recommendations StringList `json:"recommendations"`
	SummaryFeedback string     `json:"summary_feedback"`
}

// KeywordGroup reports which keywords of one weight class a resume contains.
type KeywordGroup struct {
	Matched []string `json:"matched"`
	Missing []string `json:"missing"`
	Total   int      `json:"total"`
}

// LiveScore is the keyword score computed locally without a model call.
type LiveScore struct {
	Score     int          `json:"score"`
	Mandatory KeywordGroup `json:"mandatory"`
	Preferred KeywordGroup `json:"preferred"`
	Industry  KeywordGroup `json:"industry"`
}

// DiffSummary describes how a tailored resume departs from its base.
type DiffSummary struct {
	BulletsChanged int      `json:"bulletsChanged"`
	TotalBullets   int      `json:"totalBullets"`
	SummaryChanged bool     `json:"summaryChanged"`
	SkillsAdded    []string `json:"skillsAdded"`
	SkillsRemoved  []string `json:"skillsRemoved"`
}

// StyleSummary counts how many bullets follow the usual resume conventions.
type StyleSummary struct {
	TotalBullets int `json:"totalBullets"`
	StrongVerb   int `json:"strongVerb"`
	Quantified   int `json:"quantified"`
	// Weak lists bullets that neither open with an action verb nor carry a number.
	Weak []string `json:"weak"`
}

// Answer is a generated response to an application question.
type Answer struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}
