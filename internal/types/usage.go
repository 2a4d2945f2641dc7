package types

import "time"

// Usage reports the hosted tier's daily action allowance.
type Usage struct {
	Used      int        `json:"used"`
	Remaining int        `json:"remaining"`
	Limit     int        `json:"limit"`
	ResetsAt  *time.Time `json:"resetsAt,omitempty"`
}

// GenerateRequest is the body of POST /api/ai/generate.
type GenerateRequest struct {
	Prompt     string `json:"prompt" validate:"required"`
	TaskType   string `json:"taskType,omitempty"`
	ExpectJSON bool   `json:"expectJson"`
	ActionID   string `json:"actionId,omitempty"`
}

// GenerateResponse is the success body of POST /api/ai/generate.
type GenerateResponse struct {
	Result string `json:"result"`
	Usage  *Usage `json:"usage,omitempty"`
}

// ErrorResponse is the error body shared by the proxy endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Usage   *Usage `json:"usage,omitempty"`
}

// JobPosting is a fetched job description.
type JobPosting struct {
	URL     string `json:"url"`
	Title   string `json:"title,omitempty"`
	Company string `json:"company,omitempty"`
	Text    string `json:"text"`
	Method  string `json:"method"`
}
