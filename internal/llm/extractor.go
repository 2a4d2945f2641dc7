// Package llm - extractor.go provides generic LLM-based structured extraction.
package llm

import (
	"fmt"
	"strings"
)

// ExtractionSchema defines the structure for LLM-based content extraction.
// It provides a reusable way to define what information to extract from text.
type ExtractionSchema struct {
	Name        string        // Schema name (e.g., "JDAnalysis", "Strategy")
	Description string        // System prompt preamble describing the extraction task
	Fields      []SchemaField // Expected output fields
}

// SchemaField defines a single field in the extraction output.
type SchemaField struct {
	Name        string // JSON field name
	Type        string // Type hint: "string", "[]string", "map[string]string"
	Description string // Description for the LLM
	Required    bool   // Whether this field is required
}

// BuildExtractionPrompt constructs the LLM prompt from schema and input text.
func BuildExtractionPrompt(schema ExtractionSchema, inputText string) string {
	var sb strings.Builder

	// System description
	sb.WriteString(schema.Description)
	sb.WriteString("\n\n")

	// Output schema
	sb.WriteString("Return ONLY valid JSON matching this exact structure:\n{\n")
	for i, field := range schema.Fields {
		typeHint := field.Type
		if typeHint == "" {
			typeHint = "string"
		}
		requiredHint := ""
		if field.Required {
			requiredHint = " (required)"
		}
		sb.WriteString(fmt.Sprintf("  \"%s\": %s%s", field.Name, typeHint, requiredHint))
		if field.Description != "" {
			sb.WriteString(fmt.Sprintf(" // %s", field.Description))
		}
		if i < len(schema.Fields)-1 {
			sb.WriteString(",")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("}\n\n")

	// Instructions
	sb.WriteString("IMPORTANT:\n")
	sb.WriteString("- Extract information directly from the text, do not invent or summarize.\n")
	sb.WriteString("- Return ONLY the JSON object, no markdown, no explanation, no code blocks.\n\n")

	// Input text
	sb.WriteString("Input text:\n\"\"\"\n")
	sb.WriteString(inputText)
	sb.WriteString("\n\"\"\"\n")

	return sb.String()
}

// --- Predefined Schemas ---

// JDAnalysisSchema returns the extraction schema for job descriptions.
// The field set matches types.JDAnalysis.
func JDAnalysisSchema(description string) ExtractionSchema {
	return ExtractionSchema{
		Name:        "JDAnalysis",
		Description: description,
		Fields: []SchemaField{
			{Name: "company_name", Type: "\"string\"", Description: "Exact company name from the posting", Required: true},
			{Name: "job_title", Type: "\"string\"", Description: "Exact job title", Required: true},
			{Name: "job_identifier", Type: "\"string\"", Description: "Job ID if found (e.g. R12345), otherwise role_name_in_snake_case"},
			{Name: "location", Type: "\"string\"", Description: "Primary location (City, State) or Remote"},
			{Name: "seniority", Type: "\"string\"", Description: "junior/mid/senior/staff/principal/lead/manager, inferred from title and requirements"},
			{Name: "years_experience", Type: "\"string\"", Description: "number or range, or 'not specified'"},
			{Name: "mandatory_keywords", Type: "[\"string\"]", Description: "ONLY skills explicitly marked as required, be thorough", Required: true},
			{Name: "preferred_keywords", Type: "[\"string\"]", Description: "Skills marked nice-to-have or preferred"},
			{Name: "soft_skills", Type: "[\"string\"]", Description: "Only if explicitly mentioned"},
			{Name: "action_verbs", Type: "[\"string\"]", Description: "Verbs from the responsibilities (design, build, lead...)"},
			{Name: "industry_terms", Type: "[\"string\"]", Description: "Domain-specific business language used in the posting"},
			{Name: "tech_stack_nuances", Type: "[\"string\"]", Description: "Specific versions, sub-tools, libraries; be granular"},
			{Name: "key_metrics_emphasis", Type: "[\"string\"]", Description: "Scale indicators: millions of users, low latency, revenue growth"},
			{Name: "domain_context", Type: "\"string\"", Description: "Industry or sector (Fintech, Healthcare, AdTech)"},
			{Name: "team_context", Type: "\"string\"", Description: "Team or org for this role, reporting line, team size if mentioned"},
			{Name: "role_summary", Type: "\"string\"", Description: "2-3 sentence summary of what this person will do day-to-day"},
			{Name: "company_description", Type: "\"string\"", Description: "One sentence on what the company does, if stated"},
		},
	}
}

// StrategySchema returns the schema of the exclusion planning pass.
func StrategySchema(description string) ExtractionSchema {
	return ExtractionSchema{
		Name:        "Strategy",
		Description: description,
		Fields: []SchemaField{
			{
				Name:        "exclude",
				Type:        "{\"section\": [\"item name\"]}",
				Description: "Items to leave out to fit the page target, by section, using the exact company/name/organization/title",
				Required:    true,
			},
			{
				Name:        "notes",
				Type:        "\"string\"",
				Description: "One or two sentences of guidance for the rewrite",
			},
		},
	}
}
