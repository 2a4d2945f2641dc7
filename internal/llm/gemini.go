package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// GeminiProvider implements Completer for Google Gemini
type GeminiProvider struct {
	client *genai.Client
}

// NewGeminiProvider creates a new Gemini provider
func NewGeminiProvider(ctx context.Context, apiKey string) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiProvider{client: client}, nil
}

// Name returns the provider identifier.
func (g *GeminiProvider) Name() Provider {
	return ProviderGemini
}

// Complete generates content with one Gemini model.
func (g *GeminiProvider) Complete(ctx context.Context, model, prompt string, expectJSON bool) (string, error) {
	m := g.client.GenerativeModel(model)
	m.SetTemperature(DefaultTemperature)
	m.SetMaxOutputTokens(DefaultMaxTokens)
	if expectJSON {
		m.ResponseMIMEType = "application/json"
	}

	resp, err := m.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", classifyGeminiError(model, err)
	}

	text, err := extractTextFromResponse(resp)
	if err != nil {
		return "", &StatusError{Provider: ProviderGemini, Model: model, Code: http.StatusNoContent, Body: err.Error()}
	}
	if expectJSON {
		text = CleanJSONBlock(text)
	}
	return text, nil
}

// Close releases resources held by the client
func (g *GeminiProvider) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

// classifyGeminiError maps googleapi errors onto StatusError codes. Gemini reports an invalid
// key as 400 INVALID_ARGUMENT with an "API key not valid" message, which is treated as 401.
func classifyGeminiError(model string, err error) error {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return err
	}
	code := gerr.Code
	if code == http.StatusBadRequest && strings.Contains(strings.ToLower(gerr.Message), "api key not valid") {
		code = http.StatusUnauthorized
	}
	return &StatusError{Provider: ProviderGemini, Model: model, Code: code, Body: gerr.Message}
}

// extractTextFromResponse extracts text from Gemini API response
func extractTextFromResponse(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates in response")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("no content in response")
	}

	var parts []string
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			parts = append(parts, string(text))
		}
	}

	if len(parts) == 0 {
		return "", fmt.Errorf("no text parts in response")
	}

	return strings.Join(parts, ""), nil
}
