package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIProvider talks to any OpenAI compatible chat completions endpoint (Groq, Cerebras,
// Mistral, OpenRouter).
type OpenAIProvider struct {
	name   Provider
	client *openai.Client
}

// headerTransport adds fixed headers to every request.
type headerTransport struct {
	base    http.RoundTripper
	headers map[string]string
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	for k, v := range t.headers {
		req.Header.Set(k, v)
	}
	return t.base.RoundTrip(req)
}

// NewOpenAIProvider creates a provider for cfg using apiKey.
func NewOpenAIProvider(cfg ProviderConfig, apiKey string) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required for %s", cfg.Provider)
	}
	clientCfg := openai.DefaultConfig(apiKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if len(cfg.Headers) > 0 {
		clientCfg.HTTPClient = &http.Client{
			Transport: &headerTransport{base: http.DefaultTransport, headers: cfg.Headers},
		}
	}
	return &OpenAIProvider{name: cfg.Provider, client: openai.NewClientWithConfig(clientCfg)}, nil
}

// Name returns the provider identifier.
func (p *OpenAIProvider) Name() Provider {
	return p.name
}

// Complete sends one chat completion request.
func (p *OpenAIProvider) Complete(ctx context.Context, model, prompt string, expectJSON bool) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   DefaultMaxTokens,
		Temperature: DefaultTemperature,
	}
	if expectJSON {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", p.classify(model, err)
	}
	if len(resp.Choices) == 0 {
		return "", &StatusError{Provider: p.name, Model: model, Code: http.StatusNoContent, Body: "no choices in response"}
	}
	return resp.Choices[0].Message.Content, nil
}

// classify turns go-openai errors into StatusError so the chain can act on the HTTP code.
func (p *OpenAIProvider) classify(model string, err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &StatusError{Provider: p.name, Model: model, Code: apiErr.HTTPStatusCode, Body: apiErr.Message}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		body := ""
		if reqErr.Err != nil {
			body = reqErr.Err.Error()
		}
		return &StatusError{Provider: p.name, Model: model, Code: reqErr.HTTPStatusCode, Body: body}
	}
	return err
}
