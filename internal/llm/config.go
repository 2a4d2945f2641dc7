// Package llm provides the model gateway: providers, per-task model chains, timeouts and the
// hosted/BYOK failover policy.
package llm

import "time"

// TaskType selects the model chain used for a request.
type TaskType string

const (
	// TaskJDParse is structured extraction from a job description or resume text
	TaskJDParse TaskType = "jdParse"
	// TaskTailor is the main resume rewrite
	TaskTailor TaskType = "tailor"
	// TaskScore is the ATS analysis report
	TaskScore TaskType = "score"
	// TaskStrategy is the optional exclusion planning pass
	TaskStrategy TaskType = "strategy"
	// TaskDefault covers everything else (question answering)
	TaskDefault TaskType = "default"
)

// ParseTaskType maps unknown values to TaskDefault.
func ParseTaskType(s string) TaskType {
	switch TaskType(s) {
	case TaskJDParse, TaskTailor, TaskScore, TaskStrategy:
		return TaskType(s)
	}
	return TaskDefault
}

// Provider represents an LLM provider
type Provider string

// Provider constants define supported LLM providers
const (
	// ProviderHosted is the free tier proxy
	ProviderHosted Provider = "hosted"
	// ProviderCerebras is the Cerebras inference API (OpenAI compatible)
	ProviderCerebras Provider = "cerebras"
	// ProviderMistral is the Mistral API (OpenAI compatible)
	ProviderMistral Provider = "mistral"
	// ProviderGroq is the Groq API (OpenAI compatible)
	ProviderGroq Provider = "groq"
	// ProviderOpenRouter is OpenRouter (OpenAI compatible)
	ProviderOpenRouter Provider = "openrouter"
	// ProviderGemini is the Google Gemini provider
	ProviderGemini Provider = "gemini"
)

// Request defaults shared by every provider.
const (
	DefaultModelTimeout = 10 * time.Second
	DefaultTotalTimeout = 90 * time.Second
	DefaultMaxTokens    = 4096
	DefaultTemperature  = 0.3
)

// Chains maps a task type to an ordered list of models to try.
type Chains map[TaskType][]string

// For returns the chain for a task, falling back to the default chain.
func (c Chains) For(task TaskType) []string {
	if models, ok := c[task]; ok && len(models) > 0 {
		return models
	}
	return c[TaskDefault]
}

// WithChain returns a copy of the chains with one task overridden.
func (c Chains) WithChain(task TaskType, models ...string) Chains {
	out := make(Chains, len(c)+1)
	for k, v := range c {
		out[k] = v
	}
	out[task] = models
	return out
}

// ProviderConfig describes how to reach one BYOK provider.
type ProviderConfig struct {
	Provider Provider
	BaseURL  string
	KeyEnv   string
	Headers  map[string]string
	Chains   Chains
}

// DefaultProviders returns the BYOK providers in cascade order.
func DefaultProviders() []ProviderConfig {
	return []ProviderConfig{
		{
			Provider: ProviderCerebras,
			BaseURL:  "https://api.cerebras.ai/v1",
			KeyEnv:   "CEREBRAS_API_KEY",
			Chains: Chains{
				TaskJDParse: {"llama-3.3-70b", "gpt-oss-120b"},
				TaskTailor:  {"qwen-3-235b-a22b-instruct-2507", "gpt-oss-120b"},
				TaskScore:   {"llama-3.3-70b", "gpt-oss-120b"},
				TaskDefault: {"llama-3.3-70b", "gpt-oss-120b"},
			},
		},
		{
			Provider: ProviderMistral,
			BaseURL:  "https://api.mistral.ai/v1",
			KeyEnv:   "MISTRAL_API_KEY",
			Chains: Chains{
				TaskJDParse: {"mistral-small-2506"},
				TaskScore:   {"mistral-small-2506"},
				TaskTailor:  {"mistral-large-2512"},
				TaskDefault: {"mistral-large-2512"},
			},
		},
		{
			Provider: ProviderGroq,
			BaseURL:  "https://api.groq.com/openai/v1",
			KeyEnv:   "GROQ_API_KEY",
			Chains: Chains{
				TaskDefault: {"meta-llama/llama-4-scout-17b-16e-instruct", "llama-3.3-70b-versatile", "llama-3.1-8b-instant"},
			},
		},
		{
			Provider: ProviderOpenRouter,
			BaseURL:  "https://openrouter.ai/api/v1",
			KeyEnv:   "OPENROUTER_API_KEY",
			Headers: map[string]string{
				"HTTP-Referer": "https://forgecv.app",
				"X-Title":      "ForgeCV",
			},
			Chains: Chains{
				TaskDefault: {"meta-llama/llama-3.3-70b-instruct:free", "openai/gpt-oss-120b:free", "openrouter/free"},
			},
		},
		{
			Provider: ProviderGemini,
			KeyEnv:   "GEMINI_API_KEY",
			Chains: Chains{
				TaskJDParse: {"gemini-2.5-flash-lite", "gemini-2.5-flash"},
				TaskTailor:  {"gemini-2.5-flash", "gemini-2.5-pro"},
				TaskDefault: {"gemini-2.5-flash", "gemini-2.5-flash-lite"},
			},
		},
	}
}

// LookupProvider finds the default configuration for a provider.
func LookupProvider(p Provider) (ProviderConfig, bool) {
	for _, cfg := range DefaultProviders() {
		if cfg.Provider == p {
			return cfg, true
		}
	}
	return ProviderConfig{}, false
}

// Options are the per-request knobs of Generate.
type Options struct {
	TaskType   TaskType
	ExpectJSON bool
	// TimeoutBudget bounds the whole call across every model tried. Zero uses the gateway default.
	TimeoutBudget time.Duration
	// ActionID groups the calls of one user action so the hosted tier charges it once.
	ActionID string
}
