package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultProviders_CascadeOrder(t *testing.T) {
	var names []Provider
	for _, p := range DefaultProviders() {
		names = append(names, p.Provider)
		assert.NotEmpty(t, p.Chains.For(TaskDefault), "%s needs a default chain", p.Provider)
	}
	assert.Equal(t, []Provider{ProviderCerebras, ProviderMistral, ProviderGroq, ProviderOpenRouter, ProviderGemini}, names)
}

func TestChains_ForFallsBackToDefault(t *testing.T) {
	cfg, ok := LookupProvider(ProviderMistral)
	assert.True(t, ok)
	assert.Equal(t, []string{"mistral-small-2506"}, cfg.Chains.For(TaskJDParse))
	assert.Equal(t, []string{"mistral-large-2512"}, cfg.Chains.For(TaskStrategy))
}

func TestChains_WithChain(t *testing.T) {
	base := Chains{TaskDefault: {"a"}}
	over := base.WithChain(TaskTailor, "b", "c")
	assert.Equal(t, []string{"b", "c"}, over.For(TaskTailor))
	assert.Equal(t, []string{"a"}, base.For(TaskTailor), "original is untouched")
}

func TestChains_EmptyConfig(t *testing.T) {
	assert.Empty(t, Chains{}.For(TaskTailor))
}

func TestParseTaskType(t *testing.T) {
	assert.Equal(t, TaskJDParse, ParseTaskType("jdParse"))
	assert.Equal(t, TaskDefault, ParseTaskType("whatever"))
}

func TestOpenRouterHeaders(t *testing.T) {
	cfg, ok := LookupProvider(ProviderOpenRouter)
	assert.True(t, ok)
	assert.Equal(t, "https://forgecv.app", cfg.Headers["HTTP-Referer"])
	assert.Equal(t, "ForgeCV", cfg.Headers["X-Title"])
}
