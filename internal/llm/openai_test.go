package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAIProvider_Complete(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		assert.Equal(t, "ForgeCV", r.Header.Get("X-Title"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"{\"ok\":true}"}}]}`))
	}))
	defer srv.Close()

	p, err := NewOpenAIProvider(ProviderConfig{
		Provider: ProviderOpenRouter,
		BaseURL:  srv.URL,
		Headers:  map[string]string{"X-Title": "ForgeCV"},
	}, "key")
	require.NoError(t, err)

	text, err := p.Complete(context.Background(), "some-model", "prompt", true)
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, text)
	assert.Equal(t, "some-model", body["model"])
	assert.Equal(t, float64(DefaultMaxTokens), body["max_tokens"])
	format, _ := body["response_format"].(map[string]any)
	assert.Equal(t, "json_object", format["type"])
}

func TestOpenAIProvider_StatusCodes(t *testing.T) {
	for _, code := range []int{http.StatusTooManyRequests, http.StatusUnauthorized, http.StatusPaymentRequired} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(code)
			_, _ = w.Write([]byte(`{"error":{"message":"nope","type":"error"}}`))
		}))

		p, err := NewOpenAIProvider(ProviderConfig{Provider: ProviderGroq, BaseURL: srv.URL}, "key")
		require.NoError(t, err)
		_, err = p.Complete(context.Background(), "m", "p", false)
		var status *StatusError
		require.ErrorAs(t, err, &status)
		assert.Equal(t, code, status.Code)
		assert.Equal(t, ProviderGroq, status.Provider)
		srv.Close()
	}
}

func TestOpenAIProvider_RequiresKey(t *testing.T) {
	_, err := NewOpenAIProvider(ProviderConfig{Provider: ProviderGroq}, "")
	assert.Error(t, err)
}

func TestNewBYOKCascade_OrderAndPreference(t *testing.T) {
	c, err := NewBYOKCascade(context.Background(), map[Provider]string{
		ProviderGroq:     "g",
		ProviderCerebras: "c",
	}, ProviderGroq, ChainOptions{})
	require.NoError(t, err)
	require.Len(t, c.Backends, 2)
	assert.Equal(t, ProviderGroq, c.Backends[0].Completer.Name())
	assert.Equal(t, ProviderCerebras, c.Backends[1].Completer.Name())
}
