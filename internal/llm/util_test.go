package llm

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanJSONBlock_MarkdownCodeBlock(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "json code block",
			input:    "```json\n{\"key\": \"value\"}\n```",
			expected: `{"key": "value"}`,
		},
		{
			name:     "generic code block",
			input:    "```\n{\"key\": \"value\"}\n```",
			expected: `{"key": "value"}`,
		},
		{
			name:     "code block with language",
			input:    "```javascript\n{\"key\": \"value\"}\n```",
			expected: `{"key": "value"}`,
		},
		{
			name:     "plain JSON",
			input:    `{"key": "value"}`,
			expected: `{"key": "value"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CleanJSONBlock(tt.input)
			if result != tt.expected {
				t.Errorf("CleanJSONBlock() = %q, want %q", result, tt.expected)
			}
		})
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		ok       bool
	}{
		{name: "direct object", input: `{"key": "value"}`, expected: `{"key": "value"}`, ok: true},
		{name: "surrounding whitespace", input: "\n  {\"a\": 1}  \n", expected: `{"a": 1}`, ok: true},
		{name: "json fence", input: "Here you go:\n```json\n{\"a\": [1, 2]}\n```\nThanks", expected: `{"a": [1, 2]}`, ok: true},
		{name: "bare fence", input: "```\n{\"b\": true}\n```", expected: `{"b": true}`, ok: true},
		{name: "first fence wins", input: "```json\n{\"first\": 1}\n```\n```json\n{\"second\": 2}\n```", expected: `{"first": 1}`, ok: true},
		{name: "preamble and trailer", input: "Sure! {\"company\": \"Acme\"} Let me know.", expected: `{"company": "Acme"}`, ok: true},
		{name: "braces inside strings", input: `prefix {"template": "Hello {name}!"} suffix`, expected: `{"template": "Hello {name}!"}`, ok: true},
		{name: "not json", input: "not json", ok: false},
		{name: "empty", input: "", ok: false},
		{name: "array is not an object", input: `["a", "b"]`, ok: false},
		{name: "broken object", input: `{"a": 1`, ok: false},
		{name: "two objects", input: `{"a": 1} and {"b": 2}`, ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, ok := ExtractJSON(tt.input)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.JSONEq(t, tt.expected, string(raw))
			} else {
				assert.Nil(t, raw)
			}
		})
	}
}

func TestExtractJSON_RoundTrip(t *testing.T) {
	objects := []map[string]any{
		{},
		{"a": "b"},
		{"nested": map[string]any{"list": []any{1.0, "two", nil, true}}},
		{"text": "contains ``` backticks and { braces }"},
	}
	for _, o := range objects {
		encoded, err := json.Marshal(o)
		require.NoError(t, err)

		var direct map[string]any
		require.True(t, DecodeJSON(string(encoded), &direct))
		assert.Equal(t, o, direct)

		var fenced map[string]any
		require.True(t, DecodeJSON("```json\n"+string(encoded)+"\n```", &fenced))
		assert.Equal(t, o, fenced)
	}
}

func TestDecodeJSON_TypeMismatch(t *testing.T) {
	var v struct {
		N int `json:"n"`
	}
	assert.False(t, DecodeJSON(`{"n": "not a number"}`, &v))
	assert.False(t, DecodeJSON("nothing here", &v))
}

func TestSnippet(t *testing.T) {
	assert.Equal(t, "short", Snippet("  short  ", 10))
	assert.Equal(t, "abc...", Snippet("abcdef", 3))
	assert.Equal(t, "héé...", Snippet("héééé", 3))
}
