package schemas

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_AllSchemasCompile(t *testing.T) {
	for _, name := range []string{Resume, JDAnalysis, Strategy, Envelope, Format} {
		t.Run(name, func(t *testing.T) {
			s, err := Load(name)
			require.NoError(t, err)
			assert.NotNil(t, s)
		})
	}
}

func TestLoad_Unknown(t *testing.T) {
	_, err := Load("nope")
	require.Error(t, err)
	var loadErr *SchemaLoadError
	assert.ErrorAs(t, err, &loadErr)
}

func TestValidateBytes(t *testing.T) {
	tests := []struct {
		name   string
		schema string
		doc    string
		valid  bool
	}{
		{"resume with skills list", Resume, `{"name":"A","skills":["Go"],"experience":[{"company":"X","bullets":["b"]}]}`, true},
		{"resume with string bullets", Resume, `{"experience":[{"company":"X","bullets":"one"}]}`, true},
		{"resume experience not a list", Resume, `{"experience":"oops"}`, false},
		{"resume not an object", Resume, `[1,2]`, false},
		{"jd analysis", JDAnalysis, `{"company_name":"Acme","job_title":"Dev","mandatory_keywords":"Go, SQL"}`, true},
		{"jd analysis missing title", JDAnalysis, `{"company_name":"Acme"}`, false},
		{"strategy", Strategy, `{"exclude":{"projects":["Old"]},"notes":"n"}`, true},
		{"strategy with numbers", Strategy, `{"exclude":{"projects":[1]}}`, false},
		{"envelope", Envelope, `{"type":"resume-update","sender":"a","payload":{"resume":{}}}`, true},
		{"envelope unknown type", Envelope, `{"type":"explode"}`, false},
		{"format", Format, `{"font":"times","nameSize":21}`, true},
		{"format out of range", Format, `{"bodySize":30}`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBytes(tt.schema, []byte(tt.doc))
			if tt.valid {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.NotEmpty(t, vErr.Errors)
			assert.Contains(t, vErr.Error(), tt.schema)
		})
	}
}

func TestValidateJSON_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "resume.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"name":"Jane"}`), 0o600))

	assert.NoError(t, ValidateJSON(Resume, path))

	err := ValidateJSON(Resume, filepath.Join(dir, "missing.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestValidateJSONString(t *testing.T) {
	schema := `{"type":"object","required":["a"],"properties":{"a":{"type":"string"}}}`

	assert.NoError(t, ValidateJSONString(schema, `{"a":"x"}`))

	err := ValidateJSONString(schema, `{}`)
	require.Error(t, err)
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "(root)", vErr.Errors[0].Field)
}

func TestValidateJSONString_InvalidSchema(t *testing.T) {
	err := ValidateJSONString(`{"type": 12}`, `{}`)
	require.Error(t, err)
	var loadErr *SchemaLoadError
	assert.ErrorAs(t, err, &loadErr)
}
