//nolint:revive // types is a standard Go package name pattern
package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestItemRef_JSON(t *testing.T) {
	var raw RawExclusions
	input := `{"experience": ["Acme", 2, {"company": "Globex"}], "projects": []}`
	require.NoError(t, json.Unmarshal([]byte(input), &raw))

	require.Len(t, raw["experience"], 3)
	assert.Equal(t, "Acme", raw["experience"][0].Name)
	assert.False(t, raw["experience"][0].IsIndex())
	require.True(t, raw["experience"][1].IsIndex())
	assert.Equal(t, 2, *raw["experience"][1].Index)
	assert.Equal(t, "Globex", raw["experience"][2].Name)

	out, err := json.Marshal(MustInclude{"experience": {NameRef("Acme"), IndexRef(1)}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"experience": ["Acme", 1]}`, string(out))
}

func TestMustInclude_IsEmpty(t *testing.T) {
	assert.True(t, MustInclude{}.IsEmpty())
	assert.True(t, MustInclude{"experience": nil}.IsEmpty())
	assert.False(t, MustInclude{"experience": {NameRef("Acme")}}.IsEmpty())
}

func TestParseTailoringStrategy(t *testing.T) {
	assert.Equal(t, StrategyJDFocus, ParseTailoringStrategy("jd_focus"))
	assert.Equal(t, StrategyProfileFocus, ParseTailoringStrategy("profile_focus"))
	assert.Equal(t, StrategyBalanced, ParseTailoringStrategy("aggressive"))
	assert.Equal(t, StrategyBalanced, ParseTailoringStrategy(""))
}

func TestJDAnalysis_Tolerant(t *testing.T) {
	input := `{"company_name": "Acme", "job_title": "SWE", "years_experience": 5,
		"mandatory_keywords": "Go, Kubernetes", "preferred_keywords": ["gRPC", null, 7]}`
	var a JDAnalysis
	require.NoError(t, json.Unmarshal([]byte(input), &a))
	assert.Equal(t, LooseString("5"), a.YearsExperience)
	assert.Equal(t, StringList{"Go", "Kubernetes"}, a.MandatoryKeywords)
	assert.Equal(t, StringList{"gRPC", "7"}, a.PreferredKeywords)
}

func TestJDAnalysis_KeywordsDeduplicated(t *testing.T) {
	a := &JDAnalysis{
		MandatoryKeywords: StringList{"Go", "SQL"},
		PreferredKeywords: StringList{"go", "Kafka"},
		IndustryTerms:     StringList{"Fintech"},
	}
	assert.Equal(t, []string{"Go", "SQL", "Kafka", "Fintech"}, a.Keywords())
}

func TestStubJDAnalysis(t *testing.T) {
	stub := StubJDAnalysis()
	assert.True(t, stub.IsStub())
	out, err := json.Marshal(stub)
	require.NoError(t, err)
	assert.JSONEq(t, `{"company_name":"Unknown_Company","job_title":"Role","mandatory_keywords":[]}`, string(out))
}

func TestFormatSettings_MergeAndValidate(t *testing.T) {
	fs, err := MergeFormatSettings([]byte(`{"font": "helvetica", "nameSize": 24}`))
	require.NoError(t, err)
	assert.Equal(t, "helvetica", fs.Font)
	assert.Equal(t, 24, fs.NameSize)
	assert.Equal(t, 10, fs.BodySize, "unset keys keep defaults")
	assert.Equal(t, "letter", fs.PageSize)
	require.NoError(t, fs.Validate())

	fs.BodySize = 20
	assert.Error(t, fs.Validate())

	fs = DefaultFormatSettings()
	fs.HeaderStyle = "fancy"
	assert.Error(t, fs.Validate())

	fs, err = MergeFormatSettings(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultFormatSettings(), fs)
}
