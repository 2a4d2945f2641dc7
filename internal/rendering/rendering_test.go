package rendering

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/forgecv/internal/types"
)

func sampleResume(t *testing.T) *types.Resume {
	t.Helper()
	r, err := types.ParseResume([]byte(`{
		"name": "Jane Doe",
		"contact": {"email": "jane@example.com", "phone": "555-0100", "linkedin": "linkedin.com/in/jane"},
		"summary": "Backend engineer <b>shipping</b> Go services.",
		"skills": {"Languages": "Go, SQL", "Cloud": ""},
		"experience": [{"company": "Acme", "role": "Engineer", "dates": "2021 - Present", "location": "Remote", "bullets": ["Built the billing API", " "]}],
		"education": [{"institution": "State University", "degree": "B.S. CS", "gpa": "3.8", "dates": "2017"}],
		"research": [{"title": "Fast Joins", "conference": "VLDB", "link": "example.org/joins"}],
		"section_order": ["experience", "summary", "education"],
		"section_titles": {"experience": "Work History"}
	}`))
	require.NoError(t, err)
	return r
}

func TestNewLayout(t *testing.T) {
	l := NewLayout(types.DefaultFormatSettings())
	assert.Equal(t, 20, l.MarginTop)
	assert.Equal(t, 30, l.MarginSide)
	assert.Equal(t, 1.2, l.LineHeight)
	assert.True(t, l.Uppercase)
	assert.True(t, l.Rule)
	assert.Equal(t, letterPage, l.Page)

	f := types.DefaultFormatSettings()
	f.Margins, f.Density, f.HeaderStyle, f.PageSize, f.Font = "narrow", "compact", "bold_noline", "a4", "unknown"
	l = NewLayout(f)
	assert.Equal(t, 15, l.MarginTop)
	assert.Equal(t, 20, l.MarginSide)
	assert.Equal(t, 3, l.SectionGap)
	assert.False(t, l.Uppercase)
	assert.False(t, l.Rule)
	assert.Equal(t, a4Page, l.Page)
	assert.Equal(t, fontFamilies["times"], l.FontFamily)
}

func TestSectionOrder(t *testing.T) {
	r := sampleResume(t)
	assert.Equal(t, []string{"experience", "summary", "education", "skills", "research"}, SectionOrder(r))
	assert.Equal(t, "Work History", SectionTitle(r, "experience"))
	assert.Equal(t, "Education", SectionTitle(r, "education"))
}

func TestNewDocument(t *testing.T) {
	doc, err := NewDocument(sampleResume(t), types.DefaultFormatSettings())
	require.NoError(t, err)

	assert.Equal(t, []ContactPart{
		{Text: "jane@example.com", Href: "mailto:jane@example.com"},
		{Text: "555-0100"},
		{Text: "LinkedIn", Href: "https://linkedin.com/in/jane"},
	}, doc.Contact)

	exp := doc.Sections[0]
	require.Len(t, exp.Items, 1)
	assert.Equal(t, ItemView{
		Left: "Acme", Right: "2021 - Present", SubLeft: "Engineer", SubRight: "Remote",
		Bullets: []string{"Built the billing API"},
	}, exp.Items[0])

	edu := doc.Sections[2]
	assert.Equal(t, []string{"GPA: 3.8"}, edu.Items[0].Bullets)
	assert.Equal(t, "State University", edu.Items[0].Left)

	skills := doc.Sections[3]
	assert.Len(t, skills.Skills, 1, "empty categories are dropped")

	research := doc.Sections[4]
	assert.Equal(t, "https://example.org/joins", research.Items[0].Href)

	_, err = NewDocument(nil, types.DefaultFormatSettings())
	assert.Error(t, err)
}

func TestNewDocument_InlineDatesAndNoLinks(t *testing.T) {
	f := types.DefaultFormatSettings()
	f.DateAlign = "inline"
	f.ShowLinks = false
	doc, err := NewDocument(sampleResume(t), f)
	require.NoError(t, err)

	assert.Equal(t, ContactPart{Text: "linkedin.com/in/jane"}, doc.Contact[2])
	assert.Equal(t, "Acme | 2021 - Present", doc.Sections[0].Items[0].Left)
	assert.Empty(t, doc.Sections[0].Items[0].Right)
	assert.Equal(t, "example.org/joins", doc.Sections[4].Items[0].SubRight)
}

func TestRenderHTML(t *testing.T) {
	html, err := RenderHTML(sampleResume(t), types.DefaultFormatSettings())
	require.NoError(t, err)

	assert.Contains(t, html, `<div class="name">Jane Doe</div>`)
	assert.Contains(t, html, `<h2>Work History</h2>`)
	assert.Contains(t, html, "Built the billing API")
	assert.Contains(t, html, "&lt;b&gt;shipping&lt;/b&gt;", "resume text is escaped")
	assert.Contains(t, html, "size: 8.50in 11.00in")
	assert.Contains(t, html, "'Times New Roman'")
	assert.Contains(t, html, `href="mailto:jane@example.com"`)
	assert.Less(t, strings.Index(html, "Work History"), strings.Index(html, "Summary"))
}

func TestRenderLaTeX(t *testing.T) {
	tex, err := RenderLaTeX(sampleResume(t), types.DefaultFormatSettings())
	require.NoError(t, err)

	assert.Contains(t, tex, `\documentclass[10pt]{article}`)
	assert.Contains(t, tex, "letterpaper")
	assert.Contains(t, tex, `\section*{WORK HISTORY}`)
	assert.Contains(t, tex, `\textbf{Acme}\hfill 2021 - Present\\`)
	assert.Contains(t, tex, `\item Built the billing API`)
	assert.Contains(t, tex, `label=\textbullet{}`)
	assert.Contains(t, tex, `\href{mailto:jane@example.com}{jane@example.com}`)
}

func TestEscapeLaTeX(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"plain text", "plain text"},
		{`a\b`, `a\textbackslash{}b`},
		{"{x}", `\{x\}`},
		{"$5 & 10% #1", `\$5 \& 10\% \#1`},
		{"x^2_i~", `x\textasciicircum{}2\_i\textasciitilde{}`},
		{"café", "café"},
		{"Cut p99 latency <50ms", `Cut p99 latency \textless{}50ms`},
		{"Go | Rust -> gRPC", `Go \textbar{} Rust -\textgreater{} gRPC`},
		{`C:\tmp\{id}`, `C:\textbackslash{}tmp\textbackslash{}\{id\}`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, EscapeLaTeX(tt.in), tt.in)
	}
}

func TestRenderLaTeX_EscapesResumeText(t *testing.T) {
	r := &types.Resume{
		Name: "Jane Doe",
		Experience: []types.Item{{
			Company: "R&D Labs",
			Bullets: []string{"Raised NPS by 20% for <1k accounts"},
		}},
	}
	tex, err := RenderLaTeX(r, types.DefaultFormatSettings())
	require.NoError(t, err)
	assert.Contains(t, tex, `R\&D Labs`)
	assert.Contains(t, tex, `Raised NPS by 20\% for \textless{}1k accounts`)
	assert.NotContains(t, tex, "R&D")
}

func TestLatexBullet(t *testing.T) {
	assert.Equal(t, `\textbullet{}`, latexBullet("•"))
	assert.Equal(t, "--", latexBullet("–"))
}
