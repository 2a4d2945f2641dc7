package rendering

import (
	"strings"
	"sync"
	"text/template"

	"github.com/jonathan/forgecv/internal/types"
)

var (
	latexOnce sync.Once
	latexTmpl *template.Template
	latexErr  error
)

func latexTemplate() (*template.Template, error) {
	latexOnce.Do(func() {
		latexTmpl, latexErr = template.New("resume.tex.tmpl").Funcs(template.FuncMap{
			"escape":  EscapeLaTeX,
			"bullet":  latexBullet,
			"heading": latexHeading,
		}).ParseFS(templateFS, "templates/resume.tex.tmpl")
		if latexErr != nil {
			latexErr = &TemplateError{Message: "failed to parse LaTeX template", Cause: latexErr}
		}
	})
	return latexTmpl, latexErr
}

// RenderLaTeX renders r as a LaTeX document for users who typeset their own copy.
func RenderLaTeX(r *types.Resume, f types.FormatSettings) (string, error) {
	doc, err := NewDocument(r, f)
	if err != nil {
		return "", err
	}
	tmpl, err := latexTemplate()
	if err != nil {
		return "", err
	}
	var out strings.Builder
	if err := tmpl.Execute(&out, doc); err != nil {
		return "", &TemplateError{Message: "failed to execute LaTeX template", Cause: err}
	}
	return out.String(), nil
}

func latexBullet(char string) string {
	switch char {
	case "–":
		return "--"
	case "•", "":
		return `\textbullet{}`
	}
	return EscapeLaTeX(char)
}

func latexHeading(l Layout, title string) string {
	if l.Uppercase {
		title = strings.ToUpper(title)
	}
	return EscapeLaTeX(title)
}
