package rendering

import (
	"embed"
	"fmt"
	"html/template"
	"strings"
	"sync"

	"github.com/jonathan/forgecv/internal/types"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var (
	htmlOnce sync.Once
	htmlTmpl *template.Template
	htmlErr  error
)

func htmlTemplate() (*template.Template, error) {
	htmlOnce.Do(func() {
		htmlTmpl, htmlErr = template.New("resume.html.tmpl").Funcs(template.FuncMap{
			"stylesheet": Stylesheet,
		}).ParseFS(templateFS, "templates/resume.html.tmpl")
		if htmlErr != nil {
			htmlErr = &TemplateError{Message: "failed to parse HTML template", Cause: htmlErr}
		}
	})
	return htmlTmpl, htmlErr
}

// RenderHTML renders r as a standalone HTML page laid out by f.
func RenderHTML(r *types.Resume, f types.FormatSettings) (string, error) {
	doc, err := NewDocument(r, f)
	if err != nil {
		return "", err
	}
	tmpl, err := htmlTemplate()
	if err != nil {
		return "", err
	}
	var out strings.Builder
	if err := tmpl.Execute(&out, doc); err != nil {
		return "", &TemplateError{Message: "failed to execute HTML template", Cause: err}
	}
	return out.String(), nil
}

// Stylesheet renders the page CSS for a layout. Every value comes from a closed set or an
// integer, so it is marked safe.
func Stylesheet(l Layout) template.CSS {
	transform, border, pad := "none", "none", "0"
	if l.Uppercase {
		transform = "uppercase"
	}
	if l.Rule {
		border, pad = "0.5pt solid #000", "2pt"
	}
	bullet := strings.ReplaceAll(l.BulletChar, `"`, "")
	css := fmt.Sprintf(`
@page { size: %.2fin %.2fin; margin: 0; }
* { box-sizing: border-box; }
body { margin: 0; }
.page { padding: %dpt %dpt; font-family: %s; font-size: %dpt; line-height: %.2f; color: #000; }
.name { text-align: center; font-size: %dpt; font-weight: bold; margin-bottom: 2pt; }
.contact { text-align: center; margin-bottom: %dpt; }
a { color: inherit; text-decoration: none; }
.section { margin-top: %dpt; }
h2 { font-size: %dpt; margin: 0 0 3pt 0; text-transform: %s; border-bottom: %s; padding-bottom: %s; }
.item { margin-bottom: %dpt; }
.row { display: flex; justify-content: space-between; font-size: %dpt; }
.bold { font-weight: bold; }
.italic { font-style: italic; }
ul { margin: 0; padding-left: 12pt; list-style: none; }
li { margin-bottom: %dpt; position: relative; }
li::before { content: "%s"; position: absolute; left: -10pt; }
.category { font-weight: bold; }
`,
		l.Page.Width, l.Page.Height,
		l.MarginTop, l.MarginSide, l.FontFamily, l.BodySize, l.LineHeight,
		l.NameSize,
		l.SectionGap,
		l.SectionGap,
		l.HeaderSize, transform, border, pad,
		l.ItemGap,
		l.SubheaderSize,
		l.BulletGap,
		bullet,
	)
	return template.CSS(css)
}
