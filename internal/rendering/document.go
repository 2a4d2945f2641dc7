// Package rendering lays a resume out as HTML (for preview and PDF printing) or LaTeX, driven by
// the user's FormatSettings.
package rendering

import (
	"fmt"
	"strings"

	"github.com/jonathan/forgecv/internal/types"
)

// Document is a resume flattened into what a template prints.
type Document struct {
	Name     string
	Contact  []ContactPart
	Sections []Section
	Layout   Layout
}

// ContactPart is one entry of the contact line. Href is empty for plain text.
type ContactPart struct {
	Text string
	Href string
}

// Section is one titled block. Exactly one of Text, Skills or Items is set.
type Section struct {
	Key    string
	Title  string
	Text   string
	Skills []types.SkillCategory
	Items  []ItemView
}

// ItemView is an item reduced to two rows of left/right text plus bullets.
type ItemView struct {
	Left     string
	Right    string
	SubLeft  string
	SubRight string
	Href     string
	Bullets  []string
}

// HasSubRow reports whether the second row has anything to print.
func (it ItemView) HasSubRow() bool {
	return it.SubLeft != "" || it.SubRight != ""
}

// Layout is FormatSettings resolved to concrete measurements (points).
type Layout struct {
	FontFamily    string
	MarginTop     int
	MarginSide    int
	SectionGap    int
	ItemGap       int
	BulletGap     int
	LineHeight    float64
	NameSize      int
	BodySize      int
	HeaderSize    int
	SubheaderSize int
	Uppercase     bool
	Rule          bool
	BulletChar    string
	DateInline    bool
	ShowLinks     bool
	Page          PageSize
}

// PageSize is a paper size in inches.
type PageSize struct {
	Name   string
	Width  float64
	Height float64
}

var (
	letterPage = PageSize{Name: "letter", Width: 8.5, Height: 11}
	a4Page     = PageSize{Name: "a4", Width: 8.27, Height: 11.69}
)

// PageFor returns the paper size for a FormatSettings page size name.
func PageFor(name string) PageSize {
	if name == a4Page.Name {
		return a4Page
	}
	return letterPage
}

var fontFamilies = map[string]string{
	"times":     "'Times New Roman', Times, serif",
	"helvetica": "'Helvetica Neue', Helvetica, Arial, sans-serif",
	"courier":   "'Courier New', Courier, monospace",
}

type spacing struct {
	section, item, bullet int
	lineHeight            float64
}

var densities = map[string]spacing{
	"compact":  {section: 3, item: 4, bullet: 1, lineHeight: 1.15},
	"normal":   {section: 5, item: 6, bullet: 2, lineHeight: 1.2},
	"spacious": {section: 8, item: 10, bullet: 3, lineHeight: 1.3},
}

// NewLayout resolves format settings. Unknown enum values fall back to the defaults.
func NewLayout(f types.FormatSettings) Layout {
	d := types.DefaultFormatSettings()
	font, ok := fontFamilies[f.Font]
	if !ok {
		font = fontFamilies[d.Font]
	}
	dens, ok := densities[f.Density]
	if !ok {
		dens = densities[d.Density]
	}
	top, side := 20, 30
	switch f.Margins {
	case "narrow":
		top, side = 15, 20
	case "wide":
		top, side = 25, 45
	}
	bullet := f.BulletChar
	if bullet == "" {
		bullet = d.BulletChar
	}
	style := f.HeaderStyle
	if style == "" {
		style = d.HeaderStyle
	}
	return Layout{
		FontFamily:    font,
		MarginTop:     top,
		MarginSide:    side,
		SectionGap:    dens.section,
		ItemGap:       dens.item,
		BulletGap:     dens.bullet,
		LineHeight:    dens.lineHeight,
		NameSize:      orDefault(f.NameSize, d.NameSize),
		BodySize:      orDefault(f.BodySize, d.BodySize),
		HeaderSize:    orDefault(f.HeaderSize, d.HeaderSize),
		SubheaderSize: orDefault(f.SubheaderSize, d.SubheaderSize),
		Uppercase:     strings.HasPrefix(style, "uppercase"),
		Rule:          strings.HasSuffix(style, "_line"),
		BulletChar:    bullet,
		DateInline:    f.DateAlign == "inline",
		ShowLinks:     f.ShowLinks,
		Page:          PageFor(f.PageSize),
	}
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// NewDocument builds the printable view of r.
func NewDocument(r *types.Resume, f types.FormatSettings) (*Document, error) {
	if r == nil {
		return nil, &RenderError{Message: "no resume to render"}
	}
	layout := NewLayout(f)
	doc := &Document{
		Name:    strings.TrimSpace(r.Name),
		Contact: contactParts(r.Contact, layout.ShowLinks),
		Layout:  layout,
	}
	for _, key := range SectionOrder(r) {
		sec := Section{Key: key, Title: SectionTitle(r, key)}
		switch key {
		case types.SectionSummary:
			sec.Text = strings.TrimSpace(r.Summary)
		case types.SectionLanguages:
			sec.Text = strings.TrimSpace(r.Languages)
		case types.SectionSkills:
			for _, c := range r.Skills {
				if strings.TrimSpace(c.Values) != "" {
					sec.Skills = append(sec.Skills, c)
				}
			}
		default:
			for _, it := range r.Items(key) {
				sec.Items = append(sec.Items, itemView(key, it, layout))
			}
		}
		doc.Sections = append(doc.Sections, sec)
	}
	return doc, nil
}

// SectionOrder returns the sections to print: the resume's own order first, then any remaining
// default sections, skipping empty ones.
func SectionOrder(r *types.Resume) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(key string) {
		if seen[key] || !r.HasSection(key) {
			return
		}
		seen[key] = true
		out = append(out, key)
	}
	for _, key := range r.SectionOrder {
		add(key)
	}
	for _, key := range types.DefaultSectionOrder {
		add(key)
	}
	return out
}

// SectionTitle returns the custom title of a section or its capitalized key.
func SectionTitle(r *types.Resume, key string) string {
	if t := strings.TrimSpace(r.SectionTitles[key]); t != "" {
		return t
	}
	if key == "" {
		return ""
	}
	return strings.ToUpper(key[:1]) + key[1:]
}

var contactOrder = []struct {
	keys  []string
	label string
}{
	{keys: []string{"email"}},
	{keys: []string{"phone"}},
	{keys: []string{"location"}},
	{keys: []string{"linkedin", "linkedin_url"}, label: "LinkedIn"},
	{keys: []string{"portfolio", "website", "portfolio_url"}, label: "Portfolio"},
	{keys: []string{"github"}, label: "GitHub"},
}

func contactParts(c types.Contact, showLinks bool) []ContactPart {
	var parts []ContactPart
	for _, field := range contactOrder {
		var v string
		for _, k := range field.keys {
			if v = strings.TrimSpace(c[k]); v != "" {
				break
			}
		}
		if v == "" {
			continue
		}
		switch {
		case field.keys[0] == "email":
			part := ContactPart{Text: v}
			if showLinks {
				part.Href = "mailto:" + v
			}
			parts = append(parts, part)
		case field.label != "" && showLinks:
			parts = append(parts, ContactPart{Text: field.label, Href: absoluteURL(v)})
		case field.label != "":
			parts = append(parts, ContactPart{Text: bareURL(v)})
		default:
			parts = append(parts, ContactPart{Text: v})
		}
	}
	return parts
}

func absoluteURL(v string) string {
	if strings.HasPrefix(v, "http://") || strings.HasPrefix(v, "https://") {
		return v
	}
	return "https://" + v
}

func bareURL(v string) string {
	for _, p := range []string{"https://", "http://", "www."} {
		v = strings.TrimPrefix(v, p)
	}
	return strings.TrimSuffix(v, "/")
}

func itemView(section string, it types.Item, layout Layout) ItemView {
	v := ItemView{Right: it.Dates, Bullets: it.NonEmptyBullets()}
	switch section {
	case types.SectionEducation:
		v.Left = first(it.Institution, it.Name, it.Organization)
		v.SubLeft, v.SubRight = it.Degree, it.Location
		if it.GPA != "" {
			v.Bullets = append([]string{"GPA: " + it.GPA}, v.Bullets...)
		}
	case types.SectionProjects:
		v.Left = first(it.Name, it.Title)
		v.SubLeft = it.Tech
	case types.SectionResearch:
		v.Left = first(it.Title, it.Name)
		v.SubLeft = it.Conference
		if layout.ShowLinks && it.Link != "" {
			v.Href = absoluteURL(it.Link)
		} else {
			v.SubRight = it.Link
		}
	case types.SectionCertifications:
		v.Left = first(it.Name, it.Title)
		v.SubLeft = it.Issuer
	case types.SectionAwards:
		v.Left = first(it.Name, it.Title)
		v.SubLeft = it.Organization
	default:
		v.Left = first(it.Company, it.Organization, it.Name)
		v.SubLeft, v.SubRight = it.Role, it.Location
	}
	if section == types.SectionProjects && it.Link != "" && layout.ShowLinks {
		v.Href = absoluteURL(it.Link)
	}
	if layout.DateInline && v.Right != "" {
		v.Left = fmt.Sprintf("%s | %s", v.Left, v.Right)
		v.Right = ""
	}
	return v
}

func first(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
