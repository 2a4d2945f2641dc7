package steps

import (
	"regexp"
	"strings"

	"github.com/jonathan/forgecv/internal/types"
)

var (
	boldPattern   = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	italicPattern = regexp.MustCompile(`(^|[^*])\*([^*]+)\*`)
)

// ConvertMarkdown turns **bold** and *italic* markers into <b> and <i> tags.
func ConvertMarkdown(text string) string {
	if text == "" {
		return text
	}
	text = boldPattern.ReplaceAllString(text, "<b>$1</b>")
	return italicPattern.ReplaceAllString(text, "$1<i>$2</i>")
}

// CleanTailoredResume normalizes model output for rendering: markdown emphasis becomes HTML, skill
// categories are de-duplicated and emptied ones dropped, a missing section order is derived from the
// sections that have content, and section titles are never nil.
func CleanTailoredResume(r *types.Resume) {
	if r == nil {
		return
	}
	r.Summary = ConvertMarkdown(strings.TrimSpace(r.Summary))

	skills := make(types.Skills, 0, len(r.Skills))
	for _, c := range r.Skills {
		values := dedupSkills(c.List())
		if strings.TrimSpace(c.Category) == "" || len(values) == 0 {
			continue
		}
		skills = append(skills, types.SkillCategory{
			Category: strings.TrimSpace(c.Category),
			Values:   ConvertMarkdown(strings.Join(values, ", ")),
		})
	}
	if r.Skills != nil {
		r.Skills = skills
	}

	for _, section := range types.BulletSections {
		for i := range r.Items(section) {
			it := &r.Items(section)[i]
			for j, b := range it.Bullets {
				it.Bullets[j] = ConvertMarkdown(b)
			}
		}
	}

	if len(r.SectionOrder) == 0 {
		for _, s := range types.DefaultSectionOrder {
			if r.HasSection(s) {
				r.SectionOrder = append(r.SectionOrder, s)
			}
		}
	}
	if r.SectionTitles == nil {
		r.SectionTitles = map[string]string{}
	}
}

func dedupSkills(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := values[:0:0]
	for _, v := range values {
		key := strings.ToLower(strings.TrimSpace(v))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, strings.TrimSpace(v))
	}
	return out
}
