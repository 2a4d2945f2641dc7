package steps

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/jonathan/forgecv/internal/ats"
	"github.com/jonathan/forgecv/internal/reconcile"
	"github.com/jonathan/forgecv/internal/types"
)

// Occurrence limits for a single JD keyword inside one piece of prose.
const (
	maxKeywordPerBullet  = 2
	maxKeywordPerSummary = 3
)

var (
	// keywordTailPattern matches a trailing "(Keywords: a, b, c)" list appended to a bullet.
	keywordTailPattern = regexp.MustCompile(`(?i)\s*[(\[]?\s*\b(?:ats\s+)?keywords?\s*:[^)\]]*[)\]]?\s*$`)
	tagPattern         = regexp.MustCompile(`<[^>]+>`)
	repeatedComma      = regexp.MustCompile(`,(\s*,)+`)
	spaceBeforeComma   = regexp.MustCompile(`\s+,`)
	multiSpace         = regexp.MustCompile(`[ \t]{2,}`)
)

func cleanKeywordStuffing(r *types.Resume, in Input) {
	var keywords []string
	if in.Analysis != nil {
		keywords = in.Analysis.Keywords()
	}
	r.Summary = destuff(r.Summary, keywords, maxKeywordPerSummary)
	for _, section := range types.BulletSections {
		items := r.Items(section)
		for i := range items {
			for j, b := range items[i].Bullets {
				items[i].Bullets[j] = destuff(b, keywords, maxKeywordPerBullet)
			}
		}
	}
}

// destuff removes keyword lists tacked onto the end of text, collapses back-to-back repeats of the
// same keyword, and drops list-form occurrences beyond limit. Prose occurrences are left alone.
func destuff(text string, keywords []string, limit int) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	out := keywordTailPattern.ReplaceAllString(text, "")
	for _, kw := range keywords {
		out = collapseRepeats(out, kw)
		out = trimListOccurrences(out, kw, limit)
	}
	if out == text {
		return text
	}
	return tidy(out)
}

func collapseRepeats(text, kw string) string {
	spans := ats.FindKeyword(text, kw)
	for i := len(spans) - 1; i > 0; i-- {
		gap := text[spans[i-1].End:spans[i].Start]
		if strings.Trim(gap, " \t,;/&") == "" {
			text = text[:spans[i-1].End] + text[spans[i].End:]
		}
	}
	return text
}

func trimListOccurrences(text, kw string, limit int) string {
	spans := ats.FindKeyword(text, kw)
	excess := len(spans) - limit
	for i := len(spans) - 1; i >= 0 && excess > 0; i-- {
		s := spans[i]
		before := strings.TrimRight(text[:s.Start], " \t")
		after := strings.TrimLeft(text[s.End:], " \t")
		switch {
		case strings.HasSuffix(before, ","):
			text = strings.TrimSuffix(before, ",") + text[s.End:]
		case strings.HasPrefix(after, ","):
			text = text[:s.Start] + strings.TrimLeft(after[1:], " \t")
		default:
			continue
		}
		excess--
	}
	return text
}

func tidy(text string) string {
	text = repeatedComma.ReplaceAllString(text, ",")
	text = spaceBeforeComma.ReplaceAllString(text, ",")
	text = multiSpace.ReplaceAllString(text, " ")
	return strings.Trim(text, " \t,")
}

func plain(s string) string {
	return strings.TrimSpace(tagPattern.ReplaceAllString(s, ""))
}

// jdTerms is every keyword the analysis offers, including tech stack nuances.
func jdTerms(a *types.JDAnalysis) []string {
	if a == nil {
		return nil
	}
	return append(a.Keywords(), a.TechStackNuances...)
}

func removeHallucinatedSkills(r *types.Resume, in Input) {
	if in.Base == nil || len(r.Skills) == 0 {
		return
	}
	baseText := ats.Flatten(in.Base)
	if strings.TrimSpace(baseText) == "" {
		return
	}
	baseSkills := map[string]bool{}
	for _, s := range in.Base.Skills.All() {
		baseSkills[reconcile.Norm(plain(s))] = true
	}
	terms := jdTerms(in.Analysis)

	known := func(skill string) bool {
		if baseSkills[reconcile.Norm(skill)] || ats.ContainsKeyword(baseText, skill) {
			return true
		}
		for _, t := range terms {
			if ats.ContainsKeyword(skill, t) || ats.ContainsKeyword(t, skill) {
				return true
			}
		}
		return false
	}

	out := make(types.Skills, 0, len(r.Skills))
	for _, c := range r.Skills {
		var kept []string
		for _, s := range c.List() {
			if known(plain(s)) {
				kept = append(kept, s)
				continue
			}
			slog.Debug("dropping unsupported skill", "category", c.Category, "skill", s)
		}
		if len(kept) > 0 {
			out = append(out, types.SkillCategory{Category: c.Category, Values: strings.Join(kept, ", ")})
		}
	}
	r.Skills = out
}

func ensureKeywordCoverage(r *types.Resume, in Input) {
	if in.Base == nil || in.Analysis == nil || in.Analysis.IsStub() {
		return
	}
	baseText := ats.Flatten(in.Base)
	text := ats.Flatten(r)
	for _, kw := range in.Analysis.MandatoryKeywords {
		kw = strings.TrimSpace(kw)
		if kw == "" || !ats.ContainsKeyword(baseText, kw) || ats.ContainsKeyword(text, kw) {
			continue
		}
		category, spelling := coverageTarget(in.Base, r, kw)
		values, _ := r.Skills.Get(category)
		r.Skills.Set(category, strings.Join(append([]string{spelling}, types.SplitList(values)...), ", "))
		text += " " + strings.ToLower(spelling)
		slog.Debug("restored dropped keyword", "keyword", kw, "category", category)
	}
}

// coverageTarget picks the skill category a restored keyword goes into and how to spell it: the
// base category that listed it, else the first tailored category, else "Skills".
func coverageTarget(base, r *types.Resume, kw string) (category, spelling string) {
	for _, c := range base.Skills {
		for _, s := range c.List() {
			if ats.ContainsKeyword(plain(s), kw) {
				return c.Category, plain(s)
			}
		}
	}
	if len(r.Skills) > 0 {
		return r.Skills[0].Category, kw
	}
	return "Skills", kw
}
