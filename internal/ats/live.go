package ats

import (
	"math"
	"strings"

	"github.com/jonathan/forgecv/internal/types"
)

// Keyword weights for the live score.
const (
	WeightMandatory = 3.0
	WeightPreferred = 1.5
	WeightIndustry  = 1.0
)

// Flatten joins the searchable text of a resume: summary, skills, the headline fields and bullets
// of every bullet section, and certification names. The result is lowercased.
func Flatten(r *types.Resume) string {
	if r == nil {
		return ""
	}
	var b strings.Builder
	add := func(s string) {
		if s = strings.TrimSpace(s); s != "" {
			b.WriteString(s)
			b.WriteByte(' ')
		}
	}
	add(r.Summary)
	for _, c := range r.Skills {
		add(strings.Join(c.List(), " "))
	}
	for _, section := range types.BulletSections {
		for _, it := range r.Items(section) {
			add(it.Role)
			add(it.Company)
			add(it.Tech)
			add(it.Name)
			add(it.Title)
			add(strings.Join(it.Bullets, " "))
		}
	}
	for _, c := range r.Certifications {
		add(c.Name)
	}
	return strings.ToLower(b.String())
}

// LiveScore computes a weighted keyword presence score. It returns nil when there is no analysis
// or the analysis carries neither mandatory nor preferred keywords.
func LiveScore(r *types.Resume, a *types.JDAnalysis) *types.LiveScore {
	if a == nil {
		return nil
	}
	mandatory := normalizeKeywords(a.MandatoryKeywords)
	preferred := normalizeKeywords(a.PreferredKeywords)
	industry := normalizeKeywords(a.IndustryTerms)
	if len(mandatory) == 0 && len(preferred) == 0 {
		return nil
	}

	text := Flatten(r)
	score := &types.LiveScore{
		Mandatory: group(text, mandatory),
		Preferred: group(text, preferred),
		Industry:  group(text, industry),
	}

	maxScore := float64(len(mandatory))*WeightMandatory +
		float64(len(preferred))*WeightPreferred +
		float64(len(industry))*WeightIndustry
	actual := float64(len(score.Mandatory.Matched))*WeightMandatory +
		float64(len(score.Preferred.Matched))*WeightPreferred +
		float64(len(score.Industry.Matched))*WeightIndustry
	if maxScore > 0 {
		score.Score = int(math.Round(actual / maxScore * 100))
	}
	return score
}

func group(text string, keywords []string) types.KeywordGroup {
	g := types.KeywordGroup{Matched: []string{}, Missing: []string{}, Total: len(keywords)}
	for _, k := range keywords {
		if ContainsKeyword(text, k) {
			g.Matched = append(g.Matched, k)
		} else {
			g.Missing = append(g.Missing, k)
		}
	}
	return g
}

func normalizeKeywords(list []string) []string {
	out := make([]string, 0, len(list))
	seen := map[string]bool{}
	for _, k := range list {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}
