package ats

import (
	"regexp"
	"strings"

	"github.com/jonathan/forgecv/internal/types"
)

// maxWeakListed caps StyleSummary.Weak.
const maxWeakListed = 10

// Common strong action verbs for resume bullets. Past-tense verbs not listed here are caught by
// the -ed heuristic in StrongVerb.
var strongVerbs = map[string]bool{
	"achieved": true, "architected": true, "built": true, "created": true,
	"delivered": true, "designed": true, "developed": true, "drove": true,
	"engineered": true, "implemented": true, "improved": true, "increased": true,
	"launched": true, "led": true, "optimized": true, "owned": true,
	"ran": true, "reduced": true, "scaled": true, "shipped": true,
	"spearheaded": true, "transformed": true, "wrote": true,
}

var (
	tagPattern    = regexp.MustCompile(`<[^>]+>`)
	metricPattern = regexp.MustCompile(`\d|%|\$`)
)

// Style reports how many bullets of r open with an action verb and how many carry a metric.
func Style(r *types.Resume) types.StyleSummary {
	s := types.StyleSummary{Weak: []string{}}
	if r == nil {
		return s
	}
	for _, section := range types.BulletSections {
		for _, it := range r.Items(section) {
			for _, b := range it.NonEmptyBullets() {
				text := strings.TrimSpace(tagPattern.ReplaceAllString(b, ""))
				s.TotalBullets++
				verb, metric := StrongVerb(text), Quantified(text)
				if verb {
					s.StrongVerb++
				}
				if metric {
					s.Quantified++
				}
				if !verb && !metric && len(s.Weak) < maxWeakListed {
					s.Weak = append(s.Weak, text)
				}
			}
		}
	}
	return s
}

// StrongVerb reports whether text opens with an action verb.
func StrongVerb(text string) bool {
	words := strings.Fields(strings.ToLower(text))
	if len(words) == 0 {
		return false
	}
	first := strings.TrimRight(words[0], ".,!?;:")
	if strongVerbs[first] {
		return true
	}
	// most past-tense openers are action verbs
	return strings.HasSuffix(first, "ed") && len(first) > 3
}

// Quantified reports whether text carries a number, percentage or amount.
func Quantified(text string) bool {
	return metricPattern.MatchString(text)
}
