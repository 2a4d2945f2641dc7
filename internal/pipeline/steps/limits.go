package steps

import (
	"strings"
	"unicode/utf8"

	"github.com/jonathan/forgecv/internal/bullets"
	"github.com/jonathan/forgecv/internal/reconcile"
	"github.com/jonathan/forgecv/internal/types"
)

const (
	// SkillLineWidth is the estimated number of characters per rendered skills line.
	SkillLineWidth = 90
	// MaxSkillLines bounds the whole skills section.
	MaxSkillLines = 5
	// MaxLinesPerCategory bounds one "• Category: a, b" entry.
	MaxLinesPerCategory = 2
)

// skillLines estimates how many lines a category renders to. Each skill costs its length plus a
// ", " separator on top of the "• Category: " prefix.
func skillLines(category string, skills []string) int {
	width := utf8.RuneCountInString("• " + category + ": ")
	for _, s := range skills {
		width += utf8.RuneCountInString(plain(s)) + 2
	}
	return max(1, (width+SkillLineWidth-1)/SkillLineWidth)
}

// fitSkills keeps the longest prefix of skills that renders within maxLines.
func fitSkills(category string, skills []string, maxLines int) []string {
	kept := make([]string, 0, len(skills))
	for _, s := range skills {
		if skillLines(category, append(kept, s)) > maxLines {
			break
		}
		kept = append(kept, s)
	}
	return kept
}

// EnforceSkillLimits trims the skills section so each category fits on two lines and the whole
// section on five. Categories and skills are assumed to be in priority order, so trimming starts
// at the end.
func EnforceSkillLimits(r *types.Resume) {
	if r == nil || len(r.Skills) == 0 {
		return
	}
	remaining := MaxSkillLines
	out := make(types.Skills, 0, len(r.Skills))
	for _, c := range r.Skills {
		if remaining <= 0 {
			break
		}
		kept := fitSkills(c.Category, c.List(), min(MaxLinesPerCategory, remaining))
		if len(kept) == 0 {
			continue
		}
		out = append(out, types.SkillCategory{Category: c.Category, Values: strings.Join(kept, ", ")})
		remaining -= skillLines(c.Category, kept)
	}
	r.Skills = out
}

func enforceBulletLimits(r *types.Resume, in Input) {
	for _, section := range types.BulletSections {
		items := r.Items(section)
		if len(items) == 0 {
			continue
		}
		var pool []types.Item
		if in.Base != nil {
			pool = in.Base.Items(section)
		}
		for i := range items {
			kept := items[i].NonEmptyBullets()
			if limit := bulletLimit(section, items[i], in.Counts, pool); len(kept) > limit {
				kept = kept[:limit]
			}
			items[i].Bullets = kept
		}
	}
}

// bulletLimit resolves an item's cap: an explicit override first, then the item's own
// bullet_count_preference, then the bullet count of the base item it came from, then the new-item
// cap.
func bulletLimit(section string, it types.Item, counts bullets.Counts, pool []types.Item) int {
	if n, ok := counts.Lookup(section, it); ok {
		return max(n, 0)
	}
	if it.BulletCountPreference != nil {
		return max(*it.BulletCountPreference, 0)
	}
	if j := reconcile.Find(pool, it); j >= 0 {
		if n := len(pool[j].NonEmptyBullets()); n > 0 {
			return n
		}
	}
	return bullets.NewItemCap
}
