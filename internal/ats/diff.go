package ats

import (
	"sort"
	"strings"

	"github.com/jonathan/forgecv/internal/reconcile"
	"github.com/jonathan/forgecv/internal/types"
)

// Diff summarizes how far a tailored resume moved from its base. Items are paired by id or fuzzy
// identity; an item present on one side only counts all of its bullets as changed.
func Diff(base, tailored *types.Resume) types.DiffSummary {
	d := types.DiffSummary{SkillsAdded: []string{}, SkillsRemoved: []string{}}

	for _, section := range types.BulletSections {
		baseItems := base.Items(section)
		tailItems := tailored.Items(section)
		used := make([]bool, len(baseItems))

		for _, t := range tailItems {
			var orig []string
			if j := reconcile.Find(baseItems, t); j >= 0 && !used[j] {
				used[j] = true
				orig = baseItems[j].Bullets
			}
			changed, total := compareBullets(orig, t.Bullets)
			d.BulletsChanged += changed
			d.TotalBullets += total
		}
		for j, b := range baseItems {
			if used[j] {
				continue
			}
			changed, total := compareBullets(b.Bullets, nil)
			d.BulletsChanged += changed
			d.TotalBullets += total
		}
	}

	var baseSummary, tailSummary string
	if base != nil {
		baseSummary = base.Summary
	}
	if tailored != nil {
		tailSummary = tailored.Summary
	}
	d.SummaryChanged = strings.TrimSpace(baseSummary) != strings.TrimSpace(tailSummary)

	before := skillSet(base)
	after := skillSet(tailored)
	for k, v := range after {
		if _, ok := before[k]; !ok {
			d.SkillsAdded = append(d.SkillsAdded, v)
		}
	}
	for k, v := range before {
		if _, ok := after[k]; !ok {
			d.SkillsRemoved = append(d.SkillsRemoved, v)
		}
	}
	sort.Strings(d.SkillsAdded)
	sort.Strings(d.SkillsRemoved)
	return d
}

func compareBullets(a, b []string) (changed, total int) {
	total = max(len(a), len(b))
	for i := 0; i < total; i++ {
		var x, y string
		if i < len(a) {
			x = a[i]
		}
		if i < len(b) {
			y = b[i]
		}
		if strings.TrimSpace(x) != strings.TrimSpace(y) {
			changed++
		}
	}
	return changed, total
}

func skillSet(r *types.Resume) map[string]string {
	out := map[string]string{}
	if r == nil {
		return out
	}
	for _, s := range r.Skills.All() {
		key := strings.ToLower(strings.TrimSpace(s))
		if key != "" {
			out[key] = strings.TrimSpace(s)
		}
	}
	return out
}
