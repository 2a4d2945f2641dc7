package reconcile

import (
	"sort"
	"strings"

	"github.com/jonathan/forgecv/internal/types"
)

// ExcludableSections lists the sections whose items may be dropped to fit the page target.
var ExcludableSections = []string{
	types.SectionExperience,
	types.SectionProjects,
	types.SectionLeadership,
	types.SectionResearch,
	types.SectionCertifications,
	types.SectionAwards,
	types.SectionVolunteering,
}

// GetExcludedForSection returns the base items of section that no tailored item matches, in
// base order.
func GetExcludedForSection(base, tailored *types.Resume, section string) []types.Item {
	var out []types.Item
	current := tailored.Items(section)
	for _, it := range base.Items(section) {
		if it.Identity() == "" && it.ID == "" {
			continue
		}
		if Find(current, it) < 0 {
			out = append(out, it)
		}
	}
	return out
}

// Missing returns, for every excludable section, the identities of base items that the tailored
// resume does not contain.
func Missing(base, tailored *types.Resume) types.ExcludedItems {
	out := types.ExcludedItems{}
	for _, section := range ExcludableSections {
		for _, it := range GetExcludedForSection(base, tailored, section) {
			out[section] = append(out[section], it.Identity())
		}
	}
	return out
}

// Deletions updates the list of items the user removed in the editor when the resume moves from
// before to after. Base items present in before and gone from after are added. Listed items that
// are back in after are dropped, and items named in keep are never listed. A nil before counts as
// the base resume.
func Deletions(prev map[string][]string, base, before, after *types.Resume, keep map[string][]string) map[string][]string {
	if before == nil {
		before = base
	}
	gone := Missing(base, after)
	removed := Subtract(gone, Missing(base, before))

	out := map[string][]string{}
	for _, section := range ExcludableSections {
		for _, name := range append(append([]string(nil), prev[section]...), removed[section]...) {
			if !containsFold(gone[section], name) || containsFold(keep[section], name) {
				continue
			}
			out[section] = append(out[section], name)
		}
		if len(out[section]) > 0 {
			out[section] = dedupFold(out[section])
		}
	}
	return out
}

// NormalizeExclusions resolves the model's excluded_items into identity strings. Integer
// references are legacy positional indices into the base resume's section and are converted to
// that item's identity. Unresolvable and blank references are dropped. When mergeResearch is
// set, research exclusions are re-homed into projects. Each bucket is de-duplicated
// case-insensitively, keeping first occurrence order.
func NormalizeExclusions(raw types.RawExclusions, base *types.Resume, mergeResearch bool) types.ExcludedItems {
	out := types.ExcludedItems{}
	for _, section := range sortedKeys(raw) {
		if !types.IsItemSection(section) {
			continue
		}
		target := section
		if mergeResearch && section == types.SectionResearch {
			target = types.SectionProjects
		}
		for _, ref := range raw[section] {
			name := resolveRef(ref, base, section)
			if name == "" {
				continue
			}
			out[target] = append(out[target], name)
		}
	}
	for section, names := range out {
		out[section] = dedupFold(names)
	}
	return out
}

// resolveRef turns a reference into an identity using the base resume's section.
func resolveRef(ref types.ItemRef, base *types.Resume, section string) string {
	if ref.IsIndex() {
		items := base.Items(section)
		i := *ref.Index
		if i < 0 || i >= len(items) {
			return ""
		}
		return strings.TrimSpace(items[i].Identity())
	}
	name := strings.TrimSpace(ref.Name)
	if name == "" {
		return ""
	}
	// Prefer the base spelling so later comparisons stay exact.
	if i := FindName(base.Items(section), name); i >= 0 {
		if id := base.Items(section)[i].Identity(); id != "" {
			return id
		}
	}
	return name
}

// ResolveNames converts must-include references into identities using the base resume.
func ResolveNames(m types.MustInclude, base *types.Resume) map[string][]string {
	out := map[string][]string{}
	for section, refs := range m {
		for _, ref := range refs {
			name := resolveRef(ref, base, section)
			if name == "" && section == types.SectionProjects {
				name = resolveRef(ref, base, types.SectionResearch)
			}
			if name != "" {
				out[section] = append(out[section], name)
			}
		}
		if len(out[section]) > 0 {
			out[section] = dedupFold(out[section])
		} else {
			delete(out, section)
		}
	}
	return out
}

// Subtract removes from excluded every name that matches one in remove (same section).
func Subtract(excluded types.ExcludedItems, remove map[string][]string) types.ExcludedItems {
	out := types.ExcludedItems{}
	for section, names := range excluded {
		for _, name := range names {
			if containsFold(remove[section], name) {
				continue
			}
			out[section] = append(out[section], name)
		}
	}
	return out
}

// StripItems removes from a section every item referred to by one of names. It returns the
// number of items removed.
func StripItems(r *types.Resume, section string, names []string) int {
	if len(names) == 0 {
		return 0
	}
	items := r.Items(section)
	kept := make([]types.Item, 0, len(items))
	for _, it := range items {
		if matchesAny(it, names) {
			continue
		}
		kept = append(kept, it)
	}
	removed := len(items) - len(kept)
	if removed > 0 {
		r.SetItems(section, kept)
	}
	return removed
}

// ApplyExclusions strips every excluded item from r except those named in keep.
func ApplyExclusions(r *types.Resume, excluded map[string][]string, keep map[string][]string) int {
	n := 0
	for section, names := range excluded {
		var strip []string
		for _, name := range names {
			if !containsFold(keep[section], name) {
				strip = append(strip, name)
			}
		}
		n += StripItems(r, section, strip)
	}
	return n
}

func matchesAny(it types.Item, names []string) bool {
	for _, name := range names {
		if MatchesName(it, name) {
			return true
		}
	}
	return false
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if FuzzyEqual(v, s) {
			return true
		}
	}
	return false
}

func dedupFold(names []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(names))
	for _, n := range names {
		k := Norm(n)
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, n)
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
