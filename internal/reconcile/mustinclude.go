package reconcile

import (
	"github.com/jonathan/forgecv/internal/types"
)

// MergeResult is the state after forcing must-include items into a tailored resume.
type MergeResult struct {
	Resume   *types.Resume
	Excluded types.ExcludedItems
	// Added lists, per section, the identities that were inserted.
	Added map[string][]string
}

// MergeMustInclude copies every must-include item from the base resume into the tailored
// resume (when it is not already there), removes it from the exclusion list, and reports what
// was added. The caller clears the must-include state once the result is persisted. A project
// flag that resolves to a research item is inserted in its project form.
func MergeMustInclude(tailored, base *types.Resume, must types.MustInclude, excluded types.ExcludedItems) MergeResult {
	out := tailored.Clone()
	if out == nil {
		out = &types.Resume{}
	}
	res := MergeResult{Resume: out, Added: map[string][]string{}}

	names := ResolveNames(must, base)
	for _, section := range sortedKeys(names) {
		for _, name := range names[section] {
			item, ok := lookupBase(base, section, name)
			if !ok {
				continue
			}
			items := out.Items(section)
			if Find(items, item) >= 0 {
				continue
			}
			out.SetItems(section, append(items, item))
			res.Added[section] = append(res.Added[section], item.Identity())
			ensureInOrder(out, section)
		}
	}
	res.Excluded = Subtract(excluded, names)
	return res
}

func lookupBase(base *types.Resume, section, name string) (types.Item, bool) {
	if i := FindName(base.Items(section), name); i >= 0 {
		return base.Items(section)[i].Clone(), true
	}
	if section == types.SectionProjects {
		if i := FindName(base.Research, name); i >= 0 {
			return ResearchToProject(base.Research[i]), true
		}
	}
	return types.Item{}, false
}

func ensureInOrder(r *types.Resume, section string) {
	if len(r.SectionOrder) == 0 {
		return
	}
	for _, s := range r.SectionOrder {
		if s == section {
			return
		}
	}
	r.SectionOrder = append(r.SectionOrder, section)
}
