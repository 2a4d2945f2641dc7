// Package bullets holds per-item bullet count bookkeeping and the sanitizer that keeps a
// regenerate request from asking for more bullets than the source can truthfully support.
package bullets

import (
	"github.com/jonathan/forgecv/internal/reconcile"
	"github.com/jonathan/forgecv/internal/types"
)

// NewItemCap is the most bullets requested for an item that has no source counterpart.
const NewItemCap = 3

// expansion is how many bullets a matched item may gain over its source.
const expansion = 2

// Counts maps section -> item key -> bullet count.
type Counts map[string]map[string]int

// Key identifies an item inside a Counts map: its id when it has one, its lowercased identity
// otherwise.
func Key(it types.Item) string {
	if it.ID != "" {
		return "id:" + it.ID
	}
	return "name:" + reconcile.Norm(it.Identity())
}

// Lookup returns the count recorded for an item, trying its id key and then its identity key.
func (c Counts) Lookup(section string, it types.Item) (int, bool) {
	m := c[section]
	if m == nil {
		return 0, false
	}
	if n, ok := m[Key(it)]; ok {
		return n, true
	}
	if it.ID != "" {
		if n, ok := m["name:"+reconcile.Norm(it.Identity())]; ok {
			return n, true
		}
	}
	return 0, false
}

// Set records a count.
func (c Counts) Set(section string, it types.Item, n int) {
	if c[section] == nil {
		c[section] = map[string]int{}
	}
	c[section][Key(it)] = n
}

// Len returns the number of entries.
func (c Counts) Len() int {
	n := 0
	for _, m := range c {
		n += len(m)
	}
	return n
}

// FromResume collects the counts an editor currently shows: an item's bullet_count_preference
// when set, its number of non-empty bullets otherwise.
func FromResume(r *types.Resume) Counts {
	out := Counts{}
	for _, section := range types.BulletSections {
		for _, it := range r.Items(section) {
			n := len(it.NonEmptyBullets())
			if it.BulletCountPreference != nil {
				n = *it.BulletCountPreference
			}
			out.Set(section, it, n)
		}
	}
	return out
}

// Sanitize bounds a requested bullet count map against the content that exists.
//
// source is the resume the model will see, editor the user's current (possibly hand-edited)
// copy. For every editor item:
//   - with no source match and no non-empty bullet, the item is dropped from the map;
//   - matched to a source item, the count is clamped to [0, max(source+2, 3)], defaulting to
//     the source count when not requested;
//   - new with content, the count is clamped to [0, 3], defaulting to its own bullet count.
//
// Source items the editor does not contain keep their own bullet count unless requested.
// The result depends only on its inputs, and Sanitize(s, e, Sanitize(s, e, c)) equals
// Sanitize(s, e, c).
func Sanitize(source, editor *types.Resume, requested Counts) Counts {
	if editor == nil {
		editor = source
	}
	out := Counts{}
	for _, section := range types.BulletSections {
		srcItems := source.Items(section)
		used := make([]bool, len(srcItems))

		for _, it := range editor.Items(section) {
			if _, dup := out.Lookup(section, it); dup {
				continue
			}
			req, mentioned := requested.Lookup(section, it)
			content := len(it.NonEmptyBullets())

			j := reconcile.Find(srcItems, it)
			switch {
			case j >= 0:
				used[j] = true
				srcCount := len(srcItems[j].NonEmptyBullets())
				limit := max(srcCount+expansion, NewItemCap)
				n := srcCount
				if mentioned {
					n = clamp(req, 0, limit)
				}
				out.Set(section, it, n)
			case content > 0:
				n := min(content, NewItemCap)
				if mentioned {
					n = clamp(req, 0, NewItemCap)
				}
				out.Set(section, it, n)
			}
		}

		for j, src := range srcItems {
			if used[j] {
				continue
			}
			if _, dup := out.Lookup(section, src); dup {
				continue
			}
			srcCount := len(src.NonEmptyBullets())
			n := srcCount
			if req, mentioned := requested.Lookup(section, src); mentioned {
				n = clamp(req, 0, max(srcCount+expansion, NewItemCap))
			}
			out.Set(section, src, n)
		}
	}
	return out
}

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
