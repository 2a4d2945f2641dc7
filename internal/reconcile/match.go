// Package reconcile correlates resume items across snapshots: what the model dropped, what the
// user forced back in, and which base item a rewritten item came from.
package reconcile

import (
	"strings"
	"unicode/utf8"

	"github.com/jonathan/forgecv/internal/types"
)

// minContainLen is the shortest string allowed to match by substring containment. Anything
// shorter must match exactly, so "AI" does not match "Kaiser".
const minContainLen = 3

// Norm lowercases and trims a field for comparison.
func Norm(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// FuzzyEqual reports whether a and b are equal, or one contains the other, ignoring case.
func FuzzyEqual(a, b string) bool {
	a, b = Norm(a), Norm(b)
	if a == "" || b == "" {
		return false
	}
	if a == b {
		return true
	}
	short, long := a, b
	if utf8.RuneCountInString(short) > utf8.RuneCountInString(long) {
		short, long = long, short
	}
	if utf8.RuneCountInString(short) < minContainLen {
		return false
	}
	return strings.Contains(long, short)
}

// Matches reports whether two items are the same entry. Items that both carry an id match by
// id only. Otherwise the identities must fuzzy-match, and so must the secondary fields when
// both are present.
func Matches(a, b types.Item) bool {
	if a.ID != "" && b.ID != "" {
		return a.ID == b.ID
	}
	if !FuzzyEqual(a.Identity(), b.Identity()) {
		return false
	}
	sa, sb := a.Secondary(), b.Secondary()
	if Norm(sa) == "" || Norm(sb) == "" {
		return true
	}
	return FuzzyEqual(sa, sb)
}

// MatchesName reports whether an item is the one referred to by name, which may be an id or an
// identity string.
func MatchesName(it types.Item, name string) bool {
	if it.ID != "" && it.ID == strings.TrimSpace(name) {
		return true
	}
	return FuzzyEqual(it.Identity(), name)
}

// Find returns the index of the first item matching target, or -1.
func Find(items []types.Item, target types.Item) int {
	for i, it := range items {
		if Matches(it, target) {
			return i
		}
	}
	return -1
}

// FindName returns the index of the first item referred to by name, or -1.
func FindName(items []types.Item, name string) int {
	for i, it := range items {
		if MatchesName(it, name) {
			return i
		}
	}
	return -1
}

// BestMatch picks the pool item a generated item was most likely rewritten from. An id match
// wins outright. Otherwise fields are scored: an organization match is worth 3 (1 for
// containment), a role 2 (1), and a name 5 (2). A candidate needs at least 2 points.
func BestMatch(pool []types.Item, gen types.Item) (int, bool) {
	if gen.ID != "" {
		for i, orig := range pool {
			if orig.ID == gen.ID {
				return i, true
			}
		}
	}

	genOrg := Norm(first(gen.Company, gen.Organization))
	genRole := Norm(first(gen.Role, gen.Title))
	genName := Norm(first(gen.Name, gen.Title))

	best, bestScore := -1, 0
	for i, orig := range pool {
		score := 0
		score += pairScore(genOrg, Norm(first(orig.Company, orig.Organization, orig.Conference)), 3, 1)
		score += pairScore(genRole, Norm(first(orig.Role, orig.Title)), 2, 1)
		score += pairScore(genName, Norm(first(orig.Name, orig.Title)), 5, 2)
		if score > bestScore && score >= 2 {
			best, bestScore = i, score
		}
	}
	return best, best >= 0
}

func pairScore(a, b string, exact, partial int) int {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return exact
	}
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return partial
	}
	return 0
}

func first(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
