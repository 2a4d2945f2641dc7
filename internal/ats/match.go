// Package ats scores resumes against job description keywords without calling a model.
package ats

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Span is a byte range [Start, End) of a keyword occurrence.
type Span struct {
	Start int
	End   int
}

// FindKeyword returns every case-insensitive occurrence of keyword in text that stands on word
// boundaries. A boundary is only required on a side where the keyword itself starts or ends with a
// word character, so "C++" and ".NET" match inside ordinary prose.
func FindKeyword(text, keyword string) []Span {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" || text == "" {
		return nil
	}
	lower := strings.ToLower(text)
	kw := strings.ToLower(keyword)
	if len(lower) != len(text) {
		// Case folding changed byte widths; offsets would no longer line up with text.
		lower, kw = text, keyword
	}

	first, _ := utf8.DecodeRuneInString(kw)
	last, _ := utf8.DecodeLastRuneInString(kw)
	needLeft, needRight := isWord(first), isWord(last)

	var spans []Span
	for from := 0; from <= len(lower)-len(kw); {
		i := strings.Index(lower[from:], kw)
		if i < 0 {
			break
		}
		start := from + i
		end := start + len(kw)
		if (!needLeft || leftBoundary(lower, start)) && (!needRight || rightBoundary(lower, end)) {
			spans = append(spans, Span{Start: start, End: end})
			from = end
			continue
		}
		_, size := utf8.DecodeRuneInString(lower[start:])
		from = start + size
	}
	return spans
}

// ContainsKeyword reports whether text mentions keyword. Keywords with dots are also tried without
// them, so "Node.js" matches "nodejs".
func ContainsKeyword(text, keyword string) bool {
	if len(FindKeyword(text, keyword)) > 0 {
		return true
	}
	if noDots := strings.ReplaceAll(keyword, ".", ""); noDots != keyword && strings.TrimSpace(noDots) != "" {
		return len(FindKeyword(text, noDots)) > 0
	}
	return false
}

// CountKeyword returns the number of boundary-respecting occurrences of keyword in text.
func CountKeyword(text, keyword string) int {
	return len(FindKeyword(text, keyword))
}

func isWord(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func leftBoundary(s string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(s[:i])
	return !isWord(r)
}

func rightBoundary(s string, i int) bool {
	if i >= len(s) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(s[i:])
	return !isWord(r)
}
