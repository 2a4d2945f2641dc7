package ingestion

import (
	"regexp"
	"strings"
)

var (
	spaceRun     = regexp.MustCompile(`[ \t\f\v]+`)
	blankLineRun = regexp.MustCompile(`\n{3,}`)
)

// bulletGlyphs are list markers PDF exporters emit in place of "-".
var bulletGlyphs = []string{"• ", "· ", "▪ ", "◦ ", "● ", "– "}

// CleanText normalizes extracted resume text: LF line endings, single spaces inside lines,
// "- " for bullet glyphs and at most one blank line between blocks.
func CleanText(content string) string {
	if content == "" {
		return ""
	}
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")
	content = strings.ReplaceAll(content, "\u00a0", " ")

	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = cleanLine(line)
	}
	result := blankLineRun.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
	return strings.TrimSpace(result)
}

func cleanLine(line string) string {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return ""
	}
	if isBulletLine(trimmed) {
		for _, glyph := range bulletGlyphs {
			if strings.HasPrefix(trimmed, glyph) {
				trimmed = "- " + strings.TrimPrefix(trimmed, glyph)
				break
			}
		}
	}
	return spaceRun.ReplaceAllString(trimmed, " ")
}

func isBulletLine(line string) bool {
	if strings.HasPrefix(line, "- ") || strings.HasPrefix(line, "* ") {
		return true
	}
	for _, glyph := range bulletGlyphs {
		if strings.HasPrefix(line, glyph) {
			return true
		}
	}
	return false
}
