package rendering

import "strings"

// latexSpecials lists the characters that change meaning inside LaTeX body text. Angle
// brackets and the pipe come out as other glyphs under the default OT1 font encoding, which
// mangles bullets like "Cut p99 latency <50ms".
const latexSpecials = `\{}$&%#^_~<>|`

var latexEscaper = strings.NewReplacer(
	`\`, `\textbackslash{}`,
	`{`, `\{`,
	`}`, `\}`,
	`$`, `\$`,
	`&`, `\&`,
	`%`, `\%`,
	`#`, `\#`,
	`^`, `\textasciicircum{}`,
	`_`, `\_`,
	`~`, `\textasciitilde{}`,
	`<`, `\textless{}`,
	`>`, `\textgreater{}`,
	`|`, `\textbar{}`,
)

// EscapeLaTeX makes resume text safe to drop into the LaTeX export. Everything outside
// latexSpecials, accented letters included, passes through unchanged.
func EscapeLaTeX(text string) string {
	if !strings.ContainsAny(text, latexSpecials) {
		return text
	}
	return latexEscaper.Replace(text)
}
