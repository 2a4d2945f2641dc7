// Package observability holds the logging setup and the boxed summaries the CLI prints.
package observability

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/jonathan/forgecv/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer renders human-readable summaries for the CLI.
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %s │\n", pad(title))
	fmt.Fprintf(p.out, "├%s┤\n", border)
	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %s │\n", pad(line))
	}
	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// pad truncates or right-pads line to the box interior, counting runes.
func pad(line string) string {
	width := boxWidth - 4
	if utf8.RuneCountInString(line) > width {
		return clip(line, width)
	}
	return line + strings.Repeat(" ", width-utf8.RuneCountInString(line))
}

func clip(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n-3]) + "..."
}

func writeList(sb *strings.Builder, heading string, items []string, limit int) {
	if len(items) == 0 {
		return
	}
	sb.WriteString(heading + ":\n")
	for _, it := range items[:min(len(items), limit)] {
		fmt.Fprintf(sb, "  • %s\n", clip(it, 48))
	}
	if len(items) > limit {
		fmt.Fprintf(sb, "  ... and %d more\n", len(items)-limit)
	}
}

// PrintJDAnalysis outputs the parsed job description.
func (p *Printer) PrintJDAnalysis(a *types.JDAnalysis) {
	if a == nil {
		return
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Company:  %s\n", a.CompanyName)
	fmt.Fprintf(&sb, "Role:     %s\n", a.JobTitle)
	if a.Seniority != "" {
		fmt.Fprintf(&sb, "Level:    %s\n", a.Seniority)
	}
	if a.IsStub() {
		sb.WriteString("(analysis unavailable, using a placeholder)\n")
	}
	sb.WriteString("\n")
	writeList(&sb, "Mandatory", a.MandatoryKeywords, maxItemsToShow)
	writeList(&sb, "Preferred", a.PreferredKeywords, 3)
	p.printBox("JOB DESCRIPTION", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintExclusions lists the items left out of a tailored resume.
func (p *Printer) PrintExclusions(excluded types.ExcludedItems) {
	if excluded.Count() == 0 {
		return
	}
	sections := make([]string, 0, len(excluded))
	for s := range excluded {
		sections = append(sections, s)
	}
	sort.Strings(sections)

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d items left out:\n\n", excluded.Count())
	for _, s := range sections {
		for _, name := range excluded[s] {
			fmt.Fprintf(&sb, "  %-14s %s\n", s, clip(name, 38))
		}
	}
	p.printBox("EXCLUDED ITEMS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintATSReport outputs a model-graded ATS report.
func (p *Printer) PrintATSReport(r *types.ATSReport) {
	if r == nil {
		return
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Score: %d/100\n\n", r.Score)
	writeList(&sb, "Missing keywords", r.MissingKeywords, maxItemsToShow)
	writeList(&sb, "Matching areas", r.MatchingAreas, 3)
	writeList(&sb, "Recommendations", r.Recommendations, 3)
	if r.SummaryFeedback != "" {
		sb.WriteString("\n" + clip(r.SummaryFeedback, boxWidth-4) + "\n")
	}
	p.printBox("ATS REPORT", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintLiveScore outputs the local keyword score, the diff against the base resume and the
// bullet style counts.
func (p *Printer) PrintLiveScore(score *types.LiveScore, diff types.DiffSummary, style types.StyleSummary) {
	var sb strings.Builder
	if score == nil {
		sb.WriteString("Keyword score: n/a (no keywords)\n")
	} else {
		fmt.Fprintf(&sb, "Keyword score: %d/100\n", score.Score)
		fmt.Fprintf(&sb, "Mandatory: %d/%d  Preferred: %d/%d\n",
			len(score.Mandatory.Matched), score.Mandatory.Total,
			len(score.Preferred.Matched), score.Preferred.Total)
		writeList(&sb, "Missing mandatory", score.Mandatory.Missing, maxItemsToShow)
	}
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "Bullets changed: %d of %d\n", diff.BulletsChanged, diff.TotalBullets)
	if diff.SummaryChanged {
		sb.WriteString("Summary rewritten\n")
	}
	writeList(&sb, "Skills added", diff.SkillsAdded, 3)
	writeList(&sb, "Skills removed", diff.SkillsRemoved, 3)
	if style.TotalBullets > 0 {
		fmt.Fprintf(&sb, "\nAction verbs: %d/%d  Metrics: %d/%d\n",
			style.StrongVerb, style.TotalBullets, style.Quantified, style.TotalBullets)
		writeList(&sb, "Weak bullets", style.Weak, 3)
	}
	p.printBox("INSIGHTS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintVersions lists the tailoring history, newest first.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintVersions(versions []types.ResumeVersion) {
	if len(versions) == 0 {
		fmt.Fprintln(p.out, "No saved versions.")
		return
	}
	var sb strings.Builder
	for i, v := range versions {
		label := v.JDTitle
		if v.Company != "" {
			label += " @ " + v.Company
		}
		fmt.Fprintf(&sb, "%2d. %s  %s\n", i+1, v.Timestamp.Local().Format("2006-01-02 15:04"), clip(label, 30))
		fmt.Fprintf(&sb, "    id %s\n", v.ID)
	}
	p.printBox("VERSION HISTORY", strings.TrimSuffix(sb.String(), "\n"))
}
