package report

import (
	"fmt"
	"io"
	"strings"

	"digital.vasic.conformance/pkg/assertion"
)

// Symbols used by the text reporter.
const (
	symbolPass    = "✅"
	symbolFail    = "❌"
	symbolWarn    = "⚠️"
	symbolSection = "🔍"
	symbolSummary = "📊"
	symbolNext    = "🎯"
)

// TextReporter renders a Report for terminals: one line per
// outcome grouped by section, followed by the summary, the
// critical issues, the warnings and the next steps.
type TextReporter struct {
	opts Options
}

// NewTextReporter creates a new text reporter.
func NewTextReporter(opts Options) *TextReporter {
	return &TextReporter{opts: opts}
}

// GenerateReport renders the report into a byte slice.
func (t *TextReporter) GenerateReport(r *Report) ([]byte, error) {
	return generate(t.WriteReport, r)
}

// WriteReport writes the text report to w.
func (t *TextReporter) WriteReport(w io.Writer, r *Report) error {
	ew := &errWriter{w: w}

	if t.opts.Title != "" {
		ew.printf("🚀 Checking %s...\n", t.opts.Title)
	}

	section := ""
	for i, o := range r.Outcomes {
		if i == 0 || o.Section != section {
			section = o.Section
			ew.printf("\n%s %s\n", symbolSection, section)
		}
		ew.printf("%s %s: %s\n", symbol(o), o.AssertionID, o.Message)
	}

	ew.printf("\n%s Summary:\n", symbolSummary)
	ew.printf("Total: %d\n", r.Totals.Run)
	ew.printf("%s Passed: %d\n", symbolPass, r.Totals.Passed)
	ew.printf("%s Failed: %d\n", symbolFail, r.Totals.Failed)
	ew.printf("%s Warnings: %d\n", symbolWarn, r.Totals.Warned)
	ew.printf("Success Rate: %s\n", percent(r.SuccessRate))

	writeIssues(ew, symbolFail+" Critical Issues", r.Failures())
	writeIssues(ew, symbolWarn+" Warnings", r.Warnings())

	next := t.opts.NextOnPass
	headline := symbolPass + " Structure is valid!"
	if !r.OK() {
		next = t.opts.NextOnFail
		headline = "🔧 Fix critical issues before continuing"
	}
	ew.printf("\n%s Next Steps:\n%s\n", symbolNext, headline)
	for _, line := range next {
		ew.printf("%s\n", line)
	}

	return ew.err
}

func writeIssues(
	ew *errWriter,
	title string,
	outcomes []assertion.Outcome,
) {
	if len(outcomes) == 0 {
		return
	}
	ew.printf("\n%s (%d):\n", title, len(outcomes))
	for _, o := range outcomes {
		ew.printf("  • %s: %s\n", o.AssertionID, o.Message)
	}
}

func symbol(o assertion.Outcome) string {
	switch {
	case o.Passed:
		return symbolPass
	case o.Failed():
		return symbolFail
	}
	return symbolWarn
}

// MarkdownReporter renders a Report as Markdown.
type MarkdownReporter struct {
	opts Options
}

// NewMarkdownReporter creates a new Markdown reporter.
func NewMarkdownReporter(opts Options) *MarkdownReporter {
	return &MarkdownReporter{opts: opts}
}

// GenerateReport renders the report into a byte slice.
func (m *MarkdownReporter) GenerateReport(r *Report) ([]byte, error) {
	return generate(m.WriteReport, r)
}

// WriteReport writes the Markdown report to w.
func (m *MarkdownReporter) WriteReport(w io.Writer, r *Report) error {
	var sb strings.Builder

	title := "Conformance Report"
	if m.opts.Title != "" {
		title += ": " + m.opts.Title
	}
	sb.WriteString(fmt.Sprintf("# %s\n\n", title))

	status := "PASSED"
	if !r.OK() {
		status = "FAILED"
	}
	sb.WriteString(fmt.Sprintf("**Status:** %s\n\n", status))

	sb.WriteString("## Statistics\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Total | %d |\n", r.Totals.Run))
	sb.WriteString(fmt.Sprintf("| Passed | %d |\n", r.Totals.Passed))
	sb.WriteString(fmt.Sprintf("| Failed | %d |\n", r.Totals.Failed))
	sb.WriteString(fmt.Sprintf("| Warnings | %d |\n", r.Totals.Warned))
	sb.WriteString(fmt.Sprintf(
		"| Success Rate | %s |\n", percent(r.SuccessRate),
	))

	if sections := r.Sections(); len(sections) > 0 {
		sb.WriteString("\n## Sections\n\n")
		sb.WriteString("| Section | Passed | Failed | Warnings |\n")
		sb.WriteString("|---------|--------|--------|----------|\n")
		for _, s := range sections {
			sb.WriteString(fmt.Sprintf(
				"| %s | %d/%d | %d | %d |\n",
				escapeCell(s.Name), s.Totals.Passed, s.Totals.Run,
				s.Totals.Failed, s.Totals.Warned,
			))
		}
	}

	writeMarkdownIssues(&sb, "Critical Issues", r.Failures())
	writeMarkdownIssues(&sb, "Warnings", r.Warnings())

	_, err := io.WriteString(w, sb.String())
	return err
}

func writeMarkdownIssues(
	sb *strings.Builder,
	title string,
	outcomes []assertion.Outcome,
) {
	if len(outcomes) == 0 {
		return
	}
	sb.WriteString(fmt.Sprintf("\n## %s\n\n", title))
	for _, o := range outcomes {
		sb.WriteString(fmt.Sprintf(
			"- `%s` (%s): %s\n",
			o.AssertionID, o.Section, o.Message,
		))
	}
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

// errWriter remembers the first write error so rendering code
// can print unconditionally.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}
