package report

import (
	"fmt"
	"html"
	"io"

	"digital.vasic.conformance/pkg/assertion"
)

// HTMLReporter renders a Report as a standalone HTML page.
type HTMLReporter struct {
	opts Options
}

// NewHTMLReporter creates a new HTML reporter.
func NewHTMLReporter(opts Options) *HTMLReporter {
	return &HTMLReporter{opts: opts}
}

// GenerateReport renders the report into a byte slice.
func (h *HTMLReporter) GenerateReport(r *Report) ([]byte, error) {
	return generate(h.WriteReport, r)
}

// WriteReport writes an HTML report to w.
func (h *HTMLReporter) WriteReport(w io.Writer, r *Report) error {
	title := "Conformance Report"
	if h.opts.Title != "" {
		title += ": " + h.opts.Title
	}

	h.writeHeader(w, title)
	fmt.Fprintf(w, "<h1>%s</h1>\n", html.EscapeString(title))

	h.writeSummaryTable(w, r)
	h.writeSectionsTable(w, r)
	h.writeOutcomesSection(w, r)

	h.writeFooter(w)
	return nil
}

func (h *HTMLReporter) writeSummaryTable(w io.Writer, r *Report) {
	statusClass, status := "status-passed", "PASSED"
	if !r.OK() {
		statusClass, status = "status-failed", "FAILED"
	}

	fmt.Fprintln(w, "<h2>Summary</h2>")
	fmt.Fprintln(w, "<table>")
	fmt.Fprintln(w, "<tr><th>Metric</th><th>Value</th></tr>")
	fmt.Fprintf(
		w,
		"<tr><td>Status</td><td class=\"%s\">"+
			"<strong>%s</strong></td></tr>\n",
		statusClass, status,
	)
	fmt.Fprintf(w, "<tr><td>Total</td><td>%d</td></tr>\n", r.Totals.Run)
	fmt.Fprintf(w, "<tr><td>Passed</td><td>%d</td></tr>\n", r.Totals.Passed)
	fmt.Fprintf(w, "<tr><td>Failed</td><td>%d</td></tr>\n", r.Totals.Failed)
	fmt.Fprintf(w, "<tr><td>Warnings</td><td>%d</td></tr>\n", r.Totals.Warned)
	fmt.Fprintf(
		w, "<tr><td>Success Rate</td><td>%s</td></tr>\n",
		percent(r.SuccessRate),
	)
	fmt.Fprintln(w, "</table>")
}

func (h *HTMLReporter) writeSectionsTable(w io.Writer, r *Report) {
	sections := r.Sections()
	if len(sections) == 0 {
		return
	}

	fmt.Fprintln(w, "<h2>Sections</h2>")
	fmt.Fprintln(w, "<table>")
	fmt.Fprintln(
		w,
		"<tr><th>Section</th><th>Passed</th>"+
			"<th>Failed</th><th>Warnings</th></tr>",
	)
	for _, s := range sections {
		fmt.Fprintf(
			w,
			"<tr><td>%s</td><td>%d/%d</td>"+
				"<td>%d</td><td>%d</td></tr>\n",
			html.EscapeString(s.Name),
			s.Totals.Passed, s.Totals.Run,
			s.Totals.Failed, s.Totals.Warned,
		)
	}
	fmt.Fprintln(w, "</table>")
}

func (h *HTMLReporter) writeOutcomesSection(w io.Writer, r *Report) {
	if len(r.Outcomes) == 0 {
		return
	}

	fmt.Fprintln(w, "<h2>Assertions</h2>")
	fmt.Fprintln(w, "<table>")
	fmt.Fprintln(
		w,
		"<tr><th>ID</th><th>Section</th>"+
			"<th>Result</th><th>Message</th></tr>",
	)
	for _, o := range r.Outcomes {
		cls, label := outcomeClass(o)
		fmt.Fprintf(
			w,
			"<tr><td><code>%s</code></td><td>%s</td>"+
				"<td class=\"%s\">%s</td>"+
				"<td>%s</td></tr>\n",
			html.EscapeString(o.AssertionID),
			html.EscapeString(o.Section),
			cls, label,
			html.EscapeString(o.Message),
		)
	}
	fmt.Fprintln(w, "</table>")
}

func outcomeClass(o assertion.Outcome) (string, string) {
	switch {
	case o.Passed:
		return "status-passed", "PASS"
	case o.Failed():
		return "status-failed", "FAIL"
	}
	return "status-warned", "WARN"
}

func (h *HTMLReporter) writeHeader(w io.Writer, title string) {
	fmt.Fprintf(w, `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>%s</title>
<style>
body {
  font-family: -apple-system, BlinkMacSystemFont,
    "Segoe UI", Roboto, sans-serif;
  max-width: 960px;
  margin: 0 auto;
  padding: 20px;
  color: #333;
  background: #f9f9f9;
}
h1 { color: #2c3e50; border-bottom: 2px solid #3498db; padding-bottom: 10px; }
h2 { color: #2c3e50; margin-top: 30px; }
table {
  border-collapse: collapse;
  width: 100%%;
  margin: 10px 0;
  background: #fff;
}
th, td {
  border: 1px solid #ddd;
  padding: 8px 12px;
  text-align: left;
}
th { background: #3498db; color: #fff; }
tr:nth-child(even) { background: #f2f2f2; }
.status-passed { color: #27ae60; font-weight: bold; }
.status-failed { color: #e74c3c; font-weight: bold; }
.status-warned { color: #e67e22; font-weight: bold; }
code {
  background: #ecf0f1;
  padding: 2px 6px;
  border-radius: 3px;
  font-size: 0.9em;
}
footer {
  margin-top: 40px;
  padding-top: 10px;
  border-top: 1px solid #ddd;
  color: #7f8c8d;
  font-size: 0.9em;
}
</style>
</head>
<body>
`, html.EscapeString(title))
}

func (h *HTMLReporter) writeFooter(w io.Writer) {
	fmt.Fprintln(w, "<footer>")
	fmt.Fprintln(w, "<p>Generated by conformance</p>")
	fmt.Fprintln(w, "</footer>")
	fmt.Fprintln(w, "</body>")
	fmt.Fprintln(w, "</html>")
}
