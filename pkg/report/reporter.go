// Package report aggregates evaluation outcomes into a Report
// and renders it as text, JSON, Markdown or HTML.
package report

import (
	"bytes"
	"fmt"
	"io"
	"strings"
)

// Reporter renders a Report.
type Reporter interface {
	// GenerateReport renders the report into a byte slice.
	GenerateReport(r *Report) ([]byte, error)

	// WriteReport writes the rendered report to w.
	WriteReport(w io.Writer, r *Report) error
}

// Format names an output format.
type Format string

// Supported output formats.
const (
	FormatText     Format = "text"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
)

// Options carries presentation details that are not part of the
// Report itself.
type Options struct {
	// Title names the checked rule set in headings.
	Title string

	// Guidance lines printed after the summary.
	NextOnPass []string
	NextOnFail []string
}

// ParseFormat converts a format name into a Format. "md" is
// accepted for Markdown.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "txt":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "html":
		return FormatHTML, nil
	}
	return "", fmt.Errorf("unknown report format: %q", s)
}

// NewReporter returns the Reporter for format.
func NewReporter(format Format, opts Options) (Reporter, error) {
	switch format {
	case FormatText:
		return NewTextReporter(opts), nil
	case FormatJSON:
		return NewJSONReporter(true), nil
	case FormatMarkdown:
		return NewMarkdownReporter(opts), nil
	case FormatHTML:
		return NewHTMLReporter(opts), nil
	}
	return nil, fmt.Errorf("unknown report format: %q", format)
}

// generate renders through a writer into a byte slice.
func generate(
	write func(io.Writer, *Report) error,
	r *Report,
) ([]byte, error) {
	var buf bytes.Buffer
	if err := write(&buf, r); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func percent(rate float64) string {
	return fmt.Sprintf("%.1f%%", rate*100)
}
