package report

import (
	"encoding/json"
	"io"
)

// JSONReporter renders a Report as JSON.
type JSONReporter struct {
	pretty bool
}

// NewJSONReporter creates a new JSON reporter. When pretty is
// true, output is indented for readability.
func NewJSONReporter(pretty bool) *JSONReporter {
	return &JSONReporter{pretty: pretty}
}

// GenerateReport marshals the report.
func (j *JSONReporter) GenerateReport(r *Report) ([]byte, error) {
	if j.pretty {
		return json.MarshalIndent(r, "", "  ")
	}
	return json.Marshal(r)
}

// WriteReport writes the JSON report followed by a newline.
func (j *JSONReporter) WriteReport(w io.Writer, r *Report) error {
	data, err := j.GenerateReport(r)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}
