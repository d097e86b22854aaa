// Package assertion provides the rule evaluation core of the
// conformance checker: declarative assertions over resolved
// resources, an Engine that compiles rule definitions into
// predicate closures, and an Evaluator that turns assertions and
// a resource.Context into ordered outcomes.
package assertion

import (
	"fmt"
	"strings"

	"digital.vasic.conformance/pkg/resource"
)

// Severity determines whether a failing assertion counts toward
// overall failure or is reported as a warning.
type Severity string

const (
	// Blocking failures fail the run.
	Blocking Severity = "blocking"
	// Advisory failures are reported as warnings.
	Advisory Severity = "advisory"
)

// ParseSeverity converts a severity name into a Severity.
// "error" and "failure" are accepted for Blocking; "warning"
// and "warn" for Advisory.
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "blocking", "error", "failure":
		return Blocking, nil
	case "advisory", "warning", "warn":
		return Advisory, nil
	}
	return "", fmt.Errorf("unknown severity: %q", s)
}

// Predicate inspects the resolved values of an assertion's
// declared keys, in declaration order, and reports whether the
// assertion holds together with a human-readable message.
// Predicates must not mutate the values they receive.
type Predicate func(values []resource.Value) (bool, string)

// Assertion is a single declarative check.
type Assertion struct {
	// ID is a stable identifier used in reports and tests.
	ID string

	// Section names the group the assertion is reported
	// under.
	Section string

	Severity Severity

	// Keys lists the resources the predicate depends on.
	Keys []resource.Key

	Description string

	// Heuristic marks raw substring checks whose result is a
	// hint rather than a precise structural fact.
	Heuristic bool

	Check Predicate
}

// Outcome is the recorded result of evaluating one Assertion.
type Outcome struct {
	AssertionID string   `json:"id"`
	Section     string   `json:"section"`
	Severity    Severity `json:"severity"`
	Passed      bool     `json:"passed"`
	Message     string   `json:"message"`
	Description string   `json:"description,omitempty"`
	Heuristic   bool     `json:"heuristic,omitempty"`
}

// Failed reports whether the outcome is a blocking failure.
func (o Outcome) Failed() bool {
	return !o.Passed && o.Severity == Blocking
}

// Warned reports whether the outcome is an advisory failure.
func (o Outcome) Warned() bool {
	return !o.Passed && o.Severity != Blocking
}
