// Package metrics records run and outcome metrics of the
// conformance checker.
package metrics

import "time"

// Run statuses.
const (
	StatusPassed      = "passed"
	StatusFailed      = "failed"
	StatusConfigError = "config_error"
)

// Outcome results.
const (
	ResultPassed = "passed"
	ResultFailed = "failed"
	ResultWarned = "warned"
)

// Recorder defines the interface for recording checker metrics.
type Recorder interface {
	// RecordRun records a completed run of a rule set.
	RecordRun(ruleSet, status string, duration time.Duration)
	// RecordOutcome records one assertion outcome.
	RecordOutcome(ruleSet, section, result string)
	// SetSuccessRate sets the success rate of the latest run
	// of a rule set against root.
	SetSuccessRate(ruleSet, root string, rate float64)
}

// NoopMetrics is a no-op implementation of Recorder useful for
// testing or when metrics collection is disabled.
type NoopMetrics struct{}

func (NoopMetrics) RecordRun(_, _ string, _ time.Duration) {}
func (NoopMetrics) RecordOutcome(_, _, _ string)            {}
func (NoopMetrics) SetSuccessRate(_, _ string, _ float64)   {}
