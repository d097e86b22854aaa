package monitor

import (
	"time"

	"digital.vasic.conformance/pkg/assertion"
	"digital.vasic.conformance/pkg/report"
)

// EventType represents the type of checker event.
type EventType string

const (
	EventRunStarted   EventType = "run_started"
	EventOutcome      EventType = "outcome"
	EventRunCompleted EventType = "run_completed"
	EventRunFailed    EventType = "run_failed"
)

// Event represents a lifecycle event during a conformance run.
type Event struct {
	Type      EventType `json:"type"`
	RunID     string    `json:"run_id"`
	RuleSet   string    `json:"rule_set,omitempty"`
	Timestamp time.Time `json:"timestamp"`

	// Outcome is set for EventOutcome.
	Outcome *assertion.Outcome `json:"outcome,omitempty"`

	// Report and Duration are set for EventRunCompleted.
	Report   *report.Report `json:"report,omitempty"`
	Duration time.Duration  `json:"duration,omitempty"`

	// Message is set for EventRunFailed.
	Message string `json:"message,omitempty"`
}
