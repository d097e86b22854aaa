package monitor

import (
	"sync"
	"time"

	"digital.vasic.conformance/pkg/assertion"
	"digital.vasic.conformance/pkg/report"
)

// EventCollector captures run events and dispatches them to
// registered handlers.
type EventCollector struct {
	mu       sync.RWMutex
	events   []Event
	handlers []func(Event)
	stats    CollectorStats
}

// CollectorStats holds aggregate statistics.
type CollectorStats struct {
	Runs         int           `json:"runs"`
	Passed       int           `json:"passed"`
	Failed       int           `json:"failed"`
	ConfigErrors int           `json:"config_errors"`
	Outcomes     int           `json:"outcomes"`
	StartTime    time.Time     `json:"start_time"`
	Duration     time.Duration `json:"duration"`
}

// NewEventCollector creates a new event collector.
func NewEventCollector() *EventCollector {
	return &EventCollector{
		events: make([]Event, 0, 64),
		stats:  CollectorStats{StartTime: time.Now()},
	}
}

// OnEvent registers a handler to be called for each event.
func (c *EventCollector) OnEvent(handler func(Event)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers = append(c.handlers, handler)
}

// Emit records an event and notifies all handlers.
func (c *EventCollector) Emit(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	c.mu.Lock()
	c.events = append(c.events, event)
	switch event.Type {
	case EventRunStarted:
		c.stats.Runs++
	case EventOutcome:
		c.stats.Outcomes++
	case EventRunCompleted:
		if event.Report != nil && !event.Report.OK() {
			c.stats.Failed++
		} else {
			c.stats.Passed++
		}
	case EventRunFailed:
		c.stats.ConfigErrors++
	}
	c.stats.Duration = time.Since(c.stats.StartTime)
	handlers := make([]func(Event), len(c.handlers))
	copy(handlers, c.handlers)
	c.mu.Unlock()

	for _, h := range handlers {
		h(event)
	}
}

// EmitRunStarted emits a run started event.
func (c *EventCollector) EmitRunStarted(runID, ruleSet string) {
	c.Emit(Event{
		Type:    EventRunStarted,
		RunID:   runID,
		RuleSet: ruleSet,
	})
}

// EmitOutcome emits an outcome event.
func (c *EventCollector) EmitOutcome(
	runID, ruleSet string,
	o assertion.Outcome,
) {
	c.Emit(Event{
		Type:    EventOutcome,
		RunID:   runID,
		RuleSet: ruleSet,
		Outcome: &o,
	})
}

// EmitRunCompleted emits a run completed event carrying the
// report.
func (c *EventCollector) EmitRunCompleted(
	runID, ruleSet string,
	r *report.Report,
	duration time.Duration,
) {
	c.Emit(Event{
		Type:     EventRunCompleted,
		RunID:    runID,
		RuleSet:  ruleSet,
		Report:   r,
		Duration: duration,
	})
}

// EmitRunFailed emits an event for a run aborted by a
// configuration error.
func (c *EventCollector) EmitRunFailed(runID, ruleSet, msg string) {
	c.Emit(Event{
		Type:    EventRunFailed,
		RunID:   runID,
		RuleSet: ruleSet,
		Message: msg,
	})
}

// Events returns a copy of all collected events.
func (c *EventCollector) Events() []Event {
	c.mu.RLock()
	defer c.mu.RUnlock()
	result := make([]Event, len(c.events))
	copy(result, c.events)
	return result
}

// Stats returns the current aggregate statistics.
func (c *EventCollector) Stats() CollectorStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := c.stats
	s.Duration = time.Since(s.StartTime)
	return s
}

// Reset clears all collected events and statistics.
func (c *EventCollector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = c.events[:0]
	c.stats = CollectorStats{StartTime: time.Now()}
}
