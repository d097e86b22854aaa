package monitor

import (
	"sync"
	"time"

	"digital.vasic.conformance/pkg/report"
)

// Dashboard statuses.
const (
	StatusIdle        = "idle"
	StatusRunning     = "running"
	StatusPassed      = "passed"
	StatusFailed      = "failed"
	StatusConfigError = "config_error"
)

// DashboardData provides a real-time snapshot of the latest
// run.
type DashboardData struct {
	mu        sync.RWMutex
	RunID     string         `json:"run_id"`
	RuleSet   string         `json:"rule_set"`
	StartTime time.Time      `json:"start_time"`
	Status    string         `json:"status"`
	Progress  report.Totals  `json:"progress"`
	Message   string         `json:"message,omitempty"`
	Duration  time.Duration  `json:"duration,omitempty"`
	Report    *report.Report `json:"report,omitempty"`
	Runs      int            `json:"runs"`
}

// NewDashboardData creates a new idle dashboard.
func NewDashboardData() *DashboardData {
	return &DashboardData{Status: StatusIdle}
}

// UpdateFromEvent updates dashboard state from an event.
func (d *DashboardData) UpdateFromEvent(event Event) {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch event.Type {
	case EventRunStarted:
		d.RunID = event.RunID
		d.RuleSet = event.RuleSet
		d.StartTime = event.Timestamp
		d.Status = StatusRunning
		d.Progress = report.Totals{}
		d.Message = ""
		d.Duration = 0
		d.Runs++
	case EventOutcome:
		if event.RunID != d.RunID || event.Outcome == nil {
			return
		}
		d.Progress.Run++
		switch {
		case event.Outcome.Passed:
			d.Progress.Passed++
		case event.Outcome.Failed():
			d.Progress.Failed++
		default:
			d.Progress.Warned++
		}
	case EventRunCompleted:
		if event.RunID != d.RunID {
			return
		}
		d.Report = event.Report
		d.Duration = event.Duration
		d.Status = StatusPassed
		if event.Report != nil {
			d.Progress = event.Report.Totals
			if !event.Report.OK() {
				d.Status = StatusFailed
			}
		}
	case EventRunFailed:
		if event.RunID != d.RunID {
			return
		}
		d.Status = StatusConfigError
		d.Message = event.Message
	}
}

// Snapshot returns a copy of the current dashboard state.
func (d *DashboardData) Snapshot() DashboardData {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return DashboardData{
		RunID:     d.RunID,
		RuleSet:   d.RuleSet,
		StartTime: d.StartTime,
		Status:    d.Status,
		Progress:  d.Progress,
		Message:   d.Message,
		Duration:  d.Duration,
		Report:    d.Report,
		Runs:      d.Runs,
	}
}

// LatestReport returns the report of the last completed run.
func (d *DashboardData) LatestReport() *report.Report {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.Report
}

// BuildDashboardData creates a DashboardData snapshot from an
// EventCollector by replaying all collected events.
func BuildDashboardData(
	collector *EventCollector,
) *DashboardData {
	data := NewDashboardData()
	for _, event := range collector.Events() {
		data.UpdateFromEvent(event)
	}
	return data
}
