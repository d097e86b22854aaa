package runner

import (
	"time"

	"digital.vasic.conformance/pkg/logging"
	"digital.vasic.conformance/pkg/metrics"
	"digital.vasic.conformance/pkg/monitor"
	"digital.vasic.conformance/pkg/resource"
)

// RunnerOption configures a DefaultRunner.
type RunnerOption func(*DefaultRunner)

// WithLogger sets the logger used by the runner.
func WithLogger(logger logging.Logger) RunnerOption {
	return func(r *DefaultRunner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m metrics.Recorder) RunnerOption {
	return func(r *DefaultRunner) {
		if m != nil {
			r.metrics = m
		}
	}
}

// WithCollector sets the event collector that receives run and
// outcome events.
func WithCollector(c *monitor.EventCollector) RunnerOption {
	return func(r *DefaultRunner) {
		r.collector = c
	}
}

// WithParallelism sets how many assertions are evaluated
// concurrently. Values below 2 evaluate sequentially.
func WithParallelism(n int) RunnerOption {
	return func(r *DefaultRunner) {
		r.parallelism = n
	}
}

// WithProviderOptions sets options for the resource provider
// built for each run.
func WithProviderOptions(opts ...resource.Option) RunnerOption {
	return func(r *DefaultRunner) {
		r.providerOpts = append(r.providerOpts, opts...)
	}
}

// WithHistory appends a JSONL entry per completed run to path.
func WithHistory(path string) RunnerOption {
	return func(r *DefaultRunner) {
		r.historyPath = path
	}
}

// WithPostHook adds a hook invoked after each completed run.
func WithPostHook(h Hook) RunnerOption {
	return func(r *DefaultRunner) {
		r.postHooks = append(r.postHooks, h)
	}
}

// WithClock replaces the time source. It is intended for
// tests.
func WithClock(now func() time.Time) RunnerOption {
	return func(r *DefaultRunner) {
		r.now = now
	}
}
