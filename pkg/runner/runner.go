// Package runner executes rule sets against file trees: it
// builds the resource context, evaluates the assertions,
// aggregates the report and publishes the run to metrics,
// monitors and the run history.
package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"digital.vasic.conformance/pkg/assertion"
	"digital.vasic.conformance/pkg/logging"
	"digital.vasic.conformance/pkg/metrics"
	"digital.vasic.conformance/pkg/monitor"
	"digital.vasic.conformance/pkg/report"
	"digital.vasic.conformance/pkg/resource"
	"digital.vasic.conformance/pkg/ruleset"
)

// Runner defines the interface for rule set execution.
type Runner interface {
	// Run checks the tree rooted at root against rs.
	Run(
		ctx context.Context,
		root string,
		rs *ruleset.RuleSet,
	) (*Result, error)

	// RunRoots checks several trees concurrently with the
	// given concurrency limit.
	RunRoots(
		ctx context.Context,
		roots []string,
		rs *ruleset.RuleSet,
		maxConcurrency int,
	) ([]*Result, error)
}

// Result is the envelope of one run. The Report itself carries
// no run metadata.
type Result struct {
	RunID     string         `json:"run_id"`
	RuleSet   string         `json:"rule_set"`
	Root      string         `json:"root"`
	StartedAt time.Time      `json:"started_at"`
	Duration  time.Duration  `json:"duration"`
	Report    *report.Report `json:"report"`
}

// Hook is invoked after a completed run. Hook errors are logged
// and do not fail the run.
type Hook func(ctx context.Context, res *Result) error

// DefaultRunner is the standard Runner implementation.
type DefaultRunner struct {
	logger       logging.Logger
	metrics      metrics.Recorder
	collector    *monitor.EventCollector
	parallelism  int
	providerOpts []resource.Option
	historyPath  string
	postHooks    []Hook
	now          func() time.Time
}

// NewRunner creates a DefaultRunner with the supplied options.
func NewRunner(opts ...RunnerOption) *DefaultRunner {
	r := &DefaultRunner{
		logger:  logging.NullLogger{},
		metrics: metrics.NoopMetrics{},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run checks the tree rooted at root against rs. It returns a
// *assertion.ConfigurationError, and no result, when the rule
// set references resources the provider cannot produce.
func (r *DefaultRunner) Run(
	ctx context.Context,
	root string,
	rs *ruleset.RuleSet,
) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &Result{
		RunID:     uuid.NewString(),
		RuleSet:   rs.Name,
		Root:      root,
		StartedAt: r.now(),
	}
	logger := r.logger.WithFields(
		logging.StringField("run_id", res.RunID),
		logging.StringField("rule_set", rs.Name),
		logging.StringField("root", root),
	)
	logger.Info("run started",
		logging.IntField("assertions", rs.Len()),
	)
	if r.collector != nil {
		r.collector.EmitRunStarted(res.RunID, rs.Name)
	}

	opts := append([]resource.Option{
		resource.WithLogger(logger),
	}, r.providerOpts...)
	provider := resource.NewProvider(root, opts...)
	c := provider.Build(rs.Keys())

	outcomes, err := assertion.EvaluateParallel(
		rs.Assertions(), c, r.parallelism,
	)
	res.Duration = r.now().Sub(res.StartedAt)
	if err != nil {
		r.metrics.RecordRun(
			rs.Name, metrics.StatusConfigError, res.Duration,
		)
		if r.collector != nil {
			r.collector.EmitRunFailed(res.RunID, rs.Name, err.Error())
		}
		logger.Error("run aborted", logging.ErrorField(err))
		return nil, err
	}

	res.Report = report.Aggregate(outcomes)
	r.publish(ctx, logger, rs, res)
	return res, nil
}

func (r *DefaultRunner) publish(
	ctx context.Context,
	logger logging.Logger,
	rs *ruleset.RuleSet,
	res *Result,
) {
	rep := res.Report

	for _, o := range rep.Outcomes {
		r.metrics.RecordOutcome(rs.Name, o.Section, outcomeResult(o))
		if r.collector != nil {
			r.collector.EmitOutcome(res.RunID, rs.Name, o)
		}
		if !o.Passed {
			logger.Debug("assertion did not pass",
				logging.StringField("id", o.AssertionID),
				logging.StringField("severity", string(o.Severity)),
				logging.StringField("message", o.Message),
			)
		}
	}

	status := metrics.StatusPassed
	if !rep.OK() {
		status = metrics.StatusFailed
	}
	r.metrics.RecordRun(rs.Name, status, res.Duration)
	r.metrics.SetSuccessRate(rs.Name, res.Root, rep.SuccessRate)

	if r.collector != nil {
		r.collector.EmitRunCompleted(
			res.RunID, rs.Name, rep, res.Duration,
		)
	}

	if r.historyPath != "" {
		entry := report.NewHistoricalEntry(
			rep, res.RunID, rs.Name, res.Root,
			res.StartedAt, res.Duration,
		)
		if err := report.AppendToHistory(r.historyPath, entry); err != nil {
			logger.Warn("failed to append run history",
				logging.ErrorField(err),
			)
		}
	}

	for _, hook := range r.postHooks {
		if err := hook(ctx, res); err != nil {
			logger.Warn("post-run hook failed",
				logging.ErrorField(err),
			)
		}
	}

	logger.Info("run completed",
		logging.IntField("run", rep.Totals.Run),
		logging.IntField("passed", rep.Totals.Passed),
		logging.IntField("failed", rep.Totals.Failed),
		logging.IntField("warned", rep.Totals.Warned),
		logging.Float64Field("success_rate", rep.SuccessRate),
		logging.LogField("duration", res.Duration.String()),
	)
}

// RunRoots checks several trees concurrently. Results are
// returned in the order of roots.
func (r *DefaultRunner) RunRoots(
	ctx context.Context,
	roots []string,
	rs *ruleset.RuleSet,
	maxConcurrency int,
) ([]*Result, error) {
	return runParallel(ctx, r, roots, rs, maxConcurrency)
}

// IsConfigurationError reports whether err aborted a run
// because the rule set itself is broken.
func IsConfigurationError(err error) bool {
	var cfgErr *assertion.ConfigurationError
	return errors.As(err, &cfgErr)
}

func outcomeResult(o assertion.Outcome) string {
	switch {
	case o.Passed:
		return metrics.ResultPassed
	case o.Failed():
		return metrics.ResultFailed
	}
	return metrics.ResultWarned
}

// rootError attaches the root to a run error.
func rootError(root string, err error) error {
	return fmt.Errorf("root %s: %w", root, err)
}
