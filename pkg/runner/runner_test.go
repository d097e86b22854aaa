package runner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"digital.vasic.conformance/pkg/assertion"
	"digital.vasic.conformance/pkg/metrics"
	"digital.vasic.conformance/pkg/monitor"
	"digital.vasic.conformance/pkg/report"
	"digital.vasic.conformance/pkg/resource"
	"digital.vasic.conformance/pkg/ruleset"
)

func sampleRuleSet(t *testing.T) *ruleset.RuleSet {
	t.Helper()
	rs, err := ruleset.Compile(assertion.NewEngine(), &ruleset.File{
		Version: "1",
		Name:    "sample",
		Sections: []ruleset.SectionFile{
			{
				Name: "Manifest",
				Rules: []assertion.Definition{
					{
						ID: "manifest.exists", Check: "exists",
						Resources: []string{"file:manifest.json"},
					},
					{
						ID: "manifest.version", Check: "json_equals",
						Pointer: "/manifest_version", Value: 3,
						Resources: []string{"json:manifest.json"},
					},
				},
			},
			{
				Name: "Scripts",
				Rules: []assertion.Definition{
					{
						ID: "background.api", Check: "contains:chrome.",
						Heuristic: true,
						Resources: []string{"text:background.js"},
					},
				},
			},
		},
	})
	require.NoError(t, err)
	return rs
}

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	return dir
}

func validTree(t *testing.T) string {
	return writeTree(t, map[string]string{
		"manifest.json": `{"manifest_version": 3}`,
		"background.js": "chrome.runtime.onInstalled.addListener(() => {});",
	})
}

type recordingMetrics struct {
	mu       sync.Mutex
	runs     []string
	outcomes []string
	rate     float64
}

func (m *recordingMetrics) RecordRun(_, status string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, status)
}

func (m *recordingMetrics) RecordOutcome(_, _, result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes = append(m.outcomes, result)
}

func (m *recordingMetrics) SetSuccessRate(_, _ string, rate float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rate = rate
}

var _ metrics.Recorder = (*recordingMetrics)(nil)

func TestRun_ValidTree(t *testing.T) {
	r := NewRunner()
	res, err := r.Run(context.Background(), validTree(t), sampleRuleSet(t))
	require.NoError(t, err)

	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, "sample", res.RuleSet)
	assert.False(t, res.StartedAt.IsZero())
	require.NotNil(t, res.Report)
	assert.True(t, res.Report.OK())
	assert.Equal(t, report.Totals{Run: 3, Passed: 3}, res.Report.Totals)
	assert.Equal(t, 1.0, res.Report.SuccessRate)
}

func TestRun_MissingFileFailsButDoesNotAbort(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"background.js": "console.log('hi');",
	})

	res, err := NewRunner().Run(context.Background(), dir, sampleRuleSet(t))
	require.NoError(t, err)

	totals := res.Report.Totals
	assert.Equal(t, 3, totals.Run)
	assert.Equal(t, 2, totals.Failed)
	assert.Equal(t, 1, totals.Warned)
	assert.False(t, res.Report.OK())

	ids := make([]string, 0, len(res.Report.Outcomes))
	for _, o := range res.Report.Outcomes {
		ids = append(ids, o.AssertionID)
	}
	assert.Equal(t,
		[]string{"manifest.exists", "manifest.version", "background.api"},
		ids,
	)
}

func TestRun_ParallelMatchesSequential(t *testing.T) {
	dir := validTree(t)
	rs := sampleRuleSet(t)

	seq, err := NewRunner().Run(context.Background(), dir, rs)
	require.NoError(t, err)
	par, err := NewRunner(WithParallelism(8)).Run(
		context.Background(), dir, rs,
	)
	require.NoError(t, err)

	assert.Equal(t, seq.Report, par.Report)
	assert.NotEqual(t, seq.RunID, par.RunID)
}

func TestRun_ConfigurationError(t *testing.T) {
	rs := &ruleset.RuleSet{
		Name: "broken",
		Sections: []ruleset.Section{{
			Name: "Images",
			Assertions: []assertion.Assertion{{
				ID:       "icon.svg",
				Severity: assertion.Blocking,
				Keys:     []resource.Key{resource.MustParseKey("svg:icon.svg")},
				Check: func([]resource.Value) (bool, string) {
					return true, "ok"
				},
			}},
		}},
	}
	m := &recordingMetrics{}
	collector := monitor.NewEventCollector()

	res, err := NewRunner(WithMetrics(m), WithCollector(collector)).Run(
		context.Background(), t.TempDir(), rs,
	)
	require.Error(t, err)
	assert.Nil(t, res)
	assert.True(t, IsConfigurationError(err))
	assert.Equal(t, []string{metrics.StatusConfigError}, m.runs)
	assert.Equal(t, 1, collector.Stats().ConfigErrors)
}

func TestRun_UnknownFileIsAnOrdinaryFailure(t *testing.T) {
	rs, err := ruleset.Compile(assertion.NewEngine(), &ruleset.File{
		Version: "1",
		Name:    "files",
		Sections: []ruleset.SectionFile{{
			Name: "Files",
			Rules: []assertion.Definition{{
				ID: "odd.file", Check: "exists",
				Resources: []string{"file:nonexistent_key_type"},
			}},
		}},
	})
	require.NoError(t, err)

	res, err := NewRunner().Run(context.Background(), t.TempDir(), rs)
	require.NoError(t, err)
	require.Len(t, res.Report.Outcomes, 1)
	assert.False(t, res.Report.Outcomes[0].Passed)
	assert.Equal(t, "nonexistent_key_type not found", res.Report.Outcomes[0].Message)
	assert.Equal(t, 1, res.Report.Totals.Failed)
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewRunner().Run(ctx, validTree(t), sampleRuleSet(t))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_PublishesMetricsAndEvents(t *testing.T) {
	m := &recordingMetrics{}
	collector := monitor.NewEventCollector()
	dir := writeTree(t, map[string]string{
		"manifest.json": `{"manifest_version": 3}`,
		"background.js": "console.log('hi');",
	})

	_, err := NewRunner(WithMetrics(m), WithCollector(collector)).Run(
		context.Background(), dir, sampleRuleSet(t),
	)
	require.NoError(t, err)

	assert.Equal(t, []string{metrics.StatusPassed}, m.runs)
	assert.Equal(t,
		[]string{metrics.ResultPassed, metrics.ResultPassed, metrics.ResultWarned},
		m.outcomes,
	)
	assert.InDelta(t, 2.0/3.0, m.rate, 1e-9)

	events := collector.Events()
	require.Len(t, events, 5)
	assert.Equal(t, monitor.EventRunStarted, events[0].Type)
	assert.Equal(t, monitor.EventRunCompleted, events[4].Type)
	for _, e := range events {
		assert.Equal(t, events[0].RunID, e.RunID)
	}
}

func TestRun_AppendsHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history", "runs.jsonl")
	r := NewRunner(WithHistory(path))
	dir := validTree(t)
	rs := sampleRuleSet(t)

	first, err := r.Run(context.Background(), dir, rs)
	require.NoError(t, err)
	_, err = r.Run(context.Background(), dir, rs)
	require.NoError(t, err)

	entries, err := report.ReadHistory(path)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, first.RunID, entries[0].RunID)
	assert.Equal(t, report.StatusPassed, entries[0].Status)
	assert.Equal(t, "sample", entries[0].RuleSet)
}

func TestRun_PostHookErrorsDoNotFailRun(t *testing.T) {
	var calls []string
	r := NewRunner(
		WithPostHook(func(_ context.Context, res *Result) error {
			calls = append(calls, "first:"+res.RuleSet)
			return errors.New("boom")
		}),
		WithPostHook(func(_ context.Context, _ *Result) error {
			calls = append(calls, "second")
			return nil
		}),
	)

	res, err := r.Run(context.Background(), validTree(t), sampleRuleSet(t))
	require.NoError(t, err)
	assert.NotNil(t, res)
	assert.Equal(t, []string{"first:sample", "second"}, calls)
}

func TestRun_ClockControlsDuration(t *testing.T) {
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	ticks := 0
	clock := func() time.Time {
		ticks++
		return base.Add(time.Duration(ticks-1) * time.Second)
	}

	res, err := NewRunner(WithClock(clock)).Run(
		context.Background(), validTree(t), sampleRuleSet(t),
	)
	require.NoError(t, err)
	assert.Equal(t, base, res.StartedAt)
	assert.Equal(t, time.Second, res.Duration)
}
