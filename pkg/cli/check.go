package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"digital.vasic.conformance/pkg/assertion"
	"digital.vasic.conformance/pkg/config"
	"digital.vasic.conformance/pkg/logging"
	"digital.vasic.conformance/pkg/metrics"
	"digital.vasic.conformance/pkg/report"
	"digital.vasic.conformance/pkg/resource"
	"digital.vasic.conformance/pkg/ruleset"
	"digital.vasic.conformance/pkg/runner"
)

func ruleFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringSliceFlag{
			Name:    "rules",
			Aliases: []string{"r"},
			Usage:   "Rule file or directory of rule files (can be repeated)",
		},
		&cli.StringFlag{
			Name:    "builtin",
			Aliases: []string{"b"},
			Usage:   fmt.Sprintf("Built-in rule set used when no --rules are given (default: %s)", config.DefaultBuiltin),
		},
		&cli.StringSliceFlag{
			Name:  "section",
			Usage: "Only check the named section (can be repeated)",
		},
	}
}

func reportFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Usage:   "Report format: text, json, markdown, html (default: text)",
		},
		&cli.StringFlag{
			Name:  "title",
			Usage: "Title printed in report headings",
		},
		&cli.BoolFlag{
			Name:  "strict",
			Usage: "Exit with status 1 when any advisory assertion fails",
		},
		&cli.IntFlag{
			Name:  "parallel",
			Usage: "Number of assertions evaluated concurrently",
		},
		&cli.Int64Flag{
			Name:  "max-file-size",
			Usage: "Largest file, in bytes, read for inspection",
		},
	}
}

func checkCmd() *cli.Command {
	flags := append(ruleFlags(), reportFlags()...)
	flags = append(flags,
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Write the report to this file instead of stdout",
		},
		&cli.StringFlag{
			Name:  "history",
			Usage: "Append one JSON line per run to this file",
		},
		&cli.StringFlag{
			Name:  "metrics-file",
			Usage: "Write Prometheus metrics in text format to this file",
		},
	)

	return &cli.Command{
		Name:      "check",
		Usage:     "Check file trees against a rule set",
		ArgsUsage: "[ROOT]...",
		Description: `Check each ROOT (default: the current directory) against a rule set and
print a report. Every rule is evaluated; a missing or malformed file fails
the rules that read it without stopping the run.

Examples:
  conformance check ./my-extension
  conformance check --rules rules/ --format json -o report.json ext-a ext-b
  conformance check --section Manifest --strict .`,
		Flags: flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer logger.Close()

			rs, err := loadRuleSet(cfg)
			if err != nil {
				return err
			}

			var prom *metrics.PrometheusMetrics
			opts := runnerOptions(cfg, logger)
			if cfg.MetricsFile != "" {
				prom = metrics.NewPrometheusMetrics()
				opts = append(opts, runner.WithMetrics(prom))
			}
			if cfg.History != "" {
				opts = append(opts, runner.WithHistory(cfg.History))
			}

			results, err := runner.NewRunner(opts...).RunRoots(
				ctx, cfg.Roots, rs, max(1, cfg.Parallel),
			)
			if err != nil {
				return err
			}

			out, closeOut, err := openOutput(cmd, cfg.Output)
			if err != nil {
				return err
			}
			defer closeOut()

			if err := renderResults(out, cfg, rs, results); err != nil {
				return err
			}

			if prom != nil {
				if err := prom.WriteToTextfile(cfg.MetricsFile); err != nil {
					return err
				}
			}

			return verdict(cfg, results)
		},
	}
}

// loadRuleSet loads the configured rule files, or the built-in
// rule set, and compiles them.
func loadRuleSet(cfg *config.Config) (*ruleset.RuleSet, error) {
	var (
		f   *ruleset.File
		err error
	)
	if len(cfg.Rules) > 0 {
		f, err = ruleset.LoadPaths(cfg.Rules...)
	} else {
		f, err = ruleset.Builtin(cfg.Builtin)
	}
	if err != nil {
		return nil, err
	}

	rs, err := ruleset.Compile(assertion.NewEngine(), f)
	if err != nil {
		return nil, err
	}
	rs = rs.Filter(cfg.Sections...)
	if rs.Len() == 0 {
		return nil, fmt.Errorf("rule set %q has no rules to check", rs.Name)
	}
	return rs, nil
}

func runnerOptions(cfg *config.Config, logger logging.Logger) []runner.RunnerOption {
	return []runner.RunnerOption{
		runner.WithLogger(logger),
		runner.WithParallelism(cfg.Parallel),
		runner.WithProviderOptions(
			resource.WithMaxFileSize(cfg.MaxFileSize),
		),
	}
}

func openOutput(cmd *cli.Command, path string) (io.Writer, func(), error) {
	if path == "" {
		return cmd.Root().Writer, func() {}, nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}

// renderResults writes one report per result, in root order.
func renderResults(
	w io.Writer,
	cfg *config.Config,
	rs *ruleset.RuleSet,
	results []*runner.Result,
) error {
	format, err := report.ParseFormat(cfg.Format)
	if err != nil {
		return err
	}
	for _, res := range results {
		title := cfg.Title
		if title == "" {
			title = fmt.Sprintf("%s: %s", rs.Name, res.Root)
		}
		reporter, err := report.NewReporter(format, report.Options{
			Title:      title,
			NextOnPass: rs.NextSteps.Pass,
			NextOnFail: rs.NextSteps.Fail,
		})
		if err != nil {
			return err
		}
		if err := reporter.WriteReport(w, res.Report); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
	}
	return nil
}

// verdict returns an exitError when any result failed.
func verdict(cfg *config.Config, results []*runner.Result) error {
	var failures, warnings int
	for _, res := range results {
		failures += res.Report.Totals.Failed
		warnings += res.Report.Totals.Warned
	}
	switch {
	case failures > 0:
		return failed("%d blocking assertion(s) failed", failures)
	case cfg.Strict && warnings > 0:
		return failed("%d advisory assertion(s) failed in strict mode", warnings)
	}
	return nil
}
