package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"digital.vasic.conformance/pkg/assertion"
	"digital.vasic.conformance/pkg/ruleset"
)

func rulesCmd() *cli.Command {
	return &cli.Command{
		Name:  "rules",
		Usage: "List the sections and rules of a rule set",
		Flags: append(ruleFlags(),
			&cli.BoolFlag{
				Name:  "available",
				Usage: "List the built-in rule sets instead",
			},
		),
		Action: func(_ context.Context, cmd *cli.Command) error {
			w := cmd.Root().Writer
			if cmd.Bool("available") {
				for _, n := range ruleset.BuiltinNames() {
					fmt.Fprintln(w, n)
				}
				return nil
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			rs, err := loadRuleSet(cfg)
			if err != nil {
				return err
			}

			fmt.Fprintf(w, "%s (version %s, %d rules)\n", rs.Name, rs.Version, rs.Len())
			if rs.Description != "" {
				fmt.Fprintln(w, rs.Description)
			}
			tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
			for _, s := range rs.Sections {
				fmt.Fprintf(tw, "\n%s\n", s.Name)
				for _, a := range s.Assertions {
					fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n",
						a.ID, severityLabel(a), keyList(a), a.Description,
					)
				}
			}
			return tw.Flush()
		},
	}
}

func severityLabel(a assertion.Assertion) string {
	if a.Heuristic {
		return string(a.Severity) + " (heuristic)"
	}
	return string(a.Severity)
}

func keyList(a assertion.Assertion) string {
	keys := make([]string, len(a.Keys))
	for i, k := range a.Keys {
		keys[i] = k.String()
	}
	return strings.Join(keys, ", ")
}

func lintCmd() *cli.Command {
	return &cli.Command{
		Name:      "lint",
		Usage:     "Validate rule files",
		ArgsUsage: "[PATH]...",
		Description: `Validate each rule file or directory of rule files and report every
problem found. Without arguments the configured rules, or the built-in
rule set, are validated.`,
		Action: func(_ context.Context, cmd *cli.Command) error {
			w := cmd.Root().Writer
			paths := cmd.Args().Slice()
			engine := assertion.NewEngine()

			if len(paths) == 0 {
				cfg, err := loadConfig(cmd)
				if err != nil {
					return err
				}
				if len(cfg.Rules) == 0 {
					f, err := ruleset.Builtin(cfg.Builtin)
					if err != nil {
						return err
					}
					return lintFile(w, engine, "builtin:"+cfg.Builtin, f)
				}
				paths = cfg.Rules
			}

			var errs []error
			for _, p := range paths {
				f, err := ruleset.LoadPaths(p)
				if err != nil {
					fmt.Fprintf(w, "✗ %s: %v\n", p, err)
					errs = append(errs, err)
					continue
				}
				if err := lintFile(w, engine, p, f); err != nil {
					errs = append(errs, err)
				}
			}
			return errors.Join(errs...)
		},
	}
}

func lintFile(
	w io.Writer,
	engine assertion.Engine,
	label string,
	f *ruleset.File,
) error {
	if errs := ruleset.Validate(engine, f); len(errs) > 0 {
		fmt.Fprintf(w, "✗ %s: %d problem(s)\n", label, len(errs))
		for _, e := range errs {
			fmt.Fprintf(w, "    %s\n", e.Error())
		}
		return fmt.Errorf("%s: invalid rule file", label)
	}
	fmt.Fprintf(w, "✓ %s: %d rule(s) in %d section(s)\n",
		label, f.RuleCount(), len(f.Sections))
	return nil
}
