package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"

	"digital.vasic.conformance/pkg/config"
	"digital.vasic.conformance/pkg/env"
	"digital.vasic.conformance/pkg/logging"
)

const name = "conformance"

// overridden during build with ldflags
var version = "dev"

// NewCommand returns the root command writing to stdout and
// stderr.
func NewCommand(stdout, stderr io.Writer) *cli.Command {
	return &cli.Command{
		Name:    name,
		Usage:   "Check file trees against declarative structural rules",
		Version: version,
		Writer:  stdout,
		// Exit statuses are decided by Execute.
		ExitErrHandler: func(context.Context, *cli.Command, error) {},
		ErrWriter:      stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   fmt.Sprintf("Configuration file (default: %s if present)", config.DefaultFile),
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "File with CONFORMANCE_* variables (default: .env if present)",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level (debug, info, warn, error)",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "Log format (console, json)",
			},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Write logs to this file instead of stderr",
			},
		},
		Commands: []*cli.Command{
			checkCmd(),
			rulesCmd(),
			lintCmd(),
			watchCmd(),
		},
	}
}

// Execute runs the tool with args (including the program name)
// and returns the process exit status.
func Execute(
	ctx context.Context,
	args []string,
	stdout, stderr io.Writer,
) int {
	err := NewCommand(stdout, stderr).Run(ctx, args)
	code := ExitCode(err)
	if err != nil && code != ExitFailed {
		fmt.Fprintf(stderr, "Error: %v\n", err)
	}
	return code
}

// loadConfig assembles the configuration for cmd: defaults, the
// config file, the environment and then any flags set on the
// command line.
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	loader := env.NewLoader()
	if path := cmd.String("env-file"); path != "" {
		if err := loader.Load(path); err != nil {
			return nil, err
		}
	} else if _, err := os.Stat(".env"); err == nil {
		if err := loader.Load(".env"); err != nil {
			return nil, err
		}
	}

	cfg, err := config.Load(cmd.String("config"), loader)
	if err != nil {
		return nil, err
	}
	applyFlags(cmd, cfg)

	if args := cmd.Args().Slice(); len(args) > 0 {
		cfg.Roots = args
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func applyFlags(cmd *cli.Command, cfg *config.Config) {
	strs := map[string]*string{
		"builtin":      &cfg.Builtin,
		"format":       &cfg.Format,
		"output":       &cfg.Output,
		"title":        &cfg.Title,
		"history":      &cfg.History,
		"metrics-file": &cfg.MetricsFile,
		"log-level":    &cfg.LogLevel,
		"log-format":   &cfg.LogFormat,
		"log-file":     &cfg.LogFile,
		"serve":        &cfg.Serve,
	}
	for flag, dst := range strs {
		if cmd.IsSet(flag) {
			*dst = cmd.String(flag)
		}
	}
	if cmd.IsSet("rules") {
		cfg.Rules = cmd.StringSlice("rules")
	}
	if cmd.IsSet("section") {
		cfg.Sections = cmd.StringSlice("section")
	}
	if cmd.IsSet("parallel") {
		cfg.Parallel = cmd.Int("parallel")
	}
	if cmd.IsSet("max-file-size") {
		cfg.MaxFileSize = cmd.Int64("max-file-size")
	}
	if cmd.IsSet("strict") {
		cfg.Strict = cmd.Bool("strict")
	}
	if cmd.IsSet("debounce") {
		cfg.Debounce = cmd.Duration("debounce")
	}
}

func newLogger(cfg *config.Config) (logging.Logger, error) {
	logger, err := cfg.Logger()
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return logger, nil
}
