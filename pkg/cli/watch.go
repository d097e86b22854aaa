package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"digital.vasic.conformance/pkg/logging"
	"digital.vasic.conformance/pkg/monitor"
	"digital.vasic.conformance/pkg/runner"
)

func watchCmd() *cli.Command {
	flags := append(ruleFlags(), reportFlags()...)
	flags = append(flags,
		&cli.DurationFlag{
			Name:  "debounce",
			Usage: "Quiet period after a change before re-checking",
		},
		&cli.StringFlag{
			Name:  "serve",
			Usage: "Serve live results over HTTP and WebSocket on this address (e.g. :8089)",
		},
	)

	return &cli.Command{
		Name:      "watch",
		Usage:     "Re-check a tree whenever files under it change",
		ArgsUsage: "[ROOT]",
		Description: `Check ROOT (default: the current directory) once, then again after every
burst of file changes, until interrupted. With --serve the latest report
is available at /report and every event is pushed to WebSocket clients
connected to /ws.`,
		Flags: flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if len(cfg.Roots) != 1 {
				return fmt.Errorf("watch takes exactly one root, got %d", len(cfg.Roots))
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

			collector := monitor.NewEventCollector()
			opts := append(runnerOptions(cfg, logger), runner.WithCollector(collector))
			r := runner.NewRunner(opts...)

			if cfg.Serve != "" {
				srv := monitor.NewServer(
					cfg.Serve, collector, monitor.NewDashboardData(), logger,
				)
				go func() {
					if err := srv.Start(ctx); err != nil {
						logger.Error("monitor server stopped",
							logging.ErrorField(err),
						)
					}
				}()
				defer func() {
					stopCtx, cancel := context.WithTimeout(
						context.Background(), 5*time.Second,
					)
					defer cancel()
					_ = srv.Stop(stopCtx)
				}()
				logger.Info("serving live results",
					logging.StringField("addr", cfg.Serve),
				)
			}

			w := cmd.Root().Writer
			onResult := func(res *runner.Result, err error) {
				if err != nil {
					fmt.Fprintf(cmd.Root().ErrWriter, "Error: %v\n", err)
					return
				}
				if err := renderResults(w, cfg, rs, []*runner.Result{res}); err != nil {
					logger.Error("failed to render report",
						logging.ErrorField(err),
					)
				}
			}

			return runner.Watch(
				ctx, r, cfg.Roots[0], rs, onResult,
				runner.WithDebounce(cfg.Debounce),
				runner.WithWatchLogger(logger),
			)
		},
	}
}
