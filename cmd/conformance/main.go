package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"digital.vasic.conformance/pkg/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(
		context.Background(), os.Interrupt, syscall.SIGTERM,
	)
	code := cli.Execute(ctx, os.Args, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
