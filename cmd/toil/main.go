package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"toil/internal/cli"
)

// main is a thin boundary: wire signals to context cancellation, hand the
// argument list to the CLI, and exit with the semantic code it reports.
// An interrupt kills the currently blocked step's process tree; no cleanup
// hooks run beyond that.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res := cli.Run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(res.ExitCode)
}
