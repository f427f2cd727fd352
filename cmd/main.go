package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/plasmakit/coupler/internal/cli"
	"github.com/plasmakit/coupler/pkg/logger"
)

func main() {
	// Initialize logging before anything else can fail.
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root := cli.NewRootCommand()
	if err := root.ExecuteContext(ctx); err != nil {
		logger.Get().Error(ctx, "command failed", logger.Error(err))
		os.Exit(1)
	}
}
