package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"BacklinkOutreach/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(commandEnv{}).ExecuteContext(ctx); err != nil {
		reportFailure(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

// reportFailure logs a fatal error to the error stream.
func reportFailure(w io.Writer, err error) {
	logging.New(os.Getenv("LOG_LEVEL"), w).Error("run failed", "error", err)
}
