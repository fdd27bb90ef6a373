package serviceutil

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

// SignalContext returns a context that lives until SIGINT or SIGTERM is received.
// A second signal exits immediately.
func SignalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	sigs := make(chan os.Signal, 2)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		slog.Info("shutting down, waiting for the running cycle", "signal", sig.String())
		cancel()
		<-sigs
		Fatal("forced shutdown", context.Canceled)
	}()

	return ctx
}

// Fatal logs the error and exits with status 1.
func Fatal(message string, err error) {
	slog.Error(message, "err", err.Error())
	os.Exit(1)
}
