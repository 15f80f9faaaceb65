package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// SetupSignalHandler returns a context cancelled on the first SIGINT or
// SIGTERM. A second signal exits the process with status 1 without waiting
// for a graceful shutdown.
func SetupSignalHandler() (context.Context, context.CancelFunc) {
	return NotifyContext(context.Background(), func() { os.Exit(ExitFailure) }, os.Interrupt, syscall.SIGTERM)
}

// NotifyContext cancels the returned context when one of sigs arrives and
// calls force on the next one. A nil force ignores repeated signals.
func NotifyContext(parent context.Context, force func(), sigs ...os.Signal) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 2)
	signal.Notify(sigChan, sigs...)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
			return
		}
		if force == nil {
			return
		}
		select {
		case <-sigChan:
			force()
		case <-parent.Done():
		}
	}()

	return ctx, cancel
}
