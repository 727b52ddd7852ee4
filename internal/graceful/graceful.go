package graceful

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
)

func MakeSigintChan() chan os.Signal {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	return sigCh
}

// Context derives a context that is cancelled on SIGINT/SIGTERM, logging the
// signal that triggered the shutdown.
func Context(parent context.Context, logger *logrus.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	go func() {
		select {
		case sig := <-MakeSigintChan():
			logger.Infof("received exit signal: %v", sig)
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
