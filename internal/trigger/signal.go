package trigger

import (
	"context"
	"os"
	"os/signal"

	"golang.org/x/sys/unix"

	"github.com/oshokin/wellness-node/internal/logger"
)

// Signal delivers SIGUSR1 as a button press.
type Signal struct {
	ch chan os.Signal
}

// NewSignal starts capturing SIGUSR1. Call Stop to restore the default handling.
func NewSignal() *Signal {
	s := &Signal{ch: make(chan os.Signal, 1)}
	signal.Notify(s.ch, unix.SIGUSR1)

	return s
}

// Run calls fire for every captured signal until ctx is canceled.
func (s *Signal) Run(ctx context.Context, fire func()) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.ch:
			logger.Debug(ctx, "SIGUSR1 received")
			fire()
		}
	}
}

// Stop releases the signal.
func (s *Signal) Stop() {
	signal.Stop(s.ch)
}
