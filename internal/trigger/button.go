package trigger

import (
	"context"
	"fmt"
	"io"

	"github.com/warthog618/go-gpiocdev"

	"github.com/oshokin/wellness-node/internal/config"
	"github.com/oshokin/wellness-node/internal/logger"
)

// WatchButton requests the configured GPIO line and calls fire on every
// press. The button pulls the line low, so a press is a falling edge.
// Close the returned line to stop watching.
func WatchButton(ctx context.Context, cfg config.Button, fire func()) (io.Closer, error) {
	line, err := gpiocdev.RequestLine(cfg.Chip, cfg.Line,
		gpiocdev.AsInput,
		gpiocdev.WithPullUp,
		gpiocdev.WithFallingEdge,
		gpiocdev.WithDebounce(cfg.Debounce),
		gpiocdev.WithEventHandler(buttonHandler(ctx, fire)),
	)
	if err != nil {
		return nil, fmt.Errorf("request %s line %d: %w", cfg.Chip, cfg.Line, err)
	}

	logger.InfoKV(ctx, "Watching button", "chip", cfg.Chip, "line", cfg.Line, "debounce", cfg.Debounce.String())

	return line, nil
}

func buttonHandler(ctx context.Context, fire func()) func(gpiocdev.LineEvent) {
	return func(evt gpiocdev.LineEvent) {
		if evt.Type != gpiocdev.LineEventFallingEdge {
			return
		}

		logger.DebugKV(ctx, "Button pressed", "line", evt.Offset, "seqno", evt.Seqno)
		fire()
	}
}
