package node

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/oshokin/wellness-node/internal/domain/device"
	"github.com/oshokin/wellness-node/internal/logger"
	"github.com/oshokin/wellness-node/internal/service/session"
)

// DefaultQueueSize bounds the number of pending events.
const DefaultQueueSize = 32

var (
	// ErrLoopStopped is returned to callers waiting on a loop that has exited.
	ErrLoopStopped = errors.New("control loop stopped")
	// ErrDisconnectDeferred marks a disconnect that arrived while the
	// transport queue was full and is replayed before the next tick.
	ErrDisconnectDeferred = errors.New("disconnect received while transport queue was full")
)

type eventKind uint8

const (
	eventTrigger eventKind = iota
	eventCommand
)

// event is one entry of the input queue.
type event struct {
	kind    eventKind
	payload []byte
	// reply receives the command result; nil for fire-and-forget commands.
	reply chan error
}

// Loop serializes every input of the Controller on one goroutine.
// Triggers and commands share the input queue; transport events have
// their own queue so a burst of inputs cannot crowd them out.
type Loop struct {
	controller *Controller
	interval   time.Duration
	events     chan event
	transport  chan session.Event
	done       chan struct{}

	// lostSession is set when a disconnect could not be queued.
	lostSession atomic.Bool
}

// NewLoop creates a loop ticking every interval.
func NewLoop(controller *Controller, interval time.Duration, queueSize int) *Loop {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}

	return &Loop{
		controller: controller,
		interval:   interval,
		events:     make(chan event, queueSize),
		transport:  make(chan session.Event, queueSize),
		done:       make(chan struct{}),
	}
}

// Run processes events until ctx is canceled. The tick timer is re-armed
// only after the current tick has been handled, so ticks never overlap.
func (l *Loop) Run(ctx context.Context) error {
	defer close(l.done)

	timer := time.NewTimer(l.interval)
	defer timer.Stop()

	logger.InfoKV(ctx, "Control loop started", "interval", l.interval.String())

	for {
		select {
		case <-ctx.Done():
			logger.Info(ctx, "Control loop stopped")
			return nil
		case <-timer.C:
			l.tick(ctx, false, timer)
		case ev := <-l.transport:
			l.controller.HandleTransportEvent(ctx, ev)
		case ev := <-l.events:
			l.handle(ctx, ev, timer)
		}
	}
}

func (l *Loop) handle(ctx context.Context, ev event, timer *time.Timer) {
	switch ev.kind {
	case eventTrigger:
		// A button press runs a full tick and restarts the period.
		l.tick(ctx, true, timer)
	case eventCommand:
		err := l.controller.ApplyCommand(ctx, ev.payload)
		if ev.reply != nil {
			ev.reply <- err
		}
	}
}

// tick replays a deferred disconnect once the transport queue is drained,
// then runs the controller tick and re-arms the timer.
func (l *Loop) tick(ctx context.Context, manualTrigger bool, timer *time.Timer) {
	if len(l.transport) == 0 && l.lostSession.Swap(false) {
		logger.Warn(ctx, "Replaying disconnect dropped by the transport queue")
		l.controller.HandleTransportEvent(ctx, session.Event{
			Kind: session.EventDisconnected,
			Err:  ErrDisconnectDeferred,
		})
	}

	l.controller.Tick(ctx, manualTrigger)
	timer.Reset(l.interval)
}

// Trigger posts a local manual-override event. It never blocks; when the
// queue is full the press is dropped and logged.
func (l *Loop) Trigger(ctx context.Context) {
	l.post(ctx, event{kind: eventTrigger})
}

// PostTransportEvent posts an asynchronous transport event. It never
// blocks. A disconnect that does not fit is remembered and handled before
// the next tick; other events are dropped and logged.
func (l *Loop) PostTransportEvent(ctx context.Context, ev session.Event) {
	select {
	case l.transport <- ev:
		return
	default:
	}

	if ev.Kind == session.EventDisconnected {
		l.lostSession.Store(true)
		logger.WarnKV(ctx, "Transport queue is full, deferring disconnect", "event", ev.String())

		return
	}

	logger.WarnKV(ctx, "Transport queue is full, dropping event", "event", ev.String())
}

// PostCommand posts a remote command without waiting for the result.
func (l *Loop) PostCommand(ctx context.Context, raw []byte) {
	l.post(ctx, event{kind: eventCommand, payload: append([]byte(nil), raw...)})
}

// ApplyCommand posts a remote command and waits for the result.
func (l *Loop) ApplyCommand(ctx context.Context, raw []byte) error {
	reply := make(chan error, 1)
	ev := event{
		kind:    eventCommand,
		payload: append([]byte(nil), raw...),
		reply:   reply,
	}

	select {
	case l.events <- ev:
	case <-l.done:
		return ErrLoopStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-reply:
		return err
	case <-l.done:
		// The loop may have answered right before exiting.
		select {
		case err := <-reply:
			return err
		default:
			return ErrLoopStopped
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Snapshot returns the latest view of the node.
func (l *Loop) Snapshot() device.Snapshot {
	return l.controller.Snapshot()
}

func (l *Loop) post(ctx context.Context, ev event) {
	select {
	case l.events <- ev:
	default:
		logger.WarnKV(ctx, "Event queue is full, dropping event", "kind", int(ev.kind))
	}
}
