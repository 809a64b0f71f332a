package node

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/oshokin/wellness-node/internal/domain/device"
	"github.com/oshokin/wellness-node/internal/logger"
	"github.com/oshokin/wellness-node/internal/service/session"
)

// Session is the part of the session manager the controller drives.
type Session interface {
	Tick(ctx context.Context) device.State
	HandleEvent(ctx context.Context, ev session.Event) device.State
	Publish(ctx context.Context, topic string, payload []byte) bool
	State() device.State
}

// ControllerOptions configures a Controller.
type ControllerOptions struct {
	// NodeID is reported in every status message.
	NodeID int
	// SensorType is reported in every status message.
	SensorType string
	// PublishTopic receives the status messages.
	PublishTopic string
	// Session is the broker session state machine.
	Session Session
}

// Controller owns the actuator and humidity state of the node.
type Controller struct {
	opts ControllerOptions

	// mu serializes ticks, toggles and commands.
	mu       sync.Mutex
	actuator device.Actuator
	humidity device.Humidity

	// snapshot is republished after every change for lock-free readers.
	snapshot atomic.Pointer[device.Snapshot]
}

// NewController creates a controller with the actuator OFF in automatic mode.
func NewController(opts ControllerOptions) *Controller {
	c := &Controller{
		opts:     opts,
		humidity: device.HumidityInitial,
	}

	c.publishSnapshot()

	return c
}

// Tick performs one control tick. manualTrigger reports that the tick was
// caused by the local button; the toggle is applied before formatting.
func (c *Controller) Tick(ctx context.Context, manualTrigger bool) device.State {
	state := c.opts.Session.Tick(ctx)

	c.mu.Lock()

	c.humidity = c.humidity.Next(c.actuator.Active)
	logger.DebugKV(ctx, "New humidity value", "value", int(c.humidity))

	if manualTrigger {
		c.toggleLocked(ctx)
	}

	humidity, actuator := c.humidity, c.actuator

	c.publishSnapshotLocked(state)
	c.mu.Unlock()

	if !state.IsOnline() {
		return state
	}

	msg := device.FormatStatus(c.opts.NodeID, humidity, actuator.ManualMode, c.opts.SensorType)
	logger.InfoKV(ctx, "Publishing status", "topic", c.opts.PublishTopic, "message", string(msg))

	c.opts.Session.Publish(ctx, c.opts.PublishTopic, msg)

	return state
}

// ApplyCommand validates a remote ON/OFF payload and sets the output.
// Invalid payloads return device.ErrBadRequest and change nothing.
func (c *Controller) ApplyCommand(ctx context.Context, raw []byte) error {
	cmd, err := device.ParseCommand(raw)
	if err != nil {
		logger.WarnKV(ctx, "Rejected remote command", "error", err)
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.actuator.Apply(cmd)
	c.publishSnapshotLocked(c.opts.Session.State())

	logger.InfoKV(ctx, "Humidifier switched remotely", "status", string(cmd), "manual", c.actuator.ManualMode)

	return nil
}

// HandleTransportEvent forwards an asynchronous transport event to the session.
func (c *Controller) HandleTransportEvent(ctx context.Context, ev session.Event) {
	state := c.opts.Session.HandleEvent(ctx, ev)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.publishSnapshotLocked(state)
}

// Snapshot returns the latest published view of the node.
func (c *Controller) Snapshot() device.Snapshot {
	return *c.snapshot.Load()
}

func (c *Controller) toggleLocked(ctx context.Context) {
	c.actuator.ToggleManual()

	logger.InfoKV(ctx, "[MANUAL] Humidifier switched", "status", string(c.actuator.Status()), "manual", c.actuator.ManualMode)
}

func (c *Controller) publishSnapshot() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.publishSnapshotLocked(c.opts.Session.State())
}

func (c *Controller) publishSnapshotLocked(state device.State) {
	c.snapshot.Store(&device.Snapshot{
		NodeID:   c.opts.NodeID,
		State:    state,
		Actuator: c.actuator,
		Humidity: c.humidity,
	})
}
