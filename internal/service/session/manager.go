package session

import (
	"context"
	"sync"
	"time"

	"github.com/oshokin/wellness-node/internal/domain/device"
	"github.com/oshokin/wellness-node/internal/logger"
	"github.com/oshokin/wellness-node/internal/service/connectivity"
)

// KeepAliveMultiplier scales the publish interval into the broker keepalive.
const KeepAliveMultiplier = 3

// Options configures a Manager.
type Options struct {
	// Endpoint identifies the broker session.
	Endpoint Endpoint
	// ControlTopic is subscribed to for remote commands.
	ControlTopic string
	// Monitor answers the connectivity question while in INIT.
	Monitor connectivity.Monitor
	// Transport executes connect/subscribe/disconnect requests.
	Transport Transport
	// OnTransition, when set, is called for every state change while the
	// Manager lock is held. It must not call back into the Manager.
	OnTransition func(from, to device.State)
}

// KeepAlive returns the keepalive for a publish interval.
func KeepAlive(publishInterval time.Duration) time.Duration {
	return KeepAliveMultiplier * publishInterval
}

// step is one row of the tick table: the action taken in a state and
// the state that follows it. A nil action means nothing is done.
type step struct {
	action func(m *Manager, ctx context.Context) bool
	next   device.State
}

// tickTable is the per-tick transition table. A row whose action
// returns false leaves the state unchanged for this tick.
//
//nolint:gochecknoglobals // Immutable transition table.
var tickTable = map[device.State]step{
	device.StateInit:         {action: (*Manager).checkConnectivity, next: device.StateNetworkReady},
	device.StateNetworkReady: {action: (*Manager).connect, next: device.StateConnecting},
	device.StateConnecting:   {action: (*Manager).subscribe, next: device.StateSubscribed},
	device.StateDisconnected: {action: (*Manager).disconnect, next: device.StateInit},
}

// chained lists states evaluated again within the same tick after being
// entered, so a tick that first sees connectivity ends in SUBSCRIBED.
//
//nolint:gochecknoglobals // Immutable transition table.
var chained = map[device.State]bool{
	device.StateNetworkReady: true,
	device.StateConnecting:   true,
}

// Manager owns the session state.
type Manager struct {
	opts Options

	// mu protects state.
	mu    sync.Mutex
	state device.State
}

// NewManager creates a Manager in INIT.
func NewManager(opts Options) *Manager {
	if opts.Monitor == nil {
		opts.Monitor = connectivity.Always{}
	}

	return &Manager{
		opts:  opts,
		state: device.StateInit,
	}
}

// State returns the current state.
func (m *Manager) State() device.State {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.state
}

// Tick advances the state machine once and returns the resulting state.
func (m *Manager) Tick(ctx context.Context) device.State {
	m.mu.Lock()
	defer m.mu.Unlock()

	for {
		row, ok := tickTable[m.state]
		if !ok {
			// SUBSCRIBED and CONNECTED stay put until a transport event.
			return m.state
		}

		if !row.action(m, ctx) {
			return m.state
		}

		m.setState(ctx, row.next)

		if !chained[m.state] {
			return m.state
		}
	}
}

// HandleEvent applies an asynchronous transport event.
func (m *Manager) HandleEvent(ctx context.Context, ev Event) device.State {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch ev.Kind {
	case EventConnected:
		logger.Info(ctx, "Application has a MQTT connection")
		m.setState(ctx, device.StateConnected)
	case EventDisconnected:
		logger.WarnKV(ctx, "Disconnected from MQTT broker", "reason", ev.Err)
		m.setState(ctx, device.StateDisconnected)
	case EventSubAck:
		if ev.Err != nil {
			logger.ErrorKV(ctx, "Failed to subscribe to topic", "topic", ev.Topic, "error", ev.Err)
		} else {
			logger.InfoKV(ctx, "Subscribed to topic", "topic", ev.Topic)
		}
	case EventUnsubAck:
		logger.InfoKV(ctx, "Unsubscribed from topic", "topic", ev.Topic)
	case EventPubAck:
		logger.Debug(ctx, "Publishing complete")
	default:
		logger.InfoKV(ctx, "Unhandled MQTT event", "event", ev.String())
	}

	return m.state
}

// Publish sends a payload when the session is online. It reports whether
// the message was handed to the transport.
func (m *Manager) Publish(ctx context.Context, topic string, payload []byte) bool {
	if !m.State().IsOnline() {
		return false
	}

	if err := m.opts.Transport.Publish(ctx, topic, payload, QoSAtMostOnce, false); err != nil {
		logger.WarnKV(ctx, "Publish rejected", "topic", topic, "error", err)
		return false
	}

	return true
}

func (m *Manager) setState(ctx context.Context, next device.State) {
	if next == m.state {
		return
	}

	logger.DebugKV(ctx, "Session state changed", "from", m.state.String(), "to", next.String())

	if m.opts.OnTransition != nil {
		m.opts.OnTransition(m.state, next)
	}

	m.state = next
}

func (m *Manager) checkConnectivity(ctx context.Context) bool {
	return m.opts.Monitor.HasConnectivity(ctx)
}

func (m *Manager) connect(ctx context.Context) bool {
	endpoint := m.opts.Endpoint

	if err := m.opts.Transport.Connect(ctx, endpoint); err != nil {
		logger.ErrorKV(ctx, "Connect request rejected", "error", err)
		return false
	}

	logger.InfoKV(ctx, "Connecting to MQTT broker",
		"broker_host", endpoint.Host,
		"broker_port", endpoint.Port,
		"client_id", endpoint.ClientID,
		"keep_alive", endpoint.KeepAlive.String(),
	)

	return true
}

func (m *Manager) subscribe(ctx context.Context) bool {
	// Failures are logged, not retried; the state still advances.
	if err := m.opts.Transport.Subscribe(ctx, m.opts.ControlTopic, QoSAtMostOnce); err != nil {
		logger.ErrorKV(ctx, "Subscribe request rejected", "topic", m.opts.ControlTopic, "error", err)
	}

	return true
}

func (m *Manager) disconnect(ctx context.Context) bool {
	if err := m.opts.Transport.Disconnect(ctx); err != nil {
		logger.WarnKV(ctx, "Disconnect request failed", "error", err)
	}

	return true
}
