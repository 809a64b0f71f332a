package node

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/wellness-node/internal/domain/device"
	"github.com/oshokin/wellness-node/internal/service/session"
)

// TestController_StartupScenario: three offline ticks, then the first online
// tick reaches SUBSCRIBED and publishes a non-manual status.
func TestController_StartupScenario(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	monitor := new(fakeMonitor)
	transport := new(fakeTransport)
	c := newTestController(monitor, transport)

	for range 3 {
		require.Equal(t, device.StateInit, c.Tick(ctx, false))
	}

	require.Empty(t, transport.messages())

	monitor.set(true)
	require.Equal(t, device.StateSubscribed, c.Tick(ctx, false))

	msgs := transport.messages()
	require.Len(t, msgs, 1)
	require.Equal(t, "humidity", msgs[0].topic)
	require.Equal(t, `{"node": 2, "value": 91, "manual": 0, "sensorType": "humiditySensor"}`, msgs[0].payload)
}

// TestController_TriggerWhileSubscribed checks the manual override reaches the next status.
func TestController_TriggerWhileSubscribed(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	transport := new(fakeTransport)
	c := newTestController(&fakeMonitor{online: true}, transport)

	require.Equal(t, device.StateSubscribed, c.Tick(ctx, false))
	require.False(t, c.Snapshot().Actuator.Active)

	c.Tick(ctx, true)

	snap := c.Snapshot()
	require.True(t, snap.Actuator.ManualMode)
	require.True(t, snap.Actuator.Active)
	require.Equal(t, device.StateSubscribed, snap.State)

	msgs := transport.messages()
	require.Len(t, msgs, 2)
	require.Contains(t, msgs[1].payload, `"manual": 1`)
	require.Contains(t, msgs[1].payload, `"value": 91`)
}

// TestController_ToggleOffline applies the override without a session.
func TestController_ToggleOffline(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	transport := new(fakeTransport)
	c := newTestController(new(fakeMonitor), transport)

	require.Equal(t, device.StateInit, c.Tick(ctx, true))
	require.Equal(t, device.Actuator{Active: true, ManualMode: true}, c.Snapshot().Actuator)

	require.Equal(t, device.StateInit, c.Tick(ctx, true))
	require.Equal(t, device.Actuator{}, c.Snapshot().Actuator)

	// Offline ticks still update the sensed value, but nothing is published.
	require.Equal(t, device.Humidity(91), c.Snapshot().Humidity)
	require.Empty(t, transport.messages())
}

// TestController_ApplyCommand covers valid and rejected payloads.
func TestController_ApplyCommand(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := newTestController(new(fakeMonitor), new(fakeTransport))

	require.NoError(t, c.ApplyCommand(ctx, []byte("ON")))
	require.Equal(t, device.Actuator{Active: true}, c.Snapshot().Actuator)

	require.NoError(t, c.ApplyCommand(ctx, []byte("OFF")))
	require.Equal(t, device.Actuator{}, c.Snapshot().Actuator)

	// Manual mode survives remote commands.
	c.Tick(ctx, true)
	require.NoError(t, c.ApplyCommand(ctx, []byte("OFF")))
	require.Equal(t, device.Actuator{ManualMode: true}, c.Snapshot().Actuator)

	before := c.Snapshot().Actuator
	for _, raw := range []string{"on", "", "0123456789"} {
		require.ErrorIs(t, c.ApplyCommand(ctx, []byte(raw)), device.ErrBadRequest)
		require.Equal(t, before, c.Snapshot().Actuator)
	}
}

// TestController_DisconnectEvent resets the session on the next tick.
func TestController_DisconnectEvent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	transport := new(fakeTransport)
	c := newTestController(&fakeMonitor{online: true}, transport)

	c.Tick(ctx, false)
	c.HandleTransportEvent(ctx, session.Event{Kind: session.EventDisconnected})
	require.Equal(t, device.StateDisconnected, c.Snapshot().State)

	require.Equal(t, device.StateInit, c.Tick(ctx, false))
	require.Equal(t, 1, transport.disconnects)

	// Connectivity is still there, so the following tick reconnects.
	require.Equal(t, device.StateSubscribed, c.Tick(ctx, false))
	require.Equal(t, 2, transport.connects)
}

// TestController_ConnectedPublishes keeps publishing in CONNECTED.
func TestController_ConnectedPublishes(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	transport := new(fakeTransport)
	c := newTestController(&fakeMonitor{online: true}, transport)

	c.Tick(ctx, false)
	c.HandleTransportEvent(ctx, session.Event{Kind: session.EventConnected})
	require.Equal(t, device.StateConnected, c.Tick(ctx, false))

	require.Len(t, transport.messages(), 2)
	require.Len(t, transport.subscribes, 1)
}
