package session

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// QoS levels used by the node.
const (
	QoSAtMostOnce  byte = 0
	QoSAtLeastOnce byte = 1
)

// Transport errors.
var (
	// ErrQueueFull is returned when the outbound command queue has no room.
	ErrQueueFull = errors.New("transport command queue is full")
	// ErrNotConnected is returned for commands that need a live connection.
	ErrNotConnected = errors.New("transport is not connected")
)

// Endpoint is the immutable broker session identity.
type Endpoint struct {
	// Host and Port locate the broker.
	Host string
	Port int
	// ClientID identifies the node to the broker.
	ClientID string
	// KeepAlive is the session keepalive.
	KeepAlive time.Duration
	// CleanSession discards broker-side session state on connect.
	CleanSession bool
}

// Transport is the pub/sub client used by the Manager. Calls must not
// block: they queue work and report the outcome later through events.
type Transport interface {
	Connect(ctx context.Context, endpoint Endpoint) error
	Subscribe(ctx context.Context, topic string, qos byte) error
	Publish(ctx context.Context, topic string, payload []byte, qos byte, retain bool) error
	Disconnect(ctx context.Context) error
}

// EventKind enumerates transport notifications.
type EventKind uint8

const (
	// EventOther carries a transport specific code.
	EventOther EventKind = iota
	// EventConnected confirms the broker accepted the connection.
	EventConnected
	// EventDisconnected reports a lost or refused connection.
	EventDisconnected
	// EventSubAck confirms a subscription.
	EventSubAck
	// EventUnsubAck confirms an unsubscription.
	EventUnsubAck
	// EventPubAck confirms a QoS 1 publish.
	EventPubAck
)

// String returns the event name.
func (k EventKind) String() string {
	switch k {
	case EventConnected:
		return "CONNECTED"
	case EventDisconnected:
		return "DISCONNECTED"
	case EventSubAck:
		return "SUBACK"
	case EventUnsubAck:
		return "UNSUBACK"
	case EventPubAck:
		return "PUBACK"
	default:
		return "OTHER"
	}
}

// Event is one asynchronous transport notification.
type Event struct {
	Kind EventKind
	// Code is set for EventOther.
	Code int
	// Topic is set for subscription events.
	Topic string
	// Err explains a disconnect or a failed acknowledgement.
	Err error
}

// String renders the event for logs.
func (e Event) String() string {
	switch {
	case e.Kind == EventOther:
		return fmt.Sprintf("%s(%d)", e.Kind, e.Code)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return e.Kind.String()
	}
}

// EventSink receives transport events. It must not block.
type EventSink func(Event)
