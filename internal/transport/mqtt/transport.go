package mqtt

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/oshokin/wellness-node/internal/logger"
	"github.com/oshokin/wellness-node/internal/service/session"
)

const (
	// DefaultQueueSize bounds the number of pending transport requests.
	DefaultQueueSize = 8
	// DefaultAckTimeout limits how long the worker waits for a broker acknowledgement.
	DefaultAckTimeout = 5 * time.Second
	// disconnectQuiesce is the time in milliseconds given to in-flight work on disconnect.
	disconnectQuiesce uint = 250
	// subscribeFailure is the SUBACK return code of a refused subscription.
	subscribeFailure byte = 0x80
)

// errAckTimeout is reported when the broker does not answer in time.
var errAckTimeout = errors.New("acknowledgement timed out")

// MessageHandler receives inbound messages. It must not block.
type MessageHandler func(topic string, payload []byte)

// Options configures a Transport.
type Options struct {
	// QueueSize bounds the request queue; requests beyond it fail with session.ErrQueueFull.
	QueueSize int
	// AckTimeout bounds every wait on a broker acknowledgement.
	AckTimeout time.Duration
	// OnEvent receives connection and acknowledgement events.
	OnEvent session.EventSink
	// OnMessage receives messages published on subscribed topics.
	OnMessage MessageHandler
}

type requestKind uint8

const (
	requestConnect requestKind = iota
	requestSubscribe
	requestPublish
	requestDisconnect
)

// request is one queued transport call.
type request struct {
	kind     requestKind
	endpoint session.Endpoint
	topic    string
	payload  []byte
	qos      byte
	retain   bool
}

// Transport is a queued MQTT client.
type Transport struct {
	opts     Options
	requests chan request

	// mu guards client, which the worker replaces and paho callbacks compare against.
	mu     sync.Mutex
	client paho.Client
}

// NewTransport creates a transport. Call Run to start processing requests.
func NewTransport(opts Options) *Transport {
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}

	if opts.AckTimeout <= 0 {
		opts.AckTimeout = DefaultAckTimeout
	}

	if opts.OnEvent == nil {
		opts.OnEvent = func(session.Event) {}
	}

	return &Transport{
		opts:     opts,
		requests: make(chan request, opts.QueueSize),
	}
}

// Run executes queued requests until ctx is canceled, then closes the connection.
func (t *Transport) Run(ctx context.Context) error {
	ctx = logger.WithName(ctx, "mqtt")

	for {
		select {
		case <-ctx.Done():
			t.disconnect(ctx)
			return nil
		case req := <-t.requests:
			t.execute(ctx, req)
		}
	}
}

// Connect queues a connection to the endpoint.
func (t *Transport) Connect(_ context.Context, endpoint session.Endpoint) error {
	return t.enqueue(request{kind: requestConnect, endpoint: endpoint})
}

// Subscribe queues a subscription.
func (t *Transport) Subscribe(_ context.Context, topic string, qos byte) error {
	return t.enqueue(request{kind: requestSubscribe, topic: topic, qos: qos})
}

// Publish queues a message.
func (t *Transport) Publish(_ context.Context, topic string, payload []byte, qos byte, retain bool) error {
	return t.enqueue(request{
		kind:    requestPublish,
		topic:   topic,
		payload: append([]byte(nil), payload...),
		qos:     qos,
		retain:  retain,
	})
}

// Disconnect queues closing the connection.
func (t *Transport) Disconnect(context.Context) error {
	return t.enqueue(request{kind: requestDisconnect})
}

func (t *Transport) enqueue(req request) error {
	select {
	case t.requests <- req:
		return nil
	default:
		return session.ErrQueueFull
	}
}

func (t *Transport) execute(ctx context.Context, req request) {
	switch req.kind {
	case requestConnect:
		t.connect(ctx, req.endpoint)
	case requestSubscribe:
		t.subscribe(ctx, req.topic, req.qos)
	case requestPublish:
		t.publish(ctx, req)
	case requestDisconnect:
		t.disconnect(ctx)
	}
}

func (t *Transport) connect(ctx context.Context, endpoint session.Endpoint) {
	// A new session always starts from a closed connection.
	t.disconnect(ctx)

	options := paho.NewClientOptions().
		AddBroker(BrokerURL(endpoint.Host, endpoint.Port)).
		SetClientID(endpoint.ClientID).
		SetKeepAlive(endpoint.KeepAlive).
		SetCleanSession(endpoint.CleanSession).
		SetAutoReconnect(false).
		SetConnectRetry(false).
		SetConnectTimeout(t.opts.AckTimeout).
		SetDefaultPublishHandler(t.onMessage)

	options.SetOnConnectHandler(func(c paho.Client) {
		if t.isCurrent(c) {
			t.opts.OnEvent(session.Event{Kind: session.EventConnected})
		}
	})

	options.SetConnectionLostHandler(func(c paho.Client, err error) {
		if t.isCurrent(c) {
			t.opts.OnEvent(session.Event{Kind: session.EventDisconnected, Err: err})
		}
	})

	client := paho.NewClient(options)
	t.setClient(client)

	logger.InfoKV(ctx, "Connecting to broker",
		"host", endpoint.Host,
		"port", endpoint.Port,
		"client_id", endpoint.ClientID,
		"keepalive", endpoint.KeepAlive.String())

	token := client.Connect()
	if err := t.wait(token); err != nil {
		code := 0
		if ct, ok := token.(*paho.ConnectToken); ok {
			code = int(ct.ReturnCode())
		}

		logger.WarnKV(ctx, "Broker connection failed", "error", err, "code", code)
		t.setClient(nil)
		t.opts.OnEvent(session.Event{Kind: session.EventDisconnected, Code: code, Err: err})
	}
}

func (t *Transport) subscribe(ctx context.Context, topic string, qos byte) {
	client := t.currentClient()
	if client == nil {
		logger.WarnKV(ctx, "Subscribe skipped", "topic", topic, "error", session.ErrNotConnected)
		return
	}

	token := client.Subscribe(topic, qos, t.onMessage)
	if err := t.wait(token); err != nil {
		logger.WarnKV(ctx, "Subscribe failed", "topic", topic, "error", err)
		return
	}

	if st, ok := token.(*paho.SubscribeToken); ok {
		if code, found := st.Result()[topic]; found && code == subscribeFailure {
			t.opts.OnEvent(session.Event{Kind: session.EventOther, Code: int(code), Topic: topic})
			return
		}
	}

	t.opts.OnEvent(session.Event{Kind: session.EventSubAck, Topic: topic})
}

func (t *Transport) publish(ctx context.Context, req request) {
	client := t.currentClient()
	if client == nil {
		logger.WarnKV(ctx, "Publish skipped", "topic", req.topic, "error", session.ErrNotConnected)
		return
	}

	token := client.Publish(req.topic, req.qos, req.retain, req.payload)
	if err := t.wait(token); err != nil {
		logger.WarnKV(ctx, "Publish failed", "topic", req.topic, "error", err)
		return
	}

	if req.qos > session.QoSAtMostOnce {
		t.opts.OnEvent(session.Event{Kind: session.EventPubAck, Topic: req.topic})
	}
}

func (t *Transport) disconnect(ctx context.Context) {
	client := t.currentClient()
	if client == nil {
		return
	}

	t.setClient(nil)

	if client.IsConnectionOpen() {
		client.Disconnect(disconnectQuiesce)
		logger.Info(ctx, "Disconnected from broker")
	}
}

func (t *Transport) onMessage(_ paho.Client, msg paho.Message) {
	if t.opts.OnMessage != nil {
		t.opts.OnMessage(msg.Topic(), msg.Payload())
	}
}

func (t *Transport) wait(token paho.Token) error {
	if !token.WaitTimeout(t.opts.AckTimeout) {
		return errAckTimeout
	}

	return token.Error()
}

func (t *Transport) isCurrent(c paho.Client) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.client != nil && t.client == c
}

func (t *Transport) currentClient() paho.Client { //nolint:ireturn // paho exposes only the interface.
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.client
}

func (t *Transport) setClient(c paho.Client) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.client = c
}

// BrokerURL builds the paho broker address, bracketing IPv6 hosts.
func BrokerURL(host string, port int) string {
	return fmt.Sprintf("tcp://%s", net.JoinHostPort(host, strconv.Itoa(port)))
}
