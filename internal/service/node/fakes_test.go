package node

import (
	"context"
	"sync"
	"time"

	"github.com/oshokin/wellness-node/internal/service/session"
)

// fakeMonitor returns a configurable connectivity answer.
type fakeMonitor struct {
	mu     sync.Mutex
	online bool
}

// HasConnectivity returns the configured answer.
func (f *fakeMonitor) HasConnectivity(context.Context) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.online
}

func (f *fakeMonitor) set(online bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.online = online
}

// published is one recorded Publish call.
type published struct {
	topic   string
	payload string
}

// fakeTransport records the requests issued by the session manager.
type fakeTransport struct {
	mu          sync.Mutex
	connects    int
	subscribes  []string
	published   []published
	disconnects int
}

// Connect counts the request.
func (f *fakeTransport) Connect(context.Context, session.Endpoint) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.connects++

	return nil
}

// Subscribe records the topic.
func (f *fakeTransport) Subscribe(_ context.Context, topic string, _ byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.subscribes = append(f.subscribes, topic)

	return nil
}

// Publish records the message.
func (f *fakeTransport) Publish(_ context.Context, topic string, payload []byte, _ byte, _ bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.published = append(f.published, published{topic: topic, payload: string(payload)})

	return nil
}

// Disconnect counts the request.
func (f *fakeTransport) Disconnect(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.disconnects++

	return nil
}

func (f *fakeTransport) messages() []published {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]published(nil), f.published...)
}

func newTestController(monitor *fakeMonitor, transport *fakeTransport) *Controller {
	manager := session.NewManager(session.Options{
		Endpoint: session.Endpoint{
			Host:         "fd00::1",
			Port:         1883,
			ClientID:     "SmartWellnessCollector",
			KeepAlive:    session.KeepAlive(5 * time.Second),
			CleanSession: true,
		},
		ControlTopic: "humidity_control",
		Monitor:      monitor,
		Transport:    transport,
	})

	return NewController(ControllerOptions{
		NodeID:       2,
		SensorType:   "humiditySensor",
		PublishTopic: "humidity",
		Session:      manager,
	})
}
