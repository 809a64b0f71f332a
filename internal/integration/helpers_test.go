package integration

import (
	"context"
	"net"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	mqttserver "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/hooks/auth"
	"github.com/mochi-mqtt/server/v2/listeners"
	"github.com/mochi-mqtt/server/v2/packets"
	"github.com/stretchr/testify/require"

	"github.com/oshokin/wellness-node/internal/config"
	"github.com/oshokin/wellness-node/internal/service/node"
)

// reservePort returns a free local TCP address.
func reservePort(t *testing.T) string {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	addr := l.Addr().String()
	require.NoError(t, l.Close())

	return addr
}

// broker is an in-process MQTT broker recording messages per topic.
type broker struct {
	server *mqttserver.Server
	addr   string

	mu       sync.Mutex
	messages map[string][]string
}

// startBroker runs a broker that accepts every client.
func startBroker(t *testing.T, topics ...string) *broker {
	t.Helper()

	b := &broker{
		server:   mqttserver.New(&mqttserver.Options{InlineClient: true}),
		addr:     reservePort(t),
		messages: make(map[string][]string),
	}

	require.NoError(t, b.server.AddHook(new(auth.AllowHook), nil))
	require.NoError(t, b.server.AddListener(listeners.NewTCP(listeners.Config{ID: "tcp", Address: b.addr})))

	for i, topic := range topics {
		err := b.server.Subscribe(topic, i+1, func(_ *mqttserver.Client, _ packets.Subscription, pk packets.Packet) {
			b.mu.Lock()
			defer b.mu.Unlock()

			b.messages[pk.TopicName] = append(b.messages[pk.TopicName], string(pk.Payload))
		})
		require.NoError(t, err)
	}

	go func() {
		_ = b.server.Serve()
	}()

	t.Cleanup(func() {
		_ = b.server.Close()
	})

	return b
}

// received returns the messages seen on a topic.
func (b *broker) received(topic string) []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return append([]string(nil), b.messages[topic]...)
}

// hostPort splits the broker address.
func (b *broker) hostPort(t *testing.T) (string, int) {
	t.Helper()

	host, portText, err := net.SplitHostPort(b.addr)
	require.NoError(t, err)

	port, err := strconv.Atoi(portText)
	require.NoError(t, err)

	return host, port
}

// startNode runs a node against the broker and returns its gRPC address.
func startNode(t *testing.T, b *broker) string {
	t.Helper()

	host, port := b.hostPort(t)
	listenAddress := reservePort(t)

	cfg := config.Default()
	cfg.NodeID = 3
	cfg.BrokerHost = host
	cfg.BrokerPort = port
	cfg.PublishInterval = 100 * time.Millisecond
	cfg.ListenAddress = listenAddress
	cfg.AssumeConnectivity = true
	cfg.Timeout = 2 * time.Second

	cfgPath := filepath.Join(t.TempDir(), config.DefaultConfigFilename)
	require.NoError(t, config.Save(cfgPath, cfg))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() {
		done <- node.Run(ctx, &node.Options{ConfigPath: cfgPath})
	}()

	t.Cleanup(func() {
		cancel()

		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("node did not stop")
		}
	})

	return listenAddress
}
