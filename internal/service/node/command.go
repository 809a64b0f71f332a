package node

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"google.golang.org/grpc"

	api "github.com/oshokin/wellness-node/internal/api/grpc/actuator"
	"github.com/oshokin/wellness-node/internal/config"
	"github.com/oshokin/wellness-node/internal/domain/device"
	"github.com/oshokin/wellness-node/internal/logger"
	"github.com/oshokin/wellness-node/internal/service/connectivity"
	"github.com/oshokin/wellness-node/internal/service/session"
	"github.com/oshokin/wellness-node/internal/transport/mqtt"
	"github.com/oshokin/wellness-node/internal/trigger"
)

// Options controls the wellness-node process.
type Options struct {
	// ConfigPath specifies the path to settings YAML file.
	ConfigPath string
	// ListenAddress overrides the gRPC listen address from the settings.
	ListenAddress string
	// AssumeConnectivity skips the connectivity probe when true.
	AssumeConnectivity bool
}

// Run starts the node and blocks until ctx is canceled.
//
//nolint:funlen // Linear wiring of the node components.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "wellness-node")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	applyOverrides(cfg, opts)

	level, ok := logger.ParseLogLevel(cfg.LogLevel)
	if !ok {
		logger.WarnKV(ctx, "Unknown log level, using info", "log_level", cfg.LogLevel)
	}

	logger.SetLevel(level)

	ctx = logger.WithKV(ctx, "node_id", cfg.NodeID)
	mqtt.RedirectLibraryLogs(ctx)

	// The loop is created after the transport; callbacks only fire once the
	// transport worker runs, which happens after loop is assigned.
	var loop *Loop

	transport := mqtt.NewTransport(mqtt.Options{
		AckTimeout: cfg.Timeout,
		OnEvent: func(ev session.Event) {
			loop.PostTransportEvent(ctx, ev)
		},
		OnMessage: func(topic string, payload []byte) {
			if topic != cfg.ControlTopic {
				logger.DebugKV(ctx, "Ignoring message", "topic", topic)
				return
			}

			loop.PostCommand(ctx, payload)
		},
	})

	manager := session.NewManager(session.Options{
		Endpoint:     endpointFromConfig(cfg),
		ControlTopic: cfg.ControlTopic,
		Monitor:      newMonitor(cfg),
		Transport:    transport,
		OnTransition: func(from, to device.State) {
			if from.IsOnline() != to.IsOnline() {
				logger.InfoKV(ctx, "Broker session availability changed", "online", to.IsOnline(), "state", to.String())
			}
		},
	})

	controller := NewController(ControllerOptions{
		NodeID:       cfg.NodeID,
		SensorType:   cfg.SensorType,
		PublishTopic: cfg.PublishTopic,
		Session:      manager,
	})

	loop = NewLoop(controller, cfg.PublishInterval, DefaultQueueSize)

	lc := net.ListenConfig{}

	lis, err := lc.Listen(ctx, "tcp", cfg.ListenAddress)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.ListenAddress, err)
	}

	fire := func() { loop.Trigger(ctx) }

	button, err := watchButton(ctx, cfg.Button, fire)
	if err != nil {
		_ = lis.Close()
		return err
	}

	defer func() {
		if button != nil {
			_ = button.Close()
		}
	}()

	signals := trigger.NewSignal()
	defer signals.Stop()

	grpcServer := grpc.NewServer()
	api.RegisterActuatorServiceServer(grpcServer, api.NewServer(loop))

	logger.InfoKV(ctx, "Node started",
		"broker", cfg.BrokerAddress(),
		"client_id", cfg.ClientID,
		"publish_topic", cfg.PublishTopic,
		"control_topic", cfg.ControlTopic,
		"listen_address", cfg.ListenAddress)

	var wg sync.WaitGroup

	wg.Go(func() { _ = transport.Run(ctx) })
	wg.Go(func() { _ = loop.Run(logger.WithName(ctx, "loop")) })
	wg.Go(func() { signals.Run(ctx, fire) })

	// Done channel is closed after GracefulStop finishes to ensure we block
	// until the server fully stops before returning.
	done := make(chan struct{})

	go func() {
		<-ctx.Done()
		logger.Info(ctx, "Shutting down gRPC server")
		grpcServer.GracefulStop()
		close(done)
	}()

	if err = grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		cancel()
		wg.Wait()

		return fmt.Errorf("serve gRPC: %w", err)
	}

	<-done
	wg.Wait()
	logger.Info(ctx, "Node stopped")

	return nil
}

// applyOverrides applies command line values on top of the settings.
func applyOverrides(cfg *config.Config, opts *Options) {
	if opts.ListenAddress != "" {
		cfg.ListenAddress = opts.ListenAddress
	}

	if opts.AssumeConnectivity {
		cfg.AssumeConnectivity = true
	}
}

// endpointFromConfig builds the broker session identity.
func endpointFromConfig(cfg *config.Config) session.Endpoint {
	return session.Endpoint{
		Host:         cfg.BrokerHost,
		Port:         cfg.BrokerPort,
		ClientID:     cfg.ClientID,
		KeepAlive:    session.KeepAlive(cfg.PublishInterval),
		CleanSession: true,
	}
}

//nolint:ireturn // The monitor is chosen at runtime.
func newMonitor(cfg *config.Config) connectivity.Monitor {
	if cfg.AssumeConnectivity {
		return connectivity.Always{}
	}

	return connectivity.NewNetMonitor()
}

// watchButton starts the GPIO watcher when the button is enabled.
func watchButton(ctx context.Context, cfg config.Button, fire func()) (io.Closer, error) {
	if !cfg.Enabled {
		return nil, nil //nolint:nilnil // A disabled button has nothing to close.
	}

	closer, err := trigger.WatchButton(ctx, cfg, fire)
	if err != nil {
		return nil, fmt.Errorf("watch button: %w", err)
	}

	return closer, nil
}
