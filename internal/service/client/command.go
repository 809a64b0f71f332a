package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"

	"google.golang.org/protobuf/types/known/structpb"

	api "github.com/oshokin/wellness-node/internal/api/grpc/actuator"
	"github.com/oshokin/wellness-node/internal/config"
	"github.com/oshokin/wellness-node/internal/domain/device"
	"github.com/oshokin/wellness-node/internal/logger"
	"github.com/oshokin/wellness-node/internal/service/common"
)

// Options configures a wellness-ctl invocation.
type Options struct {
	// ConfigPath to YAML settings file; a missing file falls back to defaults.
	ConfigPath string

	// NodeAddress overrides the node address derived from the settings.
	NodeAddress string

	// Command is sent to the node; an empty command only reads the status.
	Command device.Command
}

// Run sends the command, if any, and logs the resulting node status.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "wellness-ctl")

	cfg, err := config.Load(opts.ConfigPath)

	switch {
	case errors.Is(err, os.ErrNotExist):
		cfg = config.Default()
	case err != nil:
		return err
	}

	address, err := resolveNodeAddress(cfg.ListenAddress, opts.NodeAddress)
	if err != nil {
		return err
	}

	actor, err := common.DetectActor()
	if err != nil {
		return err
	}

	client, err := common.Dial(ctx, address, common.WithCallTimeout(cfg.Timeout), common.WithActor(actor))
	if err != nil {
		return err
	}

	// Close connection on function exit.
	defer func() {
		_ = client.Close()
	}()

	if opts.Command != "" {
		logger.InfoKV(ctx, "Sending command", "node_address", address, "status", string(opts.Command))

		if err = client.SetStatus(ctx, opts.Command); err != nil {
			return err
		}
	}

	state, err := client.GetStatus(ctx)
	if err != nil {
		return err
	}

	logger.Infof(ctx, "Node status: %s", formatStatus(state))

	return nil
}

// resolveNodeAddress picks the override or dials the configured listen
// address on the local host when it has no host part.
func resolveNodeAddress(listenAddress, override string) (string, error) {
	if override != "" {
		return override, nil
	}

	host, port, err := net.SplitHostPort(listenAddress)
	if err != nil {
		return "", fmt.Errorf("invalid listen address %q: %w", listenAddress, err)
	}

	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}

	return net.JoinHostPort(host, port), nil
}

// formatStatus converts the GetStatus response into a readable line.
func formatStatus(state *structpb.Struct) string {
	if state == nil {
		return "<nil state>"
	}

	fields := state.GetFields()

	mode := "automatic"
	if fields[api.FieldManual].GetBoolValue() {
		mode = "manual"
	}

	return fmt.Sprintf("node %d is %s (%s mode), humidity %d%%, session %s",
		int(fields[api.FieldNode].GetNumberValue()),
		fields[api.FieldStatus].GetStringValue(),
		mode,
		int(fields[api.FieldHumidity].GetNumberValue()),
		fields[api.FieldState].GetStringValue())
}
