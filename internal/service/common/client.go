//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	api "github.com/oshokin/wellness-node/internal/api/grpc/actuator"
	"github.com/oshokin/wellness-node/internal/config"
	"github.com/oshokin/wellness-node/internal/domain/device"
)

// Client wraps the gRPC ActuatorService client with convenience helpers.
type Client struct {
	// conn is the underlying gRPC connection to the node.
	conn *grpc.ClientConn
	// api is the ActuatorService client.
	api *api.ActuatorServiceClient

	// callTimeout is the default timeout for individual RPC calls.
	callTimeout time.Duration
	// actor is sent with every call so the node can log who issued it.
	actor string
}

// Option configures client behaviour.
type Option func(*Client)

// WithCallTimeout sets a default timeout for service calls.
func WithCallTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.callTimeout = timeout
		}
	}
}

// WithActor attaches the operator identity to every call.
func WithActor(actor Actor) Option {
	return func(c *Client) {
		c.actor = actor.String()
	}
}

// errAddressRequired is returned when a required address value is missing.
var errAddressRequired = errors.New("address must be provided")

// Dial establishes a gRPC connection to the node.
// Note: this uses insecure transport credentials; the node is expected to
// live on a trusted local network.
func Dial(_ context.Context, address string, opts ...Option) (*Client, error) {
	if address == "" {
		return nil, errAddressRequired
	}

	conn, err := grpc.NewClient(address, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dial node: %w", err)
	}

	client := &Client{
		conn:        conn,
		api:         api.NewActuatorServiceClient(conn),
		callTimeout: config.DefaultTimeout,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

// Close releases the underlying gRPC connection.
func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}

	return c.conn.Close()
}

// SetStatus switches the node's humidifier.
func (c *Client) SetStatus(ctx context.Context, cmd device.Command) error {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	if _, err := c.api.SetStatus(callCtx, api.StatusRequest(cmd)); err != nil {
		return fmt.Errorf("set status: %w", err)
	}

	return nil
}

// GetStatus retrieves the node snapshot.
func (c *Client) GetStatus(ctx context.Context) (*structpb.Struct, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.api.GetStatus(callCtx, new(emptypb.Empty))
	if err != nil {
		return nil, fmt.Errorf("get status: %w", err)
	}

	return resp, nil
}

// callContext returns a context with the client's call timeout if configured,
// otherwise a cancellable child context without a deadline. The actor, when
// known, travels as outgoing metadata.
func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.actor != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, api.MetadataActor, c.actor)
	}

	if c.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, c.callTimeout)
}
