package actuator

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/wellness-node/internal/domain/device"
	"github.com/oshokin/wellness-node/internal/logger"
)

// Struct field names used on the wire.
const (
	FieldStatus   = "status"
	FieldNode     = "node"
	FieldState    = "state"
	FieldManual   = "manual"
	FieldHumidity = "value"
)

// MetadataActor is the request metadata key naming the operator.
const MetadataActor = "x-wellness-actor"

// Service abstracts the node operations the transport layer depends on.
type Service interface {
	ApplyCommand(ctx context.Context, raw []byte) error
	Snapshot() device.Snapshot
}

// Server implements the ActuatorService gRPC API.
type Server struct {
	// service applies commands and exposes the node state.
	service Service
}

// NewServer wires the provided service implementation into a gRPC handler.
func NewServer(service Service) *Server {
	return &Server{
		service: service,
	}
}

// SetStatus applies a remote ON/OFF command.
func (s *Server) SetStatus(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	value, ok := req.GetFields()[FieldStatus]
	if !ok {
		return nil, status.Error(codes.InvalidArgument, "status is required")
	}

	raw, ok := value.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return nil, status.Error(codes.InvalidArgument, "status must be a string")
	}

	if actor := actorFromContext(ctx); actor != "" {
		ctx = logger.WithKV(ctx, "actor", actor)
	}

	err := s.service.ApplyCommand(ctx, []byte(raw.StringValue))

	switch {
	case err == nil:
		logger.InfoKV(ctx, "Remote command accepted", "status", raw.StringValue)

		return new(emptypb.Empty), nil
	case errors.Is(err, device.ErrBadRequest):
		return nil, status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return nil, status.FromContextError(err).Err()
	default:
		logger.ErrorKV(ctx, "Unable to apply command", "error", err)
		return nil, status.Error(codes.Unavailable, "control loop unavailable")
	}
}

// GetStatus returns the latest node snapshot.
func (s *Server) GetStatus(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	result, err := ToStruct(s.service.Snapshot())
	if err != nil {
		return nil, status.Error(codes.Internal, "unable to encode status")
	}

	return result, nil
}

// StatusRequest builds the SetStatus request for a command.
func StatusRequest(cmd device.Command) *structpb.Struct {
	return &structpb.Struct{
		Fields: map[string]*structpb.Value{
			FieldStatus: structpb.NewStringValue(string(cmd)),
		},
	}
}

// ToStruct converts a snapshot to the GetStatus response.
func ToStruct(snapshot device.Snapshot) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		FieldNode:     snapshot.NodeID,
		FieldState:    snapshot.State.String(),
		FieldStatus:   string(snapshot.Actuator.Status()),
		FieldManual:   snapshot.Actuator.ManualMode,
		FieldHumidity: int(snapshot.Humidity),
	})
}

// actorFromContext returns the operator sent by the client, if any.
func actorFromContext(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}

	if values := md.Get(MetadataActor); len(values) > 0 {
		return values[0]
	}

	return ""
}
