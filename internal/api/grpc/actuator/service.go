package actuator

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "wellness.v1.ActuatorService"

// Full method names used by clients and interceptors.
const (
	SetStatusMethod = "/" + ServiceName + "/SetStatus"
	GetStatusMethod = "/" + ServiceName + "/GetStatus"
)

// ActuatorServiceServer is the server API of the actuator service.
type ActuatorServiceServer interface {
	SetStatus(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error)
	GetStatus(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
}

// ServiceDesc describes the actuator service for grpc.Server registration.
//
//nolint:gochecknoglobals // grpc.ServiceRegistrar takes the descriptor by pointer.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ActuatorServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "SetStatus", Handler: setStatusHandler},
		{MethodName: "GetStatus", Handler: getStatusHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "wellness/v1/actuator.proto",
}

// RegisterActuatorServiceServer registers srv on the gRPC registrar.
func RegisterActuatorServiceServer(registrar grpc.ServiceRegistrar, srv ActuatorServiceServer) {
	registrar.RegisterService(&ServiceDesc, srv)
}

//nolint:revive // Signature is dictated by grpc.MethodDesc.
func setStatusHandler(
	srv any,
	ctx context.Context,
	dec func(any) error,
	interceptor grpc.UnaryServerInterceptor,
) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}

	server, _ := srv.(ActuatorServiceServer)
	if interceptor == nil {
		return server.SetStatus(ctx, in)
	}

	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: SetStatusMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		request, _ := req.(*structpb.Struct)
		return server.SetStatus(ctx, request)
	}

	return interceptor(ctx, in, info, handler)
}

//nolint:revive // Signature is dictated by grpc.MethodDesc.
func getStatusHandler(
	srv any,
	ctx context.Context,
	dec func(any) error,
	interceptor grpc.UnaryServerInterceptor,
) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}

	server, _ := srv.(ActuatorServiceServer)
	if interceptor == nil {
		return server.GetStatus(ctx, in)
	}

	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: GetStatusMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		request, _ := req.(*emptypb.Empty)
		return server.GetStatus(ctx, request)
	}

	return interceptor(ctx, in, info, handler)
}

// ActuatorServiceClient calls the actuator service over a client connection.
type ActuatorServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewActuatorServiceClient wraps a client connection.
func NewActuatorServiceClient(cc grpc.ClientConnInterface) *ActuatorServiceClient {
	return &ActuatorServiceClient{cc: cc}
}

// SetStatus switches the remote actuator.
func (c *ActuatorServiceClient) SetStatus(
	ctx context.Context,
	in *structpb.Struct,
	opts ...grpc.CallOption,
) (*emptypb.Empty, error) {
	out := new(emptypb.Empty)
	if err := c.cc.Invoke(ctx, SetStatusMethod, in, out, opts...); err != nil {
		return nil, err
	}

	return out, nil
}

// GetStatus reads the remote node snapshot.
func (c *ActuatorServiceClient) GetStatus(
	ctx context.Context,
	in *emptypb.Empty,
	opts ...grpc.CallOption,
) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, GetStatusMethod, in, out, opts...); err != nil {
		return nil, err
	}

	return out, nil
}
