package actuator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/wellness-node/internal/domain/device"
)

var errTestLoop = errors.New("test loop error")

// fakeService implements the actuator Service interface for unit testing the transport.
type fakeService struct {
	// applyErr, when set, is returned by ApplyCommand.
	applyErr error
	// snapshot is the node view returned by Snapshot.
	snapshot device.Snapshot
}

// ApplyCommand parses the payload like the node does and records the result.
func (f *fakeService) ApplyCommand(_ context.Context, raw []byte) error {
	if f.applyErr != nil {
		return f.applyErr
	}

	cmd, err := device.ParseCommand(raw)
	if err != nil {
		return err
	}

	f.snapshot.Actuator.Apply(cmd)

	return nil
}

// Snapshot returns the stored snapshot.
func (f *fakeService) Snapshot() device.Snapshot { return f.snapshot }

// TestServer_SetStatus_Validation ensures malformed requests return InvalidArgument.
func TestServer_SetStatus_Validation(t *testing.T) {
	t.Parallel()

	s := NewServer(new(fakeService))
	ctx := context.Background()

	_, err := s.SetStatus(ctx, nil)
	require.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = s.SetStatus(ctx, new(structpb.Struct))
	require.Equal(t, codes.InvalidArgument, status.Code(err))

	numeric := &structpb.Struct{Fields: map[string]*structpb.Value{FieldStatus: structpb.NewNumberValue(1)}}
	_, err = s.SetStatus(ctx, numeric)
	require.Equal(t, codes.InvalidArgument, status.Code(err))

	for _, raw := range []string{"on", "", "0123456789", "ONN"} {
		req := &structpb.Struct{Fields: map[string]*structpb.Value{FieldStatus: structpb.NewStringValue(raw)}}

		_, err = s.SetStatus(ctx, req)
		require.Equal(t, codes.InvalidArgument, status.Code(err), raw)
	}
}

// TestServer_SetStatus_Errors maps loop failures to gRPC codes.
func TestServer_SetStatus_Errors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	_, err := NewServer(&fakeService{applyErr: errTestLoop}).SetStatus(ctx, StatusRequest(device.CommandOn))
	require.Equal(t, codes.Unavailable, status.Code(err))

	_, err = NewServer(&fakeService{applyErr: context.DeadlineExceeded}).SetStatus(ctx, StatusRequest(device.CommandOn))
	require.Equal(t, codes.DeadlineExceeded, status.Code(err))
}

// TestServer_Roundtrip exercises SetStatus and GetStatus on the server implementation.
func TestServer_Roundtrip(t *testing.T) {
	t.Parallel()

	svc := &fakeService{snapshot: device.Snapshot{
		NodeID:   2,
		State:    device.StateSubscribed,
		Humidity: 91,
	}}
	s := NewServer(svc)

	_, err := s.SetStatus(context.Background(), StatusRequest(device.CommandOn))
	require.NoError(t, err)

	response, err := s.GetStatus(context.Background(), new(emptypb.Empty))
	require.NoError(t, err)

	fields := response.GetFields()
	require.Equal(t, "ON", fields[FieldStatus].GetStringValue())
	require.Equal(t, "SUBSCRIBED", fields[FieldState].GetStringValue())
	require.InDelta(t, 2, fields[FieldNode].GetNumberValue(), 0)
	require.InDelta(t, 91, fields[FieldHumidity].GetNumberValue(), 0)
	require.False(t, fields[FieldManual].GetBoolValue())

	_, err = s.SetStatus(context.Background(), StatusRequest(device.CommandOff))
	require.NoError(t, err)
	require.False(t, svc.snapshot.Actuator.Active)
}

// TestActorFromContext reads the operator from incoming metadata.
func TestActorFromContext(t *testing.T) {
	t.Parallel()

	require.Empty(t, actorFromContext(context.Background()))

	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(MetadataActor, "o.shokin@bathroom"))
	require.Equal(t, "o.shokin@bathroom", actorFromContext(ctx))
}
