package client

import (
	"testing"

	"github.com/stretchr/testify/require"

	api "github.com/oshokin/wellness-node/internal/api/grpc/actuator"
	"github.com/oshokin/wellness-node/internal/domain/device"
)

// TestResolveNodeAddress covers override and listen address derivation.
func TestResolveNodeAddress(t *testing.T) {
	t.Parallel()

	cases := []struct {
		listen, override, want string
	}{
		{listen: ":5683", want: "localhost:5683"},
		{listen: "0.0.0.0:5683", want: "localhost:5683"},
		{listen: "[::]:5683", want: "localhost:5683"},
		{listen: "10.0.0.5:5683", want: "10.0.0.5:5683"},
		{listen: "[fd00::212:4b00]:5683", want: "[fd00::212:4b00]:5683"},
		{listen: ":5683", override: "node-2:7000", want: "node-2:7000"},
	}

	for _, tc := range cases {
		got, err := resolveNodeAddress(tc.listen, tc.override)
		require.NoError(t, err)
		require.Equal(t, tc.want, got)
	}

	_, err := resolveNodeAddress("nonsense", "")
	require.Error(t, err)
}

// TestFormatStatus renders the node snapshot.
func TestFormatStatus(t *testing.T) {
	t.Parallel()

	require.Equal(t, "<nil state>", formatStatus(nil))

	state, err := api.ToStruct(device.Snapshot{
		NodeID:   2,
		State:    device.StateSubscribed,
		Actuator: device.Actuator{Active: true, ManualMode: true},
		Humidity: 91,
	})
	require.NoError(t, err)

	require.Equal(t, "node 2 is ON (manual mode), humidity 91%, session SUBSCRIBED", formatStatus(state))
}
