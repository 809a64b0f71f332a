package device

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestFormatStatus checks the exact wire shape.
func TestFormatStatus(t *testing.T) {
	t.Parallel()

	msg := FormatStatus(3, 91, true, "humiditySensor")
	require.Equal(t, `{"node": 3, "value": 91, "manual": 1, "sensorType": "humiditySensor"}`, string(msg))

	msg = FormatStatus(1, 80, false, "humiditySensor")
	require.Equal(t, `{"node": 1, "value": 80, "manual": 0, "sensorType": "humiditySensor"}`, string(msg))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(msg, &decoded))
	require.InDelta(t, 80, decoded["value"], 0)
}

// TestFormatStatus_Bounded ensures oversized sensor types are cut to fit.
func TestFormatStatus_Bounded(t *testing.T) {
	t.Parallel()

	for _, sensorType := range []string{
		strings.Repeat("h", 2*MaxStatusSize),
		strings.Repeat("\x01", MaxStatusSize),
		strings.Repeat("é", MaxStatusSize),
	} {
		msg := FormatStatus(1<<30, HumidityMax, true, sensorType)
		require.LessOrEqual(t, len(msg), MaxStatusSize)
		require.True(t, json.Valid(msg))
	}
}

// TestState_String checks names and the online predicate.
func TestState_String(t *testing.T) {
	t.Parallel()

	require.Equal(t, "INIT", StateInit.String())
	require.Equal(t, "SUBSCRIBED", StateSubscribed.String())
	require.Equal(t, "UNKNOWN", State(42).String())

	require.True(t, StateSubscribed.IsOnline())
	require.True(t, StateConnected.IsOnline())
	require.False(t, StateConnecting.IsOnline())
	require.False(t, StateDisconnected.IsOnline())
}
