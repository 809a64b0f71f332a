package device

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestHumidity_Next pins the update rule, including the shared target.
func TestHumidity_Next(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		from   Humidity
		active bool
		want   Humidity
	}{
		{"active below ceiling", 80, true, humidityTarget},
		{"active at ceiling", 98, true, humidityTarget},
		{"inactive above floor", 80, false, humidityTarget},
		{"inactive at floor", 5, false, humidityTarget},
		{"inactive below floor", 4, false, 4},
		{"active below floor", 2, true, humidityTarget},
		{"above range settles on target", 140, false, humidityTarget},
		{"negative is clamped", -7, false, HumidityMin},
	}

	for _, tc := range cases {
		require.Equal(t, tc.want, tc.from.Next(tc.active), tc.name)
	}
}

// TestHumidity_StaysInBounds runs random tick/toggle sequences.
func TestHumidity_StaysInBounds(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewPCG(1, 2))

	for range 100 {
		h := Humidity(rng.IntN(HumidityMax + 1))

		var a Actuator

		for range 200 {
			if rng.IntN(3) == 0 {
				a.ToggleManual()
			}

			h = h.Next(a.Active)
			require.GreaterOrEqual(t, h, Humidity(HumidityMin))
			require.LessOrEqual(t, h, Humidity(HumidityMax))
		}
	}
}
