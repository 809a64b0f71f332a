package device

const (
	// HumidityMin is the lower bound of the sensed value.
	HumidityMin = 0
	// HumidityMax is the upper bound of the sensed value.
	HumidityMax = 100
	// HumidityInitial is the value reported before the first update.
	HumidityInitial = 80

	// humidityCeiling stops the humidifier from pushing the value higher.
	humidityCeiling = 98
	// humidityFloor is the lowest value the room dries out to.
	humidityFloor = 5
	// humidityTarget is where both branches of the update settle.
	humidityTarget = 91
)

// Humidity is the simulated relative humidity in percent.
type Humidity int

// Next returns the value after one control tick.
// Both the active and the inactive branch settle on humidityTarget.
func (h Humidity) Next(active bool) Humidity {
	next := h

	switch {
	case active && h < humidityCeiling:
		next = humidityTarget
	case h >= humidityFloor:
		next = humidityTarget
	}

	return next.clamp()
}

func (h Humidity) clamp() Humidity {
	switch {
	case h < HumidityMin:
		return HumidityMin
	case h > HumidityMax:
		return HumidityMax
	default:
		return h
	}
}
