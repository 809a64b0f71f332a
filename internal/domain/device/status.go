package device

import (
	"encoding/json"
	"strconv"
	"unicode/utf8"
)

// MaxStatusSize is the capacity of the outbound message buffer.
const MaxStatusSize = 512

// StatusMessage is one serialized status report.
type StatusMessage []byte

// FormatStatus renders the status report sent to the collector:
//
//	{"node": 1, "value": 91, "manual": 0, "sensorType": "humiditySensor"}
//
// Field order is fixed. The result never exceeds MaxStatusSize; an
// oversized sensor type is shortened rune by rune until it fits.
func FormatStatus(nodeID int, value Humidity, manual bool, sensorType string) StatusMessage {
	buf := make([]byte, 0, 64+len(sensorType))
	buf = append(buf, `{"node": `...)
	buf = strconv.AppendInt(buf, int64(nodeID), 10)
	buf = append(buf, `, "value": `...)
	buf = strconv.AppendInt(buf, int64(value), 10)
	buf = append(buf, `, "manual": `...)
	buf = strconv.AppendInt(buf, int64(boolToInt(manual)), 10)
	buf = append(buf, `, "sensorType": `...)

	quoted := quote(sensorType)
	for len(buf)+len(quoted)+1 > MaxStatusSize {
		_, size := utf8.DecodeLastRuneInString(sensorType)
		sensorType = sensorType[:len(sensorType)-size]
		quoted = quote(sensorType)
	}

	buf = append(buf, quoted...)
	buf = append(buf, '}')

	return buf
}

// Snapshot is an immutable view of the node used by read-only endpoints.
type Snapshot struct {
	NodeID   int
	State    State
	Actuator Actuator
	Humidity Humidity
}

func quote(s string) []byte {
	// Marshalling a string cannot fail.
	quoted, _ := json.Marshal(s)

	return quoted
}

func boolToInt(b bool) int {
	if b {
		return 1
	}

	return 0
}
