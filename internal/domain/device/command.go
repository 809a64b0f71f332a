package device

import (
	"errors"
	"fmt"
)

// Command is a validated remote ON/OFF command.
type Command string

const (
	// CommandOn switches the humidifier on.
	CommandOn Command = "ON"
	// CommandOff switches the humidifier off.
	CommandOff Command = "OFF"

	// maxCommandLength bounds the raw payload; "OFF" is the longest command.
	maxCommandLength = 3
)

// ErrBadRequest is returned for payloads that are not exactly ON or OFF.
var ErrBadRequest = errors.New("bad request")

// ParseCommand validates a raw payload. Matching is exact and case-sensitive.
func ParseCommand(raw []byte) (Command, error) {
	if len(raw) == 0 || len(raw) > maxCommandLength {
		return "", fmt.Errorf("payload length %d: %w", len(raw), ErrBadRequest)
	}

	switch cmd := Command(raw); cmd {
	case CommandOn, CommandOff:
		return cmd, nil
	default:
		return "", fmt.Errorf("unknown command %q: %w", string(raw), ErrBadRequest)
	}
}
