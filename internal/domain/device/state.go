package device

// State is the connectivity/session state of the node.
type State uint8

const (
	// StateInit waits for network connectivity.
	StateInit State = iota
	// StateNetworkReady has connectivity and is about to connect to the broker.
	StateNetworkReady
	// StateConnecting has issued a connect request.
	StateConnecting
	// StateConnected was confirmed by the transport.
	StateConnected
	// StateSubscribed has issued the control topic subscription.
	StateSubscribed
	// StateDisconnected was reported by the transport and is reset on the next tick.
	StateDisconnected
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateNetworkReady:
		return "NET_OK"
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	case StateSubscribed:
		return "SUBSCRIBED"
	case StateDisconnected:
		return "DISCONNECTED"
	default:
		return "UNKNOWN"
	}
}

// IsOnline reports whether status messages are published in this state.
func (s State) IsOnline() bool {
	return s == StateSubscribed || s == StateConnected
}
