package schema

// Credentials carries the token and console host obtained during pairing.
// Immutable once established; consumed exactly once to open a control
// channel and never persisted.
type Credentials struct {
	Token string
	Host  string
}

// RoleDevice is the role announced in the hello frame.
const RoleDevice = "device"

// ConnState is the connection state of a control channel.
type ConnState string

const (
	// StateDisconnected is the initial state and the terminal state after
	// a caller-initiated disconnect.
	StateDisconnected ConnState = "disconnected"
	// StateConnecting means a transport connection attempt is in flight.
	StateConnecting ConnState = "connecting"
	// StateConnected means the transport is up and the hello handshake
	// has been sent.
	StateConnected ConnState = "connected"
	// StateReconnecting means the transport dropped unexpectedly and a
	// re-attempt is pending.
	StateReconnecting ConnState = "reconnecting"
	// StateFailed means the attempt ended without a connection; terminal
	// when reached via handshake rejection.
	StateFailed ConnState = "failed"
)
