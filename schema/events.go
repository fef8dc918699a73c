package schema

import "encoding/json"

// EventKind discriminates dispatched events.
type EventKind string

const (
	// EventMessage carries a decoded inbound session message.
	EventMessage EventKind = "message"
	// EventState carries a connection state transition.
	EventState EventKind = "state"
	// EventCapture carries a capture-progress notification from the local
	// scan capability provider.
	EventCapture EventKind = "capture"
)

// EventSource identifies where an event originated.
type EventSource string

const (
	// SourceChannel marks events originating from the control channel.
	SourceChannel EventSource = "channel"
	// SourceLocal marks events originating from the local capability
	// provider.
	SourceLocal EventSource = "local"
)

// CaptureEvent is one notification from the capability provider's event
// stream, keyed by event name with an opaque payload.
type CaptureEvent struct {
	Name    string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Event is the uniform unit delivered to subscribed handlers. Exactly one
// of Message, State, or Capture is populated, selected by Kind.
type Event struct {
	Kind    EventKind
	Source  EventSource
	Message Message
	State   ConnState
	// Reason annotates failed or reconnecting state transitions.
	Reason  string
	Capture *CaptureEvent
}

// Handler receives dispatched events. Handlers are invoked sequentially in
// arrival order; a panicking handler does not break delivery to others.
type Handler func(Event)
