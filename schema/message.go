package schema

import "encoding/json"

// MessageType is the wire discriminant of a session message.
type MessageType string

const (
	// MessageHello announces the device after transport establishment.
	MessageHello MessageType = "hello"
	// MessageControl instructs the device to start or stop a scan.
	MessageControl MessageType = "control"
	// MessageRoomUpdate carries periodic capture progress.
	MessageRoomUpdate MessageType = "room_update"
	// MessageInstruction carries human-readable guidance for the operator.
	MessageInstruction MessageType = "instruction"
	// MessageStatus carries a free-text status line.
	MessageStatus MessageType = "status"
)

// ControlAction is the action requested by a control message.
type ControlAction string

const (
	// ActionStart begins a scan.
	ActionStart ControlAction = "start"
	// ActionStop ends a scan.
	ActionStop ControlAction = "stop"
)

// Message is one variant of the session wire taxonomy.
type Message interface {
	MessageType() MessageType
}

// Hello is sent once by the device immediately after transport establishment.
type Hello struct {
	Role  string `json:"role"`
	Token string `json:"token"`
}

// MessageType implements Message.
func (Hello) MessageType() MessageType { return MessageHello }

// Control instructs the device to begin or end a scan.
type Control struct {
	Action ControlAction `json:"action"`
}

// MessageType implements Message.
func (Control) MessageType() MessageType { return MessageControl }

// RoomUpdate carries capture progress. The payload shape is owned by the
// capability provider and forwarded verbatim.
type RoomUpdate struct {
	Payload json.RawMessage `json:"payload"`
}

// MessageType implements Message.
func (RoomUpdate) MessageType() MessageType { return MessageRoomUpdate }

// Instruction carries guidance to surface to the operator.
type Instruction struct {
	Text string `json:"text"`
}

// MessageType implements Message.
func (Instruction) MessageType() MessageType { return MessageInstruction }

// Status carries a free-text status line.
type Status struct {
	Text string `json:"text"`
}

// MessageType implements Message.
func (Status) MessageType() MessageType { return MessageStatus }
