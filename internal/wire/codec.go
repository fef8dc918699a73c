// Package wire encodes and decodes the session messages exchanged between
// the device and the operator console. Frames are single JSON objects with
// a "type" discriminant read first; decoding always returns a typed error
// for bad input so a corrupted frame never terminates the channel.
package wire

import (
	"encoding/json"
	"fmt"

	"pkt.systems/roomlink/schema"
)

// DecodeReason classifies a decode failure.
type DecodeReason string

const (
	// UnknownType means the frame carried an unrecognized discriminant.
	UnknownType DecodeReason = "unknown_type"
	// Malformed means the frame was not valid JSON or the payload did not
	// match the shape required by its discriminant.
	Malformed DecodeReason = "malformed"
)

// DecodeError reports a frame that could not be decoded.
type DecodeError struct {
	Reason DecodeReason
	// Type is the discriminant value when one could be read.
	Type string
	Err  error
}

func (e *DecodeError) Error() string {
	if e == nil {
		return "wire decode error"
	}
	if e.Type != "" {
		return fmt.Sprintf("wire: %s frame (type %q)", e.Reason, e.Type)
	}
	return fmt.Sprintf("wire: %s frame", e.Reason)
}

func (e *DecodeError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

type envelope struct {
	Type    schema.MessageType   `json:"type"`
	Role    string               `json:"role,omitempty"`
	Token   string               `json:"token,omitempty"`
	Action  schema.ControlAction `json:"action,omitempty"`
	Payload json.RawMessage      `json:"payload,omitempty"`
	Text    string               `json:"text,omitempty"`
}

// Encode serializes a message to its wire frame. Encoding is total over
// the defined variants.
func Encode(m schema.Message) ([]byte, error) {
	env := envelope{Type: m.MessageType()}
	switch v := m.(type) {
	case schema.Hello:
		env.Role = v.Role
		env.Token = v.Token
	case schema.Control:
		env.Action = v.Action
	case schema.RoomUpdate:
		env.Payload = v.Payload
	case schema.Instruction:
		env.Text = v.Text
	case schema.Status:
		env.Text = v.Text
	default:
		return nil, fmt.Errorf("wire: unsupported message %T", m)
	}
	return json.Marshal(env)
}

// Decode parses a wire frame into exactly one message variant. Failures
// are reported as *DecodeError, never as a panic.
func Decode(data []byte) (schema.Message, error) {
	var disc struct {
		Type schema.MessageType `json:"type"`
	}
	if err := json.Unmarshal(data, &disc); err != nil {
		return nil, &DecodeError{Reason: Malformed, Err: err}
	}
	switch disc.Type {
	case schema.MessageHello:
		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			return nil, &DecodeError{Reason: Malformed, Type: string(disc.Type), Err: err}
		}
		return schema.Hello{Role: env.Role, Token: env.Token}, nil
	case schema.MessageControl:
		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			return nil, &DecodeError{Reason: Malformed, Type: string(disc.Type), Err: err}
		}
		if env.Action != schema.ActionStart && env.Action != schema.ActionStop {
			return nil, &DecodeError{Reason: Malformed, Type: string(disc.Type), Err: fmt.Errorf("invalid action %q", env.Action)}
		}
		return schema.Control{Action: env.Action}, nil
	case schema.MessageRoomUpdate:
		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			return nil, &DecodeError{Reason: Malformed, Type: string(disc.Type), Err: err}
		}
		return schema.RoomUpdate{Payload: env.Payload}, nil
	case schema.MessageInstruction:
		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			return nil, &DecodeError{Reason: Malformed, Type: string(disc.Type), Err: err}
		}
		return schema.Instruction{Text: env.Text}, nil
	case schema.MessageStatus:
		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			return nil, &DecodeError{Reason: Malformed, Type: string(disc.Type), Err: err}
		}
		return schema.Status{Text: env.Text}, nil
	default:
		return nil, &DecodeError{Reason: UnknownType, Type: string(disc.Type)}
	}
}
