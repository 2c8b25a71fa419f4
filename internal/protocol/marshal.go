package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnknownMessageType is returned by Decode when a frame's `type` field
// doesn't match any known message.
var ErrUnknownMessageType = errors.New("protocol: unknown message type")

// Marshal serializes a message to its JSON wire form. v must be one of the
// concrete message types in this package (passed by value or pointer).
func Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

// PeekType reads just enough of a frame to return its `type` field,
// without committing to decoding the rest of the payload.
func PeekType(data []byte) (string, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return "", fmt.Errorf("protocol: decode envelope: %w", err)
	}
	return env.Type, nil
}

// Decode reads a frame's envelope and unmarshals it into the concrete
// client -> server message type its `type` field names. The server's
// handshake uses it to decode the hello frame.
func Decode(data []byte) (any, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("protocol: decode envelope: %w", err)
	}

	switch env.Type {
	case TypeHello:
		var msg Hello
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, err
		}
		return msg, nil
	case TypeAction:
		var msg Action
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, err
		}
		return msg, nil
	default:
		return nil, ErrUnknownMessageType
	}
}
