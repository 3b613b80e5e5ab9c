package wire

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Codec errors.
var (
	ErrInvalidMessage = errors.New("invalid message")
	ErrMissingType    = errors.New("message has no type discriminator")
)

// EncodeCommand serializes an outgoing command envelope.
func EncodeCommand(m CommandMessage) ([]byte, error) {
	if m.Command() == "" {
		return nil, fmt.Errorf("%w: command name is empty", ErrInvalidMessage)
	}
	if m.MessageID() == "" {
		return nil, fmt.Errorf("%w: messageId not assigned", ErrInvalidMessage)
	}
	return json.Marshal(m)
}

// DecodeIncoming classifies an inbound frame by its "type" discriminator and
// decodes it into the matching envelope. The returned value is one of
// *VersionMessage, *ResultMessage, *EventMessage or *UnknownMessage.
func DecodeIncoming(data []byte) (any, error) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}

	switch probe.Type {
	case TypeVersion:
		var msg VersionMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
		}
		return &msg, nil

	case TypeResult:
		var msg ResultMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
		}
		return &msg, nil

	case TypeEvent:
		var msg EventMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
		}
		return &msg, nil

	case "":
		return nil, ErrMissingType

	default:
		var fields map[string]any
		if err := json.Unmarshal(data, &fields); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
		}
		return &UnknownMessage{Type: probe.Type, Fields: fields}, nil
	}
}
