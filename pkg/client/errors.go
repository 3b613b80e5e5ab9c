package client

import (
	"errors"
	"fmt"

	"github.com/zwavego/zwsclient/pkg/wire"
)

// Client errors.
var (
	ErrNotConnected     = errors.New("not connected")
	ErrAlreadyConnected = errors.New("already connected")
	ErrAlreadyListening = errors.New("already listening")
	ErrConnectionClosed = errors.New("connection closed")
)

// CannotConnectError wraps a failure to establish the websocket connection
// or to complete the version handshake.
type CannotConnectError struct {
	URL string
	Err error
}

func (e *CannotConnectError) Error() string {
	return fmt.Sprintf("cannot connect to %s: %v", e.URL, e.Err)
}

func (e *CannotConnectError) Unwrap() error { return e.Err }

// SchemaRequiredError is returned when a command requires a newer API
// schema than the one negotiated with the server. The command is never
// sent in this case.
type SchemaRequiredError struct {
	Required   int
	Negotiated int
}

func (e *SchemaRequiredError) Error() string {
	return fmt.Sprintf("command requires schema version %d, server negotiated %d", e.Required, e.Negotiated)
}

// FailedCommandError is a command the server rejected.
type FailedCommandError struct {
	MessageID string
	ErrorCode string
	Message   string
}

func (e *FailedCommandError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("command %s failed: %s (%s)", e.MessageID, e.Message, e.ErrorCode)
	}
	return fmt.Sprintf("command %s failed: %s", e.MessageID, e.ErrorCode)
}

// FailedZWaveCommandError is a command that failed inside the Z-Wave
// protocol layer, carrying the protocol's own error code.
type FailedZWaveCommandError struct {
	MessageID string
	Code      int
	Message   string
}

func (e *FailedZWaveCommandError) Error() string {
	return fmt.Sprintf("command %s failed with Z-Wave error %d: %s", e.MessageID, e.Code, e.Message)
}

// resultError converts a failed result frame into the matching error type.
func resultError(msg *wire.ResultMessage) error {
	if msg.ErrorCode == wire.ErrorCodeZWave {
		return &FailedZWaveCommandError{
			MessageID: msg.MessageID,
			Code:      msg.ZWaveErrorCode,
			Message:   msg.ZWaveErrorMessage,
		}
	}
	return &FailedCommandError{
		MessageID: msg.MessageID,
		ErrorCode: msg.ErrorCode,
		Message:   msg.Message,
	}
}
