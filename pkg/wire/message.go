package wire

import (
	"encoding/json"
)

// Message type discriminator values.
const (
	TypeVersion = "version"
	TypeResult  = "result"
	TypeEvent   = "event"
)

// Event source values.
const (
	SourceController = "controller"
	SourceDriver     = "driver"
	SourceNode       = "node"
)

// VersionMessage is the handshake frame the server sends immediately after
// the connection is established. It announces the schema window the server
// can speak.
type VersionMessage struct {
	DriverVersion    string `json:"driverVersion"`
	ServerVersion    string `json:"serverVersion"`
	HomeID           int64  `json:"homeId"`
	MinSchemaVersion int    `json:"minSchemaVersion"`
	MaxSchemaVersion int    `json:"maxSchemaVersion"`
}

// ResultMessage is the server's response to a single command, correlated by
// MessageID. On failure ErrorCode is set; when ErrorCode is "zwave_error"
// the ZWave-specific code and message carry the device-level failure.
type ResultMessage struct {
	MessageID         string          `json:"messageId"`
	Success           bool            `json:"success"`
	Result            json.RawMessage `json:"result,omitempty"`
	ErrorCode         string          `json:"errorCode,omitempty"`
	Message           string          `json:"message,omitempty"`
	ZWaveErrorCode    int             `json:"zwaveErrorCode,omitempty"`
	ZWaveErrorMessage string          `json:"zwaveErrorMessage,omitempty"`
}

// ZWaveErrorCode value signalling a device-level failure.
const ErrorCodeZWave = "zwave_error"

// EventMessage wraps a single event notification.
type EventMessage struct {
	Event EventPayload `json:"event"`
}

// EventPayload is the body of an event frame. Source and Event identify the
// handler; Fields retains the complete raw event object so handlers can pull
// event-specific keys without the codec having to know every event shape.
type EventPayload struct {
	Source string
	Event  string
	Fields map[string]any
}

// UnmarshalJSON decodes the event body, keeping all fields.
func (p *EventPayload) UnmarshalJSON(data []byte) error {
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	p.Fields = fields
	p.Source, _ = fields["source"].(string)
	p.Event, _ = fields["event"].(string)
	return nil
}

// MarshalJSON encodes the raw field map.
func (p EventPayload) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Fields)
}

// CommandMessage is an outgoing command envelope. The correlator fills in
// "messageId" before transmission.
type CommandMessage map[string]any

// NewCommand builds a command envelope for the given command name.
func NewCommand(command string) CommandMessage {
	return CommandMessage{"command": command}
}

// Command returns the command name.
func (m CommandMessage) Command() string {
	name, _ := m["command"].(string)
	return name
}

// MessageID returns the assigned message identifier, or "" if unset.
func (m CommandMessage) MessageID() string {
	id, _ := m["messageId"].(string)
	return id
}

// SetMessageID assigns the message identifier.
func (m CommandMessage) SetMessageID(id string) {
	m["messageId"] = id
}

// With sets a command field and returns the envelope for chaining.
func (m CommandMessage) With(key string, value any) CommandMessage {
	m[key] = value
	return m
}

// UnknownMessage is returned by DecodeIncoming for frames whose "type"
// discriminator is valid JSON but not one of the known kinds. Callers log
// and drop these for forward compatibility.
type UnknownMessage struct {
	Type   string
	Fields map[string]any
}
