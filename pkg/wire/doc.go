// Package wire defines the JSON message envelopes exchanged with a
// zwave-js-server instance and the codec that classifies inbound frames.
//
// The server speaks JSON over a WebSocket connection. Three inbound frame
// kinds exist, distinguished by a "type" discriminator:
//
//	{"type": "version", ...}  - exactly one, the first frame after connect
//	{"type": "result", ...}   - response to a command, correlated by messageId
//	{"type": "event", ...}    - unsolicited state-change notification
//
// Outgoing commands are JSON objects with "command" and "messageId" keys plus
// command-specific fields. Commands carry heterogeneous fields per command
// name, so the envelope is a plain map rather than a closed struct.
package wire
