package model

import (
	"context"

	"github.com/zwavego/zwsclient/pkg/wire"
)

// CommandSender sends commands to the server on behalf of graph entities.
// It is implemented by client.Client; expressing the back-reference as an
// interface keeps the graph packages free of a dependency on the session.
//
// requireSchema gates the command on the negotiated schema version; 0 means
// no requirement.
type CommandSender interface {
	SendCommand(ctx context.Context, cmd wire.CommandMessage, requireSchema int) (map[string]any, error)
	SendCommandNoWait(ctx context.Context, cmd wire.CommandMessage, requireSchema int) error
	SchemaVersion() int
}

// WaitMode selects how a node-scoped command waits for its result.
type WaitMode int

const (
	// WaitAuto waits for the result unless the node is asleep, and gives up
	// waiting if the node transitions to asleep or dead first.
	WaitAuto WaitMode = iota

	// WaitAlways blocks until the server responds.
	WaitAlways

	// WaitNever fires the command without registering for a result.
	WaitNever
)

func (m WaitMode) String() string {
	switch m {
	case WaitAuto:
		return "auto"
	case WaitAlways:
		return "always"
	case WaitNever:
		return "never"
	default:
		return "unknown"
	}
}
