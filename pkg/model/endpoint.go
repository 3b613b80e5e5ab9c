package model

import (
	"context"
	"fmt"

	"github.com/zwavego/zwsclient/pkg/event"
	"github.com/zwavego/zwsclient/pkg/wire"
)

// Endpoint is one addressable endpoint on a node. Index 0 is the root
// endpoint, which carries the node-wide capabilities.
type Endpoint struct {
	event.Emitter
	guarded

	sender CommandSender
	values map[string]*Value
}

// NewEndpoint builds an endpoint from its snapshot and the node values that
// belong to it.
func NewEndpoint(sender CommandSender, data map[string]any, values map[string]*Value) *Endpoint {
	e := &Endpoint{sender: sender, values: values}
	e.data = data
	return e
}

// NodeID returns the owning node's ID.
func (e *Endpoint) NodeID() int { return e.getInt("nodeId") }

// Index returns the endpoint index.
func (e *Endpoint) Index() int { return e.getInt("index") }

// Data returns a copy of the raw endpoint snapshot.
func (e *Endpoint) Data() map[string]any { return e.snapshot() }

// DeviceClass returns the endpoint's device class, or nil when unknown.
func (e *Endpoint) DeviceClass() *DeviceClass {
	return NewDeviceClass(e.getMap("deviceClass"))
}

func (e *Endpoint) InstallerIcon() (int, bool) { return e.getIntOK("installerIcon") }
func (e *Endpoint) UserIcon() (int, bool)      { return e.getIntOK("userIcon") }

// CommandClasses returns the command classes implemented on this endpoint.
func (e *Endpoint) CommandClasses() []map[string]any {
	e.dataMu.RLock()
	defer e.dataMu.RUnlock()
	raw := getSlice(e.data, "commandClasses")
	out := make([]map[string]any, 0, len(raw))
	for _, cc := range raw {
		if m, ok := cc.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

// Values returns the node values scoped to this endpoint, keyed by value ID.
func (e *Endpoint) Values() map[string]*Value {
	e.dataMu.RLock()
	defer e.dataMu.RUnlock()
	out := make(map[string]*Value, len(e.values))
	for id, v := range e.values {
		out[id] = v
	}
	return out
}

// update replaces the endpoint snapshot and its value view.
func (e *Endpoint) update(data map[string]any, values map[string]*Value) {
	e.dataMu.Lock()
	defer e.dataMu.Unlock()
	e.data = data
	e.values = values
}

// detach severs the client link after the owning node left the network.
func (e *Endpoint) detach() {
	e.dataMu.Lock()
	defer e.dataMu.Unlock()
	e.sender = nil
}

func (e *Endpoint) sendCommand(ctx context.Context, name string, params map[string]any, requireSchema int) (map[string]any, error) {
	e.dataMu.RLock()
	sender := e.sender
	e.dataMu.RUnlock()
	if sender == nil {
		return nil, fmt.Errorf("endpoint %d on node %d: %w", e.Index(), e.NodeID(), ErrNodeRemoved)
	}

	cmd := wire.NewCommand("endpoint."+name).
		With("nodeId", e.NodeID()).
		With("endpoint", e.Index())
	for k, v := range params {
		cmd.With(k, v)
	}
	return sender.SendCommand(ctx, cmd, requireSchema)
}

// InvokeCCAPI invokes a command class API method on this endpoint and
// returns the raw response.
func (e *Endpoint) InvokeCCAPI(ctx context.Context, commandClass int, methodName string, args ...any) (any, error) {
	if args == nil {
		args = []any{}
	}
	data, err := e.sendCommand(ctx, "invoke_cc_api", map[string]any{
		"commandClass": commandClass,
		"methodName":   methodName,
		"args":         args,
	}, 7)
	if err != nil {
		return nil, err
	}
	return data["response"], nil
}

// SupportsCCAPI reports whether the command class API is supported on this
// endpoint.
func (e *Endpoint) SupportsCCAPI(ctx context.Context, commandClass int) (bool, error) {
	data, err := e.sendCommand(ctx, "supports_cc_api", map[string]any{
		"commandClass": commandClass,
	}, 7)
	if err != nil {
		return false, err
	}
	return getBool(data, "supported"), nil
}

// SupportsCC reports whether the endpoint supports the command class.
func (e *Endpoint) SupportsCC(ctx context.Context, commandClass int) (bool, error) {
	data, err := e.sendCommand(ctx, "supports_cc", map[string]any{
		"commandClass": commandClass,
	}, 23)
	if err != nil {
		return false, err
	}
	return getBool(data, "supported"), nil
}

// ControlsCC reports whether the endpoint controls the command class.
func (e *Endpoint) ControlsCC(ctx context.Context, commandClass int) (bool, error) {
	data, err := e.sendCommand(ctx, "controls_cc", map[string]any{
		"commandClass": commandClass,
	}, 23)
	if err != nil {
		return false, err
	}
	return getBool(data, "controlled"), nil
}
