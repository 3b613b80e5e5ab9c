package model

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/zwavego/zwsclient/pkg/event"
	"github.com/zwavego/zwsclient/pkg/wire"
)

// NodeStatus is the liveness state the driver tracks for a node.
type NodeStatus int

const (
	NodeStatusUnknown NodeStatus = iota
	NodeStatusAsleep
	NodeStatusAwake
	NodeStatusDead
	NodeStatusAlive
)

func (s NodeStatus) String() string {
	switch s {
	case NodeStatusUnknown:
		return "unknown"
	case NodeStatusAsleep:
		return "asleep"
	case NodeStatusAwake:
		return "awake"
	case NodeStatusDead:
		return "dead"
	case NodeStatusAlive:
		return "alive"
	default:
		return fmt.Sprintf("NodeStatus(%d)", int(s))
	}
}

// Interview stage markers the server reports in interviewStage.
const (
	InterviewStageNotInterviewed = "None"
	InterviewStageFailed         = "Failed"
)

// statusSignal is a resettable broadcast: Set closes the current channel,
// Clear arms a fresh one. Node-scoped commands race their result against it
// so a node falling asleep or dying releases the waiter.
type statusSignal struct {
	mu  sync.Mutex
	ch  chan struct{}
	set bool
}

func newStatusSignal() *statusSignal {
	return &statusSignal{ch: make(chan struct{})}
}

func (s *statusSignal) Set() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.set {
		s.set = true
		close(s.ch)
	}
}

func (s *statusSignal) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.set {
		s.set = false
		s.ch = make(chan struct{})
	}
}

func (s *statusSignal) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ch
}

// Node mirrors a single Z-Wave node. Instances are created from the initial
// state dump or a node-added event and mutated in place by subsequent
// events, so references held by subscribers stay valid. The node lock guards
// the snapshot and the child collections; it is held for mutations and
// released before events are emitted.
type Node struct {
	event.Emitter
	guarded

	sender CommandSender
	logger *slog.Logger

	values           map[string]*Value
	endpoints        map[int]*Endpoint
	deviceClass      *DeviceClass
	deviceConfig     *DeviceConfig
	statistics       *NodeStatistics
	firmwareProgress *FirmwareUpdateProgress

	statusSig         *statusSignal
	statusWaitTimeout time.Duration
}

// NewNode builds a node from its state snapshot. statusWaitTimeout bounds
// how long automatic-wait commands block on a silent node; 0 means no bound.
func NewNode(sender CommandSender, logger *slog.Logger, data map[string]any, statusWaitTimeout time.Duration) *Node {
	if logger == nil {
		logger = slog.Default()
	}
	n := &Node{
		sender:            sender,
		logger:            logger.With("node", getInt(data, "nodeId")),
		values:            make(map[string]*Value),
		endpoints:         make(map[int]*Endpoint),
		statusSig:         newStatusSignal(),
		statusWaitTimeout: statusWaitTimeout,
	}
	n.Update(data)
	return n
}

// NodeID returns the node's network ID.
func (n *Node) NodeID() int { return n.getInt("nodeId") }

// Data returns a copy of the raw node snapshot.
func (n *Node) Data() map[string]any { return n.snapshot() }

// Status returns the node's liveness state.
func (n *Node) Status() NodeStatus { return NodeStatus(n.getInt("status")) }

// Ready reports whether the node finished its interview and is operational.
func (n *Node) Ready() bool { return n.getBool("ready") }

// InterviewStage returns the raw interview stage marker, or ok=false when
// the server has not reported one.
func (n *Node) InterviewStage() (string, bool) { return n.getStringOK("interviewStage") }

// InInterview reports whether the interview is currently running.
func (n *Node) InInterview() bool {
	stage, _ := n.InterviewStage()
	return !n.Ready() && !n.AwaitingManualInterview() && stage != InterviewStageFailed
}

// AwaitingManualInterview reports whether the node has never been
// interviewed and needs one to be started manually.
func (n *Node) AwaitingManualInterview() bool {
	stage, ok := n.InterviewStage()
	return !ok || stage == InterviewStageNotInterviewed
}

func (n *Node) IsListening() bool      { return n.getBool("isListening") }
func (n *Node) IsRouting() bool        { return n.getBool("isRouting") }
func (n *Node) IsSecure() (bool, bool) { return n.getBoolOK("isSecure") }
func (n *Node) IsControllerNode() bool { return n.getBool("isControllerNode") }
func (n *Node) KeepAwake() bool        { return n.getBool("keepAwake") }

func (n *Node) ManufacturerID() (int, bool) { return n.getIntOK("manufacturerId") }
func (n *Node) ProductID() (int, bool)      { return n.getIntOK("productId") }
func (n *Node) ProductType() (int, bool)    { return n.getIntOK("productType") }
func (n *Node) FirmwareVersion() string     { return n.getString("firmwareVersion") }

func (n *Node) Name() string              { return n.getString("name") }
func (n *Node) Location() string          { return n.getString("location") }
func (n *Node) Label() string             { return n.getString("label") }
func (n *Node) DeviceDatabaseURL() string { return n.getString("deviceDatabaseUrl") }

// HighestSecurityClass returns the node's highest granted security class;
// ok is false when not yet known.
func (n *Node) HighestSecurityClass() (int, bool) {
	return n.getIntOK("highestSecurityClass")
}

// DeviceClass returns the node's device class, or nil when unknown.
func (n *Node) DeviceClass() *DeviceClass {
	n.dataMu.RLock()
	defer n.dataMu.RUnlock()
	return n.deviceClass
}

// DeviceConfig returns the node's device database entry.
func (n *Node) DeviceConfig() *DeviceConfig {
	n.dataMu.RLock()
	defer n.dataMu.RUnlock()
	return n.deviceConfig
}

// Statistics returns the most recent statistics snapshot.
func (n *Node) Statistics() *NodeStatistics {
	n.dataMu.RLock()
	defer n.dataMu.RUnlock()
	return n.statistics
}

// FirmwareUpdateProgress returns the in-flight firmware update, or nil.
func (n *Node) FirmwareUpdateProgress() *FirmwareUpdateProgress {
	n.dataMu.RLock()
	defer n.dataMu.RUnlock()
	return n.firmwareProgress
}

// Values returns the values on the node, keyed by value ID.
func (n *Node) Values() map[string]*Value {
	n.dataMu.RLock()
	defer n.dataMu.RUnlock()
	out := make(map[string]*Value, len(n.values))
	for id, v := range n.values {
		out[id] = v
	}
	return out
}

// Value returns the value with the given ID, or nil.
func (n *Node) Value(id string) *Value {
	n.dataMu.RLock()
	defer n.dataMu.RUnlock()
	return n.values[id]
}

// Endpoints returns the node's endpoints, keyed by index.
func (n *Node) Endpoints() map[int]*Endpoint {
	n.dataMu.RLock()
	defer n.dataMu.RUnlock()
	out := make(map[int]*Endpoint, len(n.endpoints))
	for index, ep := range n.endpoints {
		out[index] = ep
	}
	return out
}

// Endpoint returns the endpoint at the given index, or nil.
func (n *Node) Endpoint(index int) *Endpoint {
	n.dataMu.RLock()
	defer n.dataMu.RUnlock()
	return n.endpoints[index]
}

// CommandClassValues returns the values of one command class, optionally
// narrowed to a single endpoint (pass a negative endpoint for all).
func (n *Node) CommandClassValues(commandClass int, endpoint int) map[string]*Value {
	out := make(map[string]*Value)
	for id, v := range n.Values() {
		if v.CommandClass() != commandClass {
			continue
		}
		if endpoint >= 0 && v.Endpoint() != endpoint {
			continue
		}
		out[id] = v
	}
	return out
}

// ConfigurationValues returns the node's configuration parameters.
func (n *Node) ConfigurationValues() map[string]*ConfigurationValue {
	out := make(map[string]*ConfigurationValue)
	for id, v := range n.CommandClassValues(CommandClassConfiguration, -1) {
		out[id] = &ConfigurationValue{Value: v}
	}
	return out
}

// commandSender returns the client link, or nil once the node has been
// removed from the network.
func (n *Node) commandSender() CommandSender {
	n.dataMu.RLock()
	defer n.dataMu.RUnlock()
	return n.sender
}

// detach severs the client link after the node left the network. Commands
// on the node and its endpoints fail with ErrNodeRemoved afterwards.
func (n *Node) detach() {
	n.dataMu.Lock()
	n.sender = nil
	endpoints := make([]*Endpoint, 0, len(n.endpoints))
	for _, ep := range n.endpoints {
		endpoints = append(endpoints, ep)
	}
	n.dataMu.Unlock()

	for _, ep := range endpoints {
		ep.detach()
	}
}

// Update replaces the node's state from a full snapshot, reconciling the
// value and endpoint collections in place so existing instances keep their
// identity.
func (n *Node) Update(data map[string]any) {
	n.dataMu.Lock()
	defer n.dataMu.Unlock()

	n.data = data
	n.deviceClass = NewDeviceClass(getMap(data, "deviceClass"))
	n.deviceConfig = NewDeviceConfig(getMap(data, "deviceConfig"))
	n.statistics = NewNodeStatistics(getMap(data, "statistics"))

	nodeID := getInt(data, "nodeId")

	values := getSlice(data, "values")
	delete(data, "values")
	n.updateValues(nodeID, values)

	endpoints := getSlice(data, "endpoints")
	delete(data, "endpoints")
	n.updateEndpoints(endpoints)
}

// updateValues reconciles the value collection. Callers hold the node lock.
func (n *Node) updateValues(nodeID int, raw []any) {
	fresh := make(map[string]map[string]any, len(raw))
	for _, entry := range raw {
		valData, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		fresh[valueIDFromData(nodeID, valData)] = valData
	}

	for id := range n.values {
		if _, ok := fresh[id]; !ok {
			delete(n.values, id)
		}
	}

	for id, valData := range fresh {
		if existing, ok := n.values[id]; ok {
			if err := existing.update(valData); err != nil {
				n.logger.Warn("dropping unparseable value", "valueId", id, "error", err)
				delete(n.values, id)
			}
			continue
		}
		value, err := NewValue(nodeID, valData)
		if err != nil {
			n.logger.Warn("skipping unparseable value", "valueId", id, "error", err)
			continue
		}
		n.values[id] = value
	}
}

// updateEndpoints reconciles the endpoint collection. Callers hold the node
// lock.
func (n *Node) updateEndpoints(raw []any) {
	fresh := make(map[int]map[string]any, len(raw))
	for _, entry := range raw {
		epData, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		fresh[getInt(epData, "index")] = epData
	}

	for index := range n.endpoints {
		if _, ok := fresh[index]; !ok {
			delete(n.endpoints, index)
		}
	}

	for index, epData := range fresh {
		values := n.endpointValues(index)
		if existing, ok := n.endpoints[index]; ok {
			existing.update(epData, values)
			continue
		}
		n.endpoints[index] = NewEndpoint(n.sender, epData, values)
	}
}

func (n *Node) endpointValues(index int) map[string]*Value {
	out := make(map[string]*Value)
	for id, v := range n.values {
		if v.Endpoint() == index {
			out[id] = v
		}
	}
	return out
}

// ReceiveEvent applies a node event to the local state, annotates the event
// with derived objects, and emits it to subscribers.
func (n *Node) ReceiveEvent(ev *event.Event) {
	n.handleEvent(ev)
	ev.Data["node"] = n
	n.Emit(*ev)
}

func (n *Node) handleEvent(ev *event.Event) {
	switch ev.Type {
	case "wake up":
		n.statusSig.Clear()
		n.set("status", float64(NodeStatusAwake))
	case "sleep":
		n.statusSig.Set()
		n.set("status", float64(NodeStatusAsleep))
	case "dead":
		n.statusSig.Set()
		n.set("status", float64(NodeStatusDead))
	case "alive":
		n.statusSig.Clear()
		n.set("status", float64(NodeStatusAlive))
	case "interview started":
		n.set("ready", false)
		n.unset("interviewStage")
	case "interview stage completed":
		n.set("interviewStage", getString(ev.Data, "stageName"))
	case "interview failed":
		n.set("interviewStage", InterviewStageFailed)
	case "interview completed":
		n.set("ready", true)
	case "ready":
		if state := getMap(ev.Data, "nodeState"); state != nil {
			n.Update(state)
		}
	case "value added", "value updated", "metadata updated":
		n.handleValueUpdated(ev)
	case "value removed":
		n.dataMu.Lock()
		id := valueIDFromData(getInt(n.data, "nodeId"), getMap(ev.Data, "args"))
		if value, ok := n.values[id]; ok {
			ev.Data["value"] = value
			delete(n.values, id)
		}
		n.dataMu.Unlock()
	case "value notification":
		n.handleValueNotification(ev)
	case "firmware update progress":
		progress := NewFirmwareUpdateProgress(getMap(ev.Data, "progress"))
		n.dataMu.Lock()
		n.firmwareProgress = progress
		n.dataMu.Unlock()
		ev.Data["firmwareUpdateProgress"] = progress
	case "firmware update finished":
		n.dataMu.Lock()
		n.firmwareProgress = nil
		n.dataMu.Unlock()
		ev.Data["firmwareUpdateFinished"] = NewFirmwareUpdateResult(getMap(ev.Data, "result"))
	case "statistics updated":
		statistics := getMap(ev.Data, "statistics")
		updated := NewNodeStatistics(statistics)
		n.dataMu.Lock()
		n.data["statistics"] = statistics
		n.statistics = updated
		n.dataMu.Unlock()
		ev.Data["statisticsUpdated"] = updated
	case "notification", "test powerlevel progress",
		"check lifeline health progress", "check route health progress":
		// No local state change; forwarded to subscribers as-is.
	default:
		n.logger.Debug("unhandled node event", "event", ev.Type)
	}
}

func (n *Node) handleValueUpdated(ev *event.Event) {
	args := getMap(ev.Data, "args")

	n.dataMu.Lock()
	defer n.dataMu.Unlock()

	nodeID := getInt(n.data, "nodeId")
	id := valueIDFromData(nodeID, args)
	if value, ok := n.values[id]; ok {
		if err := value.receiveEvent(ev.Data); err != nil {
			n.logger.Warn("dropping unparseable value", "valueId", id, "error", err)
			delete(n.values, id)
			return
		}
		ev.Data["value"] = value
		return
	}
	value, err := NewValue(nodeID, args)
	if err != nil {
		n.logger.Warn("skipping unparseable value", "valueId", id, "error", err)
		return
	}
	n.values[value.ID()] = value
	ev.Data["value"] = value
}

func (n *Node) handleValueNotification(ev *event.Event) {
	args := getMap(ev.Data, "args")

	n.dataMu.RLock()
	nodeID := getInt(n.data, "nodeId")
	existing := n.values[valueIDFromData(nodeID, args)]
	n.dataMu.RUnlock()

	var notification *Value
	var err error
	if existing != nil {
		if notification, err = NewValue(nodeID, existing.snapshot()); err == nil {
			err = notification.update(args)
		}
	} else {
		notification, err = NewValue(nodeID, args)
	}
	if err != nil {
		n.logger.Warn("skipping unparseable value notification", "error", err)
		return
	}
	ev.Data["valueNotification"] = notification
}

// SendCommand sends a node-scoped command. With WaitAuto the call does not
// wait on an asleep node, and an awake node that goes asleep or dead mid
// flight releases the waiter with a nil result.
func (n *Node) SendCommand(ctx context.Context, name string, params map[string]any, requireSchema int, wait WaitMode) (map[string]any, error) {
	sender := n.commandSender()
	if sender == nil {
		return nil, fmt.Errorf("node %d: %w", n.NodeID(), ErrNodeRemoved)
	}

	cmd := wire.NewCommand("node."+name).With("nodeId", n.NodeID())
	for k, v := range params {
		cmd.With(k, v)
	}

	switch wait {
	case WaitAlways:
		return sender.SendCommand(ctx, cmd, requireSchema)
	case WaitNever:
		return nil, sender.SendCommandNoWait(ctx, cmd, requireSchema)
	}

	if n.Status() == NodeStatusAsleep {
		return nil, sender.SendCommandNoWait(ctx, cmd, requireSchema)
	}

	sendCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	type outcome struct {
		data map[string]any
		err  error
	}
	resultCh := make(chan outcome, 1)
	go func() {
		data, err := sender.SendCommand(sendCtx, cmd, requireSchema)
		resultCh <- outcome{data, err}
	}()

	var timeout <-chan time.Time
	if n.statusWaitTimeout > 0 {
		timer := time.NewTimer(n.statusWaitTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case res := <-resultCh:
		return res.data, res.err
	case <-n.statusSig.Done():
		return nil, nil
	case <-timeout:
		return nil, nil
	}
}

// SetValue sends setValue for the given value. Options must be permitted by
// the value's metadata.
func (n *Node) SetValue(ctx context.Context, val *Value, newValue any, options map[string]any, wait WaitMode) (map[string]any, error) {
	if writeable, ok := val.Metadata().Writeable(); ok && !writeable {
		return nil, ErrUnwriteableValue
	}

	params := map[string]any{
		"valueId": val.idPayload(),
		"value":   newValue,
	}
	if len(options) > 0 {
		allowed := make(map[string]bool)
		for _, opt := range val.Metadata().ValueChangeOptions() {
			allowed[opt] = true
		}
		for opt := range options {
			if !allowed[opt] {
				return nil, fmt.Errorf("option %q on value %s: %w", opt, val.ID(), ErrNotFound)
			}
		}
		params["options"] = options
	}

	return n.SendCommand(ctx, "set_value", params, 29, wait)
}

// SetValueByID resolves the value ID on this node and calls SetValue.
func (n *Node) SetValueByID(ctx context.Context, valueID string, newValue any, options map[string]any, wait WaitMode) (map[string]any, error) {
	val := n.Value(valueID)
	if val == nil {
		return nil, fmt.Errorf("value %s on node %d: %w", valueID, n.NodeID(), ErrNotFound)
	}
	return n.SetValue(ctx, val, newValue, options, wait)
}

// PollValue requests a fresh read of the given value from the device.
func (n *Node) PollValue(ctx context.Context, val *Value) error {
	_, err := n.SendCommand(ctx, "poll_value", map[string]any{
		"valueId": val.idPayload(),
	}, 1, WaitAuto)
	return err
}

// RefreshInfo re-interviews the node from scratch.
func (n *Node) RefreshInfo(ctx context.Context) error {
	_, err := n.SendCommand(ctx, "refresh_info", nil, 0, WaitNever)
	return err
}

// RefreshValues re-reads all values from the device.
func (n *Node) RefreshValues(ctx context.Context) error {
	_, err := n.SendCommand(ctx, "refresh_values", nil, 4, WaitNever)
	return err
}

// RefreshCCValues re-reads the values of one command class.
func (n *Node) RefreshCCValues(ctx context.Context, commandClass int) error {
	_, err := n.SendCommand(ctx, "refresh_cc_values", map[string]any{
		"commandClass": commandClass,
	}, 4, WaitNever)
	return err
}

// GetDefinedValueIDs returns the value definitions the node exposes.
func (n *Node) GetDefinedValueIDs(ctx context.Context) ([]*Value, error) {
	data, err := n.SendCommand(ctx, "get_defined_value_ids", nil, 0, WaitAlways)
	if err != nil {
		return nil, err
	}
	nodeID := n.NodeID()
	raw := getSlice(data, "valueIds")
	out := make([]*Value, 0, len(raw))
	for _, entry := range raw {
		valData, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		value, err := NewValue(nodeID, valData)
		if err != nil {
			continue
		}
		out = append(out, value)
	}
	return out, nil
}

// GetValueMetadata fetches fresh metadata for the given value.
func (n *Node) GetValueMetadata(ctx context.Context, val *Value) (*ValueMetadata, error) {
	data, err := n.SendCommand(ctx, "get_value_metadata", map[string]any{
		"valueId": val.idPayload(),
	}, 0, WaitAlways)
	if err != nil {
		return nil, err
	}
	return NewValueMetadata(data), nil
}

// GetValueTimestamp returns when the given value last changed, as a unix
// millisecond timestamp.
func (n *Node) GetValueTimestamp(ctx context.Context, val *Value) (int64, error) {
	data, err := n.SendCommand(ctx, "get_value_timestamp", map[string]any{
		"valueId": val.idPayload(),
	}, 27, WaitAlways)
	if err != nil {
		return 0, err
	}
	return getInt64(data, "timestamp"), nil
}

// Ping checks whether the node responds.
func (n *Node) Ping(ctx context.Context) (bool, error) {
	data, err := n.SendCommand(ctx, "ping", nil, 5, WaitAlways)
	if err != nil {
		return false, err
	}
	return getBool(data, "responded"), nil
}

// Interview starts a fresh interview of the node.
func (n *Node) Interview(ctx context.Context) error {
	_, err := n.SendCommand(ctx, "interview", nil, 22, WaitNever)
	return err
}

// GetState fetches the node's full state snapshot from the server.
func (n *Node) GetState(ctx context.Context) (map[string]any, error) {
	data, err := n.SendCommand(ctx, "get_state", nil, 14, WaitAlways)
	if err != nil {
		return nil, err
	}
	return getMap(data, "state"), nil
}

// SetName renames the node. With updateCC the name is also written to the
// device.
func (n *Node) SetName(ctx context.Context, name string, updateCC bool) error {
	wait := WaitAuto
	if !updateCC {
		// Local to the driver, responds immediately.
		wait = WaitAlways
	}
	_, err := n.SendCommand(ctx, "set_name", map[string]any{
		"name":     name,
		"updateCC": updateCC,
	}, 14, wait)
	if err != nil {
		return err
	}
	n.set("name", name)
	return nil
}

// SetLocation sets the node's location. With updateCC the location is also
// written to the device.
func (n *Node) SetLocation(ctx context.Context, location string, updateCC bool) error {
	wait := WaitAuto
	if !updateCC {
		wait = WaitAlways
	}
	_, err := n.SendCommand(ctx, "set_location", map[string]any{
		"location": location,
		"updateCC": updateCC,
	}, 14, wait)
	if err != nil {
		return err
	}
	n.set("location", location)
	return nil
}

// SetKeepAwake controls whether the driver keeps the node awake.
func (n *Node) SetKeepAwake(ctx context.Context, keepAwake bool) error {
	_, err := n.SendCommand(ctx, "set_keep_awake", map[string]any{
		"keepAwake": keepAwake,
	}, 14, WaitAlways)
	if err != nil {
		return err
	}
	n.set("keepAwake", keepAwake)
	return nil
}

// HasSecurityClass reports whether the node was granted the given security
// class; ok is false when the driver does not know yet.
func (n *Node) HasSecurityClass(ctx context.Context, securityClass int) (bool, bool, error) {
	data, err := n.SendCommand(ctx, "has_security_class", map[string]any{
		"securityClass": securityClass,
	}, 8, WaitAlways)
	if err != nil {
		return false, false, err
	}
	if data == nil {
		return false, false, nil
	}
	has, ok := getBoolOK(data, "hasSecurityClass")
	return has, ok, nil
}

// AbortFirmwareUpdate aborts an in-flight firmware update.
func (n *Node) AbortFirmwareUpdate(ctx context.Context) error {
	_, err := n.SendCommand(ctx, "abort_firmware_update", nil, 0, WaitNever)
	return err
}

// IsFirmwareUpdateInProgress reports whether a firmware update is running
// for this node.
func (n *Node) IsFirmwareUpdateInProgress(ctx context.Context) (bool, error) {
	data, err := n.SendCommand(ctx, "is_firmware_update_in_progress", nil, 21, WaitAlways)
	if err != nil {
		return false, err
	}
	return getBool(data, "progress"), nil
}

// InvokeCCAPI invokes a command class API method on the root endpoint.
func (n *Node) InvokeCCAPI(ctx context.Context, commandClass int, methodName string, args ...any) (any, error) {
	root := n.Endpoint(0)
	if root == nil {
		return nil, fmt.Errorf("root endpoint on node %d: %w", n.NodeID(), ErrNotFound)
	}
	return root.InvokeCCAPI(ctx, commandClass, methodName, args...)
}

// SupportsCC reports whether the root endpoint supports the command class.
func (n *Node) SupportsCC(ctx context.Context, commandClass int) (bool, error) {
	root := n.Endpoint(0)
	if root == nil {
		return false, fmt.Errorf("root endpoint on node %d: %w", n.NodeID(), ErrNotFound)
	}
	return root.SupportsCC(ctx, commandClass)
}
