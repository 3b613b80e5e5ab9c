package model

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"time"

	"github.com/zwavego/zwsclient/pkg/event"
	"github.com/zwavego/zwsclient/pkg/wire"
)

// Inclusion strategies accepted by begin inclusion / replace failed node.
const (
	InclusionStrategyDefault    = 0
	InclusionStrategySmartStart = 1
	InclusionStrategySecurityS0 = 2
	InclusionStrategySecurityS2 = 3
	InclusionStrategyInsecure   = 4
)

// NVMProgress reports progress of an NVM backup, restore or conversion.
type NVMProgress struct {
	BytesDone  int
	TotalBytes int
}

// Controller mirrors the network controller: its own properties plus the
// node collection. Node events are routed here by node ID. The controller
// lock guards the snapshot and the node collection; it is released before
// events are emitted or routed into a node.
type Controller struct {
	event.Emitter
	guarded

	sender CommandSender
	logger *slog.Logger

	nodes      map[int]*Node
	statistics *ControllerStatistics

	rebuildRoutesProgress   map[int]string
	lastRebuildRoutesResult map[int]string

	statusWaitTimeout time.Duration
}

// NewController builds the controller and its nodes from the start-listening
// state dump. The state carries the controller object and the node list.
func NewController(sender CommandSender, logger *slog.Logger, state map[string]any, statusWaitTimeout time.Duration) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Controller{
		sender:            sender,
		logger:            logger.With("component", "controller"),
		nodes:             make(map[int]*Node),
		statusWaitTimeout: statusWaitTimeout,
	}
	for _, raw := range getSlice(state, "nodes") {
		nodeData, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		node := NewNode(sender, logger, nodeData, statusWaitTimeout)
		c.nodes[node.NodeID()] = node
	}
	c.Update(getMap(state, "controller"))
	return c
}

// Update replaces the controller snapshot.
func (c *Controller) Update(data map[string]any) {
	if data == nil {
		data = map[string]any{}
	}
	c.dataMu.Lock()
	defer c.dataMu.Unlock()
	c.data = data
	c.statistics = NewControllerStatistics(getMap(data, "statistics"))
	if progress := getMap(data, "rebuildRoutesProgress"); progress != nil {
		c.rebuildRoutesProgress = rebuildRoutesStatus(progress)
	}
}

func rebuildRoutesStatus(data map[string]any) map[int]string {
	out := make(map[int]string, len(data))
	for nodeID, status := range data {
		var id int
		if _, err := fmt.Sscanf(nodeID, "%d", &id); err != nil {
			continue
		}
		if s, ok := status.(string); ok {
			out[id] = s
		}
	}
	return out
}

// Data returns a copy of the raw controller snapshot.
func (c *Controller) Data() map[string]any { return c.snapshot() }

// Nodes returns the node collection, keyed by node ID.
func (c *Controller) Nodes() map[int]*Node {
	c.dataMu.RLock()
	defer c.dataMu.RUnlock()
	out := make(map[int]*Node, len(c.nodes))
	for id, node := range c.nodes {
		out[id] = node
	}
	return out
}

// Node returns the node with the given ID, or nil.
func (c *Controller) Node(nodeID int) *Node {
	c.dataMu.RLock()
	defer c.dataMu.RUnlock()
	return c.nodes[nodeID]
}

// HomeID returns the network's home ID; ok is false when unknown.
func (c *Controller) HomeID() (int64, bool) {
	c.dataMu.RLock()
	defer c.dataMu.RUnlock()
	if _, ok := c.data["homeId"]; !ok {
		return 0, false
	}
	return getInt64(c.data, "homeId"), true
}

// OwnNodeID returns the controller's own node ID; ok is false when unknown.
func (c *Controller) OwnNodeID() (int, bool) { return c.getIntOK("ownNodeId") }

// OwnNode returns the controller's own node, or nil.
func (c *Controller) OwnNode() *Node {
	c.dataMu.RLock()
	defer c.dataMu.RUnlock()
	id, ok := getIntOK(c.data, "ownNodeId")
	if !ok {
		return nil
	}
	return c.nodes[id]
}

func (c *Controller) SDKVersion() string         { return c.getString("sdkVersion") }
func (c *Controller) FirmwareVersion() string    { return c.getString("firmwareVersion") }
func (c *Controller) IsPrimary() (bool, bool)    { return c.getBoolOK("isPrimary") }
func (c *Controller) IsSUC() (bool, bool)        { return c.getBoolOK("isSUC") }
func (c *Controller) IsSISPresent() (bool, bool) { return c.getBoolOK("isSISPresent") }
func (c *Controller) SUCNodeID() (int, bool)     { return c.getIntOK("sucNodeId") }

func (c *Controller) ManufacturerID() (int, bool) { return c.getIntOK("manufacturerId") }
func (c *Controller) ProductID() (int, bool)      { return c.getIntOK("productId") }
func (c *Controller) ProductType() (int, bool)    { return c.getIntOK("productType") }

// SupportedFunctionTypes lists the serial API function types the controller
// implements.
func (c *Controller) SupportedFunctionTypes() []int {
	return c.getIntSlice("supportedFunctionTypes")
}

// InclusionState returns the raw inclusion state machine position.
func (c *Controller) InclusionState() int { return c.getInt("inclusionState") }

// Status returns the controller's status (ready / unresponsive / jammed).
func (c *Controller) Status() int { return c.getInt("status") }

// RFRegion returns the configured RF region; ok is false when unknown.
func (c *Controller) RFRegion() (int, bool) { return c.getIntOK("rfRegion") }

// SupportsLongRange reports long range support; ok is false when unknown.
func (c *Controller) SupportsLongRange() (bool, bool) {
	return c.getBoolOK("supportsLongRange")
}

// IsRebuildingRoutes reports whether a route rebuild is running.
func (c *Controller) IsRebuildingRoutes() bool { return c.getBool("isRebuildingRoutes") }

// Statistics returns the most recent statistics snapshot.
func (c *Controller) Statistics() *ControllerStatistics {
	c.dataMu.RLock()
	defer c.dataMu.RUnlock()
	return c.statistics
}

// RebuildRoutesProgress returns the per-node status of a running route
// rebuild, or nil when none is running.
func (c *Controller) RebuildRoutesProgress() map[int]string {
	c.dataMu.RLock()
	defer c.dataMu.RUnlock()
	return c.rebuildRoutesProgress
}

// LastRebuildRoutesResult returns the per-node result of the last finished
// route rebuild, or nil.
func (c *Controller) LastRebuildRoutesResult() map[int]string {
	c.dataMu.RLock()
	defer c.dataMu.RUnlock()
	return c.lastRebuildRoutesResult
}

// ReceiveEvent routes an event to the addressed node or applies it to the
// controller itself. Events for unknown nodes are dropped with a warning;
// the rest of the graph stays consistent.
func (c *Controller) ReceiveEvent(ev *event.Event) {
	source := getString(ev.Data, "source")
	if source == wire.SourceNode {
		nodeID := getInt(ev.Data, "nodeId")
		node := c.Node(nodeID)
		if node == nil {
			c.logger.Warn("dropping event for unknown node", "nodeId", nodeID, "event", ev.Type)
			return
		}
		node.ReceiveEvent(ev)
		return
	}

	if source != wire.SourceController {
		c.logger.Warn("dropping event with unexpected source", "source", source, "event", ev.Type)
		return
	}

	c.handleEvent(ev)
	ev.Data["controller"] = c
	c.Emit(*ev)
}

func (c *Controller) handleEvent(ev *event.Event) {
	switch ev.Type {
	case "node added":
		c.handleNodeAdded(ev)
	case "node removed":
		c.handleNodeRemoved(ev)
	case "inclusion state changed":
		c.set("inclusionState", ev.Data["state"])
	case "status changed":
		c.set("status", ev.Data["status"])
	case "statistics updated":
		statistics := getMap(ev.Data, "statistics")
		updated := NewControllerStatistics(statistics)
		c.dataMu.Lock()
		c.data["statistics"] = statistics
		c.statistics = updated
		c.dataMu.Unlock()
		ev.Data["statisticsUpdated"] = updated
	case "rebuild routes progress":
		progress := rebuildRoutesStatus(getMap(ev.Data, "progress"))
		c.dataMu.Lock()
		c.rebuildRoutesProgress = progress
		c.data["isRebuildingRoutes"] = true
		c.dataMu.Unlock()
	case "rebuild routes done":
		result := rebuildRoutesStatus(getMap(ev.Data, "result"))
		c.dataMu.Lock()
		c.lastRebuildRoutesResult = result
		c.rebuildRoutesProgress = nil
		c.data["isRebuildingRoutes"] = false
		c.dataMu.Unlock()
	case "nvm backup progress", "nvm convert progress":
		ev.Data["nvmProgress"] = NVMProgress{
			BytesDone:  getInt(ev.Data, "bytesRead"),
			TotalBytes: getInt(ev.Data, "total"),
		}
	case "nvm restore progress":
		ev.Data["nvmProgress"] = NVMProgress{
			BytesDone:  getInt(ev.Data, "bytesWritten"),
			TotalBytes: getInt(ev.Data, "total"),
		}
	case "identify":
		if node := c.Node(getInt(ev.Data, "nodeId")); node != nil {
			ev.Data["node"] = node
		}
	case "inclusion started", "inclusion stopped", "inclusion failed",
		"inclusion aborted", "exclusion started", "exclusion stopped",
		"exclusion failed", "node found", "grant security classes",
		"validate dsk and enter pin", "firmware update progress",
		"firmware update finished":
		// Lifecycle notifications without controller-local state.
	default:
		c.logger.Debug("unhandled controller event", "event", ev.Type)
	}
}

func (c *Controller) handleNodeAdded(ev *event.Event) {
	nodeData := getMap(ev.Data, "node")
	node := NewNode(c.sender, c.logger, nodeData, c.statusWaitTimeout)
	nodeID := node.NodeID()

	c.dataMu.Lock()
	if _, exists := c.nodes[nodeID]; exists {
		c.logger.Warn("node added collides with existing node, replacing", "nodeId", nodeID)
	}
	c.nodes[nodeID] = node
	c.dataMu.Unlock()

	ev.Data["node"] = node
}

func (c *Controller) handleNodeRemoved(ev *event.Event) {
	nodeData := getMap(ev.Data, "node")
	nodeID := getInt(nodeData, "nodeId")

	c.dataMu.Lock()
	node, ok := c.nodes[nodeID]
	if ok {
		delete(c.nodes, nodeID)
	}
	c.dataMu.Unlock()

	if !ok {
		c.logger.Warn("node removed for unknown node", "nodeId", nodeID)
		return
	}
	node.detach()
	ev.Data["node"] = node
}

func (c *Controller) sendCommand(ctx context.Context, name string, params map[string]any, requireSchema int) (map[string]any, error) {
	cmd := wire.NewCommand("controller." + name)
	for k, v := range params {
		cmd.With(k, v)
	}
	return c.sender.SendCommand(ctx, cmd, requireSchema)
}

// BeginInclusion starts including a new node using the given strategy.
// forceSecurity is only valid with the default strategy.
func (c *Controller) BeginInclusion(ctx context.Context, strategy int, forceSecurity *bool) (bool, error) {
	options := map[string]any{"strategy": strategy}
	if forceSecurity != nil {
		if strategy != InclusionStrategyDefault {
			return false, fmt.Errorf("forceSecurity requires the default inclusion strategy")
		}
		options["forceSecurity"] = *forceSecurity
	}
	data, err := c.sendCommand(ctx, "begin_inclusion", map[string]any{"options": options}, 8)
	if err != nil {
		return false, err
	}
	return getBool(data, "success"), nil
}

// StopInclusion stops a running inclusion.
func (c *Controller) StopInclusion(ctx context.Context) (bool, error) {
	data, err := c.sendCommand(ctx, "stop_inclusion", nil, 0)
	if err != nil {
		return false, err
	}
	return getBool(data, "success"), nil
}

// BeginExclusion starts excluding a node. A nil strategy uses the server
// default.
func (c *Controller) BeginExclusion(ctx context.Context, strategy *int) (bool, error) {
	params := map[string]any{}
	if strategy != nil {
		params["options"] = map[string]any{"strategy": *strategy}
	}
	data, err := c.sendCommand(ctx, "begin_exclusion", params, 22)
	if err != nil {
		return false, err
	}
	return getBool(data, "success"), nil
}

// StopExclusion stops a running exclusion.
func (c *Controller) StopExclusion(ctx context.Context) (bool, error) {
	data, err := c.sendCommand(ctx, "stop_exclusion", nil, 0)
	if err != nil {
		return false, err
	}
	return getBool(data, "success"), nil
}

// RemoveFailedNode removes a node the protocol marked as failed.
func (c *Controller) RemoveFailedNode(ctx context.Context, nodeID int) error {
	_, err := c.sendCommand(ctx, "remove_failed_node", map[string]any{"nodeId": nodeID}, 0)
	return err
}

// ReplaceFailedNode replaces a failed node with a freshly included one.
func (c *Controller) ReplaceFailedNode(ctx context.Context, nodeID int, strategy int) (bool, error) {
	data, err := c.sendCommand(ctx, "replace_failed_node", map[string]any{
		"nodeId":  nodeID,
		"options": map[string]any{"strategy": strategy},
	}, 8)
	if err != nil {
		return false, err
	}
	return getBool(data, "success"), nil
}

// IsFailedNode asks the protocol whether it considers the node failed.
func (c *Controller) IsFailedNode(ctx context.Context, nodeID int) (bool, error) {
	data, err := c.sendCommand(ctx, "is_failed_node", map[string]any{"nodeId": nodeID}, 0)
	if err != nil {
		return false, err
	}
	return getBool(data, "failed"), nil
}

// RebuildNodeRoutes rebuilds the return routes of a single node.
func (c *Controller) RebuildNodeRoutes(ctx context.Context, nodeID int) (bool, error) {
	data, err := c.sendCommand(ctx, "rebuild_node_routes", map[string]any{"nodeId": nodeID}, 32)
	if err != nil {
		return false, err
	}
	return getBool(data, "success"), nil
}

// BeginRebuildingRoutes starts a network-wide route rebuild.
func (c *Controller) BeginRebuildingRoutes(ctx context.Context) (bool, error) {
	data, err := c.sendCommand(ctx, "begin_rebuilding_routes", nil, 32)
	if err != nil {
		return false, err
	}
	return getBool(data, "success"), nil
}

// StopRebuildingRoutes stops a running route rebuild. Local progress state
// is only cleared when the server confirms.
func (c *Controller) StopRebuildingRoutes(ctx context.Context) (bool, error) {
	data, err := c.sendCommand(ctx, "stop_rebuilding_routes", nil, 32)
	if err != nil {
		return false, err
	}
	success := getBool(data, "success")
	if success {
		c.dataMu.Lock()
		c.rebuildRoutesProgress = nil
		c.data["isRebuildingRoutes"] = false
		c.dataMu.Unlock()
	}
	return success, nil
}

// GetNodeNeighbors returns the node IDs the given node can reach directly.
func (c *Controller) GetNodeNeighbors(ctx context.Context, nodeID int) ([]int, error) {
	data, err := c.sendCommand(ctx, "get_node_neighbors", map[string]any{"nodeId": nodeID}, 0)
	if err != nil {
		return nil, err
	}
	return getIntSlice(data, "neighbors"), nil
}

// GetState fetches the controller's state snapshot from the server.
func (c *Controller) GetState(ctx context.Context) (map[string]any, error) {
	data, err := c.sendCommand(ctx, "get_state", nil, 14)
	if err != nil {
		return nil, err
	}
	return getMap(data, "state"), nil
}

// SupportsFeature asks whether the controller supports a driver feature; ok
// is false when the driver does not know yet.
func (c *Controller) SupportsFeature(ctx context.Context, feature int) (bool, bool, error) {
	data, err := c.sendCommand(ctx, "supports_feature", map[string]any{"feature": feature}, 12)
	if err != nil {
		return false, false, err
	}
	supported, ok := getBoolOK(data, "supported")
	return supported, ok, nil
}

// BackupNVMRaw downloads the controller's non-volatile memory.
func (c *Controller) BackupNVMRaw(ctx context.Context) ([]byte, error) {
	data, err := c.sendCommand(ctx, "backup_nvm_raw", nil, 14)
	if err != nil {
		return nil, err
	}
	return base64.StdEncoding.DecodeString(getString(data, "nvmData"))
}

// RestoreNVM uploads a previously backed up NVM image to the controller.
func (c *Controller) RestoreNVM(ctx context.Context, nvm []byte) error {
	_, err := c.sendCommand(ctx, "restore_nvm", map[string]any{
		"nvmData":        base64.StdEncoding.EncodeToString(nvm),
		"migrateOptions": map[string]any{},
	}, 42)
	return err
}

// GetPowerLevel returns the controller's transmit power level and the
// measured output power at 0 dBm.
func (c *Controller) GetPowerLevel(ctx context.Context) (powerLevel, measured0dBm int, err error) {
	data, err := c.sendCommand(ctx, "get_powerlevel", nil, 14)
	if err != nil {
		return 0, 0, err
	}
	return getInt(data, "powerlevel"), getInt(data, "measured0dBm"), nil
}

// SetPowerLevel configures the controller's transmit power level.
func (c *Controller) SetPowerLevel(ctx context.Context, powerLevel, measured0dBm int) (bool, error) {
	data, err := c.sendCommand(ctx, "set_powerlevel", map[string]any{
		"powerlevel":   powerLevel,
		"measured0dBm": measured0dBm,
	}, 14)
	if err != nil {
		return false, err
	}
	return getBool(data, "success"), nil
}

// GetRFRegion returns the controller's RF region.
func (c *Controller) GetRFRegion(ctx context.Context) (int, error) {
	data, err := c.sendCommand(ctx, "get_rf_region", nil, 14)
	if err != nil {
		return 0, err
	}
	return getInt(data, "region"), nil
}

// SetRFRegion configures the controller's RF region.
func (c *Controller) SetRFRegion(ctx context.Context, region int) (bool, error) {
	data, err := c.sendCommand(ctx, "set_rf_region", map[string]any{"region": region}, 14)
	if err != nil {
		return false, err
	}
	return getBool(data, "success"), nil
}

// GetAssociationGroups returns the association groups of a node or endpoint.
func (c *Controller) GetAssociationGroups(ctx context.Context, source AssociationAddress) (map[int]AssociationGroup, error) {
	params := source.payload()
	data, err := c.sendCommand(ctx, "get_association_groups", params, 0)
	if err != nil {
		return nil, err
	}
	groups := make(map[int]AssociationGroup)
	for key, raw := range getMap(data, "groups") {
		groupData, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		var id int
		if _, err := fmt.Sscanf(key, "%d", &id); err != nil {
			continue
		}
		group := AssociationGroup{
			MaxNodes:       getInt(groupData, "maxNodes"),
			IsLifeline:     getBool(groupData, "isLifeline"),
			MultiChannel:   getBool(groupData, "multiChannel"),
			Label:          getString(groupData, "label"),
			IssuedCommands: getMap(groupData, "issuedCommands"),
		}
		if profile, ok := getIntOK(groupData, "profile"); ok {
			group.Profile = profile
			group.HasProfile = true
		}
		groups[id] = group
	}
	return groups, nil
}

// GetAssociations returns the current association targets per group.
func (c *Controller) GetAssociations(ctx context.Context, source AssociationAddress) (map[int][]AssociationAddress, error) {
	data, err := c.sendCommand(ctx, "get_associations", source.payload(), 0)
	if err != nil {
		return nil, err
	}
	out := make(map[int][]AssociationAddress)
	for key, raw := range getMap(data, "associations") {
		entries, ok := raw.([]any)
		if !ok {
			continue
		}
		var group int
		if _, err := fmt.Sscanf(key, "%d", &group); err != nil {
			continue
		}
		addrs := make([]AssociationAddress, 0, len(entries))
		for _, entry := range entries {
			addrData, ok := entry.(map[string]any)
			if !ok {
				continue
			}
			addr := AssociationAddress{NodeID: getInt(addrData, "nodeId")}
			if endpoint, ok := getIntOK(addrData, "endpoint"); ok {
				addr.Endpoint = &endpoint
			}
			addrs = append(addrs, addr)
		}
		out[group] = addrs
	}
	return out, nil
}

// AddAssociations adds association targets to a group.
func (c *Controller) AddAssociations(ctx context.Context, source AssociationAddress, group int, associations []AssociationAddress) error {
	params := source.payload()
	params["group"] = group
	params["associations"] = associationPayloads(associations)
	_, err := c.sendCommand(ctx, "add_associations", params, 0)
	return err
}

// RemoveAssociations removes association targets from a group.
func (c *Controller) RemoveAssociations(ctx context.Context, source AssociationAddress, group int, associations []AssociationAddress) error {
	params := source.payload()
	params["group"] = group
	params["associations"] = associationPayloads(associations)
	_, err := c.sendCommand(ctx, "remove_associations", params, 0)
	return err
}

// RemoveNodeFromAllAssociations clears the node from every association on
// the network.
func (c *Controller) RemoveNodeFromAllAssociations(ctx context.Context, nodeID int) error {
	_, err := c.sendCommand(ctx, "remove_node_from_all_associations", map[string]any{
		"nodeId": nodeID,
	}, 0)
	return err
}

func associationPayloads(associations []AssociationAddress) []map[string]any {
	out := make([]map[string]any, 0, len(associations))
	for _, a := range associations {
		out = append(out, a.payload())
	}
	return out
}
