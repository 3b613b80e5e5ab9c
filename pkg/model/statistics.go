package model

// NodeStatistics is a snapshot of a node's transmission counters.
type NodeStatistics struct {
	data map[string]any
}

// NewNodeStatistics wraps a raw node statistics snapshot. A nil snapshot
// yields all-zero counters.
func NewNodeStatistics(data map[string]any) *NodeStatistics {
	if data == nil {
		data = map[string]any{}
	}
	return &NodeStatistics{data: data}
}

func (s *NodeStatistics) Data() map[string]any { return s.data }

func (s *NodeStatistics) CommandsTX() int        { return getInt(s.data, "commandsTX") }
func (s *NodeStatistics) CommandsRX() int        { return getInt(s.data, "commandsRX") }
func (s *NodeStatistics) CommandsDroppedTX() int { return getInt(s.data, "commandsDroppedTX") }
func (s *NodeStatistics) CommandsDroppedRX() int { return getInt(s.data, "commandsDroppedRX") }
func (s *NodeStatistics) TimeoutResponse() int   { return getInt(s.data, "timeoutResponse") }

// RTT returns the average round-trip time in ms; ok is false when unknown.
func (s *NodeStatistics) RTT() (int, bool) { return getIntOK(s.data, "rtt") }

// RSSI returns the average RSSI of frames received from the node; ok is
// false when unknown.
func (s *NodeStatistics) RSSI() (int, bool) { return getIntOK(s.data, "rssi") }

// LastSeen returns the ISO timestamp the node was last seen, if recorded.
func (s *NodeStatistics) LastSeen() (string, bool) { return getStringOK(s.data, "lastSeen") }

// LWR returns the last working route statistics, if known.
func (s *NodeStatistics) LWR() map[string]any { return getMap(s.data, "lwr") }

// NLWR returns the next-to-last working route statistics, if known.
func (s *NodeStatistics) NLWR() map[string]any { return getMap(s.data, "nlwr") }

// ControllerStatistics is a snapshot of the controller's message counters.
type ControllerStatistics struct {
	data map[string]any
}

// NewControllerStatistics wraps a raw controller statistics snapshot. A nil
// snapshot yields all-zero counters.
func NewControllerStatistics(data map[string]any) *ControllerStatistics {
	if data == nil {
		data = map[string]any{}
	}
	return &ControllerStatistics{data: data}
}

func (s *ControllerStatistics) Data() map[string]any { return s.data }

func (s *ControllerStatistics) MessagesTX() int        { return getInt(s.data, "messagesTX") }
func (s *ControllerStatistics) MessagesRX() int        { return getInt(s.data, "messagesRX") }
func (s *ControllerStatistics) MessagesDroppedTX() int { return getInt(s.data, "messagesDroppedTX") }
func (s *ControllerStatistics) MessagesDroppedRX() int { return getInt(s.data, "messagesDroppedRX") }
func (s *ControllerStatistics) NAK() int               { return getInt(s.data, "NAK") }
func (s *ControllerStatistics) CAN() int               { return getInt(s.data, "CAN") }
func (s *ControllerStatistics) TimeoutACK() int        { return getInt(s.data, "timeoutACK") }
func (s *ControllerStatistics) TimeoutResponse() int   { return getInt(s.data, "timeoutResponse") }
func (s *ControllerStatistics) TimeoutCallback() int   { return getInt(s.data, "timeoutCallback") }

// BackgroundRSSI returns the background RSSI measurement, if present.
func (s *ControllerStatistics) BackgroundRSSI() map[string]any {
	return getMap(s.data, "backgroundRSSI")
}
