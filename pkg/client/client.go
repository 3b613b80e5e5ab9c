package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/zwavego/zwsclient/pkg/event"
	"github.com/zwavego/zwsclient/pkg/model"
	"github.com/zwavego/zwsclient/pkg/schema"
	"github.com/zwavego/zwsclient/pkg/wire"
)

// Client states.
type State int32

const (
	// StateDisconnected indicates no connection.
	StateDisconnected State = iota

	// StateConnecting indicates the websocket dial and version handshake
	// are in progress.
	StateConnecting

	// StateConnected indicates the version handshake completed.
	StateConnected

	// StateListening indicates the listen loop is driving the graph.
	StateListening
)

// String returns the client state name.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	case StateListening:
		return "LISTENING"
	default:
		return "UNKNOWN"
	}
}

// Fixed message IDs for the listen bootstrap commands. Using stable IDs
// makes server traces and recorded sessions line up across runs.
const (
	messageIDInitialize       = "initialize"
	messageIDInitialLogConfig = "get-initial-log-config"
	messageIDStartListening   = "start-listening"
)

// Config configures a Client.
type Config struct {
	// Logger receives client and graph log records. Defaults to
	// slog.Default().
	Logger *slog.Logger

	// SchemaVersion pins the API schema to negotiate, when the server
	// supports it. 0 negotiates the highest mutually supported version.
	SchemaVersion int

	// StatusWaitTimeout bounds how long node commands in automatic wait
	// mode block on a node that stays silent. 0 means no bound.
	StatusWaitTimeout time.Duration

	// DialTimeout is the websocket handshake timeout (default: 30s).
	DialTimeout time.Duration
}

// RecordedMessage is one frame captured while message recording is active.
type RecordedMessage struct {
	Direction string          `json:"direction"`
	Timestamp time.Time       `json:"ts"`
	Payload   json.RawMessage `json:"payload"`
}

// Recording directions.
const (
	DirectionIncoming = "incoming"
	DirectionOutgoing = "outgoing"
)

// Client is a websocket client for a Z-Wave JS server. It owns the
// connection, the command correlation table, and the listen loop that
// feeds the driver graph.
type Client struct {
	url    string
	config Config
	logger *slog.Logger

	state atomic.Int32

	conn    *websocket.Conn
	writeMu sync.Mutex

	version       schema.VersionInfo
	schemaVersion int

	validator *event.Validator
	driver    *model.Driver

	pendingMu sync.Mutex
	pending   map[string]chan *wire.ResultMessage

	lifecycleMu sync.Mutex

	recordMu  sync.Mutex
	recording bool
	recorded  []RecordedMessage

	closeOnce  sync.Once
	closeCh    chan struct{}
	listenDone chan struct{}
}

// New creates a client for the given websocket URL (not yet connected).
func New(url string, config Config) *Client {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		url:       url,
		config:    config,
		logger:    logger.With("component", "client"),
		validator: event.NewValidator(),
		pending:   make(map[string]chan *wire.ResultMessage),
		closeCh:   make(chan struct{}),
	}
	c.state.Store(int32(StateDisconnected))
	return c
}

// State returns the current client state.
func (c *Client) State() State {
	return State(c.state.Load())
}

// Version returns the server's version handshake, valid after Connect.
func (c *Client) Version() schema.VersionInfo { return c.version }

// SchemaVersion returns the negotiated API schema version.
func (c *Client) SchemaVersion() int { return c.schemaVersion }

// Driver returns the driver graph, or nil before Listen has built it.
func (c *Client) Driver() *model.Driver { return c.driver }

// Connect dials the server and completes the version handshake. The
// negotiated schema version is available afterwards; the driver graph is
// only built by Listen.
func (c *Client) Connect(ctx context.Context) error {
	if !c.state.CompareAndSwap(int32(StateDisconnected), int32(StateConnecting)) {
		return ErrAlreadyConnected
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: c.config.DialTimeout,
	}
	if dialer.HandshakeTimeout == 0 {
		dialer.HandshakeTimeout = 30 * time.Second
	}

	conn, _, err := dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		c.state.Store(int32(StateDisconnected))
		return &CannotConnectError{URL: c.url, Err: err}
	}

	version, err := c.readVersion(conn)
	if err != nil {
		conn.Close()
		c.state.Store(int32(StateDisconnected))
		return err
	}

	if err := schema.Check(version); err != nil {
		conn.Close()
		c.state.Store(int32(StateDisconnected))
		return err
	}
	negotiated := schema.Negotiate(version)
	if pinned := c.config.SchemaVersion; pinned > 0 && pinned < negotiated {
		if pinned < version.MinSchemaVersion {
			conn.Close()
			c.state.Store(int32(StateDisconnected))
			return &schema.IncompatibleVersionError{
				ServerMin: version.MinSchemaVersion,
				ServerMax: version.MaxSchemaVersion,
			}
		}
		negotiated = pinned
	}

	c.conn = conn
	c.version = version
	c.schemaVersion = negotiated
	c.state.Store(int32(StateConnected))

	c.logger.Info("connected",
		"url", c.url,
		"serverVersion", version.ServerVersion,
		"driverVersion", version.DriverVersion,
		"schemaVersion", negotiated)
	return nil
}

func (c *Client) readVersion(conn *websocket.Conn) (schema.VersionInfo, error) {
	_, data, err := conn.ReadMessage()
	if err != nil {
		return schema.VersionInfo{}, &CannotConnectError{URL: c.url, Err: err}
	}
	decoded, err := wire.DecodeIncoming(data)
	if err != nil {
		return schema.VersionInfo{}, &CannotConnectError{URL: c.url, Err: err}
	}
	version, ok := decoded.(*wire.VersionMessage)
	if !ok {
		return schema.VersionInfo{}, &CannotConnectError{
			URL: c.url,
			Err: fmt.Errorf("expected version frame, got %T", decoded),
		}
	}
	return schema.VersionInfoFromMessage(version), nil
}

// SendCommand sends a command and waits for its result. It implements
// model.CommandSender; requireSchema gates the command on the negotiated
// schema version before anything touches the wire.
func (c *Client) SendCommand(ctx context.Context, cmd wire.CommandMessage, requireSchema int) (map[string]any, error) {
	if c.State() < StateConnected {
		return nil, ErrNotConnected
	}
	if requireSchema > c.schemaVersion {
		return nil, &SchemaRequiredError{Required: requireSchema, Negotiated: c.schemaVersion}
	}

	if cmd.MessageID() == "" {
		cmd.SetMessageID(uuid.NewString())
	}

	ch := make(chan *wire.ResultMessage, 1)
	c.pendingMu.Lock()
	c.pending[cmd.MessageID()] = ch
	c.pendingMu.Unlock()
	defer func() {
		c.pendingMu.Lock()
		delete(c.pending, cmd.MessageID())
		c.pendingMu.Unlock()
	}()

	if err := c.writeCommand(cmd); err != nil {
		return nil, err
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.closeCh:
		return nil, ErrConnectionClosed
	case msg := <-ch:
		if !msg.Success {
			return nil, resultError(msg)
		}
		return decodeResult(msg)
	}
}

// SendCommandNoWait sends a command without waiting for its result.
func (c *Client) SendCommandNoWait(ctx context.Context, cmd wire.CommandMessage, requireSchema int) error {
	if c.State() < StateConnected {
		return ErrNotConnected
	}
	if requireSchema > c.schemaVersion {
		return &SchemaRequiredError{Required: requireSchema, Negotiated: c.schemaVersion}
	}
	if cmd.MessageID() == "" {
		cmd.SetMessageID(uuid.NewString())
	}
	return c.writeCommand(cmd)
}

func (c *Client) writeCommand(cmd wire.CommandMessage) error {
	data, err := wire.EncodeCommand(cmd)
	if err != nil {
		return err
	}
	c.record(DirectionOutgoing, data)

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	select {
	case <-c.closeCh:
		return ErrConnectionClosed
	default:
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func decodeResult(msg *wire.ResultMessage) (map[string]any, error) {
	if len(msg.Result) == 0 {
		return nil, nil
	}
	var out map[string]any
	if err := json.Unmarshal(msg.Result, &out); err != nil {
		return nil, fmt.Errorf("decoding result for %s: %w", msg.MessageID, err)
	}
	return out, nil
}

// Listen initializes the server session, builds the driver graph from the
// state dump, and then runs the receive loop until the context is done or
// the connection fails. driverReady, when not nil, is closed once the
// graph is available via Driver().
func (c *Client) Listen(ctx context.Context, driverReady chan<- struct{}) error {
	if !c.state.CompareAndSwap(int32(StateConnected), int32(StateListening)) {
		if c.State() == StateListening {
			return ErrAlreadyListening
		}
		return ErrNotConnected
	}

	done := make(chan struct{})
	c.lifecycleMu.Lock()
	c.listenDone = done
	c.lifecycleMu.Unlock()
	defer close(done)

	// Closing the connection is the only way to unblock a pending read.
	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()
	go func() {
		select {
		case <-watchCtx.Done():
			c.shutdown()
		case <-c.closeCh:
		}
	}()

	initialize := wire.NewCommand("initialize").
		With("schemaVersion", c.schemaVersion)
	initialize.SetMessageID(messageIDInitialize)
	if _, err := c.roundTrip(initialize); err != nil {
		return fmt.Errorf("initialize: %w", err)
	}

	logConfigCmd := wire.NewCommand("driver.get_log_config")
	logConfigCmd.SetMessageID(messageIDInitialLogConfig)
	logConfigResult, err := c.roundTrip(logConfigCmd)
	if err != nil {
		return fmt.Errorf("initial log config: %w", err)
	}
	logConfig, _ := logConfigResult["config"].(map[string]any)

	startListening := wire.NewCommand("start_listening")
	startListening.SetMessageID(messageIDStartListening)
	listenResult, err := c.roundTrip(startListening)
	if err != nil {
		return fmt.Errorf("start listening: %w", err)
	}
	state, _ := listenResult["state"].(map[string]any)

	c.driver = model.NewDriver(c, c.config.Logger, state, logConfig, c.config.StatusWaitTimeout)
	c.driver.On("logging", c.emitServerLog)
	c.logger.Info("driver ready", "nodes", len(c.driver.Controller().Nodes()))

	if driverReady != nil {
		close(driverReady)
	}

	for {
		decoded, err := c.readIncoming()
		if err != nil {
			if ctx.Err() != nil || c.State() == StateDisconnected {
				return ctx.Err()
			}
			c.shutdown()
			return fmt.Errorf("receive: %w", err)
		}

		switch msg := decoded.(type) {
		case *wire.ResultMessage:
			c.dispatchResult(msg)
		case *wire.EventMessage:
			c.handleEventMessage(msg)
		case *wire.UnknownMessage:
			c.logger.Debug("dropping message with unknown type", "type", msg.Type)
		default:
			c.logger.Debug("dropping unexpected message", "messageType", fmt.Sprintf("%T", decoded))
		}
	}
}

// roundTrip sends a bootstrap command and reads frames inline until its
// result arrives. Only used before the listen loop starts.
func (c *Client) roundTrip(cmd wire.CommandMessage) (map[string]any, error) {
	if err := c.writeCommand(cmd); err != nil {
		return nil, err
	}
	for {
		decoded, err := c.readIncoming()
		if err != nil {
			return nil, err
		}
		msg, ok := decoded.(*wire.ResultMessage)
		if !ok {
			c.logger.Debug("dropping message received during bootstrap",
				"messageType", fmt.Sprintf("%T", decoded))
			continue
		}
		if msg.MessageID != cmd.MessageID() {
			c.dispatchResult(msg)
			continue
		}
		if !msg.Success {
			return nil, resultError(msg)
		}
		return decodeResult(msg)
	}
}

func (c *Client) readIncoming() (any, error) {
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	c.record(DirectionIncoming, data)
	return wire.DecodeIncoming(data)
}

func (c *Client) dispatchResult(msg *wire.ResultMessage) {
	c.pendingMu.Lock()
	ch, ok := c.pending[msg.MessageID]
	if ok {
		delete(c.pending, msg.MessageID)
	}
	c.pendingMu.Unlock()

	if !ok {
		c.logger.Debug("dropping result with no waiter", "messageId", msg.MessageID)
		return
	}
	ch <- msg
}

func (c *Client) handleEventMessage(msg *wire.EventMessage) {
	payload := msg.Event
	if err := c.validator.Validate(payload.Source, payload.Event, payload.Fields); err != nil {
		c.logger.Warn("dropping invalid event",
			"source", payload.Source, "event", payload.Event, "error", err)
		return
	}
	c.driver.ReceiveEvent(&event.Event{Type: payload.Event, Data: payload.Fields})
}

// emitServerLog re-emits server-side log messages on the client logger.
func (c *Client) emitServerLog(ev event.Event) {
	msg, ok := ev.Data["logMessage"].(*model.LogMessage)
	if !ok {
		return
	}
	level := slog.LevelDebug
	switch msg.Level() {
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	case "info":
		level = slog.LevelInfo
	}
	for _, line := range msg.Message() {
		c.logger.Log(context.Background(), level, "server log", "label", msg.Label(), "message", line)
	}
}

// EnableServerLogging asks the server to stream its driver logs as
// "logging" events.
func (c *Client) EnableServerLogging(ctx context.Context) error {
	_, err := c.SendCommand(ctx, wire.NewCommand("start_listening_logs"), 31)
	return err
}

// DisableServerLogging stops the server-side log stream.
func (c *Client) DisableServerLogging(ctx context.Context) error {
	_, err := c.SendCommand(ctx, wire.NewCommand("stop_listening_logs"), 31)
	return err
}

// BeginRecordingMessages starts capturing all frames in both directions.
func (c *Client) BeginRecordingMessages() error {
	c.recordMu.Lock()
	defer c.recordMu.Unlock()
	if c.recording {
		return fmt.Errorf("already recording messages")
	}
	c.recording = true
	c.recorded = nil
	return nil
}

// EndRecordingMessages stops capturing and returns the recorded frames.
func (c *Client) EndRecordingMessages() []RecordedMessage {
	c.recordMu.Lock()
	defer c.recordMu.Unlock()
	recorded := c.recorded
	c.recording = false
	c.recorded = nil
	return recorded
}

func (c *Client) record(direction string, data []byte) {
	c.recordMu.Lock()
	defer c.recordMu.Unlock()
	if !c.recording {
		return
	}
	payload := make(json.RawMessage, len(data))
	copy(payload, data)
	c.recorded = append(c.recorded, RecordedMessage{
		Direction: direction,
		Timestamp: time.Now(),
		Payload:   payload,
	})
}

func (c *Client) shutdown() {
	c.closeOnce.Do(func() {
		close(c.closeCh)
		if c.conn != nil {
			c.conn.Close()
		}
		c.state.Store(int32(StateDisconnected))
		c.logger.Debug("closed")
	})
}

// Close tears the connection down. Pending command waiters are released
// with ErrConnectionClosed. Close is idempotent; it waits for a running
// listen loop to finish.
func (c *Client) Close() error {
	c.shutdown()
	c.lifecycleMu.Lock()
	done := c.listenDone
	c.lifecycleMu.Unlock()
	if done != nil {
		<-done
	}
	return nil
}

// ServerVersion dials the server just long enough to read the version
// handshake, then disconnects.
func ServerVersion(ctx context.Context, url string) (schema.VersionInfo, error) {
	c := New(url, Config{})
	if err := c.Connect(ctx); err != nil {
		return schema.VersionInfo{}, err
	}
	defer c.Close()
	return c.Version(), nil
}
