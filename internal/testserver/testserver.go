// Package testserver provides an in-process Z-Wave JS server fixture for
// client tests. It speaks just enough of the protocol to complete the
// version handshake and the listen bootstrap, answer commands from a
// scriptable handler table, and push event frames.
package testserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
)

// Handler produces the result object for one received command. Returning
// an errorCode marks the result as failed.
type Handler func(cmd map[string]any) (result map[string]any, errorCode string)

// Config configures the fixture.
type Config struct {
	DriverVersion    string
	ServerVersion    string
	HomeID           int64
	MinSchemaVersion int
	MaxSchemaVersion int

	// State is the object returned by start_listening.
	State map[string]any

	// LogConfig is the object returned by driver.get_log_config.
	LogConfig map[string]any
}

// Server is a websocket test double for a Z-Wave JS server.
type Server struct {
	t interface {
		Helper()
		Fatalf(format string, args ...any)
	}
	httpServer *httptest.Server
	upgrader   websocket.Upgrader
	config     Config

	mu       sync.Mutex
	conn     *websocket.Conn
	connCh   chan struct{}
	received []map[string]any
	handlers map[string]Handler
}

// New starts the fixture. Defaults fill in a schema window of 31..45 and
// an empty network when the config leaves them unset.
func New(t interface {
	Helper()
	Fatalf(format string, args ...any)
	Cleanup(func())
}, config Config) *Server {
	t.Helper()

	if config.MinSchemaVersion == 0 && config.MaxSchemaVersion == 0 {
		config.MinSchemaVersion = 31
		config.MaxSchemaVersion = 45
	}
	if config.DriverVersion == "" {
		config.DriverVersion = "15.9.0"
	}
	if config.ServerVersion == "" {
		config.ServerVersion = "3.2.0"
	}
	if config.State == nil {
		config.State = map[string]any{
			"controller": map[string]any{"ownNodeId": float64(1)},
			"nodes":      []any{},
		}
	}
	if config.LogConfig == nil {
		config.LogConfig = map[string]any{"enabled": true, "level": "info"}
	}

	s := &Server{
		t:        t,
		config:   config,
		connCh:   make(chan struct{}, 8),
		handlers: make(map[string]Handler),
	}
	s.httpServer = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Stop)
	return s
}

// URL returns the websocket URL of the fixture.
func (s *Server) URL() string {
	return "ws" + strings.TrimPrefix(s.httpServer.URL, "http")
}

// Handle registers a handler for a command name, replacing any default.
func (s *Server) Handle(command string, handler Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[command] = handler
}

// HandleResult registers a fixed successful result for a command name.
func (s *Server) HandleResult(command string, result map[string]any) {
	s.Handle(command, func(map[string]any) (map[string]any, string) {
		return result, ""
	})
}

// HandleError registers a fixed failure for a command name.
func (s *Server) HandleError(command, errorCode string) {
	s.Handle(command, func(map[string]any) (map[string]any, string) {
		return nil, errorCode
	})
}

// Received returns all commands received so far, in arrival order.
func (s *Server) Received() []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]map[string]any, len(s.received))
	copy(out, s.received)
	return out
}

// ReceivedCommand returns the most recent command with the given name,
// or nil.
func (s *Server) ReceivedCommand(name string) map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.received) - 1; i >= 0; i-- {
		if s.received[i]["command"] == name {
			return s.received[i]
		}
	}
	return nil
}

// SendEvent pushes an event frame to the connected client. The payload is
// the event body; it must carry "source" and "event".
func (s *Server) SendEvent(payload map[string]any) {
	s.t.Helper()
	s.send(map[string]any{"type": "event", "event": payload})
}

// DropConnection closes the websocket without a close handshake.
func (s *Server) DropConnection() {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn != nil {
		conn.Close()
	}
}

// WaitForConnection blocks until a client has connected.
func (s *Server) WaitForConnection() {
	<-s.connCh
}

// Stop shuts the fixture down.
func (s *Server) Stop() {
	s.DropConnection()
	s.httpServer.Close()
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()
	select {
	case s.connCh <- struct{}{}:
	default:
	}

	s.send(map[string]any{
		"type":             "version",
		"driverVersion":    s.config.DriverVersion,
		"serverVersion":    s.config.ServerVersion,
		"homeId":           s.config.HomeID,
		"minSchemaVersion": s.config.MinSchemaVersion,
		"maxSchemaVersion": s.config.MaxSchemaVersion,
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var cmd map[string]any
		if err := json.Unmarshal(data, &cmd); err != nil {
			continue
		}

		name, _ := cmd["command"].(string)
		s.mu.Lock()
		s.received = append(s.received, cmd)
		handler := s.handlers[name]
		s.mu.Unlock()

		s.respond(cmd, handler)
	}
}

func (s *Server) respond(cmd map[string]any, handler Handler) {
	name, _ := cmd["command"].(string)
	messageID, _ := cmd["messageId"].(string)

	var result map[string]any
	var errorCode string
	switch {
	case handler != nil:
		result, errorCode = handler(cmd)
	case name == "initialize":
		result = map[string]any{}
	case name == "driver.get_log_config":
		result = map[string]any{"config": s.config.LogConfig}
	case name == "start_listening":
		result = map[string]any{"state": s.config.State}
	default:
		result = map[string]any{}
	}

	reply := map[string]any{
		"type":      "result",
		"messageId": messageID,
		"success":   errorCode == "",
	}
	if errorCode != "" {
		reply["errorCode"] = errorCode
	} else {
		reply["result"] = result
	}
	s.send(reply)
}

func (s *Server) send(payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.t.Fatalf("testserver: marshal frame: %v", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		s.t.Fatalf("testserver: no client connected")
		return
	}
	if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return
	}
}
