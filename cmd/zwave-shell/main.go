// Command zwave-shell is an interactive console for a Z-Wave JS server.
//
// Usage:
//
//	zwave-shell -url ws://localhost:3000
//
// Commands inside the shell:
//
//	nodes                      list all nodes
//	node <id>                  show one node
//	values <id>                list the values of a node
//	setvalue <valueID> <json>  write a value (JSON-encoded)
//	ping <id>                  ping a node
//	interview <id>             re-interview a node
//	events on|off              print incoming state events
//	logs on|off                stream server-side driver logs
//	version                    show the server version handshake
//	quit                       exit
//
// The shell reconnects automatically when the server connection drops.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/chzyer/readline"

	"github.com/zwavego/zwsclient/pkg/client"
	"github.com/zwavego/zwsclient/pkg/connection"
	"github.com/zwavego/zwsclient/pkg/event"
	"github.com/zwavego/zwsclient/pkg/model"
)

type shell struct {
	manager *connection.Manager
	driver  atomic.Pointer[model.Driver]

	printEvents atomic.Bool
}

func main() {
	var (
		url      = flag.String("url", "ws://localhost:3000", "websocket URL of the Z-Wave JS server")
		logLevel = flag.String("log-level", "warn", "log level: debug, info, warn, error")
	)
	flag.Parse()

	level := slog.LevelWarn
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "error":
		level = slog.LevelError
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	sh := &shell{}
	sh.manager = connection.NewManager(*url, connection.ManagerConfig{
		Client:        client.Config{Logger: logger},
		AutoReconnect: true,
		Logger:        logger,
	})
	sh.manager.OnDriverReady(func(d *model.Driver) {
		sh.driver.Store(d)
		sh.subscribeEvents(d)
		fmt.Printf("connected: %d nodes\n", len(d.Controller().Nodes()))
	})
	sh.manager.OnReconnecting(func(attempt int, delay time.Duration) {
		fmt.Printf("connection lost, retrying in %s (attempt %d)\n", delay, attempt)
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		if err := sh.manager.Run(ctx); err != nil && ctx.Err() == nil {
			fmt.Fprintf(os.Stderr, "zwave-shell: %v\n", err)
			os.Exit(1)
		}
	}()

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "zwave> ",
		HistoryFile:     historyPath(),
		AutoComplete:    completer(),
		InterruptPrompt: "^C",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "zwave-shell: %v\n", err)
		os.Exit(1)
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			return
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			return
		}
		if err := sh.dispatch(ctx, line); err != nil {
			fmt.Printf("error: %v\n", err)
		}
	}
}

func historyPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return home + "/.zwave_shell_history"
}

func completer() readline.AutoCompleter {
	return readline.NewPrefixCompleter(
		readline.PcItem("nodes"),
		readline.PcItem("node"),
		readline.PcItem("values"),
		readline.PcItem("setvalue"),
		readline.PcItem("ping"),
		readline.PcItem("interview"),
		readline.PcItem("events", readline.PcItem("on"), readline.PcItem("off")),
		readline.PcItem("logs", readline.PcItem("on"), readline.PcItem("off")),
		readline.PcItem("version"),
		readline.PcItem("status"),
		readline.PcItem("help"),
		readline.PcItem("quit"),
	)
}

func (s *shell) subscribeEvents(d *model.Driver) {
	print := func(ev event.Event) {
		if !s.printEvents.Load() {
			return
		}
		if node, ok := ev.Data["node"].(*model.Node); ok {
			fmt.Printf("[event] node %d: %s\n", node.NodeID(), ev.Type)
			return
		}
		fmt.Printf("[event] %s\n", ev.Type)
	}
	controller := d.Controller()
	for _, name := range []string{"node added", "node removed", "inclusion started", "exclusion started"} {
		controller.On(name, print)
	}
	for _, node := range controller.Nodes() {
		for _, name := range []string{"value updated", "sleep", "wake up", "dead", "alive", "ready"} {
			node.On(name, print)
		}
	}
}

func (s *shell) currentDriver() (*model.Driver, error) {
	d := s.driver.Load()
	if d == nil {
		return nil, fmt.Errorf("not connected yet")
	}
	return d, nil
}

func (s *shell) dispatch(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "help":
		fmt.Print(helpText)
		return nil
	case "events":
		return s.toggle(&s.printEvents, args)
	case "logs":
		return s.toggleLogs(ctx, args)
	case "version":
		return s.showVersion()
	case "status":
		return s.showStatus()
	case "nodes":
		return s.listNodes()
	case "node":
		return s.withNode(args, s.showNode)
	case "values":
		return s.withNode(args, s.listValues)
	case "ping":
		return s.withNode(args, func(n *model.Node) error {
			responded, err := n.Ping(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("node %d responded: %v\n", n.NodeID(), responded)
			return nil
		})
	case "interview":
		return s.withNode(args, func(n *model.Node) error {
			return n.Interview(ctx)
		})
	case "setvalue":
		return s.setValue(ctx, args)
	default:
		return fmt.Errorf("unknown command %q (try help)", cmd)
	}
}

const helpText = `commands:
  nodes                      list all nodes
  node <id>                  show one node
  values <id>                list the values of a node
  setvalue <valueID> <json>  write a value
  ping <id>                  ping a node
  interview <id>             re-interview a node
  events on|off              print incoming state events
  logs on|off                stream server-side driver logs
  version                    show the server version handshake
  status                     show the connection state and retry schedule
  quit                       exit
`

func (s *shell) showStatus() error {
	fmt.Printf("connection: %s\n", s.manager.State())
	if attempts := s.manager.BackoffAttempts(); attempts > 0 {
		fmt.Printf("reconnect attempts: %d\n", attempts)
	}
	steps := make([]string, 0, len(connection.BackoffSequence()))
	for _, d := range connection.BackoffSequence() {
		steps = append(steps, d.String())
	}
	fmt.Printf("retry schedule: %s\n", strings.Join(steps, ", "))
	return nil
}

func (s *shell) toggle(flag *atomic.Bool, args []string) error {
	if len(args) != 1 || (args[0] != "on" && args[0] != "off") {
		return fmt.Errorf("usage: events on|off")
	}
	flag.Store(args[0] == "on")
	return nil
}

func (s *shell) toggleLogs(ctx context.Context, args []string) error {
	if len(args) != 1 || (args[0] != "on" && args[0] != "off") {
		return fmt.Errorf("usage: logs on|off")
	}
	c := s.manager.Client()
	if c == nil {
		return fmt.Errorf("not connected yet")
	}
	if args[0] == "on" {
		return c.EnableServerLogging(ctx)
	}
	return c.DisableServerLogging(ctx)
}

func (s *shell) showVersion() error {
	c := s.manager.Client()
	if c == nil {
		return fmt.Errorf("not connected yet")
	}
	info := c.Version()
	fmt.Printf("driver %s, server %s, schema %d (server supports %d..%d)\n",
		info.DriverVersion, info.ServerVersion, c.SchemaVersion(),
		info.MinSchemaVersion, info.MaxSchemaVersion)
	return nil
}

func (s *shell) listNodes() error {
	d, err := s.currentDriver()
	if err != nil {
		return err
	}
	nodes := d.Controller().Nodes()
	ids := make([]int, 0, len(nodes))
	for id := range nodes {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		n := nodes[id]
		name := n.Name()
		if name == "" {
			name = n.Label()
		}
		fmt.Printf("%3d  %-8s ready=%-5v %s\n", id, n.Status(), n.Ready(), name)
	}
	return nil
}

func (s *shell) withNode(args []string, fn func(*model.Node) error) error {
	if len(args) < 1 {
		return fmt.Errorf("node ID required")
	}
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("bad node ID %q", args[0])
	}
	d, err := s.currentDriver()
	if err != nil {
		return err
	}
	node := d.Controller().Node(id)
	if node == nil {
		return fmt.Errorf("node %d not found", id)
	}
	return fn(node)
}

func (s *shell) showNode(n *model.Node) error {
	fmt.Printf("node %d\n", n.NodeID())
	fmt.Printf("  status:    %s\n", n.Status())
	fmt.Printf("  ready:     %v\n", n.Ready())
	if name := n.Name(); name != "" {
		fmt.Printf("  name:      %s\n", name)
	}
	if loc := n.Location(); loc != "" {
		fmt.Printf("  location:  %s\n", loc)
	}
	if dc := n.DeviceClass(); dc != nil {
		fmt.Printf("  class:     %s / %s\n", dc.Generic.Label, dc.Specific.Label)
	}
	if cfg := n.DeviceConfig(); cfg != nil {
		fmt.Printf("  device:    %s %s\n", cfg.Manufacturer(), cfg.Label())
	}
	fmt.Printf("  values:    %d\n", len(n.Values()))
	fmt.Printf("  endpoints: %d\n", len(n.Endpoints()))
	return nil
}

func (s *shell) listValues(n *model.Node) error {
	ids := make([]string, 0, len(n.Values()))
	for id := range n.Values() {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		v := n.Value(id)
		label := v.Metadata().Label()
		if label == "" {
			label = v.PropertyName()
		}
		current, _ := json.Marshal(v.Current())
		fmt.Printf("  %-40s %-30s = %s", id, label, current)
		if unit := v.Metadata().Unit(); unit != "" {
			fmt.Printf(" %s", unit)
		}
		fmt.Println()
	}
	return nil
}

func (s *shell) setValue(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: setvalue <valueID> <json>")
	}
	valueID := args[0]
	var newValue any
	if err := json.Unmarshal([]byte(strings.Join(args[1:], " ")), &newValue); err != nil {
		return fmt.Errorf("bad value: %w", err)
	}

	nodeID, err := nodeIDFromValueID(valueID)
	if err != nil {
		return err
	}
	d, err := s.currentDriver()
	if err != nil {
		return err
	}
	node := d.Controller().Node(nodeID)
	if node == nil {
		return fmt.Errorf("node %d not found", nodeID)
	}
	_, err = node.SetValueByID(ctx, valueID, newValue, nil, model.WaitAuto)
	return err
}

func nodeIDFromValueID(valueID string) (int, error) {
	prefix, _, ok := strings.Cut(valueID, "-")
	if !ok {
		return 0, fmt.Errorf("bad value ID %q", valueID)
	}
	return strconv.Atoi(prefix)
}
