// Command zwave-dump connects to a Z-Wave JS server and prints the
// network state as JSON.
//
// Usage:
//
//	zwave-dump [flags]
//
// Examples:
//
//	# Dump the full network state
//	zwave-dump -url ws://localhost:3000
//
//	# Dump a single node
//	zwave-dump -url ws://localhost:3000 -node 52
//
//	# Only print the server version handshake
//	zwave-dump -url ws://localhost:3000 -version
//
//	# Dump the state, then print incoming events for 30 seconds
//	zwave-dump -url ws://localhost:3000 -events-for 30s
//
// Flags can also come from a YAML config file via -config.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/zwavego/zwsclient/pkg/client"
	"github.com/zwavego/zwsclient/pkg/event"
	"github.com/zwavego/zwsclient/pkg/model"
)

type fileConfig struct {
	URL               string        `yaml:"url"`
	SchemaVersion     int           `yaml:"schemaVersion"`
	StatusWaitTimeout time.Duration `yaml:"statusWaitTimeout"`
	LogLevel          string        `yaml:"logLevel"`
}

func main() {
	var (
		configPath  = flag.String("config", "", "path to a YAML config file")
		url         = flag.String("url", "ws://localhost:3000", "websocket URL of the Z-Wave JS server")
		schemaPin   = flag.Int("schema", 0, "pin the API schema version (0 = highest supported)")
		timeout     = flag.Duration("timeout", 30*time.Second, "overall timeout for the dump")
		nodeID      = flag.Int("node", 0, "dump a single node instead of the whole network")
		versionOnly = flag.Bool("version", false, "only print the server version handshake")
		eventsFor   = flag.Duration("events-for", 0, "after the dump, print incoming events for this long")
		logLevel    = flag.String("log-level", "warn", "log level: debug, info, warn, error")
	)
	flag.Parse()

	cfg := fileConfig{
		URL:           *url,
		SchemaVersion: *schemaPin,
		LogLevel:      *logLevel,
	}
	if *configPath != "" {
		if err := loadConfig(*configPath, &cfg); err != nil {
			fmt.Fprintf(os.Stderr, "zwave-dump: %v\n", err)
			os.Exit(1)
		}
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLevel(cfg.LogLevel),
	}))

	ctx, cancel := context.WithTimeout(context.Background(), *timeout+*eventsFor)
	defer cancel()

	if err := run(ctx, cfg, logger, *nodeID, *versionOnly, *eventsFor); err != nil {
		fmt.Fprintf(os.Stderr, "zwave-dump: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(path string, cfg *fileConfig) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

func run(ctx context.Context, cfg fileConfig, logger *slog.Logger, nodeID int, versionOnly bool, eventsFor time.Duration) error {
	if versionOnly {
		info, err := client.ServerVersion(ctx, cfg.URL)
		if err != nil {
			return err
		}
		return printJSON(map[string]any{
			"driverVersion":    info.DriverVersion,
			"serverVersion":    info.ServerVersion,
			"homeId":           info.HomeID,
			"minSchemaVersion": info.MinSchemaVersion,
			"maxSchemaVersion": info.MaxSchemaVersion,
		})
	}

	c := client.New(cfg.URL, client.Config{
		Logger:            logger,
		SchemaVersion:     cfg.SchemaVersion,
		StatusWaitTimeout: cfg.StatusWaitTimeout,
	})
	if err := c.Connect(ctx); err != nil {
		return err
	}
	defer c.Close()

	ready := make(chan struct{})
	listenErr := make(chan error, 1)
	listenCtx, stopListen := context.WithCancel(ctx)
	defer stopListen()
	go func() {
		listenErr <- c.Listen(listenCtx, ready)
	}()

	select {
	case <-ready:
	case err := <-listenErr:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}

	driver := c.Driver()
	if nodeID > 0 {
		node := driver.Controller().Node(nodeID)
		if node == nil {
			return fmt.Errorf("node %d not found", nodeID)
		}
		if err := printJSON(dumpNode(node)); err != nil {
			return err
		}
	} else if err := printJSON(dumpNetwork(c, driver)); err != nil {
		return err
	}

	if eventsFor > 0 {
		return captureEvents(ctx, driver, eventsFor, listenErr)
	}
	return nil
}

// captureEvents prints incoming state events as JSON lines until the
// duration elapses or the connection drops.
func captureEvents(ctx context.Context, driver *model.Driver, d time.Duration, listenErr <-chan error) error {
	enc := json.NewEncoder(os.Stdout)
	print := func(entity string) event.Callback {
		return func(ev event.Event) {
			record := map[string]any{
				"time":   time.Now().Format(time.RFC3339Nano),
				"source": entity,
				"event":  ev.Type,
			}
			if node, ok := ev.Data["node"].(*model.Node); ok {
				record["nodeId"] = node.NodeID()
			}
			if value, ok := ev.Data["value"].(*model.Value); ok {
				record["valueId"] = value.ID()
				record["value"] = value.Current()
			}
			enc.Encode(record)
		}
	}

	controller := driver.Controller()
	for _, name := range []string{
		"node added", "node removed",
		"inclusion started", "inclusion stopped",
		"exclusion started", "exclusion stopped",
	} {
		controller.On(name, print("controller"))
	}
	for _, node := range controller.Nodes() {
		for _, name := range []string{
			"value updated", "value added", "value removed",
			"sleep", "wake up", "dead", "alive", "ready",
			"interview started", "interview completed",
		} {
			node.On(name, print("node"))
		}
	}

	select {
	case <-time.After(d):
		return nil
	case err := <-listenErr:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func dumpNetwork(c *client.Client, driver *model.Driver) map[string]any {
	controller := driver.Controller()

	nodes := make([]map[string]any, 0, len(controller.Nodes()))
	for _, node := range controller.Nodes() {
		nodes = append(nodes, dumpNode(node))
	}

	version := c.Version()
	return map[string]any{
		"server": map[string]any{
			"driverVersion": version.DriverVersion,
			"serverVersion": version.ServerVersion,
			"homeId":        version.HomeID,
			"schemaVersion": c.SchemaVersion(),
		},
		"controller": controller.Data(),
		"nodes":      nodes,
	}
}

func dumpNode(node *model.Node) map[string]any {
	values := make(map[string]any, len(node.Values()))
	for id, value := range node.Values() {
		values[id] = map[string]any{
			"value":    value.Current(),
			"metadata": value.Metadata().Data(),
		}
	}
	return map[string]any{
		"nodeId":   node.NodeID(),
		"status":   node.Status().String(),
		"ready":    node.Ready(),
		"name":     node.Name(),
		"location": node.Location(),
		"data":     node.Data(),
		"values":   values,
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
