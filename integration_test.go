package zwsclient_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/zwavego/zwsclient/internal/testserver"
	"github.com/zwavego/zwsclient/pkg/client"
	"github.com/zwavego/zwsclient/pkg/connection"
	"github.com/zwavego/zwsclient/pkg/event"
	"github.com/zwavego/zwsclient/pkg/model"
)

func networkState() map[string]any {
	return map[string]any{
		"controller": map[string]any{
			"ownNodeId": float64(1),
			"homeId":    float64(3245146787),
		},
		"nodes": []any{
			map[string]any{
				"nodeId":         float64(2),
				"status":         float64(4),
				"ready":          true,
				"interviewStage": "Complete",
				"values": []any{
					map[string]any{
						"commandClass": float64(37),
						"endpoint":     float64(0),
						"property":     "currentValue",
						"value":        false,
						"metadata":     map[string]any{"type": "boolean", "writeable": false},
					},
				},
			},
		},
	}
}

func fastBackoff() connection.BackoffConfig {
	return connection.BackoffConfig{
		Initial:    20 * time.Millisecond,
		Max:        100 * time.Millisecond,
		Multiplier: 2.0,
		Jitter:     0,
	}
}

// TestE2E_Session drives a full session through the connection manager:
// bootstrap, event delivery into the graph, a node command, a connection
// drop with reconnect, and shutdown.
func TestE2E_Session(t *testing.T) {
	server := testserver.New(t, testserver.Config{State: networkState()})
	server.HandleResult("node.ping", map[string]any{"responded": true})

	m := connection.NewManager(server.URL(), connection.ManagerConfig{
		AutoReconnect: true,
		Backoff:       fastBackoff(),
	})

	drivers := make(chan *model.Driver, 4)
	m.OnDriverReady(func(d *model.Driver) { drivers <- d })

	ctx, cancel := context.WithCancel(context.Background())
	runErr := make(chan error, 1)
	go func() { runErr <- m.Run(ctx) }()

	var driver *model.Driver
	select {
	case driver = <-drivers:
	case <-time.After(5 * time.Second):
		t.Fatal("driver never became ready")
	}

	node := driver.Controller().Node(2)
	if node == nil {
		t.Fatal("node 2 missing from the graph")
	}
	value := node.Value("2-37-0-currentValue")
	if value == nil {
		t.Fatal("value 2-37-0-currentValue missing from the graph")
	}
	if got := value.Current(); got != false {
		t.Errorf("initial value = %v, want false", got)
	}

	// A server-pushed update mutates the existing value in place.
	updated := make(chan event.Event, 1)
	node.On("value updated", func(ev event.Event) { updated <- ev })
	server.SendEvent(map[string]any{
		"source": "node",
		"event":  "value updated",
		"nodeId": float64(2),
		"args": map[string]any{
			"commandClass": float64(37),
			"endpoint":     float64(0),
			"property":     "currentValue",
			"prevValue":    false,
			"newValue":     true,
		},
	})
	select {
	case ev := <-updated:
		if ev.Data["value"] != value {
			t.Error("update did not target the existing value instance")
		}
		if got := value.Current(); got != true {
			t.Errorf("value after update = %v, want true", got)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("value updated event never arrived")
	}

	responded, err := node.Ping(ctx)
	if err != nil {
		t.Fatalf("Ping failed: %v", err)
	}
	if !responded {
		t.Error("Ping reported no response")
	}
	if cmd := server.ReceivedCommand("node.ping"); cmd == nil {
		t.Error("server never received node.ping")
	} else if cmd["nodeId"] != float64(2) {
		t.Errorf("node.ping nodeId = %v, want 2", cmd["nodeId"])
	}

	// A dropped connection is rebuilt, including a fresh graph.
	server.DropConnection()
	var rebuilt *model.Driver
	select {
	case rebuilt = <-drivers:
	case <-time.After(5 * time.Second):
		t.Fatal("no driver after reconnect")
	}
	if rebuilt == driver {
		t.Error("reconnect reused the old driver graph")
	}
	if rebuilt.Controller().Node(2) == nil {
		t.Error("node 2 missing after reconnect")
	}

	cancel()
	select {
	case err := <-runErr:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run() error = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

// TestE2E_CommandFailure verifies a server-side failure surfaces as a typed
// error through the graph's command surface.
func TestE2E_CommandFailure(t *testing.T) {
	server := testserver.New(t, testserver.Config{State: networkState()})
	server.HandleError("node.ping", "unknown_command")

	c := client.New(server.URL(), client.Config{})
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer c.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ready := make(chan struct{})
	go c.Listen(ctx, ready)
	select {
	case <-ready:
	case <-time.After(5 * time.Second):
		t.Fatal("driver not ready in time")
	}

	_, err := c.Driver().Controller().Node(2).Ping(ctx)
	var failed *client.FailedCommandError
	if !errors.As(err, &failed) {
		t.Fatalf("Ping error = %v, want FailedCommandError", err)
	}
	if failed.ErrorCode != "unknown_command" {
		t.Errorf("ErrorCode = %q, want %q", failed.ErrorCode, "unknown_command")
	}
}
