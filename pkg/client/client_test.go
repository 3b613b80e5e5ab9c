package client

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zwavego/zwsclient/internal/testserver"
	"github.com/zwavego/zwsclient/pkg/event"
	"github.com/zwavego/zwsclient/pkg/model"
	"github.com/zwavego/zwsclient/pkg/schema"
	"github.com/zwavego/zwsclient/pkg/wire"
)

func testState() map[string]any {
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

// startListening connects, runs Listen in the background, and waits for
// the driver graph. The returned cancel stops the listen loop.
func startListening(t *testing.T, server *testserver.Server) (*Client, context.CancelFunc) {
	t.Helper()

	c := New(server.URL(), Config{})
	require.NoError(t, c.Connect(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	ready := make(chan struct{})
	listenErr := make(chan error, 1)
	go func() {
		listenErr <- c.Listen(ctx, ready)
	}()

	select {
	case <-ready:
	case err := <-listenErr:
		cancel()
		t.Fatalf("listen failed before driver ready: %v", err)
	case <-time.After(5 * time.Second):
		cancel()
		t.Fatal("driver not ready in time")
	}

	t.Cleanup(func() {
		cancel()
		c.Close()
	})
	return c, cancel
}

func TestConnectNegotiatesSchema(t *testing.T) {
	server := testserver.New(t, testserver.Config{})
	c := New(server.URL(), Config{})

	require.NoError(t, c.Connect(context.Background()))
	defer c.Close()

	assert.Equal(t, StateConnected, c.State())
	assert.Equal(t, 45, c.SchemaVersion())
	assert.Equal(t, "15.9.0", c.Version().DriverVersion)
}

func TestConnectPinnedSchema(t *testing.T) {
	server := testserver.New(t, testserver.Config{})
	c := New(server.URL(), Config{SchemaVersion: 33})

	require.NoError(t, c.Connect(context.Background()))
	defer c.Close()
	assert.Equal(t, 33, c.SchemaVersion())
}

func TestConnectIncompatibleSchema(t *testing.T) {
	server := testserver.New(t, testserver.Config{
		MinSchemaVersion: 50,
		MaxSchemaVersion: 60,
	})
	c := New(server.URL(), Config{})

	err := c.Connect(context.Background())
	var incompatible *schema.IncompatibleVersionError
	require.ErrorAs(t, err, &incompatible)
	assert.Equal(t, 50, incompatible.ServerMin)
	assert.Equal(t, StateDisconnected, c.State())
}

func TestConnectRefused(t *testing.T) {
	c := New("ws://127.0.0.1:1", Config{DialTimeout: time.Second})

	err := c.Connect(context.Background())
	var cannotConnect *CannotConnectError
	require.ErrorAs(t, err, &cannotConnect)
}

func TestConnectTwice(t *testing.T) {
	server := testserver.New(t, testserver.Config{})
	c := New(server.URL(), Config{})

	require.NoError(t, c.Connect(context.Background()))
	defer c.Close()
	assert.ErrorIs(t, c.Connect(context.Background()), ErrAlreadyConnected)
}

func TestListenBuildsDriver(t *testing.T) {
	server := testserver.New(t, testserver.Config{State: testState()})
	c, _ := startListening(t, server)

	driver := c.Driver()
	require.NotNil(t, driver)
	require.NotNil(t, driver.Controller().Node(2))
	assert.Equal(t, "info", driver.LogConfig().Level)

	// Bootstrap used the fixed message IDs in order.
	received := server.Received()
	require.Len(t, received, 3)
	assert.Equal(t, "initialize", received[0]["messageId"])
	assert.Equal(t, float64(45), received[0]["schemaVersion"])
	assert.Equal(t, "get-initial-log-config", received[1]["messageId"])
	assert.Equal(t, "start-listening", received[2]["messageId"])
}

func TestSendCommand(t *testing.T) {
	server := testserver.New(t, testserver.Config{State: testState()})
	c, _ := startListening(t, server)
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		server.HandleResult("controller.get_state", map[string]any{
			"state": map[string]any{"inclusionState": float64(0)},
		})
		state, err := c.Driver().Controller().GetState(ctx)
		require.NoError(t, err)
		assert.Equal(t, float64(0), state["inclusionState"])
	})

	t.Run("Failure", func(t *testing.T) {
		server.HandleError("node.ping", "zwave_error")
		_, err := c.SendCommand(ctx, wire.NewCommand("node.ping").With("nodeId", 2), 0)
		var failed *FailedZWaveCommandError
		require.ErrorAs(t, err, &failed)
	})

	t.Run("GenericFailure", func(t *testing.T) {
		server.HandleError("driver.shutdown", "unknown_command")
		_, err := c.SendCommand(ctx, wire.NewCommand("driver.shutdown"), 0)
		var failed *FailedCommandError
		require.ErrorAs(t, err, &failed)
		assert.Equal(t, "unknown_command", failed.ErrorCode)
	})

	t.Run("SchemaGate", func(t *testing.T) {
		before := len(server.Received())
		_, err := c.SendCommand(ctx, wire.NewCommand("node.futuristic"), c.SchemaVersion()+1)
		var required *SchemaRequiredError
		require.ErrorAs(t, err, &required)
		assert.Equal(t, before, len(server.Received()), "gated command must not reach the wire")
	})

	t.Run("ContextCancelled", func(t *testing.T) {
		server.Handle("node.slow", func(map[string]any) (map[string]any, string) {
			time.Sleep(time.Second)
			return map[string]any{}, ""
		})
		shortCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
		defer cancel()
		_, err := c.SendCommand(shortCtx, wire.NewCommand("node.slow"), 0)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestSendCommandNotConnected(t *testing.T) {
	c := New("ws://127.0.0.1:1", Config{})
	_, err := c.SendCommand(context.Background(), wire.NewCommand("driver.shutdown"), 0)
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestEventsReachTheGraph(t *testing.T) {
	server := testserver.New(t, testserver.Config{State: testState()})
	c, _ := startListening(t, server)

	node := c.Driver().Controller().Node(2)
	require.NotNil(t, node)

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
		value, ok := ev.Data["value"].(*model.Value)
		require.True(t, ok)
		assert.Equal(t, true, value.Current())
	case <-time.After(5 * time.Second):
		t.Fatal("value updated event not delivered")
	}
}

func TestInvalidEventDropped(t *testing.T) {
	server := testserver.New(t, testserver.Config{State: testState()})
	c, _ := startListening(t, server)

	node := c.Driver().Controller().Node(2)
	updated := make(chan event.Event, 1)
	node.On("value updated", func(ev event.Event) { updated <- ev })

	// Missing required "args": must be dropped before the graph sees it.
	server.SendEvent(map[string]any{
		"source": "node",
		"event":  "value updated",
		"nodeId": float64(2),
	})
	// A valid event after it proves the loop survived.
	server.SendEvent(map[string]any{
		"source": "node",
		"event":  "value updated",
		"nodeId": float64(2),
		"args": map[string]any{
			"commandClass": float64(37),
			"endpoint":     float64(0),
			"property":     "currentValue",
			"newValue":     true,
		},
	})

	select {
	case ev := <-updated:
		args, _ := ev.Data["args"].(map[string]any)
		require.NotNil(t, args, "the malformed event must not be the one delivered")
	case <-time.After(5 * time.Second):
		t.Fatal("valid event not delivered")
	}
}

func TestListenReturnsOnConnectionLoss(t *testing.T) {
	server := testserver.New(t, testserver.Config{State: testState()})

	c := New(server.URL(), Config{})
	require.NoError(t, c.Connect(context.Background()))

	ready := make(chan struct{})
	listenErr := make(chan error, 1)
	go func() {
		listenErr <- c.Listen(context.Background(), ready)
	}()
	<-ready

	server.DropConnection()

	select {
	case err := <-listenErr:
		require.Error(t, err)
		assert.Equal(t, StateDisconnected, c.State())
	case <-time.After(5 * time.Second):
		t.Fatal("listen did not return after connection loss")
	}
}

func TestMessageRecording(t *testing.T) {
	server := testserver.New(t, testserver.Config{State: testState()})
	c, _ := startListening(t, server)

	require.NoError(t, c.BeginRecordingMessages())
	assert.Error(t, c.BeginRecordingMessages())

	server.HandleResult("driver.is_statistics_enabled", map[string]any{"statisticsEnabled": false})
	_, err := c.Driver().IsStatisticsEnabled(context.Background())
	require.NoError(t, err)

	recorded := c.EndRecordingMessages()
	require.Len(t, recorded, 2)
	assert.Equal(t, DirectionOutgoing, recorded[0].Direction)
	assert.Equal(t, DirectionIncoming, recorded[1].Direction)

	var sent map[string]any
	require.NoError(t, json.Unmarshal(recorded[0].Payload, &sent))
	assert.Equal(t, "driver.is_statistics_enabled", sent["command"])

	assert.Empty(t, c.EndRecordingMessages(), "recording buffer cleared")
}

func TestCloseReleasesWaiters(t *testing.T) {
	server := testserver.New(t, testserver.Config{State: testState()})
	c, _ := startListening(t, server)

	server.Handle("node.slow", func(map[string]any) (map[string]any, string) {
		time.Sleep(time.Second)
		return map[string]any{}, ""
	})

	errCh := make(chan error, 1)
	go func() {
		_, err := c.SendCommand(context.Background(), wire.NewCommand("node.slow"), 0)
		errCh <- err
	}()

	time.Sleep(50 * time.Millisecond)
	c.Close()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, ErrConnectionClosed)
	case <-time.After(5 * time.Second):
		t.Fatal("waiter not released by close")
	}
}

func TestServerVersion(t *testing.T) {
	server := testserver.New(t, testserver.Config{})

	info, err := ServerVersion(context.Background(), server.URL())
	require.NoError(t, err)
	assert.Equal(t, "3.2.0", info.ServerVersion)
	assert.Equal(t, 31, info.MinSchemaVersion)
	assert.Equal(t, 45, info.MaxSchemaVersion)
}
