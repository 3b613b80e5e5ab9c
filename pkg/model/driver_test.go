package model

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zwavego/zwsclient/pkg/event"
)

func newTestDriver(t *testing.T, sender CommandSender) *Driver {
	t.Helper()
	logConfig := decodeJSON(t, `{"enabled": true, "level": "info"}`)
	return NewDriver(sender, nil, decodeJSON(t, testControllerState), logConfig, 0)
}

func TestDriverFromState(t *testing.T) {
	d := newTestDriver(t, newFakeSender())

	require.NotNil(t, d.Controller())
	require.NotNil(t, d.Controller().Node(52))
	require.NotNil(t, d.LogConfig().Enabled)
	assert.True(t, *d.LogConfig().Enabled)
	assert.Equal(t, "info", d.LogConfig().Level)
}

func TestDriverRoutesEventsDownTheGraph(t *testing.T) {
	d := newTestDriver(t, newFakeSender())

	d.ReceiveEvent(&event.Event{Type: "sleep", Data: map[string]any{
		"source": "node",
		"nodeId": float64(52),
	}})
	assert.Equal(t, NodeStatusAsleep, d.Controller().Node(52).Status())

	d.ReceiveEvent(&event.Event{Type: "status changed", Data: map[string]any{
		"source": "controller", "status": float64(1),
	}})
	assert.Equal(t, 1, d.Controller().Status())
}

func TestDriverLoggingEvent(t *testing.T) {
	d := newTestDriver(t, newFakeSender())

	var seen event.Event
	d.On("logging", func(ev event.Event) { seen = ev })
	d.ReceiveEvent(&event.Event{Type: "logging", Data: decodeJSON(t, `{
		"source": "driver",
		"message": "line one\nline two\n",
		"formattedMessage": ["first", "second"],
		"level": "debug",
		"direction": "  "
	}`)})

	msg, ok := seen.Data["logMessage"].(*LogMessage)
	require.True(t, ok)
	assert.Equal(t, []string{"line one", "line two"}, msg.Message())
	assert.Equal(t, []string{"first", "second"}, msg.FormattedMessage())
	assert.Equal(t, "debug", msg.Level())
}

func TestDriverLogConfigUpdatedEvent(t *testing.T) {
	d := newTestDriver(t, newFakeSender())

	d.ReceiveEvent(&event.Event{Type: "log config updated", Data: decodeJSON(t, `{
		"source": "driver",
		"config": {"enabled": false, "level": "error"}
	}`)})

	require.NotNil(t, d.LogConfig().Enabled)
	assert.False(t, *d.LogConfig().Enabled)
	assert.Equal(t, "error", d.LogConfig().Level)
}

func TestDriverFirmwareUpdateEvents(t *testing.T) {
	d := newTestDriver(t, newFakeSender())

	d.ReceiveEvent(&event.Event{Type: "firmware update progress", Data: decodeJSON(t, `{
		"source": "driver",
		"progress": {"sentFragments": 10, "totalFragments": 40, "progress": 25.0}
	}`)})
	require.NotNil(t, d.FirmwareUpdateProgress())
	assert.Equal(t, 25.0, d.FirmwareUpdateProgress().Progress())

	d.ReceiveEvent(&event.Event{Type: "firmware update finished", Data: decodeJSON(t, `{
		"source": "driver",
		"result": {"status": 255, "success": true}
	}`)})
	assert.Nil(t, d.FirmwareUpdateProgress())
}

func TestDriverCommands(t *testing.T) {
	sender := newFakeSender()
	d := newTestDriver(t, sender)

	t.Run("GetLogConfig", func(t *testing.T) {
		sender.results["driver.get_log_config"] = decodeJSON(t, `{
			"config": {"enabled": true, "level": "silly"}
		}`)
		cfg, err := d.GetLogConfig(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "silly", cfg.Level)
	})

	t.Run("UpdateLogConfig", func(t *testing.T) {
		require.NoError(t, d.UpdateLogConfig(context.Background(), LogConfig{Level: "error"}))
		cmd := sender.lastSent()
		assert.Equal(t, "driver.update_log_config", cmd.Command())
		assert.Equal(t, map[string]any{"level": "error"}, cmd["config"])
	})

	t.Run("IsStatisticsEnabled", func(t *testing.T) {
		sender.results["driver.is_statistics_enabled"] = map[string]any{"statisticsEnabled": true}
		enabled, err := d.IsStatisticsEnabled(context.Background())
		require.NoError(t, err)
		assert.True(t, enabled)
	})

	t.Run("CheckForConfigUpdates", func(t *testing.T) {
		sender.results["driver.check_for_config_updates"] = decodeJSON(t, `{
			"installedVersion": "2026.1.0",
			"updateAvailable": true,
			"newVersion": "2026.2.0"
		}`)
		check, err := d.CheckForConfigUpdates(context.Background())
		require.NoError(t, err)
		assert.True(t, check.UpdateAvailable)
		assert.Equal(t, "2026.2.0", check.NewVersion)
	})

	t.Run("Shutdown", func(t *testing.T) {
		sender.results["driver.shutdown"] = map[string]any{"success": true}
		ok, err := d.Shutdown(context.Background())
		require.NoError(t, err)
		assert.True(t, ok)
	})
}

func TestLogConfigRoundTrip(t *testing.T) {
	enabled := true
	cfg := LogConfig{Enabled: &enabled, Level: "warn"}
	data := cfg.ToData()
	assert.Equal(t, map[string]any{"enabled": true, "level": "warn"}, data)

	parsed := LogConfigFromData(data)
	require.NotNil(t, parsed.Enabled)
	assert.True(t, *parsed.Enabled)
	assert.Equal(t, "warn", parsed.Level)
	assert.Nil(t, parsed.LogToFile)
}
