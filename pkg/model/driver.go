package model

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/zwavego/zwsclient/pkg/event"
	"github.com/zwavego/zwsclient/pkg/wire"
)

// ConfigUpdateCheck is the result of checking for device config database
// updates.
type ConfigUpdateCheck struct {
	InstalledVersion string
	UpdateAvailable  bool
	NewVersion       string
}

// Driver is the root of the device graph. It owns the controller, the log
// config, and the driver-level event surface.
type Driver struct {
	event.Emitter

	sender CommandSender
	logger *slog.Logger

	controller *Controller

	mu               sync.RWMutex
	logConfig        LogConfig
	firmwareProgress *FirmwareUpdateProgress
}

// NewDriver builds the driver from the start-listening state dump and the
// initial log config.
func NewDriver(sender CommandSender, logger *slog.Logger, state map[string]any, logConfig map[string]any, statusWaitTimeout time.Duration) *Driver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Driver{
		sender:     sender,
		logger:     logger.With("component", "driver"),
		controller: NewController(sender, logger, state, statusWaitTimeout),
		logConfig:  LogConfigFromData(logConfig),
	}
}

// Controller returns the network controller.
func (d *Driver) Controller() *Controller { return d.controller }

// LogConfig returns the driver's current logging configuration.
func (d *Driver) LogConfig() LogConfig {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.logConfig
}

// FirmwareUpdateProgress returns the in-flight controller firmware update,
// or nil.
func (d *Driver) FirmwareUpdateProgress() *FirmwareUpdateProgress {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.firmwareProgress
}

// ReceiveEvent applies a driver event, or forwards node and controller
// events down the graph.
func (d *Driver) ReceiveEvent(ev *event.Event) {
	if getString(ev.Data, "source") != wire.SourceDriver {
		d.controller.ReceiveEvent(ev)
		return
	}

	d.handleEvent(ev)
	d.Emit(*ev)
}

func (d *Driver) handleEvent(ev *event.Event) {
	switch ev.Type {
	case "logging":
		ev.Data["logMessage"] = NewLogMessage(ev.Data)
	case "log config updated":
		cfg := LogConfigFromData(getMap(ev.Data, "config"))
		d.mu.Lock()
		d.logConfig = cfg
		d.mu.Unlock()
		ev.Data["logConfig"] = cfg
	case "firmware update progress":
		progress := NewFirmwareUpdateProgress(getMap(ev.Data, "progress"))
		d.mu.Lock()
		d.firmwareProgress = progress
		d.mu.Unlock()
		ev.Data["firmwareUpdateProgress"] = progress
	case "firmware update finished":
		d.mu.Lock()
		d.firmwareProgress = nil
		d.mu.Unlock()
		ev.Data["firmwareUpdateFinished"] = NewFirmwareUpdateResult(getMap(ev.Data, "result"))
	case "driver ready", "all nodes ready":
		// Notification only.
	default:
		d.logger.Debug("unhandled driver event", "event", ev.Type)
	}
}

func (d *Driver) sendCommand(ctx context.Context, name string, params map[string]any, requireSchema int) (map[string]any, error) {
	cmd := wire.NewCommand("driver." + name)
	for k, v := range params {
		cmd.With(k, v)
	}
	return d.sender.SendCommand(ctx, cmd, requireSchema)
}

// GetLogConfig fetches the driver's current log config from the server.
func (d *Driver) GetLogConfig(ctx context.Context) (LogConfig, error) {
	data, err := d.sendCommand(ctx, "get_log_config", nil, 4)
	if err != nil {
		return LogConfig{}, err
	}
	return LogConfigFromData(getMap(data, "config")), nil
}

// UpdateLogConfig pushes a log config change to the server.
func (d *Driver) UpdateLogConfig(ctx context.Context, cfg LogConfig) error {
	_, err := d.sendCommand(ctx, "update_log_config", map[string]any{
		"config": cfg.ToData(),
	}, 4)
	return err
}

// EnableStatistics opts in to anonymized usage statistics collection.
func (d *Driver) EnableStatistics(ctx context.Context, applicationName, applicationVersion string) error {
	_, err := d.sendCommand(ctx, "enable_statistics", map[string]any{
		"applicationName":    applicationName,
		"applicationVersion": applicationVersion,
	}, 4)
	return err
}

// DisableStatistics opts out of usage statistics collection.
func (d *Driver) DisableStatistics(ctx context.Context) error {
	_, err := d.sendCommand(ctx, "disable_statistics", nil, 4)
	return err
}

// IsStatisticsEnabled reports whether usage statistics are being collected.
func (d *Driver) IsStatisticsEnabled(ctx context.Context) (bool, error) {
	data, err := d.sendCommand(ctx, "is_statistics_enabled", nil, 4)
	if err != nil {
		return false, err
	}
	return getBool(data, "statisticsEnabled"), nil
}

// CheckForConfigUpdates checks whether a device config database update is
// available.
func (d *Driver) CheckForConfigUpdates(ctx context.Context) (ConfigUpdateCheck, error) {
	data, err := d.sendCommand(ctx, "check_for_config_updates", nil, 5)
	if err != nil {
		return ConfigUpdateCheck{}, err
	}
	return ConfigUpdateCheck{
		InstalledVersion: getString(data, "installedVersion"),
		UpdateAvailable:  getBool(data, "updateAvailable"),
		NewVersion:       getString(data, "newVersion"),
	}, nil
}

// InstallConfigUpdate installs an available device config database update.
func (d *Driver) InstallConfigUpdate(ctx context.Context) (bool, error) {
	data, err := d.sendCommand(ctx, "install_config_update", nil, 5)
	if err != nil {
		return false, err
	}
	return getBool(data, "success"), nil
}

// TrySoftReset soft-resets the controller if the driver believes it is safe.
func (d *Driver) TrySoftReset(ctx context.Context) error {
	_, err := d.sendCommand(ctx, "try_soft_reset", nil, 25)
	return err
}

// SoftReset soft-resets the controller unconditionally.
func (d *Driver) SoftReset(ctx context.Context) error {
	_, err := d.sendCommand(ctx, "soft_reset", nil, 25)
	return err
}

// HardReset factory-resets the controller. All network information is lost.
func (d *Driver) HardReset(ctx context.Context) error {
	_, err := d.sendCommand(ctx, "hard_reset", nil, 25)
	return err
}

// Shutdown asks the controller to shut down cleanly.
func (d *Driver) Shutdown(ctx context.Context) (bool, error) {
	data, err := d.sendCommand(ctx, "shutdown", nil, 27)
	if err != nil {
		return false, err
	}
	return getBool(data, "success"), nil
}
