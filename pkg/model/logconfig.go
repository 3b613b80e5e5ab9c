package model

import (
	"strings"
)

// LogConfig mirrors the driver's logging configuration. Unset fields are
// omitted when serialized so partial updates only touch the given keys.
type LogConfig struct {
	Enabled      *bool
	Level        string
	LogToFile    *bool
	Filename     string
	ForceConsole *bool
}

// LogConfigFromData builds a LogConfig from a raw snapshot.
func LogConfigFromData(data map[string]any) LogConfig {
	var cfg LogConfig
	if enabled, ok := getBoolOK(data, "enabled"); ok {
		cfg.Enabled = &enabled
	}
	cfg.Level = getString(data, "level")
	if toFile, ok := getBoolOK(data, "logToFile"); ok {
		cfg.LogToFile = &toFile
	}
	cfg.Filename = getString(data, "filename")
	if force, ok := getBoolOK(data, "forceConsole"); ok {
		cfg.ForceConsole = &force
	}
	return cfg
}

// ToData serializes the config, dropping unset fields.
func (c LogConfig) ToData() map[string]any {
	data := map[string]any{}
	if c.Enabled != nil {
		data["enabled"] = *c.Enabled
	}
	if c.Level != "" {
		data["level"] = c.Level
	}
	if c.LogToFile != nil {
		data["logToFile"] = *c.LogToFile
	}
	if c.Filename != "" {
		data["filename"] = c.Filename
	}
	if c.ForceConsole != nil {
		data["forceConsole"] = *c.ForceConsole
	}
	return data
}

// LogMessage is the structured view of a driver "logging" event.
type LogMessage struct {
	data map[string]any
}

// NewLogMessage wraps a raw logging event payload.
func NewLogMessage(data map[string]any) *LogMessage {
	return &LogMessage{data: data}
}

func (m *LogMessage) Data() map[string]any { return m.data }

// Message returns the log message split into lines. The server sends either
// a single string or a list of lines.
func (m *LogMessage) Message() []string { return splitMessage(m.data["message"]) }

// FormattedMessage returns the formatted log message split into lines.
func (m *LogMessage) FormattedMessage() []string { return splitMessage(m.data["formattedMessage"]) }

func (m *LogMessage) Direction() string { return getString(m.data, "direction") }
func (m *LogMessage) Level() string     { return getString(m.data, "level") }
func (m *LogMessage) Timestamp() string { return getString(m.data, "timestamp") }
func (m *LogMessage) Label() string     { return getString(m.data, "label") }

func (m *LogMessage) PrimaryTags() string   { return getString(m.data, "primaryTags") }
func (m *LogMessage) SecondaryTags() string { return getString(m.data, "secondaryTags") }

// Context returns the raw log context (source, node, direction, ...).
func (m *LogMessage) Context() map[string]any { return getMap(m.data, "context") }

func splitMessage(raw any) []string {
	switch v := raw.(type) {
	case string:
		return strings.Split(strings.TrimRight(v, "\n"), "\n")
	case []any:
		out := make([]string, 0, len(v))
		for _, line := range v {
			if s, ok := line.(string); ok {
				out = append(out, strings.TrimRight(s, "\n"))
			}
		}
		return out
	default:
		return nil
	}
}
