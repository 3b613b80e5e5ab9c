package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// CommandClassConfiguration identifies the Configuration command class.
// Values belonging to it are wrapped in ConfigurationValue.
const CommandClassConfiguration = 0x70

// valueUnknown is the sentinel the server uses for values it cannot read.
const valueUnknown = "unknown"

// ValueIDString computes the canonical string ID for a value on a node.
// The endpoint defaults to the root endpoint; the property key only
// contributes when present.
func ValueIDString(nodeID int, commandClass int, property any, endpoint int, propertyKey any) string {
	id := fmt.Sprintf("%d-%d-%d-%s", nodeID, commandClass, endpoint, formatPropertyPart(property))
	if propertyKey != nil {
		id += "-" + formatPropertyPart(propertyKey)
	}
	return id
}

// valueIDFromData computes the value ID from a raw value snapshot.
func valueIDFromData(nodeID int, data map[string]any) string {
	endpoint := getInt(data, "endpoint")
	return ValueIDString(nodeID, getInt(data, "commandClass"), data["property"], endpoint, data["propertyKey"])
}

// valueIDPayload builds the valueId object sent with value-addressed
// commands. Optional parts are omitted when absent, matching what the
// server expects.
func valueIDPayload(data map[string]any) map[string]any {
	payload := map[string]any{
		"commandClass": data["commandClass"],
		"property":     data["property"],
	}
	if endpoint, ok := data["endpoint"]; ok && endpoint != nil {
		payload["endpoint"] = endpoint
	}
	if propertyKey, ok := data["propertyKey"]; ok && propertyKey != nil {
		payload["propertyKey"] = propertyKey
	}
	return payload
}

// ParseBuffer decodes a buffer-typed value into its string form. The server
// sends buffers either as {"type": "Buffer", "data": [bytes...]} objects or
// as the same object serialized into a JSON string.
func ParseBuffer(value any) (string, error) {
	switch v := value.(type) {
	case string:
		if !strings.HasPrefix(v, "{") || !strings.HasSuffix(v, "}") {
			return v, nil
		}
		var parsed map[string]any
		if err := json.Unmarshal([]byte(v), &parsed); err != nil {
			return "", &UnparseableValueError{Value: value}
		}
		return parseBufferObject(parsed, value)
	case map[string]any:
		return parseBufferObject(v, value)
	default:
		return "", &UnparseableValueError{Value: value}
	}
}

func parseBufferObject(parsed map[string]any, original any) (string, error) {
	if getString(parsed, "type") != "Buffer" {
		return "", &UnparseableValueError{Value: original}
	}
	raw, ok := parsed["data"].([]any)
	if !ok {
		return "", &UnparseableValueError{Value: original}
	}
	var sb strings.Builder
	for _, b := range raw {
		f, ok := b.(float64)
		if !ok {
			return "", &UnparseableValueError{Value: original}
		}
		sb.WriteRune(rune(int(f)))
	}
	return sb.String(), nil
}

// ValueMetadata describes a value's type, bounds and writability.
type ValueMetadata struct {
	guarded
}

// NewValueMetadata wraps a raw metadata snapshot.
func NewValueMetadata(data map[string]any) *ValueMetadata {
	if data == nil {
		data = map[string]any{"type": "unknown"}
	}
	m := &ValueMetadata{}
	m.data = data
	return m
}

// Data returns a copy of the raw metadata snapshot.
func (m *ValueMetadata) Data() map[string]any { return m.snapshot() }

func (m *ValueMetadata) Type() string        { return m.getString("type") }
func (m *ValueMetadata) Label() string       { return m.getString("label") }
func (m *ValueMetadata) Description() string { return m.getString("description") }
func (m *ValueMetadata) Unit() string        { return m.getString("unit") }

// Readable reports whether the value can be read; ok is false when the
// snapshot does not carry the key.
func (m *ValueMetadata) Readable() (bool, bool)  { return m.getBoolOK("readable") }
func (m *ValueMetadata) Writeable() (bool, bool) { return m.getBoolOK("writeable") }

func (m *ValueMetadata) Min() (int, bool)     { return m.getIntOK("min") }
func (m *ValueMetadata) Max() (int, bool)     { return m.getIntOK("max") }
func (m *ValueMetadata) Default() (int, bool) { return m.getIntOK("default") }

// States maps raw state values to their display labels.
func (m *ValueMetadata) States() map[string]any { return m.getMap("states") }

// CCSpecific returns command-class specific metadata.
func (m *ValueMetadata) CCSpecific() map[string]any { return m.getMap("ccSpecific") }

// ValueChangeOptions lists the option names accepted by set-value commands.
func (m *ValueMetadata) ValueChangeOptions() []string {
	m.dataMu.RLock()
	defer m.dataMu.RUnlock()
	raw := getSlice(m.data, "valueChangeOptions")
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func (m *ValueMetadata) AllowManualEntry() bool { return m.getBool("allowManualEntry") }
func (m *ValueMetadata) ValueSize() (int, bool) { return m.getIntOK("valueSize") }
func (m *ValueMetadata) Stateful() (bool, bool) { return m.getBoolOK("stateful") }
func (m *ValueMetadata) Secret() (bool, bool)   { return m.getBoolOK("secret") }

// Format returns the configuration value format (signed/unsigned/enumerated/
// bit field); ok is false when unset.
func (m *ValueMetadata) Format() (int, bool) { return m.getIntOK("format") }

func (m *ValueMetadata) update(data map[string]any) {
	m.dataMu.Lock()
	defer m.dataMu.Unlock()
	for k, v := range data {
		m.data[k] = v
	}
}

// Value mirrors a single value on a node. Identity is the value ID; updates
// mutate the existing instance so subscribers keep a stable reference.
type Value struct {
	guarded

	nodeID   int
	metadata *ValueMetadata
	current  any
}

// NewValue builds a value from its initial snapshot. A buffer-typed value
// with a malformed payload returns an UnparseableValueError and must not be
// stored.
func NewValue(nodeID int, data map[string]any) (*Value, error) {
	v := &Value{
		nodeID:   nodeID,
		metadata: NewValueMetadata(nil),
	}
	v.data = make(map[string]any, len(data))
	if err := v.update(data); err != nil {
		return nil, err
	}
	return v, nil
}

// ID returns the value's canonical string ID, recomputed from current data.
func (v *Value) ID() string {
	v.dataMu.RLock()
	defer v.dataMu.RUnlock()
	return valueIDFromData(v.nodeID, v.data)
}

// NodeID returns the owning node's ID.
func (v *Value) NodeID() int { return v.nodeID }

// Data returns a copy of the raw value snapshot.
func (v *Value) Data() map[string]any { return v.snapshot() }

// Metadata returns the value's metadata view.
func (v *Value) Metadata() *ValueMetadata { return v.metadata }

// Current returns the present value. The server's "unknown" sentinel reads
// as nil.
func (v *Value) Current() any {
	v.dataMu.RLock()
	defer v.dataMu.RUnlock()
	if s, ok := v.current.(string); ok && s == valueUnknown {
		return nil
	}
	return v.current
}

func (v *Value) CommandClass() int        { return v.getInt("commandClass") }
func (v *Value) CommandClassName() string { return v.getString("commandClassName") }
func (v *Value) CCVersion() int           { return v.getInt("ccVersion") }
func (v *Value) Property() any            { return v.get("property") }
func (v *Value) PropertyName() string     { return v.getString("propertyName") }
func (v *Value) PropertyKey() any         { return v.get("propertyKey") }
func (v *Value) PropertyKeyName() string  { return v.getString("propertyKeyName") }

// Endpoint returns the endpoint index the value belongs to, 0 for the root.
func (v *Value) Endpoint() int { return v.getInt("endpoint") }

// idPayload builds the valueId object for commands addressing this value.
func (v *Value) idPayload() map[string]any {
	v.dataMu.RLock()
	defer v.dataMu.RUnlock()
	return valueIDPayload(v.data)
}

// receiveEvent applies a value updated/added event's args to the value.
func (v *Value) receiveEvent(data map[string]any) error {
	return v.update(getMap(data, "args"))
}

// update merges a snapshot into the value. Event payloads carry the change
// as prevValue/newValue; the stored form keeps only "value".
func (v *Value) update(data map[string]any) error {
	v.dataMu.Lock()
	defer v.dataMu.Unlock()
	for k, val := range data {
		v.data[k] = val
	}
	delete(v.data, "prevValue")
	if newValue, ok := v.data["newValue"]; ok {
		v.data["value"] = newValue
		delete(v.data, "newValue")
	}

	if metadata, ok := data["metadata"].(map[string]any); ok {
		v.metadata.update(metadata)
	}

	v.current = v.data["value"]

	if v.current != nil && v.metadata.Type() == "buffer" {
		parsed, err := ParseBuffer(v.current)
		if err != nil {
			return err
		}
		v.current = parsed
	}
	return nil
}

// ConfigurationValueType classifies how a configuration parameter should be
// presented for editing.
type ConfigurationValueType string

const (
	ConfigurationValueTypeBoolean     ConfigurationValueType = "boolean"
	ConfigurationValueTypeEnumerated  ConfigurationValueType = "enumerated"
	ConfigurationValueTypeManualEntry ConfigurationValueType = "manual_entry"
	ConfigurationValueTypeRange       ConfigurationValueType = "range"
	ConfigurationValueTypeUndefined   ConfigurationValueType = "undefined"
)

// ConfigurationValue wraps a value of the Configuration command class.
type ConfigurationValue struct {
	*Value
}

// Type classifies the configuration parameter from its metadata.
func (c *ConfigurationValue) Type() ConfigurationValueType {
	meta := c.Metadata()
	min, hasMin := meta.Min()
	max, hasMax := meta.Max()
	states := meta.States()
	bothZero := hasMin && hasMax && min == 0 && max == 0

	if ((hasMax && max == 1 && hasMin && min == 0) || meta.Type() == "boolean") && len(states) == 0 {
		return ConfigurationValueTypeBoolean
	}
	if meta.AllowManualEntry() && !bothZero && (hasMin || hasMax) {
		return ConfigurationValueTypeManualEntry
	}
	if len(states) > 0 {
		return ConfigurationValueTypeEnumerated
	}
	if (hasMin || hasMax) && !bothZero {
		return ConfigurationValueTypeRange
	}
	return ConfigurationValueTypeUndefined
}
