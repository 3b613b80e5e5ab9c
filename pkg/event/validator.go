package event

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// ValidationError reports an event whose payload does not match the shape
// registered for its (source, event) pair. The dispatcher logs and drops
// such events; the graph is never mutated by a malformed payload.
type ValidationError struct {
	Source string
	Event  string
	Err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("event %q from %q failed validation: %v", e.Event, e.Source, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Validator checks inbound event payloads against JSON Schema documents
// keyed by (source, event). Events with no registered schema pass, so the
// client stays forward compatible with server versions that add event types.
type Validator struct {
	mu       sync.Mutex
	compiled map[string]*jsonschema.Schema
	raw      map[string]string
}

type schemaKey struct{ source, event string }

func keyOf(source, event string) string { return source + "\x00" + event }

// NewValidator returns a Validator preloaded with the shapes of the events
// the graph handlers rely on.
func NewValidator() *Validator {
	v := &Validator{
		compiled: make(map[string]*jsonschema.Schema),
		raw:      make(map[string]string),
	}
	for k, doc := range builtinSchemas {
		v.raw[keyOf(k.source, k.event)] = doc
	}
	return v
}

// Register adds or replaces the schema for a (source, event) pair. The
// document is compiled lazily on first validation.
func (v *Validator) Register(source, eventName, schemaDoc string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	key := keyOf(source, eventName)
	v.raw[key] = schemaDoc
	delete(v.compiled, key)
}

// Validate checks data against the schema registered for (source, eventName).
// A missing schema is not an error.
func (v *Validator) Validate(source, eventName string, data map[string]any) error {
	schema, err := v.schemaFor(source, eventName)
	if err != nil {
		return err
	}
	if schema == nil {
		return nil
	}
	if err := schema.Validate(normalize(data)); err != nil {
		return &ValidationError{Source: source, Event: eventName, Err: err}
	}
	return nil
}

func (v *Validator) schemaFor(source, eventName string) (*jsonschema.Schema, error) {
	key := keyOf(source, eventName)

	v.mu.Lock()
	defer v.mu.Unlock()

	if s, ok := v.compiled[key]; ok {
		return s, nil
	}
	doc, ok := v.raw[key]
	if !ok {
		return nil, nil
	}

	var schemaAny any
	if err := json.Unmarshal([]byte(doc), &schemaAny); err != nil {
		return nil, fmt.Errorf("schema for %s/%s: %w", source, eventName, err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("event.json", schemaAny); err != nil {
		return nil, fmt.Errorf("schema for %s/%s: %w", source, eventName, err)
	}
	compiled, err := c.Compile("event.json")
	if err != nil {
		return nil, fmt.Errorf("schema for %s/%s: %w", source, eventName, err)
	}
	v.compiled[key] = compiled
	return compiled, nil
}

// normalize re-marshals the payload so validation sees the same value kinds
// a plain json.Unmarshal would produce, regardless of how the map was built.
func normalize(data map[string]any) any {
	raw, err := json.Marshal(data)
	if err != nil {
		return data
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return data
	}
	return out
}

// builtinSchemas pins the payload shapes the graph handlers depend on. Keys
// absent here are accepted as-is.
var builtinSchemas = map[schemaKey]string{
	{"node", "value updated"}: `{
		"type": "object",
		"required": ["nodeId", "args"],
		"properties": {
			"nodeId": {"type": "integer"},
			"args": {
				"type": "object",
				"required": ["commandClass", "property"],
				"properties": {
					"commandClass": {"type": "integer"},
					"endpoint": {"type": "integer"},
					"property": {"type": ["string", "integer"]}
				}
			}
		}
	}`,
	{"node", "value added"}: `{
		"type": "object",
		"required": ["nodeId", "args"],
		"properties": {
			"nodeId": {"type": "integer"},
			"args": {"type": "object", "required": ["commandClass", "property"]}
		}
	}`,
	{"node", "value removed"}: `{
		"type": "object",
		"required": ["nodeId", "args"],
		"properties": {
			"nodeId": {"type": "integer"},
			"args": {"type": "object", "required": ["commandClass", "property"]}
		}
	}`,
	{"node", "metadata updated"}: `{
		"type": "object",
		"required": ["nodeId", "args"],
		"properties": {
			"args": {"type": "object", "required": ["commandClass", "property", "metadata"]}
		}
	}`,
	{"node", "statistics updated"}: `{
		"type": "object",
		"required": ["nodeId", "statistics"],
		"properties": {"statistics": {"type": "object"}}
	}`,
	{"node", "notification"}: `{
		"type": "object",
		"required": ["nodeId", "ccId"],
		"properties": {"nodeId": {"type": "integer"}, "ccId": {"type": "integer"}}
	}`,
	{"node", "interview stage completed"}: `{
		"type": "object",
		"required": ["nodeId", "stageName"],
		"properties": {"stageName": {"type": "string"}}
	}`,
	{"node", "firmware update progress"}: `{
		"type": "object",
		"required": ["nodeId", "progress"],
		"properties": {"progress": {"type": "object"}}
	}`,
	{"node", "firmware update finished"}: `{
		"type": "object",
		"required": ["nodeId", "result"],
		"properties": {"result": {"type": "object"}}
	}`,
	{"controller", "node added"}: `{
		"type": "object",
		"required": ["node"],
		"properties": {"node": {"type": "object", "required": ["nodeId"]}}
	}`,
	{"controller", "node removed"}: `{
		"type": "object",
		"required": ["node"],
		"properties": {"node": {"type": "object", "required": ["nodeId"]}}
	}`,
	{"controller", "statistics updated"}: `{
		"type": "object",
		"required": ["statistics"],
		"properties": {"statistics": {"type": "object"}}
	}`,
	{"controller", "rebuild routes progress"}: `{
		"type": "object",
		"required": ["progress"],
		"properties": {"progress": {"type": "object"}}
	}`,
	{"controller", "nvm backup progress"}: `{
		"type": "object",
		"required": ["bytesRead", "total"]
	}`,
	{"controller", "nvm restore progress"}: `{
		"type": "object",
		"required": ["bytesWritten", "total"]
	}`,
	{"driver", "logging"}: `{
		"type": "object",
		"required": ["message"],
		"properties": {
			"message": {"type": ["string", "array"]},
			"formattedMessage": {"type": ["string", "array"]},
			"level": {"type": "string"}
		}
	}`,
	{"driver", "log config updated"}: `{
		"type": "object",
		"required": ["config"],
		"properties": {"config": {"type": "object"}}
	}`,
}
