package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmitterOn(t *testing.T) {
	var em Emitter
	var got []string

	em.On("value updated", func(ev Event) {
		got = append(got, "a")
	})
	em.On("value updated", func(ev Event) {
		got = append(got, "b")
	})
	em.On("other", func(ev Event) {
		got = append(got, "x")
	})

	em.Emit(Event{Type: "value updated"})
	assert.Equal(t, []string{"a", "b"}, got, "callbacks run in registration order")
}

func TestEmitterUnsubscribe(t *testing.T) {
	var em Emitter
	calls := 0

	unsub := em.On("ready", func(ev Event) { calls++ })
	em.Emit(Event{Type: "ready"})
	unsub()
	em.Emit(Event{Type: "ready"})
	assert.Equal(t, 1, calls)

	// Idempotent.
	unsub()
	assert.Equal(t, 0, em.ListenerCount("ready"))
}

func TestEmitterOnce(t *testing.T) {
	var em Emitter
	calls := 0

	em.Once("dead", func(ev Event) { calls++ })
	em.Emit(Event{Type: "dead"})
	em.Emit(Event{Type: "dead"})

	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, em.ListenerCount("dead"))
}

func TestEmitterDataPassthrough(t *testing.T) {
	var em Emitter
	var seen map[string]any

	em.On("node added", func(ev Event) { seen = ev.Data })
	em.Emit(Event{Type: "node added", Data: map[string]any{"nodeId": float64(7)}})

	require.NotNil(t, seen)
	assert.Equal(t, float64(7), seen["nodeId"])
}

func TestValidatorKnownEvent(t *testing.T) {
	v := NewValidator()

	err := v.Validate("node", "value updated", map[string]any{
		"source": "node",
		"event":  "value updated",
		"nodeId": 52,
		"args": map[string]any{
			"commandClass": 32,
			"endpoint":     0,
			"property":     "currentValue",
			"newValue":     99,
		},
	})
	assert.NoError(t, err)
}

func TestValidatorMalformedEvent(t *testing.T) {
	v := NewValidator()

	err := v.Validate("node", "value updated", map[string]any{
		"source": "node",
		"event":  "value updated",
		// nodeId missing, args missing
	})
	require.Error(t, err)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "node", verr.Source)
	assert.Equal(t, "value updated", verr.Event)
}

func TestValidatorUnknownEventPasses(t *testing.T) {
	v := NewValidator()
	assert.NoError(t, v.Validate("node", "some future event", map[string]any{"whatever": true}))
}

func TestValidatorRegister(t *testing.T) {
	v := NewValidator()
	v.Register("driver", "custom", `{"type":"object","required":["x"]}`)

	assert.NoError(t, v.Validate("driver", "custom", map[string]any{"x": 1}))
	assert.Error(t, v.Validate("driver", "custom", map[string]any{"y": 1}))
}
