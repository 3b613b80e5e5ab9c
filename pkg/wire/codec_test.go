package wire

import (
	"encoding/json"
	"testing"
)

func TestDecodeVersion(t *testing.T) {
	data := []byte(`{
		"type": "version",
		"driverVersion": "12.4.4",
		"serverVersion": "1.35.0",
		"homeId": 3245146787,
		"minSchemaVersion": 0,
		"maxSchemaVersion": 41
	}`)

	decoded, err := DecodeIncoming(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	msg, ok := decoded.(*VersionMessage)
	if !ok {
		t.Fatalf("expected *VersionMessage, got %T", decoded)
	}
	if msg.DriverVersion != "12.4.4" {
		t.Errorf("driverVersion = %q", msg.DriverVersion)
	}
	if msg.HomeID != 3245146787 {
		t.Errorf("homeId = %d", msg.HomeID)
	}
	if msg.MaxSchemaVersion != 41 {
		t.Errorf("maxSchemaVersion = %d", msg.MaxSchemaVersion)
	}
}

func TestDecodeResult(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		data := []byte(`{"type":"result","messageId":"abc","success":true,"result":{"success":true}}`)
		decoded, err := DecodeIncoming(data)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		msg, ok := decoded.(*ResultMessage)
		if !ok {
			t.Fatalf("expected *ResultMessage, got %T", decoded)
		}
		if msg.MessageID != "abc" || !msg.Success {
			t.Errorf("messageId=%q success=%v", msg.MessageID, msg.Success)
		}
	})

	t.Run("ZWaveError", func(t *testing.T) {
		data := []byte(`{"type":"result","messageId":"abc","success":false,` +
			`"errorCode":"zwave_error","zwaveErrorCode":202,"zwaveErrorMessage":"timed out"}`)
		decoded, err := DecodeIncoming(data)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		msg := decoded.(*ResultMessage)
		if msg.ErrorCode != ErrorCodeZWave {
			t.Errorf("errorCode = %q", msg.ErrorCode)
		}
		if msg.ZWaveErrorCode != 202 {
			t.Errorf("zwaveErrorCode = %d", msg.ZWaveErrorCode)
		}
	})
}

func TestDecodeEvent(t *testing.T) {
	data := []byte(`{
		"type": "event",
		"event": {
			"source": "node",
			"event": "value updated",
			"nodeId": 52,
			"args": {"commandClass": 32, "property": "targetValue", "newValue": 42}
		}
	}`)

	decoded, err := DecodeIncoming(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	msg, ok := decoded.(*EventMessage)
	if !ok {
		t.Fatalf("expected *EventMessage, got %T", decoded)
	}
	if msg.Event.Source != "node" || msg.Event.Event != "value updated" {
		t.Errorf("source=%q event=%q", msg.Event.Source, msg.Event.Event)
	}
	if msg.Event.Fields["nodeId"] != float64(52) {
		t.Errorf("nodeId = %v", msg.Event.Fields["nodeId"])
	}
}

func TestDecodeUnknownType(t *testing.T) {
	decoded, err := DecodeIncoming([]byte(`{"type":"wat","x":1}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	msg, ok := decoded.(*UnknownMessage)
	if !ok {
		t.Fatalf("expected *UnknownMessage, got %T", decoded)
	}
	if msg.Type != "wat" {
		t.Errorf("type = %q", msg.Type)
	}
}

func TestDecodeErrors(t *testing.T) {
	if _, err := DecodeIncoming([]byte(`not json`)); err == nil {
		t.Error("expected error for malformed JSON")
	}
	if _, err := DecodeIncoming([]byte(`{"foo":1}`)); err != ErrMissingType {
		t.Errorf("expected ErrMissingType, got %v", err)
	}
}

func TestEncodeCommand(t *testing.T) {
	cmd := NewCommand("controller.begin_inclusion").With("options", map[string]any{"strategy": 0})

	if _, err := EncodeCommand(cmd); err == nil {
		t.Error("expected error before messageId is assigned")
	}

	cmd.SetMessageID("m1")
	data, err := EncodeCommand(cmd)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	var round map[string]any
	if err := json.Unmarshal(data, &round); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if round["command"] != "controller.begin_inclusion" || round["messageId"] != "m1" {
		t.Errorf("round-trip mismatch: %v", round)
	}
}
