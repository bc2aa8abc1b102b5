package amf0

import (
	"bytes"
	"testing"
)

func roundTrip(t *testing.T, v Value) Value {
	t.Helper()
	var buf bytes.Buffer
	if err := Encode(&buf, v); err != nil {
		t.Fatalf("Encode(%#v): %v", v, err)
	}
	got, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode after Encode(%#v): %v", v, err)
	}
	return got
}

func TestRoundTripScalars(t *testing.T) {
	if got := roundTrip(t, float64(42.5)); got != float64(42.5) {
		t.Errorf("number round-trip: got %#v", got)
	}
	if got := roundTrip(t, true); got != true {
		t.Errorf("bool round-trip: got %#v", got)
	}
	if got := roundTrip(t, "hello"); got != "hello" {
		t.Errorf("string round-trip: got %#v", got)
	}
	if got := roundTrip(t, Null{}); got != (Null{}) {
		t.Errorf("null round-trip: got %#v", got)
	}
	if got := roundTrip(t, Undefined{}); got != (Undefined{}) {
		t.Errorf("undefined round-trip: got %#v", got)
	}
}

func TestRoundTripObject(t *testing.T) {
	obj := Object{"app": "live", "flashVer": "FMLE/3.0"}
	got, ok := roundTrip(t, obj).(Object)
	if !ok {
		t.Fatalf("expected Object, got %T", got)
	}
	if got["app"] != "live" || got["flashVer"] != "FMLE/3.0" {
		t.Errorf("object contents mismatch: %#v", got)
	}
}

func TestRoundTripStrictArray(t *testing.T) {
	arr := Array{"play", float64(0), Null{}}
	got, ok := roundTrip(t, arr).(Array)
	if !ok {
		t.Fatalf("expected Array, got %T", got)
	}
	if len(got) != 3 || got[0] != "play" {
		t.Errorf("array contents mismatch: %#v", got)
	}
}

func TestDecodeCommandFlatSequence(t *testing.T) {
	// connect command: name, transaction id, command object.
	body, err := EncodeCommand(Array{
		"connect",
		float64(1),
		Object{"app": "live"},
	})
	if err != nil {
		t.Fatal(err)
	}
	cmd, err := DecodeCommand(bytes.NewReader(body))
	if err != nil {
		t.Fatalf("DecodeCommand: %v", err)
	}
	if len(cmd) != 3 {
		t.Fatalf("expected 3 values, got %d: %#v", len(cmd), cmd)
	}
	if cmd[0] != "connect" {
		t.Errorf("expected command name 'connect', got %#v", cmd[0])
	}
	obj, ok := cmd[2].(Object)
	if !ok || obj["app"] != "live" {
		t.Errorf("expected command object with app=live, got %#v", cmd[2])
	}
}
