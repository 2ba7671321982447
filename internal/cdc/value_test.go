package cdc

import (
	"encoding/json"
	"testing"
)

func TestValue_NumberDiscrimination(t *testing.T) {
	var payload map[string]Value
	raw := []byte(`{"count": 42, "price": 19.99, "big": 9007199254740993}`)

	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := payload["count"]; got.Kind != KindInt || got.Int != 42 {
		t.Errorf("count: got %+v", got)
	}
	if got := payload["price"]; got.Kind != KindFloat || got.Float != 19.99 {
		t.Errorf("price: got %+v", got)
	}
	// Larger than float64 can hold exactly — must stay an int64.
	if got := payload["big"]; got.Kind != KindInt || got.Int != 9007199254740993 {
		t.Errorf("big: got %+v", got)
	}
}

func TestValue_RawRoundTrip(t *testing.T) {
	in := []byte(`{"tags":["go","meetup"],"nested":{"a":1}}`)

	var payload map[string]Value
	if err := json.Unmarshal(in, &payload); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out, err := json.Marshal(payload["tags"])
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `["go","meetup"]` {
		t.Errorf("tags did not round-trip: %s", out)
	}
}

func TestValue_MarshalScalars(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		want string
	}{
		{"null", NullValue(), "null"},
		{"int", IntValue(-7), "-7"},
		{"string", StringValue("hi"), `"hi"`},
		{"bool", BoolValue(true), "true"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := json.Marshal(tt.v)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(out) != tt.want {
				t.Errorf("got %s, want %s", out, tt.want)
			}
		})
	}
}
