package cdc

import (
	"io"
	"log/slog"
	"reflect"
	"testing"
	"time"
)

func testConverter(t *testing.T) *Converter {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewConverter(time.UTC, logger)
}

func TestConvertFields_EpochDay(t *testing.T) {
	tests := []struct {
		name string
		days int64
		want string
	}{
		{"epoch start", 0, "1970-01-01"},
		{"known vector", 20000, "2024-10-04"},
		{"one day in", 1, "1970-01-02"},
		{"leap day", 19782, "2024-02-29"},
	}

	conv := testConverter(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := conv.ConvertFields(map[string]Value{"event_date": IntValue(tt.days)})

			got := out["event_date"]
			if got.Kind != KindString {
				t.Fatalf("expected string value, got kind %d", got.Kind)
			}
			if got.Str != tt.want {
				t.Errorf("event_date %d: got %q, want %q", tt.days, got.Str, tt.want)
			}
		})
	}
}

func TestConvertFields_MillisOfDay(t *testing.T) {
	tests := []struct {
		name string
		ms   int64
		want string
	}{
		{"midnight", 0, "00:00:00"},
		{"known vector", 34200000, "09:30:00"},
		{"last second of day", 86399000, "23:59:59"},
		{"sub-second truncated", 1500, "00:00:01"},
	}

	conv := testConverter(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := conv.ConvertFields(map[string]Value{"event_time": IntValue(tt.ms)})

			got := out["event_time"]
			if got.Kind != KindString {
				t.Fatalf("expected string value, got kind %d", got.Kind)
			}
			if got.Str != tt.want {
				t.Errorf("event_time %d: got %q, want %q", tt.ms, got.Str, tt.want)
			}
		})
	}
}

func TestConvertFields_EpochMillisTimestamps(t *testing.T) {
	conv := testConverter(t)

	out := conv.ConvertFields(map[string]Value{
		"created_at": IntValue(86400000),
		"updated_at": IntValue(1727000000000),
	})

	if got := out["created_at"].Str; got != "1970-01-02 00:00:00" {
		t.Errorf("created_at: got %q, want %q", got, "1970-01-02 00:00:00")
	}
	if got := out["updated_at"].Str; got != "2024-09-22 10:13:20" {
		t.Errorf("updated_at: got %q, want %q", got, "2024-09-22 10:13:20")
	}
}

func TestConvertFields_TimestampLocation(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	conv := NewConverter(loc, logger)

	// 1970-01-02 00:00:00 UTC is 1970-01-01 19:00:00 in New York (EST, -5).
	out := conv.ConvertFields(map[string]Value{"created_at": IntValue(86400000)})
	if got := out["created_at"].Str; got != "1970-01-01 19:00:00" {
		t.Errorf("created_at in EST: got %q", got)
	}
}

func TestConvertFields_PassThroughIsIdempotent(t *testing.T) {
	conv := testConverter(t)

	in := map[string]Value{
		"event_date": StringValue("2024-10-04"),
		"event_time": StringValue("09:30:00"),
		"created_at": StringValue("2024-09-22 10:13:20"),
		"title":      StringValue("Go Meetup"),
	}

	once := conv.ConvertFields(in)
	twice := conv.ConvertFields(once)

	for name, want := range in {
		if got := twice[name]; !reflect.DeepEqual(got, want) {
			t.Errorf("field %q changed on re-conversion: got %+v, want %+v", name, got, want)
		}
	}
}

func TestConvertFields_MalformedFieldLeftRaw(t *testing.T) {
	conv := testConverter(t)

	out := conv.ConvertFields(map[string]Value{
		"event_date": IntValue(20000),
		"event_time": IntValue(-5),          // negative ms-of-day
		"created_at": IntValue(1 << 62),     // absurd timestamp
	})

	// The malformed fields keep their raw integers...
	if got := out["event_time"]; got.Kind != KindInt || got.Int != -5 {
		t.Errorf("event_time should stay raw, got %+v", got)
	}
	if got := out["created_at"]; got.Kind != KindInt {
		t.Errorf("created_at should stay raw, got %+v", got)
	}

	// ...while the well-formed one still converts.
	if got := out["event_date"].Str; got != "2024-10-04" {
		t.Errorf("event_date: got %q, want %q", got, "2024-10-04")
	}
}

func TestConvertFields_DoesNotMutateInput(t *testing.T) {
	conv := testConverter(t)

	in := map[string]Value{"event_date": IntValue(20000)}
	conv.ConvertFields(in)

	if got := in["event_date"]; got.Kind != KindInt || got.Int != 20000 {
		t.Errorf("input payload mutated: %+v", got)
	}
}

func TestConvertFields_UnknownFieldsUntouched(t *testing.T) {
	conv := testConverter(t)

	out := conv.ConvertFields(map[string]Value{
		"capacity": IntValue(250),
		"price":    FloatValue(19.99),
		"title":    StringValue("GopherCon"),
	})

	if got := out["capacity"]; got.Kind != KindInt || got.Int != 250 {
		t.Errorf("capacity changed: %+v", got)
	}
	if got := out["price"]; got.Kind != KindFloat || got.Float != 19.99 {
		t.Errorf("price changed: %+v", got)
	}
}
