package cdc

import (
	"fmt"
	"log/slog"
	"time"
)

// Temporal payload fields and their storage encodings.
const (
	fieldEventDate = "event_date" // days since 1970-01-01
	fieldEventTime = "event_time" // milliseconds since midnight
	fieldCreatedAt = "created_at" // milliseconds since epoch
	fieldUpdatedAt = "updated_at" // milliseconds since epoch
)

const (
	millisPerDay = 24 * 60 * 60 * 1000

	// Bounds for sanity-checking encoded temporal integers. Anything
	// outside is treated as malformed and left raw.
	maxEpochDays   = 2_932_896            // 9999-12-31
	maxEpochMillis = 253_402_300_799_999  // 9999-12-31T23:59:59.999Z
	minEpochMillis = -62_135_596_800_000  // 0001-01-01T00:00:00Z
)

// Converter maps storage-encoded temporal fields into human-readable
// strings. Timestamps are rendered in the location fixed at configuration
// time so both consumers agree on the convention. The conversion is
// idempotent: fields already carrying strings pass through unchanged, so
// input that was decoded upstream by a newer connector is safe to re-feed.
type Converter struct {
	loc    *time.Location
	logger *slog.Logger
}

func NewConverter(loc *time.Location, logger *slog.Logger) *Converter {
	if loc == nil {
		loc = time.UTC
	}
	return &Converter{loc: loc, logger: logger}
}

// ConvertFields returns a copy of the payload with the known temporal
// fields rendered as strings. A malformed encoding is logged and the raw
// value kept in place — one bad date must not block the rest of the record.
func (c *Converter) ConvertFields(payload map[string]Value) map[string]Value {
	out := make(map[string]Value, len(payload))
	for name, v := range payload {
		out[name] = v
	}

	if v, ok := out[fieldEventDate]; ok && v.Kind == KindInt {
		s, err := formatEpochDay(v.Int)
		if err != nil {
			c.logger.Warn("malformed temporal field, leaving raw value",
				"field", fieldEventDate, "value", v.Int, "error", err)
		} else {
			out[fieldEventDate] = StringValue(s)
		}
	}

	if v, ok := out[fieldEventTime]; ok && v.Kind == KindInt {
		s, err := formatMillisOfDay(v.Int)
		if err != nil {
			c.logger.Warn("malformed temporal field, leaving raw value",
				"field", fieldEventTime, "value", v.Int, "error", err)
		} else {
			out[fieldEventTime] = StringValue(s)
		}
	}

	for _, name := range []string{fieldCreatedAt, fieldUpdatedAt} {
		v, ok := out[name]
		if !ok || v.Kind != KindInt {
			continue
		}
		s, err := c.formatEpochMillis(v.Int)
		if err != nil {
			c.logger.Warn("malformed temporal field, leaving raw value",
				"field", name, "value", v.Int, "error", err)
			continue
		}
		out[name] = StringValue(s)
	}

	return out
}

// formatEpochDay renders a days-since-1970-01-01 integer as YYYY-MM-DD.
func formatEpochDay(days int64) (string, error) {
	if days < 0 || days > maxEpochDays {
		return "", fmt.Errorf("epoch day %d out of range", days)
	}
	epoch := time.Date(1970, time.January, 1, 0, 0, 0, 0, time.UTC)
	return epoch.AddDate(0, 0, int(days)).Format("2006-01-02"), nil
}

// formatMillisOfDay renders a milliseconds-since-midnight integer as
// zero-padded HH:MM:SS.
func formatMillisOfDay(ms int64) (string, error) {
	if ms < 0 || ms >= millisPerDay {
		return "", fmt.Errorf("millisecond-of-day %d out of range", ms)
	}
	total := ms / 1000
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds), nil
}

// formatEpochMillis renders a milliseconds-since-epoch integer as
// "YYYY-MM-DD HH:MM:SS" in the configured location.
func (c *Converter) formatEpochMillis(ms int64) (string, error) {
	if ms < minEpochMillis || ms > maxEpochMillis {
		return "", fmt.Errorf("epoch milliseconds %d out of range", ms)
	}
	return time.UnixMilli(ms).In(c.loc).Format("2006-01-02 15:04:05"), nil
}
