package cdc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Kind identifies which member of a Value is set.
type Kind int

const (
	KindNull Kind = iota
	KindInt
	KindFloat
	KindString
	KindBool
	// KindRaw holds a nested object or array, preserved byte-for-byte.
	// Unknown structure passes through rather than being dropped.
	KindRaw
)

// Value is a single payload field from a change envelope. The change-log
// carries JSON scalars whose meaning is per-field, not per-type: an integer
// may be an epoch-day date, a millisecond-of-day time, a millisecond
// timestamp, or a plain number, and only the field name disambiguates.
type Value struct {
	Kind  Kind
	Int   int64
	Float float64
	Str   string
	Bool  bool
	Raw   json.RawMessage
}

func NullValue() Value            { return Value{Kind: KindNull} }
func IntValue(i int64) Value      { return Value{Kind: KindInt, Int: i} }
func FloatValue(f float64) Value  { return Value{Kind: KindFloat, Float: f} }
func StringValue(s string) Value  { return Value{Kind: KindString, Str: s} }
func BoolValue(b bool) Value      { return Value{Kind: KindBool, Bool: b} }

// IsNull reports whether the field carried a JSON null.
func (v Value) IsNull() bool {
	return v.Kind == KindNull
}

func (v *Value) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		*v = Value{Kind: KindNull}
		return nil
	}

	switch trimmed[0] {
	case 'n':
		*v = Value{Kind: KindNull}
		return nil
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(trimmed, &b); err != nil {
			return err
		}
		*v = Value{Kind: KindBool, Bool: b}
		return nil
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*v = Value{Kind: KindString, Str: s}
		return nil
	case '{', '[':
		*v = Value{Kind: KindRaw, Raw: append(json.RawMessage(nil), trimmed...)}
		return nil
	}

	// Numbers: an integer only counts as one if it round-trips as int64,
	// otherwise it is treated as a float.
	if i, err := strconv.ParseInt(string(trimmed), 10, 64); err == nil {
		*v = Value{Kind: KindInt, Int: i}
		return nil
	}
	var f float64
	if err := json.Unmarshal(trimmed, &f); err != nil {
		return fmt.Errorf("unmarshaling value %q: %w", trimmed, err)
	}
	*v = Value{Kind: KindFloat, Float: f}
	return nil
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindNull:
		return []byte("null"), nil
	case KindInt:
		return strconv.AppendInt(nil, v.Int, 10), nil
	case KindFloat:
		return json.Marshal(v.Float)
	case KindString:
		return json.Marshal(v.Str)
	case KindBool:
		return strconv.AppendBool(nil, v.Bool), nil
	case KindRaw:
		return v.Raw, nil
	}
	return nil, fmt.Errorf("unknown value kind %d", v.Kind)
}
