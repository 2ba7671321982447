package cdc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Operation is the row-level mutation a change envelope describes.
type Operation string

const (
	OpCreate   Operation = "create"
	OpUpdate   Operation = "update"
	OpDelete   Operation = "delete"
	OpSnapshot Operation = "snapshot"
)

// ErrNoPayload marks an envelope that carries no usable row image — the
// row was deleted, or the message is a tombstone. Callers skip the record.
var ErrNoPayload = errors.New("envelope has no payload")

// Envelope is the decoded view of one change-log message: the operation,
// the "after" row image as a tagged-value map, and the origin table when
// the connector included it.
type Envelope struct {
	Op          Operation
	Payload     map[string]Value
	SourceTable string
}

type rawSource struct {
	Schema string `json:"schema"`
	Table  string `json:"table"`
}

type rawEnvelope struct {
	Before map[string]Value `json:"before"`
	After  map[string]Value `json:"after"`
	Op     string           `json:"op"`
	Source rawSource        `json:"source"`
}

// DecodeEnvelope parses a raw change-log message. It accepts the two
// shapes the connectors emit: full envelopes carrying before/after images,
// and flat row images produced by the connector's unwrap transform. It
// also tolerates messages where the JSON has been stringified a second
// time, and messages still wrapped in a Connect schema/payload pair.
func DecodeEnvelope(data []byte) (Envelope, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return Envelope{}, ErrNoPayload
	}

	if trimmed[0] == '"' {
		// Some connector versions double-encode the envelope as a JSON string.
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return Envelope{}, fmt.Errorf("unmarshaling stringified envelope: %w", err)
		}
		return DecodeEnvelope([]byte(s))
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &probe); err != nil {
		return Envelope{}, fmt.Errorf("unmarshaling envelope: %w", err)
	}

	if _, hasSchema := probe["schema"]; hasSchema {
		if payload, hasPayload := probe["payload"]; hasPayload {
			// JSON converter with schemas enabled wraps the real message.
			return DecodeEnvelope(payload)
		}
	}

	if _, hasOp := probe["op"]; hasOp {
		return decodeFullEnvelope(trimmed)
	}
	return decodeFlatRow(probe)
}

func decodeFullEnvelope(data []byte) (Envelope, error) {
	var raw rawEnvelope
	if err := json.Unmarshal(data, &raw); err != nil {
		return Envelope{}, fmt.Errorf("unmarshaling envelope: %w", err)
	}

	op, err := mapOperation(raw.Op)
	if err != nil {
		return Envelope{}, err
	}

	env := Envelope{Op: op, SourceTable: raw.Source.Table}
	if len(raw.After) == 0 {
		return env, ErrNoPayload
	}
	env.Payload = raw.After
	return env, nil
}

// decodeFlatRow handles messages flattened by the unwrap transform: the
// message body is the row image itself. Create and update are
// indistinguishable once the transform has stripped the envelope.
func decodeFlatRow(fields map[string]json.RawMessage) (Envelope, error) {
	if len(fields) == 0 {
		return Envelope{}, ErrNoPayload
	}

	payload := make(map[string]Value, len(fields))
	for name, raw := range fields {
		var v Value
		if err := json.Unmarshal(raw, &v); err != nil {
			return Envelope{}, fmt.Errorf("unmarshaling field %q: %w", name, err)
		}
		payload[name] = v
	}
	return Envelope{Op: OpUpdate, Payload: payload}, nil
}

func mapOperation(op string) (Operation, error) {
	switch op {
	case "c":
		return OpCreate, nil
	case "u":
		return OpUpdate, nil
	case "d":
		return OpDelete, nil
	case "r":
		return OpSnapshot, nil
	default:
		return "", fmt.Errorf("unrecognized operation %q", op)
	}
}
