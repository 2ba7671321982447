package cdc

import "fmt"

// Registration statuses as stored in the origin table.
const (
	StatusRegistered = "registered"
	StatusCancelled  = "cancelled"
	StatusWaitlisted = "waitlisted"
)

// RegistrationRecord is the decoded view of a registration-table change.
type RegistrationRecord struct {
	ID        int64
	Status    string
	EmailSent bool
}

// DecodeRegistration extracts the registration fields from an envelope
// payload. Only the id is mandatory; a missing status or flag decodes to
// its zero value and the record is judged by Actionable.
func DecodeRegistration(env Envelope) (RegistrationRecord, error) {
	idVal, ok := env.Payload["id"]
	if !ok || idVal.Kind != KindInt {
		return RegistrationRecord{}, fmt.Errorf("registration payload missing integer id")
	}

	rec := RegistrationRecord{ID: idVal.Int}

	if v, ok := env.Payload["status"]; ok && v.Kind == KindString {
		rec.Status = v.Str
	}

	if v, ok := env.Payload["email_sent"]; ok {
		switch v.Kind {
		case KindBool:
			rec.EmailSent = v.Bool
		case KindInt:
			// Some converter versions encode booleans as 0/1.
			rec.EmailSent = v.Int != 0
		}
	}

	return rec, nil
}

// Actionable reports whether the notification executor should act on this
// record. A record whose flag is already set is skipped even when
// redelivered — this is the primary defense against duplicate sends under
// at-least-once delivery.
func (r RegistrationRecord) Actionable() bool {
	return r.Status == StatusRegistered && !r.EmailSent
}
