package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// RegistrationDetails is the denormalized read-model for one registration:
// registration joined with its event and user. It is fetched fresh per
// change record and never cached across records, because any of it can
// change between deliveries.
type RegistrationDetails struct {
	RegistrationID   int64
	EventTitle       string
	EventDescription string
	EventCategory    string
	EventLocation    string
	EventDate        string
	EventTime        string
	Organizer        string
	Email            string
	FullName         string
	Username         string
}

// GetRegistrationDetails fetches the read-model row for a registration.
// An absent row returns (nil, nil).
func (s *Postgres) GetRegistrationDetails(ctx context.Context, id int64) (*RegistrationDetails, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT registration_id, event_title, event_description, event_category,
		       event_location, event_date, event_time, organizer,
		       email, full_name, username
		FROM registration_details
		WHERE registration_id = $1
	`, id)

	var d RegistrationDetails
	var description, category, location, date, eventTime, organizer, fullName *string

	err := row.Scan(
		&d.RegistrationID, &d.EventTitle, &description, &category,
		&location, &date, &eventTime, &organizer,
		&d.Email, &fullName, &d.Username,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetching registration details for %d: %w", id, err)
	}

	d.EventDescription = deref(description)
	d.EventCategory = deref(category)
	d.EventLocation = deref(location)
	d.EventDate = deref(date)
	d.EventTime = deref(eventTime)
	d.Organizer = deref(organizer)
	d.FullName = deref(fullName)

	return &d, nil
}

// MarkNotified sets the idempotency flag on the origin registration row.
// The update is conditional on the flag still being unset; the return
// value reports whether this call claimed the row, so the caller can tell
// a first send apart from a redelivery race another instance already won.
func (s *Postgres) MarkNotified(ctx context.Context, id int64) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE event_registrations
		SET email_sent = TRUE, email_sent_at = NOW()
		WHERE id = $1 AND email_sent = FALSE
	`, id)
	if err != nil {
		return false, fmt.Errorf("marking registration %d notified: %w", id, err)
	}
	return tag.RowsAffected() == 1, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
