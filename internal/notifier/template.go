package notifier

import (
	"fmt"
	"html/template"
	"strings"

	"github.com/evently/cdc-pipeline/internal/store"
)

// Display fallbacks for optional event fields.
const (
	fallbackDateTime  = "Date and time to be announced"
	fallbackLocation  = "Location TBD"
	fallbackCategory  = "General"
	fallbackOrganizer = "Event Organizer"
)

var emailTemplate = template.Must(template.New("confirmation").Parse(`<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<title>Event Registration Confirmation</title>
</head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
	<div style="background: #667eea; color: white; padding: 20px; border-radius: 10px 10px 0 0; text-align: center;">
		<h1 style="margin: 0; font-size: 24px;">Registration Confirmed!</h1>
	</div>
	<div style="background: #f8f9fa; padding: 30px; border-radius: 0 0 10px 10px;">
		<p style="font-size: 18px;">Hello <strong>{{.Name}}</strong>,</p>
		<p>Great news! Your registration for the following event has been confirmed:</p>
		<div style="background: white; padding: 20px; border-radius: 8px; border-left: 4px solid #667eea; margin: 20px 0;">
			<h2 style="color: #667eea; margin-top: 0;">{{.Title}}</h2>
			<div style="margin-bottom: 10px;"><strong>Date &amp; Time:</strong> {{.DateTime}}</div>
			<div style="margin-bottom: 10px;"><strong>Location:</strong> {{.Location}}</div>
			<div style="margin-bottom: 10px;"><strong>Category:</strong> {{.Category}}</div>
			<div style="margin-bottom: 10px;"><strong>Organizer:</strong> {{.Organizer}}</div>
			{{if .Description}}<div style="margin-top: 15px; padding: 15px; background: #f8f9fa; border-radius: 5px;"><strong>Description:</strong><br>{{.Description}}</div>{{end}}
		</div>
		<p>We're excited to see you at the event!</p>
		<p style="margin-bottom: 0;">Best regards,<br><strong>Event Management Team</strong></p>
	</div>
	<div style="text-align: center; padding: 20px; font-size: 12px; color: #666;">
		<p>This is an automated message. Please do not reply to this email.</p>
	</div>
</body>
</html>
`))

type emailData struct {
	Name        string
	Title       string
	DateTime    string
	Location    string
	Category    string
	Organizer   string
	Description string
}

// BuildEmail renders the confirmation subject and HTML body for a
// registration. Missing event fields fall back to placeholder text; the
// recipient's display name falls back from full name to username.
func BuildEmail(d *store.RegistrationDetails) (subject, body string, err error) {
	name := d.FullName
	if name == "" {
		name = d.Username
	}

	data := emailData{
		Name:        name,
		Title:       d.EventTitle,
		DateTime:    formatDateTime(d.EventDate, d.EventTime),
		Location:    fallback(d.EventLocation, fallbackLocation),
		Category:    fallback(d.EventCategory, fallbackCategory),
		Organizer:   fallback(d.Organizer, fallbackOrganizer),
		Description: d.EventDescription,
	}

	var buf strings.Builder
	if err := emailTemplate.Execute(&buf, data); err != nil {
		return "", "", fmt.Errorf("rendering confirmation email: %w", err)
	}

	return fmt.Sprintf("Registration Confirmed: %s", d.EventTitle), buf.String(), nil
}

// formatDateTime combines the event date and time with per-field TBD
// fallbacks. A known time without a known date is not announced on its
// own.
func formatDateTime(date, eventTime string) string {
	if date == "" {
		return fallbackDateTime
	}
	if eventTime == "" {
		return date
	}
	return fmt.Sprintf("%s at %s", date, eventTime)
}

func fallback(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
