package notifier

import (
	"context"
	"fmt"
	"log/slog"

	"gopkg.in/gomail.v2"
)

// Mailer sends one outbound message to the notification sink.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// SMTPMailer delivers mail over an authenticated SMTP connection with
// STARTTLS, one dial per send. The consumer loop is sequential, so there
// is no connection pooling to manage.
type SMTPMailer struct {
	dialer   *gomail.Dialer
	from     string
	fromName string
	logger   *slog.Logger
}

func NewSMTPMailer(host string, port int, user, password, fromEmail, fromName string, logger *slog.Logger) *SMTPMailer {
	if fromEmail == "" {
		fromEmail = user
	}

	return &SMTPMailer{
		dialer:   gomail.NewDialer(host, port, user, password),
		from:     fromEmail,
		fromName: fromName,
		logger:   logger,
	}
}

// Send transmits one HTML message. gomail does not take a context; the
// dial carries its own timeout and the loop never aborts an in-flight
// send anyway.
func (m *SMTPMailer) Send(_ context.Context, to, subject, htmlBody string) error {
	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", m.from, m.fromName)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", htmlBody)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("sending mail to %s: %w", to, err)
	}

	m.logger.Info("confirmation email sent", "recipient", to, "subject", subject)
	return nil
}
