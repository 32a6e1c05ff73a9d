// Package mail implements the driven adapter for transactional email.
package mail

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"styleguides/internal/logger"
)

// SendGrid sends mail through the SendGrid v3 API.
type SendGrid struct {
	client   *sendgrid.Client
	fromName string
	fromAddr string
	log      *logger.Logger
}

// NewSendGrid creates a SendGrid mailer. apiKey must be a valid SendGrid
// API key.
func NewSendGrid(apiKey, fromName, fromAddr string, log *logger.Logger) *SendGrid {
	return &SendGrid{
		client:   sendgrid.NewSendClient(apiKey),
		fromName: fromName,
		fromAddr: fromAddr,
		log:      log,
	}
}

// Send delivers a single email with both HTML and plain-text bodies.
func (s *SendGrid) Send(ctx context.Context, toAddr, toName, subject, htmlBody, textBody string) error {
	from := sgmail.NewEmail(s.fromName, s.fromAddr)
	to := sgmail.NewEmail(toName, toAddr)
	message := sgmail.NewSingleEmail(from, subject, to, textBody, htmlBody)

	resp, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("sendgrid: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid: HTTP %d: %s", resp.StatusCode, resp.Body)
	}

	s.log.Debug().Str("to", toAddr).Str("subject", subject).Msg("email sent")
	return nil
}

// LogOnly is a mailer for local development that writes the message to the
// log instead of sending it.
type LogOnly struct {
	log *logger.Logger
}

// NewLogOnly creates a mailer that only logs.
func NewLogOnly(log *logger.Logger) *LogOnly {
	return &LogOnly{log: log}
}

// Send logs the message and reports success.
func (l *LogOnly) Send(_ context.Context, toAddr, _, subject, _, textBody string) error {
	l.log.Info().
		Str("to", toAddr).
		Str("subject", subject).
		Str("body", textBody).
		Msg("email (log only)")
	return nil
}
