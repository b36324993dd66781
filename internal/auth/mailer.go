package auth

import (
	"context"

	"github.com/rs/zerolog"
)

// Mailer delivers transactional email.
type Mailer interface {
	SendPasswordReset(ctx context.Context, to, link string) error
}

// LogMailer writes outgoing mail to the structured log instead of an SMTP relay.
type LogMailer struct {
	log zerolog.Logger
}

// NewLogMailer creates a mailer that logs through the given logger.
func NewLogMailer(log zerolog.Logger) *LogMailer {
	return &LogMailer{log: log.With().Str("component", "mailer").Logger()}
}

func (m *LogMailer) SendPasswordReset(ctx context.Context, to, link string) error {
	m.log.Info().Str("to", to).Str("link", link).Msg("password reset email")
	return nil
}
