package notify

import (
	"context"

	"github.com/rs/zerolog"
)

// LogMailer writes emails to the log instead of sending them.
type LogMailer struct {
	logger zerolog.Logger
}

// NewLogMailer creates a Mailer for local development.
func NewLogMailer(logger zerolog.Logger) *LogMailer {
	return &LogMailer{logger: logger.With().Str("component", "log-mailer").Logger()}
}

func (m *LogMailer) Send(_ context.Context, email Email) error {
	m.logger.Info().
		Str("to", email.To).
		Str("subject", email.Subject).
		Str("body", email.PlainText).
		Msg("email")
	return nil
}

// LogNotifier writes notifications to the log instead of delivering them.
type LogNotifier struct {
	logger zerolog.Logger
}

// NewLogNotifier creates a Notifier for local development.
func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With().Str("component", "log-notifier").Logger()}
}

func (n *LogNotifier) Notify(_ context.Context, recipient, message, link string) error {
	n.logger.Info().
		Str("recipient", recipient).
		Str("message", message).
		Str("link", link).
		Msg("notification")
	return nil
}
