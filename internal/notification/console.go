package notification

import (
	"context"
	"log/slog"
)

// ConsoleSender logs messages instead of delivering them. Used when no mail
// provider is configured.
type ConsoleSender struct {
	logger *slog.Logger
}

func NewConsoleSender(logger *slog.Logger) *ConsoleSender {
	return &ConsoleSender{logger: logger}
}

func (s *ConsoleSender) Send(ctx context.Context, msg Message) error {
	s.logger.InfoContext(ctx, "email (console)",
		"to", msg.To,
		"subject", msg.Subject,
		"text", msg.Text,
	)
	return nil
}
