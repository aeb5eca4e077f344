package messaging

import (
	"context"
	"encoding/json"
	"log/slog"

	"achievement-service/internal/events"

	"github.com/nats-io/nats.go"
)

// Producer publishes achievement events to NATS under <prefix>.<event type>.
type Producer struct {
	conn   *nats.Conn
	prefix string
	logger *slog.Logger
}

func NewProducer(url string, subjectPrefix string, logger *slog.Logger) (*Producer, error) {
	nc, err := nats.Connect(url, nats.Name("achievement-service"))
	if err != nil {
		return nil, err
	}

	logger.Info("NATS producer initialized", "url", url, "subject_prefix", subjectPrefix)

	return &Producer{
		conn:   nc,
		prefix: subjectPrefix,
		logger: logger,
	}, nil
}

// Subject returns the subject an event type is published on.
func (p *Producer) Subject(eventType string) string {
	if p.prefix == "" {
		return eventType
	}
	return p.prefix + "." + eventType
}

func (p *Producer) Send(ctx context.Context, event events.AchievementEvent) error {
	return p.SendMessage(ctx, p.Subject(event.Type), event)
}

func (p *Producer) SendMessage(ctx context.Context, subject string, value any) error {
	valueBytes, err := json.Marshal(value)
	if err != nil {
		p.logger.ErrorContext(ctx, "failed to marshal message", "error", err)
		return err
	}

	if err := p.conn.Publish(subject, valueBytes); err != nil {
		p.logger.ErrorContext(ctx, "failed to send message to NATS", "error", err)
		return err
	}
	// Publish only buffers; flush so the caller's deadline covers delivery to the server.
	if err := p.conn.FlushWithContext(ctx); err != nil {
		return err
	}

	p.logger.DebugContext(ctx, "message sent to NATS", "subject", subject)
	return nil
}

// Ping reports whether the connection to the server is up.
func (p *Producer) Ping(ctx context.Context) error {
	return p.conn.FlushWithContext(ctx)
}

func (p *Producer) Close() error {
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
		return err
	}
	return nil
}
