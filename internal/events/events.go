package events

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"achievement-service/internal/metrics"
)

const (
	TypeSubmitted = "achievement.submitted"
	TypeUpdated   = "achievement.updated"
	TypeVerified  = "achievement.verified"
	TypeDeleted   = "achievement.deleted"
)

// AchievementEvent is the payload published for every achievement lifecycle change.
type AchievementEvent struct {
	Type          string    `json:"type"`
	AchievementID int64     `json:"achievementId"`
	StudentID     int64     `json:"studentId"`
	Status        string    `json:"status"`
	Points        int       `json:"points"`
	ActorID       int64     `json:"actorId"`
	At            time.Time `json:"at"`
}

// Sink delivers one event to a broker.
type Sink interface {
	Send(ctx context.Context, event AchievementEvent) error
	Close() error
}

// Publisher sends events in the background so request handling never waits
// on the broker. Failures are logged and counted.
type Publisher struct {
	sink    Sink
	timeout time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewPublisher(sink Sink, timeout time.Duration, logger *slog.Logger, m *metrics.Metrics) *Publisher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Publisher{
		sink:    sink,
		timeout: timeout,
		logger:  logger,
		metrics: m,
	}
}

func (p *Publisher) Publish(ctx context.Context, event AchievementEvent) {
	if p == nil || p.sink == nil {
		return
	}
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		p.logger.WarnContext(ctx, "event dropped, publisher closed", "type", event.Type, "achievement_id", event.AchievementID)
		return
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
		defer cancel()

		start := time.Now()
		err := p.sink.Send(sendCtx, event)
		p.metrics.Messaging.RecordPublish(sendCtx, event.Type, time.Since(start), err)

		if err != nil {
			p.logger.WarnContext(sendCtx, "failed to publish event",
				"type", event.Type,
				"achievement_id", event.AchievementID,
				"error", err,
			)
		}
	}()
}

// Close waits for in-flight sends and closes the sink.
func (p *Publisher) Close() error {
	if p == nil || p.sink == nil {
		return nil
	}
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	p.wg.Wait()
	return p.sink.Close()
}
