package notification

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"achievement-service/internal/metrics"
)

// Dispatcher delivers messages on a fixed pool of workers. Delivery failures
// are logged and counted, never returned to whoever enqueued the message.
type Dispatcher struct {
	sender      Sender
	logger      *slog.Logger
	metrics     *metrics.Metrics
	sendTimeout time.Duration

	queue  chan Message
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
}

type DispatcherConfig struct {
	Workers     int
	QueueSize   int
	SendTimeout time.Duration
}

func NewDispatcher(sender Sender, cfg DispatcherConfig, logger *slog.Logger, m *metrics.Metrics) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 100
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 10 * time.Second
	}

	d := &Dispatcher{
		sender:      sender,
		logger:      logger,
		metrics:     m,
		sendTimeout: cfg.SendTimeout,
		queue:       make(chan Message, cfg.QueueSize),
	}

	d.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go d.work()
	}
	return d
}

func (d *Dispatcher) Enqueue(msg Message) bool {
	if len(msg.To) == 0 {
		return false
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.logger.Warn("notification dropped, dispatcher closed", "subject", msg.Subject)
		return false
	}

	select {
	case d.queue <- msg:
		return true
	default:
		d.logger.Warn("notification dropped, queue full", "subject", msg.Subject, "recipients", len(msg.To))
		d.metrics.Messaging.RecordNotificationDropped(context.Background())
		return false
	}
}

func (d *Dispatcher) work() {
	defer d.wg.Done()
	for msg := range d.queue {
		d.deliver(msg)
	}
}

func (d *Dispatcher) deliver(msg Message) {
	ctx, cancel := context.WithTimeout(context.Background(), d.sendTimeout)
	defer cancel()

	err := d.sender.Send(ctx, msg)
	d.metrics.Messaging.RecordNotification(ctx, err)
	if err != nil {
		d.logger.Error("failed to send notification", "subject", msg.Subject, "recipients", len(msg.To), "error", err)
		return
	}
	d.logger.Debug("notification sent", "subject", msg.Subject, "recipients", len(msg.To))
}

// Close stops accepting messages and waits for queued ones to be delivered
// or for ctx to expire.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
