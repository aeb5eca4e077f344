package notification_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"achievement-service/internal/metrics"
	"achievement-service/internal/notification"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	mu      sync.Mutex
	sent    []notification.Message
	failFor string
	block   chan struct{}
}

func (s *recordingSender) Send(ctx context.Context, msg notification.Message) error {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if msg.Subject == s.failFor {
		return errors.New("provider down")
	}
	s.sent = append(s.sent, msg)
	return nil
}

func (s *recordingSender) subjects() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.sent))
	for _, m := range s.sent {
		out = append(out, m.Subject)
	}
	return out
}

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDispatcher(t *testing.T) {
	t.Run("DeliversAndDrainsOnClose", func(t *testing.T) {
		sender := &recordingSender{}
		d := notification.NewDispatcher(sender, notification.DispatcherConfig{Workers: 2, QueueSize: 10}, newLogger(), metrics.NewMock())

		assert.True(t, d.Enqueue(notification.Message{To: []string{"a@example.com"}, Subject: "one"}))
		assert.True(t, d.Enqueue(notification.Message{To: []string{"b@example.com"}, Subject: "two"}))

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		require.NoError(t, d.Close(ctx))

		assert.ElementsMatch(t, []string{"one", "two"}, sender.subjects())
	})

	t.Run("FailuresAreSwallowed", func(t *testing.T) {
		sender := &recordingSender{failFor: "broken"}
		d := notification.NewDispatcher(sender, notification.DispatcherConfig{Workers: 1, QueueSize: 10}, newLogger(), metrics.NewMock())

		assert.True(t, d.Enqueue(notification.Message{To: []string{"a@example.com"}, Subject: "broken"}))
		assert.True(t, d.Enqueue(notification.Message{To: []string{"a@example.com"}, Subject: "fine"}))

		require.NoError(t, d.Close(context.Background()))
		assert.Equal(t, []string{"fine"}, sender.subjects())
	})

	t.Run("DropsWhenQueueFull", func(t *testing.T) {
		sender := &recordingSender{block: make(chan struct{})}
		d := notification.NewDispatcher(sender, notification.DispatcherConfig{Workers: 1, QueueSize: 1}, newLogger(), metrics.NewMock())

		// first message is picked up by the worker and blocks, second fills the queue
		assert.True(t, d.Enqueue(notification.Message{To: []string{"a@example.com"}, Subject: "1"}))
		assert.Eventually(t, func() bool {
			return d.Enqueue(notification.Message{To: []string{"a@example.com"}, Subject: "2"})
		}, time.Second, 5*time.Millisecond)
		assert.False(t, d.Enqueue(notification.Message{To: []string{"a@example.com"}, Subject: "3"}))

		close(sender.block)
		require.NoError(t, d.Close(context.Background()))
		assert.ElementsMatch(t, []string{"1", "2"}, sender.subjects())
	})

	t.Run("RejectsAfterClose", func(t *testing.T) {
		d := notification.NewDispatcher(&recordingSender{}, notification.DispatcherConfig{}, newLogger(), metrics.NewMock())
		require.NoError(t, d.Close(context.Background()))

		assert.False(t, d.Enqueue(notification.Message{To: []string{"a@example.com"}, Subject: "late"}))
	})

	t.Run("RejectsEmptyRecipients", func(t *testing.T) {
		d := notification.NewDispatcher(&recordingSender{}, notification.DispatcherConfig{}, newLogger(), metrics.NewMock())
		defer d.Close(context.Background())

		assert.False(t, d.Enqueue(notification.Message{Subject: "nobody"}))
	})
}
