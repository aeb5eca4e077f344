package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MessagingMetrics covers outbound side channels: domain events and email.
type MessagingMetrics struct {
	eventsPublished      metric.Int64Counter
	eventErrors          metric.Int64Counter
	publishDuration      metric.Float64Histogram
	notificationsSent    metric.Int64Counter
	notificationsFailed  metric.Int64Counter
	notificationsDropped metric.Int64Counter
}

func NewMessagingMetrics(meter metric.Meter) (*MessagingMetrics, error) {
	mm := &MessagingMetrics{}

	var err error

	mm.eventsPublished, err = meter.Int64Counter(
		"messaging.events.published",
		metric.WithDescription("Total number of domain events published"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, err
	}

	mm.eventErrors, err = meter.Int64Counter(
		"messaging.events.errors",
		metric.WithDescription("Total number of domain events that failed to publish"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	// Buckets: 100µs .. 1s
	mm.publishDuration, err = meter.Float64Histogram(
		"messaging.event.publish_duration",
		metric.WithDescription("Time spent publishing a domain event"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1.0),
	)
	if err != nil {
		return nil, err
	}

	mm.notificationsSent, err = meter.Int64Counter(
		"notifications.sent",
		metric.WithDescription("Total number of notification emails delivered to the provider"),
		metric.WithUnit("{message}"),
	)
	if err != nil {
		return nil, err
	}

	mm.notificationsFailed, err = meter.Int64Counter(
		"notifications.failed",
		metric.WithDescription("Total number of notification emails that failed"),
		metric.WithUnit("{message}"),
	)
	if err != nil {
		return nil, err
	}

	mm.notificationsDropped, err = meter.Int64Counter(
		"notifications.dropped",
		metric.WithDescription("Total number of notifications dropped because the queue was full"),
		metric.WithUnit("{message}"),
	)
	if err != nil {
		return nil, err
	}

	return mm, nil
}

func (mm *MessagingMetrics) RecordPublish(ctx context.Context, eventType string, duration time.Duration, err error) {
	if mm == nil || mm.eventsPublished == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("event_type", eventType))

	mm.eventsPublished.Add(ctx, 1, attrs)
	mm.publishDuration.Record(ctx, duration.Seconds(), attrs)
	if err != nil {
		mm.eventErrors.Add(ctx, 1, attrs)
	}
}

func (mm *MessagingMetrics) RecordNotification(ctx context.Context, err error) {
	if mm == nil || mm.notificationsSent == nil {
		return
	}
	if err != nil {
		mm.notificationsFailed.Add(ctx, 1)
		return
	}
	mm.notificationsSent.Add(ctx, 1)
}

func (mm *MessagingMetrics) RecordNotificationDropped(ctx context.Context) {
	if mm != nil && mm.notificationsDropped != nil {
		mm.notificationsDropped.Add(ctx, 1)
	}
}
