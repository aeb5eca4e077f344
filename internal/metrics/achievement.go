package metrics

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type AchievementMetrics struct {
	submitted       metric.Int64Counter
	verified        metric.Int64Counter
	deleted         metric.Int64Counter
	portfolioViewed metric.Int64Counter
	usersRegistered metric.Int64Counter
}

func NewAchievementMetrics(meter metric.Meter) (*AchievementMetrics, error) {
	am := &AchievementMetrics{}

	var err error

	am.submitted, err = meter.Int64Counter(
		"achievements.submitted",
		metric.WithDescription("Total number of achievements submitted"),
		metric.WithUnit("{achievement}"),
	)
	if err != nil {
		return nil, err
	}

	am.verified, err = meter.Int64Counter(
		"achievements.verified",
		metric.WithDescription("Total number of verification decisions"),
		metric.WithUnit("{decision}"),
	)
	if err != nil {
		return nil, err
	}

	am.deleted, err = meter.Int64Counter(
		"achievements.deleted",
		metric.WithDescription("Total number of achievements deleted"),
		metric.WithUnit("{achievement}"),
	)
	if err != nil {
		return nil, err
	}

	am.portfolioViewed, err = meter.Int64Counter(
		"portfolio.viewed",
		metric.WithDescription("Total number of public portfolio views"),
		metric.WithUnit("{view}"),
	)
	if err != nil {
		return nil, err
	}

	am.usersRegistered, err = meter.Int64Counter(
		"users.registered",
		metric.WithDescription("Total number of student accounts registered"),
		metric.WithUnit("{user}"),
	)
	if err != nil {
		return nil, err
	}

	return am, nil
}

func (am *AchievementMetrics) RecordSubmitted(ctx context.Context, category string) {
	if am != nil && am.submitted != nil {
		am.submitted.Add(ctx, 1, metric.WithAttributes(attribute.String("category", category)))
	}
}

func (am *AchievementMetrics) RecordVerified(ctx context.Context, action string) {
	if am != nil && am.verified != nil {
		am.verified.Add(ctx, 1, metric.WithAttributes(attribute.String("action", action)))
	}
}

func (am *AchievementMetrics) RecordDeleted(ctx context.Context) {
	if am != nil && am.deleted != nil {
		am.deleted.Add(ctx, 1)
	}
}

func (am *AchievementMetrics) RecordPortfolioViewed(ctx context.Context) {
	if am != nil && am.portfolioViewed != nil {
		am.portfolioViewed.Add(ctx, 1)
	}
}

func (am *AchievementMetrics) RecordRegistration(ctx context.Context) {
	if am != nil && am.usersRegistered != nil {
		am.usersRegistered.Add(ctx, 1)
	}
}
