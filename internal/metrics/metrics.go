package metrics

import (
	"log/slog"

	"go.opentelemetry.io/otel"
)

type Metrics struct {
	Database     *DatabaseMetrics
	Health       *HealthMetrics
	Messaging    *MessagingMetrics
	Achievements *AchievementMetrics
	logger       *slog.Logger
}

func New(serviceName string, logger *slog.Logger) (*Metrics, error) {
	meter := otel.Meter(serviceName)

	database, err := NewDatabaseMetrics(meter)
	if err != nil {
		return nil, err
	}

	health, err := NewHealthMetrics(meter)
	if err != nil {
		return nil, err
	}

	messaging, err := NewMessagingMetrics(meter)
	if err != nil {
		return nil, err
	}

	achievements, err := NewAchievementMetrics(meter)
	if err != nil {
		return nil, err
	}

	logger.Info("metrics collectors initialized successfully")

	return &Metrics{
		Database:     database,
		Health:       health,
		Messaging:    messaging,
		Achievements: achievements,
		logger:       logger,
	}, nil
}

// NewMock creates a no-op Metrics instance for testing
// The returned Metrics will safely ignore all Record* calls
func NewMock() *Metrics {
	return &Metrics{
		Database:     &DatabaseMetrics{},
		Health:       &HealthMetrics{dependencies: map[string]*DependencyStatus{}},
		Messaging:    &MessagingMetrics{},
		Achievements: &AchievementMetrics{},
	}
}
