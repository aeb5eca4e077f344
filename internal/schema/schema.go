// Package schema lists the tables and indexes of the service database.
package schema

import (
	"context"

	"achievement-service/internal/achievement"
	"achievement-service/internal/auth"
	"achievement-service/internal/db"
	"achievement-service/internal/event"
	"achievement-service/internal/notice"
	"achievement-service/internal/user"
	"achievement-service/internal/verification"

	"github.com/uptrace/bun"
)

// Tables in dependency order, for truncation in tests.
var Tables = []string{"verifications", "achievements", "notices", "events", "refresh_tokens", "users"}

func Models() []any {
	return []any{
		(*user.User)(nil),
		(*auth.RefreshToken)(nil),
		(*achievement.Achievement)(nil),
		(*verification.Record)(nil),
		(*notice.Notice)(nil),
		(*event.Event)(nil),
	}
}

// Indexes are applied after the tables exist.
var Indexes = []string{
	`CREATE INDEX IF NOT EXISTS idx_achievements_student_status ON achievements (student_id, status)`,
	`CREATE INDEX IF NOT EXISTS idx_achievements_category_level ON achievements (category, level)`,
	`CREATE INDEX IF NOT EXISTS idx_achievements_status_created ON achievements (status, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_verifications_achievement ON verifications (achievement_id, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_refresh_tokens_user ON refresh_tokens (user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_users_role_active ON users (role, is_active)`,
	`CREATE INDEX IF NOT EXISTS idx_events_category_starts ON events (category, starts_at DESC)`,
}

func Migrate(ctx context.Context, database *bun.DB) error {
	return db.RunMigrations(ctx, database, Models(), Indexes)
}
