package database

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// AddIndexes adds the lookup indexes the aggregator and the delegation
// transitions rely on.
func AddIndexes(db *gorm.DB) error {
	indexes := []struct {
		table   string
		name    string
		columns string
	}{
		// Task list ordering and clone lookups
		{"tasks", "idx_tasks_created_at", "created_at"},
		{"tasks", "idx_tasks_status", "status"},
		{"tasks", "idx_tasks_due_date", "due_date"},

		// Assignment joins
		{"task_assignments", "idx_task_assignments_staff_id", "staff_id"},
		{"task_assignments", "idx_task_assignments_assigned_at", "task_id, assigned_at"},
		{"task_team_assignments", "idx_task_team_assignments_team_id", "team_id"},

		// Delegation guard: (task, to_staff, status)
		{"task_delegations", "idx_task_delegations_guard", "task_id, to_staff_id, delegation_status"},

		// Team expansion
		{"team_members", "idx_team_members_staff_id", "staff_id"},

		// Reschedule lookups
		{"task_reschedules", "idx_task_reschedules_task_status", "task_id, status"},

		// Notification inbox
		{"notifications", "idx_notifications_user_viewed", "user_id, viewed"},
	}

	migrator := db.Migrator()
	for _, idx := range indexes {
		if migrator.HasIndex(idx.table, idx.name) {
			log.Debug().Str("index", idx.name).Msg("index already exists, skipping")
			continue
		}

		sql := fmt.Sprintf("CREATE INDEX %s ON %s (%s)", idx.name, idx.table, idx.columns)
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}

		log.Info().Str("index", idx.name).Str("table", idx.table).Str("columns", idx.columns).Msg("created index")
	}

	return nil
}
