package db

import (
	"database/sql"
	"fmt"
	"strings"
)

// migrations are idempotent DDL statements run in order on every open.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS customers (
		agent_id TEXT NOT NULL,
		code TEXT NOT NULL,
		name TEXT NOT NULL,
		type TEXT NOT NULL DEFAULT 'existing',
		area TEXT NOT NULL DEFAULT '',
		lat REAL,
		lon REAL,
		tier INTEGER NOT NULL,
		last_visit_at TEXT,
		orders_count INTEGER NOT NULL DEFAULT 0,
		sales_amount REAL NOT NULL DEFAULT 0,
		conversion_rate REAL NOT NULL DEFAULT 0,
		visit_frequency INTEGER NOT NULL DEFAULT 1,
		visit_duration_min INTEGER NOT NULL DEFAULT 0,
		active INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (agent_id, code)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_customers_agent_area ON customers(agent_id, area)`,

	`CREATE TABLE IF NOT EXISTS visit_events (
		id TEXT PRIMARY KEY,
		agent_id TEXT NOT NULL,
		customer_code TEXT NOT NULL,
		area TEXT NOT NULL DEFAULT '',
		visited_at TEXT NOT NULL,
		amount REAL NOT NULL DEFAULT 0,
		duration_min INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS idx_visit_events_agent_date ON visit_events(agent_id, visited_at)`,

	`CREATE TABLE IF NOT EXISTS plans (
		id TEXT PRIMARY KEY,
		agent_id TEXT NOT NULL,
		period_kind TEXT NOT NULL,
		period_start TEXT NOT NULL,
		period_end TEXT NOT NULL,
		status TEXT NOT NULL,
		config_version TEXT NOT NULL DEFAULT '',
		target_visits INTEGER NOT NULL DEFAULT 0,
		target_revenue REAL NOT NULL DEFAULT 0,
		target_nbd_visits INTEGER NOT NULL DEFAULT 0,
		days_json TEXT NOT NULL DEFAULT '{}',
		sub_targets_json TEXT NOT NULL DEFAULT '[]',
		focus_areas_json TEXT NOT NULL DEFAULT '[]',
		priority_customers_json TEXT NOT NULL DEFAULT '[]',
		deferred_json TEXT NOT NULL DEFAULT '[]',
		warnings_json TEXT NOT NULL DEFAULT '[]',
		narrative TEXT NOT NULL DEFAULT '',
		revision_count INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		published_at TEXT,
		closed_at TEXT,
		UNIQUE (agent_id, period_kind, period_start)
	)`,

	`CREATE TABLE IF NOT EXISTS plan_revisions (
		plan_id TEXT NOT NULL REFERENCES plans(id) ON DELETE CASCADE,
		seq INTEGER NOT NULL,
		period_index INTEGER NOT NULL,
		analysis_json TEXT NOT NULL,
		deltas_json TEXT NOT NULL DEFAULT '[]',
		escalated_json TEXT NOT NULL DEFAULT '[]',
		carry_over_visits INTEGER NOT NULL DEFAULT 0,
		carry_over_revenue REAL NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		PRIMARY KEY (plan_id, seq)
	)`,
}

// Migrate runs all schema migrations.
func Migrate(db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			// Tolerate re-runs of ALTER TABLE statements added later.
			if strings.Contains(err.Error(), "duplicate column name") {
				continue
			}
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}
