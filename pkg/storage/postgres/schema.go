package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// schema is portable between PostgreSQL and SQLite: ids are uuid strings,
// timestamps are stored in UTC, for_call is a JSON document. No foreign key
// cascades; dependents are removed explicitly by the lifecycle services.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id VARCHAR(36) PRIMARY KEY,
		password TEXT NOT NULL,
		image_path TEXT NOT NULL DEFAULT '',
		phone_number VARCHAR(32) NOT NULL UNIQUE,
		email VARCHAR(256),
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS admins (
		id VARCHAR(36) PRIMARY KEY,
		password TEXT NOT NULL,
		phone_number VARCHAR(32) NOT NULL UNIQUE,
		role VARCHAR(16) NOT NULL,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS organizations (
		id VARCHAR(36) PRIMARY KEY,
		name VARCHAR(256) NOT NULL,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS branches (
		id VARCHAR(36) PRIMARY KEY,
		name VARCHAR(256) NOT NULL,
		branch_location VARCHAR(256),
		for_call TEXT,
		organization_id VARCHAR(36) NOT NULL,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_branches_organization ON branches(organization_id)`,
	`CREATE TABLE IF NOT EXISTS relations (
		id VARCHAR(36) PRIMARY KEY,
		organization_id VARCHAR(36) NOT NULL,
		branch_id VARCHAR(36) NOT NULL,
		user_id VARCHAR(36) NOT NULL,
		role VARCHAR(32) NOT NULL,
		relation_type VARCHAR(32) NOT NULL,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_relations_user ON relations(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_relations_scope ON relations(organization_id, branch_id)`,
	`CREATE TABLE IF NOT EXISTS telegram_groups (
		id VARCHAR(36) PRIMARY KEY,
		group_id VARCHAR(64) NOT NULL,
		name VARCHAR(256),
		organization_id VARCHAR(36) NOT NULL,
		branch_id VARCHAR(36) NOT NULL,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_telegram_groups_scope ON telegram_groups(organization_id, branch_id)`,
	`CREATE TABLE IF NOT EXISTS fcm_subscriptions (
		id VARCHAR(36) PRIMARY KEY,
		fcm_token TEXT NOT NULL,
		organization_id VARCHAR(36) NOT NULL,
		branch_id VARCHAR(36) NOT NULL,
		user_id VARCHAR(36) NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_fcm_subscriptions_user ON fcm_subscriptions(user_id)`,
	`CREATE TABLE IF NOT EXISTS subscriptions (
		id VARCHAR(36) PRIMARY KEY,
		endpoint TEXT NOT NULL,
		expiration_time VARCHAR(64),
		p256dh VARCHAR(256) NOT NULL,
		auth VARCHAR(256) NOT NULL,
		organization_id VARCHAR(36) NOT NULL,
		branch_id VARCHAR(36) NOT NULL,
		user_id VARCHAR(36) NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_subscriptions_user ON subscriptions(user_id)`,
}

// Migrate creates every table and index that does not exist yet
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement %d: %w", i, err)
		}
	}
	return nil
}
