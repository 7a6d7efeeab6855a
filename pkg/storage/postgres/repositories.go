package postgres

import (
	"context"
	"database/sql"

	"github.com/platinummonkey/tenancy/pkg/storage"
)

// NewRepositories builds every repository over one database handle
func NewRepositories(db *sql.DB) storage.Repositories {
	return storage.Repositories{
		Users:          NewUserRepository(db),
		Admins:         NewAdminRepository(db),
		Organizations:  NewOrganizationRepository(db),
		Branches:       NewBranchRepository(db),
		Relations:      NewRelationRepository(db),
		TelegramGroups: NewTelegramGroupRepository(db),
		FCM:            NewFCMSubscriptionRepository(db),
		Subscriptions:  NewSubscriptionRepository(db),
		Tx:             NewTxManager(db),
	}
}

// OpenSQLite opens and migrates a sqlite database on a single connection;
// used by tests and the sqlite3 development mode.
func OpenSQLite(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open(DriverSQLite, dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	if err := Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
