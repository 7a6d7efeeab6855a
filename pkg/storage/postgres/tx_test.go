package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/tenancy/pkg/models"
)

func TestTxManager_CommitAndRollback(t *testing.T) {
	db := newTestDB(t)
	tx := NewTxManager(db)
	orgs := NewOrganizationRepository(db)
	branches := NewBranchRepository(db)
	ctx := context.Background()

	var committed string
	err := tx.RunInTx(ctx, func(ctx context.Context) error {
		org := &models.Organization{Name: "acme"}
		if err := orgs.Create(ctx, org); err != nil {
			return err
		}
		committed = org.ID
		return branches.Create(ctx, &models.Branch{Name: "acme_main", OrganizationID: org.ID})
	})
	require.NoError(t, err)

	_, err = orgs.Get(ctx, committed)
	require.NoError(t, err)

	var rolledBack string
	boom := errors.New("boom")
	err = tx.RunInTx(ctx, func(ctx context.Context) error {
		org := &models.Organization{Name: "ghost"}
		if err := orgs.Create(ctx, org); err != nil {
			return err
		}
		rolledBack = org.ID
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = orgs.Get(ctx, rolledBack)
	assert.Error(t, err)
}

func TestTxManager_NestedJoinsOuter(t *testing.T) {
	db := newTestDB(t)
	tx := NewTxManager(db)
	orgs := NewOrganizationRepository(db)
	ctx := context.Background()

	var id string
	err := tx.RunInTx(ctx, func(ctx context.Context) error {
		return tx.RunInTx(ctx, func(ctx context.Context) error {
			org := &models.Organization{Name: "inner"}
			if err := orgs.Create(ctx, org); err != nil {
				return err
			}
			id = org.ID
			return errors.New("abort")
		})
	})
	require.Error(t, err)

	_, err = orgs.Get(ctx, id)
	assert.Error(t, err)
}

func TestTxManager_RollbackOnPanic(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectRollback()

	assert.Panics(t, func() {
		_ = NewTxManager(db).RunInTx(context.Background(), func(ctx context.Context) error {
			panic("boom")
		})
	})
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTxManager_CommitFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectCommit().WillReturnError(errors.New("disk full"))

	err = NewTxManager(db).RunInTx(context.Background(), func(ctx context.Context) error { return nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to commit transaction")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_ServerErrorMapping(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT .* FROM users WHERE id = \\$1").
		WithArgs("u1").
		WillReturnError(errors.New("connection reset"))

	_, err = NewUserRepository(db).Get(context.Background(), "u1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Internal server error")
	assert.NoError(t, mock.ExpectationsWereMet())
}
