package postgres

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/tenancy/pkg/models"
)

// newTestDB opens a migrated in-memory sqlite database
func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open(DriverSQLite, ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, Migrate(context.Background(), db))
	return db
}

func strPtr(s string) *string { return &s }

func createRelation(t *testing.T, repo *RelationRepository, org, branch, user string, role models.Role, rt models.RelationType) *models.Relation {
	t.Helper()

	rel := &models.Relation{
		OrganizationID: org,
		BranchID:       branch,
		UserID:         user,
		Role:           role,
		RelationType:   rt,
	}
	require.NoError(t, repo.Create(context.Background(), rel))
	return rel
}
