//go:build integration

package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/platinummonkey/tenancy/pkg/apperr"
	"github.com/platinummonkey/tenancy/pkg/models"
	"github.com/platinummonkey/tenancy/pkg/storage"
)

// setupPostgres starts a throwaway PostgreSQL container and returns a
// migrated handle. The test is skipped when no container runtime is reachable.
func setupPostgres(t *testing.T) *sql.DB {
	t.Helper()

	ctx := context.Background()

	provider, err := testcontainers.ProviderDocker.GetProvider()
	if err != nil {
		t.Skip("Docker/Podman not available, skipping integration tests")
	}
	defer provider.Close()

	container, err := tcpostgres.Run(ctx, "postgres:15-alpine",
		tcpostgres.WithDatabase("tenancy_test"),
		tcpostgres.WithUsername("tenancy"),
		tcpostgres.WithPassword("tenancy_test_password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Skipf("Failed to start PostgreSQL container: %v", err)
	}
	t.Cleanup(func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := container.Terminate(cleanupCtx); err != nil {
			t.Errorf("Failed to terminate container: %v", err)
		}
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	cm, err := NewConnectionManager(ctx, ConnectionConfig{Driver: DriverPostgres, URL: connStr, MaxConns: 5})
	require.NoError(t, err)
	t.Cleanup(func() { cm.Close() })

	require.NoError(t, Migrate(ctx, cm.DB()))
	return cm.DB()
}

func TestPostgres_OrganizationLifecycle(t *testing.T) {
	db := setupPostgres(t)
	ctx := context.Background()

	users := NewUserRepository(db)
	orgs := NewOrganizationRepository(db)
	branches := NewBranchRepository(db)
	relations := NewRelationRepository(db)
	tx := NewTxManager(db)

	user := &models.User{Password: "hash", PhoneNumber: "+15550100"}
	require.NoError(t, users.Create(ctx, user))

	err := users.Create(ctx, &models.User{Password: "hash", PhoneNumber: "+15550100"})
	assert.ErrorIs(t, err, apperr.ErrCannotCreate)

	org := &models.Organization{Name: "acme"}
	err = tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := orgs.Create(ctx, org); err != nil {
			return err
		}
		branch := &models.Branch{
			Name:           models.DefaultBranchName(org.Name),
			OrganizationID: org.ID,
			ForCall:        models.ForCalls{{Name: "desk", PhoneNumber: "+1"}},
		}
		if err := branches.Create(ctx, branch); err != nil {
			return err
		}
		return relations.Create(ctx, &models.Relation{
			OrganizationID: org.ID,
			BranchID:       branch.ID,
			UserID:         user.ID,
			Role:           models.RoleOrganizationOwner,
			RelationType:   models.RelationTypeRelation,
		})
	})
	require.NoError(t, err)

	rels, err := relations.ListByUser(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, rels, 1)
	assert.Equal(t, models.RoleOrganizationOwner, rels[0].Role)

	page, err := branches.List(ctx, storage.BranchQuery{OrganizationID: org.ID})
	require.NoError(t, err)
	require.Equal(t, 1, page.Count)
	assert.Equal(t, "acme_main", page.Items[0].Name)
	assert.Len(t, page.Items[0].ForCall, 1)

	require.NoError(t, orgs.Delete(ctx, org.ID))
	n, err := relations.DeleteByScope(ctx, storage.ScopeOrganization, org.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
