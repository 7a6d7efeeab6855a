package orgs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/tenancy/pkg/apperr"
	"github.com/platinummonkey/tenancy/pkg/models"
	"github.com/platinummonkey/tenancy/pkg/storage"
	"github.com/platinummonkey/tenancy/pkg/storage/postgres"
)

func TestOrganizationService_Create(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := f.user(t, "+100000001")

	org, err := f.orgs.Create(ctx, userID, CreateOrganizationRequest{Name: "acme"})
	require.NoError(t, err)
	assert.NotEmpty(t, org.ID)

	branch := f.mainBranch(t, org.ID)
	assert.Equal(t, "acme_main", branch.Name)

	rels, err := f.repos.Relations.ListByUser(ctx, userID)
	require.NoError(t, err)
	require.Len(t, rels, 1)
	assert.Equal(t, org.ID, rels[0].OrganizationID)
	assert.Equal(t, branch.ID, rels[0].BranchID)
	assert.Equal(t, models.RoleOrganizationOwner, rels[0].Role)
	assert.Equal(t, models.RelationTypeRelation, rels[0].RelationType)
}

func TestOrganizationService_CreateValidation(t *testing.T) {
	f := newFixture(t)
	userID := f.user(t, "+100000001")

	_, err := f.orgs.Create(context.Background(), userID, CreateOrganizationRequest{Name: "  "})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestOrganizationService_CreateUnknownUser(t *testing.T) {
	f := newFixture(t)

	_, err := f.orgs.Create(context.Background(), "ghost", CreateOrganizationRequest{Name: "acme"})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	page, err := f.repos.Organizations.List(context.Background(), storage.OrganizationQuery{})
	require.NoError(t, err)
	assert.Zero(t, page.Total)
}

func TestOrganizationService_CreateRollsBack(t *testing.T) {
	db, err := postgres.OpenSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repos := postgres.NewRepositories(db)
	repos.Relations = failingRelations{repos.Relations}
	f := newFixtureWithRepos(repos)
	ctx := context.Background()
	userID := f.user(t, "+100000001")

	_, err = f.orgs.Create(ctx, userID, CreateOrganizationRequest{Name: "acme"})
	assert.ErrorIs(t, err, apperr.ErrCannotCreate)

	orgs, err := repos.Organizations.List(ctx, storage.OrganizationQuery{})
	require.NoError(t, err)
	assert.Zero(t, orgs.Total)
	branches, err := repos.Branches.List(ctx, storage.BranchQuery{})
	require.NoError(t, err)
	assert.Zero(t, branches.Total)
}

func TestOrganizationService_PatchRequiresOwner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user(t, "+100000001")
	stranger := f.user(t, "+100000002")

	org, err := f.orgs.Create(ctx, owner, CreateOrganizationRequest{Name: "acme"})
	require.NoError(t, err)

	name := "renamed"
	_, err = f.orgs.Patch(ctx, stranger, org.ID, models.OrganizationPatch{Name: &name})
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	patched, err := f.orgs.Patch(ctx, owner, org.ID, models.OrganizationPatch{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "renamed", patched.Name)
}

func TestOrganizationService_PendingOwnerCannotPatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user(t, "+100000001")
	invited := f.user(t, "+100000002")

	org, err := f.orgs.Create(ctx, owner, CreateOrganizationRequest{Name: "acme"})
	require.NoError(t, err)
	branch := f.mainBranch(t, org.ID)
	require.NoError(t, f.repos.Relations.Create(ctx, &models.Relation{
		OrganizationID: org.ID, BranchID: branch.ID, UserID: invited,
		Role: models.RoleOrganizationOwner, RelationType: models.RelationTypeInvitationToUser,
	}))

	name := "taken"
	_, err = f.orgs.Patch(ctx, invited, org.ID, models.OrganizationPatch{Name: &name})
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestOrganizationService_DeleteCascades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user(t, "+100000001")

	org, err := f.orgs.Create(ctx, owner, CreateOrganizationRequest{Name: "acme"})
	require.NoError(t, err)
	branch := f.mainBranch(t, org.ID)
	require.NoError(t, f.repos.TelegramGroups.Create(ctx, &models.TelegramGroup{
		GroupID: "-100", OrganizationID: org.ID, BranchID: branch.ID,
	}))

	result, err := f.orgs.Delete(ctx, owner, org.ID)
	require.NoError(t, err)
	assert.NoError(t, result.Err)
	assert.Equal(t, int64(1), result.Deleted["relations"])
	assert.Equal(t, int64(1), result.Deleted["telegram_groups"])
	assert.Equal(t, int64(1), result.Deleted["branches"])

	_, err = f.repos.Organizations.Get(ctx, org.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	rels, err := f.repos.Relations.ListByUser(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, rels)
}

func TestOrganizationService_DeleteBestEffort(t *testing.T) {
	db, err := postgres.OpenSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repos := postgres.NewRepositories(db)
	repos.TelegramGroups = brokenScope{repos.TelegramGroups}
	f := newFixtureWithRepos(repos)
	ctx := context.Background()
	owner := f.user(t, "+100000001")

	org, err := f.orgs.Create(ctx, owner, CreateOrganizationRequest{Name: "acme"})
	require.NoError(t, err)

	result, err := f.orgs.Delete(ctx, owner, org.ID)
	require.NoError(t, err)
	require.Error(t, result.Err)
	assert.Contains(t, result.Err.Error(), "telegram_groups")

	// later steps still ran
	assert.Equal(t, int64(1), result.Deleted["branches"])
	require.Len(t, f.recorder.calls, 5)
	assert.Equal(t, "telegram_groups", f.recorder.calls[1].step)
	assert.Error(t, f.recorder.calls[1].err)
}

func TestOrganizationService_DeleteMissing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user(t, "+100000001")

	// owning a relation in an organization whose row is gone still passes
	// the check, so the primary delete's NotFound is what surfaces
	require.NoError(t, f.repos.Relations.Create(ctx, &models.Relation{
		OrganizationID: "gone", BranchID: "b", UserID: owner,
		Role: models.RoleOrganizationOwner, RelationType: models.RelationTypeRelation,
	}))

	_, err := f.orgs.Delete(ctx, owner, "gone")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Empty(t, f.recorder.calls)
}
