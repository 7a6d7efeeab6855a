package orgs

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/tenancy/pkg/apperr"
	"github.com/platinummonkey/tenancy/pkg/models"
	"github.com/platinummonkey/tenancy/pkg/rbac"
	"github.com/platinummonkey/tenancy/pkg/storage"
	"github.com/platinummonkey/tenancy/pkg/storage/postgres"
)

type cascadeCall struct {
	entity, step string
	rows         int64
	err          error
}

type cascadeRecorder struct{ calls []cascadeCall }

func (r *cascadeRecorder) RecordCascade(entity, step string, rows int64, err error) {
	r.calls = append(r.calls, cascadeCall{entity, step, rows, err})
}

type fixture struct {
	repos    storage.Repositories
	recorder *cascadeRecorder
	orgs     *OrganizationService
	branches *BranchService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := postgres.OpenSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return newFixtureWithRepos(postgres.NewRepositories(db))
}

func newFixtureWithRepos(repos storage.Repositories) *fixture {
	rec := &cascadeRecorder{}
	cascade := NewCascade(rec, nil)
	eval := rbac.NewEvaluator(nil)
	return &fixture{
		repos:    repos,
		recorder: rec,
		orgs:     NewOrganizationService(repos, eval, cascade, nil),
		branches: NewBranchService(repos, eval, cascade, nil),
	}
}

func (f *fixture) user(t *testing.T, phone string) string {
	t.Helper()
	u := &models.User{PhoneNumber: phone, Password: "hash"}
	require.NoError(t, f.repos.Users.Create(context.Background(), u))
	return u.ID
}

// mainBranch returns the branch created together with org
func (f *fixture) mainBranch(t *testing.T, orgID string) models.Branch {
	t.Helper()
	page, err := f.repos.Branches.List(context.Background(), storage.BranchQuery{OrganizationID: orgID})
	require.NoError(t, err)
	require.NotEmpty(t, page.Items)
	return page.Items[0]
}

// failingRelations fails every Create
type failingRelations struct {
	storage.RelationRepository
}

func (failingRelations) Create(context.Context, *models.Relation) error {
	return apperr.CannotCreate("relation", errors.New("boom"))
}

// brokenScope fails every scoped delete
type brokenScope struct {
	storage.TelegramGroupRepository
}

func (brokenScope) DeleteByScope(context.Context, storage.ScopeField, string) (int64, error) {
	return 0, errors.New("telegram table locked")
}
