package relations

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/tenancy/pkg/apperr"
	"github.com/platinummonkey/tenancy/pkg/auth"
	"github.com/platinummonkey/tenancy/pkg/events"
	"github.com/platinummonkey/tenancy/pkg/models"
	"github.com/platinummonkey/tenancy/pkg/orgs"
	"github.com/platinummonkey/tenancy/pkg/rbac"
	"github.com/platinummonkey/tenancy/pkg/storage"
	"github.com/platinummonkey/tenancy/pkg/storage/postgres"
)

type published struct {
	key   string
	event events.RelationEvent
}

type fakePublisher struct{ messages []published }

func (p *fakePublisher) Publish(_ context.Context, key string, value interface{}) error {
	p.messages = append(p.messages, published{key: key, event: value.(events.RelationEvent)})
	return nil
}

func (p *fakePublisher) Close() error { return nil }

type fixture struct {
	repos     storage.Repositories
	publisher *fakePublisher
	svc       *Service
	scope     auth.Scope
	owner     string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	db, err := postgres.OpenSQLite(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repos := postgres.NewRepositories(db)
	pub := &fakePublisher{}
	f := &fixture{
		repos:     repos,
		publisher: pub,
		svc:       NewService(repos, rbac.NewEvaluator(nil), pub, nil, nil),
	}

	org := &models.Organization{Name: "acme"}
	require.NoError(t, repos.Organizations.Create(ctx, org))
	branch := &models.Branch{Name: "acme_main", OrganizationID: org.ID}
	require.NoError(t, repos.Branches.Create(ctx, branch))
	f.scope = auth.Scope{OrganizationID: org.ID, BranchID: branch.ID}

	f.owner = f.user(t, "+100000001")
	f.relation(t, f.owner, models.RoleOrganizationOwner, models.RelationTypeRelation)
	return f
}

func (f *fixture) user(t *testing.T, phone string) string {
	t.Helper()
	u := &models.User{PhoneNumber: phone, Password: "hash"}
	require.NoError(t, f.repos.Users.Create(context.Background(), u))
	return u.ID
}

func (f *fixture) relation(t *testing.T, userID string, role models.Role, rt models.RelationType) *models.Relation {
	t.Helper()
	rel := &models.Relation{
		OrganizationID: f.scope.OrganizationID,
		BranchID:       f.scope.BranchID,
		UserID:         userID,
		Role:           role,
		RelationType:   rt,
	}
	require.NoError(t, f.repos.Relations.Create(context.Background(), rel))
	return rel
}

func rolePtr(r models.Role) *models.Role { return &r }
func typePtr(rt models.RelationType) *models.RelationType { return &rt }

func TestRequestJoinToBranch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	joiner := f.user(t, "+100000002")

	rel, err := f.svc.RequestJoinToBranch(ctx, joiner, f.scope)
	require.NoError(t, err)
	assert.Equal(t, models.RoleMember, rel.Role)
	assert.Equal(t, models.RelationTypeRequestToJoin, rel.RelationType)

	require.Len(t, f.publisher.messages, 1)
	assert.Equal(t, f.scope.OrganizationID, f.publisher.messages[0].key)
	assert.Equal(t, events.TypeRelationJoinRequested, f.publisher.messages[0].event.Type)

	_, err = f.svc.RequestJoinToBranch(ctx, joiner, f.scope)
	assert.ErrorIs(t, err, apperr.ErrCannotCreate)
}

func TestRequestJoinToBranch_UnknownBranch(t *testing.T) {
	f := newFixture(t)
	joiner := f.user(t, "+100000002")

	_, err := f.svc.RequestJoinToBranch(context.Background(), joiner,
		auth.Scope{OrganizationID: "other-org", BranchID: f.scope.BranchID})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestInviteToBranch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	invited := f.user(t, "+100000002")

	rel, err := f.svc.InviteToBranch(ctx, f.owner, f.scope, InviteRequest{UserID: invited, Role: models.RoleMember})
	require.NoError(t, err)
	assert.Equal(t, models.RelationTypeInvitationToUser, rel.RelationType)
	assert.Equal(t, invited, rel.UserID)
	require.Len(t, f.publisher.messages, 1)
	assert.Equal(t, events.TypeRelationInvited, f.publisher.messages[0].event.Type)
	assert.Equal(t, f.owner, f.publisher.messages[0].event.ActorID)
}

func TestInviteToBranch_PendingGrantsNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	founder := f.user(t, "+100000002")
	invited := f.user(t, "+100000003")

	eval := rbac.NewEvaluator(nil)
	org, err := orgs.NewOrganizationService(f.repos, eval, orgs.NewCascade(nil, nil), nil).
		Create(ctx, founder, orgs.CreateOrganizationRequest{Name: "Acme"})
	require.NoError(t, err)

	founderRels, err := f.repos.Relations.ListByUser(ctx, founder)
	require.NoError(t, err)
	require.Len(t, founderRels, 1)
	scope := auth.Scope{OrganizationID: org.ID, BranchID: founderRels[0].BranchID}
	require.NoError(t, rbac.Permission(founderRels, scope.OrganizationID, scope.BranchID))

	_, err = f.svc.InviteToBranch(ctx, founder, scope, InviteRequest{UserID: invited, Role: models.RoleMember})
	require.NoError(t, err)

	invitedRels, err := f.repos.Relations.ListByUser(ctx, invited)
	require.NoError(t, err)
	require.Len(t, invitedRels, 1)
	assert.ErrorIs(t, rbac.Permission(invitedRels, scope.OrganizationID, scope.BranchID), apperr.ErrForbidden)

	// an owner-role invitation stays powerless until accepted
	boss := f.user(t, "+100000004")
	_, err = f.svc.InviteToBranch(ctx, founder, scope, InviteRequest{UserID: boss, Role: models.RoleOrganizationOwner})
	require.NoError(t, err)
	bossRels, err := f.repos.Relations.ListByUser(ctx, boss)
	require.NoError(t, err)
	assert.ErrorIs(t, rbac.Permission(bossRels, scope.OrganizationID, scope.BranchID), apperr.ErrForbidden)
}

func TestInviteToBranch_Denied(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	member := f.user(t, "+100000002")
	f.relation(t, member, models.RoleMember, models.RelationTypeRelation)
	invited := f.user(t, "+100000003")

	_, err := f.svc.InviteToBranch(ctx, member, f.scope, InviteRequest{UserID: invited, Role: models.RoleMember})
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = f.svc.InviteToBranch(ctx, f.owner, f.scope, InviteRequest{UserID: "ghost", Role: models.RoleMember})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestPatch_AcceptOwnInvitation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	invited := f.user(t, "+100000002")
	inv := f.relation(t, invited, models.RoleMember, models.RelationTypeInvitationToUser)

	rel, err := f.svc.Patch(ctx, invited, f.scope, inv.ID, PatchRequest{RelationType: typePtr(models.RelationTypeRelation)})
	require.NoError(t, err)
	assert.True(t, rel.Confirmed())
	assert.Equal(t, models.RoleMember, rel.Role)
	require.Len(t, f.publisher.messages, 1)
	assert.Equal(t, events.TypeRelationAccepted, f.publisher.messages[0].event.Type)
}

func TestPatch_SelfPromotionForbidden(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.user(t, "+100000002")

	tests := []struct {
		name     string
		existing models.RelationType
		req      PatchRequest
	}{
		{
			name:     "accept invitation as owner",
			existing: models.RelationTypeInvitationToUser,
			req: PatchRequest{
				Role:         rolePtr(models.RoleOrganizationOwner),
				RelationType: typePtr(models.RelationTypeRelation),
			},
		},
		{
			name:     "accept own join request",
			existing: models.RelationTypeRequestToJoin,
			req:      PatchRequest{RelationType: typePtr(models.RelationTypeRelation)},
		},
		{
			name:     "member promotes self",
			existing: models.RelationTypeRelation,
			req:      PatchRequest{Role: rolePtr(models.RoleOrganizationOwner)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rel := f.relation(t, user, models.RoleMember, tt.existing)
			t.Cleanup(func() { _ = f.repos.Relations.Delete(ctx, rel.ID) })

			_, err := f.svc.Patch(ctx, user, f.scope, rel.ID, tt.req)
			assert.ErrorIs(t, err, apperr.ErrForbidden)

			stored, err := f.repos.Relations.Get(ctx, rel.ID)
			require.NoError(t, err)
			assert.Equal(t, models.RoleMember, stored.Role)
			assert.Equal(t, tt.existing, stored.RelationType)
		})
	}
}

func TestPatch_OwnerAcceptsJoinRequest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	joiner := f.user(t, "+100000002")
	req, err := f.svc.RequestJoinToBranch(ctx, joiner, f.scope)
	require.NoError(t, err)

	rel, err := f.svc.Patch(ctx, f.owner, f.scope, req.ID, PatchRequest{RelationType: typePtr(models.RelationTypeRelation)})
	require.NoError(t, err)
	assert.True(t, rel.Confirmed())
	assert.Len(t, f.publisher.messages, 2)
}

func TestPatch_OutOfScopeTarget(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	stranger := f.user(t, "+100000002")
	foreign := &models.Relation{
		OrganizationID: "other", BranchID: "other-b", UserID: stranger,
		Role: models.RoleMember, RelationType: models.RelationTypeRelation,
	}
	require.NoError(t, f.repos.Relations.Create(ctx, foreign))

	_, err := f.svc.Patch(ctx, f.owner, f.scope, foreign.ID, PatchRequest{Role: rolePtr(models.RoleOrganizationOwner)})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestPatchInvitationToBranch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.user(t, "+100000002")
	second := f.user(t, "+100000003")
	inv := f.relation(t, first, models.RoleMember, models.RelationTypeInvitationToUser)

	rel, err := f.svc.PatchInvitationToBranch(ctx, f.owner, f.scope, inv.ID, InvitationPatch{UserID: &second})
	require.NoError(t, err)
	assert.Equal(t, second, rel.UserID)

	_, err = f.svc.PatchInvitationToBranch(ctx, second, f.scope, inv.ID, InvitationPatch{Role: rolePtr(models.RoleOrganizationOwner)})
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestPatchInvitationToBranch_OnlyPendingInvitations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	other := f.user(t, "+100000002")
	ownerRels, err := f.repos.Relations.ListByUser(ctx, f.owner)
	require.NoError(t, err)
	require.Len(t, ownerRels, 1)
	joiner := f.user(t, "+100000003")
	request := f.relation(t, joiner, models.RoleMember, models.RelationTypeRequestToJoin)

	for _, id := range []string{ownerRels[0].ID, request.ID} {
		_, err := f.svc.PatchInvitationToBranch(ctx, f.owner, f.scope, id, InvitationPatch{UserID: &other})
		assert.ErrorIs(t, err, apperr.ErrBadRequest)
	}

	stored, err := f.repos.Relations.Get(ctx, ownerRels[0].ID)
	require.NoError(t, err)
	assert.Equal(t, f.owner, stored.UserID)
	assert.Equal(t, models.RoleOrganizationOwner, stored.Role)
	otherRels, err := f.repos.Relations.ListByUser(ctx, other)
	require.NoError(t, err)
	assert.Empty(t, otherRels)
}

func TestPatchInvitationToBranch_UserAlreadyInScope(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	invited := f.user(t, "+100000002")
	member := f.user(t, "+100000003")
	inv := f.relation(t, invited, models.RoleMember, models.RelationTypeInvitationToUser)
	f.relation(t, member, models.RoleMember, models.RelationTypeRelation)

	_, err := f.svc.PatchInvitationToBranch(ctx, f.owner, f.scope, inv.ID, InvitationPatch{UserID: &member})
	assert.ErrorIs(t, err, apperr.ErrCannotCreate)

	rels, err := f.repos.Relations.ListByUser(ctx, member)
	require.NoError(t, err)
	assert.Len(t, rels, 1)

	// keeping the same user while changing the role is not a duplicate
	rel, err := f.svc.PatchInvitationToBranch(ctx, f.owner, f.scope, inv.ID,
		InvitationPatch{UserID: &invited, Role: rolePtr(models.RoleOrganizationOwner)})
	require.NoError(t, err)
	assert.Equal(t, models.RoleOrganizationOwner, rel.Role)
	assert.Equal(t, models.RelationTypeInvitationToUser, rel.RelationType)
}

func TestDelete_SelfMayLeave(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	member := f.user(t, "+100000002")
	other := f.user(t, "+100000003")
	mine := f.relation(t, member, models.RoleMember, models.RelationTypeRelation)
	theirs := f.relation(t, other, models.RoleMember, models.RelationTypeRelation)

	assert.ErrorIs(t, f.svc.Delete(ctx, member, f.scope, theirs.ID), apperr.ErrForbidden)
	require.NoError(t, f.svc.Delete(ctx, member, f.scope, mine.ID))
	require.NoError(t, f.svc.Delete(ctx, f.owner, f.scope, theirs.ID))
	assert.ErrorIs(t, f.svc.Delete(ctx, f.owner, f.scope, theirs.ID), apperr.ErrNotFound)
}

func TestListMyRelations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.user(t, "+100000002")
	f.relation(t, user, models.RoleMember, models.RelationTypeInvitationToUser)

	rels, err := f.svc.ListMyRelations(ctx, user)
	require.NoError(t, err)
	assert.Len(t, rels, 1)

	page, err := f.svc.List(ctx, user, storage.RelationQuery{OrganizationID: f.scope.OrganizationID})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)

	_, err = f.svc.ListMyRelations(ctx, "ghost")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
