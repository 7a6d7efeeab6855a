package relations

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/platinummonkey/tenancy/pkg/apperr"
	"github.com/platinummonkey/tenancy/pkg/audit"
	"github.com/platinummonkey/tenancy/pkg/auth"
	"github.com/platinummonkey/tenancy/pkg/events"
	"github.com/platinummonkey/tenancy/pkg/models"
	"github.com/platinummonkey/tenancy/pkg/observability"
	"github.com/platinummonkey/tenancy/pkg/orgs"
	"github.com/platinummonkey/tenancy/pkg/rbac"
	"github.com/platinummonkey/tenancy/pkg/storage"
)

var tracer = otel.Tracer("tenancy/relations")

// Service runs the join, invite and accept workflows
type Service struct {
	repos     storage.Repositories
	actors    *orgs.ActorLoader
	eval      *rbac.Evaluator
	publisher events.Publisher
	audit     audit.Logger
	otel      *observability.OTelMetrics
}

// NewService wires the workflow service. publisher, auditLog and otelMetrics
// may be nil.
func NewService(repos storage.Repositories, eval *rbac.Evaluator, publisher events.Publisher,
	auditLog audit.Logger, otelMetrics *observability.OTelMetrics) *Service {
	return &Service{
		repos:     repos,
		actors:    orgs.NewActorLoader(repos.Users, repos.Relations),
		eval:      eval,
		publisher: publisher,
		audit:     auditLog,
		otel:      otelMetrics,
	}
}

// InviteRequest names the invited user and the role they will hold
type InviteRequest struct {
	UserID string      `json:"user_id"`
	Role   models.Role `json:"role"`
}

func (r InviteRequest) Validate() error {
	if r.UserID == "" {
		return apperr.Validation("user_id is required")
	}
	if r.Role == "" {
		return apperr.Validation("role is required")
	}
	return nil
}

// InvitationPatch re-targets or re-roles an invitation
type InvitationPatch struct {
	UserID *string      `json:"user_id,omitempty"`
	Role   *models.Role `json:"role,omitempty"`
}

// PatchRequest changes the role or status of a relation
type PatchRequest struct {
	Role         *models.Role         `json:"role,omitempty"`
	RelationType *models.RelationType `json:"relation_type,omitempty"`
}

// RequestJoinToBranch files a pending Member request from userID. Anyone
// may ask; an owner accepts it later by patching relation_type.
func (s *Service) RequestJoinToBranch(ctx context.Context, userID string, scope auth.Scope) (*models.Relation, error) {
	ctx, span := tracer.Start(ctx, "relations.RequestJoinToBranch", scopeAttrs(scope))
	defer span.End()

	actor, err := s.actors.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.requireBranch(ctx, scope); err != nil {
		return nil, err
	}
	if holdsScope(actor.Relations, scope) {
		return nil, apperr.CannotCreate("Relation already exists", nil)
	}

	rel := &models.Relation{
		OrganizationID: scope.OrganizationID,
		BranchID:       scope.BranchID,
		UserID:         userID,
		Role:           models.RoleMember,
		RelationType:   models.RelationTypeRequestToJoin,
	}
	if err := s.repos.Relations.Create(ctx, rel); err != nil {
		span.RecordError(err)
		return nil, err
	}

	s.transition(ctx, "requested", events.TypeRelationJoinRequested, audit.EventTypeRelationRequestJoin, *rel, userID)
	return rel, nil
}

// InviteToBranch creates a pending invitation for another user. Only an
// owner of the scope may invite.
func (s *Service) InviteToBranch(ctx context.Context, userID string, scope auth.Scope, req InviteRequest) (*models.Relation, error) {
	ctx, span := tracer.Start(ctx, "relations.InviteToBranch", scopeAttrs(scope))
	defer span.End()

	if err := req.Validate(); err != nil {
		return nil, err
	}
	actor, err := s.actors.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := audit.Denied(ctx, s.audit, s.eval.Permission(actor.Relations, scope.OrganizationID, scope.BranchID),
		audit.ResourceTypeRelation, "", scope.OrganizationID, scope.BranchID); err != nil {
		return nil, err
	}

	invited, err := s.actors.Load(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if holdsScope(invited.Relations, scope) {
		return nil, apperr.CannotCreate("Relation already exists", nil)
	}

	rel := &models.Relation{
		OrganizationID: scope.OrganizationID,
		BranchID:       scope.BranchID,
		UserID:         req.UserID,
		Role:           req.Role,
		RelationType:   models.RelationTypeInvitationToUser,
	}
	if err := s.repos.Relations.Create(ctx, rel); err != nil {
		span.RecordError(err)
		return nil, err
	}

	s.transition(ctx, "invited", events.TypeRelationInvited, audit.EventTypeRelationInvite, *rel, userID)
	return rel, nil
}

// PatchInvitationToBranch lets an owner correct a pending invitation's user or
// role. The new user must not already hold a relation in the scope.
func (s *Service) PatchInvitationToBranch(ctx context.Context, userID string, scope auth.Scope, relationID string, patch InvitationPatch) (*models.Relation, error) {
	actor, err := s.actors.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := audit.Denied(ctx, s.audit, s.eval.Permission(actor.Relations, scope.OrganizationID, scope.BranchID),
		audit.ResourceTypeRelation, relationID, scope.OrganizationID, scope.BranchID); err != nil {
		return nil, err
	}
	current, err := s.target(ctx, scope, relationID)
	if err != nil {
		return nil, err
	}
	if current.RelationType != models.RelationTypeInvitationToUser {
		return nil, apperr.BadRequest("Relation is not an invitation")
	}
	if patch.UserID != nil && *patch.UserID != current.UserID {
		invited, err := s.actors.Load(ctx, *patch.UserID)
		if err != nil {
			return nil, err
		}
		if holdsScope(invited.Relations, scope) {
			return nil, apperr.CannotCreate("Relation already exists", nil)
		}
	}

	rel, err := s.repos.Relations.Patch(ctx, relationID, models.RelationPatch{UserID: patch.UserID, Role: patch.Role})
	if err != nil {
		return nil, err
	}
	audit.Record(ctx, s.audit, audit.NewEvent(ctx, audit.EventTypeDataUpdate, audit.EventStatusSuccess,
		audit.ResourceTypeRelation, relationID).WithScope(scope.OrganizationID, scope.BranchID))
	return rel, nil
}

// Patch changes a relation's role or status. Owners of the scope may change
// either freely. A user acting on their own row may only accept an
// invitation addressed to them, keeping the invited role.
func (s *Service) Patch(ctx context.Context, userID string, scope auth.Scope, relationID string, req PatchRequest) (*models.Relation, error) {
	ctx, span := tracer.Start(ctx, "relations.Patch", scopeAttrs(scope))
	defer span.End()

	actor, err := s.actors.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := audit.Denied(ctx, s.audit,
		s.eval.RelationIDPermission(actor.Relations, scope.OrganizationID, scope.BranchID, relationID),
		audit.ResourceTypeRelation, relationID, scope.OrganizationID, scope.BranchID); err != nil {
		return nil, err
	}
	current, err := s.target(ctx, scope, relationID)
	if err != nil {
		return nil, err
	}

	if s.eval.Permission(actor.Relations, scope.OrganizationID, scope.BranchID) != nil {
		if !acceptsOwnInvitation(*current, req) {
			return nil, audit.Denied(ctx, s.audit, apperr.Forbidden(""),
				audit.ResourceTypeRelation, relationID, scope.OrganizationID, scope.BranchID)
		}
	}

	rel, err := s.repos.Relations.Patch(ctx, relationID, models.RelationPatch{Role: req.Role, RelationType: req.RelationType})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if !current.Confirmed() && rel.Confirmed() {
		s.transition(ctx, "accepted", events.TypeRelationAccepted, audit.EventTypeRelationAccept, *rel, userID)
	} else {
		audit.Record(ctx, s.audit, audit.NewEvent(ctx, audit.EventTypeDataUpdate, audit.EventStatusSuccess,
			audit.ResourceTypeRelation, relationID).WithScope(scope.OrganizationID, scope.BranchID))
	}
	return rel, nil
}

// acceptsOwnInvitation is the only change a non-owner may make to their own
// row: InvitationToUser becomes Relation and the role stays as invited.
func acceptsOwnInvitation(current models.Relation, req PatchRequest) bool {
	if current.RelationType != models.RelationTypeInvitationToUser {
		return false
	}
	if req.RelationType == nil || *req.RelationType != models.RelationTypeRelation {
		return false
	}
	return req.Role == nil || *req.Role == current.Role
}

// Delete removes a relation. Owners may remove any relation of the scope; a
// user may remove their own row to decline, withdraw or leave.
func (s *Service) Delete(ctx context.Context, userID string, scope auth.Scope, relationID string) error {
	actor, err := s.actors.Load(ctx, userID)
	if err != nil {
		return err
	}
	if err := audit.Denied(ctx, s.audit,
		s.eval.RelationIDPermission(actor.Relations, scope.OrganizationID, scope.BranchID, relationID),
		audit.ResourceTypeRelation, relationID, scope.OrganizationID, scope.BranchID); err != nil {
		return err
	}
	if _, err := s.target(ctx, scope, relationID); err != nil {
		return err
	}
	if err := s.repos.Relations.Delete(ctx, relationID); err != nil {
		return err
	}

	s.otel.RecordRelationTransition(ctx, "removed")
	audit.Record(ctx, s.audit, audit.NewEvent(ctx, audit.EventTypeDataDelete, audit.EventStatusSuccess,
		audit.ResourceTypeRelation, relationID).WithScope(scope.OrganizationID, scope.BranchID))
	return nil
}

// ListMyRelations returns every relation the user holds, pending ones
// included.
func (s *Service) ListMyRelations(ctx context.Context, userID string) ([]models.Relation, error) {
	actor, err := s.actors.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return actor.Relations, nil
}

func (s *Service) Get(ctx context.Context, userID, relationID string) (*models.Relation, error) {
	if err := s.actors.Require(ctx, userID); err != nil {
		return nil, err
	}
	return s.repos.Relations.Get(ctx, relationID)
}

func (s *Service) List(ctx context.Context, userID string, query storage.RelationQuery) (*storage.Page[models.Relation], error) {
	if err := s.actors.Require(ctx, userID); err != nil {
		return nil, err
	}
	return s.repos.Relations.List(ctx, query)
}

// target loads the relation and hides rows outside the scope
func (s *Service) target(ctx context.Context, scope auth.Scope, relationID string) (*models.Relation, error) {
	rel, err := s.repos.Relations.Get(ctx, relationID)
	if err != nil {
		return nil, err
	}
	if !rel.InScope(scope.OrganizationID, scope.BranchID) {
		return nil, apperr.NotFound("Relation not found")
	}
	return rel, nil
}

func (s *Service) requireBranch(ctx context.Context, scope auth.Scope) error {
	branch, err := s.repos.Branches.Get(ctx, scope.BranchID)
	if err != nil {
		return err
	}
	if branch.OrganizationID != scope.OrganizationID {
		return apperr.NotFound("Branch not found")
	}
	return nil
}

func (s *Service) transition(ctx context.Context, name, eventType string, auditType audit.EventType, rel models.Relation, actorID string) {
	s.otel.RecordRelationTransition(ctx, name)
	audit.Record(ctx, s.audit, audit.NewEvent(ctx, auditType, audit.EventStatusSuccess,
		audit.ResourceTypeRelation, rel.ID).WithScope(rel.OrganizationID, rel.BranchID))

	if s.publisher == nil {
		return
	}
	if err := events.PublishRelation(ctx, s.publisher, events.NewRelationEvent(eventType, rel, actorID)); err != nil {
		observability.FromContext(ctx).WithError(err).
			WithField("relation_id", rel.ID).
			Warn("failed to publish relation event")
	}
}

func holdsScope(relations []models.Relation, scope auth.Scope) bool {
	for _, r := range relations {
		if r.InScope(scope.OrganizationID, scope.BranchID) {
			return true
		}
	}
	return false
}

func scopeAttrs(scope auth.Scope) trace.SpanStartOption {
	return trace.WithAttributes(
		attribute.String("organization.id", scope.OrganizationID),
		attribute.String("branch.id", scope.BranchID),
	)
}
