package orgs

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/platinummonkey/tenancy/pkg/apperr"
	"github.com/platinummonkey/tenancy/pkg/audit"
	"github.com/platinummonkey/tenancy/pkg/models"
	"github.com/platinummonkey/tenancy/pkg/observability"
	"github.com/platinummonkey/tenancy/pkg/rbac"
	"github.com/platinummonkey/tenancy/pkg/storage"
)

var tracer = otel.Tracer("tenancy/orgs")

// OrganizationService runs the organization lifecycle
type OrganizationService struct {
	repos   storage.Repositories
	actors  *ActorLoader
	eval    *rbac.Evaluator
	cascade *Cascade
	audit   audit.Logger
}

func NewOrganizationService(repos storage.Repositories, eval *rbac.Evaluator, cascade *Cascade, auditLog audit.Logger) *OrganizationService {
	return &OrganizationService{
		repos:   repos,
		actors:  NewActorLoader(repos.Users, repos.Relations),
		eval:    eval,
		cascade: cascade,
		audit:   auditLog,
	}
}

// CreateOrganizationRequest is the body of an organization create
type CreateOrganizationRequest struct {
	Name string `json:"name"`
}

func (r CreateOrganizationRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return apperr.Validation("name is required")
	}
	return nil
}

// Create makes userID the owner of a new organization and its main branch.
// The organization, the branch and the owner relation are written in one
// transaction.
func (s *OrganizationService) Create(ctx context.Context, userID string, req CreateOrganizationRequest) (*models.Organization, error) {
	ctx, span := tracer.Start(ctx, "orgs.CreateOrganization", trace.WithAttributes(attribute.String("user.id", userID)))
	defer span.End()

	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := s.actors.Require(ctx, userID); err != nil {
		return nil, err
	}

	org := &models.Organization{Name: strings.TrimSpace(req.Name)}
	var branch *models.Branch
	err := s.repos.Tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.repos.Organizations.Create(ctx, org); err != nil {
			return err
		}
		branch = &models.Branch{Name: models.DefaultBranchName(org.Name), OrganizationID: org.ID}
		if err := s.repos.Branches.Create(ctx, branch); err != nil {
			return err
		}
		return s.repos.Relations.Create(ctx, &models.Relation{
			OrganizationID: org.ID,
			BranchID:       branch.ID,
			UserID:         userID,
			Role:           models.RoleOrganizationOwner,
			RelationType:   models.RelationTypeRelation,
		})
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(attribute.String("organization.id", org.ID))
	audit.Record(ctx, s.audit, audit.NewEvent(ctx, audit.EventTypeDataCreate, audit.EventStatusSuccess,
		audit.ResourceTypeOrganization, org.ID).WithScope(org.ID, branch.ID))
	observability.FromContext(ctx).WithFields(map[string]interface{}{
		"organization_id": org.ID,
		"branch_id":       branch.ID,
	}).Info("organization created")
	return org, nil
}

func (s *OrganizationService) Get(ctx context.Context, userID, id string) (*models.Organization, error) {
	if err := s.actors.Require(ctx, userID); err != nil {
		return nil, err
	}
	return s.repos.Organizations.Get(ctx, id)
}

func (s *OrganizationService) List(ctx context.Context, userID string, query storage.OrganizationQuery) (*storage.Page[models.Organization], error) {
	if err := s.actors.Require(ctx, userID); err != nil {
		return nil, err
	}
	return s.repos.Organizations.List(ctx, query)
}

func (s *OrganizationService) Patch(ctx context.Context, userID, id string, patch models.OrganizationPatch) (*models.Organization, error) {
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return nil, apperr.Validation("name must not be empty")
	}
	actor, err := s.actors.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := audit.Denied(ctx, s.audit, s.eval.OrgDeletePatchPermission(actor.Relations, id),
		audit.ResourceTypeOrganization, id, id, ""); err != nil {
		return nil, err
	}

	org, err := s.repos.Organizations.Patch(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	audit.Record(ctx, s.audit, audit.NewEvent(ctx, audit.EventTypeDataUpdate, audit.EventStatusSuccess,
		audit.ResourceTypeOrganization, id).WithScope(id, ""))
	return org, nil
}

// Delete removes the organization and then, best effort, everything scoped
// to it. Branches go last so a partial failure never leaves relations
// pointing at a missing branch of a live organization.
func (s *OrganizationService) Delete(ctx context.Context, userID, id string) (*CascadeResult, error) {
	actor, err := s.actors.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := audit.Denied(ctx, s.audit, s.eval.OrgDeletePatchPermission(actor.Relations, id),
		audit.ResourceTypeOrganization, id, id, ""); err != nil {
		return nil, err
	}

	result, err := s.cascade.Run(ctx, "organization", id,
		func(ctx context.Context) error { return s.repos.Organizations.Delete(ctx, id) },
		ScopeStep("relations", s.repos.Relations, storage.ScopeOrganization, id),
		ScopeStep("telegram_groups", s.repos.TelegramGroups, storage.ScopeOrganization, id),
		ScopeStep("fcm_subscriptions", s.repos.FCM, storage.ScopeOrganization, id),
		ScopeStep("subscriptions", s.repos.Subscriptions, storage.ScopeOrganization, id),
		ScopeStep("branches", s.repos.Branches, storage.ScopeOrganization, id),
	)
	if err != nil {
		return nil, err
	}
	audit.Record(ctx, s.audit, audit.NewEvent(ctx, audit.EventTypeDataDelete, audit.EventStatusSuccess,
		audit.ResourceTypeOrganization, id).WithScope(id, ""))
	return result, nil
}
