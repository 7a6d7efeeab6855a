package orgs

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/platinummonkey/tenancy/pkg/apperr"
	"github.com/platinummonkey/tenancy/pkg/audit"
	"github.com/platinummonkey/tenancy/pkg/models"
	"github.com/platinummonkey/tenancy/pkg/rbac"
	"github.com/platinummonkey/tenancy/pkg/storage"
)

// BranchService runs the branch lifecycle
type BranchService struct {
	repos   storage.Repositories
	actors  *ActorLoader
	eval    *rbac.Evaluator
	cascade *Cascade
	audit   audit.Logger
}

func NewBranchService(repos storage.Repositories, eval *rbac.Evaluator, cascade *Cascade, auditLog audit.Logger) *BranchService {
	return &BranchService{
		repos:   repos,
		actors:  NewActorLoader(repos.Users, repos.Relations),
		eval:    eval,
		cascade: cascade,
		audit:   auditLog,
	}
}

// CreateBranchRequest is the body of a branch create. The organization comes
// from the X-Organization-ID header, never from the body.
type CreateBranchRequest struct {
	Name           string          `json:"name"`
	BranchLocation *string         `json:"branch_location,omitempty"`
	ForCall        models.ForCalls `json:"for_call,omitempty"`
}

func (r CreateBranchRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return apperr.Validation("name is required")
	}
	return validateForCalls(r.ForCall)
}

func validateForCalls(calls models.ForCalls) error {
	for _, c := range calls {
		if strings.TrimSpace(c.PhoneNumber) == "" {
			return apperr.Validation("for_call entries need a phone_number")
		}
	}
	return nil
}

// Create adds a branch to organizationID and makes the creator its owner
func (s *BranchService) Create(ctx context.Context, userID, organizationID string, req CreateBranchRequest) (*models.Branch, error) {
	ctx, span := tracer.Start(ctx, "orgs.CreateBranch", trace.WithAttributes(
		attribute.String("user.id", userID),
		attribute.String("organization.id", organizationID),
	))
	defer span.End()

	if err := req.Validate(); err != nil {
		return nil, err
	}
	actor, err := s.actors.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := audit.Denied(ctx, s.audit, s.eval.BranchCreatePermission(actor.Relations, organizationID),
		audit.ResourceTypeBranch, "", organizationID, ""); err != nil {
		return nil, err
	}

	branch := &models.Branch{
		Name:           strings.TrimSpace(req.Name),
		BranchLocation: req.BranchLocation,
		ForCall:        req.ForCall,
		OrganizationID: organizationID,
	}
	err = s.repos.Tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.repos.Branches.Create(ctx, branch); err != nil {
			return err
		}
		return s.repos.Relations.Create(ctx, &models.Relation{
			OrganizationID: organizationID,
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

	audit.Record(ctx, s.audit, audit.NewEvent(ctx, audit.EventTypeDataCreate, audit.EventStatusSuccess,
		audit.ResourceTypeBranch, branch.ID).WithScope(organizationID, branch.ID))
	return branch, nil
}

func (s *BranchService) Get(ctx context.Context, userID, id string) (*models.Branch, error) {
	if err := s.actors.Require(ctx, userID); err != nil {
		return nil, err
	}
	return s.repos.Branches.Get(ctx, id)
}

func (s *BranchService) List(ctx context.Context, userID string, query storage.BranchQuery) (*storage.Page[models.Branch], error) {
	if err := s.actors.Require(ctx, userID); err != nil {
		return nil, err
	}
	return s.repos.Branches.List(ctx, query)
}

// authorize loads the branch and checks fn against the branch's own
// organization, so a caller cannot point a header at another tenant.
func (s *BranchService) authorize(ctx context.Context, userID, id string,
	fn func([]models.Relation, string, string) error) (*models.Branch, error) {
	actor, err := s.actors.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	branch, err := s.repos.Branches.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := audit.Denied(ctx, s.audit, fn(actor.Relations, branch.OrganizationID, branch.ID),
		audit.ResourceTypeBranch, branch.ID, branch.OrganizationID, branch.ID); err != nil {
		return nil, err
	}
	return branch, nil
}

func (s *BranchService) Patch(ctx context.Context, userID, id string, patch models.BranchPatch) (*models.Branch, error) {
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return nil, apperr.Validation("name must not be empty")
	}
	if patch.ForCall != nil {
		if err := validateForCalls(*patch.ForCall); err != nil {
			return nil, err
		}
	}
	branch, err := s.authorize(ctx, userID, id, s.eval.BranchPatchPermission)
	if err != nil {
		return nil, err
	}

	updated, err := s.repos.Branches.Patch(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	audit.Record(ctx, s.audit, audit.NewEvent(ctx, audit.EventTypeDataUpdate, audit.EventStatusSuccess,
		audit.ResourceTypeBranch, id).WithScope(branch.OrganizationID, id))
	return updated, nil
}

// Delete removes the branch and everything scoped to it. The last branch of
// an organization cannot be deleted; delete the organization instead.
func (s *BranchService) Delete(ctx context.Context, userID, id string) (*CascadeResult, error) {
	branch, err := s.authorize(ctx, userID, id, s.eval.BranchDeletePermission)
	if err != nil {
		return nil, err
	}

	siblings, err := s.repos.Branches.List(ctx, storage.BranchQuery{
		PageParams:     storage.PageParams{Limit: 1},
		OrganizationID: branch.OrganizationID,
	})
	if err != nil {
		return nil, err
	}
	if siblings.Total <= 1 {
		return nil, apperr.BadRequest("Cannot delete the last branch of an organization")
	}

	result, err := s.cascade.Run(ctx, "branch", id,
		func(ctx context.Context) error { return s.repos.Branches.Delete(ctx, id) },
		ScopeStep("relations", s.repos.Relations, storage.ScopeBranch, id),
		ScopeStep("telegram_groups", s.repos.TelegramGroups, storage.ScopeBranch, id),
		ScopeStep("fcm_subscriptions", s.repos.FCM, storage.ScopeBranch, id),
		ScopeStep("subscriptions", s.repos.Subscriptions, storage.ScopeBranch, id),
	)
	if err != nil {
		return nil, err
	}
	audit.Record(ctx, s.audit, audit.NewEvent(ctx, audit.EventTypeDataDelete, audit.EventStatusSuccess,
		audit.ResourceTypeBranch, id).WithScope(branch.OrganizationID, id))
	return result, nil
}
