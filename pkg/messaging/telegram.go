package messaging

import (
	"context"
	"strings"

	"github.com/platinummonkey/tenancy/pkg/apperr"
	"github.com/platinummonkey/tenancy/pkg/audit"
	"github.com/platinummonkey/tenancy/pkg/auth"
	"github.com/platinummonkey/tenancy/pkg/models"
	"github.com/platinummonkey/tenancy/pkg/orgs"
	"github.com/platinummonkey/tenancy/pkg/rbac"
	"github.com/platinummonkey/tenancy/pkg/storage"
)

// TelegramGroupService manages the telegram chats of a branch. Every call
// needs ownership of the scope; listing needs ownership of any branch of
// the organization.
type TelegramGroupService struct {
	groups storage.TelegramGroupRepository
	actors *orgs.ActorLoader
	eval   *rbac.Evaluator
	audit  audit.Logger
}

func NewTelegramGroupService(repos storage.Repositories, eval *rbac.Evaluator, auditLog audit.Logger) *TelegramGroupService {
	return &TelegramGroupService{
		groups: repos.TelegramGroups,
		actors: orgs.NewActorLoader(repos.Users, repos.Relations),
		eval:   eval,
		audit:  auditLog,
	}
}

type CreateTelegramGroupRequest struct {
	GroupID string  `json:"group_id"`
	Name    *string `json:"name,omitempty"`
}

func (r CreateTelegramGroupRequest) Validate() error {
	if strings.TrimSpace(r.GroupID) == "" {
		return apperr.Validation("group_id is required")
	}
	return nil
}

func (s *TelegramGroupService) authorize(ctx context.Context, userID string, scope auth.Scope, resourceID string) error {
	actor, err := s.actors.Load(ctx, userID)
	if err != nil {
		return err
	}
	return audit.Denied(ctx, s.audit, s.eval.Permission(actor.Relations, scope.OrganizationID, scope.BranchID),
		audit.ResourceTypeTelegramGroup, resourceID, scope.OrganizationID, scope.BranchID)
}

// target loads a group and hides groups registered to another scope
func (s *TelegramGroupService) target(ctx context.Context, scope auth.Scope, id string) (*models.TelegramGroup, error) {
	g, err := s.groups.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if g.OrganizationID != scope.OrganizationID || g.BranchID != scope.BranchID {
		return nil, apperr.NotFound("Telegram group not found")
	}
	return g, nil
}

func (s *TelegramGroupService) Create(ctx context.Context, userID string, scope auth.Scope, req CreateTelegramGroupRequest) (*models.TelegramGroup, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, userID, scope, ""); err != nil {
		return nil, err
	}

	g := &models.TelegramGroup{
		GroupID:        strings.TrimSpace(req.GroupID),
		Name:           req.Name,
		OrganizationID: scope.OrganizationID,
		BranchID:       scope.BranchID,
	}
	if err := s.groups.Create(ctx, g); err != nil {
		return nil, err
	}
	audit.Record(ctx, s.audit, audit.NewEvent(ctx, audit.EventTypeDataCreate, audit.EventStatusSuccess,
		audit.ResourceTypeTelegramGroup, g.ID).WithScope(scope.OrganizationID, scope.BranchID))
	return g, nil
}

func (s *TelegramGroupService) Get(ctx context.Context, userID string, scope auth.Scope, id string) (*models.TelegramGroup, error) {
	if err := s.authorize(ctx, userID, scope, id); err != nil {
		return nil, err
	}
	return s.target(ctx, scope, id)
}

// List returns every group of the organization, across branches
func (s *TelegramGroupService) List(ctx context.Context, userID, organizationID string) ([]models.TelegramGroup, error) {
	actor, err := s.actors.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := audit.Denied(ctx, s.audit, s.eval.PermissionNoBranch(actor.Relations, organizationID),
		audit.ResourceTypeTelegramGroup, "", organizationID, ""); err != nil {
		return nil, err
	}
	return s.groups.ListByOrganization(ctx, organizationID)
}

func (s *TelegramGroupService) Patch(ctx context.Context, userID string, scope auth.Scope, id string, patch models.TelegramGroupPatch) (*models.TelegramGroup, error) {
	if patch.GroupID != nil && strings.TrimSpace(*patch.GroupID) == "" {
		return nil, apperr.Validation("group_id must not be empty")
	}
	if err := s.authorize(ctx, userID, scope, id); err != nil {
		return nil, err
	}
	if _, err := s.target(ctx, scope, id); err != nil {
		return nil, err
	}

	g, err := s.groups.Patch(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	audit.Record(ctx, s.audit, audit.NewEvent(ctx, audit.EventTypeDataUpdate, audit.EventStatusSuccess,
		audit.ResourceTypeTelegramGroup, id).WithScope(scope.OrganizationID, scope.BranchID))
	return g, nil
}

func (s *TelegramGroupService) Delete(ctx context.Context, userID string, scope auth.Scope, id string) error {
	if err := s.authorize(ctx, userID, scope, id); err != nil {
		return err
	}
	if _, err := s.target(ctx, scope, id); err != nil {
		return err
	}
	if err := s.groups.Delete(ctx, id); err != nil {
		return err
	}
	audit.Record(ctx, s.audit, audit.NewEvent(ctx, audit.EventTypeDataDelete, audit.EventStatusSuccess,
		audit.ResourceTypeTelegramGroup, id).WithScope(scope.OrganizationID, scope.BranchID))
	return nil
}
