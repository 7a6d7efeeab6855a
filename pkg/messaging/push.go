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

// registrar holds what the FCM and web-push services share: registering
// needs ownership of the scope, and a registration belongs to the user who
// made it.
type registrar struct {
	actors   *orgs.ActorLoader
	eval     *rbac.Evaluator
	audit    audit.Logger
	resource audit.ResourceType
}

func (r registrar) authorize(ctx context.Context, userID string, scope auth.Scope) error {
	actor, err := r.actors.Load(ctx, userID)
	if err != nil {
		return err
	}
	return audit.Denied(ctx, r.audit, r.eval.Permission(actor.Relations, scope.OrganizationID, scope.BranchID),
		r.resource, "", scope.OrganizationID, scope.BranchID)
}

// owned hides another user's registration behind NotFound
func (r registrar) owned(ownerID, userID, resource string) error {
	if ownerID != userID {
		return apperr.NotFound(resource + " not found")
	}
	return nil
}

func (r registrar) record(ctx context.Context, eventType audit.EventType, id string, scope auth.Scope) {
	audit.Record(ctx, r.audit, audit.NewEvent(ctx, eventType, audit.EventStatusSuccess, r.resource, id).
		WithScope(scope.OrganizationID, scope.BranchID))
}

// FCMSubscriptionService registers device tokens
type FCMSubscriptionService struct {
	registrar
	subs storage.FCMSubscriptionRepository
}

func NewFCMSubscriptionService(repos storage.Repositories, eval *rbac.Evaluator, auditLog audit.Logger) *FCMSubscriptionService {
	return &FCMSubscriptionService{
		registrar: registrar{
			actors:   orgs.NewActorLoader(repos.Users, repos.Relations),
			eval:     eval,
			audit:    auditLog,
			resource: audit.ResourceTypeFCMSubscription,
		},
		subs: repos.FCM,
	}
}

type CreateFCMSubscriptionRequest struct {
	FCMToken string `json:"fcm_token"`
}

func (r CreateFCMSubscriptionRequest) Validate() error {
	if strings.TrimSpace(r.FCMToken) == "" {
		return apperr.Validation("fcm_token is required")
	}
	return nil
}

func (s *FCMSubscriptionService) Create(ctx context.Context, userID string, scope auth.Scope, req CreateFCMSubscriptionRequest) (*models.FCMSubscription, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, userID, scope); err != nil {
		return nil, err
	}

	sub := &models.FCMSubscription{
		FCMToken:       req.FCMToken,
		OrganizationID: scope.OrganizationID,
		BranchID:       scope.BranchID,
		UserID:         userID,
	}
	if err := s.subs.Create(ctx, sub); err != nil {
		return nil, err
	}
	s.record(ctx, audit.EventTypeDataCreate, sub.ID, scope)
	return sub, nil
}

func (s *FCMSubscriptionService) ListMine(ctx context.Context, userID string) ([]models.FCMSubscription, error) {
	if err := s.actors.Require(ctx, userID); err != nil {
		return nil, err
	}
	return s.subs.ListByUser(ctx, userID)
}

func (s *FCMSubscriptionService) DeleteOwn(ctx context.Context, userID, id string) error {
	sub, err := s.subs.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.owned(sub.UserID, userID, "FCM subscription"); err != nil {
		return err
	}
	if err := s.subs.Delete(ctx, id); err != nil {
		return err
	}
	s.record(ctx, audit.EventTypeDataDelete, id, auth.Scope{OrganizationID: sub.OrganizationID, BranchID: sub.BranchID})
	return nil
}

// SubscriptionService registers web-push endpoints
type SubscriptionService struct {
	registrar
	subs storage.SubscriptionRepository
}

func NewSubscriptionService(repos storage.Repositories, eval *rbac.Evaluator, auditLog audit.Logger) *SubscriptionService {
	return &SubscriptionService{
		registrar: registrar{
			actors:   orgs.NewActorLoader(repos.Users, repos.Relations),
			eval:     eval,
			audit:    auditLog,
			resource: audit.ResourceTypeSubscription,
		},
		subs: repos.Subscriptions,
	}
}

// CreateSubscriptionRequest mirrors the browser PushSubscription JSON
type CreateSubscriptionRequest struct {
	Endpoint       string          `json:"endpoint"`
	ExpirationTime *string         `json:"expirationTime,omitempty"`
	Keys           models.PushKeys `json:"keys"`
}

func (r CreateSubscriptionRequest) Validate() error {
	if strings.TrimSpace(r.Endpoint) == "" {
		return apperr.Validation("endpoint is required")
	}
	if r.Keys.P256dh == "" || r.Keys.Auth == "" {
		return apperr.Validation("keys.p256dh and keys.auth are required")
	}
	return nil
}

func (s *SubscriptionService) Create(ctx context.Context, userID string, scope auth.Scope, req CreateSubscriptionRequest) (*models.Subscription, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, userID, scope); err != nil {
		return nil, err
	}

	sub := &models.Subscription{
		Endpoint:       req.Endpoint,
		ExpirationTime: req.ExpirationTime,
		Keys:           req.Keys,
		OrganizationID: scope.OrganizationID,
		BranchID:       scope.BranchID,
		UserID:         userID,
	}
	if err := s.subs.Create(ctx, sub); err != nil {
		return nil, err
	}
	s.record(ctx, audit.EventTypeDataCreate, sub.ID, scope)
	return sub, nil
}

func (s *SubscriptionService) ListMine(ctx context.Context, userID string) ([]models.Subscription, error) {
	if err := s.actors.Require(ctx, userID); err != nil {
		return nil, err
	}
	return s.subs.ListByUser(ctx, userID)
}

func (s *SubscriptionService) DeleteOwn(ctx context.Context, userID, id string) error {
	sub, err := s.subs.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.owned(sub.UserID, userID, "Subscription"); err != nil {
		return err
	}
	if err := s.subs.Delete(ctx, id); err != nil {
		return err
	}
	s.record(ctx, audit.EventTypeDataDelete, id, auth.Scope{OrganizationID: sub.OrganizationID, BranchID: sub.BranchID})
	return nil
}
