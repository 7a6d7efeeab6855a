package storage

import (
	"context"
	"time"

	"github.com/platinummonkey/tenancy/pkg/models"
)

// ScopeField names a foreign key a dependent row can be deleted by
type ScopeField string

const (
	ScopeOrganization ScopeField = "organization_id"
	ScopeBranch       ScopeField = "branch_id"
	ScopeUser         ScopeField = "user_id"
)

// ScopedDeleter removes every row whose scope column equals id. Repositories
// reject fields their table does not carry.
type ScopedDeleter interface {
	DeleteByScope(ctx context.Context, field ScopeField, id string) (int64, error)
}

// TxManager runs fn inside a single transaction carried by the context.
// Repositories called with that context join the transaction.
type TxManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// UserRepository persists end-user accounts
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	Get(ctx context.Context, id string) (*models.User, error)
	GetByPhoneNumber(ctx context.Context, phoneNumber string) (*models.User, error)
	List(ctx context.Context, query UserQuery) (*Page[models.User], error)
	Patch(ctx context.Context, id string, patch models.UserPatch) (*models.User, error)
	ChangePassword(ctx context.Context, id, passwordHash string) error
	Delete(ctx context.Context, id string) error
}

// AdminRepository persists administrator accounts
type AdminRepository interface {
	Create(ctx context.Context, admin *models.Admin) error
	Get(ctx context.Context, id string) (*models.Admin, error)
	GetByPhoneNumber(ctx context.Context, phoneNumber string) (*models.Admin, error)
	CountByRole(ctx context.Context, role models.AdminRole) (int64, error)
	List(ctx context.Context, query AdminQuery) (*Page[models.Admin], error)
	Patch(ctx context.Context, id string, patch models.AdminPatch) (*models.Admin, error)
	ChangePassword(ctx context.Context, id, passwordHash string) error
	Delete(ctx context.Context, id string) error
}

// OrganizationRepository persists tenants
type OrganizationRepository interface {
	Create(ctx context.Context, org *models.Organization) error
	Get(ctx context.Context, id string) (*models.Organization, error)
	List(ctx context.Context, query OrganizationQuery) (*Page[models.Organization], error)
	Patch(ctx context.Context, id string, patch models.OrganizationPatch) (*models.Organization, error)
	Delete(ctx context.Context, id string) error
}

// BranchRepository persists branches
type BranchRepository interface {
	ScopedDeleter
	Create(ctx context.Context, branch *models.Branch) error
	Get(ctx context.Context, id string) (*models.Branch, error)
	List(ctx context.Context, query BranchQuery) (*Page[models.Branch], error)
	Patch(ctx context.Context, id string, patch models.BranchPatch) (*models.Branch, error)
	Delete(ctx context.Context, id string) error
}

// RelationRepository is the relation store: the source of truth for every
// authorization decision.
type RelationRepository interface {
	ScopedDeleter
	Create(ctx context.Context, relation *models.Relation) error
	// ListByUser returns every relation of the user, of any type and role.
	ListByUser(ctx context.Context, userID string) ([]models.Relation, error)
	Get(ctx context.Context, id string) (*models.Relation, error)
	List(ctx context.Context, query RelationQuery) (*Page[models.Relation], error)
	Patch(ctx context.Context, id string, patch models.RelationPatch) (*models.Relation, error)
	Delete(ctx context.Context, id string) error
	// DeletePendingBefore removes RequestToJoin and InvitationToUser rows
	// created before cutoff.
	DeletePendingBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// TelegramGroupRepository persists telegram chats registered to a branch
type TelegramGroupRepository interface {
	ScopedDeleter
	Create(ctx context.Context, group *models.TelegramGroup) error
	Get(ctx context.Context, id string) (*models.TelegramGroup, error)
	ListByOrganization(ctx context.Context, organizationID string) ([]models.TelegramGroup, error)
	Patch(ctx context.Context, id string, patch models.TelegramGroupPatch) (*models.TelegramGroup, error)
	Delete(ctx context.Context, id string) error
}

// FCMSubscriptionRepository persists device tokens
type FCMSubscriptionRepository interface {
	ScopedDeleter
	Create(ctx context.Context, sub *models.FCMSubscription) error
	Get(ctx context.Context, id string) (*models.FCMSubscription, error)
	ListByUser(ctx context.Context, userID string) ([]models.FCMSubscription, error)
	Delete(ctx context.Context, id string) error
}

// SubscriptionRepository persists web-push subscriptions
type SubscriptionRepository interface {
	ScopedDeleter
	Create(ctx context.Context, sub *models.Subscription) error
	Get(ctx context.Context, id string) (*models.Subscription, error)
	ListByUser(ctx context.Context, userID string) ([]models.Subscription, error)
	Delete(ctx context.Context, id string) error
}

// Repositories bundles every repository so they can be wired in one place
type Repositories struct {
	Users          UserRepository
	Admins         AdminRepository
	Organizations  OrganizationRepository
	Branches       BranchRepository
	Relations      RelationRepository
	TelegramGroups TelegramGroupRepository
	FCM            FCMSubscriptionRepository
	Subscriptions  SubscriptionRepository
	Tx             TxManager
}
