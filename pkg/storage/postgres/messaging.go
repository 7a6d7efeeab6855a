package postgres

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/platinummonkey/tenancy/pkg/models"
	"github.com/platinummonkey/tenancy/pkg/storage"
)

const (
	telegramGroupColumns   = "id, group_id, name, organization_id, branch_id, created_at, updated_at"
	fcmSubscriptionColumns = "id, fcm_token, organization_id, branch_id, user_id, created_at"
	subscriptionColumns    = "id, endpoint, expiration_time, p256dh, auth, organization_id, branch_id, user_id, created_at"
)

var userScopes = []storage.ScopeField{storage.ScopeOrganization, storage.ScopeBranch, storage.ScopeUser}

// TelegramGroupRepository implements storage.TelegramGroupRepository
type TelegramGroupRepository struct {
	db *sql.DB
}

func NewTelegramGroupRepository(db *sql.DB) *TelegramGroupRepository {
	return &TelegramGroupRepository{db: db}
}

func scanTelegramGroup(row rowScanner) (*models.TelegramGroup, error) {
	var g models.TelegramGroup
	if err := row.Scan(&g.ID, &g.GroupID, &g.Name, &g.OrganizationID, &g.BranchID, &g.CreatedAt, &g.UpdatedAt); err != nil {
		return nil, err
	}
	return &g, nil
}

func (r *TelegramGroupRepository) Create(ctx context.Context, g *models.TelegramGroup) error {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = utcNow()
	}

	_, err := conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO telegram_groups (id, group_id, name, organization_id, branch_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		g.ID, g.GroupID, g.Name, g.OrganizationID, g.BranchID, g.CreatedAt,
	)
	if err != nil {
		return createError("telegram group", err)
	}
	return nil
}

func (r *TelegramGroupRepository) Get(ctx context.Context, id string) (*models.TelegramGroup, error) {
	row := conn(ctx, r.db).QueryRowContext(ctx, "SELECT "+telegramGroupColumns+" FROM telegram_groups WHERE id = $1", id)
	g, err := scanTelegramGroup(row)
	if err != nil {
		return nil, getError("Telegram group", err)
	}
	return g, nil
}

func (r *TelegramGroupRepository) ListByOrganization(ctx context.Context, organizationID string) ([]models.TelegramGroup, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx,
		"SELECT "+telegramGroupColumns+" FROM telegram_groups WHERE organization_id = $1 ORDER BY created_at", organizationID)
	if err != nil {
		return nil, serverError("failed to list telegram groups", err)
	}
	defer rows.Close()

	groups := []models.TelegramGroup{}
	for rows.Next() {
		g, err := scanTelegramGroup(rows)
		if err != nil {
			return nil, serverError("failed to scan telegram group", err)
		}
		groups = append(groups, *g)
	}
	if err := rows.Err(); err != nil {
		return nil, serverError("failed to iterate telegram groups", err)
	}
	return groups, nil
}

func (r *TelegramGroupRepository) Patch(ctx context.Context, id string, patch models.TelegramGroupPatch) (*models.TelegramGroup, error) {
	s := &setter{}
	if patch.GroupID != nil {
		s.set("group_id", *patch.GroupID)
	}
	if patch.Name != nil {
		s.set("name", *patch.Name)
	}
	if s.empty() {
		return r.Get(ctx, id)
	}
	s.set("updated_at", utcNow())

	if err := s.update(ctx, conn(ctx, r.db), "telegram_groups", id, "Telegram group"); err != nil {
		return nil, err
	}
	return r.Get(ctx, id)
}

func (r *TelegramGroupRepository) Delete(ctx context.Context, id string) error {
	return deleteByID(ctx, conn(ctx, r.db), "telegram_groups", id, "Telegram group")
}

func (r *TelegramGroupRepository) DeleteByScope(ctx context.Context, field storage.ScopeField, id string) (int64, error) {
	return deleteByScope(ctx, conn(ctx, r.db), "telegram_groups",
		[]storage.ScopeField{storage.ScopeOrganization, storage.ScopeBranch}, field, id)
}

// FCMSubscriptionRepository implements storage.FCMSubscriptionRepository
type FCMSubscriptionRepository struct {
	db *sql.DB
}

func NewFCMSubscriptionRepository(db *sql.DB) *FCMSubscriptionRepository {
	return &FCMSubscriptionRepository{db: db}
}

func scanFCMSubscription(row rowScanner) (*models.FCMSubscription, error) {
	var s models.FCMSubscription
	if err := row.Scan(&s.ID, &s.FCMToken, &s.OrganizationID, &s.BranchID, &s.UserID, &s.CreatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *FCMSubscriptionRepository) Create(ctx context.Context, s *models.FCMSubscription) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = utcNow()
	}

	_, err := conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO fcm_subscriptions (id, fcm_token, organization_id, branch_id, user_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		s.ID, s.FCMToken, s.OrganizationID, s.BranchID, s.UserID, s.CreatedAt,
	)
	if err != nil {
		return createError("FCM subscription", err)
	}
	return nil
}

func (r *FCMSubscriptionRepository) Get(ctx context.Context, id string) (*models.FCMSubscription, error) {
	row := conn(ctx, r.db).QueryRowContext(ctx, "SELECT "+fcmSubscriptionColumns+" FROM fcm_subscriptions WHERE id = $1", id)
	s, err := scanFCMSubscription(row)
	if err != nil {
		return nil, getError("FCM subscription", err)
	}
	return s, nil
}

func (r *FCMSubscriptionRepository) ListByUser(ctx context.Context, userID string) ([]models.FCMSubscription, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx,
		"SELECT "+fcmSubscriptionColumns+" FROM fcm_subscriptions WHERE user_id = $1 ORDER BY created_at", userID)
	if err != nil {
		return nil, serverError("failed to list FCM subscriptions", err)
	}
	defer rows.Close()

	subs := []models.FCMSubscription{}
	for rows.Next() {
		s, err := scanFCMSubscription(rows)
		if err != nil {
			return nil, serverError("failed to scan FCM subscription", err)
		}
		subs = append(subs, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, serverError("failed to iterate FCM subscriptions", err)
	}
	return subs, nil
}

func (r *FCMSubscriptionRepository) Delete(ctx context.Context, id string) error {
	return deleteByID(ctx, conn(ctx, r.db), "fcm_subscriptions", id, "FCM subscription")
}

func (r *FCMSubscriptionRepository) DeleteByScope(ctx context.Context, field storage.ScopeField, id string) (int64, error) {
	return deleteByScope(ctx, conn(ctx, r.db), "fcm_subscriptions", userScopes, field, id)
}

// SubscriptionRepository implements storage.SubscriptionRepository
type SubscriptionRepository struct {
	db *sql.DB
}

func NewSubscriptionRepository(db *sql.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

func scanSubscription(row rowScanner) (*models.Subscription, error) {
	var s models.Subscription
	err := row.Scan(&s.ID, &s.Endpoint, &s.ExpirationTime, &s.Keys.P256dh, &s.Keys.Auth,
		&s.OrganizationID, &s.BranchID, &s.UserID, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SubscriptionRepository) Create(ctx context.Context, s *models.Subscription) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = utcNow()
	}

	_, err := conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO subscriptions (id, endpoint, expiration_time, p256dh, auth, organization_id, branch_id, user_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		s.ID, s.Endpoint, s.ExpirationTime, s.Keys.P256dh, s.Keys.Auth, s.OrganizationID, s.BranchID, s.UserID, s.CreatedAt,
	)
	if err != nil {
		return createError("subscription", err)
	}
	return nil
}

func (r *SubscriptionRepository) Get(ctx context.Context, id string) (*models.Subscription, error) {
	row := conn(ctx, r.db).QueryRowContext(ctx, "SELECT "+subscriptionColumns+" FROM subscriptions WHERE id = $1", id)
	s, err := scanSubscription(row)
	if err != nil {
		return nil, getError("Subscription", err)
	}
	return s, nil
}

func (r *SubscriptionRepository) ListByUser(ctx context.Context, userID string) ([]models.Subscription, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx,
		"SELECT "+subscriptionColumns+" FROM subscriptions WHERE user_id = $1 ORDER BY created_at", userID)
	if err != nil {
		return nil, serverError("failed to list subscriptions", err)
	}
	defer rows.Close()

	subs := []models.Subscription{}
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			return nil, serverError("failed to scan subscription", err)
		}
		subs = append(subs, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, serverError("failed to iterate subscriptions", err)
	}
	return subs, nil
}

func (r *SubscriptionRepository) Delete(ctx context.Context, id string) error {
	return deleteByID(ctx, conn(ctx, r.db), "subscriptions", id, "Subscription")
}

func (r *SubscriptionRepository) DeleteByScope(ctx context.Context, field storage.ScopeField, id string) (int64, error) {
	return deleteByScope(ctx, conn(ctx, r.db), "subscriptions", userScopes, field, id)
}
