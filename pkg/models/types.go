// Package models holds the entities shared by the repositories, the
// permission evaluator and the lifecycle services.
package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// User is an end-user account
type User struct {
	ID          string     `json:"id"`
	Password    string     `json:"-"`
	ImagePath   string     `json:"image_path"`
	PhoneNumber string     `json:"phone_number"`
	Email       *string    `json:"email,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

// Admin is an operator account, separate from users and not scoped to any
// organization.
type Admin struct {
	ID          string     `json:"id"`
	Password    string     `json:"-"`
	PhoneNumber string     `json:"phone_number"`
	Role        AdminRole  `json:"role"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

// Organization is a tenant
type Organization struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// Branch belongs to exactly one organization for its whole life
type Branch struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	BranchLocation *string    `json:"branch_location,omitempty"`
	ForCall        ForCalls   `json:"for_call,omitempty"`
	OrganizationID string     `json:"organization_id"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      *time.Time `json:"updated_at,omitempty"`
}

// DefaultBranchName is the name of the branch created with an organization
func DefaultBranchName(organizationName string) string {
	return organizationName + "_main"
}

// ForCall is a contact the branch can be reached through
type ForCall struct {
	Name        string `json:"name"`
	PhoneNumber string `json:"phone_number"`
}

// ForCalls is stored as a JSON document column
type ForCalls []ForCall

func (f ForCalls) Value() (driver.Value, error) {
	if f == nil {
		return nil, nil
	}
	b, err := json.Marshal(f)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (f *ForCalls) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*f = nil
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("cannot scan %T into for_call", src)
	}
	return json.Unmarshal(raw, f)
}

// Relation binds a user to an (organization, branch) scope
type Relation struct {
	ID             string       `json:"id"`
	OrganizationID string       `json:"organization_id"`
	BranchID       string       `json:"branch_id"`
	UserID         string       `json:"user_id"`
	Role           Role         `json:"role"`
	RelationType   RelationType `json:"relation_type"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      *time.Time   `json:"updated_at,omitempty"`
}

// Confirmed reports whether the relation is an active membership
func (r Relation) Confirmed() bool {
	return r.RelationType == RelationTypeRelation
}

// InScope reports whether the relation is bound to the given scope
func (r Relation) InScope(organizationID, branchID string) bool {
	return r.OrganizationID == organizationID && r.BranchID == branchID
}

// TelegramGroup is a chat registered to receive branch notifications
type TelegramGroup struct {
	ID             string     `json:"id"`
	GroupID        string     `json:"group_id"`
	Name           *string    `json:"name,omitempty"`
	OrganizationID string     `json:"organization_id"`
	BranchID       string     `json:"branch_id"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      *time.Time `json:"updated_at,omitempty"`
}

// FCMSubscription is a device token registered by a user in a scope
type FCMSubscription struct {
	ID             string    `json:"id"`
	FCMToken       string    `json:"fcm_token"`
	OrganizationID string    `json:"organization_id"`
	BranchID       string    `json:"branch_id"`
	UserID         string    `json:"user_id"`
	CreatedAt      time.Time `json:"created_at"`
}

// PushKeys are the web-push encryption keys of a subscription
type PushKeys struct {
	P256dh string `json:"p256dh"`
	Auth   string `json:"auth"`
}

// Subscription is a web-push endpoint registered by a user in a scope
type Subscription struct {
	ID             string    `json:"id"`
	Endpoint       string    `json:"endpoint"`
	ExpirationTime *string   `json:"expirationTime,omitempty"`
	Keys           PushKeys  `json:"keys"`
	OrganizationID string    `json:"organization_id"`
	BranchID       string    `json:"branch_id"`
	UserID         string    `json:"user_id"`
	CreatedAt      time.Time `json:"created_at"`
}

// Patches carry only the fields present in the request; nil means unchanged.

type UserPatch struct {
	PhoneNumber *string `json:"phone_number,omitempty"`
	Email       *string `json:"email,omitempty"`
	ImagePath   *string `json:"image_path,omitempty"`
}

type AdminPatch struct {
	PhoneNumber *string    `json:"phone_number,omitempty"`
	Role        *AdminRole `json:"role,omitempty"`
}

type OrganizationPatch struct {
	Name *string `json:"name,omitempty"`
}

type BranchPatch struct {
	Name           *string   `json:"name,omitempty"`
	BranchLocation *string   `json:"branch_location,omitempty"`
	ForCall        *ForCalls `json:"for_call,omitempty"`
}

type RelationPatch struct {
	UserID       *string       `json:"user_id,omitempty"`
	Role         *Role         `json:"role,omitempty"`
	RelationType *RelationType `json:"relation_type,omitempty"`
}

// Empty reports whether the patch changes nothing
func (p RelationPatch) Empty() bool {
	return p.UserID == nil && p.Role == nil && p.RelationType == nil
}

type TelegramGroupPatch struct {
	GroupID *string `json:"group_id,omitempty"`
	Name    *string `json:"name,omitempty"`
}

// DeleteResponse is returned by every successful delete
type DeleteResponse struct {
	Message string `json:"message"`
}

// Deleted is the canonical delete response
var Deleted = DeleteResponse{Message: "Deleted successfully"}

// Token is returned by signup/signin
type Token struct {
	AccessToken string `json:"access_token"`
}
