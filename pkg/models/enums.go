package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/platinummonkey/tenancy/pkg/apperr"
)

// Role is a user's role inside an organization/branch scope
type Role string

const (
	RoleMember            Role = "Member"
	RoleOrganizationOwner Role = "OrganizationOwner"
)

// ParseRole rejects anything that is not a known role
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleMember, RoleOrganizationOwner:
		return Role(s), nil
	}
	return "", apperr.Validation(fmt.Sprintf("unknown role %q", s))
}

func (r Role) String() string { return string(r) }

func (r *Role) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return apperr.Validation("role must be a string")
	}
	parsed, err := ParseRole(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

func (r Role) Value() (driver.Value, error) {
	if _, err := ParseRole(string(r)); err != nil {
		return nil, err
	}
	return string(r), nil
}

func (r *Role) Scan(src interface{}) error {
	s, err := scanString(src, "role")
	if err != nil {
		return err
	}
	parsed, err := ParseRole(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// RelationType distinguishes confirmed membership from pending workflows
type RelationType string

const (
	// RelationTypeRelation is a confirmed membership
	RelationTypeRelation RelationType = "Relation"
	// RelationTypeRequestToJoin is pending, initiated by the user
	RelationTypeRequestToJoin RelationType = "RequestToJoin"
	// RelationTypeInvitationToUser is pending, initiated by an owner
	RelationTypeInvitationToUser RelationType = "InvitationToUser"
)

func ParseRelationType(s string) (RelationType, error) {
	switch RelationType(s) {
	case RelationTypeRelation, RelationTypeRequestToJoin, RelationTypeInvitationToUser:
		return RelationType(s), nil
	}
	return "", apperr.Validation(fmt.Sprintf("unknown relation_type %q", s))
}

func (t RelationType) String() string { return string(t) }

// Pending reports whether the relation is an unconfirmed offer
func (t RelationType) Pending() bool {
	return t == RelationTypeRequestToJoin || t == RelationTypeInvitationToUser
}

func (t *RelationType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return apperr.Validation("relation_type must be a string")
	}
	parsed, err := ParseRelationType(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func (t RelationType) Value() (driver.Value, error) {
	if _, err := ParseRelationType(string(t)); err != nil {
		return nil, err
	}
	return string(t), nil
}

func (t *RelationType) Scan(src interface{}) error {
	s, err := scanString(src, "relation_type")
	if err != nil {
		return err
	}
	parsed, err := ParseRelationType(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// AdminRole is the tier of an administrator account
type AdminRole string

const (
	AdminRoleAdmin      AdminRole = "Admin"
	AdminRoleSuperAdmin AdminRole = "SuperAdmin"
)

func ParseAdminRole(s string) (AdminRole, error) {
	switch AdminRole(s) {
	case AdminRoleAdmin, AdminRoleSuperAdmin:
		return AdminRole(s), nil
	}
	return "", apperr.Validation(fmt.Sprintf("unknown admin role %q", s))
}

func (r AdminRole) String() string { return string(r) }

func (r *AdminRole) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return apperr.Validation("admin role must be a string")
	}
	parsed, err := ParseAdminRole(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

func (r AdminRole) Value() (driver.Value, error) {
	if _, err := ParseAdminRole(string(r)); err != nil {
		return nil, err
	}
	return string(r), nil
}

func (r *AdminRole) Scan(src interface{}) error {
	s, err := scanString(src, "admin role")
	if err != nil {
		return err
	}
	parsed, err := ParseAdminRole(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

func scanString(src interface{}, field string) (string, error) {
	switch v := src.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	default:
		return "", fmt.Errorf("cannot scan %T into %s", src, field)
	}
}
