package auth

import "github.com/platinummonkey/tenancy/pkg/models"

// Audience separates the user and administrator identity spaces so a token
// issued to one is never accepted by the other.
type Audience string

const (
	AudienceUser  Audience = "user"
	AudienceAdmin Audience = "admin"
)

// AuthContext holds the authenticated subject of a request
type AuthContext struct {
	// SubjectID is the user or admin id carried in the token's sub claim
	SubjectID string
	Audience  Audience
}

// IsAdmin reports whether the subject is an administrator
func (ac *AuthContext) IsAdmin() bool {
	return ac != nil && ac.Audience == AudienceAdmin
}

// Scope is the tenant scope supplied with a request
type Scope struct {
	OrganizationID string
	BranchID       string
}

// Actor is everything a lifecycle service needs to authorize a call: who is
// acting and which relations they hold.
type Actor struct {
	UserID    string
	Relations []models.Relation
}
