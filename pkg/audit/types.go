package audit

import "time"

// EventType represents the category of audit event
type EventType string

const (
	// Authentication events
	EventTypeAuthSignup         EventType = "auth.signup"
	EventTypeAuthSignin         EventType = "auth.signin"
	EventTypeAuthSigninFailed   EventType = "auth.signin_failed"
	EventTypeAuthPasswordChange EventType = "auth.password_change"
	EventTypeAuthPasswordReset  EventType = "auth.password_reset"

	// Authorization events
	EventTypeAuthzAccessDenied EventType = "authz.access_denied"

	// Data mutation events
	EventTypeDataCreate EventType = "data.create"
	EventTypeDataUpdate EventType = "data.update"
	EventTypeDataDelete EventType = "data.delete"

	// Relation workflow events
	EventTypeRelationInvite      EventType = "relation.invite"
	EventTypeRelationRequestJoin EventType = "relation.request_join"
	EventTypeRelationAccept      EventType = "relation.accept"
)

// EventStatus represents the outcome of an event
type EventStatus string

const (
	EventStatusSuccess EventStatus = "success"
	EventStatusFailure EventStatus = "failure"
	EventStatusDenied  EventStatus = "denied"
)

// ResourceType represents the type of resource being accessed
type ResourceType string

const (
	ResourceTypeUser            ResourceType = "user"
	ResourceTypeAdmin           ResourceType = "admin"
	ResourceTypeOrganization    ResourceType = "organization"
	ResourceTypeBranch          ResourceType = "branch"
	ResourceTypeRelation        ResourceType = "relation"
	ResourceTypeTelegramGroup   ResourceType = "telegram_group"
	ResourceTypeFCMSubscription ResourceType = "fcm_subscription"
	ResourceTypeSubscription    ResourceType = "subscription"
)

// AuditEvent represents a single audit log entry
type AuditEvent struct {
	Timestamp time.Time   `json:"timestamp"`
	EventType EventType   `json:"event_type"`
	Status    EventStatus `json:"status"`

	// SubjectID is the acting user or admin
	SubjectID string `json:"subject_id,omitempty"`

	ResourceType ResourceType `json:"resource_type,omitempty"`
	ResourceID   string       `json:"resource_id,omitempty"`

	OrganizationID string `json:"organization_id,omitempty"`
	BranchID       string `json:"branch_id,omitempty"`

	RequestID string `json:"request_id,omitempty"`
	Message   string `json:"message,omitempty"`

	Metadata map[string]interface{} `json:"metadata,omitempty"`
}
