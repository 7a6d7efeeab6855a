package events

import (
	"context"
	"time"

	"github.com/platinummonkey/tenancy/pkg/models"
)

const (
	TypeRelationInvited       = "relation.invited"
	TypeRelationJoinRequested = "relation.join_requested"
	TypeRelationAccepted      = "relation.accepted"
)

// RelationEvent announces a change in the relation workflow
type RelationEvent struct {
	Type           string              `json:"type"`
	RelationID     string              `json:"relation_id"`
	OrganizationID string              `json:"organization_id"`
	BranchID       string              `json:"branch_id"`
	UserID         string              `json:"user_id"`
	ActorID        string              `json:"actor_id"`
	Role           models.Role         `json:"role"`
	RelationType   models.RelationType `json:"relation_type"`
	OccurredAt     time.Time           `json:"occurred_at"`
}

// NewRelationEvent describes rel as changed by actorID
func NewRelationEvent(eventType string, rel models.Relation, actorID string) RelationEvent {
	return RelationEvent{
		Type:           eventType,
		RelationID:     rel.ID,
		OrganizationID: rel.OrganizationID,
		BranchID:       rel.BranchID,
		UserID:         rel.UserID,
		ActorID:        actorID,
		Role:           rel.Role,
		RelationType:   rel.RelationType,
		OccurredAt:     time.Now().UTC(),
	}
}

// PublishRelation keys the message by organization so one tenant's events
// stay ordered.
func PublishRelation(ctx context.Context, p Publisher, event RelationEvent) error {
	return p.Publish(ctx, event.OrganizationID, event)
}
