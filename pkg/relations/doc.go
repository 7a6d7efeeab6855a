// Package relations runs the membership workflows of a branch.
//
// A user asks to join with RequestJoinToBranch, or an owner invites them
// with InviteToBranch; both create a pending relation. The row becomes a
// confirmed membership when its relation_type is patched to Relation:
// owners may do this for any row of their scope, and an invited user may
// do it for their own invitation only. Deleting a row declines, withdraws
// or removes the membership.
//
// Workflow transitions are published to the events publisher keyed by
// organization, written to the audit trail and counted as OpenTelemetry
// metrics.
package relations
