// Package rbac decides who may act on which organization, branch or
// administrator record.
//
// # Overview
//
// Tenant authorization is driven entirely by the acting user's relations,
// fetched once per request. Every predicate is an existential scan over that
// slice and returns nil (allow) or an apperr Forbidden error (deny):
//
//	rels, err := relations.ListByUser(ctx, actorID)
//	if err != nil {
//		return err
//	}
//	if err := rbac.Permission(rels, orgID, branchID); err != nil {
//		return err
//	}
//
// Only confirmed relations (relation_type Relation) with role
// OrganizationOwner grant authority. A pending RequestToJoin or
// InvitationToUser row never does, whatever role it carries.
//
// # Predicates
//
//   - Permission: owner of exactly (organization, branch)
//   - PermissionNoBranch, OrgDeletePatchPermission, BranchCreatePermission:
//     owner of any branch of the organization
//   - BranchPatchPermission, BranchDeletePermission: same as Permission
//   - RelationIDPermission: Permission, or the actor holds the target relation
//     in the scope
//
// # Administrators
//
// Administrators live outside the relation graph. The SuperAdmin may list,
// create and mutate any administrator; an Admin may only mutate itself; both
// may view their own profile.
//
// # Metrics
//
// Evaluator wraps the predicates and forwards every decision to a
// DecisionRecorder, which observability.Metrics implements.
package rbac
