package rbac

import (
	"github.com/platinummonkey/tenancy/pkg/apperr"
	"github.com/platinummonkey/tenancy/pkg/models"
)

// Check names, used as the "check" label on decision metrics and in the
// audit trail.
const (
	CheckPermission         = "permission"
	CheckPermissionNoBranch = "permission_no_branch"
	CheckRelationID         = "relation_id"
	CheckOrgDeletePatch     = "org_delete_patch"
	CheckBranchCreate       = "branch_create"
	CheckBranchDelete       = "branch_delete"
	CheckBranchPatch        = "branch_patch"
	CheckAdminListCreate    = "admin_list_create"
	CheckAdminMutate        = "admin_mutate"
	CheckAdminSelfView      = "admin_self_view"
)

func deny() error {
	return apperr.Forbidden(apperr.ForbiddenMessage)
}

// owns reports whether r is a confirmed owner relation in the organization.
// Pending rows never carry authority, whatever their role.
func owns(r models.Relation, organizationID string) bool {
	return r.Role == models.RoleOrganizationOwner &&
		r.Confirmed() &&
		r.OrganizationID == organizationID
}

// Permission allows iff the actor is a confirmed owner of exactly this
// (organization, branch) scope.
func Permission(relations []models.Relation, organizationID, branchID string) error {
	for _, r := range relations {
		if owns(r, organizationID) && r.BranchID == branchID {
			return nil
		}
	}
	return deny()
}

// PermissionNoBranch allows iff the actor is a confirmed owner of any branch
// of the organization.
func PermissionNoBranch(relations []models.Relation, organizationID string) error {
	for _, r := range relations {
		if owns(r, organizationID) {
			return nil
		}
	}
	return deny()
}

// RelationIDPermission allows an owner of the scope, or the holder of the
// target relation acting on it. The self clause ignores relation_type so an
// invited user can accept or decline their own pending row.
func RelationIDPermission(relations []models.Relation, organizationID, branchID, targetRelationID string) error {
	if Permission(relations, organizationID, branchID) == nil {
		return nil
	}
	if IsSelf(relations, organizationID, branchID, targetRelationID) {
		return nil
	}
	return deny()
}

// IsSelf reports whether the target relation is one of the actor's own rows in
// the scope.
func IsSelf(relations []models.Relation, organizationID, branchID, targetRelationID string) bool {
	for _, r := range relations {
		if r.InScope(organizationID, branchID) && r.ID == targetRelationID {
			return true
		}
	}
	return false
}

// OrgDeletePatchPermission gates organization patch and delete.
func OrgDeletePatchPermission(relations []models.Relation, organizationID string) error {
	return PermissionNoBranch(relations, organizationID)
}

// BranchCreatePermission only needs organization-level ownership, since the
// branch does not exist yet.
func BranchCreatePermission(relations []models.Relation, organizationID string) error {
	return PermissionNoBranch(relations, organizationID)
}

func BranchDeletePermission(relations []models.Relation, organizationID, branchID string) error {
	return Permission(relations, organizationID, branchID)
}

func BranchPatchPermission(relations []models.Relation, organizationID, branchID string) error {
	return Permission(relations, organizationID, branchID)
}
