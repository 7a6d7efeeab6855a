package rbac

import "github.com/platinummonkey/tenancy/pkg/models"

// AdminListCreatePermission allows only the SuperAdmin to list or create
// administrators.
func AdminListCreatePermission(admin models.Admin) error {
	if admin.Role == models.AdminRoleSuperAdmin {
		return nil
	}
	return deny()
}

// AdminMutatePermission allows the SuperAdmin on any target, and an Admin
// only on itself.
func AdminMutatePermission(targetID string, admin models.Admin) error {
	switch admin.Role {
	case models.AdminRoleSuperAdmin:
		return nil
	case models.AdminRoleAdmin:
		if admin.ID == targetID {
			return nil
		}
	}
	return deny()
}

func AdminSelfViewPermission(admin models.Admin) error {
	switch admin.Role {
	case models.AdminRoleSuperAdmin, models.AdminRoleAdmin:
		return nil
	}
	return deny()
}
