package auth

import "slices"

// Permission names an action on the admin API. Mutating routes are
// registered under the permission they need.
type Permission string

const (
	// PermissionViewDevices grants access to view devices and permission states.
	PermissionViewDevices Permission = "devices:view"
	// PermissionRefreshDevices grants access to trigger a device refresh.
	PermissionRefreshDevices Permission = "devices:refresh"
	// PermissionManageDevices grants access to select preferred devices.
	PermissionManageDevices Permission = "devices:manage"

	// PermissionRequestAccess grants access to start a permission request.
	PermissionRequestAccess Permission = "permissions:request"
	// PermissionResolveAccess grants access to resolve a permission request.
	PermissionResolveAccess Permission = "permissions:resolve"
	// PermissionManageAccess grants access to overwrite a permission state.
	PermissionManageAccess Permission = "permissions:manage"
)

// Role names.
const (
	RoleAdmin    = "admin"
	RoleOperator = "operator"
	RoleViewer   = "viewer"
)

// Role represents a token role with associated permissions.
type Role struct {
	Name        string       `json:"name"`
	Permissions []Permission `json:"permissions"`
}

// GetRoleAdmin returns the admin role.
func GetRoleAdmin() Role {
	return Role{
		Name: RoleAdmin,
		Permissions: []Permission{
			PermissionViewDevices,
			PermissionRefreshDevices,
			PermissionManageDevices,
			PermissionRequestAccess,
			PermissionResolveAccess,
			PermissionManageAccess,
		},
	}
}

// GetRoleOperator returns the operator role: it drives refreshes and prompts
// but cannot overwrite state.
func GetRoleOperator() Role {
	return Role{
		Name: RoleOperator,
		Permissions: []Permission{
			PermissionViewDevices,
			PermissionRefreshDevices,
			PermissionRequestAccess,
			PermissionResolveAccess,
		},
	}
}

// GetRoleViewer returns the read-only role.
func GetRoleViewer() Role {
	return Role{
		Name:        RoleViewer,
		Permissions: []Permission{PermissionViewDevices},
	}
}

// GetRole returns a role by name. Unknown names get the viewer role.
func GetRole(name string) *Role {
	var role Role

	switch name {
	case RoleAdmin:
		role = GetRoleAdmin()
	case RoleOperator:
		role = GetRoleOperator()
	default:
		role = GetRoleViewer()
	}

	return &role
}

// IsKnownRole reports whether name is one of the defined roles.
func IsKnownRole(name string) bool {
	return name == RoleAdmin || name == RoleOperator || name == RoleViewer
}

// HasPermission checks if a role has a specific permission.
func (r *Role) HasPermission(permission Permission) bool {
	return slices.Contains(r.Permissions, permission)
}
