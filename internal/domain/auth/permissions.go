package auth

import "context"

const (
	RoleEmployee = "employee"
	RoleHR       = "hr_admin"
)

const (
	PermLeaveRead    = "leave.read"
	PermLeaveRequest = "leave.request"
	PermLeaveApprove = "leave.approve"
	PermLeaveAdmin   = "leave.admin"
	PermAuditRead    = "audit.read"
)

var RolePermissions = map[string][]string{
	RoleEmployee: {
		PermLeaveRead,
		PermLeaveRequest,
	},
	RoleHR: {
		PermLeaveRead,
		PermLeaveRequest,
		PermLeaveApprove,
		PermLeaveAdmin,
		PermAuditRead,
	},
}

// StaticPermissions resolves permissions from RolePermissions.
type StaticPermissions struct{}

func (StaticPermissions) HasPermission(_ context.Context, role, permission string) (bool, error) {
	for _, p := range RolePermissions[role] {
		if p == permission {
			return true, nil
		}
	}
	return false, nil
}
