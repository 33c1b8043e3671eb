package auth

const (
	RoleEmployee    = "Employee"
	RoleManager     = "Manager"
	RoleHR          = "HR"
	RoleSystemAdmin = "SystemAdmin"
)

// UserContext is the authenticated account behind a request.
type UserContext struct {
	UserID   string
	TenantID string
	RoleID   string
	RoleName string
}

// IsAdmin reports whether the role carries HR administrative rights.
func IsAdmin(role string) bool {
	return role == RoleHR || role == RoleSystemAdmin
}

func KnownRole(role string) bool {
	switch role {
	case RoleEmployee, RoleManager, RoleHR, RoleSystemAdmin:
		return true
	}
	return false
}
