package auth

import "github.com/resumate-app/resumate/internal/domain"

// RBACPermission represents an action a role may perform
type RBACPermission string

const (
	ResumesWrite      RBACPermission = "resumes.write"
	CoverLettersWrite RBACPermission = "cover_letters.write"
	AIUse             RBACPermission = "ai.use"

	// JobsRead covers the background queue statistics
	JobsRead RBACPermission = "jobs.read"
	// DebugRead covers pprof and runtime statistics
	DebugRead RBACPermission = "debug.read"
)

// Role represents a user role with a set of permissions
type Role struct {
	Name        string
	Permissions []RBACPermission
}

// HasPermission checks if the role has a specific permission
func (r *Role) HasPermission(permission RBACPermission) bool {
	for _, p := range r.Permissions {
		if p == permission {
			return true
		}
	}
	return false
}

var (
	UserRole = &Role{
		Name:        domain.RoleUser,
		Permissions: []RBACPermission{ResumesWrite, CoverLettersWrite, AIUse},
	}

	AdminRole = &Role{
		Name:        domain.RoleAdmin,
		Permissions: []RBACPermission{ResumesWrite, CoverLettersWrite, AIUse, JobsRead, DebugRead},
	}
)

// GetRoleByName returns a predefined role by name, or nil
func GetRoleByName(name string) *Role {
	switch name {
	case domain.RoleUser:
		return UserRole
	case domain.RoleAdmin:
		return AdminRole
	default:
		return nil
	}
}

// UserHasPermission checks if any of the user's roles has the required permission
func UserHasPermission(roles []string, permission RBACPermission) bool {
	for _, roleName := range roles {
		role := GetRoleByName(roleName)
		if role != nil && role.HasPermission(permission) {
			return true
		}
	}
	return false
}
