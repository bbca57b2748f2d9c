package identity

import (
	"slices"
	"strings"

	"github.com/digimall/admin-gateway/internal/domain/shared"
)

// Well-known staff roles. The backend is the authority on roles; the gateway
// only needs to recognise the super admin created by the setup flow.
const (
	RoleSuperAdmin = "super_admin"
	RoleAdmin      = "admin"
)

// StaffUser is the staff member as returned by the backend login endpoint
type StaffUser struct {
	ID          string   `json:"id"`
	Email       string   `json:"email"`
	Name        string   `json:"name,omitempty"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions,omitempty"`
}

// Validate checks the fields the gateway relies on for identity headers
func (u StaffUser) Validate() error {
	if strings.TrimSpace(u.ID) == "" {
		return shared.NewDomainError("INVALID_STAFF_USER", "Staff user ID cannot be empty")
	}
	if strings.TrimSpace(u.Email) == "" {
		return shared.NewDomainError("INVALID_STAFF_USER", "Staff user email cannot be empty")
	}
	return nil
}

// HasPermission reports whether the user carries the given permission.
// Super admins implicitly hold every permission.
func (u StaffUser) HasPermission(permission string) bool {
	if u.Role == RoleSuperAdmin {
		return true
	}
	return slices.Contains(u.Permissions, permission)
}
