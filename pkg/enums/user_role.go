package enums

import "slices"

// UserRole is an organization-level permission role.
type UserRole string

const (
	UserRoleSystemAdmin       UserRole = "system_admin"
	UserRoleHeadquartersAdmin UserRole = "headquarters_admin"
	UserRoleAreaManager       UserRole = "area_manager"
	UserRoleManager           UserRole = "manager"
	UserRoleStaff             UserRole = "staff"
)

// AdminRoles may manage accounts and run identity reconciliation.
var AdminRoles = []UserRole{UserRoleSystemAdmin, UserRoleHeadquartersAdmin}

// ManagerRoles may create missions, certify skills and export attendance.
var ManagerRoles = append(slices.Clone(AdminRoles), UserRoleAreaManager, UserRoleManager)

var userRoles = append(slices.Clone(ManagerRoles), UserRoleStaff)

func (r UserRole) String() string { return string(r) }

func (r UserRole) IsValid() bool { return slices.Contains(userRoles, r) }

// IsManager reports whether r carries manager-level permissions.
func (r UserRole) IsManager() bool { return slices.Contains(ManagerRoles, r) }

func ParseUserRole(value string) (UserRole, error) {
	return parse("user role", value, userRoles)
}
