package model

// Permission is a capability key from the closed fleet vocabulary.
type Permission string

// Wire-level permission keys. Never created at runtime.
const (
	PermViewDashboard      Permission = "view_dashboard"      // Dashboard overview
	PermManageUsers        Permission = "manage_users"        // CRUD on user accounts
	PermManageVehicles     Permission = "manage_vehicles"     // Vehicles, repairs, fuel logs
	PermViewReports        Permission = "view_reports"        // Reports and exports
	PermManageDistribution Permission = "manage_distribution" // Newspaper delivery routes
	PermDriverAccess       Permission = "driver_access"       // Driver's own route view
	PermManageRoles        Permission = "manage_roles"        // Role registry administration
)

var allPermissions = []Permission{
	PermViewDashboard,
	PermManageUsers,
	PermManageVehicles,
	PermViewReports,
	PermManageDistribution,
	PermDriverAccess,
	PermManageRoles,
}

// AllPermissions returns the full vocabulary in canonical order.
func AllPermissions() []Permission {
	out := make([]Permission, len(allPermissions))
	copy(out, allPermissions)
	return out
}

// IsValid reports whether p belongs to the vocabulary.
func (p Permission) IsValid() bool {
	switch p {
	case PermViewDashboard, PermManageUsers, PermManageVehicles, PermViewReports,
		PermManageDistribution, PermDriverAccess, PermManageRoles:
		return true
	}
	return false
}

// ParsePermission converts a wire key into a Permission.
func ParsePermission(s string) (Permission, bool) {
	p := Permission(s)
	return p, p.IsValid()
}

// PermissionIndex returns the canonical position of p, or -1.
func PermissionIndex(p Permission) int {
	for i, known := range allPermissions {
		if known == p {
			return i
		}
	}
	return -1
}
