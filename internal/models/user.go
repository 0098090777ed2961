package models

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleAdmin       UserRole = "ADMIN"
	RoleSiteManager UserRole = "SITE_MANAGER"
	RoleSupervisor  UserRole = "SUPERVISOR"
	RoleTechnician  UserRole = "TECHNICIAN"
)

// CanGenerateReports reports whether the role may run report exports.
func (r UserRole) CanGenerateReports() bool {
	switch r {
	case RoleAdmin, RoleSiteManager, RoleSupervisor:
		return true
	}
	return false
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
