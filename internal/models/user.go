package models

// UserRole represents the caller roles recognised by the RBAC system.
// Accounts live in the external identity service; the scheduling core
// only ever sees the role carried by a validated token.
type UserRole string

const (
	RoleAdmin    UserRole = "ADMIN"
	RoleProvider UserRole = "PROVIDER"
	RoleClient   UserRole = "CLIENT"
)

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
