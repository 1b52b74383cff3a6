package models

import "github.com/golang-jwt/jwt/v5"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleSuperAdmin UserRole = "SUPERADMIN"
	RoleAdmin      UserRole = "ADMIN"
	RolePlanner    UserRole = "PLANNER"
	RoleViewer     UserRole = "VIEWER"
)

// JWTClaims represents the payload of access tokens issued by the identity provider.
type JWTClaims struct {
	UserID string   `json:"user_id"`
	Role   UserRole `json:"role"`
	Email  string   `json:"email"`
	jwt.RegisteredClaims
}

// Valid reports whether the role is one the API recognises.
func (r UserRole) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleAdmin, RolePlanner, RoleViewer:
		return true
	}
	return false
}
