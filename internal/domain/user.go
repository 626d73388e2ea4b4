package domain

import "time"

// Role is the closed set of actor roles.
type Role string

const (
	RoleUser    Role = "user"
	RoleSupport Role = "support"
	RoleAdmin   Role = "admin"
)

// IsValid reports whether the role is one of the defined values.
func (r Role) IsValid() bool {
	return r == RoleUser || r == RoleSupport || r == RoleAdmin
}

// IsStaff reports whether the role may manage tickets and categories
// belonging to any user.
func (r Role) IsStaff() bool {
	return r == RoleSupport || r == RoleAdmin
}

// ParseRole returns the matching role, defaulting to RoleUser for
// unknown input.
func ParseRole(s string) Role {
	role := Role(s)
	if role.IsValid() {
		return role
	}
	return RoleUser
}

// User is an authenticated actor: requesters and staff share one table,
// differentiated by role.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
