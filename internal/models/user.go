package models

import (
	"time"

	"github.com/google/uuid"
)

// Role represents a user's permission level.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleSupervisor Role = "supervisor"
	RoleOperator   Role = "operator"
)

// User represents a system user with RBAC.
type User struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"` // Never expose in JSON
	Role         Role       `json:"role"`
	Active       bool       `json:"active"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty"`
}

// NewUser creates a new active User with a generated id.
func NewUser(name, email string, role Role) *User {
	return &User{
		ID:        uuid.New().String(),
		Name:      name,
		Email:     email,
		Role:      role,
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}
}

// IsAdmin returns true if the user has the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// CanResolveAlerts returns true if the user may resolve alerts.
func (u *User) CanResolveAlerts() bool {
	return u.Role == RoleAdmin || u.Role == RoleSupervisor
}

// ParseRole converts a string to Role, defaulting to operator.
func ParseRole(s string) Role {
	switch s {
	case "admin":
		return RoleAdmin
	case "supervisor":
		return RoleSupervisor
	default:
		return RoleOperator
	}
}
