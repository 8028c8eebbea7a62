package models

import "time"

type UserRole string

const (
	RoleViewer UserRole = "viewer"
	RoleAdmin  UserRole = "admin"
	// RoleMaster may hard-delete tournaments, which cascades to
	// participants and audit entries.
	RoleMaster UserRole = "master"
)

// User is an operator account. Roles live in the store, not in source.
type User struct {
	ID           int       `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	Nickname     string    `json:"nickname" db:"nickname"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Role         UserRole  `json:"role" db:"role"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// CanAdmin reports whether the role may perform admin mutations.
func (r UserRole) CanAdmin() bool {
	return r == RoleAdmin || r == RoleMaster
}
