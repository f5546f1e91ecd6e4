package domain

import (
	"strings"
	"time"
)

// UserRole distinguishes submitters from administrators.
type UserRole string

const (
	UserRoleUser  UserRole = "user"
	UserRoleAdmin UserRole = "admin"
)

// UserRoles lists every role.
var UserRoles = []UserRole{UserRoleUser, UserRoleAdmin}

// Valid reports membership in the role enumeration.
func (r UserRole) Valid() bool {
	return r == UserRoleUser || r == UserRoleAdmin
}

// ParseUserRole converts a raw identifier into a role; empty defaults to user.
func ParseUserRole(raw string) (UserRole, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return UserRoleUser, nil
	}
	role := UserRole(raw)
	if !role.Valid() {
		return "", NewValidationError("role", "unknown role "+raw)
	}
	return role, nil
}

// User is an account that submits or triages tickets.
type User struct {
	ID           string
	Name         string
	Email        string
	Role         UserRole
	PasswordHash string
	CreatedAt    time.Time
}

// IsAdmin reports whether the user may triage tickets.
func (u User) IsAdmin() bool {
	return u.Role == UserRoleAdmin
}
