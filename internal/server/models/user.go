package models

import (
	"strings"
	"time"
)

// RoleUser is the base role every account carries implicitly.
const RoleUser = "ROLE_USER"

// User is an account record backed by the credential store.
//
// Exactly one credential source is authoritative depending on the configured
// auth mode: PasswordHash (db mode) or the directory reference triple
// DirectoryID/DirectoryDN/SamAccount (directory mode). A directory-backed
// user may still carry a legacy PasswordHash; it is never consulted while
// directory mode is active.
type User struct {
	ID            string
	Login         string
	PasswordHash  *string
	FirstName     *string
	LastName      *string
	Email         *string
	Blocked       bool
	BlockedUntil  *time.Time
	StateID       int64
	Roles         []string
	TOTPSecret    *string
	TOTPConfirmed bool
	SamAccount    *string
	DirectoryID   *int64
	DirectoryDN   *string
	CreatedAt     time.Time
}

// GetRoles returns the user's roles, always including RoleUser.
func (u *User) GetRoles() []string {
	roles := make([]string, 0, len(u.Roles)+1)
	seen := false
	for _, r := range u.Roles {
		if r == RoleUser {
			seen = true
		}
		roles = append(roles, r)
	}
	if !seen {
		roles = append(roles, RoleUser)
	}
	return roles
}

// NormalizeLogin trims surrounding whitespace and lowercases a submitted
// login. Every path that touches a login goes through this.
func NormalizeLogin(login string) string {
	return strings.ToLower(strings.TrimSpace(login))
}
