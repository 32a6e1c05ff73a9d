// Package domain contains the core business entities and interfaces.
package domain

import (
	"context"
	"time"
)

// Provider identifies the OAuth provider a user registered with.
type Provider string

// Supported OAuth providers.
const (
	ProviderGoogle Provider = "google"
	ProviderGitHub Provider = "github"
)

// Role controls what a user may do on the site.
type Role string

// Role hierarchy: admin > editor > contributor.
const (
	RoleContributor Role = "contributor"
	RoleEditor      Role = "editor"
	RoleAdmin       Role = "admin"
)

// DefaultRole is assigned to newly registered users.
const DefaultRole = RoleContributor

// User represents a registered community member.
type User struct {
	ID            string
	Email         string
	Name          string
	Provider      Provider
	Role          Role
	Blocked       bool
	EmailVerified bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ValidRole reports whether s names a known role.
func ValidRole(s string) bool {
	switch Role(s) {
	case RoleContributor, RoleEditor, RoleAdmin:
		return true
	}
	return false
}

// ValidProvider reports whether s names a supported OAuth provider.
func ValidProvider(s string) bool {
	switch Provider(s) {
	case ProviderGoogle, ProviderGitHub:
		return true
	}
	return false
}

// HasRole reports whether the user satisfies the required role under the
// admin > editor > contributor hierarchy.
func (u *User) HasRole(required Role) bool {
	if u.Role == RoleAdmin {
		return true
	}
	if u.Role == RoleEditor && required != RoleAdmin {
		return true
	}
	return u.Role == required
}

// UserRepository defines the port for user persistence operations.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Create(ctx context.Context, u *User) error
	SetEmailVerified(ctx context.Context, id string, verified bool) error
	SetBlocked(ctx context.Context, id string, blocked bool) error
	SetRole(ctx context.Context, id string, role Role) error
	List(ctx context.Context) ([]*User, error)
}
