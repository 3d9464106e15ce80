// Package models holds the typed records that cross the storage boundary.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Account is a stored user account, including its password hash. It never
// leaves the server packages; callers outside get a PublicAccount.
type Account struct {
	ID           uuid.UUID
	UserName     string
	PasswordHash string
	Roles        []string
	UpdatedAt    time.Time
	DeletedAt    *time.Time
}

// IsDeleted reports whether the account is soft-deleted.
func (a *Account) IsDeleted() bool {
	return a.DeletedAt != nil
}

// Public returns the account without its password hash.
func (a *Account) Public() *PublicAccount {
	p := &PublicAccount{
		ID:        a.ID,
		UserName:  a.UserName,
		Roles:     make([]string, len(a.Roles)),
		UpdatedAt: a.UpdatedAt,
	}
	copy(p.Roles, a.Roles)
	if a.DeletedAt != nil {
		t := *a.DeletedAt
		p.DeletedAt = &t
	}
	return p
}

// PublicAccount is an Account with the credential material stripped. It has
// no hash field at all, so it cannot leak one.
type PublicAccount struct {
	ID        uuid.UUID  `json:"id"`
	UserName  string     `json:"username"`
	Roles     []string   `json:"roles"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at"`
}

// IsDeleted reports whether the account is soft-deleted.
func (p *PublicAccount) IsDeleted() bool {
	return p.DeletedAt != nil
}

// HasRole reports whether role is among the account's tags.
func (p *PublicAccount) HasRole(role string) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}
