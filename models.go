package auth

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// PendingRegistration is signup data that only ever lives inside a signed
// verification token. It is never persisted.
type PendingRegistration struct {
	FullName     string
	Email        string
	PasswordHash string
	IssuedAt     time.Time
	ExpiresAt    time.Time
}

// Account is the durable, verified user record.
type Account struct {
	bun.BaseModel `bun:"table:accounts,alias:acc"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id"`
	FullName      string     `bun:"full_name,notnull" json:"fullName"`
	Email         string     `bun:"email,notnull,unique" json:"email"`
	PasswordHash  string     `bun:"password_hash,notnull" json:"-"`
	IsVerified    bool       `bun:"is_verified,notnull" json:"isVerified"`
	AvatarRef     *string    `bun:"avatar_ref" json:"avatarRef,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"createdAt,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updatedAt,omitempty"`
}

// Profile is the public projection of an Account.
type Profile struct {
	ID        string `json:"id"`
	FullName  string `json:"fullName"`
	Email     string `json:"email"`
	AvatarRef string `json:"avatarRef"`
}

// Profile returns the public projection. The password hash never leaves the service.
func (a *Account) Profile() Profile {
	p := Profile{
		ID:       a.ID.String(),
		FullName: a.FullName,
		Email:    a.Email,
	}
	if a.AvatarRef != nil {
		p.AvatarRef = *a.AvatarRef
	}
	return p
}

// NewVerifiedAccount builds the account created when a registration is redeemed.
func NewVerifiedAccount(p PendingRegistration) *Account {
	return &Account{
		FullName:     p.FullName,
		Email:        p.Email,
		PasswordHash: p.PasswordHash,
		IsVerified:   true,
	}
}
