package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// AudienceVerifyEmail marks tokens carrying a pending registration.
	AudienceVerifyEmail = "yapyap:verify-email"
	// AudienceSession marks session cookies.
	AudienceSession = "yapyap:session"
)

// Claims is implemented by every claim set the TokenCodec can carry.
type Claims interface {
	jwt.Claims
	Registered() *jwt.RegisteredClaims
	TokenAudience() string
}

// PendingClaims carries a PendingRegistration inside a verification token.
type PendingClaims struct {
	jwt.RegisteredClaims
	FullName     string `json:"fullName"`
	Email        string `json:"email"`
	PasswordHash string `json:"password"`
}

func (c *PendingClaims) Registered() *jwt.RegisteredClaims { return &c.RegisteredClaims }

func (c *PendingClaims) TokenAudience() string { return AudienceVerifyEmail }

// PendingRegistration returns the registration the token was minted for.
func (c *PendingClaims) PendingRegistration() PendingRegistration {
	pending := PendingRegistration{
		FullName:     c.FullName,
		Email:        c.Email,
		PasswordHash: c.PasswordHash,
	}
	if c.IssuedAt != nil {
		pending.IssuedAt = c.IssuedAt.Time
	}
	if c.ExpiresAt != nil {
		pending.ExpiresAt = c.ExpiresAt.Time
	}
	return pending
}

// NewPendingClaims builds the claim set for a registration.
func NewPendingClaims(p PendingRegistration) *PendingClaims {
	return &PendingClaims{
		FullName:     p.FullName,
		Email:        p.Email,
		PasswordHash: p.PasswordHash,
	}
}

// SessionClaims identifies an authenticated Account.
type SessionClaims struct {
	jwt.RegisteredClaims
	AccountID string `json:"userId"`
}

func (c *SessionClaims) Registered() *jwt.RegisteredClaims { return &c.RegisteredClaims }

func (c *SessionClaims) TokenAudience() string { return AudienceSession }

// Expiry returns the session expiry, zero when unset.
func (c *SessionClaims) Expiry() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}
