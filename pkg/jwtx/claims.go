package jwtx

import (
	"errors"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Default token TTL constants. Services normally override these from config.
const (
	// DefaultAccessTokenTTL is the default lifetime for access tokens.
	DefaultAccessTokenTTL = 15 * time.Minute

	// DefaultRefreshTokenTTL is the default lifetime for refresh tokens.
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour

	// MinJTILength is the shortest jti we will trust.
	MinJTILength = 16
)

// TokenType separates access tokens from refresh tokens so neither can be
// replayed in place of the other.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

var (
	ErrIssuer       = errors.New("jwtx: issuer mismatch")
	ErrInvalidClaim = errors.New("jwtx: invalid claims")
)

// Claims is the payload of both access and refresh tokens. Subject carries the
// username; UserID is the stable directory identifier.
type Claims struct {
	jwt.RegisteredClaims

	UserID   string    `json:"uid"`
	Username string    `json:"username,omitempty"`
	Email    string    `json:"email,omitempty"`
	Roles    []string  `json:"roles,omitempty"`
	DeviceID string    `json:"device_id,omitempty"` // refresh tokens only
	Type     TokenType `json:"typ"`
}

// NewAccessClaims builds short-lived claims for an access token. Access
// tokens never carry a device id.
func NewAccessClaims(
	userID, username, email string,
	roles []string,
	issuer string,
	ttl time.Duration,
	now time.Time,
) Claims {
	return Claims{
		RegisteredClaims: registered(username, issuer, ttl, now),
		UserID:           userID,
		Username:         username,
		Email:            email,
		Roles:            slices.Clone(roles),
		Type:             TokenTypeAccess,
	}
}

// NewRefreshClaims builds long-lived claims for a refresh token bound to a
// device. Roles are left out on purpose, they are re-read on rotation.
func NewRefreshClaims(
	userID, username, deviceID string,
	issuer string,
	ttl time.Duration,
	now time.Time,
) Claims {
	return Claims{
		RegisteredClaims: registered(username, issuer, ttl, now),
		UserID:           userID,
		Username:         username,
		DeviceID:         deviceID,
		Type:             TokenTypeRefresh,
	}
}

func registered(subject, issuer string, ttl time.Duration, now time.Time) jwt.RegisteredClaims {
	now = now.UTC()
	return jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		ID:        NewJTI(),
	}
}

// NewJTI returns a random (version 4) UUID for the "jti" claim.
func NewJTI() string {
	return uuid.NewString()
}

// ValidateIssuer checks if the issuer matches expected value.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected == "" {
		return nil // nothing to enforce
	}

	if c.Issuer != expected {
		return ErrIssuer
	}

	return nil
}

// ExpiresAtTime returns exp as a time.Time, zero when absent.
func (c *Claims) ExpiresAtTime() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// IsExpired reports whether the token is past its exp at the given instant.
func (c *Claims) IsExpired(now time.Time) bool {
	return !now.Before(c.ExpiresAtTime())
}

// Remaining is how long the token stays valid after now, never negative.
func (c *Claims) Remaining(now time.Time) time.Duration {
	d := c.ExpiresAtTime().Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// HasRole reports whether the claims carry the given role.
func (c *Claims) HasRole(role string) bool {
	return slices.Contains(c.Roles, role)
}

// validateShape enforces the fields every trust decision depends on.
func (c *Claims) validateShape() error {
	if len(c.ID) < MinJTILength {
		return ErrInvalidClaim
	}
	if c.ExpiresAt == nil || c.IssuedAt == nil {
		return ErrInvalidClaim
	}
	if !c.ExpiresAt.After(c.IssuedAt.Time) {
		return ErrInvalidClaim
	}
	if c.Type != TokenTypeAccess && c.Type != TokenTypeRefresh {
		return ErrInvalidClaim
	}
	return nil
}
