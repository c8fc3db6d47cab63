package service

import (
	"context"
	"fmt"
	"time"

	"github.com/aussiebroadwan/bartab-security/internal/auth/domain"
	"github.com/aussiebroadwan/bartab-security/internal/auth/store"
	"github.com/aussiebroadwan/bartab-security/pkg/jwtx"
	"github.com/aussiebroadwan/bartab-security/pkg/slogx"
)

// ReasonUnavailable is the Invalid reason used when the blacklist could not
// be consulted.
const ReasonUnavailable = "validation unavailable"

// ValidationEngine decides whether a raw token is currently trusted.
// It is read-only and safe for concurrent use.
type ValidationEngine struct {
	Codec     *jwtx.Codec
	Blacklist store.Blacklist
	Now       func() time.Time
}

// Validate runs decode, then expiry, then blacklist membership, stopping at
// the first failure. A blacklist error never yields Valid.
func (e *ValidationEngine) Validate(ctx context.Context, raw string) domain.ValidationResult {
	claims, err := e.Codec.Decode(raw)
	if err != nil {
		return domain.Invalid(err.Error())
	}

	if claims.IsExpired(clock(e.Now)) {
		return domain.Expired()
	}

	revoked, err := e.Blacklist.IsMember(ctx, claims.ID)
	if err != nil {
		slogx.FromContext(ctx).Error("blacklist lookup failed",
			"jti", claims.ID,
			"error", err,
		)
		return domain.Invalid(ReasonUnavailable)
	}
	if revoked {
		return domain.Revoked()
	}

	return domain.Valid(claims)
}

// ValidateAccess accepts only valid access tokens. It backs the bearer
// authentication middleware.
func (e *ValidationEngine) ValidateAccess(ctx context.Context, raw string) (jwtx.Claims, error) {
	res := e.Validate(ctx, raw)
	if err := ResultError(res); err != nil {
		return jwtx.Claims{}, err
	}
	if res.Claims.Type != jwtx.TokenTypeAccess {
		return jwtx.Claims{}, fmt.Errorf("%w: %s token used as access token", ErrMalformed, res.Claims.Type)
	}
	return res.Claims, nil
}

// ResultError maps a non-valid result to its sentinel error, nil for Valid.
func ResultError(res domain.ValidationResult) error {
	switch res.Status {
	case domain.ValidationValid:
		return nil
	case domain.ValidationExpired:
		return ErrExpired
	case domain.ValidationRevoked:
		return ErrRevoked
	}
	if res.Reason == ReasonUnavailable {
		return ErrUnavailable
	}
	return fmt.Errorf("%w: %s", ErrMalformed, res.Reason)
}
