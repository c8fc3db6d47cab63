package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aussiebroadwan/bartab-security/internal/auth/store"
	"github.com/aussiebroadwan/bartab-security/pkg/jwtx"
	"github.com/aussiebroadwan/bartab-security/pkg/slogx"
)

// minBlacklistTTL keeps an entry alive for at least one second so a token at
// the edge of expiry cannot slip through between revoke and expiry.
const minBlacklistTTL = time.Second

// RevocationCoordinator blacklists token ids for as long as the tokens could
// otherwise still be used.
type RevocationCoordinator struct {
	Codec     *jwtx.Codec
	Blacklist store.Blacklist

	// FallbackTTL bounds the blacklist entry of a token whose signature or
	// shape could not be verified but whose jti could still be read.
	FallbackTTL time.Duration
	Now         func() time.Time
}

// Revoke blacklists the access token and, when given, the refresh token.
// Repeating a revocation has no further effect.
func (r *RevocationCoordinator) Revoke(ctx context.Context, accessToken, refreshToken string) error {
	return r.RevokeOwned(ctx, "", accessToken, refreshToken)
}

// RevokeOwned is Revoke on behalf of one user. A token that does not decode
// is only blacklisted by its peeked jti when its uid claim names owner, so a
// user cannot revoke other people's tokens with a forged one. An empty owner
// disables the check.
func (r *RevocationCoordinator) RevokeOwned(ctx context.Context, owner, accessToken, refreshToken string) error {
	for _, raw := range []string{accessToken, refreshToken} {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		if err := r.revokeRaw(ctx, raw, owner); err != nil {
			return err
		}
	}
	return nil
}

// RevokeClaims blacklists already verified claims until their expiry. Expired
// claims need no entry.
func (r *RevocationCoordinator) RevokeClaims(ctx context.Context, c jwtx.Claims) error {
	remaining := c.Remaining(clock(r.Now))
	if remaining <= 0 {
		return nil
	}
	return r.add(ctx, c.ID, remaining)
}

func (r *RevocationCoordinator) revokeRaw(ctx context.Context, raw, owner string) error {
	claims, err := r.Codec.Decode(raw)
	if err == nil {
		return r.RevokeClaims(ctx, claims)
	}

	peeked, ok := jwtx.PeekClaims(raw)
	if !ok || peeked.ID == "" {
		slogx.FromContext(ctx).Debug("revoke: token carries no readable jti", "error", err)
		return nil
	}
	if owner != "" && peeked.UserID != owner {
		slogx.FromContext(ctx).Warn("revoke: skipping unverified token of another user",
			"owner", owner,
			"uid", peeked.UserID,
		)
		return nil
	}

	ttl := r.FallbackTTL
	if ttl <= 0 {
		ttl = jwtx.DefaultRefreshTokenTTL
	}
	return r.add(ctx, peeked.ID, ttl)
}

func (r *RevocationCoordinator) add(ctx context.Context, jti string, ttl time.Duration) error {
	if err := r.Blacklist.Add(ctx, jti, max(ttl, minBlacklistTTL)); err != nil {
		return fmt.Errorf("%w: blacklist add: %v", ErrUnavailable, err)
	}
	slogx.FromContext(ctx).Debug("token revoked", "jti", jti, "ttl", ttl)
	return nil
}
