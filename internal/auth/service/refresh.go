package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aussiebroadwan/bartab-security/internal/auth/domain"
	"github.com/aussiebroadwan/bartab-security/pkg/jwtx"
	"github.com/aussiebroadwan/bartab-security/pkg/slogx"
)

// RefreshRotator exchanges a refresh token for a new pair, re-reading the
// account so role and status changes take effect on the next rotation.
type RefreshRotator struct {
	Engine    *ValidationEngine
	Issuer    *SessionIssuer
	Directory Directory
	Revoker   *RevocationCoordinator

	// RevokePrevious blacklists the presented refresh token once the new
	// pair has been minted.
	RevokePrevious bool
}

// Rotate validates refreshToken and issues a new pair for the same device.
// A non-empty expectedDeviceID must match the device bound to the token.
func (r *RefreshRotator) Rotate(
	ctx context.Context,
	refreshToken, expectedDeviceID string,
) (domain.TokenPair, domain.Identity, error) {
	l := slogx.FromContext(ctx)

	res := r.Engine.Validate(ctx, refreshToken)
	if !res.IsValid() {
		err := ResultError(res)
		if errors.Is(err, ErrUnavailable) {
			return domain.TokenPair{}, domain.Identity{}, err
		}
		l.Info("refresh rejected", "status", res.Status, "reason", res.Reason)
		return domain.TokenPair{}, domain.Identity{}, fmt.Errorf("%w: %v", ErrInvalidRefreshRequest, err)
	}

	c := res.Claims
	if c.Type != jwtx.TokenTypeRefresh {
		return domain.TokenPair{}, domain.Identity{}, fmt.Errorf("%w: not a refresh token", ErrInvalidRefreshRequest)
	}
	if strings.TrimSpace(c.UserID) == "" || strings.TrimSpace(c.DeviceID) == "" {
		return domain.TokenPair{}, domain.Identity{}, fmt.Errorf("%w: token lacks user or device", ErrInvalidRefreshRequest)
	}
	if expected := strings.TrimSpace(expectedDeviceID); expected != "" && expected != c.DeviceID {
		l.Warn("refresh device mismatch", "user_id", c.UserID, "jti", c.ID)
		return domain.TokenPair{}, domain.Identity{}, fmt.Errorf("%w: device mismatch", ErrInvalidRefreshRequest)
	}

	id, err := r.Directory.Lookup(ctx, c.Username)
	if errors.Is(err, ErrUserNotFound) {
		return domain.TokenPair{}, domain.Identity{}, fmt.Errorf("%w: user no longer exists", ErrInvalidRefreshRequest)
	}
	if err != nil {
		return domain.TokenPair{}, domain.Identity{}, err
	}
	if id.UserID != c.UserID {
		return domain.TokenPair{}, domain.Identity{}, fmt.Errorf("%w: user id changed", ErrInvalidRefreshRequest)
	}
	if !id.Enabled {
		return domain.TokenPair{}, domain.Identity{}, &AccountDisabledError{Username: id.Username}
	}

	pair, err := r.Issuer.Issue(ctx, id, c.DeviceID)
	if err != nil {
		return domain.TokenPair{}, domain.Identity{}, err
	}

	if r.RevokePrevious && r.Revoker != nil {
		if err := r.Revoker.RevokeClaims(ctx, c); err != nil {
			return domain.TokenPair{}, domain.Identity{}, err
		}
	}

	return pair, id, nil
}
