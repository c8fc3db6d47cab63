package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aussiebroadwan/bartab-security/internal/auth/domain"
	"github.com/aussiebroadwan/bartab-security/pkg/jwtx"
)

// DefaultDeviceID is bound to refresh tokens when the client names no device.
const DefaultDeviceID = "default"

// SessionIssuer mints token pairs. It is the only place jtis are created.
type SessionIssuer struct {
	Codec      *jwtx.Codec
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Now        func() time.Time
}

// Issue signs a fresh access token and a refresh token bound to deviceID.
func (s *SessionIssuer) Issue(
	ctx context.Context,
	id domain.Identity,
	deviceID string,
) (domain.TokenPair, error) {
	if id.UserID == "" || id.Username == "" {
		return domain.TokenPair{}, fmt.Errorf("%w: identity without user id", ErrInvalidRequest)
	}

	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		deviceID = DefaultDeviceID
	}

	now := clock(s.Now)
	accessTTL, refreshTTL := s.ttls()

	access, err := s.Codec.Encode(jwtx.NewAccessClaims(
		id.UserID, id.Username, id.Email, id.Roles,
		s.Codec.Issuer(), accessTTL, now,
	))
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("sign access token: %w", err)
	}

	refresh, err := s.Codec.Encode(jwtx.NewRefreshClaims(
		id.UserID, id.Username, deviceID,
		s.Codec.Issuer(), refreshTTL, now,
	))
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("sign refresh token: %w", err)
	}

	return domain.TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		TokenType:        domain.TokenTypeBearer,
		ExpiresIn:        int64(accessTTL / time.Second),
		RefreshExpiresIn: int64(refreshTTL / time.Second),
	}, nil
}

func (s *SessionIssuer) ttls() (time.Duration, time.Duration) {
	access, refresh := s.AccessTTL, s.RefreshTTL
	if access <= 0 {
		access = jwtx.DefaultAccessTokenTTL
	}
	if refresh <= 0 {
		refresh = jwtx.DefaultRefreshTokenTTL
	}
	return access, refresh
}
