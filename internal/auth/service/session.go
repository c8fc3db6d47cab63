package service

import (
	"context"
	"errors"

	"github.com/aussiebroadwan/bartab-security/internal/auth/domain"
	"github.com/aussiebroadwan/bartab-security/pkg/jwtx"
	"github.com/aussiebroadwan/bartab-security/pkg/slogx"
)

// SessionService composes the token components behind the public session
// operations and records each of them in the audit trail.
type SessionService struct {
	Authenticator *CredentialAuthenticator
	Issuer        *SessionIssuer
	Rotator       *RefreshRotator
	Revoker       *RevocationCoordinator
	Audit         *Auditor
}

func (s *SessionService) SignIn(
	ctx context.Context,
	username, password, deviceID string,
	client domain.ClientInfo,
) (domain.TokenPair, domain.Identity, error) {
	l := slogx.FromContext(ctx)

	id, err := s.Authenticator.Authenticate(ctx, username, password)
	if err != nil {
		if !errors.Is(err, ErrUnavailable) {
			s.Audit.Record(ctx, domain.AuditEvent{
				Type:          domain.AuditSignInFailed,
				Username:      username,
				FailureReason: err.Error(),
			}, client)
		}
		l.Info("sign-in failed", "username", username, "error", err)
		return domain.TokenPair{}, domain.Identity{}, err
	}

	pair, err := s.Issuer.Issue(ctx, id, deviceID)
	if err != nil {
		return domain.TokenPair{}, domain.Identity{}, err
	}

	s.Audit.Record(ctx, domain.AuditEvent{
		Type:     domain.AuditSignInSuccess,
		UserID:   id.UserID,
		Username: id.Username,
		Email:    id.Email,
		Success:  true,
	}, client)
	l.Info("sign-in succeeded", "user_id", id.UserID)

	return pair, id, nil
}

func (s *SessionService) Refresh(
	ctx context.Context,
	refreshToken, deviceID string,
	client domain.ClientInfo,
) (domain.TokenPair, error) {
	pair, id, err := s.Rotator.Rotate(ctx, refreshToken, deviceID)
	if err != nil {
		return domain.TokenPair{}, err
	}

	s.Audit.Record(ctx, domain.AuditEvent{
		Type:     domain.AuditTokenRefresh,
		UserID:   id.UserID,
		Username: id.Username,
		Success:  true,
	}, client)
	return pair, nil
}

// SignOut revokes the caller's access token and optionally its refresh token.
// A refresh token issued to another user is refused.
func (s *SessionService) SignOut(
	ctx context.Context,
	caller jwtx.Claims,
	accessToken, refreshToken string,
	client domain.ClientInfo,
) error {
	if refreshToken != "" {
		if rc, err := s.Revoker.Codec.Decode(refreshToken); err == nil && rc.UserID != caller.UserID {
			return errors.Join(ErrInvalidRequest, errors.New("refresh token belongs to another user"))
		}
	}

	if err := s.Revoker.RevokeOwned(ctx, caller.UserID, accessToken, refreshToken); err != nil {
		return err
	}

	s.Audit.Record(ctx, domain.AuditEvent{
		Type:     domain.AuditSignOut,
		UserID:   caller.UserID,
		Username: caller.Username,
		Success:  true,
	}, client)
	return nil
}

// RevokeTokens is the administrative revocation of arbitrary tokens.
func (s *SessionService) RevokeTokens(
	ctx context.Context,
	admin jwtx.Claims,
	accessToken, refreshToken string,
	client domain.ClientInfo,
) error {
	if accessToken == "" && refreshToken == "" {
		return errors.Join(ErrInvalidRequest, errors.New("no token given"))
	}

	if err := s.Revoker.Revoke(ctx, accessToken, refreshToken); err != nil {
		return err
	}

	s.Audit.Record(ctx, domain.AuditEvent{
		Type:     domain.AuditTokenRevoked,
		UserID:   admin.UserID,
		Username: admin.Username,
		Success:  true,
	}, client)
	slogx.FromContext(ctx).Info("tokens revoked by administrator", "admin_id", admin.UserID)
	return nil
}
