package authsdk

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"
)

// refreshBuffer refreshes the access token this long before it expires.
const refreshBuffer = 30 * time.Second

// Session represents an authenticated session with automatic token refresh.
// Sessions are safe for concurrent use.
type Session struct {
	client   *SDKClient
	deviceID string

	mu           sync.RWMutex
	accessToken  string
	refreshToken string
	expiresAt    time.Time
}

func newSession(client *SDKClient, deviceID string, tokenResp *TokenResponse) *Session {
	return &Session{
		client:       client,
		deviceID:     deviceID,
		accessToken:  tokenResp.AccessToken,
		refreshToken: tokenResp.RefreshToken,
		expiresAt:    expiryWithBuffer(tokenResp.ExpiresIn),
	}
}

func expiryWithBuffer(expiresIn int64) time.Time {
	return time.Now().Add(time.Duration(expiresIn)*time.Second - refreshBuffer)
}

// getValidToken returns a valid access token, automatically refreshing if expired.
func (s *Session) getValidToken(ctx context.Context) (string, error) {
	s.mu.RLock()
	if time.Now().Before(s.expiresAt) {
		token := s.accessToken
		s.mu.RUnlock()
		return token, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	// Another goroutine may have refreshed while we waited for the lock.
	if time.Now().Before(s.expiresAt) {
		return s.accessToken, nil
	}

	if s.refreshToken == "" {
		return "", errors.New("access token expired and no refresh token available")
	}

	tokenResp, err := s.client.Refresh(ctx, RefreshRequest{
		RefreshToken: s.refreshToken,
		DeviceID:     s.deviceID,
	})
	if err != nil {
		return "", fmt.Errorf("failed to refresh token: %w", err)
	}

	s.accessToken = tokenResp.AccessToken
	s.refreshToken = tokenResp.RefreshToken
	s.expiresAt = expiryWithBuffer(tokenResp.ExpiresIn)

	return s.accessToken, nil
}

// SignOut revokes both tokens of this session.
func (s *Session) SignOut(ctx context.Context) error {
	// Refresh first so the refresh token sent below is the current one.
	if _, err := s.getValidToken(ctx); err != nil {
		return err
	}

	resp, err := s.doAuthJSON(ctx, http.MethodPost, "/v1/auth/sign-out", SignOutRequest{
		RefreshToken: s.RefreshToken(),
	})
	if err != nil {
		return err
	}
	if err := checkStatus(resp, http.StatusNoContent); err != nil {
		return err
	}

	s.mu.Lock()
	s.accessToken, s.refreshToken = "", ""
	s.expiresAt = time.Time{}
	s.mu.Unlock()
	return nil
}

// UpdatePassword changes the password of the signed-in user.
func (s *Session) UpdatePassword(ctx context.Context, currentPassword, newPassword string) error {
	resp, err := s.doAuthJSON(ctx, http.MethodPut, "/v1/password", UpdatePasswordRequest{
		CurrentPassword: currentPassword,
		NewPassword:     newPassword,
	})
	if err != nil {
		return err
	}
	return checkStatus(resp, http.StatusNoContent)
}

// RevokeTokens revokes arbitrary tokens. Requires the ADMIN role.
func (s *Session) RevokeTokens(ctx context.Context, req RevokeRequest) error {
	resp, err := s.doAuthJSON(ctx, http.MethodPost, "/v1/admin/revoke", req)
	if err != nil {
		return err
	}
	return checkStatus(resp, http.StatusNoContent)
}

// AuditHistory returns the newest audit events of a user, at most limit of
// them (0 means the server default). Requires the ADMIN role.
func (s *Session) AuditHistory(ctx context.Context, userID string, limit int) ([]AuditEvent, error) {
	path := "/v1/admin/audit/" + url.PathEscape(userID)
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}

	resp, err := s.doAuthJSON(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var out AuditHistoryResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return out.Events, nil
}

// AccessToken returns the current access token without checking expiration.
func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

// RefreshToken returns the current refresh token.
func (s *Session) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshToken
}

// DeviceID returns the device the refresh token is bound to.
func (s *Session) DeviceID() string { return s.deviceID }
