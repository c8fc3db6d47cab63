package authsdk

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// SDKClient is a client for the bartab security service.
// It provides access to unauthenticated operations and can create authenticated Sessions.
type SDKClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewSDKClient creates a new client for the service at baseURL.
func NewSDKClient(baseURL string) *SDKClient {
	return &SDKClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// AuthenticateWithPassword signs in and wraps the resulting tokens in a
// Session bound to deviceID.
func (c *SDKClient) AuthenticateWithPassword(
	ctx context.Context,
	username, password, deviceID string,
) (*Session, error) {
	tokenResp, err := c.SignIn(ctx, SignInRequest{
		Username: username,
		Password: password,
		DeviceID: deviceID,
	})
	if err != nil {
		return nil, err
	}

	return newSession(c, deviceID, tokenResp), nil
}

// AuthenticateWithRefreshToken creates an authenticated session from an existing refresh token.
func (c *SDKClient) AuthenticateWithRefreshToken(
	ctx context.Context,
	refreshToken, deviceID string,
) (*Session, error) {
	tokenResp, err := c.Refresh(ctx, RefreshRequest{
		RefreshToken: refreshToken,
		DeviceID:     deviceID,
	})
	if err != nil {
		return nil, err
	}

	return newSession(c, deviceID, tokenResp), nil
}

// NewSessionFromTokens creates an authenticated session from existing tokens.
// The session will still perform auto-refresh when the access token expires.
func (c *SDKClient) NewSessionFromTokens(deviceID, accessToken, refreshToken string, expiresIn int64) *Session {
	return &Session{
		client:       c,
		deviceID:     deviceID,
		accessToken:  accessToken,
		refreshToken: refreshToken,
		expiresAt:    expiryWithBuffer(expiresIn),
	}
}
