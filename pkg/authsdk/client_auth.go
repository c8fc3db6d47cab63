package authsdk

import (
	"context"
	"net/http"
)

// SignIn exchanges credentials for a token pair.
func (c *SDKClient) SignIn(ctx context.Context, req SignInRequest) (*TokenResponse, error) {
	return c.requestTokens(ctx, "/v1/auth/sign-in", req)
}

// Refresh rotates a refresh token into a new pair.
func (c *SDKClient) Refresh(ctx context.Context, req RefreshRequest) (*TokenResponse, error) {
	return c.requestTokens(ctx, "/v1/auth/refresh", req)
}

// Validate asks the service whether token is currently trusted. A non-valid
// token is not an error; inspect the Status of the response.
func (c *SDKClient) Validate(ctx context.Context, token string) (*ValidateResponse, error) {
	resp, err := c.doJSON(ctx, http.MethodPost, "/v1/auth/validate", ValidateRequest{Token: token}, nil)
	if err != nil {
		return nil, err
	}

	var out ValidateResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *SDKClient) requestTokens(ctx context.Context, path string, payload any) (*TokenResponse, error) {
	resp, err := c.doJSON(ctx, http.MethodPost, path, payload, nil)
	if err != nil {
		return nil, err
	}

	var tokenResp TokenResponse
	if err := decodeJSON(resp, &tokenResp, http.StatusOK); err != nil {
		return nil, err
	}
	return &tokenResp, nil
}
