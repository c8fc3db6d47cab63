package authsdk

import (
	"context"
	"net/http"
)

// RecoverPassword starts password recovery. The service answers the same way
// for known and unknown addresses.
func (c *SDKClient) RecoverPassword(ctx context.Context, email string) error {
	resp, err := c.doJSON(ctx, http.MethodPost, "/v1/password/recover", RecoverPasswordRequest{Email: email}, nil)
	if err != nil {
		return err
	}
	return checkStatus(resp, http.StatusAccepted)
}

// ResetPassword redeems a reset token.
func (c *SDKClient) ResetPassword(ctx context.Context, token, newPassword string) error {
	resp, err := c.doJSON(ctx, http.MethodPost, "/v1/password/reset", ResetPasswordRequest{
		Token:       token,
		NewPassword: newPassword,
	}, nil)
	if err != nil {
		return err
	}
	return checkStatus(resp, http.StatusNoContent)
}
