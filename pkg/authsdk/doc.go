/*
Package authsdk provides a client SDK for the bartab security service.

# SDKClient vs Session

The package is organized around two main types:

  - SDKClient: unauthenticated operations (sign-in, refresh, validate,
    password recovery and reset, health, bootstrap)
  - Session: authenticated operations with automatic token refresh

	client := authsdk.NewSDKClient("https://auth.example.com")

	session, err := client.AuthenticateWithPassword(ctx, "alice", "secret", "laptop")
	if err != nil {
		var apiErr *authsdk.APIError
		if errors.As(err, &apiErr) && apiErr.Code == authsdk.ErrorCodeAccountDisabled {
			// tell the user
		}
		return err
	}

	// Change the password of the signed-in user
	err = session.UpdatePassword(ctx, "secret", "N3w#secret")

	// Revoke both tokens
	err = session.SignOut(ctx)

# Automatic Token Refresh

Session methods call getValidToken internally, which refreshes the access
token 30 seconds before it expires. The refresh is sent with the session's
device id, so a session created for "laptop" cannot be continued as "phone".

# Validating Tokens

Resource servers that cannot verify signatures locally can ask the service:

	res, err := client.Validate(ctx, rawToken)
	if err == nil && res.Valid {
		// res.UserID, res.Roles ...
	}

Expired, revoked and malformed tokens are not errors; they are reported
through res.Status.

# Password Recovery

	_ = client.RecoverPassword(ctx, "alice@example.com") // always 202
	err := client.ResetPassword(ctx, tokenFromEmail, "N3w#secret")

Every failed reset reports ErrorCodeInvalidResetToken with the same message,
whatever the cause.

# Errors

Every non-2xx response is returned as *APIError carrying the HTTP status,
a machine readable Code and a Description.
*/
package authsdk
