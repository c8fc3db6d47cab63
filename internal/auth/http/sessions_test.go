package http_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/aussiebroadwan/bartab-security/internal/auth/domain"
	"github.com/aussiebroadwan/bartab-security/pkg/authsdk"
	"github.com/stretchr/testify/require"
)

func TestSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newTestStack(t)
	alice := s.seedUser(t, "alice", "alice@example.com", alicePassword)

	session, err := s.client.AuthenticateWithPassword(ctx, "alice", alicePassword, "phone")
	require.NoError(t, err)

	t.Run("access token validates", func(t *testing.T) {
		res, err := s.client.Validate(ctx, session.AccessToken())
		require.NoError(t, err)
		require.True(t, res.Valid)
		require.Equal(t, "VALID", res.Status)
		require.Equal(t, "access", res.TokenType)
		require.Equal(t, alice.ID, res.UserID)
		require.Equal(t, "alice", res.Username)
		require.Equal(t, "alice@example.com", res.Email)
		require.Contains(t, res.Roles, domain.RoleUser)
		require.NotNil(t, res.ExpiresAt)
	})

	t.Run("refresh token carries the device", func(t *testing.T) {
		res, err := s.client.Validate(ctx, session.RefreshToken())
		require.NoError(t, err)
		require.True(t, res.Valid)
		require.Equal(t, "refresh", res.TokenType)
		require.Equal(t, "phone", res.DeviceID)
	})

	t.Run("refresh from another device is rejected", func(t *testing.T) {
		_, err := s.client.Refresh(ctx, authsdk.RefreshRequest{
			RefreshToken: session.RefreshToken(),
			DeviceID:     "laptop",
		})
		requireAPIError(t, err, http.StatusUnauthorized, authsdk.ErrorCodeInvalidGrant)
	})

	t.Run("access token cannot be used to refresh", func(t *testing.T) {
		_, err := s.client.Refresh(ctx, authsdk.RefreshRequest{
			RefreshToken: session.AccessToken(),
			DeviceID:     "phone",
		})
		requireAPIError(t, err, http.StatusUnauthorized, authsdk.ErrorCodeInvalidGrant)
	})

	t.Run("refresh issues a new pair", func(t *testing.T) {
		pair, err := s.client.Refresh(ctx, authsdk.RefreshRequest{
			RefreshToken: session.RefreshToken(),
			DeviceID:     "phone",
		})
		require.NoError(t, err)
		require.Equal(t, "Bearer", pair.TokenType)
		require.NotEqual(t, session.AccessToken(), pair.AccessToken)
		require.EqualValues(t, 900, pair.ExpiresIn)
	})

	t.Run("sign-out revokes both tokens", func(t *testing.T) {
		access, refresh := session.AccessToken(), session.RefreshToken()
		require.NoError(t, session.SignOut(ctx))
		require.Empty(t, session.AccessToken())

		for _, tok := range []string{access, refresh} {
			res, err := s.client.Validate(ctx, tok)
			require.NoError(t, err)
			require.False(t, res.Valid)
			require.Equal(t, "REVOKED", res.Status)
			require.Empty(t, res.UserID)
		}

		_, err := s.client.Refresh(ctx, authsdk.RefreshRequest{RefreshToken: refresh, DeviceID: "phone"})
		requireAPIError(t, err, http.StatusUnauthorized, authsdk.ErrorCodeInvalidGrant)
	})
}

func TestSignOutRefusesForeignRefreshToken(t *testing.T) {
	ctx := context.Background()
	s := newTestStack(t)
	s.seedUser(t, "alice", "alice@example.com", alicePassword)
	s.seedUser(t, "carol", "carol@example.com", alicePassword)

	alice, err := s.client.SignIn(ctx, authsdk.SignInRequest{Username: "alice", Password: alicePassword})
	require.NoError(t, err)
	carol, err := s.client.SignIn(ctx, authsdk.SignInRequest{Username: "carol", Password: alicePassword})
	require.NoError(t, err)

	session := s.client.NewSessionFromTokens("default", alice.AccessToken, carol.RefreshToken, alice.ExpiresIn)
	err = session.SignOut(ctx)
	requireAPIError(t, err, http.StatusBadRequest, authsdk.ErrorCodeInvalidRequest)

	res, err := s.client.Validate(ctx, carol.RefreshToken)
	require.NoError(t, err)
	require.True(t, res.Valid)
}

func TestSignInFailures(t *testing.T) {
	ctx := context.Background()
	s := newTestStack(t)
	s.seedUser(t, "alice", "alice@example.com", alicePassword)
	bob := s.seedUser(t, "bob", "bob@example.com", alicePassword)
	require.NoError(t, s.store.Users().SetEnabled(ctx, bob.ID, false))

	t.Run("wrong password", func(t *testing.T) {
		_, err := s.client.SignIn(ctx, authsdk.SignInRequest{Username: "alice", Password: "nope"})
		requireAPIError(t, err, http.StatusUnauthorized, authsdk.ErrorCodeInvalidCredentials)
	})

	t.Run("unknown user looks the same", func(t *testing.T) {
		_, err := s.client.SignIn(ctx, authsdk.SignInRequest{Username: "mallory", Password: "nope"})
		requireAPIError(t, err, http.StatusUnauthorized, authsdk.ErrorCodeInvalidCredentials)
	})

	t.Run("disabled account", func(t *testing.T) {
		_, err := s.client.SignIn(ctx, authsdk.SignInRequest{Username: "bob", Password: alicePassword})
		requireAPIError(t, err, http.StatusForbidden, authsdk.ErrorCodeAccountDisabled)
	})

	t.Run("missing fields", func(t *testing.T) {
		_, err := s.client.SignIn(ctx, authsdk.SignInRequest{Username: "alice"})
		requireAPIError(t, err, http.StatusBadRequest, authsdk.ErrorCodeInvalidRequest)
	})
}

func TestValidateStatuses(t *testing.T) {
	ctx := context.Background()
	s := newTestStack(t)
	s.seedUser(t, "alice", "alice@example.com", alicePassword)

	t.Run("garbage is invalid", func(t *testing.T) {
		res, err := s.client.Validate(ctx, "not-a-jwt")
		require.NoError(t, err)
		require.False(t, res.Valid)
		require.Equal(t, "INVALID", res.Status)
		require.NotEmpty(t, res.Reason)
	})

	t.Run("blacklist outage is unavailable", func(t *testing.T) {
		pair, err := s.client.SignIn(ctx, authsdk.SignInRequest{Username: "alice", Password: alicePassword})
		require.NoError(t, err)

		s.redis.Close()

		_, err = s.client.Validate(ctx, pair.AccessToken)
		requireAPIError(t, err, http.StatusServiceUnavailable, authsdk.ErrorCodeServiceUnavailable)

		// bearer endpoints fail closed without calling the token invalid
		session := s.client.NewSessionFromTokens("default", pair.AccessToken, pair.RefreshToken, pair.ExpiresIn)
		err = session.UpdatePassword(ctx, alicePassword, "Another#123")
		requireAPIError(t, err, http.StatusServiceUnavailable, authsdk.ErrorCodeServiceUnavailable)
	})
}

func TestAdminRevoke(t *testing.T) {
	ctx := context.Background()
	s := newTestStack(t)
	s.seedUser(t, "alice", "alice@example.com", alicePassword)
	s.seedUser(t, "root", "root@example.com", adminPassword, domain.RoleAdmin)

	alice, err := s.client.AuthenticateWithPassword(ctx, "alice", alicePassword, "")
	require.NoError(t, err)
	admin, err := s.client.AuthenticateWithPassword(ctx, "root", adminPassword, "")
	require.NoError(t, err)

	t.Run("requires the admin role", func(t *testing.T) {
		err := alice.RevokeTokens(ctx, authsdk.RevokeRequest{AccessToken: admin.AccessToken()})
		requireAPIError(t, err, http.StatusForbidden, "forbidden")
	})

	t.Run("requires at least one token", func(t *testing.T) {
		err := admin.RevokeTokens(ctx, authsdk.RevokeRequest{})
		requireAPIError(t, err, http.StatusBadRequest, authsdk.ErrorCodeInvalidRequest)
	})

	t.Run("revoked access token is refused", func(t *testing.T) {
		require.NoError(t, admin.RevokeTokens(ctx, authsdk.RevokeRequest{
			AccessToken:  alice.AccessToken(),
			RefreshToken: alice.RefreshToken(),
		}))

		res, err := s.client.Validate(ctx, alice.AccessToken())
		require.NoError(t, err)
		require.Equal(t, "REVOKED", res.Status)

		err = alice.UpdatePassword(ctx, alicePassword, "Another#123")
		requireAPIError(t, err, http.StatusUnauthorized, authsdk.ErrorCodeInvalidToken)
	})

	t.Run("refresh without a device uses the default", func(t *testing.T) {
		res, err := s.client.Validate(ctx, admin.RefreshToken())
		require.NoError(t, err)
		require.Equal(t, "default", res.DeviceID)
	})
}

func TestAdminAuditHistory(t *testing.T) {
	ctx := context.Background()
	s := newTestStack(t)
	alice := s.seedUser(t, "alice", "alice@example.com", alicePassword)
	s.seedUser(t, "root", "root@example.com", adminPassword, domain.RoleAdmin)

	session, err := s.client.AuthenticateWithPassword(ctx, "alice", alicePassword, "phone")
	require.NoError(t, err)
	_, err = s.client.AuthenticateWithRefreshToken(ctx, session.RefreshToken(), "phone")
	require.NoError(t, err)
	admin, err := s.client.AuthenticateWithPassword(ctx, "root", adminPassword, "")
	require.NoError(t, err)

	t.Run("requires the admin role", func(t *testing.T) {
		_, err := session.AuditHistory(ctx, alice.ID, 0)
		requireAPIError(t, err, http.StatusForbidden, "forbidden")
	})

	t.Run("lists the account's events", func(t *testing.T) {
		events, err := admin.AuditHistory(ctx, alice.ID, 0)
		require.NoError(t, err)
		require.Len(t, events, 2)

		var types []string
		for _, e := range events {
			types = append(types, e.Type)
			require.Equal(t, alice.ID, e.UserID)
			require.True(t, e.Success)
			require.NotEmpty(t, e.IPAddress)
			require.False(t, e.CreatedAt.IsZero())
		}
		require.ElementsMatch(t, []string{
			string(domain.AuditSignInSuccess),
			string(domain.AuditTokenRefresh),
		}, types)
	})

	t.Run("limit caps the page", func(t *testing.T) {
		events, err := admin.AuditHistory(ctx, alice.ID, 1)
		require.NoError(t, err)
		require.Len(t, events, 1)
	})

	t.Run("unknown account has no events", func(t *testing.T) {
		events, err := admin.AuditHistory(ctx, "01HZX00000000000000NOBODY0", 0)
		require.NoError(t, err)
		require.Empty(t, events)
	})
}
