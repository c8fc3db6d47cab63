package domain_test

import (
	"testing"
	"time"

	"github.com/aussiebroadwan/bartab-security/internal/auth/domain"
	"github.com/aussiebroadwan/bartab-security/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func TestResetTokenEffectiveStatus(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name      string
		status    domain.ResetTokenStatus
		expiresAt time.Time
		want      domain.ResetTokenStatus
	}{
		{"pending in date", domain.ResetTokenPending, now.Add(time.Minute), domain.ResetTokenPending},
		{"pending overdue reads expired", domain.ResetTokenPending, now.Add(-time.Second), domain.ResetTokenExpired},
		{"pending at exact expiry reads expired", domain.ResetTokenPending, now, domain.ResetTokenExpired},
		{"used stays used", domain.ResetTokenUsed, now.Add(-time.Hour), domain.ResetTokenUsed},
		{"cancelled stays cancelled", domain.ResetTokenCancelled, now.Add(-time.Hour), domain.ResetTokenCancelled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok := domain.ResetToken{Status: tt.status, ExpiresAt: tt.expiresAt}
			require.Equal(t, tt.want, tok.EffectiveStatus(now))
		})
	}
}

func TestUserIdentity(t *testing.T) {
	u := domain.User{ID: "u-1", Username: "alice", Roles: []string{domain.RoleUser}, Enabled: true}
	id := u.Identity()

	require.Equal(t, "alice", id.DisplayName)
	require.Equal(t, []string{domain.RoleUser}, id.Roles)

	// The snapshot must not alias the row's role slice.
	u.Roles[0] = domain.RoleAdmin
	require.Equal(t, []string{domain.RoleUser}, id.Roles)
}

func TestValidationResult(t *testing.T) {
	require.True(t, domain.Valid(jwtx.Claims{UserID: "u-1"}).IsValid())
	require.False(t, domain.Expired().IsValid())
	require.False(t, domain.Revoked().IsValid())

	r := domain.Invalid("bad signature")
	require.False(t, r.IsValid())
	require.Equal(t, "bad signature", r.Reason)
}
