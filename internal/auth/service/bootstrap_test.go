package service_test

import (
	"context"
	"testing"

	"github.com/aussiebroadwan/bartab-security/internal/auth/directory"
	"github.com/aussiebroadwan/bartab-security/internal/auth/domain"
	"github.com/aussiebroadwan/bartab-security/internal/auth/service"
	"github.com/stretchr/testify/require"
)

func TestBootstrap(t *testing.T) {
	ctx := context.Background()
	st := newSQLiteStore(t)
	svc := &service.BootstrapService{Store: st, Token: "boot-token", Policy: service.DefaultPasswordPolicy()}

	done, err := svc.IsBootstrapped(ctx)
	require.NoError(t, err)
	require.False(t, done)

	_, err = svc.Bootstrap(ctx, "wrong", domain.BootstrapData{AdminUsername: "root"})
	require.ErrorIs(t, err, service.ErrBootstrapUnauthorized)

	_, err = svc.Bootstrap(ctx, "boot-token", domain.BootstrapData{AdminUsername: "root", AdminPassword: "weak"})
	require.ErrorIs(t, err, service.ErrPasswordPolicy)

	res, err := svc.Bootstrap(ctx, "boot-token", domain.BootstrapData{AdminUsername: "root", AdminEmail: "root@example.com"})
	require.NoError(t, err)
	require.Equal(t, "root", res.Username)
	require.Len(t, res.Password, 16)

	id, err := directory.New(st.Users()).Verify(ctx, "root", res.Password)
	require.NoError(t, err)
	require.Contains(t, id.Roles, domain.RoleAdmin)
	require.True(t, id.Enabled)

	_, err = svc.Bootstrap(ctx, "boot-token", domain.BootstrapData{AdminUsername: "again"})
	require.ErrorIs(t, err, service.ErrBootstrapAlready)
}

func TestBootstrapDisabledWithoutToken(t *testing.T) {
	st := newSQLiteStore(t)
	svc := &service.BootstrapService{Store: st}

	_, err := svc.Bootstrap(context.Background(), "", domain.BootstrapData{AdminUsername: "root"})
	require.ErrorIs(t, err, service.ErrBootstrapUnauthorized)
}
