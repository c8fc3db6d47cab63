package sqlite_test

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aussiebroadwan/bartab-security/internal/auth/domain"
	"github.com/aussiebroadwan/bartab-security/internal/auth/store"
	"github.com/aussiebroadwan/bartab-security/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/bartab-security/pkg/cryptox"
	"github.com/aussiebroadwan/bartab-security/pkg/idx"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) *sqlite.Store {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	require.NoError(t, st.ApplyMigrations())
	return st
}

func createUser(t *testing.T, st store.Store, username, email string) domain.User {
	t.Helper()
	u := domain.User{
		ID:           idx.New().String(),
		Username:     username,
		Email:        email,
		PasswordHash: "$argon2id$placeholder",
		Roles:        []string{domain.RoleUser},
		Enabled:      true,
	}
	require.NoError(t, st.Users().CreateUser(context.Background(), u))
	return u
}

func pendingToken(userID, email, secret string, expiresAt time.Time) domain.ResetToken {
	return domain.ResetToken{
		ID:        idx.New().String(),
		TokenHash: cryptox.FingerprintToken(secret),
		UserID:    userID,
		Email:     email,
		Status:    domain.ResetTokenPending,
		CreatedAt: time.Now(),
		ExpiresAt: expiresAt,
	}
}

func TestApplyMigrationsTwice(t *testing.T) {
	st := setupTestStore(t)
	require.NoError(t, st.ApplyMigrations())
	require.NoError(t, st.Ping(context.Background()))
}

func TestUsers(t *testing.T) {
	ctx := context.Background()
	st := setupTestStore(t)

	empty, err := st.Users().IsEmpty(ctx)
	require.NoError(t, err)
	require.True(t, empty)

	alice := createUser(t, st, "alice", "alice@example.com")

	t.Run("lookups are case-insensitive", func(t *testing.T) {
		u, err := st.Users().GetUserByUsername(ctx, "ALICE")
		require.NoError(t, err)
		require.Equal(t, alice.ID, u.ID)
		require.Equal(t, []string{domain.RoleUser}, u.Roles)
		require.True(t, u.Enabled)

		u, err = st.Users().GetUserByEmail(ctx, "Alice@Example.com")
		require.NoError(t, err)
		require.Equal(t, alice.ID, u.ID)
	})

	t.Run("missing user", func(t *testing.T) {
		_, err := st.Users().GetUserByID(ctx, "nope")
		require.ErrorIs(t, err, store.ErrNotFound)

		_, err = st.Users().GetUserByEmail(ctx, "")
		require.ErrorIs(t, err, store.ErrNotFound)

		err = st.Users().UpdatePasswordHash(ctx, "nope", "x")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("duplicate username", func(t *testing.T) {
		err := st.Users().CreateUser(ctx, domain.User{
			ID: idx.New().String(), Username: "Alice", PasswordHash: "x",
		})
		require.ErrorIs(t, err, store.ErrAlreadyExists)
	})

	t.Run("users without email do not clash", func(t *testing.T) {
		createUser(t, st, "bob", "")
		createUser(t, st, "carol", "")
	})

	t.Run("update password and disable", func(t *testing.T) {
		require.NoError(t, st.Users().UpdatePasswordHash(ctx, alice.ID, "new-hash"))
		require.NoError(t, st.Users().SetEnabled(ctx, alice.ID, false))

		u, err := st.Users().GetUserByID(ctx, alice.ID)
		require.NoError(t, err)
		require.Equal(t, "new-hash", u.PasswordHash)
		require.False(t, u.Enabled)
	})
}

func TestResetTokens(t *testing.T) {
	ctx := context.Background()
	st := setupTestStore(t)
	alice := createUser(t, st, "alice", "alice@example.com")
	repo := st.ResetTokens()

	t.Run("only one pending token per user", func(t *testing.T) {
		first := pendingToken(alice.ID, alice.Email, "secret-1", time.Now().Add(time.Hour))
		require.NoError(t, repo.Save(ctx, first))

		second := pendingToken(alice.ID, alice.Email, "secret-2", time.Now().Add(time.Hour))
		require.ErrorIs(t, repo.Save(ctx, second), store.ErrAlreadyExists)

		n, err := repo.CancelAllPending(ctx, alice.ID)
		require.NoError(t, err)
		require.Equal(t, int64(1), n)
		require.NoError(t, repo.Save(ctx, second))

		got, err := repo.FindByTokenHash(ctx, first.TokenHash)
		require.NoError(t, err)
		require.Equal(t, domain.ResetTokenCancelled, got.Status)
	})

	t.Run("compare and set is single use", func(t *testing.T) {
		hash := cryptox.FingerprintToken("secret-2")

		ok, err := repo.CompareAndSetUsed(ctx, hash, time.Now())
		require.NoError(t, err)
		require.True(t, ok)

		ok, err = repo.CompareAndSetUsed(ctx, hash, time.Now())
		require.NoError(t, err)
		require.False(t, ok)

		got, err := repo.FindByTokenHash(ctx, hash)
		require.NoError(t, err)
		require.Equal(t, domain.ResetTokenUsed, got.Status)
		require.NotNil(t, got.UsedAt)
	})

	t.Run("release returns a claimed token to pending", func(t *testing.T) {
		hash := cryptox.FingerprintToken("secret-2")
		require.NoError(t, repo.ReleaseClaim(ctx, hash))

		got, err := repo.FindByTokenHash(ctx, hash)
		require.NoError(t, err)
		require.Equal(t, domain.ResetTokenPending, got.Status)
		require.Nil(t, got.UsedAt)

		require.ErrorIs(t, repo.ReleaseClaim(ctx, hash), store.ErrNotFound)
	})

	t.Run("expired tokens cannot be claimed", func(t *testing.T) {
		_, err := repo.CancelAllPending(ctx, alice.ID)
		require.NoError(t, err)

		old := pendingToken(alice.ID, alice.Email, "old-secret", time.Now().Add(-time.Minute))
		require.NoError(t, repo.Save(ctx, old))

		ok, err := repo.CompareAndSetUsed(ctx, old.TokenHash, time.Now())
		require.NoError(t, err)
		require.False(t, ok)

		require.NoError(t, repo.MarkExpired(ctx, old.TokenHash))
		got, err := repo.FindByTokenHash(ctx, old.TokenHash)
		require.NoError(t, err)
		require.Equal(t, domain.ResetTokenExpired, got.Status)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := repo.FindByTokenHash(ctx, cryptox.FingerprintToken("missing"))
		require.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestResetTokensConcurrentClaim(t *testing.T) {
	ctx := context.Background()
	st := setupTestStore(t)
	alice := createUser(t, st, "alice", "alice@example.com")

	tok := pendingToken(alice.ID, alice.Email, "race", time.Now().Add(time.Hour))
	require.NoError(t, st.ResetTokens().Save(ctx, tok))

	const workers = 16
	var wins atomic.Int32
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := st.ResetTokens().CompareAndSetUsed(ctx, tok.TokenHash, time.Now())
			if err == nil && ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, int32(1), wins.Load())
}

func TestResetTokensHousekeeping(t *testing.T) {
	ctx := context.Background()
	st := setupTestStore(t)
	repo := st.ResetTokens()

	alice := createUser(t, st, "alice", "alice@example.com")
	bob := createUser(t, st, "bob", "bob@example.com")

	overdue := pendingToken(alice.ID, alice.Email, "overdue", time.Now().Add(-time.Minute))
	overdue.CreatedAt = time.Now().Add(-48 * time.Hour)
	live := pendingToken(bob.ID, bob.Email, "live", time.Now().Add(time.Hour))
	require.NoError(t, repo.Save(ctx, overdue))
	require.NoError(t, repo.Save(ctx, live))

	n, err := repo.ExpirePending(ctx, time.Now())
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	n, err = repo.DeleteFinishedBefore(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	_, err = repo.FindByTokenHash(ctx, overdue.TokenHash)
	require.ErrorIs(t, err, store.ErrNotFound)

	got, err := repo.FindByTokenHash(ctx, live.TokenHash)
	require.NoError(t, err)
	require.Equal(t, domain.ResetTokenPending, got.Status)
}

func TestWithTxRollback(t *testing.T) {
	ctx := context.Background()
	st := setupTestStore(t)
	alice := createUser(t, st, "alice", "alice@example.com")

	first := pendingToken(alice.ID, alice.Email, "first", time.Now().Add(time.Hour))
	require.NoError(t, st.ResetTokens().Save(ctx, first))

	boom := errors.New("boom")
	err := st.WithTx(ctx, func(tx store.Tx) error {
		if _, err := tx.ResetTokens().CancelAllPending(ctx, alice.ID); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := st.ResetTokens().FindByTokenHash(ctx, first.TokenHash)
	require.NoError(t, err)
	require.Equal(t, domain.ResetTokenPending, got.Status, "cancel must roll back")

	require.ErrorIs(t, st.WithTx(ctx, func(tx store.Tx) error {
		return tx.WithTx(ctx, func(store.Tx) error { return nil })
	}), sql.ErrTxDone)
}

func TestAudit(t *testing.T) {
	ctx := context.Background()
	st := setupTestStore(t)

	base := time.Now().Add(-time.Hour)
	for i, typ := range []domain.AuditEventType{domain.AuditSignInFailed, domain.AuditSignInSuccess, domain.AuditSignOut} {
		require.NoError(t, st.Audit().Record(ctx, domain.AuditEvent{
			ID:        idx.New().String(),
			Type:      typ,
			UserID:    "u-1",
			Username:  "alice",
			Success:   typ != domain.AuditSignInFailed,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, st.Audit().Record(ctx, domain.AuditEvent{
		ID: idx.New().String(), Type: domain.AuditSignInFailed, Username: "ghost", CreatedAt: time.Now(),
	}))

	events, err := st.Audit().ListByUser(ctx, "u-1", 10)
	require.NoError(t, err)
	require.Len(t, events, 3)
	require.Equal(t, domain.AuditSignOut, events[0].Type)
	require.False(t, events[2].Success)

	n, err := st.Audit().DeleteBefore(ctx, base.Add(90*time.Second))
	require.NoError(t, err)
	require.Equal(t, int64(2), n)
}
