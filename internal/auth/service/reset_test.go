package service_test

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aussiebroadwan/bartab-security/internal/auth/directory"
	"github.com/aussiebroadwan/bartab-security/internal/auth/domain"
	"github.com/aussiebroadwan/bartab-security/internal/auth/events"
	"github.com/aussiebroadwan/bartab-security/internal/auth/service"
	"github.com/aussiebroadwan/bartab-security/internal/auth/store"
	"github.com/aussiebroadwan/bartab-security/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/bartab-security/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

type resetFixture struct {
	store     *sqlite.Store
	dir       *directory.Directory
	publisher *recordingPublisher
	lifecycle *service.ResetTokenLifecycle
	user      domain.User
}

func newResetFixture(t *testing.T) *resetFixture {
	t.Helper()
	return newResetFixtureOn(t, newSQLiteStore(t))
}

func newResetFixtureOn(t *testing.T, st *sqlite.Store) *resetFixture {
	t.Helper()
	f := &resetFixture{
		store:     st,
		dir:       directory.New(st.Users()),
		publisher: &recordingPublisher{},
		user:      seedUser(t, st, "alice", "alice@example.com", "Old#Password1"),
	}
	f.lifecycle = &service.ResetTokenLifecycle{
		Store:     st,
		Emails:    f.dir,
		Directory: f.dir,
		Publisher: f.publisher,
		Policy:    service.DefaultPasswordPolicy(),
		Audit:     &service.Auditor{Log: st.Audit(), Now: fixedClock(epoch)},
		TTL:       30 * time.Minute,
		BaseURL:   "https://app.example.com/reset-password",
		Now:       fixedClock(epoch),
	}
	return f
}

// requestSecret issues a token and returns the plaintext secret taken from
// the published event.
func (f *resetFixture) requestSecret(t *testing.T) string {
	t.Helper()
	res, err := f.lifecycle.RequestReset(context.Background(), "alice@example.com", domain.ClientInfo{})
	require.NoError(t, err)
	require.True(t, res.Issued)
	require.True(t, res.Notified)

	evs := f.publisher.published()
	payload, ok := evs[len(evs)-1].Payload.(events.PasswordResetRequested)
	require.True(t, ok)
	return payload.ResetToken
}

func TestRequestReset(t *testing.T) {
	ctx := context.Background()
	f := newResetFixture(t)

	res, err := f.lifecycle.RequestReset(ctx, "ALICE@example.com", domain.ClientInfo{IPAddress: "10.1.1.1"})
	require.NoError(t, err)
	require.True(t, res.Issued)
	require.True(t, res.Notified)
	require.NotEmpty(t, res.TokenID)

	evs := f.publisher.published()
	require.Len(t, evs, 1)
	require.Equal(t, events.TypePasswordResetRequested, evs[0].Type)
	require.Equal(t, f.user.ID, evs[0].Key)

	payload := evs[0].Payload.(events.PasswordResetRequested)
	require.Equal(t, "alice@example.com", payload.Email)
	require.Equal(t, epoch.Add(30*time.Minute), payload.ExpiresAt)
	require.Len(t, payload.ResetToken, 43)

	u, err := url.Parse(payload.ResetURL)
	require.NoError(t, err)
	require.Equal(t, "app.example.com", u.Host)
	require.Equal(t, payload.ResetToken, u.Query().Get("token"))

	stored, err := f.store.ResetTokens().FindByTokenHash(ctx, cryptox.FingerprintToken(payload.ResetToken))
	require.NoError(t, err)
	require.Equal(t, domain.ResetTokenPending, stored.Status)
	require.Empty(t, stored.Token, "plaintext is never stored")

	history, err := f.store.Audit().ListByUser(ctx, f.user.ID, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, domain.AuditPasswordResetRequested, history[0].Type)
	require.Equal(t, "10.1.1.1", history[0].IPAddress)
}

func TestRequestResetUnknownEmail(t *testing.T) {
	f := newResetFixture(t)

	res, err := f.lifecycle.RequestReset(context.Background(), "ghost@example.com", domain.ClientInfo{})
	require.NoError(t, err)
	require.False(t, res.Issued)
	require.Empty(t, f.publisher.published())
}

func TestRequestResetBlankEmail(t *testing.T) {
	f := newResetFixture(t)

	_, err := f.lifecycle.RequestReset(context.Background(), "   ", domain.ClientInfo{})
	require.ErrorIs(t, err, service.ErrInvalidRequest)
}

func TestRequestResetCancelsPrevious(t *testing.T) {
	ctx := context.Background()
	f := newResetFixture(t)

	first := f.requestSecret(t)
	second := f.requestSecret(t)

	old, err := f.store.ResetTokens().FindByTokenHash(ctx, cryptox.FingerprintToken(first))
	require.NoError(t, err)
	require.Equal(t, domain.ResetTokenCancelled, old.Status)

	current, err := f.store.ResetTokens().FindByTokenHash(ctx, cryptox.FingerprintToken(second))
	require.NoError(t, err)
	require.Equal(t, domain.ResetTokenPending, current.Status)

	err = f.lifecycle.Consume(ctx, first, "New#Password2", domain.ClientInfo{})
	require.ErrorIs(t, err, service.ErrResetTokenUsed)

	require.NoError(t, f.lifecycle.Consume(ctx, second, "New#Password2", domain.ClientInfo{}))
}

func TestRequestResetPublishFailure(t *testing.T) {
	ctx := context.Background()
	f := newResetFixture(t)
	f.publisher.err = errors.New("broker down")

	res, err := f.lifecycle.RequestReset(ctx, "alice@example.com", domain.ClientInfo{})
	require.NoError(t, err)
	require.True(t, res.Issued)
	require.False(t, res.Notified)

	// The token was still stored, so cancelling finds exactly one.
	n, err := f.store.ResetTokens().CancelAllPending(ctx, f.user.ID)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
}

func TestRequestResetDetached(t *testing.T) {
	f := newResetFixture(t)
	f.lifecycle.Detach = true

	ctx, cancel := context.WithCancel(context.Background())
	res, err := f.lifecycle.RequestReset(ctx, "alice@example.com", domain.ClientInfo{})
	cancel()
	require.NoError(t, err)
	require.Equal(t, domain.ResetRequestResult{}, res)

	res, err = f.lifecycle.RequestReset(context.Background(), "ghost@example.com", domain.ClientInfo{})
	require.NoError(t, err)
	require.Equal(t, domain.ResetRequestResult{}, res)

	_, err = f.lifecycle.RequestReset(context.Background(), " ", domain.ClientInfo{})
	require.ErrorIs(t, err, service.ErrInvalidRequest)

	// The request context was cancelled, the detached issuance still ran.
	f.lifecycle.Wait()
	evs := f.publisher.published()
	require.Len(t, evs, 1)
	require.Equal(t, f.user.ID, evs[0].Key)

	secret := evs[0].Payload.(events.PasswordResetRequested).ResetToken
	require.NoError(t, f.lifecycle.Consume(context.Background(), secret, "New#Password2", domain.ClientInfo{}))
}

func TestRequestResetConcurrently(t *testing.T) {
	ctx := context.Background()
	f := newResetFixtureOn(t, newFileSQLiteStore(t))

	const workers = 20
	var (
		wg   sync.WaitGroup
		errs = make(chan error, workers)
	)
	start := make(chan struct{})

	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			res, err := f.lifecycle.RequestReset(ctx, "alice@example.com", domain.ClientInfo{})
			if err == nil && !res.Issued {
				err = errors.New("no token issued")
			}
			errs <- err
		}()
	}
	close(start)
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	evs := f.publisher.published()
	require.Len(t, evs, workers)

	pending := 0
	for _, ev := range evs {
		secret := ev.Payload.(events.PasswordResetRequested).ResetToken
		tok, err := f.store.ResetTokens().FindByTokenHash(ctx, cryptox.FingerprintToken(secret))
		require.NoError(t, err)
		switch tok.Status {
		case domain.ResetTokenPending:
			pending++
		default:
			require.Equal(t, domain.ResetTokenCancelled, tok.Status)
		}
	}
	require.Equal(t, 1, pending)
}

// conflictingStore makes the first failures reset token inserts report a
// conflict, as if another request had slipped a PENDING token in.
type conflictingStore struct {
	*sqlite.Store
	failures atomic.Int32
	saves    atomic.Int32
}

func (s *conflictingStore) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		return fn(&conflictingTx{innerTx: tx, owner: s})
	})
}

// innerTx aliases store.Tx so the embedded field is not named Tx, which
// would shadow the promoted Tx method.
type innerTx = store.Tx

type conflictingTx struct {
	innerTx
	owner *conflictingStore
}

func (tx *conflictingTx) ResetTokens() store.ResetTokens {
	return &conflictingTokens{ResetTokens: tx.innerTx.ResetTokens(), owner: tx.owner}
}

type conflictingTokens struct {
	store.ResetTokens
	owner *conflictingStore
}

func (r *conflictingTokens) Save(ctx context.Context, tok domain.ResetToken) error {
	r.owner.saves.Add(1)
	if r.owner.failures.Add(-1) >= 0 {
		return store.ErrAlreadyExists
	}
	return r.ResetTokens.Save(ctx, tok)
}

func TestRequestResetRetriesConflictingSave(t *testing.T) {
	ctx := context.Background()

	t.Run("recovers after one conflict", func(t *testing.T) {
		f := newResetFixture(t)
		cs := &conflictingStore{Store: f.store}
		cs.failures.Store(1)
		f.lifecycle.Store = cs

		secret := f.requestSecret(t)
		require.EqualValues(t, 2, cs.saves.Load())

		tok, err := f.store.ResetTokens().FindByTokenHash(ctx, cryptox.FingerprintToken(secret))
		require.NoError(t, err)
		require.Equal(t, domain.ResetTokenPending, tok.Status)
	})

	t.Run("gives up after repeated conflicts", func(t *testing.T) {
		f := newResetFixture(t)
		cs := &conflictingStore{Store: f.store}
		cs.failures.Store(100)
		f.lifecycle.Store = cs

		_, err := f.lifecycle.RequestReset(ctx, "alice@example.com", domain.ClientInfo{})
		require.ErrorIs(t, err, service.ErrUnavailable)
		require.EqualValues(t, 3, cs.saves.Load())
		require.Empty(t, f.publisher.published())
	})
}

func TestConsume(t *testing.T) {
	ctx := context.Background()
	f := newResetFixture(t)
	secret := f.requestSecret(t)

	require.NoError(t, f.lifecycle.Consume(ctx, secret, "New#Password2", domain.ClientInfo{}))

	_, err := f.dir.Verify(ctx, "alice", "New#Password2")
	require.NoError(t, err)

	tok, err := f.store.ResetTokens().FindByTokenHash(ctx, cryptox.FingerprintToken(secret))
	require.NoError(t, err)
	require.Equal(t, domain.ResetTokenUsed, tok.Status)
	require.NotNil(t, tok.UsedAt)

	err = f.lifecycle.Consume(ctx, secret, "Other#Password3", domain.ClientInfo{})
	require.ErrorIs(t, err, service.ErrResetTokenUsed)
	require.True(t, service.IsResetTokenFailure(err))

	evs := f.publisher.published()
	require.Equal(t, events.TypePasswordResetCompleted, evs[len(evs)-1].Type)
}

func TestConsumeUnknownToken(t *testing.T) {
	f := newResetFixture(t)

	err := f.lifecycle.Consume(context.Background(), "does-not-exist", "New#Password2", domain.ClientInfo{})
	require.ErrorIs(t, err, service.ErrResetTokenNotFound)

	err = f.lifecycle.Consume(context.Background(), "", "New#Password2", domain.ClientInfo{})
	require.ErrorIs(t, err, service.ErrResetTokenNotFound)
}

func TestConsumeExpired(t *testing.T) {
	ctx := context.Background()
	f := newResetFixture(t)
	secret := f.requestSecret(t)

	f.lifecycle.Now = fixedClock(epoch.Add(30 * time.Minute))
	err := f.lifecycle.Consume(ctx, secret, "New#Password2", domain.ClientInfo{})
	require.ErrorIs(t, err, service.ErrResetTokenExpired)

	tok, err := f.store.ResetTokens().FindByTokenHash(ctx, cryptox.FingerprintToken(secret))
	require.NoError(t, err)
	require.Equal(t, domain.ResetTokenExpired, tok.Status)

	_, err = f.dir.Verify(ctx, "alice", "Old#Password1")
	require.NoError(t, err, "password unchanged")
}

func TestConsumeRejectsWeakPassword(t *testing.T) {
	ctx := context.Background()
	f := newResetFixture(t)
	secret := f.requestSecret(t)

	err := f.lifecycle.Consume(ctx, secret, "weak", domain.ClientInfo{})
	var policyErr *service.PasswordPolicyError
	require.ErrorAs(t, err, &policyErr)
	require.NotEmpty(t, policyErr.Violations)

	require.NoError(t, f.lifecycle.Consume(ctx, secret, "Strong#Password9", domain.ClientInfo{}))
}

func TestConsumeReleasesClaimWhenPasswordChangeFails(t *testing.T) {
	ctx := context.Background()
	f := newResetFixture(t)
	secret := f.requestSecret(t)

	f.lifecycle.Directory = failingChange{f.dir}
	err := f.lifecycle.Consume(ctx, secret, "New#Password2", domain.ClientInfo{})
	require.Error(t, err)
	require.False(t, service.IsResetTokenFailure(err))

	tok, err := f.store.ResetTokens().FindByTokenHash(ctx, cryptox.FingerprintToken(secret))
	require.NoError(t, err)
	require.Equal(t, domain.ResetTokenPending, tok.Status)

	f.lifecycle.Directory = f.dir
	require.NoError(t, f.lifecycle.Consume(ctx, secret, "New#Password2", domain.ClientInfo{}))
}

func TestConsumeConcurrently(t *testing.T) {
	ctx := context.Background()
	f := newResetFixture(t)
	secret := f.requestSecret(t)

	const workers = 8
	var (
		wg        sync.WaitGroup
		successes atomic.Int32
		used      atomic.Int32
	)
	start := make(chan struct{})

	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			err := f.lifecycle.Consume(ctx, secret, "New#Password2", domain.ClientInfo{})
			switch {
			case err == nil:
				successes.Add(1)
			case errors.Is(err, service.ErrResetTokenUsed):
				used.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	require.EqualValues(t, 1, successes.Load())
	require.EqualValues(t, workers-1, used.Load())
}

func TestResetURL(t *testing.T) {
	require.Equal(t, "http://x/reset?token=abc", service.ResetURL("http://x/reset", "abc"))
	require.Equal(t, "http://x/reset?lang=en&token=abc", service.ResetURL("http://x/reset?lang=en", "abc"))
}
