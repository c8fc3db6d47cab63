package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/aussiebroadwan/bartab-security/internal/auth/domain"
	"github.com/aussiebroadwan/bartab-security/internal/auth/events"
	"github.com/aussiebroadwan/bartab-security/internal/auth/store"
	"github.com/aussiebroadwan/bartab-security/pkg/cryptox"
	"github.com/aussiebroadwan/bartab-security/pkg/idx"
	"github.com/aussiebroadwan/bartab-security/pkg/slogx"
)

const (
	DefaultResetTokenTTL = 30 * time.Minute
	DefaultResetBaseURL  = "http://localhost:3000/reset-password"

	// saveAttempts bounds retries when a concurrent request for the same user
	// slipped a PENDING token in between cancel and insert.
	saveAttempts = 3

	defaultDetachTimeout = 30 * time.Second
)

// ResetTokenLifecycle issues and consumes single-use password reset tokens.
type ResetTokenLifecycle struct {
	Store     store.Store
	Emails    EmailLookup
	Directory Directory
	Publisher events.Publisher
	Policy    PasswordPolicy
	Audit     *Auditor

	TTL     time.Duration
	BaseURL string
	Now     func() time.Time

	// Detach moves the lookup, issuance and publish of RequestReset onto a
	// background goroutine, so its latency is the same whether or not the
	// address belongs to an account. Detached calls always return a zero
	// result; Wait blocks until their work is done.
	Detach        bool
	DetachTimeout time.Duration

	detached sync.WaitGroup
}

// RequestReset issues a new token for the account behind email, cancelling
// any earlier pending token. Unknown addresses yield a zero result and no
// error so callers cannot tell which addresses have accounts. A publish
// failure leaves the token stored and reports Notified=false.
func (l *ResetTokenLifecycle) RequestReset(
	ctx context.Context,
	email string,
	client domain.ClientInfo,
) (domain.ResetRequestResult, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return domain.ResetRequestResult{}, fmt.Errorf("%w: email is required", ErrInvalidRequest)
	}

	if !l.Detach {
		return l.issue(ctx, email, client)
	}

	// Keep request-scoped logger values but not the request's cancellation.
	ctx = context.WithoutCancel(ctx)
	l.detached.Add(1)
	go func() {
		defer l.detached.Done()
		ctx, cancel := context.WithTimeout(ctx, l.detachTimeout())
		defer cancel()

		if _, err := l.issue(ctx, email, client); err != nil {
			slogx.FromContext(ctx).Error("password reset request failed", "error", err)
		}
	}()
	return domain.ResetRequestResult{}, nil
}

// Wait blocks until every detached RequestReset has finished.
func (l *ResetTokenLifecycle) Wait() {
	l.detached.Wait()
}

func (l *ResetTokenLifecycle) issue(
	ctx context.Context,
	email string,
	client domain.ClientInfo,
) (domain.ResetRequestResult, error) {
	log := slogx.FromContext(ctx)

	rec, err := l.Emails.FindByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		log.Info("password reset requested for unknown email")
		return domain.ResetRequestResult{}, nil
	}
	if err != nil {
		return domain.ResetRequestResult{}, err
	}

	secret, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return domain.ResetRequestResult{}, fmt.Errorf("generate reset token: %w", err)
	}

	now := clock(l.Now)
	tok := domain.ResetToken{
		ID:        idx.NewAt(now).String(),
		Token:     secret,
		TokenHash: cryptox.FingerprintToken(secret),
		UserID:    rec.UserID,
		Email:     rec.Email,
		Status:    domain.ResetTokenPending,
		CreatedAt: now,
		ExpiresAt: now.Add(l.ttl()),
	}

	if err := l.replacePending(ctx, tok); err != nil {
		return domain.ResetRequestResult{}, err
	}

	log.Info("password reset token issued", "user_id", rec.UserID, "token_id", tok.ID)
	l.Audit.Record(ctx, domain.AuditEvent{
		Type:     domain.AuditPasswordResetRequested,
		UserID:   rec.UserID,
		Username: rec.Username,
		Email:    rec.Email,
		Success:  true,
	}, client)

	result := domain.ResetRequestResult{Issued: true, TokenID: tok.ID}

	err = l.Publisher.Publish(ctx, events.TypePasswordResetRequested, rec.UserID, events.PasswordResetRequested{
		UserID:     rec.UserID,
		Email:      rec.Email,
		ResetToken: secret,
		ExpiresAt:  tok.ExpiresAt,
		ResetURL:   ResetURL(l.baseURL(), secret),
	})
	if err != nil {
		log.Error("failed to publish password reset event",
			"user_id", rec.UserID,
			"token_id", tok.ID,
			"error", err,
		)
		return result, nil
	}

	result.Notified = true
	return result, nil
}

func (l *ResetTokenLifecycle) replacePending(ctx context.Context, tok domain.ResetToken) error {
	var err error
	for range saveAttempts {
		err = l.Store.WithTx(ctx, func(tx store.Tx) error {
			cancelled, err := tx.ResetTokens().CancelAllPending(ctx, tok.UserID)
			if err != nil {
				return err
			}
			if cancelled > 0 {
				slogx.FromContext(ctx).Debug("cancelled pending reset tokens",
					"user_id", tok.UserID,
					"count", cancelled,
				)
			}
			return tx.ResetTokens().Save(ctx, tok)
		})
		if !errors.Is(err, store.ErrAlreadyExists) {
			break
		}
	}
	if err != nil {
		return fmt.Errorf("%w: save reset token: %v", ErrUnavailable, err)
	}
	return nil
}

// Consume redeems token and sets newPassword. Exactly one of any number of
// concurrent callers with the same token can succeed. When the password
// change fails the claim is released so the token stays usable.
func (l *ResetTokenLifecycle) Consume(
	ctx context.Context,
	token, newPassword string,
	client domain.ClientInfo,
) error {
	log := slogx.FromContext(ctx)

	if err := l.Policy.Validate(newPassword); err != nil {
		return err
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return l.consumeFailed(ctx, domain.ResetToken{}, ErrResetTokenNotFound, client)
	}

	hash := cryptox.FingerprintToken(token)
	now := clock(l.Now)
	tokens := l.Store.ResetTokens()

	tok, err := tokens.FindByTokenHash(ctx, hash)
	if errors.Is(err, store.ErrNotFound) {
		return l.consumeFailed(ctx, domain.ResetToken{}, ErrResetTokenNotFound, client)
	}
	if err != nil {
		return fmt.Errorf("%w: find reset token: %v", ErrUnavailable, err)
	}

	switch tok.EffectiveStatus(now) {
	case domain.ResetTokenPending:
	case domain.ResetTokenExpired:
		if tok.Status == domain.ResetTokenPending {
			if err := tokens.MarkExpired(ctx, hash); err != nil {
				log.Warn("failed to persist reset token expiry", "token_id", tok.ID, "error", err)
			}
		}
		return l.consumeFailed(ctx, tok, ErrResetTokenExpired, client)
	default:
		return l.consumeFailed(ctx, tok, ErrResetTokenUsed, client)
	}

	claimed, err := tokens.CompareAndSetUsed(ctx, hash, now)
	if err != nil {
		return fmt.Errorf("%w: claim reset token: %v", ErrUnavailable, err)
	}
	if !claimed {
		return l.consumeFailed(ctx, tok, ErrResetTokenUsed, client)
	}

	if err := l.Directory.ChangePassword(ctx, tok.UserID, newPassword); err != nil {
		if rerr := tokens.ReleaseClaim(ctx, hash); rerr != nil {
			log.Error("failed to release reset token claim", "token_id", tok.ID, "error", rerr)
		}
		l.Audit.Record(ctx, domain.AuditEvent{
			Type:          domain.AuditPasswordResetFailed,
			UserID:        tok.UserID,
			Email:         tok.Email,
			FailureReason: "password change failed",
		}, client)
		return fmt.Errorf("change password: %w", err)
	}

	log.Info("password reset completed", "user_id", tok.UserID, "token_id", tok.ID)
	l.Audit.Record(ctx, domain.AuditEvent{
		Type:    domain.AuditPasswordResetCompleted,
		UserID:  tok.UserID,
		Email:   tok.Email,
		Success: true,
	}, client)

	err = l.Publisher.Publish(ctx, events.TypePasswordResetCompleted, tok.UserID, events.PasswordResetCompleted{
		UserID:      tok.UserID,
		Email:       tok.Email,
		CompletedAt: now,
	})
	if err != nil {
		log.Warn("failed to publish password reset completion", "user_id", tok.UserID, "error", err)
	}

	return nil
}

// consumeFailed logs and audits the specific cause. Callers show every cause
// to the user as InvalidResetTokenMessage.
func (l *ResetTokenLifecycle) consumeFailed(
	ctx context.Context,
	tok domain.ResetToken,
	cause error,
	client domain.ClientInfo,
) error {
	slogx.FromContext(ctx).Info("password reset rejected",
		"token_id", tok.ID,
		"user_id", tok.UserID,
		"reason", cause.Error(),
	)
	l.Audit.Record(ctx, domain.AuditEvent{
		Type:          domain.AuditPasswordResetFailed,
		UserID:        tok.UserID,
		Email:         tok.Email,
		FailureReason: cause.Error(),
	}, client)
	return cause
}

func (l *ResetTokenLifecycle) ttl() time.Duration {
	if l.TTL <= 0 {
		return DefaultResetTokenTTL
	}
	return l.TTL
}

func (l *ResetTokenLifecycle) detachTimeout() time.Duration {
	if l.DetachTimeout <= 0 {
		return defaultDetachTimeout
	}
	return l.DetachTimeout
}

func (l *ResetTokenLifecycle) baseURL() string {
	if l.BaseURL == "" {
		return DefaultResetBaseURL
	}
	return l.BaseURL
}

// ResetURL appends the token as the "token" query parameter of base.
func ResetURL(base, token string) string {
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + "token=" + url.QueryEscape(token)
}
