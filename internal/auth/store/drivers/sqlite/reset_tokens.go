package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/bartab-security/internal/auth/domain"
	"github.com/aussiebroadwan/bartab-security/internal/auth/store"
)

type resetTokensRepo struct {
	q querier
}

func (r *resetTokensRepo) Save(ctx context.Context, t domain.ResetToken) error {
	var usedAt sql.NullInt64
	if t.UsedAt != nil {
		usedAt = sql.NullInt64{Int64: toMillis(*t.UsedAt), Valid: true}
	}

	_, err := r.q.ExecContext(ctx, `
		INSERT INTO password_reset_tokens
			(id, token_hash, user_id, email, status, created_at, expires_at, used_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.TokenHash, t.UserID, t.Email, string(t.Status),
		toMillis(t.CreatedAt), toMillis(t.ExpiresAt), usedAt,
	)
	return mapConstraint(err)
}

func (r *resetTokensRepo) FindByTokenHash(ctx context.Context, hash string) (domain.ResetToken, error) {
	var (
		t         domain.ResetToken
		status    string
		createdAt int64
		expiresAt int64
		usedAt    sql.NullInt64
	)
	err := r.q.QueryRowContext(ctx, `
		SELECT id, token_hash, user_id, email, status, created_at, expires_at, used_at
		FROM password_reset_tokens WHERE token_hash = ?`, hash,
	).Scan(&t.ID, &t.TokenHash, &t.UserID, &t.Email, &status, &createdAt, &expiresAt, &usedAt)
	if err != nil {
		return domain.ResetToken{}, mapNotFound(err)
	}

	t.Status = domain.ResetTokenStatus(status)
	t.CreatedAt = fromMillis(createdAt)
	t.ExpiresAt = fromMillis(expiresAt)
	t.UsedAt = mapNullMillis(usedAt)
	return t, nil
}

func (r *resetTokensRepo) CancelAllPending(ctx context.Context, userID string) (int64, error) {
	return r.exec(ctx,
		`UPDATE password_reset_tokens SET status = 'CANCELLED'
		 WHERE user_id = ? AND status = 'PENDING'`, userID)
}

func (r *resetTokensRepo) CompareAndSetUsed(ctx context.Context, hash string, usedAt time.Time) (bool, error) {
	n, err := r.exec(ctx,
		`UPDATE password_reset_tokens SET status = 'USED', used_at = ?
		 WHERE token_hash = ? AND status = 'PENDING' AND expires_at > ?`,
		toMillis(usedAt), hash, toMillis(usedAt))
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *resetTokensRepo) ReleaseClaim(ctx context.Context, hash string) error {
	n, err := r.exec(ctx,
		`UPDATE password_reset_tokens SET status = 'PENDING', used_at = NULL
		 WHERE token_hash = ? AND status = 'USED'`, hash)
	if err != nil {
		return mapConstraint(err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *resetTokensRepo) MarkExpired(ctx context.Context, hash string) error {
	_, err := r.exec(ctx,
		`UPDATE password_reset_tokens SET status = 'EXPIRED'
		 WHERE token_hash = ? AND status = 'PENDING'`, hash)
	return err
}

func (r *resetTokensRepo) ExpirePending(ctx context.Context, now time.Time) (int64, error) {
	return r.exec(ctx,
		`UPDATE password_reset_tokens SET status = 'EXPIRED'
		 WHERE status = 'PENDING' AND expires_at <= ?`, toMillis(now))
}

func (r *resetTokensRepo) DeleteFinishedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return r.exec(ctx,
		`DELETE FROM password_reset_tokens
		 WHERE status IN ('USED', 'CANCELLED', 'EXPIRED') AND created_at < ?`, toMillis(cutoff))
}

func (r *resetTokensRepo) exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
