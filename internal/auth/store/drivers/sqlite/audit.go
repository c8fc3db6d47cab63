package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/bartab-security/internal/auth/domain"
)

type auditRepo struct {
	q querier
}

func (r *auditRepo) Record(ctx context.Context, e domain.AuditEvent) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO audit_events
			(id, type, user_id, username, email, success, failure_reason, ip_address, user_agent, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, string(e.Type), mapStringNull(e.UserID), e.Username, e.Email, e.Success,
		e.FailureReason, e.IPAddress, e.UserAgent, toMillis(e.CreatedAt),
	)
	return err
}

func (r *auditRepo) ListByUser(ctx context.Context, userID string, limit int) ([]domain.AuditEvent, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.q.QueryContext(ctx, `
		SELECT id, type, user_id, username, email, success, failure_reason, ip_address, user_agent, created_at
		FROM audit_events WHERE user_id = ?
		ORDER BY created_at DESC, id DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.AuditEvent
	for rows.Next() {
		var (
			e         domain.AuditEvent
			typ       string
			uid       sql.NullString
			createdAt int64
		)
		if err := rows.Scan(&e.ID, &typ, &uid, &e.Username, &e.Email, &e.Success,
			&e.FailureReason, &e.IPAddress, &e.UserAgent, &createdAt); err != nil {
			return nil, err
		}
		e.Type = domain.AuditEventType(typ)
		e.UserID = mapNullString(uid)
		e.CreatedAt = fromMillis(createdAt)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *auditRepo) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.q.ExecContext(ctx, `DELETE FROM audit_events WHERE created_at < ?`, toMillis(cutoff))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
