package service

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/aussiebroadwan/bartab-security/internal/auth/domain"
	"github.com/aussiebroadwan/bartab-security/internal/auth/store"
	"github.com/aussiebroadwan/bartab-security/pkg/idx"
	"github.com/aussiebroadwan/bartab-security/pkg/slogx"
)

const maxUserAgentLength = 512

// Auditor appends security events to the audit log. Failing to write an
// event is logged and never fails the operation being audited.
type Auditor struct {
	Log store.AuditLog
	Now func() time.Time
}

// Record stamps id, time and client details onto e and stores it.
// A nil Auditor records nothing.
func (a *Auditor) Record(ctx context.Context, e domain.AuditEvent, client domain.ClientInfo) {
	if a == nil || a.Log == nil {
		return
	}

	now := clock(a.Now)
	e.ID = idx.NewAt(now).String()
	e.CreatedAt = now
	e.IPAddress = client.IPAddress
	e.UserAgent = truncateUserAgent(client.UserAgent)

	if err := a.Log.Record(ctx, e); err != nil {
		slogx.FromContext(ctx).Error("failed to record audit event",
			"type", e.Type,
			"user_id", e.UserID,
			"error", err,
		)
	}
}

// History returns the newest audit events of a user.
func (a *Auditor) History(ctx context.Context, userID string, limit int) ([]domain.AuditEvent, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	return a.Log.ListByUser(ctx, userID, limit)
}

// truncateUserAgent cuts ua to at most maxUserAgentLength bytes without
// splitting a multi-byte rune.
func truncateUserAgent(ua string) string {
	if len(ua) <= maxUserAgentLength {
		return ua
	}
	cut := maxUserAgentLength
	for cut > 0 && !utf8.RuneStart(ua[cut]) {
		cut--
	}
	return ua[:cut]
}
