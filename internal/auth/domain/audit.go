package domain

import "time"

type AuditEventType string

const (
	AuditSignInSuccess          AuditEventType = "SIGN_IN_SUCCESS"
	AuditSignInFailed           AuditEventType = "SIGN_IN_FAILED"
	AuditSignOut                AuditEventType = "SIGN_OUT"
	AuditTokenRefresh           AuditEventType = "TOKEN_REFRESH"
	AuditTokenRevoked           AuditEventType = "TOKEN_REVOKED"
	AuditPasswordResetRequested AuditEventType = "PASSWORD_RESET_REQUESTED"
	AuditPasswordResetCompleted AuditEventType = "PASSWORD_RESET_COMPLETED"
	AuditPasswordResetFailed    AuditEventType = "PASSWORD_RESET_FAILED"
	AuditPasswordUpdated        AuditEventType = "PASSWORD_UPDATED"
)

// AuditEvent is one row of the security audit trail.
type AuditEvent struct {
	ID            string
	Type          AuditEventType
	UserID        string
	Username      string
	Email         string
	Success       bool
	FailureReason string
	IPAddress     string
	UserAgent     string
	CreatedAt     time.Time
}
