package domain

import "time"

// ResetTokenStatus is the lifecycle state of a password reset token.
type ResetTokenStatus string

const (
	ResetTokenPending   ResetTokenStatus = "PENDING"
	ResetTokenUsed      ResetTokenStatus = "USED"
	ResetTokenCancelled ResetTokenStatus = "CANCELLED"
	ResetTokenExpired   ResetTokenStatus = "EXPIRED"
)

// ResetToken is a single-use password reset grant. The secret itself is only
// held in memory until it is handed to the notification pipeline; TokenHash is
// what gets stored.
type ResetToken struct {
	ID        string
	Token     string // plaintext secret, empty when read back from storage
	TokenHash string // cryptox.FingerprintToken(Token)
	UserID    string
	Email     string
	Status    ResetTokenStatus
	CreatedAt time.Time
	ExpiresAt time.Time
	UsedAt    *time.Time
}

// IsExpired reports whether the token is past its expiry at now.
func (t ResetToken) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// EffectiveStatus applies lazy expiry: a PENDING token past its expiry reads
// as EXPIRED even if nobody has persisted that yet.
func (t ResetToken) EffectiveStatus(now time.Time) ResetTokenStatus {
	if t.Status == ResetTokenPending && t.IsExpired(now) {
		return ResetTokenExpired
	}
	return t.Status
}

// ResetRequestResult reports what RequestReset did. Issued is false for an
// unknown email. Notified is false when the token was stored but the event
// could not be published.
type ResetRequestResult struct {
	Issued   bool
	Notified bool
	TokenID  string
}
