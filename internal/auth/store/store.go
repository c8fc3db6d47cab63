package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/bartab-security/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite)
// implement this. It exposes sub-repositories to keep concerns tidy and
// testable, and so nobody opens a transaction inside a transaction.
type Store interface {
	Users() Users
	ResetTokens() ResetTokens
	Audit() AuditLog

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction. If fn returns an error, the
	// transaction is rolled back, otherwise it is committed.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	// GetUserByID returns a user by id.
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByUsername is used during sign-in and rotation. Case-insensitive.
	GetUserByUsername(ctx context.Context, username string) (domain.User, error)

	// GetUserByEmail is used by password recovery. Case-insensitive.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// CreateUser inserts a new user (id is provided by app via ULID).
	// Returns ErrAlreadyExists on a username or email clash.
	CreateUser(ctx context.Context, u domain.User) error

	// UpdatePasswordHash sets the password_hash (argon2) and bumps updated_at.
	UpdatePasswordHash(ctx context.Context, userID string, newHash string) error

	// SetEnabled toggles whether the account may sign in.
	SetEnabled(ctx context.Context, userID string, enabled bool) error

	// IsEmpty returns true if there are no users.
	IsEmpty(ctx context.Context) (bool, error)
}

type ResetTokens interface {
	// Save inserts a new token. Only its hash is written.
	Save(ctx context.Context, t domain.ResetToken) error

	// FindByTokenHash returns the token whose fingerprint matches.
	FindByTokenHash(ctx context.Context, hash string) (domain.ResetToken, error)

	// CancelAllPending moves every PENDING token of the user to CANCELLED and
	// returns how many were affected.
	CancelAllPending(ctx context.Context, userID string) (int64, error)

	// CompareAndSetUsed flips PENDING to USED in a single conditional update.
	// Exactly one concurrent caller observes true.
	CompareAndSetUsed(ctx context.Context, hash string, usedAt time.Time) (bool, error)

	// ReleaseClaim flips USED back to PENDING after a failed password change.
	ReleaseClaim(ctx context.Context, hash string) error

	// MarkExpired persists EXPIRED for a PENDING token.
	MarkExpired(ctx context.Context, hash string) error

	// ExpirePending marks every PENDING token past its expiry as EXPIRED.
	ExpirePending(ctx context.Context, now time.Time) (int64, error)

	// DeleteFinishedBefore removes USED, CANCELLED and EXPIRED tokens created
	// before the cutoff.
	DeleteFinishedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type AuditLog interface {
	// Record appends one event.
	Record(ctx context.Context, e domain.AuditEvent) error

	// ListByUser returns the newest events for a user first.
	ListByUser(ctx context.Context, userID string, limit int) ([]domain.AuditEvent, error)

	// DeleteBefore removes events older than the cutoff.
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Blacklist records revoked token ids until the tokens would have expired
// anyway. Implementations live outside the relational store.
type Blacklist interface {
	// IsMember reports whether jti has been revoked.
	IsMember(ctx context.Context, jti string) (bool, error)

	// Add revokes jti for ttl. Adding an existing member is a no-op.
	Add(ctx context.Context, jti string, ttl time.Duration) error

	// Ping verifies the backing service is reachable.
	Ping(ctx context.Context) error
}
