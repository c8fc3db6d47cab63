package service

import (
	"context"
	"time"

	"github.com/aussiebroadwan/bartab-security/internal/auth/domain"
)

// Directory is the source of truth for accounts and credentials.
type Directory interface {
	// Verify checks the password. It returns ErrBadCredentials for an unknown
	// user or wrong password and ErrUnavailable when the backend failed.
	Verify(ctx context.Context, username, password string) (domain.Identity, error)

	// Lookup returns the current identity or ErrUserNotFound.
	Lookup(ctx context.Context, username string) (domain.Identity, error)

	// ChangePassword replaces the password of the account.
	ChangePassword(ctx context.Context, userID, newPassword string) error
}

// EmailLookup resolves an email address for password recovery.
type EmailLookup interface {
	// FindByEmail returns ErrUserNotFound for unknown addresses.
	FindByEmail(ctx context.Context, email string) (domain.EmailRecord, error)
}

func clock(now func() time.Time) time.Time {
	if now != nil {
		return now().UTC()
	}
	return time.Now().UTC()
}
