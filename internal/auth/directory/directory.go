// Package directory answers credential and account questions from the
// relational user store.
package directory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/aussiebroadwan/bartab-security/internal/auth/domain"
	"github.com/aussiebroadwan/bartab-security/internal/auth/service"
	"github.com/aussiebroadwan/bartab-security/internal/auth/store"
	"github.com/aussiebroadwan/bartab-security/pkg/cryptox"
	"github.com/aussiebroadwan/bartab-security/pkg/slogx"
)

// Directory implements service.Directory and service.EmailLookup.
type Directory struct {
	Users store.Users
	Now   func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

var (
	_ service.Directory   = (*Directory)(nil)
	_ service.EmailLookup = (*Directory)(nil)
)

func New(users store.Users) *Directory {
	return &Directory{Users: users}
}

func (d *Directory) Verify(ctx context.Context, username, password string) (domain.Identity, error) {
	u, err := d.Users.GetUserByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, store.ErrNotFound) {
		// Spend the same argon2 work as a real check so response time does
		// not reveal which usernames exist.
		_ = cryptox.VerifyPassword(password, d.dummy())
		return domain.Identity{}, service.ErrBadCredentials
	}
	if err != nil {
		return domain.Identity{}, unavailable(ctx, "get user by username", err)
	}

	switch err := cryptox.VerifyPassword(password, u.PasswordHash); {
	case err == nil:
	case errors.Is(err, cryptox.ErrPasswordMismatch):
		return domain.Identity{}, service.ErrBadCredentials
	default:
		slogx.FromContext(ctx).Error("stored password hash unusable", "user_id", u.ID, "error", err)
		return domain.Identity{}, service.ErrBadCredentials
	}

	return u.Identity(), nil
}

func (d *Directory) Lookup(ctx context.Context, username string) (domain.Identity, error) {
	u, err := d.Users.GetUserByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, store.ErrNotFound) {
		return domain.Identity{}, service.ErrUserNotFound
	}
	if err != nil {
		return domain.Identity{}, unavailable(ctx, "get user by username", err)
	}
	return u.Identity(), nil
}

func (d *Directory) ChangePassword(ctx context.Context, userID, newPassword string) error {
	hash, err := cryptox.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	err = d.Users.UpdatePasswordHash(ctx, userID, hash)
	if errors.Is(err, store.ErrNotFound) {
		return service.ErrUserNotFound
	}
	if err != nil {
		return unavailable(ctx, "update password hash", err)
	}
	return nil
}

func (d *Directory) FindByEmail(ctx context.Context, email string) (domain.EmailRecord, error) {
	u, err := d.Users.GetUserByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, store.ErrNotFound) {
		return domain.EmailRecord{}, service.ErrUserNotFound
	}
	if err != nil {
		return domain.EmailRecord{}, unavailable(ctx, "get user by email", err)
	}
	return domain.EmailRecord{UserID: u.ID, Username: u.Username, Email: u.Email}, nil
}

func (d *Directory) dummy() string {
	d.dummyOnce.Do(func() {
		d.dummyHash, _ = cryptox.HashPassword("not-a-real-password")
	})
	return d.dummyHash
}

func unavailable(ctx context.Context, op string, err error) error {
	slogx.FromContext(ctx).Error("directory backend failed", "op", op, "error", err)
	return fmt.Errorf("%w: %s: %v", service.ErrUnavailable, op, err)
}
