package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/aussiebroadwan/bartab-security/internal/auth/domain"
	"github.com/aussiebroadwan/bartab-security/internal/auth/store"
	"github.com/aussiebroadwan/bartab-security/pkg/cryptox"
	"github.com/aussiebroadwan/bartab-security/pkg/idx"
	"github.com/aussiebroadwan/bartab-security/pkg/slogx"
)

var (
	ErrBootstrapAlready             = errors.New("system already bootstrapped")
	ErrBootstrapUnauthorized        = errors.New("unauthorized bootstrap attempt")
	ErrBootstrapFailedToCreateAdmin = errors.New("failed to create admin user")
)

// BootstrapService seeds the first administrator into an empty directory.
type BootstrapService struct {
	Store  store.Store
	Token  string // pre-configured bootstrap token, empty disables bootstrap
	Policy PasswordPolicy
	Now    func() time.Time
}

func (s *BootstrapService) IsBootstrapped(ctx context.Context) (bool, error) {
	empty, err := s.Store.Users().IsEmpty(ctx)
	if err != nil {
		return false, err
	}
	return !empty, nil
}

// Bootstrap creates an enabled user with the ADMIN and USER roles. A missing
// password is generated and returned once in the result.
func (s *BootstrapService) Bootstrap(
	ctx context.Context,
	token string,
	req domain.BootstrapData,
) (domain.BootstrapResult, error) {
	l := slogx.FromContext(ctx)

	if bootstrapped, err := s.IsBootstrapped(ctx); err != nil {
		return domain.BootstrapResult{}, err
	} else if bootstrapped {
		l.Warn("attempted bootstrap on already-bootstrapped system")
		return domain.BootstrapResult{}, ErrBootstrapAlready
	}

	if s.Token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(s.Token)) != 1 {
		l.Warn("unauthorized bootstrap attempt")
		return domain.BootstrapResult{}, ErrBootstrapUnauthorized
	}

	username := strings.TrimSpace(req.AdminUsername)
	if username == "" {
		return domain.BootstrapResult{}, errors.Join(ErrInvalidRequest, errors.New("admin username is required"))
	}

	password := req.AdminPassword
	if password == "" {
		generated, err := cryptox.GeneratePassword()
		if err != nil {
			return domain.BootstrapResult{}, err
		}
		password = generated
	} else if err := s.Policy.Validate(password); err != nil {
		return domain.BootstrapResult{}, err
	}

	passHash, err := cryptox.HashPassword(password)
	if err != nil {
		l.Error("failed to hash admin password", slog.Any("error", err))
		return domain.BootstrapResult{}, ErrBootstrapFailedToCreateAdmin
	}

	now := clock(s.Now)
	admin := domain.User{
		ID:           idx.NewAt(now).String(),
		Username:     username,
		Email:        strings.TrimSpace(req.AdminEmail),
		DisplayName:  username,
		PasswordHash: passHash,
		Roles:        []string{domain.RoleAdmin, domain.RoleUser},
		Enabled:      true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		// Re-check inside the transaction so two racing bootstraps cannot
		// both create an administrator.
		empty, err := tx.Users().IsEmpty(ctx)
		if err != nil {
			return err
		}
		if !empty {
			return ErrBootstrapAlready
		}

		if err := tx.Users().CreateUser(ctx, admin); err != nil {
			l.Error("failed to create admin user",
				slog.String("admin_user_id", admin.ID),
				slog.Any("error", err),
			)
			return ErrBootstrapFailedToCreateAdmin
		}
		return nil
	})
	if err != nil {
		return domain.BootstrapResult{}, err
	}

	l.Info("successfully bootstrapped system", slog.String("admin_user_id", admin.ID))
	return domain.BootstrapResult{
		UserID:   admin.ID,
		Username: admin.Username,
		Password: password,
	}, nil
}
