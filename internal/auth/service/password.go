package service

import (
	"context"

	"github.com/aussiebroadwan/bartab-security/internal/auth/domain"
	"github.com/aussiebroadwan/bartab-security/pkg/slogx"
)

// PasswordService changes the password of a signed-in user.
type PasswordService struct {
	Directory Directory
	Policy    PasswordPolicy
	Audit     *Auditor
}

// UpdatePassword re-verifies the current password before replacing it.
func (s *PasswordService) UpdatePassword(
	ctx context.Context,
	username, currentPassword, newPassword string,
	client domain.ClientInfo,
) error {
	if currentPassword == newPassword {
		return &PasswordPolicyError{Violations: []string{"must differ from the current password"}}
	}
	if err := s.Policy.Validate(newPassword); err != nil {
		return err
	}

	id, err := s.Directory.Verify(ctx, username, currentPassword)
	if err != nil {
		return err
	}
	if !id.Enabled {
		return &AccountDisabledError{Username: id.Username}
	}

	if err := s.Directory.ChangePassword(ctx, id.UserID, newPassword); err != nil {
		return err
	}

	s.Audit.Record(ctx, domain.AuditEvent{
		Type:     domain.AuditPasswordUpdated,
		UserID:   id.UserID,
		Username: id.Username,
		Email:    id.Email,
		Success:  true,
	}, client)
	slogx.FromContext(ctx).Info("password updated", "user_id", id.UserID)
	return nil
}
