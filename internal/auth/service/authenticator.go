package service

import (
	"context"
	"strings"

	"github.com/aussiebroadwan/bartab-security/internal/auth/domain"
)

// CredentialAuthenticator turns a username and password into an identity.
type CredentialAuthenticator struct {
	Directory Directory
}

// Authenticate verifies the credentials with the directory, then rejects
// disabled accounts. It never retries.
func (a *CredentialAuthenticator) Authenticate(
	ctx context.Context,
	username, password string,
) (domain.Identity, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return domain.Identity{}, ErrBadCredentials
	}

	id, err := a.Directory.Verify(ctx, username, password)
	if err != nil {
		return domain.Identity{}, err
	}

	if !id.Enabled {
		return domain.Identity{}, &AccountDisabledError{Username: id.Username}
	}

	return id, nil
}
