package service

import (
	"errors"
	"strings"

	"github.com/aussiebroadwan/bartab-security/pkg/jwtx"
)

var (
	// ErrMalformed is the decode failure of the token codec.
	ErrMalformed = jwtx.ErrMalformed

	ErrExpired               = errors.New("token expired")
	ErrRevoked               = errors.New("token revoked")
	ErrBadCredentials        = errors.New("invalid username or password")
	ErrAccountDisabled       = errors.New("account disabled")
	ErrInvalidRefreshRequest = errors.New("invalid refresh request")
	ErrUserNotFound          = errors.New("user not found")
	ErrInvalidRequest        = errors.New("invalid request")

	ErrResetTokenNotFound = errors.New("reset token not found")
	ErrResetTokenExpired  = errors.New("reset token expired")
	ErrResetTokenUsed     = errors.New("reset token already used")

	// ErrPasswordPolicy is matched by every *PasswordPolicyError.
	ErrPasswordPolicy = errors.New("password does not meet policy")

	// ErrUnavailable means a collaborator (directory, database, blacklist)
	// could not answer. It is the only hard failure of validation and
	// satisfies httpx.UnavailableError.
	ErrUnavailable error = &unavailableError{msg: "service unavailable"}
)

type unavailableError struct {
	msg string
}

func (e *unavailableError) Error() string { return e.msg }

func (e *unavailableError) Unavailable() bool { return true }

// InvalidResetTokenMessage is the single user-visible message for every
// failed reset token consumption.
const InvalidResetTokenMessage = "invalid or expired token"

// AccountDisabledError names the disabled account. It matches
// ErrAccountDisabled with errors.Is.
type AccountDisabledError struct {
	Username string
}

func (e *AccountDisabledError) Error() string {
	return "account disabled: " + e.Username
}

func (e *AccountDisabledError) Unwrap() error { return ErrAccountDisabled }

// PasswordPolicyError lists every rule a password broke.
type PasswordPolicyError struct {
	Violations []string
}

func (e *PasswordPolicyError) Error() string {
	return ErrPasswordPolicy.Error() + ": " + strings.Join(e.Violations, "; ")
}

func (e *PasswordPolicyError) Unwrap() error { return ErrPasswordPolicy }

// IsResetTokenFailure reports whether err is one of the consume failures that
// share InvalidResetTokenMessage.
func IsResetTokenFailure(err error) bool {
	return errors.Is(err, ErrResetTokenNotFound) ||
		errors.Is(err, ErrResetTokenExpired) ||
		errors.Is(err, ErrResetTokenUsed)
}
