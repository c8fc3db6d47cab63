package domain

import "github.com/aussiebroadwan/bartab-security/pkg/jwtx"

const TokenTypeBearer = "Bearer"

// TokenPair is what sign-in and refresh return. Each half carries its own jti
// and expiry.
type TokenPair struct {
	AccessToken      string `json:"accessToken"`
	RefreshToken     string `json:"refreshToken"`
	TokenType        string `json:"tokenType"`
	ExpiresIn        int64  `json:"expiresIn"`        // access token lifetime in seconds
	RefreshExpiresIn int64  `json:"refreshExpiresIn"` // refresh token lifetime in seconds
}

// ValidationStatus tags a ValidationResult.
type ValidationStatus string

const (
	ValidationValid   ValidationStatus = "VALID"
	ValidationExpired ValidationStatus = "EXPIRED"
	ValidationRevoked ValidationStatus = "REVOKED"
	ValidationInvalid ValidationStatus = "INVALID"
)

// ValidationResult is the outcome of validating one raw token. Claims are only
// set when Status is ValidationValid; Reason only when ValidationInvalid.
type ValidationResult struct {
	Status ValidationStatus
	Claims jwtx.Claims
	Reason string
}

func Valid(c jwtx.Claims) ValidationResult {
	return ValidationResult{Status: ValidationValid, Claims: c}
}

func Expired() ValidationResult { return ValidationResult{Status: ValidationExpired} }
func Revoked() ValidationResult { return ValidationResult{Status: ValidationRevoked} }

func Invalid(reason string) ValidationResult {
	return ValidationResult{Status: ValidationInvalid, Reason: reason}
}

func (r ValidationResult) IsValid() bool { return r.Status == ValidationValid }
