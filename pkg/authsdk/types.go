package authsdk

import (
	"time"

	"github.com/aussiebroadwan/bartab-security/pkg/jwtx"
)

// ============================================================================
// Internal Response Types
// ============================================================================

// ValidationErrorResponse is returned when request field validation fails,
// typically from the bootstrap endpoint.
type ValidationErrorResponse struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// ============================================================================
// Session Types
// ============================================================================

type SignInRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	DeviceID string `json:"deviceId,omitempty"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
	DeviceID     string `json:"deviceId,omitempty"`
}

type SignOutRequest struct {
	RefreshToken string `json:"refreshToken,omitempty"`
}

// RevokeRequest is the body of the administrative revocation endpoint.
// At least one token must be set.
type RevokeRequest struct {
	AccessToken  string `json:"accessToken,omitempty"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

// TokenResponse is returned by sign-in and refresh.
type TokenResponse struct {
	AccessToken      string `json:"accessToken"`
	RefreshToken     string `json:"refreshToken"`
	TokenType        string `json:"tokenType"`
	ExpiresIn        int64  `json:"expiresIn"`        // seconds
	RefreshExpiresIn int64  `json:"refreshExpiresIn"` // seconds
}

type ValidateRequest struct {
	Token string `json:"token"`
}

// ValidateResponse reports the status of a token. Identity fields are only
// set when Valid is true.
type ValidateResponse struct {
	Status    string     `json:"status"` // VALID, EXPIRED, REVOKED or INVALID
	Valid     bool       `json:"valid"`
	Reason    string     `json:"reason,omitempty"`
	TokenType string     `json:"tokenType,omitempty"`
	UserID    string     `json:"userId,omitempty"`
	Username  string     `json:"username,omitempty"`
	Email     string     `json:"email,omitempty"`
	Roles     []string   `json:"roles,omitempty"`
	DeviceID  string     `json:"deviceId,omitempty"`
	JTI       string     `json:"jti,omitempty"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

// AuditEvent is one entry of an account's security history.
type AuditEvent struct {
	ID            string    `json:"id"`
	Type          string    `json:"type"`
	UserID        string    `json:"userId,omitempty"`
	Username      string    `json:"username,omitempty"`
	Email         string    `json:"email,omitempty"`
	Success       bool      `json:"success"`
	FailureReason string    `json:"failureReason,omitempty"`
	IPAddress     string    `json:"ipAddress,omitempty"`
	UserAgent     string    `json:"userAgent,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// AuditHistoryResponse lists audit events, newest first.
type AuditHistoryResponse struct {
	Events []AuditEvent `json:"events"`
}

// ============================================================================
// Password Types
// ============================================================================

type RecoverPasswordRequest struct {
	Email string `json:"email"`
}

// RecoverPasswordResponse is identical whether or not the email is known.
type RecoverPasswordResponse struct {
	Message string `json:"message"`
}

type ResetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

type UpdatePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// ============================================================================
// Bootstrap Types
// ============================================================================

// BootstrapRequest creates the first administrator. A blank password is
// generated by the server and returned once.
type BootstrapRequest struct {
	AdminUsername string `json:"admin_username"`
	AdminEmail    string `json:"admin_email,omitempty"`
	AdminPassword string `json:"admin_password,omitempty"`
}

type BootstrapResponse struct {
	AdminUserID   string `json:"admin_user_id"`
	AdminUsername string `json:"admin_username"`
	AdminPassword string `json:"admin_password"`
}

// ============================================================================
// Health Types
// ============================================================================

// HealthResponse is used by both /livez and /readyz (readyz adds Checks).
type HealthResponse struct {
	// Status indicates the overall health status (e.g., "ok")
	Status string `json:"status"`

	// Uptime is the service uptime duration as a string (e.g., "1h23m45s")
	Uptime string `json:"uptime,omitempty"`

	Version string `json:"version,omitempty"`

	// Checks contains readiness check results (only for /readyz)
	Checks *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks holds the status of each backing service.
type HealthChecks struct {
	Database  string `json:"database"`
	Blacklist string `json:"blacklist"`
}

// ============================================================================
// JWKS Types
// ============================================================================

// JWKSResponse contains the public keys used to verify EdDSA tokens. It is
// empty when tokens are signed with a shared HS256 secret.
type JWKSResponse jwtx.JWKS
