package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/bartab-security/internal/auth/domain"
	"github.com/aussiebroadwan/bartab-security/internal/auth/service"
	"github.com/aussiebroadwan/bartab-security/pkg/authsdk"
	"github.com/aussiebroadwan/bartab-security/pkg/httpx"
	"github.com/aussiebroadwan/bartab-security/pkg/slogx"
)

// writeServiceError maps the service error set onto API errors. Anything
// unrecognised is logged and reported as a server error.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var policyErr *service.PasswordPolicyError

	switch {
	case errors.As(err, &policyErr):
		apiErr := authsdk.ErrPasswordPolicy.WithDescription(policyErr.Error())
		apiErr.Violations = policyErr.Violations
		apiErr.WriteError(w)
	case service.IsResetTokenFailure(err):
		authsdk.ErrInvalidResetToken.WithDescription(service.InvalidResetTokenMessage).WriteError(w)
	case errors.Is(err, service.ErrUnavailable):
		slogx.FromContext(r.Context()).Error("backing service unavailable", "error", err)
		authsdk.ErrServiceUnavailable.WriteError(w)
	case errors.Is(err, service.ErrAccountDisabled):
		authsdk.ErrAccountDisabled.WriteError(w)
	case errors.Is(err, service.ErrBadCredentials):
		authsdk.ErrInvalidCredentials.WriteError(w)
	case errors.Is(err, service.ErrInvalidRefreshRequest):
		authsdk.ErrInvalidGrant.WriteError(w)
	case errors.Is(err, service.ErrInvalidRequest):
		authsdk.ErrInvalidRequest.WithDescription(err.Error()).WriteError(w)
	default:
		slogx.FromContext(r.Context()).Error("unhandled service error", "error", err)
		authsdk.ErrServerError.WriteError(w)
	}
}

// decodeBody decodes a JSON request body, writing the error response itself
// when it fails.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := httpx.DecodeJSON(w, r, dst); err != nil {
		authsdk.ErrInvalidRequest.WithDescription(err.Error()).WriteError(w)
		return false
	}
	return true
}

func clientInfo(r *http.Request) domain.ClientInfo {
	return domain.ClientInfo{
		IPAddress: httpx.IPKeyExtractor(r),
		UserAgent: r.UserAgent(),
	}
}
