package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/bartab-security/internal/auth/domain"
	"github.com/aussiebroadwan/bartab-security/internal/auth/service"
	"github.com/aussiebroadwan/bartab-security/pkg/authsdk"
	"github.com/aussiebroadwan/bartab-security/pkg/httpx"
	"github.com/aussiebroadwan/bartab-security/pkg/slogx"
)

type BootstrapHandler struct {
	BootstrapService *service.BootstrapService
}

// ServeHTTP creates the first administrator. It is only reachable when a
// bootstrap token is configured and only succeeds once.
func (h *BootstrapHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	l := slogx.FromContext(r.Context())
	l.Info("Starting to bootstrap")

	// 1. Check if enabled
	if h.BootstrapService.Token == "" {
		authsdk.NewAPIError(http.StatusNotFound, authsdk.ErrorCodeNotFound,
			"Bootstrap endpoint is not enabled").WriteError(w)
		return
	}

	// 2. Require bootstrap token header
	token := r.Header.Get("X-Bootstrap-Token")
	if token == "" {
		authsdk.NewAPIError(http.StatusUnauthorized, authsdk.ErrorCodeUnauthorized,
			"Bootstrap token is required in X-Bootstrap-Token header").WriteError(w)
		return
	}

	// 3. Parse request body and validate
	var req authsdk.BootstrapRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if errs := req.Validate(); errs != nil {
		httpx.WriteJSON(w, http.StatusBadRequest, authsdk.ValidationErrorResponse{
			Code:    authsdk.ErrorCodeValidationFailed,
			Message: "validation failed for some fields",
			Details: errs,
		})
		return
	}

	// 4. Perform bootstrap
	res, err := h.BootstrapService.Bootstrap(r.Context(), token, domain.BootstrapData{
		AdminUsername: strings.TrimSpace(req.AdminUsername),
		AdminEmail:    strings.TrimSpace(req.AdminEmail),
		AdminPassword: req.AdminPassword,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrBootstrapAlready):
			authsdk.NewAPIError(http.StatusUnauthorized, authsdk.ErrorCodeUnauthorized,
				"System has already been bootstrapped").WriteError(w)
		case errors.Is(err, service.ErrBootstrapUnauthorized):
			authsdk.NewAPIError(http.StatusUnauthorized, authsdk.ErrorCodeUnauthorized,
				"Invalid bootstrap token").WriteError(w)
		case errors.Is(err, service.ErrBootstrapFailedToCreateAdmin):
			authsdk.ErrServerError.WithDescription("Failed to create admin user").WriteError(w)
		default:
			writeServiceError(w, r, err)
		}
		return
	}

	// 5. Respond with the admin credentials (password only shown once)
	httpx.WriteJSON(w, http.StatusCreated, authsdk.BootstrapResponse{
		AdminUserID:   res.UserID,
		AdminUsername: res.Username,
		AdminPassword: res.Password,
	})
}
