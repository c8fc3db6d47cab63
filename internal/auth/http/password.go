package http

import (
	"net/http"
	"strings"

	"github.com/aussiebroadwan/bartab-security/internal/auth/service"
	"github.com/aussiebroadwan/bartab-security/pkg/authsdk"
	"github.com/aussiebroadwan/bartab-security/pkg/httpx"
)

// recoverMessage is returned for every recovery request, known email or not.
const recoverMessage = "If the address belongs to an account, a reset link has been sent."

// PasswordHandler serves password recovery, reset and update.
type PasswordHandler struct {
	Resets    *service.ResetTokenLifecycle
	Passwords *service.PasswordService
}

// HandleRecover serves POST /v1/password/recover.
func (h *PasswordHandler) HandleRecover(w http.ResponseWriter, r *http.Request) {
	var req authsdk.RecoverPasswordRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if strings.TrimSpace(req.Email) == "" {
		authsdk.ErrInvalidRequest.WithDescription("email is required").WriteError(w)
		return
	}

	if _, err := h.Resets.RequestReset(r.Context(), req.Email, clientInfo(r)); err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusAccepted, authsdk.RecoverPasswordResponse{Message: recoverMessage})
}

// HandleReset serves POST /v1/password/reset.
func (h *PasswordHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	var req authsdk.ResetPasswordRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := h.Resets.Consume(r.Context(), req.Token, req.NewPassword, clientInfo(r)); err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.NoCache(w)
	w.WriteHeader(http.StatusNoContent)
}

// HandleUpdate serves PUT /v1/password for the authenticated caller.
func (h *PasswordHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req authsdk.UpdatePasswordRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if req.CurrentPassword == "" || req.NewPassword == "" {
		authsdk.ErrInvalidRequest.WithDescription("currentPassword and newPassword are required").WriteError(w)
		return
	}

	claims, _ := httpx.ClaimsFromContext(r.Context())
	err := h.Passwords.UpdatePassword(r.Context(), claims.Username, req.CurrentPassword, req.NewPassword, clientInfo(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.NoCache(w)
	w.WriteHeader(http.StatusNoContent)
}
