package http

import (
	"net/http"
	"strings"

	"github.com/aussiebroadwan/bartab-security/internal/auth/domain"
	"github.com/aussiebroadwan/bartab-security/internal/auth/service"
	"github.com/aussiebroadwan/bartab-security/pkg/authsdk"
	"github.com/aussiebroadwan/bartab-security/pkg/httpx"
)

// SessionHandler serves sign-in, refresh, sign-out and token validation.
type SessionHandler struct {
	Sessions *service.SessionService
	Engine   *service.ValidationEngine
}

// HandleSignIn serves POST /v1/auth/sign-in.
func (h *SessionHandler) HandleSignIn(w http.ResponseWriter, r *http.Request) {
	var req authsdk.SignInRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		authsdk.ErrInvalidRequest.WithDescription("username and password are required").WriteError(w)
		return
	}

	pair, _, err := h.Sessions.SignIn(r.Context(), req.Username, req.Password, req.DeviceID, clientInfo(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, tokenResponse(pair))
}

// HandleRefresh serves POST /v1/auth/refresh.
func (h *SessionHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	var req authsdk.RefreshRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if strings.TrimSpace(req.RefreshToken) == "" {
		authsdk.ErrInvalidRequest.WithDescription("refreshToken is required").WriteError(w)
		return
	}

	pair, err := h.Sessions.Refresh(r.Context(), req.RefreshToken, req.DeviceID, clientInfo(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, tokenResponse(pair))
}

// HandleSignOut serves POST /v1/auth/sign-out. The caller is authenticated by
// the bearer access token, which is revoked together with the optional
// refresh token in the body.
func (h *SessionHandler) HandleSignOut(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req authsdk.SignOutRequest
	if r.ContentLength != 0 && !decodeBody(w, r, &req) {
		return
	}

	claims, _ := httpx.ClaimsFromContext(ctx)
	err := h.Sessions.SignOut(ctx, claims, httpx.RawTokenFromContext(ctx), req.RefreshToken, clientInfo(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.NoCache(w)
	w.WriteHeader(http.StatusNoContent)
}

// HandleValidate serves POST /v1/auth/validate. Every outcome is a 200; only
// an unreachable blacklist is reported as 503.
func (h *SessionHandler) HandleValidate(w http.ResponseWriter, r *http.Request) {
	var req authsdk.ValidateRequest
	if !decodeBody(w, r, &req) {
		return
	}

	res := h.Engine.Validate(r.Context(), req.Token)
	if res.Status == domain.ValidationInvalid && res.Reason == service.ReasonUnavailable {
		authsdk.ErrServiceUnavailable.WriteError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, validateResponse(res))
}

// RevokeHandler serves POST /v1/admin/revoke.
type RevokeHandler struct {
	Sessions *service.SessionService
}

func (h *RevokeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req authsdk.RevokeRequest
	if !decodeBody(w, r, &req) {
		return
	}

	admin, _ := httpx.ClaimsFromContext(r.Context())
	if err := h.Sessions.RevokeTokens(r.Context(), admin, req.AccessToken, req.RefreshToken, clientInfo(r)); err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.NoCache(w)
	w.WriteHeader(http.StatusNoContent)
}

func tokenResponse(p domain.TokenPair) authsdk.TokenResponse {
	return authsdk.TokenResponse{
		AccessToken:      p.AccessToken,
		RefreshToken:     p.RefreshToken,
		TokenType:        p.TokenType,
		ExpiresIn:        p.ExpiresIn,
		RefreshExpiresIn: p.RefreshExpiresIn,
	}
}

func validateResponse(res domain.ValidationResult) authsdk.ValidateResponse {
	out := authsdk.ValidateResponse{
		Status: string(res.Status),
		Valid:  res.IsValid(),
		Reason: res.Reason,
	}
	if !res.IsValid() {
		return out
	}

	c := res.Claims
	exp := c.ExpiresAtTime()
	out.TokenType = string(c.Type)
	out.UserID = c.UserID
	out.Username = c.Username
	out.Email = c.Email
	out.Roles = c.Roles
	out.DeviceID = c.DeviceID
	out.JTI = c.ID
	out.ExpiresAt = &exp
	return out
}
