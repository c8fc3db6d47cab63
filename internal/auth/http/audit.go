package http

import (
	"net/http"
	"strconv"

	"github.com/aussiebroadwan/bartab-security/internal/auth/domain"
	"github.com/aussiebroadwan/bartab-security/internal/auth/service"
	"github.com/aussiebroadwan/bartab-security/pkg/authsdk"
	"github.com/aussiebroadwan/bartab-security/pkg/httpx"
)

// AuditHandler serves GET /v1/admin/audit/{userId}, the newest security
// events of one account. An optional ?limit= caps the page at 100.
type AuditHandler struct {
	Audit *service.Auditor
}

func (h *AuditHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userId")

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			authsdk.ErrInvalidRequest.WithDescription("limit must be a positive integer").WriteError(w)
			return
		}
		limit = n
	}

	events, err := h.Audit.History(r.Context(), userID, limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := authsdk.AuditHistoryResponse{Events: make([]authsdk.AuditEvent, 0, len(events))}
	for _, e := range events {
		out.Events = append(out.Events, auditEvent(e))
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, out)
}

func auditEvent(e domain.AuditEvent) authsdk.AuditEvent {
	return authsdk.AuditEvent{
		ID:            e.ID,
		Type:          string(e.Type),
		UserID:        e.UserID,
		Username:      e.Username,
		Email:         e.Email,
		Success:       e.Success,
		FailureReason: e.FailureReason,
		IPAddress:     e.IPAddress,
		UserAgent:     e.UserAgent,
		CreatedAt:     e.CreatedAt,
	}
}
