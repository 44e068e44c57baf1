package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/drouple/gatekeeper/internal/core/domain"
	"github.com/drouple/gatekeeper/internal/core/ports"
)

// AdminHandler exposes session administration: forcing a member's devices to
// reauthenticate by revoking every refresh token they hold.
type AdminHandler struct {
	tokens ports.TokenService
	users  ports.UserService
}

func NewAdminHandler(tokens ports.TokenService, users ports.UserService) *AdminHandler {
	return &AdminHandler{tokens: tokens, users: users}
}

func (h *AdminHandler) RevokeUserSessions(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())

	targetID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid user id", nil)
		return
	}

	target, err := h.users.GetByID(r.Context(), targetID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	// Admins act within their own tenant; SUPER_ADMIN crosses it.
	if err := claims.RequireTenantAccess(target.TenantID); err != nil {
		writeDomainError(w, err)
		return
	}

	if err := h.tokens.RevokeAll(r.Context(), target.ID, domain.RevokeReasonAdmin); err != nil {
		writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"user_id": target.ID, "sessions_revoked": true})
}
