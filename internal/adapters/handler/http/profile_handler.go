package http

import (
	"encoding/json"
	"net/http"

	"github.com/drouple/gatekeeper/internal/core/domain"
	"github.com/drouple/gatekeeper/internal/core/ports"
)

// ProfileHandler is the minimal business consumer of the trust layer: it
// relies on the middleware chain for admission, identity and dedup.
type ProfileHandler struct {
	users ports.UserService
}

func NewProfileHandler(users ports.UserService) *ProfileHandler {
	return &ProfileHandler{users: users}
}

func (h *ProfileHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())
	userID, err := claims.UserID()
	if err != nil {
		writeDomainError(w, domain.ErrTokenMalformed)
		return
	}

	user, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, user)
}

type updateProfileRequest struct {
	Name string `json:"name"`
}

func (h *ProfileHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())
	userID, err := claims.UserID()
	if err != nil {
		writeDomainError(w, domain.ErrTokenMalformed)
		return
	}

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body", nil)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "name is required", nil)
		return
	}

	user, err := h.users.UpdateName(r.Context(), userID, req.Name)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, user)
}
