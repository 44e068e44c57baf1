package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/drouple/gatekeeper/internal/core/domain"
)

// Envelopes shared by every endpoint behind the gateway. Mobile clients
// branch on success and error.code, never on message text.

type successEnvelope struct {
	Success   bool      `json:"success"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type errorEnvelope struct {
	Success   bool        `json:"success"`
	Error     errorDetail `json:"error"`
	Timestamp time.Time   `json:"timestamp"`
}

func writeSuccess(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	env := successEnvelope{Success: true, Data: data, Timestamp: time.Now().UTC()}
	if err := json.NewEncoder(w).Encode(env); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	env := errorEnvelope{
		Success:   false,
		Error:     errorDetail{Code: code, Message: message, Details: details},
		Timestamp: time.Now().UTC(),
	}
	if err := json.NewEncoder(w).Encode(env); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}

// writeDomainError maps core sentinels onto the wire taxonomy. Anything
// unrecognized is an internal failure and surfaces as a generic 500 so
// storage details never leak to the client.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrTokenExpired):
		writeError(w, http.StatusUnauthorized, "TOKEN_EXPIRED", "access token has expired", nil)
	case errors.Is(err, domain.ErrTokenReuseDetected):
		writeError(w, http.StatusUnauthorized, "TOKEN_REUSE_DETECTED", "refresh token has already been used", nil)
	case errors.Is(err, domain.ErrTokenMalformed),
		errors.Is(err, domain.ErrTokenSignatureInvalid),
		errors.Is(err, domain.ErrMissingClaims):
		writeError(w, http.StatusUnauthorized, "INVALID_TOKEN", "token is invalid", nil)
	case errors.Is(err, domain.ErrInvalidCredentials),
		errors.Is(err, domain.ErrUserInactive):
		writeError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "invalid credentials", nil)
	case errors.Is(err, domain.ErrInsufficientRole):
		writeError(w, http.StatusForbidden, "INSUFFICIENT_ROLE", "role does not permit this operation", nil)
	case errors.Is(err, domain.ErrTenantAccessDenied):
		writeError(w, http.StatusForbidden, "TENANT_ACCESS_DENIED", "resource belongs to another tenant", nil)
	case errors.Is(err, domain.ErrChurchAccessDenied):
		writeError(w, http.StatusForbidden, "CHURCH_ACCESS_DENIED", "resource belongs to another church", nil)
	case errors.Is(err, domain.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests", nil)
	case errors.Is(err, domain.ErrIdempotencyKeyConflict):
		writeError(w, http.StatusConflict, "IDEMPOTENCY_KEY_CONFLICT", "idempotency key was used by a different operation", nil)
	case errors.Is(err, domain.ErrIdempotencyKeyInvalid):
		writeError(w, http.StatusBadRequest, "INVALID_IDEMPOTENCY_KEY", "idempotency key must be 8-128 characters of [A-Za-z0-9_-]", nil)
	case errors.Is(err, domain.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "USER_NOT_FOUND", "user not found", nil)
	default:
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error", nil)
	}
}
