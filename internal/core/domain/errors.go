package domain

import "errors"

var (
	// Token verification failures. This layer never retries verification;
	// refreshing is a client decision.
	ErrTokenExpired          = errors.New("token expired")
	ErrTokenMalformed        = errors.New("token malformed")
	ErrTokenSignatureInvalid = errors.New("token signature invalid")
	ErrMissingClaims         = errors.New("token missing required claims")

	// Refresh-token lifecycle.
	ErrRefreshTokenNotFound = errors.New("refresh token not found")
	ErrTokenReuseDetected   = errors.New("refresh token reuse detected")

	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserInactive       = errors.New("user is inactive")

	// Authorization failures.
	ErrInsufficientRole   = errors.New("insufficient role")
	ErrTenantAccessDenied = errors.New("tenant access denied")
	ErrChurchAccessDenied = errors.New("church access denied")

	ErrRateLimited = errors.New("rate limit exceeded")

	ErrIdempotencyKeyConflict = errors.New("idempotency key conflict")
	ErrIdempotencyKeyInvalid  = errors.New("invalid idempotency key")

	ErrInternal = errors.New("internal server error")
)
