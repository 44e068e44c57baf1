package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/drouple/gatekeeper/internal/core/domain"
	"github.com/drouple/gatekeeper/internal/core/ports"
)

type contextKey string

const claimsContextKey contextKey = "access_claims"

// maxSecondaryPeekBytes caps how much of a body the rate limiter will read
// to extract the secondary key dimension.
const maxSecondaryPeekBytes = 64 << 10

// Authenticator verifies the bearer access token and stores the claims in
// the request context. Protected routes mount it after the rate limiter.
func Authenticator(tokens ports.TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				writeError(w, http.StatusUnauthorized, "MISSING_TOKEN", "authorization header is required", nil)
				return
			}
			token, found := strings.CutPrefix(header, "Bearer ")
			if !found {
				writeError(w, http.StatusUnauthorized, "INVALID_TOKEN", "authorization header must use the Bearer scheme", nil)
				return
			}

			claims, err := tokens.VerifyAccessToken(token)
			if err != nil {
				writeDomainError(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), claimsContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClaimsFromContext returns the verified claims set by Authenticator.
func ClaimsFromContext(ctx context.Context) *domain.AccessClaims {
	claims, _ := ctx.Value(claimsContextKey).(*domain.AccessClaims)
	return claims
}

// RequireRole rejects requests whose subject does not satisfy the role.
func RequireRole(role domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := ClaimsFromContext(r.Context())
			if claims == nil {
				writeError(w, http.StatusUnauthorized, "MISSING_TOKEN", "authorization header is required", nil)
				return
			}
			if err := claims.RequireRole(role); err != nil {
				writeDomainError(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RateLimit consults the admission controller before anything else runs.
// The decision metadata is surfaced on every limited response so clients
// can implement backoff; a store failure rejects the request.
func RateLimit(limiter ports.RateLimitService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			policy := limiter.Policy(r.Method, r.URL.Path)
			if policy.Unlimited() {
				next.ServeHTTP(w, r)
				return
			}

			req := ports.RateLimitRequest{
				Method:   r.Method,
				Path:     r.URL.Path,
				ClientIP: clientIP(r),
			}
			if policy.Strategy == domain.KeyByIPAndSecondary {
				req.Secondary = peekEmail(r)
			}

			decision, err := limiter.Check(r.Context(), req)
			if err != nil {
				log.Printf("rate limit check failed for %s %s: %v", r.Method, r.URL.Path, err)
				writeDomainError(w, domain.ErrInternal)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(decision.ResetAt.Unix(), 10))

			if !decision.Allowed {
				retryAfter := int(decision.RetryAfter.Seconds())
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				writeError(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests",
					map[string]any{"retry_after_seconds": retryAfter})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Idempotency replays the cached response for a repeated Idempotency-Key and
// caches the outcome of a successful first execution. Routes mount it after
// Authenticator; requests without a key execute unconditionally.
func Idempotency(idem ports.IdempotencyService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("Idempotency-Key")
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims := ClaimsFromContext(r.Context())
			if claims == nil {
				writeError(w, http.StatusUnauthorized, "MISSING_TOKEN", "authorization header is required", nil)
				return
			}
			userID, err := claims.UserID()
			if err != nil {
				writeDomainError(w, domain.ErrTokenMalformed)
				return
			}

			route := r.Method + " " + r.URL.Path
			check, err := idem.Check(r.Context(), key, userID, route)
			if err != nil {
				writeDomainError(w, err)
				return
			}
			if check.IsDuplicate {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Idempotency-Replayed", "true")
				w.WriteHeader(check.Cached.ResponseStatus)
				if _, err := w.Write(check.Cached.ResponseBody); err != nil {
					log.Printf("failed to write replayed response: %v", err)
				}
				return
			}

			recorder := &responseRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(recorder, r)

			// Only successful executions become replayable; a failed
			// handler may be retried with the same key.
			if recorder.status < http.StatusBadRequest {
				idem.Store(r.Context(), key, userID, route, recorder.status, recorder.body.Bytes())
			}
		})
	}
}

// responseRecorder tees the response so the idempotency middleware can cache
// what the handler wrote.
type responseRecorder struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (r *responseRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

// clientIP is the remote host, which chi's RealIP middleware has already
// rewritten from X-Forwarded-For when a trusted proxy set it.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// peekEmail reads the email field out of a JSON body without consuming it,
// so the login limiter can bucket per (ip, email).
func peekEmail(r *http.Request) string {
	if r.Body == nil {
		return ""
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxSecondaryPeekBytes))
	if err != nil {
		return ""
	}
	r.Body = struct {
		io.Reader
		io.Closer
	}{io.MultiReader(bytes.NewReader(body), r.Body), r.Body}

	var payload struct {
		Email string `json:"email"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return payload.Email
}
