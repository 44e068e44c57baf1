package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/drouple/gatekeeper/internal/adapters/repository/memory"
	"github.com/drouple/gatekeeper/internal/core/domain"
	"github.com/drouple/gatekeeper/internal/core/ports"
	"github.com/drouple/gatekeeper/internal/core/services"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type noopVerifier struct{}

func (noopVerifier) Verify(context.Context, string, string) (*ports.TokenPayload, error) {
	return nil, fmt.Errorf("not configured")
}

type testApp struct {
	handler http.Handler
	tokens  ports.TokenService
	member  *domain.User
	admin   *domain.User
	tourist *domain.User // admin of another tenant
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	member := seedUser(t, "member1@example.com", "T1", "C1", domain.RoleMember)
	admin := seedUser(t, "admin1@example.com", "T1", "C1", domain.RoleAdmin)
	tourist := seedUser(t, "admin2@example.com", "T2", "C9", domain.RoleAdmin)

	userRepo := memory.NewUserRepository(member, admin, tourist)
	refreshRepo := memory.NewRefreshTokenRepository()

	tokens := services.NewTokenService(userRepo, refreshRepo, noopVerifier{}, "",
		[]byte(testSecret), 15*time.Minute, 7*24*time.Hour)
	limiter := services.NewRateLimitService(memory.NewRateLimitStore(), services.DefaultPolicyTable())
	idem := services.NewIdempotencyService(memory.NewIdempotencyRepository())
	users := services.NewUserService(userRepo)

	handler := NewHandler(tokens, limiter, idem,
		NewAuthHandler(tokens), NewProfileHandler(users), NewAdminHandler(tokens, users))

	return &testApp{handler: handler, tokens: tokens, member: member, admin: admin, tourist: tourist}
}

func seedUser(t *testing.T, email, tenantID, churchID string, roles ...domain.Role) *domain.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)
	return &domain.User{
		ID:           uuid.New(),
		Email:        email,
		Name:         "Test User",
		Roles:        roles,
		TenantID:     tenantID,
		ChurchID:     churchID,
		PasswordHash: string(hash),
		IsActive:     true,
		CreatedAt:    time.Now(),
	}
}

func (a *testApp) do(t *testing.T, method, path string, body any, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func (a *testApp) login(t *testing.T, email string) *ports.TokenPair {
	t.Helper()
	pair, err := a.tokens.Login(context.Background(), email, "password123", "test-device")
	require.NoError(t, err)
	return pair
}

func bearer(pair *ports.TokenPair) map[string]string {
	return map[string]string{"Authorization": "Bearer " + pair.AccessToken}
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) (json.RawMessage, string) {
	t.Helper()
	var env struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   struct {
			Code string `json:"code"`
		} `json:"error"`
		Timestamp time.Time `json:"timestamp"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.False(t, env.Timestamp.IsZero())
	if env.Success {
		assert.Empty(t, env.Error.Code)
	}
	return env.Data, env.Error.Code
}

func TestHealthz(t *testing.T) {
	app := newTestApp(t)
	rec := app.do(t, http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLoginEndpoint(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(t, http.MethodPost, "/api/v1/auth/login",
		map[string]string{"email": "member1@example.com", "password": "password123"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	data, _ := decodeEnvelope(t, rec)
	var pair struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		TokenType    string `json:"token_type"`
	}
	require.NoError(t, json.Unmarshal(data, &pair))
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.Equal(t, "Bearer", pair.TokenType)

	rec = app.do(t, http.MethodPost, "/api/v1/auth/login",
		map[string]string{"email": "member1@example.com", "password": "nope"}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	_, code := decodeEnvelope(t, rec)
	assert.Equal(t, "INVALID_CREDENTIALS", code)

	rec = app.do(t, http.MethodPost, "/api/v1/auth/login", map[string]string{"email": "x@y.z"}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthenticatorRejections(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(t, http.MethodGet, "/api/v1/me", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	_, code := decodeEnvelope(t, rec)
	assert.Equal(t, "MISSING_TOKEN", code)

	rec = app.do(t, http.MethodGet, "/api/v1/me", nil, map[string]string{"Authorization": "Basic abc"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	_, code = decodeEnvelope(t, rec)
	assert.Equal(t, "INVALID_TOKEN", code)

	rec = app.do(t, http.MethodGet, "/api/v1/me", nil, map[string]string{"Authorization": "Bearer not.a.token"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	_, code = decodeEnvelope(t, rec)
	assert.Equal(t, "INVALID_TOKEN", code)
}

func TestMeEndpoint(t *testing.T) {
	app := newTestApp(t)
	pair := app.login(t, "member1@example.com")

	rec := app.do(t, http.MethodGet, "/api/v1/me", nil, bearer(pair))
	require.Equal(t, http.StatusOK, rec.Code)

	data, _ := decodeEnvelope(t, rec)
	var user domain.User
	require.NoError(t, json.Unmarshal(data, &user))
	assert.Equal(t, app.member.ID, user.ID)
	assert.NotContains(t, string(data), "password", "hashes never leave the server")
}

func TestRefreshReuseOverHTTP(t *testing.T) {
	app := newTestApp(t)
	pair := app.login(t, "member1@example.com")

	rec := app.do(t, http.MethodPost, "/api/v1/auth/refresh",
		map[string]string{"refresh_token": pair.RefreshToken}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = app.do(t, http.MethodPost, "/api/v1/auth/refresh",
		map[string]string{"refresh_token": pair.RefreshToken}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	_, code := decodeEnvelope(t, rec)
	assert.Equal(t, "TOKEN_REUSE_DETECTED", code)
}

func TestLoginRateLimitHeaders(t *testing.T) {
	app := newTestApp(t)
	body := map[string]string{"email": "member1@example.com", "password": "nope"}

	var rec *httptest.ResponseRecorder
	for i := 0; i < 5; i++ {
		rec = app.do(t, http.MethodPost, "/api/v1/auth/login", body, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "5", rec.Header().Get("X-RateLimit-Limit"))
	}
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

	rec = app.do(t, http.MethodPost, "/api/v1/auth/login", body, nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.NotEmpty(t, rec.Header().Get("X-RateLimit-Reset"))
	_, code := decodeEnvelope(t, rec)
	assert.Equal(t, "RATE_LIMITED", code)

	// Another account behind the same address still gets in.
	rec = app.do(t, http.MethodPost, "/api/v1/auth/login",
		map[string]string{"email": "admin1@example.com", "password": "password123"}, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestIdempotentProfileUpdate(t *testing.T) {
	app := newTestApp(t)
	pair := app.login(t, "member1@example.com")

	headers := bearer(pair)
	headers["Idempotency-Key"] = "update-name-0001"
	body := map[string]string{"name": "Renamed Member"}

	first := app.do(t, http.MethodPatch, "/api/v1/me", body, headers)
	require.Equal(t, http.StatusOK, first.Code)
	assert.Empty(t, first.Header().Get("Idempotency-Replayed"))

	replay := app.do(t, http.MethodPatch, "/api/v1/me", map[string]string{"name": "Other"}, headers)
	require.Equal(t, http.StatusOK, replay.Code)
	assert.Equal(t, "true", replay.Header().Get("Idempotency-Replayed"))
	assert.JSONEq(t, first.Body.String(), replay.Body.String())

	// The second body was never applied.
	rec := app.do(t, http.MethodGet, "/api/v1/me", nil, bearer(pair))
	data, _ := decodeEnvelope(t, rec)
	var user domain.User
	require.NoError(t, json.Unmarshal(data, &user))
	assert.Equal(t, "Renamed Member", user.Name)
}

func TestIdempotencyKeyConflictAcrossUsers(t *testing.T) {
	app := newTestApp(t)
	memberPair := app.login(t, "member1@example.com")
	adminPair := app.login(t, "admin1@example.com")

	memberHeaders := bearer(memberPair)
	memberHeaders["Idempotency-Key"] = "shared-key-0001"
	rec := app.do(t, http.MethodPatch, "/api/v1/me", map[string]string{"name": "A"}, memberHeaders)
	require.Equal(t, http.StatusOK, rec.Code)

	adminHeaders := bearer(adminPair)
	adminHeaders["Idempotency-Key"] = "shared-key-0001"
	rec = app.do(t, http.MethodPatch, "/api/v1/me", map[string]string{"name": "B"}, adminHeaders)
	assert.Equal(t, http.StatusConflict, rec.Code)
	_, code := decodeEnvelope(t, rec)
	assert.Equal(t, "IDEMPOTENCY_KEY_CONFLICT", code)
}

func TestInvalidIdempotencyKey(t *testing.T) {
	app := newTestApp(t)
	pair := app.login(t, "member1@example.com")

	headers := bearer(pair)
	headers["Idempotency-Key"] = "bad key"
	rec := app.do(t, http.MethodPatch, "/api/v1/me", map[string]string{"name": "A"}, headers)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	_, code := decodeEnvelope(t, rec)
	assert.Equal(t, "INVALID_IDEMPOTENCY_KEY", code)
}

func TestRevokeSessionsAuthorization(t *testing.T) {
	app := newTestApp(t)
	memberPair := app.login(t, "member1@example.com")
	path := "/api/v1/admin/users/" + app.member.ID.String() + "/revoke-sessions"

	t.Run("members are refused", func(t *testing.T) {
		rec := app.do(t, http.MethodPost, path, nil, bearer(memberPair))
		assert.Equal(t, http.StatusForbidden, rec.Code)
		_, code := decodeEnvelope(t, rec)
		assert.Equal(t, "INSUFFICIENT_ROLE", code)
	})

	t.Run("admins act within their tenant", func(t *testing.T) {
		rec := app.do(t, http.MethodPost, path, nil, bearer(app.login(t, "admin2@example.com")))
		assert.Equal(t, http.StatusForbidden, rec.Code)
		_, code := decodeEnvelope(t, rec)
		assert.Equal(t, "TENANT_ACCESS_DENIED", code)
	})

	t.Run("same-tenant admin kills the sessions", func(t *testing.T) {
		rec := app.do(t, http.MethodPost, path, nil, bearer(app.login(t, "admin1@example.com")))
		require.Equal(t, http.StatusOK, rec.Code)

		_, err := app.tokens.Refresh(context.Background(), memberPair.RefreshToken)
		assert.ErrorIs(t, err, domain.ErrTokenReuseDetected)
	})
}
