package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repik/lavanderia/internal/auth"
	"github.com/repik/lavanderia/internal/domain"
	"github.com/repik/lavanderia/internal/server/middleware"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// contextHandler captures context values set by middleware so tests can
// assert that the correct tenant, user, and role were injected.
type contextHandler struct {
	tenantID uuid.UUID
	userID   uuid.UUID
	role     domain.Role
	called   bool
}

func (h *contextHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.called = true
	h.tenantID, _ = middleware.TenantIDFromContext(r.Context())
	h.userID, _ = middleware.UserIDFromContext(r.Context())
	h.role, _ = middleware.RoleFromContext(r.Context())
	w.WriteHeader(http.StatusOK)
}

// setTenant injects a session for tenantID into the request context.
func setTenant(r *http.Request, tenantID uuid.UUID) *http.Request {
	ctx := middleware.WithSession(r.Context(), middleware.Session{
		TenantID: tenantID,
		UserID:   uuid.New(),
		Role:     domain.RoleEmployee,
	})
	return r.WithContext(ctx)
}

// ===========================================================================
// 1. Context helpers
// ===========================================================================

func TestSessionFromContext(t *testing.T) {
	t.Parallel()

	t.Run("present", func(t *testing.T) {
		t.Parallel()

		want := middleware.Session{TenantID: uuid.New(), UserID: uuid.New(), Role: domain.RoleOwner}
		ctx := middleware.WithSession(t.Context(), want)

		got, ok := middleware.SessionFromContext(ctx)
		require.True(t, ok)
		assert.Equal(t, want, got)

		tid, ok := middleware.TenantIDFromContext(ctx)
		assert.True(t, ok)
		assert.Equal(t, want.TenantID, tid)

		uid, ok := middleware.UserIDFromContext(ctx)
		assert.True(t, ok)
		assert.Equal(t, want.UserID, uid)

		role, ok := middleware.RoleFromContext(ctx)
		assert.True(t, ok)
		assert.Equal(t, domain.RoleOwner, role)
	})

	t.Run("absent", func(t *testing.T) {
		t.Parallel()

		_, ok := middleware.SessionFromContext(t.Context())
		assert.False(t, ok)

		tid, ok := middleware.TenantIDFromContext(t.Context())
		assert.False(t, ok)
		assert.Equal(t, uuid.Nil, tid)
	})
}

// ===========================================================================
// 2. RequireTenant middleware
// ===========================================================================

func TestRequireTenant_PassesWithValidTenantID(t *testing.T) {
	t.Parallel()

	handler := middleware.RequireTenant()(okHandler)
	req := setTenant(httptest.NewRequest(http.MethodGet, "/", http.NoBody), uuid.New())
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireTenant_BlocksWhenTenantAbsent(t *testing.T) {
	t.Parallel()

	handler := middleware.RequireTenant()(okHandler)
	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"ok":false,"message":"valid tenant required"}`, rec.Body.String())
}

func TestRequireTenant_BlocksNilTenantID(t *testing.T) {
	t.Parallel()

	handler := middleware.RequireTenant()(okHandler)
	req := setTenant(httptest.NewRequest(http.MethodGet, "/", http.NoBody), uuid.Nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

// ===========================================================================
// 3. Rate limiting
// ===========================================================================

func TestRateLimit_NoTenantInContext_PassesThrough(t *testing.T) {
	t.Parallel()

	handler := middleware.RateLimit(t.Context(), 1, 1)(okHandler)
	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimit_BurstExceeded_Returns429(t *testing.T) {
	t.Parallel()

	tenantID := uuid.New()
	// Very low rate (effectively zero refill during the test) with burst of 2.
	handler := middleware.RateLimit(t.Context(), 0.001, 2)(okHandler)

	for i := range 2 {
		req := setTenant(httptest.NewRequest(http.MethodGet, "/", http.NoBody), tenantID)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equalf(t, http.StatusOK, rec.Code, "request %d should pass", i+1)
	}

	req := setTenant(httptest.NewRequest(http.MethodGet, "/", http.NoBody), tenantID)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.JSONEq(t, `{"ok":false,"message":"rate limit exceeded"}`, rec.Body.String())
}

func TestRateLimit_IndependentPerTenant(t *testing.T) {
	t.Parallel()

	tenantA := uuid.New()
	tenantB := uuid.New()
	handler := middleware.RateLimit(t.Context(), 0.001, 1)(okHandler)

	recA := httptest.NewRecorder()
	handler.ServeHTTP(recA, setTenant(httptest.NewRequest(http.MethodGet, "/", http.NoBody), tenantA))
	require.Equal(t, http.StatusOK, recA.Code)

	recA2 := httptest.NewRecorder()
	handler.ServeHTTP(recA2, setTenant(httptest.NewRequest(http.MethodGet, "/", http.NoBody), tenantA))
	assert.Equal(t, http.StatusTooManyRequests, recA2.Code)

	recB := httptest.NewRecorder()
	handler.ServeHTTP(recB, setTenant(httptest.NewRequest(http.MethodGet, "/", http.NoBody), tenantB))
	assert.Equal(t, http.StatusOK, recB.Code)
}

func TestRateLimitByIP_SharesBucketAcrossPorts(t *testing.T) {
	t.Parallel()

	handler := middleware.RateLimitByIP(t.Context(), 0.001, 1)(okHandler)

	first := httptest.NewRequest(http.MethodPost, "/", http.NoBody)
	first.RemoteAddr = "10.0.0.7:51000"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, first)
	require.Equal(t, http.StatusOK, rec.Code)

	second := httptest.NewRequest(http.MethodPost, "/", http.NoBody)
	second.RemoteAddr = "10.0.0.7:51001"
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, second)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	other := httptest.NewRequest(http.MethodPost, "/", http.NoBody)
	other.RemoteAddr = "10.0.0.8:51000"
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, other)
	assert.Equal(t, http.StatusOK, rec.Code)
}

// ===========================================================================
// 4. Auth middleware
// ===========================================================================

const testJWTSecret = "test-jwt-secret-for-middleware-tests"

func TestAuth_ValidToken_PopulatesContext(t *testing.T) {
	t.Parallel()

	tenantID := uuid.New()
	userID := uuid.New()

	token, err := auth.IssueAccessToken(testJWTSecret, tenantID, userID, domain.RoleOwner, 15*time.Minute)
	require.NoError(t, err)

	capture := &contextHandler{}
	handler := middleware.Auth(testJWTSecret)(capture)

	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	require.True(t, capture.called, "inner handler must be called")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, tenantID, capture.tenantID)
	assert.Equal(t, userID, capture.userID)
	assert.Equal(t, domain.RoleOwner, capture.role)
}

func TestAuth_Rejections(t *testing.T) {
	t.Parallel()

	tenantID, userID := uuid.New(), uuid.New()

	expired, err := auth.IssueAccessToken(testJWTSecret, tenantID, userID, domain.RoleEmployee, -time.Second)
	require.NoError(t, err)
	wrongSecret, err := auth.IssueAccessToken("another-secret", tenantID, userID, domain.RoleEmployee, time.Minute)
	require.NoError(t, err)
	refresh, err := auth.IssueRefreshToken(testJWTSecret, tenantID, userID, domain.RoleEmployee, time.Hour)
	require.NoError(t, err)
	badRole, err := auth.IssueAccessToken(testJWTSecret, tenantID, userID, domain.Role("ADMIN"), time.Minute)
	require.NoError(t, err)

	tests := []struct {
		name    string
		header  string
		message string
	}{
		{name: "no header", header: "", message: "missing credentials"},
		{name: "garbage token", header: "Bearer totally.invalid.token", message: "invalid or expired token"},
		{name: "expired", header: "Bearer " + expired, message: "invalid or expired token"},
		{name: "wrong secret", header: "Bearer " + wrongSecret, message: "invalid or expired token"},
		{name: "refresh token", header: "Bearer " + refresh, message: "invalid or expired token"},
		{name: "unknown role", header: "Bearer " + badRole, message: "invalid or expired token"},
		{name: "basic scheme", header: "Basic " + expired, message: "missing credentials"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			capture := &contextHandler{}
			handler := middleware.Auth(testJWTSecret)(capture)
			req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.False(t, capture.called)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.JSONEq(t, `{"ok":false,"message":"`+tt.message+`"}`, rec.Body.String())
		})
	}
}

func TestAuth_BearerFormat(t *testing.T) {
	t.Parallel()

	token, err := auth.IssueAccessToken(testJWTSecret, uuid.New(), uuid.New(), domain.RoleEmployee, 15*time.Minute)
	require.NoError(t, err)

	tests := []struct {
		name       string
		authHeader string
		wantStatus int
	}{
		{name: "uppercase Bearer", authHeader: "Bearer " + token, wantStatus: http.StatusOK},
		{name: "lowercase bearer", authHeader: "bearer " + token, wantStatus: http.StatusOK},
		{name: "mixed case BEARER", authHeader: "BEARER " + token, wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			handler := middleware.Auth(testJWTSecret)(okHandler)
			req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
			req.Header.Set("Authorization", tt.authHeader)
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestAuth_IgnoresQueryToken(t *testing.T) {
	t.Parallel()

	token, err := auth.IssueAccessToken(testJWTSecret, uuid.New(), uuid.New(), domain.RoleEmployee, time.Minute)
	require.NoError(t, err)

	handler := middleware.Auth(testJWTSecret)(okHandler)
	req := httptest.NewRequest(http.MethodGet, "/?token="+token, http.NoBody)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthWebSocket_AcceptsQueryToken(t *testing.T) {
	t.Parallel()

	tenantID := uuid.New()
	token, err := auth.IssueAccessToken(testJWTSecret, tenantID, uuid.New(), domain.RoleEmployee, time.Minute)
	require.NoError(t, err)

	capture := &contextHandler{}
	handler := middleware.AuthWebSocket(testJWTSecret)(capture)
	req := httptest.NewRequest(http.MethodGet, "/ws?token="+token, http.NoBody)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	require.True(t, capture.called)
	assert.Equal(t, tenantID, capture.tenantID)
}
