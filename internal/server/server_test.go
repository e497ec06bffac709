package server_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repik/lavanderia/internal/auth"
	"github.com/repik/lavanderia/internal/clients"
	"github.com/repik/lavanderia/internal/config"
	"github.com/repik/lavanderia/internal/domain"
	"github.com/repik/lavanderia/internal/notify"
	"github.com/repik/lavanderia/internal/orders"
	"github.com/repik/lavanderia/internal/reports"
	"github.com/repik/lavanderia/internal/server"
	"github.com/repik/lavanderia/internal/store/memory"
)

const testSecret = "server-test-secret-at-least-32-chars"

type envelope struct {
	OK      bool            `json:"ok"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func testConfig(webDir string) *config.Config {
	return &config.Config{
		JWT: config.JWTConfig{Secret: testSecret, AccessTTL: 15 * time.Minute, RefreshTTL: time.Hour},
		Server: config.ServerConfig{
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			CORSOrigins:  []string{"http://localhost:5173"},
			WebDir:       webDir,
			APIDocs:      true,
			Timezone:     "UTC",
		},
		RateLimit: config.RateLimitConfig{TenantRPS: 1000, TenantBurst: 1000, AuthRPS: 1000, AuthBurst: 1000},
	}
}

// newTestServer wires the real services over the in-memory store.
func newTestServer(t *testing.T, webDir string) *httptest.Server {
	t.Helper()

	store := memory.New()
	channels := notify.NewRegistry()
	channels.Register(notify.NewLogChannel())
	orderSvc := orders.NewService(store, notify.New(channels), nil)
	t.Cleanup(orderSvc.Wait)

	srv := server.New(t.Context(), testConfig(webDir), store, nil, server.Services{
		Auth:    auth.NewService(store, testSecret, 15*time.Minute, time.Hour),
		Orders:  orderSvc,
		Clients: clients.NewRegistry(store),
		Reports: reports.NewService(store.Orders(), time.UTC),
	})

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func call(t *testing.T, ts *httptest.Server, method, path, token string, body any) (int, envelope) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequestWithContext(t.Context(), method, ts.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	if resp.StatusCode != http.StatusNotImplemented {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	}
	return resp.StatusCode, env
}

func register(t *testing.T, ts *httptest.Server) auth.Grant {
	t.Helper()

	status, env := call(t, ts, http.MethodPost, "/api/auth/register", "", map[string]any{
		"tenantName": "Lavandería Demo",
		"name":       "Admin",
		"email":      "admin@demo.com",
		"password":   "123456",
	})
	require.Equal(t, http.StatusCreated, status, env.Message)

	var grant auth.Grant
	require.NoError(t, json.Unmarshal(env.Data, &grant))
	require.NotEmpty(t, grant.AccessToken)
	return grant
}

func TestServer_OrderFlow(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, "")
	grant := register(t, ts)

	status, env := call(t, ts, http.MethodPost, "/api/auth/login", "", map[string]any{
		"tenantSlug": grant.Tenant.Slug,
		"email":      "admin@demo.com",
		"password":   "123456",
	})
	require.Equal(t, http.StatusOK, status, env.Message)

	status, env = call(t, ts, http.MethodGet, "/api/auth/me", grant.AccessToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(env.Data), `"role":"OWNER"`)

	status, env = call(t, ts, http.MethodPost, "/api/orders", grant.AccessToken, map[string]any{
		"clientName":  "Juan Pérez",
		"clientPhone": "1155551234",
		"items": []map[string]any{
			{"description": "Shirt", "quantity": 2, "unitPrice": 500},
			{"description": "Pants", "quantity": 1, "unitPrice": 800},
		},
	})
	require.Equal(t, http.StatusCreated, status, env.Message)

	var order domain.Order
	require.NoError(t, json.Unmarshal(env.Data, &order))
	assert.Equal(t, int64(1), order.TicketNumber)
	assert.Equal(t, domain.OrderStatusReceived, order.Status)
	assert.Equal(t, "1800", order.TotalPrice.String())

	for _, next := range []domain.OrderStatus{domain.OrderStatusWashing, domain.OrderStatusReady, domain.OrderStatusDelivered} {
		status, env = call(t, ts, http.MethodPatch, "/api/orders/"+order.ID.String()+"/status", grant.AccessToken, map[string]any{"status": next})
		require.Equal(t, http.StatusOK, status, env.Message)
	}
	require.NoError(t, json.Unmarshal(env.Data, &order))
	assert.NotNil(t, order.DeliveredAt)

	status, _ = call(t, ts, http.MethodGet, "/api/reports/daily", grant.AccessToken, nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = call(t, ts, http.MethodGet, "/api/reports/weekly", grant.AccessToken, nil)
	assert.Equal(t, http.StatusOK, status)

	status, env = call(t, ts, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"database":"ok","redis":"disabled"}`, string(env.Data))
}

func TestServer_AccessControl(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, "")
	grant := register(t, ts)

	employee, err := auth.IssueAccessToken(testSecret, grant.Tenant.ID, uuid.New(), domain.RoleEmployee, time.Minute)
	require.NoError(t, err)

	tests := []struct {
		name       string
		path       string
		token      string
		wantStatus int
	}{
		{name: "no_token", path: "/api/orders", wantStatus: http.StatusUnauthorized},
		{name: "garbage_token", path: "/api/orders", token: "not-a-jwt", wantStatus: http.StatusUnauthorized},
		{name: "refresh_token_rejected", path: "/api/orders", token: grant.RefreshToken, wantStatus: http.StatusUnauthorized},
		{name: "employee_lists_orders", path: "/api/orders", token: employee, wantStatus: http.StatusOK},
		{name: "employee_daily_report", path: "/api/reports/daily", token: employee, wantStatus: http.StatusOK},
		{name: "employee_weekly_report_forbidden", path: "/api/reports/weekly", token: employee, wantStatus: http.StatusForbidden},
		{name: "owner_weekly_report", path: "/api/reports/weekly", token: grant.AccessToken, wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			status, env := call(t, ts, http.MethodGet, tt.path, tt.token, nil)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantStatus == http.StatusOK, env.OK)
		})
	}
}

func TestServer_TenantIsolation(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, "")
	grant := register(t, ts)

	status, env := call(t, ts, http.MethodPost, "/api/clients", grant.AccessToken, map[string]any{
		"name": "Juan Pérez", "phone": "1155551234",
	})
	require.Equal(t, http.StatusCreated, status, env.Message)
	var c domain.Client
	require.NoError(t, json.Unmarshal(env.Data, &c))

	other, err := auth.IssueAccessToken(testSecret, uuid.New(), uuid.New(), domain.RoleOwner, time.Minute)
	require.NoError(t, err)

	status, _ = call(t, ts, http.MethodGet, "/api/clients/"+c.ID.String(), other, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestServer_WebSocketWithoutRedis(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, "")
	grant := register(t, ts)

	status, _ := call(t, ts, http.MethodGet, "/ws/orders?token="+grant.AccessToken, "", nil)
	assert.Equal(t, http.StatusNotImplemented, status)
}

func TestServer_StaticDashboard(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>board</html>"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.js"), []byte("console.log(1)"), 0o600))

	ts := newTestServer(t, dir)

	get := func(path string) (int, string) {
		resp, err := ts.Client().Get(ts.URL + path)
		require.NoError(t, err)
		defer resp.Body.Close()
		var buf bytes.Buffer
		_, err = buf.ReadFrom(resp.Body)
		require.NoError(t, err)
		return resp.StatusCode, buf.String()
	}

	status, body := get("/app/app.js")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "console.log(1)", body)

	status, body = get("/app/orders/42")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "board", "unknown paths fall back to index.html")
}

func TestServer_RejectsUnstorableAmounts(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, "")
	grant := register(t, ts)

	tests := []struct {
		name string
		item map[string]any
	}{
		{name: "sub_cent_price", item: map[string]any{"description": "Toalla", "quantity": 3, "unitPrice": 0.335}},
		{name: "price_above_column", item: map[string]any{"description": "Alfombra", "quantity": 1, "unitPrice": 1e10}},
		{name: "total_above_column", item: map[string]any{"description": "Alfombra", "quantity": 2, "unitPrice": 6e9}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			status, env := call(t, ts, http.MethodPost, "/api/orders", grant.AccessToken, map[string]any{
				"clientName":  "Juan Pérez",
				"clientPhone": "1155551234",
				"items":       []map[string]any{tt.item},
			})
			assert.Equal(t, http.StatusBadRequest, status)
			assert.False(t, env.OK)
			assert.Contains(t, env.Message, "validation")
		})
	}
}
