package v1_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	v1 "github.com/repik/lavanderia/internal/api/v1"
	"github.com/repik/lavanderia/internal/auth"
	"github.com/repik/lavanderia/internal/clients"
	"github.com/repik/lavanderia/internal/domain"
	"github.com/repik/lavanderia/internal/orders"
	"github.com/repik/lavanderia/internal/reports"
	"github.com/repik/lavanderia/internal/server/middleware"
)

// ---------------------------------------------------------------------------
// API and context helpers
// ---------------------------------------------------------------------------

func newAPI(t *testing.T) humatest.TestAPI {
	t.Helper()
	_, api := humatest.New(t, v1.NewConfig("Lavanderia Test API"))
	return api
}

func sessionCtx(tenantID uuid.UUID, role domain.Role) context.Context {
	return middleware.WithSession(context.Background(), middleware.Session{
		TenantID: tenantID,
		UserID:   uuid.New(),
		Role:     role,
	})
}

func employeeCtx(tenantID uuid.UUID) context.Context {
	return sessionCtx(tenantID, domain.RoleEmployee)
}

// envelope mirrors the response wrapper for decoding in tests.
type envelope[T any] struct {
	OK         bool                `json:"ok"`
	Data       T                   `json:"data"`
	Message    string              `json:"message"`
	Errors     []domain.FieldError `json:"errors"`
	Pagination *v1.Pagination      `json:"pagination"`
}

func decode[T any](t *testing.T, resp *httptest.ResponseRecorder) envelope[T] {
	t.Helper()
	var env envelope[T]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &env), resp.Body.String())
	return env
}

// ---------------------------------------------------------------------------
// Mock AuthService
// ---------------------------------------------------------------------------

type mockAuthService struct {
	registerFunc     func(ctx context.Context, in auth.RegisterInput) (*auth.Grant, error)
	loginFunc        func(ctx context.Context, tenantSlug, email, password string) (*auth.Grant, error)
	refreshTokenFunc func(ctx context.Context, refreshToken string) (string, error)
}

func (m *mockAuthService) Register(ctx context.Context, in auth.RegisterInput) (*auth.Grant, error) {
	return m.registerFunc(ctx, in)
}

func (m *mockAuthService) Login(ctx context.Context, tenantSlug, email, password string) (*auth.Grant, error) {
	return m.loginFunc(ctx, tenantSlug, email, password)
}

func (m *mockAuthService) RefreshToken(ctx context.Context, refreshToken string) (string, error) {
	return m.refreshTokenFunc(ctx, refreshToken)
}

// ---------------------------------------------------------------------------
// Mock OrderService
// ---------------------------------------------------------------------------

type mockOrderService struct {
	createFunc       func(ctx context.Context, tenantID uuid.UUID, in orders.CreateInput) (*domain.Order, error)
	listFunc         func(ctx context.Context, tenantID uuid.UUID, in orders.ListInput) (domain.Page[*domain.Order], error)
	getFunc          func(ctx context.Context, tenantID, id uuid.UUID) (*domain.Order, error)
	updateStatusFunc func(ctx context.Context, tenantID, actorID, id uuid.UUID, to domain.OrderStatus) (*domain.Order, error)
	historyFunc      func(ctx context.Context, tenantID, id uuid.UUID) ([]*domain.StatusChange, error)
}

func (m *mockOrderService) Create(ctx context.Context, tenantID uuid.UUID, in orders.CreateInput) (*domain.Order, error) {
	return m.createFunc(ctx, tenantID, in)
}

func (m *mockOrderService) List(ctx context.Context, tenantID uuid.UUID, in orders.ListInput) (domain.Page[*domain.Order], error) {
	return m.listFunc(ctx, tenantID, in)
}

func (m *mockOrderService) Get(ctx context.Context, tenantID, id uuid.UUID) (*domain.Order, error) {
	return m.getFunc(ctx, tenantID, id)
}

func (m *mockOrderService) UpdateStatus(ctx context.Context, tenantID, actorID, id uuid.UUID, to domain.OrderStatus) (*domain.Order, error) {
	return m.updateStatusFunc(ctx, tenantID, actorID, id, to)
}

func (m *mockOrderService) History(ctx context.Context, tenantID, id uuid.UUID) ([]*domain.StatusChange, error) {
	return m.historyFunc(ctx, tenantID, id)
}

// ---------------------------------------------------------------------------
// Mock ClientRegistry
// ---------------------------------------------------------------------------

type mockClientRegistry struct {
	findOrCreateFunc func(ctx context.Context, tenantID uuid.UUID, name, phone string) (*domain.Client, error)
	createFunc       func(ctx context.Context, tenantID uuid.UUID, in clients.CreateInput) (*domain.Client, error)
	searchFunc       func(ctx context.Context, tenantID uuid.UUID, query string, pr domain.PageRequest) (domain.Page[*domain.Client], error)
	getFunc          func(ctx context.Context, tenantID, id uuid.UUID) (*clients.Detail, error)
	getByPhoneFunc   func(ctx context.Context, tenantID uuid.UUID, phone string) (*domain.Client, error)
	updateFunc       func(ctx context.Context, tenantID, id uuid.UUID, patch domain.ClientPatch) (*domain.Client, error)
}

func (m *mockClientRegistry) FindOrCreate(ctx context.Context, tenantID uuid.UUID, name, phone string) (*domain.Client, error) {
	return m.findOrCreateFunc(ctx, tenantID, name, phone)
}

func (m *mockClientRegistry) Create(ctx context.Context, tenantID uuid.UUID, in clients.CreateInput) (*domain.Client, error) {
	return m.createFunc(ctx, tenantID, in)
}

func (m *mockClientRegistry) Search(ctx context.Context, tenantID uuid.UUID, query string, pr domain.PageRequest) (domain.Page[*domain.Client], error) {
	return m.searchFunc(ctx, tenantID, query, pr)
}

func (m *mockClientRegistry) Get(ctx context.Context, tenantID, id uuid.UUID) (*clients.Detail, error) {
	return m.getFunc(ctx, tenantID, id)
}

func (m *mockClientRegistry) GetByPhone(ctx context.Context, tenantID uuid.UUID, phone string) (*domain.Client, error) {
	return m.getByPhoneFunc(ctx, tenantID, phone)
}

func (m *mockClientRegistry) Update(ctx context.Context, tenantID, id uuid.UUID, patch domain.ClientPatch) (*domain.Client, error) {
	return m.updateFunc(ctx, tenantID, id, patch)
}

// ---------------------------------------------------------------------------
// Mock ReportService
// ---------------------------------------------------------------------------

type mockReportService struct {
	dailyFunc  func(ctx context.Context, tenantID uuid.UUID, date string) (*reports.DailyReport, error)
	weeklyFunc func(ctx context.Context, tenantID uuid.UUID) (*reports.WeeklyReport, error)
}

func (m *mockReportService) Daily(ctx context.Context, tenantID uuid.UUID, date string) (*reports.DailyReport, error) {
	return m.dailyFunc(ctx, tenantID, date)
}

func (m *mockReportService) Weekly(ctx context.Context, tenantID uuid.UUID) (*reports.WeeklyReport, error) {
	return m.weeklyFunc(ctx, tenantID)
}

// ---------------------------------------------------------------------------
// Mock Pinger
// ---------------------------------------------------------------------------

type mockPinger struct {
	pingFunc func(ctx context.Context) error
}

func (m *mockPinger) Ping(ctx context.Context) error {
	return m.pingFunc(ctx)
}
