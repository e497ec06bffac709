package v1

import (
	"context"

	"github.com/google/uuid"

	"github.com/repik/lavanderia/internal/auth"
	"github.com/repik/lavanderia/internal/clients"
	"github.com/repik/lavanderia/internal/domain"
	"github.com/repik/lavanderia/internal/orders"
	"github.com/repik/lavanderia/internal/reports"
)

// AuthService abstracts authentication operations for handler testing.
// *auth.Service satisfies this interface.
type AuthService interface {
	Register(ctx context.Context, in auth.RegisterInput) (*auth.Grant, error)
	Login(ctx context.Context, tenantSlug, email, password string) (*auth.Grant, error)
	RefreshToken(ctx context.Context, refreshToken string) (string, error)
}

// OrderService abstracts the order lifecycle for handler testing.
// *orders.Service satisfies this interface.
type OrderService interface {
	Create(ctx context.Context, tenantID uuid.UUID, in orders.CreateInput) (*domain.Order, error)
	List(ctx context.Context, tenantID uuid.UUID, in orders.ListInput) (domain.Page[*domain.Order], error)
	Get(ctx context.Context, tenantID, id uuid.UUID) (*domain.Order, error)
	UpdateStatus(ctx context.Context, tenantID, actorID, id uuid.UUID, to domain.OrderStatus) (*domain.Order, error)
	History(ctx context.Context, tenantID, id uuid.UUID) ([]*domain.StatusChange, error)
}

// ClientRegistry abstracts client management for handler testing.
// *clients.Registry satisfies this interface.
type ClientRegistry interface {
	FindOrCreate(ctx context.Context, tenantID uuid.UUID, name, phone string) (*domain.Client, error)
	Create(ctx context.Context, tenantID uuid.UUID, in clients.CreateInput) (*domain.Client, error)
	Search(ctx context.Context, tenantID uuid.UUID, query string, pr domain.PageRequest) (domain.Page[*domain.Client], error)
	Get(ctx context.Context, tenantID, id uuid.UUID) (*clients.Detail, error)
	GetByPhone(ctx context.Context, tenantID uuid.UUID, phone string) (*domain.Client, error)
	Update(ctx context.Context, tenantID, id uuid.UUID, patch domain.ClientPatch) (*domain.Client, error)
}

// ReportService abstracts revenue reports for handler testing.
// *reports.Service satisfies this interface.
type ReportService interface {
	Daily(ctx context.Context, tenantID uuid.UUID, date string) (*reports.DailyReport, error)
	Weekly(ctx context.Context, tenantID uuid.UUID) (*reports.WeeklyReport, error)
}

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}
