// Package clients manages a tenant's customer records.
package clients

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/repik/lavanderia/internal/domain"
)

// RecentOrdersLimit is how many orders Get attaches to a client.
const RecentOrdersLimit = 10

// Registry is the Client Registry service.
type Registry struct {
	store domain.Store
}

func NewRegistry(store domain.Store) *Registry {
	return &Registry{store: store}
}

// CreateInput holds the fields for a new client.
type CreateInput struct {
	Name  string
	Phone string
	Email string
	Notes string
}

// Detail is a client together with its most recent orders.
type Detail struct {
	*domain.Client
	RecentOrders []*domain.Order `json:"recentOrders"`
}

// FindOrCreate returns the tenant's client with phone, creating it with name
// when none exists. An existing client keeps its stored name.
func (r *Registry) FindOrCreate(ctx context.Context, tenantID uuid.UUID, name, phone string) (*domain.Client, error) {
	c, err := FindOrCreate(ctx, r.store.Clients(), tenantID, name, phone)
	if err != nil {
		return nil, fmt.Errorf("clients.FindOrCreate: %w", err)
	}
	return c, nil
}

// FindOrCreate resolves a client against repo. Order creation calls it with
// the repository bound to its own transaction. name is only validated when
// a new client has to be inserted.
func FindOrCreate(ctx context.Context, repo domain.ClientRepository, tenantID uuid.UUID, name, phone string) (*domain.Client, error) {
	phone = domain.NormalizePhone(phone)
	existing, err := repo.GetByPhone(ctx, tenantID, phone)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	now := time.Now()
	c := &domain.Client{
		ID:        uuid.New(),
		TenantID:  tenantID,
		Name:      strings.TrimSpace(name),
		Phone:     phone,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := domain.ValidateClient(c); err != nil {
		return nil, err
	}

	return repo.FindOrCreate(ctx, c)
}

// Create registers a new client. It fails with domain.ErrConflict when the
// phone is already taken in the tenant.
func (r *Registry) Create(ctx context.Context, tenantID uuid.UUID, in CreateInput) (*domain.Client, error) {
	now := time.Now()
	c := &domain.Client{
		ID:        uuid.New(),
		TenantID:  tenantID,
		Name:      strings.TrimSpace(in.Name),
		Phone:     domain.NormalizePhone(in.Phone),
		Email:     strings.TrimSpace(in.Email),
		Notes:     in.Notes,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := domain.ValidateClient(c); err != nil {
		return nil, fmt.Errorf("clients.Create: %w", err)
	}

	if err := r.store.Clients().Create(ctx, c); err != nil {
		return nil, fmt.Errorf("clients.Create: %w", err)
	}

	return c, nil
}

// Search lists clients whose name or phone contains query, newest first.
func (r *Registry) Search(ctx context.Context, tenantID uuid.UUID, query string, pr domain.PageRequest) (domain.Page[*domain.Client], error) {
	pr = pr.Normalize()

	items, total, err := r.store.Clients().Search(ctx, tenantID, strings.TrimSpace(query), pr.Limit, pr.Offset())
	if err != nil {
		return domain.Page[*domain.Client]{}, fmt.Errorf("clients.Search: %w", err)
	}

	return domain.Page[*domain.Client]{Items: items, Total: total, Page: pr.Page, Limit: pr.Limit}, nil
}

// Get returns the client with its most recent orders.
func (r *Registry) Get(ctx context.Context, tenantID, id uuid.UUID) (*Detail, error) {
	c, err := r.store.Clients().GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, fmt.Errorf("clients.Get: %w", err)
	}

	orders, err := r.store.Orders().ListByClient(ctx, tenantID, id, RecentOrdersLimit)
	if err != nil {
		return nil, fmt.Errorf("clients.Get: %w", err)
	}

	return &Detail{Client: c, RecentOrders: orders}, nil
}

func (r *Registry) GetByPhone(ctx context.Context, tenantID uuid.UUID, phone string) (*domain.Client, error) {
	c, err := r.store.Clients().GetByPhone(ctx, tenantID, domain.NormalizePhone(phone))
	if err != nil {
		return nil, fmt.Errorf("clients.GetByPhone: %w", err)
	}
	return c, nil
}

// Update applies a partial update. A phone already used by another client of
// the tenant fails with domain.ErrConflict.
func (r *Registry) Update(ctx context.Context, tenantID, id uuid.UUID, patch domain.ClientPatch) (*domain.Client, error) {
	c, err := r.store.Clients().GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, fmt.Errorf("clients.Update: %w", err)
	}

	patch.Apply(c)
	if err := domain.ValidateClient(c); err != nil {
		return nil, fmt.Errorf("clients.Update: %w", err)
	}
	c.UpdatedAt = time.Now()

	if err := r.store.Clients().Update(ctx, c); err != nil {
		return nil, fmt.Errorf("clients.Update: %w", err)
	}

	return c, nil
}
