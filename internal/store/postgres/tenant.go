package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/repik/lavanderia/internal/domain"
)

const tenantColumns = `id, name, slug, phone, address, ticket_counter, is_active, created_at, updated_at`

type TenantRepo struct {
	db DBTX
}

func NewTenantRepo(db DBTX) *TenantRepo {
	return &TenantRepo{db: db}
}

func (r *TenantRepo) Create(ctx context.Context, t *domain.Tenant) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO tenants (id, name, slug, phone, address, ticket_counter, is_active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		t.ID, t.Name, t.Slug, nilIfEmpty(t.Phone), nilIfEmpty(t.Address),
		t.TicketCounter, t.IsActive, t.CreatedAt, t.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("tenantRepo.Create: slug %q: %w", t.Slug, domain.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("tenantRepo.Create: %w", err)
	}

	return nil
}

func (r *TenantRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Tenant, error) {
	t, err := scanTenant(r.db.QueryRow(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE id = $1`,
		id,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("tenantRepo.GetByID: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("tenantRepo.GetByID: %w", err)
	}

	return t, nil
}

func (r *TenantRepo) GetBySlug(ctx context.Context, slug string) (*domain.Tenant, error) {
	t, err := scanTenant(r.db.QueryRow(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE slug = $1`,
		slug,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("tenantRepo.GetBySlug: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("tenantRepo.GetBySlug: %w", err)
	}

	return t, nil
}

// NextTicketNumber takes a row lock on the tenant until the surrounding
// transaction ends, so concurrent order creations serialize here.
func (r *TenantRepo) NextTicketNumber(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	var n int64

	err := r.db.QueryRow(ctx,
		`UPDATE tenants SET ticket_counter = ticket_counter + 1, updated_at = now()
		 WHERE id = $1
		 RETURNING ticket_counter`,
		tenantID,
	).Scan(&n)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("tenantRepo.NextTicketNumber: %w", domain.ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("tenantRepo.NextTicketNumber: %w", err)
	}

	return n, nil
}

func scanTenant(row pgx.Row) (*domain.Tenant, error) {
	var t domain.Tenant
	var phone, address *string

	err := row.Scan(&t.ID, &t.Name, &t.Slug, &phone, &address, &t.TicketCounter, &t.IsActive, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}

	t.Phone = derefStr(phone)
	t.Address = derefStr(address)

	return &t, nil
}
