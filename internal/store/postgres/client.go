package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/repik/lavanderia/internal/domain"
)

const clientColumns = `id, tenant_id, name, phone, email, notes, created_at, updated_at`

type ClientRepo struct {
	db DBTX
}

func NewClientRepo(db DBTX) *ClientRepo {
	return &ClientRepo{db: db}
}

func (r *ClientRepo) Create(ctx context.Context, c *domain.Client) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO clients (id, tenant_id, name, phone, email, notes, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		c.ID, c.TenantID, c.Name, c.Phone, nilIfEmpty(c.Email), nilIfEmpty(c.Notes),
		c.CreatedAt, c.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("clientRepo.Create: phone %q: %w", c.Phone, domain.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("clientRepo.Create: %w", err)
	}

	return nil
}

// FindOrCreate relies on the (tenant_id, phone) unique index. The no-op
// update makes RETURNING yield the existing row on conflict.
func (r *ClientRepo) FindOrCreate(ctx context.Context, c *domain.Client) (*domain.Client, error) {
	got, err := scanClient(r.db.QueryRow(ctx,
		`INSERT INTO clients (id, tenant_id, name, phone, email, notes, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (tenant_id, phone) DO UPDATE SET phone = EXCLUDED.phone
		 RETURNING `+clientColumns,
		c.ID, c.TenantID, c.Name, c.Phone, nilIfEmpty(c.Email), nilIfEmpty(c.Notes),
		c.CreatedAt, c.UpdatedAt,
	))
	if err != nil {
		return nil, fmt.Errorf("clientRepo.FindOrCreate: %w", err)
	}

	return got, nil
}

func (r *ClientRepo) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*domain.Client, error) {
	c, err := scanClient(r.db.QueryRow(ctx,
		`SELECT `+clientColumns+` FROM clients WHERE tenant_id = $1 AND id = $2`,
		tenantID, id,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("clientRepo.GetByID: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("clientRepo.GetByID: %w", err)
	}

	return c, nil
}

func (r *ClientRepo) GetByPhone(ctx context.Context, tenantID uuid.UUID, phone string) (*domain.Client, error) {
	c, err := scanClient(r.db.QueryRow(ctx,
		`SELECT `+clientColumns+` FROM clients WHERE tenant_id = $1 AND phone = $2`,
		tenantID, phone,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("clientRepo.GetByPhone: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("clientRepo.GetByPhone: %w", err)
	}

	return c, nil
}

func (r *ClientRepo) Search(ctx context.Context, tenantID uuid.UUID, query string, limit, offset int) ([]*domain.Client, int64, error) {
	const where = `WHERE tenant_id = $1
		   AND ($2::text = '' OR name ILIKE $2::text OR phone LIKE $2::text)`

	pattern := ""
	if query != "" {
		pattern = containsPattern(query)
	}

	var total int64
	err := r.db.QueryRow(ctx, `SELECT count(*) FROM clients `+where, tenantID, pattern).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("clientRepo.Search: count: %w", err)
	}

	rows, err := r.db.Query(ctx,
		`SELECT `+clientColumns+` FROM clients `+where+`
		 ORDER BY created_at DESC, id
		 LIMIT $3 OFFSET $4`,
		tenantID, pattern, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("clientRepo.Search: %w", err)
	}
	defer rows.Close()

	clients := make([]*domain.Client, 0, limit)
	for rows.Next() {
		c, scanErr := scanClient(rows)
		if scanErr != nil {
			return nil, 0, fmt.Errorf("clientRepo.Search: scan: %w", scanErr)
		}
		clients = append(clients, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("clientRepo.Search: rows: %w", err)
	}

	return clients, total, nil
}

func (r *ClientRepo) Update(ctx context.Context, c *domain.Client) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE clients SET name = $1, phone = $2, email = $3, notes = $4, updated_at = $5
		 WHERE tenant_id = $6 AND id = $7`,
		c.Name, c.Phone, nilIfEmpty(c.Email), nilIfEmpty(c.Notes), c.UpdatedAt,
		c.TenantID, c.ID,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("clientRepo.Update: phone %q: %w", c.Phone, domain.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("clientRepo.Update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("clientRepo.Update: %w", domain.ErrNotFound)
	}

	return nil
}

func scanClient(row pgx.Row) (*domain.Client, error) {
	var c domain.Client
	var email, notes *string

	if err := row.Scan(&c.ID, &c.TenantID, &c.Name, &c.Phone, &email, &notes, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}

	c.Email = derefStr(email)
	c.Notes = derefStr(notes)

	return &c, nil
}
