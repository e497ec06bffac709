package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/repik/lavanderia/internal/domain"
)

type StatusHistoryRepo struct {
	db DBTX
}

func NewStatusHistoryRepo(db DBTX) *StatusHistoryRepo {
	return &StatusHistoryRepo{db: db}
}

func (r *StatusHistoryRepo) Record(ctx context.Context, c *domain.StatusChange) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO order_status_history (id, tenant_id, order_id, from_status, to_status, actor_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		c.ID, c.TenantID, c.OrderID, c.FromStatus, c.ToStatus, c.ActorID, c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("statusHistoryRepo.Record: %w", err)
	}

	return nil
}

func (r *StatusHistoryRepo) ListByOrder(ctx context.Context, tenantID, orderID uuid.UUID) ([]*domain.StatusChange, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, tenant_id, order_id, from_status, to_status, actor_id, created_at
		 FROM order_status_history WHERE tenant_id = $1 AND order_id = $2
		 ORDER BY created_at`,
		tenantID, orderID,
	)
	if err != nil {
		return nil, fmt.Errorf("statusHistoryRepo.ListByOrder: %w", err)
	}
	defer rows.Close()

	return scanStatusChanges(rows, "statusHistoryRepo.ListByOrder")
}

func scanStatusChanges(rows pgx.Rows, caller string) ([]*domain.StatusChange, error) {
	changes := []*domain.StatusChange{}
	for rows.Next() {
		var c domain.StatusChange

		if err := rows.Scan(
			&c.ID, &c.TenantID, &c.OrderID, &c.FromStatus, &c.ToStatus, &c.ActorID, &c.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", caller, err)
		}
		changes = append(changes, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", caller, err)
	}

	return changes, nil
}
