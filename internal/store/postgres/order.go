package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/repik/lavanderia/internal/domain"
)

const orderSelect = `SELECT o.id, o.tenant_id, o.client_id, o.ticket_number, o.status, o.total_price,
		o.notes, o.estimated_date, o.delivered_at, o.created_at, o.updated_at,
		c.name, c.phone
	FROM orders o
	JOIN clients c ON c.id = o.client_id`

type OrderRepo struct {
	db DBTX
}

func NewOrderRepo(db DBTX) *OrderRepo {
	return &OrderRepo{db: db}
}

func (r *OrderRepo) Create(ctx context.Context, o *domain.Order) error {
	total, err := decimalToNumeric(o.TotalPrice)
	if err != nil {
		return fmt.Errorf("orderRepo.Create: %w", err)
	}

	_, err = r.db.Exec(ctx,
		`INSERT INTO orders (id, tenant_id, client_id, ticket_number, status, total_price, notes, estimated_date, delivered_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		o.ID, o.TenantID, o.ClientID, o.TicketNumber, o.Status, total,
		nilIfEmpty(o.Notes), o.EstimatedDate, o.DeliveredAt, o.CreatedAt, o.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("orderRepo.Create: ticket %d: %w", o.TicketNumber, domain.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("orderRepo.Create: %w", err)
	}

	for i, it := range o.Items {
		price, convErr := decimalToNumeric(it.UnitPrice)
		if convErr != nil {
			return fmt.Errorf("orderRepo.Create: item %d: %w", i, convErr)
		}

		_, err = r.db.Exec(ctx,
			`INSERT INTO order_items (id, order_id, position, description, quantity, unit_price)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			it.ID, o.ID, i, it.Description, it.Quantity, price,
		)
		if err != nil {
			return fmt.Errorf("orderRepo.Create: item %d: %w", i, err)
		}
	}

	return nil
}

func (r *OrderRepo) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*domain.Order, error) {
	o, err := scanOrder(r.db.QueryRow(ctx,
		orderSelect+` WHERE o.tenant_id = $1 AND o.id = $2`,
		tenantID, id,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("orderRepo.GetByID: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("orderRepo.GetByID: %w", err)
	}

	if err := r.loadItems(ctx, []*domain.Order{o}); err != nil {
		return nil, fmt.Errorf("orderRepo.GetByID: %w", err)
	}

	return o, nil
}

func (r *OrderRepo) List(ctx context.Context, tenantID uuid.UUID, f domain.OrderFilter) ([]*domain.Order, int64, error) {
	conds := []string{"o.tenant_id = $1"}
	args := []any{tenantID}

	if f.Status != "" {
		args = append(args, f.Status)
		conds = append(conds, "o.status = $"+strconv.Itoa(len(args)))
	}
	if search := strings.TrimSpace(f.Search); search != "" {
		args = append(args, containsPattern(search))
		p := "$" + strconv.Itoa(len(args))
		cond := "c.name ILIKE " + p + "::text OR c.phone LIKE " + p + "::text"
		if ticket, err := strconv.ParseInt(search, 10, 64); err == nil {
			args = append(args, ticket)
			cond += " OR o.ticket_number = $" + strconv.Itoa(len(args))
		}
		conds = append(conds, "("+cond+")")
	}

	where := " WHERE " + strings.Join(conds, " AND ")

	var total int64
	err := r.db.QueryRow(ctx,
		`SELECT count(*) FROM orders o JOIN clients c ON c.id = o.client_id`+where,
		args...,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("orderRepo.List: count: %w", err)
	}

	args = append(args, f.Limit, f.Offset)
	rows, err := r.db.Query(ctx,
		orderSelect+where+
			` ORDER BY o.created_at DESC, o.ticket_number DESC`+
			` LIMIT $`+strconv.Itoa(len(args)-1)+` OFFSET $`+strconv.Itoa(len(args)),
		args...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("orderRepo.List: %w", err)
	}
	defer rows.Close()

	orders, err := scanOrders(rows, "orderRepo.List")
	if err != nil {
		return nil, 0, err
	}

	if err := r.loadItems(ctx, orders); err != nil {
		return nil, 0, fmt.Errorf("orderRepo.List: %w", err)
	}

	return orders, total, nil
}

func (r *OrderRepo) ListByClient(ctx context.Context, tenantID, clientID uuid.UUID, limit int) ([]*domain.Order, error) {
	rows, err := r.db.Query(ctx,
		orderSelect+` WHERE o.tenant_id = $1 AND o.client_id = $2
		 ORDER BY o.created_at DESC, o.ticket_number DESC
		 LIMIT $3`,
		tenantID, clientID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("orderRepo.ListByClient: %w", err)
	}
	defer rows.Close()

	orders, err := scanOrders(rows, "orderRepo.ListByClient")
	if err != nil {
		return nil, err
	}

	if err := r.loadItems(ctx, orders); err != nil {
		return nil, fmt.Errorf("orderRepo.ListByClient: %w", err)
	}

	return orders, nil
}

func (r *OrderRepo) TransitionStatus(ctx context.Context, tenantID, id uuid.UUID, from, to domain.OrderStatus, deliveredAt *time.Time) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE orders SET status = $1, delivered_at = COALESCE($2, delivered_at), updated_at = now()
		 WHERE tenant_id = $3 AND id = $4 AND status = $5`,
		to, deliveredAt, tenantID, id, from,
	)
	if err != nil {
		return fmt.Errorf("orderRepo.TransitionStatus: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("orderRepo.TransitionStatus: status changed concurrently: %w", domain.ErrConflict)
	}

	return nil
}

func (r *OrderRepo) Stats(ctx context.Context, tenantID uuid.UUID, from, to time.Time) (*domain.DayStats, error) {
	rows, err := r.db.Query(ctx,
		`SELECT status, count(*), COALESCE(sum(total_price), 0)
		 FROM orders
		 WHERE tenant_id = $1 AND created_at >= $2 AND created_at < $3
		 GROUP BY status`,
		tenantID, from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("orderRepo.Stats: %w", err)
	}
	defer rows.Close()

	stats := &domain.DayStats{
		TotalIncome: decimal.Zero,
		ByStatus:    make(map[domain.OrderStatus]int64, len(domain.OrderStatuses)),
	}
	for rows.Next() {
		var status domain.OrderStatus
		var count int64
		var sum pgtype.Numeric

		if err := rows.Scan(&status, &count, &sum); err != nil {
			return nil, fmt.Errorf("orderRepo.Stats: scan: %w", err)
		}

		income, err := numericToDecimal(sum)
		if err != nil {
			return nil, fmt.Errorf("orderRepo.Stats: %w", err)
		}

		stats.ByStatus[status] = count
		stats.TotalOrders += count
		stats.TotalIncome = stats.TotalIncome.Add(income)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("orderRepo.Stats: rows: %w", err)
	}

	return stats, nil
}

// loadItems fills Items on every order with one query.
func (r *OrderRepo) loadItems(ctx context.Context, orders []*domain.Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, len(orders))
	byID := make(map[uuid.UUID]*domain.Order, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		byID[o.ID] = o
		o.Items = []domain.OrderItem{}
	}

	rows, err := r.db.Query(ctx,
		`SELECT id, order_id, description, quantity, unit_price
		 FROM order_items WHERE order_id = ANY($1)
		 ORDER BY order_id, position`,
		ids,
	)
	if err != nil {
		return fmt.Errorf("load items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var it domain.OrderItem
		var price pgtype.Numeric

		if err := rows.Scan(&it.ID, &it.OrderID, &it.Description, &it.Quantity, &price); err != nil {
			return fmt.Errorf("load items: scan: %w", err)
		}
		if it.UnitPrice, err = numericToDecimal(price); err != nil {
			return fmt.Errorf("load items: %w", err)
		}

		if o, ok := byID[it.OrderID]; ok {
			o.Items = append(o.Items, it)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("load items: rows: %w", err)
	}

	return nil
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var o domain.Order
	var total pgtype.Numeric
	var notes *string
	client := &domain.ClientSummary{}

	err := row.Scan(
		&o.ID, &o.TenantID, &o.ClientID, &o.TicketNumber, &o.Status, &total,
		&notes, &o.EstimatedDate, &o.DeliveredAt, &o.CreatedAt, &o.UpdatedAt,
		&client.Name, &client.Phone,
	)
	if err != nil {
		return nil, err
	}

	if o.TotalPrice, err = numericToDecimal(total); err != nil {
		return nil, err
	}
	o.Notes = derefStr(notes)
	client.ID = o.ClientID
	o.Client = client

	return &o, nil
}

func scanOrders(rows pgx.Rows, caller string) ([]*domain.Order, error) {
	orders := []*domain.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", caller, err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", caller, err)
	}

	return orders, nil
}

func numericToDecimal(n pgtype.Numeric) (decimal.Decimal, error) {
	if !n.Valid {
		return decimal.Zero, nil
	}
	val, err := n.Value()
	if err != nil {
		return decimal.Zero, fmt.Errorf("numeric value: %w", err)
	}
	s, ok := val.(string)
	if !ok {
		return decimal.Zero, fmt.Errorf("numeric value: unexpected %T", val)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("numeric value: %w", err)
	}
	return d, nil
}

func decimalToNumeric(d decimal.Decimal) (pgtype.Numeric, error) {
	var n pgtype.Numeric
	if err := n.Scan(d.String()); err != nil {
		return n, fmt.Errorf("numeric from %s: %w", d, err)
	}
	return n, nil
}
