package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// StatusChange is one step of an order's status history.
type StatusChange struct {
	ID         uuid.UUID   `json:"id"`
	TenantID   uuid.UUID   `json:"tenantId"`
	OrderID    uuid.UUID   `json:"orderId"`
	FromStatus OrderStatus `json:"fromStatus"`
	ToStatus   OrderStatus `json:"toStatus"`
	ActorID    *uuid.UUID  `json:"actorId,omitempty"` // nil for system changes
	CreatedAt  time.Time   `json:"createdAt"`
}

type StatusHistoryRepository interface {
	Record(ctx context.Context, c *StatusChange) error
	ListByOrder(ctx context.Context, tenantID, orderID uuid.UUID) ([]*StatusChange, error)
}
