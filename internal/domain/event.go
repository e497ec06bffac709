package domain

import "github.com/google/uuid"

// OrderEvent is broadcast to a tenant's live order board.
type OrderEvent struct {
	Type         string      `json:"type"` // "order_created", "order_status_changed"
	OrderID      uuid.UUID   `json:"orderId"`
	TicketNumber int64       `json:"ticketNumber"`
	Status       OrderStatus `json:"status"`
}

const (
	EventOrderCreated       = "order_created"
	EventOrderStatusChanged = "order_status_changed"
)
