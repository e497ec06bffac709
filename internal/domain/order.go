package domain

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusReceived  OrderStatus = "RECEIVED"
	OrderStatusWashing   OrderStatus = "WASHING"
	OrderStatusReady     OrderStatus = "READY"
	OrderStatusDelivered OrderStatus = "DELIVERED"
)

// OrderStatuses lists the pipeline in order.
var OrderStatuses = []OrderStatus{ //nolint:gochecknoglobals // fixed pipeline
	OrderStatusReceived,
	OrderStatusWashing,
	OrderStatusReady,
	OrderStatusDelivered,
}

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusReceived, OrderStatusWashing, OrderStatusReady, OrderStatusDelivered:
		return true
	default:
		return false
	}
}

// ValidTransition checks if an order status change is allowed.
// Allowed: RECEIVED->WASHING, WASHING->READY, READY->DELIVERED.
func (s OrderStatus) ValidTransition(to OrderStatus) bool {
	switch s {
	case OrderStatusReceived:
		return to == OrderStatusWashing
	case OrderStatusWashing:
		return to == OrderStatusReady
	case OrderStatusReady:
		return to == OrderStatusDelivered
	default:
		return false
	}
}

// ClientSummary is the client data embedded in order reads.
type ClientSummary struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Phone string    `json:"phone"`
}

type Order struct {
	ID            uuid.UUID       `json:"id"`
	TenantID      uuid.UUID       `json:"tenantId"`
	ClientID      uuid.UUID       `json:"clientId"`
	TicketNumber  int64           `json:"ticketNumber"`
	Status        OrderStatus     `json:"status"`
	TotalPrice    decimal.Decimal `json:"totalPrice"`
	Notes         string          `json:"notes,omitempty"`
	EstimatedDate *time.Time      `json:"estimatedDate,omitempty"`
	DeliveredAt   *time.Time      `json:"deliveredAt,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
	Client        *ClientSummary  `json:"client,omitempty"`
	Items         []OrderItem     `json:"items"`
}

type OrderItem struct {
	ID          uuid.UUID       `json:"id"`
	OrderID     uuid.UUID       `json:"orderId"`
	Description string          `json:"description"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
}

func (i OrderItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// OrderTotal sums quantity x unit price over items.
func OrderTotal(items []OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Subtotal())
	}
	return total
}

const (
	// MaxItemQuantity bounds a single line.
	MaxItemQuantity = 100000
	// moneyScale is the number of decimal places money is stored with.
	moneyScale = 2
)

// MaxAmount is the largest unit price or order total that can be stored.
var MaxAmount = decimal.RequireFromString("9999999999.99")

// ValidateItems checks an order's items before creation. Prices carry at
// most two decimals and neither a price nor the order total may exceed
// MaxAmount.
func ValidateItems(items []OrderItem) error {
	verr := &ValidationError{}
	if len(items) == 0 {
		verr.Add("items", "at least one item is required")
	}
	for i, it := range items {
		field := "items[" + strconv.Itoa(i) + "]"
		if it.Description == "" {
			verr.Add(field+".description", "is required")
		}
		switch {
		case it.Quantity < 1:
			verr.Add(field+".quantity", "must be at least 1")
		case it.Quantity > MaxItemQuantity:
			verr.Add(field+".quantity", "must be at most "+strconv.Itoa(MaxItemQuantity))
		}
		switch {
		case it.UnitPrice.IsNegative():
			verr.Add(field+".unitPrice", "must not be negative")
		case !it.UnitPrice.Equal(it.UnitPrice.Round(moneyScale)):
			verr.Add(field+".unitPrice", "must have at most 2 decimal places")
		case it.UnitPrice.GreaterThan(MaxAmount):
			verr.Add(field+".unitPrice", "must be at most "+MaxAmount.String())
		}
	}
	if len(verr.Fields) == 0 && OrderTotal(items).GreaterThan(MaxAmount) {
		verr.Add("items", "order total must be at most "+MaxAmount.String())
	}
	return verr.Err()
}

// OrderFilter narrows an order listing. Zero values mean "no filter".
type OrderFilter struct {
	Status OrderStatus
	Search string
	Limit  int
	Offset int
}

// DayStats aggregates the orders created in one time window.
type DayStats struct {
	TotalOrders int64
	TotalIncome decimal.Decimal
	ByStatus    map[OrderStatus]int64
}

type OrderRepository interface {
	// Create inserts the order and its items.
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*Order, error)
	List(ctx context.Context, tenantID uuid.UUID, f OrderFilter) ([]*Order, int64, error)
	ListByClient(ctx context.Context, tenantID, clientID uuid.UUID, limit int) ([]*Order, error)
	// TransitionStatus moves the order from one status to another. It fails
	// with ErrConflict when the stored status is no longer from.
	TransitionStatus(ctx context.Context, tenantID, id uuid.UUID, from, to OrderStatus, deliveredAt *time.Time) error
	Stats(ctx context.Context, tenantID uuid.UUID, from, to time.Time) (*DayStats, error)
}
