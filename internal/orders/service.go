// Package orders implements the order lifecycle: creation with per-tenant
// ticket numbers, listing, and the RECEIVED -> WASHING -> READY -> DELIVERED
// status pipeline.
package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/repik/lavanderia/internal/clients"
	"github.com/repik/lavanderia/internal/domain"
	"github.com/repik/lavanderia/internal/notify"
	redisstore "github.com/repik/lavanderia/internal/store/redis"
)

const notifyTimeout = 10 * time.Second

// PubSubPublisher abstracts the Redis pub/sub publish operation.
type PubSubPublisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// ReadyNotifier tells a client that their order can be picked up.
type ReadyNotifier interface {
	OrderReady(ctx context.Context, n notify.ReadyNotice) error
}

// Service is the Order Service.
type Service struct {
	store    domain.Store
	notifier ReadyNotifier
	pubsub   PubSubPublisher // nil disables order events

	// background tracks in-flight ready notifications.
	background sync.WaitGroup
}

func NewService(store domain.Store, notifier ReadyNotifier, pubsub PubSubPublisher) *Service {
	return &Service{
		store:    store,
		notifier: notifier,
		pubsub:   pubsub,
	}
}

// ItemInput is one line of a new order.
type ItemInput struct {
	Description string
	Quantity    int
	UnitPrice   decimal.Decimal
}

// CreateInput describes a new order. Either ClientID or both ClientName and
// ClientPhone must be set.
type CreateInput struct {
	ClientID      *uuid.UUID
	ClientName    string
	ClientPhone   string
	Items         []ItemInput
	Notes         string
	EstimatedDate *time.Time
}

// Create registers an order. Client resolution, ticket numbering and the
// inserts share one transaction, so a failure leaves no trace.
func (s *Service) Create(ctx context.Context, tenantID uuid.UUID, in CreateInput) (*domain.Order, error) {
	items := make([]domain.OrderItem, len(in.Items))
	for i, it := range in.Items {
		items[i] = domain.OrderItem{
			ID:          uuid.New(),
			Description: strings.TrimSpace(it.Description),
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
		}
	}

	verr := &domain.ValidationError{}
	if in.ClientID == nil && (strings.TrimSpace(in.ClientName) == "" || strings.TrimSpace(in.ClientPhone) == "") {
		verr.Add("clientId", "either clientId or clientName and clientPhone are required")
	}
	var itemsErr *domain.ValidationError
	if errors.As(domain.ValidateItems(items), &itemsErr) {
		verr.Fields = append(verr.Fields, itemsErr.Fields...)
	}
	if err := verr.Err(); err != nil {
		return nil, fmt.Errorf("orders.Create: %w", err)
	}

	now := time.Now()
	order := &domain.Order{
		ID:            uuid.New(),
		TenantID:      tenantID,
		Status:        domain.OrderStatusReceived,
		TotalPrice:    domain.OrderTotal(items),
		Notes:         strings.TrimSpace(in.Notes),
		EstimatedDate: in.EstimatedDate,
		CreatedAt:     now,
		UpdatedAt:     now,
		Items:         items,
	}
	for i := range order.Items {
		order.Items[i].OrderID = order.ID
	}

	err := s.store.InTx(ctx, func(tx domain.Repositories) error {
		client, err := s.resolveClient(ctx, tx, tenantID, in)
		if err != nil {
			return err
		}
		order.ClientID = client.ID
		order.Client = &domain.ClientSummary{ID: client.ID, Name: client.Name, Phone: client.Phone}

		ticket, err := tx.Tenants().NextTicketNumber(ctx, tenantID)
		if err != nil {
			return fmt.Errorf("next ticket: %w", err)
		}
		order.TicketNumber = ticket

		return tx.Orders().Create(ctx, order)
	})
	if err != nil {
		return nil, fmt.Errorf("orders.Create: %w", err)
	}

	log.Info().
		Str("tenant_id", tenantID.String()).
		Str("order_id", order.ID.String()).
		Int64("ticket", order.TicketNumber).
		Msg("order created")

	s.publish(ctx, tenantID, domain.OrderEvent{
		Type:         domain.EventOrderCreated,
		OrderID:      order.ID,
		TicketNumber: order.TicketNumber,
		Status:       order.Status,
	})

	return order, nil
}

func (s *Service) resolveClient(ctx context.Context, tx domain.Repositories, tenantID uuid.UUID, in CreateInput) (*domain.Client, error) {
	if in.ClientID != nil {
		c, err := tx.Clients().GetByID(ctx, tenantID, *in.ClientID)
		if err != nil {
			return nil, fmt.Errorf("client: %w", err)
		}
		return c, nil
	}

	c, err := clients.FindOrCreate(ctx, tx.Clients(), tenantID, in.ClientName, in.ClientPhone)
	if err != nil {
		return nil, fmt.Errorf("client: %w", err)
	}
	return c, nil
}

// ListInput filters and pages an order listing.
type ListInput struct {
	Status domain.OrderStatus
	Search string
	domain.PageRequest
}

// List returns the tenant's orders, newest first.
func (s *Service) List(ctx context.Context, tenantID uuid.UUID, in ListInput) (domain.Page[*domain.Order], error) {
	if in.Status != "" && !in.Status.Valid() {
		verr := &domain.ValidationError{}
		verr.Add("status", "must be one of RECEIVED, WASHING, READY, DELIVERED")
		return domain.Page[*domain.Order]{}, fmt.Errorf("orders.List: %w", verr)
	}

	pr := in.Normalize()
	items, total, err := s.store.Orders().List(ctx, tenantID, domain.OrderFilter{
		Status: in.Status,
		Search: strings.TrimSpace(in.Search),
		Limit:  pr.Limit,
		Offset: pr.Offset(),
	})
	if err != nil {
		return domain.Page[*domain.Order]{}, fmt.Errorf("orders.List: %w", err)
	}

	return domain.Page[*domain.Order]{Items: items, Total: total, Page: pr.Page, Limit: pr.Limit}, nil
}

func (s *Service) Get(ctx context.Context, tenantID, id uuid.UUID) (*domain.Order, error) {
	o, err := s.store.Orders().GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, fmt.Errorf("orders.Get: %w", err)
	}
	return o, nil
}

// UpdateStatus advances an order one step along the pipeline. actorID is
// recorded in the status history; uuid.Nil records a system change.
func (s *Service) UpdateStatus(ctx context.Context, tenantID, actorID, id uuid.UUID, to domain.OrderStatus) (*domain.Order, error) {
	if !to.Valid() {
		verr := &domain.ValidationError{}
		verr.Add("status", "must be one of RECEIVED, WASHING, READY, DELIVERED")
		return nil, fmt.Errorf("orders.UpdateStatus: %w", verr)
	}

	var order *domain.Order
	err := s.store.InTx(ctx, func(tx domain.Repositories) error {
		current, err := tx.Orders().GetByID(ctx, tenantID, id)
		if err != nil {
			return err
		}
		if !current.Status.ValidTransition(to) {
			return fmt.Errorf("%s -> %s: %w", current.Status, to, domain.ErrInvalidTransition)
		}

		now := time.Now()
		var deliveredAt *time.Time
		if to == domain.OrderStatusDelivered {
			deliveredAt = &now
		}
		if err := tx.Orders().TransitionStatus(ctx, tenantID, id, current.Status, to, deliveredAt); err != nil {
			return err
		}

		change := &domain.StatusChange{
			ID:         uuid.New(),
			TenantID:   tenantID,
			OrderID:    id,
			FromStatus: current.Status,
			ToStatus:   to,
			CreatedAt:  now,
		}
		if actorID != uuid.Nil {
			change.ActorID = &actorID
		}
		if err := tx.StatusHistory().Record(ctx, change); err != nil {
			return err
		}

		order, err = tx.Orders().GetByID(ctx, tenantID, id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("orders.UpdateStatus: %w", err)
	}

	log.Info().
		Str("tenant_id", tenantID.String()).
		Str("order_id", order.ID.String()).
		Int64("ticket", order.TicketNumber).
		Str("status", string(order.Status)).
		Msg("order status changed")

	if to == domain.OrderStatusReady {
		s.notifyReady(ctx, order)
	}

	s.publish(ctx, tenantID, domain.OrderEvent{
		Type:         domain.EventOrderStatusChanged,
		OrderID:      order.ID,
		TicketNumber: order.TicketNumber,
		Status:       order.Status,
	})

	return order, nil
}

// History returns the status changes of an order, oldest first.
func (s *Service) History(ctx context.Context, tenantID, id uuid.UUID) ([]*domain.StatusChange, error) {
	if _, err := s.store.Orders().GetByID(ctx, tenantID, id); err != nil {
		return nil, fmt.Errorf("orders.History: %w", err)
	}

	changes, err := s.store.StatusHistory().ListByOrder(ctx, tenantID, id)
	if err != nil {
		return nil, fmt.Errorf("orders.History: %w", err)
	}
	return changes, nil
}

// Wait blocks until in-flight ready notifications finish.
func (s *Service) Wait() {
	s.background.Wait()
}

// notifyReady sends the ready notification without holding up the request.
// Failures are logged; the status change stands.
func (s *Service) notifyReady(ctx context.Context, o *domain.Order) {
	if s.notifier == nil {
		return
	}

	notice := notify.ReadyNotice{
		TenantID:     o.TenantID,
		OrderID:      o.ID,
		TicketNumber: o.TicketNumber,
	}
	if o.Client != nil {
		notice.ClientName = o.Client.Name
		notice.ClientPhone = o.Client.Phone
	}

	detached := context.WithoutCancel(ctx)
	s.background.Go(func() {
		nctx, cancel := context.WithTimeout(detached, notifyTimeout)
		defer cancel()

		if err := s.notifier.OrderReady(nctx, notice); err != nil {
			log.Error().Err(err).
				Str("tenant_id", o.TenantID.String()).
				Str("order_id", o.ID.String()).
				Msg("orders: ready notification failed")
		}
	})
}

func (s *Service) publish(ctx context.Context, tenantID uuid.UUID, evt domain.OrderEvent) {
	if s.pubsub == nil {
		return
	}

	payload, err := json.Marshal(evt)
	if err != nil {
		return
	}

	channel := redisstore.OrdersChannel(tenantID)
	if pubErr := s.pubsub.Publish(ctx, channel, payload); pubErr != nil {
		log.Error().Err(pubErr).Str("channel", channel).Msg("orders: failed to publish event")
	}
}
