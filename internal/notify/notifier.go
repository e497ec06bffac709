// Package notify dispatches "your order is ready" notices to clients.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ErrNoChannels is returned when no notification channel is registered.
var ErrNoChannels = errors.New("notify: no channels registered") //nolint:gochecknoglobals // sentinel error

// ReadyNotice describes an order that can be picked up.
type ReadyNotice struct {
	TenantID     uuid.UUID `json:"tenantId"`
	OrderID      uuid.UUID `json:"orderId"`
	TicketNumber int64     `json:"ticketNumber"`
	ClientName   string    `json:"clientName"`
	ClientPhone  string    `json:"clientPhone"`
}

// Message renders the text sent to the client.
func (n ReadyNotice) Message() string {
	return "¡Hola " + n.ClientName + "! Tu pedido #" + strconv.FormatInt(n.TicketNumber, 10) +
		" está LISTO para retirar. ¡Te esperamos!"
}

// Notifier fans a notice out to every registered channel.
type Notifier struct {
	channels *Registry
}

// New creates a Notifier over the given channel registry.
func New(channels *Registry) *Notifier {
	return &Notifier{channels: channels}
}

// OrderReady sends n through every channel. All channels are attempted; the
// returned error joins the individual failures.
func (n *Notifier) OrderReady(ctx context.Context, notice ReadyNotice) error {
	channels := n.channels.All()
	if len(channels) == 0 {
		return fmt.Errorf("notify.Notifier.OrderReady: %w", ErrNoChannels)
	}

	var errs []error
	for _, c := range channels {
		if err := c.Send(ctx, notice); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", c.Name(), err))
			continue
		}
		log.Debug().Str("channel", c.Name()).Str("order_id", notice.OrderID.String()).Msg("notify: sent")
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("notify.Notifier.OrderReady: %w", err)
	}
	return nil
}
