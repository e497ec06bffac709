package notify

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogChannel simulates a WhatsApp message by logging it.
type LogChannel struct {
	logger zerolog.Logger
}

// NewLogChannel logs through the global logger.
func NewLogChannel() *LogChannel {
	return &LogChannel{logger: log.Logger}
}

// NewLogChannelWith logs through logger.
func NewLogChannelWith(logger zerolog.Logger) *LogChannel {
	return &LogChannel{logger: logger}
}

func (c *LogChannel) Name() string { return "log" }

func (c *LogChannel) Send(_ context.Context, n ReadyNotice) error {
	c.logger.Info().
		Str("tenant_id", n.TenantID.String()).
		Str("order_id", n.OrderID.String()).
		Int64("ticket", n.TicketNumber).
		Str("to", n.ClientPhone).
		Str("message", n.Message()).
		Msg("[WHATSAPP SIMULADO]")
	return nil
}
