// Package amqp hands ready notices to RabbitMQ for an external delivery
// worker (WhatsApp, SMS).
package amqp

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"

	"github.com/repik/lavanderia/internal/notify"
)

const (
	DefaultExchange = "notifications"
	RoutingKeyReady = "order.ready"
)

// amqpChannel is the subset of *amqp091.Channel the publisher uses.
type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Close() error
}

// Publisher is a notify.Channel that publishes JSON ready notices to a
// durable topic exchange.
type Publisher struct {
	conn     *amqp091.Connection
	exchange string

	mu sync.Mutex // amqp091 channels are not safe for concurrent publishes
	ch amqpChannel
}

// Dial connects to url and declares the exchange.
func Dial(url, exchange string) (*Publisher, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}

	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqp.Dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp.Dial: channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("amqp.Dial: declare exchange %q: %w", exchange, err)
	}

	log.Info().Str("exchange", exchange).Msg("amqp: connected")

	return &Publisher{conn: conn, exchange: exchange, ch: ch}, nil
}

func newPublisher(ch amqpChannel, exchange string) *Publisher {
	return &Publisher{ch: ch, exchange: exchange}
}

func (p *Publisher) Name() string { return "amqp" }

// Send publishes n with routing key "order.ready".
func (p *Publisher) Send(ctx context.Context, n notify.ReadyNotice) error {
	body, err := json.Marshal(message{ReadyNotice: n, Message: n.Message()})
	if err != nil {
		return fmt.Errorf("amqp.Publisher.Send: marshal: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.ch.PublishWithContext(ctx,
		p.exchange,      // exchange
		RoutingKeyReady, // routing key
		false,           // mandatory
		false,           // immediate
		amqp091.Publishing{
			DeliveryMode: amqp091.Persistent,
			ContentType:  "application/json",
			MessageId:    n.OrderID.String(),
			Timestamp:    time.Now(),
			Body:         body,
		})
	if err != nil {
		return fmt.Errorf("amqp.Publisher.Send: %w", err)
	}

	return nil
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ch.Close(); err != nil {
		return fmt.Errorf("amqp.Publisher.Close: channel: %w", err)
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil {
			return fmt.Errorf("amqp.Publisher.Close: %w", err)
		}
	}
	return nil
}

// message is the wire body: the notice plus the rendered text.
type message struct {
	notify.ReadyNotice
	Message string `json:"message"`
}
