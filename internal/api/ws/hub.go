package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/rs/zerolog/log"

	"github.com/repik/lavanderia/internal/server/middleware"
	redisstore "github.com/repik/lavanderia/internal/store/redis"
)

// Subscriber is the subset of redisstore.PubSub the hub needs.
type Subscriber interface {
	Subscribe(ctx context.Context, channel string) (<-chan []byte, func(), error)
}

// Hub streams tenant order events to WebSocket clients.
type Hub struct {
	sub Subscriber
}

// NewHub creates a hub. sub may be nil, in which case ServeOrders answers 501.
func NewHub(sub Subscriber) *Hub {
	return &Hub{sub: sub}
}

// Enabled reports whether live events are available.
func (h *Hub) Enabled() bool {
	return h.sub != nil
}

// ServeOrders handles WebSocket connections for the live order board.
// Subscribes to Redis channel "orders:<tenantID>" for the caller's tenant and
// forwards every OrderEvent payload as a text message.
func (h *Hub) ServeOrders(w http.ResponseWriter, r *http.Request) {
	if !h.Enabled() {
		http.Error(w, `{"ok":false,"message":"live order events are not configured"}`, http.StatusNotImplemented)
		return
	}

	tenantID, ok := middleware.TenantIDFromContext(r.Context())
	if !ok {
		http.Error(w, `{"ok":false,"message":"missing tenant"}`, http.StatusUnauthorized)
		return
	}

	// The stream outlives the server's read and write timeouts.
	rc := http.NewResponseController(w)
	_ = rc.SetReadDeadline(time.Time{})
	_ = rc.SetWriteDeadline(time.Time{})

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("websocket accept")
		return
	}
	defer conn.CloseNow()

	// Client messages are ignored; CloseRead also notices when the peer leaves.
	ctx := conn.CloseRead(r.Context())

	messages, cleanup, err := h.sub.Subscribe(ctx, redisstore.OrdersChannel(tenantID))
	if err != nil {
		log.Error().Err(err).Str("tenant_id", tenantID.String()).Msg("websocket subscribe")
		_ = conn.Close(websocket.StatusInternalError, "subscribe failed")
		return
	}
	defer cleanup()

	for {
		select {
		case <-ctx.Done():
			_ = conn.Close(websocket.StatusNormalClosure, "connection closed")
			return
		case msg, msgOK := <-messages:
			if !msgOK {
				_ = conn.Close(websocket.StatusNormalClosure, "channel closed")
				return
			}
			if writeErr := conn.Write(ctx, websocket.MessageText, msg); writeErr != nil {
				log.Debug().Err(writeErr).Msg("websocket write")
				return
			}
		}
	}
}
