package httpserver

import (
	"net/http"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// EventBroadcaster pushes finished-iteration events to subscribed
// /ws/events clients. Grounded on pkg/websocket/manager.go's
// per-connection goroutine and ping/pong lifecycle, inverted from an
// inbound market-data subscriber to an outbound broadcaster: this
// domain has no upstream feed to subscribe to, only iteration
// outcomes to publish.
type EventBroadcaster struct {
	upgrader websocket.Upgrader
	logger   *zap.Logger

	mu      sync.Mutex
	clients map[*eventClient]struct{}
	closed  bool
}

type eventClient struct {
	conn *websocket.Conn
	send chan []byte
}

const (
	eventWriteTimeout = 10 * time.Second
	eventPingInterval = 30 * time.Second
	eventSendBuffer   = 16
)

// NewEventBroadcaster builds an EventBroadcaster.
func NewEventBroadcaster(logger *zap.Logger) *EventBroadcaster {
	return &EventBroadcaster{
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients: make(map[*eventClient]struct{}),
	}
}

// ServeHTTP upgrades the connection and registers it as a broadcast
// recipient until it disconnects.
func (b *EventBroadcaster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.logger.Warn("events-upgrade-failed", zap.Error(err))
		return
	}

	client := &eventClient{conn: conn, send: make(chan []byte, eventSendBuffer)}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		conn.Close()
		return
	}
	b.clients[client] = struct{}{}
	b.mu.Unlock()

	go b.writePump(client)
	go b.readPump(client)
}

// Broadcast publishes an event to every connected client. Slow or
// disconnected clients are dropped rather than blocking the loop.
func (b *EventBroadcaster) Broadcast(event any) {
	payload, err := json.Marshal(event)
	if err != nil {
		b.logger.Error("events-marshal-failed", zap.Error(err))
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for client := range b.clients {
		select {
		case client.send <- payload:
		default:
			b.logger.Warn("events-client-buffer-full-dropping")
			b.removeLocked(client)
		}
	}
}

// Close disconnects every client and stops accepting new ones.
func (b *EventBroadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	for client := range b.clients {
		b.removeLocked(client)
	}
}

func (b *EventBroadcaster) removeLocked(client *eventClient) {
	delete(b.clients, client)
	close(client.send)
	client.conn.Close()
}

func (b *EventBroadcaster) remove(client *eventClient) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.clients[client]; ok {
		b.removeLocked(client)
	}
}

func (b *EventBroadcaster) writePump(client *eventClient) {
	ticker := time.NewTicker(eventPingInterval)
	defer ticker.Stop()

	for {
		select {
		case payload, ok := <-client.send:
			if !ok {
				return
			}
			client.conn.SetWriteDeadline(time.Now().Add(eventWriteTimeout))
			if err := client.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				b.remove(client)
				return
			}
		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(eventWriteTimeout))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				b.remove(client)
				return
			}
		}
	}
}

// readPump drains and discards inbound frames; this endpoint is
// publish-only but must read to process control frames and detect
// disconnects.
func (b *EventBroadcaster) readPump(client *eventClient) {
	defer b.remove(client)
	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			return
		}
	}
}
