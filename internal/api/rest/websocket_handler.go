package rest

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/davidleathers/contact-guardian/internal/infrastructure/corpus"
)

// WebSocket message types
const (
	MessageTypeSystem   = "system"
	MessageTypeSnapshot = "snapshot"
)

// WebSocketConfig configures the snapshot event stream
type WebSocketConfig struct {
	WriteTimeout   time.Duration
	PongTimeout    time.Duration
	PingPeriod     time.Duration
	MaxMessageSize int64
	EventBuffer    int
	CheckOrigin    func(r *http.Request) bool
}

// DefaultWebSocketConfig returns default configuration
func DefaultWebSocketConfig() WebSocketConfig {
	return WebSocketConfig{
		WriteTimeout:   10 * time.Second,
		PongTimeout:    60 * time.Second,
		PingPeriod:     54 * time.Second,
		MaxMessageSize: 4096,
		EventBuffer:    16,
	}
}

// WebSocketMessage is one frame sent to subscribers
type WebSocketMessage struct {
	ID        string      `json:"id"`
	Type      string      `json:"type"`
	Event     string      `json:"event"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// ConnectionObserver tracks connected subscribers
type ConnectionObserver interface {
	WebsocketConnected(delta int)
}

// SnapshotHub streams corpus snapshot events to websocket clients
type SnapshotHub struct {
	store    CorpusStore
	observer ConnectionObserver
	logger   *zap.Logger
	tracer   trace.Tracer
	config   WebSocketConfig
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[uuid.UUID]*wsClient
	closed  bool
}

type wsClient struct {
	id     uuid.UUID
	conn   *websocket.Conn
	events <-chan corpus.Event
	cancel func()
	done   chan struct{}
	once   sync.Once
}

// NewSnapshotHub creates a hub. observer may be nil.
func NewSnapshotHub(store CorpusStore, observer ConnectionObserver, config WebSocketConfig, logger *zap.Logger) *SnapshotHub {
	if logger == nil {
		logger = zap.NewNop()
	}
	def := DefaultWebSocketConfig()
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = def.WriteTimeout
	}
	if config.PongTimeout <= 0 {
		config.PongTimeout = def.PongTimeout
	}
	if config.PingPeriod <= 0 || config.PingPeriod >= config.PongTimeout {
		config.PingPeriod = config.PongTimeout * 9 / 10
	}
	if config.MaxMessageSize <= 0 {
		config.MaxMessageSize = def.MaxMessageSize
	}
	if config.EventBuffer <= 0 {
		config.EventBuffer = def.EventBuffer
	}
	return &SnapshotHub{
		store:    store,
		observer: observer,
		logger:   logger,
		tracer:   otel.Tracer("contact-guardian/websocket"),
		config:   config,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     config.CheckOrigin,
		},
		clients: make(map[uuid.UUID]*wsClient),
	}
}

// ServeHTTP upgrades the connection and streams events until the client
// disconnects or the hub closes
func (h *SnapshotHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	_, span := h.tracer.Start(r.Context(), "websocket.connect")
	defer span.End()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		span.RecordError(err)
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	events, cancel := h.store.Subscribe(h.config.EventBuffer)
	c := &wsClient{
		id:     uuid.New(),
		conn:   conn,
		events: events,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	if !h.register(c) {
		cancel()
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
		_ = conn.Close()
		return
	}
	span.SetAttributes(attribute.String("websocket.client_id", c.id.String()))

	welcome := map[string]interface{}{"client_id": c.id}
	if snap := h.store.Current(); snap != nil {
		welcome["version"] = snap.Version()
		welcome["records"] = snap.Len()
	}
	if err := h.write(c, newMessage(MessageTypeSystem, "connected", welcome)); err != nil {
		h.disconnect(c)
		return
	}

	go h.readPump(c)
	go h.writePump(c)
}

func (h *SnapshotHub) register(c *wsClient) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c.id] = c
	if h.observer != nil {
		h.observer.WebsocketConnected(1)
	}
	h.logger.Debug("websocket client connected", zap.String("client_id", c.id.String()))
	return true
}

func (h *SnapshotHub) disconnect(c *wsClient) {
	c.once.Do(func() {
		h.mu.Lock()
		if _, ok := h.clients[c.id]; ok {
			delete(h.clients, c.id)
			if h.observer != nil {
				h.observer.WebsocketConnected(-1)
			}
		}
		h.mu.Unlock()

		close(c.done)
		c.cancel()
		_ = c.conn.Close()
		h.logger.Debug("websocket client disconnected", zap.String("client_id", c.id.String()))
	})
}

// readPump drains client frames so control messages are processed
func (h *SnapshotHub) readPump(c *wsClient) {
	defer h.disconnect(c)

	c.conn.SetReadLimit(h.config.MaxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(h.config.PongTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(h.config.PongTimeout))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("websocket read error", zap.String("client_id", c.id.String()), zap.Error(err))
			}
			return
		}
	}
}

func (h *SnapshotHub) writePump(c *wsClient) {
	ticker := time.NewTicker(h.config.PingPeriod)
	defer func() {
		ticker.Stop()
		h.disconnect(c)
	}()

	for {
		select {
		case <-c.done:
			return

		case ev, ok := <-c.events:
			if !ok {
				_ = c.conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(h.config.WriteTimeout))
				return
			}
			if err := h.write(c, newMessage(MessageTypeSnapshot, "swapped", ev)); err != nil {
				return
			}

		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(h.config.WriteTimeout)); err != nil {
				return
			}
		}
	}
}

func (h *SnapshotHub) write(c *wsClient, msg WebSocketMessage) error {
	_ = c.conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
	return c.conn.WriteJSON(msg)
}

// Clients returns the number of connected clients
func (h *SnapshotHub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client and refuses new ones
func (h *SnapshotHub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := make([]*wsClient, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(time.Second))
		h.disconnect(c)
	}
}

func newMessage(typ, event string, data interface{}) WebSocketMessage {
	return WebSocketMessage{
		ID:        uuid.New().String(),
		Type:      typ,
		Event:     event,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}
}
