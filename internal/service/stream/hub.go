package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"MarketSim/internal/domain/models"
	svcmetrics "MarketSim/internal/service/metrics"
	"MarketSim/pkg/http/middleware"
	"MarketSim/pkg/logger"
)

// Hub pushes generated candles to websocket subscribers. Slow clients lose
// messages instead of blocking the simulation.
type Hub struct {
	upgrader     websocket.Upgrader
	pingInterval time.Duration
	writeTimeout time.Duration
	buffer       int
	metrics      *svcmetrics.StreamMetrics
	log          *logger.Logger

	mu      sync.RWMutex
	clients map[*client]struct{}
	closed  bool
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

type HubOption func(*Hub)

func WithPingInterval(d time.Duration) HubOption {
	return func(h *Hub) {
		if d > 0 {
			h.pingInterval = d
		}
	}
}

func WithWriteTimeout(d time.Duration) HubOption {
	return func(h *Hub) {
		if d > 0 {
			h.writeTimeout = d
		}
	}
}

// WithClientBuffer sets how many messages may queue per client.
func WithClientBuffer(n int) HubOption {
	return func(h *Hub) {
		if n > 0 {
			h.buffer = n
		}
	}
}

// WithAllowedOrigins restricts the websocket upgrade to origins, using the
// same patterns as the HTTP CORS policy. Empty allows all.
func WithAllowedOrigins(origins []string) HubOption {
	return func(h *Hub) {
		if len(origins) == 0 {
			return
		}
		allowed := middleware.OriginPolicy(origins)
		h.upgrader.CheckOrigin = func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || allowed(origin)
		}
	}
}

func NewHub(metrics *svcmetrics.StreamMetrics, log *logger.Logger, opts ...HubOption) *Hub {
	h := &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		pingInterval: 30 * time.Second,
		writeTimeout: 10 * time.Second,
		buffer:       64,
		metrics:      metrics,
		log:          log.Component("stream"),
		clients:      make(map[*client]struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Hub) Name() string { return "stream" }

// Write queues ev for every connected client.
func (h *Hub) Write(_ context.Context, ev *models.CandleEvent) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode candle: %w", err)
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- b:
			h.metrics.Sent.Inc()
		default:
			h.metrics.Dropped.WithLabelValues("backpressure").Inc()
		}
	}
	return nil
}

// Len reports the number of connected clients.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request and streams candles until the client
// disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", logger.Error(err))
		return
	}

	c := &client{conn: conn, send: make(chan []byte, h.buffer)}
	if !h.register(c) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
			time.Now().Add(h.writeTimeout))
		_ = conn.Close()
		return
	}
	h.log.Debug("stream client connected", logger.String("remote", r.RemoteAddr))

	go h.writeLoop(c)
	h.readLoop(c)
}

func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	h.metrics.Clients.Set(float64(len(h.clients)))
	return true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		h.metrics.Clients.Set(float64(len(h.clients)))
	}
	h.mu.Unlock()
	c.once.Do(func() { close(c.send) })
}

// readLoop drains client frames so pongs and close frames are processed.
func (h *Hub) readLoop(c *client) {
	defer h.unregister(c)
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(2 * h.pingInterval))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(2 * h.pingInterval))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writeLoop(c *client) {
	ticker := time.NewTicker(h.pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.metrics.Dropped.WithLabelValues("write_error").Inc()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Close disconnects every client and refuses new ones.
func (h *Hub) Close() error {
	h.mu.Lock()
	h.closed = true
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		h.unregister(c)
	}
	return nil
}
