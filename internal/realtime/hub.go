// Package realtime streams scored transactions to WebSocket clients.
//
// Every connected dashboard receives the same analysis events; each client may
// narrow its stream by sending a Subscription message at any time.
package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mbd888/fraudwatch/internal/metrics"
	"github.com/mbd888/fraudwatch/internal/risk"
	"github.com/mbd888/fraudwatch/internal/transaction"
)

// normalCloseCodes are WebSocket close codes that indicate an expected disconnect.
var normalCloseCodes = []int{
	websocket.CloseNormalClosure,
	websocket.CloseGoingAway,
	websocket.CloseNoStatusReceived,
}

// EventType for real-time events
type EventType string

const (
	EventAnalysis EventType = "analysis"
)

// Event sources.
const (
	SourceFeed = "feed"
	SourceAPI  = "api"
)

// Event is one scored transaction as delivered to feed clients.
type Event struct {
	Type           EventType               `json:"type"`
	Source         string                  `json:"source"`
	Transaction    transaction.Transaction `json:"transaction"`
	Analysis       risk.Prediction         `json:"analysis"`
	Recommendation string                  `json:"recommendation"`
	AlertLevel     risk.AlertLevel         `json:"alert_level"`
	Timestamp      time.Time               `json:"timestamp"`
}

// NewAnalysisEvent builds a feed event from a scored transaction.
func NewAnalysisEvent(source string, a *risk.Analysis) *Event {
	return &Event{
		Type:           EventAnalysis,
		Source:         source,
		Transaction:    a.Transaction,
		Analysis:       a.Prediction,
		Recommendation: string(a.Recommendation.Action),
		AlertLevel:     a.Recommendation.AlertLevel,
		Timestamp:      a.Prediction.EvaluatedAt,
	}
}

// Subscription filters for a client. Empty fields match everything.
type Subscription struct {
	AlertLevels   []risk.AlertLevel `json:"alert_levels"`
	MerchantTypes []string          `json:"merchant_types"`
	MinAmount     float64           `json:"min_amount"`
	MinRiskScore  float64           `json:"min_risk_score"`
	FraudOnly     bool              `json:"fraud_only"`
}

// Matches reports whether an event passes the subscription's filters.
func (s Subscription) Matches(event *Event) bool {
	if len(s.AlertLevels) > 0 && !slices.Contains(s.AlertLevels, event.AlertLevel) {
		return false
	}
	if len(s.MerchantTypes) > 0 && !slices.ContainsFunc(s.MerchantTypes, func(m string) bool {
		return strings.EqualFold(m, event.Transaction.MerchantType)
	}) {
		return false
	}
	if event.Transaction.Amount < s.MinAmount {
		return false
	}
	if event.Analysis.RiskScore < s.MinRiskScore {
		return false
	}
	if s.FraudOnly && !event.Analysis.IsFraud() {
		return false
	}
	return true
}

// Client represents a WebSocket connection
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	mu   sync.RWMutex
	sub  Subscription
}

// MaxClients is the maximum number of concurrent WebSocket connections.
const MaxClients = 10000

// Stats summarizes hub activity.
type Stats struct {
	ConnectedClients int   `json:"connected_clients"`
	TotalEvents      int64 `json:"total_events"`
	TotalClients     int64 `json:"total_clients"`
	PeakClients      int64 `json:"peak_clients"`
	DroppedMessages  int64 `json:"dropped_messages"`
}

// Hub manages all WebSocket connections
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan *Event
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
	logger     *slog.Logger
	done       chan struct{} // closed when Run exits; prevents upgrade race
	maxClients int
	upgrader   websocket.Upgrader

	totalEvents  atomic.Int64
	totalClients atomic.Int64
	peakClients  atomic.Int64
	dropped      atomic.Int64
}

// HubOption configures a Hub.
type HubOption func(*Hub)

// WithMaxClients overrides the connection limit.
func WithMaxClients(n int) HubOption {
	return func(h *Hub) { h.maxClients = n }
}

// WithAllowAllOrigins accepts upgrades from any Origin. By default only
// same-host browsers and non-browser clients may connect.
func WithAllowAllOrigins() HubOption {
	return func(h *Hub) {
		h.upgrader.CheckOrigin = func(*http.Request) bool { return true }
	}
}

// NewHub creates a new WebSocket hub
func NewHub(logger *slog.Logger, opts ...HubOption) *Hub {
	h := &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan *Event, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     logger,
		done:       make(chan struct{}),
		maxClients: MaxClients,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     sameHost,
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func sameHost(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true // non-browser client
	}
	return origin == "http://"+r.Host || origin == "https://"+r.Host
}

// Run starts the hub's main loop
func (h *Hub) Run(ctx context.Context) {
	h.logger.Info("realtime hub started")
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.logger.Info("realtime hub shutting down, closing client connections")
			h.mu.Lock()
			for client := range h.clients {
				close(client.send) // writePump sends CloseMessage on closed channel
				delete(h.clients, client)
			}
			h.mu.Unlock()
			metrics.ActiveWebSocketClients.Set(0)
			h.logger.Info("realtime hub stopped")
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.totalClients.Add(1)
			if current := int64(len(h.clients)); current > h.peakClients.Load() {
				h.peakClients.Store(current)
			}
			n := len(h.clients)
			h.mu.Unlock()
			metrics.ActiveWebSocketClients.Set(float64(n))
			h.logger.Info("client connected", "total", n)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			n := len(h.clients)
			h.mu.Unlock()
			metrics.ActiveWebSocketClients.Set(float64(n))
			h.logger.Info("client disconnected", "total", n)

		case event := <-h.broadcast:
			h.deliver(event)
		}
	}
}

func (h *Hub) deliver(event *Event) {
	h.totalEvents.Add(1)
	metrics.FeedEventsTotal.WithLabelValues(string(event.AlertLevel)).Inc()

	payload, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("failed to encode feed event", "error", err)
		return
	}

	h.mu.RLock()
	var slow []*Client
	for client := range h.clients {
		if !client.subscription().Matches(event) {
			continue
		}
		select {
		case client.send <- payload:
		default:
			slow = append(slow, client)
		}
	}
	h.mu.RUnlock()

	if len(slow) == 0 {
		return
	}
	h.mu.Lock()
	for _, client := range slow {
		if _, ok := h.clients[client]; ok {
			close(client.send)
			delete(h.clients, client)
			h.dropped.Add(1)
			metrics.WebSocketMessagesDroppedTotal.Inc()
		}
	}
	n := len(h.clients)
	h.mu.Unlock()
	metrics.ActiveWebSocketClients.Set(float64(n))
	h.logger.Warn("disconnected slow feed clients", "count", len(slow), "total", n)
}

// Broadcast sends an event to all matching clients
func (h *Hub) Broadcast(event *Event) {
	select {
	case h.broadcast <- event:
	default:
		h.logger.Warn("broadcast channel full, dropping event")
	}
}

// PublishAnalysis broadcasts an analysis produced through the API.
func (h *Hub) PublishAnalysis(a *risk.Analysis) {
	h.Broadcast(NewAnalysisEvent(SourceAPI, a))
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Stats returns hub statistics
func (h *Hub) Stats() Stats {
	return Stats{
		ConnectedClients: h.ClientCount(),
		TotalEvents:      h.totalEvents.Load(),
		TotalClients:     h.totalClients.Load(),
		PeakClients:      h.peakClients.Load(),
		DroppedMessages:  h.dropped.Load(),
	}
}

// HandleWebSocket upgrades HTTP to WebSocket
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	// Reject upgrades after the hub has stopped to prevent orphaned connections.
	select {
	case <-h.done:
		http.Error(w, "server shutting down", http.StatusServiceUnavailable)
		return
	default:
	}

	if h.ClientCount() >= h.maxClients {
		http.Error(w, "too many connections", http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	client := &Client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, 256),
	}

	select {
	case h.register <- client:
	case <-h.done:
		_ = conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

func (c *Client) subscription() Subscription {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sub
}

// readPump reads subscription updates until the connection closes
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(64 * 1024)
	_ = c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, normalCloseCodes...) {
				c.hub.logger.Warn("websocket read error", "error", err)
			}
			break
		}

		var sub Subscription
		if err := json.Unmarshal(message, &sub); err != nil {
			c.hub.logger.Debug("ignoring malformed subscription", "error", err)
			continue
		}
		c.mu.Lock()
		c.sub = sub
		c.mu.Unlock()
	}
}

// writePump writes messages to WebSocket
func (c *Client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.hub.logger.Warn("websocket write error", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.hub.logger.Debug("websocket ping failed", "error", err)
				return
			}
		}
	}
}
