package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"courier-reconciliation-service/internal/auth"
	"courier-reconciliation-service/internal/changefeed"
	"courier-reconciliation-service/internal/services"
	"courier-reconciliation-service/internal/utils"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

const (
	writeWait      = 10 * time.Second
	minHeartbeat   = 5 * time.Second
	recomputeLimit = 15 * time.Second
)

// Hub pushes order change notifications and recomputed dashboard metrics
// to connected dashboards.
type Hub struct {
	Logger     *zap.Logger
	JWTSecret  string
	Heartbeat  time.Duration
	Recomputer *services.Recomputer
	Suppressor *changefeed.Suppressor
	Location   *time.Location

	mu      sync.RWMutex
	clients map[*client]struct{}
	nextID  atomic.Uint64
}

func NewHub(logger *zap.Logger, jwtSecret string, heartbeat time.Duration, recomputer *services.Recomputer, suppressor *changefeed.Suppressor, loc *time.Location) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Hub{
		Logger:     logger,
		JWTSecret:  jwtSecret,
		Heartbeat:  heartbeat,
		Recomputer: recomputer,
		Suppressor: suppressor,
		Location:   loc,
		clients:    make(map[*client]struct{}),
	}
}

type client struct {
	conn    *websocket.Conn
	writeMu sync.Mutex

	key    string
	origin string
	claims *auth.Claims

	mu    sync.Mutex
	query services.DashboardQuery
	ready bool
}

func (c *client) writeJSON(value any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(value)
}

func (c *client) ping() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

func (c *client) isAdmin() bool {
	return c.claims != nil && c.claims.Role == auth.RoleAdmin
}

// scope is the courier the client is pinned to; empty for an admin watching everyone.
func (c *client) scope() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.query.CourierID
}

func (c *client) currentQuery() (services.DashboardQuery, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.query, c.ready
}

type subscribeMessage struct {
	Type        string `json:"type"`
	CourierID   string `json:"courierId"`
	From        string `json:"from"`
	To          string `json:"to"`
	IncludeHeld bool   `json:"includeHeld"`
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	if h.Recomputer != nil {
		h.Recomputer.Forget(c.key)
	}
}

func (h *Hub) snapshotClients() []*client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		out = append(out, c)
	}
	return out
}

// ClientCount reports the number of connected dashboards.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) drop(c *client) {
	_ = c.conn.Close()
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}

// DashboardWS serves /ws/dashboard. The access token comes from the token
// query parameter, the tab identity from clientId.
func (h *Hub) DashboardWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	token := strings.TrimSpace(r.URL.Query().Get("token"))
	if bearer := auth.ParseBearerToken(token); bearer != "" {
		token = bearer
	}
	claims, err := auth.VerifyAccessToken(token, h.JWTSecret)
	if err != nil {
		_ = conn.WriteJSON(map[string]any{"type": "error", "message": "unauthorized"})
		return
	}

	c := &client{
		conn:   conn,
		key:    "dashboard:" + strconv.FormatUint(h.nextID.Add(1), 10),
		origin: strings.TrimSpace(r.URL.Query().Get("clientId")),
		claims: claims,
	}
	h.register(c)
	defer h.unregister(c)

	ctx := r.Context()
	initial := subscribeMessage{
		Type:        "subscribe",
		CourierID:   r.URL.Query().Get("courierId"),
		From:        r.URL.Query().Get("from"),
		To:          r.URL.Query().Get("to"),
		IncludeHeld: r.URL.Query().Get("includeHeld") == "true",
	}
	if err := h.subscribe(ctx, c, initial); err != nil {
		_ = c.writeJSON(map[string]any{"type": "error", "message": err.Error()})
		return
	}

	heartbeat := h.Heartbeat
	if heartbeat <= 0 {
		heartbeat = 30 * time.Second
	}
	heartbeat = maxDuration(heartbeat, minHeartbeat)
	_ = conn.SetReadDeadline(time.Now().Add(heartbeat * 2))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(heartbeat * 2))
	})

	clientClosed := make(chan struct{})
	go func() {
		defer close(clientClosed)
		for {
			_, data, readErr := conn.ReadMessage()
			if readErr != nil {
				return
			}
			var msg subscribeMessage
			if json.Unmarshal(data, &msg) != nil || msg.Type != "subscribe" {
				continue
			}
			if subErr := h.subscribe(ctx, c, msg); subErr != nil {
				_ = c.writeJSON(map[string]any{"type": "error", "message": subErr.Error()})
			}
		}
	}()

	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-clientClosed:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.ping(); err != nil {
				return
			}
		}
	}
}

var (
	errCourierScope = errors.New("forbidden courier scope")
	errBadDate      = errors.New("dates must be YYYY-MM-DD")
)

// subscribe applies a new dashboard query for c and pushes the recomputed
// metrics. The trigger reflects what changed since the previous query.
func (h *Hub) subscribe(ctx context.Context, c *client, msg subscribeMessage) error {
	q := services.DashboardQuery{IncludeHeld: msg.IncludeHeld}

	requested := strings.TrimSpace(msg.CourierID)
	if c.isAdmin() {
		q.CourierID = requested
	} else {
		if c.claims.CourierID == nil {
			return errCourierScope
		}
		if requested != "" && requested != *c.claims.CourierID {
			return errCourierScope
		}
		q.CourierID = *c.claims.CourierID
	}

	if v := strings.TrimSpace(msg.From); v != "" {
		d, err := utils.ParseDay(v, h.Location)
		if err != nil {
			return errBadDate
		}
		q.From = &d
	}
	if v := strings.TrimSpace(msg.To); v != "" {
		d, err := utils.ParseDay(v, h.Location)
		if err != nil {
			return errBadDate
		}
		end := d.AddDate(0, 0, 1)
		q.To = &end
	}

	c.mu.Lock()
	prev, hadPrev := c.query, c.ready
	c.query = q
	c.ready = true
	c.mu.Unlock()

	trigger := services.TriggerInitial
	if hadPrev {
		switch {
		case prev.CourierID != q.CourierID:
			trigger = services.TriggerCourierChange
		default:
			trigger = services.TriggerDateRange
		}
	}

	_ = c.writeJSON(map[string]any{"type": "subscribed", "courierId": q.CourierID, "trigger": trigger})
	h.pushMetrics(ctx, c, q, trigger)
	return nil
}

func (h *Hub) pushMetrics(ctx context.Context, c *client, q services.DashboardQuery, trigger services.Trigger) {
	if h.Recomputer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, recomputeLimit)
	defer cancel()

	snap, err := h.Recomputer.Recompute(ctx, c.key, q, trigger)
	if err != nil {
		if !errors.Is(err, services.ErrSuperseded) && !errors.Is(err, context.Canceled) {
			h.Logger.Warn("dashboard metrics push failed", zap.String("key", c.key), zap.Error(err))
		}
		return
	}
	if err := c.writeJSON(map[string]any{
		"type":       "metrics.state",
		"data":       snap.Metrics,
		"trigger":    snap.Trigger,
		"orderCount": len(snap.Orders),
		"computedAt": snap.ComputedAt,
	}); err != nil {
		h.drop(c)
	}
}

// HandleEvent fans one change event out to the dashboards it concerns.
// The client whose own write produced the event is skipped.
func (h *Hub) HandleEvent(ctx context.Context, evt changefeed.Event) {
	message := map[string]any{
		"type":      "orders.changed",
		"eventType": evt.Type,
		"orderId":   evt.OrderID,
		"courierId": evt.CourierID,
		"updatedAt": evt.UpdatedAt,
	}

	for _, c := range h.snapshotClients() {
		q, ready := c.currentQuery()
		if !ready || !evt.Concerns(c.scope()) {
			continue
		}
		if h.Suppressor.ShouldSuppress(evt, c.origin) {
			continue
		}
		if err := c.writeJSON(message); err != nil {
			h.drop(c)
			continue
		}
		if c.isAdmin() {
			go h.pushMetrics(ctx, c, q, services.TriggerChangeEvent)
		}
	}
}

func maxDuration(a, b time.Duration) time.Duration {
	if a > b {
		return a
	}
	return b
}
