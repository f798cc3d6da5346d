package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gobwas/glob"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/nerrad567/gray-logic-ledstrip/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-ledstrip/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-ledstrip/internal/light"
)

// WebSocket message types.
const (
	WSTypeSubscribe   = "subscribe"
	WSTypeUnsubscribe = "unsubscribe"
	WSTypePing        = "ping"
	WSTypePong        = "pong"
	WSTypeEvent       = "event"
	WSTypeResponse    = "response"
	WSTypeError       = "error"

	// EventLightStateChanged carries one light's state. It is sent after
	// every change, and once per matching light right after a subscribe.
	EventLightStateChanged = "light.state_changed"
)

const (
	wsSendBufferSize    = 256
	defaultPingInterval = 30 * time.Second
	defaultPongTimeout  = 10 * time.Second
)

// WSMessage is the envelope for every frame in both directions.
type WSMessage struct {
	Type      string `json:"type"`
	ID        string `json:"id,omitempty"`
	EventType string `json:"event_type,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Payload   any    `json:"payload,omitempty"`
}

// WSSubscribePayload selects lights by ID pattern in glob syntax, e.g.
// "kitchen-*". An empty list means every light.
type WSSubscribePayload struct {
	Lights []string `json:"lights"`
}

// LightStateEvent is the payload of a light.state_changed event.
type LightStateEvent struct {
	LightID string      `json:"light_id"`
	State   light.State `json:"state"`
}

// SnapshotFunc returns the current state of every light.
type SnapshotFunc func() []LightStateEvent

// Hub tracks connected clients and fans light state changes out to the
// clients whose patterns match the light.
type Hub struct {
	cfg      config.WebSocketConfig
	logger   *logging.Logger
	snapshot SnapshotFunc

	mu      sync.RWMutex
	clients map[*WSClient]struct{}
}

// WSClient is one connected WebSocket peer.
type WSClient struct {
	id      string
	subject string
	hub     *Hub
	conn    *websocket.Conn
	send    chan []byte

	// mu guards filters and orders snapshot delivery against broadcasts.
	mu      sync.RWMutex
	filters map[string]glob.Glob
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origins are checked by the CORS middleware.
	CheckOrigin: func(*http.Request) bool { return true },
}

// NewHub creates a hub. snapshot may be nil, in which case subscribers only
// see changes made after they subscribed.
func NewHub(cfg config.WebSocketConfig, logger *logging.Logger, snapshot SnapshotFunc) *Hub {
	return &Hub{
		cfg:      cfg,
		logger:   logger,
		snapshot: snapshot,
		clients:  make(map[*WSClient]struct{}),
	}
}

func newWSClient(hub *Hub, conn *websocket.Conn, subject string, buffer int) *WSClient {
	return &WSClient{
		id:      uuid.NewString(),
		subject: subject,
		hub:     hub,
		conn:    conn,
		send:    make(chan []byte, buffer),
		filters: make(map[string]glob.Glob),
	}
}

// Run blocks until ctx is cancelled, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
	h.closeAll()
}

// Register adds a client to the hub.
func (h *Hub) Register(client *WSClient) {
	h.mu.Lock()
	h.clients[client] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("websocket client connected", "client", client.id, "subject", client.subject, "clients", n)
}

// Unregister removes a client. Only the caller that actually removes it
// closes the send channel, so a racing shutdown cannot close it twice.
func (h *Hub) Unregister(client *WSClient) {
	h.mu.Lock()
	_, existed := h.clients[client]
	delete(h.clients, client)
	n := len(h.clients)
	h.mu.Unlock()

	if existed {
		close(client.send)
		h.logger.Debug("websocket client disconnected", "client", client.id, "clients", n)
	}
}

// BroadcastLightState sends a light.state_changed event to every client
// watching lightID. It matches light.Observer and never blocks: a client
// whose buffer is full misses the event.
func (h *Hub) BroadcastLightState(lightID string, state light.State) {
	data, err := encodeEvent(LightStateEvent{LightID: lightID, State: state})
	if err != nil {
		h.logger.Error("failed to encode light state event", "light_id", lightID, "error", err)
		return
	}

	h.mu.RLock()
	clients := make([]*WSClient, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.deliver(lightID, data)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		close(c.send)
		if c.conn != nil {
			c.conn.Close()
		}
		delete(h.clients, c)
	}
}

func (h *Hub) pumpTimings() (pingInterval, pongWait time.Duration) {
	pingInterval = time.Duration(h.cfg.PingInterval) * time.Second
	if pingInterval <= 0 {
		pingInterval = defaultPingInterval
	}
	pongWait = time.Duration(h.cfg.PongTimeout) * time.Second
	if pongWait <= 0 {
		pongWait = defaultPongTimeout
	}
	return pingInterval, pongWait
}

// handleWebSocket upgrades the connection. With auth enabled it requires a
// ticket from POST /auth/ws-ticket in the query string.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	var subject string
	if s.authEnabled() {
		ticket := r.URL.Query().Get("ticket")
		if ticket == "" {
			writeError(w, http.StatusUnauthorized, "ticket query parameter is required")
			return
		}
		entry, ok := s.tickets.consume(ticket)
		if !ok {
			writeError(w, http.StatusUnauthorized, "invalid or expired ticket")
			return
		}
		subject = entry.subject
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	client := newWSClient(s.hub, conn, subject, wsSendBufferSize)
	s.hub.Register(client)

	go client.writePump()
	go client.readPump()
}

func (c *WSClient) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	if limit := c.hub.cfg.MaxMessageSize; limit > 0 {
		c.conn.SetReadLimit(int64(limit))
	}
	pingInterval, pongWait := c.hub.pumpTimings()
	extend := func() error {
		return c.conn.SetReadDeadline(time.Now().Add(pingInterval + pongWait))
	}
	extend() //nolint:errcheck // a failed deadline surfaces as a read error
	c.conn.SetPongHandler(func(string) error { return extend() })

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("websocket read error", "client", c.id, "error", err)
			}
			return
		}
		extend() //nolint:errcheck // a failed deadline surfaces as a read error
		c.handleMessage(data)
	}
}

func (c *WSClient) writePump() {
	pingInterval, pongWait := c.hub.pumpTimings()
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, nil) //nolint:errcheck // closing anyway
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(pongWait)) //nolint:errcheck // write error caught below
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(pongWait)) //nolint:errcheck // ping error caught below
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *WSClient) handleMessage(data []byte) {
	var msg WSMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.reply("", WSTypeError, errorBody("invalid JSON message"))
		return
	}

	switch msg.Type {
	case WSTypeSubscribe:
		c.subscribe(msg)
	case WSTypeUnsubscribe:
		c.unsubscribe(msg)
	case WSTypePing:
		c.reply(msg.ID, WSTypePong, nil)
	default:
		c.reply(msg.ID, WSTypeError, errorBody("unknown message type: "+msg.Type))
	}
}

// subscribe adds the requested patterns, acknowledges them, then queues the
// current state of every newly matched light. Holding c.mu for the whole
// sequence keeps later broadcasts behind the snapshot.
func (c *WSClient) subscribe(msg WSMessage) {
	patterns, ok := c.decodePatterns(msg)
	if !ok {
		return
	}
	if len(patterns) == 0 {
		patterns = []string{"*"}
	}

	added := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			c.reply(msg.ID, WSTypeError, errorBody("invalid light pattern: "+p))
			return
		}
		added = append(added, g)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for i, p := range patterns {
		c.filters[p] = added[i]
	}
	c.reply(msg.ID, WSTypeResponse, map[string]any{"subscribed": patterns})

	if c.hub.snapshot == nil {
		return
	}
	for _, ev := range c.hub.snapshot() {
		if !matchAny(added, ev.LightID) {
			continue
		}
		if data, err := encodeEvent(ev); err == nil {
			c.trySend(data)
		}
	}
	c.hub.logger.Debug("websocket client subscribed", "client", c.id, "lights", patterns)
}

// unsubscribe removes the named patterns, or all of them for an empty list.
func (c *WSClient) unsubscribe(msg WSMessage) {
	patterns, ok := c.decodePatterns(msg)
	if !ok {
		return
	}

	c.mu.Lock()
	if len(patterns) == 0 {
		for p := range c.filters {
			patterns = append(patterns, p)
		}
		clear(c.filters)
	} else {
		for _, p := range patterns {
			delete(c.filters, p)
		}
	}
	c.mu.Unlock()

	c.reply(msg.ID, WSTypeResponse, map[string]any{"unsubscribed": patterns})
}

func (c *WSClient) decodePatterns(msg WSMessage) ([]string, bool) {
	if msg.Payload == nil {
		return nil, true
	}
	raw, err := json.Marshal(msg.Payload)
	if err != nil {
		c.reply(msg.ID, WSTypeError, errorBody("invalid payload"))
		return nil, false
	}
	var p WSSubscribePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		c.reply(msg.ID, WSTypeError, errorBody("invalid "+msg.Type+" payload"))
		return nil, false
	}
	return p.Lights, true
}

// deliver queues data when the client watches lightID.
func (c *WSClient) deliver(lightID string, data []byte) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, g := range c.filters {
		if g.Match(lightID) {
			c.trySend(data)
			return
		}
	}
}

func (c *WSClient) reply(id, msgType string, payload any) {
	data, err := json.Marshal(WSMessage{
		Type:      msgType,
		ID:        id,
		Timestamp: timestamp(),
		Payload:   payload,
	})
	if err != nil {
		return
	}
	c.trySend(data)
}

// trySend never blocks. It absorbs the send-on-closed-channel panic of a
// client that disconnected mid-broadcast and drops data for a full buffer.
func (c *WSClient) trySend(data []byte) {
	defer func() {
		recover() //nolint:errcheck // closed channel
	}()

	select {
	case c.send <- data:
	default:
	}
}

func encodeEvent(ev LightStateEvent) ([]byte, error) {
	return json.Marshal(WSMessage{
		Type:      WSTypeEvent,
		EventType: EventLightStateChanged,
		Timestamp: timestamp(),
		Payload:   ev,
	})
}

func matchAny(globs []glob.Glob, s string) bool {
	for _, g := range globs {
		if g.Match(s) {
			return true
		}
	}
	return false
}

func errorBody(message string) map[string]string {
	return map[string]string{"message": message}
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}
