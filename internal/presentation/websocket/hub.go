// Package websocket pushes session and quotation events to connected users.
package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sangkips/quoteflow-api/internal/application/service"
	"github.com/sangkips/quoteflow-api/internal/domain/entity"
	"github.com/sangkips/quoteflow-api/pkg/utils"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origin is enforced by the CORS layer and the token
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Client is one connected websocket of an authenticated user
type Client struct {
	hub   *Hub
	conn  *websocket.Conn
	send  chan []byte
	actor entity.Actor
}

// Hub fans events out to the clients allowed to see them: the actor the
// event belongs to, and admins for quotation events.
type Hub struct {
	mu         sync.RWMutex
	clients    map[*Client]struct{}
	events     chan service.Event
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	logger     *zap.Logger
}

// NewHub initializes a new hub. Run must be started before events flow.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		events:     make(chan service.Event, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

var _ service.Notifier = (*Hub)(nil)

// Publish queues an event without blocking. Events are dropped when the
// queue is full.
func (h *Hub) Publish(event service.Event) {
	select {
	case h.events <- event:
	default:
		h.logger.Warn("dropping websocket event", zap.String("type", string(event.Type)))
	}
}

// Clients returns the number of connected clients
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Run dispatches events until ctx is done, then closes every client
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.mu.Lock()
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			h.mu.Unlock()
			return
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			h.mu.Unlock()
			h.logger.Debug("websocket client connected", zap.Stringer("user_id", c.actor.ID))
		case c := <-h.unregister:
			h.drop(c)
		case event := <-h.events:
			h.deliver(event)
		}
	}
}

func (h *Hub) drop(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
		h.logger.Debug("websocket client disconnected", zap.Stringer("user_id", c.actor.ID))
	}
}

func wants(c *Client, event service.Event) bool {
	if c.actor.ID == event.ActorID {
		return true
	}
	return c.actor.IsAdmin() && strings.HasPrefix(string(event.Type), "quotation.")
}

func (h *Hub) deliver(event service.Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("failed to encode websocket event", zap.Error(err))
		return
	}

	var slow []*Client
	h.mu.RLock()
	for c := range h.clients {
		if !wants(c, event) {
			continue
		}
		select {
		case c.send <- payload:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.drop(c)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump only keeps the connection alive; clients send intents over HTTP
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Debug("websocket read failed", zap.Error(err))
			}
			return
		}
	}
}

// ServeWs upgrades an authenticated request. Browsers cannot set headers on
// a websocket handshake, so the token may also come from the query string.
func ServeWs(hub *Hub, jwtManager *utils.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			token = strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		}
		if token == "" {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		claims, err := jwtManager.ValidateAccessToken(token)
		if err != nil {
			hub.logger.Debug("websocket connection rejected", zap.Error(err))
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			hub.logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}
		client := &Client{
			hub:   hub,
			conn:  conn,
			send:  make(chan []byte, sendBuffer),
			actor: entity.Actor{ID: claims.UserID, Roles: claims.Roles},
		}
		select {
		case hub.register <- client:
		case <-hub.done:
			_ = conn.Close()
			return
		}

		go client.writePump()
		go client.readPump()
	}
}
