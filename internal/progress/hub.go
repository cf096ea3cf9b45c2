package progress

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 2 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	clientBuffer   = 64
	broadcastQueue = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub broadcasts progress events to websocket clients. It implements both
// Observer and http.Handler.
type Hub struct {
	logger *slog.Logger

	clients    map[*client]struct{}
	broadcast  chan Event
	register   chan *client
	unregister chan *client

	mu     sync.RWMutex
	latest map[string]Event // last event per path

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewHub creates a Hub. Call Start before serving clients.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		logger:     logger,
		clients:    make(map[*client]struct{}),
		broadcast:  make(chan Event, broadcastQueue),
		register:   make(chan *client),
		unregister: make(chan *client),
		latest:     make(map[string]Event),
	}
}

// Start runs the hub loop until Stop or ctx is cancelled.
func (h *Hub) Start(ctx context.Context) error {
	h.ctx, h.cancel = context.WithCancel(ctx)

	h.wg.Add(1)
	go h.run()

	h.logger.Info("progress hub started")
	return nil
}

// Stop closes every client and waits for the loop to exit.
func (h *Hub) Stop(ctx context.Context) error {
	if h.cancel != nil {
		h.cancel()
	}

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		h.logger.Info("progress hub stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Observe queues an event for broadcast. Events are dropped when the queue is
// full so a slow client never stalls a pipeline run.
func (h *Hub) Observe(e Event) {
	h.mu.Lock()
	h.latest[e.PathID] = e
	h.mu.Unlock()

	select {
	case h.broadcast <- e:
	default:
		h.logger.Warn("progress queue full, dropping event", "path_id", e.PathID, "stage", e.Stage)
	}
}

// Latest returns the last event seen for a path.
func (h *Hub) Latest(pathID string) (Event, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	e, ok := h.latest[pathID]
	return e, ok
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request to a websocket. An optional pathId query
// parameter limits the stream to one path.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.ctx == nil || h.ctx.Err() != nil {
		http.Error(w, "progress hub not running", http.StatusServiceUnavailable)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "err", err)
		return
	}

	c := &client{
		hub:    h,
		conn:   conn,
		pathID: r.URL.Query().Get("pathId"),
		send:   make(chan Event, clientBuffer),
	}

	select {
	case h.register <- c:
	case <-h.ctx.Done():
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

func (h *Hub) run() {
	defer h.wg.Done()

	for {
		select {
		case <-h.ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			for _, e := range h.latest {
				if !c.wants(e) {
					continue
				}
				select {
				case c.send <- e:
				default:
				}
			}
			h.mu.Unlock()
			h.logger.Debug("progress client connected", "path_id", c.pathID)

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()

		case e := <-h.broadcast:
			h.mu.Lock()
			for c := range h.clients {
				if !c.wants(e) {
					continue
				}
				select {
				case c.send <- e:
				default:
					// Slow client; drop it rather than stall the hub.
					delete(h.clients, c)
					close(c.send)
				}
			}
			h.mu.Unlock()
		}
	}
}

type client struct {
	hub    *Hub
	conn   *websocket.Conn
	pathID string
	send   chan Event
}

func (c *client) wants(e Event) bool {
	return c.pathID == "" || c.pathID == e.PathID
}

// readPump discards client input and detects disconnects.
func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.ctx.Done():
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Debug("progress client read error", "err", err)
			}
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case e, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(e); err != nil {
				c.hub.logger.Debug("progress client write error", "err", err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
