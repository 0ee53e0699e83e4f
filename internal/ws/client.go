package ws

import (
	"context"
	"sync"
	"time"

	"zipchat/internal/chat"
	"zipchat/internal/registry"
	"zipchat/internal/store"
	"zipchat/pkg/logger"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	maxFrameSize   = 4096
	sendBufferSize = 256
)

// Deps bundles the core services a connection needs. The registry decides
// fan-out targets; everything else flows through the broadcaster, router and
// presence tracker.
type Deps struct {
	Registry     *registry.Registry
	Broadcaster  *chat.Broadcaster
	Router       *chat.PrivateRouter
	Presence     *chat.PresenceTracker
	Messages     store.MessageStore
	PingPeriod   time.Duration
	PongWait     time.Duration
	BacklogLimit int
	HistoryLimit int
}

// Client services one websocket connection. Identity is fixed at upgrade
// time; the room is announced by the join frame.
type Client struct {
	deps *Deps
	conn *websocket.Conn
	send chan []byte

	connectionID string
	userID       string
	username     string

	// joined and zipcode are only touched from the read pump goroutine.
	joined  bool
	zipcode string

	mu     sync.Mutex
	closed bool
}

func NewClient(deps *Deps, conn *websocket.Conn, userID, username string) *Client {
	return &Client{
		deps:         deps,
		conn:         conn,
		send:         make(chan []byte, sendBufferSize),
		connectionID: uuid.NewString(),
		userID:       userID,
		username:     username,
	}
}

// Enqueue hands a frame to the write pump without blocking. False means the
// buffer is full or the client is closed; the caller tears the binding down.
func (c *Client) Enqueue(frame []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// Close shuts the send channel exactly once. The write pump drains and closes
// the socket.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// ReadPump consumes inbound frames until the connection dies, then removes
// the binding and, if this was the user's last connection in the room,
// announces the departure. Presence is left to the TTL: a fast reconnect must
// not flap the user offline.
func (c *Client) ReadPump() {
	defer func() {
		binding, lastForUser := c.deps.Registry.Leave(c.connectionID)
		c.Close()
		c.conn.Close()
		if binding != nil && lastForUser {
			c.deps.Broadcaster.NotifyUserLeft(binding.Zipcode, binding.UserID, binding.Username)
			c.deps.Broadcaster.BroadcastUserList(context.Background(), binding.Zipcode)
		}
	}()

	c.conn.SetReadLimit(maxFrameSize)
	c.conn.SetReadDeadline(time.Now().Add(c.deps.PongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.deps.PongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Error("WebSocket error on %s: %v", c.connectionID, err)
			}
			break
		}
		c.handleFrame(raw)
	}
}

// WritePump writes outbound frames and keeps the connection alive with
// server-initiated pings. A peer that misses two consecutive pings blows the
// read deadline and gets torn down by the read pump.
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.deps.PingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				logger.Error("Write error on %s: %v", c.connectionID, err)
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
