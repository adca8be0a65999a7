package realtime

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/corkboard/backend/internal/models"
	"github.com/corkboard/backend/internal/protocol"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 4096
)

// connState is the connection lifecycle state. A connection starts in
// stateConnecting, becomes stateReady after a successful auth frame, moves
// between stateReady and stateViewing as it joins and leaves whiteboards,
// and ends in stateClosed.
type connState int

const (
	stateConnecting connState = iota
	stateReady
	stateViewing
	stateClosed
)

// socket is the subset of *websocket.Conn the client uses. Tests substitute
// an in-memory implementation.
type socket interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetReadLimit(limit int64)
	Close() error
}

// Client is one websocket connection. The receive loop is the only goroutine
// that dispatches frames; mutable fields are guarded by mu because teardown
// and viewer snapshots run on other goroutines. The outbound queue is
// bounded; components other than the client itself only ever enqueue.
type Client struct {
	id   string
	ws   socket
	hub  *Hub
	send chan []byte
	done chan struct{}

	mu      sync.Mutex
	state   connState
	user    *models.User
	room    string
	cursorX float64
	cursorY float64

	closeOnce sync.Once
}

func newClient(hub *Hub, ws socket) *Client {
	return &Client{
		id:   uuid.NewString(),
		ws:   ws,
		hub:  hub,
		send: make(chan []byte, hub.sendQueueSize),
		done: make(chan struct{}),
	}
}

// ID returns the connection id.
func (c *Client) ID() string { return c.id }

func (c *Client) currentState() connState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// setReady records the identity and moves to stateReady. It reports false if
// the connection closed while the credential check was in flight, in which
// case the caller must not register the connection anywhere.
func (c *Client) setReady(user models.User) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == stateClosed {
		return false
	}
	c.user = &user
	c.state = stateReady
	return true
}

func (c *Client) currentUser() *models.User {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.user
}

func (c *Client) currentRoom() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.room
}

// setRoom records the room change. It reports false without mutating when the
// connection is already closed, so a closed connection can never re-enter a
// room registry.
func (c *Client) setRoom(roomID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == stateClosed {
		return false
	}
	c.room = roomID
	c.cursorX, c.cursorY = 0, 0
	if roomID == "" {
		c.state = stateReady
	} else {
		c.state = stateViewing
	}
	return true
}

func (c *Client) setCursor(x, y float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cursorX, c.cursorY = x, y
}

// snapshot returns the identity and cursor for viewer lists. The user is nil
// until the connection authenticates.
func (c *Client) snapshot() (*models.User, float64, float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.user, c.cursorX, c.cursorY
}

// enqueue adds a frame to the outbound queue without blocking. It reports
// false when the queue is full.
func (c *Client) enqueue(data []byte) bool {
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// sendMessage encodes and enqueues a frame for this client.
func (c *Client) sendMessage(msgType string, payload any) {
	data, err := protocol.Encode(msgType, payload)
	if err != nil {
		slog.Error("encode frame", slog.String("type", msgType), slog.Any("error", err))
		return
	}
	if !c.enqueue(data) {
		slog.Warn("send queue full, closing connection", slog.String("conn_id", c.id))
		c.Close()
	}
}

func (c *Client) sendError(code, message string) {
	c.sendMessage(protocol.TypeError, protocol.ErrorPayload{Code: code, Message: message})
}

// Close tears the connection down exactly once: the client leaves its room,
// detaches from presence, and both pumps stop. Safe to call from any
// goroutine and on any close/error path.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		user := c.user
		room := c.room
		c.room = ""
		c.state = stateClosed
		c.mu.Unlock()

		c.hub.handleDisconnect(c, user, room)
		close(c.done)
		c.ws.Close()
	})
}

// readPump reads frames until the socket errors or the inactivity deadline
// passes, dispatching each frame through the hub. Any frame resets the
// deadline. It owns teardown for its connection.
func (c *Client) readPump() {
	defer c.Close()

	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(c.hub.inactivityTimeout))

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("read error", slog.String("conn_id", c.id), slog.Any("error", err))
			}
			return
		}
		c.ws.SetReadDeadline(time.Now().Add(c.hub.inactivityTimeout))

		if fatal := c.hub.HandleFrame(c, data); fatal {
			return
		}
	}
}

// writePump drains the outbound queue onto the socket. Frames still queued
// when the connection closes are discarded.
func (c *Client) writePump() {
	defer c.ws.Close()

	for {
		select {
		case <-c.done:
			// Flush whatever is already queued (the final error frame in
			// particular), then say goodbye.
			for {
				select {
				case data := <-c.send:
					c.ws.SetWriteDeadline(time.Now().Add(writeWait))
					if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
						return
					}
				default:
					c.ws.SetWriteDeadline(time.Now().Add(writeWait))
					c.ws.WriteMessage(websocket.CloseMessage, []byte{})
					return
				}
			}
		case data := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				c.Close()
				return
			}
		}
	}
}
