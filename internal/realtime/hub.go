// Package realtime implements the collaboration core: the per-connection
// protocol state machine, presence bookkeeping, room-scoped broadcast, and
// the dispatch of inbound frames to handlers.
package realtime

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/corkboard/backend/internal/logging"
	"github.com/corkboard/backend/internal/models"
	"github.com/corkboard/backend/internal/protocol"
)

// TokenVerifier is the credential verification collaborator.
type TokenVerifier interface {
	VerifyToken(token string) (models.User, error)
}

// AccessChecker is the room visibility collaborator. The boolean reports
// whether the user may view the whiteboard; a sql.ErrNoRows error means the
// whiteboard does not exist.
type AccessChecker interface {
	CanView(ctx context.Context, userID, whiteboardID string) (bool, error)
}

// Publisher fans events out beyond this process. Room events carry the
// originating connection id so the local broadcaster can skip the actor.
type Publisher interface {
	PublishRoom(roomID string, data []byte, excludeConnID string)
	PublishGlobal(data []byte)
	PublishPresence(data []byte)
}

// Hub owns the connection, presence, and room registries and dispatches
// every inbound frame. Handlers compute state changes under short-held locks
// and perform broker I/O only after release.
type Hub struct {
	verifier TokenVerifier
	access   AccessChecker

	presence *Presence
	rooms    *Rooms

	sendQueueSize     int
	inactivityTimeout time.Duration

	// publisher is optional; without it broadcasts stay process-local.
	publisher Publisher

	mu      sync.Mutex
	clients map[string]*Client
}

// NewHub creates a hub with the given collaborators and connection limits.
func NewHub(verifier TokenVerifier, access AccessChecker, sendQueueSize int, inactivityTimeout time.Duration) *Hub {
	return &Hub{
		verifier:          verifier,
		access:            access,
		presence:          NewPresence(),
		rooms:             NewRooms(),
		sendQueueSize:     sendQueueSize,
		inactivityTimeout: inactivityTimeout,
		clients:           make(map[string]*Client),
	}
}

// SetPublisher attaches the cross-process publisher. Must be called before
// the hub accepts connections.
func (h *Hub) SetPublisher(p Publisher) { h.publisher = p }

// Register creates a client for an upgraded socket and starts its pumps.
func (h *Hub) Register(ws *websocket.Conn) *Client {
	c := h.register(ws)
	go c.writePump()
	go c.readPump()
	return c
}

func (h *Hub) register(ws socket) *Client {
	c := newClient(h, ws)
	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()
	return c
}

// HandleFrame decodes one inbound frame and routes it according to the
// connection state. It reports whether the violation was fatal, in which
// case the caller must tear the connection down.
func (h *Hub) HandleFrame(c *Client, data []byte) bool {
	env, err := protocol.Decode(data)
	if err != nil {
		c.sendError(protocol.CodeBadMessage, "malformed message")
		return false
	}

	state := c.currentState()
	if state == stateClosed {
		return true
	}

	switch env.Type {
	case protocol.TypePing:
		c.sendMessage(protocol.TypePong, struct{}{})
		return false
	case protocol.TypeAuth:
		if state != stateConnecting {
			c.sendError(protocol.CodeProtocol, "already authenticated")
			return true
		}
		return h.handleAuth(c, env.Payload)
	}

	// The first frame on a connection must be auth.
	if state == stateConnecting {
		slog.Warn("protocol violation before auth",
			slog.String("conn_id", c.id), slog.String("type", env.Type),
			slog.String("security_event", string(logging.SecurityEventWSProtocol)))
		c.sendError(protocol.CodeProtocol, "authentication required")
		return true
	}

	switch env.Type {
	case protocol.TypeJoinWhiteboard:
		h.handleJoin(c, env.Payload)
	case protocol.TypeLeaveWhiteboard:
		h.handleLeave(c)
	case protocol.TypeCursorMove:
		h.handleCursorMove(c, env.Payload)
	case protocol.TypeNotePosition:
		h.handleNotePosition(c, env.Payload)
	default:
		c.sendError(protocol.CodeBadMessage, "unknown message type: "+env.Type)
	}
	return false
}

func (h *Hub) handleAuth(c *Client, payload json.RawMessage) bool {
	var p protocol.AuthPayload
	if err := json.Unmarshal(payload, &p); err != nil || p.Token == "" {
		c.sendError(protocol.CodeAuthFailed, "missing or invalid token")
		return true
	}

	user, err := h.verifier.VerifyToken(p.Token)
	if err != nil {
		slog.Warn("websocket auth failed", slog.String("conn_id", c.id),
			slog.String("security_event", string(logging.SecurityEventWSAuthFailed)))
		c.sendError(protocol.CodeAuthFailed, "invalid or expired token")
		return true
	}

	// Teardown may run while VerifyToken blocks. setReady refuses a closed
	// connection, and the re-check below undoes an attach that raced a
	// teardown which had already snapshotted the pre-attach state.
	if !c.setReady(user) {
		return true
	}
	first := h.presence.Attach(user, c.id)
	if c.currentState() == stateClosed {
		if h.presence.Detach(user.ID, c.id) {
			h.broadcastPresence()
		}
		return true
	}
	c.sendMessage(protocol.TypeAuthSuccess, models.AuthSuccessPayload{
		UserID:       user.ID,
		Username:     user.Username,
		ConnectionID: c.id,
	})
	if first {
		h.broadcastPresence()
	}

	slog.Info("websocket authenticated",
		slog.String("conn_id", c.id), slog.String("user_id", user.ID))
	return false
}

func (h *Hub) handleJoin(c *Client, payload json.RawMessage) {
	var p protocol.JoinWhiteboardPayload
	if err := json.Unmarshal(payload, &p); err != nil || p.WhiteboardID == "" {
		c.sendError(protocol.CodeBadMessage, "whiteboard_id is required")
		return
	}

	user := c.currentUser()
	allowed, err := h.access.CanView(context.Background(), user.ID, p.WhiteboardID)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			slog.Error("room access check failed", slog.Any("error", err))
		}
		c.sendError(protocol.CodeNotFound, "whiteboard not found")
		return
	}
	if !allowed {
		c.sendError(protocol.CodeForbidden, "access denied")
		return
	}

	prev := c.currentRoom()
	if prev == p.WhiteboardID {
		// Re-joining the current room only refreshes the viewer list.
		c.sendMessage(protocol.TypeWhiteboardJoined, models.WhiteboardJoinedPayload{
			WhiteboardID: p.WhiteboardID,
			Viewers:      h.rooms.Viewers(p.WhiteboardID),
		})
		return
	}
	if prev != "" {
		h.leaveRoom(c, prev)
	}

	// Teardown may run while CanView blocks. setRoom refuses a closed
	// connection; if the close lands between setRoom and Join, the re-check
	// removes the membership teardown could not have seen. No user_joined
	// was broadcast yet, so the removal is silent.
	if !c.setRoom(p.WhiteboardID) {
		return
	}
	viewers := h.rooms.Join(p.WhiteboardID, c)
	if c.currentState() == stateClosed {
		h.rooms.Leave(p.WhiteboardID, c)
		return
	}

	c.sendMessage(protocol.TypeWhiteboardJoined, models.WhiteboardJoinedPayload{
		WhiteboardID: p.WhiteboardID,
		Viewers:      viewers,
	})

	data, err := protocol.Encode(protocol.TypeUserJoined, models.UserJoinedPayload{
		User:    *user,
		Viewers: viewers,
	})
	if err != nil {
		slog.Error("encode user_joined", slog.Any("error", err))
		return
	}
	h.publishRoom(p.WhiteboardID, data, c.id)
}

func (h *Hub) handleLeave(c *Client) {
	if room := c.currentRoom(); room != "" {
		c.setRoom("")
		h.leaveRoom(c, room)
	}
	c.sendMessage(protocol.TypeWhiteboardLeft, struct{}{})
}

// leaveRoom removes the client from a room and notifies the remaining
// viewers. The membership change completes before the broadcast starts, so
// no broadcast after this call reaches the leaving connection.
func (h *Hub) leaveRoom(c *Client, roomID string) {
	remaining := h.rooms.Leave(roomID, c)

	user := c.currentUser()
	if user == nil {
		return
	}
	data, err := protocol.Encode(protocol.TypeUserLeft, models.UserLeftPayload{
		UserID:  user.ID,
		Viewers: remaining,
	})
	if err != nil {
		slog.Error("encode user_left", slog.Any("error", err))
		return
	}
	h.publishRoom(roomID, data, c.id)
}

func (h *Hub) handleCursorMove(c *Client, payload json.RawMessage) {
	var p protocol.CursorMovePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		c.sendError(protocol.CodeBadMessage, "invalid cursor payload")
		return
	}

	room := c.currentRoom()
	if room == "" {
		// Cursor positions only matter while viewing a whiteboard.
		return
	}
	c.setCursor(p.X, p.Y)

	user := c.currentUser()
	data, err := protocol.Encode(protocol.TypeCursorUpdate, models.CursorUpdatePayload{
		UserID:   user.ID,
		Username: user.Username,
		X:        p.X,
		Y:        p.Y,
	})
	if err != nil {
		slog.Error("encode cursor_update", slog.Any("error", err))
		return
	}
	h.publishRoom(room, data, c.id)
}

func (h *Hub) handleNotePosition(c *Client, payload json.RawMessage) {
	var p protocol.NotePositionPayload
	if err := json.Unmarshal(payload, &p); err != nil || p.NoteID == "" {
		c.sendError(protocol.CodeBadMessage, "invalid note_position payload")
		return
	}

	room := c.currentRoom()
	if room == "" {
		return
	}

	user := c.currentUser()
	data, err := protocol.Encode(protocol.TypeNotePosition, models.NotePositionEventPayload{
		NoteID:    p.NoteID,
		XPosition: p.XPosition,
		YPosition: p.YPosition,
		ByUser:    *user,
	})
	if err != nil {
		slog.Error("encode note_position", slog.Any("error", err))
		return
	}
	h.publishRoom(room, data, c.id)
}

// handleDisconnect runs once per connection from Client.Close: the client is
// dropped from the registry, leaves its room, and detaches from presence.
func (h *Hub) handleDisconnect(c *Client, user *models.User, room string) {
	h.mu.Lock()
	delete(h.clients, c.id)
	h.mu.Unlock()

	if room != "" {
		h.leaveRoom(c, room)
	}
	if user != nil {
		if last := h.presence.Detach(user.ID, c.id); last {
			h.broadcastPresence()
		}
		slog.Info("websocket disconnected",
			slog.String("conn_id", c.id), slog.String("user_id", user.ID))
	}
}

func (h *Hub) broadcastPresence() {
	data, err := protocol.Encode(protocol.TypePresenceUpdate, models.PresenceUpdatePayload{
		OnlineUsers: h.presence.OnlineUsers(),
	})
	if err != nil {
		slog.Error("encode presence_update", slog.Any("error", err))
		return
	}
	if h.publisher != nil {
		h.publisher.PublishPresence(data)
		return
	}
	h.BroadcastAll(data)
}

func (h *Hub) publishRoom(roomID string, data []byte, excludeConnID string) {
	if h.publisher != nil {
		h.publisher.PublishRoom(roomID, data, excludeConnID)
		return
	}
	h.rooms.BroadcastLocal(roomID, data, excludeConnID)
}

// BroadcastRoom delivers a frame to the local viewers of a room. It is the
// local half of the pub/sub bridge.
func (h *Hub) BroadcastRoom(roomID string, data []byte, excludeConnID string) {
	h.rooms.BroadcastLocal(roomID, data, excludeConnID)
}

// BroadcastAll delivers a frame to every authenticated local connection.
func (h *Hub) BroadcastAll(data []byte) {
	h.mu.Lock()
	targets := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.Unlock()

	for _, c := range targets {
		if c.currentUser() == nil {
			continue
		}
		if !c.enqueue(data) {
			slog.Warn("send queue full, closing connection", slog.String("conn_id", c.id))
			c.Close()
		}
	}
}

// OnlineUsers exposes the presence snapshot.
func (h *Hub) OnlineUsers() []models.User { return h.presence.OnlineUsers() }

// Viewers exposes the viewer list for a whiteboard.
func (h *Hub) Viewers(whiteboardID string) []models.Viewer { return h.rooms.Viewers(whiteboardID) }
