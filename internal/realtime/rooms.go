package realtime

import (
	"log/slog"
	"sync"

	"github.com/corkboard/backend/internal/models"
)

// Rooms maps a whiteboard id to the set of clients currently viewing it.
// Rows are created lazily on first join and deleted when empty. Delivery is
// fire-and-forget: a client whose send queue is full is force-closed rather
// than blocking the broadcaster.
type Rooms struct {
	mu    sync.Mutex
	rooms map[string]map[string]*Client
}

// NewRooms creates an empty room registry.
func NewRooms() *Rooms {
	return &Rooms{rooms: make(map[string]map[string]*Client)}
}

// Join adds the client to the room and returns the resulting viewer list.
// The caller is responsible for leaving any prior room first.
func (r *Rooms) Join(roomID string, c *Client) []models.Viewer {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomID]
	if !ok {
		room = make(map[string]*Client)
		r.rooms[roomID] = room
	}
	room[c.id] = c
	return viewersLocked(room)
}

// Leave removes the client from the room, deleting the row if it becomes
// empty, and returns the remaining viewer list.
func (r *Rooms) Leave(roomID string, c *Client) []models.Viewer {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return nil
	}
	delete(room, c.id)
	if len(room) == 0 {
		delete(r.rooms, roomID)
		return nil
	}
	return viewersLocked(room)
}

// Viewers returns the current viewer list for a room.
func (r *Rooms) Viewers(roomID string) []models.Viewer {
	r.mu.Lock()
	defer r.mu.Unlock()
	return viewersLocked(r.rooms[roomID])
}

// BroadcastLocal enqueues the frame on every client in the room except the
// excluded originator. The member snapshot is taken under the lock; the
// enqueue happens after release so a stalled client cannot hold it.
func (r *Rooms) BroadcastLocal(roomID string, data []byte, excludeConnID string) {
	r.mu.Lock()
	room := r.rooms[roomID]
	targets := make([]*Client, 0, len(room))
	for id, c := range room {
		if id != excludeConnID {
			targets = append(targets, c)
		}
	}
	r.mu.Unlock()

	for _, c := range targets {
		if !c.enqueue(data) {
			slog.Warn("send queue full, closing connection", slog.String("conn_id", c.id))
			c.Close()
		}
	}
}

// viewersLocked deduplicates room members by user id. Callers must hold the
// lock.
func viewersLocked(room map[string]*Client) []models.Viewer {
	if len(room) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(room))
	viewers := make([]models.Viewer, 0, len(room))
	for _, c := range room {
		user, x, y := c.snapshot()
		if user == nil {
			continue
		}
		if _, ok := seen[user.ID]; ok {
			continue
		}
		seen[user.ID] = struct{}{}
		viewers = append(viewers, models.Viewer{ID: user.ID, Username: user.Username, CursorX: x, CursorY: y})
	}
	return viewers
}
