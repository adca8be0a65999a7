package realtime

import (
	"sort"
	"sync"

	"github.com/corkboard/backend/internal/models"
)

// Presence maps a user id to the set of connection ids attached for that
// user. A user with two devices appears once in OnlineUsers. All mutation
// happens under a single mutex so attach/detach for the same user are
// linearizable.
type Presence struct {
	mu      sync.Mutex
	entries map[string]*presenceEntry
}

type presenceEntry struct {
	user  models.User
	conns map[string]struct{}
}

// NewPresence creates an empty presence registry.
func NewPresence() *Presence {
	return &Presence{entries: make(map[string]*presenceEntry)}
}

// Attach records a connection for the user. It reports true only on the
// transition from zero to one connection, which is the sole trigger for an
// online event.
func (p *Presence) Attach(user models.User, connID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	entry, ok := p.entries[user.ID]
	if !ok {
		entry = &presenceEntry{user: user, conns: make(map[string]struct{})}
		p.entries[user.ID] = entry
	}
	entry.conns[connID] = struct{}{}
	return !ok
}

// Detach removes a connection for the user. It reports true only on the
// transition to zero connections, which is the sole trigger for an offline
// event. Detaching an unknown connection is a no-op.
func (p *Presence) Detach(userID, connID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	entry, ok := p.entries[userID]
	if !ok {
		return false
	}
	if _, ok := entry.conns[connID]; !ok {
		return false
	}
	delete(entry.conns, connID)
	if len(entry.conns) == 0 {
		delete(p.entries, userID)
		return true
	}
	return false
}

// OnlineUsers returns a point-in-time snapshot of online users, sorted by
// username for stable output.
func (p *Presence) OnlineUsers() []models.User {
	p.mu.Lock()
	defer p.mu.Unlock()

	users := make([]models.User, 0, len(p.entries))
	for _, entry := range p.entries {
		users = append(users, entry.user)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users
}
