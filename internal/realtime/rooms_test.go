package realtime

import (
	"testing"
	"time"

	"github.com/corkboard/backend/internal/models"
)

func viewingClient(h *Hub, user models.User) *Client {
	c := h.register(nopSocket{})
	c.setReady(user)
	return c
}

func TestRoomsJoinAndViewers(t *testing.T) {
	h := newTestHub()
	r := NewRooms()
	alice := viewingClient(h, models.User{ID: "u1", Username: "alice"})
	bob := viewingClient(h, models.User{ID: "u2", Username: "bob"})

	viewers := r.Join("wb1", alice)
	if len(viewers) != 1 {
		t.Fatalf("viewers after first join = %d, want 1", len(viewers))
	}

	viewers = r.Join("wb1", bob)
	if len(viewers) != 2 {
		t.Fatalf("viewers after second join = %d, want 2", len(viewers))
	}
}

func TestRoomsViewersDeduplicateByUser(t *testing.T) {
	h := newTestHub()
	r := NewRooms()
	user := models.User{ID: "u1", Username: "alice"}

	r.Join("wb1", viewingClient(h, user))
	viewers := r.Join("wb1", viewingClient(h, user))
	if len(viewers) != 1 {
		t.Errorf("viewers = %d, want 1 for two devices of the same user", len(viewers))
	}
}

func TestRoomsViewersSkipUnauthenticated(t *testing.T) {
	h := newTestHub()
	r := NewRooms()

	r.Join("wb1", h.register(nopSocket{}))
	if got := len(r.Viewers("wb1")); got != 0 {
		t.Errorf("viewers = %d, want 0 for an unauthenticated member", got)
	}
}

func TestRoomsLeaveRemovesEmptyRoom(t *testing.T) {
	h := newTestHub()
	r := NewRooms()
	c := viewingClient(h, models.User{ID: "u1", Username: "alice"})

	r.Join("wb1", c)
	if remaining := r.Leave("wb1", c); remaining != nil {
		t.Errorf("remaining = %v, want nil", remaining)
	}

	r.mu.Lock()
	_, exists := r.rooms["wb1"]
	r.mu.Unlock()
	if exists {
		t.Error("empty room should be deleted")
	}
}

func TestRoomsLeaveUnknownRoom(t *testing.T) {
	h := newTestHub()
	r := NewRooms()
	c := viewingClient(h, models.User{ID: "u1", Username: "alice"})

	if remaining := r.Leave("nope", c); remaining != nil {
		t.Errorf("remaining = %v, want nil", remaining)
	}
}

func TestBroadcastLocalExcludesOrigin(t *testing.T) {
	h := newTestHub()
	r := NewRooms()
	alice := viewingClient(h, models.User{ID: "u1", Username: "alice"})
	bob := viewingClient(h, models.User{ID: "u2", Username: "bob"})
	r.Join("wb1", alice)
	r.Join("wb1", bob)

	r.BroadcastLocal("wb1", []byte(`{"type":"pong"}`), bob.id)

	select {
	case <-alice.send:
	case <-time.After(time.Second):
		t.Fatal("alice should receive the broadcast")
	}
	select {
	case <-bob.send:
		t.Fatal("origin connection should be excluded")
	default:
	}
}

func TestBroadcastLocalForceClosesSlowClient(t *testing.T) {
	verifier := &fakeVerifier{users: map[string]models.User{}}
	h := NewHub(verifier, &fakeAccess{}, 1, time.Minute)
	r := NewRooms()
	c := viewingClient(h, models.User{ID: "u1", Username: "alice"})
	r.Join("wb1", c)

	// Fill the queue, then broadcast once more.
	if !c.enqueue([]byte(`{"type":"pong"}`)) {
		t.Fatal("first enqueue should succeed")
	}
	r.BroadcastLocal("wb1", []byte(`{"type":"pong"}`), "")

	if got := c.currentState(); got != stateClosed {
		t.Errorf("state = %v, want stateClosed after overflow", got)
	}
}
