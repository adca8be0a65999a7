package bridge

import (
	"encoding/json"
	"sync"
	"testing"
)

type roomCall struct {
	roomID        string
	data          string
	excludeConnID string
}

type fakeLocal struct {
	mu        sync.Mutex
	roomCalls []roomCall
	allCalls  []string
}

func (f *fakeLocal) BroadcastRoom(roomID string, data []byte, excludeConnID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.roomCalls = append(f.roomCalls, roomCall{roomID, string(data), excludeConnID})
}

func (f *fakeLocal) BroadcastAll(data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.allCalls = append(f.allCalls, string(data))
}

func mustMarshal(t *testing.T, env envelope) []byte {
	t.Helper()
	data, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return data
}

func TestDispatchSkipsOwnMessages(t *testing.T) {
	local := &fakeLocal{}
	b := &Bridge{serverID: "server-1", local: local}

	b.dispatch(mustMarshal(t, envelope{ServerID: "server-1", RoomID: "wb1", Data: []byte(`{}`)}))

	if len(local.roomCalls) != 0 || len(local.allCalls) != 0 {
		t.Error("messages from this process should not be re-broadcast")
	}
}

func TestDispatchRoomMessage(t *testing.T) {
	local := &fakeLocal{}
	b := &Bridge{serverID: "server-1", local: local}

	b.dispatch(mustMarshal(t, envelope{
		ServerID:      "server-2",
		RoomID:        "wb1",
		ExcludeConnID: "conn-9",
		Data:          []byte(`{"type":"cursor_update"}`),
	}))

	if len(local.roomCalls) != 1 {
		t.Fatalf("roomCalls = %d, want 1", len(local.roomCalls))
	}
	call := local.roomCalls[0]
	if call.roomID != "wb1" || call.excludeConnID != "conn-9" {
		t.Errorf("call = %+v, want wb1 excluding conn-9", call)
	}
	if call.data != `{"type":"cursor_update"}` {
		t.Errorf("data = %s, want the inner frame unchanged", call.data)
	}
}

func TestDispatchGlobalMessage(t *testing.T) {
	local := &fakeLocal{}
	b := &Bridge{serverID: "server-1", local: local}

	b.dispatch(mustMarshal(t, envelope{ServerID: "server-2", Data: []byte(`{"type":"presence_update"}`)}))

	if len(local.allCalls) != 1 {
		t.Fatalf("allCalls = %d, want 1", len(local.allCalls))
	}
	if len(local.roomCalls) != 0 {
		t.Error("a message without a room should not be room-broadcast")
	}
}

func TestDispatchMalformedMessage(t *testing.T) {
	local := &fakeLocal{}
	b := &Bridge{serverID: "server-1", local: local}

	b.dispatch([]byte(`garbage`))

	if len(local.roomCalls) != 0 || len(local.allCalls) != 0 {
		t.Error("malformed broker messages should be dropped")
	}
}

func TestPublishWithoutBrokerStaysLocal(t *testing.T) {
	local := &fakeLocal{}
	b := Connect("", local)

	if err := b.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	b.PublishRoom("wb1", []byte(`{"type":"user_joined"}`), "conn-1")
	b.PublishGlobal([]byte(`{"type":"whiteboard_created"}`))
	b.PublishPresence([]byte(`{"type":"presence_update"}`))

	if len(local.roomCalls) != 1 {
		t.Errorf("roomCalls = %d, want 1", len(local.roomCalls))
	}
	if local.roomCalls[0].excludeConnID != "conn-1" {
		t.Errorf("excludeConnID = %q, want conn-1", local.roomCalls[0].excludeConnID)
	}
	if len(local.allCalls) != 2 {
		t.Errorf("allCalls = %d, want 2", len(local.allCalls))
	}

	b.Close()
}

func TestPublishRoomBroadcastsLocallyFirst(t *testing.T) {
	local := &fakeLocal{}
	b := &Bridge{serverID: "server-1", local: local}

	b.PublishRoom("wb1", []byte(`{"type":"note_created"}`), "")

	if len(local.roomCalls) != 1 {
		t.Fatalf("roomCalls = %d, want 1", len(local.roomCalls))
	}
	if local.roomCalls[0].roomID != "wb1" {
		t.Errorf("roomID = %q, want wb1", local.roomCalls[0].roomID)
	}
}
