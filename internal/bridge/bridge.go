// Package bridge fans realtime events out across server processes through
// NATS. Each process publishes its locally-originated events and
// re-broadcasts everyone else's into its own connections. Delivery is
// at-most-once and best-effort: clients reconcile by re-fetching canonical
// state on reconnect, so a dropped event is never retried.
package bridge

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// Subject layout. Room events go to one subject per whiteboard so a future
// deployment can shard consumers by room.
const (
	roomSubjectPrefix = "whiteboard."
	roomWildcard      = "whiteboard.>"
	globalSubject     = "whiteboards.global"
	presenceSubject   = "presence.updates"
)

// LocalBroadcaster is the process-local delivery half of the bridge,
// implemented by the realtime hub.
type LocalBroadcaster interface {
	BroadcastRoom(roomID string, data []byte, excludeConnID string)
	BroadcastAll(data []byte)
}

// envelope wraps an event frame on the broker. ServerID identifies the
// publishing process so it can skip its own messages; without that, every
// publish would be delivered twice locally.
type envelope struct {
	ServerID      string          `json:"server_id"`
	RoomID        string          `json:"room_id,omitempty"`
	ExcludeConnID string          `json:"exclude_conn_id,omitempty"`
	Data          json.RawMessage `json:"data"`
}

// Bridge connects the local broadcaster to the broker. A Bridge with no
// broker connection still broadcasts locally, so a broker outage degrades
// cross-process visibility without affecting existing connections.
type Bridge struct {
	nc       *nats.Conn
	serverID string
	local    LocalBroadcaster
}

// Connect creates a bridge. An empty URL disables the broker; a connection
// failure is logged and also degrades to local-only.
func Connect(url string, local LocalBroadcaster) *Bridge {
	b := &Bridge{
		serverID: uuid.NewString(),
		local:    local,
	}

	if url == "" {
		slog.Info("nats disabled, broadcasts are local-only")
		return b
	}

	nc, err := nats.Connect(url,
		nats.Name("corkboard-"+b.serverID),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("nats disconnected", slog.Any("error", err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("nats reconnected", slog.String("url", nc.ConnectedUrl()))
		}),
	)
	if err != nil {
		slog.Warn("nats unavailable, broadcasts are local-only", slog.Any("error", err))
		return b
	}

	slog.Info("connected to nats", slog.String("url", nc.ConnectedUrl()))
	b.nc = nc
	return b
}

// Start subscribes to the room wildcard, the global subject, and the
// presence subject.
func (b *Bridge) Start() error {
	if b.nc == nil {
		return nil
	}
	for _, subject := range []string{roomWildcard, globalSubject, presenceSubject} {
		if _, err := b.nc.Subscribe(subject, b.handleMessage); err != nil {
			return err
		}
	}
	return nil
}

// Close drains the broker connection.
func (b *Bridge) Close() {
	if b.nc != nil {
		b.nc.Drain()
	}
}

func (b *Bridge) handleMessage(msg *nats.Msg) {
	b.dispatch(msg.Data)
}

// dispatch re-broadcasts a broker message into the local connections.
// Messages this process published are skipped; remote-origin events are only
// ever broadcast, never re-published, so fan-out cannot loop.
func (b *Bridge) dispatch(data []byte) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		slog.Warn("malformed bridge message", slog.Any("error", err))
		return
	}
	if env.ServerID == b.serverID {
		return
	}

	if env.RoomID != "" {
		b.local.BroadcastRoom(env.RoomID, env.Data, env.ExcludeConnID)
		return
	}
	b.local.BroadcastAll(env.Data)
}

// PublishRoom broadcasts a room event locally and publishes it to the
// room's subject.
func (b *Bridge) PublishRoom(roomID string, data []byte, excludeConnID string) {
	b.local.BroadcastRoom(roomID, data, excludeConnID)
	b.publish(roomSubjectPrefix+roomID, envelope{
		ServerID:      b.serverID,
		RoomID:        roomID,
		ExcludeConnID: excludeConnID,
		Data:          data,
	})
}

// PublishGlobal broadcasts an event without a room scope to every local
// connection and to the global subject.
func (b *Bridge) PublishGlobal(data []byte) {
	b.local.BroadcastAll(data)
	b.publish(globalSubject, envelope{ServerID: b.serverID, Data: data})
}

// PublishPresence broadcasts a presence snapshot to every local connection
// and to the presence subject.
func (b *Bridge) PublishPresence(data []byte) {
	b.local.BroadcastAll(data)
	b.publish(presenceSubject, envelope{ServerID: b.serverID, Data: data})
}

func (b *Bridge) publish(subject string, env envelope) {
	if b.nc == nil {
		return
	}
	payload, err := json.Marshal(env)
	if err != nil {
		slog.Error("marshal bridge envelope", slog.Any("error", err))
		return
	}
	if err := b.nc.Publish(subject, payload); err != nil {
		// Best effort: the event stays local and is not retried.
		slog.Warn("nats publish failed", slog.String("subject", subject), slog.Any("error", err))
	}
}
