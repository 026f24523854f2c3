package relay

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/inkbase/inkbase/internal/logger"
	"github.com/inkbase/inkbase/pkg/chat"
	"github.com/inkbase/inkbase/pkg/metrics"
	"github.com/inkbase/inkbase/pkg/signature"
)

const persistTimeout = 10 * time.Second

// MessageSink is the persistence surface the relay needs. Implemented by
// chat.MessageStore.
type MessageSink interface {
	Persist(ctx context.Context, room string, msg *chat.Message) error
	DeleteMessage(ctx context.Context, messageID, requesterPubKey string) error
	GetMessageIDsForRoomSince(ctx context.Context, room string, cutoffMs int64) ([]string, error)
}

// BlockChecker reports whether a publisher key is blocked. Implemented by
// chat.Blocklist.
type BlockChecker interface {
	IsBlocked(ctx context.Context, pubKey string) (bool, error)
}

// participant is what the relay knows about a connection.
type participant struct {
	room string
	name string
}

// Relay owns the room membership registry and the message handlers.
// Both maps are guarded by one mutex; handlers never hold it across a
// network write that could block on a slow peer's send.
type Relay struct {
	messages  MessageSink
	blocklist BlockChecker

	mu    sync.Mutex
	conns map[Conn]*participant
	rooms map[string]map[Conn]*participant
}

// New creates a Relay.
func New(messages MessageSink, blocklist BlockChecker) *Relay {
	return &Relay{
		messages:  messages,
		blocklist: blocklist,
		conns:     make(map[Conn]*participant),
		rooms:     make(map[string]map[Conn]*participant),
	}
}

// HandleMessage dispatches one client frame. Handler panics are contained
// here so a malformed frame cannot take the connection down.
func (r *Relay) HandleMessage(ctx context.Context, conn Conn, raw []byte) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.ErrorCtx(ctx, "handler panic", "panic", rec,
				logger.ClientIP(conn.RemoteAddr()))
		}
	}()

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		logger.WarnCtx(ctx, "undecodable frame", logger.Err(err),
			logger.ClientIP(conn.RemoteAddr()))
		return
	}

	metrics.RelayMessages.WithLabelValues(env.Type).Inc()

	switch env.Type {
	case TypeJoin:
		r.onJoin(ctx, conn, &env)
	case TypeOffer, TypeAnswer, TypeICECandidate:
		r.onSignaling(ctx, conn, &env, raw)
	case TypeBroadcast:
		r.onBroadcast(ctx, conn, &env, raw)
	case TypeDeleteMsg:
		r.onDeleteMessage(ctx, conn, &env)
	case TypeHistory:
		r.onHistory(ctx, conn, &env)
	case TypeAck:
		// Client-side bookkeeping; nothing to do.
	default:
		logger.DebugCtx(ctx, "unknown message type",
			logger.MsgType(env.Type), logger.ClientIP(conn.RemoteAddr()))
	}
}

// onJoin records the connection, tells the joiner who is present, and
// announces the join to everyone else in the room.
func (r *Relay) onJoin(ctx context.Context, conn Conn, env *envelope) {
	if env.Room == "" || env.User == "" {
		logger.WarnCtx(ctx, "join without room or user",
			logger.ClientIP(conn.RemoteAddr()))
		return
	}

	r.mu.Lock()
	// A re-join moves the connection; drop it from its previous room.
	if prev, rejoined := r.conns[conn]; rejoined {
		delete(r.rooms[prev.room], conn)
		if len(r.rooms[prev.room]) == 0 {
			delete(r.rooms, prev.room)
		}
		metrics.RelayConnections.Dec()
	}
	p := &participant{room: env.Room, name: env.User}
	r.conns[conn] = p
	members := r.rooms[env.Room]
	if members == nil {
		members = make(map[Conn]*participant)
		r.rooms[env.Room] = members
	}

	others := make([]string, 0, len(members))
	peers := make([]Conn, 0, len(members))
	for c, m := range members {
		others = append(others, m.name)
		peers = append(peers, c)
	}
	members[conn] = p
	r.mu.Unlock()

	metrics.RelayRoomJoins.Inc()
	metrics.RelayConnections.Inc()
	logger.InfoCtx(ctx, "user joined",
		logger.Room(env.Room), logger.User(env.User),
		logger.ClientIP(conn.RemoteAddr()))

	r.send(ctx, conn, roomInfo{Type: TypeRoomInfo, Room: env.Room, Participants: others})

	joined := presence{Type: TypeUserJoined, Room: env.Room, User: env.User}
	for _, peer := range peers {
		r.send(ctx, peer, joined)
	}
}

// onSignaling forwards an offer, answer, or ICE candidate to the unique
// connection matching {room, target}. Missing targets drop with a log.
func (r *Relay) onSignaling(ctx context.Context, conn Conn, env *envelope, raw []byte) {
	if env.Target == "" {
		logger.WarnCtx(ctx, "signaling frame without target",
			logger.MsgType(env.Type), logger.ClientIP(conn.RemoteAddr()))
		return
	}

	r.mu.Lock()
	sender, ok := r.conns[conn]
	if !ok {
		r.mu.Unlock()
		logger.WarnCtx(ctx, "signaling from unjoined connection",
			logger.ClientIP(conn.RemoteAddr()))
		return
	}
	var target Conn
	for c, m := range r.rooms[sender.room] {
		if m.name == env.Target {
			target = c
			break
		}
	}
	r.mu.Unlock()

	if target == nil {
		logger.DebugCtx(ctx, "signaling target not found",
			logger.Room(sender.room), logger.Target(env.Target),
			logger.MsgType(env.Type))
		return
	}

	// Forward the original frame with sender and room stamped, keeping
	// every field the relay does not interpret.
	payload, err := stampFields(raw, map[string]any{
		"sender": sender.name,
		"room":   sender.room,
	})
	if err != nil {
		logger.WarnCtx(ctx, "cannot stamp signaling frame", logger.Err(err))
		return
	}
	r.send(ctx, target, payload)
}

// onBroadcast verifies, blocklist-checks, persists, and fans a chat
// message out to the rest of the room. Persistence is fire-and-forget:
// the fan-out does not wait for the database.
func (r *Relay) onBroadcast(ctx context.Context, conn Conn, env *envelope, raw []byte) {
	r.mu.Lock()
	sender, ok := r.conns[conn]
	var peers []Conn
	if ok {
		for c := range r.rooms[sender.room] {
			if c != conn {
				peers = append(peers, c)
			}
		}
	}
	r.mu.Unlock()

	if !ok {
		logger.WarnCtx(ctx, "broadcast from unjoined connection",
			logger.ClientIP(conn.RemoteAddr()))
		return
	}

	if len(env.Message) == 0 {
		logger.WarnCtx(ctx, "broadcast without message",
			logger.Room(sender.room), logger.User(sender.name))
		return
	}

	payload, err := signature.DecodeObject(env.Message)
	if err != nil {
		logger.WarnCtx(ctx, "undecodable chat message", logger.Err(err),
			logger.Room(sender.room))
		return
	}

	valid, err := signature.Verify(payload)
	if err != nil || !valid {
		metrics.RelayRejectedMessages.WithLabelValues("signature").Inc()
		logger.WarnCtx(ctx, "signature verification failed",
			logger.Room(sender.room), logger.User(sender.name), logger.Err(err))
		return
	}

	var msg chat.Message
	if err := json.Unmarshal(env.Message, &msg); err != nil {
		logger.WarnCtx(ctx, "malformed chat message", logger.Err(err),
			logger.Room(sender.room))
		return
	}

	blocked, err := r.blocklist.IsBlocked(ctx, msg.PublicKey)
	if err != nil {
		logger.ErrorCtx(ctx, "blocklist lookup failed", logger.Err(err))
		return
	}
	if blocked {
		metrics.RelayRejectedMessages.WithLabelValues("blocked").Inc()
		logger.InfoCtx(ctx, "blocked publisher dropped",
			logger.Room(sender.room), logger.PublicKey(msg.PublicKey))
		return
	}

	room := sender.room
	go func() {
		pctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if err := r.messages.Persist(pctx, room, &msg); err != nil {
			logger.ErrorCtx(pctx, "message persistence failed",
				logger.Room(room), logger.MessageID(msg.ID), logger.Err(err))
		}
	}()

	out, err := stampFields(raw, map[string]any{"sender": sender.name})
	if err != nil {
		logger.WarnCtx(ctx, "cannot stamp broadcast", logger.Err(err))
		return
	}
	for _, peer := range peers {
		r.send(ctx, peer, out)
	}

	if msg.ID != "" {
		r.send(ctx, conn, ack{Type: TypeAck, ID: msg.ID})
	}
}

// onDeleteMessage deletes via the store, which enforces that only the
// publisher or the admin key may delete, then notifies the room.
func (r *Relay) onDeleteMessage(ctx context.Context, conn Conn, env *envelope) {
	if env.MessageID == "" {
		return
	}

	r.mu.Lock()
	sender, ok := r.conns[conn]
	var peers []Conn
	if ok {
		for c := range r.rooms[sender.room] {
			peers = append(peers, c)
		}
	}
	r.mu.Unlock()

	if !ok {
		return
	}

	if err := r.messages.DeleteMessage(ctx, env.MessageID, env.PublicKey); err != nil {
		logger.WarnCtx(ctx, "message deletion refused",
			logger.MessageID(env.MessageID), logger.Err(err))
		return
	}

	notice := deleteNotice{Type: TypeDeleteMsg, Room: sender.room, MessageID: env.MessageID}
	for _, peer := range peers {
		r.send(ctx, peer, notice)
	}
}

// onHistory answers with the ids of persisted messages since the cutoff,
// so a rejoining client can backfill.
func (r *Relay) onHistory(ctx context.Context, conn Conn, env *envelope) {
	r.mu.Lock()
	sender, ok := r.conns[conn]
	r.mu.Unlock()
	if !ok {
		return
	}

	ids, err := r.messages.GetMessageIDsForRoomSince(ctx, sender.room, env.Since)
	if err != nil {
		logger.ErrorCtx(ctx, "history lookup failed",
			logger.Room(sender.room), logger.Err(err))
		return
	}
	r.send(ctx, conn, historyReply{Type: TypeHistory, Room: sender.room, MessageIDs: ids})
}

// HandleClose removes the connection and tells the remaining members.
// Closing the last connection drops the room entry.
func (r *Relay) HandleClose(ctx context.Context, conn Conn) {
	r.mu.Lock()
	p, ok := r.conns[conn]
	if !ok {
		r.mu.Unlock()
		return
	}
	delete(r.conns, conn)

	members := r.rooms[p.room]
	delete(members, conn)
	var peers []Conn
	if len(members) == 0 {
		delete(r.rooms, p.room)
	} else {
		for c := range members {
			peers = append(peers, c)
		}
	}
	r.mu.Unlock()

	metrics.RelayConnections.Dec()
	logger.InfoCtx(ctx, "user left",
		logger.Room(p.room), logger.User(p.name))

	left := presence{Type: TypeUserLeft, Room: p.room, User: p.name}
	for _, peer := range peers {
		r.send(ctx, peer, left)
	}
}

// Participants returns the current member names of a room.
func (r *Relay) Participants(room string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	members := r.rooms[room]
	names := make([]string, 0, len(members))
	for _, m := range members {
		names = append(names, m.name)
	}
	return names
}

// send writes one frame, skipping closed connections. A failed write
// never propagates to other recipients.
func (r *Relay) send(ctx context.Context, conn Conn, v any) {
	if !conn.Open() {
		return
	}
	if err := conn.WriteJSON(v); err != nil {
		logger.DebugCtx(ctx, "send failed", logger.Err(err),
			logger.ClientIP(conn.RemoteAddr()))
	}
}

// stampFields re-encodes a raw frame with extra fields set.
func stampFields(raw []byte, fields map[string]any) (map[string]any, error) {
	payload, err := signature.DecodeObject(raw)
	if err != nil {
		return nil, err
	}
	for k, v := range fields {
		payload[k] = v
	}
	return payload, nil
}
