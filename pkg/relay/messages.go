// Package relay multiplexes WebSocket connections into rooms, routes
// targeted signaling frames between peers, and broadcasts signed chat
// messages with verification, blocklist enforcement, and fire-and-forget
// persistence.
package relay

import "encoding/json"

// Wire message types. Clients send the first group; the second group is
// server-originated.
const (
	TypeJoin         = "join"
	TypeOffer        = "offer"
	TypeAnswer       = "answer"
	TypeICECandidate = "ice-candidate"
	TypeBroadcast    = "broadcast"
	TypeDeleteMsg    = "delete-msg"
	TypeHistory      = "history"
	TypeAck          = "ack"

	TypeRoomInfo   = "room-info"
	TypeUserJoined = "user-joined"
	TypeUserLeft   = "user-left"
)

// envelope carries the routing fields shared by every client frame. The
// full payload is kept as a raw map so forwarded frames preserve fields
// the relay does not interpret, signatures included.
type envelope struct {
	Type      string          `json:"type"`
	Room      string          `json:"room,omitempty"`
	User      string          `json:"user,omitempty"`
	Target    string          `json:"target,omitempty"`
	Sender    string          `json:"sender,omitempty"`
	MessageID string          `json:"messageId,omitempty"`
	Since     int64           `json:"since,omitempty"`
	PublicKey string          `json:"publicKey,omitempty"`
	Message   json.RawMessage `json:"message,omitempty"`
}

// roomInfo is sent to a joiner, listing who is already present.
type roomInfo struct {
	Type         string   `json:"type"`
	Room         string   `json:"room"`
	Participants []string `json:"participants"`
}

// presence announces a join or leave to the rest of a room.
type presence struct {
	Type string `json:"type"`
	Room string `json:"room"`
	User string `json:"user"`
}

// ack confirms receipt of a client frame that carries an id.
type ack struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// deleteNotice fans out a message deletion so clients drop the entry.
type deleteNotice struct {
	Type      string `json:"type"`
	Room      string `json:"room"`
	MessageID string `json:"messageId"`
}

// historyReply answers a history request with the ids of persisted
// messages since the requested cutoff.
type historyReply struct {
	Type       string   `json:"type"`
	Room       string   `json:"room"`
	MessageIDs []string `json:"messageIds"`
}
