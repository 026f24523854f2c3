// Package chat persists signed room messages, their attachments, the
// publisher blocklist, and user profiles.
package chat

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// Message states. Rows read back from storage are always Saved; the other
// two exist for client-side bookkeeping and arrive on the wire only.
const (
	StateSent   = "SENT"
	StateFailed = "FAILED"
	StateSaved  = "SAVED"
)

// Message is one chat message. ID is chosen by the client and globally
// unique; persistence by id is at-most-once.
type Message struct {
	ID          string       `json:"id"`
	Room        string       `json:"room,omitempty"`
	Timestamp   int64        `json:"timestamp"`
	Sender      string       `json:"sender"`
	Content     string       `json:"content"`
	PublicKey   string       `json:"publicKey,omitempty"`
	Signature   string       `json:"signature,omitempty"`
	State       string       `json:"state,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// Attachment is one file attached to a message. Data arrives from clients
// as a data: URL and is stored as raw bytes.
type Attachment struct {
	ID   int64  `json:"-"`
	Name string `json:"name"`
	Type string `json:"type"`
	Size int64  `json:"size"`
	Data []byte `json:"-"`

	// DataURL carries the wire form; decoded into Data before insert.
	DataURL string `json:"data,omitempty"`
}

// decodeDataURL extracts the raw bytes of a `data:<type>;base64,<payload>`
// URL. Plain base64 without the prefix is accepted too.
func decodeDataURL(s string) ([]byte, error) {
	if s == "" {
		return nil, nil
	}
	if strings.HasPrefix(s, "data:") {
		idx := strings.Index(s, ",")
		if idx < 0 {
			return nil, fmt.Errorf("malformed data url")
		}
		meta, payload := s[5:idx], s[idx+1:]
		if !strings.HasSuffix(meta, ";base64") {
			// Percent-encoded text payloads are not used by the clients.
			return []byte(payload), nil
		}
		return base64.StdEncoding.DecodeString(payload)
	}
	return base64.StdEncoding.DecodeString(s)
}
