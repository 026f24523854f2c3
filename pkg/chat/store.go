package chat

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/inkbase/inkbase/internal/logger"
	"github.com/inkbase/inkbase/pkg/store/txscope"
	"github.com/inkbase/inkbase/pkg/vfs"
)

// MessageStore persists chat messages and attachments.
type MessageStore struct {
	pool *pgxpool.Pool

	// adminPublicKey may delete any message. Empty disables the override.
	adminPublicKey string
}

// NewMessageStore creates a MessageStore. adminPublicKey may be empty.
func NewMessageStore(pool *pgxpool.Pool, adminPublicKey string) *MessageStore {
	return &MessageStore{pool: pool, adminPublicKey: adminPublicKey}
}

func (s *MessageStore) q(ctx context.Context) txscope.Querier {
	return txscope.QuerierFor(ctx, s.pool)
}

// Persist stores a message and its attachments in one transaction scope.
// The room is created on first use; a message id seen before is a no-op,
// which makes redelivery safe.
func (s *MessageStore) Persist(ctx context.Context, room string, msg *Message) error {
	return txscope.Run(ctx, s.pool, func(ctx context.Context) error {
		q := s.q(ctx)

		var roomID int64
		err := q.QueryRow(ctx, `
			INSERT INTO rooms (name) VALUES ($1)
			ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
			RETURNING id`,
			room).Scan(&roomID)
		if err != nil {
			return fmt.Errorf("upsert room %q: %w", room, err)
		}

		tag, err := q.Exec(ctx, `
			INSERT INTO messages (id, state, room_id, timestamp, sender, content, public_key, signature)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (id) DO NOTHING`,
			msg.ID, StateSaved, roomID, msg.Timestamp, msg.Sender,
			msg.Content, msg.PublicKey, msg.Signature)
		if err != nil {
			return fmt.Errorf("insert message %q: %w", msg.ID, err)
		}
		if tag.RowsAffected() == 0 {
			// Already persisted; attachments went in with the first copy.
			return nil
		}

		for i := range msg.Attachments {
			a := &msg.Attachments[i]
			data := a.Data
			if data == nil && a.DataURL != "" {
				data, err = decodeDataURL(a.DataURL)
				if err != nil {
					return fmt.Errorf("decode attachment %q: %w", a.Name, err)
				}
			}
			_, err = q.Exec(ctx, `
				INSERT INTO attachments (message_id, name, type, size, data)
				VALUES ($1, $2, $3, $4, $5)`,
				msg.ID, a.Name, a.Type, a.Size, data)
			if err != nil {
				return fmt.Errorf("insert attachment %q: %w", a.Name, err)
			}
		}

		logger.DebugCtx(ctx, "message persisted",
			logger.Room(room), logger.MessageID(msg.ID),
			"attachments", len(msg.Attachments))
		return nil
	})
}

// GetMessagesByIDs returns the requested messages with their attachments
// nested. Only messages belonging to room come back; ids from other rooms
// are silently omitted.
func (s *MessageStore) GetMessagesByIDs(ctx context.Context, ids []string, room string) ([]Message, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := s.q(ctx).Query(ctx, `
		SELECT m.id, m.timestamp, m.sender, m.content, m.public_key, m.signature,
		       a.id, a.name, a.type, a.size, a.data
		FROM messages m
		JOIN rooms r ON r.id = m.room_id
		LEFT JOIN attachments a ON a.message_id = m.id
		WHERE m.id = ANY($1) AND r.name = $2
		ORDER BY m.timestamp ASC, a.id ASC`,
		ids, room)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var (
		out   []Message
		index = map[string]int{}
	)
	for rows.Next() {
		var (
			m     Message
			attID *int64
			name  *string
			typ   *string
			size  *int64
			data  []byte
		)
		err := rows.Scan(&m.ID, &m.Timestamp, &m.Sender, &m.Content,
			&m.PublicKey, &m.Signature, &attID, &name, &typ, &size, &data)
		if err != nil {
			return nil, fmt.Errorf("scan message row: %w", err)
		}

		pos, seen := index[m.ID]
		if !seen {
			m.Room = room
			m.State = StateSaved
			out = append(out, m)
			pos = len(out) - 1
			index[m.ID] = pos
		}

		if attID != nil {
			out[pos].Attachments = append(out[pos].Attachments, Attachment{
				ID:   *attID,
				Name: deref(name),
				Type: deref(typ),
				Size: derefInt(size),
				Data: data,
			})
		}
	}
	return out, rows.Err()
}

// GetMessageIDsForRoomSince returns the ids of messages in room with
// timestamp at or after cutoffMs, oldest first.
func (s *MessageStore) GetMessageIDsForRoomSince(ctx context.Context, room string, cutoffMs int64) ([]string, error) {
	rows, err := s.q(ctx).Query(ctx, `
		SELECT m.id
		FROM messages m
		JOIN rooms r ON r.id = m.room_id
		WHERE r.name = $1 AND m.timestamp >= $2
		ORDER BY m.timestamp ASC`,
		room, cutoffMs)
	if err != nil {
		return nil, fmt.Errorf("query message ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan message id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// DeleteMessage removes a message and its attachments. Only the original
// publisher or the admin key may delete; anyone else gets NotAuthorized.
func (s *MessageStore) DeleteMessage(ctx context.Context, messageID, requesterPubKey string) error {
	return txscope.Run(ctx, s.pool, func(ctx context.Context) error {
		q := s.q(ctx)

		var ownerKey string
		err := q.QueryRow(ctx,
			`SELECT public_key FROM messages WHERE id = $1`,
			messageID).Scan(&ownerKey)
		if errors.Is(err, pgx.ErrNoRows) {
			return vfs.NewError(vfs.KindNotFound,
				fmt.Sprintf("message %s not found", messageID), "")
		}
		if err != nil {
			return fmt.Errorf("look up message: %w", err)
		}

		if requesterPubKey != ownerKey &&
			(s.adminPublicKey == "" || requesterPubKey != s.adminPublicKey) {
			return vfs.NewError(vfs.KindNotAuthorized,
				"only the publisher or the admin may delete a message", "")
		}

		// Attachments first; the FK would cascade but the order is part of
		// the audit trail in statement logs.
		if _, err := q.Exec(ctx,
			`DELETE FROM attachments WHERE message_id = $1`, messageID); err != nil {
			return fmt.Errorf("delete attachments: %w", err)
		}
		if _, err := q.Exec(ctx,
			`DELETE FROM messages WHERE id = $1`, messageID); err != nil {
			return fmt.Errorf("delete message: %w", err)
		}

		logger.InfoCtx(ctx, "message deleted", logger.MessageID(messageID))
		return nil
	})
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefInt(n *int64) int64 {
	if n == nil {
		return 0
	}
	return *n
}
