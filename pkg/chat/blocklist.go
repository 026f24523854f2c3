package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/inkbase/inkbase/internal/logger"
	"github.com/inkbase/inkbase/pkg/store/txscope"
)

// Blocklist is the set of publisher keys whose messages are neither
// persisted nor kept.
type Blocklist struct {
	pool *pgxpool.Pool
}

// NewBlocklist creates a Blocklist on the given pool.
func NewBlocklist(pool *pgxpool.Pool) *Blocklist {
	return &Blocklist{pool: pool}
}

func (b *Blocklist) q(ctx context.Context) txscope.Querier {
	return txscope.QuerierFor(ctx, b.pool)
}

// IsBlocked reports whether pubKey is on the blocklist.
func (b *Blocklist) IsBlocked(ctx context.Context, pubKey string) (bool, error) {
	var blocked bool
	err := b.q(ctx).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM blocked_keys WHERE pub_key = $1)`,
		pubKey).Scan(&blocked)
	if err != nil {
		return false, fmt.Errorf("query blocklist: %w", err)
	}
	return blocked, nil
}

// Block adds pubKey to the blocklist; blocking twice is a no-op.
func (b *Blocklist) Block(ctx context.Context, pubKey string) error {
	_, err := b.q(ctx).Exec(ctx, `
		INSERT INTO blocked_keys (pub_key, blocked_at) VALUES ($1, $2)
		ON CONFLICT (pub_key) DO NOTHING`,
		pubKey, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("block key: %w", err)
	}
	logger.InfoCtx(ctx, "publisher blocked", logger.PublicKey(pubKey))
	return nil
}

// Unblock removes pubKey from the blocklist.
func (b *Blocklist) Unblock(ctx context.Context, pubKey string) error {
	_, err := b.q(ctx).Exec(ctx,
		`DELETE FROM blocked_keys WHERE pub_key = $1`, pubKey)
	if err != nil {
		return fmt.Errorf("unblock key: %w", err)
	}
	return nil
}

// PurgeMessages deletes every stored message and attachment published by
// pubKey, in one transaction scope. Returns the number of messages removed.
func (b *Blocklist) PurgeMessages(ctx context.Context, pubKey string) (int64, error) {
	var purged int64
	err := txscope.Run(ctx, b.pool, func(ctx context.Context) error {
		q := b.q(ctx)

		if _, err := q.Exec(ctx, `
			DELETE FROM attachments
			WHERE message_id IN (SELECT id FROM messages WHERE public_key = $1)`,
			pubKey); err != nil {
			return fmt.Errorf("purge attachments: %w", err)
		}

		tag, err := q.Exec(ctx,
			`DELETE FROM messages WHERE public_key = $1`, pubKey)
		if err != nil {
			return fmt.Errorf("purge messages: %w", err)
		}
		purged = tag.RowsAffected()
		return nil
	})
	if err != nil {
		return 0, err
	}

	logger.InfoCtx(ctx, "publisher content purged",
		logger.PublicKey(pubKey), "messages", purged)
	return purged, nil
}
