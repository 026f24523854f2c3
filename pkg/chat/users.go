package chat

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/inkbase/inkbase/pkg/store/txscope"
)

// UserInfo is a user profile keyed by public key.
type UserInfo struct {
	ID     int64  `json:"-"`
	PubKey string `json:"publicKey"`
	Name   string `json:"name"`
	Avatar []byte `json:"-"`
}

// UserStore persists user profiles.
type UserStore struct {
	pool *pgxpool.Pool
}

// NewUserStore creates a UserStore on the given pool.
func NewUserStore(pool *pgxpool.Pool) *UserStore {
	return &UserStore{pool: pool}
}

func (s *UserStore) q(ctx context.Context) txscope.Querier {
	return txscope.QuerierFor(ctx, s.pool)
}

// Upsert stores or refreshes a profile, keyed by public key.
func (s *UserStore) Upsert(ctx context.Context, info *UserInfo) error {
	_, err := s.q(ctx).Exec(ctx, `
		INSERT INTO user_info (pub_key, name, avatar) VALUES ($1, $2, $3)
		ON CONFLICT (pub_key) DO UPDATE SET name = EXCLUDED.name, avatar = EXCLUDED.avatar`,
		info.PubKey, info.Name, info.Avatar)
	if err != nil {
		return fmt.Errorf("upsert user info: %w", err)
	}
	return nil
}

// Get returns the profile for pubKey, or (nil, nil) when absent.
func (s *UserStore) Get(ctx context.Context, pubKey string) (*UserInfo, error) {
	var info UserInfo
	err := s.q(ctx).QueryRow(ctx,
		`SELECT id, pub_key, name, avatar FROM user_info WHERE pub_key = $1`,
		pubKey).Scan(&info.ID, &info.PubKey, &info.Name, &info.Avatar)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query user info: %w", err)
	}
	return &info, nil
}

// Delete removes the profile for pubKey.
func (s *UserStore) Delete(ctx context.Context, pubKey string) error {
	_, err := s.q(ctx).Exec(ctx,
		`DELETE FROM user_info WHERE pub_key = $1`, pubKey)
	if err != nil {
		return fmt.Errorf("delete user info: %w", err)
	}
	return nil
}
