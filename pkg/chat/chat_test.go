package chat_test

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkbase/inkbase/internal/testutil"
	"github.com/inkbase/inkbase/pkg/chat"
	"github.com/inkbase/inkbase/pkg/vfs"
)

func TestMain(m *testing.M) {
	os.Exit(testutil.RunWithPostgres(m))
}

const adminKey = "admin-key"

func newStores(t *testing.T) (*chat.MessageStore, *chat.Blocklist, string) {
	t.Helper()
	pool := testutil.NewPool(t)
	room := "room-" + uuid.NewString()
	return chat.NewMessageStore(pool, adminKey), chat.NewBlocklist(pool), room
}

func newMessage(room string, ts int64) *chat.Message {
	return &chat.Message{
		ID:        uuid.NewString(),
		Room:      room,
		Timestamp: ts,
		Sender:    "alice",
		Content:   fmt.Sprintf("hello at %d", ts),
		PublicKey: "alice-key",
		Signature: "sig",
	}
}

func TestPersistAndFetch(t *testing.T) {
	store, _, room := newStores(t)
	ctx := context.Background()

	msg := newMessage(room, 1000)
	require.NoError(t, store.Persist(ctx, room, msg))

	got, err := store.GetMessagesByIDs(ctx, []string{msg.ID}, room)
	require.NoError(t, err)
	require.Len(t, got, 1)
	m := got[0]
	assert.Equal(t, msg.ID, m.ID)
	assert.Equal(t, "alice", m.Sender)
	assert.Equal(t, msg.Content, m.Content)
	assert.Equal(t, chat.StateSaved, m.State)
	assert.Equal(t, room, m.Room)
}

func TestPersistIsIdempotent(t *testing.T) {
	store, _, room := newStores(t)
	ctx := context.Background()

	msg := newMessage(room, 1000)
	msg.Attachments = []chat.Attachment{{Name: "a.txt", Type: "text/plain", Size: 2, Data: []byte("hi")}}

	for i := 0; i < 2; i++ {
		require.NoError(t, store.Persist(ctx, room, msg), "pass %d", i)
	}

	got, err := store.GetMessagesByIDs(ctx, []string{msg.ID}, room)
	require.NoError(t, err)
	require.Len(t, got, 1)
	// Redelivery must not duplicate attachments either.
	assert.Len(t, got[0].Attachments, 1)
}

func TestPersistDecodesDataURL(t *testing.T) {
	store, _, room := newStores(t)
	ctx := context.Background()

	payload := []byte("binary payload")
	msg := newMessage(room, 1000)
	msg.Attachments = []chat.Attachment{{
		Name:    "blob.bin",
		Type:    "application/octet-stream",
		Size:    int64(len(payload)),
		DataURL: "data:application/octet-stream;base64," + base64.StdEncoding.EncodeToString(payload),
	}}

	require.NoError(t, store.Persist(ctx, room, msg))

	got, err := store.GetMessagesByIDs(ctx, []string{msg.ID}, room)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Len(t, got[0].Attachments, 1)
	a := got[0].Attachments[0]
	assert.Equal(t, payload, a.Data)
	assert.Equal(t, "blob.bin", a.Name)
	assert.Equal(t, int64(len(payload)), a.Size)
}

func TestGetMessagesByIDsScopesToRoom(t *testing.T) {
	store, _, room := newStores(t)
	ctx := context.Background()
	otherRoom := "room-" + uuid.NewString()

	mine := newMessage(room, 1000)
	foreign := newMessage(otherRoom, 1001)
	require.NoError(t, store.Persist(ctx, room, mine))
	require.NoError(t, store.Persist(ctx, otherRoom, foreign))

	// Asking for a foreign id through this room yields nothing.
	got, err := store.GetMessagesByIDs(ctx, []string{mine.ID, foreign.ID}, room)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, mine.ID, got[0].ID)
}

func TestGetMessageIDsForRoomSince(t *testing.T) {
	store, _, room := newStores(t)
	ctx := context.Background()

	var ids []string
	for _, ts := range []int64{100, 200, 300} {
		m := newMessage(room, ts)
		require.NoError(t, store.Persist(ctx, room, m))
		ids = append(ids, m.ID)
	}

	got, err := store.GetMessageIDsForRoomSince(ctx, room, 200)
	require.NoError(t, err)
	assert.Equal(t, ids[1:], got, "cutoff is inclusive")

	got, err = store.GetMessageIDsForRoomSince(ctx, room, 1000)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDeleteMessageAuthorization(t *testing.T) {
	store, _, room := newStores(t)
	ctx := context.Background()

	msg := newMessage(room, 1000)
	require.NoError(t, store.Persist(ctx, room, msg))

	err := store.DeleteMessage(ctx, msg.ID, "stranger-key")
	require.True(t, vfs.IsKind(err, vfs.KindNotAuthorized), "stranger delete = %v", err)

	require.NoError(t, store.DeleteMessage(ctx, msg.ID, msg.PublicKey))
	got, err := store.GetMessagesByIDs(ctx, []string{msg.ID}, room)
	require.NoError(t, err)
	assert.Empty(t, got, "message survived deletion")

	// Gone now; NotFound, and nothing else, reports the absence.
	err = store.DeleteMessage(ctx, msg.ID, msg.PublicKey)
	assert.True(t, vfs.IsKind(err, vfs.KindNotFound), "delete missing = %v", err)
}

func TestDeleteMessageAdminOverride(t *testing.T) {
	store, _, room := newStores(t)
	ctx := context.Background()

	msg := newMessage(room, 1000)
	msg.Attachments = []chat.Attachment{{Name: "a.txt", Type: "text/plain", Size: 1, Data: []byte("x")}}
	require.NoError(t, store.Persist(ctx, room, msg))

	require.NoError(t, store.DeleteMessage(ctx, msg.ID, adminKey))
}

func TestBlocklist(t *testing.T) {
	_, blocklist, _ := newStores(t)
	ctx := context.Background()
	key := "key-" + uuid.NewString()

	blocked, err := blocklist.IsBlocked(ctx, key)
	require.NoError(t, err)
	assert.False(t, blocked, "fresh key reported blocked")

	for i := 0; i < 2; i++ {
		require.NoError(t, blocklist.Block(ctx, key), "pass %d", i)
	}
	blocked, _ = blocklist.IsBlocked(ctx, key)
	assert.True(t, blocked, "blocked key reported unblocked")

	require.NoError(t, blocklist.Unblock(ctx, key))
	blocked, _ = blocklist.IsBlocked(ctx, key)
	assert.False(t, blocked, "unblocked key still blocked")
}

func TestPurgeMessages(t *testing.T) {
	store, blocklist, room := newStores(t)
	ctx := context.Background()
	spamKey := "spammer-" + uuid.NewString()

	var spamIDs []string
	for i := 0; i < 3; i++ {
		m := newMessage(room, int64(100+i))
		m.PublicKey = spamKey
		m.Attachments = []chat.Attachment{{Name: "x", Type: "t", Size: 1, Data: []byte("x")}}
		require.NoError(t, store.Persist(ctx, room, m))
		spamIDs = append(spamIDs, m.ID)
	}
	keep := newMessage(room, 500)
	require.NoError(t, store.Persist(ctx, room, keep))

	purged, err := blocklist.PurgeMessages(ctx, spamKey)
	require.NoError(t, err)
	assert.Equal(t, int64(3), purged)

	got, err := store.GetMessagesByIDs(ctx, append(spamIDs, keep.ID), room)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, keep.ID, got[0].ID)
}

func TestUserStore(t *testing.T) {
	pool := testutil.NewPool(t)
	users := chat.NewUserStore(pool)
	ctx := context.Background()
	key := "user-" + uuid.NewString()

	got, err := users.Get(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, got, "Get missing")

	require.NoError(t, users.Upsert(ctx, &chat.UserInfo{PubKey: key, Name: "Alice", Avatar: []byte{1, 2}}))
	require.NoError(t, users.Upsert(ctx, &chat.UserInfo{PubKey: key, Name: "Alice Cooper"}))

	got, err = users.Get(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Alice Cooper", got.Name)

	require.NoError(t, users.Delete(ctx, key))
	got, _ = users.Get(ctx, key)
	assert.Nil(t, got, "profile survived deletion")
}
