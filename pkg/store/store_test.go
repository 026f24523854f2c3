package store_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkbase/inkbase/internal/testutil"
	"github.com/inkbase/inkbase/pkg/store"
	"github.com/inkbase/inkbase/pkg/store/txscope"
)

func TestMain(m *testing.M) {
	os.Exit(testutil.RunWithPostgres(m))
}

func TestNewAndPing(t *testing.T) {
	ctx := context.Background()

	st, err := store.New(ctx, testutil.Config(t))
	require.NoError(t, err)
	defer st.Close()

	assert.NoError(t, st.Ping(ctx))

	// The stored functions are installed.
	var installed bool
	err = st.Pool().QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM pg_proc WHERE proname = 'vfs_mkdir')`,
	).Scan(&installed)
	require.NoError(t, err)
	assert.True(t, installed, "vfs_mkdir is not installed")
}

func TestNewRejectsIncompleteConfig(t *testing.T) {
	cfg := testutil.Config(t)
	cfg.Password = ""

	_, err := store.New(context.Background(), cfg)
	assert.Error(t, err, "config without password accepted")
}

func TestRunInTx(t *testing.T) {
	ctx := context.Background()

	st, err := store.New(ctx, testutil.Config(t))
	require.NoError(t, err)
	defer st.Close()

	boom := errors.New("boom")
	err = st.RunInTx(ctx, func(ctx context.Context) error {
		assert.True(t, txscope.InScope(ctx), "RunInTx did not open a scope")
		return boom
	})
	require.ErrorIs(t, err, boom)

	// Querier picks the pool outside a scope.
	var one int
	require.NoError(t, st.Querier(ctx).QueryRow(ctx, `SELECT 1`).Scan(&one))
	assert.Equal(t, 1, one)
}

func TestMigrationsAreIdempotent(t *testing.T) {
	ctx := context.Background()
	cfg := testutil.Config(t)

	// The container is already migrated; a second run must be a no-op.
	require.NoError(t, store.RunMigrations(ctx, cfg))

	version, dirty, err := store.MigrationVersion(cfg)
	require.NoError(t, err)
	assert.False(t, dirty, "schema is dirty")
	assert.GreaterOrEqual(t, version, uint(2), "schema version")
}
