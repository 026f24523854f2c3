package txscope_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkbase/inkbase/internal/testutil"
	"github.com/inkbase/inkbase/pkg/store/txscope"
)

func TestMain(m *testing.M) {
	os.Exit(testutil.RunWithPostgres(m))
}

// insertDir writes a minimal directory row through whatever querier the
// context selects.
func insertDir(ctx context.Context, pool *pgxpool.Pool, root, name string) error {
	_, err := txscope.QuerierFor(ctx, pool).Exec(ctx,
		`INSERT INTO nodes (owner_id, root_key, parent_path, filename, ordinal,
		                    is_directory, created_time, modified_time)
		 VALUES (1, $1, '', $2, 0, TRUE, 1, 1)`,
		root, name)
	return err
}

func countRows(t *testing.T, pool *pgxpool.Pool, root string) int {
	t.Helper()
	var n int
	err := pool.QueryRow(context.Background(),
		`SELECT count(*) FROM nodes WHERE root_key = $1`, root).Scan(&n)
	require.NoError(t, err)
	return n
}

func TestRunCommits(t *testing.T) {
	pool := testutil.NewPool(t)
	root := "tx-" + uuid.NewString()

	err := txscope.Run(context.Background(), pool, func(ctx context.Context) error {
		assert.True(t, txscope.InScope(ctx), "InScope inside Run")
		return insertDir(ctx, pool, root, "a")
	})
	require.NoError(t, err)
	assert.Equal(t, 1, countRows(t, pool, root))
}

func TestRunRollsBackOnError(t *testing.T) {
	pool := testutil.NewPool(t)
	root := "tx-" + uuid.NewString()
	boom := errors.New("boom")

	err := txscope.Run(context.Background(), pool, func(ctx context.Context) error {
		if err := insertDir(ctx, pool, root, "a"); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 0, countRows(t, pool, root), "rows after rollback")
}

func TestNestedRunJoinsOuterTransaction(t *testing.T) {
	pool := testutil.NewPool(t)
	root := "tx-" + uuid.NewString()
	boom := errors.New("boom")

	err := txscope.Run(context.Background(), pool, func(ctx context.Context) error {
		outer := txscope.From(ctx)

		if err := insertDir(ctx, pool, root, "outer"); err != nil {
			return err
		}

		// Inner success does not commit yet.
		err := txscope.Run(ctx, pool, func(ctx context.Context) error {
			assert.Equal(t, outer, txscope.From(ctx), "nested Run opened a second transaction")
			return insertDir(ctx, pool, root, "inner")
		})
		if err != nil {
			return err
		}

		return boom
	})
	require.ErrorIs(t, err, boom)

	// The outer failure discards the inner writes too: no savepoints.
	assert.Equal(t, 0, countRows(t, pool, root))
}

func TestNestedErrorAbortsWholeScope(t *testing.T) {
	pool := testutil.NewPool(t)
	root := "tx-" + uuid.NewString()
	boom := errors.New("boom")

	err := txscope.Run(context.Background(), pool, func(ctx context.Context) error {
		if err := insertDir(ctx, pool, root, "outer"); err != nil {
			return err
		}
		return txscope.Run(ctx, pool, func(ctx context.Context) error {
			return boom
		})
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 0, countRows(t, pool, root))
}

func TestWritesInvisibleUntilCommit(t *testing.T) {
	pool := testutil.NewPool(t)
	root := "tx-" + uuid.NewString()

	err := txscope.Run(context.Background(), pool, func(ctx context.Context) error {
		if err := insertDir(ctx, pool, root, "a"); err != nil {
			return err
		}
		// A plain pool query runs outside the transaction.
		assert.Equal(t, 0, countRows(t, pool, root), "uncommitted rows visible outside the scope")
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, countRows(t, pool, root), "rows after commit")
}

func TestQuerierForFallsBackToPool(t *testing.T) {
	pool := testutil.NewPool(t)
	ctx := context.Background()

	assert.False(t, txscope.InScope(ctx), "InScope on a bare context")
	assert.Nil(t, txscope.From(ctx), "From on a bare context")

	var one int
	require.NoError(t, txscope.QuerierFor(ctx, pool).QueryRow(ctx, `SELECT 1`).Scan(&one))
	assert.Equal(t, 1, one)
}
