package database_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	"github.com/Tatenda/fullstori/internal/database"
	"github.com/Tatenda/fullstori/internal/testutil"
)

func insertGraph(ctx context.Context, db bun.IDB, id string) error {
	_, err := db.ExecContext(ctx, "INSERT INTO graphs (id, name) VALUES (?, ?)", id, "g")
	return err
}

func TestSafeTx_RollbackAfterCommitIsNoop(t *testing.T) {
	db := testutil.SetupTestDB(t).DB
	ctx := context.Background()

	tx, err := database.BeginSafeTx(ctx, db)
	require.NoError(t, err)
	require.NoError(t, insertGraph(ctx, tx, "g1"))
	require.NoError(t, tx.Commit())

	assert.NoError(t, tx.Rollback())
	assert.NoError(t, tx.Commit())
	assert.Equal(t, 1, testutil.Count(t, db, "graphs", ""))
}

func TestRunInTx_RollsBackOnError(t *testing.T) {
	db := testutil.SetupTestDB(t).DB
	ctx := context.Background()
	boom := errors.New("boom")

	err := database.RunInTx(ctx, db, func(ctx context.Context, tx bun.IDB) error {
		require.NoError(t, insertGraph(ctx, tx, "g1"))
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, testutil.Count(t, db, "graphs", ""))
}

func TestRunInTx_Commits(t *testing.T) {
	db := testutil.SetupTestDB(t).DB
	ctx := context.Background()

	err := database.RunInTx(ctx, db, func(ctx context.Context, tx bun.IDB) error {
		if err := database.AdvisoryXactLock(ctx, tx, "graph:g1"); err != nil {
			return err
		}
		return insertGraph(ctx, tx, "g1")
	})

	require.NoError(t, err)
	assert.Equal(t, 1, testutil.Count(t, db, "graphs", "id = ?", "g1"))
}
