package constraint

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gpn/internal/nodefile"
	"gpn/internal/repository"
	"gpn/internal/schemamgr"
)

func newTestTx(t *testing.T) (*nodefile.Node, *sql.Tx) {
	t.Helper()
	node, err := nodefile.Create(context.Background(), "")
	require.NoError(t, err)
	t.Cleanup(func() { node.Close() })

	tx, err := node.Begin(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { tx.Rollback() })
	return node, tx
}

func seedHierarchyAndColumns(t *testing.T, node *nodefile.Node, tx *sql.Tx, names ...string) []int64 {
	t.Helper()
	ctx := context.Background()
	hierarchyRepo := repository.NewHierarchyRepository(tx)
	ids := make([]int64, len(names))
	for i, name := range names {
		id, err := hierarchyRepo.Add(ctx, name, i)
		require.NoError(t, err)
		ids[i] = id
	}
	require.NoError(t, schemamgr.New(node).AddColumns(ctx, tx, names))
	return ids
}

func TestCheckUniqueLabelSetsPassesOnDistinctCells(t *testing.T) {
	ctx := context.Background()
	node, tx := newTestTx(t)
	hierarchyIDs := seedHierarchyAndColumns(t, node, tx, "state")
	require.NoError(t, New().DropExpensive(ctx, tx))

	cellRepo := repository.NewCellRepository(tx)
	_, err := cellRepo.InsertOne(ctx, map[int64]string{hierarchyIDs[0]: "OH"}, false)
	require.NoError(t, err)
	_, err = cellRepo.InsertOne(ctx, map[int64]string{hierarchyIDs[0]: "PA"}, false)
	require.NoError(t, err)

	assert.NoError(t, New().CheckUniqueLabelSets(ctx, tx))
}

func TestCheckUniqueLabelSetsFailsOnDuplicateLabelSet(t *testing.T) {
	ctx := context.Background()
	node, tx := newTestTx(t)
	hierarchyIDs := seedHierarchyAndColumns(t, node, tx, "state")

	// Bypass the composite uniqueness index the schema manager keeps
	// on node_index so the duplicate actually lands in cell_label.
	_, err := tx.ExecContext(ctx, "DROP INDEX IF EXISTS unique_node_index_labels")
	require.NoError(t, err)

	cellRepo := repository.NewCellRepository(tx)
	_, err = cellRepo.InsertOne(ctx, map[int64]string{hierarchyIDs[0]: "OH"}, false)
	require.NoError(t, err)
	_, err = cellRepo.InsertOne(ctx, map[int64]string{hierarchyIDs[0]: "OH"}, false)
	require.NoError(t, err)

	err = New().CheckUniqueLabelSets(ctx, tx)
	assert.Error(t, err)
}

func TestCheckRootSingletonFailsOnTwoRootValues(t *testing.T) {
	ctx := context.Background()
	node, tx := newTestTx(t)
	hierarchyIDs := seedHierarchyAndColumns(t, node, tx, "state")
	require.NoError(t, New().DropExpensive(ctx, tx))

	cellRepo := repository.NewCellRepository(tx)
	_, err := cellRepo.InsertOne(ctx, map[int64]string{hierarchyIDs[0]: "OH"}, false)
	require.NoError(t, err)
	_, err = cellRepo.InsertOne(ctx, map[int64]string{hierarchyIDs[0]: "PA"}, false)
	require.NoError(t, err)

	err = New().CheckRootSingleton(ctx, tx)
	assert.Error(t, err)
}

func TestCheckRootSingletonPassesOnOneRootValue(t *testing.T) {
	ctx := context.Background()
	node, tx := newTestTx(t)
	hierarchyIDs := seedHierarchyAndColumns(t, node, tx, "state", "county")
	require.NoError(t, New().DropExpensive(ctx, tx))

	cellRepo := repository.NewCellRepository(tx)
	_, err := cellRepo.InsertOne(ctx, map[int64]string{hierarchyIDs[0]: "OH", hierarchyIDs[1]: "Franklin"}, false)
	require.NoError(t, err)
	_, err = cellRepo.InsertOne(ctx, map[int64]string{hierarchyIDs[0]: "OH", hierarchyIDs[1]: "Cuyahoga"}, false)
	require.NoError(t, err)

	assert.NoError(t, New().CheckRootSingleton(ctx, tx))
}

func TestCheckUnmappedDownwardClosureFailsWhenMappedFollowsUnmapped(t *testing.T) {
	ctx := context.Background()
	node, tx := newTestTx(t)
	hierarchyIDs := seedHierarchyAndColumns(t, node, tx, "state", "county")
	require.NoError(t, New().DropExpensive(ctx, tx))

	cellRepo := repository.NewCellRepository(tx)
	_, err := cellRepo.InsertOne(ctx, map[int64]string{
		hierarchyIDs[0]: "UNMAPPED",
		hierarchyIDs[1]: "Franklin",
	}, false)
	require.NoError(t, err)

	err = New().CheckUnmappedDownwardClosure(ctx, tx)
	assert.Error(t, err)
}

func TestCheckUnmappedDownwardClosurePassesOnContiguousTail(t *testing.T) {
	ctx := context.Background()
	node, tx := newTestTx(t)
	hierarchyIDs := seedHierarchyAndColumns(t, node, tx, "state", "county")
	require.NoError(t, New().DropExpensive(ctx, tx))

	cellRepo := repository.NewCellRepository(tx)
	_, err := cellRepo.InsertOne(ctx, map[int64]string{
		hierarchyIDs[0]: "OH",
		hierarchyIDs[1]: "UNMAPPED",
	}, false)
	require.NoError(t, err)

	assert.NoError(t, New().CheckUnmappedDownwardClosure(ctx, tx))
}

func TestDropAndRecreateExpensiveRoundTrip(t *testing.T) {
	ctx := context.Background()
	node, tx := newTestTx(t)
	seedHierarchyAndColumns(t, node, tx, "state")

	e := New()
	require.NoError(t, e.DropExpensive(ctx, tx))
	require.NoError(t, e.RecreateExpensive(ctx, tx, []string{"state"}))

	var count int
	require.NoError(t, tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='index' AND name='unique_node_index_labels'",
	).Scan(&count))
	assert.Equal(t, 1, count)
}
