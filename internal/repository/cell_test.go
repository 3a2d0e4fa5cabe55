package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gpn/internal/nodefile"
)

func newTestTx(t *testing.T) *nodefile.Node {
	t.Helper()
	node, err := nodefile.Create(context.Background(), "")
	require.NoError(t, err)
	t.Cleanup(func() { node.Close() })
	return node
}

func TestCellRepositoryInsertOneAndSelect(t *testing.T) {
	ctx := context.Background()
	node := newTestTx(t)
	tx, err := node.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback()

	hierarchyRepo := NewHierarchyRepository(tx)
	stateID, err := hierarchyRepo.Add(ctx, "state", 0)
	require.NoError(t, err)
	countyID, err := hierarchyRepo.Add(ctx, "county", 1)
	require.NoError(t, err)

	cellRepo := NewCellRepository(tx)
	cellID, err := cellRepo.InsertOne(ctx, map[int64]string{stateID: "OH", countyID: "Franklin"}, false)
	require.NoError(t, err)

	labels, err := cellRepo.Select(ctx, cellID)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"state": "OH", "county": "Franklin"}, labels)
}

func TestCellRepositorySelectIDsIntersectsCriteria(t *testing.T) {
	ctx := context.Background()
	node := newTestTx(t)
	tx, err := node.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback()

	hierarchyRepo := NewHierarchyRepository(tx)
	stateID, err := hierarchyRepo.Add(ctx, "state", 0)
	require.NoError(t, err)
	countyID, err := hierarchyRepo.Add(ctx, "county", 1)
	require.NoError(t, err)

	cellRepo := NewCellRepository(tx)
	columbus, err := cellRepo.InsertOne(ctx, map[int64]string{stateID: "OH", countyID: "Franklin"}, false)
	require.NoError(t, err)
	_, err = cellRepo.InsertOne(ctx, map[int64]string{stateID: "OH", countyID: "Cuyahoga"}, false)
	require.NoError(t, err)
	_, err = cellRepo.InsertOne(ctx, map[int64]string{stateID: "PA", countyID: "Franklin"}, false)
	require.NoError(t, err)

	ids, err := cellRepo.SelectIDs(ctx, map[int64]string{stateID: "OH", countyID: "Franklin"})
	require.NoError(t, err)
	assert.Equal(t, []int64{columbus}, ids)
}

func TestCellRepositorySelectIDsRejectsEmptyCriteria(t *testing.T) {
	ctx := context.Background()
	node := newTestTx(t)
	tx, err := node.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback()

	_, err = NewCellRepository(tx).SelectIDs(ctx, nil)
	assert.Error(t, err)
}

func TestCellRepositoryCountExcludingReserved(t *testing.T) {
	ctx := context.Background()
	node := newTestTx(t)
	tx, err := node.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback()

	hierarchyRepo := NewHierarchyRepository(tx)
	stateID, err := hierarchyRepo.Add(ctx, "state", 0)
	require.NoError(t, err)

	cellRepo := NewCellRepository(tx)
	_, err = cellRepo.InsertOne(ctx, map[int64]string{stateID: "OH"}, false)
	require.NoError(t, err)

	count, err := cellRepo.CountExcludingReserved(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestCellRepositoryDeleteRemovesCell(t *testing.T) {
	ctx := context.Background()
	node := newTestTx(t)
	tx, err := node.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback()

	hierarchyRepo := NewHierarchyRepository(tx)
	stateID, err := hierarchyRepo.Add(ctx, "state", 0)
	require.NoError(t, err)

	cellRepo := NewCellRepository(tx)
	cellID, err := cellRepo.InsertOne(ctx, map[int64]string{stateID: "OH"}, false)
	require.NoError(t, err)

	require.NoError(t, cellRepo.Delete(ctx, cellID))

	got, err := cellRepo.Get(ctx, cellID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCellRepositoryReservedCellCannotBeDeleted(t *testing.T) {
	ctx := context.Background()
	node := newTestTx(t)
	tx, err := node.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback()

	err = NewCellRepository(tx).Delete(ctx, 0)
	assert.Error(t, err)

	var count int
	require.NoError(t, tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM node_index WHERE index_id = 0").Scan(&count))
	assert.Equal(t, 1, count)
}
