package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeightingCompletenessTransitions(t *testing.T) {
	ctx := context.Background()
	node := newTestTx(t)
	tx, err := node.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback()

	hierarchyRepo := NewHierarchyRepository(tx)
	stateID, err := hierarchyRepo.Add(ctx, "state", 0)
	require.NoError(t, err)

	cellRepo := NewCellRepository(tx)
	cellA, err := cellRepo.InsertOne(ctx, map[int64]string{stateID: "OH"}, false)
	require.NoError(t, err)
	cellB, err := cellRepo.InsertOne(ctx, map[int64]string{stateID: "PA"}, false)
	require.NoError(t, err)

	weightingRepo := NewWeightingRepository(tx)
	weightingID, err := weightingRepo.Add(ctx, "population", "", nil)
	require.NoError(t, err)

	require.NoError(t, weightingRepo.RefreshIsComplete(ctx, weightingID))
	w, err := weightingRepo.Get(ctx, weightingID)
	require.NoError(t, err)
	assert.False(t, w.IsComplete)

	weightRepo := NewWeightRepository(tx)
	_, err = weightRepo.Add(ctx, weightingID, cellA, 100)
	require.NoError(t, err)
	require.NoError(t, weightingRepo.RefreshIsComplete(ctx, weightingID))
	w, err = weightingRepo.Get(ctx, weightingID)
	require.NoError(t, err)
	assert.False(t, w.IsComplete)

	_, err = weightRepo.Add(ctx, weightingID, cellB, 50)
	require.NoError(t, err)
	require.NoError(t, weightingRepo.RefreshIsComplete(ctx, weightingID))
	w, err = weightingRepo.Get(ctx, weightingID)
	require.NoError(t, err)
	assert.True(t, w.IsComplete)
}

func TestWeightRepositoryRejectsWeightingReservedCell(t *testing.T) {
	ctx := context.Background()
	node := newTestTx(t)
	tx, err := node.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback()

	weightingRepo := NewWeightingRepository(tx)
	weightingID, err := weightingRepo.Add(ctx, "population", "", nil)
	require.NoError(t, err)

	_, err = NewWeightRepository(tx).Add(ctx, weightingID, 0, 1)
	assert.Error(t, err)
}

func TestWeightingNameMustBeUnique(t *testing.T) {
	ctx := context.Background()
	node := newTestTx(t)
	tx, err := node.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback()

	weightingRepo := NewWeightingRepository(tx)
	_, err = weightingRepo.Add(ctx, "population", "", nil)
	require.NoError(t, err)

	_, err = weightingRepo.Add(ctx, "population", "duplicate", nil)
	assert.Error(t, err)
}
