package ingest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gpn/internal/model"
	"gpn/internal/nodefile"
	"gpn/internal/repository"
)

// seedFullGranularityStructure adds one structure row marking every
// current label column present, the granularity class InsertMapping's
// candidate matching needs to resolve a row naming every column.
func seedFullGranularityStructure(ctx context.Context, t *testing.T, node *nodefile.Node) {
	t.Helper()
	tx, err := node.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback()

	hierarchyRepo := repository.NewHierarchyRepository(tx)
	hierarchies, err := hierarchyRepo.List(ctx)
	require.NoError(t, err)

	structRepo := repository.NewStructureRepository(tx)
	structureID, err := structRepo.Add(ctx, float64(len(hierarchies)))
	require.NoError(t, err)

	for _, h := range hierarchies {
		quoted, err := nodefile.QuoteIdentifier(h.Name)
		require.NoError(t, err)
		_, err = tx.ExecContext(ctx, "UPDATE structure SET "+quoted+" = 1 WHERE _structure_id = ?", structureID)
		require.NoError(t, err)
	}
	require.NoError(t, tx.Commit())
}

func TestInsertMappingResolvesAndComputesProportions(t *testing.T) {
	ctx := context.Background()
	node := newTestNode(t)

	require.NoError(t, InsertCells(ctx, node, [][]string{
		{"state", "county"},
		{"OH", "Franklin"},
		{"OH", "Cuyahoga"},
	}))
	seedFullGranularityStructure(ctx, t, node)

	edge := model.Edge{Name: "population", OtherUniqueID: "other-node-1"}
	rightHeader := []string{"state", "county"}
	rows := []MappingRow{
		{RightValues: []string{"OH", "Franklin"}, OtherIndexID: 1, Value: 3},
		{RightValues: []string{"OH", "Cuyahoga"}, OtherIndexID: 1, Value: 1},
		{RightValues: []string{"OH", "Franklin"}, OtherIndexID: 2, Value: 10},
	}

	edgeID, err := InsertMapping(ctx, node, edge, rightHeader, rows)
	require.NoError(t, err)

	tx, err := node.DB().BeginTx(ctx, nil)
	require.NoError(t, err)
	defer tx.Rollback()

	relationRepo := repository.NewRelationRepository(tx)
	relations, err := relationRepo.ListByEdge(ctx, edgeID)
	require.NoError(t, err)
	require.Len(t, relations, 3)

	var franklinFromOther1, cuyahogaFromOther1 *model.Relation
	for i := range relations {
		rel := &relations[i]
		if rel.OtherIndexID == 1 {
			if rel.Value == 3 {
				franklinFromOther1 = rel
			} else {
				cuyahogaFromOther1 = rel
			}
		}
	}
	require.NotNil(t, franklinFromOther1)
	require.NotNil(t, cuyahogaFromOther1)
	require.NotNil(t, franklinFromOther1.Proportion)
	require.NotNil(t, cuyahogaFromOther1.Proportion)
	assert.InDelta(t, 0.75, *franklinFromOther1.Proportion, 1e-9)
	assert.InDelta(t, 0.25, *cuyahogaFromOther1.Proportion, 1e-9)

	for _, rel := range relations {
		require.NotNil(t, rel.IndexID)
		assert.NotEqual(t, model.UndefinedCellID, *rel.IndexID, "every row names a known local cell")
	}
}

func TestInsertMappingRelatesUnmatchedRowToReservedCell(t *testing.T) {
	ctx := context.Background()
	node := newTestNode(t)

	require.NoError(t, InsertCells(ctx, node, [][]string{
		{"state", "county"},
		{"OH", "Franklin"},
	}))
	seedFullGranularityStructure(ctx, t, node)

	edge := model.Edge{Name: "population", OtherUniqueID: "other-node-1"}
	rightHeader := []string{"state", "county"}
	rows := []MappingRow{
		{RightValues: []string{"NY", "Queens"}, OtherIndexID: 1, Value: 5},
	}

	edgeID, err := InsertMapping(ctx, node, edge, rightHeader, rows)
	require.NoError(t, err)

	tx, err := node.DB().BeginTx(ctx, nil)
	require.NoError(t, err)
	defer tx.Rollback()

	relations, err := repository.NewRelationRepository(tx).ListByEdge(ctx, edgeID)
	require.NoError(t, err)
	require.Len(t, relations, 1)
	require.NotNil(t, relations[0].IndexID)
	assert.Equal(t, model.UndefinedCellID, *relations[0].IndexID)
}
