package ingest

import (
	"context"

	"gpn/internal/mapping"
	"gpn/internal/model"
	"gpn/internal/nodeerr"
	"gpn/internal/nodefile"
	"gpn/internal/repository"
)

// MappingRow is one row of an edge's input mapping stream
// (the correspondence file format): rightValues holds this node's
// side of the correspondence, in rightHeader's column order;
// otherIndexID names the other node's cell the row originates from;
// value is the row's raw weight.
type MappingRow struct {
	RightValues  []string
	OtherIndexID int64
	Value        float64
}

// InsertMapping creates edge and loads rows as its relations,
// resolving each row's mapping level against the node's structure
// lattice (internal/mapping) and computing proportions as
// value / sum-of-values-per-source-cell, grouped by OtherIndexID. A
// row whose right-side values match no structure
// class exactly, or whose matched columns identify more than one
// local cell, relates to the reserved undefined cell (id 0) rather
// than failing the whole load.
func InsertMapping(ctx context.Context, node *nodefile.Node, edge model.Edge, rightHeader []string, rows []MappingRow) (edgeID int64, err error) {
	tx, err := node.Begin(ctx)
	if err != nil {
		return 0, err
	}
	commit := false
	defer func() {
		if !commit {
			tx.Rollback()
		}
	}()

	edgeRepo := repository.NewEdgeRepository(tx)
	edgeID, err = edgeRepo.Add(ctx, edge)
	if err != nil {
		return 0, err
	}

	hierarchyRepo := repository.NewHierarchyRepository(tx)
	hierarchies, err := hierarchyRepo.List(ctx)
	if err != nil {
		return 0, err
	}
	canonicalOrder := make([]string, len(hierarchies))
	hierarchyIDByName := make(map[string]int64, len(hierarchies))
	for i, h := range hierarchies {
		canonicalOrder[i] = h.Name
		hierarchyIDByName[h.Name] = h.ID
	}

	candidates, err := mapping.LoadCandidates(ctx, tx, canonicalOrder)
	if err != nil {
		return 0, err
	}

	cellRepo := repository.NewCellRepository(tx)
	relationRepo := repository.NewRelationRepository(tx)

	type pendingUpdate struct {
		relationID   int64
		otherIndexID int64
		value        float64
	}
	var pending []pendingUpdate

	for _, row := range rows {
		present, err := mapping.PresentFromRow(canonicalOrder, rightHeader, row.RightValues)
		if err != nil {
			return 0, err
		}
		resolution := mapping.ResolveRow(present, candidates)

		indexID := model.UndefinedCellID
		if resolution.Matched {
			criteria := make(map[int64]string, len(canonicalOrder))
			for i, name := range canonicalOrder {
				if present[i] {
					criteria[hierarchyIDByName[name]] = row.RightValues[headerIndex(rightHeader, name)]
				}
			}
			ids, err := cellRepo.SelectIDs(ctx, criteria)
			if err != nil {
				return 0, err
			}
			if len(ids) == 1 {
				indexID = ids[0]
			}
		}

		relID, err := relationRepo.Add(ctx, edgeID, row.OtherIndexID, &indexID, row.Value, nil, resolution.RowBitFlags)
		if err != nil {
			return 0, err
		}
		pending = append(pending, pendingUpdate{relationID: relID, otherIndexID: row.OtherIndexID, value: row.Value})
	}

	proportionInputs := make([]mapping.PendingRelation, len(pending))
	for i, p := range pending {
		proportionInputs[i] = mapping.PendingRelation{OtherIndexID: p.otherIndexID, Value: p.value}
	}
	proportions := mapping.ComputeProportions(proportionInputs)

	for i, p := range pending {
		proportion := proportions[i]
		rel, err := relationRepo.Get(ctx, p.relationID)
		if err != nil {
			return 0, err
		}
		if rel == nil {
			return 0, nodeerr.Newf(nodeerr.StorageIntegrity, "relation %d vanished mid-load", p.relationID)
		}
		rel.Proportion = &proportion
		if err := relationRepo.Update(ctx, *rel); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, nodeerr.Wrap(nodeerr.Transient, err, "commit mapping load")
	}
	commit = true
	return edgeID, nil
}

func headerIndex(header []string, name string) int {
	for i, h := range header {
		if h == name {
			return i
		}
	}
	return -1
}
