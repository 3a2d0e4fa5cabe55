// Package ingest is the Ingestion & Fingerprinting component: bulk
// cell insertion from a tabular source, sentinel completion, post-load
// invariant verification, and content-hash fingerprinting.
package ingest

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"gpn/internal/constraint"
	"gpn/internal/model"
	"gpn/internal/nodeerr"
	"gpn/internal/nodefile"
	"gpn/internal/repository"
	"gpn/internal/schemamgr"
)

// InsertCells runs the full bulk-ingestion procedure over rows, whose
// first element is the header (hierarchy column names) and
// whose remaining elements are data rows in the same column order.
// The whole procedure is one transaction: any failure rolls it back in
// full, including the expensive constraints dropped before loading.
func InsertCells(ctx context.Context, node *nodefile.Node, rows [][]string) error {
	if len(rows) == 0 {
		return nodeerr.New(nodeerr.Validation, "insert_cells requires a header row")
	}
	header := rows[0]
	dataRows := rows[1:]

	tx, err := node.Begin(ctx)
	if err != nil {
		return err
	}
	commit := false
	defer func() {
		if !commit {
			tx.Rollback()
		}
	}()

	engine := constraint.New()

	hierarchyRepo := repository.NewHierarchyRepository(tx)
	hierarchies, err := hierarchyRepo.List(ctx)
	if err != nil {
		return err
	}

	if len(hierarchies) == 0 {
		for rank, name := range header {
			if _, err := hierarchyRepo.Add(ctx, name, rank); err != nil {
				return err
			}
		}
		mgr := schemamgr.New(node)
		if err := mgr.AddColumns(ctx, tx, header); err != nil {
			return err
		}
		hierarchies, err = hierarchyRepo.List(ctx)
		if err != nil {
			return err
		}
	} else if err := reconcileHeader(header, hierarchies); err != nil {
		return err
	}

	// Dropped only here: AddColumns above recreates the composite index
	// when the first ingest creates the label columns.
	if err := engine.DropExpensive(ctx, tx); err != nil {
		return err
	}

	nameToID := make(map[string]int64, len(hierarchies))
	for _, h := range hierarchies {
		nameToID[h.Name] = h.ID
	}

	cellRepo := repository.NewCellRepository(tx)
	for _, row := range dataRows {
		if len(row) != len(header) {
			return nodeerr.Newf(nodeerr.Validation, "row has %d fields, expected %d", len(row), len(header))
		}
		labels := make(map[int64]string, len(header))
		for i, name := range header {
			labels[nameToID[name]] = row[i]
		}
		cellID, err := cellRepo.InsertOne(ctx, labels, false)
		if err != nil {
			return err
		}
		if err := mirrorIntoLabelColumns(ctx, tx, cellID, header, row); err != nil {
			return err
		}
	}

	if err := ensureUnmappedSentinel(ctx, tx, cellRepo, hierarchies, header); err != nil {
		return err
	}

	if err := engine.Verify(ctx, tx); err != nil {
		return err
	}

	labelColumns := make([]string, len(hierarchies))
	for i, h := range hierarchies {
		labelColumns[i] = h.Name
	}
	if err := engine.RecreateExpensive(ctx, tx, labelColumns); err != nil {
		return err
	}

	hash, present, err := computeContentHash(ctx, tx)
	if err != nil {
		return err
	}
	propRepo := repository.NewPropertyRepository(tx)
	if present {
		if err := propRepo.Set(ctx, model.PropertyContentHash, fmt.Sprintf("%q", hash)); err != nil {
			return err
		}
	} else {
		if err := propRepo.Set(ctx, model.PropertyContentHash, "null"); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return nodeerr.Wrap(nodeerr.Transient, err, "commit ingestion")
	}
	commit = true
	return nil
}

// SeedHierarchy creates the node's hierarchy levels up front, in the
// given order (rank 0..n-1), for a node that has no cells yet. It is
// used by the "new" CLI command when a node-definition file names its
// initial levels before any ingestion has happened; a later
// InsertCells call still must name exactly this same column set
// (the header-reconciliation rule below applies unchanged).
func SeedHierarchy(ctx context.Context, node *nodefile.Node, levels []string) error {
	if len(levels) == 0 {
		return nil
	}
	tx, err := node.Begin(ctx)
	if err != nil {
		return err
	}
	commit := false
	defer func() {
		if !commit {
			tx.Rollback()
		}
	}()

	hierarchyRepo := repository.NewHierarchyRepository(tx)
	existing, err := hierarchyRepo.List(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nodeerr.New(nodeerr.SchemaState, "node already has a hierarchy; cannot seed it again")
	}

	for rank, name := range levels {
		if _, err := hierarchyRepo.Add(ctx, name, rank); err != nil {
			return err
		}
	}
	if err := schemamgr.New(node).AddColumns(ctx, tx, levels); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return nodeerr.Wrap(nodeerr.Transient, err, "commit hierarchy seed")
	}
	commit = true
	return nil
}

// reconcileHeader enforces the header-reconciliation rule: once a node
// has a hierarchy, every subsequent ingest's header must name exactly
// the same set of levels, in any order.
func reconcileHeader(header []string, hierarchies []model.Hierarchy) error {
	existing := make(map[string]bool, len(hierarchies))
	for _, h := range hierarchies {
		existing[h.Name] = true
	}
	seen := make(map[string]bool, len(header))
	for _, name := range header {
		seen[name] = true
	}
	if len(seen) != len(existing) {
		return mismatchError(header, hierarchies)
	}
	for name := range seen {
		if !existing[name] {
			return mismatchError(header, hierarchies)
		}
	}
	return nil
}

func mismatchError(header []string, hierarchies []model.Hierarchy) error {
	existingNames := make([]string, len(hierarchies))
	for i, h := range hierarchies {
		existingNames[i] = h.Name
	}
	return nodeerr.Newf(nodeerr.Validation,
		"header columns must match hierarchy names: found %s, required %s",
		strings.Join(header, ", "), strings.Join(existingNames, ", "))
}

// mirrorIntoLabelColumns writes the ingested row's values into the
// physical label columns the Schema Manager maintains on node_index,
// keeping the dynamic column projection in lockstep with the
// normalised cell_label/label tables that the Repository and
// Constraint Engine layers query against.
func mirrorIntoLabelColumns(ctx context.Context, tx *sql.Tx, cellID int64, header, row []string) error {
	sets := make([]string, len(header))
	args := make([]any, 0, len(header)+1)
	for i, name := range header {
		quoted, err := nodefile.QuoteIdentifier(name)
		if err != nil {
			return err
		}
		sets[i] = quoted + " = ?"
		args = append(args, row[i])
	}
	args = append(args, cellID)
	stmt := "UPDATE node_index SET " + strings.Join(sets, ", ") + " WHERE index_id = ?"
	if _, err := tx.ExecContext(ctx, stmt, args...); err != nil {
		return nodeerr.Wrap(nodeerr.StorageIntegrity, err, "mirror row into label columns")
	}
	return nil
}

// ensureUnmappedSentinel inserts the all-UNMAPPED cell if the node
// does not already contain it.
func ensureUnmappedSentinel(ctx context.Context, tx *sql.Tx, cellRepo *repository.CellRepository, hierarchies []model.Hierarchy, header []string) error {
	criteria := make(map[int64]string, len(hierarchies))
	for _, h := range hierarchies {
		criteria[h.ID] = model.UnmappedValue
	}
	ids, err := cellRepo.SelectIDs(ctx, criteria)
	if err != nil {
		return err
	}
	if len(ids) > 0 {
		return nil
	}

	labels := make(map[int64]string, len(hierarchies))
	for _, h := range hierarchies {
		labels[h.ID] = model.UnmappedValue
	}
	cellID, err := cellRepo.InsertOne(ctx, labels, false)
	if err != nil {
		return err
	}
	row := make([]string, len(header))
	for i := range row {
		row[i] = model.UnmappedValue
	}
	return mirrorIntoLabelColumns(ctx, tx, cellID, header, row)
}

// computeContentHash implements the content-hash algorithm: collect
// all (cell_id, hierarchy_id, label_value) triples, sort
// lexicographically, concatenate UTF-8 bytes, and SHA-256 the result.
// The empty set reports absent rather than the hash of zero bytes.
func computeContentHash(ctx context.Context, tx *sql.Tx) (hexDigest string, present bool, err error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT index_id, hierarchy_id, value
		FROM cell_label
		JOIN label ON label.label_id = cell_label.label_id
		ORDER BY index_id, hierarchy_id, value
	`)
	if err != nil {
		return "", false, nodeerr.Wrap(nodeerr.Transient, err, "scan triples for content hash")
	}
	defer rows.Close()

	var triples []labelTriple
	for rows.Next() {
		var t labelTriple
		if err := rows.Scan(&t.cellID, &t.hierarchyID, &t.value); err != nil {
			return "", false, nodeerr.Wrap(nodeerr.Transient, err, "scan content hash triple")
		}
		triples = append(triples, t)
	}
	if err := rows.Err(); err != nil {
		return "", false, nodeerr.Wrap(nodeerr.Transient, err, "iterate content hash triples")
	}
	if len(triples) == 0 {
		return "", false, nil
	}

	sort.Slice(triples, func(i, j int) bool {
		if triples[i].cellID != triples[j].cellID {
			return triples[i].cellID < triples[j].cellID
		}
		if triples[i].hierarchyID != triples[j].hierarchyID {
			return triples[i].hierarchyID < triples[j].hierarchyID
		}
		return triples[i].value < triples[j].value
	})

	return sha256Triples(triples), true, nil
}
