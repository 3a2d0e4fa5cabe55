// Package constraint is the Constraint Engine: the declarative
// invariants C1-C9. The cheap, row-local ones (C5-C9)
// are native SQLite triggers and constraints installed by
// internal/nodefile. This package owns the set-level checks that
// require aggregation across the whole node_index/cell_label tables
// (C1 unique label sets, C2 root singleton, C3 unmapped downward
// closure) plus the toggles ingestion uses to drop and recreate C1's
// composite uniqueness index around bulk loads.
package constraint

import (
	"context"
	"database/sql"
	"strconv"

	"gpn/internal/nodeerr"
	"gpn/internal/nodefile"
)

// Engine runs the set-level checks against a single transaction.
type Engine struct{}

// New returns a constraint Engine.
func New() *Engine { return &Engine{} }

// DropExpensive removes the composite uniqueness index that enforces
// C1 at the database level, so that bulk ingestion is not paying for
// an index update per row; the set-level check below re-verifies C1
// in one pass after loading.
func (e *Engine) DropExpensive(ctx context.Context, tx *sql.Tx) error {
	if _, err := tx.ExecContext(ctx, "DROP INDEX IF EXISTS unique_node_index_labels"); err != nil {
		return nodeerr.Wrap(nodeerr.Transient, err, "drop expensive constraint index")
	}
	return nil
}

// RecreateExpensive rebuilds the composite uniqueness index dropped by
// DropExpensive. It is run after the set-level check has confirmed no
// violation was introduced by the batch.
func (e *Engine) RecreateExpensive(ctx context.Context, tx *sql.Tx, labelColumns []string) error {
	if len(labelColumns) == 0 {
		return nil
	}
	cols, err := quotedList(labelColumns)
	if err != nil {
		return err
	}
	stmt := "CREATE UNIQUE INDEX unique_node_index_labels ON node_index(" + cols + ")"
	if _, err := tx.ExecContext(ctx, stmt); err != nil {
		return nodeerr.Wrap(nodeerr.StorageIntegrity, err, "recreate expensive constraint index")
	}
	return nil
}

// CheckUniqueLabelSets enforces C1: no two cells share a label set.
// It groups cell_label rows by index_id, builds each cell's sorted
// (hierarchy_id, label_id) signature, and reports a Validation error
// naming the invariant if two cells collide.
func (e *Engine) CheckUniqueLabelSets(ctx context.Context, tx *sql.Tx) error {
	rows, err := tx.QueryContext(ctx, `
		SELECT index_id, hierarchy_id, label_id
		FROM cell_label
		ORDER BY index_id, hierarchy_id
	`)
	if err != nil {
		return nodeerr.Wrap(nodeerr.Transient, err, "scan cell_label for C1")
	}
	defer rows.Close()

	signatures := make(map[string]int64)
	var curID int64 = -1
	var sig string
	first := true
	flush := func() error {
		if first {
			return nil
		}
		if other, ok := signatures[sig]; ok && other != curID {
			return nodeerr.Invariant("duplicate label set", "two cells share the same label set")
		}
		signatures[sig] = curID
		return nil
	}

	for rows.Next() {
		var indexID, hierarchyID, labelID int64
		if err := rows.Scan(&indexID, &hierarchyID, &labelID); err != nil {
			return nodeerr.Wrap(nodeerr.Transient, err, "scan cell_label row")
		}
		if first || indexID != curID {
			if err := flush(); err != nil {
				return err
			}
			curID = indexID
			sig = ""
			first = false
		}
		sig += signaturePart(hierarchyID, labelID)
	}
	if err := rows.Err(); err != nil {
		return nodeerr.Wrap(nodeerr.Transient, err, "iterate cell_label rows")
	}
	return flush()
}

func signaturePart(hierarchyID, labelID int64) string {
	return strconv.FormatInt(hierarchyID, 10) + ":" + strconv.FormatInt(labelID, 10) + ";"
}

// CheckUnmappedDownwardClosure enforces C3: for any cell, the set of
// levels at which it is UNMAPPED is a contiguous tail of the rank
// order. It walks each cell's labels in ascending rank order and
// fails as soon as a mapped level follows an unmapped one.
func (e *Engine) CheckUnmappedDownwardClosure(ctx context.Context, tx *sql.Tx) error {
	rows, err := tx.QueryContext(ctx, `
		SELECT cl.index_id, h.rank, l.value
		FROM cell_label cl
		JOIN hierarchy h ON h.hierarchy_id = cl.hierarchy_id
		JOIN label l ON l.label_id = cl.label_id
		WHERE cl.index_id != 0
		ORDER BY cl.index_id, h.rank
	`)
	if err != nil {
		return nodeerr.Wrap(nodeerr.Transient, err, "scan cells for C3")
	}
	defer rows.Close()

	var curID int64 = -1
	sawUnmapped := false
	first := true
	for rows.Next() {
		var indexID int64
		var rank int
		var value string
		if err := rows.Scan(&indexID, &rank, &value); err != nil {
			return nodeerr.Wrap(nodeerr.Transient, err, "scan C3 row")
		}
		if first || indexID != curID {
			curID = indexID
			sawUnmapped = false
			first = false
		}
		isUnmapped := value == "UNMAPPED"
		if sawUnmapped && !isUnmapped {
			return nodeerr.Invariant("invalid unmapped level",
				"a mapped level follows an UNMAPPED level in the same cell")
		}
		if isUnmapped {
			sawUnmapped = true
		}
	}
	return rows.Err()
}

// CheckRootSingleton enforces C2: at most one non-UNMAPPED value at
// the root (rank 0) hierarchy level across all cells.
func (e *Engine) CheckRootSingleton(ctx context.Context, tx *sql.Tx) error {
	var count int
	err := tx.QueryRowContext(ctx, `
		SELECT COUNT(DISTINCT l.value)
		FROM cell_label cl
		JOIN hierarchy h ON h.hierarchy_id = cl.hierarchy_id
		JOIN label l ON l.label_id = cl.label_id
		WHERE h.rank = 0 AND l.value != 'UNMAPPED' AND cl.index_id != 0
	`).Scan(&count)
	if err != nil {
		return nodeerr.Wrap(nodeerr.Transient, err, "count root labels for C2")
	}
	if count > 1 {
		return nodeerr.Invariant("root hierarchy cannot have multiple values",
			"the root hierarchy level has more than one non-UNMAPPED value across cells")
	}
	return nil
}

// Verify runs every expensive set-level check. Ingestion calls this
// once after loading its rows, before recreating the dropped index
// and committing.
func (e *Engine) Verify(ctx context.Context, tx *sql.Tx) error {
	if err := e.CheckRootSingleton(ctx, tx); err != nil {
		return err
	}
	if err := e.CheckUniqueLabelSets(ctx, tx); err != nil {
		return err
	}
	return e.CheckUnmappedDownwardClosure(ctx, tx)
}

func quotedList(names []string) (string, error) {
	out := ""
	for i, n := range names {
		q, err := nodefile.QuoteIdentifier(n)
		if err != nil {
			return "", err
		}
		if i > 0 {
			out += ", "
		}
		out += q
	}
	return out, nil
}
