package repository

import (
	"context"
	"database/sql"
	"strings"

	"gpn/internal/model"
	"gpn/internal/nodeerr"
)

// CellRepository manages node_index rows and their cell_label links.
// It is the richest of the repositories, since a cell's identity is
// its full set of hierarchy->label assignments rather than a single
// scalar column.
type CellRepository struct {
	tx     *sql.Tx
	labels *LabelRepository
}

// NewCellRepository returns a repository bound to tx.
func NewCellRepository(tx *sql.Tx) *CellRepository {
	return &CellRepository{tx: tx, labels: NewLabelRepository(tx)}
}

// Add inserts a bare cell row (no labels) and returns its id. Most
// callers want InsertOne instead; Add exists to satisfy the uniform
// add/get/update/delete shape used throughout the repository layer.
// Adding a cell changes the denominator behind every weighting's
// completeness, so is_complete is recomputed for all weightings in
// the same transaction.
func (r *CellRepository) Add(ctx context.Context, partial bool) (int64, error) {
	res, err := r.tx.ExecContext(ctx, "INSERT INTO node_index (partial) VALUES (?)", boolToInt(partial))
	if err != nil {
		return 0, nodeerr.Wrap(nodeerr.StorageIntegrity, err, "insert cell")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, nodeerr.Wrap(nodeerr.Transient, err, "read inserted cell id")
	}
	if err := NewWeightingRepository(r.tx).RefreshAllIsComplete(ctx); err != nil {
		return 0, err
	}
	return id, nil
}

// InsertOne inserts a cell row and links it to a label at every given
// hierarchy, auto-assigning label ids where the value has not been
// seen before. labels maps hierarchy id to label value. Returns the
// new cell id.
func (r *CellRepository) InsertOne(ctx context.Context, labels map[int64]string, partial bool) (int64, error) {
	cellID, err := r.Add(ctx, partial)
	if err != nil {
		return 0, err
	}
	for hierarchyID, value := range labels {
		labelID, err := r.labels.GetOrAdd(ctx, hierarchyID, value)
		if err != nil {
			return 0, err
		}
		if _, err := r.tx.ExecContext(ctx,
			"INSERT INTO cell_label (index_id, hierarchy_id, label_id) VALUES (?, ?, ?)",
			cellID, hierarchyID, labelID,
		); err != nil {
			return 0, nodeerr.Wrap(nodeerr.StorageIntegrity, err, "link cell to label")
		}
	}
	return cellID, nil
}

// Get returns the cell row (without its labels) for id, or nil.
func (r *CellRepository) Get(ctx context.Context, id int64) (*model.Cell, error) {
	var c model.Cell
	var partial int
	err := r.tx.QueryRowContext(ctx,
		"SELECT index_id, partial FROM node_index WHERE index_id = ?", id,
	).Scan(&c.ID, &partial)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, nodeerr.Wrap(nodeerr.Transient, err, "get cell")
	}
	c.Partial = partial == 1
	return &c, nil
}

// Update sets the partial flag of an existing cell. Reserved cell 0 is
// immutable (C9, enforced by a native trigger as well).
func (r *CellRepository) Update(ctx context.Context, id int64, partial bool) error {
	if id == model.UndefinedCellID {
		return nodeerr.New(nodeerr.SchemaState, "cannot update the reserved undefined cell")
	}
	_, err := r.tx.ExecContext(ctx, "UPDATE node_index SET partial = ? WHERE index_id = ?", boolToInt(partial), id)
	if err != nil {
		return nodeerr.Wrap(nodeerr.StorageIntegrity, err, "update cell")
	}
	return nil
}

// Delete removes a cell; cascades to its cell_label links. Weight and
// relation rows that reference the cell are not removed: their
// deferred foreign keys to node_index have no ON DELETE action, so
// such rows fail the foreign-key check at commit. Reserved cell 0 is
// undeletable (C9). Removing a cell
// can complete a weighting that was missing only that cell's weight,
// so is_complete is recomputed for every weighting afterward.
func (r *CellRepository) Delete(ctx context.Context, id int64) error {
	if id == model.UndefinedCellID {
		return nodeerr.New(nodeerr.SchemaState, "cannot delete the reserved undefined cell")
	}
	_, err := r.tx.ExecContext(ctx, "DELETE FROM node_index WHERE index_id = ?", id)
	if err != nil {
		return nodeerr.Wrap(nodeerr.StorageIntegrity, err, "delete cell")
	}
	return NewWeightingRepository(r.tx).RefreshAllIsComplete(ctx)
}

// SelectIDs intersects the cell sets matching each hierarchy=value
// predicate in criteria (hierarchy id -> label value). An empty
// criteria set is a caller error. The intersection is computed as a
// single relational query (GROUP BY ... HAVING COUNT(*) = len(criteria)),
// not per-criterion nested scans.
func (r *CellRepository) SelectIDs(ctx context.Context, criteria map[int64]string) ([]int64, error) {
	if len(criteria) == 0 {
		return nil, nodeerr.New(nodeerr.Validation, "select_cell_ids requires at least one criterion")
	}

	var conds []string
	var args []any
	for hierarchyID, value := range criteria {
		conds = append(conds, "(hierarchy_id = ? AND label_id IN (SELECT label_id FROM label WHERE hierarchy_id = ? AND value = ?))")
		args = append(args, hierarchyID, hierarchyID, value)
	}
	query := `
		SELECT index_id FROM cell_label
		WHERE ` + strings.Join(conds, " OR ") + `
		GROUP BY index_id
		HAVING COUNT(*) = ?
	`
	args = append(args, len(criteria))

	rows, err := r.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, nodeerr.Wrap(nodeerr.Transient, err, "select_cell_ids")
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, nodeerr.Wrap(nodeerr.Transient, err, "scan select_cell_ids row")
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Select returns the hierarchy name->label mapping for a cell. The
// result is a Go map and carries no order; the rank order of the
// levels is available from HierarchyRepository.List.
func (r *CellRepository) Select(ctx context.Context, id int64) (map[string]string, error) {
	rows, err := r.tx.QueryContext(ctx, `
		SELECT h.name, l.value
		FROM cell_label cl
		JOIN hierarchy h ON h.hierarchy_id = cl.hierarchy_id
		JOIN label l ON l.label_id = cl.label_id
		WHERE cl.index_id = ?
		ORDER BY h.rank
	`, id)
	if err != nil {
		return nil, nodeerr.Wrap(nodeerr.Transient, err, "select_cell")
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return nil, nodeerr.Wrap(nodeerr.Transient, err, "scan select_cell row")
		}
		out[name] = value
	}
	return out, rows.Err()
}

// CountExcludingReserved returns the number of cells excluding the
// reserved undefined cell (id 0). The all-UNMAPPED sentinel cell that
// ingestion adds is counted like any other cell.
func (r *CellRepository) CountExcludingReserved(ctx context.Context) (int, error) {
	var n int
	err := r.tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM node_index WHERE index_id != 0").Scan(&n)
	if err != nil {
		return 0, nodeerr.Wrap(nodeerr.Transient, err, "count cells")
	}
	return n, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
