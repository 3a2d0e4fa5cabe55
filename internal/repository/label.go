package repository

import (
	"context"
	"database/sql"

	"gpn/internal/model"
	"gpn/internal/nodeerr"
)

// LabelRepository manages label rows. Label ids are auto-assigned by
// SQLite's INTEGER PRIMARY KEY rowid allocation when no id is supplied
// (C4); this engine always lets SQLite assign the id, which normally
// gives one more than the largest existing label_id, without a
// separate MAX(id)+1 step in the engine.
type LabelRepository struct{ tx *sql.Tx }

// NewLabelRepository returns a repository bound to tx.
func NewLabelRepository(tx *sql.Tx) *LabelRepository {
	return &LabelRepository{tx: tx}
}

// Add inserts a label value at a hierarchy level and returns its id.
func (r *LabelRepository) Add(ctx context.Context, hierarchyID int64, value string) (int64, error) {
	res, err := r.tx.ExecContext(ctx,
		"INSERT INTO label (hierarchy_id, value) VALUES (?, ?)", hierarchyID, value)
	if err != nil {
		return 0, classifyConstraintError(err, "label value must be non-empty and unique per hierarchy level")
	}
	return res.LastInsertId()
}

// GetOrAdd returns the id of the label (hierarchyID, value), inserting
// it if absent. This is the primitive insert_one_cell uses for each
// (hierarchy, value) pair in a row.
func (r *LabelRepository) GetOrAdd(ctx context.Context, hierarchyID int64, value string) (int64, error) {
	var id int64
	err := r.tx.QueryRowContext(ctx,
		"SELECT label_id FROM label WHERE hierarchy_id = ? AND value = ?", hierarchyID, value,
	).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, nodeerr.Wrap(nodeerr.Transient, err, "lookup label")
	}
	return r.Add(ctx, hierarchyID, value)
}

// Get returns the label row for id, or nil if absent.
func (r *LabelRepository) Get(ctx context.Context, id int64) (*model.Label, error) {
	var l model.Label
	err := r.tx.QueryRowContext(ctx,
		"SELECT label_id, hierarchy_id, value FROM label WHERE label_id = ?", id,
	).Scan(&l.ID, &l.HierarchyID, &l.Value)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, nodeerr.Wrap(nodeerr.Transient, err, "get label")
	}
	return &l, nil
}

// Update changes a label's value.
func (r *LabelRepository) Update(ctx context.Context, id int64, value string) error {
	_, err := r.tx.ExecContext(ctx, "UPDATE label SET value = ? WHERE label_id = ?", value, id)
	if err != nil {
		return classifyConstraintError(err, "label value must be non-empty and unique per hierarchy level")
	}
	return nil
}

// Delete removes a label row; cascades to cell_label links.
func (r *LabelRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.tx.ExecContext(ctx, "DELETE FROM label WHERE label_id = ?", id)
	if err != nil {
		return nodeerr.Wrap(nodeerr.StorageIntegrity, err, "delete label")
	}
	return nil
}
