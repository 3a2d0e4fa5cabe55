// Package repository implements the Repository Layer: one typed CRUD
// interface per entity, each operating over a single open *sql.Tx
// handle. None of these methods perform implicit commits; the caller
// owns the transaction.
package repository

import (
	"context"
	"database/sql"

	"gpn/internal/model"
	"gpn/internal/nodeerr"
)

// HierarchyRepository manages hierarchy rows.
type HierarchyRepository struct{ tx *sql.Tx }

// NewHierarchyRepository returns a repository bound to tx.
func NewHierarchyRepository(tx *sql.Tx) *HierarchyRepository {
	return &HierarchyRepository{tx: tx}
}

// Add inserts a hierarchy level. Names must not contain "cell_id" or
// "." (enforced by a native trigger, C6); rank must be unique.
func (r *HierarchyRepository) Add(ctx context.Context, name string, rank int) (int64, error) {
	res, err := r.tx.ExecContext(ctx,
		"INSERT INTO hierarchy (name, rank) VALUES (?, ?)", name, rank)
	if err != nil {
		return 0, classifyConstraintError(err, "hierarchy name/rank must be unique")
	}
	return res.LastInsertId()
}

// Get returns the hierarchy row for id, or nil if absent.
func (r *HierarchyRepository) Get(ctx context.Context, id int64) (*model.Hierarchy, error) {
	var h model.Hierarchy
	err := r.tx.QueryRowContext(ctx,
		"SELECT hierarchy_id, name, rank FROM hierarchy WHERE hierarchy_id = ?", id,
	).Scan(&h.ID, &h.Name, &h.Rank)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, nodeerr.Wrap(nodeerr.Transient, err, "get hierarchy")
	}
	return &h, nil
}

// List returns all hierarchy levels ordered by rank.
func (r *HierarchyRepository) List(ctx context.Context) ([]model.Hierarchy, error) {
	rows, err := r.tx.QueryContext(ctx, "SELECT hierarchy_id, name, rank FROM hierarchy ORDER BY rank")
	if err != nil {
		return nil, nodeerr.Wrap(nodeerr.Transient, err, "list hierarchy")
	}
	defer rows.Close()

	var out []model.Hierarchy
	for rows.Next() {
		var h model.Hierarchy
		if err := rows.Scan(&h.ID, &h.Name, &h.Rank); err != nil {
			return nil, nodeerr.Wrap(nodeerr.Transient, err, "scan hierarchy")
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// Update renames a hierarchy level in place (its rank and id are
// immutable through this call).
func (r *HierarchyRepository) Update(ctx context.Context, id int64, name string) error {
	_, err := r.tx.ExecContext(ctx, "UPDATE hierarchy SET name = ? WHERE hierarchy_id = ?", name, id)
	if err != nil {
		return classifyConstraintError(err, "hierarchy name must be unique")
	}
	return nil
}

// Delete removes a hierarchy level; cascades to its labels and
// cell_label links, consistent with the schema's ownership/lifecycle rule.
func (r *HierarchyRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.tx.ExecContext(ctx, "DELETE FROM hierarchy WHERE hierarchy_id = ?", id)
	if err != nil {
		return nodeerr.Wrap(nodeerr.StorageIntegrity, err, "delete hierarchy")
	}
	return nil
}
