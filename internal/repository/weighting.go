package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	"gpn/internal/model"
	"gpn/internal/nodeerr"
)

// WeightingRepository manages weighting rows and their completeness
// state machine (incomplete <-> complete).
type WeightingRepository struct{ tx *sql.Tx }

// NewWeightingRepository returns a repository bound to tx.
func NewWeightingRepository(tx *sql.Tx) *WeightingRepository {
	return &WeightingRepository{tx: tx}
}

// Add inserts a weighting and returns its id. Name is unique per node.
func (r *WeightingRepository) Add(ctx context.Context, name, description string, selectors []string) (int64, error) {
	selJSON, err := json.Marshal(selectors)
	if err != nil {
		return 0, nodeerr.Wrap(nodeerr.Validation, err, "encode selectors")
	}
	res, err := r.tx.ExecContext(ctx,
		"INSERT INTO weighting (name, description, selectors) VALUES (?, ?, ?)",
		name, description, string(selJSON))
	if err != nil {
		return 0, classifyConstraintError(err, "weighting name must be unique")
	}
	return res.LastInsertId()
}

// Get returns the weighting row for id, or nil.
func (r *WeightingRepository) Get(ctx context.Context, id int64) (*model.Weighting, error) {
	var w model.Weighting
	var selJSON sql.NullString
	var desc sql.NullString
	var complete int
	err := r.tx.QueryRowContext(ctx,
		"SELECT weighting_id, name, description, selectors, is_complete FROM weighting WHERE weighting_id = ?", id,
	).Scan(&w.ID, &w.Name, &desc, &selJSON, &complete)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, nodeerr.Wrap(nodeerr.Transient, err, "get weighting")
	}
	w.Description = desc.String
	w.IsComplete = complete == 1
	if selJSON.Valid {
		_ = json.Unmarshal([]byte(selJSON.String), &w.Selectors)
	}
	return &w, nil
}

// Update changes a weighting's description and selectors.
func (r *WeightingRepository) Update(ctx context.Context, id int64, description string, selectors []string) error {
	selJSON, err := json.Marshal(selectors)
	if err != nil {
		return nodeerr.Wrap(nodeerr.Validation, err, "encode selectors")
	}
	_, err = r.tx.ExecContext(ctx,
		"UPDATE weighting SET description = ?, selectors = ? WHERE weighting_id = ?",
		description, string(selJSON), id)
	if err != nil {
		return nodeerr.Wrap(nodeerr.StorageIntegrity, err, "update weighting")
	}
	return nil
}

// Delete removes a weighting; cascades to its weights.
func (r *WeightingRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.tx.ExecContext(ctx, "DELETE FROM weighting WHERE weighting_id = ?", id)
	if err != nil {
		return nodeerr.Wrap(nodeerr.StorageIntegrity, err, "delete weighting")
	}
	return nil
}

// RefreshIsComplete recomputes is_complete for a weighting: true iff
// every cell (excluding the reserved undefined cell) has a weight
// under it. Per the Open Question decision in DESIGN.md, partial
// cells are ordinary rows for this purpose; nothing special-cases
// them, matching the original's own completeness recompute query.
func (r *WeightingRepository) RefreshIsComplete(ctx context.Context, weightingID int64) error {
	_, err := r.tx.ExecContext(ctx, `
		UPDATE weighting
		SET is_complete = (
			(SELECT COUNT(*) FROM weight WHERE weighting_id = ?)
			=
			(SELECT COUNT(*) FROM node_index WHERE index_id != 0)
		)
		WHERE weighting_id = ?
	`, weightingID, weightingID)
	if err != nil {
		return nodeerr.Wrap(nodeerr.StorageIntegrity, err, "refresh weighting completeness")
	}
	return nil
}

// RefreshAllIsComplete recomputes is_complete for every weighting in
// the node. A cell insert or delete changes the denominator behind
// every weighting's completeness at once, so cell mutators refresh
// the whole table rather than a single weighting id.
func (r *WeightingRepository) RefreshAllIsComplete(ctx context.Context) error {
	rows, err := r.tx.QueryContext(ctx, "SELECT weighting_id FROM weighting")
	if err != nil {
		return nodeerr.Wrap(nodeerr.Transient, err, "list weighting ids")
	}
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nodeerr.Wrap(nodeerr.Transient, err, "scan weighting id")
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nodeerr.Wrap(nodeerr.Transient, err, "iterate weighting ids")
	}
	rows.Close()

	for _, id := range ids {
		if err := r.RefreshIsComplete(ctx, id); err != nil {
			return err
		}
	}
	return nil
}
