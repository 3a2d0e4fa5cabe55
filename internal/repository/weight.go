package repository

import (
	"context"
	"database/sql"

	"gpn/internal/model"
	"gpn/internal/nodeerr"
)

// WeightRepository manages weight rows: one real value per (weighting,
// cell) pair.
type WeightRepository struct{ tx *sql.Tx }

// NewWeightRepository returns a repository bound to tx.
func NewWeightRepository(tx *sql.Tx) *WeightRepository {
	return &WeightRepository{tx: tx}
}

// Add inserts a weight and returns its id. Inserting a weight can
// complete a weighting, so is_complete is recomputed for the
// affected weighting in the same transaction.
func (r *WeightRepository) Add(ctx context.Context, weightingID, cellID int64, value float64) (int64, error) {
	if cellID == model.UndefinedCellID {
		return 0, nodeerr.New(nodeerr.Validation, "cannot weight the reserved undefined cell")
	}
	res, err := r.tx.ExecContext(ctx,
		"INSERT INTO weight (weighting_id, index_id, weight_value) VALUES (?, ?, ?)",
		weightingID, cellID, value)
	if err != nil {
		return 0, classifyConstraintError(err, "weight must be unique per (weighting, cell)")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, nodeerr.Wrap(nodeerr.Transient, err, "read inserted weight id")
	}
	if err := NewWeightingRepository(r.tx).RefreshIsComplete(ctx, weightingID); err != nil {
		return 0, err
	}
	return id, nil
}

// Get returns the weight row for id, or nil.
func (r *WeightRepository) Get(ctx context.Context, id int64) (*model.Weight, error) {
	var w model.Weight
	err := r.tx.QueryRowContext(ctx,
		"SELECT weight_id, weighting_id, index_id, weight_value FROM weight WHERE weight_id = ?", id,
	).Scan(&w.ID, &w.WeightingID, &w.CellID, &w.Value)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, nodeerr.Wrap(nodeerr.Transient, err, "get weight")
	}
	return &w, nil
}

// ListByWeighting returns every weight row for a weighting.
func (r *WeightRepository) ListByWeighting(ctx context.Context, weightingID int64) ([]model.Weight, error) {
	rows, err := r.tx.QueryContext(ctx,
		"SELECT weight_id, weighting_id, index_id, weight_value FROM weight WHERE weighting_id = ?", weightingID)
	if err != nil {
		return nil, nodeerr.Wrap(nodeerr.Transient, err, "list weights")
	}
	defer rows.Close()

	var out []model.Weight
	for rows.Next() {
		var w model.Weight
		if err := rows.Scan(&w.ID, &w.WeightingID, &w.CellID, &w.Value); err != nil {
			return nil, nodeerr.Wrap(nodeerr.Transient, err, "scan weight")
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// Update changes a weight's value.
func (r *WeightRepository) Update(ctx context.Context, id int64, value float64) error {
	_, err := r.tx.ExecContext(ctx, "UPDATE weight SET weight_value = ? WHERE weight_id = ?", value, id)
	if err != nil {
		return nodeerr.Wrap(nodeerr.StorageIntegrity, err, "update weight")
	}
	return nil
}

// Delete removes a weight row. Deleting a weight can make its
// weighting incomplete again, so is_complete is recomputed for the
// affected weighting in the same transaction.
func (r *WeightRepository) Delete(ctx context.Context, id int64) error {
	var weightingID int64
	err := r.tx.QueryRowContext(ctx,
		"SELECT weighting_id FROM weight WHERE weight_id = ?", id).Scan(&weightingID)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return nodeerr.Wrap(nodeerr.Transient, err, "read weighting id for weight")
	}

	if _, err := r.tx.ExecContext(ctx, "DELETE FROM weight WHERE weight_id = ?", id); err != nil {
		return nodeerr.Wrap(nodeerr.StorageIntegrity, err, "delete weight")
	}
	return NewWeightingRepository(r.tx).RefreshIsComplete(ctx, weightingID)
}
