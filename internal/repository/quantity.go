package repository

import (
	"context"
	"database/sql"

	"gpn/internal/model"
	"gpn/internal/nodeerr"
)

// QuantityRepository manages quantity rows: a numeric value attached
// to a (location, attribute) pair.
type QuantityRepository struct{ tx *sql.Tx }

// NewQuantityRepository returns a repository bound to tx.
func NewQuantityRepository(tx *sql.Tx) *QuantityRepository {
	return &QuantityRepository{tx: tx}
}

// Add inserts a quantity and returns its id.
func (r *QuantityRepository) Add(ctx context.Context, locationID, attributeID int64, value float64) (int64, error) {
	res, err := r.tx.ExecContext(ctx,
		"INSERT INTO quantity (_location_id, attribute_id, quantity_value) VALUES (?, ?, ?)",
		locationID, attributeID, value)
	if err != nil {
		return 0, nodeerr.Wrap(nodeerr.StorageIntegrity, err, "insert quantity")
	}
	return res.LastInsertId()
}

// Get returns the quantity row for id, or nil.
func (r *QuantityRepository) Get(ctx context.Context, id int64) (*model.Quantity, error) {
	var q model.Quantity
	err := r.tx.QueryRowContext(ctx,
		"SELECT quantity_id, _location_id, attribute_id, quantity_value FROM quantity WHERE quantity_id = ?", id,
	).Scan(&q.ID, &q.LocationID, &q.AttributeID, &q.Value)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, nodeerr.Wrap(nodeerr.Transient, err, "get quantity")
	}
	return &q, nil
}

// ListByLocation returns every quantity row anchored at a location.
func (r *QuantityRepository) ListByLocation(ctx context.Context, locationID int64) ([]model.Quantity, error) {
	rows, err := r.tx.QueryContext(ctx,
		"SELECT quantity_id, _location_id, attribute_id, quantity_value FROM quantity WHERE _location_id = ?", locationID)
	if err != nil {
		return nil, nodeerr.Wrap(nodeerr.Transient, err, "list quantities")
	}
	defer rows.Close()

	var out []model.Quantity
	for rows.Next() {
		var q model.Quantity
		if err := rows.Scan(&q.ID, &q.LocationID, &q.AttributeID, &q.Value); err != nil {
			return nil, nodeerr.Wrap(nodeerr.Transient, err, "scan quantity")
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

// Update changes a quantity's value.
func (r *QuantityRepository) Update(ctx context.Context, id int64, value float64) error {
	_, err := r.tx.ExecContext(ctx, "UPDATE quantity SET quantity_value = ? WHERE quantity_id = ?", value, id)
	if err != nil {
		return nodeerr.Wrap(nodeerr.StorageIntegrity, err, "update quantity")
	}
	return nil
}

// Delete removes a quantity row.
func (r *QuantityRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.tx.ExecContext(ctx, "DELETE FROM quantity WHERE quantity_id = ?", id)
	if err != nil {
		return nodeerr.Wrap(nodeerr.StorageIntegrity, err, "delete quantity")
	}
	return nil
}
