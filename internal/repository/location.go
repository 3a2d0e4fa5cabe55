package repository

import (
	"context"
	"database/sql"

	"gpn/internal/model"
	"gpn/internal/nodeerr"
)

// LocationRepository manages location rows: generalised cells that
// may carry empty strings at finer levels, anchoring quantities.
type LocationRepository struct{ tx *sql.Tx }

// NewLocationRepository returns a repository bound to tx.
func NewLocationRepository(tx *sql.Tx) *LocationRepository {
	return &LocationRepository{tx: tx}
}

// Add inserts a bare location row and returns its id.
func (r *LocationRepository) Add(ctx context.Context) (int64, error) {
	res, err := r.tx.ExecContext(ctx, "INSERT INTO location DEFAULT VALUES")
	if err != nil {
		return 0, nodeerr.Wrap(nodeerr.StorageIntegrity, err, "insert location")
	}
	return res.LastInsertId()
}

// Get returns the location row for id, or nil.
func (r *LocationRepository) Get(ctx context.Context, id int64) (*model.Location, error) {
	var exists bool
	err := r.tx.QueryRowContext(ctx,
		"SELECT 1 FROM location WHERE _location_id = ?", id).Scan(&exists)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, nodeerr.Wrap(nodeerr.Transient, err, "get location")
	}
	return &model.Location{ID: id}, nil
}

// Update is a no-op placeholder over the fixed id column; label
// values on a location are mutated through internal/schemamgr's
// column operations, not per-row here.
func (r *LocationRepository) Update(ctx context.Context, id int64) error {
	_, err := r.tx.ExecContext(ctx, "UPDATE location SET _location_id = _location_id WHERE _location_id = ?", id)
	if err != nil {
		return nodeerr.Wrap(nodeerr.StorageIntegrity, err, "update location")
	}
	return nil
}

// Delete removes a location row.
func (r *LocationRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.tx.ExecContext(ctx, "DELETE FROM location WHERE _location_id = ?", id)
	if err != nil {
		return nodeerr.Wrap(nodeerr.StorageIntegrity, err, "delete location")
	}
	return nil
}
