package repository

import (
	"context"
	"database/sql"

	"gpn/internal/model"
	"gpn/internal/nodeerr"
)

// PropertyRepository manages the property key/value store: unique_id,
// toron_schema_version, toron_app_version, content_hash, plus any
// caller-defined keys. Values are stored as JSON-encoded text; the
// shape trigger only requires well-formed JSON, not a fixed type.
type PropertyRepository struct{ tx *sql.Tx }

// NewPropertyRepository returns a repository bound to tx.
func NewPropertyRepository(tx *sql.Tx) *PropertyRepository {
	return &PropertyRepository{tx: tx}
}

// Add inserts a property. Keys are unique by primary key; use Update to
// change an existing one.
func (r *PropertyRepository) Add(ctx context.Context, key, jsonValue string) error {
	_, err := r.tx.ExecContext(ctx, "INSERT INTO property (key, value) VALUES (?, ?)", key, jsonValue)
	if err != nil {
		return classifyConstraintError(err, "property value must be well-formed JSON")
	}
	return nil
}

// Get returns the property row for key, or nil.
func (r *PropertyRepository) Get(ctx context.Context, key string) (*model.Property, error) {
	var p model.Property
	var value sql.NullString
	err := r.tx.QueryRowContext(ctx, "SELECT key, value FROM property WHERE key = ?", key).Scan(&p.Key, &value)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, nodeerr.Wrap(nodeerr.Transient, err, "get property")
	}
	p.Value = value.String
	return &p, nil
}

// Set inserts or overwrites a property in one step (upsert), the
// common case for properties like content_hash that are recomputed
// and rewritten as a whole on every change.
func (r *PropertyRepository) Set(ctx context.Context, key, jsonValue string) error {
	_, err := r.tx.ExecContext(ctx,
		"INSERT INTO property (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, jsonValue)
	if err != nil {
		return classifyConstraintError(err, "property value must be well-formed JSON")
	}
	return nil
}

// Delete removes a property row. Reserved keys (unique_id,
// toron_schema_version, toron_app_version) are not protected at this
// layer; callers must not delete them.
func (r *PropertyRepository) Delete(ctx context.Context, key string) error {
	_, err := r.tx.ExecContext(ctx, "DELETE FROM property WHERE key = ?", key)
	if err != nil {
		return nodeerr.Wrap(nodeerr.StorageIntegrity, err, "delete property")
	}
	return nil
}
