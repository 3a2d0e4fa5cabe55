package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	"gpn/internal/model"
	"gpn/internal/nodeerr"
)

// EdgeRepository manages edge rows: directed references from this node
// to another, including is_default handling consistent with C7 (at
// most one default edge per other-node unique id, encoded as the
// schema's NULL-or-1 is_default column with a (is_default, other_unique_id)
// unique index).
type EdgeRepository struct{ tx *sql.Tx }

// NewEdgeRepository returns a repository bound to tx.
func NewEdgeRepository(tx *sql.Tx) *EdgeRepository {
	return &EdgeRepository{tx: tx}
}

// Add inserts an edge and returns its id.
func (r *EdgeRepository) Add(ctx context.Context, e model.Edge) (int64, error) {
	selJSON, err := json.Marshal(e.Selectors)
	if err != nil {
		return 0, nodeerr.Wrap(nodeerr.Validation, err, "encode edge selectors")
	}
	var userProps []byte
	if e.UserProperties != nil {
		userProps, err = json.Marshal(e.UserProperties)
		if err != nil {
			return 0, nodeerr.Wrap(nodeerr.Validation, err, "encode edge user_properties")
		}
	}
	isDefault := sqlNullBool(e.IsDefault)

	res, err := r.tx.ExecContext(ctx, `
		INSERT INTO edge (
			name, description, selectors, user_properties,
			other_unique_id, other_filename_hint, other_index_hash,
			is_locally_complete, is_default
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		e.Name, e.Description, string(selJSON), nullableText(userProps),
		e.OtherUniqueID, e.OtherFilenameHint, e.OtherIndexHash,
		boolToInt(e.IsLocallyComplete), isDefault,
	)
	if err != nil {
		return 0, classifyConstraintError(err, "at most one default edge is allowed per other-node unique id")
	}
	return res.LastInsertId()
}

// Get returns the edge row for id, or nil.
func (r *EdgeRepository) Get(ctx context.Context, id int64) (*model.Edge, error) {
	var e model.Edge
	var desc, selJSON, userProps sql.NullString
	var isDefault sql.NullInt64
	var isComplete int
	err := r.tx.QueryRowContext(ctx, `
		SELECT edge_id, name, description, selectors, user_properties,
			other_unique_id, other_filename_hint, other_index_hash,
			is_locally_complete, is_default
		FROM edge WHERE edge_id = ?
	`, id).Scan(
		&e.ID, &e.Name, &desc, &selJSON, &userProps,
		&e.OtherUniqueID, &e.OtherFilenameHint, &e.OtherIndexHash,
		&isComplete, &isDefault,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, nodeerr.Wrap(nodeerr.Transient, err, "get edge")
	}
	e.Description = desc.String
	e.IsLocallyComplete = isComplete == 1
	if selJSON.Valid {
		_ = json.Unmarshal([]byte(selJSON.String), &e.Selectors)
	}
	if userProps.Valid {
		_ = json.Unmarshal([]byte(userProps.String), &e.UserProperties)
	}
	if isDefault.Valid {
		v := isDefault.Int64 == 1
		e.IsDefault = &v
	}
	return &e, nil
}

// GetDefault returns the default edge for otherUniqueID, or nil if none
// has been marked default yet.
func (r *EdgeRepository) GetDefault(ctx context.Context, otherUniqueID string) (*model.Edge, error) {
	var id int64
	err := r.tx.QueryRowContext(ctx,
		"SELECT edge_id FROM edge WHERE other_unique_id = ? AND is_default = 1", otherUniqueID).Scan(&id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, nodeerr.Wrap(nodeerr.Transient, err, "get default edge")
	}
	return r.Get(ctx, id)
}

// SetDefault marks edge id as the default for its other_unique_id,
// first clearing any prior default for that other node so the
// NULL-or-1 uniqueness trick never needs two rows with is_default=1
// at once.
func (r *EdgeRepository) SetDefault(ctx context.Context, id int64) error {
	var otherUniqueID string
	if err := r.tx.QueryRowContext(ctx,
		"SELECT other_unique_id FROM edge WHERE edge_id = ?", id).Scan(&otherUniqueID); err != nil {
		return nodeerr.Wrap(nodeerr.NotFound, err, "edge not found")
	}
	if _, err := r.tx.ExecContext(ctx,
		"UPDATE edge SET is_default = NULL WHERE other_unique_id = ? AND is_default = 1", otherUniqueID,
	); err != nil {
		return nodeerr.Wrap(nodeerr.StorageIntegrity, err, "clear prior default edge")
	}
	if _, err := r.tx.ExecContext(ctx,
		"UPDATE edge SET is_default = 1 WHERE edge_id = ?", id,
	); err != nil {
		return classifyConstraintError(err, "at most one default edge is allowed per other-node unique id")
	}
	return nil
}

// Update changes an edge's mutable fields (description, completeness
// flag, other-index hash).
func (r *EdgeRepository) Update(ctx context.Context, id int64, description string, isLocallyComplete bool, otherIndexHash string) error {
	_, err := r.tx.ExecContext(ctx,
		"UPDATE edge SET description = ?, is_locally_complete = ?, other_index_hash = ? WHERE edge_id = ?",
		description, boolToInt(isLocallyComplete), otherIndexHash, id)
	if err != nil {
		return nodeerr.Wrap(nodeerr.StorageIntegrity, err, "update edge")
	}
	return nil
}

// Delete removes an edge; cascades to its relations.
func (r *EdgeRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.tx.ExecContext(ctx, "DELETE FROM edge WHERE edge_id = ?", id)
	if err != nil {
		return nodeerr.Wrap(nodeerr.StorageIntegrity, err, "delete edge")
	}
	return nil
}

func sqlNullBool(b *bool) any {
	if b == nil || !*b {
		return nil
	}
	return 1
}

func nullableText(b []byte) any {
	if b == nil {
		return nil
	}
	return string(b)
}
