package repository

import (
	"context"
	"database/sql"

	"gpn/internal/model"
	"gpn/internal/nodeerr"
)

// RelationRepository manages relation rows: one row of an edge mapping
// an other-node cell to a local cell, with a value, optional
// proportion, and mapping-level blob. Query shape follows the
// original's relation repository directly (add/get/update/delete over
// a flat parameterized statement).
type RelationRepository struct{ tx *sql.Tx }

// NewRelationRepository returns a repository bound to tx.
func NewRelationRepository(tx *sql.Tx) *RelationRepository {
	return &RelationRepository{tx: tx}
}

// Add inserts a relation and returns its id. indexID may be left unset
// (nil) when the local cell cannot yet be resolved; the column is
// DEFERRABLE INITIALLY DEFERRED to allow this within a transaction.
func (r *RelationRepository) Add(ctx context.Context, edgeID, otherIndexID int64, indexID *int64, value float64, proportion *float64, mappingLevel model.MappingLevel) (int64, error) {
	res, err := r.tx.ExecContext(ctx, `
		INSERT INTO relation (edge_id, other_index_id, index_id, relation_value, proportion, mapping_level)
		VALUES (?, ?, ?, ?, ?, ?)
	`, edgeID, otherIndexID, nullableInt(indexID), value, nullableFloat(proportion), nullableBytes(mappingLevel))
	if err != nil {
		return 0, classifyConstraintError(err, "relation must be unique per (edge, other cell, local cell) and satisfy its value/proportion bounds")
	}
	return res.LastInsertId()
}

// Get returns the relation row for id, or nil.
func (r *RelationRepository) Get(ctx context.Context, id int64) (*model.Relation, error) {
	var rel model.Relation
	var indexID sql.NullInt64
	var proportion sql.NullFloat64
	var mappingLevel []byte
	err := r.tx.QueryRowContext(ctx, `
		SELECT relation_id, edge_id, other_index_id, index_id, relation_value, proportion, mapping_level
		FROM relation WHERE relation_id = ?
	`, id).Scan(&rel.ID, &rel.EdgeID, &rel.OtherIndexID, &indexID, &rel.Value, &proportion, &mappingLevel)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, nodeerr.Wrap(nodeerr.Transient, err, "get relation")
	}
	if indexID.Valid {
		v := indexID.Int64
		rel.IndexID = &v
	}
	if proportion.Valid {
		v := proportion.Float64
		rel.Proportion = &v
	}
	if mappingLevel != nil {
		rel.MappingLevel = model.MappingLevel(mappingLevel)
	}
	return &rel, nil
}

// ListByEdge returns every relation row belonging to an edge.
func (r *RelationRepository) ListByEdge(ctx context.Context, edgeID int64) ([]model.Relation, error) {
	rows, err := r.tx.QueryContext(ctx, `
		SELECT relation_id, edge_id, other_index_id, index_id, relation_value, proportion, mapping_level
		FROM relation WHERE edge_id = ?
	`, edgeID)
	if err != nil {
		return nil, nodeerr.Wrap(nodeerr.Transient, err, "list relations")
	}
	defer rows.Close()

	var out []model.Relation
	for rows.Next() {
		var rel model.Relation
		var indexID sql.NullInt64
		var proportion sql.NullFloat64
		var mappingLevel []byte
		if err := rows.Scan(&rel.ID, &rel.EdgeID, &rel.OtherIndexID, &indexID, &rel.Value, &proportion, &mappingLevel); err != nil {
			return nil, nodeerr.Wrap(nodeerr.Transient, err, "scan relation")
		}
		if indexID.Valid {
			v := indexID.Int64
			rel.IndexID = &v
		}
		if proportion.Valid {
			v := proportion.Float64
			rel.Proportion = &v
		}
		if mappingLevel != nil {
			rel.MappingLevel = model.MappingLevel(mappingLevel)
		}
		out = append(out, rel)
	}
	return out, rows.Err()
}

// Update replaces a relation's mutable fields in place.
func (r *RelationRepository) Update(ctx context.Context, rel model.Relation) error {
	_, err := r.tx.ExecContext(ctx, `
		UPDATE relation
		SET edge_id = ?, other_index_id = ?, index_id = ?, relation_value = ?, proportion = ?, mapping_level = ?
		WHERE relation_id = ?
	`,
		rel.EdgeID, rel.OtherIndexID, nullableInt(rel.IndexID), rel.Value,
		nullableFloat(rel.Proportion), nullableBytes(rel.MappingLevel), rel.ID,
	)
	if err != nil {
		return classifyConstraintError(err, "relation must be unique per (edge, other cell, local cell) and satisfy its value/proportion bounds")
	}
	return nil
}

// Delete removes a relation row.
func (r *RelationRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.tx.ExecContext(ctx, "DELETE FROM relation WHERE relation_id = ?", id)
	if err != nil {
		return nodeerr.Wrap(nodeerr.StorageIntegrity, err, "delete relation")
	}
	return nil
}

func nullableInt(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullableFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullableBytes(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return []byte(b)
}
