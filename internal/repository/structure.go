package repository

import (
	"context"
	"database/sql"

	"gpn/internal/model"
	"gpn/internal/nodeerr"
)

// StructureRepository manages structure rows: the bitmask-over-levels
// lattice of granularity classes the node considers meaningful.
type StructureRepository struct{ tx *sql.Tx }

// NewStructureRepository returns a repository bound to tx.
func NewStructureRepository(tx *sql.Tx) *StructureRepository {
	return &StructureRepository{tx: tx}
}

// Add inserts a structure row with a precomputed granularity scalar
// and returns its id. The row's label columns start at their default
// 0; callers set them (1 if the level participates, 0 otherwise)
// separately via UPDATE because the column set is dynamic and owned
// by internal/schemamgr.
func (r *StructureRepository) Add(ctx context.Context, granularity float64) (int64, error) {
	res, err := r.tx.ExecContext(ctx,
		"INSERT INTO structure (_granularity) VALUES (?)", granularity)
	if err != nil {
		return 0, nodeerr.Wrap(nodeerr.StorageIntegrity, err, "insert structure")
	}
	return res.LastInsertId()
}

// Get returns the structure row's id and granularity, or nil.
func (r *StructureRepository) Get(ctx context.Context, id int64) (*model.Structure, error) {
	var s model.Structure
	err := r.tx.QueryRowContext(ctx,
		"SELECT _structure_id, _granularity FROM structure WHERE _structure_id = ?", id,
	).Scan(&s.ID, &s.Granularity)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, nodeerr.Wrap(nodeerr.Transient, err, "get structure")
	}
	return &s, nil
}

// List returns every structure row ordered most-granular first
// (descending granularity), the order mapping-level resolution
// requires.
func (r *StructureRepository) List(ctx context.Context) ([]model.Structure, error) {
	rows, err := r.tx.QueryContext(ctx,
		"SELECT _structure_id, _granularity FROM structure ORDER BY _granularity DESC")
	if err != nil {
		return nil, nodeerr.Wrap(nodeerr.Transient, err, "list structure")
	}
	defer rows.Close()

	var out []model.Structure
	for rows.Next() {
		var s model.Structure
		if err := rows.Scan(&s.ID, &s.Granularity); err != nil {
			return nil, nodeerr.Wrap(nodeerr.Transient, err, "scan structure")
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Update changes the granularity scalar of a structure row.
func (r *StructureRepository) Update(ctx context.Context, id int64, granularity float64) error {
	_, err := r.tx.ExecContext(ctx,
		"UPDATE structure SET _granularity = ? WHERE _structure_id = ?", granularity, id)
	if err != nil {
		return nodeerr.Wrap(nodeerr.StorageIntegrity, err, "update structure")
	}
	return nil
}

// Delete removes a structure row.
func (r *StructureRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.tx.ExecContext(ctx, "DELETE FROM structure WHERE _structure_id = ?", id)
	if err != nil {
		return nodeerr.Wrap(nodeerr.StorageIntegrity, err, "delete structure")
	}
	return nil
}

// PresentColumns returns the label column names set to 1 for a
// structure row, i.e. the levels "present" in that granularity class.
func (r *StructureRepository) PresentColumns(ctx context.Context, id int64, labelColumns []string) (map[string]bool, error) {
	if len(labelColumns) == 0 {
		return map[string]bool{}, nil
	}
	cols, err := quotedSelectList(labelColumns)
	if err != nil {
		return nil, err
	}
	row := r.tx.QueryRowContext(ctx, "SELECT "+cols+" FROM structure WHERE _structure_id = ?", id)

	dest := make([]any, len(labelColumns))
	vals := make([]sql.NullInt64, len(labelColumns))
	for i := range vals {
		dest[i] = &vals[i]
	}
	if err := row.Scan(dest...); err != nil {
		return nil, nodeerr.Wrap(nodeerr.Transient, err, "scan structure present columns")
	}

	out := make(map[string]bool, len(labelColumns))
	for i, name := range labelColumns {
		out[name] = vals[i].Valid && vals[i].Int64 == 1
	}
	return out, nil
}

func quotedSelectList(names []string) (string, error) {
	out := ""
	for i, n := range names {
		if i > 0 {
			out += ", "
		}
		out += `"` + n + `"`
	}
	return out, nil
}
