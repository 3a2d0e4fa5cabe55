package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"sort"

	"gpn/internal/model"
	"gpn/internal/nodeerr"
)

// AttributeRepository manages attribute rows, interned by the
// canonical (sorted-key) JSON form of their string->string values.
type AttributeRepository struct{ tx *sql.Tx }

// NewAttributeRepository returns a repository bound to tx.
func NewAttributeRepository(tx *sql.Tx) *AttributeRepository {
	return &AttributeRepository{tx: tx}
}

// canonicalJSON marshals values with keys sorted, so two attribute sets
// with the same pairs always produce the same stored text and therefore
// intern to the same row.
func canonicalJSON(values map[string]string) (string, error) {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	buf := []byte("{")
	for i, k := range keys {
		if i > 0 {
			buf = append(buf, ',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return "", err
		}
		vb, err := json.Marshal(values[k])
		if err != nil {
			return "", err
		}
		buf = append(buf, kb...)
		buf = append(buf, ':')
		buf = append(buf, vb...)
	}
	buf = append(buf, '}')
	return string(buf), nil
}

// GetOrAdd returns the id of the attribute with these values, interning
// a new row if this exact value set has not been seen before.
func (r *AttributeRepository) GetOrAdd(ctx context.Context, values map[string]string) (int64, error) {
	text, err := canonicalJSON(values)
	if err != nil {
		return 0, nodeerr.Wrap(nodeerr.Validation, err, "encode attribute values")
	}

	var id int64
	err = r.tx.QueryRowContext(ctx,
		"SELECT attribute_id FROM attribute WHERE attribute_value = ?", text).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, nodeerr.Wrap(nodeerr.Transient, err, "lookup attribute")
	}

	res, err := r.tx.ExecContext(ctx,
		"INSERT INTO attribute (attribute_value) VALUES (?)", text)
	if err != nil {
		return 0, classifyConstraintError(err, "attribute values must be a JSON object of strings")
	}
	return res.LastInsertId()
}

// Get returns the attribute row for id, or nil.
func (r *AttributeRepository) Get(ctx context.Context, id int64) (*model.Attribute, error) {
	var text string
	err := r.tx.QueryRowContext(ctx,
		"SELECT attribute_value FROM attribute WHERE attribute_id = ?", id).Scan(&text)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, nodeerr.Wrap(nodeerr.Transient, err, "get attribute")
	}
	var values map[string]string
	if err := json.Unmarshal([]byte(text), &values); err != nil {
		return nil, nodeerr.Wrap(nodeerr.StorageIntegrity, err, "decode attribute values")
	}
	return &model.Attribute{ID: id, Values: values}, nil
}

// Update replaces an attribute's values in place. Rarely used directly
// since attributes are normally interned via GetOrAdd.
func (r *AttributeRepository) Update(ctx context.Context, id int64, values map[string]string) error {
	text, err := canonicalJSON(values)
	if err != nil {
		return nodeerr.Wrap(nodeerr.Validation, err, "encode attribute values")
	}
	_, err = r.tx.ExecContext(ctx, "UPDATE attribute SET attribute_value = ? WHERE attribute_id = ?", text, id)
	if err != nil {
		return classifyConstraintError(err, "attribute values must be a JSON object of strings")
	}
	return nil
}

// Delete removes an attribute row; cascades to its quantities.
func (r *AttributeRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.tx.ExecContext(ctx, "DELETE FROM attribute WHERE attribute_id = ?", id)
	if err != nil {
		return nodeerr.Wrap(nodeerr.StorageIntegrity, err, "delete attribute")
	}
	return nil
}
