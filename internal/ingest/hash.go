package ingest

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
)

// labelTriple is one (cell_id, hierarchy_id, label_value) row
// participating in the content hash.
type labelTriple struct {
	cellID, hierarchyID int64
	value                string
}

// sha256Triples concatenates the UTF-8 byte representation of each
// field of each already-sorted triple and returns the hex-encoded
// SHA-256 digest, matching the reference implementation's
// field-by-field hashlib.sha256().update() loop.
func sha256Triples(triples []labelTriple) string {
	h := sha256.New()
	for _, t := range triples {
		h.Write([]byte(fmt.Sprintf("%d", t.cellID)))
		h.Write([]byte(fmt.Sprintf("%d", t.hierarchyID)))
		h.Write([]byte(t.value))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// ComputeContentHash recomputes the content hash over tx's current
// cell_label/label rows without touching any other ingestion state.
// ok is false when the node has no cells yet, in which case the
// content hash is reported as absent rather than the hash of nothing.
func ComputeContentHash(ctx context.Context, tx *sql.Tx) (hexDigest string, ok bool, err error) {
	return computeContentHash(ctx, tx)
}
