package mapping

import (
	"context"
	"database/sql"

	"gpn/internal/model"
	"gpn/internal/repository"
)

// Candidate is one granularity-lattice entry considered for a match,
// expressed as a canonical-order presence vector alongside the
// structure row's id.
type Candidate struct {
	StructureID int64
	Present     []bool
}

// Resolution is the outcome of matching one mapping row's bit-flags
// against a node's structure lattice.
type Resolution struct {
	RowBitFlags        model.MappingLevel
	Matched            bool
	MatchedStructureID int64
	MatchedBitFlags    model.MappingLevel
}

// LoadCandidates reads every structure row for the node, in
// most-granular-first order, and returns each one's presence vector
// over canonicalOrder.
func LoadCandidates(ctx context.Context, tx *sql.Tx, canonicalOrder []string) ([]Candidate, error) {
	structRepo := repository.NewStructureRepository(tx)
	structures, err := structRepo.List(ctx) // already ordered by granularity DESC
	if err != nil {
		return nil, err
	}

	out := make([]Candidate, 0, len(structures))
	for _, s := range structures {
		presentByName, err := structRepo.PresentColumns(ctx, s.ID, canonicalOrder)
		if err != nil {
			return nil, err
		}
		present := make([]bool, len(canonicalOrder))
		for i, name := range canonicalOrder {
			present[i] = presentByName[name]
		}
		out = append(out, Candidate{StructureID: s.ID, Present: present})
	}
	return out, nil
}

// ResolveRow matches one row's presence vector against candidates
// (assumed most-granular first) and packs both the row's and the
// matched candidate's bit-flags. A row whose presence vector matches
// no candidate exactly is returned with Matched=false; downstream
// ingestion treats that as a relation to the reserved undefined cell
// (id 0).
func ResolveRow(rowPresent []bool, candidates []Candidate) Resolution {
	res := Resolution{RowBitFlags: Pack(rowPresent)}
	for _, c := range candidates {
		if presentEqual(rowPresent, c.Present) {
			res.Matched = true
			res.MatchedStructureID = c.StructureID
			res.MatchedBitFlags = Pack(c.Present)
			return res
		}
	}
	return res
}

func presentEqual(a, b []bool) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// ResolveRows runs ResolveRow over every row, given the already-built
// presence vectors in rows (each aligned to the same canonicalOrder
// candidates were built against). The algorithm is deterministic given
// (node structures, right-side column order, row bit-flags), matching
// the correspondence-file resolution rule's closing sentence.
func ResolveRows(rows [][]bool, candidates []Candidate) []Resolution {
	out := make([]Resolution, len(rows))
	for i, present := range rows {
		out[i] = ResolveRow(present, candidates)
	}
	return out
}
