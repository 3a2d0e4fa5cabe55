package mapping

// PendingRelation is one not-yet-persisted relation row awaiting a
// computed proportion: the value contributed from OtherIndexID toward
// one local cell.
type PendingRelation struct {
	OtherIndexID int64
	Value        float64
}

// ComputeProportions fills in each relation's proportion as
// value / sum-of-values-per-source-cell: "Proportion is
// computed by downstream code as value / sum-of-values-per-source-cell".
// Source cell here is the other node's cell (OtherIndexID), since one
// other-node cell's value may be split across several local cells. A
// source cell whose total is zero gets proportion 0 for every row
// sharing it rather than dividing by zero.
func ComputeProportions(pending []PendingRelation) []float64 {
	totals := make(map[int64]float64, len(pending))
	for _, p := range pending {
		totals[p.OtherIndexID] += p.Value
	}

	out := make([]float64, len(pending))
	for i, p := range pending {
		total := totals[p.OtherIndexID]
		if total == 0 {
			out[i] = 0
			continue
		}
		out[i] = p.Value / total
	}
	return out
}
