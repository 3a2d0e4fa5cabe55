package mapping

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeProportionsSplitsBySourceCell(t *testing.T) {
	pending := []PendingRelation{
		{OtherIndexID: 1, Value: 3},
		{OtherIndexID: 1, Value: 1},
		{OtherIndexID: 2, Value: 5},
	}

	got := ComputeProportions(pending)
	assert.InDelta(t, 0.75, got[0], 1e-9)
	assert.InDelta(t, 0.25, got[1], 1e-9)
	assert.InDelta(t, 1.0, got[2], 1e-9)
}

func TestComputeProportionsZeroTotalIsZeroNotNaN(t *testing.T) {
	pending := []PendingRelation{
		{OtherIndexID: 1, Value: 0},
		{OtherIndexID: 1, Value: 0},
	}

	got := ComputeProportions(pending)
	assert.Equal(t, []float64{0, 0}, got)
}

func TestComputeProportionsEmptyInput(t *testing.T) {
	got := ComputeProportions(nil)
	assert.Empty(t, got)
}
