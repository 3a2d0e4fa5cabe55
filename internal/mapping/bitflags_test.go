package mapping

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackMatchesOriginalEncoding(t *testing.T) {
	// BitFlags(1, 0, 1) -> 0xA0: first element is the most significant bit.
	got := Pack([]bool{true, false, true})
	require.Len(t, got, 1)
	assert.Equal(t, byte(0xA0), got[0])
}

func TestPackSpansMultipleBytes(t *testing.T) {
	present := []bool{true, true, true, true, true, true, true, true, true}
	got := Pack(present)
	require.Len(t, got, 2)
	assert.Equal(t, byte(0xFF), got[0])
	assert.Equal(t, byte(0x80), got[1])
}

func TestPackAllFalseIsZeroBytes(t *testing.T) {
	got := Pack([]bool{false, false, false, false})
	assert.Equal(t, []byte{0x00}, []byte(got))
}

func TestPackEmptyIsEmptyBlob(t *testing.T) {
	got := Pack(nil)
	assert.Empty(t, got)
}

func TestUnpackRoundTrips(t *testing.T) {
	present := []bool{true, false, true, false, true, true, false, true, true}
	packed := Pack(present)
	got := Unpack(packed, len(present))
	assert.Equal(t, present, got)
}

func TestUnpackShortBlobReadsFalsePastLength(t *testing.T) {
	got := Unpack([]byte{0xA0}, 16)
	want := []bool{true, false, true, false, false, false, false, false, false, false, false, false, false, false, false, false}
	assert.Equal(t, want, got)
}

func TestUnpackNilBlobIsAllFalse(t *testing.T) {
	got := Unpack(nil, 4)
	assert.Equal(t, []bool{false, false, false, false}, got)
}

func TestPresentFromRowMarksOnlyColumnsWithValues(t *testing.T) {
	canonicalOrder := []string{"state", "county", "town"}
	rightHeader := []string{"state", "town"}
	values := []string{"OH", "Columbus"}

	got, err := PresentFromRow(canonicalOrder, rightHeader, values)
	require.NoError(t, err)
	assert.Equal(t, []bool{true, false, true}, got)
}

func TestPresentFromRowTreatsEmptyValueAsAbsent(t *testing.T) {
	canonicalOrder := []string{"state", "county"}
	rightHeader := []string{"state", "county"}
	values := []string{"OH", ""}

	got, err := PresentFromRow(canonicalOrder, rightHeader, values)
	require.NoError(t, err)
	assert.Equal(t, []bool{true, false}, got)
}

func TestPresentFromRowRejectsLengthMismatch(t *testing.T) {
	_, err := PresentFromRow([]string{"state"}, []string{"state", "county"}, []string{"OH"})
	assert.Error(t, err)
}
