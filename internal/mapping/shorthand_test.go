package mapping

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEdgeShorthandBasic(t *testing.T) {
	d, err := ParseEdgeShorthand("population: states.node -> counties.node")
	require.NoError(t, err)
	assert.Equal(t, "population", d.EdgeName)
	assert.Equal(t, "states.node", d.NodeFile1)
	assert.Equal(t, DirRight, d.Direction)
	assert.Equal(t, "counties.node", d.NodeFile2)
	assert.Empty(t, d.Selector)
}

func TestParseEdgeShorthandWithSelector(t *testing.T) {
	d, err := ParseEdgeShorthand(`income: a.node <--> b.node : [attr="wages"]`)
	require.NoError(t, err)
	assert.Equal(t, DirBothLong, d.Direction)
	assert.Equal(t, `[attr="wages"]`, d.Selector)
}

func TestParseEdgeShorthandAllDirections(t *testing.T) {
	dirs := []Direction{DirRight, DirRightLong, DirLeft, DirLeftLong, DirBoth, DirBothLong}
	for _, dir := range dirs {
		s := "name: a.node " + string(dir) + " b.node"
		d, err := ParseEdgeShorthand(s)
		require.NoError(t, err, s)
		assert.Equal(t, dir, d.Direction, s)
	}
}

func TestParseEdgeShorthandRejectsMissingDirection(t *testing.T) {
	_, err := ParseEdgeShorthand("name: a.node b.node")
	assert.Error(t, err)
}

func TestParseEdgeShorthandRejectsMissingName(t *testing.T) {
	_, err := ParseEdgeShorthand(": a.node -> b.node")
	assert.Error(t, err)
}

func TestParseEdgeShorthandRejectsForbiddenCharInFilename(t *testing.T) {
	_, err := ParseEdgeShorthand(`name: a<b.node -> c.node`)
	assert.Error(t, err)
}

func TestIsForbiddenFilenameChar(t *testing.T) {
	assert.True(t, IsForbiddenFilenameChar('<'))
	assert.True(t, IsForbiddenFilenameChar('*'))
	assert.False(t, IsForbiddenFilenameChar('a'))
	assert.False(t, IsForbiddenFilenameChar('.'))
}
