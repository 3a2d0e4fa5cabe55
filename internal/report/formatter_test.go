package report

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFormatterDefaultsToHuman(t *testing.T) {
	f, err := NewFormatter("")
	require.NoError(t, err)
	_, ok := f.(humanFormatter)
	assert.True(t, ok)
}

func TestNewFormatterHuman(t *testing.T) {
	f, err := NewFormatter("human")
	require.NoError(t, err)
	_, ok := f.(humanFormatter)
	assert.True(t, ok)
}

func TestNewFormatterHumanUppercase(t *testing.T) {
	f, err := NewFormatter("HUMAN")
	require.NoError(t, err)
	_, ok := f.(humanFormatter)
	assert.True(t, ok)
}

func TestNewFormatterJSON(t *testing.T) {
	f, err := NewFormatter("json")
	require.NoError(t, err)
	_, ok := f.(jsonFormatter)
	assert.True(t, ok)
}

func TestNewFormatterWithWhitespace(t *testing.T) {
	f, err := NewFormatter("  json  ")
	require.NoError(t, err)
	_, ok := f.(jsonFormatter)
	assert.True(t, ok)
}

func TestNewFormatterInvalidFormat(t *testing.T) {
	f, err := NewFormatter("yaml")
	assert.Error(t, err)
	assert.Nil(t, f)
}

func TestHumanFormatterIngestSummary(t *testing.T) {
	f := humanFormatter{}

	out, err := f.FormatIngestSummary(IngestSummary{CellsInserted: 3, HasContentHash: true, ContentHash: "deadbeef"})
	require.NoError(t, err)
	assert.Contains(t, out, "inserted 3 cell(s)")
	assert.Contains(t, out, "content hash: deadbeef")
}

func TestHumanFormatterIngestSummaryAbsentHash(t *testing.T) {
	f := humanFormatter{}

	out, err := f.FormatIngestSummary(IngestSummary{CellsInserted: 0})
	require.NoError(t, err)
	assert.Contains(t, out, "content hash: (absent)")
}

func TestHumanFormatterCellSelection(t *testing.T) {
	f := humanFormatter{}

	out, err := f.FormatCellSelection([]string{"state", "county"}, map[string]string{"state": "OH", "county": "Franklin"})
	require.NoError(t, err)
	assert.Contains(t, out, "state: OH")
	assert.Contains(t, out, "county: Franklin")
}

func TestJSONFormatterIngestSummaryAbsentHashIsNull(t *testing.T) {
	f := jsonFormatter{}

	out, err := f.FormatIngestSummary(IngestSummary{CellsInserted: 1})
	require.NoError(t, err)
	assert.Contains(t, out, `"cells_inserted": 1`)
	assert.Contains(t, out, `"content_hash": null`)
}

func TestJSONFormatterIngestSummaryWithHash(t *testing.T) {
	f := jsonFormatter{}

	out, err := f.FormatIngestSummary(IngestSummary{CellsInserted: 2, HasContentHash: true, ContentHash: "abc123"})
	require.NoError(t, err)
	assert.Contains(t, out, `"content_hash": "abc123"`)
}

func TestJSONFormatterCellSelectionOrdersByHierarchy(t *testing.T) {
	f := jsonFormatter{}

	out, err := f.FormatCellSelection([]string{"state", "county"}, map[string]string{"county": "Franklin", "state": "OH"})
	require.NoError(t, err)
	assert.Contains(t, out, `"state": "OH"`)
	assert.Contains(t, out, `"county": "Franklin"`)
	assert.Less(t, strings.Index(out, `"state"`), strings.Index(out, `"county"`))
}
