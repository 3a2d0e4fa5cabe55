package nodedef

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseReadsDescriptionAndHierarchy(t *testing.T) {
	r := strings.NewReader(`
description = "counties within states"
hierarchy = ["state", "county", "town"]
`)

	def, err := Parse(r)
	require.NoError(t, err)
	assert.Equal(t, "counties within states", def.Description)
	assert.Equal(t, []string{"state", "county", "town"}, def.Hierarchy)
}

func TestParseAllowsEmptyHierarchy(t *testing.T) {
	r := strings.NewReader(`description = "no levels yet"`)

	def, err := Parse(r)
	require.NoError(t, err)
	assert.Empty(t, def.Hierarchy)
}

func TestParseRejectsBlankLevelName(t *testing.T) {
	r := strings.NewReader(`hierarchy = ["state", ""]`)

	_, err := Parse(r)
	assert.Error(t, err)
}

func TestParseRejectsDuplicateLevelName(t *testing.T) {
	r := strings.NewReader(`hierarchy = ["state", "county", "state"]`)

	_, err := Parse(r)
	assert.Error(t, err)
}

func TestParseRejectsMalformedTOML(t *testing.T) {
	r := strings.NewReader(`not valid toml ===`)

	_, err := Parse(r)
	assert.Error(t, err)
}

func TestParseFileMissing(t *testing.T) {
	_, err := ParseFile("/nonexistent/node.toml")
	assert.Error(t, err)
}
