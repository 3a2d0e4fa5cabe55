package model

import "testing"

import "github.com/stretchr/testify/assert"

func TestUndefinedCellIDIsReservedZero(t *testing.T) {
	assert.Equal(t, int64(0), UndefinedCellID)
}

func TestUnmappedValueIsStableSentinel(t *testing.T) {
	assert.Equal(t, "UNMAPPED", UnmappedValue)
}

func TestPropertyKeyConstantsAreDistinct(t *testing.T) {
	keys := []string{PropertyUniqueID, PropertySchemaVersion, PropertyAppVersion, PropertyContentHash}
	seen := make(map[string]bool, len(keys))
	for _, k := range keys {
		assert.False(t, seen[k], "property key %q must be unique", k)
		seen[k] = true
	}
}

func TestSchemaVersionAndAppVersionAreSet(t *testing.T) {
	assert.NotEmpty(t, SchemaVersion)
	assert.NotEmpty(t, AppVersion)
}
