package schemamgr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlanAddSkipsBlankStatements(t *testing.T) {
	p := &Plan{}
	p.Add("  ")
	p.Add("CREATE TABLE foo(id INTEGER)")

	assert.Equal(t, []string{"CREATE TABLE foo(id INTEGER)"}, p.Statements())
}

func TestPlanAddWithRollbackOnlyStoresRollbackAlongsideForward(t *testing.T) {
	p := &Plan{}
	p.AddWithRollback("CREATE TABLE a(x)", "DROP TABLE a")

	assert.Equal(t, []string{"CREATE TABLE a(x)"}, p.Statements())
}

func TestPlanNoteDoesNotAppearInStatements(t *testing.T) {
	p := &Plan{}
	p.Note("rebuilding foo")
	p.Add("DROP TABLE foo")

	assert.Equal(t, []string{"DROP TABLE foo"}, p.Statements())
	assert.Equal(t, []string{"rebuilding foo"}, p.Notes())
}
