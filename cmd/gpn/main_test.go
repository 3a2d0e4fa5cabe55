package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gpn/internal/nodefile"
	"gpn/internal/repository"
)

func TestRunNewCreatesNodeFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "example.node")

	require.NoError(t, runNew(context.Background(), path, &newFlags{}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.False(t, info.IsDir())
}

func TestRunNewRefusesWhenParentDirectoryMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing-parent", "example.node")

	err := runNew(context.Background(), path, &newFlags{})
	assert.Error(t, err)
}

func TestRunNewRefusesBlankBasename(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "  ")

	err := runNew(context.Background(), path, &newFlags{})
	assert.Error(t, err)
}

func TestRunNewRefusesExistingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "example.node")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	err := runNew(context.Background(), path, &newFlags{})
	assert.Error(t, err)
}

func TestRunNewSeedsHierarchyFromDefinitionFile(t *testing.T) {
	dir := t.TempDir()
	defPath := filepath.Join(dir, "node.toml")
	require.NoError(t, os.WriteFile(defPath,
		[]byte(`hierarchy = ["state", "county"]`), 0o644))

	nodePath := filepath.Join(dir, "example.node")
	ctx := context.Background()
	require.NoError(t, runNew(ctx, nodePath, &newFlags{definition: defPath}))

	node, err := nodefile.Open(ctx, nodePath, nodefile.ReadOnly)
	require.NoError(t, err)
	defer node.Close()

	tx, err := node.DB().BeginTx(ctx, nil)
	require.NoError(t, err)
	defer tx.Rollback()

	hierarchies, err := repository.NewHierarchyRepository(tx).List(ctx)
	require.NoError(t, err)

	names := make([]string, len(hierarchies))
	for i, h := range hierarchies {
		names[i] = h.Name
	}
	assert.Equal(t, []string{"state", "county"}, names)
}

func TestRunNewRejectsUnreadableDefinitionFile(t *testing.T) {
	dir := t.TempDir()
	nodePath := filepath.Join(dir, "example.node")

	err := runNew(context.Background(), nodePath, &newFlags{definition: filepath.Join(dir, "missing.toml")})
	assert.Error(t, err)

	_, statErr := os.Stat(nodePath)
	assert.True(t, os.IsNotExist(statErr), "a failed definition read must not leave a half-created node file behind")
}
