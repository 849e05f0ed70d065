package db

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kamar-Folarin/commit-painter/internal/models"
)

func TestFileStore(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	testStoreContract(t, store)
}

func TestFileStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	first, err := NewFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, first.Save(ctx, testJob("art", 46, 200)))

	second, err := NewFileStore(dir)
	require.NoError(t, err)
	loaded, err := second.Load(ctx, testJob("art", 0, 0).Key())
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, 46, loaded.CompletedUnits)
}

func TestFileStore_FileLayout(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)

	job := &models.Job{OwnerLogin: "octo/cat", RepositoryName: "art", YearKey: "2024", TotalUnits: 1}
	require.NoError(t, store.Save(ctx, job))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "commit-progress+octo%2Fcat+art+2024.json", entries[0].Name())

	_, err = os.Stat(filepath.Join(dir, entries[0].Name()+tmpExtension))
	assert.True(t, os.IsNotExist(err), "temporary file is renamed away")
}

func TestFileStore_IgnoresForeignFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hi"), 0o600))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o750))

	store, err := NewFileStore(dir)
	require.NoError(t, err)
	jobs, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestFileStore_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)

	key := testJob("art", 0, 0).Key()
	require.NoError(t, os.WriteFile(store.path(key), []byte("{"), 0o600))

	_, err = store.Load(context.Background(), key)
	assert.Error(t, err)
}

func TestNewFileStore_EmptyDir(t *testing.T) {
	_, err := NewFileStore("")
	assert.Error(t, err)
}
