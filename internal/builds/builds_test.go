package builds

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeBuilds(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range names {
		require.NoError(t, os.Mkdir(filepath.Join(dir, name), 0755))
	}
	return dir
}

func TestList_Sorted(t *testing.T) {
	dir := makeBuilds(t, "m-c-1234568-asan-opt", "m-c-1234567-asan-opt", "m-beta-999-opt")

	names, err := List(dir)

	require.NoError(t, err)
	assert.Equal(t, []string{
		"m-beta-999-opt",
		"m-c-1234567-asan-opt",
		"m-c-1234568-asan-opt",
	}, names)
}

func TestList_EmptyDirIsNotAnError(t *testing.T) {
	names, err := List(t.TempDir())

	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestList_MissingPath(t *testing.T) {
	_, err := List(filepath.Join(t.TempDir(), "no-such-dir"))

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBuildPathNotFound)
}

func TestList_FileIsNotABuildPath(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "not-a-dir")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))

	_, err := List(file)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBuildPathNotFound)
}

func TestValidate_Match(t *testing.T) {
	dir := makeBuilds(t, "m-c-1234567-asan-opt")

	assert.NoError(t, Validate(dir, "m-c-1234567-asan-opt"))
}

func TestValidate_MissWithSuggestion(t *testing.T) {
	dir := makeBuilds(t, "m-c-1234567-asan-opt", "m-beta-999-opt")

	err := Validate(dir, "m-c-1234567-asan")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBuildNotFound)
	assert.Contains(t, err.Error(), "m-c-1234567-asan-opt")
}

func TestValidate_MissingBuildPathIsFatal(t *testing.T) {
	err := Validate(filepath.Join(t.TempDir(), "gone"), "anything")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBuildPathNotFound)
}
