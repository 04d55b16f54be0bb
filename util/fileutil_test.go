package util

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/smartystreets/assertions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b", "c")
	require.NoError(t, EnsureDir(dir))

	exists, err := PathExists(dir)
	require.NoError(t, err)
	assert.True(t, exists)

	// 幂等
	require.NoError(t, EnsureDir(dir))
}

func TestListFilesBySuffix(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"0002.wal", "0000.wal", "0001.wal", "skip.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.wal"), 0755))

	names, err := ListFilesBySuffix(dir, ".wal")
	require.NoError(t, err)
	assert.Equal(t, []string{"0000.wal", "0001.wal", "0002.wal"}, names)
}

func TestWriteFileAtomic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.ckpt")
	content := []byte("first version")
	require.NoError(t, WriteFileAtomic(path, content))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assertions.ShouldEqual(content, got)
	assert.Equal(t, content, got)

	// 覆盖写不留残余
	next := []byte("v2")
	require.NoError(t, WriteFileAtomic(path, next))
	got, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, next, got)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
