package fileutils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "nested", "master.m3u8")

	require.NoError(t, WriteFileAtomic(dst, []byte("#EXTM3U\n"), 0o644))
	require.NoError(t, WriteFileAtomic(dst, []byte("#EXTM3U\n#EXT-X-ENDLIST\n"), 0o644))

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "#EXTM3U\n#EXT-X-ENDLIST\n", string(data))

	entries, err := os.ReadDir(filepath.Dir(dst))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file must not be left behind")
}

func TestMoveFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.part")
	dst := filepath.Join(dir, "a.ts")
	require.NoError(t, os.WriteFile(src, []byte("12345"), 0o644))

	require.NoError(t, MoveFile(src, dst))
	_, err := os.Stat(src)
	assert.True(t, os.IsNotExist(err))

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "12345", string(data))
}
