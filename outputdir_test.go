package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextOutputDir(t *testing.T) {
	base := filepath.Join(t.TempDir(), "out")

	dir, seq, err := NextOutputDir(base, "")
	require.NoError(t, err)
	assert.Equal(t, 1, seq)
	assert.Equal(t, filepath.Join(base, "res1"), dir)
	assert.DirExists(t, dir)

	dir, seq, err = NextOutputDir(base, "")
	require.NoError(t, err)
	assert.Equal(t, 2, seq)
	assert.Equal(t, filepath.Join(base, "res2"), dir)
}

func TestNextOutputDirSkipsPastHighest(t *testing.T) {
	base := t.TempDir()
	for _, name := range []string{"res3", "res10", "resx", "other7"} {
		require.NoError(t, os.Mkdir(filepath.Join(base, name), 0o755))
	}
	// A file with a matching name does not count.
	require.NoError(t, os.WriteFile(filepath.Join(base, "res50"), nil, 0o644))

	dir, seq, err := NextOutputDir(base, "res")
	require.NoError(t, err)
	assert.Equal(t, 11, seq)
	assert.Equal(t, filepath.Join(base, "res11"), dir)
}

func TestNextOutputDirCustomPrefix(t *testing.T) {
	base := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(base, "res4"), 0o755))

	dir, seq, err := NextOutputDir(base, "batch")
	require.NoError(t, err)
	assert.Equal(t, 1, seq)
	assert.Equal(t, filepath.Join(base, "batch1"), dir)
}
