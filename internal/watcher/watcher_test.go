package watcher

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeRepoDirs(t *testing.T) (root, gitDir string) {
	t.Helper()
	root = t.TempDir()
	gitDir = filepath.Join(root, ".git")
	require.NoError(t, os.MkdirAll(filepath.Join(gitDir, "refs", "heads"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(gitDir, "objects"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src"), 0o755))
	return root, gitDir
}

func TestWatcherNotifiesOnWorktreeWrite(t *testing.T) {
	root, gitDir := makeRepoDirs(t)

	var fired atomic.Int32
	w := New(root, gitDir, func() { fired.Add(1) })
	require.NoError(t, w.Start())
	defer w.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "main.go"), []byte("package main\n"), 0o644))

	require.Eventually(t, func() bool { return fired.Load() > 0 },
		2*time.Second, 10*time.Millisecond)
}

func TestWatcherNotifiesOnRefUpdate(t *testing.T) {
	root, gitDir := makeRepoDirs(t)

	var fired atomic.Int32
	w := New(root, gitDir, func() { fired.Add(1) })
	require.NoError(t, w.Start())
	defer w.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(gitDir, "refs", "heads", "main"), []byte("abc123\n"), 0o644))

	require.Eventually(t, func() bool { return fired.Load() > 0 },
		2*time.Second, 10*time.Millisecond)
}

func TestWatcherStartIsIdempotent(t *testing.T) {
	root, gitDir := makeRepoDirs(t)

	w := New(root, gitDir, func() {})
	require.NoError(t, w.Start())
	defer w.Stop()

	assert.NoError(t, w.Start())
}

func TestIgnoredPaths(t *testing.T) {
	root, gitDir := makeRepoDirs(t)
	w := New(root, gitDir, func() {})

	tests := []struct {
		path    string
		ignored bool
	}{
		{filepath.Join(gitDir, "index.lock"), true},
		{filepath.Join(root, "main.go~"), true},
		{filepath.Join(gitDir, "objects", "ab", "cdef"), true},
		{filepath.Join(gitDir, "logs", "HEAD"), true},
		{filepath.Join(gitDir, "HEAD"), false},
		{filepath.Join(gitDir, "index"), false},
		{filepath.Join(gitDir, "refs", "heads", "main"), false},
		{filepath.Join(root, "main.go"), false},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.ignored, w.ignored(tc.path), tc.path)
	}
}
