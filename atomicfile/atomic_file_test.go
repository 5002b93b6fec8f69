package atomicfile

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/kjk/backbone/u"
	"github.com/stretchr/testify/require"
)

func TestWriteReplacesDestination(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "out.txt")
	require.NoError(t, os.WriteFile(dst, []byte("old"), 0644))

	f, err := New(dst)
	require.NoError(t, err)
	require.True(t, u.FileExists(f.tmpPath))
	_, err = f.WriteString("new content")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	require.False(t, u.FileExists(f.tmpPath))
	d, err := os.ReadFile(dst)
	require.NoError(t, err)
	require.Equal(t, "new content", string(d))
}

func TestErrorKeepsDestination(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "out.txt")
	require.NoError(t, os.WriteFile(dst, []byte("old"), 0644))

	f, err := New(dst)
	require.NoError(t, err)
	_, err = f.Write([]byte("partial"))
	require.NoError(t, err)

	// simulate a failure before the rename
	errSimulated := errors.New("simulated")
	f.err = errSimulated
	require.Equal(t, errSimulated, f.Close())
	// second Close returns the same error
	require.Equal(t, errSimulated, f.Close())

	require.False(t, u.FileExists(f.tmpPath))
	d, err := os.ReadFile(dst)
	require.NoError(t, err)
	require.Equal(t, "old", string(d))
}

func TestRemoveIfNotClosed(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "out.txt")
	f, err := New(dst)
	require.NoError(t, err)
	_, err = f.WriteString("discarded")
	require.NoError(t, err)

	f.RemoveIfNotClosed()
	require.False(t, u.FileExists(f.tmpPath))
	require.False(t, u.FileExists(dst))

	// a no-op after Close
	f2, err := New(dst)
	require.NoError(t, err)
	require.NoError(t, f2.Close())
	f2.RemoveIfNotClosed()
	require.True(t, u.FileExists(dst))
}

func TestWriteAfterCancelFails(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "out.txt")
	f, err := New(dst)
	require.NoError(t, err)
	f.RemoveIfNotClosed()
	_, err = f.Write([]byte("x"))
	require.ErrorIs(t, err, ErrCancelled)
}

func TestNewRejectsDirectoryPath(t *testing.T) {
	_, err := New(t.TempDir() + string(os.PathSeparator))
	require.Error(t, err)
}
