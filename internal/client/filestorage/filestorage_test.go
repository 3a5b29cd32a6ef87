package filestorage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteReadList(t *testing.T) {
	ctx := context.Background()
	s, err := New(filepath.Join(t.TempDir(), "files"), nil)
	require.NoError(t, err)

	p, err := s.Write(ctx, "b.csv", []byte("b"))
	require.NoError(t, err)
	require.Equal(t, filepath.Join(s.Dir(), "b.csv"), p)
	_, err = s.Write(ctx, "a.csv", []byte("a"))
	require.NoError(t, err)

	got, err := s.Read(ctx, "b.csv")
	require.NoError(t, err)
	require.Equal(t, []byte("b"), got)

	names, err := s.List(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"a.csv", "b.csv"}, names)
}

func TestWrite_RejectsPathsOutsideStorage(t *testing.T) {
	s, err := New(t.TempDir(), nil)
	require.NoError(t, err)

	for _, name := range []string{"", "../x", "sub/x", ".hidden"} {
		_, err := s.Write(context.Background(), name, nil)
		require.ErrorIs(t, err, ErrInvalidName, name)
	}
}

func TestClearAllFiles_Success(t *testing.T) {
	ctx := context.Background()
	s, err := New(t.TempDir(), nil)
	require.NoError(t, err)
	_, err = s.Write(ctx, "a.csv", []byte("a"))
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Join(s.Dir(), "nested"), 0o700))

	res := s.ClearAllFiles(ctx)
	require.Equal(t, ClearSuccess, res.Outcome)
	require.Equal(t, 2, res.Removed)
	require.NoError(t, res.Err)

	names, err := s.List(ctx)
	require.NoError(t, err)
	require.Empty(t, names)
}

func TestClearAllFiles_MissingDirectoryIsSuccess(t *testing.T) {
	s, err := New(filepath.Join(t.TempDir(), "files"), nil)
	require.NoError(t, err)
	require.NoError(t, os.RemoveAll(s.Dir()))

	res := s.ClearAllFiles(context.Background())
	require.Equal(t, ClearSuccess, res.Outcome)
	require.Zero(t, res.Removed)
}

func TestClearAllFiles_CanceledContext(t *testing.T) {
	s, err := New(t.TempDir(), nil)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := s.ClearAllFiles(ctx)
	require.Equal(t, ClearFailure, res.Outcome)
	require.ErrorIs(t, res.Err, context.Canceled)
}
