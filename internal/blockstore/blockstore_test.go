package blockstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetMissingKey(t *testing.T) {
	s := New(t.TempDir())

	data, ok, err := s.Get(context.Background(), Databases, "nobody")
	require.NoError(t, err)
	require.False(t, ok)
	require.Nil(t, data)
}

func TestPutGetOverwrite(t *testing.T) {
	s := New(t.TempDir())
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, Sessions, "ABCDE12345", []byte("one")))

	data, ok, err := s.Get(ctx, Sessions, "ABCDE12345")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("one"), data)

	require.NoError(t, s.Put(ctx, Sessions, "ABCDE12345", []byte("two")))

	data, ok, err = s.Get(ctx, Sessions, "ABCDE12345")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("two"), data)
}

func TestCollectionsAreSeparate(t *testing.T) {
	s := New(t.TempDir())
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, Databases, "k", []byte("db")))

	_, ok, err := s.Get(ctx, Sessions, "k")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRejectsHostileKeys(t *testing.T) {
	s := New(t.TempDir())
	ctx := context.Background()

	for _, key := range []string{"", ".", "..", "a/b", `a\b`, "../escape"} {
		err := s.Put(ctx, Databases, key, []byte("x"))
		require.ErrorIs(t, err, ErrPersistence, "key %q", key)

		_, _, err = s.Get(ctx, Databases, key)
		require.ErrorIs(t, err, ErrPersistence, "key %q", key)
	}
}

func TestLazyInit(t *testing.T) {
	root := filepath.Join(t.TempDir(), "store")
	s := New(root)

	// Construction alone must not touch the filesystem.
	_, err := os.Stat(root)
	require.True(t, os.IsNotExist(err))

	require.NoError(t, s.Put(context.Background(), Databases, "u1", []byte("x")))
	require.DirExists(t, filepath.Join(root, "databases"))
	require.DirExists(t, filepath.Join(root, "sessions"))
}
