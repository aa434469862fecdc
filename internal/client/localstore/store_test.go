package localstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "nested", "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestGetSetDelete(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)

	v, err := s.Get(ctx, "missing")
	require.NoError(t, err)
	require.Nil(t, v)

	require.NoError(t, s.Set(ctx, "k", []byte("one")))
	require.NoError(t, s.Set(ctx, "k", []byte("two")))
	v, err = s.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, []byte("two"), v)

	require.NoError(t, s.Delete(ctx, "k"))
	v, err = s.Get(ctx, "k")
	require.NoError(t, err)
	require.Nil(t, v)
}

func TestClearPrefix(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)

	for _, k := range []string{"vyayam.auth.session", "vyayam.auth.pkce", "vyayam.prefs.theme", "other"} {
		require.NoError(t, s.Set(ctx, k, []byte("x")))
	}
	require.NoError(t, s.ClearPrefix(ctx, "vyayam.auth."))

	keys, err := s.Keys(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"other", "vyayam.prefs.theme"}, keys)
}

func TestOpen_Reopens(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.db")

	s, err := Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "k", []byte("v")))
	require.NoError(t, s.Close())

	s, err = Open(ctx, path)
	require.NoError(t, err)
	defer s.Close()
	v, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, []byte("v"), v)
}
