package sqlitestore_test

import (
	"path/filepath"
	"testing"

	"github.com/jrsteele09/go-auth-login/kvstore"
	"github.com/jrsteele09/go-auth-login/kvstore/sqlitestore"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T, path string) *sqlitestore.Store {
	t.Helper()

	s, err := sqlitestore.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = s.Close()
	})
	return s
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := sqlitestore.Open("  ")
	require.Error(t, err)
}

func TestStore_RoundTrip(t *testing.T) {
	s := openStore(t, filepath.Join(t.TempDir(), "kv.db"))

	_, err := s.Get("cache")
	require.ErrorIs(t, err, kvstore.ErrNotFound)

	require.NoError(t, s.Set("cache", []byte("v1")))
	require.NoError(t, s.Set("cache", []byte("v2")))

	got, err := s.Get("cache")
	require.NoError(t, err)
	require.Equal(t, "v2", string(got))

	require.NoError(t, s.Remove("cache"))
	_, err = s.Get("cache")
	require.ErrorIs(t, err, kvstore.ErrNotFound)
}

func TestStore_PersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kv.db")

	first, err := sqlitestore.Open(path)
	require.NoError(t, err)
	require.NoError(t, first.Set("cache", []byte("kept")))
	require.NoError(t, first.Close())

	second := openStore(t, path)
	got, err := second.Get("cache")
	require.NoError(t, err)
	require.Equal(t, "kept", string(got))
}
