package kvstore_test

import (
	"testing"

	"github.com/jrsteele09/go-auth-login/kvstore"
	"github.com/stretchr/testify/require"
)

func TestInMemory(t *testing.T) {
	s := kvstore.NewInMemory()

	_, err := s.Get("missing")
	require.ErrorIs(t, err, kvstore.ErrNotFound)

	value := []byte("hello")
	require.NoError(t, s.Set("k", value))
	value[0] = 'j'

	got, err := s.Get("k")
	require.NoError(t, err)
	require.Equal(t, "hello", string(got), "stored values are copied")

	require.NoError(t, s.Remove("k"))
	require.NoError(t, s.Remove("k"))
	_, err = s.Get("k")
	require.ErrorIs(t, err, kvstore.ErrNotFound)

	require.Error(t, s.Set("", nil))
}

func TestPrefixed(t *testing.T) {
	inner := kvstore.NewInMemory()
	a := kvstore.Prefixed(inner, "device/a/")
	b := kvstore.Prefixed(inner, "device/b/")

	require.NoError(t, a.Set("cache", []byte("A")))
	require.NoError(t, b.Set("cache", []byte("B")))

	got, err := a.Get("cache")
	require.NoError(t, err)
	require.Equal(t, "A", string(got))

	got, err = inner.Get("device/b/cache")
	require.NoError(t, err)
	require.Equal(t, "B", string(got))

	require.NoError(t, a.Remove("cache"))
	require.Equal(t, 1, inner.Len())
}
