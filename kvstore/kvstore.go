// Package kvstore defines the key-value storage the login flow persists its
// session cache in, the way a browser page would use local storage.
package kvstore

import (
	autherrors "github.com/jrsteele09/go-auth-login/internal/errors"
)

// ErrNotFound is returned by Get when the key is absent.
var ErrNotFound = autherrors.ErrNotFound

// Storage is a synchronous byte store. Implementations must be safe for
// concurrent use.
type Storage interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	Remove(key string) error
}

type prefixed struct {
	prefix string
	inner  Storage
}

// Prefixed scopes every key of inner under prefix, giving each browser its
// own key space inside a shared backend.
func Prefixed(inner Storage, prefix string) Storage {
	return &prefixed{prefix: prefix, inner: inner}
}

func (p *prefixed) Get(key string) ([]byte, error) {
	return p.inner.Get(p.prefix + key)
}

func (p *prefixed) Set(key string, value []byte) error {
	return p.inner.Set(p.prefix+key, value)
}

func (p *prefixed) Remove(key string) error {
	return p.inner.Remove(p.prefix + key)
}
