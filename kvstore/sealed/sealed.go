// Package sealed encrypts the values of another kvstore.Storage at rest.
//
// Session cache entries carry bearer tokens, so a shared backend such as
// Redis or SQLite should not hold them in the clear. Values are sealed with
// NaCl secretbox under a key derived from an operator secret with HKDF.
package sealed

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	autherrors "github.com/jrsteele09/go-auth-login/internal/errors"
	"github.com/jrsteele09/go-auth-login/kvstore"
	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/nacl/secretbox"
)

const (
	keySize   = 32
	nonceSize = 24
	hkdfInfo  = "go-auth-login session cache v1"
)

// ErrCorrupt is returned by Get when a stored value cannot be opened.
var ErrCorrupt = autherrors.ErrCorrupt

// Store seals values before handing them to the wrapped storage.
type Store struct {
	inner kvstore.Storage
	key   [keySize]byte
	rand  io.Reader
}

var _ kvstore.Storage = (*Store)(nil)

// New derives the sealing key from secret and wraps inner.
func New(inner kvstore.Storage, secret []byte) (*Store, error) {
	if inner == nil {
		return nil, errors.New("[sealed New] inner storage is required")
	}
	if len(secret) == 0 {
		return nil, errors.New("[sealed New] secret is required")
	}

	s := &Store{inner: inner, rand: rand.Reader}
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, []byte(hkdfInfo)), s.key[:]); err != nil {
		return nil, fmt.Errorf("[sealed New] derive key: %w", err)
	}
	return s, nil
}

// Get opens the value stored under key.
func (s *Store) Get(key string) ([]byte, error) {
	boxed, err := s.inner.Get(key)
	if err != nil {
		return nil, err
	}
	if len(boxed) < nonceSize+secretbox.Overhead {
		return nil, fmt.Errorf("open %s: %w", key, ErrCorrupt)
	}

	var nonce [nonceSize]byte
	copy(nonce[:], boxed[:nonceSize])
	value, ok := secretbox.Open(nil, boxed[nonceSize:], &nonce, &s.key)
	if !ok {
		return nil, fmt.Errorf("open %s: %w", key, ErrCorrupt)
	}
	return value, nil
}

// Set seals value under a fresh nonce and stores nonce||box.
func (s *Store) Set(key string, value []byte) error {
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(s.rand, nonce[:]); err != nil {
		return fmt.Errorf("seal %s: %w", key, err)
	}
	return s.inner.Set(key, secretbox.Seal(nonce[:], value, &nonce, &s.key))
}

// Remove deletes key from the wrapped storage.
func (s *Store) Remove(key string) error {
	return s.inner.Remove(key)
}
