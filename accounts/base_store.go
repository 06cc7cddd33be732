package accounts

import (
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// BaseStore holds a single active credential.
type BaseStore struct {
	mu      sync.RWMutex
	token   string
	record  *Record
	nowTime func() time.Time
}

// NewBaseStore creates an empty credential holder.
func NewBaseStore() *BaseStore {
	return &BaseStore{nowTime: time.Now}
}

func (b *BaseStore) Token() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.token
}

func (b *BaseStore) Record() *Record {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.record
}

// IsValid reports whether the held token is still usable.
func (b *BaseStore) IsValid() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return TokenValid(b.token, b.nowTime())
}

func (b *BaseStore) Save(token string, record *Record) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.token = token
	b.record = record
}

func (b *BaseStore) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.token = ""
	b.record = nil
}

// TokenValid reports whether token is a JWT that has not expired at now.
// The signature is not checked; that is the identity provider's job. A JWT
// without an exp claim never expires, anything that does not parse as a
// JWT with claims is invalid.
func TokenValid(token string, now time.Time) bool {
	if token == "" {
		return false
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil || len(claims) == 0 {
		return false
	}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return false
	}
	if exp == nil {
		return true
	}
	return exp.Time.After(now)
}
