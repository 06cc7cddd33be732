package accounts

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jrsteele09/go-auth-login/kvstore"
	"github.com/rs/zerolog/log"
)

// NoSelection is the index of a store with no active entry.
const NoSelection = -1

// DefaultStorageKey is the storage key the login page caches sessions under.
const DefaultStorageKey = "__pb_oauth2_cache__"

// MultiStore keeps an ordered list of cached sessions in durable storage and
// a pointer to the selected one. Saves and clears are forwarded to a
// BaseStore so code that only understands a single credential keeps working.
type MultiStore struct {
	mu         sync.RWMutex
	base       *BaseStore
	storage    kvstore.Storage
	storageKey string
	items      []CacheEntry
	index      int
	nowTime    func() time.Time
}

// Option configures a MultiStore.
type Option func(*MultiStore)

// WithNowTime sets the clock (primarily for testing)
func WithNowTime(nowFunc func() time.Time) Option {
	return func(s *MultiStore) {
		s.nowTime = nowFunc
	}
}

// WithBaseStore forwards saves and clears to base instead of a private holder.
func WithBaseStore(base *BaseStore) Option {
	return func(s *MultiStore) {
		s.base = base
	}
}

// NewMultiStore loads the cache stored under storageKey and prunes it.
// Unreadable or corrupt data yields an empty cache; failing to persist the
// pruned cache is returned.
func NewMultiStore(storage kvstore.Storage, storageKey string, options ...Option) (*MultiStore, error) {
	if storage == nil {
		return nil, errors.New("[NewMultiStore] storage is required")
	}
	if storageKey == "" {
		storageKey = DefaultStorageKey
	}

	s := &MultiStore{
		storage:    storage,
		storageKey: storageKey,
		index:      NoSelection,
		nowTime:    time.Now,
	}
	for _, opt := range options {
		opt(s)
	}
	if s.base == nil {
		s.base = NewBaseStore()
	}
	s.base.nowTime = s.nowTime

	s.items = s.load()

	if err := s.Prune(); err != nil {
		return nil, fmt.Errorf("[NewMultiStore] %w", err)
	}
	return s, nil
}

func (s *MultiStore) load() []CacheEntry {
	raw, err := s.storage.Get(s.storageKey)
	if err != nil {
		if !errors.Is(err, kvstore.ErrNotFound) {
			log.Warn().Err(err).Str("key", s.storageKey).Msg("Session cache unreadable, starting empty")
		}
		return []CacheEntry{}
	}

	var items []CacheEntry
	if err := json.Unmarshal(raw, &items); err != nil {
		log.Warn().Err(err).Str("key", s.storageKey).Msg("Session cache corrupt, starting empty")
		return []CacheEntry{}
	}
	if items == nil {
		items = []CacheEntry{}
	}
	return items
}

func (s *MultiStore) persistLocked() error {
	data, err := json.Marshal(s.items)
	if err != nil {
		return fmt.Errorf("encode session cache: %w", err)
	}
	if err := s.storage.Set(s.storageKey, data); err != nil {
		return fmt.Errorf("persist session cache: %w", err)
	}
	return nil
}

// Base returns the single-credential holder saves are forwarded to.
func (s *MultiStore) Base() *BaseStore {
	return s.base
}

// Records returns a copy of every cached entry in order.
func (s *MultiStore) Records() []CacheEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]CacheEntry(nil), s.items...)
}

func (s *MultiStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Index returns the selected position or NoSelection.
func (s *MultiStore) Index() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index
}

// Selected returns a copy of the selected entry, or nil.
func (s *MultiStore) Selected() *CacheEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selectedLocked()
}

func (s *MultiStore) selectedLocked() *CacheEntry {
	if s.index < 0 || s.index >= len(s.items) {
		return nil
	}
	entry := s.items[s.index]
	return &entry
}

// Select points the store at index. An out of range index clears the
// selection.
func (s *MultiStore) Select(index int) *CacheEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectLocked(index)
}

func (s *MultiStore) selectLocked(index int) *CacheEntry {
	if index < 0 || index >= len(s.items) {
		s.index = NoSelection
		return nil
	}
	s.index = index
	return s.selectedLocked()
}

// SelectByRecord selects the first entry for record's account.
func (s *MultiStore) SelectByRecord(record *Record) *CacheEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	index := s.findIndexLocked(record)
	if index < 0 {
		return nil
	}
	return s.selectLocked(index)
}

// FindIndex returns the position of the first entry for record's account,
// or -1.
func (s *MultiStore) FindIndex(record *Record) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.findIndexLocked(record)
}

func (s *MultiStore) findIndexLocked(record *Record) int {
	if record == nil {
		return -1
	}
	key := record.Key()
	for i, item := range s.items {
		if item.Record != nil && item.Record.Key() == key {
			return i
		}
	}
	return -1
}

// Token returns the selected entry's token, or "".
func (s *MultiStore) Token() string {
	if selected := s.Selected(); selected != nil {
		return selected.Token
	}
	return ""
}

// Record returns the selected entry's account, or nil.
func (s *MultiStore) Record() *Record {
	if selected := s.Selected(); selected != nil {
		return selected.Record
	}
	return nil
}

// Save appends a new entry issued now, selects it and persists the cache.
func (s *MultiStore) Save(token string, record *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var stored *Record
	if record != nil {
		r := *record
		stored = &r
	}

	s.items = append(s.items, CacheEntry{
		Token:    token,
		IssuedAt: s.nowTime().Unix(),
		Record:   stored,
	})
	s.index = len(s.items) - 1

	if err := s.persistLocked(); err != nil {
		return fmt.Errorf("[MultiStore Save] %w", err)
	}

	s.base.Save(token, stored)
	return nil
}

// Clear erases the persisted cache and forgets every entry.
func (s *MultiStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = []CacheEntry{}
	s.index = NoSelection
	s.base.Clear()

	if err := s.storage.Remove(s.storageKey); err != nil {
		return fmt.Errorf("[MultiStore Clear] %w", err)
	}
	return nil
}

// Logout removes the selected entry and clears the selection.
func (s *MultiStore) Logout() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.selectedLocked() == nil {
		return nil
	}

	s.items = append(s.items[:s.index:s.index], s.items[s.index+1:]...)
	s.index = NoSelection
	s.base.Clear()

	if err := s.persistLocked(); err != nil {
		return fmt.Errorf("[MultiStore Logout] %w", err)
	}
	return nil
}

// Prune drops every entry that is expired, has no account, or is older than
// the newest entry of the same account. An entry removed before the
// selection shifts it left; removing the selected entry clears the
// selection. The result is persisted and the surviving selection, if any,
// becomes the base store's credential.
func (s *MultiStore) Prune() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.nowTime()

	latest := make(map[string]int64)
	for _, item := range s.items {
		if item.Record == nil {
			continue
		}
		key := item.Record.Key()
		if latest[key] < item.IssuedAt {
			latest[key] = item.IssuedAt
		}
	}

	kept := make([]CacheEntry, 0, len(s.items))
	selected := s.index
	newIndex := s.index
	for i, item := range s.items {
		issuedAt, ok := latest[item.Record.Key()]
		if item.Record != nil && ok && issuedAt == item.IssuedAt && TokenValid(item.Token, now) {
			kept = append(kept, item)
			continue
		}
		if i < selected {
			newIndex--
		} else if i == selected {
			newIndex = NoSelection
		}
	}

	s.items = kept
	s.index = newIndex

	if err := s.persistLocked(); err != nil {
		return fmt.Errorf("[MultiStore Prune] %w", err)
	}

	if selected := s.selectedLocked(); selected != nil {
		s.base.Save(selected.Token, selected.Record)
	} else {
		s.base.Clear()
	}
	return nil
}
