// Package accounts keeps the cache of previously authenticated sessions a
// browser holds, one entry per completed login, and tracks which of them is
// the active credential.
package accounts

// Record is the identity-provider account a session was issued for.
type Record struct {
	ID             string `json:"id"`
	CollectionID   string `json:"collectionId"`
	CollectionName string `json:"collectionName,omitempty"`
	Name           string `json:"name,omitempty"`
	Email          string `json:"email,omitempty"`
}

// Key identifies the account across sessions: collection id followed by
// record id.
func (r *Record) Key() string {
	if r == nil {
		return ""
	}
	return r.CollectionID + r.ID
}

// InCollection reports whether the record belongs to the collection named
// by either its id or its name.
func (r *Record) InCollection(collection string) bool {
	if r == nil || collection == "" {
		return false
	}
	return r.CollectionID == collection || r.CollectionName == collection
}

// CacheEntry is one completed authentication. Entries are never modified,
// only replaced.
type CacheEntry struct {
	Token    string  `json:"token"`
	IssuedAt int64   `json:"iat"`
	Record   *Record `json:"record"`
}
