package authflowrepo

import (
	"errors"
	"sync"
	"time"

	autherrors "github.com/jrsteele09/go-auth-login/internal/errors"
)

// InMemoryRepo is a thread-safe in-memory implementation of the Repo interface.
// Flows are stored by reference; the controller inside is shared.
type InMemoryRepo struct {
	mu    sync.RWMutex
	flows map[string]*Flow
}

// NewInMemoryRepo creates a new in-memory flow repository
func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{
		flows: make(map[string]*Flow),
	}
}

func (r *InMemoryRepo) Upsert(flow *Flow) error {
	if flow == nil {
		return errors.New("flow cannot be nil")
	}
	if flow.ID == "" {
		return errors.New("flow id cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.flows[flow.ID] = flow
	return nil
}

func (r *InMemoryRepo) Get(id string, now time.Time) (*Flow, error) {
	if id == "" {
		return nil, autherrors.ErrFlowNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	flow, exists := r.flows[id]
	if !exists {
		return nil, autherrors.ErrFlowNotFound
	}
	flow.LastSeen = now
	return flow, nil
}

func (r *InMemoryRepo) Delete(id string) error {
	if id == "" {
		return errors.New("flow id cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.flows, id)
	return nil
}

func (r *InMemoryRepo) DeleteIdle(cutoff time.Time) []*Flow {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed []*Flow
	for id, flow := range r.flows {
		if flow.LastSeen.Before(cutoff) {
			removed = append(removed, flow)
			delete(r.flows, id)
		}
	}
	return removed
}

// Len returns the number of live flows.
func (r *InMemoryRepo) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.flows)
}
