package stevedore

import "sync"

// StateStore is the in-memory registry of container lifecycle records,
// keyed by container name. It lives for the life of the process; nothing
// is persisted and there is no delete. A record for a removed container
// stays readable until restart.
//
// Each key has a single writer (the container's monitor task), so writes
// to the same key are naturally sequential. Writes to different keys only
// contend for the duration of one map assignment.
type StateStore struct {
	mu      sync.RWMutex
	records map[string]ContainerRecord
}

// NewStateStore creates an empty store.
func NewStateStore() *StateStore {
	return &StateStore{
		records: make(map[string]ContainerRecord),
	}
}

// Put inserts or overwrites the record for rec.Name.
func (s *StateStore) Put(rec ContainerRecord) {
	s.mu.Lock()
	s.records[rec.Name] = rec
	s.mu.Unlock()
}

// Get returns the last recorded state for name. The second return value
// is false when the name has never been observed.
func (s *StateStore) Get(name string) (ContainerRecord, bool) {
	s.mu.RLock()
	rec, ok := s.records[name]
	s.mu.RUnlock()
	return rec, ok
}
