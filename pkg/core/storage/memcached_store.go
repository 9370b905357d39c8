package storage

import (
	"bytes"
	"sync"
)

// MemCachedStore is a wrapper around persistent store that caches all changes
// being made for them to be later flushed in one batch. A nil value in the
// cache is a pending deletion that hides the persistent value.
type MemCachedStore struct {
	mut sync.RWMutex
	mem map[string][]byte

	// Persistent Store.
	ps Store
}

// NewMemCachedStore creates a new MemCachedStore object.
func NewMemCachedStore(lower Store) *MemCachedStore {
	return &MemCachedStore{
		mem: make(map[string][]byte),
		ps:  lower,
	}
}

// Get returns the pending value for the key if there is one (ErrKeyNotFound
// for a pending deletion), otherwise it asks the persistent store.
func (s *MemCachedStore) Get(key []byte) ([]byte, error) {
	s.mut.RLock()
	val, ok := s.mem[string(key)]
	s.mut.RUnlock()
	if ok {
		if val == nil {
			return nil, ErrKeyNotFound
		}
		return bytes.Clone(val), nil
	}
	return s.ps.Get(key)
}

// Put records a pending write.
func (s *MemCachedStore) Put(key, value []byte) {
	v := make([]byte, len(value))
	copy(v, value)
	s.mut.Lock()
	s.mem[string(key)] = v
	s.mut.Unlock()
}

// Delete records a pending deletion.
func (s *MemCachedStore) Delete(key []byte) {
	s.mut.Lock()
	s.mem[string(key)] = nil
	s.mut.Unlock()
}

// Len returns the number of pending writes and deletions.
func (s *MemCachedStore) Len() (puts int, dels int) {
	s.mut.RLock()
	defer s.mut.RUnlock()
	for _, v := range s.mem {
		if v != nil {
			puts++
		} else {
			dels++
		}
	}
	return
}

// GetChangeSet returns a copy of the pending change set.
func (s *MemCachedStore) GetChangeSet() map[string][]byte {
	s.mut.RLock()
	defer s.mut.RUnlock()
	res := make(map[string][]byte, len(s.mem))
	for k, v := range s.mem {
		res[k] = v
	}
	return res
}

// Persist flushes all the pending changes into the persistent store in one
// change set. The cache is emptied only if the store accepted the change
// set, so a failed Persist can be retried.
func (s *MemCachedStore) Persist() (int, error) {
	return s.persist(false)
}

// PersistPuts is the same as Persist, but pending deletions are dropped
// instead of being applied.
func (s *MemCachedStore) PersistPuts() (int, error) {
	return s.persist(true)
}

func (s *MemCachedStore) persist(skipDeletes bool) (int, error) {
	s.mut.Lock()
	defer s.mut.Unlock()

	if len(s.mem) == 0 {
		return 0, nil
	}
	batch := s.mem
	if skipDeletes {
		batch = make(map[string][]byte, len(s.mem))
		for k, v := range s.mem {
			if v != nil {
				batch[k] = v
			}
		}
		if len(batch) == 0 {
			s.mem = make(map[string][]byte)
			return 0, nil
		}
	}
	err := s.ps.PutChangeSet(batch)
	if err != nil {
		return 0, err
	}
	s.mem = make(map[string][]byte)
	return len(batch), nil
}
