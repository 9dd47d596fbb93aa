// Package mock provides an in-memory storage.StateStorer used in tests.
package mock

import (
	"encoding/json"
	"sort"
	"strings"
	"sync"

	"github.com/redesblock/stash/core/storage"
)

type store struct {
	store map[string][]byte
	mtx   sync.RWMutex
}

// NewStateStore returns an in-memory StateStorer.
func NewStateStore() storage.StateStorer {
	return &store{
		store: make(map[string][]byte),
	}
}

func (s *store) Get(key string, i interface{}) error {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	data, ok := s.store[key]
	if !ok {
		return storage.ErrNotFound
	}
	return json.Unmarshal(data, i)
}

func (s *store) Put(key string, i interface{}) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	bytes, err := json.Marshal(i)
	if err != nil {
		return err
	}
	s.store[key] = bytes
	return nil
}

func (s *store) Delete(key string) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	delete(s.store, key)
	return nil
}

func (s *store) Iterate(prefix string, iterFunc storage.StateIterFunc) error {
	s.mtx.RLock()
	keys := make([]string, 0, len(s.store))
	for k := range s.store {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	s.mtx.RUnlock()

	sort.Strings(keys)

	for _, k := range keys {
		s.mtx.RLock()
		v, ok := s.store[k]
		s.mtx.RUnlock()
		if !ok {
			continue
		}
		stop, err := iterFunc([]byte(k), v)
		if err != nil {
			return err
		}
		if stop {
			break
		}
	}
	return nil
}

func (s *store) Close() error {
	return nil
}
