package store

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
)

// Memory implements Store with an in-process map. Documents are stored as
// marshaled JSON so Get never aliases what Put received.
type Memory struct {
	mu          sync.RWMutex
	collections map[string]map[string][]byte
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{collections: make(map[string]map[string][]byte)}
}

func (s *Memory) Put(ctx context.Context, collection, key string, doc interface{}) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.collections[collection]
	if !ok {
		c = make(map[string][]byte)
		s.collections[collection] = c
	}
	c[key] = data
	return nil
}

func (s *Memory) Get(ctx context.Context, collection, key string, out interface{}) error {
	s.mu.RLock()
	data, ok := s.collections[collection][key]
	s.mu.RUnlock()
	if !ok {
		return ErrNotFound
	}
	return json.Unmarshal(data, out)
}

func (s *Memory) Delete(ctx context.Context, collection, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.collections[collection], key)
	return nil
}

func (s *Memory) List(ctx context.Context, collection string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.collections[collection]))
	for k := range s.collections[collection] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *Memory) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collections = nil
	return nil
}
