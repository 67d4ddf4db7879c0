package store

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/jmylchreest/sitetree/pkg/linktree"
)

// MemoryStore keeps encoded trees in process memory. Trees are stored
// serialized so that callers never share nodes with the store.
type MemoryStore struct {
	mu    sync.RWMutex
	trees map[string][]byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{trees: make(map[string][]byte)}
}

func (s *MemoryStore) Get(_ context.Context, rootURL string) (*linktree.Tree, error) {
	s.mu.RLock()
	data, ok := s.trees[rootURL]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return decodeTree(data)
}

func (s *MemoryStore) Save(_ context.Context, rootURL string, tree *linktree.Tree) error {
	data, err := encodeTree(tree)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.trees[rootURL] = data
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, rootURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.trees[rootURL]; !ok {
		return ErrNotFound
	}
	delete(s.trees, rootURL)
	return nil
}

func (s *MemoryStore) List(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Sorted(maps.Keys(s.trees)), nil
}

func (s *MemoryStore) Close() error {
	return nil
}
