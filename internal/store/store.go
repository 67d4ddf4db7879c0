// Package store persists link trees keyed by their normalized root URL.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmylchreest/sitetree/internal/config"
	"github.com/jmylchreest/sitetree/pkg/linktree"
)

// ErrNotFound is returned when no tree is stored for a root URL.
var ErrNotFound = errors.New("tree not found")

// Store is a persistent map from root URL to tree. Implementations are safe
// for concurrent use; callers serialize read-modify-write cycles themselves.
type Store interface {
	// Get returns the tree stored for rootURL or ErrNotFound.
	Get(ctx context.Context, rootURL string) (*linktree.Tree, error)

	// Save stores tree under rootURL, replacing any previous tree.
	Save(ctx context.Context, rootURL string, tree *linktree.Tree) error

	// Delete removes the tree for rootURL or returns ErrNotFound.
	Delete(ctx context.Context, rootURL string) error

	// List returns every stored root URL in ascending order.
	List(ctx context.Context) ([]string, error)

	// Close releases backend resources.
	Close() error
}

// New opens the backend selected by cfg.Backend.
func New(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Backend {
	case "", config.BackendMemory:
		return NewMemoryStore(), nil
	case config.BackendRedis:
		return ConnectRedis(ctx, cfg.Redis)
	case config.BackendPostgres:
		s, err := ConnectPostgres(ctx, cfg.Postgres)
		if err != nil {
			return nil, err
		}
		if err := s.EnsureSchema(ctx); err != nil {
			_ = s.Close()
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

func encodeTree(tree *linktree.Tree) ([]byte, error) {
	if tree == nil {
		return nil, errors.New("cannot store nil tree")
	}
	data, err := json.Marshal(tree)
	if err != nil {
		return nil, fmt.Errorf("failed to encode tree: %w", err)
	}
	return data, nil
}

func decodeTree(data []byte) (*linktree.Tree, error) {
	var tree linktree.Tree
	if err := json.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("failed to decode tree: %w", err)
	}
	return &tree, nil
}
