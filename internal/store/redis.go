package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jmylchreest/sitetree/internal/config"
	"github.com/jmylchreest/sitetree/pkg/linktree"
)

const (
	// DefaultKeyPrefix namespaces all sitetree keys.
	DefaultKeyPrefix = "sitetree:"

	treeKeySegment = "tree:"
	scanBatchSize  = 100
	pingTimeout    = 5 * time.Second
)

// RedisStore stores each tree as a JSON string under
// <prefix>tree:<rootURL>.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore wraps an existing client. An empty prefix selects
// DefaultKeyPrefix.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

// ConnectRedis creates a client from cfg and verifies the connection.
func ConnectRedis(ctx context.Context, cfg config.RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}

	return NewRedisStore(client, cfg.KeyPrefix), nil
}

func (s *RedisStore) key(rootURL string) string {
	return s.prefix + treeKeySegment + rootURL
}

func (s *RedisStore) Get(ctx context.Context, rootURL string) (*linktree.Tree, error) {
	data, err := s.client.Get(ctx, s.key(rootURL)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tree: %w", err)
	}
	return decodeTree(data)
}

func (s *RedisStore) Save(ctx context.Context, rootURL string, tree *linktree.Tree) error {
	data, err := encodeTree(tree)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key(rootURL), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save tree: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, rootURL string) error {
	n, err := s.client.Del(ctx, s.key(rootURL)).Result()
	if err != nil {
		return fmt.Errorf("failed to delete tree: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *RedisStore) List(ctx context.Context) ([]string, error) {
	prefix := s.prefix + treeKeySegment
	pattern := escapeGlob(prefix) + "*"

	var roots []string
	iter := s.client.Scan(ctx, 0, pattern, scanBatchSize).Iterator()
	for iter.Next(ctx) {
		roots = append(roots, strings.TrimPrefix(iter.Val(), prefix))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to list trees: %w", err)
	}

	// SCAN may return a key more than once.
	slices.Sort(roots)
	return slices.Compact(roots), nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

// escapeGlob quotes the characters SCAN MATCH treats specially.
func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
