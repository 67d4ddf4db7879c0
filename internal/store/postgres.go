package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/jmylchreest/sitetree/internal/config"
	"github.com/jmylchreest/sitetree/pkg/linktree"
)

const (
	// DefaultMaxOpenConns is the default maximum number of open connections
	DefaultMaxOpenConns = 10
	// DefaultMaxIdleConns is the default maximum number of idle connections
	DefaultMaxIdleConns = 5
	// DefaultConnMaxLifetime is the default maximum connection lifetime
	DefaultConnMaxLifetime = 5 * time.Minute
)

const schema = `
CREATE TABLE IF NOT EXISTS link_trees (
	root_url   TEXT PRIMARY KEY,
	tree       JSONB NOT NULL,
	total_urls INTEGER NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// PostgresStore stores trees as JSONB rows in link_trees.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore wraps an existing connection pool.
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// ConnectPostgres opens a pool using cfg and verifies the connection.
func ConnectPostgres(ctx context.Context, cfg config.PostgresConfig) (*PostgresStore, error) {
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	db, err := sqlx.ConnectContext(pingCtx, "postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(orDefault(cfg.MaxOpenConns, DefaultMaxOpenConns))
	db.SetMaxIdleConns(orDefault(cfg.MaxIdleConns, DefaultMaxIdleConns))
	db.SetConnMaxLifetime(orDefault(cfg.ConnMaxLifetime, DefaultConnMaxLifetime))

	return NewPostgresStore(db), nil
}

// EnsureSchema creates the link_trees table when missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create link_trees table: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, rootURL string) (*linktree.Tree, error) {
	query := `SELECT tree FROM link_trees WHERE root_url = $1`

	var data []byte
	err := s.db.GetContext(ctx, &data, query, rootURL)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tree: %w", err)
	}
	return decodeTree(data)
}

func (s *PostgresStore) Save(ctx context.Context, rootURL string, tree *linktree.Tree) error {
	data, err := encodeTree(tree)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO link_trees (root_url, tree, total_urls, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (root_url) DO UPDATE
		SET tree = EXCLUDED.tree, total_urls = EXCLUDED.total_urls, updated_at = NOW()
	`

	if _, err := s.db.ExecContext(ctx, query, rootURL, data, tree.TotalURLs); err != nil {
		return fmt.Errorf("failed to save tree: %w", err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, rootURL string) error {
	query := `DELETE FROM link_trees WHERE root_url = $1`

	result, err := s.db.ExecContext(ctx, query, rootURL)
	if err != nil {
		return fmt.Errorf("failed to delete tree: %w", err)
	}
	return execRequireRows(result, ErrNotFound)
}

func (s *PostgresStore) List(ctx context.Context) ([]string, error) {
	query := `SELECT root_url FROM link_trees ORDER BY root_url COLLATE "C"`

	var roots []string
	if err := s.db.SelectContext(ctx, &roots, query); err != nil {
		return nil, fmt.Errorf("failed to list trees: %w", err)
	}
	return roots, nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// execRequireRows returns notFoundErr when result affected no rows.
func execRequireRows(result sql.Result, notFoundErr error) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFoundErr
	}
	return nil
}

func orDefault[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}
