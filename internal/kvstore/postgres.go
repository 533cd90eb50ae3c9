package kvstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq"
)

// PostgresStore persists blobs in a single kv_blobs table.
type PostgresStore struct {
	db     *sql.DB
	prefix string
}

// NewPostgresStore opens the database, verifies connectivity and ensures
// the schema exists.
func NewPostgresStore(ctx context.Context, dsn, prefix string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	store := &PostgresStore{db: db, prefix: prefix}
	if err := store.ensureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// NewPostgresStoreWithDB wraps an existing connection. Used by tests.
func NewPostgresStoreWithDB(db *sql.DB, prefix string) *PostgresStore {
	return &PostgresStore{db: db, prefix: prefix}
}

func (p *PostgresStore) ensureSchema(ctx context.Context) error {
	const ddl = `CREATE TABLE IF NOT EXISTS kv_blobs (
		k TEXT PRIMARY KEY,
		v BYTEA NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`
	if _, err := p.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("ensure kv_blobs schema: %w", err)
	}
	return nil
}

func (p *PostgresStore) key(key string) string {
	if p.prefix == "" {
		return key
	}
	return p.prefix + ":" + key
}

// Get reads the blob for key.
func (p *PostgresStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := p.db.QueryRowContext(ctx, `SELECT v FROM kv_blobs WHERE k = $1`, p.key(key)).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("postgres get %s: %w", key, err)
	}
	return value, nil
}

// Set upserts the blob for key.
func (p *PostgresStore) Set(ctx context.Context, key string, value []byte) error {
	const query = `INSERT INTO kv_blobs (k, v, updated_at) VALUES ($1, $2, now())
		ON CONFLICT (k) DO UPDATE SET v = EXCLUDED.v, updated_at = now()`
	if _, err := p.db.ExecContext(ctx, query, p.key(key), value); err != nil {
		return fmt.Errorf("postgres set %s: %w", key, err)
	}
	return nil
}

// Remove deletes the blob for key.
func (p *PostgresStore) Remove(ctx context.Context, key string) error {
	if _, err := p.db.ExecContext(ctx, `DELETE FROM kv_blobs WHERE k = $1`, p.key(key)); err != nil {
		return fmt.Errorf("postgres remove %s: %w", key, err)
	}
	return nil
}

// Close closes the database handle.
func (p *PostgresStore) Close() error {
	return p.db.Close()
}
