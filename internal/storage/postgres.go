package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"
)

// DBTX is the subset of *sql.DB the Postgres store needs.
type DBTX interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// PostgresStore keeps values in the session_values table. Set and Clear run
// in one transaction each.
type PostgresStore struct {
	db DBTX
}

// NewPostgresStore creates a store over an open database.
func NewPostgresStore(db DBTX) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Get(ctx context.Context, key string) (string, error) {
	const query = `SELECT value FROM session_values WHERE key = $1`

	var value string
	if err := s.db.QueryRowContext(ctx, query, key).Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to read session value: %w", err)
	}
	return value, nil
}

func (s *PostgresStore) Set(ctx context.Context, values map[string]string) error {
	const query = `
		INSERT INTO session_values (key, value, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key)
		DO UPDATE SET value = $2, updated_at = $3`

	now := time.Now()
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, k := range sortedKeys(values) {
			if _, err := tx.ExecContext(ctx, query, k, values[k], now); err != nil {
				return fmt.Errorf("failed to write session value %q: %w", k, err)
			}
		}
		return nil
	})
}

func (s *PostgresStore) Clear(ctx context.Context, keys ...string) error {
	const query = `DELETE FROM session_values WHERE key = $1`

	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, k := range keys {
			if _, err := tx.ExecContext(ctx, query, k); err != nil {
				return fmt.Errorf("failed to clear session value %q: %w", k, err)
			}
		}
		return nil
	})
}

func (s *PostgresStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Printf("failed to roll back session transaction: %v", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// sortedKeys gives writes a deterministic order.
func sortedKeys(values map[string]string) []string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
