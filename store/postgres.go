package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/productsense/research/models"
)

// PostgresSink stores records in a product_records table, upserting on the
// product name so re-researching a product refreshes its row.
type PostgresSink struct {
	pool *pgxpool.Pool
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS product_records (
	product_name text PRIMARY KEY,
	record       jsonb NOT NULL,
	created_at   timestamptz NOT NULL DEFAULT now(),
	updated_at   timestamptz NOT NULL DEFAULT now()
)`

const upsertSQL = `
INSERT INTO product_records (product_name, record)
VALUES ($1, $2)
ON CONFLICT (product_name)
DO UPDATE SET record = EXCLUDED.record, updated_at = now()`

// NewPostgresSink connects to Postgres and ensures the table exists.
func NewPostgresSink(ctx context.Context, dsn string) (*PostgresSink, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres sink: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres sink: ping: %w", err)
	}
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres sink: ensure schema: %w", err)
	}
	return &PostgresSink{pool: pool}, nil
}

func (s *PostgresSink) Name() string { return "postgres" }

func (s *PostgresSink) Store(ctx context.Context, record *models.CanonicalRecord) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("postgres sink: marshal record: %w", err)
	}
	if _, err := s.pool.Exec(ctx, upsertSQL, record.ProductName, payload); err != nil {
		return fmt.Errorf("postgres sink: upsert: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *PostgresSink) Close() {
	s.pool.Close()
}
