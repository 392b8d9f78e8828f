package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const customerCodeKey = "customer_code_seq"

// RedisCodeSequence hands out customer code numbers with INCR. On first use
// the counter is seeded from the number of existing customers so codes keep
// increasing across restarts of an empty Redis.
type RedisCodeSequence struct {
	client *redis.Client
	seed   func(ctx context.Context) (int, error)
}

func NewRedisCodeSequence(client *redis.Client, seed func(ctx context.Context) (int, error)) *RedisCodeSequence {
	return &RedisCodeSequence{client: client, seed: seed}
}

func (s *RedisCodeSequence) Next(ctx context.Context) (int64, error) {
	exists, err := s.client.Exists(ctx, customerCodeKey).Result()
	if err != nil {
		return 0, fmt.Errorf("check code sequence: %w", err)
	}
	if exists == 0 && s.seed != nil {
		n, err := s.seed(ctx)
		if err != nil {
			return 0, fmt.Errorf("seed code sequence: %w", err)
		}
		// Another instance may have seeded first; SetNX keeps its value.
		if err := s.client.SetNX(ctx, customerCodeKey, n, 0).Err(); err != nil {
			return 0, fmt.Errorf("seed code sequence: %w", err)
		}
	}
	return s.client.Incr(ctx, customerCodeKey).Result()
}

// PostgresCodeSequence uses customer_code_seq when Redis is not configured.
type PostgresCodeSequence struct {
	db *sql.DB
}

func NewPostgresCodeSequence(db *sql.DB) *PostgresCodeSequence {
	return &PostgresCodeSequence{db: db}
}

func (s *PostgresCodeSequence) Next(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT nextval('customer_code_seq')`).Scan(&n); err != nil {
		return 0, mapError(err)
	}
	return n, nil
}
