package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// MetaRepo — key-value для служебных записей (id ассистентов и т.п.).
type MetaRepo struct {
	pool *pgxpool.Pool
}

func NewMetaRepo(pool *pgxpool.Pool) *MetaRepo {
	return &MetaRepo{pool: pool}
}

func (r *MetaRepo) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := r.pool.QueryRow(ctx, `SELECT value FROM agent_meta WHERE key = $1`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	return value, nil
}

func (r *MetaRepo) Set(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO agent_meta (key, value)
		VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`

	_, err := r.pool.Exec(ctx, query, key, value)
	if err != nil {
		return fmt.Errorf("postgres: set meta %q: %w", key, err)
	}
	return nil
}
