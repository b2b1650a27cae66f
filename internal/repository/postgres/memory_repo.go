package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/LaithAlz/me-agent/internal/domain"
)

type MemoryRepo struct {
	pool *pgxpool.Pool
}

func NewMemoryRepo(pool *pgxpool.Pool) *MemoryRepo {
	return &MemoryRepo{pool: pool}
}

func (r *MemoryRepo) Get(ctx context.Context, userID string) (*domain.MemoryPayload, error) {
	query := `SELECT payload FROM agent_memories WHERE user_id = $1`

	var raw []byte
	err := r.pool.QueryRow(ctx, query, userID).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	var payload domain.MemoryPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("postgres: unmarshal memory payload: %w", err)
	}
	// Legacy-записи могли писаться без части полей
	payload.EnsureDefaults()
	return &payload, nil
}

func (r *MemoryRepo) Set(ctx context.Context, userID string, payload domain.MemoryPayload) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("postgres: marshal memory payload: %w", err)
	}

	query := `
		INSERT INTO agent_memories (user_id, payload, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET
			payload = EXCLUDED.payload,
			updated_at = EXCLUDED.updated_at`

	_, err = r.pool.Exec(ctx, query, userID, raw, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("postgres: save memory: %w", err)
	}
	return nil
}
