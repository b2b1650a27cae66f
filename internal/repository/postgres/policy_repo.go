package postgres

/*
Файл policy_repo.go отвечает за долговременное хранение персональных политик.
Слой отделяет хранение в PostgreSQL от мгновенной проверки политик
в оперативной памяти (PolicyCache в пакете authority).
*/

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/LaithAlz/me-agent/internal/domain"
)

type PolicyRepo struct {
	pool *pgxpool.Pool
}

func NewPolicyRepo(pool *pgxpool.Pool) *PolicyRepo {
	return &PolicyRepo{pool: pool}
}

func (r *PolicyRepo) Get(ctx context.Context, userID string) (*domain.PolicyRecord, error) {
	query := `
		SELECT user_id, max_spend, allowed_categories, agent_enabled, require_confirm, updated_at
		FROM agent_policies
		WHERE user_id = $1`

	rec := &domain.PolicyRecord{}
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&rec.UserID,
		&rec.Policy.MaxSpend,
		&rec.Policy.AllowedCategories,
		&rec.Policy.AgentEnabled,
		&rec.Policy.RequireConfirm,
		&rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Политики еще нет — ленивый дефолт создаст вызывающий
		}
		return nil, err
	}
	return rec, nil
}

func (r *PolicyRepo) Save(ctx context.Context, rec domain.PolicyRecord) error {
	query := `
		INSERT INTO agent_policies (user_id, max_spend, allowed_categories, agent_enabled, require_confirm, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO UPDATE SET
			max_spend = EXCLUDED.max_spend,
			allowed_categories = EXCLUDED.allowed_categories,
			agent_enabled = EXCLUDED.agent_enabled,
			require_confirm = EXCLUDED.require_confirm,
			updated_at = EXCLUDED.updated_at`

	_, err := r.pool.Exec(ctx, query,
		rec.UserID,
		rec.Policy.MaxSpend,
		rec.Policy.AllowedCategories,
		rec.Policy.AgentEnabled,
		rec.Policy.RequireConfirm,
		rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: save policy: %w", err)
	}
	return nil
}
