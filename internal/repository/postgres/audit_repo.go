package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/LaithAlz/me-agent/internal/domain"
)

type AuditRepo struct {
	pool *pgxpool.Pool
}

func NewAuditRepo(pool *pgxpool.Pool) *AuditRepo {
	return &AuditRepo{pool: pool}
}

// Append пишет одно событие синхронно: HTTP-ответ не уходит,
// пока запись не зафиксирована.
func (r *AuditRepo) Append(ctx context.Context, event domain.AuditEvent) error {
	snapshot, err := json.Marshal(event.PolicySnapshot)
	if err != nil {
		return fmt.Errorf("postgres: marshal policy snapshot: %w", err)
	}
	meta, err := json.Marshal(event.Meta)
	if err != nil {
		return fmt.Errorf("postgres: marshal meta: %w", err)
	}

	query := `
		INSERT INTO audit_events (id, user_id, ts, actor, action, decision, reason, policy_snapshot, meta)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err = r.pool.Exec(ctx, query,
		event.ID, event.UserID, event.TS, event.Actor,
		event.Action, event.Decision, event.Reason, snapshot, meta,
	)
	if err != nil {
		return fmt.Errorf("postgres: append audit event: %w", err)
	}
	return nil
}

func (r *AuditRepo) List(ctx context.Context, userID string, limit int) ([]domain.AuditEvent, error) {
	if limit < 1 {
		limit = 1
	}
	if limit > 200 {
		limit = 200
	}

	query := `
		SELECT id, user_id, ts, actor, action, decision, reason, policy_snapshot, meta
		FROM audit_events
		WHERE user_id = $1
		ORDER BY ts DESC, id DESC
		LIMIT $2`

	rows, err := r.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.AuditEvent
	for rows.Next() {
		var (
			e        domain.AuditEvent
			snapshot []byte
			meta     []byte
		)
		if err := rows.Scan(&e.ID, &e.UserID, &e.TS, &e.Actor, &e.Action, &e.Decision, &e.Reason, &snapshot, &meta); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(snapshot, &e.PolicySnapshot); err != nil {
			return nil, fmt.Errorf("postgres: unmarshal policy snapshot: %w", err)
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &e.Meta); err != nil {
				return nil, fmt.Errorf("postgres: unmarshal meta: %w", err)
			}
		}
		results = append(results, e)
	}
	return results, rows.Err()
}
