package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/LaithAlz/me-agent/internal/domain"
)

type SessionRepo struct {
	pool *pgxpool.Pool
}

func NewSessionRepo(pool *pgxpool.Pool) *SessionRepo {
	return &SessionRepo{pool: pool}
}

// InsertBatch — пакетная вставка сессий одним запросом.
// Вызывается фоновым recorder'ом, поэтому размер пачки ограничен его буфером.
func (r *SessionRepo) InsertBatch(ctx context.Context, sessions []domain.Session) error {
	if len(sessions) == 0 {
		return nil
	}

	// Количество колонок в таблице agent_sessions
	numFields := 6
	placeholderStr := ""
	vals := make([]interface{}, 0, len(sessions)*numFields)

	// Динамически строим запрос для пакетной вставки
	for i, s := range sessions {
		p := i * numFields
		placeholderStr += fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d),",
			p+1, p+2, p+3, p+4, p+5, p+6)

		inventory, _ := json.Marshal(s.InventorySnapshot)

		vals = append(vals, s.ID, s.UserID, s.Cart, s.Explanation, inventory, s.Timestamp)
	}

	query := fmt.Sprintf(
		"INSERT INTO agent_sessions (id, user_id, cart, explanation, inventory_snapshot, ts) VALUES %s",
		strings.TrimSuffix(placeholderStr, ","),
	)

	_, err := r.pool.Exec(ctx, query, vals...)
	return err
}

func (r *SessionRepo) LatestByUser(ctx context.Context, userID string) (*domain.Session, error) {
	query := `
		SELECT id, user_id, cart, explanation, inventory_snapshot, ts
		FROM agent_sessions
		WHERE user_id = $1
		ORDER BY ts DESC
		LIMIT 1`

	var (
		s         domain.Session
		inventory []byte
	)
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&s.ID, &s.UserID, &s.Cart, &s.Explanation, &inventory, &s.Timestamp,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(inventory, &s.InventorySnapshot); err != nil {
		return nil, fmt.Errorf("postgres: unmarshal inventory snapshot: %w", err)
	}
	return &s, nil
}

func (r *SessionRepo) InsertCorrection(ctx context.Context, corr domain.Correction) error {
	query := `
		INSERT INTO agent_corrections (id, user_id, session_id, kept_items, rejected_items, reason, ts)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.pool.Exec(ctx, query,
		corr.ID, corr.UserID, corr.SessionID, corr.KeptItems, corr.RejectedItems, corr.Reason, corr.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert correction: %w", err)
	}
	return nil
}
