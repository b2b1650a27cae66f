// Package store определяет контракты персистентности. Реализации:
// repository/postgres (боевая) и repository/memory (dev/demo без БД).
package store

import (
	"context"

	"github.com/LaithAlz/me-agent/internal/domain"
)

// PolicyStore хранит персональные политики агента.
type PolicyStore interface {
	// Get возвращает nil, nil если политика еще не создавалась.
	Get(ctx context.Context, userID string) (*domain.PolicyRecord, error)
	Save(ctx context.Context, rec domain.PolicyRecord) error
}

// AuditLog — append-only журнал решений.
type AuditLog interface {
	Append(ctx context.Context, event domain.AuditEvent) error
	// List возвращает события most-recent-first; limit зажимается в [1, 200].
	List(ctx context.Context, userID string, limit int) ([]domain.AuditEvent, error)
}

// MemoryStore хранит shopping-профили пользователей.
type MemoryStore interface {
	// Get возвращает nil, nil если профиль еще не создавался.
	Get(ctx context.Context, userID string) (*domain.MemoryPayload, error)
	Set(ctx context.Context, userID string, payload domain.MemoryPayload) error
}

// SessionStore хранит прогоны рекомендаций и пользовательские правки.
type SessionStore interface {
	InsertBatch(ctx context.Context, sessions []domain.Session) error
	// LatestByUser возвращает nil, nil если сессий еще не было.
	LatestByUser(ctx context.Context, userID string) (*domain.Session, error)
	InsertCorrection(ctx context.Context, corr domain.Correction) error
}

// MetaStore — key-value для служебных записей (например, id ассистентов reasoner).
type MetaStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}
