// Package memory — in-process хранилище для dev/demo запуска без PostgreSQL.
// Выбирается автоматически, если database.url не задан в конфиге.
package memory

import (
	"context"
	"sort"
	"sync"

	gocache "github.com/patrickmn/go-cache"

	"github.com/LaithAlz/me-agent/internal/domain"
)

// PolicyStore хранит политики в go-cache без TTL.
type PolicyStore struct {
	c *gocache.Cache
}

func NewPolicyStore() *PolicyStore {
	return &PolicyStore{c: gocache.New(gocache.NoExpiration, 0)}
}

func (s *PolicyStore) Get(_ context.Context, userID string) (*domain.PolicyRecord, error) {
	v, ok := s.c.Get(userID)
	if !ok {
		return nil, nil
	}
	rec := v.(domain.PolicyRecord)
	rec.Policy = rec.Policy.Clone()
	return &rec, nil
}

func (s *PolicyStore) Save(_ context.Context, rec domain.PolicyRecord) error {
	rec.Policy = rec.Policy.Clone()
	s.c.Set(rec.UserID, rec, gocache.NoExpiration)
	return nil
}

// AuditLog — append-only журнал в памяти, события по пользователю.
type AuditLog struct {
	mu     sync.RWMutex
	events map[string][]domain.AuditEvent
}

func NewAuditLog() *AuditLog {
	return &AuditLog{events: make(map[string][]domain.AuditEvent)}
}

func (l *AuditLog) Append(_ context.Context, event domain.AuditEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	event.PolicySnapshot = event.PolicySnapshot.Clone()
	l.events[event.UserID] = append(l.events[event.UserID], event)
	return nil
}

func (l *AuditLog) List(_ context.Context, userID string, limit int) ([]domain.AuditEvent, error) {
	if limit < 1 {
		limit = 1
	}
	if limit > 200 {
		limit = 200
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	stored := l.events[userID]
	out := make([]domain.AuditEvent, len(stored))
	copy(out, stored)

	// most-recent-first
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TS.After(out[j].TS)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// MemoryStore хранит shopping-профили в go-cache без TTL.
type MemoryStore struct {
	c *gocache.Cache
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{c: gocache.New(gocache.NoExpiration, 0)}
}

func (s *MemoryStore) Get(_ context.Context, userID string) (*domain.MemoryPayload, error) {
	v, ok := s.c.Get(userID)
	if !ok {
		return nil, nil
	}
	payload := v.(domain.MemoryPayload).Clone()
	return &payload, nil
}

func (s *MemoryStore) Set(_ context.Context, userID string, payload domain.MemoryPayload) error {
	s.c.Set(userID, payload.Clone(), gocache.NoExpiration)
	return nil
}

// SessionStore хранит сессии и правки в памяти.
type SessionStore struct {
	mu          sync.RWMutex
	sessions    map[string][]domain.Session
	corrections []domain.Correction
}

func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string][]domain.Session)}
}

func (s *SessionStore) InsertBatch(_ context.Context, sessions []domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sess := range sessions {
		s.sessions[sess.UserID] = append(s.sessions[sess.UserID], sess)
	}
	return nil
}

func (s *SessionStore) LatestByUser(_ context.Context, userID string) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.sessions[userID]
	if len(stored) == 0 {
		return nil, nil
	}

	latest := stored[0]
	for _, sess := range stored[1:] {
		if sess.Timestamp.After(latest.Timestamp) {
			latest = sess
		}
	}
	return &latest, nil
}

func (s *SessionStore) InsertCorrection(_ context.Context, corr domain.Correction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.corrections = append(s.corrections, corr)
	return nil
}

// Corrections возвращает копию накопленных правок.
func (s *SessionStore) Corrections() []domain.Correction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Correction, len(s.corrections))
	copy(out, s.corrections)
	return out
}

// MetaStore — key-value в go-cache.
type MetaStore struct {
	c *gocache.Cache
}

func NewMetaStore() *MetaStore {
	return &MetaStore{c: gocache.New(gocache.NoExpiration, 0)}
}

func (s *MetaStore) Get(_ context.Context, key string) (string, error) {
	v, ok := s.c.Get(key)
	if !ok {
		return "", nil
	}
	return v.(string), nil
}

func (s *MetaStore) Set(_ context.Context, key, value string) error {
	s.c.Set(key, value, gocache.NoExpiration)
	return nil
}
