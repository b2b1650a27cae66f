package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	ActorUser  = "user"
	ActorAgent = "agent"
)

// AuditEvent — неизменяемая запись об одном решении Authority Engine
// (или ручное событие, добавленное пользователем). Создается ровно один
// раз, никогда не мутируется и не удаляется.
type AuditEvent struct {
	ID       string    `json:"id"`
	UserID   string    `json:"userId"`
	TS       time.Time `json:"ts"`
	Actor    string    `json:"actor"`    // user | agent
	Action   string    `json:"action"`   // например, addToCart, checkoutStart
	Decision string    `json:"decision"` // ALLOW | BLOCK
	Reason   string    `json:"reason"`

	// Снимок политики на момент решения. Всегда копия по значению:
	// последующие правки политики не меняют историю.
	PolicySnapshot AgentPolicy `json:"policySnapshot"`

	Meta map[string]interface{} `json:"meta,omitempty"`
}

// NewEventID генерирует id события в формате evt_<12 hex>.
func NewEventID() string {
	hex := strings.ReplaceAll(uuid.New().String(), "-", "")
	return "evt_" + hex[:12]
}

// AuditSummary — агрегат для дашборда.
type AuditSummary struct {
	UserID       string         `json:"userId"`
	Total        int            `json:"total"`
	Allowed      int            `json:"allowed"`
	Blocked      int            `json:"blocked"`
	BlockRate    float64        `json:"blockRate"` // процент, округлен до 0.1
	MostRecent   *AuditEvent    `json:"mostRecent,omitempty"`
	ActionCounts map[string]int `json:"actionCounts"`
}

// Summarize считает статистику по набору событий (most-recent-first).
func Summarize(userID string, events []AuditEvent) AuditSummary {
	s := AuditSummary{
		UserID:       userID,
		Total:        len(events),
		ActionCounts: make(map[string]int),
	}
	for _, e := range events {
		switch e.Decision {
		case DecisionAllow:
			s.Allowed++
		case DecisionBlock:
			s.Blocked++
		}
		s.ActionCounts[e.Action]++
	}
	if s.Total > 0 {
		s.MostRecent = &events[0]
		s.BlockRate = RoundTo(float64(s.Blocked)/float64(s.Total)*100, 1)
	}
	return s
}
