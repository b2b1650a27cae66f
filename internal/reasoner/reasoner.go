// Package reasoner — граница с внешним reasoning-сервисом.
// Ядро никогда не видит сырые ответы апстрима: адаптер нормализует их
// в фиксированный Result, а ошибки — в типизированные TimeoutError/UpstreamError.
package reasoner

import "context"

// Стадии вызова. Попадают в ошибки, метрики и текст 502.
const (
	StageCreateAssistant = "create_assistant"
	StageSelection       = "selection"
	StageExplanation     = "explanation"
)

// Result — нормализованный ответ апстрима.
type Result struct {
	Content string
	Model   string
}

type Client interface {
	// CreateAssistant регистрирует ассистента и возвращает его id.
	CreateAssistant(ctx context.Context, name, instructions string) (string, error)
	// Generate выполняет одну стадию: задача в формате JSON, ответ — свободный текст/JSON.
	Generate(ctx context.Context, stage, task string) (Result, error)
}

// TimeoutError — апстрим не уложился в дедлайн стадии.
type TimeoutError struct {
	Stage string
}

func (e *TimeoutError) Error() string {
	return "reasoner timed out during " + e.Stage
}

// UpstreamError — протокольная ошибка апстрима (не таймаут).
// Транслируется в единообразный 502, сырой 500 наружу не уходит.
type UpstreamError struct {
	Stage  string
	Status int
	Err    error
}

func (e *UpstreamError) Error() string {
	return "upstream failed during " + e.Stage
}

func (e *UpstreamError) Unwrap() error { return e.Err }
