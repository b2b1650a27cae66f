package reasoner

import (
	"context"
	"errors"
	"fmt"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/LaithAlz/me-agent/internal/infra"
)

// ReliabilityWrapper оборачивает клиента reasoner'а лимитером и предохранителем.
// Retry здесь намеренно нет: политика повторов зависит от стадии
// (selection не повторяется, explanation — один раз) и живет в оркестраторе.
type ReliabilityWrapper struct {
	next    Client
	cb      *gobreaker.CircuitBreaker
	limiter *rate.Limiter
}

func NewReliabilityWrapper(next Client, cfg infra.ReasonerConfig) *ReliabilityWrapper {
	// Настройка предохранителя
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "reasoner",
		MaxRequests: cfg.CBMaxRequests,
		Interval:    cfg.CBInterval,
		Timeout:     cfg.CBTimeout, // Время, через которое CB попробует "закрыться"
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
	})

	limiter := rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst)

	return &ReliabilityWrapper{
		next:    next,
		cb:      cb,
		limiter: limiter,
	}
}

func (w *ReliabilityWrapper) CreateAssistant(ctx context.Context, name, instructions string) (string, error) {
	res, err := w.execute(ctx, StageCreateAssistant, func() (interface{}, error) {
		return w.next.CreateAssistant(ctx, name, instructions)
	})
	if err != nil {
		return "", err
	}
	return res.(string), nil
}

func (w *ReliabilityWrapper) Generate(ctx context.Context, stage, task string) (Result, error) {
	res, err := w.execute(ctx, stage, func() (interface{}, error) {
		return w.next.Generate(ctx, stage, task)
	})
	if err != nil {
		return Result{}, err
	}
	return res.(Result), nil
}

func (w *ReliabilityWrapper) execute(ctx context.Context, stage string, fn func() (interface{}, error)) (interface{}, error) {
	// 1. Rate Limiter
	if err := w.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit exceeded: %w", err)
	}

	// 2. Circuit Breaker
	res, err := w.cb.Execute(fn)
	if err != nil {
		// Открытый CB — тоже отказ апстрима, наружу уходит единообразный 502
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, &UpstreamError{Stage: stage, Err: err}
		}
		return nil, err
	}
	return res, nil
}
