// Package sessionlog — асинхронная запись прогонов рекомендаций.
//
// В отличие от аудита решений (строго синхронного), сессии пишутся через
// неблокирующий буфер: задержки БД не влияют на Response Time эндпоинта
// рекомендаций. Накопление в памяти и пакетная вставка по таймеру или при
// достижении лимита; при остановке — Drain Pattern с финальным flush.
package sessionlog

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/LaithAlz/me-agent/internal/domain"
	"github.com/LaithAlz/me-agent/internal/infra"
	"github.com/LaithAlz/me-agent/internal/store"
)

const batchLimit = 100

type Recorder struct {
	ch      chan domain.Session
	repo    store.SessionStore
	metrics *infra.Metrics
	logger  *zap.Logger
	wg      sync.WaitGroup

	flushInterval time.Duration

	// closeMu сериализует Record и Stop: Stop закрывает канал только под
	// эксклюзивным lock'ом, поэтому send в закрытый канал невозможен
	closeMu sync.RWMutex
	closed  bool
}

func NewRecorder(repo store.SessionStore, cfg infra.EngineConfig, metrics *infra.Metrics, logger *zap.Logger) *Recorder {
	return &Recorder{
		ch:            make(chan domain.Session, cfg.SessionBufferSize),
		repo:          repo,
		metrics:       metrics,
		logger:        logger.With(zap.String("mod", "sessionlog")),
		flushInterval: cfg.SessionFlushInterval,
	}
}

func (r *Recorder) Start() {
	r.wg.Add(1)
	go r.worker()
}

// Stop «запирает» вход в канал и ждет, пока воркер всё допишет.
func (r *Recorder) Stop() {
	r.closeMu.Lock()
	if r.closed {
		r.closeMu.Unlock()
		return
	}
	r.closed = true
	r.closeMu.Unlock()

	r.logger.Info("stopping session recorder: closing channel and flushing buffer...")
	close(r.ch)
	r.wg.Wait()
	r.logger.Info("session recorder stopped gracefully")
}

func (r *Recorder) Record(session domain.Session) {
	if session.Timestamp.IsZero() {
		session.Timestamp = time.Now().UTC()
	}

	// RLock держится на время send: Stop не закроет канал под активным Record
	r.closeMu.RLock()
	defer r.closeMu.RUnlock()

	if r.closed {
		r.logger.Warn("session dropped: recorder is stopping", zap.String("id", session.ID))
		return
	}

	// Load Shedding: при переполнении буфера теряем запись, но не блокируем запрос
	select {
	case r.ch <- session:
		r.metrics.SessionBufferFill.Set(float64(len(r.ch)))
	default:
		r.logger.Error("session_buffer_overflow",
			zap.String("user_id", session.UserID),
			zap.String("session_id", session.ID),
		)
	}
}

func (r *Recorder) worker() {
	defer r.wg.Done()

	batch := make([]domain.Session, 0, batchLimit)
	ticker := time.NewTicker(r.flushInterval)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		// Background: основной контекст на shutdown может быть уже закрыт
		if err := r.repo.InsertBatch(context.Background(), batch); err != nil {
			r.logger.Error("session flush failed", zap.Error(err), zap.Int("count", len(batch)))
		}
		batch = batch[:0]
	}

	for {
		select {
		case s, ok := <-r.ch:
			if !ok {
				// Final Flush: канал закрыт, дописываем остатки и выходим
				flush()
				return
			}
			batch = append(batch, s)
			r.metrics.SessionBufferFill.Set(float64(len(r.ch)))
			if len(batch) >= batchLimit {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}
